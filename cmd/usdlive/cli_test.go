package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chazu/usdlive/pkg/compose"
	"github.com/chazu/usdlive/pkg/config"
	"github.com/chazu/usdlive/pkg/usda"
	"github.com/chazu/usdlive/pkg/workspace"
)

// setupWorkspace writes files into a temp workspace and points the global
// flags at it.
func setupWorkspace(t *testing.T, files map[string]string) string {
	t.Helper()
	ws := t.TempDir()
	for name, content := range files {
		p := filepath.Join(ws, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}

	logger = zap.NewNop()
	cfg = nil
	workspaceDir = ws
	timeCode, outputPath, jsonOutput = 0, "", false
	t.Cleanup(func() {
		cfg = nil
		workspaceDir = ""
		timeCode, outputPath, jsonOutput = 0, "", false
	})
	return ws
}

// newTestCmd returns a command whose output lands in the given buffers.
func newTestCmd(out, errOut *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd
}

const cubeFile = `#usda 1.0
def Cube "Cube" { double size = 2 }
`

const mainFile = `#usda 1.0
def Xform "World"
{
    def Sphere "Ball" { double radius = 1 }
    def "Ref" (references = @./parts/cube.usda@</Cube>) {}
}
`

func TestResolveCmd(t *testing.T) {
	setupWorkspace(t, map[string]string{
		"main.usda":       mainFile,
		"parts/cube.usda": cubeFile,
	})
	var out, errOut bytes.Buffer

	err := runResolve(newTestCmd(&out, &errOut), []string{"main.usda"})
	require.NoError(t, err)

	text := out.String()
	for _, name := range []string{"World", "Ball", "Ref", "Cube"} {
		assert.Contains(t, text, name)
	}
	assert.Empty(t, errOut.String())
}

func TestResolveCmdJSON(t *testing.T) {
	setupWorkspace(t, map[string]string{
		"main.usda": `def "R" (references = @./missing.usda@) {}`,
	})
	jsonOutput = true
	var out, errOut bytes.Buffer

	err := runResolve(newTestCmd(&out, &errOut), []string{"/main.usda"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 composition errors")

	var res compose.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	require.Len(t, res.Errors, 1)
	assert.Equal(t, compose.KindMissingFile, res.Errors[0].Kind)
	assert.Equal(t, "/missing.usda", res.Errors[0].FilePath)
	require.Len(t, res.Prims, 1)
	assert.Equal(t, "R", res.Prims[0].Name)
}

func TestResolveCmdUnknownFile(t *testing.T) {
	setupWorkspace(t, nil)
	var out, errOut bytes.Buffer

	err := runResolve(newTestCmd(&out, &errOut), []string{"nope.usda"})
	assert.True(t, errors.Is(err, workspace.ErrNotFound), "got %v", err)
}

func TestFlattenCmd(t *testing.T) {
	ws := setupWorkspace(t, map[string]string{
		"main.usda":       mainFile,
		"parts/cube.usda": cubeFile,
	})
	outputPath = filepath.Join(ws, "flat.usda")
	var out, errOut bytes.Buffer

	require.NoError(t, runFlatten(newTestCmd(&out, &errOut), []string{"main.usda"}))
	assert.Empty(t, out.String(), "output goes to the file")

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "references")

	prims, err := usda.Parse(string(data))
	require.NoError(t, err)
	ref := prims[0].Children[1]
	require.Len(t, ref.Children, 1)
	assert.Equal(t, "Cube", ref.Children[0].Name)
}

func TestCheckCmd(t *testing.T) {
	setupWorkspace(t, map[string]string{
		"main.usda":       mainFile,
		"parts/cube.usda": cubeFile,
		"a.usda":          `def "A" (references = @./b.usda@) {}`,
		"b.usda":          `def "B" (payload = @./a.usda@) {}`,
		"notes.txt":       "not a scene",
	})
	var out, errOut bytes.Buffer

	err := runCheck(newTestCmd(&out, &errOut), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 composition errors")

	text := out.String()
	assert.Contains(t, text, "FAIL  /a.usda (1 errors)")
	assert.Contains(t, text, "FAIL  /b.usda (1 errors)")
	assert.Contains(t, text, "ok    /main.usda")
	assert.Contains(t, text, "ok    /parts/cube.usda")
	assert.Contains(t, text, "4 files, 2 errors")
	assert.NotContains(t, text, "notes.txt")

	// Reports are in path order.
	assert.Less(t, strings.Index(text, "/a.usda"), strings.Index(text, "/b.usda"))
	assert.Less(t, strings.Index(text, "/b.usda"), strings.Index(text, "/main.usda"))
}

func TestCheckCmdClean(t *testing.T) {
	setupWorkspace(t, map[string]string{"parts/cube.usda": cubeFile})
	var out, errOut bytes.Buffer

	require.NoError(t, runCheck(newTestCmd(&out, &errOut), nil))
	assert.Contains(t, out.String(), "1 files, 0 errors")
}

func TestSampleCmdJSON(t *testing.T) {
	setupWorkspace(t, map[string]string{
		"anim.usda": `def Sphere "S"
{
    double radius.timeSamples = { 0: 1, 10: 3 }
    float3 xformOp:rotateXYZ = (0, 90, 0)
}
`,
	})
	jsonOutput = true
	timeCode = 5
	var out, errOut bytes.Buffer

	require.NoError(t, runSample(newTestCmd(&out, &errOut), []string{"anim.usda"}))

	var rows []sampleRow
	require.NoError(t, json.Unmarshal(out.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "/S", rows[0].Path)
	assert.InDelta(t, 2.0, rows[0].Radius, 1e-9)
	assert.InDelta(t, 90.0, rows[0].Rotation[1], 1e-9)
	require.NotNil(t, rows[0].Color)
}

func TestSampleCmdTable(t *testing.T) {
	setupWorkspace(t, map[string]string{"parts/cube.usda": cubeFile})
	var out, errOut bytes.Buffer

	require.NoError(t, runSample(newTestCmd(&out, &errOut), []string{"parts/cube.usda"}))
	text := out.String()
	assert.Contains(t, text, "/Cube")
	assert.Contains(t, text, "size=2")
}

func TestMeshCmd(t *testing.T) {
	setupWorkspace(t, map[string]string{
		"main.usda":       mainFile,
		"parts/cube.usda": cubeFile,
	})
	cfg = config.Default()
	cfg.Preview.MeshCells = 16
	var out, errOut bytes.Buffer

	require.NoError(t, runMesh(newTestCmd(&out, &errOut), []string{"main.usda"}))
	text := out.String()
	assert.Contains(t, text, "/World/Ball")
	assert.Contains(t, text, "/World/Ref/Cube")
	assert.Contains(t, text, "2 meshes at t=0")
}

func TestScriptCmd(t *testing.T) {
	ws := setupWorkspace(t, map[string]string{
		"tower.lisp": `(xform "Tower" (cube "Base" :size 2) (sphere "Top" :translate (vec3 0 2 0)))`,
		"bad.lisp":   `(sphere "S" :size 1)`,
	})
	var out, errOut bytes.Buffer

	require.NoError(t, runScript(newTestCmd(&out, &errOut), []string{filepath.Join(ws, "tower.lisp")}))
	prims, err := usda.Parse(out.String())
	require.NoError(t, err)
	require.Len(t, prims, 1)
	assert.Equal(t, "Tower", prims[0].Name)
	assert.Len(t, prims[0].Children, 2)

	out.Reset()
	err = runScript(newTestCmd(&out, &errOut), []string{filepath.Join(ws, "bad.lisp")})
	require.Error(t, err)
	assert.Contains(t, errOut.String(), "unknown keyword")
	assert.Empty(t, out.String())
}

func TestCheckAllFollowsSnapshot(t *testing.T) {
	setupWorkspace(t, map[string]string{
		"b.usda":          `def "B" {}`,
		"a.usda":          `def "A" (references = @./b.usda@) {}`,
		"parts/cube.usda": cubeFile,
	})
	store, err := openStore()
	require.NoError(t, err)
	snapshot, err := store.Snapshot()
	require.NoError(t, err)

	reports, err := checkAll(context.Background(), store)
	require.NoError(t, err)

	got := make([]string, len(reports))
	for i, r := range reports {
		got[i] = r.Path
		assert.Empty(t, r.Errors, r.Path)
	}
	assert.Equal(t, snapshot.Paths(), got)
}
