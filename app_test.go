package main

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/chazu/usdlive/pkg/compose"
	"github.com/chazu/usdlive/pkg/config"
	"github.com/chazu/usdlive/pkg/outline"
)

// newTestApp returns an App over an in-memory workspace with a coarse mesh
// grid to keep tessellation fast.
func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Preview.MeshCells = 16
	app, err := NewApp(cfg, nil)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	return app
}

// loadExample copies examples/<name> into the app's workspace and returns
// its text.
func loadExample(t *testing.T, app *App, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("examples", name))
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	if _, err := app.SaveFile("/"+name, string(data)); err != nil {
		t.Fatalf("SaveFile(%s): %v", name, err)
	}
	return string(data)
}

func meshPaths(result EvalResult) []string {
	var paths []string
	for _, m := range result.Meshes {
		paths = append(paths, m.PrimPath)
	}
	sort.Strings(paths)
	return paths
}

// TestE2EExampleScene exercises the full pipeline: USDA text → parse →
// resolve against the workspace → tessellate → meshes. This is the same
// path that the Wails Evaluate binding takes, but without the Wails runtime.
func TestE2EExampleScene(t *testing.T) {
	app := newTestApp(t)
	loadExample(t, app, "cube.usda")
	source := loadExample(t, app, "main.usda")

	result := app.Evaluate("/main.usda", source, 0)

	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("composition error: %s", e.Error())
		}
		t.FailNow()
	}

	got := meshPaths(result)
	want := []string{"/World/Ball", "/World/Ref/Cube"}
	if len(got) != len(want) {
		t.Fatalf("expected meshes %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("mesh %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	for _, m := range result.Meshes {
		if len(m.Vertices) == 0 || len(m.Normals) == 0 || len(m.Indices) == 0 {
			t.Errorf("mesh %q: empty geometry", m.PrimPath)
		}
		if m.Color == "" {
			t.Errorf("mesh %q: no color assigned", m.PrimPath)
		}
		if m.PrimPath == "/World/Ref/Cube" && m.Color != "#cc3333" {
			t.Errorf("referenced cube color = %s, want #cc3333", m.Color)
		}
	}

	if len(result.Outline) != 1 || result.Outline[0].Name != "World" {
		t.Fatalf("expected outline rooted at World, got %+v", result.Outline)
	}
	ref := result.Outline[0].Children[1]
	if ref.Name != "Ref" || !ref.HasBadge(outline.BadgeReference) {
		t.Errorf("expected Ref with a reference badge, got %+v", ref)
	}
	if len(ref.Children) != 1 || !ref.Children[0].HasBadge(outline.BadgeResolved) {
		t.Errorf("expected one composed child under Ref, got %+v", ref.Children)
	}
	if result.Time.Animated {
		t.Error("static scene should not report a time range")
	}
}

// TestE2EEmptySource ensures the pipeline handles empty input gracefully.
func TestE2EEmptySource(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate("/empty.usda", "", 0)

	if len(result.Errors) > 0 {
		t.Errorf("unexpected errors for empty source: %v", result.Errors)
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes for empty source, got %d", len(result.Meshes))
	}
}

// TestE2EMissingReference ensures broken arcs surface as errors and as
// synthetic outline nodes rather than failing the whole scene.
func TestE2EMissingReference(t *testing.T) {
	app := newTestApp(t)
	source := `#usda 1.0
def Xform "Root"
{
    def Sphere "Kept" { double radius = 1 }
    def "Gone" (references = @./nowhere.usda@) {}
}
`
	result := app.Evaluate("/main.usda", source, 0)

	if compose.CountKind(result.Errors, compose.KindMissingFile) != 1 {
		t.Fatalf("expected one missing_file error, got %v", result.Errors)
	}
	if result.Errors[0].FilePath != "/nowhere.usda" {
		t.Errorf("expected error against /nowhere.usda, got %q", result.Errors[0].FilePath)
	}
	if len(result.Meshes) != 1 {
		t.Errorf("expected the sphere to still render, got %d meshes", len(result.Meshes))
	}

	gone := result.Outline[0].Children[1]
	if len(gone.Children) != 1 || !gone.Children[0].HasBadge(outline.BadgeBroken) {
		t.Errorf("expected a broken reference node under Gone, got %+v", gone.Children)
	}
}

// TestE2ESingleSphere ensures a minimal single-prim source renders one mesh.
func TestE2ESingleSphere(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate("/shelf.usda", `def Sphere "shelf" { double radius = 2 }`, 0)

	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(result.Meshes))
	}
	if result.Meshes[0].PartName != "shelf" {
		t.Errorf("expected part name 'shelf', got %q", result.Meshes[0].PartName)
	}
}

// TestE2EAnimatedExample checks that the time range is reported and that
// evaluating at different times moves the geometry.
func TestE2EAnimatedExample(t *testing.T) {
	app := newTestApp(t)
	source := loadExample(t, app, "spin.usda")

	at0 := app.Evaluate("/spin.usda", source, 0)
	at24 := app.Evaluate("/spin.usda", source, 24)

	if len(at0.Errors)+len(at24.Errors) > 0 {
		t.Fatalf("unexpected errors: %v %v", at0.Errors, at24.Errors)
	}
	if !at0.Time.Animated || at0.Time.Start != 0 || at0.Time.End != 48 {
		t.Errorf("time range = %+v, want 0..48 animated", at0.Time)
	}
	if len(at0.Meshes) != 1 || len(at24.Meshes) != 1 {
		t.Fatalf("expected one mesh at each time, got %d and %d", len(at0.Meshes), len(at24.Meshes))
	}

	// The cone rises to y=1 by time 24 while its parent has turned 180
	// degrees about Z, so its centre ends up near y=-1.
	centroidY := func(m MeshData) float64 {
		var sum float64
		for i := 1; i < len(m.Vertices); i += 3 {
			sum += float64(m.Vertices[i])
		}
		return sum / float64(len(m.Vertices)/3)
	}
	if shift := centroidY(at24.Meshes[0]) - centroidY(at0.Meshes[0]); shift > -0.5 {
		t.Errorf("expected the cone to move toward -y by time 24, shift = %g", shift)
	}
}

// TestE2EScriptExample runs the bundled script and composes its output.
func TestE2EScriptExample(t *testing.T) {
	app := newTestApp(t)
	loadExample(t, app, "cube.usda")
	script, err := os.ReadFile(filepath.Join("examples", "tower.lisp"))
	if err != nil {
		t.Fatalf("failed to read tower.lisp: %v", err)
	}

	sr := app.RunScript(string(script))
	if len(sr.Errors) > 0 {
		t.Fatalf("script errors: %v", sr.Errors)
	}

	result := app.Evaluate("/tower.usda", sr.USDA, 12)
	if len(result.Errors) > 0 {
		t.Fatalf("composition errors: %v\n%s", result.Errors, sr.USDA)
	}
	// Base, Middle, Cap and the referenced cube.
	if len(result.Meshes) != 4 {
		t.Errorf("expected 4 meshes, got %d: %v", len(result.Meshes), meshPaths(result))
	}
	if !result.Time.Animated || result.Time.End != 48 {
		t.Errorf("time range = %+v, want animated to 48", result.Time)
	}
}
