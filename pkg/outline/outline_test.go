package outline

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/go-cmp/cmp"

	"github.com/chazu/usdlive/pkg/compose"
	"github.com/chazu/usdlive/pkg/scene"
)

func resolved(t *testing.T) []*scene.Prim {
	t.Helper()
	files := compose.NewFileMap(
		compose.VirtualFile{Path: "/cube.usda", Content: `def Cube "C" {}`, Active: true},
	)
	res := compose.ParseAndResolve(`
def Sphere "S" { double radius.timeSamples = { 0: 1, 10: 2 } }
def "Ref" (
    references = [@./cube.usda@, @./gone.usda@]
    payload = @./main.usda@
) {
    def Xform "Native" {}
}`, "/main.usda", files)
	if len(res.Errors) != 2 {
		t.Fatalf("expected missing and circular errors, got %v", res.Errors)
	}
	return res.Prims
}

func TestBuild(t *testing.T) {
	nodes := Build(resolved(t))

	want := []Node{
		{Name: "S", Type: scene.TypeSphere, Path: "/S", Badges: []Badge{BadgeAnimated}},
		{
			Name: "Ref", Type: scene.TypeUntyped, Path: "/Ref",
			Badges: []Badge{BadgeReference, BadgePayload},
			Children: []Node{
				{Name: "Native", Type: scene.TypeXform, Path: "/Ref/Native"},
				{Name: "C", Type: scene.TypeCube, Path: "/Ref/C", Badges: []Badge{BadgeResolved}},
				{
					Name: "./gone.usda", Type: scene.TypeReference, Path: "/Ref/@./gone.usda@",
					Badges: []Badge{BadgeBroken, BadgeReference}, Reason: "missing_file",
				},
				{
					Name: "./main.usda", Type: scene.TypeReference, Path: "/Ref/@./main.usda@",
					Badges: []Badge{BadgeBroken, BadgePayload}, Reason: "circular_reference",
				},
			},
		},
	}
	if diff := cmp.Diff(want, nodes); diff != "" {
		t.Errorf("outline mismatch (-want +got):\n%s", diff)
	}
	if got := Count(nodes); got != 6 {
		t.Errorf("expected 6 nodes, got %d", got)
	}
}

func TestBuildEmpty(t *testing.T) {
	if nodes := Build(nil); len(nodes) != 0 {
		t.Errorf("expected no nodes, got %v", nodes)
	}
}

func TestHasBadge(t *testing.T) {
	n := Node{Badges: []Badge{BadgePayload}}
	if !n.HasBadge(BadgePayload) || n.HasBadge(BadgeReference) {
		t.Errorf("unexpected badges %v", n.Badges)
	}
}

func plainStyles() Styles {
	s := lipgloss.NewStyle()
	return Styles{Name: s, Type: s, Badge: s, Broken: s, Enumerator: s}
}

func TestRender(t *testing.T) {
	out := Render(Build(resolved(t)), plainStyles())

	for _, want := range []string{
		"S (Sphere) [anim]",
		"Ref (untyped) [ref, payload]",
		"Native (Xform)",
		"C (Cube) [composed]",
		"@./gone.usda@ (Reference) [broken, ref] missing_file",
		"@./main.usda@ (Reference) [broken, payload] circular_reference",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
	// Children are indented below their parent.
	lines := strings.Split(out, "\n")
	var refLine, nativeLine string
	for _, l := range lines {
		switch {
		case strings.Contains(l, "Ref (untyped)"):
			refLine = l
		case strings.Contains(l, "Native (Xform)"):
			nativeLine = l
		}
	}
	if strings.Index(nativeLine, "Native") <= strings.Index(refLine, "Ref") {
		t.Errorf("expected Native nested under Ref:\n%s", out)
	}
}
