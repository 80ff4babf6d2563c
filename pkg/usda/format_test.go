package usda

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/chazu/usdlive/pkg/scene"
)

func sampleForest() []*scene.Prim {
	root := scene.NewPrim(scene.TypeXform, "Root")
	root.Position = scene.Static(scene.Vec3{1, 2, 3})
	root.Rotation = scene.Static(scene.Vec3{0, 1.2, -0.5})
	root.References = []scene.Arc{{AssetPath: "./parts.usda", PrimPath: "/Wheel"}}
	root.Payloads = []scene.Arc{{AssetPath: "a.usda"}, {AssetPath: "b.usda", PrimPath: "/B"}}

	ball := scene.NewPrim(scene.TypeSphere, "Ball")
	ball.Radius = scene.Animated(scene.TimeSamples[float64]{0: 1, 12.5: 2.25, 24: 1})
	ball.Color = scene.Static(scene.Vec3{1, 0.25, 0})
	ball.Scale = scene.Animated(scene.TimeSamples[scene.Vec3]{0: {1, 1, 1}, 10: {2, 2, 2}})
	ball.SetActive(false)
	root.AddChild(ball)
	root.AddChild(scene.NewPrim(scene.TypeCone, "Tip"))

	group := scene.NewPrim(scene.TypeUntyped, "Group")
	cyl := scene.NewPrim(scene.TypeCylinder, "Pipe")
	cyl.Height = scene.Static(1e-3)
	cyl.Radius = scene.Static(0.5)
	group.AddChild(cyl)

	return []*scene.Prim{root, group}
}

func TestFormatRoundTrip(t *testing.T) {
	want := sampleForest()
	text := Format(want)

	got, err := Parse(text)
	if err != nil {
		t.Fatalf("unexpected parse error: %v\n%s", err, text)
	}
	opts := []cmp.Option{cmpopts.EquateEmpty(), cmpopts.EquateApprox(0, 1e-12)}
	if diff := cmp.Diff(want, got, opts...); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s\ntext:\n%s", diff, text)
	}
}

func TestFormatHeaderAndDegrees(t *testing.T) {
	p := scene.NewPrim(scene.TypeCube, "C")
	p.Rotation = scene.Static(scene.Vec3{90, 0, 45}.Radians())
	text := Format([]*scene.Prim{p})

	if !strings.HasPrefix(text, "#usda 1.0\n") {
		t.Errorf("expected header, got %q", text)
	}
	if !strings.Contains(text, "xformOp:rotateXYZ = (90, 0, 45)") {
		t.Errorf("expected rotation in degrees, got:\n%s", text)
	}
}

func TestFormatSamplesSorted(t *testing.T) {
	p := scene.NewPrim(scene.TypeSphere, "S")
	p.Radius = scene.Animated(scene.TimeSamples[float64]{30: 3, 10: 1, 20: 2})
	text := Format([]*scene.Prim{p})

	i10 := strings.Index(text, "10: 1")
	i20 := strings.Index(text, "20: 2")
	i30 := strings.Index(text, "30: 3")
	if i10 < 0 || !(i10 < i20 && i20 < i30) {
		t.Errorf("expected samples in time order, got:\n%s", text)
	}
}

func TestFormatEmpty(t *testing.T) {
	if got := Format(nil); got != "#usda 1.0\n" {
		t.Errorf("expected header only, got %q", got)
	}
}

func TestFlatten(t *testing.T) {
	ref := scene.NewPrim(scene.TypeUntyped, "Ref")
	ref.References = []scene.Arc{{AssetPath: "./cube.usda"}}
	ref.AddChild(scene.NewPrim(scene.TypeSphere, "Native"))
	cube := scene.NewPrim(scene.TypeCube, "C")
	cube.Size = scene.Static(2.0)
	ref.ResolvedChildren = []*scene.Prim{cube}
	ref.BrokenArcs = []scene.BrokenArc{{ArcEntry: scene.ArcEntry{Arc: scene.Arc{AssetPath: "gone.usda"}}, Reason: "missing_file"}}

	flat := Flatten([]*scene.Prim{ref})

	got := flat[0]
	if len(got.References) != 0 || len(got.ResolvedChildren) != 0 || len(got.BrokenArcs) != 0 {
		t.Errorf("expected arcs dropped, got %+v", got)
	}
	var names []string
	for _, c := range got.Children {
		names = append(names, c.Name)
	}
	if diff := cmp.Diff([]string{"Native", "C"}, names); diff != "" {
		t.Errorf("children mismatch (-want +got):\n%s", diff)
	}

	// The input stays untouched.
	if len(ref.Children) != 1 || len(ref.ResolvedChildren) != 1 {
		t.Error("Flatten must not modify its input")
	}

	reparsed, err := Parse(Format(flat))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if n := scene.Count(reparsed); n != 3 {
		t.Errorf("expected 3 prims after flatten round trip, got %d", n)
	}
}
