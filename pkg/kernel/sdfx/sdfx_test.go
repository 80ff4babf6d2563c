package sdfx

import (
	"math"
	"testing"

	"github.com/chazu/usdlive/pkg/kernel"
)

func checkMesh(t *testing.T, k *SdfxKernel, s kernel.Solid) *kernel.Mesh {
	t.Helper()
	mesh, err := k.ToMesh(s)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != mesh.TriangleCount()*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), mesh.TriangleCount()*3)
	}
	return mesh
}

func checkBounds(t *testing.T, s kernel.Solid, wantMin, wantMax [3]float64, tol float64) {
	t.Helper()
	min, max := s.BoundingBox()
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-wantMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected ~%f", i, min[i], wantMin[i])
		}
		if math.Abs(max[i]-wantMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected ~%f", i, max[i], wantMax[i])
		}
	}
}

func TestPrimitivesMesh(t *testing.T) {
	k := New(WithMeshCells(24))
	tests := []struct {
		name  string
		solid kernel.Solid
	}{
		{"sphere", k.Sphere(1)},
		{"box", k.Box(2, 1, 0.5)},
		{"cylinder", k.Cylinder(2, 0.5)},
		{"cone", k.Cone(2, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mesh := checkMesh(t, k, tt.solid)
			t.Logf("%s triangle count: %d", tt.name, mesh.TriangleCount())
		})
	}
}

func TestPrimitivesCentered(t *testing.T) {
	k := New()
	checkBounds(t, k.Box(100, 50, 25), [3]float64{-50, -25, -12.5}, [3]float64{50, 25, 12.5}, 0.01)
	checkBounds(t, k.Sphere(2), [3]float64{-2, -2, -2}, [3]float64{2, 2, 2}, 0.01)
	checkBounds(t, k.Cylinder(4, 1), [3]float64{-1, -1, -2}, [3]float64{1, 1, 2}, 0.01)
	checkBounds(t, k.Cone(4, 1), [3]float64{-1, -1, -2}, [3]float64{1, 1, 2}, 0.01)
}

func TestTranslate(t *testing.T) {
	k := New()
	translated := k.Translate(k.Box(10, 10, 10), 100, 200, 300)
	checkBounds(t, translated, [3]float64{95, 195, 295}, [3]float64{105, 205, 305}, 0.5)
}

func TestRotateRadians(t *testing.T) {
	k := New()
	// A long box along X rotated a quarter turn around Z extends along Y.
	rotated := k.Rotate(k.Box(100, 10, 10), 0, 0, math.Pi/2)
	min, max := rotated.BoundingBox()

	const tol = 1.0
	if x := max[0] - min[0]; math.Abs(x-10) > tol {
		t.Errorf("rotated X extent = %f, expected ~10", x)
	}
	if y := max[1] - min[1]; math.Abs(y-100) > tol {
		t.Errorf("rotated Y extent = %f, expected ~100", y)
	}
}

func TestScale(t *testing.T) {
	k := New()
	checkBounds(t, k.Scale(k.Box(2, 2, 2), 3, 1, 0.5), [3]float64{-3, -1, -0.5}, [3]float64{3, 1, 0.5}, 0.01)
	checkBounds(t, k.Scale(k.Sphere(1), 2, 2, 2), [3]float64{-2, -2, -2}, [3]float64{2, 2, 2}, 0.01)
}

func TestMeshFollowsTransform(t *testing.T) {
	k := New(WithMeshCells(16))
	mesh := checkMesh(t, k, k.Translate(k.Sphere(1), 10, 0, 0))
	min, max, _ := mesh.Bounds()
	if min[0] < 8.5 || max[0] > 11.5 {
		t.Errorf("expected mesh around x=10, got x in [%f, %f]", min[0], max[0])
	}
}

func TestMeshCellsOption(t *testing.T) {
	if got := New().MeshCells(); got != DefaultMeshCells {
		t.Errorf("default cells = %d, want %d", got, DefaultMeshCells)
	}
	if got := New(WithMeshCells(2)).MeshCells(); got != 8 {
		t.Errorf("cells = %d, want clamped to 8", got)
	}
	coarse := checkMesh(t, New(WithMeshCells(8)), New().Sphere(1))
	fine := checkMesh(t, New(WithMeshCells(32)), New().Sphere(1))
	if fine.TriangleCount() <= coarse.TriangleCount() {
		t.Errorf("expected more triangles at higher resolution: %d <= %d", fine.TriangleCount(), coarse.TriangleCount())
	}
}

func TestInvalidDimensionsPanic(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for a zero radius")
		}
	}()
	New().Sphere(0)
}
