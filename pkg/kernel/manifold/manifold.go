//go:build manifold

// Package manifold provides a CGo geometry kernel backed by the Manifold
// library (https://github.com/elalish/manifold).
//
// This package requires the Manifold C library (manifoldc) to be installed.
// Build with: go build -tags=manifold
package manifold

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmanifoldc

#include <stdlib.h>
#include <manifold/manifoldc.h>
*/
import "C"

import (
	"fmt"
	"math"
	"runtime"
	"unsafe"

	"github.com/chazu/usdlive/pkg/kernel"
)

var _ kernel.Kernel = (*ManifoldKernel)(nil)
var _ kernel.Solid = (*manifoldSolid)(nil)

// manifoldSolid owns a C ManifoldManifold pointer.
type manifoldSolid struct {
	ptr *C.ManifoldManifold
}

// BoundingBox returns the axis-aligned bounding box of the solid.
func (s *manifoldSolid) BoundingBox() (min, max [3]float64) {
	alloc := C.manifold_alloc_box()
	bbox := C.manifold_bounding_box(alloc, s.ptr)
	defer C.manifold_delete_box(bbox)

	min[0] = float64(C.manifold_box_min_x(bbox))
	min[1] = float64(C.manifold_box_min_y(bbox))
	min[2] = float64(C.manifold_box_min_z(bbox))
	max[0] = float64(C.manifold_box_max_x(bbox))
	max[1] = float64(C.manifold_box_max_y(bbox))
	max[2] = float64(C.manifold_box_max_z(bbox))
	return min, max
}

// newSolid wraps ptr and frees it when the Go value is collected.
func newSolid(ptr *C.ManifoldManifold) *manifoldSolid {
	s := &manifoldSolid{ptr: ptr}
	runtime.SetFinalizer(s, func(s *manifoldSolid) {
		if s.ptr != nil {
			C.manifold_delete_manifold(s.ptr)
			s.ptr = nil
		}
	})
	return s
}

func unwrap(s kernel.Solid) *C.ManifoldManifold {
	return s.(*manifoldSolid).ptr
}

// ManifoldKernel implements kernel.Kernel using the Manifold C library.
type ManifoldKernel struct {
	segments int
}

// New returns a ManifoldKernel.
func New(opts ...Option) (kernel.Kernel, error) {
	s := newSettings(opts)
	return &ManifoldKernel{segments: s.segments}, nil
}

func (k *ManifoldKernel) Sphere(radius float64) kernel.Solid {
	alloc := C.manifold_alloc_manifold()
	return newSolid(C.manifold_sphere(alloc, C.double(radius), C.int(k.segments)))
}

// Box creates an axis-aligned box centered at the origin.
func (k *ManifoldKernel) Box(x, y, z float64) kernel.Solid {
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_cube(alloc,
		C.double(x), C.double(y), C.double(z),
		C.int(1), // center
	)
	return newSolid(ptr)
}

// Cylinder creates a cylinder along Z centered at the origin.
func (k *ManifoldKernel) Cylinder(height, radius float64) kernel.Solid {
	return k.frustum(height, radius, radius)
}

// Cone creates a cone along Z centered at the origin with its apex at +Z.
func (k *ManifoldKernel) Cone(height, radius float64) kernel.Solid {
	return k.frustum(height, radius, 0)
}

func (k *ManifoldKernel) frustum(height, low, high float64) kernel.Solid {
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_cylinder(alloc,
		C.double(height),
		C.double(low),
		C.double(high),
		C.int(k.segments),
		C.int(1), // center
	)
	return newSolid(ptr)
}

func (k *ManifoldKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	alloc := C.manifold_alloc_manifold()
	return newSolid(C.manifold_translate(alloc, unwrap(s), C.double(x), C.double(y), C.double(z)))
}

// Rotate takes radians. Manifold rotates about X, then Y, then Z in degrees.
func (k *ManifoldKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	deg := 180 / math.Pi
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_rotate(alloc, unwrap(s),
		C.double(x*deg), C.double(y*deg), C.double(z*deg),
	)
	return newSolid(ptr)
}

func (k *ManifoldKernel) Scale(s kernel.Solid, x, y, z float64) kernel.Solid {
	alloc := C.manifold_alloc_manifold()
	return newSolid(C.manifold_scale(alloc, unwrap(s), C.double(x), C.double(y), C.double(z)))
}

// ToMesh extracts a triangle mesh from the solid's MeshGL. Positions and
// optional normals are interleaved there; they are split into the flat
// kernel.Mesh layout here.
func (k *ManifoldKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	meshAlloc := C.manifold_alloc_meshgl()
	meshGL := C.manifold_get_meshgl(meshAlloc, unwrap(s))
	defer C.manifold_delete_meshgl(meshGL)

	numVert := int(C.manifold_meshgl_num_vert(meshGL))
	numTri := int(C.manifold_meshgl_num_tri(meshGL))
	if numVert == 0 || numTri == 0 {
		return &kernel.Mesh{}, nil
	}

	// The first three properties are the position, normals follow when
	// present.
	numProp := int(C.manifold_meshgl_num_prop(meshGL))
	propData := make([]float32, numVert*numProp)
	C.manifold_meshgl_vert_properties(
		(*C.float)(unsafe.Pointer(&propData[0])),
		meshGL,
	)

	indices := make([]uint32, numTri*3)
	C.manifold_meshgl_tri_verts(
		(*C.uint32_t)(unsafe.Pointer(&indices[0])),
		meshGL,
	)

	vertices := make([]float32, numVert*3)
	hasNormals := numProp >= 6
	var normals []float32
	if hasNormals {
		normals = make([]float32, numVert*3)
	}
	for i := 0; i < numVert; i++ {
		base := i * numProp
		copy(vertices[i*3:i*3+3], propData[base:base+3])
		if hasNormals {
			copy(normals[i*3:i*3+3], propData[base+3:base+6])
		}
	}
	if !hasNormals {
		normals = kernel.VertexNormals(vertices, indices)
	}

	mesh := &kernel.Mesh{Vertices: vertices, Normals: normals, Indices: indices}
	if mesh.VertexCount() != numVert {
		return nil, fmt.Errorf("manifold: vertex count mismatch: got %d, expected %d",
			mesh.VertexCount(), numVert)
	}
	return mesh, nil
}
