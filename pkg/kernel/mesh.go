package kernel

import "math"

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32  `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32  `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32   `json:"indices"`  // [i0,i1,i2, ...] triangles
	PartName string     `json:"partName"` // prim name
	PrimPath string     `json:"primPath"` // e.g. /Root/Ref/Cube
	Color    [3]float32 `json:"color"`    // display color, linear RGB
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Bounds returns the axis-aligned bounds of the vertices. ok is false for
// an empty mesh.
func (m *Mesh) Bounds() (min, max [3]float32, ok bool) {
	if m.IsEmpty() {
		return min, max, false
	}
	copy(min[:], m.Vertices[:3])
	copy(max[:], m.Vertices[:3])
	for i := 3; i+2 < len(m.Vertices); i += 3 {
		for j := 0; j < 3; j++ {
			v := m.Vertices[i+j]
			if v < min[j] {
				min[j] = v
			}
			if v > max[j] {
				max[j] = v
			}
		}
	}
	return min, max, true
}

// VertexNormals computes smooth per-vertex normals by summing the
// unnormalized face normals of every triangle that touches each vertex.
// Vertices no triangle touches keep a zero normal.
func VertexNormals(vertices []float32, indices []uint32) []float32 {
	normals := make([]float32, len(vertices))
	for t := 0; t+2 < len(indices); t += 3 {
		i0, i1, i2 := indices[t], indices[t+1], indices[t+2]

		ax, ay, az := float64(vertices[i0*3]), float64(vertices[i0*3+1]), float64(vertices[i0*3+2])
		bx, by, bz := float64(vertices[i1*3]), float64(vertices[i1*3+1]), float64(vertices[i1*3+2])
		cx, cy, cz := float64(vertices[i2*3]), float64(vertices[i2*3+1]), float64(vertices[i2*3+2])

		e1x, e1y, e1z := bx-ax, by-ay, bz-az
		e2x, e2y, e2z := cx-ax, cy-ay, cz-az

		nx := float32(e1y*e2z - e1z*e2y)
		ny := float32(e1z*e2x - e1x*e2z)
		nz := float32(e1x*e2y - e1y*e2x)

		for _, idx := range [3]uint32{i0, i1, i2} {
			normals[idx*3+0] += nx
			normals[idx*3+1] += ny
			normals[idx*3+2] += nz
		}
	}

	for i := 0; i+2 < len(normals); i += 3 {
		nx, ny, nz := float64(normals[i]), float64(normals[i+1]), float64(normals[i+2])
		length := math.Sqrt(nx*nx + ny*ny + nz*nz)
		if length > 1e-12 {
			normals[i] = float32(nx / length)
			normals[i+1] = float32(ny / length)
			normals[i+2] = float32(nz / length)
		}
	}
	return normals
}
