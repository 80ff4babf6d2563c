// Package kernel defines the geometry backend the previewer meshes prims
// with. Implementations build solids for the supported prim shapes, place
// them with affine transforms and tessellate them into triangle meshes.
package kernel

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel builds and meshes solids. Every primitive is centered on the
// origin; cylinders and cones run along Z with the cone apex at +Z.
type Kernel interface {
	// Primitives
	Sphere(radius float64) Solid
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64) Solid
	Cone(height, radius float64) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // radians, applied X then Y then Z
	Scale(s Solid, x, y, z float64) Solid

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
