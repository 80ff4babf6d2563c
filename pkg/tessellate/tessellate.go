// Package tessellate walks a resolved prim tree at one time code and
// produces triangle meshes using a geometry kernel. One mesh is produced
// per geometric prim.
package tessellate

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/usdlive/pkg/kernel"
	"github.com/chazu/usdlive/pkg/scene"
)

// frame is one prim's local transform.
type frame struct {
	translate scene.Vec3
	rotate    scene.Vec3 // radians
	scale     scene.Vec3
}

func (f frame) isIdentity() bool {
	return f.translate == scene.Vec3{} && f.rotate == scene.Vec3{} && f.scale == scene.DefaultScale
}

// transformStack accumulates local transforms during traversal, parent
// frames first.
type transformStack struct {
	frames []frame
}

func (ts *transformStack) push(f frame) {
	ts.frames = append(ts.frames, f)
}

func (ts *transformStack) pop() {
	if len(ts.frames) > 0 {
		ts.frames = ts.frames[:len(ts.frames)-1]
	}
}

// apply places a solid in world space: each frame scales, then rotates,
// then translates, from the innermost prim out to the root.
func (ts *transformStack) apply(k kernel.Kernel, s kernel.Solid) kernel.Solid {
	for i := len(ts.frames) - 1; i >= 0; i-- {
		f := ts.frames[i]
		if f.isIdentity() {
			continue
		}
		if f.scale != scene.DefaultScale {
			s = k.Scale(s, f.scale[0], f.scale[1], f.scale[2])
		}
		if f.rotate != (scene.Vec3{}) {
			s = k.Rotate(s, f.rotate[0], f.rotate[1], f.rotate[2])
		}
		if f.translate != (scene.Vec3{}) {
			s = k.Translate(s, f.translate[0], f.translate[1], f.translate[2])
		}
	}
	return s
}

// degenerate finds the first transform component that would collapse or
// corrupt a solid: a zero scale or any non-finite value.
func (ts *transformStack) degenerate() (attr string, v float64, ok bool) {
	for _, f := range ts.frames {
		for i := 0; i < 3; i++ {
			switch {
			case !finite(f.translate[i]):
				return "translate", f.translate[i], true
			case !finite(f.rotate[i]):
				return "rotate", f.rotate[i], true
			case !finite(f.scale[i]) || f.scale[i] == 0:
				return "scale", f.scale[i], true
			}
		}
	}
	return "", 0, false
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// DimensionError reports a prim whose size attributes cannot produce a
// solid, such as a zero radius or a NaN from a malformed literal.
type DimensionError struct {
	PrimPath string
	Attr     string
	Value    float64
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: invalid %s %v", e.PrimPath, e.Attr, e.Value)
}

// Tessellate evaluates every prim at time t and meshes the geometric ones.
// Native children are visited before resolved children. Prims with
// unusable dimensions are skipped and reported together in the returned
// error, alongside the meshes that did succeed. The tree is never mutated.
func Tessellate(prims []*scene.Prim, t float64, k kernel.Kernel) ([]*kernel.Mesh, error) {
	w := &walker{k: k, t: t}
	for _, p := range prims {
		if err := w.walk("", p); err != nil {
			return nil, err
		}
	}
	return w.meshes, errors.Join(w.skipped...)
}

type walker struct {
	k       kernel.Kernel
	t       float64
	ts      transformStack
	meshes  []*kernel.Mesh
	skipped []error
}

func (w *walker) walk(parent string, p *scene.Prim) error {
	if p == nil || !p.IsActive() {
		return nil
	}
	path := scene.JoinPath(parent, p.Name)
	snap := p.Evaluate(w.t)

	w.ts.push(frame{translate: snap.Position, rotate: snap.Rotation, scale: snap.Scale})
	defer w.ts.pop()

	if p.Type.IsGeometry() {
		if err := w.primitive(path, snap); err != nil {
			return err
		}
	}
	for _, c := range p.AllChildren() {
		if err := w.walk(path, c); err != nil {
			return err
		}
	}
	return nil
}

// primitive creates geometry for a geometric prim.
func (w *walker) primitive(path string, snap scene.Snapshot) error {
	check := func(attr string, v float64) bool {
		if v > 0 && !math.IsInf(v, 0) {
			return true
		}
		w.skipped = append(w.skipped, &DimensionError{PrimPath: path, Attr: attr, Value: v})
		return false
	}

	var solid kernel.Solid
	switch snap.Type {
	case scene.TypeSphere:
		if !check("radius", snap.Radius) {
			return nil
		}
		solid = w.k.Sphere(snap.Radius)
	case scene.TypeCube:
		if !check("size", snap.Size) {
			return nil
		}
		solid = w.k.Box(snap.Size, snap.Size, snap.Size)
	case scene.TypeCylinder:
		if !check("radius", snap.Radius) || !check("height", snap.Height) {
			return nil
		}
		solid = w.k.Cylinder(snap.Height, snap.Radius)
	case scene.TypeCone:
		if !check("radius", snap.Radius) || !check("height", snap.Height) {
			return nil
		}
		solid = w.k.Cone(snap.Height, snap.Radius)
	default:
		return nil
	}
	if attr, v, ok := w.ts.degenerate(); ok {
		w.skipped = append(w.skipped, &DimensionError{PrimPath: path, Attr: attr, Value: v})
		return nil
	}

	mesh, err := w.k.ToMesh(w.ts.apply(w.k, solid))
	if err != nil {
		return fmt.Errorf("tessellate: ToMesh failed for %s: %w", path, err)
	}
	mesh.PartName = snap.Name
	mesh.PrimPath = path
	mesh.Color = [3]float32{float32(snap.Color[0]), float32(snap.Color[1]), float32(snap.Color[2])}
	w.meshes = append(w.meshes, mesh)
	return nil
}
