package scene

import (
	"fmt"

	"github.com/jinzhu/copier"
)

// Clone returns a structurally independent deep copy of the prim and its
// subtree, including resolved children. No node, slice, map or pointer in
// the copy is shared with the original.
func (p *Prim) Clone() *Prim {
	if p == nil {
		return nil
	}
	out := &Prim{}
	if err := copier.CopyWithOption(out, p, copier.Option{DeepCopy: true}); err != nil {
		panic(fmt.Sprintf("scene: clone %q: %v", p.Name, err))
	}
	return out
}

// CloneAll deep-copies a forest.
func CloneAll(prims []*Prim) []*Prim {
	if prims == nil {
		return nil
	}
	out := make([]*Prim, len(prims))
	for i, p := range prims {
		out[i] = p.Clone()
	}
	return out
}
