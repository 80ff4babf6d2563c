// Package backend picks a geometry kernel by name.
package backend

import (
	"fmt"

	"github.com/chazu/usdlive/pkg/kernel"
	"github.com/chazu/usdlive/pkg/kernel/manifold"
	"github.com/chazu/usdlive/pkg/kernel/sdfx"
)

const (
	Sdfx     = "sdfx"
	Manifold = "manifold"
)

// New returns the named kernel. resolution is the marching cubes cell
// count for sdfx and the circular segment count for manifold. An empty
// name selects sdfx.
func New(name string, resolution int) (kernel.Kernel, error) {
	switch name {
	case Sdfx, "":
		return sdfx.New(sdfx.WithMeshCells(resolution)), nil
	case Manifold:
		k, err := manifold.New(manifold.WithSegments(resolution))
		if err != nil {
			return nil, err
		}
		return k, nil
	default:
		return nil, fmt.Errorf("unknown kernel %q", name)
	}
}
