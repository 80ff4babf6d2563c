//go:build !manifold

// Package manifold provides a CGo geometry kernel backed by the Manifold
// library. Without the "manifold" build tag this stub is compiled instead
// and New always fails.
//
// Build with: go build -tags=manifold
package manifold

import (
	"errors"

	"github.com/chazu/usdlive/pkg/kernel"
)

// ErrUnavailable is returned by New when the binary was built without the
// manifold tag.
var ErrUnavailable = errors.New("manifold kernel not available: build with -tags=manifold")

// New returns ErrUnavailable.
func New(opts ...Option) (kernel.Kernel, error) {
	_ = newSettings(opts)
	return nil, ErrUnavailable
}
