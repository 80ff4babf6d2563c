package scene

import (
	"math"
	"strings"
)

// WalkFunc is called for every prim in pre-order with its slash-joined path.
// Returning false skips the prim's subtree.
type WalkFunc func(path string, p *Prim) bool

// Walk visits a forest in pre-order, native children before resolved ones.
func Walk(prims []*Prim, fn WalkFunc) {
	for _, p := range prims {
		walk("", p, fn)
	}
}

func walk(parent string, p *Prim, fn WalkFunc) {
	if p == nil {
		return
	}
	path := JoinPath(parent, p.Name)
	if !fn(path, p) {
		return
	}
	for _, c := range p.AllChildren() {
		walk(path, c, fn)
	}
}

// JoinPath appends a prim name to a prim path.
func JoinPath(parent, name string) string {
	return parent + "/" + name
}

// SplitPath splits a prim path like /A/B into its non-empty segments.
func SplitPath(primPath string) []string {
	var segs []string
	for _, s := range strings.Split(primPath, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// Count returns the number of prims in a forest, resolved children included.
func Count(prims []*Prim) int {
	n := 0
	Walk(prims, func(string, *Prim) bool {
		n++
		return true
	})
	return n
}

// TimeRange returns the earliest and latest authored sample time across a
// forest. ok is false when nothing is animated.
func TimeRange(prims []*Prim) (start, end float64, ok bool) {
	start, end = math.Inf(1), math.Inf(-1)
	see := func(times []float64) {
		if len(times) == 0 {
			return
		}
		ok = true
		start = math.Min(start, times[0])
		end = math.Max(end, times[len(times)-1])
	}
	Walk(prims, func(_ string, p *Prim) bool {
		see(p.Radius.Samples.Times())
		see(p.Size.Samples.Times())
		see(p.Height.Samples.Times())
		see(p.Position.Samples.Times())
		see(p.Rotation.Samples.Times())
		see(p.Scale.Samples.Times())
		return true
	})
	if !ok {
		return 0, 0, false
	}
	return start, end, true
}
