package compose

import "github.com/chazu/usdlive/pkg/scene"

// FilterInactive drops every prim whose active flag is explicitly false,
// together with its subtree, from both native and resolved children. Kept
// prims are shallow copies: attribute storage is shared with the input.
func FilterInactive(prims []*scene.Prim) []*scene.Prim {
	var out []*scene.Prim
	for _, p := range prims {
		if !p.IsActive() {
			continue
		}
		cp := *p
		cp.Children = FilterInactive(p.Children)
		cp.ResolvedChildren = FilterInactive(p.ResolvedChildren)
		out = append(out, &cp)
	}
	return out
}
