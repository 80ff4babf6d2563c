// Package outline builds the hierarchy view of a composed stage: one node
// per prim with badges for composition arcs and animation, plus synthetic
// Reference nodes standing in for arcs that failed to resolve.
package outline

import (
	"github.com/chazu/usdlive/pkg/scene"
)

// Badge marks a property of a prim worth showing next to its name.
type Badge string

const (
	BadgeReference Badge = "ref"
	BadgePayload   Badge = "payload"
	BadgeAnimated  Badge = "anim"
	BadgeResolved  Badge = "composed" // spliced in from another file
	BadgeBroken    Badge = "broken"
)

// Node is one row of the outline.
type Node struct {
	Name     string         `json:"name"`
	Type     scene.PrimType `json:"type"`
	Path     string         `json:"path"`
	Badges   []Badge        `json:"badges,omitempty"`
	Reason   string         `json:"reason,omitempty"` // why a synthetic Reference node is broken
	Children []Node         `json:"children,omitempty"`
}

// HasBadge reports whether the node carries b.
func (n Node) HasBadge(b Badge) bool {
	for _, have := range n.Badges {
		if have == b {
			return true
		}
	}
	return false
}

// Build turns a resolved forest into outline nodes. Native children come
// first, then resolved children, then one Reference node per broken arc.
func Build(prims []*scene.Prim) []Node {
	return build("", prims, false)
}

func build(parent string, prims []*scene.Prim, resolved bool) []Node {
	if len(prims) == 0 {
		return nil
	}
	out := make([]Node, 0, len(prims))
	for _, p := range prims {
		out = append(out, buildNode(parent, p, resolved))
	}
	return out
}

func buildNode(parent string, p *scene.Prim, resolved bool) Node {
	path := scene.JoinPath(parent, p.Name)
	n := Node{Name: p.Name, Type: p.Type, Path: path}
	if len(p.References) > 0 {
		n.Badges = append(n.Badges, BadgeReference)
	}
	if len(p.Payloads) > 0 {
		n.Badges = append(n.Badges, BadgePayload)
	}
	if isAnimated(p) {
		n.Badges = append(n.Badges, BadgeAnimated)
	}
	if resolved {
		n.Badges = append(n.Badges, BadgeResolved)
	}

	n.Children = append(n.Children, build(path, p.Children, resolved)...)
	n.Children = append(n.Children, build(path, p.ResolvedChildren, true)...)
	for _, b := range p.BrokenArcs {
		n.Children = append(n.Children, brokenNode(path, b))
	}
	return n
}

func brokenNode(parent string, b scene.BrokenArc) Node {
	badges := []Badge{BadgeBroken, BadgeReference}
	if b.Kind == scene.ArcPayload {
		badges[1] = BadgePayload
	}
	return Node{
		Name:   b.Arc.AssetPath,
		Type:   scene.TypeReference,
		Path:   parent + "/" + b.Arc.String(),
		Badges: badges,
		Reason: b.Reason,
	}
}

func isAnimated(p *scene.Prim) bool {
	return p.Radius.IsAnimated() || p.Size.IsAnimated() || p.Height.IsAnimated() ||
		p.Position.IsAnimated() || p.Rotation.IsAnimated() || p.Scale.IsAnimated()
}

// Count returns the number of nodes, synthetic ones included.
func Count(nodes []Node) int {
	n := len(nodes)
	for _, c := range nodes {
		n += Count(c.Children)
	}
	return n
}
