package scene

// PrimType enumerates the prim schemas understood by the previewer.
type PrimType string

const (
	TypeUntyped   PrimType = ""
	TypeXform     PrimType = "Xform"
	TypeSphere    PrimType = "Sphere"
	TypeCube      PrimType = "Cube"
	TypeCylinder  PrimType = "Cylinder"
	TypeCone      PrimType = "Cone"
	TypeReference PrimType = "Reference" // synthetic marker for broken arcs in the outline
)

// KnownTypes lists the types a `def` statement may carry.
var KnownTypes = map[PrimType]bool{
	TypeXform:    true,
	TypeSphere:   true,
	TypeCube:     true,
	TypeCylinder: true,
	TypeCone:     true,
}

// IsGeometry reports whether prims of this type produce a mesh.
func (t PrimType) IsGeometry() bool {
	switch t {
	case TypeSphere, TypeCube, TypeCylinder, TypeCone:
		return true
	}
	return false
}

func (t PrimType) String() string {
	if t == TypeUntyped {
		return "untyped"
	}
	return string(t)
}

// ArcKind distinguishes references from payloads. Both compose identically;
// the kind only matters for display.
type ArcKind int

const (
	ArcReference ArcKind = iota
	ArcPayload
)

func (k ArcKind) String() string {
	switch k {
	case ArcReference:
		return "reference"
	case ArcPayload:
		return "payload"
	default:
		return "unknown"
	}
}

// Arc points at another file and optionally a prim inside it.
type Arc struct {
	AssetPath string `json:"assetPath"`
	PrimPath  string `json:"primPath,omitempty"`
}

// String renders the arc in authored form: @asset@</Prim>.
func (a Arc) String() string {
	s := "@" + a.AssetPath + "@"
	if a.PrimPath != "" {
		s += "<" + a.PrimPath + ">"
	}
	return s
}

// ArcEntry is an arc tagged with the list it was authored in.
type ArcEntry struct {
	Arc  Arc     `json:"arc"`
	Kind ArcKind `json:"kind"`
}

// BrokenArc records an arc the composer could not splice in.
type BrokenArc struct {
	ArcEntry
	Reason string `json:"reason"` // composition error kind, e.g. "missing_file"
}

// Prim is a node in the scene graph.
type Prim struct {
	Type   PrimType `json:"type"`
	Name   string   `json:"name"`
	Active *bool    `json:"active,omitempty"` // nil means active

	Radius Attribute[float64] `json:"radius"`
	Size   Attribute[float64] `json:"size"`
	Height Attribute[float64] `json:"height"`

	Color    Attribute[Vec3] `json:"color"`
	Position Attribute[Vec3] `json:"position"`
	Rotation Attribute[Vec3] `json:"rotation"` // radians
	Scale    Attribute[Vec3] `json:"scale"`

	Children   []*Prim `json:"children,omitempty"`
	References []Arc   `json:"references,omitempty"`
	Payloads   []Arc   `json:"payloads,omitempty"`

	// Populated only by the composer.
	ResolvedChildren []*Prim     `json:"resolvedChildren,omitempty"`
	BrokenArcs       []BrokenArc `json:"brokenArcs,omitempty"`
}

// NewPrim returns a prim with the given type and name.
func NewPrim(t PrimType, name string) *Prim {
	return &Prim{Type: t, Name: name}
}

// IsActive reports whether the prim takes part in the composed result.
// An absent active flag means active.
func (p *Prim) IsActive() bool {
	return p.Active == nil || *p.Active
}

// SetActive sets an explicit active flag.
func (p *Prim) SetActive(active bool) {
	p.Active = &active
}

// AllChildren returns native children followed by resolved children.
func (p *Prim) AllChildren() []*Prim {
	if len(p.ResolvedChildren) == 0 {
		return p.Children
	}
	out := make([]*Prim, 0, len(p.Children)+len(p.ResolvedChildren))
	out = append(out, p.Children...)
	return append(out, p.ResolvedChildren...)
}

// AddChild appends a native child.
func (p *Prim) AddChild(c *Prim) {
	p.Children = append(p.Children, c)
}

// Arcs returns references then payloads, each tagged with its kind.
func (p *Prim) Arcs() []ArcEntry {
	arcs := make([]ArcEntry, 0, len(p.References)+len(p.Payloads))
	for _, a := range p.References {
		arcs = append(arcs, ArcEntry{Arc: a, Kind: ArcReference})
	}
	for _, a := range p.Payloads {
		arcs = append(arcs, ArcEntry{Arc: a, Kind: ArcPayload})
	}
	return arcs
}
