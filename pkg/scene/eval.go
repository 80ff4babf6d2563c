package scene

// Schema fallbacks used when an attribute is not authored.
const (
	DefaultRadius = 1.0
	DefaultSize   = 2.0
	DefaultHeight = 2.0
)

var (
	DefaultColor = Vec3{0.5, 0.5, 0.5}
	DefaultScale = Vec3{1, 1, 1}
)

// Snapshot is a prim's attribute set resolved at one time code.
type Snapshot struct {
	Type     PrimType `json:"type"`
	Name     string   `json:"name"`
	Radius   float64  `json:"radius"`
	Size     float64  `json:"size"`
	Height   float64  `json:"height"`
	Color    Vec3     `json:"color"`
	Position Vec3     `json:"position"`
	Rotation Vec3     `json:"rotation"` // radians
	Scale    Vec3     `json:"scale"`
}

// Evaluate resolves every attribute of the prim at time t, filling schema
// defaults for unauthored ones.
func (p *Prim) Evaluate(t float64) Snapshot {
	return Snapshot{
		Type:     p.Type,
		Name:     p.Name,
		Radius:   p.Radius.Or(t, DefaultRadius),
		Size:     p.Size.Or(t, DefaultSize),
		Height:   p.Height.Or(t, DefaultHeight),
		Color:    p.Color.Or(t, DefaultColor),
		Position: p.Position.Or(t, Vec3{}),
		Rotation: p.Rotation.Or(t, Vec3{}),
		Scale:    p.Scale.Or(t, DefaultScale),
	}
}
