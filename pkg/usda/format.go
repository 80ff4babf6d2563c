package usda

import (
	"strconv"
	"strings"

	"github.com/chazu/usdlive/pkg/scene"
)

const header = "#usda 1.0\n"

// Format writes a prim forest as text that Parse reads back into an
// equivalent forest. Rotations are written in degrees and time samples in
// ascending time order. Resolved children are not written; use Flatten
// first to keep them.
func Format(prims []*scene.Prim) string {
	var b strings.Builder
	b.WriteString(header)
	for _, p := range prims {
		b.WriteByte('\n')
		writePrim(&b, p, 0)
	}
	return b.String()
}

// Flatten returns a copy of the forest with every prim's resolved children
// moved into its native children and its arcs dropped, so a composed stage
// can be saved as a single file.
func Flatten(prims []*scene.Prim) []*scene.Prim {
	out := make([]*scene.Prim, 0, len(prims))
	for _, p := range prims {
		out = append(out, flatten(p.Clone()))
	}
	return out
}

func flatten(p *scene.Prim) *scene.Prim {
	p.Children = append(p.Children, p.ResolvedChildren...)
	p.ResolvedChildren = nil
	p.References = nil
	p.Payloads = nil
	p.BrokenArcs = nil
	for _, c := range p.Children {
		flatten(c)
	}
	return p
}

func writePrim(b *strings.Builder, p *scene.Prim, depth int) {
	indent := strings.Repeat("    ", depth)
	b.WriteString(indent)
	b.WriteString("def ")
	if p.Type != scene.TypeUntyped {
		b.WriteString(string(p.Type))
		b.WriteByte(' ')
	}
	b.WriteString(strconv.Quote(p.Name))
	writeMetadata(b, p, indent)
	b.WriteString("\n" + indent + "{\n")

	inner := indent + "    "
	writeScalar(b, inner, "radius", p.Radius)
	writeScalar(b, inner, "size", p.Size)
	writeScalar(b, inner, "height", p.Height)
	writeVector(b, inner, "double3", "xformOp:translate", p.Position, false)
	writeVector(b, inner, "float3", "xformOp:rotateXYZ", p.Rotation, true)
	writeVector(b, inner, "float3", "xformOp:scale", p.Scale, false)
	if p.Color.Value != nil {
		b.WriteString(inner + "color3f[] primvars:displayColor = [" + formatVec(*p.Color.Value) + "]\n")
	}

	for i, c := range p.Children {
		if i > 0 || hasAttributes(p) {
			b.WriteByte('\n')
		}
		writePrim(b, c, depth+1)
	}
	b.WriteString(indent + "}\n")
}

func writeMetadata(b *strings.Builder, p *scene.Prim, indent string) {
	var fields []string
	if p.Active != nil {
		fields = append(fields, "active = "+strconv.FormatBool(*p.Active))
	}
	if len(p.References) > 0 {
		fields = append(fields, "references = "+formatArcs(p.References))
	}
	if len(p.Payloads) > 0 {
		fields = append(fields, "payload = "+formatArcs(p.Payloads))
	}
	if len(fields) == 0 {
		return
	}
	b.WriteString(" (\n")
	for _, f := range fields {
		b.WriteString(indent + "    " + f + "\n")
	}
	b.WriteString(indent + ")")
}

func formatArcs(arcs []scene.Arc) string {
	if len(arcs) == 1 {
		return arcs[0].String()
	}
	parts := make([]string, len(arcs))
	for i, a := range arcs {
		parts[i] = a.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func hasAttributes(p *scene.Prim) bool {
	return p.Radius.IsSet() || p.Size.IsSet() || p.Height.IsSet() ||
		p.Position.IsSet() || p.Rotation.IsSet() || p.Scale.IsSet() ||
		p.Color.Value != nil
}

func writeScalar(b *strings.Builder, indent, name string, a scene.Attribute[float64]) {
	if a.Value != nil {
		b.WriteString(indent + "double " + name + " = " + formatFloat(*a.Value) + "\n")
	}
	if len(a.Samples) == 0 {
		return
	}
	b.WriteString(indent + "double " + name + ".timeSamples = {\n")
	for _, t := range a.Samples.Times() {
		b.WriteString(indent + "    " + formatFloat(t) + ": " + formatFloat(a.Samples[t]) + ",\n")
	}
	b.WriteString(indent + "}\n")
}

func writeVector(b *strings.Builder, indent, typeName, name string, a scene.Attribute[scene.Vec3], degrees bool) {
	conv := func(v scene.Vec3) scene.Vec3 {
		if degrees {
			return v.Degrees()
		}
		return v
	}
	if a.Value != nil {
		b.WriteString(indent + typeName + " " + name + " = " + formatVec(conv(*a.Value)) + "\n")
	}
	if len(a.Samples) == 0 {
		return
	}
	b.WriteString(indent + typeName + " " + name + ".timeSamples = {\n")
	for _, t := range a.Samples.Times() {
		b.WriteString(indent + "    " + formatFloat(t) + ": " + formatVec(conv(a.Samples[t])) + ",\n")
	}
	b.WriteString(indent + "}\n")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatVec(v scene.Vec3) string {
	return "(" + formatFloat(v[0]) + ", " + formatFloat(v[1]) + ", " + formatFloat(v[2]) + ")"
}
