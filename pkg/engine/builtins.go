package engine

import (
	"fmt"
	"regexp"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/usdlive/pkg/scene"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites script source before passing it to zygomys.
// It performs three transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: wheel-hub -> wheel_hub
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
//  3. Line comments: ; and ;; become //, which is what zygomys reads.
//
// All transformations respect string literal boundaries.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpPrim wraps a prim created by one of the prim builtins.
type sexpPrim struct {
	prim *scene.Prim
}

func (p *sexpPrim) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %q)", strings.ToLower(p.prim.Type.String()), p.prim.Name)
}
func (p *sexpPrim) Type() *zygo.RegisteredType { return nil }

// sexpArc wraps a reference or payload waiting to be attached to a prim.
type sexpArc struct {
	entry scene.ArcEntry
}

func (a *sexpArc) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %s)", a.entry.Kind, a.entry.Arc)
}
func (a *sexpArc) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a scene.Vec3.
type sexpVec3 struct {
	vec scene.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpKeys wraps time samples built by `keys`. Exactly one of the two maps
// is set, depending on whether the sampled values are numbers or vectors.
type sexpKeys struct {
	scalars scene.TimeSamples[float64]
	vectors scene.TimeSamples[scene.Vec3]
}

func (k *sexpKeys) SexpString(ps *zygo.PrintState) string {
	if k.vectors != nil {
		return fmt.Sprintf("(keys vec3 x%d)", len(k.vectors))
	}
	return fmt.Sprintf("(keys x%d)", len(k.scalars))
}
func (k *sexpKeys) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Trailing keyword with no value.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// checkKeywords rejects keywords outside allowed.
func checkKeywords(fn string, pa kwArgs, allowed map[string]bool) error {
	for k := range pa.kw {
		if !allowed[k] {
			return fmt.Errorf("%s: unknown keyword :%s", fn, k)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toBool extracts a boolean from a Sexp.
func toBool(s zygo.Sexp) (bool, error) {
	if b, ok := s.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 accepts a (vec3 ...) value or a three-element list or array.
func toVec3(s zygo.Sexp) (scene.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	items, err := sexpListToSlice(s)
	if err != nil || len(items) != 3 {
		return scene.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
	}
	var out scene.Vec3
	for i, it := range items {
		f, err := toFloat64(it)
		if err != nil {
			return scene.Vec3{}, err
		}
		out[i] = f
	}
	return out, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// scalarAttr turns a number or scalar keys into an attribute.
func scalarAttr(s zygo.Sexp) (scene.Attribute[float64], error) {
	if k, ok := s.(*sexpKeys); ok {
		if k.scalars == nil {
			return scene.Attribute[float64]{}, fmt.Errorf("expected numeric keys, got vector keys")
		}
		return scene.Animated(k.scalars), nil
	}
	f, err := toFloat64(s)
	if err != nil {
		return scene.Attribute[float64]{}, err
	}
	return scene.Static(f), nil
}

// vectorAttr turns a vector or vector keys into an attribute, passing every
// value through conv.
func vectorAttr(s zygo.Sexp, conv func(scene.Vec3) scene.Vec3) (scene.Attribute[scene.Vec3], error) {
	if k, ok := s.(*sexpKeys); ok {
		if k.vectors == nil {
			return scene.Attribute[scene.Vec3]{}, fmt.Errorf("expected vector keys, got numeric keys")
		}
		samples := make(scene.TimeSamples[scene.Vec3], len(k.vectors))
		for t, v := range k.vectors {
			samples[t] = conv(v)
		}
		return scene.Animated(samples), nil
	}
	v, err := toVec3(s)
	if err != nil {
		return scene.Attribute[scene.Vec3]{}, err
	}
	return scene.Static(conv(v)), nil
}

func identity(v scene.Vec3) scene.Vec3 { return v }

// primNamePattern is the identifier rule USD applies to prim names.
var primNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ---------------------------------------------------------------------------
// Prim collection
// ---------------------------------------------------------------------------

// builder records every prim a script creates and which of them have been
// adopted as children.
type builder struct {
	created []*scene.Prim
	adopted map[*scene.Prim]bool
}

func newBuilder() *builder {
	return &builder{adopted: make(map[*scene.Prim]bool)}
}

func (b *builder) add(p *scene.Prim) {
	b.created = append(b.created, p)
}

// adopt makes child a native child of parent. A prim may have one parent.
func (b *builder) adopt(parent, child *scene.Prim) error {
	if b.adopted[child] {
		return fmt.Errorf("prim %q already has a parent", child.Name)
	}
	b.adopted[child] = true
	parent.AddChild(child)
	return nil
}

// roots returns the unadopted prims in creation order.
func (b *builder) roots() []*scene.Prim {
	out := make([]*scene.Prim, 0, len(b.created))
	for _, p := range b.created {
		if !b.adopted[p] {
			out = append(out, p)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// primBuiltin describes one prim constructor and the size keywords it takes.
type primBuiltin struct {
	name string
	typ  scene.PrimType
	dims []string
}

var primBuiltins = []primBuiltin{
	{"xform", scene.TypeXform, nil},
	{"sphere", scene.TypeSphere, []string{"radius"}},
	{"cube", scene.TypeCube, []string{"size"}},
	{"cylinder", scene.TypeCylinder, []string{"radius", "height"}},
	{"cone", scene.TypeCone, []string{"radius", "height"}},
}

// commonKeywords are accepted by every prim constructor.
var commonKeywords = []string{"translate", "rotate", "scale", "active"}

// registerBuiltins installs all script builtins into a zygomys environment.
// The prim builtins record what they create in b.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3: expected 3 arguments, got %d", len(args))
		}
		var v scene.Vec3
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %w", err)
			}
			v[i] = f
		}
		return &sexpVec3{vec: v}, nil
	})

	// -----------------------------------------------------------------------
	// (keys 0 1 24 3) or (keys 0 (vec3 0 0 0) 24 (vec3 0 5 0))
	// -----------------------------------------------------------------------
	env.AddFunction("keys", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) == 0 || len(args)%2 != 0 {
			return zygo.SexpNull, fmt.Errorf("keys: expected time/value pairs, got %d arguments", len(args))
		}
		k := &sexpKeys{}
		_, isVec := args[1].(*sexpVec3)
		if isVec || isList(args[1]) {
			k.vectors = make(scene.TimeSamples[scene.Vec3])
		} else {
			k.scalars = make(scene.TimeSamples[float64])
		}
		for i := 0; i < len(args); i += 2 {
			t, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("keys: time: %w", err)
			}
			if k.vectors != nil {
				v, err := toVec3(args[i+1])
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("keys: value at %g: %w", t, err)
				}
				k.vectors[t] = v
				continue
			}
			f, err := toFloat64(args[i+1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("keys: value at %g: %w", t, err)
			}
			k.scalars[t] = f
		}
		return k, nil
	})

	// -----------------------------------------------------------------------
	// (reference "./part.usda" :prim "/Part") and (payload ...)
	// -----------------------------------------------------------------------
	for _, arcFn := range []struct {
		fn   string
		kind scene.ArcKind
	}{{"reference", scene.ArcReference}, {"payload", scene.ArcPayload}} {
		fn, kind := arcFn.fn, arcFn.kind
		env.AddFunction(fn, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			if err := checkKeywords(fn, pa, map[string]bool{"prim": true}); err != nil {
				return zygo.SexpNull, err
			}
			if len(pa.positional) != 1 {
				return zygo.SexpNull, fmt.Errorf("%s: expected an asset path", fn)
			}
			asset, err := toString(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: asset: %w", fn, err)
			}
			if asset == "" {
				return zygo.SexpNull, fmt.Errorf("%s: asset path is empty", fn)
			}
			arc := scene.Arc{AssetPath: asset}
			if v, ok := pa.kw["prim"]; ok {
				p, err := toString(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: prim: %w", fn, err)
				}
				if !strings.HasPrefix(p, "/") {
					return zygo.SexpNull, fmt.Errorf("%s: prim path %q must be absolute", fn, p)
				}
				arc.PrimPath = p
			}
			return &sexpArc{entry: scene.ArcEntry{Arc: arc, Kind: kind}}, nil
		})
	}

	// -----------------------------------------------------------------------
	// (sphere "Ball" :radius 2 :translate (vec3 0 1 0) :color (vec3 1 0 0) child...)
	// -----------------------------------------------------------------------
	for _, pb := range primBuiltins {
		allowed := make(map[string]bool)
		for _, k := range commonKeywords {
			allowed[k] = true
		}
		for _, k := range pb.dims {
			allowed[k] = true
		}
		if pb.typ.IsGeometry() {
			allowed["color"] = true
		}
		env.AddFunction(pb.name, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			if err := checkKeywords(pb.name, pa, allowed); err != nil {
				return zygo.SexpNull, err
			}
			p, err := buildPrim(pb, pa)
			if err != nil {
				return zygo.SexpNull, err
			}
			b.add(p)
			if err := attach(b, pb.name, p, pa.positional[1:]); err != nil {
				return zygo.SexpNull, err
			}
			return &sexpPrim{prim: p}, nil
		})
	}
}

func isList(s zygo.Sexp) bool {
	switch s.(type) {
	case *zygo.SexpPair, *zygo.SexpArray:
		return true
	}
	return false
}

// buildPrim creates the prim described by a constructor call, leaving
// positional children for attach.
func buildPrim(pb primBuiltin, pa kwArgs) (*scene.Prim, error) {
	if len(pa.positional) == 0 {
		return nil, fmt.Errorf("%s: expected a name", pb.name)
	}
	primName, err := toString(pa.positional[0])
	if err != nil {
		return nil, fmt.Errorf("%s: name: %w", pb.name, err)
	}
	if !primNamePattern.MatchString(primName) {
		return nil, fmt.Errorf("%s: invalid prim name %q", pb.name, primName)
	}
	p := scene.NewPrim(pb.typ, primName)

	for _, d := range pb.dims {
		v, ok := pa.kw[d]
		if !ok {
			continue
		}
		attr, err := scalarAttr(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", pb.name, d, err)
		}
		switch d {
		case "radius":
			p.Radius = attr
		case "size":
			p.Size = attr
		case "height":
			p.Height = attr
		}
	}

	vectors := []struct {
		kw   string
		dst  *scene.Attribute[scene.Vec3]
		conv func(scene.Vec3) scene.Vec3
	}{
		{"translate", &p.Position, identity},
		{"rotate", &p.Rotation, scene.Vec3.Radians},
		{"scale", &p.Scale, identity},
	}
	for _, vec := range vectors {
		v, ok := pa.kw[vec.kw]
		if !ok {
			continue
		}
		attr, err := vectorAttr(v, vec.conv)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", pb.name, vec.kw, err)
		}
		*vec.dst = attr
	}

	if v, ok := pa.kw["color"]; ok {
		c, err := toVec3(v)
		if err != nil {
			return nil, fmt.Errorf("%s: color: %w", pb.name, err)
		}
		p.Color = scene.Static(c)
	}
	if v, ok := pa.kw["active"]; ok {
		a, err := toBool(v)
		if err != nil {
			return nil, fmt.Errorf("%s: active: %w", pb.name, err)
		}
		p.SetActive(a)
	}
	return p, nil
}

// attach adopts child prims and records arcs given positionally. Lists are
// flattened so that mapped children can be passed directly.
func attach(b *builder, fn string, p *scene.Prim, items []zygo.Sexp) error {
	for _, it := range items {
		switch v := it.(type) {
		case *sexpPrim:
			if v.prim == p {
				return fmt.Errorf("%s: prim %q cannot contain itself", fn, p.Name)
			}
			if err := b.adopt(p, v.prim); err != nil {
				return fmt.Errorf("%s: %w", fn, err)
			}
		case *sexpArc:
			switch v.entry.Kind {
			case scene.ArcPayload:
				p.Payloads = append(p.Payloads, v.entry.Arc)
			default:
				p.References = append(p.References, v.entry.Arc)
			}
		default:
			if it == zygo.SexpNull {
				continue
			}
			nested, err := sexpListToSlice(it)
			if err != nil {
				return fmt.Errorf("%s: expected prim, reference or payload, got %s", fn, it.SexpString(nil))
			}
			if err := attach(b, fn, p, nested); err != nil {
				return err
			}
		}
	}
	return nil
}
