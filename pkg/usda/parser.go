package usda

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/chazu/usdlive/pkg/scene"
)

// MaxNestingDepth bounds prim nesting so pathological input cannot exhaust
// the stack.
const MaxNestingDepth = 64

// ErrTooDeep is wrapped by the SyntaxError returned for over-nested input.
var ErrTooDeep = errors.New("prim nesting too deep")

// SyntaxError is a parse failure with a source position.
type SyntaxError struct {
	Line int
	Col  int
	Err  error
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return e.Err.Error()
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Parse reads one file's text into its root prims. Unrecognized statements
// are skipped and attributes that do not match a known form contribute
// nothing; the only error is nesting deeper than MaxNestingDepth.
func Parse(text string) ([]*scene.Prim, error) {
	p := &parser{toks: Tokenize(text)}
	var roots []*scene.Prim
	for !p.atEOF() {
		if p.peek().is(TokIdent, "def") {
			prim, err := p.parsePrim()
			if err != nil {
				return nil, err
			}
			if prim != nil {
				roots = append(roots, prim)
			}
			continue
		}
		p.skipStray("")
	}
	return roots, nil
}

type parser struct {
	toks  []Token
	pos   int
	depth int
}

func (p *parser) peek() Token {
	return p.peekAt(0)
}

func (p *parser) peekAt(n int) Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() Token {
	tok := p.peek()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) atEOF() bool {
	return p.peek().Kind == TokEOF
}

func (p *parser) isPunct(s string) bool {
	return p.peek().is(TokPunct, s)
}

// accept consumes the punctuation if present.
func (p *parser) accept(s string) bool {
	if p.isPunct(s) {
		p.next()
		return true
	}
	return false
}

// skipItem consumes one token, or a whole balanced group when the token
// opens one. It never consumes a closer that does not belong to the group:
// a missing value must not swallow the end of the enclosing prim or
// metadata clause.
func (p *parser) skipItem() {
	tok := p.peek()
	if tok.Kind == TokPunct && isCloser(tok.Text) {
		return
	}
	p.next()
	if tok.Kind != TokPunct || !isOpener(tok.Text) {
		return
	}
	open := []string{closerFor(tok.Text)}
	for len(open) > 0 && !p.atEOF() {
		t := p.peek()
		if t.Kind == TokPunct {
			switch {
			case isOpener(t.Text):
				open = append(open, closerFor(t.Text))
			case t.Text == open[len(open)-1]:
				open = open[:len(open)-1]
			case isCloser(t.Text):
				return
			}
		}
		p.next()
	}
}

// skipStray is skipItem for loops: it also consumes a stray closer unless
// the closer is one of stop, which may end an enclosing scope. It reports
// whether anything was consumed.
func (p *parser) skipStray(stop string) bool {
	tok := p.peek()
	if tok.Kind == TokPunct && isCloser(tok.Text) {
		if strings.Contains(stop, tok.Text) {
			return false
		}
		p.next()
		return true
	}
	p.skipItem()
	return true
}

// missingValue reports whether the statement ending in eq has no value:
// an identifier on a later line starts the next statement.
func (p *parser) missingValue(eq Token) bool {
	v := p.peek()
	return v.Kind == TokIdent && v.Line > eq.Line
}

func closerFor(opener string) string {
	switch opener {
	case "{":
		return "}"
	case "(":
		return ")"
	}
	return "]"
}

func isOpener(s string) bool {
	return s == "{" || s == "(" || s == "["
}

func isCloser(s string) bool {
	return s == "}" || s == ")" || s == "]"
}

// parsePrim reads `def [Type] "Name" [(metadata)] [{ body }]`. It returns a
// nil prim when the declaration has no name.
func (p *parser) parsePrim() (*scene.Prim, error) {
	def := p.next()
	prim := &scene.Prim{}
	if p.peek().Kind == TokIdent {
		prim.Type = scene.PrimType(p.next().Text)
	}
	if p.peek().Kind != TokString {
		return nil, nil
	}
	prim.Name = p.next().Text

	if p.isPunct("(") {
		p.parseMetadata(prim)
	}
	if !p.accept("{") {
		return prim, nil
	}

	p.depth++
	defer func() { p.depth-- }()
	if p.depth > MaxNestingDepth {
		return nil, &SyntaxError{Line: def.Line, Col: def.Col, Err: ErrTooDeep}
	}

	for !p.atEOF() && !p.isPunct("}") {
		switch {
		case p.peek().is(TokIdent, "def"):
			child, err := p.parsePrim()
			if err != nil {
				return nil, err
			}
			if child != nil {
				prim.AddChild(child)
			}
		case p.parseAttribute(prim):
		default:
			p.skipStray("}")
		}
	}
	p.accept("}")
	return prim, nil
}

// listOps may prefix a composition field in metadata.
var listOps = map[string]bool{
	"prepend": true,
	"append":  true,
	"add":     true,
	"delete":  true,
	"reorder": true,
}

// parseMetadata reads the parenthesized clause after a prim name. Fields
// other than active, references and payload are skipped.
func (p *parser) parseMetadata(prim *scene.Prim) {
	p.next() // (
	for !p.atEOF() && !p.isPunct(")") {
		op := ""
		if tok := p.peek(); tok.Kind == TokIdent && listOps[tok.Text] && p.peekAt(1).Kind == TokIdent {
			op = p.next().Text
		}
		field := p.peek()
		if field.Kind != TokIdent || !p.peekAt(1).is(TokPunct, "=") {
			if !p.skipStray(")}") {
				break
			}
			continue
		}
		p.next()
		if p.missingValue(p.next()) {
			continue
		}

		switch field.Text {
		case "active":
			switch v := p.peek(); {
			case v.is(TokIdent, "true"):
				prim.SetActive(true)
				p.next()
			case v.is(TokIdent, "false"):
				prim.SetActive(false)
				p.next()
			default:
				p.skipItem()
			}
		case "references":
			arcs := p.parseArcs()
			if op != "delete" {
				prim.References = append(prim.References, arcs...)
			}
		case "payload", "payloads":
			arcs := p.parseArcs()
			if op != "delete" {
				prim.Payloads = append(prim.Payloads, arcs...)
			}
		default:
			p.skipItem()
		}
	}
	p.accept(")")
}

// parseArcs reads `@asset@[<path>]` or a bracketed list of them.
func (p *parser) parseArcs() []scene.Arc {
	if !p.accept("[") {
		if arc, ok := p.parseArc(); ok {
			return []scene.Arc{arc}
		}
		if p.peek().Kind != TokPunct {
			p.next() // None, or a stray value
		}
		return nil
	}
	var arcs []scene.Arc
	for !p.atEOF() && !p.isPunct("]") {
		if arc, ok := p.parseArc(); ok {
			arcs = append(arcs, arc)
			continue
		}
		if !p.skipStray("])}") {
			break
		}
	}
	p.accept("]")
	return arcs
}

func (p *parser) parseArc() (scene.Arc, bool) {
	if p.peek().Kind != TokAsset {
		return scene.Arc{}, false
	}
	arc := scene.Arc{AssetPath: p.next().Text}
	if p.peek().Kind == TokPath {
		arc.PrimPath = p.next().Text
	}
	return arc, true
}

// attribute value shapes
const (
	shapeScalar = iota
	shapeVector
	shapeColor
)

type attrSpec struct {
	shape   int
	radians bool
	scalar  func(*scene.Prim) *scene.Attribute[float64]
	vector  func(*scene.Prim) *scene.Attribute[scene.Vec3]
}

var attrSpecs = map[string]attrSpec{
	"radius": {shape: shapeScalar, scalar: func(p *scene.Prim) *scene.Attribute[float64] { return &p.Radius }},
	"size":   {shape: shapeScalar, scalar: func(p *scene.Prim) *scene.Attribute[float64] { return &p.Size }},
	"height": {shape: shapeScalar, scalar: func(p *scene.Prim) *scene.Attribute[float64] { return &p.Height }},

	"xformOp:translate": {shape: shapeVector, vector: func(p *scene.Prim) *scene.Attribute[scene.Vec3] { return &p.Position }},
	"xformOp:rotateXYZ": {shape: shapeVector, radians: true, vector: func(p *scene.Prim) *scene.Attribute[scene.Vec3] { return &p.Rotation }},
	"xformOp:scale":     {shape: shapeVector, vector: func(p *scene.Prim) *scene.Attribute[scene.Vec3] { return &p.Scale }},

	"primvars:displayColor": {shape: shapeColor, vector: func(p *scene.Prim) *scene.Attribute[scene.Vec3] { return &p.Color }},
	"displayColor":          {shape: shapeColor, vector: func(p *scene.Prim) *scene.Attribute[scene.Vec3] { return &p.Color }},
}

// attribute qualifiers that may precede the type name
var qualifiers = map[string]bool{
	"uniform": true,
	"custom":  true,
	"varying": true,
}

// parseAttribute tries `[qualifiers] type[[]] name[.timeSamples] = value`.
// On a shape mismatch it rewinds and reports false; a recognized declaration
// whose value does not match is consumed and contributes nothing.
func (p *parser) parseAttribute(prim *scene.Prim) bool {
	start := p.pos
	for p.peek().Kind == TokIdent && qualifiers[p.peek().Text] {
		p.next()
	}
	if p.peek().Kind != TokIdent || p.peek().Text == "def" {
		p.pos = start
		return false
	}
	typeName := p.next().Text
	if p.isPunct("[") && p.peekAt(1).is(TokPunct, "]") {
		p.next()
		p.next()
		typeName += "[]"
	}
	nameTok := p.peek()
	if nameTok.Kind != TokIdent || !p.peekAt(1).is(TokPunct, "=") {
		p.pos = start
		return false
	}
	p.next()
	if p.missingValue(p.next()) {
		return true
	}

	name, timeSampled := strings.CutSuffix(nameTok.Text, ".timeSamples")
	spec, ok := attrSpecs[name]
	if !ok || !typeMatches(spec.shape, typeName) {
		p.skipItem()
		return true
	}

	switch spec.shape {
	case shapeScalar:
		attr := spec.scalar(prim)
		if timeSampled {
			if samples, ok := parseSamples(p, p.parseScalar); ok {
				attr.Samples = samples
			}
		} else if v, ok := p.parseScalar(); ok {
			attr.Value = &v
		}
	case shapeVector:
		attr := spec.vector(prim)
		parse := p.parseVector
		if spec.radians {
			parse = func() (scene.Vec3, bool) {
				v, ok := p.parseVector()
				return v.Radians(), ok
			}
		}
		if timeSampled {
			if samples, ok := parseSamples(p, parse); ok {
				attr.Samples = samples
			}
		} else if v, ok := parse(); ok {
			attr.Value = &v
		}
	case shapeColor:
		if timeSampled {
			p.skipItem()
			break
		}
		if v, ok := p.parseColor(); ok {
			attr := spec.vector(prim)
			attr.Value = &v
		}
	}
	return true
}

// typeMatches checks the declared value type against the attribute shape.
func typeMatches(shape int, typeName string) bool {
	switch shape {
	case shapeScalar:
		return typeName == "double" || typeName == "float"
	case shapeVector:
		return strings.HasSuffix(typeName, "3") || strings.HasSuffix(typeName, "3f") ||
			strings.HasSuffix(typeName, "3d") || strings.HasSuffix(typeName, "3h")
	case shapeColor:
		return strings.HasPrefix(typeName, "color3") && strings.HasSuffix(typeName, "[]")
	}
	return false
}

// parseNumber converts a number token. Malformed literals become NaN.
func parseNumber(tok Token) float64 {
	v, err := strconv.ParseFloat(tok.Text, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return v
		}
		return math.NaN()
	}
	return v
}

// parseScalar reads a number; any other item is consumed and ignored.
func (p *parser) parseScalar() (float64, bool) {
	if p.peek().Kind != TokNumber {
		p.skipItem()
		return 0, false
	}
	return parseNumber(p.next()), true
}

// parseVector reads `(x, y, z)`. Anything else is consumed and ignored.
func (p *parser) parseVector() (scene.Vec3, bool) {
	if !p.isPunct("(") {
		p.skipItem()
		return scene.Vec3{}, false
	}
	start := p.pos
	p.next()
	var v scene.Vec3
	for i := 0; i < 3; i++ {
		if i > 0 && !p.accept(",") {
			break
		}
		if p.peek().Kind != TokNumber {
			break
		}
		v[i] = parseNumber(p.next())
		if i == 2 && p.accept(")") {
			return v, true
		}
	}
	p.pos = start
	p.skipItem()
	return scene.Vec3{}, false
}

// parseColor reads `[(r, g, b), ...]` and keeps the first tuple.
func (p *parser) parseColor() (scene.Vec3, bool) {
	if !p.isPunct("[") {
		p.skipItem()
		return scene.Vec3{}, false
	}
	start := p.pos
	p.next()
	v, ok := p.parseVector()
	p.pos = start
	p.skipItem()
	return v, ok
}

// parseSamples reads `{ time: value, ... }`. Entries that do not match are
// skipped up to the next comma.
func parseSamples[T any](p *parser, value func() (T, bool)) (scene.TimeSamples[T], bool) {
	if !p.accept("{") {
		p.skipItem()
		return nil, false
	}
	samples := scene.TimeSamples[T]{}
	for !p.atEOF() && !p.isPunct("}") {
		if p.accept(",") {
			continue
		}
		if p.peek().Kind == TokNumber && p.peekAt(1).is(TokPunct, ":") {
			t := parseNumber(p.next())
			p.next() // :
			// A malformed time can never be sampled.
			if v, ok := value(); ok && !math.IsNaN(t) {
				samples[t] = v
			}
			continue
		}
		p.skipStray("}")
	}
	p.accept("}")
	return samples, true
}
