package compose

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/chazu/usdlive/pkg/scene"
	"github.com/chazu/usdlive/pkg/usda"
)

// DefaultMaxReferenceDepth bounds acyclic reference chains.
const DefaultMaxReferenceDepth = 32

// Result is the outcome of a top-level resolve. The caller owns both
// slices; nothing in them is shared with any other call.
type Result struct {
	Prims  []*scene.Prim `json:"prims"`
	Errors []Error       `json:"errors"`
}

// Resolver composes prims against a file source.
type Resolver struct {
	files    FileSource
	maxDepth int
	log      *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMaxReferenceDepth overrides DefaultMaxReferenceDepth. Values below 1
// are ignored.
func WithMaxReferenceDepth(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxDepth = n
		}
	}
}

// WithLogger traces arc resolution at debug level.
func WithLogger(log *zap.Logger) Option {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// NewResolver returns a resolver reading files from files.
func NewResolver(files FileSource, opts ...Option) *Resolver {
	r := &Resolver{
		files:    files,
		maxDepth: DefaultMaxReferenceDepth,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ParseAndResolve parses text as the file at filePath, resolves every arc
// against files and drops inactive prims. It never panics.
func ParseAndResolve(text, filePath string, files FileSource) Result {
	return NewResolver(files).ParseAndResolve(text, filePath)
}

// ParseAndResolve parses text as the file at filePath, resolves its arcs
// and filters out prims whose active flag is false. A root that fails to
// parse yields no prims and a single parse_error.
func (r *Resolver) ParseAndResolve(text, filePath string) (res Result) {
	ctx := NewContext(filePath)
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("resolve panicked", zap.String("file", ctx.CurrentFilePath), zap.Any("panic", rec))
			res = Result{Errors: []Error{{
				Kind:     KindParseError,
				Message:  fmt.Sprintf("internal error: %v", rec),
				FilePath: ctx.CurrentFilePath,
			}}}
		}
	}()

	prims, err := usda.Parse(text)
	if err != nil {
		return Result{Errors: []Error{parseError(ctx.CurrentFilePath, err)}}
	}
	resolved, errs := r.ResolveAll(prims, ctx)
	return Result{Prims: FilterInactive(resolved), Errors: errs}
}

// ResolveAll returns resolved copies of prims. The input is never modified
// and any ResolvedChildren it already carries are recomputed. Errors are
// ordered by prim in pre-order: a prim's own arcs first, each followed by
// errors from inside the file it pulled in, then its children.
func (r *Resolver) ResolveAll(prims []*scene.Prim, ctx Context) ([]*scene.Prim, []Error) {
	out := scene.CloneAll(prims)
	return out, r.resolveForest(out, ctx)
}

// resolveForest resolves prims in place. Callers own the prims.
func (r *Resolver) resolveForest(prims []*scene.Prim, ctx Context) []Error {
	var errs []Error
	for _, p := range prims {
		errs = append(errs, r.resolvePrim(p, ctx)...)
	}
	return errs
}

func (r *Resolver) resolvePrim(p *scene.Prim, ctx Context) []Error {
	p.ResolvedChildren = nil
	p.BrokenArcs = nil

	var errs []Error
	for _, entry := range p.Arcs() {
		children, arcErrs, broken := r.resolveArc(entry, ctx)
		errs = append(errs, arcErrs...)
		p.ResolvedChildren = append(p.ResolvedChildren, children...)
		if broken != "" {
			p.BrokenArcs = append(p.BrokenArcs, scene.BrokenArc{ArcEntry: entry, Reason: string(broken)})
		}
	}
	for _, c := range p.Children {
		errs = append(errs, r.resolvePrim(c, ctx)...)
	}
	return errs
}

// resolveArc follows one reference or payload. broken is set to the kind
// of the arc's own failure; errors nested inside the target file do not
// break the arc.
func (r *Resolver) resolveArc(entry scene.ArcEntry, ctx Context) (children []*scene.Prim, errs []Error, broken ErrorKind) {
	arc := entry.Arc
	abs := ResolveAssetPath(arc.AssetPath, ctx.CurrentFilePath)
	log := r.log.With(
		zap.Stringer("kind", entry.Kind),
		zap.String("asset", arc.AssetPath),
		zap.String("resolved", abs),
		zap.String("from", ctx.CurrentFilePath),
	)

	fail := func(kind ErrorKind, filePath, msg string) ([]*scene.Prim, []Error, ErrorKind) {
		log.Debug("arc broken", zap.String("reason", string(kind)))
		errs = append(errs, Error{Kind: kind, Message: msg, FilePath: filePath, AssetPath: arc.AssetPath})
		return nil, errs, kind
	}

	defer func() {
		if rec := recover(); rec != nil {
			children, errs, broken = fail(KindParseError, ctx.CurrentFilePath,
				fmt.Sprintf("failed to resolve %s: %v", abs, rec))
		}
	}()

	if ctx.Visited(abs) {
		return fail(KindCircularReference, abs, circularMessage(entry.Kind, abs))
	}
	file, ok := r.files.Lookup(abs)
	if !ok {
		return fail(KindMissingFile, abs, fmt.Sprintf("File not found: %s", abs))
	}
	if !file.Active {
		log.Debug("skipping inactive file")
		return nil, nil, ""
	}
	if ctx.Depth() >= r.maxDepth {
		return fail(KindParseError, ctx.CurrentFilePath,
			fmt.Sprintf("reference chain to %s exceeds %d files", abs, r.maxDepth))
	}

	prims, err := usda.Parse(file.Content)
	if err != nil {
		return fail(KindParseError, ctx.CurrentFilePath, fmt.Sprintf("failed to parse %s: %v", abs, err))
	}
	errs = r.resolveForest(prims, ctx.enter(abs))

	if arc.PrimPath == "" {
		log.Debug("arc resolved", zap.Int("prims", len(prims)))
		return scene.CloneAll(prims), errs, ""
	}
	target, ok := FindPrim(prims, arc.PrimPath)
	if !ok {
		return fail(KindInvalidPrimPath, abs, fmt.Sprintf("Prim not found: %s in %s", arc.PrimPath, abs))
	}
	log.Debug("arc resolved", zap.String("prim", arc.PrimPath))
	return []*scene.Prim{target.Clone()}, errs, ""
}

func circularMessage(kind scene.ArcKind, abs string) string {
	if kind == scene.ArcPayload {
		return "Circular payload detected: " + abs
	}
	return "Circular reference detected: " + abs
}

func parseError(filePath string, err error) Error {
	e := Error{Kind: KindParseError, Message: err.Error(), FilePath: filePath}
	var synErr *usda.SyntaxError
	if errors.As(err, &synErr) {
		e.Line = synErr.Line
		e.Message = synErr.Err.Error()
	}
	return e
}

// FindPrim walks a resolved forest by prim path, matching one name per
// segment against native then resolved children. The first sibling with a
// matching name wins, so later duplicates are unreachable by path.
func FindPrim(prims []*scene.Prim, primPath string) (*scene.Prim, bool) {
	segs := scene.SplitPath(primPath)
	if len(segs) == 0 {
		return nil, false
	}
	level := prims
	var found *scene.Prim
	for _, seg := range segs {
		found = nil
		for _, p := range level {
			if p.Name == seg {
				found = p
				break
			}
		}
		if found == nil {
			return nil, false
		}
		level = found.AllChildren()
	}
	return found, true
}
