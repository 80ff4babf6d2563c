package main

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"github.com/chazu/usdlive/pkg/compose"
	"github.com/chazu/usdlive/pkg/config"
	"github.com/chazu/usdlive/pkg/engine"
	"github.com/chazu/usdlive/pkg/kernel"
	"github.com/chazu/usdlive/pkg/kernel/backend"
	"github.com/chazu/usdlive/pkg/outline"
	"github.com/chazu/usdlive/pkg/scene"
	"github.com/chazu/usdlive/pkg/tessellate"
	"github.com/chazu/usdlive/pkg/usda"
	"github.com/chazu/usdlive/pkg/workspace"
)

// EventWorkspaceChanged is emitted with the changed paths whenever scene
// files change on disk.
const EventWorkspaceChanged = "workspace:changed"

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx     context.Context
	cfg     *config.Config
	log     *zap.Logger
	engine  *engine.Engine
	kernel  kernel.Kernel
	store   *workspace.Store
	watcher *workspace.Watcher

	// emit is runtime.EventsEmit outside of tests.
	emit func(ctx context.Context, name string, data ...interface{})
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	PrimPath string    `json:"primPath"`
	Color    string    `json:"color"`
}

// TimeRange is the span of authored time samples.
type TimeRange struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Animated bool    `json:"animated"`
}

// EvalResult is the full result returned to the frontend.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []compose.Error `json:"errors"`
	Warnings []string        `json:"warnings"`
	Outline  []outline.Node  `json:"outline"`
	Time     TimeRange       `json:"time"`
}

// ScriptResult is returned by RunScript.
type ScriptResult struct {
	USDA   string             `json:"usda"`
	Errors []engine.EvalError `json:"errors"`
}

// NewApp creates an App backed by the workspace named in cfg, or by an
// in-memory workspace when cfg.Workspace.Dir is empty.
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout, err := cfg.ScriptTimeout()
	if err != nil {
		return nil, fmt.Errorf("script timeout: %w", err)
	}

	k, err := backend.New(cfg.Preview.Kernel, cfg.Preview.MeshCells)
	if err != nil {
		return nil, fmt.Errorf("preview kernel: %w", err)
	}

	var store *workspace.Store
	if cfg.Workspace.Dir != "" {
		store, err = workspace.NewDirStore(cfg.Workspace.Dir, workspace.WithLogger(logger.Named("workspace")))
	} else {
		store, err = workspace.NewMemStore(workspace.WithLogger(logger.Named("workspace")))
	}
	if err != nil {
		return nil, fmt.Errorf("open workspace: %w", err)
	}

	return &App{
		cfg:    cfg,
		log:    logger,
		engine: engine.NewEngine(engine.WithTimeout(timeout), engine.WithLogger(logger.Named("engine"))),
		kernel: k,
		store:  store,
		emit:   runtime.EventsEmit,
	}, nil
}

// startup is called by Wails on app startup. It saves the context for
// runtime calls and starts watching a directory-backed workspace.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	if a.store.Dir() == "" {
		return
	}

	var opts []workspace.WatcherOption
	if d, err := a.cfg.DebounceDuration(); err == nil {
		opts = append(opts, workspace.WithDebounce(d))
	}
	opts = append(opts, workspace.WithWatchLogger(a.log.Named("watcher")))

	w, err := workspace.NewWatcher(a.store, opts...)
	if err != nil {
		a.log.Warn("workspace watcher disabled", zap.Error(err))
		return
	}
	if err := w.Start(ctx); err != nil {
		a.log.Warn("workspace watcher disabled", zap.Error(err))
		_ = w.Close()
		return
	}
	a.watcher = w
	go a.forward(ctx, w.Events())
}

// forward relays watcher batches to the frontend until the watcher stops.
func (a *App) forward(ctx context.Context, events <-chan []string) {
	for paths := range events {
		a.emit(ctx, EventWorkspaceChanged, paths)
	}
}

// shutdown is called by Wails when the window closes.
func (a *App) shutdown(ctx context.Context) {
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			a.log.Warn("close watcher", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

func (a *App) newResolver(files compose.FileSource) *compose.Resolver {
	return compose.NewResolver(files,
		compose.WithMaxReferenceDepth(a.cfg.Compose.MaxReferenceDepth),
		compose.WithLogger(a.log.Named("compose")))
}

// Evaluate stores source as the file at path, composes it against the rest
// of the workspace and tessellates the result at time code t. This is the
// primary binding called by the frontend editor.
func (a *App) Evaluate(path, source string, t float64) EvalResult {
	result := EvalResult{
		Meshes:   []MeshData{},
		Errors:   []compose.Error{},
		Warnings: []string{},
		Outline:  []outline.Node{},
	}

	// Step 1: Save the editor text so references from other files see it.
	filePath := path
	if f, err := a.store.Put(path, source); err != nil {
		result.Warnings = append(result.Warnings, "not saved: "+err.Error())
	} else {
		filePath = f.Path
	}

	// Step 2: Resolve against a snapshot of the workspace.
	files, err := a.store.Snapshot()
	if err != nil {
		a.log.Error("workspace snapshot failed", zap.Error(err))
		result.Warnings = append(result.Warnings, "workspace unavailable: "+err.Error())
		files = compose.NewFileMap()
	}
	res := a.newResolver(files).ParseAndResolve(source, filePath)
	result.Errors = append(result.Errors, res.Errors...)

	// Step 3: Tessellate the composed stage into triangle meshes.
	meshes, err := tessellate.Tessellate(res.Prims, t, a.kernel)
	for _, e := range splitErrors(err) {
		a.log.Debug("tessellate", zap.String("file", filePath), zap.Error(e))
		result.Warnings = append(result.Warnings, e.Error())
	}

	// Step 4: Convert kernel meshes to the frontend MeshData format.
	for _, m := range meshes {
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			PartName: m.PartName,
			PrimPath: m.PrimPath,
			Color:    hexColor(m.Color),
		})
	}

	result.Outline = append(result.Outline, outline.Build(res.Prims)...)
	if start, end, ok := scene.TimeRange(res.Prims); ok {
		result.Time = TimeRange{Start: start, End: end, Animated: true}
	}
	return result
}

// splitErrors unpacks an errors.Join result.
func splitErrors(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

// hexColor converts a linear RGB triple to #rrggbb, clamping each channel.
func hexColor(c [3]float32) string {
	var b [3]int
	for i, v := range c {
		switch {
		case v <= 0 || math.IsNaN(float64(v)):
			b[i] = 0
		case v >= 1:
			b[i] = 255
		default:
			b[i] = int(v*255 + 0.5)
		}
	}
	return fmt.Sprintf("#%02x%02x%02x", b[0], b[1], b[2])
}

// ListFiles returns every scene file in the workspace, sorted by path.
func (a *App) ListFiles() ([]compose.VirtualFile, error) {
	files, err := a.store.List()
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []compose.VirtualFile{}
	}
	return files, nil
}

// OpenFile returns one scene file.
func (a *App) OpenFile(path string) (compose.VirtualFile, error) {
	return a.store.Get(path)
}

// SaveFile writes a scene file without evaluating it.
func (a *App) SaveFile(path, content string) (compose.VirtualFile, error) {
	return a.store.Put(path, content)
}

// SetFileActive includes or excludes a file from composition.
func (a *App) SetFileActive(path string, active bool) error {
	return a.store.SetActive(path, active)
}

// DeleteFile removes a scene file.
func (a *App) DeleteFile(path string) error {
	return a.store.Delete(path)
}

// FlattenFile composes a stored file and returns it as a single layer
// with every arc baked in.
func (a *App) FlattenFile(path string) (string, error) {
	f, err := a.store.Get(path)
	if err != nil {
		return "", err
	}
	files, err := a.store.Snapshot()
	if err != nil {
		return "", err
	}
	res := a.newResolver(files).ParseAndResolve(f.Content, f.Path)
	errs := make([]error, len(res.Errors))
	for i := range res.Errors {
		errs[i] = res.Errors[i]
	}
	return usda.Format(usda.Flatten(res.Prims)), errors.Join(errs...)
}

// RunScript evaluates a procedural script and returns the USDA it produces.
func (a *App) RunScript(source string) ScriptResult {
	result := ScriptResult{Errors: []engine.EvalError{}}
	text, evalErrs, err := a.engine.EvaluateUSDA(source)
	if err != nil {
		// Panic or timeout.
		a.log.Warn("script evaluation failed", zap.Error(err))
		result.Errors = append(result.Errors, engine.EvalError{Message: err.Error()})
		return result
	}
	result.Errors = append(result.Errors, evalErrs...)
	result.USDA = text
	return result
}
