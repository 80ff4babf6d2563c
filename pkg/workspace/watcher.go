package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a path must stay quiet before its change is
// reported.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reports changes to scene files in a directory-backed store.
// Rapid writes to one file collapse into a single event.
type Watcher struct {
	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	dir      string
	debounce time.Duration
	pending  map[string]time.Time
	log      *zap.Logger

	events  chan []string
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatchLogger sets the watcher's logger.
func WithWatchLogger(log *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if log != nil {
			w.log = log
		}
	}
}

// NewWatcher watches the directory behind s.
func NewWatcher(s *Store, opts ...WatcherOption) (*Watcher, error) {
	if s.Dir() == "" {
		return nil, errors.New("watch: store is not directory-backed")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w := &Watcher{
		fsw:      fsw,
		dir:      s.Dir(),
		debounce: DefaultDebounce,
		pending:  make(map[string]time.Time),
		log:      zap.NewNop(),
		events:   make(chan []string, 16),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Events delivers batches of changed workspace paths, sorted. The channel
// is closed when the watcher stops.
func (w *Watcher) Events() <-chan []string {
	return w.events
}

// Start adds the directory tree and begins watching in the background.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	err := filepath.WalkDir(w.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != w.dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return w.fsw.Add(p)
		}
		return nil
	})
	if err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.log.Info("watching workspace", zap.String("dir", w.dir))

	go w.run(ctx)
	return nil
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	return w.fsw.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	defer close(w.events)

	tick := time.NewTicker(w.debounce / 4)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		case <-tick.C:
			if batch := w.settled(); len(batch) > 0 {
				select {
				case w.events <- batch:
				case <-ctx.Done():
					return
				case <-w.stopCh:
					return
				}
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(ev.Name); err != nil {
				w.log.Warn("watch new dir", zap.String("dir", ev.Name), zap.Error(err))
			}
			return
		}
	}
	rel, err := filepath.Rel(w.dir, ev.Name)
	if err != nil {
		return
	}
	p := "/" + filepath.ToSlash(rel)
	if !IsSceneFile(p) {
		return
	}
	w.log.Debug("workspace change", zap.String("path", p), zap.Stringer("op", ev.Op))

	w.mu.Lock()
	w.pending[p] = time.Now()
	w.mu.Unlock()
}

// settled removes and returns paths quiet for at least the debounce window.
func (w *Watcher) settled() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	var out []string
	for p, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			out = append(out, p)
			delete(w.pending, p)
		}
	}
	sort.Strings(out)
	return out
}
