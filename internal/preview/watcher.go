package preview

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
)

// Binding reacts to changes of files matching Patterns (root-relative globs).
type Binding struct {
	Name     string
	Patterns []string
	Action   func(ctx context.Context, changed []string) error
}

// Watcher dispatches filesystem events to bindings. Each binding has its own
// debounce timer and runs at most one reaction at a time; changes arriving
// while a reaction runs schedule exactly one follow-up.
type Watcher struct {
	root     string
	debounce time.Duration
	rec      metrics.Recorder
	bindings []*bindingWorker
	ready    chan struct{}
}

type bindingWorker struct {
	Binding
	req chan struct{}

	mu      sync.Mutex
	timer   *time.Timer
	changed map[string]bool
}

func NewWatcher(root string, debounce time.Duration, rec metrics.Recorder, bindings ...Binding) *Watcher {
	w := &Watcher{root: root, debounce: debounce, rec: metrics.OrNoop(rec), ready: make(chan struct{})}
	for _, b := range bindings {
		w.bindings = append(w.bindings, &bindingWorker{Binding: b, req: make(chan struct{}, 1), changed: map[string]bool{}})
	}
	return w
}

// Ready is closed once the initial watches are in place.
func (w *Watcher) Ready() <-chan struct{} { return w.ready }

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = fw.Close() }()

	dirs := w.watchDirs()
	for dir, recursive := range dirs {
		w.addDir(fw, dir, recursive)
	}
	close(w.ready)

	var wg sync.WaitGroup
	for _, b := range w.bindings {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.work(ctx, b)
		}()
	}
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			for _, b := range w.bindings {
				b.stop()
			}
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(fw, dirs, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

// watchDirs maps each static directory of the binding patterns (relative to
// root) to whether it must be watched recursively.
func (w *Watcher) watchDirs() map[string]bool {
	var patterns []string
	for _, b := range w.bindings {
		patterns = append(patterns, b.Patterns...)
	}
	dirs := map[string]bool{}
	for base, recursive := range fileset.StaticDirs(patterns) {
		dir := base
		// a literal file pattern is watched through its directory
		if info, err := os.Stat(w.native(base)); err == nil && !info.IsDir() || err != nil && path.Ext(base) != "" {
			dir = path.Dir(base)
		}
		dirs[dir] = dirs[dir] || recursive
	}
	return dirs
}

func (w *Watcher) native(rel string) string {
	return filepath.Join(w.root, filepath.FromSlash(rel))
}

// addDir watches dir, or its closest existing ancestor so the directory is
// picked up once it is created.
func (w *Watcher) addDir(fw *fsnotify.Watcher, dir string, recursive bool) {
	for {
		native := w.native(dir)
		if info, err := os.Stat(native); err == nil && info.IsDir() {
			if recursive {
				addDirsRecursive(fw, native)
			} else if err := fw.Add(native); err != nil {
				slog.Warn("watch add failed", "dir", native, "error", err)
			}
			return
		}
		if dir == "." || dir == "/" {
			return
		}
		slog.Debug("Watch directory missing, watching parent", "dir", dir)
		dir = path.Dir(dir)
		recursive = false
	}
}

func addDirsRecursive(fw *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := fw.Add(p); err != nil {
				slog.Warn("watch add failed", "dir", p, "error", err)
			}
		}
		return nil
	})
}

func (w *Watcher) handle(fw *fsnotify.Watcher, dirs map[string]bool, ev fsnotify.Event) {
	if shouldIgnoreEvent(ev.Name) || ev.Op == fsnotify.Chmod {
		return
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
		if ev.Op.Has(fsnotify.Create) {
			for dir, recursive := range dirs {
				if dir == rel || strings.HasPrefix(dir, rel+"/") || recursive && strings.HasPrefix(rel, dir+"/") {
					w.addDir(fw, dir, recursive)
				}
			}
		}
		// directories themselves never match a binding
		return
	}

	for _, b := range w.bindings {
		if fileset.Match(b.Patterns, rel) {
			slog.Debug("File change detected", logfields.Binding(b.Name), logfields.Path(rel), "op", ev.Op.String())
			w.rec.IncWatchEvent(b.Name)
			b.trigger(rel, w.debounce)
		}
	}
}

// trigger records a change and (re)starts the debounce timer.
func (b *bindingWorker) trigger(rel string, debounce time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.changed[rel] = true
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(debounce, func() {
		select {
		case b.req <- struct{}{}:
		default:
		}
	})
}

func (b *bindingWorker) stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
	}
}

func (b *bindingWorker) take() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.changed))
	for p := range b.changed {
		out = append(out, p)
	}
	b.changed = map[string]bool{}
	return out
}

// work runs the binding's reactions one at a time. req holds at most one
// queued request, so changes during a run collapse into a single follow-up.
func (w *Watcher) work(ctx context.Context, b *bindingWorker) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.req:
			changed := b.take()
			slog.Info("Change detected", logfields.Binding(b.Name), logfields.Count(len(changed)))
			if err := b.Action(ctx, changed); err != nil && ctx.Err() == nil {
				slog.Warn("Watch reaction failed", logfields.Binding(b.Name), logfields.Error(err))
			}
		}
	}
}

// shouldIgnoreEvent returns true for filesystem events that should not trigger reactions.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	// hidden files, including our own temp files during atomic writes
	if strings.HasPrefix(base, ".") {
		return true
	}

	// editor temp/swap files
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}

	return base == "Thumbs.db"
}
