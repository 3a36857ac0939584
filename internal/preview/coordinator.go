package preview

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	aberrors "git.home.luguber.info/inful/assetbuilder/internal/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/graph"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
)

// ErrAlreadyRunning is returned by Bind once the coordinator runs.
var ErrAlreadyRunning = errors.New("watch loop already running")

// Coordinator owns the dev server, the live reload hub and the watch
// bindings for one process. It is the notifier tasks report rewritten files
// to, and provides the long-lived watching task.
type Coordinator struct {
	cfg     *config.Config
	hub     *LiveReloadHub
	rec     metrics.Recorder
	metrics http.Handler

	mu       sync.Mutex
	bindings []Binding
	running  bool
	listener net.Listener
	addr     chan string
}

// NewCoordinator creates a coordinator for cfg. metricsHandler is mounted at
// /__metrics when cfg.Server.Metrics is set.
func NewCoordinator(cfg *config.Config, rec metrics.Recorder, metricsHandler http.Handler) *Coordinator {
	c := &Coordinator{
		cfg:  cfg,
		rec:  metrics.OrNoop(rec),
		addr: make(chan string, 1),
	}
	if cfg.Server.LiveReload {
		c.hub = NewLiveReloadHub(c.rec)
	}
	if cfg.Server.Metrics {
		c.metrics = metricsHandler
	}
	return c
}

// Hub returns the live reload hub, or nil when live reload is disabled.
func (c *Coordinator) Hub() *LiveReloadHub { return c.hub }

// UseListener makes Run serve on ln instead of the configured address.
func (c *Coordinator) UseListener(ln net.Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = ln
}

// Addr returns a channel receiving the server address once it listens.
func (c *Coordinator) Addr() <-chan string { return c.addr }

// Bind adds a watch binding. Bindings are fixed once Run starts.
func (c *Coordinator) Bind(b Binding) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return ErrAlreadyRunning
	}
	c.bindings = append(c.bindings, b)
	return nil
}

// BindConfig adds the configured watch bindings. Task bindings run the named
// task or composite from reg through runner; reload bindings only refresh
// the browsers.
func (c *Coordinator) BindConfig(reg *graph.Registry, runner *graph.Runner) error {
	for i, wb := range c.cfg.Watch {
		b := Binding{Name: wb.Name(), Patterns: wb.Paths}
		if wb.Reload {
			b.Action = func(_ context.Context, changed []string) error {
				c.Notify("reload", changed...)
				return nil
			}
		} else {
			node, err := reg.Resolve(wb.Task)
			if err != nil {
				return aberrors.ValidationFailed(fmt.Sprintf("watch[%d].task", i), err.Error())
			}
			b.Action = func(ctx context.Context, _ []string) error {
				return runner.Run(ctx, node)
			}
		}
		if err := c.Bind(b); err != nil {
			return err
		}
	}
	return nil
}

// Notify broadcasts rewritten files to the browsers. A batch made only of
// stylesheets is applied in place; anything else reloads the page.
func (c *Coordinator) Notify(_ string, paths ...string) {
	if c.hub == nil {
		return
	}
	ev := Event{Type: EventCSS}
	for _, p := range paths {
		if !strings.EqualFold(path.Ext(p), ".css") {
			ev.Type = EventReload
		}
		ev.Paths = append(ev.Paths, c.urlPath(p))
	}
	if len(paths) == 0 {
		ev.Type = EventReload
	}
	c.hub.Broadcast(ev)
}

// urlPath maps a root-relative file to its URL below the server base dir.
func (c *Coordinator) urlPath(rel string) string {
	base := strings.Trim(path.Clean(strings.TrimPrefix(c.cfg.Server.BaseDir, "./")), "/")
	rel = path.Clean(rel)
	if base != "." && base != "" {
		if r, ok := strings.CutPrefix(rel, base+"/"); ok {
			return "/" + r
		}
	}
	return "/" + strings.TrimPrefix(rel, "/")
}

// Task returns the watching task, which runs the coordinator.
func (c *Coordinator) Task() graph.Task {
	return graph.Func(config.TaskWatching, c.Run)
}

// Run serves and watches until ctx is done.
func (c *Coordinator) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.running = true
	bindings := append([]Binding(nil), c.bindings...)
	ln := c.listener
	c.mu.Unlock()

	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", c.cfg.Server.Addr())
		if err != nil {
			return aberrors.Wrap(err, aberrors.CategoryRuntime, aberrors.SeverityFatal, "dev server listen failed").
				WithContext("addr", c.cfg.Server.Addr())
		}
	}
	c.addr <- ln.Addr().String()

	server := NewServer(c.cfg.Path(c.cfg.Server.BaseDir), c.hub, c.metrics)
	watcher := NewWatcher(c.cfg.Path("."), c.cfg.Server.Debounce, c.rec, bindings...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Serve(gctx, ln) })
	g.Go(func() error { return watcher.Run(gctx) })
	if err := g.Wait(); err != nil {
		return aberrors.Wrap(err, aberrors.CategoryRuntime, aberrors.SeverityError, "watch loop failed")
	}
	return nil
}
