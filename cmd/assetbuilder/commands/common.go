package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	aberrors "git.home.luguber.info/inful/assetbuilder/internal/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/graph"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
	"git.home.luguber.info/inful/assetbuilder/internal/preview"
	"git.home.luguber.info/inful/assetbuilder/internal/tasks"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"assetbuilder.yaml" env:"ASSETBUILDER_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Dev       DevCmd       `cmd:"" default:"1" help:"Run the default composite: build every asset, serve app/ with live reload and watch for changes"`
	Build     BuildCmd     `cmd:"" help:"Clean the build directory and collect the production artifacts"`
	Run       RunCmd       `cmd:"" help:"Run tasks or composites by name, one after another"`
	List      ListCmd      `cmd:"" help:"List tasks and composites"`
	Init      InitCmd      `cmd:"" help:"Write a configuration file with the default layout"`
	Visualize VisualizeCmd `cmd:"" help:"Visualize a composite (text, mermaid, dot, json)"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	if env, ok := parseLogLevel(os.Getenv("ASSETBUILDER_LOG_LEVEL")); ok {
		level = env
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

func parseLogLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// loadConfig reads the configuration. The default path may be absent, in
// which case the built-in layout is used; an explicit path must exist.
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path == config.DefaultPath {
		cfg, err = config.LoadOrDefault(path)
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// pipeline is everything a command needs to resolve and run tasks.
type pipeline struct {
	cfg         *config.Config
	registry    *graph.Registry
	runner      *graph.Runner
	coordinator *preview.Coordinator
}

// newPipeline registers every task and composite. When live is set the dev
// coordinator receives task notifications.
func newPipeline(cfg *config.Config, live bool) (*pipeline, error) {
	promReg := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(promReg)

	coordinator := preview.NewCoordinator(cfg, rec, metrics.HTTPHandler(promReg))
	var notifier tasks.Notifier = tasks.NoopNotifier{}
	if live {
		notifier = coordinator
	}

	reg := graph.NewRegistry()
	runner := graph.NewRunner(cfg.Concurrency, rec)
	if err := tasks.Register(reg, tasks.All(tasks.Deps{Config: cfg, Notifier: notifier, Recorder: rec})...); err != nil {
		return nil, err
	}
	if err := reg.Register(coordinator.Task()); err != nil {
		return nil, err
	}
	if err := tasks.DefineComposites(reg, cfg); err != nil {
		return nil, err
	}
	if err := coordinator.BindConfig(reg, runner); err != nil {
		return nil, err
	}
	return &pipeline{cfg: cfg, registry: reg, runner: runner, coordinator: coordinator}, nil
}

// checkNames reports every name that is neither a task nor a composite.
func (p *pipeline) checkNames(names ...string) error {
	var unknown []string
	for _, name := range names {
		if !p.registry.Has(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	taskNames, composites := p.registry.Names()
	return aberrors.ValidationFailed("name", fmt.Sprintf("unknown %s (available: %s)",
		strings.Join(unknown, ", "), strings.Join(append(taskNames, composites...), ", ")))
}

// runNamed resolves names and runs them in sequence until interrupted.
func (p *pipeline) runNamed(names ...string) error {
	if err := p.checkNames(names...); err != nil {
		return err
	}
	nodes := make([]*graph.Node, 0, len(names))
	for _, name := range names {
		n, err := p.registry.Resolve(name)
		if err != nil {
			return err
		}
		nodes = append(nodes, n)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(nodes) == 1 {
		return p.runner.Run(ctx, nodes[0])
	}
	return p.runner.Run(ctx, graph.Series("run", nodes...))
}
