// Package tasks defines the leaf tasks of the asset pipeline. Each task reads
// its source set from the configuration, pipes the files through a transform
// collaborator and writes the results below its destination.
package tasks

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	aberrors "git.home.luguber.info/inful/assetbuilder/internal/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
	"git.home.luguber.info/inful/assetbuilder/internal/graph"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
	"git.home.luguber.info/inful/assetbuilder/internal/transform/imgcodec"
	"git.home.luguber.info/inful/assetbuilder/internal/transform/style"
)

// Notifier is told about files a task rewrote so open browsers can refresh.
// Paths are root-relative and slash-separated.
type Notifier interface {
	Notify(task string, paths ...string)
}

// NoopNotifier drops notifications (build and one-off runs).
type NoopNotifier struct{}

func (NoopNotifier) Notify(string, ...string) {}

// Deps carries the collaborators tasks are built from. Nil fields fall back
// to the implementations the configuration describes.
type Deps struct {
	Config   *config.Config
	Notifier Notifier
	Recorder metrics.Recorder
	Compiler style.Compiler
	AVIF     imgcodec.Encoder
	WebP     imgcodec.Encoder
}

func (d Deps) withDefaults() Deps {
	if d.Notifier == nil {
		d.Notifier = NoopNotifier{}
	}
	d.Recorder = metrics.OrNoop(d.Recorder)
	if d.Compiler == nil {
		loadPaths := make([]string, 0, len(d.Config.Styles.LoadPaths))
		for _, p := range d.Config.Styles.LoadPaths {
			loadPaths = append(loadPaths, d.Config.Path(p))
		}
		d.Compiler = &style.SassCompiler{Binary: d.Config.Styles.SassBinary, LoadPaths: loadPaths}
	}
	if d.AVIF == nil {
		d.AVIF = imgcodec.AVIF{Quality: d.Config.Images.AVIFQuality}
	}
	if d.WebP == nil {
		d.WebP = imgcodec.WebP{Quality: d.Config.Images.WebPQuality}
	}
	return d
}

// All returns every leaf task except watching, which the preview
// coordinator provides.
func All(d Deps) []graph.Task {
	d = d.withDefaults()
	return []graph.Task{
		NewStyles(d),
		NewScripts(d),
		NewImages(d),
		NewSprite(d),
		NewFonts(d),
		NewPages(d),
		NewClean(d),
		NewCollect(d),
	}
}

// Register adds tasks to reg.
func Register(reg *graph.Registry, tasks ...graph.Task) error {
	for _, t := range tasks {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// DefineComposites declares the configured composites on reg.
func DefineComposites(reg *graph.Registry, cfg *config.Config) error {
	for name, c := range cfg.Composites {
		var err error
		switch {
		case len(c.Parallel) > 0:
			err = reg.Define(name, graph.KindParallel, c.Parallel...)
		case len(c.Series) > 0:
			err = reg.Define(name, graph.KindSeries, c.Series...)
		default:
			err = aberrors.ValidationFailed("composites."+name, "needs parallel or series members")
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// base holds what every task shares.
type base struct {
	name     string
	cfg      *config.Config
	notifier Notifier
	rec      metrics.Recorder
}

func newBase(name string, d Deps) base {
	return base{name: name, cfg: d.Config, notifier: d.Notifier, rec: d.Recorder}
}

func (b base) Name() string { return b.name }

func (b base) resolve(spec fileset.Spec) ([]fileset.File, error) {
	files, err := fileset.Resolve(b.cfg.Root, spec)
	if err != nil {
		return nil, aberrors.FileSystemError("resolve", strings.Join(spec.Patterns, ","), err)
	}
	return files, nil
}

func (b base) read(f fileset.File) ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, aberrors.FileSystemError("read", f.Slash, err)
	}
	return data, nil
}

// concat reads files in order and joins them with fileset.Concat.
func (b base) concat(ctx context.Context, files []fileset.File) ([]byte, error) {
	parts := make([][]byte, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := b.read(f)
		if err != nil {
			return nil, err
		}
		parts = append(parts, data)
	}
	return fileset.Concat(parts...), nil
}

// write stores data at dest/rel and returns the root-relative slash path.
func (b base) write(dest, rel string, data []byte) (string, error) {
	target, err := fileset.WriteFile(b.cfg.Path(dest), rel, data)
	if err != nil {
		return "", aberrors.FileSystemError("write", rel, err)
	}
	return b.relPath(target), nil
}

func (b base) relPath(native string) string {
	rel, err := filepath.Rel(b.cfg.Path("."), native)
	if err != nil {
		return filepath.ToSlash(native)
	}
	return filepath.ToSlash(rel)
}

func (b base) done(written, skipped int) {
	b.rec.AddFilesWritten(b.name, written)
	b.rec.AddFilesSkipped(b.name, skipped)
	slog.Info("Wrote outputs", logfields.Task(b.name), logfields.Count(written), slog.Int("up_to_date", skipped))
}
