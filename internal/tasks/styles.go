package tasks

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	aberrors "git.home.luguber.info/inful/assetbuilder/internal/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/transform/style"
)

// Styles compiles the stylesheet sources into one minified CSS file.
type Styles struct {
	base
	pipeline style.Pipeline
}

func NewStyles(d Deps) *Styles {
	d = d.withDefaults()
	return &Styles{
		base:     newBase(config.TaskStyles, d),
		pipeline: style.Pipeline{Compiler: d.Compiler, Prefix: d.Config.Styles.Prefix},
	}
}

func (t *Styles) Run(ctx context.Context) error {
	sc := t.cfg.Styles
	files, err := t.resolve(fileset.Spec{Patterns: sc.Sources, AllowEmpty: sc.AllowEmpty})
	if err != nil {
		return err
	}
	if len(files) == 0 {
		slog.Warn("No stylesheet sources", logfields.Task(t.name))
		return nil
	}

	// Sources are joined before compilation so later files see the
	// variables and mixins of earlier ones.
	src, err := t.concat(ctx, files)
	if err != nil {
		return err
	}
	css, err := t.pipeline.Process(ctx, files[0].Path, src)
	if err != nil {
		return aberrors.TransformFailed(t.name, files[0].Slash, err)
	}

	written, err := t.write(sc.Dest, sc.Output, css)
	if err != nil {
		return err
	}
	t.done(1, 0)
	t.notifier.Notify(t.name, written)
	return nil
}
