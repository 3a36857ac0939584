package tasks

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	aberrors "git.home.luguber.info/inful/assetbuilder/internal/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/transform/script"
)

// Scripts concatenates and minifies the script sources.
type Scripts struct {
	base
}

func NewScripts(d Deps) *Scripts {
	return &Scripts{base: newBase(config.TaskScripts, d.withDefaults())}
}

func (t *Scripts) Run(ctx context.Context) error {
	sc := t.cfg.Scripts
	files, err := t.resolve(fileset.Spec{Patterns: sc.Sources, AllowEmpty: sc.AllowEmpty})
	if err != nil {
		return err
	}
	if len(files) == 0 {
		slog.Warn("No script sources", logfields.Task(t.name))
		return nil
	}

	bundle, err := t.concat(ctx, files)
	if err != nil {
		return err
	}

	out, err := script.Minify(bundle)
	if err != nil {
		return aberrors.TransformFailed(t.name, sc.Output, err)
	}
	written, err := t.write(sc.Dest, sc.Output, out)
	if err != nil {
		return err
	}
	t.done(1, 0)
	t.notifier.Notify(t.name, written)
	return nil
}
