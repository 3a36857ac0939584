package tasks

import (
	"context"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	aberrors "git.home.luguber.info/inful/assetbuilder/internal/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
	"git.home.luguber.info/inful/assetbuilder/internal/transform/include"
)

// Pages assembles HTML pages from their fragments.
type Pages struct {
	base
	includer *include.Includer
}

func NewPages(d Deps) *Pages {
	d = d.withDefaults()
	paths := make([]string, 0, len(d.Config.Pages.IncludePaths))
	for _, p := range d.Config.Pages.IncludePaths {
		paths = append(paths, d.Config.Path(p))
	}
	return &Pages{
		base:     newBase(config.TaskPages, d),
		includer: &include.Includer{Paths: paths},
	}
}

func (t *Pages) Run(ctx context.Context) error {
	pc := t.cfg.Pages
	files, err := t.resolve(fileset.Spec{Patterns: pc.Sources, AllowEmpty: true})
	if err != nil {
		return err
	}

	var written []string
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := t.read(f)
		if err != nil {
			return err
		}
		page, err := t.includer.Expand(f.Path, data)
		if err != nil {
			return aberrors.TransformFailed(t.name, f.Slash, err)
		}
		out, err := t.write(pc.Dest, f.Rel, page)
		if err != nil {
			return err
		}
		written = append(written, out)
	}
	t.done(len(written), 0)
	if len(written) > 0 {
		t.notifier.Notify(t.name, written...)
	}
	return nil
}
