package tasks

import (
	"context"
	"log/slog"
	"path"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	aberrors "git.home.luguber.info/inful/assetbuilder/internal/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/transform/sprite"
)

// ExamplePage is where the sprite preview page is written, below the sprite
// destination.
const ExamplePage = "stack/sprite.stack.html"

// Sprite assembles the SVG icons into one stack sprite.
type Sprite struct {
	base
	stack sprite.Stack
}

func NewSprite(d Deps) *Sprite {
	return &Sprite{base: newBase(config.TaskSprite, d.withDefaults())}
}

func (t *Sprite) Run(ctx context.Context) error {
	sc := t.cfg.Sprite
	files, err := t.resolve(fileset.Spec{Patterns: sc.Sources, AllowEmpty: true})
	if err != nil {
		return err
	}
	if len(files) == 0 {
		slog.Info("No SVG icons found", logfields.Task(t.name))
		return nil
	}

	icons := make([]sprite.Icon, 0, len(files))
	ids := make([]string, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := t.read(f)
		if err != nil {
			return err
		}
		icons = append(icons, sprite.Icon{ID: f.Stem(), Data: data})
		ids = append(ids, f.Stem())
	}

	doc, err := t.stack.Build(icons)
	if err != nil {
		return aberrors.TransformFailed(t.name, sc.Output, err)
	}
	if _, err := t.write(sc.Dest, sc.Output, doc); err != nil {
		return err
	}
	written := 1

	if sc.Example {
		// the page lives one directory below the sprite
		page, err := t.stack.Example(path.Join("..", sc.Output), ids)
		if err != nil {
			return aberrors.TransformFailed(t.name, ExamplePage, err)
		}
		if _, err := t.write(sc.Dest, ExamplePage, page); err != nil {
			return err
		}
		written++
	}
	t.done(written, 0)
	return nil
}
