package tasks

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	aberrors "git.home.luguber.info/inful/assetbuilder/internal/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
)

// Clean removes the build output directory.
type Clean struct {
	base
}

func NewClean(d Deps) *Clean {
	return &Clean{base: newBase(config.TaskClean, d.withDefaults())}
}

func (t *Clean) Run(context.Context) error {
	target := t.cfg.Path(t.cfg.Build.Clean)
	if _, err := os.Stat(target); errors.Is(err, fs.ErrNotExist) {
		slog.Debug("Nothing to clean", logfields.Task(t.name), logfields.Path(target))
		return nil
	}
	if err := os.RemoveAll(target); err != nil {
		return aberrors.FileSystemError("remove", target, err)
	}
	slog.Info("Removed build output", logfields.Task(t.name), logfields.Path(target))
	return nil
}

// Collect copies the declared artifacts into the build directory, keeping
// their paths relative to the build base.
type Collect struct {
	base
}

func NewCollect(d Deps) *Collect {
	return &Collect{base: newBase(config.TaskCollect, d.withDefaults())}
}

func (t *Collect) Run(ctx context.Context) error {
	bc := t.cfg.Build
	files, err := t.resolve(fileset.Spec{Patterns: bc.Artifacts, Base: bc.Base, AllowEmpty: bc.AllowEmpty})
	if err != nil {
		return err
	}

	dest := t.cfg.Path(bc.Dest)
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := filepath.Join(dest, filepath.FromSlash(f.Rel))
		if err := fileset.CopyFile(f.Path, target); err != nil {
			return aberrors.FileSystemError("copy", f.Slash, err)
		}
	}
	t.done(len(files), 0)
	return nil
}
