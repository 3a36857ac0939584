package tasks

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"path/filepath"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	aberrors "git.home.luguber.info/inful/assetbuilder/internal/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/transform/font"
)

// Fonts converts each font source into the configured web font formats.
type Fonts struct {
	base
}

func NewFonts(d Deps) *Fonts {
	return &Fonts{base: newBase(config.TaskFonts, d.withDefaults())}
}

type fontFormat struct {
	ext    func(*font.Font) string
	encode func(*font.Font) ([]byte, error)
}

var fontFormats = map[string]fontFormat{
	"woff":  {ext: func(*font.Font) string { return ".woff" }, encode: font.EncodeWOFF},
	"woff2": {ext: func(*font.Font) string { return ".woff2" }, encode: font.EncodeWOFF2},
	"ttf":   {ext: (*font.Font).SFNTExt, encode: font.EncodeSFNT},
}

func (t *Fonts) Run(ctx context.Context) error {
	fc := t.cfg.Fonts
	files, err := t.resolve(fileset.Spec{Patterns: fc.Sources, AllowEmpty: true})
	if err != nil {
		return err
	}

	newer := fileset.Newer{Dir: t.cfg.Path(fc.Dest)}
	var errs []error
	written, skipped := 0, 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := t.read(f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		decoded, err := font.Decode(data)
		if errors.Is(err, font.ErrUnsupported) {
			slog.Warn("Skipping unsupported font", logfields.Task(t.name), logfields.Path(f.Slash), logfields.Error(err))
			continue
		}
		if err != nil {
			errs = append(errs, aberrors.TransformFailed(t.name, f.Slash, err))
			continue
		}

		for _, name := range fc.Formats {
			format, ok := fontFormats[name]
			if !ok {
				errs = append(errs, aberrors.ValidationFailed("fonts.formats", "unknown format "+name))
				continue
			}
			out := path.Join(path.Dir(f.Rel), f.Stem()+format.ext(decoded))
			if filepath.Join(newer.Dir, filepath.FromSlash(out)) == f.Path {
				// never overwrite the source itself
				continue
			}
			stale, err := newer.Stale(f, out)
			if err != nil {
				errs = append(errs, aberrors.FileSystemError("stat", out, err))
				continue
			}
			if !stale {
				skipped++
				continue
			}
			encoded, err := format.encode(decoded)
			if err != nil {
				errs = append(errs, aberrors.TransformFailed(t.name, f.Slash, err).WithContext("format", name))
				continue
			}
			if _, err := t.write(fc.Dest, out, encoded); err != nil {
				errs = append(errs, err)
				continue
			}
			written++
		}
	}
	t.done(written, skipped)
	return errors.Join(errs...)
}
