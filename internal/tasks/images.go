package tasks

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	aberrors "git.home.luguber.info/inful/assetbuilder/internal/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/transform/imgcodec"
)

// Images runs three independent branches over the image sources: AVIF and
// WebP re-encoding and lossless optimization. Each branch skips sources whose
// own output is up to date.
type Images struct {
	base
	avif      imgcodec.Encoder
	webp      imgcodec.Encoder
	optimizer imgcodec.Optimizer
}

func NewImages(d Deps) *Images {
	d = d.withDefaults()
	return &Images{
		base:      newBase(config.TaskImages, d),
		avif:      d.AVIF,
		webp:      d.WebP,
		optimizer: imgcodec.Optimizer{JPEGQuality: d.Config.Images.JPEGQuality},
	}
}

// imageBranch turns one source into its output; a nil result skips the file.
type imageBranch struct {
	name     string
	patterns []string
	outName  func(f fileset.File) string
	convert  func(f fileset.File, data []byte) ([]byte, error)
}

func (t *Images) branches() []imageBranch {
	ic := t.cfg.Images
	encodeWith := func(enc imgcodec.Encoder) func(fileset.File, []byte) ([]byte, error) {
		return func(_ fileset.File, data []byte) ([]byte, error) {
			img, _, err := imgcodec.Decode(data)
			if err != nil {
				return nil, err
			}
			var buf bytes.Buffer
			if err := enc.Encode(&buf, img); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		}
	}
	renamed := func(ext string) func(fileset.File) string {
		return func(f fileset.File) string { return path.Join(path.Dir(f.Rel), f.Stem()+ext) }
	}

	return []imageBranch{
		{name: "avif", patterns: ic.AVIFSources, outName: renamed(t.avif.Ext()), convert: encodeWith(t.avif)},
		{name: "webp", patterns: ic.Sources, outName: renamed(t.webp.Ext()), convert: encodeWith(t.webp)},
		{
			name:     "optimize",
			patterns: ic.Sources,
			outName:  func(f fileset.File) string { return f.Rel },
			convert: func(f fileset.File, data []byte) ([]byte, error) {
				return t.optimizer.Optimize(f.Ext(), data)
			},
		},
	}
}

func (t *Images) Run(ctx context.Context) error {
	var errs []error
	written, skipped := 0, 0
	for _, b := range t.branches() {
		w, s, err := t.runBranch(ctx, b)
		written += w
		skipped += s
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			errs = append(errs, err)
		}
	}
	t.done(written, skipped)
	return errors.Join(errs...)
}

func (t *Images) runBranch(ctx context.Context, b imageBranch) (written, skipped int, err error) {
	files, err := t.resolve(fileset.Spec{Patterns: b.patterns, AllowEmpty: true})
	if err != nil {
		return 0, 0, err
	}

	newer := fileset.Newer{Dir: t.cfg.Path(t.cfg.Images.Dest)}
	var errs []error
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return written, skipped, err
		}
		if b.name == "webp" && !imgcodec.IsRaster(f.Ext()) {
			slog.Debug("Skipping non-raster image", logfields.Task(t.name), logfields.Branch(b.name), logfields.Path(f.Slash))
			continue
		}

		out := b.outName(f)
		stale, err := newer.Stale(f, out)
		if err != nil {
			errs = append(errs, aberrors.FileSystemError("stat", out, err))
			continue
		}
		if !stale {
			skipped++
			continue
		}

		data, err := t.read(f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		result, err := b.convert(f, data)
		if err != nil {
			errs = append(errs, aberrors.TransformFailed(t.name, f.Slash, err).WithContext("branch", b.name))
			continue
		}
		if _, err := t.write(t.cfg.Images.Dest, out, result); err != nil {
			errs = append(errs, err)
			continue
		}
		written++
		slog.Debug("Wrote image", logfields.Task(t.name), logfields.Branch(b.name), logfields.Path(out))
	}
	return written, skipped, errors.Join(errs...)
}
