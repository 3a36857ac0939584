package imgcodec

import (
	"image"
	"io"

	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"
)

// Encoder re-encodes a decoded image into another format.
type Encoder interface {
	// Ext is the output extension, with dot.
	Ext() string
	Encode(w io.Writer, img image.Image) error
}

// AVIF encodes lossy AVIF.
type AVIF struct {
	Quality int
}

func (AVIF) Ext() string { return ".avif" }

func (a AVIF) Encode(w io.Writer, img image.Image) error {
	return avif.Encode(w, img, avif.Options{
		Quality:      a.Quality,
		QualityAlpha: a.Quality,
		Speed:        8,
	})
}

// WebP encodes lossy WebP.
type WebP struct {
	Quality int
}

func (WebP) Ext() string { return ".webp" }

func (p WebP) Encode(w io.Writer, img image.Image) error {
	return webp.Encode(w, img, webp.Options{
		Quality: p.Quality,
		Method:  4,
	})
}
