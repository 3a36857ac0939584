// Package script minifies JavaScript bundles.
package script

import (
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/js"
)

const mediaType = "application/javascript"

var minifier = func() *minify.M {
	m := minify.New()
	m.AddFunc(mediaType, js.Minify)
	return m
}()

// Minify compresses JavaScript. Syntax errors are returned as errors.
func Minify(src []byte) ([]byte, error) {
	return minifier.Bytes(mediaType, src)
}
