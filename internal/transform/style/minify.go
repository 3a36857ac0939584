package style

import (
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
)

const mediaType = "text/css"

var minifier = func() *minify.M {
	m := minify.New()
	m.AddFunc(mediaType, css.Minify)
	return m
}()

// Minify compresses CSS. Invalid CSS is reported as an error.
func Minify(src []byte) ([]byte, error) {
	return minifier.Bytes(mediaType, src)
}
