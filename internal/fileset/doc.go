// Package fileset resolves source sets (ordered glob lists with negation),
// decides staleness against a destination mirror, and writes outputs.
//
// Patterns are slash-separated and relative to a working root. They are
// applied in order: a positive pattern appends its matches, a pattern
// starting with "!" removes matches collected so far. A later positive
// pattern can therefore re-add a file an earlier negation removed:
//
//	app/img/src/*.*
//	!app/img/src/*.svg
//	app/img/src/sprite.svg
package fileset
