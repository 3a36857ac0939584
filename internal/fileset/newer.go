package fileset

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Newer is the change-detection filter: a source file is only (re)processed
// when its counterpart under Dir is missing or older than the source.
type Newer struct {
	Dir string
}

// Stale reports whether src must be processed to produce destRel (a
// slash-separated path below Dir). A destination with a modification time
// equal to or after the source is up to date.
func (n Newer) Stale(src File, destRel string) (bool, error) {
	info, err := os.Stat(filepath.Join(n.Dir, filepath.FromSlash(destRel)))
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return src.ModTime.After(info.ModTime()), nil
}
