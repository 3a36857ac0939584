package fileset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrNoMatch is returned for a literal pattern that names a missing file
// when empty matches are not allowed.
var ErrNoMatch = errors.New("file not found")

// Spec describes a source set.
type Spec struct {
	Patterns []string
	// Base, when set, is the directory Rel paths are computed from. Otherwise
	// each match is relative to the static prefix of the pattern that found it.
	Base       string
	AllowEmpty bool
}

// File is one resolved source file.
type File struct {
	Path    string // native path (root joined)
	Slash   string // root-relative, slash-separated
	Rel     string // relative to the base, slash-separated
	ModTime time.Time
	Mode    fs.FileMode
}

// Name returns the file's base name.
func (f File) Name() string { return path.Base(f.Rel) }

// Stem returns the base name without its extension.
func (f File) Stem() string {
	name := f.Name()
	return strings.TrimSuffix(name, path.Ext(name))
}

// Ext returns the lower-cased extension including the dot.
func (f File) Ext() string { return strings.ToLower(path.Ext(f.Rel)) }

// Resolve evaluates spec against root and returns the matched files in
// first-seen order.
func Resolve(root string, spec Spec) ([]File, error) {
	fsys := os.DirFS(root)
	var order []string
	bases := map[string]string{}

	for _, raw := range spec.Patterns {
		pattern, negate := strings.CutPrefix(raw, "!")
		pattern = cleanPattern(pattern)
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid pattern %q", raw)
		}

		if negate {
			order = slices.DeleteFunc(order, func(p string) bool {
				ok, _ := doublestar.Match(pattern, p)
				if ok {
					delete(bases, p)
				}
				return ok
			})
			continue
		}

		matches, err := match(fsys, root, pattern, spec.AllowEmpty)
		if err != nil {
			return nil, err
		}
		base, _ := doublestar.SplitPattern(pattern)
		for _, m := range matches {
			if _, seen := bases[m]; seen {
				continue
			}
			bases[m] = base
			order = append(order, m)
		}
	}

	files := make([]File, 0, len(order))
	for _, p := range order {
		native := filepath.Join(root, filepath.FromSlash(p))
		info, err := os.Stat(native)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		base := bases[p]
		if spec.Base != "" {
			base = cleanPattern(spec.Base)
		}
		files = append(files, File{
			Path:    native,
			Slash:   p,
			Rel:     relTo(base, p),
			ModTime: info.ModTime(),
			Mode:    info.Mode(),
		})
	}
	return files, nil
}

func match(fsys fs.FS, root, pattern string, allowEmpty bool) ([]string, error) {
	if !hasMeta(pattern) {
		info, err := os.Stat(filepath.Join(root, filepath.FromSlash(pattern)))
		switch {
		case err == nil && !info.IsDir():
			return []string{pattern}, nil
		case err == nil, errors.Is(err, fs.ErrNotExist):
			if allowEmpty {
				return nil, nil
			}
			return nil, fmt.Errorf("%w: %s", ErrNoMatch, pattern)
		default:
			return nil, err
		}
	}

	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	slices.Sort(matches)
	return matches, nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{\\")
}

func cleanPattern(p string) string {
	p = filepath.ToSlash(p)
	p = strings.TrimPrefix(p, "./")
	if p == "" {
		return "."
	}
	return p
}

// relTo returns p relative to base; files outside base keep only their name.
func relTo(base, p string) string {
	if base == "" || base == "." {
		return p
	}
	if rel, ok := strings.CutPrefix(p, strings.TrimSuffix(base, "/")+"/"); ok {
		return rel
	}
	return path.Base(p)
}

// Match reports whether the slash-separated, root-relative path matches any
// of the patterns (negations are ignored here).
func Match(patterns []string, slashPath string) bool {
	for _, raw := range patterns {
		if strings.HasPrefix(raw, "!") {
			continue
		}
		if ok, _ := doublestar.Match(cleanPattern(raw), slashPath); ok {
			return true
		}
	}
	return false
}

// StaticDirs returns the non-glob directory prefix of each pattern, and
// whether the pattern can match below that directory's direct children.
func StaticDirs(patterns []string) map[string]bool {
	dirs := map[string]bool{}
	for _, raw := range patterns {
		if strings.HasPrefix(raw, "!") {
			continue
		}
		pattern := cleanPattern(raw)
		base, rest := doublestar.SplitPattern(pattern)
		recursive := strings.Contains(rest, "**") || strings.Contains(rest, "/")
		dirs[base] = dirs[base] || recursive
	}
	return dirs
}
