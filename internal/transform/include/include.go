// Package include expands fragment directives in HTML (and JS-style) sources:
//
//	<!--=include header.html -->
//	<!--=require analytics.html -->
//	//=include part.js
//	@@include('footer.html')
//
// Fragments are resolved against the including file's directory first, then
// against each include path. A require directive inlines its fragment at most
// once per expanded page.
package include

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	// ErrMissing is returned when a fragment cannot be found.
	ErrMissing = errors.New("fragment not found")
	// ErrCycle is returned when fragments include each other.
	ErrCycle = errors.New("include cycle")
)

var directiveRe = regexp.MustCompile(
	`<!--[ \t]*=[ \t]*(include|require)[ \t]+(.+?)[ \t]*-->` +
		`|//=[ \t]*(include|require)[ \t]+([^\s]+)` +
		`|@@include\([ \t]*['"]([^'"]+)['"][ \t]*\)`)

// Includer expands directives. The zero value resolves relative to the
// including file only.
type Includer struct {
	Paths []string
}

type expansion struct {
	in     *Includer
	active map[string]bool
	seen   map[string]bool
}

// Expand returns src (the contents of the file at path) with every directive
// replaced by its fragment.
func (in *Includer) Expand(path string, src []byte) ([]byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	e := &expansion{in: in, active: map[string]bool{abs: true}, seen: map[string]bool{abs: true}}
	return e.expand(abs, src)
}

func (e *expansion) expand(path string, src []byte) ([]byte, error) {
	matches := directiveRe.FindAllSubmatchIndex(src, -1)
	if len(matches) == 0 {
		return src, nil
	}

	var out bytes.Buffer
	last := 0
	for _, m := range matches {
		out.Write(src[last:m[0]])
		last = m[1]

		verb, name := directive(src, m)
		files, err := e.in.resolve(filepath.Dir(path), name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, f := range files {
			if verb == "require" && e.seen[f] {
				continue
			}
			if e.active[f] {
				return nil, fmt.Errorf("%w: %s -> %s", ErrCycle, path, f)
			}
			data, err := os.ReadFile(f)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			e.seen[f] = true
			e.active[f] = true
			expanded, err := e.expand(f, data)
			delete(e.active, f)
			if err != nil {
				return nil, err
			}
			out.Write(expanded)
		}
	}
	out.Write(src[last:])
	return out.Bytes(), nil
}

func directive(src []byte, m []int) (verb, name string) {
	switch {
	case m[2] >= 0:
		verb, name = string(src[m[2]:m[3]]), string(src[m[4]:m[5]])
	case m[6] >= 0:
		verb, name = string(src[m[6]:m[7]]), string(src[m[8]:m[9]])
	default:
		verb, name = "include", string(src[m[10]:m[11]])
	}
	return verb, strings.Trim(name, `"'`)
}

// resolve finds the fragment files for name, trying dir before the include paths.
// Glob names expand to every match in the first directory that has any.
func (in *Includer) resolve(dir, name string) ([]string, error) {
	candidates := append([]string{dir}, in.Paths...)
	glob := strings.ContainsAny(name, "*?[{")
	for _, base := range candidates {
		p := name
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, name)
		}
		if glob {
			found, err := doublestar.FilepathGlob(p, doublestar.WithFilesOnly())
			if err != nil {
				return nil, err
			}
			if len(found) > 0 {
				sort.Strings(found)
				for i := range found {
					if found[i], err = filepath.Abs(found[i]); err != nil {
						return nil, err
					}
				}
				return found, nil
			}
			continue
		}
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			abs, err := filepath.Abs(p)
			if err != nil {
				return nil, err
			}
			return []string{abs}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrMissing, name)
}
