// Package sprite assembles SVG icons into a single "stack" sprite: every icon
// becomes a nested <svg> addressable by fragment (sprite.svg#icon) and only
// the :target icon is displayed.
package sprite

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// ErrDuplicateID is returned when two inputs map to the same fragment ID.
var ErrDuplicateID = errors.New("duplicate sprite id")

const stackStyle = `:root>svg{display:none}:root>svg:target{display:block}`

// Icon is one input SVG.
type Icon struct {
	ID   string
	Data []byte
}

// Stack builds stack-mode sprites.
type Stack struct{}

// Build parses every icon and renders the sprite document. Icons are emitted
// in ID order so the output does not depend on directory listing order.
func (Stack) Build(icons []Icon) ([]byte, error) {
	sorted := make([]Icon, len(icons))
	copy(sorted, icons)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	buf.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink">`)
	buf.WriteString(`<style>` + stackStyle + `</style>`)

	seen := map[string]bool{}
	for _, icon := range sorted {
		id := SanitizeID(icon.ID)
		if seen[id] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		seen[id] = true

		root, inner, ids, err := parseIcon(icon.Data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", icon.ID, err)
		}
		inner = namespaceIDs(inner, id, ids)
		buf.WriteString(`<svg id="`)
		_ = xml.EscapeText(&buf, []byte(id))
		buf.WriteByte('"')
		for _, a := range root {
			buf.WriteByte(' ')
			buf.WriteString(attrName(a.Name))
			buf.WriteString(`="`)
			_ = xml.EscapeText(&buf, []byte(a.Value))
			buf.WriteByte('"')
		}
		buf.WriteByte('>')
		buf.Write(bytes.TrimSpace(inner))
		buf.WriteString(`</svg>`)
	}
	buf.WriteString(`</svg>`)
	return buf.Bytes(), nil
}

// SanitizeID turns a file stem into a fragment-safe ID.
func SanitizeID(stem string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(stem) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

// namespaceIDs prefixes the IDs an icon defines, and the references to them,
// with the icon ID so two icons may both use id="a" inside one sprite.
// References to IDs the icon does not define are left alone.
func namespaceIDs(inner []byte, prefix string, ids []string) []byte {
	if len(ids) == 0 {
		return inner
	}
	var pairs []string
	for _, old := range ids {
		n := prefix + "_" + old
		for _, q := range []string{`"`, `'`} {
			for _, ws := range []string{" ", "\n", "\t"} {
				pairs = append(pairs, ws+"id="+q+old+q, ws+"id="+q+n+q)
			}
			pairs = append(pairs,
				q+"#"+old+q, q+"#"+n+q,
				"url("+q+"#"+old+q+")", "url("+q+"#"+n+q+")")
		}
		pairs = append(pairs, "url(#"+old+")", "url(#"+n+")")
	}
	return []byte(strings.NewReplacer(pairs...).Replace(string(inner)))
}

// parseIcon returns the kept attributes of the root <svg>, its raw inner
// markup and the IDs defined inside it.
func parseIcon(data []byte) ([]xml.Attr, []byte, []string, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	var (
		attrs      []xml.Attr
		ids        []string
		depth      int
		innerStart int64 = -1
	)
	for {
		offset := d.InputOffset()
		tok, err := d.RawToken()
		if errors.Is(err, io.EOF) {
			return nil, nil, nil, errors.New("invalid svg: no closed <svg> root element")
		}
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid svg: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if t.Name.Local != "svg" {
					return nil, nil, nil, fmt.Errorf("invalid svg: root element is <%s>", t.Name.Local)
				}
				attrs = keepAttrs(t.Attr)
				innerStart = d.InputOffset()
			} else {
				for _, a := range t.Attr {
					if a.Name.Space == "" && a.Name.Local == "id" && a.Value != "" {
						ids = append(ids, a.Value)
					}
				}
			}
			depth++
		case xml.EndElement:
			depth--
			if depth == 0 && innerStart >= 0 {
				return attrs, data[innerStart:offset], ids, nil
			}
		}
	}
}

func keepAttrs(in []xml.Attr) []xml.Attr {
	out := make([]xml.Attr, 0, len(in))
	for _, a := range in {
		switch {
		case a.Name.Space == "" && (a.Name.Local == "xmlns" || a.Name.Local == "id" || a.Name.Local == "version"):
		case a.Name.Space == "xmlns":
		default:
			out = append(out, a)
		}
	}
	return out
}

func attrName(n xml.Name) string {
	if n.Space != "" {
		return n.Space + ":" + n.Local
	}
	return n.Local
}
