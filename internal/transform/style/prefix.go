package style

import (
	"bytes"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// propertyPrefixes lists properties that still need vendor-prefixed copies
// for the last ten versions of the major browsers.
var propertyPrefixes = map[string][]string{
	"user-select":          {"-webkit-", "-moz-", "-ms-"},
	"appearance":           {"-webkit-", "-moz-"},
	"backdrop-filter":      {"-webkit-"},
	"text-size-adjust":     {"-webkit-", "-moz-", "-ms-"},
	"hyphens":              {"-webkit-", "-ms-"},
	"mask":                 {"-webkit-"},
	"mask-image":           {"-webkit-"},
	"clip-path":            {"-webkit-"},
	"box-decoration-break": {"-webkit-"},
	"tab-size":             {"-moz-"},
}

const stickyPrefixed = "-webkit-sticky"

// declaration is one parsed declaration located in the source.
type declaration struct {
	block int
	name  string
	value string
	start int // first byte of the property name
	end   int // end of the declaration body, before ';' or '}'
}

// Prefix inserts vendor-prefixed copies before each matching declaration.
// The unprefixed declaration is kept last so it wins where supported, and
// prefixes the block already declares are not repeated. Everything outside
// the touched declarations is copied byte for byte.
func Prefix(src []byte) []byte {
	decls, declared := scanDeclarations(src)

	var out bytes.Buffer
	last := 0
	for _, d := range decls {
		insert := prefixedCopies(src, d, declared[d.block])
		if insert == "" {
			continue
		}
		out.Write(src[last:d.start])
		out.WriteString(insert)
		last = d.start
	}
	if out.Len() == 0 {
		return src
	}
	out.Write(src[last:])
	return out.Bytes()
}

func prefixedCopies(src []byte, d declaration, seen map[string]bool) string {
	if d.name == "position" {
		if d.value != "sticky" || seen["position:"+stickyPrefixed] {
			return ""
		}
		return "position:" + stickyPrefixed + ";"
	}

	prefixes, ok := propertyPrefixes[d.name]
	if !ok {
		return ""
	}
	rest := src[d.start+len(d.name) : d.end]
	var b bytes.Buffer
	for _, p := range prefixes {
		if seen[p+d.name] {
			continue
		}
		b.WriteString(p)
		b.WriteString(d.name)
		b.Write(rest)
		b.WriteByte(';')
	}
	return b.String()
}

// scanDeclarations walks the grammar stream and returns the candidate
// declarations in source order, plus the names (and position values)
// declared per block.
func scanDeclarations(src []byte) ([]declaration, map[int]map[string]bool) {
	buf := append(make([]byte, 0, len(src)+1), src...)
	p := css.NewParser(parse.NewInputBytes(buf), false)

	var decls []declaration
	declared := map[int]map[string]bool{}
	block, prev := 0, 0
	for {
		gt, _, data := p.Next()
		off := p.Offset()
		switch gt {
		case css.ErrorGrammar:
			if !p.HasParseError() {
				return decls, declared
			}
		case css.BeginRulesetGrammar, css.BeginAtRuleGrammar:
			block++
		case css.DeclarationGrammar:
			name := string(data)
			values := p.Values()
			seen := declared[block]
			if seen == nil {
				seen = map[string]bool{}
				declared[block] = seen
			}
			seen[name] = true
			value := singleIdent(values)
			if name == "position" && value != "" {
				seen["position:"+value] = true
			}

			_, wanted := propertyPrefixes[name]
			if (wanted || name == "position") && !hasBlock(values) {
				if start := nameStart(src, prev, off, name); start >= 0 {
					decls = append(decls, declaration{
						block: block,
						name:  name,
						value: value,
						start: start,
						end:   bodyEnd(src, start, off),
					})
				}
			}
		}
		prev = off
	}
}

// singleIdent returns the lowercased value when it is one identifier.
func singleIdent(values []css.Token) string {
	if len(values) != 1 || values[0].TokenType != css.IdentToken {
		return ""
	}
	return string(bytes.ToLower(values[0].Data))
}

// hasBlock reports a brace inside the value, which means the parser read a
// nested rule as a declaration.
func hasBlock(values []css.Token) bool {
	for _, v := range values {
		if v.TokenType == css.LeftBraceToken || v.TokenType == css.RightBraceToken {
			return true
		}
	}
	return false
}

// nameStart finds the property name in src[from:to], skipping the
// whitespace, comments and stray semicolons in front of it.
func nameStart(src []byte, from, to int, name string) int {
	i := from
	for i < to {
		switch {
		case src[i] == ' ' || src[i] == '\t' || src[i] == '\n' || src[i] == '\r' || src[i] == '\f' || src[i] == ';':
			i++
		case bytes.HasPrefix(src[i:to], []byte("/*")):
			end := bytes.Index(src[i+2:to], []byte("*/"))
			if end < 0 {
				return -1
			}
			i += end + 4
		default:
			if i+len(name) <= to && bytes.EqualFold(src[i:i+len(name)], []byte(name)) {
				return i
			}
			return -1
		}
	}
	return -1
}

// bodyEnd trims the terminator and trailing whitespace off src[start:to].
func bodyEnd(src []byte, start, to int) int {
	end := to
	if end > start && (src[end-1] == ';' || src[end-1] == '}') {
		end--
	}
	for end > start && (src[end-1] == ' ' || src[end-1] == '\t' || src[end-1] == '\n' || src[end-1] == '\r' || src[end-1] == '\f') {
		end--
	}
	return end
}
