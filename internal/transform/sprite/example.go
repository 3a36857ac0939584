package sprite

import (
	"bytes"
	"html/template"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var exampleTmpl = template.Must(template.New("example").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>SVG stack sprite</title>
<style>
body{font-family:sans-serif;margin:2rem}
ul{list-style:none;display:flex;flex-wrap:wrap;gap:1.5rem;padding:0}
li{text-align:center;width:8rem}
img{width:3rem;height:3rem}
code{display:block;font-size:.75rem;margin-top:.5rem}
</style>
</head>
<body>
<h1>SVG stack sprite</h1>
<p>{{len .Icons}} icons in <code>{{.Sprite}}</code></p>
<ul>
{{- range .Icons}}
<li><img src="{{$.Sprite}}#{{.ID}}" alt="{{.Label}}"><strong>{{.Label}}</strong><code>#{{.ID}}</code></li>
{{- end}}
</ul>
</body>
</html>
`))

type exampleIcon struct {
	ID    string
	Label string
}

// Example renders an HTML page showing every icon of the sprite, which is
// referenced from the page as spriteURL.
func (Stack) Example(spriteURL string, ids []string) ([]byte, error) {
	caser := cases.Title(language.English)
	icons := make([]exampleIcon, 0, len(ids))
	for _, id := range ids {
		id = SanitizeID(id)
		label := strings.NewReplacer("-", " ", "_", " ").Replace(id)
		icons = append(icons, exampleIcon{ID: id, Label: caser.String(label)})
	}
	sort.Slice(icons, func(i, j int) bool { return icons[i].ID < icons[j].ID })

	var buf bytes.Buffer
	err := exampleTmpl.Execute(&buf, struct {
		Sprite string
		Icons  []exampleIcon
	}{Sprite: spriteURL, Icons: icons})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
