package graph

import (
	"encoding/json"
	"fmt"
	"strings"
)

// VisualizationFormat represents the output format for tree visualization.
type VisualizationFormat string

const (
	FormatText    VisualizationFormat = "text"
	FormatMermaid VisualizationFormat = "mermaid"
	FormatDOT     VisualizationFormat = "dot"
	FormatJSON    VisualizationFormat = "json"
)

// Visualize renders the tree rooted at n.
func Visualize(n *Node, format VisualizationFormat) (string, error) {
	switch format {
	case FormatText:
		return visualizeText(n), nil
	case FormatMermaid:
		return visualizeMermaid(n), nil
	case FormatDOT:
		return visualizeDOT(n), nil
	case FormatJSON:
		return visualizeJSON(n)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// SupportedFormats lists the formats Visualize accepts.
func SupportedFormats() []VisualizationFormat {
	return []VisualizationFormat{FormatText, FormatMermaid, FormatDOT, FormatJSON}
}

// FormatDescription returns a description of a visualization format.
func FormatDescription(format VisualizationFormat) string {
	descriptions := map[VisualizationFormat]string{
		FormatText:    "Human-readable tree",
		FormatMermaid: "Mermaid diagram (for GitHub, GitLab, etc.)",
		FormatDOT:     "Graphviz DOT format (render with `dot -Tpng tasks.dot -o tasks.png`)",
		FormatJSON:    "Structured JSON representation",
	}
	return descriptions[format]
}

func label(n *Node) string {
	if n.Kind == KindTask {
		return n.Name
	}
	return fmt.Sprintf("%s (%s)", n.Name, n.Kind)
}

func visualizeText(n *Node) string {
	var sb strings.Builder
	sb.WriteString(label(n) + "\n")
	writeTextChildren(&sb, n, "")
	return sb.String()
}

func writeTextChildren(sb *strings.Builder, n *Node, indent string) {
	for i, c := range n.Children {
		last := i == len(n.Children)-1
		prefix, next := "├── ", "│   "
		if last {
			prefix, next = "└── ", "    "
		}
		step := ""
		if n.Kind == KindSeries {
			step = fmt.Sprintf("%d. ", i+1)
		}
		sb.WriteString(indent + prefix + step + label(c) + "\n")
		writeTextChildren(sb, c, indent+next)
	}
}

// mermaidID sanitizes a name for use as a Mermaid node identifier.
func mermaidID(name string) string {
	id := strings.ReplaceAll(name, "_", "")
	return strings.ReplaceAll(id, "-", "")
}

func visualizeMermaid(n *Node) string {
	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("graph TD\n")

	seen := map[string]bool{}
	var walk func(*Node)
	walk = func(p *Node) {
		if !seen[p.Name] {
			seen[p.Name] = true
			shape := "[\"%s\"]"
			if p.Kind != KindTask {
				shape = "{{\"%s\"}}"
			}
			sb.WriteString(fmt.Sprintf("    %s"+shape+"\n", mermaidID(p.Name), label(p)))
		}
		for i, c := range p.Children {
			walk(c)
			if p.Kind == KindSeries {
				sb.WriteString(fmt.Sprintf("    %s -->|%d| %s\n", mermaidID(p.Name), i+1, mermaidID(c.Name)))
			} else {
				sb.WriteString(fmt.Sprintf("    %s --> %s\n", mermaidID(p.Name), mermaidID(c.Name)))
			}
		}
	}
	walk(n)

	sb.WriteString("```\n")
	return sb.String()
}

func visualizeDOT(n *Node) string {
	var sb strings.Builder
	sb.WriteString("digraph Tasks {\n")
	sb.WriteString("    rankdir=TB;\n")
	sb.WriteString("    node [shape=box, style=rounded];\n\n")

	seen := map[string]bool{}
	var walk func(*Node)
	walk = func(p *Node) {
		if !seen[p.Name] {
			seen[p.Name] = true
			if p.Kind != KindTask {
				sb.WriteString(fmt.Sprintf("    %q [shape=hexagon, label=%q];\n", p.Name, label(p)))
			}
		}
		for i, c := range p.Children {
			walk(c)
			if p.Kind == KindSeries {
				sb.WriteString(fmt.Sprintf("    %q -> %q [label=\"%d\"];\n", p.Name, c.Name, i+1))
			} else {
				sb.WriteString(fmt.Sprintf("    %q -> %q;\n", p.Name, c.Name))
			}
		}
	}
	walk(n)

	sb.WriteString("}\n")
	return sb.String()
}

type jsonNode struct {
	Name     string      `json:"name"`
	Kind     string      `json:"kind"`
	Children []*jsonNode `json:"children,omitempty"`
}

func toJSONNode(n *Node) *jsonNode {
	out := &jsonNode{Name: n.Name, Kind: n.Kind.String()}
	for _, c := range n.Children {
		out.Children = append(out.Children, toJSONNode(c))
	}
	return out
}

func visualizeJSON(n *Node) (string, error) {
	data, err := json.MarshalIndent(toJSONNode(n), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}
