package commands

import (
	"fmt"
	"os"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/graph"
)

// VisualizeCmd implements the 'visualize' command.
type VisualizeCmd struct {
	Name   string `arg:"" optional:"" default:"default" help:"Task or composite to draw"`
	Format string `short:"f" default:"text" enum:"text,mermaid,dot,json" help:"Output format (text, mermaid, dot, json)"`
	Output string `short:"o" help:"Write to file instead of stdout"`
	List   bool   `short:"l" help:"List available formats and exit"`
}

func (v *VisualizeCmd) Run(_ *Global, root *CLI) error {
	if v.List {
		fmt.Println("Available visualization formats:")
		for _, f := range graph.SupportedFormats() {
			fmt.Printf("  %-8s %s\n", f, graph.FormatDescription(f))
		}
		return nil
	}

	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	p, err := newPipeline(cfg, false)
	if err != nil {
		return err
	}

	name := v.Name
	if name == "" {
		name = config.CompositeDefault
	}
	out, err := render(p, name, graph.VisualizationFormat(v.Format))
	if err != nil {
		return err
	}

	if v.Output == "" {
		fmt.Print(out)
		return nil
	}
	if err := os.WriteFile(v.Output, []byte(out), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Printf("Graph written to %s\n", v.Output)
	return nil
}

func render(p *pipeline, name string, format graph.VisualizationFormat) (string, error) {
	if err := p.checkNames(name); err != nil {
		return "", err
	}
	n, err := p.registry.Resolve(name)
	if err != nil {
		return "", err
	}
	return graph.Visualize(n, format)
}
