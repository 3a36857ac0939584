package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ListCmd implements the 'list' command.
type ListCmd struct{}

func (l *ListCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	p, err := newPipeline(cfg, false)
	if err != nil {
		return err
	}
	printList(os.Stdout, p)
	return nil
}

func printList(w io.Writer, p *pipeline) {
	tasks, composites := p.registry.Names()

	_, _ = fmt.Fprintln(w, "Tasks:")
	for _, name := range tasks {
		_, _ = fmt.Fprintf(w, "  %s\n", name)
	}

	_, _ = fmt.Fprintln(w, "\nComposites:")
	for _, name := range composites {
		kind, members, _ := p.registry.Members(name)
		_, _ = fmt.Fprintf(w, "  %-10s %-8s %s\n", name, kind, strings.Join(members, ", "))
	}
}
