package commands

import (
	"fmt"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct{}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	p, err := newPipeline(cfg, false)
	if err != nil {
		return err
	}
	if err := p.runNamed(config.CompositeBuild); err != nil {
		return err
	}
	fmt.Printf("Build complete: %s\n", cfg.Path(cfg.Build.Dest))
	return nil
}
