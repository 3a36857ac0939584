package commands

import (
	"fmt"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
)

// DevCmd implements the 'dev' command.
type DevCmd struct {
	Host         string `help:"Override the dev server host"`
	Port         int    `short:"p" help:"Override the dev server port"`
	NoLiveReload bool   `name:"no-livereload" help:"Serve without injecting the live reload client"`
	Composite    string `arg:"" optional:"" default:"default" help:"Composite to run"`
}

func (d *DevCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	if d.Host != "" {
		cfg.Server.Host = d.Host
	}
	if d.Port != 0 {
		cfg.Server.Port = d.Port
	}
	if d.NoLiveReload {
		cfg.Server.LiveReload = false
	}

	p, err := newPipeline(cfg, true)
	if err != nil {
		return err
	}
	go func() {
		addr, ok := <-p.coordinator.Addr()
		if ok {
			fmt.Printf("Serving %s at http://%s/\n", cfg.Path(cfg.Server.BaseDir), addr)
		}
	}()

	name := d.Composite
	if name == "" {
		name = config.CompositeDefault
	}
	return p.runNamed(name)
}
