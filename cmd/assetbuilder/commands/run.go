package commands

// RunCmd implements the 'run' command.
type RunCmd struct {
	Names []string `arg:"" name:"name" help:"Task or composite names, run in order"`
}

func (r *RunCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	p, err := newPipeline(cfg, false)
	if err != nil {
		return err
	}
	return p.runNamed(r.Names...)
}
