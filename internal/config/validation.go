package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	aerrors "git.home.luguber.info/inful/assetbuilder/internal/errors"
)

// Validate checks the configuration for values that would make a task or the
// dev server misbehave. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, reason string) {
		errs = append(errs, aerrors.ValidationFailed(field, reason))
	}

	if c.Concurrency < 0 {
		add("concurrency", "must be >= 0")
	}

	checkTask := func(name string, sources []string, dest, output string) {
		if len(sources) == 0 {
			add(name+".sources", "at least one pattern required")
		}
		if strings.TrimSpace(dest) == "" {
			add(name+".dest", "required")
		}
		if output != "" {
			out := filepath.ToSlash(filepath.Join(dest, output))
			if slices.Contains(sources, out) {
				add(name+".output", "output would overwrite its own source "+out)
			}
		}
	}
	checkTask(TaskStyles, c.Styles.Sources, c.Styles.Dest, c.Styles.Output)
	checkTask(TaskScripts, c.Scripts.Sources, c.Scripts.Dest, c.Scripts.Output)
	checkTask(TaskImages, c.Images.Sources, c.Images.Dest, "")
	checkTask(TaskSprite, c.Sprite.Sources, c.Sprite.Dest, c.Sprite.Output)
	checkTask(TaskFonts, c.Fonts.Sources, c.Fonts.Dest, "")
	checkTask(TaskPages, c.Pages.Sources, c.Pages.Dest, "")

	if c.Styles.Output == "" {
		add("styles.output", "required")
	}
	if c.Scripts.Output == "" {
		add("scripts.output", "required")
	}
	if c.Sprite.Output == "" {
		add("sprite.output", "required")
	}

	for field, q := range map[string]int{
		"images.avif_quality": c.Images.AVIFQuality,
		"images.webp_quality": c.Images.WebPQuality,
		"images.jpeg_quality": c.Images.JPEGQuality,
	} {
		if q < 1 || q > 100 {
			add(field, fmt.Sprintf("must be within 1..100, got %d", q))
		}
	}

	for _, f := range c.Fonts.Formats {
		if f != "woff" && f != "woff2" && f != "ttf" {
			add("fonts.formats", "unsupported format "+f)
		}
	}

	if err := c.validateCleanTarget(); err != nil {
		add("build.clean", err.Error())
	}
	if c.Build.Dest == "" {
		add("build.dest", "required")
	}
	if len(c.Build.Artifacts) == 0 {
		add("build.artifacts", "at least one pattern required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port", fmt.Sprintf("must be within 1..65535, got %d", c.Server.Port))
	}
	if c.Server.Debounce < 0 {
		add("server.debounce", "must be >= 0")
	}
	if c.Server.BaseDir == "" {
		add("server.base_dir", "required")
	}

	known := c.knownNames()
	for i, w := range c.Watch {
		field := fmt.Sprintf("watch[%d]", i)
		if len(w.Paths) == 0 {
			add(field+".paths", "at least one pattern required")
		}
		switch {
		case w.Reload && w.Task != "":
			add(field, "reload bindings cannot also name a task")
		case !w.Reload && w.Task == "":
			add(field, "binding needs a task or reload: true")
		case w.Task != "" && !known[w.Task]:
			add(field+".task", "unknown task "+w.Task)
		case w.Task == TaskWatching:
			add(field+".task", "watching cannot be bound to a watch")
		}
	}

	for name, comp := range c.Composites {
		field := "composites." + name
		if slices.Contains(TaskNames, name) {
			add(field, "name collides with a built-in task")
		}
		if (len(comp.Parallel) == 0) == (len(comp.Series) == 0) {
			add(field, "exactly one of parallel or series must be set")
		}
		for _, member := range append(slices.Clone(comp.Parallel), comp.Series...) {
			if !known[member] {
				add(field, "unknown member "+member)
			}
		}
	}

	return errors.Join(errs...)
}

func (c *Config) knownNames() map[string]bool {
	known := make(map[string]bool, len(TaskNames)+len(c.Composites))
	for _, n := range TaskNames {
		known[n] = true
	}
	for n := range c.Composites {
		known[n] = true
	}
	return known
}

// validateCleanTarget refuses clean targets that would remove the working
// root or anything outside it.
func (c *Config) validateCleanTarget() error {
	target := filepath.Clean(filepath.FromSlash(c.Build.Clean))
	if c.Build.Clean == "" || target == "." {
		return errors.New("must name a directory below root")
	}
	if filepath.IsAbs(target) || target == ".." || strings.HasPrefix(target, ".."+string(filepath.Separator)) {
		return errors.New("must stay inside root")
	}
	return nil
}
