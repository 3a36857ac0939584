// Package config loads the asset pipeline configuration: source globs and
// destinations per task, the clean/collect layout, dev server settings, watch
// bindings and composite definitions.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	aerrors "git.home.luguber.info/inful/assetbuilder/internal/errors"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "assetbuilder.yaml"

// Built-in leaf task names.
const (
	TaskStyles   = "styles"
	TaskScripts  = "scripts"
	TaskImages   = "images"
	TaskSprite   = "sprite"
	TaskFonts    = "fonts"
	TaskPages    = "pages"
	TaskWatching = "watching"
	TaskClean    = "clean"
	TaskCollect  = "collect"
)

// TaskNames lists every built-in leaf task.
var TaskNames = []string{
	TaskStyles, TaskScripts, TaskImages, TaskSprite, TaskFonts, TaskPages,
	TaskWatching, TaskClean, TaskCollect,
}

// Built-in composite names.
const (
	CompositeDefault = "default"
	CompositeBuild   = "build"
)

// Config represents the application configuration
type Config struct {
	// Root is the working directory all patterns and paths are relative to.
	Root        string                     `yaml:"root"`
	Concurrency int                        `yaml:"concurrency"` // 0 = unbounded parallel groups
	Styles      StylesConfig               `yaml:"styles"`
	Scripts     ScriptsConfig              `yaml:"scripts"`
	Images      ImagesConfig               `yaml:"images"`
	Sprite      SpriteConfig               `yaml:"sprite"`
	Fonts       FontsConfig                `yaml:"fonts"`
	Pages       PagesConfig                `yaml:"pages"`
	Build       BuildConfig                `yaml:"build"`
	Server      ServerConfig               `yaml:"server"`
	Watch       []WatchBinding             `yaml:"watch"`
	Composites  map[string]CompositeConfig `yaml:"composites"`
}

// StylesConfig configures the stylesheet task.
type StylesConfig struct {
	Sources    []string `yaml:"sources"`
	Dest       string   `yaml:"dest"`
	Output     string   `yaml:"output"`
	SassBinary string   `yaml:"sass_binary"`
	LoadPaths  []string `yaml:"load_paths,omitempty"`
	Prefix     bool     `yaml:"prefix"`
	AllowEmpty bool     `yaml:"allow_empty"`
}

// ScriptsConfig configures the script bundling task.
type ScriptsConfig struct {
	Sources    []string `yaml:"sources"`
	Dest       string   `yaml:"dest"`
	Output     string   `yaml:"output"`
	AllowEmpty bool     `yaml:"allow_empty"`
}

// ImagesConfig configures the three image branches.
type ImagesConfig struct {
	AVIFSources []string `yaml:"avif_sources"`
	Sources     []string `yaml:"sources"`
	Dest        string   `yaml:"dest"`
	AVIFQuality int      `yaml:"avif_quality"`
	WebPQuality int      `yaml:"webp_quality"`
	JPEGQuality int      `yaml:"jpeg_quality"`
}

// SpriteConfig configures the SVG sprite task.
type SpriteConfig struct {
	Sources []string `yaml:"sources"`
	Dest    string   `yaml:"dest"`
	Output  string   `yaml:"output"`
	Example bool     `yaml:"example"`
}

// FontsConfig configures font conversion.
type FontsConfig struct {
	Sources []string `yaml:"sources"`
	Dest    string   `yaml:"dest"`
	Formats []string `yaml:"formats"` // woff, woff2, ttf
}

// PagesConfig configures HTML page assembly.
type PagesConfig struct {
	Sources      []string `yaml:"sources"`
	Dest         string   `yaml:"dest"`
	IncludePaths []string `yaml:"include_paths"`
}

// BuildConfig configures the clean + collect composite.
type BuildConfig struct {
	Clean      string   `yaml:"clean"`
	Dest       string   `yaml:"dest"`
	Base       string   `yaml:"base"`
	Artifacts  []string `yaml:"artifacts"`
	AllowEmpty bool     `yaml:"allow_empty"`
}

// ServerConfig configures the development server.
type ServerConfig struct {
	BaseDir    string        `yaml:"base_dir"`
	Host       string        `yaml:"host"`
	Port       int           `yaml:"port"`
	LiveReload bool          `yaml:"live_reload"`
	Metrics    bool          `yaml:"metrics"`
	Debounce   time.Duration `yaml:"debounce"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// WatchBinding maps watched path patterns to a task, or to a full-page reload.
type WatchBinding struct {
	Paths  []string `yaml:"paths"`
	Task   string   `yaml:"task,omitempty"`
	Reload bool     `yaml:"reload,omitempty"`
}

// Name identifies the binding in logs and metrics.
func (w WatchBinding) Name() string {
	if w.Reload {
		return "reload"
	}
	return w.Task
}

// CompositeConfig declares a composite; exactly one of the lists is set.
type CompositeConfig struct {
	Parallel []string `yaml:"parallel,omitempty"`
	Series   []string `yaml:"series,omitempty"`
}

// Path resolves a slash-separated, root-relative path to a native path.
func (c *Config) Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.Root, filepath.FromSlash(rel))
}

// Load loads configuration from the specified file on top of Defaults.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, aerrors.ConfigNotFound(configPath)
		}
		return nil, aerrors.ConfigInvalid(configPath, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, aerrors.ConfigInvalid(configPath, err)
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to Defaults when the file
// does not exist.
func LoadOrDefault(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		loadEnvFiles()
		return Defaults(), nil
	}
	return Load(configPath)
}

// Parse decodes YAML (after ${VAR} expansion) over the defaults.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Root == "" {
		cfg.Root = "."
	}
	return cfg, nil
}

// Init creates a new configuration file with the default content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return aerrors.New(aerrors.CategoryConfig, aerrors.SeverityFatal,
			fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath))
	}

	data, err := Marshal(Defaults())
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return aerrors.FileSystemError("write config", configPath, err)
	}
	return nil
}

// Marshal renders cfg as YAML with a short header.
func Marshal(cfg *Config) ([]byte, error) {
	body, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	header := "# assetbuilder configuration\n# Paths are relative to root; ${VAR} references are expanded from the environment.\n"
	return append([]byte(header), body...), nil
}
