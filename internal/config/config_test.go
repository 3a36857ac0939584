package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aerrors "git.home.luguber.info/inful/assetbuilder/internal/errors"
)

func TestDefaults_MatchLayout(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, []string{"app/scss/style.scss"}, cfg.Styles.Sources)
	assert.Equal(t, "app/css", cfg.Styles.Dest)
	assert.Equal(t, "style.min.css", cfg.Styles.Output)
	assert.Equal(t, "app/js", cfg.Scripts.Dest)
	assert.Equal(t, "main.min.js", cfg.Scripts.Output)
	assert.Equal(t, "app/img/src", cfg.Images.Dest)
	assert.Equal(t, 50, cfg.Images.AVIFQuality)
	assert.Equal(t, "app/fonts/src", cfg.Fonts.Dest)
	assert.Equal(t, "app", cfg.Pages.Dest)
	assert.Equal(t, []string{"app/components"}, cfg.Pages.IncludePaths)
	assert.Equal(t, "build", cfg.Build.Dest)
	assert.Equal(t, "app", cfg.Build.Base)
	assert.Equal(t, "app", cfg.Server.BaseDir)
	assert.Equal(t, []string{TaskClean, TaskCollect}, cfg.Composites[CompositeBuild].Series)
	assert.Contains(t, cfg.Composites[CompositeDefault].Parallel, TaskWatching)
	require.NoError(t, cfg.Validate())
}

func TestParse_OverridesOnTopOfDefaults(t *testing.T) {
	t.Setenv("AB_PORT", "4000")
	cfg, err := Parse([]byte(`
server:
  port: ${AB_PORT}
  debounce: 250ms
styles:
  sources: [src/main.scss]
`))
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Server.Debounce)
	assert.Equal(t, []string{"src/main.scss"}, cfg.Styles.Sources)
	// untouched sections keep their defaults
	assert.Equal(t, "app/js", cfg.Scripts.Dest)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, ".", cfg.Root)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("server: [unterminated"))
	require.Error(t, err)
}

func TestLoad_MissingFileIsConfigError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, aerrors.IsCategory(err, aerrors.CategoryConfig))
}

func TestLoadOrDefault_FallsBackToDefaults(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestInit_WritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)

	err = Init(path, false)
	require.Error(t, err)
	require.NoError(t, Init(path, true))
}

func TestValidate_ReportsProblems(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"clean root", func(c *Config) { c.Build.Clean = "." }},
		{"clean escapes root", func(c *Config) { c.Build.Clean = "../elsewhere" }},
		{"output overwrites source", func(c *Config) { c.Scripts.Output = "main.js" }},
		{"unknown watch task", func(c *Config) { c.Watch = []WatchBinding{{Paths: []string{"a"}, Task: "nope"}} }},
		{"watch without action", func(c *Config) { c.Watch = []WatchBinding{{Paths: []string{"a"}}} }},
		{"composite both modes", func(c *Config) {
			c.Composites["x"] = CompositeConfig{Parallel: []string{TaskStyles}, Series: []string{TaskPages}}
		}},
		{"composite unknown member", func(c *Config) { c.Composites["x"] = CompositeConfig{Series: []string{"ghost"}} }},
		{"composite shadows task", func(c *Config) { c.Composites[TaskStyles] = CompositeConfig{Series: []string{TaskPages}} }},
		{"quality out of range", func(c *Config) { c.Images.AVIFQuality = 0 }},
		{"font format", func(c *Config) { c.Fonts.Formats = []string{"eot"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, aerrors.IsCategory(err, aerrors.CategoryValidation))
		})
	}
}

func TestConfigPath(t *testing.T) {
	cfg := Defaults()
	cfg.Root = "/work"
	assert.Equal(t, filepath.Join("/work", "app", "css"), cfg.Path("app/css"))
	assert.Equal(t, "/abs", cfg.Path("/abs"))
}

func TestLoadEnvFilesDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, os.WriteFile(".env", []byte("AB_FROM_ENV=file\nAB_KEEP=file\n"), 0o644))
	t.Setenv("AB_KEEP", "process")
	t.Setenv("AB_FROM_ENV", "")
	require.NoError(t, os.Unsetenv("AB_FROM_ENV"))

	loadEnvFiles()

	assert.Equal(t, "file", os.Getenv("AB_FROM_ENV"))
	assert.Equal(t, "process", os.Getenv("AB_KEEP"))
}
