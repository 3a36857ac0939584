package config

import "time"

// Defaults returns the built-in layout:
//
//	app/scss/style.scss      -> app/css/style.min.css
//	app/js/main.js           -> app/js/main.min.js
//	app/img/*                -> app/img/src/ (avif, webp, optimized, sprite.svg)
//	app/fonts/*              -> app/fonts/src/
//	app/pages/*.html         -> app/*.html (fragments from app/components)
//	collected artifacts      -> build/
func Defaults() *Config {
	return &Config{
		Root: ".",
		Styles: StylesConfig{
			Sources:    []string{"app/scss/style.scss"},
			Dest:       "app/css",
			Output:     "style.min.css",
			SassBinary: "sass",
			Prefix:     true,
		},
		Scripts: ScriptsConfig{
			Sources: []string{"app/js/main.js"},
			Dest:    "app/js",
			Output:  "main.min.js",
		},
		Images: ImagesConfig{
			AVIFSources: []string{"app/img/*.png", "app/img/*.jpg"},
			Sources:     []string{"app/img/*.*"},
			Dest:        "app/img/src",
			AVIFQuality: 50,
			WebPQuality: 75,
			JPEGQuality: 80,
		},
		Sprite: SpriteConfig{
			Sources: []string{"app/img/*.svg"},
			Dest:    "app/img/src",
			Output:  "sprite.svg",
			Example: true,
		},
		Fonts: FontsConfig{
			Sources: []string{"app/fonts/*.*"},
			Dest:    "app/fonts/src",
			Formats: []string{"woff", "ttf", "woff2"},
		},
		Pages: PagesConfig{
			Sources:      []string{"app/pages/*.html"},
			Dest:         "app",
			IncludePaths: []string{"app/components"},
		},
		Build: BuildConfig{
			Clean: "build",
			Dest:  "build",
			Base:  "app",
			Artifacts: []string{
				"app/css/style.min.css",
				"app/img/src/*.*",
				"!app/img/src/*.svg",
				"app/img/src/sprite.svg",
				"app/fonts/src/*.*",
				"app/js/main.min.js",
				"app/*.html",
			},
			AllowEmpty: true,
		},
		Server: ServerConfig{
			BaseDir:    "app",
			Host:       "localhost",
			Port:       3000,
			LiveReload: true,
			Debounce:   100 * time.Millisecond,
		},
		Watch: []WatchBinding{
			{Paths: []string{"app/scss/style.scss"}, Task: TaskStyles},
			{Paths: []string{"app/img/*"}, Task: TaskImages},
			{Paths: []string{"app/js/main.js"}, Task: TaskScripts},
			{Paths: []string{"app/components/*", "app/pages/*"}, Task: TaskPages},
			{Paths: []string{"app/*.html"}, Reload: true},
		},
		Composites: map[string]CompositeConfig{
			CompositeDefault: {Parallel: []string{
				TaskImages, TaskFonts, TaskSprite, TaskStyles, TaskScripts, TaskPages, TaskWatching,
			}},
			CompositeBuild: {Series: []string{TaskClean, TaskCollect}},
		},
	}
}
