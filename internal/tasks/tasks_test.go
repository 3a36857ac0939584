package tasks

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	aberrors "git.home.luguber.info/inful/assetbuilder/internal/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/graph"
)

type fakeCompiler struct {
	err error
}

func (f fakeCompiler) Compile(_ context.Context, _ string, src []byte) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return src, nil
}

type fakeEncoder struct {
	ext   string
	mu    sync.Mutex
	calls int
}

func (e *fakeEncoder) Ext() string { return e.ext }

func (e *fakeEncoder) Encode(w io.Writer, img image.Image) error {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	_, err := io.WriteString(w, strings.ToUpper(strings.TrimPrefix(e.ext, "."))+" "+img.Bounds().String())
	return err
}

func (e *fakeEncoder) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type recordingNotifier struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNotifier) Notify(_ string, paths ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, paths...)
}

type fixture struct {
	root     string
	cfg      *config.Config
	notifier *recordingNotifier
	avif     *fakeEncoder
	webp     *fakeEncoder
	compiler fakeCompiler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	cfg := config.Defaults()
	cfg.Root = root
	return &fixture{
		root:     root,
		cfg:      cfg,
		notifier: &recordingNotifier{},
		avif:     &fakeEncoder{ext: ".avif"},
		webp:     &fakeEncoder{ext: ".webp"},
	}
}

func (f *fixture) deps() Deps {
	return Deps{Config: f.cfg, Notifier: f.notifier, Compiler: f.compiler, AVIF: f.avif, WebP: f.webp}
}

func (f *fixture) write(t *testing.T, rel string, data []byte) {
	t.Helper()
	p := filepath.Join(f.root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, data, 0o644))
}

func (f *fixture) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) exists(rel string) bool {
	_, err := os.Stat(filepath.Join(f.root, filepath.FromSlash(rel)))
	return err == nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestStyles_CompilesPrefixesAndMinifies(t *testing.T) {
	f := newFixture(t)
	f.write(t, "app/scss/style.scss", []byte(".btn {\n  user-select: none;\n  color: #ff0000;\n}\n"))

	require.NoError(t, NewStyles(f.deps()).Run(context.Background()))

	css := f.read(t, "app/css/style.min.css")
	assert.Contains(t, css, "-webkit-user-select:none")
	assert.Contains(t, css, ".btn{")
	assert.NotContains(t, css, "\n")
	assert.Equal(t, []string{"app/css/style.min.css"}, f.notifier.paths)
}

func TestStyles_Errors(t *testing.T) {
	f := newFixture(t)
	err := NewStyles(f.deps()).Run(context.Background())
	require.Error(t, err, "missing literal source")
	assert.True(t, aberrors.IsCategory(err, aberrors.CategoryFileSystem))

	f.write(t, "app/scss/style.scss", []byte("a{}"))
	f.compiler = fakeCompiler{err: errors.New("Undefined variable")}
	err = NewStyles(f.deps()).Run(context.Background())
	require.Error(t, err)
	assert.True(t, aberrors.IsCategory(err, aberrors.CategoryTransform))
	assert.False(t, f.exists("app/css/style.min.css"))
}

func TestScripts_ConcatenatesAndMinifies(t *testing.T) {
	f := newFixture(t)
	f.cfg.Scripts.Sources = []string{"app/js/vendor/*.js", "app/js/main.js"}
	f.write(t, "app/js/vendor/a.js", []byte("var first = 1;\n"))
	f.write(t, "app/js/main.js", []byte("function hello(name) {\n  return 'hi ' + name;\n}\n"))

	require.NoError(t, NewScripts(f.deps()).Run(context.Background()))

	js := f.read(t, "app/js/main.min.js")
	assert.Less(t, strings.Index(js, "first"), strings.Index(js, "hello"))
	assert.NotContains(t, js, "\n  return")
	assert.Equal(t, []string{"app/js/main.min.js"}, f.notifier.paths)
}

func TestPages_ExpandsComponents(t *testing.T) {
	f := newFixture(t)
	f.write(t, "app/components/header.html", []byte("<header>Site</header>"))
	f.write(t, "app/pages/index.html", []byte("<body>\n<!--=include header.html -->\n</body>\n"))
	f.write(t, "app/pages/about.html", []byte("@@include('header.html')<p>about</p>"))

	require.NoError(t, NewPages(f.deps()).Run(context.Background()))

	assert.Equal(t, "<body>\n<header>Site</header>\n</body>\n", f.read(t, "app/index.html"))
	assert.Equal(t, "<header>Site</header><p>about</p>", f.read(t, "app/about.html"))
	assert.ElementsMatch(t, []string{"app/index.html", "app/about.html"}, f.notifier.paths)

	f.write(t, "app/pages/broken.html", []byte("<!--=include missing.html -->"))
	err := NewPages(f.deps()).Run(context.Background())
	require.Error(t, err)
	assert.True(t, aberrors.IsCategory(err, aberrors.CategoryTransform))
}

func TestImages_BranchesAndNewerFilter(t *testing.T) {
	f := newFixture(t)
	f.write(t, "app/img/photo.png", pngBytes(t))
	f.write(t, "app/img/icon.svg", []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 4 4">  <rect width="4" height="4"/>  </svg>`))

	task := NewImages(f.deps())
	require.NoError(t, task.Run(context.Background()))

	assert.True(t, strings.HasPrefix(f.read(t, "app/img/src/photo.avif"), "AVIF"))
	assert.True(t, strings.HasPrefix(f.read(t, "app/img/src/photo.webp"), "WEBP"))
	assert.True(t, f.exists("app/img/src/photo.png"))
	assert.True(t, f.exists("app/img/src/icon.svg"))
	assert.False(t, f.exists("app/img/src/icon.webp"), "webp branch skips vector images")
	assert.False(t, f.exists("app/img/src/icon.avif"))
	assert.Equal(t, 1, f.avif.count())
	assert.Equal(t, 1, f.webp.count())

	// second run: everything up to date
	require.NoError(t, task.Run(context.Background()))
	assert.Equal(t, 1, f.avif.count())
	assert.Equal(t, 1, f.webp.count())

	// a touched source is processed again by every branch
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(f.root, "app/img/photo.png"), future, future))
	require.NoError(t, task.Run(context.Background()))
	assert.Equal(t, 2, f.avif.count())
	assert.Equal(t, 2, f.webp.count())
}

func TestImages_BranchFailureDoesNotStopOthers(t *testing.T) {
	f := newFixture(t)
	f.write(t, "app/img/broken.png", []byte("not a png"))
	f.write(t, "app/img/good.png", pngBytes(t))

	err := NewImages(f.deps()).Run(context.Background())
	require.Error(t, err)
	assert.True(t, aberrors.IsCategory(err, aberrors.CategoryTransform))
	assert.True(t, f.exists("app/img/src/good.avif"))
	assert.True(t, f.exists("app/img/src/good.webp"))
	assert.True(t, f.exists("app/img/src/good.png"))
}

func TestSprite_BuildsStackAndExample(t *testing.T) {
	f := newFixture(t)
	f.write(t, "app/img/home.svg", []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24"><path d="M0 0h24"/></svg>`))
	f.write(t, "app/img/cart.svg", []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16"><circle r="4"/></svg>`))

	require.NoError(t, NewSprite(f.deps()).Run(context.Background()))

	doc := f.read(t, "app/img/src/sprite.svg")
	assert.Contains(t, doc, `<svg id="cart" viewBox="0 0 16 16">`)
	assert.Contains(t, doc, `<svg id="home" viewBox="0 0 24 24">`)
	assert.Contains(t, f.read(t, "app/img/src/stack/sprite.stack.html"), `../sprite.svg#home`)
}

func TestSprite_NoIconsIsNoop(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, NewSprite(f.deps()).Run(context.Background()))
	assert.False(t, f.exists("app/img/src/sprite.svg"))
}

func TestFonts_ConvertsAndSkipsUnsupported(t *testing.T) {
	f := newFixture(t)
	f.write(t, "app/fonts/go.ttf", goregular.TTF)
	f.write(t, "app/fonts/legacy.eot", []byte("not really a font"))

	require.NoError(t, NewFonts(f.deps()).Run(context.Background()))

	assert.True(t, strings.HasPrefix(f.read(t, "app/fonts/src/go.woff"), "wOFF"))
	assert.True(t, strings.HasPrefix(f.read(t, "app/fonts/src/go.woff2"), "wOF2"))
	assert.True(t, f.exists("app/fonts/src/go.ttf"))
	assert.False(t, f.exists("app/fonts/src/legacy.woff"))
}

func TestClean(t *testing.T) {
	f := newFixture(t)
	clean := NewClean(f.deps())
	require.NoError(t, clean.Run(context.Background()), "absent build dir is a no-op")

	f.write(t, "build/stale.txt", []byte("x"))
	require.NoError(t, clean.Run(context.Background()))
	assert.False(t, f.exists("build"))
}

func listTree(t *testing.T, dir string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(dir, p)
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(out)
	return out
}

func TestBuildComposite_CollectsDeclaredArtifacts(t *testing.T) {
	f := newFixture(t)
	for _, rel := range []string{
		"app/css/style.min.css",
		"app/img/src/a.webp",
		"app/img/src/a.avif",
		"app/img/src/b.svg",
		"app/img/src/sprite.svg",
		"app/fonts/src/f.woff2",
		"app/js/main.js",
		"app/js/main.min.js",
		"app/index.html",
		"app/pages/index.html",
		"build/leftover.txt",
	} {
		f.write(t, rel, []byte(rel))
	}
	old := time.Now().Add(-48 * time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(filepath.Join(f.root, "app/index.html"), old, old))

	reg := graph.NewRegistry()
	require.NoError(t, Register(reg, All(f.deps())...))
	require.NoError(t, DefineComposites(reg, f.cfg))

	node, err := reg.Resolve(config.CompositeBuild)
	require.NoError(t, err)
	require.NoError(t, graph.NewRunner(0, nil).Run(context.Background(), node))

	assert.Equal(t, []string{
		"css/style.min.css",
		"fonts/src/f.woff2",
		"img/src/a.avif",
		"img/src/a.webp",
		"img/src/sprite.svg",
		"index.html",
		"js/main.min.js",
	}, listTree(t, filepath.Join(f.root, "build")))
	assert.Equal(t, "app/js/main.min.js", f.read(t, "build/js/main.min.js"))

	info, err := os.Stat(filepath.Join(f.root, "build/index.html"))
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(old), "collect keeps modification times")
}

func TestDefineComposites_DefaultNeedsWatching(t *testing.T) {
	f := newFixture(t)
	reg := graph.NewRegistry()
	require.NoError(t, Register(reg, All(f.deps())...))
	require.NoError(t, DefineComposites(reg, f.cfg))

	_, err := reg.Resolve(config.CompositeDefault)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default -> watching")

	require.NoError(t, reg.Register(graph.Func(config.TaskWatching, func(context.Context) error { return nil })))
	node, err := reg.Resolve(config.CompositeDefault)
	require.NoError(t, err)
	assert.Equal(t, graph.KindParallel, node.Kind)
	assert.Len(t, node.Children, 7)
}

func seedSources(t *testing.T, f *fixture) {
	t.Helper()
	f.write(t, "app/scss/style.scss", []byte(".i {\n  mask-image: url(\"data:image/svg+xml;utf8,<svg/>\");\n  user-select: none;\n}\n"))
	f.write(t, "app/js/main.js", []byte("function hello(name) {\n  return 'hi ' + name;\n}\n"))
	f.write(t, "app/img/photo.png", pngBytes(t))
	f.write(t, "app/img/home.svg", []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24"><path d="M0 0h24"/></svg>`))
	f.write(t, "app/fonts/go.ttf", goregular.TTF)
	f.write(t, "app/components/header.html", []byte("<header>Site</header>"))
	f.write(t, "app/pages/index.html", []byte("<body><!--=include header.html --></body>"))
}

func snapshot(t *testing.T, dir string) map[string]string {
	t.Helper()
	out := map[string]string{}
	for _, rel := range listTree(t, dir) {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		require.NoError(t, err)
		out[rel] = string(data)
	}
	return out
}

func TestLeafTasks_RerunIsByteIdentical(t *testing.T) {
	cases := []struct {
		name string
		task func(Deps) graph.Task
		dir  string
	}{
		{"styles", func(d Deps) graph.Task { return NewStyles(d) }, "app/css"},
		{"scripts", func(d Deps) graph.Task { return NewScripts(d) }, "app/js"},
		{"images", func(d Deps) graph.Task { return NewImages(d) }, "app/img/src"},
		{"sprite", func(d Deps) graph.Task { return NewSprite(d) }, "app/img/src"},
		{"fonts", func(d Deps) graph.Task { return NewFonts(d) }, "app/fonts/src"},
		{"pages", func(d Deps) graph.Task { return NewPages(d) }, "app"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			seedSources(t, f)
			dir := filepath.Join(f.root, filepath.FromSlash(tc.dir))

			require.NoError(t, tc.task(f.deps()).Run(context.Background()))
			first := snapshot(t, dir)
			require.NotEmpty(t, first)

			require.NoError(t, tc.task(f.deps()).Run(context.Background()))
			assert.Equal(t, first, snapshot(t, dir))
		})
	}
}

func TestBuildComposite_RerunIsByteIdentical(t *testing.T) {
	f := newFixture(t)
	seedSources(t, f)

	reg := graph.NewRegistry()
	require.NoError(t, Register(reg, All(f.deps())...))
	require.NoError(t, reg.Register(graph.Func(config.TaskWatching, func(context.Context) error { return nil })))
	require.NoError(t, DefineComposites(reg, f.cfg))
	runner := graph.NewRunner(0, nil)

	assets, err := reg.Resolve(config.CompositeDefault)
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background(), assets))

	build, err := reg.Resolve(config.CompositeBuild)
	require.NoError(t, err)
	buildDir := filepath.Join(f.root, "build")

	require.NoError(t, runner.Run(context.Background(), build))
	first := snapshot(t, buildDir)
	assert.Contains(t, first, "css/style.min.css")
	assert.Contains(t, first, "img/src/sprite.svg")
	assert.Contains(t, first, "index.html")

	require.NoError(t, runner.Run(context.Background(), build))
	assert.Equal(t, first, snapshot(t, buildDir))
}
