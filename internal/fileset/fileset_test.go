package fileset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func rels(files []File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Rel)
	}
	return out
}

func TestResolve_GlobParentIsDefaultBase(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "app/img/b.png", "b")
	touch(t, root, "app/img/a.jpg", "a")
	touch(t, root, "app/img/src/ignored.png", "x")

	files, err := Resolve(root, Spec{Patterns: []string{"app/img/*.png", "app/img/*.jpg"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"b.png", "a.jpg"}, rels(files))
	assert.Equal(t, "app/img/b.png", files[0].Slash)
	assert.Equal(t, "b", files[0].Stem())
	assert.Equal(t, ".png", files[0].Ext())
}

func TestResolve_OrderedNegationAndReAdd(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "app/img/src/a.webp", "")
	touch(t, root, "app/img/src/icon.svg", "")
	touch(t, root, "app/img/src/sprite.svg", "")

	files, err := Resolve(root, Spec{
		Patterns: []string{"app/img/src/*.*", "!app/img/src/*.svg", "app/img/src/sprite.svg"},
		Base:     "app",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"img/src/a.webp", "img/src/sprite.svg"}, rels(files))
}

func TestResolve_BraceAndDoubleStar(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "app/fonts/a.ttf", "")
	touch(t, root, "app/fonts/nested/b.otf", "")
	touch(t, root, "app/fonts/readme.txt", "")

	files, err := Resolve(root, Spec{Patterns: []string{"app/fonts/**/*.{ttf,otf}"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.ttf", "nested/b.otf"}, rels(files))
}

func TestResolve_LiteralMissing(t *testing.T) {
	root := t.TempDir()

	_, err := Resolve(root, Spec{Patterns: []string{"app/js/main.js"}})
	require.ErrorIs(t, err, ErrNoMatch)

	files, err := Resolve(root, Spec{Patterns: []string{"app/js/main.js"}, AllowEmpty: true})
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestResolve_EmptyGlobIsNotAnError(t *testing.T) {
	files, err := Resolve(t.TempDir(), Spec{Patterns: []string{"app/img/*.png"}})
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestResolve_DuplicatesKeptOnce(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "app/img/a.png", "")

	files, err := Resolve(root, Spec{Patterns: []string{"app/img/*.png", "app/img/*.*"}})
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestNewer_Stale(t *testing.T) {
	root := t.TempDir()
	src := touch(t, root, "app/img/a.png", "png")
	dest := filepath.Join(root, "app/img/src")

	files, err := Resolve(root, Spec{Patterns: []string{"app/img/*.png"}})
	require.NoError(t, err)
	n := Newer{Dir: dest}

	stale, err := n.Stale(files[0], "a.avif")
	require.NoError(t, err)
	assert.True(t, stale, "missing destination is stale")

	out := touch(t, root, "app/img/src/a.avif", "avif")
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(src, past, past))
	files, err = Resolve(root, Spec{Patterns: []string{"app/img/*.png"}})
	require.NoError(t, err)
	stale, err = n.Stale(files[0], "a.avif")
	require.NoError(t, err)
	assert.False(t, stale, "newer destination is up to date")

	older := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(out, older, older))
	stale, err = n.Stale(files[0], "a.avif")
	require.NoError(t, err)
	assert.True(t, stale, "older destination is stale")

	require.NoError(t, os.Chtimes(out, past, past))
	stale, err = n.Stale(files[0], "a.avif")
	require.NoError(t, err)
	assert.False(t, stale, "equal modification time is up to date")
}

func TestWriteFile_CreatesAndOverwrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "app", "css")

	target, err := WriteFile(dir, "style.min.css", []byte("a{}"))
	require.NoError(t, err)
	_, err = WriteFile(dir, "style.min.css", []byte("b{}"))
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "b{}", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestCopyFile_PreservesModTime(t *testing.T) {
	root := t.TempDir()
	src := touch(t, root, "a.txt", "hello")
	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(src, past, past))

	dst := filepath.Join(root, "out", "nested", "a.txt")
	require.NoError(t, CopyFile(src, dst))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(past))
}

func TestMatchAndStaticDirs(t *testing.T) {
	patterns := []string{"app/components/*", "app/pages/**/*.html", "!app/pages/draft.html"}

	assert.True(t, Match(patterns, "app/components/header.html"))
	assert.True(t, Match(patterns, "app/pages/blog/post.html"))
	assert.False(t, Match(patterns, "app/index.html"))

	dirs := StaticDirs(patterns)
	assert.Equal(t, map[string]bool{"app/components": false, "app/pages": true}, dirs)
}

func TestConcat(t *testing.T) {
	out := Concat([]byte("var a = 1"), []byte("var b = 2\n"))
	assert.Equal(t, "var a = 1\nvar b = 2\n", string(out))
	assert.Empty(t, Concat())
}
