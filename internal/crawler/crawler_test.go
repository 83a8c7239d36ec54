package crawler

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePages(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
}

func TestCrawler_ScanPages(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePages(t, fs, map[string]string{
		"/src/SUMMARY.md":          "- [Intro](intro.md)",
		"/src/intro.md":            "# Introduction\n\nSee [x](proto!(Foo)).",
		"/src/guide/usage.md":      "Some text without heading",
		"/src/guide/notes.txt":     "not a page",
		"/src/drafts/wip.md":       "# WIP",
		"/src/node_modules/x.md":   "# vendored",
		"/src/.protobookignore":    "drafts/\n*.skip.md\n",
		"/src/guide/old.skip.md":   "# Old",
		"/src/reference/README.md": "\n\n#   Reference  \n",
	})

	c := NewCrawler(fs)
	var pages []PageFile
	err := c.ScanPages("/src", func(p PageFile) error {
		pages = append(pages, p)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, pages, 3)
	assert.Equal(t, "guide/usage.md", pages[0].Path)
	assert.Equal(t, "usage", pages[0].Name)
	assert.Equal(t, "intro.md", pages[1].Path)
	assert.Equal(t, "Introduction", pages[1].Name)
	assert.Contains(t, pages[1].Content, "proto!(Foo)")
	assert.Equal(t, "reference/README.md", pages[2].Path)
	assert.Equal(t, "Reference", pages[2].Name)
}

func TestCrawler_SkipsOutputDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePages(t, fs, map[string]string{
		"/src/intro.md":          "# Intro",
		"/src/out/intro.md":      "# Intro",
		"/src/out/proto/x.md":    "# x",
		"/src/guide/out/keep.md": "# Keep",
	})

	var paths []string
	err := NewCrawler(fs).Skip("/src/out/").ScanPages("/src", func(p PageFile) error {
		paths = append(paths, p.Path)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"guide/out/keep.md", "intro.md"}, paths)
}

func TestCrawler_CallbackErrorStops(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePages(t, fs, map[string]string{
		"/src/a.md": "# A",
		"/src/b.md": "# B",
	})

	stop := errors.New("stop")
	var seen int
	err := NewCrawler(fs).ScanPages("/src", func(PageFile) error {
		seen++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, seen)
}

func TestCrawler_MissingRoot(t *testing.T) {
	err := NewCrawler(afero.NewMemMapFs()).ScanPages("/absent", func(PageFile) error { return nil })
	assert.Error(t, err)
}
