package crawler

import (
	"bufio"
	"bytes"
	"io/fs"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/afero"
)

// IgnoreFile lists page patterns to skip, in .gitignore syntax.
const IgnoreFile = ".protobookignore"

// PageFile is one markdown page found under the pages root.
type PageFile struct {
	Name    string
	Path    string // Relative to the pages root, slash separated
	Content string
}

// Crawler scans a directory for markdown pages.
type Crawler struct {
	fs      afero.Fs
	ignored []string
	skipped []string
}

// NewCrawler creates a new crawler reading from fs.
func NewCrawler(fs afero.Fs) *Crawler {
	return &Crawler{
		fs:      fs,
		ignored: []string{".git", "node_modules", "book", "theme"},
	}
}

// Skip excludes the given directories from every scan, typically the
// build output when it lives under the pages root.
func (c *Crawler) Skip(dirs ...string) *Crawler {
	for _, dir := range dirs {
		c.skipped = append(c.skipped, filepath.Clean(dir))
	}
	return c
}

// ScanPages walks root in lexical order and streams every markdown page
// to onPage. SUMMARY.md is the host's table of contents and is skipped.
func (c *Crawler) ScanPages(root string, onPage func(PageFile) error) error {
	gi := c.loadIgnore(root)

	return afero.Walk(c.fs, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		// Skip ignored directories
		if info.IsDir() {
			if path == root {
				return nil
			}
			for _, ign := range c.ignored {
				if info.Name() == ign {
					return filepath.SkipDir
				}
			}
			for _, dir := range c.skipped {
				if filepath.Clean(path) == dir {
					return filepath.SkipDir
				}
			}
			if gi != nil && gi.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		// Only process markdown pages
		if !strings.EqualFold(filepath.Ext(info.Name()), ".md") || info.Name() == "SUMMARY.md" {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		content, err := afero.ReadFile(c.fs, path)
		if err != nil {
			return err
		}

		return onPage(PageFile{
			Name:    pageName(rel, content),
			Path:    rel,
			Content: string(content),
		})
	})
}

func (c *Crawler) loadIgnore(root string) *ignore.GitIgnore {
	data, err := afero.ReadFile(c.fs, filepath.Join(root, IgnoreFile))
	if err != nil {
		return nil
	}
	return ignore.CompileIgnoreLines(strings.Split(string(data), "\n")...)
}

// pageName is the first level-one heading, or the file name without its
// extension.
func pageName(rel string, content []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "# ") {
			if name := strings.TrimSpace(strings.TrimPrefix(line, "# ")); name != "" {
				return name
			}
		}
	}
	base := filepath.Base(rel)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
