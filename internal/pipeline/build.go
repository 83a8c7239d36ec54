package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"protobook/internal/book"
	"protobook/internal/config"
	"protobook/internal/crawler"
	"protobook/internal/generator"
)

// ReportFile is written next to the output of a standalone build.
const ReportFile = "pipeline_report.json"

// Build runs the pipeline over the configured pages directory and writes
// the rewritten pages and the package pages under the output directory.
func (p *Pipeline) Build(ctx context.Context) (*Result, error) {
	if p.cfg.Pages == "" {
		return nil, &config.MissingKeyError{Key: "pages", Source: "standalone configuration"}
	}
	if p.cfg.Output == "" {
		return nil, &config.MissingKeyError{Key: "output", Source: "standalone configuration"}
	}
	outputDir := p.cfg.Resolve(p.cfg.Output)

	b, err := p.CollectPages()
	if err != nil {
		return nil, err
	}

	res, err := p.Process(ctx, b)
	if err != nil {
		return nil, err
	}

	h := p.report.BeginStage(generator.StageWrite)
	written, err := writeChapters(p.fs, outputDir, b)
	p.report.EndStage(h, map[string]float64{"files": float64(written)}, err)
	if err != nil {
		return nil, err
	}

	if err := p.report.Save(p.fs, filepath.Join(outputDir, ReportFile)); err != nil {
		return nil, fmt.Errorf("failed to save pipeline report: %w", err)
	}
	p.log.WithFields(logrus.Fields{"files": written, "dir": outputDir}).Info("Wrote book")
	return res, nil
}

// CollectPages reads the configured pages directory into a book with one
// unnumbered top-level chapter per page.
func (p *Pipeline) CollectPages() (*book.Book, error) {
	if p.cfg.Pages == "" {
		return nil, &config.MissingKeyError{Key: "pages", Source: "standalone configuration"}
	}
	pagesDir := p.cfg.Resolve(p.cfg.Pages)

	c := crawler.NewCrawler(p.fs)
	if p.cfg.Output != "" {
		c.Skip(p.cfg.Resolve(p.cfg.Output))
	}

	b := &book.Book{}
	err := c.ScanPages(pagesDir, func(page crawler.PageFile) error {
		b.Sections = append(b.Sections, book.BookItem{Chapter: book.NewChapter(page.Name, page.Content, page.Path)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan pages in %s: %w", pagesDir, err)
	}
	p.log.WithFields(logrus.Fields{"pages": len(b.Sections), "dir": pagesDir}).Info("Collected pages")
	return b, nil
}

func writeChapters(fs afero.Fs, outputDir string, b *book.Book) (int, error) {
	var written int
	err := b.ForEachChapter(func(ch *book.Chapter) error {
		rel := ch.PathString()
		if rel == "" {
			return nil
		}
		target := filepath.Join(outputDir, filepath.FromSlash(rel))
		if err := fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := afero.WriteFile(fs, target, []byte(ch.Content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
		written++
		return nil
	})
	return written, err
}
