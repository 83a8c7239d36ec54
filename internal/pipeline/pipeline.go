package pipeline

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"google.golang.org/protobuf/types/descriptorpb"

	"protobook/internal/book"
	"protobook/internal/config"
	"protobook/internal/generator"
	"protobook/internal/graph"
	"protobook/internal/index"
	"protobook/internal/ir"
	"protobook/internal/storage"
	"protobook/internal/symbol"
)

// Pipeline runs one full documentation build: index the schema, rewrite
// references in every page, attach backlinks, render package pages.
type Pipeline struct {
	cfg    *config.Config
	fs     afero.Fs
	log    logrus.FieldLogger
	report *generator.PipelineReport
}

// Result is what one run produced.
type Result struct {
	Book  *book.Book
	Index *index.Index
	Pages []storage.PageRecord
}

func New(cfg *config.Config, fs afero.Fs, log logrus.FieldLogger, mode string) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{
		cfg:    cfg,
		fs:     fs,
		log:    log,
		report: generator.NewPipelineReport(mode),
	}
}

func (p *Pipeline) Report() *generator.PipelineReport {
	return p.report
}

// Index loads the configured schema and indexes it.
func (p *Pipeline) Index() (*index.Index, error) {
	indexer := index.NewIndexer(p.fs,
		index.WithSourceRoot(p.cfg.Resolve(p.cfg.SourceRoot)),
		index.WithLogger(p.log),
	)

	h := p.report.BeginStage(generator.StageLoad)
	set, err := p.loadStage(indexer)
	if err != nil {
		p.report.EndStage(h, nil, err)
		return nil, err
	}
	p.report.EndStage(h, map[string]float64{"files": float64(len(set.GetFile()))}, nil)

	h = p.report.BeginStage(generator.StageIndex)
	ix, err := indexer.Build(set)
	if err != nil {
		p.report.EndStage(h, nil, err)
		return nil, err
	}
	p.report.EndStage(h, map[string]float64{
		"files":      float64(ix.Files),
		"namespaces": float64(len(ix.Namespaces)),
		"symbols":    float64(ix.Graph.Len()),
	}, nil)
	return ix, nil
}

func (p *Pipeline) loadStage(indexer *index.Indexer) (*descriptorpb.FileDescriptorSet, error) {
	if p.cfg.Descriptor != "" {
		return indexer.LoadDescriptorSet(p.cfg.DescriptorPath())
	}
	return indexer.CompileSources(p.cfg.ImportDirs(), p.cfg.Sources)
}

// PageCollisionError reports a book page stored where a package page is
// generated.
type PageCollisionError struct {
	Path    string
	Package string
}

func (e *PageCollisionError) Error() string {
	return fmt.Sprintf("page %s has the same path as the generated page of package %q; move or rename it", e.Path, e.Package)
}

// checkCollisions rejects book pages that a package page would replace.
func checkCollisions(ix *index.Index, b *book.Book) error {
	generated := make(map[string]string, len(ix.Namespaces))
	for _, ns := range ix.Namespaces {
		generated[ns.Page()] = namespaceTitle(ns)
	}
	return b.ForEachChapter(func(ch *book.Chapter) error {
		if pkg, ok := generated[ch.PathString()]; ok {
			return &PageCollisionError{Path: ch.PathString(), Package: pkg}
		}
		return nil
	})
}

// Process rewrites b in place and appends the generated package pages.
func (p *Pipeline) Process(ctx context.Context, b *book.Book) (*Result, error) {
	ix, err := p.Index()
	if err != nil {
		return nil, err
	}
	if err := checkCollisions(ix, b); err != nil {
		return nil, err
	}

	citations, err := p.linkStage(ctx, ix, b)
	if err != nil {
		return nil, err
	}

	p.attachStage(ix)

	chapters, err := p.renderStage(ix)
	if err != nil {
		return nil, err
	}

	if !b.Place(chapters, p.cfg.NestUnder) {
		p.log.WithField("nest_under", p.cfg.NestUnder).
			Warn("`nest_under` config was defined, but no top-level chapter with that name was found")
		p.report.AddSignal("nest_under_missing", generator.StageRender, "warning",
			fmt.Sprintf("no top-level chapter named %q; package pages appended at the top level", p.cfg.NestUnder), 0)
		p.report.AddNote(fmt.Sprintf("nest_under %q not found", p.cfg.NestUnder))
	}

	return &Result{Book: b, Index: ix, Pages: pageRecords(b, citations)}, nil
}

// linkStage rewrites every chapter. Citation counts are keyed by path.
func (p *Pipeline) linkStage(ctx context.Context, ix *index.Index, b *book.Book) (map[string]int, error) {
	h := p.report.BeginStage(generator.StageLink)
	linker := generator.NewLinker(ix.Graph, p.log)

	citations := make(map[string]int)
	var pages, total int
	err := b.ForEachChapter(func(ch *book.Chapter) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := linker.LinkPage(generator.Page{
			Name:    ch.Name,
			Path:    ch.PathString(),
			Content: ch.Content,
		})
		if err != nil {
			return fmt.Errorf("failed to link page %s: %w", ch.Name, err)
		}
		ch.Content = res.Content
		pages++
		total += res.Citations
		if path := ch.PathString(); path != "" {
			citations[path] = res.Citations
		}
		return nil
	})

	p.report.EndStage(h, map[string]float64{
		"pages":     float64(pages),
		"citations": float64(total),
	}, err)
	if err != nil {
		return nil, err
	}

	if pages > 0 && total == 0 {
		p.report.AddSignal("no_citations", generator.StageLink, "info", "no page references a schema symbol", 0)
	}
	p.log.WithFields(logrus.Fields{"pages": pages, "citations": total}).Info("Linked pages")
	return citations, nil
}

// attachStage seals the graph and copies each entity's usages onto it.
func (p *Pipeline) attachStage(ix *index.Index) {
	h := p.report.BeginStage(generator.StageAttach)
	ix.Graph.Seal()

	var entities int
	ir.Walk(ix.Namespaces, func(n ir.Node) {
		n.SetBacklinks(ix.Graph.Usages(n.SymbolLink()))
		entities++
	})

	counts := ix.Graph.BacklinkCounts()
	p.report.EndStage(h, map[string]float64{
		"entities":          float64(entities),
		"symbol_backlinks":  float64(counts[graph.KindSymbol]),
		"content_backlinks": float64(counts[graph.KindContent]),
	}, nil)
	p.log.WithFields(logrus.Fields{
		"entities":  entities,
		"backlinks": counts[graph.KindSymbol] + counts[graph.KindContent],
	}).Info("Attached backlinks")
}

func (p *Pipeline) renderStage(ix *index.Index) ([]*book.Chapter, error) {
	h := p.report.BeginStage(generator.StageRender)
	renderer, err := generator.NewRenderer(p.cfg.URLRootTrimmed())
	if err != nil {
		p.report.EndStage(h, nil, err)
		return nil, err
	}
	mermaid := &generator.MermaidGenerator{}

	var (
		chapters []*book.Chapter
		diagrams int
	)
	for _, ns := range ix.Namespaces {
		var diagram string
		if p.cfg.Mermaid {
			diagram = mermaid.GenerateUsageDiagram(ns)
			if diagram != "" {
				diagrams++
			}
		}
		content, err := renderer.RenderNamespace(ns, diagram)
		if err != nil {
			err = fmt.Errorf("failed to render package %s: %w", namespaceTitle(ns), err)
			p.report.EndStage(h, nil, err)
			return nil, err
		}
		chapters = append(chapters, book.NewChapter(namespaceTitle(ns), content, ns.Page()))
	}

	p.report.EndStage(h, map[string]float64{
		"namespaces": float64(len(chapters)),
		"diagrams":   float64(diagrams),
	}, nil)
	return chapters, nil
}

func namespaceTitle(ns *ir.Namespace) string {
	if ns.Package == "" {
		return symbol.RouteRoot
	}
	return ns.Package
}

func pageRecords(b *book.Book, citations map[string]int) []storage.PageRecord {
	var out []storage.PageRecord
	_ = b.ForEachChapter(func(ch *book.Chapter) error {
		path := ch.PathString()
		if path == "" {
			return nil
		}
		count, linked := citations[path]
		out = append(out, storage.PageRecord{
			Path:        path,
			Name:        ch.Name,
			Citations:   count,
			Generated:   !linked,
			ContentHash: storage.ContentHash(ch.Content),
		})
		return nil
	})
	return out
}

// Export writes the graph and page list of a finished run.
func (p *Pipeline) Export(ctx context.Context, exp storage.Exporter, res *Result) error {
	h := p.report.BeginStage(generator.StageExport)
	err := exp.SaveGraph(ctx, res.Index.Graph)
	if err == nil {
		err = exp.SavePages(ctx, res.Pages)
	}
	p.report.EndStage(h, map[string]float64{
		"symbols": float64(res.Index.Graph.Len()),
		"pages":   float64(len(res.Pages)),
	}, err)
	if err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}
	return nil
}
