package generator

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"protobook/internal/graph"
	"protobook/internal/resolver"
)

// Page is one documentation page handed to the linker. Path is empty for
// draft pages, which are never back-linked to.
type Page struct {
	Name    string
	Path    string
	Content string
}

// LinkResult is a rewritten page.
type LinkResult struct {
	Content   string
	Citations int
}

// Linker rewrites `proto!(<query>)` links in page prose into anchors and
// records a content backlink for every citation.
type Linker struct {
	graph    *graph.Graph
	resolver *resolver.Resolver
	markdown goldmark.Markdown
	log      logrus.FieldLogger
}

func NewLinker(g *graph.Graph, log logrus.FieldLogger) *Linker {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Linker{
		graph:    g,
		resolver: resolver.NewResolver(),
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM, extension.Footnote)),
		log:      log,
	}
}

// splice replaces src[start:end].
type splice struct {
	start, end int
	text       string
}

// LinkPage rewrites every reference in the page. Bytes outside recognized
// references are preserved. The first unresolved or ambiguous reference
// fails the page.
func (l *Linker) LinkPage(page Page) (LinkResult, error) {
	src := []byte(page.Content)
	doc := l.markdown.Parser().Parse(text.NewReader(src))
	known := l.graph.Symbols()

	var (
		edits   []splice
		counter = 1
		loc     = &locator{src: src}
		// ends holds the extent end of links and images that are not
		// references, applied once their children were walked.
		ends = make(map[ast.Node]int)
	)

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if end, ok := ends[n]; ok {
				loc.advance(end)
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			loc.advance(node.Segment.Stop)
		case *ast.RawHTML:
			for i := 0; i < node.Segments.Len(); i++ {
				loc.advance(node.Segments.At(i).Stop)
			}
		case *ast.AutoLink:
			if _, stop, ok := loc.autoLink(node, loc.frontier); ok {
				loc.advance(stop)
			}
		case *ast.Image:
			if _, end, err := loc.extent(node); err == nil {
				ends[n] = end
			}
		case *ast.Link:
			query, ok := resolver.ParseReference(string(node.Destination))
			if !ok {
				if _, end, err := loc.extent(node); err == nil {
					ends[n] = end
				}
				return ast.WalkContinue, nil
			}

			target, err := l.resolver.Resolve(query, known)
			if err != nil {
				return ast.WalkStop, err
			}

			start, end, err := loc.extent(node)
			if err != nil {
				return ast.WalkStop, fmt.Errorf("reference `%s` in %q: %w", query, page.Name, err)
			}

			if label := linkLabel(src, node); label != "" {
				target.SetLabel(label)
			}

			if page.Path != "" {
				id := fmt.Sprintf("%d%s", counter, target.FQSL())
				target.SetOwnID(id)
				citation := graph.ContentLink{
					Path:  page.Path,
					ID:    id,
					Label: fmt.Sprintf("%s[%d]", page.Name, counter),
				}
				if err := l.graph.AddUsage(target, graph.ContentBacklink(citation)); err != nil {
					return ast.WalkStop, err
				}
			}

			edits = append(edits, splice{start: start, end: end, text: Anchor(target)})
			loc.advance(end)
			counter++
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return LinkResult{}, err
	}

	l.log.WithFields(logrus.Fields{
		"page":      page.Name,
		"citations": len(edits),
	}).Debug("Linked page")

	return LinkResult{Content: string(apply(src, edits)), Citations: len(edits)}, nil
}

func apply(src []byte, edits []splice) []byte {
	if len(edits) == 0 {
		return src
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	var buf bytes.Buffer
	buf.Grow(len(src))
	last := 0
	for _, e := range edits {
		buf.Write(src[last:e.start])
		buf.WriteString(e.text)
		last = e.end
	}
	buf.Write(src[last:])
	return buf.Bytes()
}

// linkLabel concatenates the text inside a link.
func linkLabel(src []byte, link *ast.Link) string {
	var buf bytes.Buffer
	_ = ast.Walk(link, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(t.Value)
		case *ast.AutoLink:
			buf.Write(t.Label(src))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

// linkTail returns the end of the part following a link's `]`: an inline
// destination `(...)`, a full reference `[...]`, or nothing.
func linkTail(src []byte, pos int) (int, error) {
	if pos >= len(src) {
		return pos, nil
	}
	switch src[pos] {
	case '(':
		depth := 0
		angle := false
		for i := pos; i < len(src); i++ {
			if escaped(src, i) {
				continue
			}
			switch c := src[i]; {
			case c == '<' && i == pos+1:
				angle = true
			case c == '>' && angle:
				angle = false
			case angle:
			case c == '(':
				depth++
			case c == ')':
				depth--
				if depth == 0 {
					return i + 1, nil
				}
			}
		}
		return 0, fmt.Errorf("link destination is not closed")
	case '[':
		for i := pos + 1; i < len(src); i++ {
			if src[i] == ']' && !escaped(src, i) {
				return i + 1, nil
			}
		}
		return 0, fmt.Errorf("link reference is not closed")
	}
	return pos, nil
}

func escaped(src []byte, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && src[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

