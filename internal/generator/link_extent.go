package generator

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/yuin/goldmark/ast"
)

// locator maps inline links back to their source bytes. The parser keeps
// positions for text only, so a link's brackets are found from the text
// segments around it. frontier is the end of everything the walk has
// already consumed; no later node starts before it.
type locator struct {
	src      []byte
	frontier int
}

// span is a source range owned by a child of a link. depth counts the
// links and images between the child and that link.
type span struct {
	start, stop int
	depth       int
}

func (l *locator) advance(pos int) {
	if pos > l.frontier {
		l.frontier = pos
	}
}

// autoLink finds an autolink at or after from, either `<label>` or a bare
// linkified label. Autolinks carry no position.
func (l *locator) autoLink(n *ast.AutoLink, from int) (int, int, bool) {
	label := n.Label(l.src)
	if from > len(l.src) || len(label) == 0 {
		return 0, 0, false
	}
	offset := bytes.Index(l.src[from:], label)
	if offset < 0 {
		return 0, 0, false
	}
	start, stop := from+offset, from+offset+len(label)
	if start > 0 && l.src[start-1] == '<' && stop < len(l.src) && l.src[stop] == '>' {
		start, stop = start-1, stop+1
	}
	return start, stop, true
}

// children collects the source ranges of the text, raw HTML and autolinks
// inside link, in source order.
func (l *locator) children(link ast.Node) []span {
	var (
		out   []span
		depth int
		from  = l.frontier
		// opaque nested links and images have no text of their own and
		// are taken as a whole.
		opaque = make(map[ast.Node]bool)
	)
	add := func(start, stop int) {
		if stop > start {
			out = append(out, span{start: start, stop: stop, depth: depth})
			if stop > from {
				from = stop
			}
		}
	}
	_ = ast.Walk(link, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if n == link {
			return ast.WalkContinue, nil
		}
		switch n.(type) {
		case *ast.Link, *ast.Image:
			if !entering {
				if !opaque[n] {
					depth--
				}
				return ast.WalkContinue, nil
			}
			nested := &locator{src: l.src, frontier: from}
			if len(nested.children(n)) == 0 {
				opaque[n] = true
				if start, stop, err := nested.extent(n); err == nil {
					add(start, stop)
				}
				return ast.WalkSkipChildren, nil
			}
			depth++
			return ast.WalkContinue, nil
		}
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			add(node.Segment.Start, node.Segment.Stop)
		case *ast.RawHTML:
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				add(seg.Start, seg.Stop)
			}
		case *ast.AutoLink:
			if start, stop, ok := l.autoLink(node, from); ok {
				add(start, stop)
			}
		}
		return ast.WalkContinue, nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}

// extent returns the source range of a link or image, from its opening
// `[` to the end of its destination or reference label.
func (l *locator) extent(link ast.Node) (int, int, error) {
	children := l.children(link)

	var open, closeAt int
	if len(children) == 0 {
		var err error
		if open, err = l.emptyOpener(); err != nil {
			return 0, 0, err
		}
		closeAt = open + 1
	} else {
		var err error
		if open, err = l.opener(children[0]); err != nil {
			return 0, 0, err
		}
		if closeAt, err = l.closer(open, children); err != nil {
			return 0, 0, err
		}
	}

	end, err := linkTail(l.src, closeAt+1)
	if err != nil {
		return 0, 0, err
	}
	return open, end, nil
}

// opener walks back from the first child to the `[` that pairs with the
// link's closing bracket. Only markup lies between the two, so brackets
// closed on the way belong to nested images and links, and each enclosing
// image or link of the child owns one unmatched `[`.
func (l *locator) opener(first span) (int, error) {
	nested, enclosing := 0, first.depth
	for i := first.start - 1; i >= l.frontier; i-- {
		if escaped(l.src, i) {
			continue
		}
		switch l.src[i] {
		case ']':
			nested++
		case '[':
			switch {
			case nested > 0:
				nested--
			case enclosing > 0:
				enclosing--
			default:
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("link text has no opening bracket")
}

// closer finds the `]` matching open. Bytes owned by children are skipped,
// so brackets in text or code spans do not count.
func (l *locator) closer(open int, children []span) (int, error) {
	depth, k := 0, 0
	for i := open + 1; i < len(l.src); i++ {
		for k < len(children) && children[k].stop <= i {
			k++
		}
		if k < len(children) && children[k].start <= i {
			i = children[k].stop - 1
			continue
		}
		if escaped(l.src, i) {
			continue
		}
		switch l.src[i] {
		case '[':
			depth++
		case ']':
			if depth == 0 {
				return i, nil
			}
			depth--
		}
	}
	return 0, fmt.Errorf("link text has no closing bracket")
}

// emptyOpener locates the `[]` of a link without text.
func (l *locator) emptyOpener() (int, error) {
	for i := l.frontier; i+1 < len(l.src); i++ {
		if l.src[i] == '[' && l.src[i+1] == ']' && !escaped(l.src, i) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("empty link is not inline")
}
