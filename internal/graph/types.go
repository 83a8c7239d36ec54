package graph

import "protobook/internal/symbol"

type BacklinkKind string

const (
	// KindSymbol marks a schema member (field, method) using the target.
	KindSymbol BacklinkKind = "symbol"
	// KindContent marks a documentation page citing the target.
	KindContent BacklinkKind = "content"
)

// ContentLink locates one citation of a symbol inside a page.
type ContentLink struct {
	Path  string `json:"path"`
	ID    string `json:"id"`
	Label string `json:"label"`
}

func (c ContentLink) Href() string {
	return "/" + c.Path + "#" + c.ID
}

// Backlink is a usage edge pointing at a target symbol. Exactly one of
// Symbol or Content is meaningful, as selected by Kind.
type Backlink struct {
	Kind    BacklinkKind `json:"kind"`
	Symbol  symbol.Link  `json:"symbol,omitempty"`
	Content ContentLink  `json:"content,omitempty"`
}

func SymbolBacklink(from symbol.Link) Backlink {
	return Backlink{Kind: KindSymbol, Symbol: from}
}

func ContentBacklink(link ContentLink) Backlink {
	return Backlink{Kind: KindContent, Content: link}
}

func (b Backlink) Href() string {
	if b.Kind == KindContent {
		return b.Content.Href()
	}
	return b.Symbol.Href()
}

func (b Backlink) Label() string {
	if b.Kind == KindContent {
		return b.Content.Label
	}
	return b.Symbol.FQSL()
}
