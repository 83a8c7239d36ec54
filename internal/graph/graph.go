package graph

import (
	"errors"

	"protobook/internal/symbol"
)

// ErrSealed is returned when an edge is added after the graph was consumed.
var ErrSealed = errors.New("cross-reference graph is sealed")

// Graph maps each target symbol to the ordered list of its usages.
// It grows monotonically and is sealed once the attachment pass reads it.
type Graph struct {
	order  []symbol.Key
	links  map[symbol.Key]symbol.Link
	usages map[symbol.Key][]Backlink
	sealed bool
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		links:  make(map[symbol.Key]symbol.Link),
		usages: make(map[symbol.Key][]Backlink),
	}
}

// Declare makes a symbol known without recording any usage.
func (g *Graph) Declare(target symbol.Link) error {
	if g.sealed {
		return ErrSealed
	}
	g.ensure(target)
	return nil
}

// AddUsage appends a backlink to the target's usage list.
func (g *Graph) AddUsage(target symbol.Link, b Backlink) error {
	if g.sealed {
		return ErrSealed
	}
	key := g.ensure(target)
	g.usages[key] = append(g.usages[key], b)
	return nil
}

func (g *Graph) ensure(target symbol.Link) symbol.Key {
	key := target.Key()
	if _, ok := g.links[key]; !ok {
		clean := target
		clean.LabelOverride = ""
		clean.OwnID = ""
		g.links[key] = clean
		g.order = append(g.order, key)
	}
	return key
}

// Has reports whether the symbol is known.
func (g *Graph) Has(target symbol.Link) bool {
	_, ok := g.links[target.Key()]
	return ok
}

// Symbols returns every known symbol in the order it was first seen.
func (g *Graph) Symbols() []symbol.Link {
	out := make([]symbol.Link, 0, len(g.order))
	for _, key := range g.order {
		out = append(out, g.links[key])
	}
	return out
}

// Usages returns a copy of the backlinks recorded for the target.
func (g *Graph) Usages(target symbol.Link) []Backlink {
	list := g.usages[target.Key()]
	if len(list) == 0 {
		return nil
	}
	return append([]Backlink(nil), list...)
}

// Dependents returns the schema symbols whose members use the target.
// Member properties are dropped, so a message referenced by two of another
// message's fields yields that message once.
func (g *Graph) Dependents(target symbol.Link) []symbol.Link {
	var out []symbol.Link
	seen := make(map[symbol.Key]bool)
	for _, b := range g.usages[target.Key()] {
		if b.Kind != KindSymbol {
			continue
		}
		owner := b.Symbol
		if _, ok := g.links[owner.Key()]; !ok {
			owner = owner.WithProperty("")
		}
		if seen[owner.Key()] {
			continue
		}
		seen[owner.Key()] = true
		out = append(out, owner)
	}
	return out
}

func (g *Graph) Len() int {
	return len(g.order)
}

// Seal marks the graph complete. Later writes fail with ErrSealed.
func (g *Graph) Seal() {
	g.sealed = true
}

func (g *Graph) Sealed() bool {
	return g.sealed
}
