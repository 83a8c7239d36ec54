package ir

import (
	"protobook/internal/graph"
	"protobook/internal/symbol"
)

// Node is an addressable entity: *Message, *Enum, *Service or *Method.
// The set is closed; Walk visits each kind explicitly.
type Node interface {
	SymbolLink() symbol.Link
	SetBacklinks([]graph.Backlink)
	node()
}

func (m *Message) SymbolLink() symbol.Link { return m.Link }
func (e *Enum) SymbolLink() symbol.Link    { return e.Link }
func (s *Service) SymbolLink() symbol.Link { return s.Link }
func (m *Method) SymbolLink() symbol.Link  { return m.Link }

func (m *Message) SetBacklinks(b []graph.Backlink) { m.Backlinks = b }
func (e *Enum) SetBacklinks(b []graph.Backlink)    { e.Backlinks = b }
func (s *Service) SetBacklinks(b []graph.Backlink) { s.Backlinks = b }
func (m *Method) SetBacklinks(b []graph.Backlink)  { m.Backlinks = b }

func (*Message) node() {}
func (*Enum) node()    {}
func (*Service) node() {}
func (*Method) node()  {}

// Walk visits every addressable entity of the namespaces in declaration
// order: messages (pre-order, nested messages then nested enums), top-level
// enums, then services followed by their methods.
func Walk(namespaces []*Namespace, visit func(Node)) {
	for _, ns := range namespaces {
		for _, f := range ns.Files {
			WalkFile(f, visit)
		}
	}
}

func WalkFile(f *File, visit func(Node)) {
	walkMessages(f.Messages, visit)
	for _, e := range f.Enums {
		visit(e)
	}
	for _, s := range f.Services {
		visit(s)
		for _, m := range s.Methods {
			visit(m)
		}
	}
}

func walkMessages(messages []*Message, visit func(Node)) {
	for _, m := range messages {
		visit(m)
		walkMessages(m.Messages, visit)
		for _, e := range m.Enums {
			visit(e)
		}
	}
}
