package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/protobuf/types/descriptorpb"

	"protobook/internal/graph"
	"protobook/internal/symbol"
)

func TestFieldType_String(t *testing.T) {
	price := symbol.New("shop.v1", "Price")
	scalar := FieldType{Kind: ScalarType, Scalar: descriptorpb.FieldDescriptorProto_TYPE_SFIXED64}
	ref := FieldType{Kind: ReferenceType, Ref: price}
	m := FieldType{Kind: MapType, Key: &FieldType{Kind: ScalarType, Scalar: descriptorpb.FieldDescriptorProto_TYPE_STRING}, Value: &ref}

	assert.Equal(t, "sfixed64", scalar.String())
	assert.Equal(t, ".shop.v1.Price", ref.String())
	assert.Equal(t, "map<string, .shop.v1.Price>", m.String())

	_, ok := scalar.Target()
	assert.False(t, ok)
	target, ok := m.Target()
	assert.True(t, ok)
	assert.True(t, target.Equal(price))
}

func TestSource_Href(t *testing.T) {
	single := Source{File: "a/b.proto", StartLine: 4, EndLine: 4}
	multi := Source{File: "a/b.proto", StartLine: 4, EndLine: 12}

	assert.Equal(t, "a/b.proto#L4", single.Href(""))
	assert.Equal(t, "https://git.example/repo/a/b.proto#L4-L12", multi.Href("https://git.example/repo/"))
}

func TestWalk_Order(t *testing.T) {
	inner := &Message{Name: "Inner", Link: symbol.New("p", "Outer.Inner")}
	kind := &Enum{Name: "Kind", Link: symbol.New("p", "Outer.Kind")}
	outer := &Message{Name: "Outer", Link: symbol.New("p", "Outer"), Messages: []*Message{inner}, Enums: []*Enum{kind}}
	color := &Enum{Name: "Color", Link: symbol.New("p", "Color")}
	svc := &Service{Name: "Api", Link: symbol.New("p", "Api")}
	svc.Methods = []*Method{{Name: "Call", Link: svc.Link.WithProperty("Call")}}

	namespaces := []*Namespace{{
		Package: "p",
		Files: []*File{{
			Messages: []*Message{outer, {Name: "Second", Link: symbol.New("p", "Second")}},
			Enums:    []*Enum{color},
			Services: []*Service{svc},
		}},
	}}

	var visited []string
	Walk(namespaces, func(n Node) {
		visited = append(visited, n.SymbolLink().ID())
		n.SetBacklinks([]graph.Backlink{graph.SymbolBacklink(symbol.New("p", "User"))})
	})

	assert.Equal(t, []string{"Outer", "Outer.Inner", "Outer.Kind", "Second", "Color", "Api", "Api::Call"}, visited)
	assert.Len(t, inner.Backlinks, 1)
	assert.Len(t, svc.Methods[0].Backlinks, 1)
	assert.Equal(t, "proto/p.md", namespaces[0].Page())
}
