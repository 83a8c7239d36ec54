// Package ir holds the documentation entity tree built from a descriptor set.
package ir

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/types/descriptorpb"

	"protobook/internal/graph"
	"protobook/internal/symbol"
)

// Comments are the comment blocks attached to a declaration.
type Comments struct {
	Leading         string   `json:"leading,omitempty"`
	Trailing        string   `json:"trailing,omitempty"`
	LeadingDetached []string `json:"leading_detached,omitempty"`
}

func (c Comments) Empty() bool {
	return c.Leading == "" && c.Trailing == "" && len(c.LeadingDetached) == 0
}

// Source is a declaration span. Lines are 1-based, columns 0-based.
type Source struct {
	File        string `json:"file"`
	StartLine   int    `json:"start_line"`
	StartColumn int    `json:"start_column"`
	EndLine     int    `json:"end_line"`
	EndColumn   int    `json:"end_column"`
}

// Anchor is the line fragment, `L3` or `L3-L9`.
func (s Source) Anchor() string {
	if s.StartLine == s.EndLine {
		return fmt.Sprintf("L%d", s.StartLine)
	}
	return fmt.Sprintf("L%d-L%d", s.StartLine, s.EndLine)
}

// Href links the span under root; root may be empty.
func (s Source) Href(root string) string {
	file := s.File + "#" + s.Anchor()
	if root == "" {
		return file
	}
	return strings.TrimSuffix(root, "/") + "/" + file
}

type FieldTypeKind string

const (
	ScalarType    FieldTypeKind = "scalar"
	ReferenceType FieldTypeKind = "reference"
	MapType       FieldTypeKind = "map"
)

// FieldType is a field's declared type: a scalar, a reference to another
// symbol, or a map of scalar keys to values.
type FieldType struct {
	Kind   FieldTypeKind
	Scalar descriptorpb.FieldDescriptorProto_Type
	Ref    symbol.Link
	Key    *FieldType
	Value  *FieldType
}

// ScalarName is the proto spelling of a scalar type, e.g. `int32`.
func ScalarName(t descriptorpb.FieldDescriptorProto_Type) string {
	return strings.ToLower(strings.TrimPrefix(t.String(), "TYPE_"))
}

func (t FieldType) String() string {
	switch t.Kind {
	case ScalarType:
		return ScalarName(t.Scalar)
	case MapType:
		return fmt.Sprintf("map<%s, %s>", t.Key, t.Value)
	default:
		return t.Ref.FQSL()
	}
}

// Target is the symbol a usage edge from this type points at, if any.
func (t FieldType) Target() (symbol.Link, bool) {
	switch t.Kind {
	case ReferenceType:
		return t.Ref, true
	case MapType:
		if t.Value != nil {
			return t.Value.Target()
		}
	}
	return symbol.Link{}, false
}

type Field struct {
	Name       string
	Number     int32
	Type       FieldType
	Repeated   bool
	Required   bool
	Optional   bool
	Deprecated bool
	// OneofIndex is set for fields that belong to a real (non-synthetic) oneof.
	OneofIndex *int32
	Comments   Comments
	Source     *Source
	Link       symbol.Link
}

type Oneof struct {
	Name     string
	Comments Comments
	Source   *Source
	Fields   []*Field
}

// Member is one entry of a message body: exactly one of Field or Oneof.
type Member struct {
	Field *Field
	Oneof *Oneof
}

type Message struct {
	Name       string
	Link       symbol.Link
	Comments   Comments
	Source     *Source
	Deprecated bool
	Members    []Member
	Messages   []*Message
	Enums      []*Enum
	Backlinks  []graph.Backlink
}

// Fields flattens the message body, oneof members included.
func (m *Message) Fields() []*Field {
	var out []*Field
	for _, member := range m.Members {
		if member.Field != nil {
			out = append(out, member.Field)
		} else if member.Oneof != nil {
			out = append(out, member.Oneof.Fields...)
		}
	}
	return out
}

type EnumValue struct {
	Name       string
	Number     int32
	Deprecated bool
	Comments   Comments
}

type Enum struct {
	Name       string
	Link       symbol.Link
	Comments   Comments
	Source     *Source
	Deprecated bool
	Values     []EnumValue
	Backlinks  []graph.Backlink
}

type Method struct {
	Name            string
	Link            symbol.Link
	Request         symbol.Link
	Response        symbol.Link
	ClientStreaming bool
	ServerStreaming bool
	Comments        Comments
	Source          *Source
	Deprecated      bool
	Backlinks       []graph.Backlink
}

type Service struct {
	Name       string
	Link       symbol.Link
	Comments   Comments
	Source     *Source
	Deprecated bool
	Methods    []*Method
	Backlinks  []graph.Backlink
}

// File is one descriptor file.
type File struct {
	Name     string
	Package  string
	Syntax   string
	Messages []*Message
	Enums    []*Enum
	Services []*Service
}

// Namespace gathers every file declaring the same package.
type Namespace struct {
	Package string
	Files   []*File
}

// Page is the routing path the namespace renders to.
func (n *Namespace) Page() string {
	return symbol.PagePath(n.Package)
}
