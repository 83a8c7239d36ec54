// Package symbol defines how a schema entity is named and addressed in the
// generated documentation.
package symbol

import (
	"strings"
)

const (
	// PropertySeparator splits a symbol from a member name: `Service::Method`.
	PropertySeparator = "::"

	// RouteRoot is the directory under which package pages are routed.
	RouteRoot = "proto"
)

// Key is the comparable identity of a Link. Display-only fields are excluded.
type Key struct {
	Path     string
	Symbol   string
	Property string
}

// Link is a fully-qualified symbol link (FQSL): the address of one
// documentation-visible entity.
type Link struct {
	// Path is the owning package as a routing path, e.g. `other/namespace`.
	Path string
	// Symbol is the local, possibly dotted name within the package.
	Symbol string
	// Property names a field of a message or a method of a service.
	Property string

	LabelOverride string
	OwnID         string
}

// FromFQSL splits a raw fully-qualified name into package path, symbol and
// property, using the longest known package that is a segment-aligned
// prefix of the name.
func FromFQSL(fqsl string, packages Packages) Link {
	name, property, _ := strings.Cut(fqsl, PropertySeparator)
	name = strings.TrimPrefix(name, ".")

	pkg := packages.LongestPrefix(name)
	if pkg == "" {
		return Link{Symbol: name, Property: property}
	}

	return Link{
		Path:     strings.ReplaceAll(pkg, ".", "/"),
		Symbol:   strings.TrimPrefix(strings.TrimPrefix(name, pkg), "."),
		Property: property,
	}
}

// New builds a link for a symbol declared in a dotted package.
func New(pkg, symbol string) Link {
	return Link{Path: strings.ReplaceAll(pkg, ".", "/"), Symbol: symbol}
}

func (l Link) Key() Key {
	return Key{Path: l.Path, Symbol: l.Symbol, Property: l.Property}
}

// Equal reports whether two links address the same entity.
func (l Link) Equal(other Link) bool {
	return l.Key() == other.Key()
}

// WithProperty returns a copy of l addressing one of its members.
func (l Link) WithProperty(property string) Link {
	l.Property = property
	l.LabelOverride = ""
	l.OwnID = ""
	return l
}

func (l Link) HasProperty() bool {
	return l.Property != ""
}

// Package returns the dotted package name.
func (l Link) Package() string {
	return strings.ReplaceAll(l.Path, "/", ".")
}

// ID is the fragment id of the entity within its package page.
func (l Link) ID() string {
	if l.Property != "" {
		return l.Symbol + PropertySeparator + l.Property
	}
	return l.Symbol
}

// FQSL is the canonical display string, e.g. `.pkg.Outer.Inner::field`.
func (l Link) FQSL() string {
	if l.Path == "" {
		return "." + l.ID()
	}
	return "." + l.Package() + "." + l.ID()
}

func (l Link) String() string {
	return l.FQSL()
}

// Label is the display text: the override if set, else the last segment.
func (l Link) Label() string {
	if l.LabelOverride != "" {
		return l.LabelOverride
	}
	fqsl := l.FQSL()
	if i := strings.LastIndex(fqsl, "."); i >= 0 {
		return fqsl[i+1:]
	}
	return fqsl
}

func (l *Link) SetLabel(label string) {
	l.LabelOverride = label
}

func (l *Link) SetOwnID(id string) {
	l.OwnID = id
}

// Page is the routing path of the package page, relative to the book root.
func (l Link) Page() string {
	return PagePath(l.Package())
}

// Href points at the entity's anchor on its package page.
func (l Link) Href() string {
	return "/" + l.Page() + "#" + l.ID()
}

// Segments returns the dotted segments of the package and symbol, without
// the property.
func (l Link) Segments() []string {
	var segs []string
	if l.Path != "" {
		segs = append(segs, strings.Split(l.Path, "/")...)
	}
	if l.Symbol != "" {
		segs = append(segs, strings.Split(l.Symbol, ".")...)
	}
	return segs
}

// PagePath is the routing path of a package's page.
func PagePath(pkg string) string {
	if pkg == "" {
		return RouteRoot + ".md"
	}
	return RouteRoot + "/" + strings.ReplaceAll(pkg, ".", "/") + ".md"
}
