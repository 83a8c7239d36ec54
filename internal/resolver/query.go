package resolver

import (
	"regexp"
	"strings"
	"unicode"

	"protobook/internal/symbol"
)

// ReferencePattern matches the destination of an embedded symbol reference.
var ReferencePattern = regexp.MustCompile(`^proto!\(([^()]*)\)$`)

// ParseReference extracts the query from a link destination such as
// `proto!(HelloWorld)`.
func ParseReference(dest string) (string, bool) {
	m := ReferencePattern.FindStringSubmatch(strings.TrimSpace(dest))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Reference renders a query back into its embeddable form.
func Reference(query string) string {
	return "proto!(" + query + ")"
}

// Query is a parsed reference query.
type Query struct {
	Raw      string
	Segments []string
	Property string
	// Anchored queries start with `.` and must match the whole name.
	Anchored bool
}

func ParseQuery(raw string) Query {
	name, property, _ := strings.Cut(strings.TrimSpace(raw), symbol.PropertySeparator)
	q := Query{Raw: raw, Property: property}
	if strings.HasPrefix(name, ".") {
		q.Anchored = true
		name = name[1:]
	}
	if name != "" {
		q.Segments = strings.Split(name, ".")
	}
	return q
}

// Matches reports whether the candidate's segments end with the query's
// segments and the properties agree.
func (q Query) Matches(candidate symbol.Link) bool {
	if candidate.Property != q.Property {
		return false
	}
	segs := candidate.Segments()
	if len(q.Segments) == 0 || len(q.Segments) > len(segs) {
		return false
	}
	if q.Anchored && len(q.Segments) != len(segs) {
		return false
	}
	offset := len(segs) - len(q.Segments)
	for i, s := range q.Segments {
		if segs[offset+i] != s {
			return false
		}
	}
	return true
}

func hasUpper(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}
