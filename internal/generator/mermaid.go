package generator

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"protobook/internal/graph"
	"protobook/internal/ir"
)

var mermaidIDPattern = regexp.MustCompile(`[^a-z0-9_]`)

// MermaidGenerator draws symbol-usage diagrams.
type MermaidGenerator struct{}

// GenerateUsageDiagram emits a `graph LR` of the symbol backlinks between
// entities of one namespace. Members are collapsed onto their owners, so
// an edge reads "owner uses target", labelled with the member names. It
// must run after backlinks were attached. Returns "" when the namespace has
// no internal usages.
func (m *MermaidGenerator) GenerateUsageDiagram(ns *ir.Namespace) string {
	type edge struct {
		from string
		to   string
	}
	nodes := map[string]bool{}
	labels := map[edge][]string{}
	var order []edge

	ir.Walk([]*ir.Namespace{ns}, func(n ir.Node) {
		target := n.SymbolLink()
		if target.HasProperty() {
			return
		}
		var backlinks []graph.Backlink
		switch e := n.(type) {
		case *ir.Message:
			backlinks = e.Backlinks
		case *ir.Enum:
			backlinks = e.Backlinks
		}
		for _, b := range backlinks {
			if b.Kind != graph.KindSymbol || b.Symbol.Path != target.Path {
				continue
			}
			owner := b.Symbol.WithProperty("")
			key := edge{from: owner.ID(), to: target.ID()}
			if _, ok := labels[key]; !ok {
				order = append(order, key)
			}
			labels[key] = appendUnique(labels[key], b.Symbol.Property)
			nodes[key.from] = true
			nodes[key.to] = true
		}
	})

	if len(order) == 0 {
		return ""
	}

	names := make([]string, 0, len(nodes))
	for n := range nodes {
		names = append(names, n)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("graph LR\n")
	for _, n := range names {
		sb.WriteString(fmt.Sprintf("    %s[%q]\n", sanitizeMermaidID(n), n))
	}
	for _, e := range order {
		label := strings.Join(labels[e], ", ")
		if label == "" {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", sanitizeMermaidID(e.from), sanitizeMermaidID(e.to)))
			continue
		}
		sb.WriteString(fmt.Sprintf("    %s -->|%s| %s\n", sanitizeMermaidID(e.from), label, sanitizeMermaidID(e.to)))
	}
	sb.WriteString("```\n")
	return sb.String()
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func sanitizeMermaidID(v string) string {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "" {
		return "node"
	}
	v = mermaidIDPattern.ReplaceAllString(strings.ReplaceAll(v, "-", "_"), "_")
	if v[0] >= '0' && v[0] <= '9' {
		v = "n_" + v
	}
	return v
}
