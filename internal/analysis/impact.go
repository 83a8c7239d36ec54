package analysis

import (
	"errors"
	"fmt"

	"protobook/internal/graph"
	"protobook/internal/symbol"
)

// ErrUnknownSymbol is returned for targets the graph never saw.
var ErrUnknownSymbol = errors.New("symbol is not part of the schema")

// ImpactReport summarizes who uses a symbol.
type ImpactReport struct {
	Target symbol.Link
	// DirectlyAffected are schema symbols with a member typed by Target.
	DirectlyAffected []symbol.Link
	// IndirectlyAffected use Target only through other symbols.
	IndirectlyAffected []symbol.Link
	// Citations are documentation pages referencing Target.
	Citations []graph.ContentLink
	// Recursive is set when a member of Target is typed by Target.
	Recursive bool
}

// Analyzer performs usage analysis on the cross-reference graph.
type Analyzer struct {
	g *graph.Graph
}

// NewAnalyzer creates a new analyzer.
func NewAnalyzer(g *graph.Graph) *Analyzer {
	return &Analyzer{g: g}
}

// AnalyzeImpact walks usage edges backwards from target. Method owners are
// followed as their service; the walk stops at symbols already seen, so
// recursive messages terminate.
func (a *Analyzer) AnalyzeImpact(target symbol.Link) (*ImpactReport, error) {
	if !a.g.Has(target) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, target.FQSL())
	}

	report := &ImpactReport{
		Target:             target,
		DirectlyAffected:   []symbol.Link{},
		IndirectlyAffected: []symbol.Link{},
	}

	for _, b := range a.g.Usages(target) {
		if b.Kind == graph.KindContent {
			report.Citations = append(report.Citations, b.Content)
		}
	}

	seen := map[symbol.Key]bool{target.Key(): true}

	// 1. Find Direct Impacts
	queue := []symbol.Link{}
	for _, dep := range a.g.Dependents(target) {
		if dep.Equal(target) {
			report.Recursive = true
		}
		if seen[dep.Key()] {
			continue
		}
		seen[dep.Key()] = true
		report.DirectlyAffected = append(report.DirectlyAffected, dep)
		queue = append(queue, dep)
	}

	// 2. Find Indirect Impacts (users of users)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current.HasProperty() {
			// A method is reached through its service.
			current = current.WithProperty("")
		}
		for _, dep := range a.g.Dependents(current) {
			if seen[dep.Key()] {
				continue
			}
			seen[dep.Key()] = true
			report.IndirectlyAffected = append(report.IndirectlyAffected, dep)
			queue = append(queue, dep)
		}
	}

	return report, nil
}
