package storage

import (
	"context"
	"encoding/hex"

	"github.com/zeebo/xxh3"

	"protobook/internal/graph"
)

// Exporter writes the result of one run for external tooling. Nothing is
// ever read back by protobook itself.
type Exporter interface {
	// SaveGraph replaces the stored symbols and backlinks with g.
	SaveGraph(ctx context.Context, g *graph.Graph) error

	// SavePages replaces the stored page list.
	SavePages(ctx context.Context, pages []PageRecord) error

	Close() error
}

// PageRecord describes one rewritten or generated page.
type PageRecord struct {
	Path        string
	Name        string
	Citations   int
	Generated   bool
	ContentHash string
}

// ContentHash fingerprints page content so consumers can detect changes
// between exports.
func ContentHash(content string) string {
	h := xxh3.New()
	_, _ = h.WriteString(content)
	return hex.EncodeToString(h.Sum(nil))
}
