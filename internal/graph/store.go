package graph

import (
	"context"
	"io"
)

// Store is the interface for the graph persistence backend.
// Implementations: KuzuStore (production), MemStore (testing).
//
// Both node and edge writes are upserts: nodes are keyed by content-addressed
// ID and edges by (kind, from, to|to_name), so loading the output of a re-run
// over unchanged input never creates duplicates.
type Store interface {
	io.Closer

	// Schema setup. Called once before any data is inserted.
	InitSchema(ctx context.Context) error

	// Write operations.
	UpsertNode(ctx context.Context, node Node) error
	UpsertEdge(ctx context.Context, edge Edge) error

	// Read operations.
	GetNode(ctx context.Context, id string) (*Node, error)
	NodesByKind(ctx context.Context, kind NodeKind) ([]Node, error)

	// Stats.
	Stats(ctx context.Context) (*Stats, error)
}
