package graph

import (
	"context"
	"sort"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu    sync.RWMutex
	nodes map[string]Node // key: node ID
	edges map[string]Edge // key: Edge.Key()
	order []string        // edge keys in first-insert order
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		nodes: make(map[string]Node),
		edges: make(map[string]Edge),
	}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// UpsertNode stores a node keyed by its ID, replacing any previous version.
func (m *MemStore) UpsertNode(_ context.Context, node Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[node.ID] = node
	return nil
}

// UpsertEdge stores an edge keyed by (kind, from, to|to_name). Re-inserting
// an identical edge replaces it in place; insertion order is preserved for
// first insertions only.
func (m *MemStore) UpsertEdge(_ context.Context, edge Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := edge.Key()
	if _, seen := m.edges[key]; !seen {
		m.order = append(m.order, key)
	}
	m.edges[key] = edge
	return nil
}

// GetNode returns the node with the given ID, or nil if not found.
func (m *MemStore) GetNode(_ context.Context, id string) (*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return nil, nil
	}
	return &n, nil
}

// NodesByKind returns all nodes of the given kind, sorted by qualified name
// for deterministic output.
func (m *MemStore) NodesByKind(_ context.Context, kind NodeKind) ([]Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Node
	for _, n := range m.nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QualifiedName != out[j].QualifiedName {
			return out[i].QualifiedName < out[j].QualifiedName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// AllEdges returns every stored edge in first-insert order.
func (m *MemStore) AllEdges(_ context.Context) ([]Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Edge, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, m.edges[key])
	}
	return out, nil
}

// Stats returns node and edge counts, broken down by kind.
func (m *MemStore) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byKind := make(map[string]int)
	for _, n := range m.nodes {
		byKind[string(n.Kind)]++
	}
	for _, e := range m.edges {
		byKind[string(e.Kind)]++
	}
	return &Stats{
		NodeCount: len(m.nodes),
		EdgeCount: len(m.edges),
		ByKind:    byKind,
	}, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}
