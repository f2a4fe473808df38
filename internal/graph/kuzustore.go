//go:build cgo

package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements the Store interface using KuzuDB as the graph backend.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
//
// All eleven node kinds share one Entity table with a kind column; each edge
// kind gets its own relationship table. Nested metadata and metrics are
// stored as JSON strings. External edges (ToName set, no ToID) have no
// target node to attach to and are skipped, matching the JSONL export as the
// authoritative record of external references.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given directory path, so a loaded graph survives across sessions.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	// Ensure the parent directory exists (KuzuDB creates the leaf directory).
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(path string) (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ---------- Schema setup ----------

// edgeTables maps each edge kind to its relationship table. INHERITS is
// stored as INHERITS_FROM because INHERITS collides with a Kuzu keyword.
var edgeTables = map[EdgeKind]string{
	EdgeContains:     "CONTAINS",
	EdgeDefines:      "DEFINES",
	EdgeImports:      "IMPORTS",
	EdgeCalls:        "CALLS",
	EdgeInherits:     "INHERITS_FROM",
	EdgeUses:         "USES",
	EdgeDecorates:    "DECORATES",
	EdgeReturns:      "RETURNS_VALUE",
	EdgeRaises:       "RAISES",
	EdgeHasParameter: "HAS_PARAMETER",
}

// InitSchema creates the Entity table and one relationship table per edge
// kind if they do not exist. Node tables must precede relationship tables.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	stmts := []string{
		`CREATE NODE TABLE IF NOT EXISTS Entity(
			id STRING,
			kind STRING,
			name STRING,
			qualified_name STRING,
			start_line INT64,
			end_line INT64,
			metadata STRING,
			metrics STRING,
			embedding_text STRING,
			PRIMARY KEY(id)
		)`,
	}
	for _, table := range edgeTables {
		stmts = append(stmts, fmt.Sprintf(
			"CREATE REL TABLE IF NOT EXISTS %s(FROM Entity TO Entity, span_start INT64, ambiguous BOOLEAN)", table))
	}
	for _, stmt := range stmts {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

// UpsertNode inserts or replaces a node by its content-addressed ID.
func (s *KuzuStore) UpsertNode(_ context.Context, node Node) error {
	meta, err := json.Marshal(node.Metadata)
	if err != nil {
		return fmt.Errorf("kuzu: marshal metadata for %s: %w", node.ID, err)
	}
	metrics := ""
	if node.Metrics != nil {
		b, err := json.Marshal(node.Metrics)
		if err != nil {
			return fmt.Errorf("kuzu: marshal metrics for %s: %w", node.ID, err)
		}
		metrics = string(b)
	}
	return s.exec(
		`MERGE (n:Entity {id: $id})
		 SET n.kind = $kind,
			 n.name = $name,
			 n.qualified_name = $qname,
			 n.start_line = $sl,
			 n.end_line = $el,
			 n.metadata = $meta,
			 n.metrics = $metrics,
			 n.embedding_text = $text`,
		map[string]any{
			"id":      node.ID,
			"kind":    string(node.Kind),
			"name":    node.Name,
			"qname":   node.QualifiedName,
			"sl":      int64(node.Span.StartLine),
			"el":      int64(node.Span.EndLine),
			"meta":    string(meta),
			"metrics": metrics,
			"text":    node.EmbeddingText,
		},
	)
}

// UpsertEdge inserts a relationship if it does not already exist. External
// edges (unresolved targets) are skipped: there is no node to attach to.
func (s *KuzuStore) UpsertEdge(_ context.Context, edge Edge) error {
	if !edge.Resolved() {
		return nil
	}
	table, ok := edgeTables[edge.Kind]
	if !ok {
		return fmt.Errorf("kuzu: unsupported edge kind: %s", edge.Kind)
	}
	cypher := fmt.Sprintf(
		`MATCH (a:Entity {id: $src}), (b:Entity {id: $dst})
		 MERGE (a)-[r:%s]->(b)
		 SET r.span_start = $sl, r.ambiguous = $amb`, table)
	return s.exec(cypher, map[string]any{
		"src": edge.FromID,
		"dst": edge.ToID,
		"sl":  int64(edge.Span.StartLine),
		"amb": edge.Ambiguous,
	})
}

// ---------- Read operations ----------

// GetNode retrieves a single node by ID, or returns nil if not found.
func (s *KuzuStore) GetNode(_ context.Context, id string) (*Node, error) {
	rows, err := s.query(
		`MATCH (n:Entity {id: $id})
		 RETURN n.id, n.kind, n.name, n.qualified_name, n.start_line, n.end_line,
				n.metadata, n.metrics, n.embedding_text`,
		map[string]any{"id": id},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToNode(rows[0])
}

// NodesByKind returns all nodes of the given kind, ordered by qualified name.
func (s *KuzuStore) NodesByKind(_ context.Context, kind NodeKind) ([]Node, error) {
	rows, err := s.query(
		`MATCH (n:Entity {kind: $kind})
		 RETURN n.id, n.kind, n.name, n.qualified_name, n.start_line, n.end_line,
				n.metadata, n.metrics, n.embedding_text
		 ORDER BY n.qualified_name, n.id`,
		map[string]any{"kind": string(kind)},
	)
	if err != nil {
		return nil, err
	}
	out := make([]Node, 0, len(rows))
	for _, r := range rows {
		n, err := rowToNode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, nil
}

// ---------- Stats ----------

// Stats returns node and edge counts across all tables.
func (s *KuzuStore) Stats(_ context.Context) (*Stats, error) {
	byKind := make(map[string]int)

	rows, err := s.query("MATCH (n:Entity) RETURN n.kind, count(n)", nil)
	if err != nil {
		return nil, err
	}
	nodeCount := 0
	for _, r := range rows {
		c := toInt(r[1])
		byKind[toString(r[0])] += c
		nodeCount += c
	}

	edgeCount := 0
	for kind, table := range edgeTables {
		cypher := fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r)", table)
		rows, err := s.query(cypher, nil)
		if err != nil {
			// Table may not exist yet; treat as zero.
			continue
		}
		if len(rows) > 0 && len(rows[0]) > 0 {
			c := toInt(rows[0][0])
			byKind[string(kind)] += c
			edgeCount += c
		}
	}

	return &Stats{
		NodeCount: nodeCount,
		EdgeCount: edgeCount,
		ByKind:    byKind,
	}, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// rowToNode converts a 9-column result row into a Node. Column order:
// id, kind, name, qualified_name, start_line, end_line, metadata, metrics,
// embedding_text.
func rowToNode(r []any) (*Node, error) {
	n := &Node{
		ID:            toString(r[0]),
		Kind:          NodeKind(toString(r[1])),
		Name:          toString(r[2]),
		QualifiedName: toString(r[3]),
		Span: Span{
			StartLine: toInt(r[4]),
			EndLine:   toInt(r[5]),
		},
		EmbeddingText: toString(r[8]),
	}
	if meta := toString(r[6]); meta != "" {
		if err := json.Unmarshal([]byte(meta), &n.Metadata); err != nil {
			return nil, fmt.Errorf("kuzu: unmarshal metadata for %s: %w", n.ID, err)
		}
	}
	if metrics := toString(r[7]); metrics != "" {
		var m Metrics
		if err := json.Unmarshal([]byte(metrics), &m); err != nil {
			return nil, fmt.Errorf("kuzu: unmarshal metrics for %s: %w", n.ID, err)
		}
		n.Metrics = &m
	}
	return n, nil
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).
// These helpers safely coerce any -> concrete type.

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
