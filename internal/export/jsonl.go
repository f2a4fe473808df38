// Package export writes extraction results to disk as JSON Lines, one
// record per line, which keeps the output diffable and streamable into bulk
// loaders.
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dusk-indust/codegraph/internal/graph"
)

const (
	nodesFile = "nodes.jsonl"
	edgesFile = "edges.jsonl"
	statsFile = "stats.json"
)

// WriteGraph writes nodes.jsonl and edges.jsonl under dir, creating the
// directory as needed. Files are truncated, not appended: a run's output
// fully replaces the previous one, so identical input produces identical
// files.
func WriteGraph(dir string, nodes []graph.Node, edges []graph.Edge) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("export: create output dir: %w", err)
	}
	if err := writeLines(filepath.Join(dir, nodesFile), nodes); err != nil {
		return err
	}
	return writeLines(filepath.Join(dir, edgesFile), edges)
}

// WriteStats writes the run summary as indented JSON under dir.
func WriteStats(dir string, stats any) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("export: create output dir: %w", err)
	}
	b, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("export: marshal stats: %w", err)
	}
	b = append(b, '\n')
	if err := os.WriteFile(filepath.Join(dir, statsFile), b, 0o644); err != nil {
		return fmt.Errorf("export: write stats: %w", err)
	}
	return nil
}

func writeLines[T any](path string, records []T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", filepath.Base(path), err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			f.Close()
			return fmt.Errorf("export: encode record: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("export: flush %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
