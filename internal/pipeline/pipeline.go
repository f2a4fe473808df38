// Package pipeline orchestrates a full extraction run: walk the repository,
// fan units out to the engine, merge results behind a barrier, run global
// linking, and optionally load the finished graph into a store.
package pipeline

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/codegraph/internal/analyzer"
	"github.com/dusk-indust/codegraph/internal/graph"
	"github.com/dusk-indust/codegraph/internal/walker"
)

// Config holds the knobs for one run.
type Config struct {
	// RepoRoot is the directory to analyze.
	RepoRoot string
	// Exclude lists extra directory or file base names to skip.
	Exclude []string
	// Workers bounds concurrent unit analysis. Zero means GOMAXPROCS.
	Workers int
	// Heuristics overrides the default classification tables when non-nil.
	Heuristics *analyzer.Heuristics
}

// Summary aggregates counts across a run.
type Summary struct {
	FilesTotal      int `json:"files_total"`
	FilesProcessed  int `json:"files_processed"`
	FilesWithErrors int `json:"files_with_errors"`
	Directories     int `json:"directories"`

	analyzer.Stats

	NodeCount      int `json:"node_count"`
	EdgeCount      int `json:"edge_count"`
	ExternalEdges  int `json:"external_edges"`
	AmbiguousRefs  int `json:"ambiguous_refs"`
	UnresolvedRefs int `json:"unresolved_refs"`
}

// Result is the complete output of a run: the full graph plus every
// diagnostic collected along the way. Nodes and edges are in deterministic
// order, fixed by the walker's lexical traversal.
type Result struct {
	RepoID   string
	Nodes    []graph.Node
	Edges    []graph.Edge
	Errors   []analyzer.UnitError
	Warnings []analyzer.Warning
	Summary  Summary
}

// Run executes the two-phase protocol. Units are analyzed concurrently with
// no shared state; every cross-unit step (merging, linking, store writes)
// happens single-threaded after the fan-out completes, so output never
// depends on scheduling. A nil store skips loading and just returns the
// graph.
func Run(ctx context.Context, cfg Config, store graph.Store) (*Result, error) {
	tree, err := walker.Walk(cfg.RepoRoot, walker.Options{Exclude: cfg.Exclude})
	if err != nil {
		return nil, err
	}

	heur := analyzer.DefaultHeuristics()
	if cfg.Heuristics != nil {
		heur = *cfg.Heuristics
	}
	engine := analyzer.NewEngine(heur)

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// Phase A: per-unit extraction. Slots keep walker order regardless of
	// completion order.
	results := make([]*analyzer.UnitResult, len(tree.Units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, unit := range tree.Units {
		g.Go(func() error {
			res, err := engine.AnalyzeUnit(gctx, unit)
			if err != nil {
				return fmt.Errorf("analyze %s: %w", unit.Path, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Barrier passed: merge single-threaded in walker order.
	out := &Result{
		RepoID: tree.RepoID,
		Nodes:  tree.Nodes,
		Edges:  tree.Edges,
	}
	out.Summary.FilesTotal = len(tree.Units)
	out.Summary.Directories = countKind(tree.Nodes, graph.NodeDirectory)

	linker := analyzer.NewLinker()
	for _, res := range results {
		out.Nodes = append(out.Nodes, res.Nodes...)
		out.Edges = append(out.Edges, res.Edges...)
		out.Errors = append(out.Errors, res.Errors...)
		out.Summary.Stats.Add(res.Stats)
		if len(res.Nodes) > 0 {
			out.Summary.FilesProcessed++
		}
		if len(res.Errors) > 0 {
			out.Summary.FilesWithErrors++
		}
		linker.AddUnit(res)
	}

	// Phase B: global resolution.
	linked, warnings := linker.Resolve()
	out.Edges = append(out.Edges, linked...)
	out.Warnings = warnings

	out.Summary.NodeCount = len(out.Nodes)
	out.Summary.EdgeCount = len(out.Edges)
	for _, e := range out.Edges {
		if !e.Resolved() {
			out.Summary.ExternalEdges++
		}
	}
	for _, w := range warnings {
		switch w.Kind {
		case analyzer.WarnAmbiguous:
			out.Summary.AmbiguousRefs++
		case analyzer.WarnUnresolved:
			out.Summary.UnresolvedRefs++
		}
	}

	if store != nil {
		if err := load(ctx, store, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// load writes the graph into a store: schema, then all nodes, then all
// edges, so no edge ever references a node the store has not seen.
func load(ctx context.Context, store graph.Store, res *Result) error {
	if err := store.InitSchema(ctx); err != nil {
		return err
	}
	for _, n := range res.Nodes {
		if err := store.UpsertNode(ctx, n); err != nil {
			return fmt.Errorf("pipeline: upsert node %s: %w", n.QualifiedName, err)
		}
	}
	for _, e := range res.Edges {
		if err := store.UpsertEdge(ctx, e); err != nil {
			return fmt.Errorf("pipeline: upsert edge %s from %s: %w", e.Kind, e.FromID, err)
		}
	}
	return nil
}

func countKind(nodes []graph.Node, kind graph.NodeKind) int {
	n := 0
	for _, node := range nodes {
		if node.Kind == kind {
			n++
		}
	}
	return n
}
