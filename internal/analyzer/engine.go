package analyzer

import (
	"context"
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/dusk-indust/codegraph/internal/graph"
)

// Unit is one source file submitted to the engine: repo-relative path, the
// dotted module name derived from it, and UTF-8 source text.
type Unit struct {
	Path   string
	Module string
	Source []byte
}

// UnitError records an extraction failure as data. A whole-unit parse
// failure contributes zero nodes and one UnitError; a partial failure on a
// single construct contributes one UnitError while sibling extraction
// continues. Nothing here is fatal to the overall run.
type UnitError struct {
	Path    string `json:"path"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

func (e UnitError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// PendingRef is a name lookup that could not be resolved within its own
// unit and is deferred to the global linking pass.
type PendingRef struct {
	FromID string         `json:"from_id"`
	Kind   graph.EdgeKind `json:"kind"`
	Name   string         `json:"name"`
	Scope  string         `json:"scope"`  // qualified name of the reference site's scope
	Module string         `json:"module"` // dotted module of the referencing unit
	Span   graph.Span     `json:"span"`
}

// Stats counts the entities extracted from one unit (or, summed, a run).
type Stats struct {
	Classes    int `json:"classes"`
	Functions  int `json:"functions"`
	Methods    int `json:"methods"`
	Variables  int `json:"variables"`
	Imports    int `json:"imports"`
	Decorators int `json:"decorators"`
	Calls      int `json:"calls"`
}

// Add accumulates another unit's counts.
func (s *Stats) Add(o Stats) {
	s.Classes += o.Classes
	s.Functions += o.Functions
	s.Methods += o.Methods
	s.Variables += o.Variables
	s.Imports += o.Imports
	s.Decorators += o.Decorators
	s.Calls += o.Calls
}

// UnitResult is the engine's per-unit output: the typed nodes and edges
// created during traversal, the references deferred to the global pass,
// any error records, and entity counts. It is immutable once returned.
type UnitResult struct {
	Unit    Unit
	FileID  string
	Nodes   []graph.Node
	Edges   []graph.Edge
	Pending []PendingRef
	Errors  []UnitError
	Stats   Stats
}

// Engine turns one parsed source unit into a deterministic set of typed
// nodes and edges. It holds no cross-unit state: each AnalyzeUnit call is a
// pure function of its unit, so an orchestrator may run units in parallel
// and merge the results afterwards.
type Engine struct {
	lang *tree_sitter.Language
	heur Heuristics
}

// NewEngine creates an Engine with the Python grammar registered and the
// given heuristic tables.
func NewEngine(heur Heuristics) *Engine {
	return &Engine{
		lang: tree_sitter.NewLanguage(tree_sitter_python.Language()),
		heur: heur,
	}
}

// AnalyzeUnit parses and traverses a single unit. Parse failures are data,
// not errors: a unit that cannot be parsed at all returns a UnitResult with
// zero nodes and one UnitError. The returned error is reserved for engine
// misconfiguration.
func (e *Engine) AnalyzeUnit(_ context.Context, unit Unit) (*UnitResult, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(e.lang); err != nil {
		return nil, fmt.Errorf("analyzer: set language: %w", err)
	}

	tree := parser.Parse(unit.Source, nil)
	if tree == nil {
		return &UnitResult{
			Unit:   unit,
			FileID: FileID(unit.Module, unit.Source),
			Errors: []UnitError{{Path: unit.Path, Message: "parser returned no tree"}},
		}, nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsError() {
		return &UnitResult{
			Unit:   unit,
			FileID: FileID(unit.Module, unit.Source),
			Errors: []UnitError{{
				Path:    unit.Path,
				Line:    int(root.StartPosition().Row) + 1,
				Message: "unit failed to parse",
			}},
		}, nil
	}

	x := newExtractor(e.heur, unit)
	if root.HasError() {
		// The grammar recovered around ERROR subtrees; extraction proceeds
		// but is recorded as partial.
		x.res.Errors = append(x.res.Errors, UnitError{
			Path:    unit.Path,
			Message: "syntax errors present; extraction is partial",
		})
	}
	x.run(root)
	return x.res, nil
}
