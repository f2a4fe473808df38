package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codegraph/internal/graph"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// analyze runs one source string through a fresh engine.
func analyze(t *testing.T, module, src string) *UnitResult {
	t.Helper()
	eng := NewEngine(DefaultHeuristics())
	res, err := eng.AnalyzeUnit(context.Background(), Unit{
		Path:   module + ".py",
		Module: module,
		Source: []byte(src),
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

// findNode returns the first node with the given kind and name, or nil.
func findNode(nodes []graph.Node, kind graph.NodeKind, name string) *graph.Node {
	for i := range nodes {
		if nodes[i].Kind == kind && nodes[i].Name == name {
			return &nodes[i]
		}
	}
	return nil
}

// findByQualified returns the first node with the given qualified name, or nil.
func findByQualified(nodes []graph.Node, qn string) *graph.Node {
	for i := range nodes {
		if nodes[i].QualifiedName == qn {
			return &nodes[i]
		}
	}
	return nil
}

// edgesByKind returns all edges of one kind.
func edgesByKind(edges []graph.Edge, kind graph.EdgeKind) []graph.Edge {
	var out []graph.Edge
	for _, e := range edges {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// pendingByKind returns all pending refs of one kind.
func pendingByKind(refs []PendingRef, kind graph.EdgeKind) []PendingRef {
	var out []PendingRef
	for _, r := range refs {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// assertEdgeInvariant checks that every edge names exactly one target.
func assertEdgeInvariant(t *testing.T, edges []graph.Edge) {
	t.Helper()
	for _, e := range edges {
		hasID := e.ToID != ""
		hasName := e.ToName != ""
		assert.True(t, hasID != hasName,
			"edge %s from %s must have exactly one of ToID/ToName", e.Kind, e.FromID)
	}
}

// ---------------------------------------------------------------------------
// Functions
// ---------------------------------------------------------------------------

func TestAnalyzeUnit_Function(t *testing.T) {
	res := analyze(t, "calc", `def add(a: int, b: int = 2) -> int:
    """Add two numbers.

    Args:
        a (int): first operand
        b (int): second operand

    Returns:
        int: the sum
    """
    return a + b
`)
	require.Empty(t, res.Errors)
	assertEdgeInvariant(t, res.Edges)

	fn := findNode(res.Nodes, graph.NodeFunction, "add")
	require.NotNil(t, fn, "function node should exist")
	assert.Equal(t, "calc.add", fn.QualifiedName)
	assert.Equal(t, "add(a: int, b: int = 2) -> int", fn.Metadata.Signature)
	assert.Equal(t, "int", fn.Metadata.ReturnType)
	assert.Equal(t, 1, fn.Span.StartLine)
	assert.Contains(t, fn.Metadata.Docstring, "Add two numbers.")

	require.NotNil(t, fn.Metrics)
	assert.Equal(t, 1, fn.Metrics.Complexity)
	assert.Equal(t, 1, fn.Metrics.NumReturns)
	assert.Equal(t, 2, fn.Metrics.NumParameters)
	assert.True(t, fn.Metrics.HasDocstring)

	require.NotNil(t, fn.Metadata.Doc)
	assert.Equal(t, "google", fn.Metadata.Doc.Format)
	require.Len(t, fn.Metadata.Doc.Params, 2)
	assert.Equal(t, "a", fn.Metadata.Doc.Params[0].Name)
	assert.Equal(t, "int", fn.Metadata.Doc.Params[0].Type)
	assert.NotEmpty(t, fn.Metadata.Doc.Returns)

	// The file defines the function; the function owns its parameters.
	defines := edgesByKind(res.Edges, graph.EdgeDefines)
	require.Len(t, defines, 1)
	assert.Equal(t, res.FileID, defines[0].FromID)
	assert.Equal(t, fn.ID, defines[0].ToID)

	params := edgesByKind(res.Edges, graph.EdgeHasParameter)
	require.Len(t, params, 2)
	for _, e := range params {
		assert.Equal(t, fn.ID, e.FromID)
	}

	a := findByQualified(res.Nodes, "calc.add.a")
	require.NotNil(t, a)
	assert.Equal(t, graph.NodeParameter, a.Kind)
	assert.Equal(t, graph.ParamPositional, a.Metadata.ParamKind)
	assert.Equal(t, 0, a.Metadata.Position)

	b := findByQualified(res.Nodes, "calc.add.b")
	require.NotNil(t, b)
	assert.Equal(t, "2", b.Metadata.Default)
	assert.Equal(t, 1, b.Metadata.Position)

	returns := edgesByKind(res.Edges, graph.EdgeReturns)
	require.Len(t, returns, 1)
	assert.Equal(t, "a + b", returns[0].ToName)

	assert.Equal(t, 1, res.Stats.Functions)
	assert.NotEmpty(t, fn.EmbeddingText)
	assert.Contains(t, fn.EmbeddingText, fn.Metadata.Signature)
}

func TestAnalyzeUnit_ParameterKinds(t *testing.T) {
	res := analyze(t, "opts", `def configure(host, *extra, flag=True, **overrides):
    pass
`)
	require.Empty(t, res.Errors)

	expect := map[string]graph.ParamKind{
		"host":      graph.ParamPositional,
		"extra":     graph.ParamVararg,
		"flag":      graph.ParamKeywordOnly,
		"overrides": graph.ParamKwarg,
	}
	for name, kind := range expect {
		p := findNode(res.Nodes, graph.NodeParameter, name)
		require.NotNil(t, p, "parameter %s should exist", name)
		assert.Equal(t, kind, p.Metadata.ParamKind, "kind of %s", name)
	}
	flag := findNode(res.Nodes, graph.NodeParameter, "flag")
	assert.Equal(t, "True", flag.Metadata.Default)
}

func TestAnalyzeUnit_AsyncAndNested(t *testing.T) {
	res := analyze(t, "mod", `async def fetch(url):
    def retry():
        pass
    return retry
`)
	require.Empty(t, res.Errors)

	fetch := findNode(res.Nodes, graph.NodeFunction, "fetch")
	require.NotNil(t, fetch)
	assert.True(t, fetch.Metadata.IsAsync)

	retry := findByQualified(res.Nodes, "mod.fetch.retry")
	require.NotNil(t, retry, "nested function should be qualified under its parent")
	assert.False(t, retry.Metadata.IsAsync)

	// The nested function is defined by its enclosing function, not the file.
	var owner string
	for _, e := range edgesByKind(res.Edges, graph.EdgeDefines) {
		if e.ToID == retry.ID {
			owner = e.FromID
		}
	}
	assert.Equal(t, fetch.ID, owner)
}

// ---------------------------------------------------------------------------
// Classes and methods
// ---------------------------------------------------------------------------

func TestAnalyzeUnit_ClassWithMethods(t *testing.T) {
	res := analyze(t, "widgets", `class Base:
    """Base widget."""

class Widget(Base):
    def __init__(self, name):
        self.name = name

    @staticmethod
    def version():
        return "1.0"

    @property
    def label(self):
        return self.name
`)
	require.Empty(t, res.Errors)
	assertEdgeInvariant(t, res.Edges)

	base := findNode(res.Nodes, graph.NodeClass, "Base")
	widget := findNode(res.Nodes, graph.NodeClass, "Widget")
	require.NotNil(t, base)
	require.NotNil(t, widget)
	assert.Equal(t, []string{"Base"}, widget.Metadata.Bases)

	// Base is defined in the same unit, so INHERITS resolves locally.
	inherits := edgesByKind(res.Edges, graph.EdgeInherits)
	require.Len(t, inherits, 1)
	assert.Equal(t, widget.ID, inherits[0].FromID)
	assert.Equal(t, base.ID, inherits[0].ToID)
	assert.Empty(t, pendingByKind(res.Pending, graph.EdgeInherits))

	init := findNode(res.Nodes, graph.NodeMethod, "__init__")
	require.NotNil(t, init)
	assert.Equal(t, "widgets.Widget.__init__", init.QualifiedName)
	assert.True(t, init.Metadata.IsMagic)
	assert.False(t, init.Metadata.IsPrivate, "dunder methods are not private")

	version := findNode(res.Nodes, graph.NodeMethod, "version")
	require.NotNil(t, version)
	assert.True(t, version.Metadata.IsStatic)

	label := findNode(res.Nodes, graph.NodeMethod, "label")
	require.NotNil(t, label)
	assert.True(t, label.Metadata.IsProperty)

	decorates := edgesByKind(res.Edges, graph.EdgeDecorates)
	assert.Len(t, decorates, 2)
	assert.Equal(t, 2, res.Stats.Decorators)
	assert.Equal(t, 2, res.Stats.Classes)
	assert.Equal(t, 3, res.Stats.Methods)
	assert.Equal(t, 0, res.Stats.Functions)
}

func TestAnalyzeUnit_DecoratorsAndImportsHaveStructuralParents(t *testing.T) {
	res := analyze(t, "svc", `import os

class Service:
    @staticmethod
    def ping():
        pass
`)
	require.Empty(t, res.Errors)
	assertEdgeInvariant(t, res.Edges)

	definesIn := map[string]string{}
	for _, e := range edgesByKind(res.Edges, graph.EdgeDefines) {
		require.Empty(t, definesIn[e.ToID], "more than one DEFINES parent for %s", e.ToID)
		definesIn[e.ToID] = e.FromID
	}

	svc := findNode(res.Nodes, graph.NodeClass, "Service")
	require.NotNil(t, svc)

	// The decorator hangs off the scope enclosing the decorated definition.
	dec := findNode(res.Nodes, graph.NodeDecorator, "staticmethod")
	require.NotNil(t, dec)
	assert.Equal(t, svc.ID, definesIn[dec.ID])

	// The import hangs off its lexical scope alongside the IMPORTS edge.
	imp := findNode(res.Nodes, graph.NodeImport, "os")
	require.NotNil(t, imp)
	assert.Equal(t, res.FileID, definesIn[imp.ID])
}

func TestAnalyzeUnit_AbstractClass(t *testing.T) {
	res := analyze(t, "shapes", `from abc import ABC, abstractmethod

class Shape(ABC):
    @abstractmethod
    def area(self):
        ...
`)
	require.Empty(t, res.Errors)

	shape := findNode(res.Nodes, graph.NodeClass, "Shape")
	require.NotNil(t, shape)
	assert.True(t, shape.Metadata.IsAbstract)

	area := findNode(res.Nodes, graph.NodeMethod, "area")
	require.NotNil(t, area)
	assert.True(t, area.Metadata.IsAbstract)

	// ABC came in through a from-import, so the base reference defers to the
	// global pass under its expanded name.
	pend := pendingByKind(res.Pending, graph.EdgeInherits)
	require.Len(t, pend, 1)
	assert.Equal(t, "abc.ABC", pend[0].Name)
}

func TestAnalyzeUnit_SameNameDistinctIDs(t *testing.T) {
	res := analyze(t, "jobs", `def run():
    pass

class Job:
    def run(self):
        pass
`)
	require.Empty(t, res.Errors)

	fn := findNode(res.Nodes, graph.NodeFunction, "run")
	method := findNode(res.Nodes, graph.NodeMethod, "run")
	require.NotNil(t, fn)
	require.NotNil(t, method)
	assert.Equal(t, "jobs.run", fn.QualifiedName)
	assert.Equal(t, "jobs.Job.run", method.QualifiedName)
	assert.NotEqual(t, fn.ID, method.ID)
}

// ---------------------------------------------------------------------------
// Imports
// ---------------------------------------------------------------------------

func TestAnalyzeUnit_Imports(t *testing.T) {
	res := analyze(t, "loader", `import os
import numpy as np
from pathlib import Path

def load(path):
    import json
    return json.loads(Path(path).read_text())
`)
	require.Empty(t, res.Errors)
	assert.Equal(t, 4, res.Stats.Imports)

	osImp := findNode(res.Nodes, graph.NodeImport, "os")
	require.NotNil(t, osImp)
	assert.True(t, osImp.Metadata.IsStdlib)
	assert.False(t, osImp.Metadata.ScopeLocal)
	assert.Equal(t, "direct", osImp.Metadata.ImportType)

	np := findNode(res.Nodes, graph.NodeImport, "numpy")
	require.NotNil(t, np)
	assert.Equal(t, "np", np.Metadata.Alias)
	assert.False(t, np.Metadata.IsStdlib)

	pathImp := findNode(res.Nodes, graph.NodeImport, "Path")
	require.NotNil(t, pathImp)
	assert.Equal(t, "from", pathImp.Metadata.ImportType)
	assert.Equal(t, "pathlib.Path", pathImp.Metadata.Target)
	assert.True(t, pathImp.Metadata.IsStdlib)

	jsonImp := findNode(res.Nodes, graph.NodeImport, "json")
	require.NotNil(t, jsonImp)
	assert.True(t, jsonImp.Metadata.ScopeLocal, "imports inside a function are scope-local")

	// Every import also queues a module-level link for the global pass.
	pend := pendingByKind(res.Pending, graph.EdgeImports)
	names := make([]string, 0, len(pend))
	for _, r := range pend {
		names = append(names, r.Name)
	}
	assert.ElementsMatch(t, []string{"os", "numpy", "pathlib.Path", "json"}, names)

	// Calls through imported names are queued under their expanded targets.
	var callNames []string
	for _, r := range pendingByKind(res.Pending, graph.EdgeCalls) {
		callNames = append(callNames, r.Name)
	}
	assert.Contains(t, callNames, "json.loads")
	assert.Contains(t, callNames, "pathlib.Path")
}

func TestAnalyzeUnit_RelativeImport(t *testing.T) {
	res := analyze(t, "pkg.sub.mod", `from ..util import helper
from . import sibling
`)
	require.Empty(t, res.Errors)

	helper := findNode(res.Nodes, graph.NodeImport, "helper")
	require.NotNil(t, helper)
	assert.True(t, helper.Metadata.IsRelative)
	assert.Equal(t, 2, helper.Metadata.Level)
	assert.Equal(t, "pkg.util.helper", helper.Metadata.Target)

	sibling := findNode(res.Nodes, graph.NodeImport, "sibling")
	require.NotNil(t, sibling)
	assert.Equal(t, 1, sibling.Metadata.Level)
	assert.Equal(t, "pkg.sub.sibling", sibling.Metadata.Target)
}

func TestAnalyzeUnit_RelativeImportInPackageInit(t *testing.T) {
	eng := NewEngine(DefaultHeuristics())
	res, err := eng.AnalyzeUnit(context.Background(), Unit{
		Path:   "pkg/__init__.py",
		Module: "pkg",
		Source: []byte("from . import helpers\nfrom .sub import thing\n"),
	})
	require.NoError(t, err)
	require.Empty(t, res.Errors)

	// A package module is its own relative base: one dot means the package,
	// not its parent.
	helpers := findNode(res.Nodes, graph.NodeImport, "helpers")
	require.NotNil(t, helpers)
	assert.Equal(t, "pkg.helpers", helpers.Metadata.Target)

	thing := findNode(res.Nodes, graph.NodeImport, "thing")
	require.NotNil(t, thing)
	assert.Equal(t, "pkg.sub.thing", thing.Metadata.Target)
}

func TestAnalyzeUnit_ClassBodyImportNotScopeLocal(t *testing.T) {
	res := analyze(t, "mod", `class Lazy:
    import os
`)
	require.Empty(t, res.Errors)

	imp := findNode(res.Nodes, graph.NodeImport, "os")
	require.NotNil(t, imp)
	assert.False(t, imp.Metadata.ScopeLocal, "only function-body imports are scope-local")
}

// ---------------------------------------------------------------------------
// Calls, variables, raises
// ---------------------------------------------------------------------------

func TestAnalyzeUnit_LocalCallResolution(t *testing.T) {
	res := analyze(t, "mod", `def helper():
    pass

def main():
    helper()
    unknown()
`)
	require.Empty(t, res.Errors)

	helper := findNode(res.Nodes, graph.NodeFunction, "helper")
	main := findNode(res.Nodes, graph.NodeFunction, "main")
	require.NotNil(t, helper)
	require.NotNil(t, main)

	calls := edgesByKind(res.Edges, graph.EdgeCalls)
	require.Len(t, calls, 1, "only the local call resolves in phase A")
	assert.Equal(t, main.ID, calls[0].FromID)
	assert.Equal(t, helper.ID, calls[0].ToID)

	pend := pendingByKind(res.Pending, graph.EdgeCalls)
	require.Len(t, pend, 1)
	assert.Equal(t, "unknown", pend[0].Name)
	assert.Equal(t, main.ID, pend[0].FromID)
	assert.Equal(t, 2, res.Stats.Calls)
}

func TestAnalyzeUnit_Variables(t *testing.T) {
	res := analyze(t, "conf", `MAX_SIZE = 100
name = "widget"
items = [1, 2, 3]
copy_of = name
`)
	require.Empty(t, res.Errors)
	assert.Equal(t, 4, res.Stats.Variables)

	maxSize := findNode(res.Nodes, graph.NodeVariable, "MAX_SIZE")
	require.NotNil(t, maxSize)
	assert.True(t, maxSize.Metadata.IsConstant)
	assert.Equal(t, "number", maxSize.Metadata.ValueKind)
	assert.Equal(t, "100", maxSize.Metadata.Value)
	assert.Equal(t, "module", maxSize.Metadata.ScopeKind)

	name := findNode(res.Nodes, graph.NodeVariable, "name")
	require.NotNil(t, name)
	assert.False(t, name.Metadata.IsConstant)
	assert.Equal(t, "string", name.Metadata.ValueKind)

	items := findNode(res.Nodes, graph.NodeVariable, "items")
	require.NotNil(t, items)
	assert.Equal(t, "collection", items.Metadata.ValueKind)

	copyOf := findNode(res.Nodes, graph.NodeVariable, "copy_of")
	require.NotNil(t, copyOf)
	uses := edgesByKind(res.Edges, graph.EdgeUses)
	require.Len(t, uses, 1)
	assert.Equal(t, copyOf.ID, uses[0].FromID)
	assert.Equal(t, name.ID, uses[0].ToID)
}

func TestAnalyzeUnit_Raises(t *testing.T) {
	res := analyze(t, "mod", `def fail(flag):
    if flag:
        raise ValueError("bad")
    raise RuntimeError
`)
	require.Empty(t, res.Errors)

	raises := edgesByKind(res.Edges, graph.EdgeRaises)
	require.Len(t, raises, 2)
	names := []string{raises[0].ToName, raises[1].ToName}
	assert.ElementsMatch(t, []string{"ValueError", "RuntimeError"}, names)
}

// ---------------------------------------------------------------------------
// Metrics
// ---------------------------------------------------------------------------

func TestAnalyzeUnit_Metrics(t *testing.T) {
	res := analyze(t, "mod", `def branchy(a, b):
    if a and b:
        return 1
    elif a:
        for i in range(b):
            if i > 2:
                return i
    return 0
`)
	require.Empty(t, res.Errors)

	fn := findNode(res.Nodes, graph.NodeFunction, "branchy")
	require.NotNil(t, fn)
	require.NotNil(t, fn.Metrics)

	m := fn.Metrics
	assert.Equal(t, 8, m.LinesOfCode)
	assert.Equal(t, 6, m.Complexity, "1 base + if + elif + inner if + for + boolean operator")
	assert.Equal(t, 3, m.NumBranches)
	assert.Equal(t, 1, m.NumLoops)
	assert.Equal(t, 3, m.NumReturns)
	assert.Equal(t, 3, m.MaxNestingDepth)
	assert.Equal(t, 2, m.NumParameters)
	assert.False(t, m.HasDocstring)
}

// ---------------------------------------------------------------------------
// Failure modes and determinism
// ---------------------------------------------------------------------------

func TestAnalyzeUnit_SyntaxError(t *testing.T) {
	res := analyze(t, "bad", "def broken(:\n    pass\n")
	require.NotEmpty(t, res.Errors, "syntax errors must be recorded")
	assert.Equal(t, "bad.py", res.Errors[0].Path)
}

func TestAnalyzeUnit_Deterministic(t *testing.T) {
	src := `class Config:
    DEBUG = False

    def reload(self):
        return load()

def load():
    return Config()
`
	a := analyze(t, "mod", src)
	b := analyze(t, "mod", src)

	require.Equal(t, len(a.Nodes), len(b.Nodes))
	for i := range a.Nodes {
		assert.Equal(t, a.Nodes[i].ID, b.Nodes[i].ID)
		assert.Equal(t, a.Nodes[i].EmbeddingText, b.Nodes[i].EmbeddingText)
	}
	assert.Equal(t, a.Edges, b.Edges)
	assert.Equal(t, a.Pending, b.Pending)
}

func TestAnalyzeUnit_FileNode(t *testing.T) {
	res := analyze(t, "pkg.mod", `"""Module docs."""

X = 1
`)
	require.Empty(t, res.Errors)

	file := findByQualified(res.Nodes, "pkg.mod")
	require.NotNil(t, file)
	assert.Equal(t, graph.NodeFile, file.Kind)
	assert.Equal(t, res.FileID, file.ID)
	assert.Equal(t, "Module docs.", file.Metadata.Docstring)
	assert.Equal(t, 3, file.Metadata.LinesOfCode)
	assert.NotEmpty(t, file.Metadata.SHA1)
	assert.NotEmpty(t, file.EmbeddingText)
}

func TestAnalyzeUnit_EmptyFile(t *testing.T) {
	res := analyze(t, "empty", "")
	require.Empty(t, res.Errors)

	file := findByQualified(res.Nodes, "empty")
	require.NotNil(t, file)
	assert.Equal(t, res.FileID, file.ID)
	assert.Equal(t, graph.Span{StartLine: 1, EndLine: 1}, file.Span)
	assert.Equal(t, 0, file.Metadata.LinesOfCode)
	assert.NotEmpty(t, file.EmbeddingText)
}
