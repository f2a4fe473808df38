package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dusk-indust/codegraph/internal/graph"
)

// WarningKind labels the two non-fatal outcomes of global resolution.
type WarningKind string

const (
	WarnUnresolved WarningKind = "unresolved"
	WarnAmbiguous  WarningKind = "ambiguous"
)

// Warning records a reference the linker could not settle cleanly. These are
// diagnostics, not errors: the edge is still emitted, external for
// unresolved names and first-candidate for ambiguous ones.
type Warning struct {
	Kind       WarningKind `json:"kind"`
	Ref        PendingRef  `json:"ref"`
	Candidates []string    `json:"candidates,omitempty"`
}

func (w Warning) String() string {
	switch w.Kind {
	case WarnAmbiguous:
		return fmt.Sprintf("%s: %s %q in %s matches %d definitions",
			w.Kind, w.Ref.Kind, w.Ref.Name, w.Ref.Module, len(w.Candidates))
	default:
		return fmt.Sprintf("%s: %s %q in %s", w.Kind, w.Ref.Kind, w.Ref.Name, w.Ref.Module)
	}
}

// candidate is one linkable definition in the global name index.
type candidate struct {
	id        string
	kind      graph.NodeKind
	qualified string
	module    string
	order     int // position in traversal order, the deterministic tie-break
}

// Linker is the global resolution pass. Units feed it their definitions and
// pending references in traversal order; after the last unit, Resolve turns
// every pending reference into exactly one edge. The linker never runs
// concurrently with unit analysis: callers add all units behind the fan-out
// barrier, then resolve once.
type Linker struct {
	next        int
	byQualified map[string][]candidate
	bySuffix    map[string][]candidate // keyed by final name segment
	pending     []PendingRef
}

// NewLinker creates an empty Linker.
func NewLinker() *Linker {
	return &Linker{
		byQualified: make(map[string][]candidate),
		bySuffix:    make(map[string][]candidate),
	}
}

// AddUnit indexes a unit's definitions and queues its pending references.
// Call order defines the tie-break order, so callers must add units in the
// walker's deterministic sequence.
func (l *Linker) AddUnit(res *UnitResult) {
	for _, n := range res.Nodes {
		if !linkable(n) {
			continue
		}
		c := candidate{
			id:        n.ID,
			kind:      n.Kind,
			qualified: n.QualifiedName,
			module:    res.Unit.Module,
			order:     l.next,
		}
		l.next++
		l.byQualified[n.QualifiedName] = append(l.byQualified[n.QualifiedName], c)
		if i := strings.LastIndexByte(n.QualifiedName, '.'); i >= 0 {
			l.bySuffix[n.QualifiedName[i+1:]] = append(l.bySuffix[n.QualifiedName[i+1:]], c)
		} else {
			l.bySuffix[n.QualifiedName] = append(l.bySuffix[n.QualifiedName], c)
		}
	}
	l.pending = append(l.pending, res.Pending...)
}

// linkable reports whether a node can be the target of a deferred reference.
// Files link by module name; classes, functions and methods by qualified
// name; variables only when module- or class-scoped, since function locals
// are invisible across units.
func linkable(n graph.Node) bool {
	switch n.Kind {
	case graph.NodeFile, graph.NodeClass, graph.NodeFunction, graph.NodeMethod:
		return true
	case graph.NodeVariable:
		return n.Metadata.ScopeKind != "function"
	default:
		return false
	}
}

// Resolve settles every pending reference and returns the resulting edges in
// queue order. Each reference yields exactly one edge: resolved (ToID),
// resolved-but-ambiguous (ToID plus the Ambiguous flag), or external
// (ToName). Resolution is read-only over the index, so the pass is
// deterministic for a fixed AddUnit order.
func (l *Linker) Resolve() ([]graph.Edge, []Warning) {
	edges := make([]graph.Edge, 0, len(l.pending))
	var warnings []Warning

	for _, ref := range l.pending {
		edge, warn := l.resolve(ref)
		edges = append(edges, edge)
		if warn != nil {
			warnings = append(warnings, *warn)
		}
	}
	return edges, warnings
}

func (l *Linker) resolve(ref PendingRef) (graph.Edge, *Warning) {
	// Exact qualified name wins outright.
	if cands := l.byQualified[ref.Name]; len(cands) > 0 {
		return l.pick(ref, cands)
	}

	// Scope chain: the name prefixed by each enclosing scope, innermost out.
	// A call to "helper" inside pkg.mod.Class.method tries
	// pkg.mod.Class.method.helper, pkg.mod.Class.helper, pkg.mod.helper.
	scope := ref.Scope
	for scope != "" {
		if cands := l.byQualified[scope+"."+ref.Name]; len(cands) > 0 {
			return l.pick(ref, cands)
		}
		if i := strings.LastIndexByte(scope, '.'); i >= 0 {
			scope = scope[:i]
		} else {
			scope = ""
		}
	}

	// Suffix match across all units, preferring the reference's own module.
	if cands := l.suffixMatch(ref.Name); len(cands) > 0 {
		if local := filterModule(cands, ref.Module); len(local) > 0 {
			return l.pick(ref, local)
		}
		return l.pick(ref, cands)
	}

	return graph.Edge{
		Kind:   ref.Kind,
		FromID: ref.FromID,
		ToName: ref.Name,
		Span:   ref.Span,
	}, &Warning{Kind: WarnUnresolved, Ref: ref}
}

// suffixMatch finds definitions whose qualified name ends in the referenced
// name. For a simple name that is a plain last-segment lookup; for a dotted
// name the full dotted suffix must match, so "models.User" does not link a
// class merely named "User" in an unrelated package.
func (l *Linker) suffixMatch(name string) []candidate {
	last := name
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		last = name[i+1:]
	}
	cands := l.bySuffix[last]
	if last == name {
		return cands
	}
	var out []candidate
	for _, c := range cands {
		if c.qualified == name || strings.HasSuffix(c.qualified, "."+name) {
			out = append(out, c)
		}
	}
	return out
}

func filterModule(cands []candidate, module string) []candidate {
	var out []candidate
	for _, c := range cands {
		if c.module == module {
			out = append(out, c)
		}
	}
	return out
}

// pick selects among matched candidates. A single match resolves cleanly.
// Multiple matches resolve to the first definition in traversal order with
// the Ambiguous flag set and a warning carrying every candidate, so
// downstream consumers can reconstruct the choice.
func (l *Linker) pick(ref PendingRef, cands []candidate) (graph.Edge, *Warning) {
	if len(cands) == 1 {
		return graph.Edge{
			Kind:   ref.Kind,
			FromID: ref.FromID,
			ToID:   cands[0].id,
			Span:   ref.Span,
		}, nil
	}

	sorted := make([]candidate, len(cands))
	copy(sorted, cands)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].order < sorted[j].order })

	names := make([]string, len(sorted))
	for i, c := range sorted {
		names[i] = c.qualified
	}
	return graph.Edge{
		Kind:      ref.Kind,
		FromID:    ref.FromID,
		ToID:      sorted[0].id,
		Span:      ref.Span,
		Ambiguous: true,
	}, &Warning{Kind: WarnAmbiguous, Ref: ref, Candidates: names}
}
