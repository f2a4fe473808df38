package analyzer

import (
	"strings"

	"github.com/dusk-indust/codegraph/internal/graph"
)

// scopeFrame is one active lexical scope during a unit traversal.
type scopeFrame struct {
	kind  graph.NodeKind
	name  string
	id    string
	names map[string]string // locally bound name -> node ID
}

// ScopeStack tracks the lexical context while traversing one unit:
// module at the bottom, then classes and functions as they nest. It is
// per-unit state, created fresh for every unit and discarded at the unit
// boundary; nothing survives across units.
//
// Callers must keep Enter/Exit balanced even when extraction of a construct
// fails partway; the extractor does this with defer.
type ScopeStack struct {
	module string
	frames []scopeFrame
}

// NewScopeStack creates a stack rooted at the unit's module scope. moduleID
// is the File node's ID; module is the dotted module name.
func NewScopeStack(module, moduleID string) *ScopeStack {
	return &ScopeStack{
		module: module,
		frames: []scopeFrame{{
			kind:  graph.NodeFile,
			name:  module,
			id:    moduleID,
			names: make(map[string]string),
		}},
	}
}

// Enter pushes a new scope frame for a class or function being traversed.
func (s *ScopeStack) Enter(kind graph.NodeKind, name, id string) {
	s.frames = append(s.frames, scopeFrame{
		kind:  kind,
		name:  name,
		id:    id,
		names: make(map[string]string),
	})
}

// Exit pops the innermost frame. The module frame is never popped.
func (s *ScopeStack) Exit() {
	if len(s.frames) > 1 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

// Depth returns the number of frames, including the module frame.
func (s *ScopeStack) Depth() int {
	return len(s.frames)
}

// CurrentID returns the node ID of the innermost scope. This is the source
// of structural DEFINES edges and the caller of CALLS references.
func (s *ScopeStack) CurrentID() string {
	return s.frames[len(s.frames)-1].id
}

// CurrentKind returns the kind of the innermost scope.
func (s *ScopeStack) CurrentKind() graph.NodeKind {
	return s.frames[len(s.frames)-1].kind
}

// InClass reports whether the innermost scope is a class body, which is
// what distinguishes methods from functions.
func (s *ScopeStack) InClass() bool {
	return s.CurrentKind() == graph.NodeClass
}

// EnclosingCallableID returns the ID of the nearest enclosing function or
// method, or "" when the traversal is not inside one.
func (s *ScopeStack) EnclosingCallableID() string {
	for i := len(s.frames) - 1; i >= 1; i-- {
		if s.frames[i].kind.IsCallable() {
			return s.frames[i].id
		}
	}
	return ""
}

// QualifiedName returns the dot-joined path of the stack, starting from the
// module name. This is the basis for cross-unit name resolution.
func (s *ScopeStack) QualifiedName() string {
	parts := make([]string, 0, len(s.frames))
	if s.module != "" {
		parts = append(parts, s.module)
	}
	for _, f := range s.frames[1:] {
		parts = append(parts, f.name)
	}
	return strings.Join(parts, ".")
}

// Qualify returns the qualified name a definition of the given name would
// receive in the current scope.
func (s *ScopeStack) Qualify(name string) string {
	qn := s.QualifiedName()
	if qn == "" {
		return name
	}
	return qn + "." + name
}

// Bind records a name definition in the innermost scope.
func (s *ScopeStack) Bind(name, id string) {
	s.frames[len(s.frames)-1].names[name] = id
}

// ResolveLocal looks up a name against the scopes of the current unit,
// innermost to outermost. This is single-unit, best-effort resolution: it
// does not see other files, and a miss here is queued for the deferred
// global pass rather than treated as an error.
func (s *ScopeStack) ResolveLocal(name string) (string, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if id, ok := s.frames[i].names[name]; ok {
			return id, true
		}
	}
	return "", false
}
