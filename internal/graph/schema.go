package graph

// --- Enums ---

// NodeKind classifies entities in the code knowledge graph.
type NodeKind string

const (
	NodeRepository NodeKind = "Repository"
	NodeDirectory  NodeKind = "Directory"
	NodeFile       NodeKind = "File"
	NodeModule     NodeKind = "Module"
	NodeClass      NodeKind = "Class"
	NodeFunction   NodeKind = "Function"
	NodeMethod     NodeKind = "Method"
	NodeVariable   NodeKind = "Variable"
	NodeParameter  NodeKind = "Parameter"
	NodeImport     NodeKind = "Import"
	NodeDecorator  NodeKind = "Decorator"
)

// EdgeKind classifies relationships between nodes.
type EdgeKind string

const (
	EdgeContains     EdgeKind = "CONTAINS"
	EdgeDefines      EdgeKind = "DEFINES"
	EdgeImports      EdgeKind = "IMPORTS"
	EdgeCalls        EdgeKind = "CALLS"
	EdgeInherits     EdgeKind = "INHERITS"
	EdgeUses         EdgeKind = "USES"
	EdgeDecorates    EdgeKind = "DECORATES"
	EdgeReturns      EdgeKind = "RETURNS"
	EdgeRaises       EdgeKind = "RAISES"
	EdgeHasParameter EdgeKind = "HAS_PARAMETER"
)

// IsCallable reports whether nodes of this kind carry code metrics.
func (k NodeKind) IsCallable() bool {
	return k == NodeFunction || k == NodeMethod
}

// IsStructural reports whether this edge kind belongs to the containment
// tree. Every non-root node has exactly one incoming structural edge.
func (k EdgeKind) IsStructural() bool {
	return k == EdgeContains || k == EdgeDefines || k == EdgeHasParameter
}

// --- Models ---

// Span is a 1-based line range in a source unit. The zero Span marks
// entities with no source extent (repository, directory).
type Span struct {
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

// ParamKind classifies how a parameter binds at call sites.
type ParamKind string

const (
	ParamPositional  ParamKind = "positional"
	ParamVararg      ParamKind = "vararg"
	ParamKeywordOnly ParamKind = "keyword_only"
	ParamKwarg       ParamKind = "kwarg"
)

// Param is one declared parameter of a callable, in declaration order.
type Param struct {
	Name     string    `json:"name"`
	Type     string    `json:"type,omitempty"`
	Kind     ParamKind `json:"kind"`
	Default  string    `json:"default,omitempty"`
	Position int       `json:"position"`
}

// DocParam is one parameter entry parsed out of a structured docstring.
type DocParam struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// DocInfo is the parsed form of a docstring. Format records which section
// grammar matched; "plain" means the whole string was kept as free text.
type DocInfo struct {
	Format  string     `json:"format"`
	Summary string     `json:"summary,omitempty"`
	Params  []DocParam `json:"params,omitempty"`
	Returns string     `json:"returns,omitempty"`
	Raises  []string   `json:"raises,omitempty"`
}

// Metadata holds kind-specific node attributes. Only the fields relevant to
// the node's kind are populated; everything else stays at its zero value and
// is omitted from serialized records.
type Metadata struct {
	// File / Directory / Repository.
	Path        string `json:"path,omitempty"`
	Module      string `json:"module,omitempty"`
	SHA1        string `json:"sha1,omitempty"`
	SizeBytes   int    `json:"size_bytes,omitempty"`
	LinesOfCode int    `json:"lines_of_code,omitempty"`

	// Callables and classes.
	Signature  string   `json:"signature,omitempty"`
	Parameters []Param  `json:"parameters,omitempty"`
	ReturnType string   `json:"return_type,omitempty"`
	Decorators []string `json:"decorators,omitempty"`
	Bases      []string `json:"bases,omitempty"`
	Docstring  string   `json:"docstring,omitempty"`
	Doc        *DocInfo `json:"doc,omitempty"`
	Snippet    string   `json:"snippet,omitempty"`
	Source     string   `json:"source,omitempty"`

	IsAsync       bool `json:"is_async,omitempty"`
	IsStatic      bool `json:"is_static,omitempty"`
	IsClassMethod bool `json:"is_class_method,omitempty"`
	IsProperty    bool `json:"is_property,omitempty"`
	IsPrivate     bool `json:"is_private,omitempty"`
	IsMagic       bool `json:"is_magic,omitempty"`
	IsAbstract    bool `json:"is_abstract,omitempty"`

	// Variables.
	Value      string `json:"value,omitempty"`
	ValueKind  string `json:"value_kind,omitempty"` // number, string, collection, call or unknown
	IsConstant bool   `json:"is_constant,omitempty"`
	ScopeKind  string `json:"scope,omitempty"` // module, class or function

	// Parameters.
	ParamKind ParamKind `json:"param_kind,omitempty"`
	Position  int       `json:"position,omitempty"`
	Default   string    `json:"default,omitempty"`

	// Imports.
	Target     string `json:"target,omitempty"` // fully expanded import target
	Alias      string `json:"alias,omitempty"`
	ImportType string `json:"import_type,omitempty"` // direct or from
	IsStdlib   bool   `json:"is_stdlib,omitempty"`
	IsRelative bool   `json:"is_relative,omitempty"`
	Level      int    `json:"level,omitempty"`
	ScopeLocal bool   `json:"scope_local,omitempty"`
}

// Metrics are the syntactic code-quality measures computed for callables.
type Metrics struct {
	LinesOfCode     int  `json:"lines_of_code"`
	Complexity      int  `json:"complexity"`
	NumParameters   int  `json:"num_parameters"`
	NumReturns      int  `json:"num_returns"`
	NumBranches     int  `json:"num_branches"`
	NumLoops        int  `json:"num_loops"`
	MaxNestingDepth int  `json:"max_nesting_depth"`
	NumDecorators   int  `json:"num_decorators"`
	HasDocstring    bool `json:"has_docstring"`
}

// Node is one typed entity in the graph. ID is content-addressed: a pure
// function of (Kind, QualifiedName, Span), so re-analysis of unchanged input
// reproduces the same IDs and stores can upsert safely.
type Node struct {
	ID            string   `json:"id"`
	Kind          NodeKind `json:"kind"`
	Name          string   `json:"name"`
	QualifiedName string   `json:"qualified_name"`
	Span          Span     `json:"span"`
	Metadata      Metadata `json:"metadata"`
	Metrics       *Metrics `json:"metrics,omitempty"`
	EmbeddingText string   `json:"embedding_text"`
}

// Edge is one typed relationship. Exactly one of ToID and ToName is
// populated: ToID for targets inside the analyzed set, ToName for external
// references.
type Edge struct {
	Kind      EdgeKind `json:"kind"`
	FromID    string   `json:"from_id"`
	ToID      string   `json:"to_id,omitempty"`
	ToName    string   `json:"to_name,omitempty"`
	Span      Span     `json:"span,omitempty"`
	Ambiguous bool     `json:"ambiguous,omitempty"`
}

// Resolved reports whether the edge points at a node in the analyzed set.
func (e Edge) Resolved() bool {
	return e.ToID != ""
}

// Key is the identity used for edge upserts: (kind, from, to|to_name).
func (e Edge) Key() string {
	target := e.ToID
	if target == "" {
		target = e.ToName
	}
	return string(e.Kind) + "\x00" + e.FromID + "\x00" + target
}

// Stats summarizes a stored graph.
type Stats struct {
	NodeCount int            `json:"node_count"`
	EdgeCount int            `json:"edge_count"`
	ByKind    map[string]int `json:"by_kind,omitempty"`
}
