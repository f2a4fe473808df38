package analyzer

import (
	"fmt"
	"path"
	"strings"
	"unicode"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/codegraph/internal/graph"
)

// extractor performs the single-unit traversal: one pass over the syntax
// tree that emits nodes, structural edges, locally resolved reference edges,
// and a queue of pending references for the global linking pass.
type extractor struct {
	heur   Heuristics
	unit   Unit
	src    []byte
	scopes *ScopeStack
	res    *UnitResult

	// importBindings maps names bound by import statements in this unit to
	// their fully expanded dotted targets, so references through aliases are
	// queued under their real names.
	importBindings map[string]string
}

func newExtractor(heur Heuristics, unit Unit) *extractor {
	fileID := FileID(unit.Module, unit.Source)
	return &extractor{
		heur:   heur,
		unit:   unit,
		src:    unit.Source,
		scopes: NewScopeStack(unit.Module, fileID),
		res: &UnitResult{
			Unit:   unit,
			FileID: fileID,
		},
		importBindings: make(map[string]string),
	}
}

func (x *extractor) run(root *tree_sitter.Node) {
	x.addFileNode(root)
	x.walkChildren(root)
}

// walk dispatches on node kind. Definition kinds own their subtree and do
// not fall through to the generic child walk; expression kinds emit their
// edge and keep descending so nested calls are still seen.
func (x *extractor) walk(n *tree_sitter.Node) {
	switch n.Kind() {
	case "function_definition":
		x.extractCallable(n, nil)
		return
	case "class_definition":
		x.extractClass(n, nil)
		return
	case "decorated_definition":
		x.extractDecorated(n)
		return
	case "import_statement":
		x.extractImport(n)
		return
	case "import_from_statement":
		x.extractImportFrom(n)
		return
	case "assignment":
		x.extractAssignment(n)
	case "call":
		x.extractCall(n)
	case "raise_statement":
		x.extractRaise(n)
	case "return_statement":
		x.extractReturn(n)
	}
	x.walkChildren(n)
}

func (x *extractor) walkChildren(n *tree_sitter.Node) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		x.walk(n.NamedChild(i))
	}
}

// ---------- File ----------

func (x *extractor) addFileNode(root *tree_sitter.Node) {
	loc := countLines(x.src)
	doc := moduleDocstring(root, x.src)

	node := graph.Node{
		ID:            x.res.FileID,
		Kind:          graph.NodeFile,
		Name:          path.Base(x.unit.Path),
		QualifiedName: x.unit.Module,
		Span:          fileSpan(x.src),
		Metadata: graph.Metadata{
			Path:        x.unit.Path,
			Module:      x.unit.Module,
			SHA1:        SourceSHA1(x.src),
			SizeBytes:   len(x.src),
			LinesOfCode: loc,
			Docstring:   doc,
		},
	}
	if doc != "" {
		node.Metadata.Doc = ParseDocstring(doc)
	} else {
		node.Metadata.Snippet = x.snippetOf(root)
	}
	node.EmbeddingText = ComposeEmbeddingText(node)
	x.addNode(node)
}

// ---------- Decorated definitions ----------

type decoratorRef struct {
	name string
	span graph.Span
}

func (x *extractor) extractDecorated(n *tree_sitter.Node) {
	var decs []decoratorRef
	var def *tree_sitter.Node
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		switch c.Kind() {
		case "decorator":
			if expr := c.NamedChild(0); expr != nil {
				decs = append(decs, decoratorRef{
					name: decoratorName(expr.Utf8Text(x.src)),
					span: spanOf(c),
				})
			}
		case "function_definition":
			def = c
		case "class_definition":
			def = c
		}
	}
	if def == nil {
		x.minimalNode(graph.NodeFunction, n, "decorated definition without a definition body")
		return
	}
	if def.Kind() == "class_definition" {
		x.extractClass(def, decs)
	} else {
		x.extractCallable(def, decs)
	}
}

// decoratorName strips call arguments from a decorator expression, so
// @lru_cache(maxsize=None) and @lru_cache classify the same.
func decoratorName(text string) string {
	if i := strings.IndexByte(text, '('); i >= 0 {
		return strings.TrimSpace(text[:i])
	}
	return strings.TrimSpace(text)
}

// ---------- Functions and methods ----------

func (x *extractor) extractCallable(n *tree_sitter.Node, decs []decoratorRef) {
	kind := graph.NodeFunction
	if x.scopes.InClass() {
		kind = graph.NodeMethod
	}
	nameNode := n.ChildByFieldName("name")
	body := n.ChildByFieldName("body")
	if nameNode == nil || body == nil {
		x.minimalNode(kind, n, "function definition missing name or body")
		return
	}

	name := nameNode.Utf8Text(x.src)
	span := spanOf(n)
	qualified := x.scopes.Qualify(name)
	id := AssignID(kind, qualified, span)

	params := x.extractParams(n.ChildByFieldName("parameters"))
	returnType := ""
	if rt := n.ChildByFieldName("return_type"); rt != nil {
		returnType = x.exprText(rt)
	}
	doc := docstringOf(body, x.src)

	meta := graph.Metadata{
		Signature:  buildSignature(name, params, returnType),
		Parameters: paramList(params),
		ReturnType: returnType,
		Docstring:  doc,
		Snippet:    x.snippetOf(n),
		Source:     n.Utf8Text(x.src),
		IsAsync:    isAsync(n, x.src),
		IsPrivate:  strings.HasPrefix(name, "_") && !isMagic(name),
		IsMagic:    isMagic(name),
	}
	for _, d := range decs {
		meta.Decorators = append(meta.Decorators, d.name)
		switch {
		case x.heur.StaticMarkers[d.name]:
			meta.IsStatic = true
		case x.heur.ClassMethodMarkers[d.name]:
			meta.IsClassMethod = true
		case x.heur.PropertyMarkers[d.name]:
			meta.IsProperty = true
		case isAbstractDecorator(d.name):
			meta.IsAbstract = true
		}
	}
	if doc != "" {
		meta.Doc = ParseDocstring(doc)
	}

	metrics := computeMetrics(n, body, len(params), len(decs), doc != "")

	node := graph.Node{
		ID:            id,
		Kind:          kind,
		Name:          name,
		QualifiedName: qualified,
		Span:          span,
		Metadata:      meta,
		Metrics:       &metrics,
	}
	node.EmbeddingText = ComposeEmbeddingText(node)
	x.addNode(node)
	x.addEdge(graph.Edge{Kind: graph.EdgeDefines, FromID: x.scopes.CurrentID(), ToID: id, Span: span})
	x.scopes.Bind(name, id)

	if kind == graph.NodeMethod {
		x.res.Stats.Methods++
	} else {
		x.res.Stats.Functions++
	}

	x.addParameterNodes(id, qualified, params)
	for _, d := range decs {
		x.addDecoratorNode(d, id, qualified)
	}

	x.scopes.Enter(kind, name, id)
	defer x.scopes.Exit()
	x.walkChildren(body)
}

// paramInfo pairs the declared parameter with its defining span.
type paramInfo struct {
	graph.Param
	span graph.Span
}

// extractParams reads a parameters list in declaration order, tracking the
// positional / keyword-only boundary introduced by * or *args.
func (x *extractor) extractParams(paramsNode *tree_sitter.Node) []paramInfo {
	if paramsNode == nil {
		return nil
	}
	var out []paramInfo
	kwOnly := false
	for i := uint(0); i < paramsNode.NamedChildCount(); i++ {
		c := paramsNode.NamedChild(i)
		p := paramInfo{span: spanOf(c)}
		p.Kind = graph.ParamPositional
		if kwOnly {
			p.Kind = graph.ParamKeywordOnly
		}

		switch c.Kind() {
		case "identifier":
			p.Name = c.Utf8Text(x.src)
		case "typed_parameter":
			if t := c.ChildByFieldName("type"); t != nil {
				p.Type = x.exprText(t)
			}
			inner := c.NamedChild(0)
			if inner == nil {
				continue
			}
			switch inner.Kind() {
			case "identifier":
				p.Name = inner.Utf8Text(x.src)
			case "list_splat_pattern":
				p.Name = splatName(inner, x.src)
				p.Kind = graph.ParamVararg
				kwOnly = true
			case "dictionary_splat_pattern":
				p.Name = splatName(inner, x.src)
				p.Kind = graph.ParamKwarg
			default:
				continue
			}
		case "default_parameter", "typed_default_parameter":
			nm := c.ChildByFieldName("name")
			if nm == nil {
				continue
			}
			p.Name = nm.Utf8Text(x.src)
			if t := c.ChildByFieldName("type"); t != nil {
				p.Type = x.exprText(t)
			}
			if v := c.ChildByFieldName("value"); v != nil {
				p.Default = x.exprText(v)
			}
		case "list_splat_pattern":
			p.Name = splatName(c, x.src)
			p.Kind = graph.ParamVararg
			kwOnly = true
		case "dictionary_splat_pattern":
			p.Name = splatName(c, x.src)
			p.Kind = graph.ParamKwarg
		case "keyword_separator":
			kwOnly = true
			continue
		case "positional_separator":
			continue
		default:
			continue
		}
		if p.Name == "" {
			continue
		}
		p.Position = len(out)
		out = append(out, p)
	}
	return out
}

func splatName(n *tree_sitter.Node, src []byte) string {
	if inner := n.NamedChild(0); inner != nil {
		return inner.Utf8Text(src)
	}
	return ""
}

func paramList(params []paramInfo) []graph.Param {
	if len(params) == 0 {
		return nil
	}
	out := make([]graph.Param, len(params))
	for i, p := range params {
		out[i] = p.Param
	}
	return out
}

func (x *extractor) addParameterNodes(ownerID, ownerQualified string, params []paramInfo) {
	for _, p := range params {
		qualified := ownerQualified + "." + p.Name
		id := AssignID(graph.NodeParameter, qualified, p.span)
		node := graph.Node{
			ID:            id,
			Kind:          graph.NodeParameter,
			Name:          p.Name,
			QualifiedName: qualified,
			Span:          p.span,
			Metadata: graph.Metadata{
				ReturnType: p.Type,
				ParamKind:  p.Kind,
				Position:   p.Position,
				Default:    p.Default,
			},
		}
		node.EmbeddingText = ComposeEmbeddingText(node)
		x.addNode(node)
		x.addEdge(graph.Edge{Kind: graph.EdgeHasParameter, FromID: ownerID, ToID: id, Span: p.span})
	}
}

func (x *extractor) addDecoratorNode(d decoratorRef, targetID, targetQualified string) {
	qualified := targetQualified + ".@" + d.name
	id := AssignID(graph.NodeDecorator, qualified, d.span)
	node := graph.Node{
		ID:            id,
		Kind:          graph.NodeDecorator,
		Name:          d.name,
		QualifiedName: qualified,
		Span:          d.span,
		Metadata:      graph.Metadata{Target: targetQualified},
	}
	node.EmbeddingText = ComposeEmbeddingText(node)
	x.addNode(node)
	x.addEdge(graph.Edge{Kind: graph.EdgeDefines, FromID: x.scopes.CurrentID(), ToID: id, Span: d.span})
	x.addEdge(graph.Edge{Kind: graph.EdgeDecorates, FromID: id, ToID: targetID, Span: d.span})
	x.res.Stats.Decorators++
}

// ---------- Classes ----------

func (x *extractor) extractClass(n *tree_sitter.Node, decs []decoratorRef) {
	nameNode := n.ChildByFieldName("name")
	body := n.ChildByFieldName("body")
	if nameNode == nil || body == nil {
		x.minimalNode(graph.NodeClass, n, "class definition missing name or body")
		return
	}

	name := nameNode.Utf8Text(x.src)
	span := spanOf(n)
	qualified := x.scopes.Qualify(name)
	id := AssignID(graph.NodeClass, qualified, span)

	var bases []string
	metaclass := ""
	if sup := n.ChildByFieldName("superclasses"); sup != nil {
		for i := uint(0); i < sup.NamedChildCount(); i++ {
			arg := sup.NamedChild(i)
			if arg.Kind() == "keyword_argument" {
				key := arg.ChildByFieldName("name")
				val := arg.ChildByFieldName("value")
				if key != nil && val != nil && key.Utf8Text(x.src) == "metaclass" {
					metaclass = x.exprText(val)
				}
				continue
			}
			bases = append(bases, x.exprText(arg))
		}
	}

	doc := docstringOf(body, x.src)
	meta := graph.Metadata{
		Bases:      bases,
		Docstring:  doc,
		Snippet:    x.snippetOf(n),
		Source:     n.Utf8Text(x.src),
		IsPrivate:  strings.HasPrefix(name, "_"),
		IsAbstract: x.isAbstractClass(bases, metaclass, decs),
	}
	for _, d := range decs {
		meta.Decorators = append(meta.Decorators, d.name)
	}
	if doc != "" {
		meta.Doc = ParseDocstring(doc)
	}

	node := graph.Node{
		ID:            id,
		Kind:          graph.NodeClass,
		Name:          name,
		QualifiedName: qualified,
		Span:          span,
		Metadata:      meta,
	}
	node.EmbeddingText = ComposeEmbeddingText(node)
	x.addNode(node)
	x.addEdge(graph.Edge{Kind: graph.EdgeDefines, FromID: x.scopes.CurrentID(), ToID: id, Span: span})
	x.scopes.Bind(name, id)
	x.res.Stats.Classes++

	for _, base := range bases {
		x.linkBase(id, base, span)
	}
	for _, d := range decs {
		x.addDecoratorNode(d, id, qualified)
	}

	x.scopes.Enter(graph.NodeClass, name, id)
	defer x.scopes.Exit()
	x.walkChildren(body)
}

// linkBase resolves a base class within the unit when it can, otherwise
// queues it for the global pass under its import-expanded name.
func (x *extractor) linkBase(classID, base string, span graph.Span) {
	if !strings.Contains(base, ".") {
		if id, ok := x.scopes.ResolveLocal(base); ok {
			x.addEdge(graph.Edge{Kind: graph.EdgeInherits, FromID: classID, ToID: id, Span: span})
			return
		}
	}
	x.queue(graph.EdgeInherits, classID, x.expandImport(base), span)
}

func (x *extractor) isAbstractClass(bases []string, metaclass string, decs []decoratorRef) bool {
	for _, b := range bases {
		if x.heur.AbstractMarkers[b] {
			return true
		}
	}
	if metaclass != "" && x.heur.AbstractMarkers[metaclass] {
		return true
	}
	for _, d := range decs {
		if isAbstractDecorator(d.name) {
			return true
		}
	}
	return false
}

func isAbstractDecorator(name string) bool {
	return name == "abstractmethod" || name == "abc.abstractmethod" ||
		name == "abstractproperty" || name == "abc.abstractproperty"
}

// ---------- Imports ----------

func (x *extractor) extractImport(n *tree_sitter.Node) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		switch c.Kind() {
		case "dotted_name":
			target := c.Utf8Text(x.src)
			x.addImportNode(c, importSpec{
				name:       target,
				target:     target,
				importType: "direct",
			})
		case "aliased_import":
			nameNode := c.ChildByFieldName("name")
			aliasNode := c.ChildByFieldName("alias")
			if nameNode == nil || aliasNode == nil {
				continue
			}
			target := nameNode.Utf8Text(x.src)
			alias := aliasNode.Utf8Text(x.src)
			x.importBindings[alias] = target
			x.addImportNode(c, importSpec{
				name:       target,
				target:     target,
				alias:      alias,
				importType: "direct",
			})
		}
	}
}

func (x *extractor) extractImportFrom(n *tree_sitter.Node) {
	moduleNode := n.ChildByFieldName("module_name")
	if moduleNode == nil {
		x.fail(n, "from-import without module name")
		return
	}

	module := ""
	level := 0
	if moduleNode.Kind() == "relative_import" {
		for i := uint(0); i < moduleNode.ChildCount(); i++ {
			c := moduleNode.Child(i)
			switch c.Kind() {
			case "import_prefix":
				level = len(c.Utf8Text(x.src))
			case "dotted_name":
				module = c.Utf8Text(x.src)
			}
		}
		module = resolveRelative(x.unit.Module, module, level, x.isPackageUnit())
	} else {
		module = moduleNode.Utf8Text(x.src)
	}

	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c.Id() == moduleNode.Id() {
			continue
		}
		switch c.Kind() {
		case "dotted_name":
			name := c.Utf8Text(x.src)
			target := joinModule(module, name)
			x.importBindings[name] = target
			x.addImportNode(c, importSpec{
				name:       name,
				target:     target,
				module:     module,
				importType: "from",
				level:      level,
			})
		case "aliased_import":
			nameNode := c.ChildByFieldName("name")
			aliasNode := c.ChildByFieldName("alias")
			if nameNode == nil || aliasNode == nil {
				continue
			}
			name := nameNode.Utf8Text(x.src)
			alias := aliasNode.Utf8Text(x.src)
			target := joinModule(module, name)
			x.importBindings[alias] = target
			x.addImportNode(c, importSpec{
				name:       name,
				target:     target,
				module:     module,
				alias:      alias,
				importType: "from",
				level:      level,
			})
		case "wildcard_import":
			x.addImportNode(c, importSpec{
				name:       "*",
				target:     module,
				module:     module,
				importType: "from",
				level:      level,
			})
		}
	}
}

type importSpec struct {
	name       string
	target     string
	module     string
	alias      string
	importType string
	level      int
}

func (x *extractor) addImportNode(n *tree_sitter.Node, spec importSpec) {
	span := spanOf(n)
	binding := spec.alias
	if binding == "" {
		binding = spec.name
	}
	qualified := x.scopes.Qualify(binding)
	id := AssignID(graph.NodeImport, qualified, span)

	node := graph.Node{
		ID:            id,
		Kind:          graph.NodeImport,
		Name:          spec.name,
		QualifiedName: qualified,
		Span:          span,
		Metadata: graph.Metadata{
			Target:     spec.target,
			Module:     spec.module,
			Alias:      spec.alias,
			ImportType: spec.importType,
			IsStdlib:   x.heur.IsStdlib(spec.target),
			IsRelative: spec.level > 0,
			Level:      spec.level,
			ScopeLocal: x.scopes.EnclosingCallableID() != "",
		},
	}
	node.EmbeddingText = ComposeEmbeddingText(node)
	x.addNode(node)
	x.addEdge(graph.Edge{Kind: graph.EdgeDefines, FromID: x.scopes.CurrentID(), ToID: id, Span: span})
	x.addEdge(graph.Edge{Kind: graph.EdgeImports, FromID: x.scopes.CurrentID(), ToID: id, Span: span})
	x.queue(graph.EdgeImports, id, spec.target, span)
	x.res.Stats.Imports++
}

// isPackageUnit reports whether the unit is a package __init__ module. Its
// dotted module name is the package itself, so relative imports start one
// level higher than in a leaf module.
func (x *extractor) isPackageUnit() bool {
	return path.Base(x.unit.Path) == "__init__.py"
}

// resolveRelative expands a relative import against the importing module.
// In a leaf module one level strips the module's own name; in a package
// __init__ module one level is the package itself. Each further level
// strips another package segment.
func resolveRelative(module, sub string, level int, pkg bool) string {
	parts := strings.Split(module, ".")
	strip := level
	if pkg {
		strip--
	}
	if strip < 0 {
		strip = 0
	}
	if strip > len(parts) {
		strip = len(parts)
	}
	base := strings.Join(parts[:len(parts)-strip], ".")
	return joinModule(base, sub)
}

func joinModule(base, name string) string {
	switch {
	case base == "":
		return name
	case name == "":
		return base
	default:
		return base + "." + name
	}
}

// ---------- Assignments ----------

func (x *extractor) extractAssignment(n *tree_sitter.Node) {
	left := n.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" {
		return // tuple unpacking, attribute and subscript targets are out of scope
	}
	name := left.Utf8Text(x.src)
	span := spanOf(n)
	qualified := x.scopes.Qualify(name)
	id := AssignID(graph.NodeVariable, qualified, span)

	meta := graph.Metadata{
		IsConstant: isConstantName(name),
		ScopeKind:  scopeKindName(x.scopes.CurrentKind()),
	}
	right := n.ChildByFieldName("right")
	if right != nil {
		meta.Value = x.exprText(right)
		meta.ValueKind = valueKind(right.Kind())
	}

	node := graph.Node{
		ID:            id,
		Kind:          graph.NodeVariable,
		Name:          name,
		QualifiedName: qualified,
		Span:          span,
		Metadata:      meta,
	}
	node.EmbeddingText = ComposeEmbeddingText(node)
	x.addNode(node)
	x.addEdge(graph.Edge{Kind: graph.EdgeDefines, FromID: x.scopes.CurrentID(), ToID: id, Span: span})
	x.scopes.Bind(name, id)
	x.res.Stats.Variables++

	if right != nil && right.Kind() == "identifier" {
		ref := right.Utf8Text(x.src)
		if refID, ok := x.scopes.ResolveLocal(ref); ok {
			x.addEdge(graph.Edge{Kind: graph.EdgeUses, FromID: id, ToID: refID, Span: span})
		} else {
			x.queue(graph.EdgeUses, id, x.expandImport(ref), span)
		}
	}
}

func isConstantName(name string) bool {
	hasUpper := false
	for _, r := range name {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasUpper = true
		}
	}
	return hasUpper
}

func scopeKindName(kind graph.NodeKind) string {
	switch kind {
	case graph.NodeClass:
		return "class"
	case graph.NodeFunction, graph.NodeMethod:
		return "function"
	default:
		return "module"
	}
}

func valueKind(nodeKind string) string {
	switch nodeKind {
	case "integer", "float":
		return "number"
	case "string", "concatenated_string":
		return "string"
	case "list", "dictionary", "set", "tuple",
		"list_comprehension", "dictionary_comprehension",
		"set_comprehension", "generator_expression":
		return "collection"
	case "call":
		return "call"
	default:
		return "unknown"
	}
}

// ---------- Calls, raises, returns ----------

func (x *extractor) extractCall(n *tree_sitter.Node) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}
	span := spanOf(n)
	caller := x.scopes.CurrentID()

	switch fn.Kind() {
	case "identifier":
		callee := fn.Utf8Text(x.src)
		x.res.Stats.Calls++
		if id, ok := x.scopes.ResolveLocal(callee); ok {
			x.addEdge(graph.Edge{Kind: graph.EdgeCalls, FromID: caller, ToID: id, Span: span})
			return
		}
		x.queue(graph.EdgeCalls, caller, x.expandImport(callee), span)
	case "attribute":
		callee := x.exprText(fn)
		x.res.Stats.Calls++
		x.queue(graph.EdgeCalls, caller, x.expandImport(callee), span)
	}
	// Computed callees (subscripts, call results) have no stable name and
	// are not recorded.
}

func (x *extractor) extractRaise(n *tree_sitter.Node) {
	callable := x.scopes.EnclosingCallableID()
	if callable == "" {
		return
	}
	expr := n.NamedChild(0)
	if expr == nil {
		return // bare re-raise
	}
	name := ""
	if expr.Kind() == "call" {
		if fn := expr.ChildByFieldName("function"); fn != nil {
			name = x.exprText(fn)
		}
	} else {
		name = x.exprText(expr)
	}
	if name == "" {
		return
	}
	x.addEdge(graph.Edge{Kind: graph.EdgeRaises, FromID: callable, ToName: name, Span: spanOf(n)})
}

func (x *extractor) extractReturn(n *tree_sitter.Node) {
	callable := x.scopes.EnclosingCallableID()
	if callable == "" {
		return
	}
	expr := n.NamedChild(0)
	if expr == nil {
		return
	}
	x.addEdge(graph.Edge{Kind: graph.EdgeReturns, FromID: callable, ToName: x.exprText(expr), Span: spanOf(n)})
}

// ---------- Shared helpers ----------

func (x *extractor) addNode(n graph.Node) {
	x.res.Nodes = append(x.res.Nodes, n)
}

func (x *extractor) addEdge(e graph.Edge) {
	x.res.Edges = append(x.res.Edges, e)
}

func (x *extractor) queue(kind graph.EdgeKind, fromID, name string, span graph.Span) {
	x.res.Pending = append(x.res.Pending, PendingRef{
		FromID: fromID,
		Kind:   kind,
		Name:   name,
		Scope:  x.scopes.QualifiedName(),
		Module: x.unit.Module,
		Span:   span,
	})
}

// minimalNode records a partial extraction failure while still emitting a
// placeholder node, so the containment tree stays complete and sibling
// extraction continues.
func (x *extractor) minimalNode(kind graph.NodeKind, n *tree_sitter.Node, msg string) {
	x.fail(n, msg)
	span := spanOf(n)
	qualified := x.scopes.Qualify("<unknown>")
	id := AssignID(kind, qualified, span)
	node := graph.Node{
		ID:            id,
		Kind:          kind,
		Name:          "<unknown>",
		QualifiedName: qualified,
		Span:          span,
		Metadata:      graph.Metadata{Snippet: x.snippetOf(n)},
	}
	node.EmbeddingText = ComposeEmbeddingText(node)
	x.addNode(node)
	x.addEdge(graph.Edge{Kind: graph.EdgeDefines, FromID: x.scopes.CurrentID(), ToID: id, Span: span})
}

// fail records a partial extraction failure and keeps going with siblings.
func (x *extractor) fail(n *tree_sitter.Node, msg string) {
	x.res.Errors = append(x.res.Errors, UnitError{
		Path:    x.unit.Path,
		Line:    int(n.StartPosition().Row) + 1,
		Message: fmt.Sprintf("%s (%s)", msg, n.Kind()),
	})
}

// expandImport rewrites the leading segment of a dotted name through the
// unit's import bindings, so resolution targets the real defining module
// instead of a local alias.
func (x *extractor) expandImport(name string) string {
	base, rest, dotted := strings.Cut(name, ".")
	target, ok := x.importBindings[base]
	if !ok {
		return name
	}
	if dotted {
		return target + "." + rest
	}
	return target
}

func (x *extractor) exprText(n *tree_sitter.Node) string {
	text := n.Utf8Text(x.src)
	if max := x.heur.ExprMaxBytes; max > 0 && len(text) > max {
		text = text[:max] + "..."
	}
	return text
}

// snippetOf captures the leading lines of a construct, bounded by the
// heuristic line and byte limits.
func (x *extractor) snippetOf(n *tree_sitter.Node) string {
	text := n.Utf8Text(x.src)
	lines := strings.Split(text, "\n")
	truncated := false
	if max := x.heur.SnippetMaxLines; max > 0 && len(lines) > max {
		lines = lines[:max]
		truncated = true
	}
	out := strings.Join(lines, "\n")
	if max := x.heur.SnippetMaxBytes; max > 0 && len(out) > max {
		out = out[:max]
		truncated = true
	}
	if truncated {
		out += "\n..."
	}
	return out
}

func spanOf(n *tree_sitter.Node) graph.Span {
	return graph.Span{
		StartLine: int(n.StartPosition().Row) + 1,
		EndLine:   int(n.EndPosition().Row) + 1,
	}
}

// isAsync reports whether a function definition starts with the async
// keyword token.
func isAsync(n *tree_sitter.Node, src []byte) bool {
	first := n.Child(0)
	return first != nil && first.Utf8Text(src) == "async"
}

func isMagic(name string) bool {
	return strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
}

// buildSignature renders the declared signature in source order.
func buildSignature(name string, params []paramInfo, returnType string) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		s := p.Name
		switch p.Kind {
		case graph.ParamVararg:
			s = "*" + s
		case graph.ParamKwarg:
			s = "**" + s
		}
		if p.Type != "" {
			s += ": " + p.Type
		}
		if p.Default != "" {
			if p.Type != "" {
				s += " = " + p.Default
			} else {
				s += "=" + p.Default
			}
		}
		parts = append(parts, s)
	}
	sig := name + "(" + strings.Join(parts, ", ") + ")"
	if returnType != "" {
		sig += " -> " + returnType
	}
	return sig
}

// moduleDocstring returns the docstring of the module itself: a string
// expression statement at the top of the file.
func moduleDocstring(root *tree_sitter.Node, src []byte) string {
	first := root.NamedChild(0)
	if first == nil || first.Kind() != "expression_statement" {
		return ""
	}
	str := first.NamedChild(0)
	if str == nil || str.Kind() != "string" {
		return ""
	}
	return cleanDocstring(str, src)
}

// docstringOf returns the docstring of a function or class body.
func docstringOf(body *tree_sitter.Node, src []byte) string {
	return moduleDocstring(body, src)
}

// cleanDocstring extracts the content of a string literal node and
// normalizes indentation the way Python's inspect.cleandoc does.
func cleanDocstring(str *tree_sitter.Node, src []byte) string {
	var b strings.Builder
	for i := uint(0); i < str.NamedChildCount(); i++ {
		c := str.NamedChild(i)
		if c.Kind() == "string_content" {
			b.WriteString(c.Utf8Text(src))
		}
	}
	return cleandoc(b.String())
}

// cleandoc trims the common leading whitespace of continuation lines and
// strips blank edges.
func cleandoc(text string) string {
	lines := strings.Split(text, "\n")
	margin := -1
	for _, line := range lines[1:] {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		indent := len(line) - len(trimmed)
		if margin < 0 || indent < margin {
			margin = indent
		}
	}
	out := []string{strings.TrimSpace(lines[0])}
	for _, line := range lines[1:] {
		if margin > 0 && len(line) >= margin {
			line = line[margin:]
		}
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return strings.Trim(strings.Join(out, "\n"), "\n")
}
