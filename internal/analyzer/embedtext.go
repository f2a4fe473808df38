package analyzer

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/codegraph/internal/graph"
)

// ComposeEmbeddingText renders the natural-language surrogate stored on every
// node for downstream semantic indexing. The text layers what is available:
// a kind-specific header built from identity and signature, then the
// docstring summary when one exists, then a source snippet as fallback. The
// header alone is always non-empty, so no node ever embeds as an empty
// string. Composition is deterministic: same node, same text.
func ComposeEmbeddingText(n graph.Node) string {
	parts := []string{headerText(n)}

	doc := strings.TrimSpace(n.Metadata.Docstring)
	switch {
	case doc != "":
		parts = append(parts, doc)
	case n.Metadata.Snippet != "":
		parts = append(parts, n.Metadata.Snippet)
	}
	return strings.Join(parts, "\n\n")
}

func headerText(n graph.Node) string {
	switch n.Kind {
	case graph.NodeRepository:
		return fmt.Sprintf("Repository %s", n.Name)
	case graph.NodeDirectory:
		return fmt.Sprintf("Directory %s in repository", n.Metadata.Path)
	case graph.NodeFile:
		return fmt.Sprintf("Python module %s (file %s)", n.QualifiedName, n.Metadata.Path)
	case graph.NodeClass:
		if len(n.Metadata.Bases) > 0 {
			return fmt.Sprintf("Class %s(%s) in %s",
				n.Name, strings.Join(n.Metadata.Bases, ", "), ownerOf(n))
		}
		return fmt.Sprintf("Class %s in %s", n.Name, ownerOf(n))
	case graph.NodeFunction:
		return fmt.Sprintf("Function %s in %s", signatureOrName(n), ownerOf(n))
	case graph.NodeMethod:
		return fmt.Sprintf("Method %s of %s", signatureOrName(n), ownerOf(n))
	case graph.NodeVariable:
		word := "Variable"
		if n.Metadata.IsConstant {
			word = "Constant"
		}
		if n.Metadata.Value != "" {
			return fmt.Sprintf("%s %s = %s in %s", word, n.Name, n.Metadata.Value, ownerOf(n))
		}
		return fmt.Sprintf("%s %s in %s", word, n.Name, ownerOf(n))
	case graph.NodeParameter:
		if n.Metadata.ReturnType != "" {
			return fmt.Sprintf("Parameter %s: %s of %s", n.Name, n.Metadata.ReturnType, ownerOf(n))
		}
		return fmt.Sprintf("Parameter %s of %s", n.Name, ownerOf(n))
	case graph.NodeImport:
		origin := "external"
		if n.Metadata.IsStdlib {
			origin = "standard library"
		} else if n.Metadata.IsRelative {
			origin = "local package"
		}
		return fmt.Sprintf("Import of %s (%s)", n.Metadata.Target, origin)
	case graph.NodeDecorator:
		return fmt.Sprintf("Decorator @%s applied to %s", n.Name, n.Metadata.Target)
	default:
		return fmt.Sprintf("%s %s", n.Kind, n.QualifiedName)
	}
}

// signatureOrName prefers the full declared signature when extraction
// captured one.
func signatureOrName(n graph.Node) string {
	if n.Metadata.Signature != "" {
		return n.Metadata.Signature
	}
	return n.Name
}

// ownerOf names the enclosing scope: the qualified name minus the entity's
// own final segment.
func ownerOf(n graph.Node) string {
	qn := n.QualifiedName
	if i := strings.LastIndexByte(qn, '.'); i > 0 {
		return qn[:i]
	}
	if qn != "" {
		return qn
	}
	return n.Name
}
