// Package walker discovers the analyzable surface of a repository: it builds
// the Repository / Directory / File containment skeleton and yields source
// units for the engine in a deterministic order.
package walker

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/dusk-indust/codegraph/internal/analyzer"
	"github.com/dusk-indust/codegraph/internal/graph"
)

// Options tune a walk. Exclude entries are directory or file base names
// skipped in addition to the built-in list and any .gitignore rules.
type Options struct {
	Exclude []string
}

// Tree is the structural output of a walk: the containment nodes and edges,
// plus the source units to analyze. Units appear in lexical path order, which
// fixes the traversal order for everything downstream.
type Tree struct {
	RepoID string
	Nodes  []graph.Node
	Edges  []graph.Edge
	Units  []analyzer.Unit
}

// Directories skipped regardless of configuration.
var defaultExcludes = map[string]bool{
	".git":          true,
	"__pycache__":   true,
	"node_modules":  true,
	".venv":         true,
	"venv":          true,
	".tox":          true,
	".mypy_cache":   true,
	".pytest_cache": true,
	"build":         true,
	"dist":          true,
	".eggs":         true,
}

// Walk scans root for Python sources. Every directory on a path to the root
// gets a Directory node and a CONTAINS edge from its parent; every .py file
// gets a unit and a CONTAINS edge from its directory. The walk respects the
// repository's top-level .gitignore when one exists.
func Walk(root string, opts Options) (*Tree, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("walker: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("walker: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("walker: root %s is not a directory", root)
	}

	excludes := make(map[string]bool, len(defaultExcludes)+len(opts.Exclude))
	for name := range defaultExcludes {
		excludes[name] = true
	}
	for _, name := range opts.Exclude {
		excludes[name] = true
	}

	var matcher *ignore.GitIgnore
	if gi := filepath.Join(abs, ".gitignore"); fileExists(gi) {
		if m, err := ignore.CompileIgnoreFile(gi); err == nil {
			matcher = m
		}
	}

	repoName := filepath.Base(abs)
	repoID := analyzer.AssignID(graph.NodeRepository, repoName, graph.Span{})
	repoNode := graph.Node{
		ID:            repoID,
		Kind:          graph.NodeRepository,
		Name:          repoName,
		QualifiedName: repoName,
		Metadata:      graph.Metadata{Path: abs},
	}
	repoNode.EmbeddingText = analyzer.ComposeEmbeddingText(repoNode)

	t := &Tree{
		RepoID: repoID,
		Nodes:  []graph.Node{repoNode},
	}
	dirIDs := map[string]string{".": repoID}

	walkErr := filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(abs, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		base := d.Name()

		if d.IsDir() {
			if excludes[base] || strings.HasPrefix(base, ".") {
				return fs.SkipDir
			}
			if matcher != nil && matcher.MatchesPath(rel+"/") {
				return fs.SkipDir
			}
			t.addDirectory(rel, base, dirIDs)
			return nil
		}

		if excludes[base] || strings.HasPrefix(base, ".") || !strings.HasSuffix(base, ".py") {
			return nil
		}
		if matcher != nil && matcher.MatchesPath(rel) {
			return nil
		}

		source, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("walker: read %s: %w", rel, err)
		}
		module := moduleName(rel)
		fileID := analyzer.FileID(module, source)
		t.Edges = append(t.Edges, graph.Edge{
			Kind:   graph.EdgeContains,
			FromID: dirIDs[parentRel(rel)],
			ToID:   fileID,
		})
		t.Units = append(t.Units, analyzer.Unit{
			Path:   rel,
			Module: module,
			Source: source,
		})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return t, nil
}

// addDirectory emits the Directory node and its containment edge. WalkDir
// visits parents before children, so the parent's ID is always present.
func (t *Tree) addDirectory(rel, base string, dirIDs map[string]string) {
	qualified := strings.ReplaceAll(rel, "/", ".")
	id := analyzer.AssignID(graph.NodeDirectory, qualified, graph.Span{})
	node := graph.Node{
		ID:            id,
		Kind:          graph.NodeDirectory,
		Name:          base,
		QualifiedName: qualified,
		Metadata:      graph.Metadata{Path: rel},
	}
	node.EmbeddingText = analyzer.ComposeEmbeddingText(node)
	t.Nodes = append(t.Nodes, node)
	t.Edges = append(t.Edges, graph.Edge{
		Kind:   graph.EdgeContains,
		FromID: dirIDs[parentRel(rel)],
		ToID:   id,
	})
	dirIDs[rel] = id
}

// moduleName converts a repo-relative source path to its dotted module name.
// A package __init__.py takes the package's own name.
func moduleName(rel string) string {
	trimmed := strings.TrimSuffix(rel, ".py")
	if base := filepath.Base(trimmed); base == "__init__" {
		dir := parentRel(rel)
		if dir == "." {
			return "__init__"
		}
		return strings.ReplaceAll(dir, "/", ".")
	}
	return strings.ReplaceAll(trimmed, "/", ".")
}

func parentRel(rel string) string {
	dir := filepath.Dir(rel)
	return filepath.ToSlash(dir)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
