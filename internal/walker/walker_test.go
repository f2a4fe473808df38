package walker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codegraph/internal/graph"
)

// writeTree lays out files under a temp root. Keys are slash-separated
// relative paths; directories are created as needed.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func unitPaths(tree *Tree) []string {
	out := make([]string, len(tree.Units))
	for i, u := range tree.Units {
		out[i] = u.Path
	}
	return out
}

func TestWalk_BuildsContainmentSkeleton(t *testing.T) {
	root := writeTree(t, map[string]string{
		"top.py":            "x = 1\n",
		"pkg/__init__.py":   "",
		"pkg/mod.py":        "y = 2\n",
		"pkg/sub/deep.py":   "z = 3\n",
		"pkg/readme.md":     "not python\n",
		"pkg/data/notes.md": "also not python\n",
	})

	tree, err := Walk(root, Options{})
	require.NoError(t, err)

	// Repository node plus one Directory per directory on a source path.
	var repo *graph.Node
	dirs := map[string]bool{}
	for i := range tree.Nodes {
		switch tree.Nodes[i].Kind {
		case graph.NodeRepository:
			repo = &tree.Nodes[i]
		case graph.NodeDirectory:
			dirs[tree.Nodes[i].Metadata.Path] = true
		}
	}
	require.NotNil(t, repo)
	assert.Equal(t, tree.RepoID, repo.ID)
	assert.True(t, dirs["pkg"])
	assert.True(t, dirs["pkg/sub"])
	assert.True(t, dirs["pkg/data"], "directories without sources still appear in the tree")

	// Units in lexical path order, Python files only.
	assert.Equal(t, []string{
		"pkg/__init__.py",
		"pkg/mod.py",
		"pkg/sub/deep.py",
		"top.py",
	}, unitPaths(tree))

	// Every directory and file hangs off exactly one parent.
	contains := map[string]int{}
	for _, e := range tree.Edges {
		require.Equal(t, graph.EdgeContains, e.Kind)
		contains[e.ToID]++
	}
	for id, n := range contains {
		assert.Equal(t, 1, n, "node %s has %d parents", id, n)
	}
}

func TestWalk_ModuleNames(t *testing.T) {
	root := writeTree(t, map[string]string{
		"top.py":          "",
		"pkg/__init__.py": "",
		"pkg/mod.py":      "",
		"pkg/sub/deep.py": "",
	})

	tree, err := Walk(root, Options{})
	require.NoError(t, err)

	modules := map[string]string{}
	for _, u := range tree.Units {
		modules[u.Path] = u.Module
	}
	assert.Equal(t, "top", modules["top.py"])
	assert.Equal(t, "pkg", modules["pkg/__init__.py"], "__init__.py takes the package name")
	assert.Equal(t, "pkg.mod", modules["pkg/mod.py"])
	assert.Equal(t, "pkg.sub.deep", modules["pkg/sub/deep.py"])
}

func TestWalk_SkipsExcludedDirectories(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app.py":                    "",
		"__pycache__/app.cpython-311.py": "",
		".venv/lib/junk.py":         "",
		".hidden/secret.py":         "",
		"generated/out.py":          "",
	})

	tree, err := Walk(root, Options{Exclude: []string{"generated"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"app.py"}, unitPaths(tree))
}

func TestWalk_RespectsGitignore(t *testing.T) {
	root := writeTree(t, map[string]string{
		".gitignore":     "vendor/\nscratch.py\n",
		"app.py":         "",
		"scratch.py":     "",
		"vendor/lib.py":  "",
	})

	tree, err := Walk(root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"app.py"}, unitPaths(tree))
}

func TestWalk_Deterministic(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.py":     "x = 1\n",
		"b/c.py":   "y = 2\n",
		"b/d.py":   "z = 3\n",
	})

	first, err := Walk(root, Options{})
	require.NoError(t, err)
	second, err := Walk(root, Options{})
	require.NoError(t, err)

	assert.Equal(t, first.Nodes, second.Nodes)
	assert.Equal(t, first.Edges, second.Edges)
	assert.Equal(t, unitPaths(first), unitPaths(second))
}

func TestWalk_RootMustBeDirectory(t *testing.T) {
	root := writeTree(t, map[string]string{"only.py": ""})

	_, err := Walk(filepath.Join(root, "only.py"), Options{})
	assert.Error(t, err)

	_, err = Walk(filepath.Join(root, "missing"), Options{})
	assert.Error(t, err)
}
