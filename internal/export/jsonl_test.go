package export

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codegraph/internal/graph"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func sampleGraph() ([]graph.Node, []graph.Edge) {
	nodes := []graph.Node{
		{ID: "n1", Kind: graph.NodeFile, Name: "mod.py", QualifiedName: "mod", EmbeddingText: "Python module mod"},
		{ID: "n2", Kind: graph.NodeFunction, Name: "f", QualifiedName: "mod.f", EmbeddingText: "Function f"},
	}
	edges := []graph.Edge{
		{Kind: graph.EdgeDefines, FromID: "n1", ToID: "n2"},
		{Kind: graph.EdgeCalls, FromID: "n2", ToName: "requests.get"},
	}
	return nodes, edges
}

func TestWriteGraph(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	nodes, edges := sampleGraph()
	require.NoError(t, WriteGraph(dir, nodes, edges))

	nodeLines := readLines(t, filepath.Join(dir, "nodes.jsonl"))
	require.Len(t, nodeLines, 2)
	var n graph.Node
	require.NoError(t, json.Unmarshal([]byte(nodeLines[0]), &n))
	assert.Equal(t, "n1", n.ID)
	assert.Equal(t, graph.NodeFile, n.Kind)

	edgeLines := readLines(t, filepath.Join(dir, "edges.jsonl"))
	require.Len(t, edgeLines, 2)
	var e graph.Edge
	require.NoError(t, json.Unmarshal([]byte(edgeLines[1]), &e))
	assert.Equal(t, "requests.get", e.ToName)
	assert.Empty(t, e.ToID)
}

func TestWriteGraph_TruncatesPreviousRun(t *testing.T) {
	dir := t.TempDir()
	nodes, edges := sampleGraph()

	require.NoError(t, WriteGraph(dir, nodes, edges))
	require.NoError(t, WriteGraph(dir, nodes[:1], nil))

	assert.Len(t, readLines(t, filepath.Join(dir, "nodes.jsonl")), 1)
	assert.Empty(t, readLines(t, filepath.Join(dir, "edges.jsonl")))
}

func TestWriteStats(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteStats(dir, map[string]int{"node_count": 7}))

	b, err := os.ReadFile(filepath.Join(dir, "stats.json"))
	require.NoError(t, err)

	var got map[string]int
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, 7, got["node_count"])
}
