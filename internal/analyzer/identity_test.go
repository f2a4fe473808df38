package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dusk-indust/codegraph/internal/graph"
)

func TestAssignID_Deterministic(t *testing.T) {
	span := graph.Span{StartLine: 10, EndLine: 20}
	a := AssignID(graph.NodeFunction, "pkg.mod.helper", span)
	b := AssignID(graph.NodeFunction, "pkg.mod.helper", span)
	assert.Equal(t, a, b, "same input must produce the same ID")
	assert.Len(t, a, 40, "IDs are hex SHA-1 digests")
}

func TestAssignID_Distinct(t *testing.T) {
	span := graph.Span{StartLine: 10, EndLine: 20}
	base := AssignID(graph.NodeFunction, "pkg.mod.helper", span)

	assert.NotEqual(t, base, AssignID(graph.NodeMethod, "pkg.mod.helper", span),
		"kind participates in identity")
	assert.NotEqual(t, base, AssignID(graph.NodeFunction, "pkg.other.helper", span),
		"qualified name participates in identity")
	assert.NotEqual(t, base, AssignID(graph.NodeFunction, "pkg.mod.helper", graph.Span{StartLine: 11, EndLine: 20}),
		"span participates in identity")
}

func TestFileID_MatchesAcrossCallers(t *testing.T) {
	src := []byte("x = 1\ny = 2\n")
	a := FileID("pkg.mod", src)
	b := FileID("pkg.mod", src)
	assert.Equal(t, a, b)

	// Shifted content changes the line count and with it the ID.
	assert.NotEqual(t, a, FileID("pkg.mod", []byte("x = 1\ny = 2\nz = 3\n")))
}

func TestSourceSHA1(t *testing.T) {
	assert.Equal(t, "da39a3ee5e6b4b0d3255bfef95601890afd80709", SourceSHA1(nil),
		"empty input hashes to the well-known empty SHA-1")
	assert.NotEqual(t, SourceSHA1([]byte("a")), SourceSHA1([]byte("b")))
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, countLines(nil))
	assert.Equal(t, 1, countLines([]byte("x = 1")))
	assert.Equal(t, 2, countLines([]byte("x = 1\ny = 2")))
	assert.Equal(t, 2, countLines([]byte("x = 1\ny = 2\n")),
		"a trailing newline does not start a new line")
}
