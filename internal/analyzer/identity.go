package analyzer

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"strconv"

	"github.com/dusk-indust/codegraph/internal/graph"
)

// AssignID produces the content-addressed identifier for an entity. It is a
// pure function of (kind, qualified name, defining span): identical input
// always yields the same ID, which is what makes re-analysis idempotent and
// store upserts safe. Entities sharing a name but differing in qualified
// path or span never collide.
func AssignID(kind graph.NodeKind, qualifiedName string, span graph.Span) string {
	h := sha1.New()
	h.Write([]byte(string(kind)))
	h.Write([]byte("::"))
	h.Write([]byte(qualifiedName))
	h.Write([]byte("::"))
	h.Write([]byte(strconv.Itoa(span.StartLine)))
	h.Write([]byte("-"))
	h.Write([]byte(strconv.Itoa(span.EndLine)))
	return hex.EncodeToString(h.Sum(nil))
}

// fileSpan returns the span of a whole unit. An empty unit still spans its
// first line so EndLine never precedes StartLine.
func fileSpan(source []byte) graph.Span {
	loc := countLines(source)
	if loc < 1 {
		loc = 1
	}
	return graph.Span{StartLine: 1, EndLine: loc}
}

// FileID returns the ID of the File node for a unit. The span of a file is
// its full line range, so the walker and the engine derive the same ID from
// the same (module, source) pair without sharing state.
func FileID(module string, source []byte) string {
	return AssignID(graph.NodeFile, module, fileSpan(source))
}

// SourceSHA1 returns the hex SHA-1 of raw unit content, recorded on File
// nodes so an external store can detect content drift.
func SourceSHA1(source []byte) string {
	sum := sha1.Sum(source)
	return hex.EncodeToString(sum[:])
}

// countLines counts lines the way splitlines does: a trailing newline ends
// the last line rather than starting an empty one.
func countLines(source []byte) int {
	if len(source) == 0 {
		return 0
	}
	n := bytes.Count(source, []byte{'\n'})
	if source[len(source)-1] != '\n' {
		n++
	}
	return n
}
