//go:build !cgo

package graph

import "errors"

// ErrKuzuUnavailable is returned when a KuzuDB store is requested from a
// binary built without CGO. The Kuzu driver wraps the KuzuDB C library, so
// non-CGO builds fall back to JSONL export only.
var ErrKuzuUnavailable = errors.New("graph: kuzu store requires a cgo-enabled build")

// NewKuzuFileStore is the non-CGO placeholder; it always fails.
func NewKuzuFileStore(string) (Store, error) {
	return nil, ErrKuzuUnavailable
}
