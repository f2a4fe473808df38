package analyzer

import "strings"

// Heuristics are the maintained allow-lists and marker tables that drive
// classification decisions (stdlib detection, abstract-class detection,
// decorator flags). They are configuration passed into the engine, not
// hard-coded branching, so deployments can extend them without touching the
// traversal logic.
type Heuristics struct {
	// StdlibModules is the allow-list used to classify imports as standard
	// library. Matching is on the first dotted segment; no installed
	// environment is consulted.
	StdlibModules map[string]bool

	// StaticMarkers, ClassMethodMarkers and PropertyMarkers are decorator
	// names that flag a method as static, classmethod-style or
	// property-style. Matching is purely by name.
	StaticMarkers      map[string]bool
	ClassMethodMarkers map[string]bool
	PropertyMarkers    map[string]bool

	// AbstractMarkers are base-class and metaclass names that flag a class
	// as abstract. Heuristic, not a guarantee.
	AbstractMarkers map[string]bool

	// SnippetMaxLines and SnippetMaxBytes bound the source snippet captured
	// per entity. ExprMaxBytes bounds captured expression text (defaults,
	// return expressions, variable values).
	SnippetMaxLines int
	SnippetMaxBytes int
	ExprMaxBytes    int
}

// DefaultHeuristics returns the tables used when no overrides are supplied.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		StdlibModules: set(
			"abc", "argparse", "ast", "asyncio", "base64", "collections",
			"contextlib", "copy", "csv", "dataclasses", "datetime", "enum",
			"functools", "glob", "hashlib", "heapq", "io", "itertools",
			"json", "logging", "math", "os", "pathlib", "pickle", "queue",
			"random", "re", "shutil", "socket", "sqlite3", "string",
			"subprocess", "sys", "tempfile", "threading", "time", "typing",
			"unittest", "urllib", "uuid", "warnings",
		),
		StaticMarkers:      set("staticmethod"),
		ClassMethodMarkers: set("classmethod"),
		PropertyMarkers:    set("property", "cached_property", "functools.cached_property"),
		AbstractMarkers:    set("ABC", "abc.ABC", "ABCMeta", "abc.ABCMeta", "Protocol", "typing.Protocol"),
		SnippetMaxLines:    10,
		SnippetMaxBytes:    500,
		ExprMaxBytes:       200,
	}
}

// IsStdlib reports whether the base segment of a dotted module path is on
// the standard-library allow-list.
func (h Heuristics) IsStdlib(module string) bool {
	if module == "" {
		return false
	}
	base, _, _ := strings.Cut(module, ".")
	return h.StdlibModules[base]
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}
