// Package flatten turns nested records into dotted-path {column -> value}
// tuples.
package flatten

import (
	"sort"
	"strings"
)

// Pair is one flattened (path, value) tuple.
type Pair struct {
	Path  string
	Value any
}

// Record flattens a single record (a map whose values may be maps, slices,
// or scalars) into an ordered sequence of dotted-path pairs.
//
// Rules:
//   - maps recurse; a key named "_id" is skipped at every level.
//   - a slice value at key k: mapping elements recurse with k appended to
//     the path prefix; non-mapping elements are dropped (they contribute no
//     column of their own).
//   - single-character keys and keys starting with a digit are retained
//     here (accidental array-index keys are filtered by the profiler at
//     report-assembly time, not by the flattener).
//   - idempotent and side-effect-free; path order is deterministic —
//     sibling map keys are visited in lexical order (see sortedKeys) so
//     that flattening the same record twice, in the same or a different
//     process, always yields the same path order.
func Record(record map[string]any) []Pair {
	var out []Pair
	walk(record, nil, &out)
	return out
}

func walk(value any, prefix []string, out *[]Pair) {
	switch v := value.(type) {
	case map[string]any:
		for _, key := range sortedKeys(v) {
			if key == "_id" {
				continue
			}
			walkKeyed(key, v[key], prefix, out)
		}
	default:
		// A bare scalar with no key (only reachable at the record root,
		// which is always a map) contributes nothing.
	}
}

// sortedKeys returns m's keys in lexical order. Go's map iteration order
// is intentionally randomized per process; walking keys in range order
// would make two scans of the same record sequence emit columns in
// different orders. Sorting gives a stable, deterministic traversal — the
// same approach encoding/json uses when marshaling a map.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func walkKeyed(key string, value any, prefix []string, out *[]Pair) {
	switch v := value.(type) {
	case map[string]any:
		walk(v, appendCopy(prefix, key), out)
	case []any:
		for _, elem := range v {
			if m, ok := elem.(map[string]any); ok {
				walk(m, appendCopy(prefix, key), out)
			}
			// non-mapping elements contribute no column of their own.
		}
	default:
		path := appendCopy(prefix, key)
		*out = append(*out, Pair{Path: strings.Join(path, "."), Value: value})
	}
}

// appendCopy appends key to a fresh copy of prefix. A plain append(prefix,
// key) would risk aliasing the same backing array across sibling map/slice
// iterations that all extend the same prefix; each recursive branch needs
// its own slice.
func appendCopy(prefix []string, key string) []string {
	out := make([]string, len(prefix), len(prefix)+1)
	copy(out, prefix)
	return append(out, key)
}

// ShortName returns the last dotted segment of a column path.
func ShortName(path string) string {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

// IsSyntheticKey reports whether a key segment looks like an accidental
// array-index artifact (a single character, or one starting with a digit)
// — filtered when stats are written, not during flattening.
func IsSyntheticKey(key string) bool {
	if len(key) == 1 {
		return true
	}
	if len(key) == 0 {
		return false
	}
	c := key[0]
	return c >= '0' && c <= '9'
}
