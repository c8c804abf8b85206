// Package fieldmap normalizes the heterogeneous records returned by the
// scraping actors into canonical fields. Actor output schemas drift between
// actor versions, so each canonical field is resolved through an ordered
// list of candidate paths; schema drift is a table edit, not new code.
package fieldmap

import (
	"strconv"
	"strings"
)

// Spec is an ordered list of candidate access paths for one canonical
// field. A path is a dotted key sequence; a segment may carry an index
// ("experiences[0]") or empty brackets ("positions[].title") meaning the
// first element for which the rest of the path yields a non-null value.
type Spec []string

// Resolve evaluates the candidate paths in priority order and returns the
// first present, non-null value. A missing field is (nil, false), never an
// error: absent values map to nulls downstream.
func Resolve(raw map[string]any, spec Spec) (any, bool) {
	for _, path := range spec {
		if v, ok := lookup(raw, strings.Split(path, ".")); ok {
			return v, true
		}
	}
	return nil, false
}

func lookup(node any, segments []string) (any, bool) {
	if len(segments) == 0 {
		if node == nil {
			return nil, false
		}
		return node, true
	}

	key, idx, scan := splitSegment(segments[0])

	m, ok := node.(map[string]any)
	if !ok {
		return nil, false
	}
	child, ok := m[key]
	if !ok || child == nil {
		return nil, false
	}

	switch {
	case scan:
		list, ok := child.([]any)
		if !ok {
			return nil, false
		}
		for _, el := range list {
			if v, ok := lookup(el, segments[1:]); ok {
				return v, true
			}
		}
		return nil, false
	case idx >= 0:
		list, ok := child.([]any)
		if !ok || idx >= len(list) {
			return nil, false
		}
		return lookup(list[idx], segments[1:])
	default:
		return lookup(child, segments[1:])
	}
}

// splitSegment parses "key", "key[3]" or "key[]".
func splitSegment(seg string) (key string, idx int, scan bool) {
	open := strings.IndexByte(seg, '[')
	if open < 0 || !strings.HasSuffix(seg, "]") {
		return seg, -1, false
	}
	key = seg[:open]
	inner := seg[open+1 : len(seg)-1]
	if inner == "" {
		return key, -1, true
	}
	n, err := strconv.Atoi(inner)
	if err != nil || n < 0 {
		return seg, -1, false
	}
	return key, n, false
}

// ResolveString resolves the field and coerces it to a non-empty string.
func ResolveString(raw map[string]any, spec Spec) (string, bool) {
	v, ok := Resolve(raw, spec)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// ResolveInt resolves the field and coerces JSON numbers and numeric
// strings to an int.
func ResolveInt(raw map[string]any, spec Spec) (int, bool) {
	v, ok := Resolve(raw, spec)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

// ResolveBool resolves the field as a bool.
func ResolveBool(raw map[string]any, spec Spec) (bool, bool) {
	v, ok := Resolve(raw, spec)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}
