package parser

import "strings"

// resolvePath evaluates a dotted JSON path against a decoded JSON document
// (maps and slices of any, as produced by encoding/json or sonic into
// map[string]any) and returns every matching leaf value, flattened across
// arrays. A segment suffixed with "[]" descends into an array field and
// continues the remaining path against each element; without the suffix,
// an array encountered mid-path is still walked transparently (a document
// whose shape varies between a single object and an array of objects is
// common in submission JSON, and the spec's JSON-path parser only ever
// reasons about the union of hits, never array identity).
func resolvePath(root any, path string) []any {
	if path == "" {
		return nil
	}
	segments := strings.Split(path, ".")
	values := []any{root}
	for _, seg := range segments {
		arrayMode := strings.HasSuffix(seg, "[]")
		key := strings.TrimSuffix(seg, "[]")
		if key == "" {
			continue
		}
		var next []any
		for _, v := range values {
			next = append(next, descend(v, key, arrayMode)...)
		}
		values = next
	}
	return values
}

func descend(v any, key string, arrayMode bool) []any {
	switch vv := v.(type) {
	case map[string]any:
		child, ok := vv[key]
		if !ok || child == nil {
			return nil
		}
		if arrayMode {
			if arr, ok := child.([]any); ok {
				return arr
			}
			return nil
		}
		return []any{child}
	case []any:
		var out []any
		for _, elem := range vv {
			out = append(out, descend(elem, key, arrayMode)...)
		}
		return out
	default:
		return nil
	}
}

// asString coerces a resolved leaf value to its string form for joining.
// Booleans and numbers render via their natural textual form; nested
// structures are skipped (callers only ever point JSON paths at scalar
// leaves).
func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return trimFloat(t), true
	case bool:
		if t {
			return "true", true
		}
		return "false", true
	default:
		return "", false
	}
}
