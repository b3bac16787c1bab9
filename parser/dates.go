package parser

import (
	"strconv"
	"strings"
	"time"

	"github.com/biohub/subindex/registry"
)

// rawFieldValue resolves a descriptor's source value: its JSON paths if any
// are declared (first hit wins), otherwise the doc's top-level field named
// after the descriptor.
func rawFieldValue(doc map[string]any, d registry.FieldDescriptor) (any, bool) {
	if len(d.JSONPaths) > 0 {
		for _, p := range d.JSONPaths {
			if vals := resolvePath(doc, p); len(vals) > 0 {
				return vals[0], true
			}
		}
		return nil, false
	}
	v, ok := doc[d.Name]
	return v, ok && v != nil
}

// resolveDateMillis accepts the five encodings spec §4.2 enumerates:
// {"$date": ISO8601}, {"$date": millis}, {"$date": {"$numberLong": "millis"}},
// a bare ISO8601 string, and a bare numeric millisecond value.
func resolveDateMillis(raw any) (int64, bool) {
	switch v := raw.(type) {
	case map[string]any:
		if inner, ok := v["$date"]; ok {
			return resolveDateMillis(inner)
		}
		if nl, ok := v["$numberLong"].(string); ok {
			n, err := strconv.ParseInt(nl, 10, 64)
			if err != nil {
				return 0, false
			}
			return n, true
		}
		return 0, false
	case string:
		return parseISO8601Millis(v)
	case float64:
		return int64(v), true
	}
	return 0, false
}

func parseISO8601Millis(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.000Z0700",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}

// parseDate implements the Date parser kind: a numeric epoch-millisecond
// field that is never absent. Missing or unparsable input yields the
// sentinel -1 rather than "none" (spec §4.2).
func parseDate(doc map[string]any, d registry.FieldDescriptor) (string, bool, error) {
	raw, ok := rawFieldValue(doc, d)
	if !ok {
		return "-1", true, nil
	}
	millis, ok := resolveDateMillis(raw)
	if !ok {
		return "-1", true, nil
	}
	return strconv.FormatInt(millis, 10), true, nil
}

// parseYear derives the UTC year from the same input a Date parser would
// consume. Unlike Date, a missing value yields none: a year facet with no
// underlying date should not materialize a value at all.
func parseYear(doc map[string]any, d registry.FieldDescriptor) (string, bool, error) {
	raw, ok := rawFieldValue(doc, d)
	if !ok {
		return "", false, nil
	}
	millis, ok := resolveDateMillis(raw)
	if !ok {
		return "", false, nil
	}
	return strconv.Itoa(time.UnixMilli(millis).UTC().Year()), true, nil
}

// parseReleaseYearField is the ReleaseYear/ModificationYear parser kind:
// derive the UTC year of a fixed top-level field (releaseTime or
// modificationTime) rather than a descriptor-configured path.
func parseReleaseYearField(doc map[string]any, field string) (string, bool, error) {
	raw, ok := doc[field]
	if !ok || raw == nil {
		return "", false, nil
	}
	millis, ok := resolveDateMillis(raw)
	if !ok {
		return "", false, nil
	}
	return strconv.Itoa(time.UnixMilli(millis).UTC().Year()), true, nil
}

// parseReleaseDate implements the release-date resolver (spec §4.2):
// releaseTime when present and positive, else modificationTime when the
// submission is released, else none.
func parseReleaseDate(doc map[string]any) (string, bool, error) {
	if raw, ok := doc["releaseTime"]; ok && raw != nil {
		if millis, ok := resolveDateMillis(raw); ok && millis > 0 {
			return strconv.FormatInt(millis, 10), true, nil
		}
	}
	if released, ok := doc["released"].(bool); ok && released {
		if raw, ok := doc["modificationTime"]; ok && raw != nil {
			if millis, ok := resolveDateMillis(raw); ok {
				return strconv.FormatInt(millis, 10), true, nil
			}
		}
	}
	return "", false, nil
}
