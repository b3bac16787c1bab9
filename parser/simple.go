package parser

import (
	"strconv"
	"strings"

	"github.com/biohub/subindex/registry"
)

// collectAttributeValues gathers every value of a BioStudies-style
// attributes array (`attributes: [{name, value}, ...]`) whose name matches
// the given name case-insensitively, falling back to a direct top-level
// field lookup when the document carries the value as a plain property
// rather than an attribute entry.
func collectAttributeValues(doc map[string]any, name string) []string {
	var out []string
	if attrs, ok := doc["attributes"].([]any); ok {
		lname := lower(name)
		for _, a := range attrs {
			am, ok := a.(map[string]any)
			if !ok {
				continue
			}
			an, _ := am["name"].(string)
			if lower(an) != lname {
				continue
			}
			if v, ok := asString(am["value"]); ok {
				out = append(out, v)
			}
		}
	}
	if len(out) == 0 {
		if v, ok := doc[name]; ok {
			if s, ok := asString(v); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// normalizeMultiValuedFacet applies the multi-valued facet rule (spec
// §4.2): trim, optionally lowercase, drop empties, drop the reserved
// "public" token when stripPublic is set, and deduplicate case-insensitively
// before joining with "|".
func normalizeMultiValuedFacet(values []string, lowerCase, stripPublic bool) string {
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if lowerCase {
			v = lower(v)
		}
		if stripPublic && lower(v) == registry.PublicCollection {
			continue
		}
		cleaned = append(cleaned, v)
	}
	return strings.Join(dedupCaseInsensitive(cleaned), "|")
}

// parseSimpleAttribute is the SimpleAttribute parser kind: resolve the
// descriptor's raw value(s), optionally run a one-capture-group regex
// extractor over each, then apply the field-type-appropriate
// post-processing (boolean-facet collapse, multi-valued facet join, or
// plain "|"-joined passthrough).
func parseSimpleAttribute(doc map[string]any, d registry.FieldDescriptor) (string, bool, error) {
	values := collectAttributeValues(doc, d.Name)

	if d.Regex != "" {
		re, err := compileRegex(d.Regex)
		if err != nil {
			return "", false, err
		}
		extracted := make([]string, 0, len(values))
		for _, v := range values {
			if m := re.FindStringSubmatch(v); m != nil {
				extracted = append(extracted, m[1])
			}
		}
		values = extracted
	}

	if len(values) == 0 {
		return "", false, nil
	}

	if d.Type == registry.TypeFacet {
		if d.EffectiveFacetKind() == registry.FacetKindBoolean {
			for _, v := range values {
				if strings.TrimSpace(v) != "" {
					return "true", true, nil
				}
			}
			return "", false, nil
		}
		stripPublic := d.Name == "facet.collection"
		joined := normalizeMultiValuedFacet(values, d.LowerCase, stripPublic)
		if joined == "" {
			return "", false, nil
		}
		return joined, true, nil
	}

	return strings.Join(values, "|"), true, nil
}

// parseJPathList is the JPathList parser kind: union the hits of every
// declared JSON path, then combine them according to the descriptor's field
// type — long fields sum, facet fields join by "|" (with the standard
// multi-valued facet normalization), everything else joins by space, with
// to_lowercase (d.LowerCase) applied per element before joining.
func parseJPathList(doc map[string]any, d registry.FieldDescriptor) (string, bool, error) {
	if len(d.JSONPaths) == 0 {
		return "", false, nil
	}

	var hits []any
	for _, p := range d.JSONPaths {
		hits = append(hits, resolvePath(doc, p)...)
	}
	if len(hits) == 0 {
		return "", false, nil
	}

	switch d.Type {
	case registry.TypeLong:
		var sum int64
		var found bool
		for _, h := range hits {
			switch v := h.(type) {
			case float64:
				sum += int64(v)
				found = true
			case string:
				if n, err := strconv.ParseInt(v, 10, 64); err == nil {
					sum += n
					found = true
				}
			}
		}
		if !found {
			return "", false, nil
		}
		return strconv.FormatInt(sum, 10), true, nil

	case registry.TypeFacet:
		values := make([]string, 0, len(hits))
		for _, h := range hits {
			if s, ok := asString(h); ok {
				values = append(values, s)
			}
		}
		joined := normalizeMultiValuedFacet(values, d.LowerCase, false)
		if joined == "" {
			return "", false, nil
		}
		return joined, true, nil

	default:
		values := make([]string, 0, len(hits))
		for _, h := range hits {
			s, ok := asString(h)
			if !ok {
				continue
			}
			if d.LowerCase {
				s = lower(s)
			}
			values = append(values, s)
		}
		if len(values) == 0 {
			return "", false, nil
		}
		return strings.Join(values, " "), true, nil
	}
}
