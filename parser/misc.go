package parser

import (
	"strconv"
	"strings"

	"github.com/biohub/subindex/registry"
)

// parseContent is the Content parser kind: a full-text rollup of a
// submission's section tree, walking titles and attribute values
// recursively through nested sections so free-text search and the term
// matcher (C4) see every leaf of the document, not just the top level.
func parseContent(doc map[string]any, _ registry.FieldDescriptor) (string, bool, error) {
	var b strings.Builder
	collectContent(doc, &b)
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", false, nil
	}
	return out, true, nil
}

func collectContent(node any, b *strings.Builder) {
	m, ok := node.(map[string]any)
	if !ok {
		return
	}
	if title, ok := m["title"].(string); ok && title != "" {
		appendToken(b, title)
	}
	if attrs, ok := m["attributes"].([]any); ok {
		for _, a := range attrs {
			am, ok := a.(map[string]any)
			if !ok {
				continue
			}
			if v, ok := asString(am["value"]); ok && v != "" {
				appendToken(b, v)
			}
		}
	}
	if section, ok := m["section"]; ok {
		collectContent(section, b)
	}
	if sections, ok := m["sections"].([]any); ok {
		for _, s := range sections {
			collectContent(s, b)
		}
	}
}

func appendToken(b *strings.Builder, s string) {
	if b.Len() > 0 {
		b.WriteByte(' ')
	}
	b.WriteString(s)
}

// parseFileType is the FileType parser kind: the distinct set of file-type
// tokens recorded as attributes on the submission, pipe-joined.
func parseFileType(doc map[string]any, d registry.FieldDescriptor) (string, bool, error) {
	values := collectAttributeValues(doc, d.Name)
	if len(values) == 0 {
		return "", false, nil
	}
	return strings.Join(dedupCaseInsensitive(values), "|"), true, nil
}

// parseViewCount is the ViewCount parser kind: a lookup through the
// external view-count collaborator (spec §6), keyed by accession.
func parseViewCount(accession string, ctx Context) (string, bool, error) {
	if ctx.ViewCounts == nil {
		return "", false, nil
	}
	count, ok := ctx.ViewCounts.ViewCount(accession)
	if !ok {
		return "", false, nil
	}
	return strconv.FormatInt(count, 10), true, nil
}

// parseAccess is the Access parser kind: "public" once a submission is
// released, "private" beforehand.
func parseAccess(doc map[string]any) (string, bool, error) {
	released, ok := doc["released"].(bool)
	if !ok {
		return "", false, nil
	}
	if released {
		return "public", true, nil
	}
	return "private", true, nil
}

// euToxRiskDataTypeAttribute is the fixed attribute name the
// EUToxRiskDataType parser kind scans for; it is specific to the EU-ToxRisk
// collection's schema rather than descriptor-configured.
const euToxRiskDataTypeAttribute = "EU-ToxRisk Data Type"

func parseEUToxRiskDataType(doc map[string]any) (string, bool, error) {
	values := collectAttributeValues(doc, euToxRiskDataTypeAttribute)
	if len(values) == 0 {
		return "", false, nil
	}
	return strings.Join(dedupCaseInsensitive(values), "|"), true, nil
}

// parseNodeCounting is the NodeCounting parser kind. Per the open question
// recorded in DESIGN.md, it returns the additive count of matched nodes
// across all declared JSON paths rather than a per-path breakdown.
func parseNodeCounting(doc map[string]any, d registry.FieldDescriptor) (string, bool, error) {
	if len(d.JSONPaths) == 0 {
		return "", false, nil
	}
	var total int
	for _, p := range d.JSONPaths {
		total += len(resolvePath(doc, p))
	}
	if total == 0 {
		return "", false, nil
	}
	return strconv.Itoa(total), true, nil
}

// parseType is the Type parser kind: the submission's top-level "type"
// field (e.g. study vs. collection section type), falling back to the
// descriptor's configured default.
func parseType(doc map[string]any, d registry.FieldDescriptor) (string, bool, error) {
	if raw, ok := doc["type"]; ok {
		if s, ok := asString(raw); ok && s != "" {
			return s, true, nil
		}
	}
	if d.Default != "" {
		return d.Default, true, nil
	}
	return "", false, nil
}
