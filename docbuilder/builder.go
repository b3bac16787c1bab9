// Package docbuilder implements component C7: assembling the per-submission
// value map produced by the parser set (C2) and file-list indexer (C6)
// into the final document handed to the index writer coordinator (C8).
package docbuilder

import (
	"sort"
	"strconv"
	"strings"

	"github.com/biohub/subindex/errs"
	"github.com/biohub/subindex/fileindex"
	"github.com/biohub/subindex/ontology"
	"github.com/biohub/subindex/registry"
	"github.com/biohub/subindex/termmatch"
)

// naSentinel substitutes for a blank/null facet value that has no
// descriptor-level default (spec §4.7 step 3).
const naSentinel = "NA"

// collectionFacetField is the reserved field name validated by step 1.
const collectionFacetField = "facet.collection"

// Document is the assembled submission document: scalar fields (as their
// natively-typed values) plus facet dimensions (as their ordered,
// deduplicated value lists).
type Document struct {
	Fields map[string]any
	Facets map[string][]string
}

// Builder assembles a Document from a value map and a submission's
// full-text content, given a registry snapshot and the ontology
// collaborators needed for enrichment (spec §4.7 step 4).
type Builder struct {
	Registry *registry.Registry
	Matcher  *termmatch.Matcher
	Resolver *ontology.Resolver
}

// Merged flattens Fields and Facets into the single map the writer
// coordinator (C8) indexes: scalar fields keep their native type, and each
// facet dimension becomes a []string field so bleve indexes one term per
// value.
func (d *Document) Merged() map[string]any {
	out := make(map[string]any, len(d.Fields)+len(d.Facets))
	for k, v := range d.Fields {
		out[k] = v
	}
	for k, v := range d.Facets {
		out[k] = v
	}
	return out
}

// Build runs the full submission-document assembly pipeline (spec §4.7).
func (b *Builder) Build(valueMap map[string]string, collection, content string, fc *fileindex.Context) (*Document, error) {
	if _, ok := valueMap[collectionFacetField]; !ok {
		return nil, errs.NewConfigError(collectionFacetField, errValueMapMissingCollectionFacet)
	}

	doc := &Document{Fields: make(map[string]any), Facets: make(map[string][]string)}

	doc.Fields["file_attribute_names"] = buildFileAttributeNames(fc)
	if fc != nil && fc.HasIndexingError() {
		doc.Fields["has_file_parsing_error"] = "true"
	}

	for _, d := range b.Registry.UnionFields(collection) {
		raw, present := valueMap[d.Name]
		switch d.Type {
		case registry.TypeTokenizedText:
			if !present || raw == "" {
				raw = "null"
			}
			doc.Fields[d.Name] = raw
		case registry.TypeUntokenizedString:
			if !present || raw == "" {
				continue
			}
			doc.Fields[d.Name] = raw
		case registry.TypeLong:
			if !present || raw == "" {
				continue
			}
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				continue // an unparsable long is skipped without logging and never fails the document
			}
			doc.Fields[d.Name] = n
		case registry.TypeFacet:
			b.applyFacet(doc, d, raw, present)
		}
	}

	b.enrichOntology(doc, content)

	return doc, nil
}

func (b *Builder) applyFacet(doc *Document, d registry.FieldDescriptor, raw string, present bool) {
	blank := !present || raw == "" || raw == "null"
	if blank {
		switch d.EffectiveFacetKind() {
		case registry.FacetKindFile, registry.FacetKindLink, registry.FacetKindBoolean:
			return
		default:
			if d.Default != "" {
				raw = d.Default
			} else {
				raw = naSentinel
			}
		}
	}

	var values []string
	for _, part := range strings.Split(raw, "|") {
		part = strings.TrimSpace(part)
		if d.LowerCase {
			part = strings.ToLower(part)
		}
		if part == "" {
			continue
		}
		values = append(values, part)
	}
	if len(values) == 0 {
		return
	}
	doc.Facets[d.Name] = append(doc.Facets[d.Name], values...)
}

// buildFileAttributeNames renders the special file_attribute_names field:
// "Name|Size|" followed by each discovered file attribute column, each
// itself followed by "|" (spec §4.7 step 2; empty set becomes "Name|Size|").
func buildFileAttributeNames(fc *fileindex.Context) string {
	var b strings.Builder
	b.WriteString("Name|Size|")
	if fc != nil {
		for _, col := range fc.FileColumns() {
			b.WriteString(col)
			b.WriteString("|")
		}
	}
	return b.String()
}

// enrichOntology scans content for ontology term matches (C4) and, for each
// match, walks its ancestry from C3 and writes every strict-and-full prefix
// of [root, ..., parent, term] to the "efo" facet dimension, deduplicating
// across terms (spec §4.7 step 4). The bare leaf term is only ever written
// on its own when it has no ancestors at all — a prefix always starts from
// the root, so "no bare odontoclast" (spec Testable Property 2 / scenario
// S3) falls out naturally rather than needing a special case.
func (b *Builder) enrichOntology(doc *Document, content string) {
	if b.Matcher == nil || b.Resolver == nil || strings.TrimSpace(content) == "" {
		return
	}

	matches := b.Matcher.Scan(content)
	seen := make(map[string]bool)
	var efo []string

	for term := range matches {
		ancestry, err := b.Resolver.AncestorsOf(term)
		if err != nil {
			continue
		}
		path := append(append([]string{}, ancestry...), term)

		var trail []string
		for _, seg := range path {
			seg = strings.TrimSpace(seg)
			if seg == "" {
				continue
			}
			trail = append(trail, seg)
			joined := strings.Join(trail, "/")
			if seen[joined] {
				continue
			}
			seen[joined] = true
			efo = append(efo, joined)
		}
	}

	if len(efo) > 0 {
		sort.Strings(efo)
		doc.Facets["efo"] = efo
	}
}
