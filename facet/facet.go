// Package facet implements component C11: narrowing a compiled query by
// caller-selected facet values, and computing facet counts for a query's
// result set, both subject to the same private-descriptor authorization
// rule as the rest of the read path.
package facet

import (
	"strings"

	"github.com/blevesearch/bleve/v2"

	"github.com/biohub/subindex/external"
	"github.com/biohub/subindex/registry"
)

// releasedYearField is the one facet whose result set is never capped —
// year buckets are few and every one of them is useful for a date-range UI
// (spec §4.11 "for the special 'released year' facet, force limit = ∞").
const releasedYearField = "released_year"

// unboundedLimit stands in for the spec's "limit = ∞": bleve facet
// requests need a concrete size, so this is set far past any realistic
// distinct-value count for a faceted field.
const unboundedLimit = 1 << 20

// TermCount is one facet bucket: a value and how many matching documents
// carry it.
type TermCount struct {
	Term  string
	Count int
}

// Result is one facet dimension's computed counts.
type Result struct {
	Field      string
	Terms      []TermCount
	Total      int
	OtherCount int
}

// AddFacetDrillDownFilters implements addFacetDrillDownFilters (spec §4.11):
// for each (descriptor name, selected values) pair, skip entries naming an
// unknown or non-facet descriptor or carrying no values; otherwise AND a
// term filter per value (lower-cased when the descriptor requests it,
// always trimmed) into base.
func AddFacetDrillDownFilters(reg *registry.Registry, base bleve.Query, selected map[string][]string) bleve.Query {
	if base == nil {
		base = bleve.NewMatchAllQuery()
	}
	parts := []bleve.Query{base}

	for name, values := range selected {
		if len(values) == 0 {
			continue
		}
		d, ok := reg.Property(name)
		if !ok || d.Type != registry.TypeFacet {
			continue
		}
		var valueQueries []bleve.Query
		for _, v := range values {
			v = strings.TrimSpace(v)
			if d.LowerCase {
				v = strings.ToLower(v)
			}
			if v == "" {
				continue
			}
			q := bleve.NewTermQuery(v)
			q.SetField(name)
			valueQueries = append(valueQueries, q)
		}
		switch len(valueQueries) {
		case 0:
			continue
		case 1:
			parts = append(parts, valueQueries[0])
		default:
			parts = append(parts, bleve.NewDisjunctionQuery(valueQueries))
		}
	}

	if len(parts) == 1 {
		return parts[0]
	}
	return bleve.NewConjunctionQuery(parts)
}

// visible reports whether descriptor d should be included for predicate:
// every descriptor is visible to an authenticated caller, and only
// non-private descriptors are visible to an anonymous one (spec §4.11
// "skip if the caller is unauthenticated and the descriptor is private").
func visible(d registry.FieldDescriptor, predicate external.SecurityPredicate) bool {
	if predicate != nil && predicate.Authenticated() {
		return true
	}
	return !d.Private
}

func limitFor(d registry.FieldDescriptor, limit int) int {
	if d.Name == releasedYearField {
		return unboundedLimit
	}
	return limit
}

// GetFacetsForQuery implements getFacetsForQuery (spec §4.11): runs a
// single search carrying one facet request per visible facet descriptor, so
// every dimension's counts come from one shared searcher acquisition.
// Errors degrade to an empty result list rather than propagating, matching
// the spec's "on I/O or any other error, return an empty list".
func GetFacetsForQuery(idx bleve.Index, query bleve.Query, reg *registry.Registry, limit int, predicate external.SecurityPredicate) []Result {
	req := bleve.NewSearchRequest(query)
	req.Size = 0

	var names []string
	for name, d := range reg.GlobalPropertyRegistry() {
		if d.Type != registry.TypeFacet || !visible(d, predicate) {
			continue
		}
		names = append(names, name)
		req.AddFacet(name, bleve.NewFacetRequest(name, limitFor(d, limit)))
	}
	if len(names) == 0 {
		return nil
	}

	res, err := idx.Search(req)
	if err != nil {
		return nil
	}

	out := make([]Result, 0, len(names))
	for _, name := range names {
		fr, ok := res.Facets[name]
		if !ok || fr == nil {
			continue
		}
		r := Result{Field: name, Total: fr.Total, OtherCount: fr.Other}
		for _, t := range fr.Terms {
			r.Terms = append(r.Terms, TermCount{Term: t.Term, Count: t.Count})
		}
		out = append(out, r)
	}
	return out
}

// GetDimension implements getDimension (spec §4.11): the single-dimension
// variant of GetFacetsForQuery, returning (nil, false) when dim is missing,
// not a facet, or private to an anonymous caller.
func GetDimension(idx bleve.Index, query bleve.Query, reg *registry.Registry, dim string, limit int, predicate external.SecurityPredicate) (*Result, bool) {
	d, ok := reg.Property(dim)
	if !ok || d.Type != registry.TypeFacet || !visible(d, predicate) {
		return nil, false
	}

	req := bleve.NewSearchRequest(query)
	req.Size = 0
	req.AddFacet(dim, bleve.NewFacetRequest(dim, limitFor(d, limit)))

	res, err := idx.Search(req)
	if err != nil {
		return nil, false
	}
	fr, ok := res.Facets[dim]
	if !ok || fr == nil {
		return nil, false
	}
	r := &Result{Field: dim, Total: fr.Total, OtherCount: fr.Other}
	for _, t := range fr.Terms {
		r.Terms = append(r.Terms, TermCount{Term: t.Term, Count: t.Count})
	}
	return r, true
}
