package facet

import (
	"testing"

	"github.com/blevesearch/bleve/v2"

	"github.com/biohub/subindex/external"
	"github.com/biohub/subindex/registry"
)

const facetTestRegistry = `[
  {
    "name": "public",
    "fields": [
      {"name": "facet.collection", "type": "facet", "parser": "simple-attribute"},
      {"name": "facet.modality", "type": "facet", "lowerCase": true, "parser": "simple-attribute"},
      {"name": "facet.internal_note", "type": "facet", "private": true, "parser": "simple-attribute"}
    ]
  }
]`

func mustRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r, err := registry.Load(registry.BytesSource(facetTestRegistry), []string{"simple-attribute"})
	if err != nil {
		t.Fatalf("registry.Load: %v", err)
	}
	return r
}

func mustIndex(t *testing.T) bleve.Index {
	t.Helper()
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		t.Fatalf("bleve.NewMemOnly: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func seedDocs(t *testing.T, idx bleve.Index) {
	t.Helper()
	docs := []map[string]any{
		{"facet.collection": []string{"BioImages"}, "facet.modality": []string{"fluorescence"}, "facet.internal_note": []string{"flagged"}},
		{"facet.collection": []string{"BioImages"}, "facet.modality": []string{"electron"}},
		{"facet.collection": []string{"ArrayExpress"}, "facet.modality": []string{"fluorescence"}},
	}
	for i, d := range docs {
		if err := idx.Index(string(rune('a'+i)), d); err != nil {
			t.Fatalf("Index: %v", err)
		}
	}
}

func TestAddFacetDrillDownFiltersNarrowsToSelectedValue(t *testing.T) {
	reg := mustRegistry(t)
	idx := mustIndex(t)
	seedDocs(t, idx)

	base := bleve.NewMatchAllQuery()
	q := AddFacetDrillDownFilters(reg, base, map[string][]string{
		"facet.collection": {"ArrayExpress"},
	})

	res, err := idx.Search(bleve.NewSearchRequest(q))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Total != 1 {
		t.Fatalf("expected 1 hit after drill-down, got %d", res.Total)
	}
}

func TestAddFacetDrillDownFiltersSkipsUnknownFieldsAndEmptySelections(t *testing.T) {
	reg := mustRegistry(t)
	base := bleve.NewMatchAllQuery()
	q := AddFacetDrillDownFilters(reg, base, map[string][]string{
		"not-a-real-field": {"x"},
		"facet.collection": {},
	})
	if q != base {
		t.Fatalf("expected base query unchanged when all selections are skipped, got %#v", q)
	}
}

func TestAddFacetDrillDownFiltersLowerCasesWhenConfigured(t *testing.T) {
	reg := mustRegistry(t)
	idx := mustIndex(t)
	seedDocs(t, idx)

	q := AddFacetDrillDownFilters(reg, bleve.NewMatchAllQuery(), map[string][]string{
		"facet.modality": {"  FLUORESCENCE  "},
	})
	res, err := idx.Search(bleve.NewSearchRequest(q))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Total != 2 {
		t.Fatalf("expected 2 fluorescence hits after lower-cased+trimmed drill-down, got %d", res.Total)
	}
}

func TestGetFacetsForQueryExcludesPrivateDescriptorForAnonymous(t *testing.T) {
	reg := mustRegistry(t)
	idx := mustIndex(t)
	seedDocs(t, idx)

	results := GetFacetsForQuery(idx, bleve.NewMatchAllQuery(), reg, 10, external.Anonymous{})
	for _, r := range results {
		if r.Field == "facet.internal_note" {
			t.Fatalf("expected private descriptor excluded for an anonymous caller, got %+v", r)
		}
	}
	var sawCollection bool
	for _, r := range results {
		if r.Field == "facet.collection" {
			sawCollection = true
			if r.Total != 3 {
				t.Fatalf("expected 3 total docs for facet.collection, got %d", r.Total)
			}
		}
	}
	if !sawCollection {
		t.Fatalf("expected facet.collection in results, got %+v", results)
	}
}

func TestGetFacetsForQueryIncludesPrivateDescriptorForAuthenticated(t *testing.T) {
	reg := mustRegistry(t)
	idx := mustIndex(t)
	seedDocs(t, idx)

	results := GetFacetsForQuery(idx, bleve.NewMatchAllQuery(), reg, 10, external.AllowAll{})
	var saw bool
	for _, r := range results {
		if r.Field == "facet.internal_note" {
			saw = true
		}
	}
	if !saw {
		t.Fatalf("expected private descriptor included for an authenticated caller, got %+v", results)
	}
}

func TestGetDimensionReturnsNoneForPrivateDescriptorWhenAnonymous(t *testing.T) {
	reg := mustRegistry(t)
	idx := mustIndex(t)
	seedDocs(t, idx)

	_, ok := GetDimension(idx, bleve.NewMatchAllQuery(), reg, "facet.internal_note", 10, external.Anonymous{})
	if ok {
		t.Fatal("expected GetDimension to return false for a private descriptor and an anonymous caller")
	}
}

func TestGetDimensionReturnsNoneForUnknownOrNonFacetField(t *testing.T) {
	reg := mustRegistry(t)
	idx := mustIndex(t)
	seedDocs(t, idx)

	if _, ok := GetDimension(idx, bleve.NewMatchAllQuery(), reg, "does-not-exist", 10, external.AllowAll{}); ok {
		t.Fatal("expected false for an unknown dimension")
	}
}

func TestGetDimensionReturnsCountsForVisibleFacet(t *testing.T) {
	reg := mustRegistry(t)
	idx := mustIndex(t)
	seedDocs(t, idx)

	res, ok := GetDimension(idx, bleve.NewMatchAllQuery(), reg, "facet.collection", 10, external.AllowAll{})
	if !ok {
		t.Fatal("expected a result")
	}
	if res.Total != 3 {
		t.Fatalf("expected 3 total, got %d", res.Total)
	}
}
