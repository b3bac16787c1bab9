package writer

import (
	"testing"

	"github.com/blevesearch/bleve/v2"

	"github.com/biohub/subindex/registry"
)

const mappingTestRegistry = `[
  {
    "name": "public",
    "fields": [
      {"name": "accession", "type": "untokenized-string", "sortable": true, "parser": "simple-attribute"},
      {"name": "content", "type": "tokenized-text", "parser": "content"},
      {"name": "fileCount", "type": "long", "parser": "simple-attribute"},
      {"name": "facet.collection", "type": "facet", "parser": "simple-attribute"}
    ]
  }
]`

func TestBuildSubmissionMappingProducesUsableIndex(t *testing.T) {
	reg, err := registry.Load(registry.BytesSource(mappingTestRegistry), nil)
	if err != nil {
		t.Fatalf("registry.Load: %v", err)
	}
	idx, err := bleve.NewMemOnly(BuildSubmissionMapping(reg))
	if err != nil {
		t.Fatalf("bleve.NewMemOnly: %v", err)
	}
	defer idx.Close()

	if err := idx.Index("S-TEST1", map[string]any{
		"accession":        "S-TEST1",
		"content":          "a study of osteoclast differentiation",
		"fileCount":        int64(3),
		"facet.collection": []string{"BioImages"},
	}); err != nil {
		t.Fatalf("Index: %v", err)
	}

	res, err := idx.Search(bleve.NewSearchRequest(bleve.NewMatchQuery("osteoclast")))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Total != 1 {
		t.Fatalf("expected 1 hit for tokenized content search, got %d", res.Total)
	}
}

func TestBuildFileMappingProducesUsableIndex(t *testing.T) {
	idx, err := bleve.NewMemOnly(BuildFileMapping())
	if err != nil {
		t.Fatalf("bleve.NewMemOnly: %v", err)
	}
	defer idx.Close()

	if err := idx.Index("f1", map[string]any{
		"position": int64(0),
		"size":     int64(1024),
		"path":     "Files/a.txt",
		"name":     "a.txt",
		"owner":    "S-TEST1",
	}); err != nil {
		t.Fatalf("Index: %v", err)
	}

	q := bleve.NewTermQuery("S-TEST1")
	q.SetField("owner")
	res, err := idx.Search(bleve.NewSearchRequest(q))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Total != 1 {
		t.Fatalf("expected 1 hit for owner term query, got %d", res.Total)
	}
}
