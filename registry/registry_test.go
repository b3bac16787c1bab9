package registry

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleRegistry = `[
  {
    "name": "public",
    "fields": [
      {"name": "accession", "type": "untokenized-string", "sortable": true, "parser": "simple-attribute"},
      {"name": "content", "type": "tokenized-text", "parser": "content"},
      {"name": "facet.collection", "type": "facet", "parser": "simple-attribute"},
      {"name": "has_clinical_data", "type": "facet", "booleanFacet": true, "parser": "simple-attribute"}
    ]
  },
  {
    "name": "BioImages",
    "fields": [
      {"name": "modality", "type": "facet", "parser": "simple-attribute"}
    ]
  }
]`

func mustLoad(t *testing.T) *Registry {
	t.Helper()
	r, err := Load(BytesSource(sampleRegistry), []string{"simple-attribute", "content"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return r
}

func TestLoadValid(t *testing.T) {
	r := mustLoad(t)

	pub := r.PublicProperties()
	if len(pub) != 4 {
		t.Fatalf("expected 4 public properties, got %d", len(pub))
	}

	col := r.CollectionProperties("BioImages")
	if len(col) != 1 || col[0].Name != "modality" {
		t.Fatalf("unexpected BioImages properties: %+v", col)
	}

	if got := r.CollectionProperties("public"); got != nil {
		t.Fatalf("CollectionProperties(public) should be nil, got %+v", got)
	}

	if _, ok := r.Property("modality"); !ok {
		t.Fatal("expected modality to be globally registered")
	}

	search := r.SearchableFields()
	if len(search) != 2 || search[0] != "accession" || search[1] != "content" {
		t.Fatalf("unexpected searchable fields: %v", search)
	}
}

func TestLoadUnknownParserFails(t *testing.T) {
	bad := `[{"name":"public","fields":[{"name":"x","type":"long","parser":"nope"}]}]`
	if _, err := Load(BytesSource(bad), []string{"simple-attribute"}); err == nil {
		t.Fatal("expected error for unknown parser")
	}
}

func TestLoadMissingPublicCollectionFails(t *testing.T) {
	bad := `[{"name":"BioImages","fields":[{"name":"x","type":"long","parser":"simple-attribute"}]}]`
	if _, err := Load(BytesSource(bad), []string{"simple-attribute"}); err == nil {
		t.Fatal("expected error for missing public collection")
	}
}

func TestLoadBadFacetKindFails(t *testing.T) {
	bad := `[{"name":"public","fields":[{"name":"x","type":"facet","facetKind":"bogus","parser":"simple-attribute"}]}]`
	if _, err := Load(BytesSource(bad), []string{"simple-attribute"}); err == nil {
		t.Fatal("expected error for bad facet kind")
	}
}

func TestEffectiveFacetKind(t *testing.T) {
	d := FieldDescriptor{Type: TypeFacet, BooleanFacet: true}
	if d.EffectiveFacetKind() != FacetKindBoolean {
		t.Fatalf("expected boolean kind, got %s", d.EffectiveFacetKind())
	}
	d2 := FieldDescriptor{Type: TypeFacet}
	if d2.EffectiveFacetKind() != FacetKindValue {
		t.Fatalf("expected default value kind, got %s", d2.EffectiveFacetKind())
	}
}

func TestUnionFields(t *testing.T) {
	r := mustLoad(t)
	u := r.UnionFields("BioImages")
	if len(u) != 5 {
		t.Fatalf("expected 5 union fields (4 public + 1 collection), got %d", len(u))
	}
}

const hierarchyRegistry = `[
  {
    "name": "public",
    "excludedTypes": ["internal-note"],
    "fields": [
      {"name": "accession", "type": "untokenized-string", "parser": "simple-attribute"},
      {"name": "content", "type": "tokenized-text", "parser": "content", "expandable": true}
    ]
  },
  {
    "name": "BioImages",
    "fields": [{"name": "modality", "type": "facet", "parser": "simple-attribute"}]
  },
  {
    "name": "JCB",
    "parent": "BioImages",
    "fields": [{"name": "jcbField", "type": "long", "parser": "simple-attribute"}]
  },
  {
    "name": "BioImages-EMPIAR",
    "parent": "BioImages",
    "fields": [{"name": "empiarField", "type": "long", "parser": "simple-attribute"}]
  }
]`

func TestExpandableFields(t *testing.T) {
	r, err := Load(BytesSource(hierarchyRegistry), []string{"simple-attribute", "content"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	exp := r.ExpandableFields()
	if len(exp) != 1 || exp[0] != "content" {
		t.Fatalf("expected [content], got %v", exp)
	}
}

func TestExcludedTypesReadsOnlyFromPublicCollection(t *testing.T) {
	r, err := Load(BytesSource(hierarchyRegistry), []string{"simple-attribute", "content"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := r.ExcludedTypes()
	if len(got) != 1 || got[0] != "internal-note" {
		t.Fatalf("expected [internal-note], got %v", got)
	}
}

func TestSubcollectionsWalksHierarchy(t *testing.T) {
	r, err := Load(BytesSource(hierarchyRegistry), []string{"simple-attribute", "content"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := r.Subcollections("BioImages")
	want := map[string]bool{"JCB": true, "BioImages-EMPIAR": true}
	if len(got) != len(want) {
		t.Fatalf("expected %d subcollections, got %v", len(want), got)
	}
	for _, name := range got {
		if !want[name] {
			t.Fatalf("unexpected subcollection %q in %v", name, got)
		}
	}
	if sc := r.Subcollections("JCB"); sc != nil {
		t.Fatalf("expected JCB to have no subcollections, got %v", sc)
	}
}

func TestFileSourceReadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	if err := os.WriteFile(path, []byte(sampleRegistry), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	raw, err := FileSource(path).Read()
	if err != nil {
		t.Fatalf("FileSource.Read: %v", err)
	}
	if _, err := Load(BytesSource(raw), []string{"simple-attribute", "content"}); err != nil {
		t.Fatalf("Load from file-sourced bytes: %v", err)
	}
}

func TestFileSourceMissingFileReturnsError(t *testing.T) {
	if _, err := FileSource("/nonexistent/registry.json").Read(); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
