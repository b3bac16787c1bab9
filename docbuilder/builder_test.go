package docbuilder

import (
	"os"
	"testing"

	"github.com/biohub/subindex/fileindex"
	"github.com/biohub/subindex/ontology"
	"github.com/biohub/subindex/registry"
	"github.com/biohub/subindex/termmatch"
)

const testRegistry = `[
  {
    "name": "public",
    "fields": [
      {"name": "accession", "type": "untokenized-string", "sortable": true, "parser": "simple-attribute"},
      {"name": "content", "type": "tokenized-text", "parser": "content"},
      {"name": "facet.collection", "type": "facet", "parser": "simple-attribute"},
      {"name": "fileCount", "type": "long", "parser": "simple-attribute"},
      {"name": "has_clinical_data", "type": "facet", "booleanFacet": true, "parser": "simple-attribute"},
      {"name": "organism", "type": "facet", "default": "unspecified", "parser": "simple-attribute"}
    ]
  }
]`

func mustRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r, err := registry.Load(registry.BytesSource(testRegistry), nil)
	if err != nil {
		t.Fatalf("registry.Load: %v", err)
	}
	return r
}

func TestBuildRejectsMissingCollectionFacet(t *testing.T) {
	b := &Builder{Registry: mustRegistry(t)}
	_, err := b.Build(map[string]string{}, "public", "", fileindex.NewContext())
	if err == nil {
		t.Fatal("expected error for missing facet.collection")
	}
}

func TestBuildRoutesByFieldType(t *testing.T) {
	b := &Builder{Registry: mustRegistry(t)}
	vm := map[string]string{
		"facet.collection": "BioImages",
		"accession":        "S-TEST1",
		"fileCount":        "17",
	}
	doc, err := b.Build(vm, "public", "", fileindex.NewContext())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if doc.Fields["content"] != "null" {
		t.Fatalf("expected tokenized-text content to default to literal null, got %v", doc.Fields["content"])
	}
	if doc.Fields["accession"] != "S-TEST1" {
		t.Fatalf("accession = %v", doc.Fields["accession"])
	}
	if doc.Fields["fileCount"] != int64(17) {
		t.Fatalf("fileCount = %v (%T)", doc.Fields["fileCount"], doc.Fields["fileCount"])
	}
	if got := doc.Facets["facet.collection"]; len(got) != 1 || got[0] != "BioImages" {
		t.Fatalf("facet.collection = %v", got)
	}
}

func TestBuildBooleanFacetOmittedWhenBlank(t *testing.T) {
	b := &Builder{Registry: mustRegistry(t)}
	vm := map[string]string{"facet.collection": "public"}
	doc, err := b.Build(vm, "public", "", fileindex.NewContext())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := doc.Facets["has_clinical_data"]; ok {
		t.Fatalf("expected omitted boolean facet, got %v", doc.Facets["has_clinical_data"])
	}
}

func TestBuildFacetSubstitutesDefaultWhenBlank(t *testing.T) {
	b := &Builder{Registry: mustRegistry(t)}
	vm := map[string]string{"facet.collection": "public"}
	doc, err := b.Build(vm, "public", "", fileindex.NewContext())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := doc.Facets["organism"]; len(got) != 1 || got[0] != "unspecified" {
		t.Fatalf("organism = %v", got)
	}
}

func TestBuildFileAttributeNamesEmptyColumns(t *testing.T) {
	b := &Builder{Registry: mustRegistry(t)}
	vm := map[string]string{"facet.collection": "public"}
	doc, err := b.Build(vm, "public", "", fileindex.NewContext())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if doc.Fields["file_attribute_names"] != "Name|Size|" {
		t.Fatalf("file_attribute_names = %v", doc.Fields["file_attribute_names"])
	}
}

func TestBuildMarksHasFileParsingErrorFromContext(t *testing.T) {
	b := &Builder{Registry: mustRegistry(t)}
	fc := fileindex.NewContext()
	fc.SetIndexingError()
	vm := map[string]string{"facet.collection": "public"}
	doc, err := b.Build(vm, "public", "", fc)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if doc.Fields["has_file_parsing_error"] != "true" {
		t.Fatalf("expected has_file_parsing_error, got %v", doc.Fields["has_file_parsing_error"])
	}
}

// loadS3Resolver builds a real ontology.Resolver from a small fixture OWL
// file encoding the S3 scenario's ancestry chain.
func loadS3Resolver(t *testing.T) *ontology.Resolver {
	t.Helper()
	const owl = `<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns:rdfs="http://www.w3.org/2000/01/rdf-schema#"
         xmlns:owl="http://www.w3.org/2002/07/owl#">
  <owl:Class rdf:about="urn:ef"><rdfs:label>experimental factor</rdfs:label></owl:Class>
  <owl:Class rdf:about="urn:sf"><rdfs:label>sample factor</rdfs:label><rdfs:subClassOf rdf:resource="urn:ef"/></owl:Class>
  <owl:Class rdf:about="urn:ct"><rdfs:label>cell type</rdfs:label><rdfs:subClassOf rdf:resource="urn:sf"/></owl:Class>
  <owl:Class rdf:about="urn:hc"><rdfs:label>hematopoietic cell</rdfs:label><rdfs:subClassOf rdf:resource="urn:ct"/></owl:Class>
  <owl:Class rdf:about="urn:lk"><rdfs:label>leukocyte</rdfs:label><rdfs:subClassOf rdf:resource="urn:hc"/></owl:Class>
  <owl:Class rdf:about="urn:ml"><rdfs:label>myeloid leukocyte</rdfs:label><rdfs:subClassOf rdf:resource="urn:lk"/></owl:Class>
  <owl:Class rdf:about="urn:os"><rdfs:label>osteoclast</rdfs:label><rdfs:subClassOf rdf:resource="urn:ml"/></owl:Class>
  <owl:Class rdf:about="urn:od"><rdfs:label>odontoclast</rdfs:label><rdfs:subClassOf rdf:resource="urn:os"/></owl:Class>
</rdf:RDF>`
	path := t.TempDir() + "/ontology.owl"
	if err := os.WriteFile(path, []byte(owl), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return ontology.NewResolver(ontology.Loader{Path: path})
}

func TestNewMatcherBuildsFromResolverPrimaryAndAltTerms(t *testing.T) {
	resolver := loadS3Resolver(t)
	matcher, err := NewMatcher(resolver)
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	got := matcher.Scan("a study of odontoclast differentiation")
	if !got["odontoclast"] {
		t.Fatalf("expected odontoclast match from resolver-built matcher, got %v", got)
	}
}

func TestNewMatcherNilResolverYieldsNilMatcher(t *testing.T) {
	matcher, err := NewMatcher(nil)
	if err != nil || matcher != nil {
		t.Fatalf("expected nil, nil for a nil resolver, got %v, %v", matcher, err)
	}
}

func TestEnrichOntologyProducesS3AncestryPrefixes(t *testing.T) {
	reg := mustRegistry(t)
	resolver := loadS3Resolver(t)
	matcher := termmatch.New([]string{
		"experimental factor", "sample factor", "cell type", "hematopoietic cell",
		"leukocyte", "myeloid leukocyte", "osteoclast", "odontoclast",
	}, nil)

	b := &Builder{Registry: reg, Matcher: matcher, Resolver: resolver}
	vm := map[string]string{"facet.collection": "public"}
	doc, err := b.Build(vm, "public", "a study of odontoclast differentiation", fileindex.NewContext())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	efo := doc.Facets["efo"]
	want := "experimental factor/sample factor/cell type/hematopoietic cell/leukocyte/myeloid leukocyte/osteoclast/odontoclast"
	found := false
	for _, v := range efo {
		if v == want {
			found = true
		}
		if v == "odontoclast" {
			t.Fatalf("did not expect bare odontoclast in %v", efo)
		}
	}
	if !found {
		t.Fatalf("expected full ancestry path %q in %v", want, efo)
	}
	if !containsStr(efo, "experimental factor") {
		t.Fatalf("expected root prefix in %v", efo)
	}
}

func containsStr(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
