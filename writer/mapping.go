package writer

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/biohub/subindex/registry"
)

// BuildSubmissionMapping derives a bleve index mapping from the loaded
// registry: one field mapping per descriptor, typed by FieldType so
// tokenized-text fields get bleve's standard analyzer, untokenized strings
// and facets are keyword-mapped (exact, sortable), and longs are numeric.
func BuildSubmissionMapping(reg *registry.Registry) *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	dm := bleve.NewDocumentMapping()
	for name, d := range reg.GlobalPropertyRegistry() {
		dm.AddFieldMappingsAt(name, fieldMapping(d))
	}
	dm.AddFieldMappingsAt("file_attribute_names", bleve.NewKeywordFieldMapping())
	dm.AddFieldMappingsAt("has_file_parsing_error", bleve.NewKeywordFieldMapping())
	dm.AddFieldMappingsAt("efo", efoFieldMapping())
	im.DefaultMapping = dm
	return im
}

func fieldMapping(d registry.FieldDescriptor) *mapping.FieldMapping {
	switch d.Type {
	case registry.TypeTokenizedText:
		fm := bleve.NewTextFieldMapping()
		fm.Store = true
		return fm
	case registry.TypeUntokenizedString:
		fm := bleve.NewKeywordFieldMapping()
		fm.Store = true
		fm.DocValues = d.Sortable
		return fm
	case registry.TypeLong:
		fm := bleve.NewNumericFieldMapping()
		fm.Store = true
		fm.DocValues = true
		return fm
	case registry.TypeFacet:
		fm := bleve.NewKeywordFieldMapping()
		fm.Store = true
		return fm
	default:
		return bleve.NewTextFieldMapping()
	}
}

func efoFieldMapping() *mapping.FieldMapping {
	fm := bleve.NewKeywordFieldMapping()
	fm.Store = true
	return fm
}

// BuildFileMapping maps the file index: manifest attributes vary per
// collection, so field mappings stay dynamic except for the fixed fields
// spec §4.5 always writes.
func BuildFileMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	dm := bleve.NewDocumentMapping()

	position := bleve.NewNumericFieldMapping()
	position.Store = true
	position.DocValues = true
	dm.AddFieldMappingsAt("position", position)

	size := bleve.NewNumericFieldMapping()
	size.Store = true
	size.DocValues = true
	dm.AddFieldMappingsAt("size", size)

	path := bleve.NewKeywordFieldMapping()
	path.Store = true
	path.DocValues = true
	dm.AddFieldMappingsAt("path", path)

	nameLower := bleve.NewTextFieldMapping()
	nameLower.Store = true
	dm.AddFieldMappingsAt("name_lower", nameLower)

	name := bleve.NewKeywordFieldMapping()
	name.Store = true
	name.DocValues = true
	dm.AddFieldMappingsAt("name", name)

	owner := bleve.NewKeywordFieldMapping()
	owner.Store = true
	dm.AddFieldMappingsAt("owner", owner)

	section := bleve.NewKeywordFieldMapping()
	section.Store = true
	section.DocValues = true
	dm.AddFieldMappingsAt("section", section)

	im.DefaultMapping = dm
	return im
}

// BuildPageTabMapping maps the page-tab companion index, which stores the
// raw tabular submission form keyed by accession.
func BuildPageTabMapping() *mapping.IndexMappingImpl {
	return bleve.NewIndexMapping()
}

// BuildTaxonomyMapping maps the sidecar facet taxonomy index.
func BuildTaxonomyMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	dm := bleve.NewDocumentMapping()
	path := bleve.NewKeywordFieldMapping()
	path.Store = true
	dm.AddFieldMappingsAt("path", path)
	im.DefaultMapping = dm
	return im
}
