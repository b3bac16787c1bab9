// Package registry holds the typed schema describing fields, facet
// properties, parsers and collections (component C1). It is loaded once at
// startup, validated, and handed out as an immutable snapshot: the core
// pipeline never mutates a FieldDescriptor or CollectionDescriptor after
// Load returns.
package registry

import (
	"fmt"
	"os"

	"github.com/biohub/subindex/errs"
	"github.com/biohub/subindex/internal/json"
)

// PublicCollection is the reserved collection name whose descriptors apply
// to every submission regardless of its own collection membership.
const PublicCollection = "public"

// FieldType is the indexing treatment applied to a parsed field value.
type FieldType string

const (
	TypeTokenizedText    FieldType = "tokenized-text"
	TypeUntokenizedString FieldType = "untokenized-string"
	TypeLong              FieldType = "long"
	TypeFacet             FieldType = "facet"
)

// FacetKind refines how a facet-typed field's blank/null value is handled
// by the submission-document builder (spec §4.7 step 3). It is an
// expansion of the spec's "optional boolean-facet flag" into the full set
// of facet kinds the builder must branch on.
type FacetKind string

const (
	// FacetKindValue is the default multi-valued, pipe-delimited facet.
	FacetKindValue FacetKind = "value"
	// FacetKindBoolean renders as "true"/"false" and omits itself on false.
	FacetKindBoolean FacetKind = "boolean"
	// FacetKindFile and FacetKindLink are skipped (not defaulted) when blank.
	FacetKindFile FacetKind = "file"
	FacetKindLink FacetKind = "link"
)

// FieldDescriptor describes one field: its name, indexing type, and the
// parser that produces its value from a submission JSON document.
type FieldDescriptor struct {
	Name string `json:"name"`

	Type      FieldType `json:"type"`
	Sortable  bool      `json:"sortable,omitempty"`
	LowerCase bool      `json:"lowerCase,omitempty"`
	Private   bool      `json:"private,omitempty"`

	// Regex is an optional extractor pattern with exactly one capture
	// group; matches are joined with "|" (spec §4.2).
	Regex string `json:"regex,omitempty"`

	// Default substitutes for a blank/null facet value, unless FacetKind
	// is one of the kinds the builder skips outright.
	Default string `json:"default,omitempty"`

	// BooleanFacet marks a facet field whose value is normalized to
	// "true"/"false" by the parser and omitted entirely when false.
	BooleanFacet bool `json:"booleanFacet,omitempty"`

	// FacetKind refines blank-value handling for facet fields; defaults to
	// FacetKindValue. When BooleanFacet is set, it is always Boolean.
	FacetKind FacetKind `json:"facetKind,omitempty"`

	// JSONPaths lists the JSON paths this field's parser unions results
	// from (spec §4.2 JSON-path parser).
	JSONPaths []string `json:"jsonPaths,omitempty"`

	// Expandable marks a searchable field whose leaf clauses the query
	// expander (component C10) is allowed to widen with ontology synonyms
	// and ontology ids (spec §4.10 step 2, "only leaves over expandable
	// fields ... are expanded").
	Expandable bool `json:"expandable,omitempty"`

	// Parser is the identifier the registry validates against the set of
	// known parser implementations (see package parser).
	Parser string `json:"parser"`
}

// effectiveFacetKind returns the kind used for null/blank-handling
// decisions, folding BooleanFacet into FacetKindBoolean.
func (d FieldDescriptor) effectiveFacetKind() FacetKind {
	if d.BooleanFacet {
		return FacetKindBoolean
	}
	if d.FacetKind == "" {
		return FacetKindValue
	}
	return d.FacetKind
}

// EffectiveFacetKind is the public accessor used by the document builder.
func (d FieldDescriptor) EffectiveFacetKind() FacetKind { return d.effectiveFacetKind() }

// CollectionDescriptor names a collection and the ordered fields that
// apply to its members, in addition to the public fields.
type CollectionDescriptor struct {
	Name   string            `json:"name"`
	Fields []FieldDescriptor `json:"fields"`

	// Parent names the collection this one nests under in the drill-down
	// hierarchy the query builder's collection filter walks (spec §4.10
	// step 5). Empty for a top-level collection.
	Parent string `json:"parent,omitempty"`

	// ExcludedTypes is read only off the "public" collection's entry: the
	// "types to exclude" filter the query builder ANDs in with MUST_NOT
	// when a query does not already constrain "type" (spec §4.10 step 4).
	ExcludedTypes []string `json:"excludedTypes,omitempty"`
}

// Source abstracts "where the collection registry JSON comes from". Its
// loading mechanics (classpath, file URL, embedded bytes) are explicitly
// out of scope for this module (spec §6); Source is the seam production
// code plugs a concrete loader into.
type Source interface {
	Read() ([]byte, error)
}

// BytesSource is a Source backed by an in-memory byte slice, primarily for
// tests and for callers that already have the registry document loaded.
type BytesSource []byte

func (b BytesSource) Read() ([]byte, error) { return b, nil }

// FileSource is a Source backed by a local filesystem path, the production
// loading mechanism named by config.RegistrySource.
type FileSource string

func (f FileSource) Read() ([]byte, error) {
	raw, err := os.ReadFile(string(f))
	if err != nil {
		return nil, fmt.Errorf("reading registry file %s: %w", string(f), err)
	}
	return raw, nil
}

// Registry is an immutable snapshot of the loaded collection descriptors.
// A new Registry is built wholesale by Load/Reload and handed out as a
// pointer; swapping the active registry is a single pointer assignment by
// the caller (spec §4.1 "registry swaps take effect only between
// submissions").
type Registry struct {
	collections   map[string][]FieldDescriptor
	global        map[string]FieldDescriptor
	searchable    []string
	excludedTypes []string
	// children maps a collection name to the direct children naming it as
	// their Parent, used by Subcollections to walk the drill-down hierarchy.
	children map[string][]string
}

// Load parses, validates and indexes a collection registry document.
// knownParsers is the set of parser identifiers the running binary can
// dispatch (see package parser's Known()); a descriptor naming any
// other parser is an ErrInvalidConfig, failing startup.
func Load(src Source, knownParsers []string) (*Registry, error) {
	raw, err := src.Read()
	if err != nil {
		return nil, fmt.Errorf("reading registry source: %w", err)
	}
	if err := validateSchema(raw); err != nil {
		return nil, errs.NewConfigError("registry document", err)
	}

	var collections []CollectionDescriptor
	if err := json.Unmarshal(raw, &collections); err != nil {
		return nil, errs.NewConfigError("registry document", fmt.Errorf("decoding: %w", err))
	}

	known := make(map[string]bool, len(knownParsers))
	for _, p := range knownParsers {
		known[p] = true
	}

	r := &Registry{
		collections: make(map[string][]FieldDescriptor, len(collections)),
		global:      make(map[string]FieldDescriptor),
		children:    make(map[string][]string),
	}
	searchableSeen := make(map[string]bool)

	for _, c := range collections {
		if c.Name == "" {
			return nil, errs.NewConfigError("collection", fmt.Errorf("collection name is empty"))
		}
		for _, f := range c.Fields {
			if err := validateField(f, known); err != nil {
				return nil, errs.NewConfigError(fmt.Sprintf("%s.%s", c.Name, f.Name), err)
			}
			if _, exists := r.global[f.Name]; !exists {
				r.global[f.Name] = f
			}
			if f.Type == TypeTokenizedText || f.Type == TypeUntokenizedString {
				if !searchableSeen[f.Name] {
					searchableSeen[f.Name] = true
					r.searchable = append(r.searchable, f.Name)
				}
			}
		}
		r.collections[c.Name] = append(r.collections[c.Name], c.Fields...)
		if c.Name == PublicCollection {
			r.excludedTypes = append([]string(nil), c.ExcludedTypes...)
		}
		if c.Parent != "" {
			r.children[c.Parent] = append(r.children[c.Parent], c.Name)
		}
	}

	if _, ok := r.collections[PublicCollection]; !ok {
		return nil, errs.NewConfigError("registry document", fmt.Errorf("missing required %q collection", PublicCollection))
	}

	return r, nil
}

func validateField(f FieldDescriptor, known map[string]bool) error {
	if f.Name == "" {
		return fmt.Errorf("field name is empty")
	}
	switch f.Type {
	case TypeTokenizedText, TypeUntokenizedString, TypeLong, TypeFacet:
	default:
		return fmt.Errorf("unknown field type %q", f.Type)
	}
	if f.Parser == "" {
		return fmt.Errorf("field %q has no parser", f.Name)
	}
	if len(known) > 0 && !known[f.Parser] {
		return fmt.Errorf("field %q names unknown parser %q", f.Name, f.Parser)
	}
	if f.Type == TypeFacet {
		switch f.effectiveFacetKind() {
		case FacetKindValue, FacetKindBoolean, FacetKindFile, FacetKindLink:
		default:
			return fmt.Errorf("field %q has unknown facet kind %q", f.Name, f.FacetKind)
		}
	}
	return nil
}

// PublicProperties returns the field descriptors applicable to every
// submission, regardless of collection.
func (r *Registry) PublicProperties() []FieldDescriptor {
	return append([]FieldDescriptor(nil), r.collections[PublicCollection]...)
}

// CollectionProperties returns the field descriptors specific to name, or
// an empty slice if the collection is unknown.
func (r *Registry) CollectionProperties(name string) []FieldDescriptor {
	if name == "" || name == PublicCollection {
		return nil
	}
	return append([]FieldDescriptor(nil), r.collections[name]...)
}

// Property looks up a single descriptor by name across the whole registry.
func (r *Registry) Property(name string) (FieldDescriptor, bool) {
	d, ok := r.global[name]
	return d, ok
}

// GlobalPropertyRegistry returns the full name->descriptor map. Callers
// must not mutate the returned map.
func (r *Registry) GlobalPropertyRegistry() map[string]FieldDescriptor {
	return r.global
}

// SearchableFields returns the names of every tokenized-text or
// untokenized-string field across the registry, used to build the
// field-aware query parser (component C10).
func (r *Registry) SearchableFields() []string {
	return append([]string(nil), r.searchable...)
}

// ExpandableFields returns the names of every field marked Expandable, the
// set the query expander (C10) is allowed to widen with ontology terms.
func (r *Registry) ExpandableFields() []string {
	var out []string
	for name, d := range r.global {
		if d.Expandable {
			out = append(out, name)
		}
	}
	return out
}

// ExcludedTypes returns the "types to exclude" filter configured on the
// public collection entry (spec §4.10 step 4).
func (r *Registry) ExcludedTypes() []string {
	return append([]string(nil), r.excludedTypes...)
}

// Subcollections returns every collection transitively nested under name
// via Parent links (spec §4.10 step 5's collection drill-down), in
// breadth-first discovery order. name itself is not included.
func (r *Registry) Subcollections(name string) []string {
	var out []string
	queue := append([]string(nil), r.children[name]...)
	seen := map[string]bool{name: true}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		out = append(out, cur)
		queue = append(queue, r.children[cur]...)
	}
	return out
}

// UnionFields returns the public descriptors followed by the
// collection-specific descriptors for name, matching spec §4.7 step 3's
// "union of public and collection-specific descriptors".
func (r *Registry) UnionFields(collection string) []FieldDescriptor {
	out := r.PublicProperties()
	return append(out, r.CollectionProperties(collection)...)
}
