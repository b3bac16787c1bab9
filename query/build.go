package query

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"

	"github.com/biohub/subindex/errs"
	"github.com/biohub/subindex/external"
	"github.com/biohub/subindex/registry"
)

// typeField and collectionFacetField name the two registry fields the
// type-exclusion and collection-drill-down steps constrain (spec §4.10
// steps 4-5).
const (
	typeField            = "type"
	collectionFacetField = "facet.collection"
)

// FieldFilterError records one caller-supplied field filter that failed to
// parse; build_query records these without failing the whole build (spec
// §4.10 step 3).
type FieldFilterError struct {
	Field string
	Err   error
}

// Result is build_query's output: the compiled bleve query plus the flags
// and per-field diagnostics the caller surfaces alongside search results.
type Result struct {
	Query                 bleve.Query
	Node                  *Node
	TooManyExpansionTerms bool
	FieldFilterErrors     []FieldFilterError

	// ExpandedEFOTerms and ExpandedSynonyms count the distinct EFO-id and
	// synonym expansion candidates considered tree-wide (spec §3.1
	// QueryResult.expanded_efo_terms/expanded_synonyms), even when
	// TooManyExpansionTerms discarded the expansion entirely.
	ExpandedEFOTerms int
	ExpandedSynonyms int
}

// Config wires the registry-derived configuration the builder consults:
// which fields are expandable, which types are excluded by default, and
// the collection-hierarchy lookup used by the collection filter.
type Config struct {
	Registry *registry.Registry
	Lookup   EFOLookup

	// ExpansionBudget overrides the default 100-term expansion cap (spec
	// §4.10 step 2). Zero/negative falls back to the default.
	ExpansionBudget int
}

// Builder implements build_query (spec §4.10).
type Builder struct {
	Config Config
}

// NewBuilder constructs a Builder over cfg.
func NewBuilder(cfg Config) *Builder {
	return &Builder{Config: cfg}
}

// BuildQuery runs the full six-step pipeline. fields is the caller's field
// filter map (may include the reserved "query" key, which is ignored).
// secured selects whether steps 4-6 (type filter, collection filter,
// security wrap) run at all; an unsecured build is for system operations
// that must see the whole index (spec §4.10 step 6).
func (b *Builder) BuildQuery(queryString, collection string, fields map[string]string, secured bool, predicate external.SecurityPredicate) (*Result, error) {
	searchable := b.Config.Registry.SearchableFields()

	tree, err := ParseQueryString(queryString, searchable)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrQueryBuild, err)
	}

	tooMany := false
	efoTerms, synonyms := 0, 0
	if b.Config.Lookup != nil {
		expanded, tm, efo, syn := Expand(tree, b.Config.Registry.ExpandableFields(), b.Config.Lookup, b.Config.ExpansionBudget)
		tree = expanded
		tooMany = tm
		efoTerms, synonyms = efo, syn
	}

	var fieldErrs []FieldFilterError
	for name, value := range fields {
		if name == "" || name == "query" || value == "" {
			continue
		}
		clause, err := ParseQueryString(fmt.Sprintf("%s:%s", name, value), searchable)
		if err != nil {
			fieldErrs = append(fieldErrs, FieldFilterError{Field: name, Err: err})
			continue
		}
		tree = andNode(tree, clause)
	}

	if secured {
		if excluded := b.Config.Registry.ExcludedTypes(); len(excluded) > 0 && !constrainsField(tree, typeField) {
			tree = &Node{
				Must:    []*Node{tree},
				MustNot: []*Node{keywordShould(typeField, excluded)},
			}
		}

		if collection != "" && collection != registry.PublicCollection {
			if _, ok := b.Config.Registry.Property(collectionFacetField); ok {
				values := append([]string{collection}, b.Config.Registry.Subcollections(collection)...)
				tree = andNode(tree, keywordShould(collectionFacetField, values))
			}
		}

		if predicate != nil {
			tree = securityWrap(tree, predicate)
		}
	}

	return &Result{
		Query:                 Compile(tree),
		Node:                  tree,
		TooManyExpansionTerms: tooMany,
		FieldFilterErrors:     fieldErrs,
		ExpandedEFOTerms:      efoTerms,
		ExpandedSynonyms:      synonyms,
	}, nil
}

func andNode(a, b *Node) *Node {
	return &Node{Must: []*Node{a, b}}
}

// constrainsField reports whether tree already has a leaf pinned to field,
// used by the type filter to avoid double-constraining "type" (spec §4.10
// step 4).
func constrainsField(n *Node, field string) bool {
	if n == nil {
		return false
	}
	if n.isLeaf() {
		return lower(n.Leaf.Field) == lower(field)
	}
	for _, c := range n.Must {
		if constrainsField(c, field) {
			return true
		}
	}
	for _, c := range n.Should {
		if constrainsField(c, field) {
			return true
		}
	}
	return false
}

// SecurityFilter is an optional capability a SecurityPredicate may
// implement to contribute its own clause to the compiled query (spec §4.10
// step 6). A predicate that only satisfies external.SecurityPredicate is
// consulted solely for Authenticated(); build_query leaves the base query
// unwrapped in that case and defers per-field visibility to the facet
// service's private-descriptor check instead.
type SecurityFilter interface {
	external.SecurityPredicate
	// QueryFilter returns the field/value clause to wrap the query with and
	// whether it should be MUST (negate=false) or MUST_NOT (negate=true).
	// ok is false when the predicate has nothing to add for this caller.
	QueryFilter() (field, value string, negate, ok bool)
}

func securityWrap(tree *Node, predicate external.SecurityPredicate) *Node {
	sf, ok := predicate.(SecurityFilter)
	if !ok {
		return tree
	}
	field, value, negate, has := sf.QueryFilter()
	if !has {
		return tree
	}
	clause := termLeaf(field, value)
	if negate {
		return &Node{Must: []*Node{tree}, MustNot: []*Node{clause}}
	}
	return andNode(tree, clause)
}
