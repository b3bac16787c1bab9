// Package query implements component C10: parsing a free-text query string
// plus caller-supplied field filters into a bleve query, expanding eligible
// leaves with ontology-derived synonyms, and layering on the type-exclusion,
// collection-hierarchy, and security filters named in the spec's build_query
// pipeline.
package query

import "strings"

// LeafKind discriminates the handful of clause shapes the parser produces.
type LeafKind string

const (
	LeafMatchAll LeafKind = "match_all"
	LeafTerm     LeafKind = "term"
	LeafPhrase   LeafKind = "phrase"
	LeafPrefix   LeafKind = "prefix"
	LeafWildcard LeafKind = "wildcard"
	LeafRange    LeafKind = "range"
)

// Leaf is a single query clause: a term/phrase/prefix/wildcard/range test
// against one field, or the default field when Field is blank.
type Leaf struct {
	Kind  LeafKind
	Field string
	Value string
	Terms []string

	Min, Max                   *float64
	MinInclusive, MaxInclusive bool
}

// Node is a query-tree node: either a single Leaf, or a boolean combination
// of Must (AND), Should (OR) and MustNot (AND NOT) children. A Node never
// carries both a Leaf and children.
type Node struct {
	Leaf *Leaf

	Must    []*Node
	Should  []*Node
	MustNot []*Node
}

func leafNode(l Leaf) *Node { return &Node{Leaf: &l} }

func (n *Node) isLeaf() bool { return n != nil && n.Leaf != nil }

// leafText returns the text a term or phrase leaf matched against, joining
// phrase words with a space, used as the EFO lookup key during expansion.
func leafText(l *Leaf) string {
	if l.Kind == LeafPhrase {
		return strings.Join(l.Terms, " ")
	}
	return l.Value
}

func lower(s string) string { return strings.ToLower(s) }
