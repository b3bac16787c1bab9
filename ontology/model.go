// Package ontology implements component C3: loading an OWL ontology into an
// in-memory DAG, deriving transitive closures over subClassOf/part_of edges,
// and serving the lookups the submission-document builder (docbuilder) and
// query expander (query) both need at runtime.
package ontology

import "sort"

// Flag selects which edge kinds terms_for descends when collecting a
// node's terms (spec §4.3).
type Flag uint8

const (
	FlagSelf Flag = 1 << iota
	FlagAltTerms
	FlagChildren
	FlagChildAltTerms
	FlagPartOf
)

// Node is one ontology class: its IRI, primary display term, every
// alternative term that also resolves back to it, and its DAG edges.
// Parents/Children are kept sorted so iteration order is deterministic —
// required for the ancestry facet encoding (spec Testable Property 2) to
// produce a stable path.
type Node struct {
	ID             string
	PrimaryTerm    string
	AltTerms       []string
	Parents        []string
	Children       []string
	PartOf         []string
	Organizational bool
}

func newNode(id string) *Node {
	return &Node{ID: id}
}

func (n *Node) addParent(id string) {
	n.Parents = insertSorted(n.Parents, id)
}

func (n *Node) addChild(id string) {
	n.Children = insertSorted(n.Children, id)
}

func insertSorted(set []string, v string) []string {
	i := sort.SearchStrings(set, v)
	if i < len(set) && set[i] == v {
		return set
	}
	set = append(set, "")
	copy(set[i+1:], set[i:])
	set[i] = v
	return set
}

// Model is an immutable snapshot of the full ontology DAG: every built Model
// is complete and never mutated after construction — Resolver.rebuild swaps
// in a new one wholesale (spec §3.1 OntologyModel, §4.3 step "rebuild()
// atomically replaces the reference").
type Model struct {
	nodes map[string]*Node
	// partOf mirrors each node's PartOf edges as child_id -> {parent_id},
	// kept alongside Node.PartOf for O(1) lookup without walking every node.
	partOf map[string][]string
	// termIndex maps a lower-cased term (primary or alt) to the id(s) that
	// claim it; term_for/id_for resolve case-insensitively on term (spec
	// §4.3) by consulting this index.
	termIndex map[string][]string
}

func newModel() *Model {
	return &Model{
		nodes:     make(map[string]*Node),
		partOf:    make(map[string][]string),
		termIndex: make(map[string][]string),
	}
}

func (m *Model) node(id string) (*Node, bool) {
	n, ok := m.nodes[id]
	return n, ok
}

// AllTerms returns every primary and alternative term in the model, used to
// build the term matcher (C4) once at startup.
func (m *Model) AllTerms() []string {
	terms := make([]string, 0, len(m.termIndex))
	for t := range m.termIndex {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

// PrimaryTerms returns every node's primary display term, sorted. Unlike
// AllTerms, alternative terms are excluded — the term matcher (C4) needs
// primaries and alts tracked separately so a match on an alt term can
// collapse back onto its primary.
func (m *Model) PrimaryTerms() []string {
	out := make([]string, 0, len(m.nodes))
	for _, n := range m.nodes {
		out = append(out, n.PrimaryTerm)
	}
	sort.Strings(out)
	return out
}

// AltTermsIndex returns every primary term mapped to its alternative terms,
// the shape the term matcher's AltTermSource needs.
func (m *Model) AltTermsIndex() map[string][]string {
	out := make(map[string][]string, len(m.nodes))
	for _, n := range m.nodes {
		if len(n.AltTerms) == 0 {
			continue
		}
		out[n.PrimaryTerm] = append([]string(nil), n.AltTerms...)
	}
	return out
}

// IDFor resolves a term to its owning id(s), case-insensitive on term, exact
// on id. A term can be claimed by more than one node (homonyms across
// branches); callers that need a single id should prefer the first result,
// which is the node whose PrimaryTerm equals the term if one exists.
func (m *Model) IDFor(term string) (string, bool) {
	ids, ok := m.termIndex[lowerASCII(term)]
	if !ok || len(ids) == 0 {
		return "", false
	}
	for _, id := range ids {
		if n := m.nodes[id]; n != nil && lowerASCII(n.PrimaryTerm) == lowerASCII(term) {
			return id, true
		}
	}
	return ids[0], true
}

// TermFor returns a node's primary term, exact on id.
func (m *Model) TermFor(id string) (string, bool) {
	n, ok := m.nodes[id]
	if !ok {
		return "", false
	}
	return n.PrimaryTerm, true
}

// IsTerm reports whether text matches some node's primary or alt term,
// case-insensitive.
func (m *Model) IsTerm(text string) bool {
	_, ok := m.termIndex[lowerASCII(text)]
	return ok
}

// AncestorsOf returns the ordered path [root, ..., parent] for the node
// owning term, following the first (lexicographically smallest) parent
// edge at each step. Ontologies in this domain are overwhelmingly
// tree-shaped in their "is-a" backbone; a node with multiple parents simply
// picks a single deterministic ancestor chain for facet-path purposes.
func (m *Model) AncestorsOf(term string) []string {
	id, ok := m.IDFor(term)
	if !ok {
		return nil
	}
	var path []string
	seen := map[string]bool{id: true}
	cur := id
	for {
		n, ok := m.nodes[cur]
		if !ok || len(n.Parents) == 0 {
			break
		}
		parent := n.Parents[0]
		if seen[parent] {
			break // defend against a malformed cycle slipping through the loader
		}
		seen[parent] = true
		path = append([]string{m.nodes[parent].PrimaryTerm}, path...)
		cur = parent
	}
	return path
}

// AltTermsFor returns the other names of the node that owns term (primary
// or alt): its primary term and every alternative term, excluding term
// itself, used by the query expander's EFO lookup (spec §4.10 step 2).
func (m *Model) AltTermsFor(term string) []string {
	id, ok := m.IDFor(term)
	if !ok {
		return nil
	}
	n, ok := m.nodes[id]
	if !ok {
		return nil
	}
	lt := lowerASCII(term)
	out := make([]string, 0, len(n.AltTerms)+1)
	if lowerASCII(n.PrimaryTerm) != lt {
		out = append(out, n.PrimaryTerm)
	}
	for _, alt := range n.AltTerms {
		if lowerASCII(alt) != lt {
			out = append(out, alt)
		}
	}
	return out
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
