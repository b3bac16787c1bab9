package query

import "strings"

// expansionBudget is the total number of expansion terms build_query will
// add across the whole query tree before degrading (spec §4.10 step 2).
const expansionBudget = 100

// EFOEntry is one EFO lookup record: the synonyms and ontology ids
// associated with a term, mirroring the spec's "{term, alt_terms, efo_ids}"
// index shape.
type EFOEntry struct {
	Term     string
	AltTerms []string
	EFOIDs   []string
}

// EFOLookup resolves a matched term to its synonyms and ontology ids. The
// ontology adapter in this package implements it over an *ontology.Resolver.
type EFOLookup interface {
	Lookup(term string) (EFOEntry, bool, error)
}

// expansionCounts accumulates how many distinct EFO-id and synonym
// candidates were considered across the whole tree, independent of whether
// budget ultimately let them into the compiled query. Testable Scenario S4
// reports the full 60/41 split even though the breach discards the
// expansion entirely, so these totals are never gated by budget acceptance.
type expansionCounts struct {
	efoTerms int
	synonyms int
}

// Expand walks root and widens every term/phrase leaf over an expandable
// field with synonym and ontology-id clauses drawn from lookup (spec §4.10
// step 2). Expansion failures degrade silently to the unexpanded leaf.
// Crossing budget anywhere in the tree drops the expansion entirely and
// reports tooMany so the caller can flag too_many_expansion_terms. A
// non-positive budget falls back to the default of 100. efoTerms and
// synonyms count every EFO-id/synonym candidate considered tree-wide,
// whether or not the expansion survived the budget check.
func Expand(root *Node, expandableFields []string, lookup EFOLookup, budget int) (result *Node, tooMany bool, efoTerms, synonyms int) {
	if root == nil || lookup == nil {
		return root, false, 0, 0
	}
	if budget <= 0 {
		budget = expansionBudget
	}
	expandable := make(map[string]bool, len(expandableFields))
	for _, f := range expandableFields {
		expandable[lower(f)] = true
	}
	spent := 0
	counts := &expansionCounts{}
	expanded, over := expandNode(root, expandable, lookup, budget, &spent, counts)
	if over {
		return root, true, counts.efoTerms, counts.synonyms
	}
	return expanded, false, counts.efoTerms, counts.synonyms
}

func expandNode(n *Node, expandable map[string]bool, lookup EFOLookup, budget int, spent *int, counts *expansionCounts) (*Node, bool) {
	if n == nil {
		return nil, false
	}
	if n.isLeaf() {
		return expandLeaf(n, expandable, lookup, budget, spent, counts)
	}

	tooMany := false
	out := &Node{}
	for _, c := range n.Must {
		e, tm := expandNode(c, expandable, lookup, budget, spent, counts)
		out.Must = append(out.Must, e)
		tooMany = tooMany || tm
	}
	for _, c := range n.Should {
		e, tm := expandNode(c, expandable, lookup, budget, spent, counts)
		out.Should = append(out.Should, e)
		tooMany = tooMany || tm
	}
	for _, c := range n.MustNot {
		e, tm := expandNode(c, expandable, lookup, budget, spent, counts)
		out.MustNot = append(out.MustNot, e)
		tooMany = tooMany || tm
	}
	return out, tooMany
}

func expandLeaf(n *Node, expandable map[string]bool, lookup EFOLookup, budget int, spent *int, counts *expansionCounts) (*Node, bool) {
	if n.Leaf.Kind != LeafTerm && n.Leaf.Kind != LeafPhrase {
		return n, false
	}
	field := lower(n.Leaf.Field)
	if !expandable[field] {
		return n, false
	}

	original := leafText(n.Leaf)
	entry, ok, err := lookup.Lookup(original)
	if err != nil || !ok {
		return n, false
	}

	synonymCandidates, efoCandidates := dedupeExpansionTerms(original, entry.AltTerms, entry.EFOIDs)
	counts.synonyms += len(synonymCandidates)
	counts.efoTerms += len(efoCandidates)

	candidates := append(append([]string(nil), synonymCandidates...), efoCandidates...)
	if len(candidates) == 0 {
		return n, false
	}
	if *spent+len(candidates) > budget {
		return n, true
	}
	*spent += len(candidates)

	expanded := &Node{Should: []*Node{n}}
	for _, c := range candidates {
		expanded.Should = append(expanded.Should, synonymLeaf(n.Leaf.Field, c))
	}
	return expanded, false
}

// dedupeExpansionTerms splits altTerms (synonyms) and efoIDs into separate,
// deduplicated slices, dropping anything equal to original (case-
// insensitive) and collapsing duplicates across both sources so an id that
// happens to repeat a synonym's text is only ever counted once (spec §4.10
// "deduplicate expansion terms case-insensitively across sibling clauses").
func dedupeExpansionTerms(original string, altTerms, efoIDs []string) (synonyms, ids []string) {
	seen := map[string]bool{lower(strings.TrimSpace(original)): true}
	add := func(dst *[]string, v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		lv := lower(v)
		if seen[lv] {
			return
		}
		seen[lv] = true
		*dst = append(*dst, v)
	}
	for _, a := range altTerms {
		add(&synonyms, a)
	}
	for _, id := range efoIDs {
		add(&ids, id)
	}
	return synonyms, ids
}

func synonymLeaf(field, value string) *Node {
	words := strings.Fields(value)
	if len(words) > 1 {
		return leafNode(Leaf{Kind: LeafPhrase, Field: field, Terms: words})
	}
	return leafNode(Leaf{Kind: LeafTerm, Field: field, Value: value})
}
