// Package termmatch implements component C4: a longest-match,
// word-boundary scanner that finds ontology terms inside free text.
package termmatch

import (
	"sort"
	"strings"
)

// Matcher is built once from a resolver's full term set and is safe for
// concurrent use — it holds no mutable state after construction.
type Matcher struct {
	// terms is sorted longest-first so Scan's greedy left-to-right pass
	// naturally prefers the longest overlapping match at any position.
	terms []term
	// altToPrimary resolves an alternative term's lower-cased text back to
	// its primary term; entries absent from this map are assumed primary.
	altToPrimary map[string]string
	// primaryCase resolves a primary term's lower-cased text back to its
	// true-cased form, so a direct match on the primary term itself (not
	// via an alt/synonym) still reports the term the way OntologyNode
	// spells it rather than the lower-cased scan text.
	primaryCase map[string]string
}

type term struct {
	lower string // lower-cased match text, e.g. "myeloid leukocyte"
	words int
}

// AltTermSource supplies, per primary term, the set of alternative terms
// that should resolve back to it when matched. *ontology.Resolver
// implements it directly (Resolver.AltTerms), and docbuilder.NewMatcher
// passes the resolver to New as is.
type AltTermSource interface {
	// AltTerms returns, for every primary term, its alternative terms.
	AltTerms() map[string][]string
}

// New builds a Matcher from the full set of primary terms plus an
// alt-term source. primaryTerms should be every primary term the ontology
// resolver knows about (Resolver.AllTerms lower-cases and merges primary
// and alt terms already, but the matcher needs to track which terms are
// "alternative" so matches collapse onto their primary — so callers pass
// primaries and alts separately here rather than through AllTerms).
func New(primaryTerms []string, alts AltTermSource) *Matcher {
	m := &Matcher{altToPrimary: make(map[string]string), primaryCase: make(map[string]string)}
	seen := make(map[string]bool)

	add := func(text string) {
		lower := strings.ToLower(strings.TrimSpace(text))
		if lower == "" || seen[lower] {
			return
		}
		seen[lower] = true
		m.terms = append(m.terms, term{lower: lower, words: wordCount(lower)})
	}

	for _, t := range primaryTerms {
		trimmed := strings.TrimSpace(t)
		add(trimmed)
		m.primaryCase[strings.ToLower(trimmed)] = trimmed
	}
	if alts != nil {
		for primary, altList := range alts.AltTerms() {
			for _, alt := range altList {
				add(alt)
				m.altToPrimary[strings.ToLower(strings.TrimSpace(alt))] = primary
			}
		}
	}

	sort.Slice(m.terms, func(i, j int) bool {
		if len(m.terms[i].lower) != len(m.terms[j].lower) {
			return len(m.terms[i].lower) > len(m.terms[j].lower)
		}
		return m.terms[i].lower < m.terms[j].lower
	})

	return m
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// Scan returns the set of primary terms matching content as whole-word,
// case-insensitive occurrences, collapsing overlapping matches to the
// longest one at each starting position (spec §4.4). Alternative terms
// resolve to their primary term before being added to the result, so a
// content string hitting both a primary and one of its own synonyms still
// yields a single deduplicated entry.
func (m *Matcher) Scan(content string) map[string]bool {
	result := make(map[string]bool)
	if strings.TrimSpace(content) == "" {
		return result
	}
	lower := strings.ToLower(content)

	// claimed marks byte offsets already consumed by a longer match so a
	// shorter overlapping candidate at the same or an enclosed position is
	// skipped (spec §4.4 "longest match wins on overlap").
	claimed := make([]bool, len(lower))

	for _, t := range m.terms {
		start := 0
		for {
			idx := strings.Index(lower[start:], t.lower)
			if idx < 0 {
				break
			}
			pos := start + idx
			end := pos + len(t.lower)
			start = pos + 1

			if rangeClaimed(claimed, pos, end) {
				continue
			}
			if !isWordBoundary(lower, pos, end) {
				continue
			}

			for i := pos; i < end; i++ {
				claimed[i] = true
			}
			result[m.resolvePrimary(t.lower)] = true
		}
	}
	return result
}

func (m *Matcher) resolvePrimary(lower string) string {
	if primary, ok := m.altToPrimary[lower]; ok {
		return primary
	}
	if primary, ok := m.primaryCase[lower]; ok {
		return primary
	}
	return lower
}

func rangeClaimed(claimed []bool, start, end int) bool {
	for i := start; i < end; i++ {
		if claimed[i] {
			return true
		}
	}
	return false
}

func isWordBoundary(s string, start, end int) bool {
	if start > 0 && isWordByte(s[start-1]) {
		return false
	}
	if end < len(s) && isWordByte(s[end]) {
		return false
	}
	return true
}

func isWordByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
