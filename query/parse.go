package query

import (
	"strconv"
	"strings"
)

// ParseQueryString implements build_query step 1: a blank query string
// becomes match-all; otherwise the string is split into whitespace-separated
// clauses (a double-quoted run is kept as one clause), each optionally
// prefixed with "field:" when field names one of searchableFields, and the
// clauses are ANDed together.
func ParseQueryString(qs string, searchableFields []string) (*Node, error) {
	qs = strings.TrimSpace(qs)
	if qs == "" {
		return leafNode(Leaf{Kind: LeafMatchAll}), nil
	}

	searchable := make(map[string]bool, len(searchableFields))
	for _, f := range searchableFields {
		searchable[lower(f)] = true
	}

	tokens := tokenize(qs)
	leaves := make([]*Node, 0, len(tokens))
	for _, tok := range tokens {
		leaf, err := parseClause(tok, searchable)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, leafNode(leaf))
	}

	if len(leaves) == 1 {
		return leaves[0], nil
	}
	return &Node{Must: leaves}, nil
}

// tokenize splits on runs of whitespace, keeping a double-quoted run
// (including its quotes, and any leading "field:" prefix) as a single token.
func tokenize(qs string) []string {
	var tokens []string
	var cur strings.Builder
	inQuotes := false

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for _, r := range qs {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			cur.WriteRune(r)
		case !inQuotes && (r == ' ' || r == '\t' || r == '\n'):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func parseClause(tok string, searchable map[string]bool) (Leaf, error) {
	field := ""
	value := tok
	if idx := strings.Index(tok, ":"); idx > 0 {
		candidate := lower(tok[:idx])
		if searchable[candidate] {
			field = tok[:idx]
			value = tok[idx+1:]
		}
	}

	if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
		inner := value[1 : len(value)-1]
		words := strings.Fields(inner)
		if len(words) <= 1 {
			return Leaf{Kind: LeafTerm, Field: field, Value: inner}, nil
		}
		return Leaf{Kind: LeafPhrase, Field: field, Terms: words}, nil
	}

	if strings.Contains(value, "..") {
		parts := strings.SplitN(value, "..", 2)
		if len(parts) == 2 {
			min, minOK := parseFloatPtr(parts[0])
			max, maxOK := parseFloatPtr(parts[1])
			if minOK || maxOK {
				return Leaf{
					Kind: LeafRange, Field: field,
					Min: min, Max: max,
					MinInclusive: true, MaxInclusive: true,
				}, nil
			}
		}
	}

	if strings.Contains(value, "*") || strings.Contains(value, "?") {
		if strings.HasSuffix(value, "*") && strings.Count(value, "*") == 1 && !strings.ContainsAny(value[:len(value)-1], "*?") {
			return Leaf{Kind: LeafPrefix, Field: field, Value: strings.TrimSuffix(value, "*")}, nil
		}
		return Leaf{Kind: LeafWildcard, Field: field, Value: value}, nil
	}

	return Leaf{Kind: LeafTerm, Field: field, Value: value}, nil
}

func parseFloatPtr(s string) (*float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, false
	}
	return &f, true
}
