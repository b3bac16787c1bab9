package query

import "github.com/blevesearch/bleve/v2"

// defaultField is the unqualified field every bare term/phrase clause
// searches when a leaf's Field is blank, matching the teacher's convention
// of a catch-all body field (docbuilder writes submission free text here).
const defaultField = "content"

// Compile turns a Node tree into a real bleve.Query.
func Compile(n *Node) bleve.Query {
	return compile(n, defaultField)
}

func compile(n *Node, fallbackField string) bleve.Query {
	if n == nil {
		return bleve.NewMatchAllQuery()
	}
	if n.isLeaf() {
		return compileLeaf(n.Leaf, fallbackField)
	}

	var parts []bleve.Query
	if len(n.Must) == 1 {
		parts = append(parts, compile(n.Must[0], fallbackField))
	} else if len(n.Must) > 1 {
		musts := make([]bleve.Query, 0, len(n.Must))
		for _, c := range n.Must {
			musts = append(musts, compile(c, fallbackField))
		}
		parts = append(parts, bleve.NewConjunctionQuery(musts))
	}

	if len(n.Should) == 1 {
		parts = append(parts, compile(n.Should[0], fallbackField))
	} else if len(n.Should) > 1 {
		shoulds := make([]bleve.Query, 0, len(n.Should))
		for _, c := range n.Should {
			shoulds = append(shoulds, compile(c, fallbackField))
		}
		parts = append(parts, bleve.NewDisjunctionQuery(shoulds))
	}

	if len(n.MustNot) > 0 {
		mustNots := make([]bleve.Query, 0, len(n.MustNot))
		for _, c := range n.MustNot {
			mustNots = append(mustNots, compile(c, fallbackField))
		}
		var notQ bleve.Query
		if len(mustNots) == 1 {
			notQ = mustNots[0]
		} else {
			notQ = bleve.NewDisjunctionQuery(mustNots)
		}
		bq := bleve.NewBooleanQuery()
		if len(parts) == 0 {
			bq.AddMust(bleve.NewMatchAllQuery())
		} else if len(parts) == 1 {
			bq.AddMust(parts[0])
		} else {
			bq.AddMust(bleve.NewConjunctionQuery(parts))
		}
		bq.AddMustNot(notQ)
		return bq
	}

	switch len(parts) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return parts[0]
	default:
		return bleve.NewConjunctionQuery(parts)
	}
}

func compileLeaf(l *Leaf, fallbackField string) bleve.Query {
	field := l.Field
	if field == "" {
		field = fallbackField
	}
	switch l.Kind {
	case LeafMatchAll:
		return bleve.NewMatchAllQuery()
	case LeafTerm:
		q := bleve.NewMatchQuery(l.Value)
		q.SetField(field)
		return q
	case LeafPhrase:
		q := bleve.NewMatchPhraseQuery(joinTerms(l.Terms))
		q.SetField(field)
		return q
	case LeafPrefix:
		q := bleve.NewPrefixQuery(l.Value)
		q.SetField(field)
		return q
	case LeafWildcard:
		q := bleve.NewWildcardQuery(l.Value)
		q.SetField(field)
		return q
	case LeafRange:
		q := bleve.NewNumericRangeInclusiveQuery(l.Min, l.Max, &l.MinInclusive, &l.MaxInclusive)
		q.SetField(field)
		return q
	default:
		return bleve.NewMatchAllQuery()
	}
}

func joinTerms(terms []string) string {
	out := ""
	for i, t := range terms {
		if i > 0 {
			out += " "
		}
		out += t
	}
	return out
}

// termLeaf and keywordShould build ad-hoc Should-of-Term nodes for the
// type-exclusion and collection-filter steps, which construct their clauses
// directly rather than through the string parser.
func termLeaf(field, value string) *Node {
	return leafNode(Leaf{Kind: LeafTerm, Field: field, Value: value})
}

func keywordShould(field string, values []string) *Node {
	if len(values) == 1 {
		return termLeaf(field, values[0])
	}
	n := &Node{}
	for _, v := range values {
		n.Should = append(n.Should, termLeaf(field, v))
	}
	return n
}
