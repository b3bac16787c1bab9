package ontology

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// rdfDoc is the minimal RDF/XML shape this loader understands: a flat list
// of owl:Class elements. encoding/xml matches tags by local name when a tag
// carries no namespace, so this decodes documents regardless of which
// namespace prefixes (rdf:, rdfs:, owl:) the source file happens to use.
type rdfDoc struct {
	XMLName xml.Name   `xml:"RDF"`
	Classes []owlClass `xml:"Class"`
}

type owlClass struct {
	About                string          `xml:"about,attr"`
	Labels               []string        `xml:"label"`
	ArrayExpressLabel    string          `xml:"ArrayExpressLabel"`
	ExactSynonyms        []string        `xml:"hasExactSynonym"`
	EFOURI               string          `xml:"efo_uri"`
	OrganizationalClass  string          `xml:"organizational_class"`
	SubClassOf           []subClassOf    `xml:"subClassOf"`
}

type subClassOf struct {
	Resource    string       `xml:"resource,attr"`
	Restriction *restriction `xml:"Restriction"`
}

type restriction struct {
	OnProperty      rdfResourceRef `xml:"onProperty"`
	SomeValuesFrom  rdfResourceRef `xml:"someValuesFrom"`
}

type rdfResourceRef struct {
	Resource string `xml:"resource,attr"`
}

// partOfPropertySuffix identifies the onProperty IRI that marks a
// Restriction as a part_of relation rather than a generic subClassOf
// restriction; ontology files name the property with this trailing
// fragment regardless of base IRI.
const partOfPropertySuffix = "part_of"

// parseOWL decodes raw RDF/XML bytes into a fresh Model. Per class it
// extracts: the IRI (id), rdfs:label (first label is the primary term,
// remaining labels become alt-terms), an ArrayExpressLabel override
// (replaces the primary term and demotes the previous primary to an
// alt-term, spec §4.3 step 2), hasExactSynonym annotations (alt-terms), and
// part_of restriction targets pulled out of subClassOf axioms. Parent/child
// edges are linked bidirectionally once every class has been read, since an
// RDF/XML document can reference a class before its own element appears.
func parseOWL(raw []byte) (*Model, error) {
	var doc rdfDoc
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding OWL document: %w", err)
	}

	m := newModel()

	for _, c := range doc.Classes {
		id := c.About
		if id == "" {
			continue
		}
		n := newNode(id)

		if len(c.Labels) > 0 {
			n.PrimaryTerm = c.Labels[0]
			n.AltTerms = append(n.AltTerms, c.Labels[1:]...)
		}
		if c.ArrayExpressLabel != "" && c.ArrayExpressLabel != n.PrimaryTerm {
			if n.PrimaryTerm != "" {
				n.AltTerms = append(n.AltTerms, n.PrimaryTerm)
			}
			n.PrimaryTerm = c.ArrayExpressLabel
		}
		n.AltTerms = append(n.AltTerms, c.ExactSynonyms...)
		n.Organizational = strings.EqualFold(c.OrganizationalClass, "true")

		for _, sc := range c.SubClassOf {
			switch {
			case sc.Resource != "":
				n.addParent(sc.Resource)
			case sc.Restriction != nil && strings.HasSuffix(sc.Restriction.OnProperty.Resource, partOfPropertySuffix):
				if target := sc.Restriction.SomeValuesFrom.Resource; target != "" {
					n.PartOf = insertSorted(n.PartOf, target)
				}
			}
		}

		m.nodes[id] = n
	}

	for id, n := range m.nodes {
		for _, parent := range n.Parents {
			if p, ok := m.nodes[parent]; ok {
				p.addChild(id)
			}
		}
		if len(n.PartOf) > 0 {
			m.partOf[id] = append([]string(nil), n.PartOf...)
		}
	}

	indexTerms(m)
	return m, nil
}

// stripIgnoredClasses removes a configured set of IRIs from both the node
// map and every relation that mentions them (spec §4.3 step 4), run after
// parseOWL and before the model is published.
func stripIgnoredClasses(m *Model, ignored map[string]bool) {
	if len(ignored) == 0 {
		return
	}
	for id := range ignored {
		delete(m.nodes, id)
		delete(m.partOf, id)
	}
	for _, n := range m.nodes {
		n.Parents = removeAll(n.Parents, ignored)
		n.Children = removeAll(n.Children, ignored)
		n.PartOf = removeAll(n.PartOf, ignored)
	}
	for id, parents := range m.partOf {
		m.partOf[id] = removeAll(parents, ignored)
	}
	indexTerms(m)
}

func removeAll(set []string, ignored map[string]bool) []string {
	out := set[:0]
	for _, v := range set {
		if !ignored[v] {
			out = append(out, v)
		}
	}
	return out
}

func indexTerms(m *Model) {
	m.termIndex = make(map[string][]string)
	for id, n := range m.nodes {
		addTermIndex(m, n.PrimaryTerm, id)
		for _, alt := range n.AltTerms {
			addTermIndex(m, alt, id)
		}
	}
}

func addTermIndex(m *Model, term, id string) {
	if term == "" {
		return
	}
	key := lowerASCII(term)
	for _, existing := range m.termIndex[key] {
		if existing == id {
			return
		}
	}
	m.termIndex[key] = append(m.termIndex[key], id)
}
