package ontology

// TermsFor collects the term set for id selected by flags (spec §4.3):
// SELF adds the node's own primary term, ALT_TERMS its alt-terms, CHILDREN
// transitively walks child edges adding each descendant's primary term
// (and, when CHILD_ALT_TERMS is also set, each descendant's alt-terms),
// and PART_OF transitively walks part_of edges adding each target's primary
// term.
func (m *Model) TermsFor(id string, flags Flag) map[string]bool {
	out := make(map[string]bool)
	root, ok := m.nodes[id]
	if !ok {
		return out
	}
	if flags&FlagSelf != 0 && root.PrimaryTerm != "" {
		out[root.PrimaryTerm] = true
	}
	if flags&FlagAltTerms != 0 {
		for _, a := range root.AltTerms {
			out[a] = true
		}
	}
	if flags&FlagChildren != 0 {
		m.collectChildren(id, flags, out, map[string]bool{id: true})
	}
	if flags&FlagPartOf != 0 {
		m.collectPartOf(id, out, map[string]bool{id: true})
	}
	return out
}

func (m *Model) collectChildren(id string, flags Flag, out, visited map[string]bool) {
	n, ok := m.nodes[id]
	if !ok {
		return
	}
	for _, childID := range n.Children {
		if visited[childID] {
			continue
		}
		visited[childID] = true
		child, ok := m.nodes[childID]
		if !ok {
			continue
		}
		if child.PrimaryTerm != "" {
			out[child.PrimaryTerm] = true
		}
		if flags&FlagChildAltTerms != 0 {
			for _, a := range child.AltTerms {
				out[a] = true
			}
		}
		m.collectChildren(childID, flags, out, visited)
	}
}

func (m *Model) collectPartOf(id string, out, visited map[string]bool) {
	for _, parentID := range m.partOf[id] {
		if visited[parentID] {
			continue
		}
		visited[parentID] = true
		parent, ok := m.nodes[parentID]
		if !ok {
			continue
		}
		if parent.PrimaryTerm != "" {
			out[parent.PrimaryTerm] = true
		}
		m.collectPartOf(parentID, out, visited)
	}
}
