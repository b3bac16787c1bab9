package query

// OntologyResolver is the subset of *ontology.Resolver the EFO lookup
// adapter needs; declared locally to avoid this package depending on
// ontology's concrete type beyond what expansion actually uses.
type OntologyResolver interface {
	IsTerm(text string) (bool, error)
	IDFor(term string) (string, bool, error)
	AltTermsFor(term string) ([]string, error)
}

// OntologyLookup adapts an OntologyResolver to the EFOLookup interface:
// a matched term's alt terms become synonyms, and its own ontology id
// becomes the sole entry in EFOIDs (spec §4.10 step 2's "{term, alt_terms,
// efo_ids}" record).
type OntologyLookup struct {
	Resolver OntologyResolver
}

func (o OntologyLookup) Lookup(term string) (EFOEntry, bool, error) {
	if o.Resolver == nil {
		return EFOEntry{}, false, nil
	}
	isTerm, err := o.Resolver.IsTerm(term)
	if err != nil {
		return EFOEntry{}, false, err
	}
	if !isTerm {
		return EFOEntry{}, false, nil
	}

	alts, err := o.Resolver.AltTermsFor(term)
	if err != nil {
		return EFOEntry{}, false, err
	}

	var ids []string
	if id, ok, err := o.Resolver.IDFor(term); err != nil {
		return EFOEntry{}, false, err
	} else if ok {
		ids = []string{id}
	}

	return EFOEntry{Term: term, AltTerms: alts, EFOIDs: ids}, true, nil
}
