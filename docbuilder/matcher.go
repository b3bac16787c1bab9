package docbuilder

import (
	"fmt"

	"github.com/biohub/subindex/ontology"
	"github.com/biohub/subindex/termmatch"
)

// NewMatcher builds the term matcher (C4) once from resolver's current
// primary term set and alt-term index (spec §4.4's "matcher is built once
// from the resolver's all_terms()"). A nil resolver yields a nil matcher,
// which leaves enrichOntology a no-op — a deployment with no ontology
// source configured is valid, it just never populates the "efo" facet.
func NewMatcher(resolver *ontology.Resolver) (*termmatch.Matcher, error) {
	if resolver == nil {
		return nil, nil
	}
	primaries, err := resolver.PrimaryTerms()
	if err != nil {
		return nil, fmt.Errorf("loading ontology primary terms for term matcher: %w", err)
	}
	return termmatch.New(primaries, resolver), nil
}
