package docbuilder

import "errors"

// errValueMapMissingCollectionFacet is the caller error spec §4.7 step 1
// names: the value map handed to Build must already carry the collection
// facet.
var errValueMapMissingCollectionFacet = errors.New("value map missing facet.collection: caller must populate it before calling Build")
