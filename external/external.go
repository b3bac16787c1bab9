// Package external declares the seams this module calls through for
// collaborators whose own implementations are out of scope (spec §1, §6):
// the submission fetcher, file-manifest fetcher, a pluggable security
// predicate, and the view-count lookup. No ontology or taxonomy loader
// interface is declared here; the ontology source is ontology.Loader.
package external

import "context"

// FetchStatus mirrors the three-way result of a submission fetch (spec §6).
type FetchStatus string

const (
	StatusFound    FetchStatus = "FOUND"
	StatusNotFound FetchStatus = "NOT_FOUND"
	StatusError    FetchStatus = "ERROR"
)

// SubmissionFetchResult is the outcome of fetching one submission's body
// from its extTabUrl.
type SubmissionFetchResult struct {
	Status     FetchStatus
	Metadata   map[string]any
	HTTPStatus int
	ErrMessage string
}

// SubmissionFetcher retrieves a submission's JSON body given the URL named
// in its change notification.
type SubmissionFetcher interface {
	FetchSubmission(ctx context.Context, extTabURL string) (SubmissionFetchResult, error)
}

// ManifestEntry is one raw file entry as returned by a file-list manifest
// (spec §6 "File-list manifest response").
type ManifestEntry struct {
	FileName   string
	FilePath   string
	RelPath    string
	Size       string
	Type       string
	Attributes []Attribute
}

// Attribute is a generic name/value pair, used both on manifest file
// entries and section-level attributes in the submission body.
type Attribute struct {
	Name  string
	Value string
}

// ManifestResponse is a file-list manifest's decoded body.
type ManifestResponse struct {
	Files   []ManifestEntry
	ExtType string
	// OK is false when the response lacked a "files" array entirely (spec
	// §4.6 step 4: "if it lacks a files array, mark hasIndexingError").
	OK bool
}

// ManifestFetcher retrieves one file-list manifest given its filesUrl.
type ManifestFetcher interface {
	FetchManifest(ctx context.Context, filesURL string) (ManifestResponse, error)
}

// SecurityPredicate describes the caller for authorization (spec §4.10
// step 6). Authenticated reports whether the caller carries any identity at
// all, used by the facet service's private-field check (spec §4.11). The
// interface adds no query clause by itself; a predicate that also
// implements query.SecurityFilter supplies the clause build_query wraps
// the query with.
type SecurityPredicate interface {
	Authenticated() bool
}

// ViewCountSource resolves an accession to its recorded view count (spec §6
// "view-count file"), implemented by parser.ViewCountLookup-compatible
// adapters over the CSV the caller opens and closes.
type ViewCountSource interface {
	ViewCount(accession string) (int64, bool)
}
