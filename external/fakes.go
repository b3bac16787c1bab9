package external

import "context"

// FakeSubmissionFetcher is an in-memory SubmissionFetcher keyed by URL, for
// tests that exercise the listener-to-indexer handoff without a real HTTP
// client.
type FakeSubmissionFetcher map[string]SubmissionFetchResult

func (f FakeSubmissionFetcher) FetchSubmission(_ context.Context, extTabURL string) (SubmissionFetchResult, error) {
	if r, ok := f[extTabURL]; ok {
		return r, nil
	}
	return SubmissionFetchResult{Status: StatusNotFound}, nil
}

// FakeManifestFetcher is an in-memory ManifestFetcher keyed by filesUrl.
type FakeManifestFetcher map[string]ManifestResponse

func (f FakeManifestFetcher) FetchManifest(_ context.Context, filesURL string) (ManifestResponse, error) {
	if r, ok := f[filesURL]; ok {
		return r, nil
	}
	return ManifestResponse{OK: false}, nil
}

// AllowAll is a SecurityPredicate that authenticates every caller.
type AllowAll struct{}

func (AllowAll) Authenticated() bool { return true }

// Anonymous is a SecurityPredicate representing an unauthenticated caller.
type Anonymous struct{}

func (Anonymous) Authenticated() bool { return false }

// FakeViewCounts is an in-memory ViewCountSource.
type FakeViewCounts map[string]int64

func (f FakeViewCounts) ViewCount(accession string) (int64, bool) {
	v, ok := f[accession]
	return v, ok
}
