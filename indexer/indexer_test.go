package indexer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"github.com/biohub/subindex/docbuilder"
	"github.com/biohub/subindex/internal/metrics"
	"github.com/biohub/subindex/parser"
	"github.com/biohub/subindex/registry"
)

const testRegistry = `[
  {
    "name": "public",
    "fields": [
      {"name": "accession", "type": "untokenized-string", "sortable": true, "parser": "simple-attribute"},
      {"name": "content", "type": "tokenized-text", "parser": "content"},
      {"name": "facet.collection", "type": "facet", "parser": "simple-attribute"}
    ]
  }
]`

func mustRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r, err := registry.Load(registry.BytesSource(testRegistry), nil)
	if err != nil {
		t.Fatalf("registry.Load: %v", err)
	}
	return r
}

// fakeWriter records every call; blockUpdate, when non-nil, is read from
// before UpdateSubmission returns, letting a test hold a task RUNNING.
type fakeWriter struct {
	mu               sync.Mutex
	updated          map[string]map[string]any
	deletedFiles     []string
	deletedPageTab   []string
	deletedByID      []string
	commits          int
	commitAlls       int
	refreshes        int
	updateErr        error
	blockUntilSignal <-chan struct{}
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{updated: make(map[string]map[string]any)}
}

func (w *fakeWriter) UpdateSubmission(_ context.Context, id string, doc map[string]any) error {
	if w.blockUntilSignal != nil {
		<-w.blockUntilSignal
	}
	if w.updateErr != nil {
		return w.updateErr
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.updated[id] = doc
	return nil
}

func (w *fakeWriter) DeleteSubmissionByID(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.deletedByID = append(w.deletedByID, id)
	return nil
}

func (w *fakeWriter) DeleteFilesByOwner(_ context.Context, owner string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.deletedFiles = append(w.deletedFiles, owner)
	return nil
}

func (w *fakeWriter) DeletePageTabDocuments(_ context.Context, term string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.deletedPageTab = append(w.deletedPageTab, term)
	return nil
}

func (w *fakeWriter) CommitSubmissionAndFiles() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.commits++
	return nil
}

func (w *fakeWriter) CommitAll() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.commitAlls++
	return nil
}

func (w *fakeWriter) RefreshAll() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.refreshes++
	return nil
}

func newTestIndexer(t *testing.T, w Writer) *Indexer {
	t.Helper()
	reg := mustRegistry(t)
	return &Indexer{
		Registry:  reg,
		ParserCtx: parser.Context{},
		Builder:   &docbuilder.Builder{Registry: reg},
		Writer:    w,
	}
}

func sampleSubmission(accession string) map[string]any {
	return map[string]any{
		"accNo":            accession,
		"accession":        accession,
		"type":             "study",
		"facet.collection": "BioImages",
	}
}

func TestIndexOneHappyPathCommitsAndRefreshes(t *testing.T) {
	w := newFakeWriter()
	ix := newTestIndexer(t, w)

	result, err := ix.IndexOne(context.Background(), sampleSubmission("S-TEST1"), false, true)
	if err != nil {
		t.Fatalf("IndexOne: %v", err)
	}
	if !result.Success {
		t.Fatal("expected Success = true")
	}
	if w.commits != 1 || w.refreshes != 1 {
		t.Fatalf("commits=%d refreshes=%d, want 1/1", w.commits, w.refreshes)
	}
	if _, ok := w.updated["S-TEST1"]; !ok {
		t.Fatal("expected submission document to be written")
	}
	if got := ix.Status("S-TEST1"); got.State != StateNotFound {
		t.Fatalf("expected task to be forgotten after completion, got %v", got.State)
	}
}

func TestIndexOneWithoutCommitLeavesBatchOpen(t *testing.T) {
	w := newFakeWriter()
	ix := newTestIndexer(t, w)

	if _, err := ix.IndexOne(context.Background(), sampleSubmission("S-TEST1"), false, false); err != nil {
		t.Fatalf("IndexOne: %v", err)
	}
	if w.commits != 0 || w.refreshes != 0 {
		t.Fatalf("expected no commit/refresh, got commits=%d refreshes=%d", w.commits, w.refreshes)
	}
}

func TestIndexOneRemoveExistingDeletesBeforeWriting(t *testing.T) {
	w := newFakeWriter()
	ix := newTestIndexer(t, w)

	if _, err := ix.IndexOne(context.Background(), sampleSubmission("S-TEST1"), true, true); err != nil {
		t.Fatalf("IndexOne: %v", err)
	}
	if len(w.deletedFiles) != 1 || w.deletedFiles[0] != "S-TEST1" {
		t.Fatalf("deletedFiles = %v", w.deletedFiles)
	}
	if len(w.deletedPageTab) != 1 || w.deletedPageTab[0] != "S-TEST1" {
		t.Fatalf("deletedPageTab = %v", w.deletedPageTab)
	}
}

func TestIndexOneMissingAccessionFails(t *testing.T) {
	w := newFakeWriter()
	ix := newTestIndexer(t, w)

	if _, err := ix.IndexOne(context.Background(), map[string]any{}, false, true); err == nil {
		t.Fatal("expected error for missing accNo")
	}
}

func TestIndexOneWriterFailureSetsFailedState(t *testing.T) {
	w := newFakeWriter()
	w.updateErr = errors.New("disk full")
	ix := newTestIndexer(t, w)

	_, err := ix.IndexOne(context.Background(), sampleSubmission("S-TEST1"), false, true)
	if err == nil {
		t.Fatal("expected error to propagate")
	}
}

// TestIndexOneDedupesConcurrentSubmission reproduces spec §4.9 step 1's
// second sentence: a second index_one call for an accession already
// RUNNING joins the existing task and returns its id instead of starting a
// second worker.
func TestIndexOneDedupesConcurrentSubmission(t *testing.T) {
	gate := make(chan struct{})
	w := newFakeWriter()
	w.blockUntilSignal = gate
	ix := newTestIndexer(t, w)

	firstDone := make(chan IndexingResult, 1)
	go func() {
		r, err := ix.IndexOne(context.Background(), sampleSubmission("S-TEST1"), false, true)
		if err != nil {
			t.Errorf("first IndexOne: %v", err)
		}
		firstDone <- r
	}()

	// Give the first call time to reach the blocked UpdateSubmission call
	// and register its RUNNING task before the second call arrives.
	time.Sleep(20 * time.Millisecond)

	second, err := ix.IndexOne(context.Background(), sampleSubmission("S-TEST1"), false, true)
	if err != nil {
		t.Fatalf("second IndexOne: %v", err)
	}
	if !second.Deduplicated {
		t.Fatal("expected second call to be deduplicated")
	}

	close(gate)
	first := <-firstDone
	if first.TaskID != second.TaskID {
		t.Fatalf("expected matching task ids, got %q vs %q", first.TaskID, second.TaskID)
	}
}

func TestDeleteSubmissionDeletesAndCommitsAll(t *testing.T) {
	w := newFakeWriter()
	ix := newTestIndexer(t, w)

	if err := ix.DeleteSubmission(context.Background(), "S-TEST1"); err != nil {
		t.Fatalf("DeleteSubmission: %v", err)
	}
	if len(w.deletedByID) != 1 || w.deletedByID[0] != "S-TEST1" {
		t.Fatalf("deletedByID = %v", w.deletedByID)
	}
	if len(w.deletedFiles) != 1 || w.deletedFiles[0] != "S-TEST1" {
		t.Fatalf("deletedFiles = %v", w.deletedFiles)
	}
	if w.commitAlls != 1 {
		t.Fatalf("commitAlls = %d, want 1", w.commitAlls)
	}
}

// TestIndexOneObservesMetrics reproduces spec §4.13's requirement that a
// completed index_one call is reflected in the submissions-indexed counter
// and the duration histogram once Metrics is wired.
func TestIndexOneObservesMetrics(t *testing.T) {
	w := newFakeWriter()
	ix := newTestIndexer(t, w)
	ix.Metrics = metrics.New()

	if _, err := ix.IndexOne(context.Background(), sampleSubmission("S-TEST1"), false, true); err != nil {
		t.Fatalf("IndexOne: %v", err)
	}
	if got := testutil.ToFloat64(ix.Metrics.SubmissionsIndexed.WithLabelValues(metrics.OutcomeSuccess)); got != 1 {
		t.Fatalf("success counter = %v, want 1", got)
	}
	var m dto.Metric
	if err := ix.Metrics.IndexOneDuration.Write(&m); err != nil {
		t.Fatalf("reading duration histogram: %v", err)
	}
	if count := m.GetHistogram().GetSampleCount(); count != 1 {
		t.Fatalf("duration sample count = %d, want 1", count)
	}
}

// TestIndexOneObservesDeduplicatedMetric reproduces the dedup-join branch of
// spec §4.9 step 1 counting toward the "deduplicated" outcome label.
func TestIndexOneObservesDeduplicatedMetric(t *testing.T) {
	gate := make(chan struct{})
	w := newFakeWriter()
	w.blockUntilSignal = gate
	ix := newTestIndexer(t, w)
	ix.Metrics = metrics.New()

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		ix.IndexOne(context.Background(), sampleSubmission("S-TEST1"), false, true)
	}()
	time.Sleep(20 * time.Millisecond)

	second, err := ix.IndexOne(context.Background(), sampleSubmission("S-TEST1"), false, true)
	if err != nil {
		t.Fatalf("second IndexOne: %v", err)
	}
	if !second.Deduplicated {
		t.Fatal("expected deduplicated result")
	}
	if got := testutil.ToFloat64(ix.Metrics.SubmissionsIndexed.WithLabelValues(metrics.OutcomeDeduplicated)); got != 1 {
		t.Fatalf("deduplicated counter = %v, want 1", got)
	}

	close(gate)
	<-firstDone
}

func TestRunParsersResolvesCollectionBeforeUnionFields(t *testing.T) {
	ix := newTestIndexer(t, newFakeWriter())
	valueMap, collection, err := ix.runParsers(sampleSubmission("S-TEST1"), "S-TEST1")
	if err != nil {
		t.Fatalf("runParsers: %v", err)
	}
	if collection != "BioImages" {
		t.Fatalf("collection = %q, want BioImages", collection)
	}
	if valueMap["accession"] != "S-TEST1" {
		t.Fatalf("accession = %q", valueMap["accession"])
	}
}
