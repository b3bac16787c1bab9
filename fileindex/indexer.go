package fileindex

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/biohub/subindex/external"
	"github.com/biohub/subindex/internal/metrics"
)

// defaultBatchSize is the file-list batch size named in spec §4.6 step 4.
const defaultBatchSize = 250

// defaultConcurrency bounds the per-submission executor fan-out (spec §5
// "a per-submission executor ... bounded concurrency") when the caller
// does not configure one explicitly.
const defaultConcurrency = 8

// Writer is the narrow seam C6 needs from the index writer coordinator
// (C8): an upsert keyed by file id. Declared here rather than imported
// from package writer to keep fileindex free of a dependency on bleve.
type Writer interface {
	UpdateFile(ctx context.Context, id string, doc map[string]any) error
}

// Indexer drives component C6: it walks a submission for file-list
// manifests, fetches each concurrently, partitions the results into
// batches, and builds+writes one document per file via BuildDocument.
type Indexer struct {
	Fetcher     external.ManifestFetcher
	Writer      Writer
	BatchSize   int
	Concurrency int
	Metrics     *metrics.Collectors
}

// observeFile increments the file-outcome counter when Metrics is wired;
// a zero-value Indexer{} (common in tests) skips emission entirely.
func (ix *Indexer) observeFile(outcome string) {
	if ix.Metrics == nil {
		return
	}
	ix.Metrics.FilesIndexed.WithLabelValues(outcome).Inc()
}

func (ix *Indexer) batchSize() int {
	if ix.BatchSize > 0 {
		return ix.BatchSize
	}
	return defaultBatchSize
}

func (ix *Indexer) concurrency() int {
	if ix.Concurrency > 0 {
		return ix.Concurrency
	}
	return defaultConcurrency
}

// IndexFileLists implements spec §4.6 end to end for one submission. Every
// manifest and batch failure is recorded on fc via SetIndexingError rather
// than aborting the whole walk (spec §7 FileParsingError: "sets
// hasIndexingError and continues"); only caller cancellation returns an
// error, so scheduling of new work stops as soon as it is observed (spec §5
// cancellation semantics).
func (ix *Indexer) IndexFileLists(ctx context.Context, owner string, submission map[string]any, fc *Context) error {
	manifests := findManifests(submission)
	if len(manifests) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.concurrency())

	for _, man := range manifests {
		man := man
		g.Go(func() error {
			return ix.processManifest(gctx, owner, man, fc)
		})
	}
	return g.Wait()
}

func (ix *Indexer) processManifest(ctx context.Context, owner string, man pendingManifest, fc *Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if ix.Metrics != nil {
		ix.Metrics.ManifestsInFlight.Inc()
		defer ix.Metrics.ManifestsInFlight.Dec()
	}

	resp, err := ix.Fetcher.FetchManifest(ctx, man.FilesURL)
	if err != nil || !resp.OK {
		fc.SetIndexingError()
		return nil
	}
	fc.addSectionWithFiles(man.FileName)

	batches := batchEntries(resp.Files, ix.batchSize())

	bg, bctx := errgroup.WithContext(ctx)
	bg.SetLimit(ix.concurrency())
	for _, batch := range batches {
		batch := batch
		bg.Go(func() error {
			return ix.processBatch(bctx, owner, man.Parent, batch, fc)
		})
	}
	return bg.Wait()
}

func (ix *Indexer) processBatch(ctx context.Context, owner string, parent ParentSection, batch []external.ManifestEntry, fc *Context) error {
	for _, entry := range batch {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		position := fc.NextPosition()
		doc := BuildDocument(entry, parent, owner, position, fc)
		id := fmt.Sprintf("%s-%d", owner, position)
		if err := ix.Writer.UpdateFile(ctx, id, doc); err != nil {
			fc.SetIndexingError()
			ix.observeFile(metrics.OutcomeFailure)
			continue
		}
		ix.observeFile(metrics.OutcomeSuccess)
	}
	return nil
}

func batchEntries(entries []external.ManifestEntry, size int) [][]external.ManifestEntry {
	if size <= 0 {
		size = defaultBatchSize
	}
	var out [][]external.ManifestEntry
	for i := 0; i < len(entries); i += size {
		end := i + size
		if end > len(entries) {
			end = len(entries)
		}
		out = append(out, entries[i:end])
	}
	return out
}
