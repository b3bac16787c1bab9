// Package writer implements component C8: the index writer coordinator
// that owns the submission, file, page-tab, and taxonomy bleve indices and
// mediates every update, delete, and commit against them.
package writer

import (
	"context"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	bleveIndex "github.com/blevesearch/bleve/v2/index"

	"github.com/biohub/subindex/errs"
)

// Coordinator owns the four bleve indices the indexing pipeline writes to
// and batches writes per index so a commit call flushes exactly once per
// family, mirroring spec §4.8's commit_submission_and_files/commit_all
// split.
type Coordinator struct {
	Submission bleve.Index
	Files      bleve.Index
	PageTab    bleve.Index
	Taxonomy   bleve.Index

	mu      sync.Mutex
	pending map[bleve.Index]*bleve.Batch
	// snapshotReaders holds one open index.IndexReader per index while a
	// snapshot bracket is active, opened in the fixed order Submission,
	// Files, PageTab, Taxonomy.
	snapshotReaders []bleveIndex.IndexReader
}

// NewCoordinator wires four already-open indices into a Coordinator.
func NewCoordinator(submission, files, pageTab, taxonomy bleve.Index) *Coordinator {
	return &Coordinator{
		Submission: submission,
		Files:      files,
		PageTab:    pageTab,
		Taxonomy:   taxonomy,
		pending:    make(map[bleve.Index]*bleve.Batch),
	}
}

func (c *Coordinator) batchFor(idx bleve.Index) *bleve.Batch {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.pending[idx]
	if !ok {
		b = idx.NewBatch()
		c.pending[idx] = b
	}
	return b
}

// UpdateSubmission stages an upsert of the submission document keyed by
// its accession term (spec §4.8 update_submission).
func (c *Coordinator) UpdateSubmission(_ context.Context, idTerm string, document map[string]any) error {
	if err := c.batchFor(c.Submission).Index(idTerm, document); err != nil {
		return fmt.Errorf("%w: staging submission %s: %v", errs.ErrIndexWrite, idTerm, err)
	}
	return nil
}

// UpdateFile satisfies fileindex.Writer so the file-list indexer (C6) can
// stage file documents directly against this coordinator.
func (c *Coordinator) UpdateFile(_ context.Context, id string, document map[string]any) error {
	if err := c.batchFor(c.Files).Index(id, document); err != nil {
		return fmt.Errorf("%w: staging file %s: %v", errs.ErrIndexWrite, id, err)
	}
	return nil
}

// UpdatePageTab stages an upsert of the raw page-tab form for an accession.
func (c *Coordinator) UpdatePageTab(_ context.Context, accession string, document map[string]any) error {
	if err := c.batchFor(c.PageTab).Index(accession, document); err != nil {
		return fmt.Errorf("%w: staging page-tab %s: %v", errs.ErrIndexWrite, accession, err)
	}
	return nil
}

// UpdateTaxonomyPath stages an upsert of one taxonomy path node.
func (c *Coordinator) UpdateTaxonomyPath(_ context.Context, path string, document map[string]any) error {
	if err := c.batchFor(c.Taxonomy).Index(path, document); err != nil {
		return fmt.Errorf("%w: staging taxonomy path %s: %v", errs.ErrIndexWrite, path, err)
	}
	return nil
}

// DeleteSubmissionDocuments deletes every submission document matching
// query, used to clear stale state ahead of a reindex (spec §4.8
// delete_submission_documents, spec scenario S6).
func (c *Coordinator) DeleteSubmissionDocuments(ctx context.Context, query bleve.Query) error {
	return c.deleteByQuery(ctx, c.Submission, query)
}

// DeleteSubmissionByID stages a delete of the submission document with the
// given accession, used by delete_submission's delete-by-primary-key step.
func (c *Coordinator) DeleteSubmissionByID(id string) error {
	c.batchFor(c.Submission).Delete(id)
	return nil
}

// DeleteFilesByOwner deletes every file document belonging to owner.
func (c *Coordinator) DeleteFilesByOwner(ctx context.Context, owner string) error {
	q := bleve.NewTermQuery(owner)
	q.SetField("owner")
	return c.deleteByQuery(ctx, c.Files, q)
}

// DeletePageTabDocuments deletes the page-tab document for the given
// accession term (spec §4.8 delete_page_tab_documents).
func (c *Coordinator) DeletePageTabDocuments(ctx context.Context, term string) error {
	q := bleve.NewDocIDQuery([]string{term})
	return c.deleteByQuery(ctx, c.PageTab, q)
}

func (c *Coordinator) deleteByQuery(ctx context.Context, idx bleve.Index, q bleve.Query) error {
	req := bleve.NewSearchRequest(q)
	req.Size = 1000
	for {
		res, err := idx.SearchInContext(ctx, req)
		if err != nil {
			return fmt.Errorf("%w: searching for delete: %v", errs.ErrIndexWrite, err)
		}
		if len(res.Hits) == 0 {
			return nil
		}
		batch := c.batchFor(idx)
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if len(res.Hits) < req.Size {
			return nil
		}
		req.From += req.Size
	}
}

// SetSubmissionCommitData writes arbitrary key/value metadata (e.g. the
// source offset the listener last committed) into the submission index's
// internal store, staged alongside the current batch (spec §4.8
// set_submission_commit_data).
func (c *Coordinator) SetSubmissionCommitData(kv map[string]string) error {
	batch := c.batchFor(c.Submission)
	for k, v := range kv {
		batch.SetInternal([]byte(k), []byte(v))
	}
	return nil
}

// SubmissionCommitData reads back a key that SetSubmissionCommitData
// staged and a later commit persisted.
func (c *Coordinator) SubmissionCommitData(key string) (string, error) {
	v, err := c.Submission.GetInternal([]byte(key))
	if err != nil {
		return "", fmt.Errorf("%w: reading commit data %s: %v", errs.ErrIndexWrite, key, err)
	}
	return string(v), nil
}

// CommitSubmissionAndFiles flushes the submission and file batches
// together, the unit spec §4.9's indexOne commits after each submission.
func (c *Coordinator) CommitSubmissionAndFiles() error {
	return c.flush(c.Submission, c.Files)
}

// CommitAll flushes every pending batch across all four indices.
func (c *Coordinator) CommitAll() error {
	return c.flush(c.Submission, c.Files, c.PageTab, c.Taxonomy)
}

func (c *Coordinator) flush(indices ...bleve.Index) error {
	for _, idx := range indices {
		c.mu.Lock()
		batch := c.pending[idx]
		delete(c.pending, idx)
		c.mu.Unlock()
		if batch == nil {
			continue
		}
		if err := idx.Batch(batch); err != nil {
			return fmt.Errorf("%w: committing batch: %v", errs.ErrIndexWrite, err)
		}
	}
	return nil
}

// RefreshAll and RefreshTaxonomy are kept for API parity with the commit/
// refresh split spec §4.8 names: bleve's scorch backend makes a batch
// visible to search as soon as Batch returns, so there is no separate
// refresh step to perform here.
func (c *Coordinator) RefreshAll() error      { return nil }
func (c *Coordinator) RefreshTaxonomy() error { return nil }

// HoldSnapshot and ReleaseSnapshot bracket a window in which the admin
// operator (C15) takes a filesystem backup of the indices. Bleve's scorch
// engine reclaims a segment's disk space only once no index reader
// references it, so HoldSnapshot opens and retains one index.IndexReader
// per index (via Advanced(), bleve exposes no dedicated snapshot API) to
// pin every segment on disk for the duration of the bracket; ReleaseSnapshot
// closes them, letting scorch resume reclaiming compacted segments.
func (c *Coordinator) HoldSnapshot() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.snapshotReaders) > 0 {
		return nil
	}
	indices := []bleve.Index{c.Submission, c.Files, c.PageTab, c.Taxonomy}
	readers := make([]bleveIndex.IndexReader, 0, len(indices))
	for _, idx := range indices {
		adv, _ := idx.Advanced()
		r, err := adv.Reader()
		if err != nil {
			for _, opened := range readers {
				_ = opened.Close()
			}
			return fmt.Errorf("%w: opening snapshot reader: %v", errs.ErrIndexWrite, err)
		}
		readers = append(readers, r)
	}
	c.snapshotReaders = readers
	return nil
}

func (c *Coordinator) ReleaseSnapshot() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for _, r := range c.snapshotReaders {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%w: closing snapshot reader: %v", errs.ErrIndexWrite, err)
		}
	}
	c.snapshotReaders = nil
	return firstErr
}
