package indexer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/biohub/subindex/docbuilder"
	"github.com/biohub/subindex/errs"
	"github.com/biohub/subindex/fileindex"
	"github.com/biohub/subindex/internal/metrics"
	"github.com/biohub/subindex/parser"
	"github.com/biohub/subindex/registry"
)

// collectionFacetField names the descriptor runParsers resolves first to
// pick the collection-specific union for every other field (spec §4.7
// step 1 / step 3).
const collectionFacetField = "facet.collection"

// Writer is the subset of the writer coordinator (C8) index_one needs.
// A narrow local interface keeps this package buildable against a fake in
// tests without importing bleve.
type Writer interface {
	UpdateSubmission(ctx context.Context, idTerm string, document map[string]any) error
	DeleteSubmissionByID(id string) error
	DeleteFilesByOwner(ctx context.Context, owner string) error
	DeletePageTabDocuments(ctx context.Context, term string) error
	CommitSubmissionAndFiles() error
	CommitAll() error
	RefreshAll() error
}

// IndexingResult is index_one's return value (spec §4.9 step 9).
type IndexingResult struct {
	TaskID   string
	ValueMap map[string]string
	Columns  []string
	Success  bool

	// Deduplicated marks a call that joined an already-RUNNING task for
	// the same accession rather than doing any indexing itself (spec §4.9
	// step 1, second sentence).
	Deduplicated bool
}

// Indexer wires the parser set, file-list indexer, document builder and
// writer coordinator into index_one/delete_submission.
type Indexer struct {
	Registry    *registry.Registry
	ParserCtx   parser.Context
	FileIndexer *fileindex.Indexer
	Builder     *docbuilder.Builder
	Writer      Writer
	Logger      *zap.Logger
	Metrics     *metrics.Collectors

	tasks *taskTable
}

// New builds an Indexer with its task table initialized.
func New(reg *registry.Registry, parserCtx parser.Context, fi *fileindex.Indexer, b *docbuilder.Builder, w Writer, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{
		Registry:    reg,
		ParserCtx:   parserCtx,
		FileIndexer: fi,
		Builder:     b,
		Writer:      w,
		Logger:      logger,
		tasks:       newTaskTable(),
	}
}

// table lazily initializes the task table so a zero-value Indexer (as
// tests commonly build with a struct literal) works without requiring New.
func (ix *Indexer) table() *taskTable {
	if ix.tasks == nil {
		ix.tasks = newTaskTable()
	}
	return ix.tasks
}

func (ix *Indexer) logger() *zap.Logger {
	if ix.Logger == nil {
		return zap.NewNop()
	}
	return ix.Logger
}

// observeSubmission increments the submission-outcome counter when Metrics
// is wired; a zero-value Indexer{} (common in tests) skips emission.
func (ix *Indexer) observeSubmission(outcome string) {
	if ix.Metrics == nil {
		return
	}
	ix.Metrics.SubmissionsIndexed.WithLabelValues(outcome).Inc()
}

// Status returns the current task status for accession.
func (ix *Indexer) Status(accession string) TaskStatus {
	s, _ := ix.table().Status(accession)
	return s
}

// IndexOne runs the full submission-indexing algorithm (spec §4.9).
func (ix *Indexer) IndexOne(ctx context.Context, submissionMetadata map[string]any, removeExisting, commit bool) (IndexingResult, error) {
	accession, _ := submissionMetadata["accNo"].(string)
	if accession == "" {
		return IndexingResult{}, errs.NewConfigError("accNo", fmt.Errorf("submission metadata missing accNo"))
	}

	status, joined := ix.table().startOrJoin(accession)
	if joined {
		ix.observeSubmission(metrics.OutcomeDeduplicated)
		return IndexingResult{TaskID: status.TaskID, Deduplicated: true}, nil
	}

	start := time.Now()
	result, err := ix.runIndexOne(ctx, accession, submissionMetadata, removeExisting, commit)
	if ix.Metrics != nil {
		ix.Metrics.IndexOneDuration.Observe(time.Since(start).Seconds())
	}
	result.TaskID = status.TaskID

	if err != nil {
		ix.table().finish(accession, StateFailed, err.Error())
		ix.observeSubmission(metrics.OutcomeFailure)
		ix.logger().Error("index_one failed", zap.String("accession", accession), zap.Error(err))
		return result, err
	}
	ix.table().finish(accession, StateCompleted, "")
	ix.observeSubmission(metrics.OutcomeSuccess)
	ix.logger().Info("index_one completed", zap.String("accession", accession), zap.String("task_id", status.TaskID))
	return result, nil
}

func (ix *Indexer) runIndexOne(ctx context.Context, accession string, submissionMetadata map[string]any, removeExisting, commit bool) (IndexingResult, error) {
	if removeExisting {
		if err := ix.Writer.DeleteFilesByOwner(ctx, accession); err != nil {
			return IndexingResult{}, fmt.Errorf("%w: removing existing files for %s: %v", errs.ErrIndexWrite, accession, err)
		}
		if err := ix.Writer.DeletePageTabDocuments(ctx, accession); err != nil {
			return IndexingResult{}, fmt.Errorf("%w: removing existing page-tab for %s: %v", errs.ErrIndexWrite, accession, err)
		}
	}

	fc := fileindex.NewContext()

	valueMap, collection, err := ix.runParsers(submissionMetadata, accession)
	if err != nil {
		return IndexingResult{}, err
	}

	if ix.FileIndexer != nil {
		if err := ix.FileIndexer.IndexFileLists(ctx, accession, submissionMetadata, fc); err != nil {
			return IndexingResult{}, fmt.Errorf("%w: %v", errs.ErrFileParsing, err)
		}
	}

	doc, err := ix.Builder.Build(valueMap, collection, valueMap["content"], fc)
	if err != nil {
		return IndexingResult{}, err
	}

	if err := ix.Writer.UpdateSubmission(ctx, accession, doc.Merged()); err != nil {
		return IndexingResult{}, err
	}

	if commit {
		if err := ix.Writer.CommitSubmissionAndFiles(); err != nil {
			return IndexingResult{}, err
		}
		if err := ix.Writer.RefreshAll(); err != nil {
			return IndexingResult{}, err
		}
	}

	return IndexingResult{
		ValueMap: valueMap,
		Columns:  fc.FileColumns(),
		Success:  true,
	}, nil
}

// runParsers executes the parser set (C2) over doc, first resolving the
// submission's collection from the facet.collection descriptor so the
// remaining descriptors can be selected from the right collection/public
// union (spec §4.9 step 4, spec §4.7 step 3).
func (ix *Indexer) runParsers(doc map[string]any, accession string) (map[string]string, string, error) {
	collectionDescriptor, ok := ix.Registry.Property(collectionFacetField)
	collection := ""
	if ok {
		raw, present, err := parser.Parse(doc, collectionDescriptor, accession, ix.ParserCtx)
		if err == nil && present {
			collection = primaryToken(raw)
		}
	}

	valueMap := make(map[string]string)
	var firstErr error
	for _, d := range ix.Registry.UnionFields(collection) {
		raw, present, err := parser.Parse(doc, d, accession, ix.ParserCtx)
		if err != nil {
			// A single field's parse failure does not abort the
			// submission (spec §4.9 failure semantics); a registry
			// misconfiguration surfacing from every field would, so the
			// first error is kept and returned only if nothing parsed.
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if present {
			valueMap[d.Name] = raw
		}
	}
	if len(valueMap) == 0 && firstErr != nil {
		return nil, "", firstErr
	}
	return valueMap, collection, nil
}

func primaryToken(raw string) string {
	first, _, _ := strings.Cut(raw, "|")
	return strings.TrimSpace(first)
}

// DeleteSubmission issues delete-by-primary-key to the submission index and
// delete-by-owner to the file index, then commits (spec §4.9).
func (ix *Indexer) DeleteSubmission(ctx context.Context, accession string) error {
	if err := ix.Writer.DeleteSubmissionByID(accession); err != nil {
		return err
	}
	if err := ix.Writer.DeleteFilesByOwner(ctx, accession); err != nil {
		return err
	}
	return ix.Writer.CommitAll()
}
