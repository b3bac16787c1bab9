// Package fileindex implements components C5 (file-document factory) and
// C6 (file-list indexer): building one document per file entry and driving
// the concurrent fetch/batch/write pipeline that populates the file index.
package fileindex

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Context is the per-submission mutable workspace described in spec §3.1
// as FileIndexingContext: an atomic position counter plus a handful of
// concurrent-safe sets accumulated by file workers and consumed once, at
// the end of indexOne, to finalize the submission document. It is created
// fresh for every call to the submission indexer (C9) and discarded after.
type Context struct {
	fileCounter atomic.Int64

	mu                     sync.Mutex
	fileColumns            map[string]bool
	sectionsWithFiles      map[string]bool
	searchableFileMetadata map[string]bool

	hasIndexingError atomic.Bool
}

// NewContext returns an empty Context ready for use by one indexOne call.
func NewContext() *Context {
	return &Context{
		fileColumns:            make(map[string]bool),
		sectionsWithFiles:      make(map[string]bool),
		searchableFileMetadata: make(map[string]bool),
	}
}

// NextPosition assigns the next zero-based, densely-packed position to a
// file, matching fileCounter.fetch_add(1) semantics (spec §4.6 step 5):
// the value returned is the position to use; the counter is then ready to
// hand out the next one.
func (c *Context) NextPosition() int64 {
	return c.fileCounter.Add(1) - 1
}

// FileCount returns the number of positions handed out so far.
func (c *Context) FileCount() int64 {
	return c.fileCounter.Load()
}

func (c *Context) addFileColumn(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fileColumns[name] = true
}

func (c *Context) addSectionWithFiles(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sectionsWithFiles[name] = true
}

func (c *Context) addSearchableMetadata(token string) {
	if token == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchableFileMetadata[token] = true
}

func (c *Context) markSectionField() {
	c.addFileColumn("SECTION")
}

// SetIndexingError records that at least one file or manifest in this
// submission could not be processed (spec §4.6 step 4, §4.9 step 5's
// has_file_parsing_error).
func (c *Context) SetIndexingError() {
	c.hasIndexingError.Store(true)
}

// HasIndexingError reports whether SetIndexingError has been called.
func (c *Context) HasIndexingError() bool {
	return c.hasIndexingError.Load()
}

// FileColumns returns the sorted set of attribute names discovered across
// every file in this submission.
func (c *Context) FileColumns() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedKeys(c.fileColumns)
}

// SectionsWithFiles returns the sorted set of section fileNames that had
// at least one manifest.
func (c *Context) SectionsWithFiles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedKeys(c.sectionsWithFiles)
}

// SearchableFileMetadata returns the sorted set of attribute name/value
// tokens to be embedded in the submission document for full-text search.
func (c *Context) SearchableFileMetadata() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedKeys(c.searchableFileMetadata)
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
