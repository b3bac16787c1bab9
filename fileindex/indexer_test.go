package fileindex

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/biohub/subindex/external"
)

// recordingWriter captures every UpdateFile call so tests can assert on
// position density and uniqueness without a real bleve index.
type recordingWriter struct {
	mu   sync.Mutex
	docs map[string]map[string]any
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{docs: make(map[string]map[string]any)}
}

func (w *recordingWriter) UpdateFile(_ context.Context, id string, doc map[string]any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.docs[id] = doc
	return nil
}

func manifestSubmission(sections map[string]int) map[string]any {
	var sectionList []any
	for fileName, count := range sections {
		files := make([]any, count)
		for i := range files {
			files[i] = map[string]any{"fileName": "f.txt"}
		}
		sectionList = append(sectionList, map[string]any{
			"accNo": fileName,
			"type":  "subsection",
			"fileList": map[string]any{
				"fileName": fileName,
				"filesUrl": "https://files.example/" + fileName,
			},
		})
	}
	return map[string]any{
		"accNo":    "S-TEST1",
		"type":     "study",
		"sections": sectionList,
	}
}

// TestS1FilePositionsUnderContention reproduces spec scenario S1: three
// manifests totaling 17 files indexed through the bounded concurrent
// pipeline must yield exactly positions {0..16} with no gaps or
// duplicates.
func TestS1FilePositionsUnderContention(t *testing.T) {
	manifestSizes := map[string]int{"m1": 5, "m2": 6, "m3": 6} // 17 total
	submission := manifestSubmission(manifestSizes)

	fetcher := external.FakeManifestFetcher{}
	for name, count := range manifestSizes {
		files := make([]external.ManifestEntry, count)
		for i := range files {
			files[i] = external.ManifestEntry{FileName: "f.txt"}
		}
		fetcher["https://files.example/"+name] = external.ManifestResponse{OK: true, Files: files}
	}

	writer := newRecordingWriter()
	ix := &Indexer{Fetcher: fetcher, Writer: writer, Concurrency: 5}
	fc := NewContext()

	if err := ix.IndexFileLists(context.Background(), "S-TEST1", submission, fc); err != nil {
		t.Fatalf("IndexFileLists: %v", err)
	}

	if got := fc.FileCount(); got != 17 {
		t.Fatalf("fileCounter = %d, want 17", got)
	}
	writer.mu.Lock()
	defer writer.mu.Unlock()
	if len(writer.docs) != 17 {
		t.Fatalf("wrote %d documents, want 17", len(writer.docs))
	}

	var positions []int
	for _, doc := range writer.docs {
		owner, _ := doc["owner"].(string)
		if owner != "S-TEST1" {
			t.Fatalf("unexpected owner %q", owner)
		}
		positions = append(positions, int(doc["position"].(int64)))
	}
	sort.Ints(positions)
	for i, p := range positions {
		if p != i {
			t.Fatalf("positions not dense: got %v", positions)
		}
	}
}

func TestIndexFileListsMarksErrorOnMissingFilesArray(t *testing.T) {
	submission := manifestSubmission(map[string]int{"m1": 0})
	fetcher := external.FakeManifestFetcher{
		"https://files.example/m1": {OK: false},
	}
	writer := newRecordingWriter()
	ix := &Indexer{Fetcher: fetcher, Writer: writer}
	fc := NewContext()

	if err := ix.IndexFileLists(context.Background(), "S-TEST1", submission, fc); err != nil {
		t.Fatalf("IndexFileLists: %v", err)
	}
	if !fc.HasIndexingError() {
		t.Fatal("expected hasIndexingError to be set")
	}
}

func TestFindManifestsWalksNestedSections(t *testing.T) {
	submission := map[string]any{
		"accNo": "S-TEST1",
		"type":  "study",
		"section": map[string]any{
			"accNo": "SUBSEC-1",
			"type":  "subsection",
			"sections": []any{
				map[string]any{
					"accNo": "SUBSEC-2",
					"type":  "subsection",
					"fileList": map[string]any{
						"fileName": "nested.txt",
						"filesUrl": "https://files.example/nested",
					},
				},
			},
		},
	}
	manifests := findManifests(submission)
	if len(manifests) != 1 {
		t.Fatalf("expected 1 manifest, got %d", len(manifests))
	}
	if manifests[0].Parent.AccNo != "SUBSEC-2" {
		t.Fatalf("expected parent SUBSEC-2, got %v", manifests[0].Parent)
	}
}
