package mir

import (
	"path/filepath"
	"testing"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	dir := t.TempDir()
	idx, err := Open(filepath.Join(dir, "index"), Config{BlockSize: 64, HashBuckets: 16, CacheSize: 4})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return idx
}

func TestIndexDocumentBasics(t *testing.T) {
	idx := newTestIndex(t)
	tok := WhitespaceTokenizer{}

	doc := DocumentContents{Author: "Ada Lovelace", Title: "Notes", Body: "the analytical engine computes"}
	if err := idx.IndexDocument(doc, tok, -1); err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}

	if idx.Len() != 1 {
		t.Fatalf("Len = %d, want 1", idx.Len())
	}

	info, err := idx.GetDocumentInfo(0)
	if err != nil {
		t.Fatalf("GetDocumentInfo: %v", err)
	}
	if info.AuthorLen != 2 || info.TitleLen != 1 || info.BodyLen != 4 {
		t.Fatalf("DocumentInfo = %+v", info)
	}

	contents, err := idx.GetDocumentContents(0)
	if err != nil {
		t.Fatalf("GetDocumentContents: %v", err)
	}
	if contents != doc {
		t.Fatalf("GetDocumentContents = %+v, want %+v", contents, doc)
	}

	termID, ok, err := idx.GetTermID("engine")
	if err != nil || !ok {
		t.Fatalf("GetTermID(engine): ok=%v err=%v", ok, err)
	}
	pl, err := idx.GetPostings(termID)
	if err != nil {
		t.Fatalf("GetPostings: %v", err)
	}
	posting, found := pl.Get(0)
	if !found || posting.BodyCount != 1 {
		t.Fatalf("posting = %+v, found=%v", posting, found)
	}
}

func TestIndexDocumentGlobalAggregates(t *testing.T) {
	idx := newTestIndex(t)
	tok := WhitespaceTokenizer{}

	docs := []DocumentContents{
		{Author: "a", Title: "t", Body: "one two"},
		{Author: "b c", Title: "t t", Body: "three four five"},
	}
	if err := idx.BulkIndexDocuments(docs, tok); err != nil {
		t.Fatalf("BulkIndexDocuments: %v", err)
	}

	global := idx.GetGlobalInfo()
	if global.NumDocs != 2 {
		t.Fatalf("NumDocs = %d, want 2", global.NumDocs)
	}
	if global.CumulativeBodyLength != 5 {
		t.Fatalf("CumulativeBodyLength = %d, want 5", global.CumulativeBodyLength)
	}
	if got := global.AvgBodyLength(); got != 2.5 {
		t.Fatalf("AvgBodyLength() = %v, want 2.5", got)
	}
}

// TestIndexDocumentIdempotentReingest matches spec.md's reingestion
// policy: external doc_id < next is skipped, == next is accepted.
func TestIndexDocumentIdempotentReingest(t *testing.T) {
	idx := newTestIndex(t)
	tok := WhitespaceTokenizer{}
	doc := DocumentContents{Body: "hello"}

	if err := idx.IndexDocument(doc, tok, 0); err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}
	if idx.Len() != 1 {
		t.Fatalf("Len = %d, want 1", idx.Len())
	}

	// Re-ingesting doc_id 0 (< next=1) must be a silent no-op.
	if err := idx.IndexDocument(doc, tok, 0); err != nil {
		t.Fatalf("IndexDocument (reingest): %v", err)
	}
	if idx.Len() != 1 {
		t.Fatalf("Len after reingest = %d, want 1", idx.Len())
	}

	// doc_id == next is accepted.
	if err := idx.IndexDocument(doc, tok, 1); err != nil {
		t.Fatalf("IndexDocument (next): %v", err)
	}
	if idx.Len() != 2 {
		t.Fatalf("Len after accepting next id = %d, want 2", idx.Len())
	}
}

func TestIndexPersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	cfg := Config{BlockSize: 64, HashBuckets: 16, CacheSize: 4}
	tok := WhitespaceTokenizer{}

	idx, err := Open(dir, cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := idx.IndexDocument(DocumentContents{Body: "persisted words"}, tok, -1); err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(dir, cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Len() != 1 {
		t.Fatalf("Len after reopen = %d, want 1", reopened.Len())
	}
	contents, err := reopened.GetDocumentContents(0)
	if err != nil || contents.Body != "persisted words" {
		t.Fatalf("GetDocumentContents after reopen = %+v, %v", contents, err)
	}

	// The term lookup (a FileHMap) must survive reopen too: a stale
	// bloom filter would report "persisted" as absent here, and a
	// subsequent IndexDocument would then allocate a duplicate term_id
	// for it, corrupting the lexicon.
	termID, ok, err := reopened.GetTermID("persisted")
	if err != nil || !ok {
		t.Fatalf("GetTermID(persisted) after reopen: ok=%v err=%v", ok, err)
	}

	if err := reopened.IndexDocument(DocumentContents{Body: "persisted again"}, tok, -1); err != nil {
		t.Fatalf("IndexDocument after reopen: %v", err)
	}
	sameTermID, ok, err := reopened.GetTermID("persisted")
	if err != nil || !ok {
		t.Fatalf("GetTermID(persisted) after reindex: ok=%v err=%v", ok, err)
	}
	if sameTermID != termID {
		t.Fatalf("GetTermID(persisted) = %d after reindex, want unchanged %d (duplicate term_id)", sameTermID, termID)
	}
}
