package mir

import "testing"

// TestEngineSearchGathersMultiTermCandidateFromBothPostings matches the
// end-to-end DAAT scenario: three documents, one query hitting two of
// them on different terms and one on both. d2 must be visited once
// with contributions gathered from both terms' postings, so its score
// is the sum of both terms' individual contributions.
//
// Under the mandated verbatim idf (log(posting_list_len/N), negative
// for any term with df<N — see scoring.go), both query terms have
// df=2 here, so each contributes a negative score; d2 accumulates two
// such contributions and so is *more* negative (ranks below, not
// above, the single-term matches d0/d1). This is the faithful
// consequence of the formula, not a bug: see scoring_test.go's
// TestBM25FScorerVerbatimNegativeIDF.
func TestEngineSearchGathersMultiTermCandidateFromBothPostings(t *testing.T) {
	idx := newTestIndex(t)
	tok := WhitespaceTokenizer{}

	docs := []DocumentContents{
		{Author: "a1", Title: "t1", Body: "token1 token2 token3"},
		{Author: "a2", Title: "t2", Body: "token4 token5 token6"},
		{Author: "a3", Title: "t3", Body: "token2 token4 token6"},
	}
	if err := idx.BulkIndexDocuments(docs, tok); err != nil {
		t.Fatalf("BulkIndexDocuments: %v", err)
	}

	engine := NewEngine(idx, tok, 10)
	results, err := engine.Search("token2 token4")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	found := make(map[int]float64, len(results))
	for _, r := range results {
		found[r.DocID] = r.Score
	}
	if _, ok := found[0]; !ok {
		t.Fatalf("expected d0 among results: %+v", results)
	}
	if _, ok := found[1]; !ok {
		t.Fatalf("expected d1 among results: %+v", results)
	}
	if _, ok := found[2]; !ok {
		t.Fatalf("expected d2 among results: %+v", results)
	}

	// d2's score is the sum of the two single-term contributions (the
	// symmetric query/corpus here makes d0's and d1's single-term
	// contributions equal), so it must be roughly double either one —
	// and, since both contributions are negative, that sum ranks last.
	if found[2] >= found[0] || found[2] >= found[1] {
		t.Fatalf("expected d2 (two negative contributions) to score lower than d0/d1 (one each): found=%v", found)
	}
	if len(results) == 0 || results[len(results)-1].DocID != 2 {
		t.Fatalf("expected d2 to rank last under verbatim negative idf, got %+v", results)
	}
}

func TestEngineSearchDropsUnknownTerms(t *testing.T) {
	idx := newTestIndex(t)
	tok := WhitespaceTokenizer{}
	if err := idx.IndexDocument(DocumentContents{Body: "hello world"}, tok, -1); err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}

	engine := NewEngine(idx, tok, 10)
	results, err := engine.Search("hello nonexistentterm")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].DocID != 0 {
		t.Fatalf("results = %+v, want exactly doc 0", results)
	}
}

func TestEngineSearchEmptyIndex(t *testing.T) {
	idx := newTestIndex(t)
	tok := WhitespaceTokenizer{}
	engine := NewEngine(idx, tok, 10)
	results, err := engine.Search("anything")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("results = %+v, want none", results)
	}
}

// constScorer returns a fixed score regardless of input, used to verify
// cascade additivity and order preservation.
type constScorer struct{ value float64 }

func (c constScorer) Score(doc DocumentInfo, postings []Posting, query []Term, global GlobalInfo) float64 {
	return c.value
}

// TestEngineCascadeIsAdditiveAndOrderPreserving matches the cascade
// monotonicity scenario: stage 2 applied to stage 1's survivors must
// produce final scores equal to stage1_score + stage2_score, and must
// preserve stage 1's relative order when stage 2 returns a constant.
func TestEngineCascadeIsAdditiveAndOrderPreserving(t *testing.T) {
	idx := newTestIndex(t)
	tok := WhitespaceTokenizer{}

	docs := []DocumentContents{
		{Body: "alpha beta"},
		{Body: "alpha beta gamma"},
		{Body: "alpha"},
		{Body: "alpha beta gamma delta"},
	}
	if err := idx.BulkIndexDocuments(docs, tok); err != nil {
		t.Fatalf("BulkIndexDocuments: %v", err)
	}

	plainEngine := NewEngine(idx, tok, 100)
	stage1Results, err := plainEngine.Search("alpha beta gamma")
	if err != nil {
		t.Fatalf("Search (stage1 only): %v", err)
	}
	stage1Score := make(map[int]float64, len(stage1Results))
	var stage1Order []int
	for _, r := range stage1Results {
		stage1Score[r.DocID] = r.Score
		stage1Order = append(stage1Order, r.DocID)
	}

	cascaded := &Engine{
		Index:     idx,
		Tokenizer: tok,
		Stages: []Stage{
			{TopK: 100, Scorer: NewBM25FScorer()},
			{TopK: 10, Scorer: constScorer{value: 2.5}},
		},
	}
	finalResults, err := cascaded.Search("alpha beta gamma")
	if err != nil {
		t.Fatalf("Search (cascaded): %v", err)
	}
	if len(finalResults) != 10 && len(finalResults) != len(stage1Order) {
		t.Fatalf("expected truncation to stage2 TopK, got %d results", len(finalResults))
	}

	var finalOrder []int
	for _, r := range finalResults {
		finalOrder = append(finalOrder, r.DocID)
		want := stage1Score[r.DocID] + 2.5
		if r.Score != want {
			t.Fatalf("doc %d final score = %v, want stage1(%v)+2.5 = %v", r.DocID, r.Score, stage1Score[r.DocID], want)
		}
	}

	limit := len(finalOrder)
	if len(stage1Order) < limit {
		limit = len(stage1Order)
	}
	for i := 0; i < limit; i++ {
		if finalOrder[i] != stage1Order[i] {
			t.Fatalf("cascade with constant stage2 score must preserve stage1 order: got %v, want prefix of %v", finalOrder, stage1Order)
		}
	}
}
