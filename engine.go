// Retrieval engine: tokenizes a query, performs document-at-a-time
// merging across posting lists, pushes candidates into a bounded
// priority queue, then runs surviving candidates through a cascade of
// additional scorers.
package mir

import "sort"

// Stage is one step of the retrieval cascade: scorer is applied to the
// top-K candidates (K = TopK) surviving the previous stage.
type Stage struct {
	TopK   int
	Scorer Scorer
}

// Engine runs queries against an Index.
type Engine struct {
	Index     *Index
	Tokenizer Tokenizer
	Stages    []Stage
}

// NewEngine returns an Engine with a single BM25F stage of size topK.
func NewEngine(idx *Index, tokenizer Tokenizer, topK int) *Engine {
	return &Engine{
		Index:     idx,
		Tokenizer: tokenizer,
		Stages:    []Stage{{TopK: topK, Scorer: NewBM25FScorer()}},
	}
}

// Result is one ranked candidate returned by Search.
type Result struct {
	DocID int
	Score float64
	Doc   DocumentContents
}

// postingCursor walks one term's PostingList in ascending doc_id order.
type postingCursor struct {
	docIDs []int
	pos    int
	pl     *PostingList
}

func (c *postingCursor) peek() (int, bool) {
	if c.pos >= len(c.docIDs) {
		return 0, false
	}
	return c.docIDs[c.pos], true
}

func (c *postingCursor) advance() (Posting, bool) {
	docID, ok := c.peek()
	if !ok {
		return Posting{}, false
	}
	c.pos++
	p, _ := c.pl.Get(docID)
	return p, true
}

// Search tokenizes query, runs the DAAT merge through stage 1, then
// runs the cascade, returning final candidates in descending-score order.
func (e *Engine) Search(query string) ([]Result, error) {
	if len(e.Stages) == 0 {
		return nil, nil
	}

	queryTokens := e.Tokenizer.TokenizeQuery(query)
	var terms []Term
	var cursors []*postingCursor
	for _, tok := range queryTokens {
		termID, ok, err := e.Index.GetTermID(tok.Text)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		term, err := e.Index.GetTerm(termID)
		if err != nil {
			return nil, err
		}
		pl, err := e.Index.GetPostings(termID)
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
		cursors = append(cursors, &postingCursor{docIDs: pl.DocIDs(), pl: pl})
	}

	global := e.Index.GetGlobalInfo()
	pq := NewPriorityQueue(e.Stages[0].TopK)
	cache := make(map[int][]Posting)

	for {
		lowest, any := minPeek(cursors)
		if !any {
			break
		}
		var gathered []Posting
		for _, c := range cursors {
			if docID, ok := c.peek(); ok && docID == lowest {
				p, _ := c.advance()
				gathered = append(gathered, p)
			}
		}

		doc, err := e.Index.GetDocumentInfo(lowest)
		if err != nil {
			return nil, err
		}
		score := e.Stages[0].Scorer.Score(doc, gathered, terms, global)

		cache[lowest] = gathered
		evictedID, evicted := pq.Push(lowest, score)
		if evicted {
			delete(cache, evictedID)
		}
	}

	pq.Finalise()
	candidates := pq.Iterate()

	scores := make(map[int]float64, len(candidates))
	order := make([]int, len(candidates))
	for i, item := range candidates {
		scores[item.docID] = item.score
		order[i] = item.docID
	}

	for _, stage := range e.Stages[1:] {
		if len(order) > stage.TopK {
			order = order[:stage.TopK]
		}
		next, err := e.runCascadeStage(stage, order, scores, cache, terms, global)
		if err != nil {
			return nil, err
		}
		order = next
	}

	return e.materialize(order, scores)
}

// runCascadeStage rescores candidates with stage.Scorer, additively
// combining with the prior score, then truncates and re-sorts.
func (e *Engine) runCascadeStage(stage Stage, order []int, scores map[int]float64, cache map[int][]Posting, terms []Term, global GlobalInfo) ([]int, error) {
	type scored struct {
		docID int
		score float64
	}
	results := make([]scored, 0, len(order))

	if batched, ok := stage.Scorer.(BatchScorer); ok {
		docs := make([]DocumentInfo, len(order))
		postings := make([][]Posting, len(order))
		for i, docID := range order {
			doc, err := e.Index.GetDocumentInfo(docID)
			if err != nil {
				return nil, err
			}
			docs[i] = doc
			postings[i] = cache[docID]
		}
		batch := batched.ScoreBatch(docs, postings, terms, global)
		for i, docID := range order {
			results = append(results, scored{docID: docID, score: scores[docID] + batch[i]})
		}
	} else {
		for _, docID := range order {
			doc, err := e.Index.GetDocumentInfo(docID)
			if err != nil {
				return nil, err
			}
			s := stage.Scorer.Score(doc, cache[docID], terms, global)
			results = append(results, scored{docID: docID, score: scores[docID] + s})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].docID > results[j].docID
	})
	if len(results) > stage.TopK {
		results = results[:stage.TopK]
	}

	newOrder := make([]int, len(results))
	for i, r := range results {
		newOrder[i] = r.docID
		scores[r.docID] = r.score
	}
	return newOrder, nil
}

func (e *Engine) materialize(order []int, scores map[int]float64) ([]Result, error) {
	out := make([]Result, 0, len(order))
	for _, docID := range order {
		contents, err := e.Index.GetDocumentContents(docID)
		if err != nil {
			return nil, err
		}
		out = append(out, Result{DocID: docID, Score: scores[docID], Doc: contents})
	}
	return out, nil
}

// minPeek returns the minimum unconsumed doc_id across every cursor
// with remaining postings.
func minPeek(cursors []*postingCursor) (int, bool) {
	min := 0
	found := false
	for _, c := range cursors {
		docID, ok := c.peek()
		if !ok {
			continue
		}
		if !found || docID < min {
			min = docID
			found = true
		}
	}
	return min, found
}
