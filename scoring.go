// BM25F scoring: a weighted, length-normalized extension of BM25 over
// the three document fields (author, title, body).
package mir

import (
	"math"

	"github.com/goccy/go-json"
)

// GlobalInfo holds corpus-wide aggregates: field lengths summed over
// every indexed document, and the document count. Average lengths are
// derived as cumulative / num_docs rather than stored directly, so
// they never drift from the running totals.
type GlobalInfo struct {
	NumDocs                int
	CumulativeAuthorLength int
	CumulativeTitleLength  int
	CumulativeBodyLength   int
}

// AvgAuthorLength returns the corpus average author field length in tokens.
func (g GlobalInfo) AvgAuthorLength() float64 { return g.avg(g.CumulativeAuthorLength) }

// AvgTitleLength returns the corpus average title field length in tokens.
func (g GlobalInfo) AvgTitleLength() float64 { return g.avg(g.CumulativeTitleLength) }

// AvgBodyLength returns the corpus average body field length in tokens.
func (g GlobalInfo) AvgBodyLength() float64 { return g.avg(g.CumulativeBodyLength) }

func (g GlobalInfo) avg(cumulative int) float64 {
	if g.NumDocs == 0 {
		return 0
	}
	return float64(cumulative) / float64(g.NumDocs)
}

// fieldLengths mirrors global_info.json's on-disk shape: cumulative
// lengths nested under "field_lengths" rather than flat top-level keys.
type fieldLengths struct {
	Author int `json:"author"`
	Title  int `json:"title"`
	Body   int `json:"body"`
}

type globalInfoJSON struct {
	FieldLengths fieldLengths `json:"field_lengths"`
	NumDocs      int          `json:"num_docs"`
}

// MarshalJSON implements the global_info.json wire shape documented for
// this store: field lengths nested under "field_lengths".
func (g GlobalInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(globalInfoJSON{
		FieldLengths: fieldLengths{
			Author: g.CumulativeAuthorLength,
			Title:  g.CumulativeTitleLength,
			Body:   g.CumulativeBodyLength,
		},
		NumDocs: g.NumDocs,
	})
}

// UnmarshalJSON implements the inverse of MarshalJSON.
func (g *GlobalInfo) UnmarshalJSON(data []byte) error {
	var wire globalInfoJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	g.NumDocs = wire.NumDocs
	g.CumulativeAuthorLength = wire.FieldLengths.Author
	g.CumulativeTitleLength = wire.FieldLengths.Title
	g.CumulativeBodyLength = wire.FieldLengths.Body
	return nil
}

func (g GlobalInfo) avgFor(field TokenLocation) float64 {
	switch field {
	case TokenAuthor:
		return g.AvgAuthorLength()
	case TokenTitle:
		return g.AvgTitleLength()
	case TokenBody:
		return g.AvgBodyLength()
	default:
		return 0
	}
}

// Scorer scores one candidate document against a query's terms, given
// the gathered postings for that document and the corpus's global
// aggregates. Implementations form the stages of a retrieval cascade.
type Scorer interface {
	Score(doc DocumentInfo, postings []Posting, query []Term, global GlobalInfo) float64
}

// BatchScorer is an optional capability: scorers that can amortize
// per-call setup across a batch of candidates should implement it: the
// engine prefers it over repeated single-document Score calls within a
// cascade stage.
type BatchScorer interface {
	Scorer
	ScoreBatch(docs []DocumentInfo, postings [][]Posting, query []Term, global GlobalInfo) []float64
}

// fieldWeights holds BM25F's per-field weighting.
type fieldWeights struct {
	Author float64
	Title  float64
	Body   float64
}

func (w fieldWeights) forField(field TokenLocation) float64 {
	switch field {
	case TokenAuthor:
		return w.Author
	case TokenTitle:
		return w.Title
	case TokenBody:
		return w.Body
	default:
		return 0
	}
}

// BM25FScorer implements the weighted, length-normalized BM25F variant
// described for this engine: idf is taken verbatim as
// log(posting_list_len / N), which is negative for every term appearing
// in fewer than N documents and zero for a term appearing in all N.
// This is reproduced exactly rather than
// corrected, matching the reference scoring function.
type BM25FScorer struct {
	K1      float64
	B       float64
	Weights fieldWeights
}

// NewBM25FScorer returns a scorer with the default parameters: k1=1.5,
// b=0.75, field weights title=2.0, body=1.0, author=0.5.
func NewBM25FScorer() *BM25FScorer {
	return &BM25FScorer{
		K1: 1.5,
		B:  0.75,
		Weights: fieldWeights{
			Author: 0.5,
			Title:  2.0,
			Body:   1.0,
		},
	}
}

// Score implements Scorer.
func (s *BM25FScorer) Score(doc DocumentInfo, postings []Posting, query []Term, global GlobalInfo) float64 {
	byTermID := make(map[int][]Posting, len(postings))
	for _, p := range postings {
		byTermID[p.TermID] = append(byTermID[p.TermID], p)
	}

	var score float64
	for _, term := range query {
		termPostings, ok := byTermID[term.ID]
		if !ok {
			continue
		}
		score += s.rsv(term, doc, termPostings, global)
	}
	return roundTo4(score)
}

// ScoreBatch implements BatchScorer by calling Score once per document;
// no per-term work is shared across the batch.
func (s *BM25FScorer) ScoreBatch(docs []DocumentInfo, postings [][]Posting, query []Term, global GlobalInfo) []float64 {
	scores := make([]float64, len(docs))
	for i, doc := range docs {
		scores[i] = s.Score(doc, postings[i], query, global)
	}
	return scores
}

func (s *BM25FScorer) rsv(term Term, doc DocumentInfo, termPostings []Posting, global GlobalInfo) float64 {
	wtf := s.wtf(term, doc, termPostings, global)
	if wtf <= 0 {
		return 0
	}
	idf := math.Log(float64(term.PostingListLen) / float64(global.NumDocs))
	return (wtf / (s.K1 + wtf)) * idf
}

func (s *BM25FScorer) wtf(term Term, doc DocumentInfo, termPostings []Posting, global GlobalInfo) float64 {
	var posting Posting
	found := false
	for _, p := range termPostings {
		if p.DocID == doc.ID {
			posting = p
			found = true
			break
		}
	}
	if !found {
		return 0
	}

	var tfd float64
	lengths := doc.Lengths()
	fields := [...]TokenLocation{TokenAuthor, TokenTitle, TokenBody}
	for i, field := range fields {
		weight := s.Weights.forField(field)
		if weight == 0 {
			continue
		}
		avg := global.avgFor(field)
		if avg == 0 {
			continue
		}
		bf := (1 - s.B) + s.B*float64(lengths[i])/avg
		tf := float64(posting.Count(field))
		tfd += weight * tf / bf
	}
	return tfd
}

func roundTo4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
