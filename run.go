// Run-table construction: flattens search results for a batch of
// queries into the two result-table shapes used for retrieval
// evaluation tooling (e.g. trec_eval-style run files).
package mir

// nativeRunID is the run identifier stamped into every native-shape row.
const nativeRunID = "MIR"

// NativeRunRow is one row of the native run shape: (query_id, Q0,
// doc_id, rank, score, run_id), rank 1-based.
type NativeRunRow struct {
	QueryID int
	Q0      string
	DocID   int
	Rank    int
	Score   float64
	RunID   string
}

// AlternativeRunRow is one row of the alternative run shape: (qid,
// docid, docno, rank, score, query), rank 0-based.
type AlternativeRunRow struct {
	QID   int
	DocID int
	DocNo string
	Rank  int
	Score float64
	Query string
}

// BuildNativeRun runs every query in queries (keyed by an arbitrary
// caller-assigned query_id) through engine, keeping at most topK
// results per query, and returns the flattened native-shape rows.
func BuildNativeRun(engine *Engine, queries map[int]string, topK int) ([]NativeRunRow, error) {
	var rows []NativeRunRow
	for queryID, query := range queries {
		results, err := engine.Search(query)
		if err != nil {
			return nil, err
		}
		for i, r := range results {
			rank := i + 1
			if topK > 0 && rank > topK {
				break
			}
			rows = append(rows, NativeRunRow{
				QueryID: queryID,
				Q0:      "Q0",
				DocID:   r.DocID,
				Rank:    rank,
				Score:   r.Score,
				RunID:   nativeRunID,
			})
		}
	}
	return rows, nil
}

// BuildAlternativeRun is BuildNativeRun's counterpart producing the
// 0-based-rank alternative shape, with the raw query text carried
// through each row instead of a run identifier.
func BuildAlternativeRun(engine *Engine, queries map[int]string, topK int) ([]AlternativeRunRow, error) {
	var rows []AlternativeRunRow
	for qid, query := range queries {
		results, err := engine.Search(query)
		if err != nil {
			return nil, err
		}
		for i, r := range results {
			if topK > 0 && i >= topK {
				break
			}
			rows = append(rows, AlternativeRunRow{
				QID:   qid,
				DocID: r.DocID,
				DocNo: r.Doc.Title,
				Rank:  i,
				Score: r.Score,
				Query: query,
			})
		}
	}
	return rows, nil
}
