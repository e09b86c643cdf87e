// Index composes the storage substrate into the inverted index plus
// its forward stores and lexicon: postings keyed by term_id, terms
// keyed by term_id, a string→term_id lookup, document info and
// contents keyed by doc_id, and the corpus-wide global aggregates.
//
// Ownership follows the reference implementation: Index exclusively
// owns the underlying stores; stores exclusively own their files;
// caches share a reference to the backing store and must be flushed
// before the Index is closed.
package mir

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
)

const globalInfoFile = "global_info.json"

// Index is the full persistent inverted index for one corpus.
type Index struct {
	dir string

	mu sync.Mutex

	postings    *CachedList[*PostingList]
	terms       *CachedList[Term]
	termLookup  *CachedHMap[int]
	docInfo     *CachedList[DocumentInfo]
	docContents *CachedList[DocumentContents]

	global  GlobalInfo
	nextDoc int
}

var termIDCodec = HMapCodec[int]{
	Encode: func(id int) []byte {
		return []byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}
	},
	Decode: func(data []byte, _ string) (int, error) {
		if len(data) != 4 {
			return 0, ErrCorruptChain
		}
		return int(data[0])<<24 | int(data[1])<<16 | int(data[2])<<8 | int(data[3]), nil
	},
}

// Open opens or creates an Index rooted at dir, using cfg for block
// size, bucket count, and cache capacity (zero fields take their
// documented defaults).
func Open(dir string, cfg Config) (*Index, error) {
	cfg = cfg.withDefaults()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	postingsList, err := NewFileList(filepath.Join(dir, "postings.idx"), filepath.Join(dir, "postings.data"), cfg.BlockSize)
	if err != nil {
		return nil, err
	}
	termsList, err := NewFileList(filepath.Join(dir, "terms.idx"), filepath.Join(dir, "terms.data"), cfg.BlockSize)
	if err != nil {
		return nil, err
	}
	termLookupMap, err := NewFileHMap(filepath.Join(dir, "term_lookup.idx"), filepath.Join(dir, "term_lookup.data"), cfg.BlockSize, cfg.HashBuckets)
	if err != nil {
		return nil, err
	}
	docInfoList, err := NewFileList(filepath.Join(dir, "doc_info.idx"), filepath.Join(dir, "doc_info.data"), cfg.BlockSize)
	if err != nil {
		return nil, err
	}
	docContentsList, err := NewFileList(filepath.Join(dir, "doc_contents.idx"), filepath.Join(dir, "doc_contents.data"), cfg.BlockSize)
	if err != nil {
		return nil, err
	}

	postings, err := NewCachedList(postingsList, cfg.CacheSize, PostingListCodec)
	if err != nil {
		return nil, err
	}
	terms, err := NewCachedList(termsList, cfg.CacheSize, TermCodec)
	if err != nil {
		return nil, err
	}
	docInfo, err := NewCachedList(docInfoList, cfg.CacheSize, DocumentInfoCodec)
	if err != nil {
		return nil, err
	}
	docContents, err := NewCachedList(docContentsList, cfg.CacheSize, DocumentContentsCodec)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		dir:         dir,
		postings:    postings,
		terms:       terms,
		termLookup:  NewCachedHMap(termLookupMap, cfg.CacheSize, termIDCodec),
		docInfo:     docInfo,
		docContents: docContents,
		nextDoc:     docInfo.NextKey(),
	}
	if err := idx.loadGlobalInfo(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *Index) loadGlobalInfo() error {
	path := filepath.Join(idx.dir, globalInfoFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		idx.global = GlobalInfo{}
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &idx.global)
}

// Save flushes every cache and persists global_info.json. Callers must
// call Save (there is no finalizer-driven flush, unlike the reference
// implementation's __del__).
func (idx *Index) Save() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.save()
}

func (idx *Index) save() error {
	if err := idx.postings.Flush(); err != nil {
		return err
	}
	if err := idx.terms.Flush(); err != nil {
		return err
	}
	if err := idx.termLookup.Flush(); err != nil {
		return err
	}
	if err := idx.docInfo.Flush(); err != nil {
		return err
	}
	if err := idx.docContents.Flush(); err != nil {
		return err
	}
	data, err := json.Marshal(idx.global)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(idx.dir, globalInfoFile), data, 0o644)
}

// Close flushes the index. The Index must not be used afterward.
func (idx *Index) Close() error {
	return idx.Save()
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.nextDoc
}

// GetGlobalInfo returns the corpus-wide aggregates.
func (idx *Index) GetGlobalInfo() GlobalInfo {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.global
}

// GetDocumentInfo returns the DocumentInfo for docID.
func (idx *Index) GetDocumentInfo(docID int) (DocumentInfo, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.docInfo.Get(docID)
}

// GetDocumentContents returns the DocumentContents for docID.
func (idx *Index) GetDocumentContents(docID int) (DocumentContents, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.docContents.Get(docID)
}

// GetTermID returns the dense term id for text, if the term has ever
// been indexed.
func (idx *Index) GetTermID(text string) (int, bool, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.termLookup.Get(text)
}

// GetTerm returns the Term for termID, with PostingListLen populated
// from the live posting list length.
func (idx *Index) GetTerm(termID int) (Term, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.getTerm(termID)
}

func (idx *Index) getTerm(termID int) (Term, error) {
	term, err := idx.terms.Get(termID)
	if err != nil {
		return Term{}, err
	}
	pl, err := idx.postings.Get(termID)
	if err == nil {
		term.PostingListLen = pl.Len()
	}
	return term, nil
}

// GetPostings returns the PostingList for termID.
func (idx *Index) GetPostings(termID int) (*PostingList, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.postings.Get(termID)
}

// resolveTerm returns the term_id for text, allocating a new dense id
// (and an empty PostingList) if text has never been seen.
func (idx *Index) resolveTerm(text string) (int, error) {
	if id, ok, err := idx.termLookup.Get(text); err != nil {
		return 0, err
	} else if ok {
		return id, nil
	}

	id := idx.terms.NextKey()
	if err := idx.terms.Set(id, Term{Text: text, ID: id}); err != nil {
		return 0, err
	}
	if err := idx.postings.Set(id, NewPostingList()); err != nil {
		return 0, err
	}
	if err := idx.termLookup.Set(text, id); err != nil {
		return 0, err
	}
	return id, nil
}

// IndexDocument tokenizes doc with tokenizer and folds it into the
// index. externalDocID, if non-negative, is checked against the next
// allocated id per the reindexing idempotence policy: less than next
// is silently skipped, equal to next is accepted, anything else falls
// back to dense monotonic assignment.
func (idx *Index) IndexDocument(doc DocumentContents, tokenizer Tokenizer, externalDocID int) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.indexDocument(doc, tokenizer, externalDocID)
}

func (idx *Index) indexDocument(doc DocumentContents, tokenizer Tokenizer, externalDocID int) error {
	if externalDocID >= 0 && externalDocID < idx.nextDoc {
		return nil
	}

	docID := idx.nextDoc
	tokens := tokenizer.TokenizeDocument(doc)
	for _, tok := range tokens {
		if tok.Where != TokenAuthor && tok.Where != TokenTitle && tok.Where != TokenBody {
			return ErrInvalidLocation
		}
	}
	info := NewDocumentInfoFromTokens(docID, tokens)

	if err := idx.docContents.Set(docID, doc); err != nil {
		return err
	}
	if err := idx.docInfo.Set(docID, info); err != nil {
		return err
	}

	counts := make(map[int]map[TokenLocation]int)
	order := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		termID, err := idx.resolveTerm(tok.Text)
		if err != nil {
			return err
		}
		if _, ok := counts[termID]; !ok {
			counts[termID] = make(map[TokenLocation]int)
			order = append(order, termID)
		}
		counts[termID][tok.Where]++
	}

	for _, termID := range order {
		pl, err := idx.postings.Get(termID)
		if err != nil {
			return err
		}
		fields := counts[termID]
		pl.Set(docID, Posting{
			DocID:       docID,
			TermID:      termID,
			AuthorCount: fields[TokenAuthor],
			TitleCount:  fields[TokenTitle],
			BodyCount:   fields[TokenBody],
		})
		if err := idx.postings.Set(termID, pl); err != nil {
			return err
		}
	}

	idx.global.NumDocs++
	idx.global.CumulativeAuthorLength += info.AuthorLen
	idx.global.CumulativeTitleLength += info.TitleLen
	idx.global.CumulativeBodyLength += info.BodyLen

	idx.nextDoc = docID + 1
	return nil
}

// BulkIndexDocuments indexes every document in docs in order, using
// dense monotonic doc_id assignment throughout (externalDocID -1).
func (idx *Index) BulkIndexDocuments(docs []DocumentContents, tokenizer Tokenizer) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, doc := range docs {
		if err := idx.indexDocument(doc, tokenizer, -1); err != nil {
			return err
		}
	}
	return nil
}
