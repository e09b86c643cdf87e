// PostingList: the ordered doc_id → Posting map for a single term,
// with its doc_id list VarByte/d-gap compressed on disk.
package mir

import (
	"encoding/binary"
	"iter"
)

// PostingList maps doc_id to Posting for one term, preserving
// insertion order the way the reference OrderedDict-backed type does.
type PostingList struct {
	order    []int
	postings map[int]Posting
}

// NewPostingList returns an empty PostingList.
func NewPostingList() *PostingList {
	return &PostingList{postings: make(map[int]Posting)}
}

// Get returns the posting for docID, if present.
func (pl *PostingList) Get(docID int) (Posting, bool) {
	p, ok := pl.postings[docID]
	return p, ok
}

// Set inserts or replaces the posting for docID, appending docID to
// the order if it is new.
func (pl *PostingList) Set(docID int, p Posting) {
	if _, ok := pl.postings[docID]; !ok {
		pl.order = append(pl.order, docID)
	}
	pl.postings[docID] = p
}

// Len returns the number of documents in the posting list.
func (pl *PostingList) Len() int {
	return len(pl.order)
}

// DocIDs returns the doc_id list in insertion order.
func (pl *PostingList) DocIDs() []int {
	out := make([]int, len(pl.order))
	copy(out, pl.order)
	return out
}

// All iterates postings in insertion order.
func (pl *PostingList) All() iter.Seq2[int, Posting] {
	return func(yield func(int, Posting) bool) {
		for _, id := range pl.order {
			if !yield(id, pl.postings[id]) {
				return
			}
		}
	}
}

// Encode serializes the posting list as:
//
//	[len(doc_list_bytes) i32 LE] [VB(d-gaps(doc_ids))] [Posting...]
//
// The doc_id list must be strictly increasing in storage order; the
// reference implementation relies on insertion in ascending doc_id
// order during indexing to guarantee this.
func (pl *PostingList) Encode() ([]byte, error) {
	docList, err := encodeDocList(pl.order)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 4, 4+len(docList)+pl.Len()*12)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(docList)))
	buf = append(buf, docList...)
	for _, id := range pl.order {
		buf = append(buf, pl.postings[id].Encode()...)
	}
	return buf, nil
}

// DecodePostingList inverts PostingList.Encode. termID is threaded
// into every decoded Posting, matching the reference implementation's
// deserialize(data, term_id) contract.
func DecodePostingList(data []byte, termID int) (*PostingList, error) {
	if len(data) < 4 {
		return nil, ErrCorruptChain
	}
	docListLen := int(binary.LittleEndian.Uint32(data[0:4]))
	data = data[4:]
	if len(data) < docListLen {
		return nil, ErrCorruptChain
	}
	docIDs, err := decodeDocList(data[:docListLen])
	if err != nil {
		return nil, err
	}
	data = data[docListLen:]

	pl := NewPostingList()
	for _, docID := range docIDs {
		posting, n, err := decodePosting(data, termID, docID)
		if err != nil {
			return nil, err
		}
		pl.Set(docID, posting)
		data = data[n:]
	}
	return pl, nil
}

// PostingListCodec adapts *PostingList to the codec shape used by
// CachedList; postings are stored under the term's dense id, which
// Decode threads straight into every Posting it reconstructs.
var PostingListCodec = ListCodec[*PostingList]{
	Encode: func(pl *PostingList) []byte {
		data, err := pl.Encode()
		if err != nil {
			// Index always inserts doc_ids in ascending order, which is
			// what Encode requires; a violation here means a caller
			// bypassed that invariant, and silently writing an empty
			// posting list would corrupt the index without any signal.
			panic(err)
		}
		return data
	},
	Decode: DecodePostingList,
}
