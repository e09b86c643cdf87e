// Posting: per-field occurrence counts of one term within one
// document, the unit value stored inside a PostingList.
package mir

import "encoding/binary"

// Posting holds a term's occurrence count in each of a document's
// three fields.
type Posting struct {
	DocID       int
	TermID      int
	AuthorCount int
	TitleCount  int
	BodyCount   int
}

// Encode serializes the occurrence counts as three little-endian u32
// fields, in author/title/body order. DocID and TermID are carried
// by the enclosing PostingList rather than serialized per-posting.
func (p Posting) Encode() []byte {
	buf := make([]byte, 12)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(p.AuthorCount))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(p.TitleCount))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(p.BodyCount))
	return buf
}

// decodePosting inverts Posting.Encode, filling in docID/termID from
// the enclosing PostingList's decode loop. Returns the posting and the
// number of bytes consumed.
func decodePosting(data []byte, termID, docID int) (Posting, int, error) {
	if len(data) < 12 {
		return Posting{}, 0, ErrCorruptChain
	}
	return Posting{
		DocID:       docID,
		TermID:      termID,
		AuthorCount: int(binary.LittleEndian.Uint32(data[0:4])),
		TitleCount:  int(binary.LittleEndian.Uint32(data[4:8])),
		BodyCount:   int(binary.LittleEndian.Uint32(data[8:12])),
	}, 12, nil
}

// Count returns the occurrence count for the given token location.
func (p Posting) Count(where TokenLocation) int {
	switch where {
	case TokenAuthor:
		return p.AuthorCount
	case TokenTitle:
		return p.TitleCount
	case TokenBody:
		return p.BodyCount
	default:
		return 0
	}
}

// Total returns the sum of occurrence counts across all three fields.
func (p Posting) Total() int {
	return p.AuthorCount + p.TitleCount + p.BodyCount
}
