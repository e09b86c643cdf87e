// Term: a vocabulary entry mapping a token string to a dense integer
// id, carrying an idf placeholder field in its on-disk layout.
package mir

import "encoding/binary"

// Term is one vocabulary entry. IDFPlaceholder mirrors the reference
// format's stored idf field; scoring instead uses PostingListLen,
// which the Index maintains alongside the term and does not persist
// in Encode's payload (it is always reconstructible as the length of
// the term's posting list).
type Term struct {
	Text           string
	ID             int
	IDFPlaceholder int32
	PostingListLen int
}

// Encode serializes t as [idf_placeholder, term_len (i32 LE each)]
// followed by the UTF-8 term bytes.
func (t Term) Encode() []byte {
	text := []byte(t.Text)
	buf := make([]byte, 8+len(text))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(t.IDFPlaceholder))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(text)))
	copy(buf[8:], text)
	return buf
}

// DecodeTerm inverts Term.Encode. id is supplied by the caller, the
// same way the reference implementation threads the dense term id
// in from the lexicon key rather than the serialized bytes.
func DecodeTerm(data []byte, id int) (Term, error) {
	if len(data) < 8 {
		return Term{}, ErrCorruptChain
	}
	idf := int32(binary.LittleEndian.Uint32(data[0:4]))
	termLen := int(binary.LittleEndian.Uint32(data[4:8]))
	if len(data) < 8+termLen {
		return Term{}, ErrCorruptChain
	}
	return Term{
		Text:           string(data[8 : 8+termLen]),
		ID:             id,
		IDFPlaceholder: idf,
	}, nil
}

// TermCodec adapts Term to the codec shape used by CachedList; the
// term id comes from the cache key rather than the serialized bytes.
var TermCodec = ListCodec[Term]{
	Encode: Term.Encode,
	Decode: DecodeTerm,
}
