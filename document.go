// Document-level domain entities: the raw field text (DocumentContents)
// and its derived per-field token counts (DocumentInfo). Binary layouts
// are little-endian, matching the reference implementation's native
// struct.pack encoding rather than FileList/FileHMap's big-endian
// on-disk framing.
package mir

import "encoding/binary"

// DocumentContents holds the raw author/title/body text of one indexed
// document.
type DocumentContents struct {
	Author string
	Title  string
	Body   string
}

// Encode serializes c as [author_len, title_len, body_len (i32 LE
// each)] followed by the three UTF-8 byte strings in order.
func (c DocumentContents) Encode() []byte {
	author := []byte(c.Author)
	title := []byte(c.Title)
	body := []byte(c.Body)

	buf := make([]byte, 12+len(author)+len(title)+len(body))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(author)))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(title)))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(body)))
	offset := 12
	offset += copy(buf[offset:], author)
	offset += copy(buf[offset:], title)
	copy(buf[offset:], body)
	return buf
}

// DecodeDocumentContents inverts DocumentContents.Encode.
func DecodeDocumentContents(data []byte) (DocumentContents, error) {
	if len(data) < 12 {
		return DocumentContents{}, ErrCorruptChain
	}
	authorLen := int(binary.LittleEndian.Uint32(data[0:4]))
	titleLen := int(binary.LittleEndian.Uint32(data[4:8]))
	bodyLen := int(binary.LittleEndian.Uint32(data[8:12]))

	rest := data[12:]
	if len(rest) < authorLen+titleLen+bodyLen {
		return DocumentContents{}, ErrCorruptChain
	}
	author := string(rest[:authorLen])
	rest = rest[authorLen:]
	title := string(rest[:titleLen])
	rest = rest[titleLen:]
	body := string(rest[:bodyLen])

	return DocumentContents{Author: author, Title: title, Body: body}, nil
}

// DocumentContentsCodec adapts DocumentContents to the codec shape used
// by CachedList. The key is unused: a document's contents are fully
// self-describing in its serialized bytes.
var DocumentContentsCodec = ListCodec[DocumentContents]{
	Encode: DocumentContents.Encode,
	Decode: func(data []byte, _ int) (DocumentContents, error) { return DecodeDocumentContents(data) },
}

// DocumentInfo records a document's id and its per-field token counts,
// derived once at ingestion time and never mutated afterward.
type DocumentInfo struct {
	ID        int
	AuthorLen int
	TitleLen  int
	BodyLen   int
}

// Lengths returns the [author, title, body] token-count triple.
func (d DocumentInfo) Lengths() [3]int {
	return [3]int{d.AuthorLen, d.TitleLen, d.BodyLen}
}

// NewDocumentInfoFromTokens builds a DocumentInfo from tokens produced
// by a Tokenizer, counting occurrences per field.
func NewDocumentInfoFromTokens(id int, tokens []Token) DocumentInfo {
	var info DocumentInfo
	info.ID = id
	for _, tok := range tokens {
		switch tok.Where {
		case TokenAuthor:
			info.AuthorLen++
		case TokenTitle:
			info.TitleLen++
		case TokenBody:
			info.BodyLen++
		}
	}
	return info
}

// Encode serializes d as four little-endian i32 fields: id, author_len,
// title_len, body_len.
func (d DocumentInfo) Encode() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(d.ID))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(d.AuthorLen))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(d.TitleLen))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(d.BodyLen))
	return buf
}

// DecodeDocumentInfo inverts DocumentInfo.Encode.
func DecodeDocumentInfo(data []byte) (DocumentInfo, error) {
	if len(data) < 16 {
		return DocumentInfo{}, ErrCorruptChain
	}
	return DocumentInfo{
		ID:        int(int32(binary.LittleEndian.Uint32(data[0:4]))),
		AuthorLen: int(int32(binary.LittleEndian.Uint32(data[4:8]))),
		TitleLen:  int(int32(binary.LittleEndian.Uint32(data[8:12]))),
		BodyLen:   int(int32(binary.LittleEndian.Uint32(data[12:16]))),
	}, nil
}

// DocumentInfoCodec adapts DocumentInfo to the codec shape used by CachedList.
var DocumentInfoCodec = ListCodec[DocumentInfo]{
	Encode: DocumentInfo.Encode,
	Decode: func(data []byte, _ int) (DocumentInfo, error) { return DecodeDocumentInfo(data) },
}
