// Hashed key store: a persistent mapping from string key to opaque byte
// string, built atop FileList. Each bucket's FileList value concatenates
// chained (key,value) records; lookups stream the bucket and parse
// records with a small state machine instead of a full scan, the same
// shape as the teacher's bucket/section scanners.
package mir

import (
	"encoding/binary"
	"golang.org/x/crypto/sha3"
)

// FileHMap is a persistent string-keyed byte-string store.
type FileHMap struct {
	inner   *FileList
	buckets int
	filter  *bloom
}

// NewFileHMap opens or creates a FileHMap with the given bucket count
// H. If the store already has records on disk (a reopen), the bloom
// filter is rebuilt from them so Get never reports a false negative
// for a key that was written in an earlier process.
func NewFileHMap(indexPath, dataPath string, blockSize, buckets int) (*FileHMap, error) {
	inner, err := NewFileList(indexPath, dataPath, blockSize)
	if err != nil {
		return nil, err
	}
	h := &FileHMap{inner: inner, buckets: buckets, filter: newBloom()}
	if err := h.rebuildFilter(); err != nil {
		return nil, err
	}
	return h, nil
}

// rebuildFilter scans every bucket and re-adds its keys to the bloom
// filter, restoring the negative-cache's invariant after a reopen.
func (h *FileHMap) rebuildFilter() error {
	for id := 0; id < h.buckets; id++ {
		records, ok, err := h.fullBucket(id)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		for _, r := range records {
			h.filter.Add(bucketFilterKey(id, r.key))
		}
	}
	return nil
}

// bucketID returns the SHA3-256-derived bucket index for key.
func bucketID(key string, buckets int) int {
	sum := sha3.Sum256([]byte(key))
	// Use the low 8 bytes as a big-endian integer for the modulus,
	// matching the reference int.from_bytes(hash, "big") % H semantics
	// closely enough that collision behaviour is governed purely by H.
	v := binary.BigEndian.Uint64(sum[24:32])
	return int(v % uint64(buckets))
}

// encodeRecord serializes one FileHMap record: the 16-byte big-endian
// (key_len, val_len) header followed by the key and value bytes.
func encodeRecord(key string, value []byte) []byte {
	kb := []byte(key)
	buf := make([]byte, 16+len(kb)+len(value))
	binary.BigEndian.PutUint64(buf[0:8], uint64(len(kb)))
	binary.BigEndian.PutUint64(buf[8:16], uint64(len(value)))
	copy(buf[16:], kb)
	copy(buf[16+len(kb):], value)
	return buf
}

// bucketState is the 4-state reader used to parse a stream of records
// within a bucket: HEADER, KEY, VALUE, SKIP.
type bucketState int

const (
	stateHeader bucketState = iota
	stateKey
	stateValue
	stateSkip
)

// Get returns the value stored under key, or (nil, false) if absent.
func (h *FileHMap) Get(key string) ([]byte, bool, error) {
	id := bucketID(key, h.buckets)
	if h.filter != nil && !h.filter.Contains(bucketFilterKey(id, key)) {
		return nil, false, nil
	}

	var (
		state   = stateHeader
		header  [16]byte
		headerN int
		keyLen  uint64
		valLen  uint64
		keyBuf  []byte
		valBuf  []byte
		skipped uint64
	)

	for chunk, err := range h.inner.GetStream(id) {
		if err != nil {
			return nil, false, err
		}
		for _, b := range chunk {
			switch state {
			case stateHeader:
				header[headerN] = b
				headerN++
				if headerN == 16 {
					keyLen = binary.BigEndian.Uint64(header[:8])
					valLen = binary.BigEndian.Uint64(header[8:16])
					keyBuf = make([]byte, 0, keyLen)
					switch {
					case keyLen != 0:
						state = stateKey
					case key != "" && valLen == 0:
						headerN = 0
					case key != "":
						skipped = 0
						state = stateSkip
					default:
						state = stateValue
						valBuf = make([]byte, 0, valLen)
						if valLen == 0 {
							return []byte{}, true, nil
						}
					}
				}
			case stateKey:
				keyBuf = append(keyBuf, b)
				if uint64(len(keyBuf)) == keyLen {
					if string(keyBuf) == key {
						valBuf = make([]byte, 0, valLen)
						if valLen == 0 {
							return []byte{}, true, nil
						}
						state = stateValue
					} else if valLen == 0 {
						state = stateHeader
						headerN = 0
					} else {
						skipped = 0
						state = stateSkip
					}
				}
			case stateValue:
				valBuf = append(valBuf, b)
				if uint64(len(valBuf)) == valLen {
					return valBuf, true, nil
				}
			case stateSkip:
				skipped++
				if skipped == valLen {
					state = stateHeader
					headerN = 0
				}
			}
		}
	}
	return nil, false, nil
}

// Contains reports whether key is present, distinguishing absence from
// a present key with an empty value.
func (h *FileHMap) Contains(key string) (bool, error) {
	_, ok, err := h.Get(key)
	return ok, err
}

// Set stores value under key. A nil/empty value is still a present key
// with an empty value (tombstone-style), distinct from absence.
func (h *FileHMap) Set(key string, value []byte) error {
	id := bucketID(key, h.buckets)

	existing, ok, err := h.fullBucket(id)
	if err != nil {
		return err
	}

	if !ok || !existing.has(key) {
		if err := h.inner.Append(id, encodeRecord(key, value)); err != nil {
			return err
		}
		if h.filter != nil {
			h.filter.Add(bucketFilterKey(id, key))
		}
		return nil
	}

	rebuilt := existing.replace(key, value)
	return h.inner.Set(id, rebuilt.encode())
}

// Delete removes key from the store.
func (h *FileHMap) Delete(key string) error {
	id := bucketID(key, h.buckets)
	existing, ok, err := h.fullBucket(id)
	if err != nil {
		return err
	}
	if !ok || !existing.has(key) {
		return nil
	}
	rebuilt := existing.remove(key)
	return h.inner.Set(id, rebuilt.encode())
}

// bucketRecord is one parsed (key,value) pair within a bucket, used by
// Set's full-bucket-rewrite path.
type bucketRecord struct {
	key   string
	value []byte
}

type bucketRecords []bucketRecord

func (b bucketRecords) has(key string) bool {
	for _, r := range b {
		if r.key == key {
			return true
		}
	}
	return false
}

func (b bucketRecords) replace(key string, value []byte) bucketRecords {
	out := make(bucketRecords, 0, len(b))
	for _, r := range b {
		if r.key == key {
			out = append(out, bucketRecord{key, value})
		} else {
			out = append(out, r)
		}
	}
	return out
}

func (b bucketRecords) remove(key string) bucketRecords {
	out := make(bucketRecords, 0, len(b))
	for _, r := range b {
		if r.key != key {
			out = append(out, r)
		}
	}
	return out
}

func (b bucketRecords) encode() []byte {
	var buf []byte
	for _, r := range b {
		buf = append(buf, encodeRecord(r.key, r.value)...)
	}
	return buf
}

// fullBucket parses every record in bucket id into memory. Used by the
// full-rewrite path of Set/Delete, which is inherently O(bucket size)
// per spec.md §4.2, and by rebuildFilter and Rehash, which walk every
// bucket.
func (h *FileHMap) fullBucket(id int) (bucketRecords, bool, error) {
	data, ok, err := h.inner.Get(id)
	if err != nil || !ok || len(data) == 0 {
		return nil, ok, err
	}

	var out bucketRecords
	offset := 0
	for offset < len(data) {
		if offset+16 > len(data) {
			return nil, false, ErrCorruptChain
		}
		keyLen := binary.BigEndian.Uint64(data[offset : offset+8])
		valLen := binary.BigEndian.Uint64(data[offset+8 : offset+16])
		offset += 16
		if offset+int(keyLen)+int(valLen) > len(data) {
			return nil, false, ErrCorruptChain
		}
		key := string(data[offset : offset+int(keyLen)])
		offset += int(keyLen)
		value := append([]byte(nil), data[offset:offset+int(valLen)]...)
		offset += int(valLen)
		out = append(out, bucketRecord{key, value})
	}
	return out, true, nil
}

// bucketFilterKey combines a bucket id and key into a single string for
// the bloom filter, so the same key hashed into different bucket counts
// (e.g. across a Rehash) never collides across filters.
func bucketFilterKey(id int, key string) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	return string(buf[:]) + key
}
