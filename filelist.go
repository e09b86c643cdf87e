// Block-linked on-disk store: a persistent mapping from integer key to
// opaque byte string, backed by a fixed-slot index file and a
// fixed-block-size data file chained by trailing next-offset pointers.
//
// Each file is opened for the duration of a single operation and closed
// immediately after, the same open-read/write-close discipline the
// teacher repo uses, so there are no long-lived handles to reason about
// and a failed operation never leaves a dangling descriptor.
package mir

import (
	"encoding/binary"
	"io"
	"iter"
	"os"
	"path/filepath"
)

const (
	slotSize       = 16 // bytes per index slot: offset(8) + length(8), big-endian
	nextOffsetSize = 8  // bytes reserved at the tail of every block for the chain pointer
)

// FileList is a persistent int-keyed byte-string store.
type FileList struct {
	indexPath string
	dataPath  string
	blockSize int
}

// NewFileList opens or creates the index and data files at the given
// paths. blockSize must be at least 9 bytes (payload plus the 8-byte
// chain pointer).
func NewFileList(indexPath, dataPath string, blockSize int) (*FileList, error) {
	if blockSize < nextOffsetSize+1 {
		return nil, ErrBlockSizeTooSmall
	}
	if err := ensureFile(indexPath); err != nil {
		return nil, err
	}
	if err := ensureFile(dataPath); err != nil {
		return nil, err
	}
	return &FileList{indexPath: indexPath, dataPath: dataPath, blockSize: blockSize}, nil
}

func ensureFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		return f.Close()
	}
	return nil
}

// payloadSize is the usable bytes per block, excluding the chain pointer.
func (fl *FileList) payloadSize() int {
	return fl.blockSize - nextOffsetSize
}

// indexGet reads the (offset, length) slot for key. ok is false if the
// slot is absent (zero-valued) or doesn't exist yet.
func (fl *FileList) indexGet(key int) (offset, length int64, ok bool, err error) {
	f, err := os.Open(fl.indexPath)
	if err != nil {
		return 0, 0, false, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, 0, false, err
	}
	slotPos := int64(key) * slotSize
	if info.Size() < slotPos+slotSize {
		return 0, 0, false, nil
	}

	buf := make([]byte, slotSize)
	if _, err := f.ReadAt(buf, slotPos); err != nil {
		return 0, 0, false, err
	}
	offset = int64(binary.BigEndian.Uint64(buf[:8]))
	length = int64(binary.BigEndian.Uint64(buf[8:16]))
	if offset == 0 && length == 0 {
		return 0, 0, false, nil
	}
	return offset, length, true, nil
}

// indexSet writes the (offset, length) slot for key.
func (fl *FileList) indexSet(key int, offset, length int64) error {
	f, err := os.OpenFile(fl.indexPath, os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	var buf [slotSize]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(offset))
	binary.BigEndian.PutUint64(buf[8:16], uint64(length))
	_, err = f.WriteAt(buf[:], int64(key)*slotSize)
	return err
}

// Get returns the value stored under key, or (nil, false) if key is absent.
func (fl *FileList) Get(key int) ([]byte, bool, error) {
	offset, length, ok, err := fl.indexGet(key)
	if err != nil || !ok {
		return nil, false, err
	}

	f, err := os.Open(fl.dataPath)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	result := make([]byte, 0, length)
	block := make([]byte, fl.blockSize)
	for {
		n, err := f.ReadAt(block, offset)
		if n < fl.blockSize {
			if err == io.EOF || err == nil {
				return nil, false, ErrCorruptChain
			}
			return nil, false, err
		}
		result = append(result, block[:fl.payloadSize()]...)
		nextOffset := int64(binary.BigEndian.Uint64(block[fl.payloadSize():]))
		if nextOffset == 0 {
			break
		}
		offset = nextOffset
	}
	if int64(len(result)) > length {
		result = result[:length]
	}
	return result, true, nil
}

// GetStream returns a one-shot iterator over the chunks making up the
// value stored under key, without buffering the whole value in memory.
// If key is absent the sequence yields nothing. A corrupt chain yields
// a final (nil, err) pair.
func (fl *FileList) GetStream(key int) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		offset, length, ok, err := fl.indexGet(key)
		if err != nil {
			yield(nil, err)
			return
		}
		if !ok {
			return
		}
		f, err := os.Open(fl.dataPath)
		if err != nil {
			yield(nil, err)
			return
		}
		defer f.Close()

		payload := fl.payloadSize()
		block := make([]byte, fl.blockSize)
		read := int64(0)
		for {
			n, rerr := f.ReadAt(block, offset)
			if n < fl.blockSize {
				if rerr == io.EOF || rerr == nil {
					yield(nil, ErrCorruptChain)
				} else {
					yield(nil, rerr)
				}
				return
			}
			usable := length - read
			if usable > int64(payload) {
				usable = int64(payload)
			}
			if usable <= 0 {
				return
			}
			read += usable
			if !yield(block[:usable], nil) {
				return
			}
			nextOffset := int64(binary.BigEndian.Uint64(block[payload:]))
			if nextOffset == 0 {
				return
			}
			offset = nextOffset
		}
	}
}

// Set stores value under key, overwriting any existing value. Shrunk
// chains keep their blocks allocated; excess payload bytes are zeroed.
func (fl *FileList) Set(key int, value []byte) error {
	return fl.write(key, value, false)
}

// Append concatenates value onto the existing value stored under key
// (or creates it, if absent).
func (fl *FileList) Append(key int, value []byte) error {
	return fl.write(key, value, true)
}

// write implements both Set and Append. When appendMode is true, value
// is concatenated onto the existing stored bytes; otherwise it replaces
// them.
func (fl *FileList) write(key int, value []byte, appendMode bool) error {
	fileSize, err := fileSizeOf(fl.dataPath)
	if err != nil {
		return err
	}

	oldOffset, oldLength, overwriting, err := fl.indexGet(key)
	if err != nil {
		return err
	}

	var full []byte
	var startingOffset int64
	var trueLength int64
	payload := fl.payloadSize()

	f, err := os.OpenFile(fl.dataPath, os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if !overwriting {
		startingOffset = fileSize
		fileSize += int64(fl.blockSize) // the chain's first block takes the old EOF
		full = value
		trueLength = int64(len(value))
	} else {
		startingOffset = oldOffset
		if appendMode {
			old, _, err := fl.get(f, oldOffset, oldLength)
			if err != nil {
				return err
			}
			full = append(old, value...)
			trueLength = oldLength + int64(len(value))
		} else {
			full = value
			trueLength = int64(len(full))
			if trueLength < oldLength {
				// Cannot deallocate blocks; pad to the old length so the
				// existing chain is fully overwritten instead of
				// truncated. The index still records trueLength, the
				// exact new value length, not the padded length.
				padded := make([]byte, oldLength)
				copy(padded, full)
				full = padded
			}
		}
	}
	newLength := trueLength

	offset := startingOffset
	i := 0
	for {
		start := i * payload
		end := start + payload
		if end > len(full) {
			end = len(full)
		}
		isLast := end == len(full)

		var oldBlock []byte
		var nextOffset int64
		haveOld := overwriting
		if haveOld {
			oldBlock = make([]byte, fl.blockSize)
			n, rerr := f.ReadAt(oldBlock, offset)
			if n < fl.blockSize {
				if rerr == io.EOF || rerr == nil {
					return ErrCorruptChain
				}
				return rerr
			}
			nextOffset = int64(binary.BigEndian.Uint64(oldBlock[payload:]))
		}

		newBlock := make([]byte, fl.blockSize)
		copy(newBlock, full[start:end])

		if isLast {
			// trailing bytes already zero
		} else if haveOld && nextOffset != 0 {
			binary.BigEndian.PutUint64(newBlock[payload:], uint64(nextOffset))
		} else {
			// need a new block: allocate at EOF
			haveOld = false
			nextOffset = fileSize
			fileSize += int64(fl.blockSize)
			binary.BigEndian.PutUint64(newBlock[payload:], uint64(nextOffset))
		}

		if oldBlock == nil || !bytesEqual(oldBlock, newBlock) {
			if _, err := f.WriteAt(newBlock, offset); err != nil {
				return err
			}
		}

		if isLast {
			break
		}
		offset = nextOffset
		i++
		overwriting = haveOld
	}

	return fl.indexSet(key, startingOffset, newLength)
}

// get reads length bytes of the chain starting at offset, using an
// already-open file handle. Returns the raw bytes and the requested
// length unchanged; append uses it to read the old value.
func (fl *FileList) get(f *os.File, offset, length int64) ([]byte, int64, error) {
	payload := fl.payloadSize()
	result := make([]byte, 0, length)
	block := make([]byte, fl.blockSize)
	for {
		n, err := f.ReadAt(block, offset)
		if n < fl.blockSize {
			if err == io.EOF || err == nil {
				return nil, 0, ErrCorruptChain
			}
			return nil, 0, err
		}
		result = append(result, block[:payload]...)
		nextOffset := int64(binary.BigEndian.Uint64(block[payload:]))
		if nextOffset == 0 {
			break
		}
		offset = nextOffset
	}
	if int64(len(result)) > length {
		result = result[:length]
	}
	return result, length, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func fileSizeOf(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// NextKey returns the smallest key greater than every key ever
// assigned. O(1): derived from the index file size.
func (fl *FileList) NextKey() (int, error) {
	size, err := fileSizeOf(fl.indexPath)
	if err != nil {
		return 0, err
	}
	return int(size / slotSize), nil
}

// NextAvailableKey returns the smallest key for which Get is absent.
// O(n) in the number of assigned keys.
func (fl *FileList) NextAvailableKey() (int, error) {
	next, err := fl.NextKey()
	if err != nil {
		return 0, err
	}
	for i := 0; i < next; i++ {
		_, _, ok, err := fl.indexGet(i)
		if err != nil {
			return 0, err
		}
		if !ok {
			return i, nil
		}
	}
	return next, nil
}
