package mir

import "errors"

// Sentinel errors returned by store and index operations.
var (
	// ErrBlockSizeTooSmall is returned when a FileList is constructed
	// with a block size that cannot hold the trailing next-offset pointer.
	ErrBlockSizeTooSmall = errors.New("mir: block size too small, must be at least 9 bytes")

	// ErrCorruptChain is returned when a block read returns fewer than
	// block-size bytes, or a chain pointer leads outside the data file.
	ErrCorruptChain = errors.New("mir: corrupt block chain")

	// ErrCorruptVarByte is returned when a VarByte stream never
	// terminates within the supplied buffer.
	ErrCorruptVarByte = errors.New("mir: corrupt varbyte stream")

	// ErrNonMonotonic is returned when a doc_id sequence fed to the
	// d-gap encoder is not strictly increasing.
	ErrNonMonotonic = errors.New("mir: doc_id sequence must be strictly increasing")

	// ErrInvalidLocation is returned when a token carries a
	// TokenLocation outside {Author, Title, Body}.
	ErrInvalidLocation = errors.New("mir: invalid token location")

	// ErrMissingInfo is returned by CachedList.Get when the inner
	// FileList holds no value for the requested key.
	ErrMissingInfo = errors.New("mir: term missing required info key")

	// ErrDecompress is returned when a compressed snapshot manifest
	// fails to decode.
	ErrDecompress = errors.New("mir: snapshot decompress failed")

	// ErrClosed names the closed-Index condition. Index does not record
	// that it has been closed, so no method in this package returns it.
	ErrClosed = errors.New("mir: index is closed")
)
