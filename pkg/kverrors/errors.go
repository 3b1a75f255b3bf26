package kverrors

import "errors"

var (
	// ErrKeyNotFound is returned by Remove when the key is absent.
	// It is the only error expected during normal operation.
	ErrKeyNotFound = errors.New("kvlog: key not found")
	// ErrInvalidPath is returned by Open when the target path exists
	// but is not a directory.
	ErrInvalidPath = errors.New("kvlog: path is not a directory")
	// ErrLocked is returned by Open when another store instance holds
	// the storage directory.
	ErrLocked = errors.New("kvlog: storage directory already locked")
	// ErrBadRecord wraps deserialization failures of on-disk records.
	ErrBadRecord = errors.New("kvlog: malformed record")
	// ErrCorruption marks a broken internal invariant, e.g. the index
	// pointing at a record that is not a set. Not recoverable.
	ErrCorruption = errors.New("kvlog: store corrupted")
	// ErrClosed is returned by any operation on a closed store.
	ErrClosed = errors.New("kvlog: store closed")
)
