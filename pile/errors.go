package pile

import (
	"github.com/pkg/errors"
)

// Errors returned by pile operations.
var (
	ErrBadMagic       = errors.New("pile: invalid magic bytes")
	ErrBadVersion     = errors.New("pile: unsupported format version")
	ErrHeaderReserved = errors.New("pile: reserved header word is not zero")
	ErrClosed         = errors.New("pile: file is closed")
	ErrWriterActive   = errors.New("pile: a writer is already active")
	ErrLocked         = errors.New("pile: file is locked by another writer")
	ErrOutOfRange     = errors.New("pile: offset outside mapping")
	ErrUnbound        = errors.New("pile: offset is not bound to a mapping")
	ErrBadFrame       = errors.New("pile: invalid blob frame")
	ErrChecksum       = errors.New("pile: blob checksum mismatch")
	ErrBadOffset      = errors.New("pile: invalid encoded offset")
	ErrLength         = errors.New("pile: blob length does not match metadata")
	ErrBlobTooLarge   = errors.New("pile: blob exceeds maximum size")
	ErrNoRoot         = errors.New("pile: no committed root")
	ErrNotPersist     = errors.New("pile: codec does not implement blob.Persist")
)

// CorruptionError is raised when bytes that were written by a committed
// writer fail to validate. The file is damaged; retrying will not help.
type CorruptionError struct {
	Offset Offset
	Err    error
}

func (e *CorruptionError) Error() string {
	return "pile: corrupt value at " + e.Offset.String() + ": " + e.Err.Error()
}

func (e *CorruptionError) Unwrap() error { return e.Err }
