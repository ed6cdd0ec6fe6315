package pile

import (
	"github.com/pkg/errors"

	"github.com/oda/hoard/blob"
)

// Zone resolves clean offsets to the bytes of the blob they point at.
// *Snapshot is the zone of a mapped pile.
type Zone interface {
	ReadBlob(o Offset) ([]byte, error)
}

// HeapZone is the zone of values that were never written. Every clean
// offset is unresolvable in it.
type HeapZone struct{}

func (HeapZone) ReadBlob(o Offset) ([]byte, error) {
	return nil, errors.Wrapf(ErrUnbound, "%s in heap zone", o)
}

// readBlob resolves o through z, falling back to the snapshot o is bound
// to.
func readBlob(z Zone, o Offset) ([]byte, error) {
	if z != nil {
		return z.ReadBlob(o)
	}
	if o.snap != nil {
		return o.snap.ReadBlob(o)
	}
	return nil, errors.Wrapf(ErrUnbound, "%s", o)
}

// loadValid reads the blob at o and validates it as a T with metadata
// meta. Bytes that were written by a writer and fail validation are
// reported as a *CorruptionError.
func loadValid[T any](z Zone, c blob.Codec[T], o Offset, meta uint64) (blob.ValidBlob[T], error) {
	buf, err := readBlob(z, o)
	if err != nil {
		return blob.ValidBlob[T]{}, err
	}
	n, err := c.BlobLen(meta)
	if err != nil {
		return blob.ValidBlob[T]{}, &CorruptionError{Offset: o, Err: err}
	}
	if len(buf) != n {
		return blob.ValidBlob[T]{}, &CorruptionError{
			Offset: o,
			Err:    errors.Wrapf(ErrLength, "blob is %d bytes, want %d", len(buf), n),
		}
	}
	b, err := blob.New(c, buf, meta)
	if err != nil {
		return blob.ValidBlob[T]{}, &CorruptionError{Offset: o, Err: err}
	}
	v, err := b.Validate()
	if err != nil {
		return blob.ValidBlob[T]{}, &CorruptionError{Offset: o, Err: err}
	}
	return v, nil
}
