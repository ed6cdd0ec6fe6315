package blob

import (
	"math"

	"github.com/pkg/errors"
)

type bytesCodec struct{}

// Bytes encodes a byte slice as itself; its metadata is the length.
var Bytes Codec[[]byte] = bytesCodec{}

func (bytesCodec) BlobLen(meta uint64) (int, error) {
	if meta > math.MaxInt {
		return 0, errors.Wrapf(ErrTooLarge, "%d bytes", meta)
	}
	return int(meta), nil
}

func (bytesCodec) Metadata(v []byte) uint64 { return uint64(len(v)) }

func (bytesCodec) ValidateBlob(b Blob[[]byte]) (ValidBlob[[]byte], error) {
	return b.AssumeValid(), nil
}

func (bytesCodec) DecodeBlob(v ValidBlob[[]byte]) []byte {
	return append([]byte(nil), v.Bytes()...)
}

func (bytesCodec) EncodeBlob(dst []byte, v []byte) { copy(dst, v) }

// sliceCodec encodes []T as its elements back to back; the metadata is
// the element count.
type sliceCodec[T any] struct {
	elem SizedCodec[T]
}

// Slice returns the codec for slices of elem.
func Slice[T any](elem SizedCodec[T]) Codec[[]T] {
	return sliceCodec[T]{elem: elem}
}

func (c sliceCodec[T]) BlobLen(meta uint64) (int, error) {
	size := uint64(c.elem.Layout().Size)
	if size != 0 && meta > math.MaxInt/size {
		return 0, errors.Wrapf(ErrTooLarge, "%d elements of %d bytes", meta, size)
	}
	return int(meta * size), nil
}

func (sliceCodec[T]) Metadata(v []T) uint64 { return uint64(len(v)) }

func (c sliceCodec[T]) ValidateBlob(b Blob[[]T]) (ValidBlob[[]T], error) {
	if b.Metadata() > 0 && !c.elem.Layout().Inhabited {
		return ValidBlob[[]T]{}, ErrUninhabited
	}
	f := b.Fields()
	for i := uint64(0); i < b.Metadata(); i++ {
		if _, err := Field(f, c.elem); err != nil {
			return ValidBlob[[]T]{}, err
		}
	}
	return f.Done(), nil
}

func (c sliceCodec[T]) DecodeBlob(v ValidBlob[[]T]) []T {
	out := make([]T, v.Metadata())
	d := v.Decoder()
	for i := range out {
		out[i] = DecodeField(d, c.elem)
	}
	d.Done()
	return out
}

func (c sliceCodec[T]) EncodeBlob(dst []byte, v []T) {
	e := NewEncoder(dst)
	for _, x := range v {
		EncodeField(e, c.elem, x)
	}
	e.Done()
}
