package blob

import (
	"unsafe"
)

// Codec is the contract a type implements to be storable.
//
// Metadata is the pointer metadata of a value: zero for sized types, the
// element count for slices. It is stored next to the pointer, never inside
// the blob itself.
type Codec[T any] interface {
	// BlobLen returns the encoded length of a value with metadata meta.
	BlobLen(meta uint64) (int, error)
	// Metadata returns the metadata of v.
	Metadata(v T) uint64
	// ValidateBlob performs T's structural checks on b.
	ValidateBlob(b Blob[T]) (ValidBlob[T], error)
	// DecodeBlob builds an owned T from checked bytes.
	DecodeBlob(v ValidBlob[T]) T
	// EncodeBlob writes v into dst. len(dst) is BlobLen(Metadata(v)) and
	// dst is zeroed.
	EncodeBlob(dst []byte, v T)
}

// SizedCodec is a Codec whose encoding has a fixed length.
type SizedCodec[T any] interface {
	Codec[T]
	Layout() Layout
}

// Persist is implemented by codecs of alignment-1 types whose Go memory is
// bit-for-bit their encoding. Values of such types may be viewed in place.
type Persist[T any] interface {
	SizedCodec[T]
	// Persist is a marker method.
	Persist()
}

// Encode returns the encoding of v.
func Encode[T any](c Codec[T], v T) []byte {
	n, err := c.BlobLen(c.Metadata(v))
	if err != nil {
		panic(err)
	}
	dst := make([]byte, n)
	c.EncodeBlob(dst, v)
	return dst
}

// Decode validates buf as a T with metadata meta and decodes it.
func Decode[T any](c Codec[T], buf []byte, meta uint64) (T, error) {
	var zero T
	b, err := New(c, buf, meta)
	if err != nil {
		return zero, err
	}
	v, err := b.Validate()
	if err != nil {
		return zero, err
	}
	return v.Decode(), nil
}

// IsPersist reports whether c implements Persist.
func IsPersist[T any](c Codec[T]) bool {
	_, ok := c.(Persist[T])
	return ok
}

// View returns a *T aliasing v's bytes. The pointer is valid as long as
// the bytes are, and must not be written through when they are mapped
// read-only.
//
// View panics if c is not a Persist codec, or if T's Go size differs from
// the layout or T is not alignment 1; such a Persist implementation is a
// bug.
func View[T any](c SizedCodec[T], v ValidBlob[T]) *T {
	p, ok := c.(Persist[T])
	if !ok {
		panic("blob: View on a codec that does not implement Persist")
	}
	var zero T
	l := p.Layout()
	if int(unsafe.Sizeof(zero)) != l.Size || unsafe.Alignof(zero) != 1 {
		panic("blob: Persist codec for a type that is not a byte-exact alignment-1 value")
	}
	if l.Size == 0 {
		return new(T)
	}
	return (*T)(unsafe.Pointer(unsafe.SliceData(v.Bytes())))
}
