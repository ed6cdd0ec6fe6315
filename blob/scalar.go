package blob

import (
	"encoding/binary"
	"fmt"
	"unsafe"
)

// scalar describes a fixed-width little-endian value. Every integer codec
// in this package is built from one.
type scalar struct {
	size    int
	nonZero bool
}

func (s scalar) layout() Layout {
	if s.nonZero {
		return WithNiche(s.size, Range{Start: 0, End: s.size})
	}
	return Fixed(s.size)
}

func (s scalar) validate(b []byte) error {
	if len(b) != s.size {
		panic(fmt.Sprintf("blob: %d-byte scalar validated over %d bytes", s.size, len(b)))
	}
	if !s.nonZero {
		return nil
	}
	for _, c := range b {
		if c != 0 {
			return nil
		}
	}
	return &NonZeroError{Size: s.size}
}

// Integer is the set of fixed-width integer types.
type Integer interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | ~int8 | ~int16 | ~int32 | ~int64
}

// Int encodes an integer type as its little-endian bytes. Decoding yields
// a native Go integer.
type Int[T Integer] struct {
	NonZero bool
}

func (c Int[T]) desc() scalar {
	var zero T
	return scalar{size: int(unsafe.Sizeof(zero)), nonZero: c.NonZero}
}

// Layout is the integer's width, with a niche at zero when NonZero is set.
func (c Int[T]) Layout() Layout { return c.desc().layout() }

// BlobLen is the integer's width.
func (c Int[T]) BlobLen(uint64) (int, error) { return c.desc().size, nil }

// Metadata is always zero.
func (Int[T]) Metadata(T) uint64 { return 0 }

// ValidateBlob checks the length and, when NonZero is set, rejects zero.
func (c Int[T]) ValidateBlob(b Blob[T]) (ValidBlob[T], error) {
	if err := c.desc().validate(b.Bytes()); err != nil {
		return ValidBlob[T]{}, err
	}
	return b.AssumeValid(), nil
}

// DecodeBlob reads the little-endian bytes.
func (Int[T]) DecodeBlob(v ValidBlob[T]) T {
	b := v.Bytes()
	var u uint64
	for i := len(b) - 1; i >= 0; i-- {
		u = u<<8 | uint64(b[i])
	}
	return T(u)
}

// EncodeBlob writes v little-endian. It panics on zero when NonZero is set.
func (c Int[T]) EncodeBlob(dst []byte, v T) {
	if c.NonZero && v == 0 {
		panic("blob: encoding zero as a non-zero integer")
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	copy(dst, buf[:c.desc().size])
}

// Integer codecs. The NonZero variants reject zero and leave it as a niche.
var (
	Uint8  SizedCodec[uint8]  = Int[uint8]{}
	Uint16 SizedCodec[uint16] = Int[uint16]{}
	Uint32 SizedCodec[uint32] = Int[uint32]{}
	Uint64 SizedCodec[uint64] = Int[uint64]{}
	Int8   SizedCodec[int8]   = Int[int8]{}
	Int16  SizedCodec[int16]  = Int[int16]{}
	Int32  SizedCodec[int32]  = Int[int32]{}
	Int64  SizedCodec[int64]  = Int[int64]{}

	NonZeroUint8  SizedCodec[uint8]  = Int[uint8]{NonZero: true}
	NonZeroUint16 SizedCodec[uint16] = Int[uint16]{NonZero: true}
	NonZeroUint32 SizedCodec[uint32] = Int[uint32]{NonZero: true}
	NonZeroUint64 SizedCodec[uint64] = Int[uint64]{NonZero: true}
)

// Le16, Le32 and Le64 hold little-endian integers as raw bytes. They are
// alignment 1, so they can be viewed in place inside mapped memory.
type (
	Le16 [2]byte
	Le32 [4]byte
	Le64 [8]byte
)

// NewLe16 stores v.
func NewLe16(v uint16) (l Le16) { binary.LittleEndian.PutUint16(l[:], v); return }

// NewLe32 stores v.
func NewLe32(v uint32) (l Le32) { binary.LittleEndian.PutUint32(l[:], v); return }

// NewLe64 stores v.
func NewLe64(v uint64) (l Le64) { binary.LittleEndian.PutUint64(l[:], v); return }

// Get returns the stored value.
func (l Le16) Get() uint16 { return binary.LittleEndian.Uint16(l[:]) }

// Get returns the stored value.
func (l Le32) Get() uint32 { return binary.LittleEndian.Uint32(l[:]) }

// Get returns the stored value.
func (l Le64) Get() uint64 { return binary.LittleEndian.Uint64(l[:]) }

// raw is the Persist codec for alignment-1 byte-array types.
type raw[T any] struct {
	nonZero bool
}

func (c raw[T]) desc() scalar {
	var zero T
	return scalar{size: int(unsafe.Sizeof(zero)), nonZero: c.nonZero}
}

func (c raw[T]) Layout() Layout { return c.desc().layout() }

func (c raw[T]) BlobLen(uint64) (int, error) { return c.desc().size, nil }

func (raw[T]) Metadata(T) uint64 { return 0 }

func (c raw[T]) ValidateBlob(b Blob[T]) (ValidBlob[T], error) {
	if err := c.desc().validate(b.Bytes()); err != nil {
		return ValidBlob[T]{}, err
	}
	return b.AssumeValid(), nil
}

func (raw[T]) DecodeBlob(v ValidBlob[T]) (out T) {
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&out)), unsafe.Sizeof(out)), v.Bytes())
	return out
}

func (raw[T]) EncodeBlob(dst []byte, v T) {
	copy(dst, unsafe.Slice((*byte)(unsafe.Pointer(&v)), unsafe.Sizeof(v)))
}

func (raw[T]) Persist() {}

// Persist codecs for the Le types.
var (
	LeUint16 SizedCodec[Le16] = raw[Le16]{}
	LeUint32 SizedCodec[Le32] = raw[Le32]{}
	LeUint64 SizedCodec[Le64] = raw[Le64]{}

	NonZeroLeUint32 SizedCodec[Le32] = raw[Le32]{nonZero: true}
	NonZeroLeUint64 SizedCodec[Le64] = raw[Le64]{nonZero: true}
)
