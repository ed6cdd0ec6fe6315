package pile

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/oda/hoard/blob"
)

// Ref is a persisted pointer from one value to another: the child's
// offset and metadata, stored inline in the parent.
type Ref[T any] struct {
	Offset Offset
	Meta   uint64
}

// Own returns a clean handle to the referenced value.
func (r Ref[T]) Own(a Allocator[T], c blob.Codec[T]) *Own[T] {
	return Load(a, c, r.Offset, r.Meta)
}

// PutRef writes v and returns a reference to it.
func PutRef[T any](h *Hoard, c blob.Codec[T], v T) (Ref[T], error) {
	o, err := Put(h, c, v)
	if err != nil {
		return Ref[T]{}, err
	}
	return Ref[T]{Offset: o, Meta: c.Metadata(v)}, nil
}

// ChildValidator is implemented by codecs of values that hold Refs.
// ValidateChildren validates everything reachable from v, the structurally
// valid value stored at parent.
type ChildValidator[T any] interface {
	ValidateChildren(z Zone, parent Offset, v blob.ValidBlob[T]) error
}

// FullyValidate upgrades v, stored at parent, once everything reachable
// from it has been validated. For codecs without children that is v
// itself.
func FullyValidate[T any](z Zone, c blob.Codec[T], parent Offset, v blob.ValidBlob[T]) (blob.FullyValidBlob[T], error) {
	if cv, ok := c.(ChildValidator[T]); ok {
		if err := cv.ValidateChildren(z, parent, v); err != nil {
			return blob.FullyValidBlob[T]{}, err
		}
	}
	return v.AssumeFullyValid(), nil
}

// LoadFullyValid reads the T at o and validates it and everything it
// references.
func LoadFullyValid[T any](z Zone, c blob.Codec[T], o Offset, meta uint64) (blob.FullyValidBlob[T], error) {
	v, err := loadValid(z, c, o, meta)
	if err != nil {
		return blob.FullyValidBlob[T]{}, err
	}
	return FullyValidate(z, c, o, v)
}

// ValidateRef validates the value r points at. Blobs can only reference
// blobs written before them, so a reference that does not point backwards
// from parent is corrupt.
func ValidateRef[T any](z Zone, c blob.Codec[T], parent Offset, r Ref[T]) error {
	if r.Offset.Get() >= parent.Get() {
		return &CorruptionError{
			Offset: parent,
			Err:    errors.Wrapf(ErrBadOffset, "reference to %s does not point backwards", r.Offset),
		}
	}
	_, err := LoadFullyValid(z, c, r.Offset, r.Meta)
	return err
}

type refCodec[T any] struct {
	target blob.Codec[T]
}

// RefCodec returns the codec of references to values encoded with target.
// A Ref is two words: the encoded offset, which is never zero and serves
// as the niche, then the metadata.
func RefCodec[T any](target blob.Codec[T]) blob.SizedCodec[Ref[T]] {
	return refCodec[T]{target: target}
}

func (refCodec[T]) Layout() blob.Layout {
	return blob.WithNiche(16, blob.Range{Start: 0, End: 8})
}

func (refCodec[T]) BlobLen(uint64) (int, error) { return 16, nil }

func (refCodec[T]) Metadata(Ref[T]) uint64 { return 0 }

func (refCodec[T]) ValidateBlob(b blob.Blob[Ref[T]]) (blob.ValidBlob[Ref[T]], error) {
	if _, err := DecodeOffset(binary.LittleEndian.Uint64(b.Bytes()[0:8])); err != nil {
		return blob.ValidBlob[Ref[T]]{}, err
	}
	return b.AssumeValid(), nil
}

func (refCodec[T]) DecodeBlob(v blob.ValidBlob[Ref[T]]) Ref[T] {
	buf := v.Bytes()
	o, _ := DecodeOffset(binary.LittleEndian.Uint64(buf[0:8]))
	return Ref[T]{Offset: o, Meta: binary.LittleEndian.Uint64(buf[8:16])}
}

func (refCodec[T]) EncodeBlob(dst []byte, r Ref[T]) {
	binary.LittleEndian.PutUint64(dst[0:8], r.Offset.Encode())
	binary.LittleEndian.PutUint64(dst[8:16], r.Meta)
}

func (c refCodec[T]) ValidateChildren(z Zone, parent Offset, v blob.ValidBlob[Ref[T]]) error {
	return ValidateRef(z, c.target, parent, v.Decode())
}
