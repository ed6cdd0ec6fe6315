package pile

import (
	"github.com/pkg/errors"

	"github.com/oda/hoard/blob"
)

// Own is a typed handle owning a T through an OffsetMut, together with
// T's codec and pointer metadata.
//
// Values created with Alloc start dirty. Values loaded from a pile start
// clean and are copied to the heap on the first GetMut.
type Own[T any] struct {
	ptr   OffsetMut[T]
	codec blob.Codec[T]
	meta  uint64
}

// Alloc returns a dirty handle holding v. A nil allocator means
// SystemAllocator.
func Alloc[T any](a Allocator[T], c blob.Codec[T], v T) *Own[T] {
	if a == nil {
		a = SystemAllocator[T]{}
	}
	return &Own[T]{ptr: Dirty(a.New(v), a), codec: c, meta: c.Metadata(v)}
}

// Load returns a clean handle to the T at o.
func Load[T any](a Allocator[T], c blob.Codec[T], o Offset, meta uint64) *Own[T] {
	return &Own[T]{ptr: Clean(o, a), codec: c, meta: meta}
}

// Codec returns the handle's codec.
func (o *Own[T]) Codec() blob.Codec[T] { return o.codec }

// IsDirty reports whether the value has been allocated or promoted.
func (o *Own[T]) IsDirty() bool { return o.ptr.IsDirty() }

// Offset returns the clean offset, or false once the value is dirty.
func (o *Own[T]) Offset() (Offset, bool) {
	_, off, dirty := o.ptr.TryGetDirty()
	return off, !dirty
}

// Metadata returns the current pointer metadata. For a dirty value it is
// recomputed, since mutation may change it.
func (o *Own[T]) Metadata() uint64 {
	if p, _, ok := o.ptr.TryGetDirty(); ok {
		return o.codec.Metadata(*p)
	}
	return o.meta
}

// TryGet returns a copy of the value. A clean value is validated and
// decoded from z.
func (o *Own[T]) TryGet(z Zone) (T, error) {
	p, off, ok := o.ptr.TryGetDirty()
	if ok {
		return *p, nil
	}
	v, err := loadValid(z, o.codec, off, o.meta)
	if err != nil {
		var zero T
		return zero, err
	}
	return v.Decode(), nil
}

// Get is TryGet for values known to be intact. It panics on error.
func (o *Own[T]) Get(z Zone) T {
	v, err := o.TryGet(z)
	if err != nil {
		panic(err)
	}
	return v
}

// View returns a read-only pointer to the value without copying it. A
// clean value is viewed in place in the mapping, which needs a Persist
// codec; other codecs fail with ErrNotPersist. The pointer into the
// mapping is valid until the snapshot is released and must not be
// written through.
func (o *Own[T]) View(z Zone) (*T, error) {
	p, off, ok := o.ptr.TryGetDirty()
	if ok {
		return p, nil
	}
	sc, isSized := o.codec.(blob.SizedCodec[T])
	if !isSized || !blob.IsPersist[T](o.codec) {
		return nil, errors.WithStack(ErrNotPersist)
	}
	v, err := loadValid(z, o.codec, off, o.meta)
	if err != nil {
		return nil, err
	}
	return blob.View(sc, v), nil
}

// GetMut returns a mutable pointer to the value, promoting it to the heap
// first if it is clean. Other handles to the same offset are unaffected.
func (o *Own[T]) GetMut(z Zone) (*T, error) {
	return o.ptr.MakeDirty(z, o.codec, o.meta)
}

// Take consumes the handle and returns the value.
func (o *Own[T]) Take(z Zone) (T, error) {
	return o.ptr.Take(z, o.codec, o.meta)
}

// Free releases the handle's heap block, if any.
func (o *Own[T]) Free() {
	o.ptr.Dealloc()
}

// Bag is an Own bundled with the zone it is resolved in.
type Bag[T any] struct {
	own  *Own[T]
	zone Zone
}

// NewBag pairs own with z.
func NewBag[T any](own *Own[T], z Zone) *Bag[T] {
	return &Bag[T]{own: own, zone: z}
}

// Own returns the underlying handle.
func (b *Bag[T]) Own() *Own[T] { return b.own }

// Zone returns the zone the handle is resolved in.
func (b *Bag[T]) Zone() Zone { return b.zone }

// IsDirty is Own.IsDirty.
func (b *Bag[T]) IsDirty() bool { return b.own.IsDirty() }

// Metadata is Own.Metadata.
func (b *Bag[T]) Metadata() uint64 { return b.own.Metadata() }

// TryGet is Own.TryGet in the bag's zone.
func (b *Bag[T]) TryGet() (T, error) { return b.own.TryGet(b.zone) }

// Get is Own.Get in the bag's zone.
func (b *Bag[T]) Get() T { return b.own.Get(b.zone) }

// View is Own.View in the bag's zone.
func (b *Bag[T]) View() (*T, error) { return b.own.View(b.zone) }

// GetMut is Own.GetMut in the bag's zone.
func (b *Bag[T]) GetMut() (*T, error) { return b.own.GetMut(b.zone) }

// Take is Own.Take in the bag's zone.
func (b *Bag[T]) Take() (T, error) { return b.own.Take(b.zone) }

// Free is Own.Free.
func (b *Bag[T]) Free() { b.own.Free() }

// Offset is Own.Offset.
func (b *Bag[T]) Offset() (Offset, bool) { return b.own.Offset() }

// Codec is Own.Codec.
func (b *Bag[T]) Codec() blob.Codec[T] { return b.own.Codec() }

// LoadRoot returns a clean Bag for the newest root of s.
func LoadRoot[T any](s *Snapshot, c blob.Codec[T], a Allocator[T]) (*Bag[T], error) {
	tip, err := s.Tip()
	if err != nil {
		return nil, err
	}
	return NewBag(Load(a, c, tip.Value, tip.Meta), Zone(s)), nil
}

// Save writes the handle's value and returns its offset. A clean value is
// already in the pile and is not rewritten.
func Save[T any](h *Hoard, o *Own[T]) (Offset, error) {
	p, off, ok := o.ptr.TryGetDirty()
	if !ok {
		return off.Unbind(), nil
	}
	return Put(h, o.codec, *p)
}

// SaveRoot saves the value and commits it as the newest root.
func SaveRoot[T any](h *Hoard, o *Own[T]) (Root, error) {
	off, err := Save(h, o)
	if err != nil {
		return Root{}, err
	}
	return h.Commit(off, o.Metadata())
}
