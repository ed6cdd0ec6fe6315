package pile

import (
	"github.com/oda/hoard/blob"
)

// OffsetMut points at a T that is either clean, still in a mapping at an
// Offset, or dirty, in a heap block obtained from its Allocator.
//
// A clean OffsetMut owns nothing. A dirty one owns its block and frees it
// in Dealloc or Take. An OffsetMut must not be copied once dirty.
type OffsetMut[T any] struct {
	clean Offset
	dirty *T
	alloc Allocator[T]
}

// Clean returns a pointer to the value at o.
func Clean[T any](o Offset, a Allocator[T]) OffsetMut[T] {
	if a == nil {
		a = SystemAllocator[T]{}
	}
	return OffsetMut[T]{clean: o, alloc: a}
}

// Dirty returns a pointer owning p, which must come from a.
func Dirty[T any](p *T, a Allocator[T]) OffsetMut[T] {
	if a == nil {
		a = SystemAllocator[T]{}
	}
	return OffsetMut[T]{dirty: p, alloc: a}
}

// IsDirty reports whether the value lives on the heap.
func (p *OffsetMut[T]) IsDirty() bool { return p.dirty != nil }

// TryGetDirty returns the heap value if p is dirty. Otherwise it returns
// the clean offset and false, leaving it to the caller to read the value
// from its zone or to promote p.
func (p *OffsetMut[T]) TryGetDirty() (*T, Offset, bool) {
	if p.dirty != nil {
		return p.dirty, Offset{}, true
	}
	return nil, p.clean, false
}

// MakeDirty returns the heap value, first copying it out of z if p is
// still clean. Promotion happens at most once; later calls return the
// same pointer.
func (p *OffsetMut[T]) MakeDirty(z Zone, c blob.Codec[T], meta uint64) (*T, error) {
	if p.dirty != nil {
		return p.dirty, nil
	}
	v, err := loadValid(z, c, p.clean, meta)
	if err != nil {
		return nil, err
	}
	p.dirty = p.alloc.New(v.Decode())
	return p.dirty, nil
}

// Dealloc frees the heap block of a dirty pointer. It does nothing for a
// clean one: the mapping owns those bytes.
func (p *OffsetMut[T]) Dealloc() {
	if p.dirty == nil {
		return
	}
	p.alloc.Free(p.dirty)
	p.dirty = nil
}

// Take returns an owned value and empties p. A clean value is decoded from
// z; a dirty one is moved out of its block, which is then freed.
func (p *OffsetMut[T]) Take(z Zone, c blob.Codec[T], meta uint64) (T, error) {
	if p.dirty != nil {
		v := *p.dirty
		p.Dealloc()
		p.clean = Offset{}
		return v, nil
	}
	v, err := loadValid(z, c, p.clean, meta)
	if err != nil {
		var zero T
		return zero, err
	}
	p.clean = Offset{}
	return v.Decode(), nil
}
