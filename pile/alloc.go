package pile

import "sync"

// Allocator provides the heap blocks that back dirty values.
type Allocator[T any] interface {
	// New returns a block holding v.
	New(v T) *T
	// Free returns a block obtained from New. p must not be used again.
	Free(p *T)
}

// SystemAllocator leaves blocks to the garbage collector.
type SystemAllocator[T any] struct{}

// New returns a fresh block holding v.
func (SystemAllocator[T]) New(v T) *T {
	p := new(T)
	*p = v
	return p
}

// Free does nothing.
func (SystemAllocator[T]) Free(*T) {}

// PoolAllocator recycles freed blocks through a sync.Pool. Useful when
// many values are promoted and taken in a loop.
type PoolAllocator[T any] struct {
	pool sync.Pool
}

// NewPoolAllocator returns an empty pool.
func NewPoolAllocator[T any]() *PoolAllocator[T] {
	a := &PoolAllocator[T]{}
	a.pool.New = func() any { return new(T) }
	return a
}

// New reuses a freed block if one is pooled.
func (a *PoolAllocator[T]) New(v T) *T {
	p := a.pool.Get().(*T)
	*p = v
	return p
}

// Free zeroes p so the pool does not keep its referents alive.
func (a *PoolAllocator[T]) Free(p *T) {
	var zero T
	*p = zero
	a.pool.Put(p)
}
