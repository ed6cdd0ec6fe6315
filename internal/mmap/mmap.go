// Package mmap provides read-only, reference-counted memory maps of files.
package mmap

import (
	"fmt"
	"os"
	"runtime"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Access hints how a mapping will be read.
type Access int

const (
	// Random disables kernel read-ahead; pointer chasing through a pile
	// jumps around the file.
	Random Access = iota
	// Sequential enables aggressive read-ahead, for full scans.
	Sequential
)

func (a Access) advice() int {
	if a == Sequential {
		return unix.MADV_SEQUENTIAL
	}
	return unix.MADV_RANDOM
}

// functions can be overridden for testing
var (
	mmapFunc    = unix.Mmap
	munmapFunc  = unix.Munmap
	madviseFunc = unix.Madvise
)

// Map is an immutable view of the first Len bytes of a file.
//
// A Map starts with one reference. Each Retain must be paired with a
// Release; the last Release unmaps the memory.
type Map struct {
	data []byte
	refs atomic.Int64
}

// Open maps size bytes of f read-only. The file must be at least size
// bytes long. Open does not keep f open.
func Open(f *os.File, size int64, access Access) (*Map, error) {
	if size <= 0 {
		return nil, fmt.Errorf("mmap: invalid size %d", size)
	}
	if int64(int(size)) != size {
		return nil, fmt.Errorf("mmap: size %d overflows int", size)
	}

	data, err := mmapFunc(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap: %w", err)
	}

	// madvise is only a hint; a kernel without it is not an error.
	if err := madviseFunc(data, access.advice()); err != nil && err != unix.ENOSYS {
		_ = munmapFunc(data)
		return nil, fmt.Errorf("failed to madvise: %w", err)
	}

	m := &Map{data: data}
	m.refs.Store(1)
	runtime.SetFinalizer(m, finalize)
	return m, nil
}

func finalize(m *Map) {
	if m.data != nil {
		_ = munmapFunc(m.data)
		m.data = nil
	}
}

// Retain adds a reference.
func (m *Map) Retain() *Map {
	if m.refs.Add(1) <= 1 {
		panic("mmap: Retain on a released map")
	}
	return m
}

// Release drops a reference, unmapping on the last one.
func (m *Map) Release() error {
	n := m.refs.Add(-1)
	switch {
	case n > 0:
		return nil
	case n < 0:
		panic("mmap: Release without matching Retain")
	}
	runtime.SetFinalizer(m, nil)
	data := m.data
	m.data = nil
	if err := munmapFunc(data); err != nil {
		return fmt.Errorf("failed to munmap: %w", err)
	}
	return nil
}

// Len returns the mapped length.
func (m *Map) Len() int {
	return len(m.data)
}

// Data returns the mapped bytes.
// WARNING: the slice is read-only and must not be used after the last Release.
func (m *Map) Data() []byte {
	return m.data
}

// Slice returns mapped bytes [offset, offset+length).
// Returns nil if the range is invalid.
func (m *Map) Slice(offset, length int64) []byte {
	if m.data == nil {
		return nil
	}
	if offset < 0 || length < 0 || offset+length > int64(len(m.data)) || offset+length < offset {
		return nil
	}
	return m.data[offset : offset+length : offset+length]
}
