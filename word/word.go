// Package word provides the fixed-width addressing unit of a pile file and
// the mark encoding used to flag commit points.
//
// A word is 8 bytes, little-endian. Every offset in a pile is a word
// index, never a byte index. A mark is a word equal to the bitwise
// complement of its own index, so a reader can recognise a commit point
// from raw bytes alone.
package word

import (
	"encoding/binary"
)

// Size is the size of a word in bytes.
const Size = 8

// Word is one 8-byte little-endian unit of file addressing.
type Word = uint64

// Mark returns the mark value for word index i.
func Mark(i uint64) Word {
	return ^i
}

// IsMark reports whether w, found at word index i, is a mark.
func IsMark(i uint64, w Word) bool {
	return w == Mark(i)
}

// Align rounds n bytes up to the next word boundary.
func Align(n uint64) uint64 {
	return (n + Size - 1) &^ (Size - 1)
}

// Count returns the number of words needed to hold n bytes.
func Count(n uint64) uint64 {
	return Align(n) / Size
}

// Get reads the word at word index i of buf.
func Get(buf []byte, i uint64) Word {
	off := i * Size
	return binary.LittleEndian.Uint64(buf[off : off+Size])
}

// Put writes w at word index i of buf.
func Put(buf []byte, i uint64, w Word) {
	off := i * Size
	binary.LittleEndian.PutUint64(buf[off:off+Size], w)
}

// Bytes returns the little-endian encoding of w.
func Bytes(w Word) [Size]byte {
	var b [Size]byte
	binary.LittleEndian.PutUint64(b[:], w)
	return b
}
