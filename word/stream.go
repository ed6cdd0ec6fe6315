package word

import (
	"encoding/binary"
)

// Stream reinterprets the concatenation of several byte slices as a
// sequence of words. Word boundaries need not line up with slice
// boundaries; partial words are stitched together through a small
// buffer and the final partial word is zero-filled.
type Stream struct {
	parts [][]byte
	part  int
	pos   int
	stash [Size]byte
}

// NewStream returns a Stream over parts, read in order.
func NewStream(parts ...[]byte) *Stream {
	return &Stream{parts: parts}
}

// Len returns the total number of words the stream yields.
func Len(parts ...[]byte) uint64 {
	var n uint64
	for _, p := range parts {
		n += uint64(len(p))
	}
	return Count(n)
}

// Next returns the next word. ok is false once every byte is consumed.
func (s *Stream) Next() (w Word, ok bool) {
	for s.part < len(s.parts) && s.pos == len(s.parts[s.part]) {
		s.part++
		s.pos = 0
	}
	if s.part == len(s.parts) {
		return 0, false
	}

	// Fast path: a whole word inside the current part.
	if cur := s.parts[s.part]; len(cur)-s.pos >= Size {
		w = binary.LittleEndian.Uint64(cur[s.pos : s.pos+Size])
		s.pos += Size
		return w, true
	}

	clear(s.stash[:])
	filled := 0
	for filled < Size && s.part < len(s.parts) {
		cur := s.parts[s.part]
		n := copy(s.stash[filled:], cur[s.pos:])
		filled += n
		s.pos += n
		if s.pos == len(cur) {
			s.part++
			s.pos = 0
		}
	}
	return binary.LittleEndian.Uint64(s.stash[:]), true
}

// Words collects every word of parts into a slice.
func Words(parts ...[]byte) []Word {
	out := make([]Word, 0, Len(parts...))
	s := NewStream(parts...)
	for {
		w, ok := s.Next()
		if !ok {
			return out
		}
		out = append(out, w)
	}
}
