package pile

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/oda/hoard/internal/mmap"
	"github.com/oda/hoard/word"
)

// Snapshot is an immutable view of a pile as it was when the snapshot was
// taken. Bytes appended later lie past its end and are never observed.
//
// Each Snapshot handle must be released once; Clone hands out another
// handle to the same mapping. The last Release unmaps it, after which
// slices and views obtained from any handle are invalid.
type Snapshot struct {
	m   *mmap.Map
	log logrus.FieldLogger
}

// Root is a committed commit point.
type Root struct {
	Mark  uint64 // word index of the mark
	Frame Offset // the root frame, directly before the mark
	Value Offset // the committed value
	Meta  uint64 // metadata of the committed value
}

func newSnapshot(m *mmap.Map, log logrus.FieldLogger) *Snapshot {
	return &Snapshot{m: m, log: log}
}

// Clone returns another handle to the same mapping.
func (s *Snapshot) Clone() *Snapshot {
	return &Snapshot{m: s.m.Retain(), log: s.log}
}

// Release drops this handle.
func (s *Snapshot) Release() error {
	if s.m == nil {
		return errors.Wrap(ErrClosed, "snapshot released twice")
	}
	m := s.m
	s.m = nil
	return m.Release()
}

// Len returns the mapped length in bytes.
func (s *Snapshot) Len() int {
	if s.m == nil {
		return 0
	}
	return s.m.Len()
}

// Words returns the number of whole words mapped.
func (s *Snapshot) Words() uint64 {
	return uint64(s.Len()) / word.Size
}

// Bytes returns the mapped bytes. They are read-only.
func (s *Snapshot) Bytes() []byte {
	if s.m == nil {
		return nil
	}
	return s.m.Data()
}

// Header returns the file header as mapped.
func (s *Snapshot) Header() (Header, error) {
	var h Header
	if s.m == nil {
		return h, ErrClosed
	}
	b := s.m.Slice(0, HeaderSize)
	if b == nil {
		return h, errors.Wrap(ErrOutOfRange, "header")
	}
	h.Deserialize(b)
	return h, nil
}

// Offset returns word index w bound to s.
func (s *Snapshot) Offset(w uint64) (Offset, error) {
	if w >= s.Words() {
		return Offset{}, errors.Wrapf(ErrOutOfRange, "word %d of %d", w, s.Words())
	}
	o, _ := NewOffset(w)
	return o.Bind(s), nil
}

// ReadBlob returns the checksum-verified payload of the blob at o. The
// slice aliases the mapping.
func (s *Snapshot) ReadBlob(o Offset) ([]byte, error) {
	if s == nil || s.m == nil {
		return nil, ErrClosed
	}
	return readFrame(s.Bytes(), o.Get(), KindBlob)
}

// Roots calls fn for every committed root, newest first, until fn returns
// false. A mark whose root frame does not validate stops the scan with an
// error: marks are never written without their frame.
func (s *Snapshot) Roots(fn func(Root) bool) error {
	if s.m == nil {
		return ErrClosed
	}
	data := s.Bytes()
	for i := s.Words(); i > HeaderWords; {
		i--
		if !word.IsMark(i, word.Get(data, i)) {
			continue
		}
		r, err := s.rootAt(i)
		if err != nil {
			s.log.WithError(err).WithField("mark", i).Warn("invalid root frame before mark")
			return err
		}
		if !fn(r) {
			return nil
		}
		i -= RootWords
	}
	return nil
}

// Tip returns the most recently committed root.
func (s *Snapshot) Tip() (Root, error) {
	var (
		tip   Root
		found bool
	)
	err := s.Roots(func(r Root) bool {
		tip, found = r, true
		return false
	})
	if err != nil {
		return Root{}, err
	}
	if !found {
		return Root{}, ErrNoRoot
	}
	return tip, nil
}

func (s *Snapshot) rootAt(mark uint64) (Root, error) {
	if mark < HeaderWords+RootWords {
		return Root{}, errors.Wrapf(ErrBadFrame, "mark at word %d leaves no room for a root frame", mark)
	}
	at := mark - RootWords
	payload, err := readFrame(s.Bytes(), at, KindRoot)
	if err != nil {
		return Root{}, err
	}
	if len(payload) != RootPayloadSize {
		return Root{}, errors.Wrapf(ErrBadFrame, "root payload of %d bytes at word %d", len(payload), at)
	}
	value, err := DecodeOffset(binary.LittleEndian.Uint64(payload[0:8]))
	if err != nil {
		return Root{}, errors.Wrapf(err, "root at word %d", at)
	}
	return Root{
		Mark:  mark,
		Frame: mustOffset(at).Bind(s),
		Value: value.Bind(s),
		Meta:  binary.LittleEndian.Uint64(payload[8:16]),
	}, nil
}

// FrameInfo describes a frame found by Frames.
type FrameInfo struct {
	Offset  Offset
	Kind    Kind
	Length  uint32
	Padding uint64 // zero words in front of the frame
}

// Frames walks every frame from the header to the end of s in write
// order, skipping padding and marks. Checksums are not verified; use
// ReadFrame for that.
func (s *Snapshot) Frames(fn func(FrameInfo) bool) error {
	if s.m == nil {
		return ErrClosed
	}
	data := s.Bytes()
	n := s.Words()
	var pad uint64
	for i := uint64(HeaderWords); i < n; {
		w := word.Get(data, i)
		switch {
		case w == 0:
			pad++
			i++
			continue
		case word.IsMark(i, w):
			pad = 0
			i++
			continue
		}
		h, err := frameHeaderAt(data, i)
		if err != nil {
			return err
		}
		if !fn(FrameInfo{Offset: mustOffset(i).Bind(s), Kind: h.Kind, Length: h.Length, Padding: pad}) {
			return nil
		}
		pad = 0
		i += FrameHeaderWords + word.Count(uint64(h.Length))
	}
	return nil
}

// ReadFrame returns the kind and checksum-verified payload of the frame at
// o, whatever its kind.
func (s *Snapshot) ReadFrame(o Offset) (Kind, []byte, error) {
	if s == nil || s.m == nil {
		return 0, nil, ErrClosed
	}
	h, payload, err := decodeFrame(s.Bytes(), o.Get())
	if err != nil {
		return 0, nil, err
	}
	return h.Kind, payload, nil
}
