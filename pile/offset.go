package pile

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"

	"github.com/oda/hoard/blob"
)

// MaxOffset is the largest word index an Offset can hold.
const MaxOffset uint64 = 1<<62 - 1

// Offset is a word index into a pile, optionally bound to the snapshot it
// was read from so it can be dereferenced without further context.
//
// Offsets are plain values: copying or dropping one has no effect on the
// bytes it points at.
type Offset struct {
	word uint64
	snap *Snapshot
}

// NewOffset returns the unbound Offset for word index w, or false if w is
// larger than MaxOffset.
func NewOffset(w uint64) (Offset, bool) {
	if w > MaxOffset {
		return Offset{}, false
	}
	return Offset{word: w}, true
}

// mustOffset is NewOffset for indices computed by the writer. Running past
// MaxOffset means the format's address space is exhausted.
func mustOffset(w uint64) Offset {
	o, ok := NewOffset(w)
	if !ok {
		panic(fmt.Sprintf("pile: offset %d overflows MaxOffset", w))
	}
	return o
}

// Get returns the word index.
func (o Offset) Get() uint64 { return o.word }

// Snapshot returns the snapshot o is bound to, or nil.
func (o Offset) Snapshot() *Snapshot { return o.snap }

// Bind returns o bound to s.
func (o Offset) Bind(s *Snapshot) Offset {
	o.snap = s
	return o
}

// Unbind returns o without its snapshot.
func (o Offset) Unbind() Offset {
	o.snap = nil
	return o
}

// Encode returns the persisted form of o. The low bit is always set, so
// the encoding is never zero.
func (o Offset) Encode() uint64 {
	return o.word<<1 | 1
}

// DecodeOffset parses the persisted form of an Offset.
func DecodeOffset(raw uint64) (Offset, error) {
	if raw&1 == 0 {
		return Offset{}, errors.Wrapf(ErrBadOffset, "%#x: tag bit clear", raw)
	}
	o, ok := NewOffset(raw >> 1)
	if !ok {
		return Offset{}, errors.Wrapf(ErrBadOffset, "%#x: past MaxOffset", raw)
	}
	return o, nil
}

func (o Offset) String() string {
	return fmt.Sprintf("@%d", o.word)
}

type offsetCodec struct{}

// OffsetCodec stores an Offset in one word. The whole word is a niche, so
// blob.Option(OffsetCodec) needs no tag byte.
var OffsetCodec blob.SizedCodec[Offset] = offsetCodec{}

func (offsetCodec) Layout() blob.Layout {
	return blob.WithNiche(8, blob.Range{Start: 0, End: 8})
}

func (offsetCodec) BlobLen(uint64) (int, error) { return 8, nil }

func (offsetCodec) Metadata(Offset) uint64 { return 0 }

func (offsetCodec) ValidateBlob(b blob.Blob[Offset]) (blob.ValidBlob[Offset], error) {
	if _, err := DecodeOffset(binary.LittleEndian.Uint64(b.Bytes())); err != nil {
		return blob.ValidBlob[Offset]{}, err
	}
	return b.AssumeValid(), nil
}

func (offsetCodec) DecodeBlob(v blob.ValidBlob[Offset]) Offset {
	o, _ := DecodeOffset(binary.LittleEndian.Uint64(v.Bytes()))
	return o
}

func (offsetCodec) EncodeBlob(dst []byte, o Offset) {
	binary.LittleEndian.PutUint64(dst, o.Encode())
}
