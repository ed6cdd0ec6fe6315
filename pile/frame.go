package pile

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
	"github.com/spaolacci/murmur3"

	"github.com/oda/hoard/word"
)

// Frame layout (all little-endian):
//
//	word 0: | length u32 | kind u8 | zero [3]byte |
//	word 1: | murmur3 64-bit checksum of the payload |
//	payload, zero-filled up to a word boundary
//
// A blob's Offset is the word index of frame word 0.
const (
	FrameHeaderSize  = 16
	FrameHeaderWords = FrameHeaderSize / word.Size

	// MaxBlobSize is the largest payload a frame can describe.
	MaxBlobSize = math.MaxUint32

	// RootPayloadSize holds the encoded value Offset and its metadata.
	RootPayloadSize = 16

	// RootWords is the size of a root frame; it always sits directly
	// before its mark.
	RootWords = FrameHeaderWords + RootPayloadSize/word.Size
)

// Kind is the frame discriminant.
type Kind uint8

const (
	KindBlob Kind = 1
	KindRoot Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindBlob:
		return "blob"
	case KindRoot:
		return "root"
	default:
		return "unknown"
	}
}

type frameHeader struct {
	Length   uint32
	Kind     Kind
	Checksum uint64
}

func newFrameHeader(kind Kind, payload []byte) frameHeader {
	return frameHeader{
		Length:   uint32(len(payload)),
		Kind:     kind,
		Checksum: murmur3.Sum64(payload),
	}
}

func (h frameHeader) encode() [FrameHeaderSize]byte {
	var b [FrameHeaderSize]byte
	binary.LittleEndian.PutUint32(b[0:4], h.Length)
	b[4] = byte(h.Kind)
	binary.LittleEndian.PutUint64(b[8:16], h.Checksum)
	return b
}

// frameSize returns the on-disk size of a frame with an n-byte payload,
// excluding padding words in front of it.
func frameSize(n int) uint64 {
	return FrameHeaderSize + word.Align(uint64(n))
}

func decodeFrameHeader(b []byte) (frameHeader, error) {
	h := frameHeader{
		Length:   binary.LittleEndian.Uint32(b[0:4]),
		Kind:     Kind(b[4]),
		Checksum: binary.LittleEndian.Uint64(b[8:16]),
	}
	if h.Kind != KindBlob && h.Kind != KindRoot {
		return h, errors.Wrapf(ErrBadFrame, "kind %d", b[4])
	}
	if b[5] != 0 || b[6] != 0 || b[7] != 0 {
		return h, errors.Wrap(ErrBadFrame, "non-zero reserved bytes")
	}
	return h, nil
}

// readFrame returns the payload of the frame of the given kind starting at
// word index at of data.
func readFrame(data []byte, at uint64, kind Kind) ([]byte, error) {
	h, payload, err := decodeFrame(data, at)
	if err != nil {
		return nil, err
	}
	if h.Kind != kind {
		return nil, errors.Wrapf(ErrBadFrame, "word %d: kind %s, want %s", at, h.Kind, kind)
	}
	return payload, nil
}

// decodeFrame decodes the frame starting at word index at of data and
// verifies its checksum.
func decodeFrame(data []byte, at uint64) (frameHeader, []byte, error) {
	h, err := frameHeaderAt(data, at)
	if err != nil {
		return h, nil, err
	}
	body := at*word.Size + FrameHeaderSize
	payload := data[body : body+uint64(h.Length) : body+uint64(h.Length)]
	if sum := murmur3.Sum64(payload); sum != h.Checksum {
		return h, nil, errors.Wrapf(ErrChecksum, "word %d: got %#x, want %#x", at, sum, h.Checksum)
	}
	return h, payload, nil
}

// frameHeaderAt decodes the frame header at word index at and checks that
// the whole frame lies inside data.
func frameHeaderAt(data []byte, at uint64) (frameHeader, error) {
	if at < HeaderWords || at > uint64(len(data))/word.Size {
		return frameHeader{}, errors.Wrapf(ErrOutOfRange, "word %d of %d", at, len(data)/word.Size)
	}
	start := at * word.Size
	if uint64(len(data))-start < FrameHeaderSize {
		return frameHeader{}, errors.Wrapf(ErrOutOfRange, "frame header at word %d", at)
	}
	h, err := decodeFrameHeader(data[start : start+FrameHeaderSize])
	if err != nil {
		return h, errors.Wrapf(err, "word %d", at)
	}
	body := start + FrameHeaderSize
	if uint64(len(data))-body < word.Align(uint64(h.Length)) {
		return h, errors.Wrapf(ErrOutOfRange, "payload of %d bytes at word %d", h.Length, at)
	}
	return h, nil
}
