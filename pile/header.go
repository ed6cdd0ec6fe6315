package pile

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/oda/hoard/word"
)

const (
	// HeaderSize is the serialized size of Header.
	HeaderSize = 16

	// HeaderWords is HeaderSize in words; the first blob starts here.
	HeaderWords = HeaderSize / word.Size

	// Version of the file format
	Version uint8 = 1
)

// Magic identifies pile files. Followed by the version byte it fills the
// first word, which can never equal the mark for index 0.
var Magic = [7]byte{'h', 'o', 'a', 'r', 'd', 'p', 'l'}

// Header is written once at byte 0 when a file is created and never
// changes afterwards.
type Header struct {
	Magic    [7]byte // File format magic
	Version  uint8   // File format version
	Reserved uint64  // Must be zero
}

// DefaultHeader returns the header of a new file.
func DefaultHeader() Header {
	return Header{Magic: Magic, Version: Version}
}

// Serialize writes the header to buf.
func (h *Header) Serialize(buf []byte) {
	copy(buf[0:7], h.Magic[:])
	buf[7] = h.Version
	binary.LittleEndian.PutUint64(buf[8:16], h.Reserved)
}

// Deserialize reads the header from buf.
func (h *Header) Deserialize(buf []byte) {
	copy(h.Magic[:], buf[0:7])
	h.Version = buf[7]
	h.Reserved = binary.LittleEndian.Uint64(buf[8:16])
}

// Validate checks magic, version and the reserved word.
func (h *Header) Validate() error {
	if h.Magic != Magic {
		return errors.Wrapf(ErrBadMagic, "got %q", h.Magic[:])
	}
	if h.Version != Version {
		return errors.Wrapf(ErrBadVersion, "got %d, want %d", h.Version, Version)
	}
	if h.Reserved != 0 {
		return errors.Wrapf(ErrHeaderReserved, "got %#x", h.Reserved)
	}
	return nil
}
