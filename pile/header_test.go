package pile

import (
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oda/hoard/word"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := DefaultHeader()
	require.NoError(t, h.Validate())

	var buf [HeaderSize]byte
	h.Serialize(buf[:])
	assert.Equal(t, "hoardpl", string(buf[:7]))
	assert.Equal(t, Version, buf[7])

	var got Header
	got.Deserialize(buf[:])
	assert.Equal(t, h, got)
}

func TestHeaderWordsAreNotMarks(t *testing.T) {
	var buf [HeaderSize]byte
	h := DefaultHeader()
	h.Serialize(buf[:])
	for i := uint64(0); i < HeaderWords; i++ {
		assert.False(t, word.IsMark(i, word.Get(buf[:], i)), "word %d", i)
	}
}

func TestHeaderValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(h *Header)
		want   error
	}{
		{"magic", func(h *Header) { h.Magic[0] = 'X' }, ErrBadMagic},
		{"version", func(h *Header) { h.Version = 9 }, ErrBadVersion},
		{"reserved", func(h *Header) { h.Reserved = 1 }, ErrHeaderReserved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := DefaultHeader()
			tt.modify(&h)
			assert.ErrorIs(t, h.Validate(), tt.want)
		})
	}
}

func TestOpenShortFile(t *testing.T) {
	path := testPath(t)
	require.NoError(t, os.WriteFile(path, []byte("hoardpl"), 0o644))

	_, err := Open(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF), "got %v", err)
}

func TestOpenBadHeader(t *testing.T) {
	path := testPath(t)
	var buf [HeaderSize]byte
	h := DefaultHeader()
	h.Version = 2
	h.Serialize(buf[:])
	require.NoError(t, os.WriteFile(path, buf[:], 0o644))

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrBadVersion)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(testPath(t))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
