package pile

import (
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oda/hoard/blob"
)

func TestNewOffset(t *testing.T) {
	_, ok := NewOffset(MaxOffset + 1)
	assert.False(t, ok)

	o, ok := NewOffset(0)
	require.True(t, ok)
	assert.Equal(t, uint64(0), o.Get())

	o, ok = NewOffset(MaxOffset)
	require.True(t, ok)
	assert.Equal(t, MaxOffset, o.Get())
}

func TestMustOffsetPanics(t *testing.T) {
	assert.Panics(t, func() { mustOffset(MaxOffset + 1) })
}

func TestOffsetEncoding(t *testing.T) {
	f := fuzz.New()
	for i := 0; i < 1000; i++ {
		var w uint64
		f.Fuzz(&w)
		w &= MaxOffset
		o := mustOffset(w)

		raw := o.Encode()
		assert.NotZero(t, raw)
		got, err := DecodeOffset(raw)
		require.NoError(t, err)
		assert.Equal(t, o, got)
	}
}

func TestDecodeOffsetErrors(t *testing.T) {
	_, err := DecodeOffset(0)
	assert.ErrorIs(t, err, ErrBadOffset)
	_, err = DecodeOffset(4)
	assert.ErrorIs(t, err, ErrBadOffset)
	_, err = DecodeOffset(^uint64(0))
	assert.ErrorIs(t, err, ErrBadOffset)
}

func TestOffsetBind(t *testing.T) {
	f := newFile(t)
	s := snapshot(t, f)

	o := mustOffset(1)
	assert.Nil(t, o.Snapshot())
	b := o.Bind(s)
	assert.Same(t, s, b.Snapshot())
	assert.Equal(t, o, b.Unbind())

	_, err := s.Offset(s.Words())
	assert.ErrorIs(t, err, ErrOutOfRange)
	bound, err := s.Offset(1)
	require.NoError(t, err)
	assert.Same(t, s, bound.Snapshot())
}

func TestOffsetCodec(t *testing.T) {
	o := mustOffset(12345)
	buf := blob.Encode(OffsetCodec, o)
	require.Len(t, buf, 8)

	got, err := blob.Decode(OffsetCodec, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, o, got)

	_, err = blob.Decode(OffsetCodec, make([]byte, 8), 0)
	assert.ErrorIs(t, err, ErrBadOffset)
}

func TestOptionOffsetUsesNiche(t *testing.T) {
	c := blob.Option(OffsetCodec)
	assert.Equal(t, 8, c.Layout().Size)

	none, err := blob.Decode(c, make([]byte, 8), 0)
	require.NoError(t, err)
	assert.Nil(t, none)

	o := mustOffset(7)
	some, err := blob.Decode(c, blob.Encode(c, &o), 0)
	require.NoError(t, err)
	require.NotNil(t, some)
	assert.Equal(t, o, *some)
}
