package pile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oda/hoard/word"
)

func TestFrames(t *testing.T) {
	f := newFile(t)
	blobs := writeBlobs(t, f, []byte("a"), []byte("hello world!"))
	roots := commitValues(t, f, 9)
	s := snapshot(t, f)

	var got []FrameInfo
	require.NoError(t, s.Frames(func(fi FrameInfo) bool {
		got = append(got, fi)
		return true
	}))
	require.Len(t, got, 4)
	assert.Equal(t, blobs[0].Get(), got[0].Offset.Get())
	assert.Equal(t, uint32(1), got[0].Length)
	assert.Equal(t, blobs[1].Get(), got[1].Offset.Get())
	assert.Equal(t, KindBlob, got[2].Kind)
	assert.Equal(t, roots[0].Frame.Get(), got[3].Offset.Get())
	assert.Equal(t, KindRoot, got[3].Kind)

	for _, fi := range got {
		kind, payload, err := s.ReadFrame(fi.Offset)
		require.NoError(t, err)
		assert.Equal(t, fi.Kind, kind)
		assert.Len(t, payload, int(fi.Length))
	}
}

func TestFramesCountPadding(t *testing.T) {
	f := newFile(t)
	start := uint64(HeaderWords + FrameHeaderWords)
	payload := make([]byte, word.Size)
	word.Put(payload, 0, word.Mark(start))
	offs := writeBlobs(t, f, payload)
	s := snapshot(t, f)

	var got []FrameInfo
	require.NoError(t, s.Frames(func(fi FrameInfo) bool {
		got = append(got, fi)
		return true
	}))
	require.Len(t, got, 1)
	assert.Equal(t, offs[0].Get(), got[0].Offset.Get())
	assert.Equal(t, offs[0].Get()-HeaderWords, got[0].Padding)
}

func TestReadSnapshot(t *testing.T) {
	f := newFile(t)
	commitValues(t, f, 4)
	require.NoError(t, f.Close())
	appendRaw(t, f.Path(), []byte{0xff})

	s, err := ReadSnapshot(f.Path())
	require.NoError(t, err)
	defer s.Release()

	assert.Equal(t, 0, s.Len()%word.Size)
	tip, err := s.Tip()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), tip.Meta)
}

func TestClone(t *testing.T) {
	f := newFile(t)
	writeBlobs(t, f, []byte("x"))
	s, err := f.Snapshot()
	require.NoError(t, err)

	c := s.Clone()
	require.NoError(t, s.Release())
	require.NoError(t, f.Close())

	assert.Equal(t, HeaderSize+int(frameSize(1)), c.Len())
	require.NoError(t, c.Release())
	assert.Nil(t, c.Bytes())
}
