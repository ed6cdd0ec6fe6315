package pile

import (
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oda/hoard/blob"
	"github.com/oda/hoard/word"
)

func commitValues(t *testing.T, f *File, values ...uint64) []Root {
	t.Helper()
	var roots []Root
	require.NoError(t, f.Enter(func(h *Hoard) error {
		for _, v := range values {
			o, err := Put(h, blob.Uint64, v)
			if err != nil {
				return err
			}
			r, err := h.Commit(o, v)
			if err != nil {
				return err
			}
			roots = append(roots, r)
		}
		return nil
	}))
	return roots
}

func TestNoRoot(t *testing.T) {
	f := newFile(t)
	writeBlobs(t, f, []byte("uncommitted"))
	s := snapshot(t, f)

	_, err := s.Tip()
	assert.ErrorIs(t, err, ErrNoRoot)
}

func TestCommitLayout(t *testing.T) {
	f := newFile(t)
	roots := commitValues(t, f, 42)
	r := roots[0]

	s := snapshot(t, f)
	assert.Equal(t, s.Words()-1, r.Mark)
	assert.Equal(t, r.Mark-RootWords, r.Frame.Get())
	assert.True(t, word.IsMark(r.Mark, word.Get(s.Bytes(), r.Mark)))

	tip, err := s.Tip()
	require.NoError(t, err)
	assert.Equal(t, r.Mark, tip.Mark)
	assert.Equal(t, r.Value.Get(), tip.Value.Get())
	assert.Equal(t, uint64(42), tip.Meta)
	assert.Same(t, s, tip.Value.Snapshot())
}

func TestRootsNewestFirst(t *testing.T) {
	f := newFile(t)
	roots := commitValues(t, f, 1, 2, 3)
	s := snapshot(t, f)

	scan := func() []Root {
		var got []Root
		require.NoError(t, s.Roots(func(r Root) bool {
			got = append(got, r)
			return true
		}))
		return got
	}
	first := scan()
	require.Len(t, first, 3)
	for i, r := range first {
		want := roots[len(roots)-1-i]
		assert.Equal(t, want.Mark, r.Mark)
		assert.Equal(t, want.Value.Get(), r.Value.Get())
		assert.Equal(t, want.Meta, r.Meta)

		v, err := Load(nil, blob.Uint64, r.Value, 0).TryGet(nil)
		require.NoError(t, err)
		assert.Equal(t, want.Meta, v)
	}

	assert.Equal(t, first, scan(), "repeated scans agree")
}

func TestRootsStop(t *testing.T) {
	f := newFile(t)
	commitValues(t, f, 1, 2, 3)
	s := snapshot(t, f)

	var n int
	require.NoError(t, s.Roots(func(Root) bool {
		n++
		return false
	}))
	assert.Equal(t, 1, n)
}

func TestTipAfterMoreWrites(t *testing.T) {
	f := newFile(t)
	roots := commitValues(t, f, 7)
	writeBlobs(t, f, []byte("after the commit"))

	s := snapshot(t, f)
	tip, err := s.Tip()
	require.NoError(t, err)
	assert.Equal(t, roots[0].Mark, tip.Mark)
}

func TestTipAfterReopen(t *testing.T) {
	f := newFile(t)
	roots := commitValues(t, f, 1, 2)
	require.NoError(t, f.Close())

	g, err := Open(f.Path())
	require.NoError(t, err)
	defer g.Close()
	s := snapshot(t, g)

	bag, err := LoadRoot(s, blob.Uint64, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), bag.Get())
	off, ok := bag.Offset()
	require.True(t, ok)
	assert.Equal(t, roots[1].Value.Get(), off.Get())
}

func TestCommitOutOfRange(t *testing.T) {
	f := newFile(t)
	err := f.Enter(func(h *Hoard) error {
		_, err := h.Commit(mustOffset(1000), 0)
		return err
	})
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestCommitNeedsBlob(t *testing.T) {
	f := newFile(t)
	roots := commitValues(t, f, 5)
	pending := writeBlobs(t, f, []byte("not yet flushed"))

	for _, o := range []Offset{roots[0].Frame, mustOffset(roots[0].Mark)} {
		err := f.Enter(func(h *Hoard) error {
			_, err := h.Commit(o, 0)
			return err
		})
		assert.ErrorIs(t, err, ErrBadFrame, "commit of %s", o)
	}

	err := f.Enter(func(h *Hoard) error {
		_, err := h.Commit(pending[0], 15)
		return err
	})
	require.NoError(t, err)
	tip, err := snapshot(t, f).Tip()
	require.NoError(t, err)
	assert.Equal(t, pending[0].Get(), tip.Value.Get())
}

func TestCommitMetrics(t *testing.T) {
	m := NewMetrics(nil)
	f := newFile(t, WithMetrics(m), WithSyncOnCommit(false))
	commitValues(t, f, 1, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Commits))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.BlobsWritten))
}

func TestStrayMarkBeforeRootFrame(t *testing.T) {
	f := newFile(t)
	require.NoError(t, f.Close())
	mark := word.Bytes(word.Mark(HeaderWords))
	appendRaw(t, f.Path(), mark[:])

	g, err := Open(f.Path())
	require.NoError(t, err)
	defer g.Close()
	s := snapshot(t, g)

	_, err = s.Tip()
	assert.ErrorIs(t, err, ErrBadFrame)
}

func TestReadBlobChecksum(t *testing.T) {
	f := newFile(t)
	offs := writeBlobs(t, f, []byte("hello world!"))
	require.NoError(t, f.Enter(func(h *Hoard) error {
		_, err := h.Commit(offs[0], 12)
		return err
	}))
	require.NoError(t, f.Close())

	raw, err := os.OpenFile(f.Path(), os.O_RDWR, 0)
	require.NoError(t, err)
	_, err = raw.WriteAt([]byte{'H'}, int64((offs[0].Get()+FrameHeaderWords)*word.Size))
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	g, err := Open(f.Path())
	require.NoError(t, err)
	defer g.Close()
	s := snapshot(t, g)

	_, err = s.ReadBlob(offs[0])
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestReadBlobKind(t *testing.T) {
	f := newFile(t)
	roots := commitValues(t, f, 5)
	s := snapshot(t, f)

	_, err := s.ReadBlob(roots[0].Frame)
	assert.ErrorIs(t, err, ErrBadFrame)
	_, err = s.ReadBlob(mustOffset(0))
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestReleasedSnapshot(t *testing.T) {
	f := newFile(t)
	s, err := f.Snapshot()
	require.NoError(t, err)
	require.NoError(t, s.Release())

	assert.ErrorIs(t, s.Release(), ErrClosed)
	_, err = s.ReadBlob(mustOffset(HeaderWords))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Roots(func(Root) bool { return true }), ErrClosed)
	_, err = s.Header()
	assert.ErrorIs(t, err, ErrClosed)
}
