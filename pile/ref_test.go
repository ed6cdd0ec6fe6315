package pile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oda/hoard/blob"
)

// node is a singly linked list cell pointing at the previously written
// cell.
type node struct {
	Value uint64
	Prev  *Ref[node]
}

type nodeCodec struct{}

var prevCodec = blob.Option(RefCodec[node](nodeCodec{}))

func (nodeCodec) Layout() blob.Layout {
	return blob.Layouts(blob.Uint64.Layout(), prevCodec.Layout())
}

func (c nodeCodec) BlobLen(uint64) (int, error) { return c.Layout().Size, nil }
func (nodeCodec) Metadata(node) uint64          { return 0 }

func (nodeCodec) ValidateBlob(b blob.Blob[node]) (blob.ValidBlob[node], error) {
	f := b.Fields()
	if _, err := blob.Field(f, blob.Uint64); err != nil {
		return blob.ValidBlob[node]{}, err
	}
	if _, err := blob.Field(f, prevCodec); err != nil {
		return blob.ValidBlob[node]{}, err
	}
	return f.Done(), nil
}

func (nodeCodec) DecodeBlob(v blob.ValidBlob[node]) node {
	d := v.Decoder()
	n := node{
		Value: blob.DecodeField(d, blob.Uint64),
		Prev:  blob.DecodeField(d, prevCodec),
	}
	d.Done()
	return n
}

func (nodeCodec) EncodeBlob(dst []byte, n node) {
	e := blob.NewEncoder(dst)
	blob.EncodeField(e, blob.Uint64, n.Value)
	blob.EncodeField(e, prevCodec, n.Prev)
	e.Done()
}

func (c nodeCodec) ValidateChildren(z Zone, parent Offset, v blob.ValidBlob[node]) error {
	n := v.Decode()
	if n.Prev == nil {
		return nil
	}
	return ValidateRef[node](z, c, parent, *n.Prev)
}

func TestRefLayout(t *testing.T) {
	assert.Equal(t, 16, RefCodec[node](nodeCodec{}).Layout().Size)
	assert.Equal(t, 16, prevCodec.Layout().Size, "Option uses the offset niche")
	assert.Equal(t, 24, nodeCodec{}.Layout().Size)
}

func TestLinkedList(t *testing.T) {
	f := newFile(t)
	var head Ref[node]
	require.NoError(t, f.Enter(func(h *Hoard) error {
		var prev *Ref[node]
		for i := uint64(1); i <= 3; i++ {
			r, err := PutRef[node](h, nodeCodec{}, node{Value: i, Prev: prev})
			if err != nil {
				return err
			}
			head = r
			prev = &r
		}
		_, err := h.Commit(head.Offset, head.Meta)
		return err
	}))
	s := snapshot(t, f)

	full, err := LoadFullyValid[node](s, nodeCodec{}, head.Offset, head.Meta)
	require.NoError(t, err)
	n := full.Decode()
	assert.Equal(t, uint64(3), n.Value)

	var values []uint64
	for {
		values = append(values, n.Value)
		if n.Prev == nil {
			break
		}
		n = n.Prev.Own(nil, nodeCodec{}).Get(s)
	}
	assert.Equal(t, []uint64{3, 2, 1}, values)
}

func TestRefMustPointBackwards(t *testing.T) {
	f := newFile(t)
	var off Offset
	require.NoError(t, f.Enter(func(h *Hoard) error {
		o, err := Put[node](h, nodeCodec{}, node{Value: 1, Prev: &Ref[node]{Offset: mustOffset(1000)}})
		off = o
		return err
	}))
	s := snapshot(t, f)

	// Structurally the node is fine.
	_, err := Load[node](nil, nodeCodec{}, off, 0).TryGet(s)
	require.NoError(t, err)

	_, err = LoadFullyValid[node](s, nodeCodec{}, off, 0)
	var corrupt *CorruptionError
	require.ErrorAs(t, err, &corrupt)
	assert.ErrorIs(t, err, ErrBadOffset)
}

func TestRefToWrongType(t *testing.T) {
	f := newFile(t)
	var off Offset
	require.NoError(t, f.Enter(func(h *Hoard) error {
		bytesOff, err := Put(h, blob.Bytes, []byte("not a node"))
		if err != nil {
			return err
		}
		off, err = Put[node](h, nodeCodec{}, node{Value: 2, Prev: &Ref[node]{Offset: bytesOff}})
		return err
	}))
	s := snapshot(t, f)

	_, err := LoadFullyValid[node](s, nodeCodec{}, off, 0)
	assert.ErrorIs(t, err, ErrLength)
}

func TestFullyValidateLeaf(t *testing.T) {
	_, s, off := committedUint64(t, 1)
	full, err := LoadFullyValid(s, blob.Uint64, off, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), full.Decode())
}
