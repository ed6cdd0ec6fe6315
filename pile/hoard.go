package pile

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/oda/hoard/blob"
	"github.com/oda/hoard/word"
)

var zeroWord [word.Size]byte

// Hoard is the writing context of a File, handed out by Enter.
type Hoard struct {
	file *File
}

func (h *Hoard) lock() (*File, error) {
	f := h.file
	if f == nil {
		return nil, errors.Wrap(ErrClosed, "pile: writer used after Enter returned")
	}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	return f, nil
}

// WriteBlob appends payload as a blob frame and returns its offset.
func (h *Hoard) WriteBlob(payload []byte) (Offset, error) {
	f, err := h.lock()
	if err != nil {
		return Offset{}, err
	}
	defer f.mu.Unlock()
	return f.writeFrame(KindBlob, payload)
}

// Commit publishes value as the newest root: it appends a root frame and
// the mark after it, flushes, and fsyncs unless WithSyncOnCommit(false)
// was given. value must be the offset of a blob frame.
func (h *Hoard) Commit(value Offset, meta uint64) (Root, error) {
	f, err := h.lock()
	if err != nil {
		return Root{}, err
	}
	defer f.mu.Unlock()

	if value.Get() < HeaderWords || value.Get() >= f.size/word.Size {
		return Root{}, errors.Wrapf(ErrOutOfRange, "commit of %s", value)
	}
	if err := f.flush(); err != nil {
		return Root{}, err
	}
	if err := f.checkBlob(value.Get()); err != nil {
		return Root{}, errors.Wrapf(err, "commit of %s", value)
	}

	var payload [RootPayloadSize]byte
	binary.LittleEndian.PutUint64(payload[0:8], value.Encode())
	binary.LittleEndian.PutUint64(payload[8:16], meta)
	frame, err := f.writeFrame(KindRoot, payload[:])
	if err != nil {
		return Root{}, err
	}
	if err := f.flush(); err != nil {
		return Root{}, err
	}

	at := f.size / word.Size
	mark := word.Bytes(word.Mark(at))
	if err := f.append(mark[:]); err != nil {
		return Root{}, err
	}
	if err := f.flush(); err != nil {
		return Root{}, err
	}
	if f.cfg.syncOnCommit {
		if err := f.f.Sync(); err != nil {
			return Root{}, errors.Wrapf(err, "pile: sync %s", f.path)
		}
	}

	f.cfg.metrics.Commits.Inc()
	f.cfg.metrics.BytesWritten.Add(word.Size)
	f.log.WithFields(logrus.Fields{
		"mark":  at,
		"value": value,
		"meta":  meta,
	}).Debug("committed root")
	return Root{Mark: at, Frame: frame, Value: value.Unbind(), Meta: meta}, nil
}

// Snapshot is File.Snapshot.
func (h *Hoard) Snapshot() (*Snapshot, error) {
	if h.file == nil {
		return nil, errors.Wrap(ErrClosed, "pile: writer used after Enter returned")
	}
	return h.file.Snapshot()
}

// Put encodes v with c and writes it as a blob.
func Put[T any](h *Hoard, c blob.Codec[T], v T) (Offset, error) {
	n, err := c.BlobLen(c.Metadata(v))
	if err != nil {
		return Offset{}, errors.Wrap(err, "pile: encode")
	}
	buf := make([]byte, n)
	c.EncodeBlob(buf, v)
	return h.WriteBlob(buf)
}

// writeFrame appends a frame after the padding that keeps each of its
// words from equalling the mark of its position. f.mu must be held.
func (f *File) writeFrame(kind Kind, payload []byte) (Offset, error) {
	if uint64(len(payload)) > MaxBlobSize {
		return Offset{}, errors.Wrapf(ErrBlobTooLarge, "%d bytes", len(payload))
	}
	hdr := newFrameHeader(kind, payload).encode()

	start := f.size / word.Size
	pad := word.CalcPaddingWordsRequired(start, hdr[:], payload)
	at := start + pad
	end := at + FrameHeaderWords + word.Count(uint64(len(payload)))
	if end < at || end > MaxOffset {
		panic("pile: write past MaxOffset")
	}

	for i := uint64(0); i < pad; i++ {
		if err := f.append(zeroWord[:]); err != nil {
			return Offset{}, err
		}
	}
	if err := f.append(hdr[:]); err != nil {
		return Offset{}, err
	}
	if err := f.append(payload); err != nil {
		return Offset{}, err
	}
	if tail := word.Align(uint64(len(payload))) - uint64(len(payload)); tail > 0 {
		if err := f.append(zeroWord[:tail]); err != nil {
			return Offset{}, err
		}
	}

	f.cfg.metrics.BlobsWritten.Inc()
	f.cfg.metrics.PaddingWords.Add(float64(pad))
	f.cfg.metrics.BytesWritten.Add(float64((end - start) * word.Size))
	return mustOffset(at), nil
}
