package pile

import (
	"bufio"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/oda/hoard/internal/mmap"
	"github.com/oda/hoard/word"
)

// File is an open pile: the file handle, the append buffer and the
// current mapping.
//
// A File is safe for concurrent use. At most one writer, obtained through
// Enter, may exist at a time; Snapshot may be called from any goroutine,
// including while the writer is appending.
type File struct {
	path string
	cfg  config
	log  logrus.FieldLogger

	mu      sync.Mutex
	f       *os.File
	w       *bufio.Writer
	size    uint64 // bytes appended, including buffered ones
	flushed uint64 // bytes known to be in the file
	mapped  *Snapshot
	active  bool
	closed  bool
	lock    *os.File
}

// Create creates or truncates the file at path, writes the header and
// opens it. With WithExclusiveLock the lock is taken before the file is
// touched, so a pile held by another writer is left intact.
func Create(path string, opts ...Option) (*File, error) {
	cfg := applyOptions(opts)
	lock, err := takeLock(path, cfg)
	if err != nil {
		return nil, err
	}
	if err := writeHeader(path); err != nil {
		if lock != nil {
			unlockFile(lock)
		}
		return nil, err
	}
	return open(path, cfg, lock)
}

func writeHeader(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrapf(err, "pile: create %s", path)
	}

	var buf [HeaderSize]byte
	h := DefaultHeader()
	h.Serialize(buf[:])
	if _, err := f.Write(buf[:]); err != nil {
		f.Close()
		return errors.Wrapf(err, "pile: write header %s", path)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return errors.Wrapf(err, "pile: sync %s", path)
	}
	return errors.Wrapf(f.Close(), "pile: close %s", path)
}

// Open opens an existing pile for reading and appending.
func Open(path string, opts ...Option) (*File, error) {
	cfg := applyOptions(opts)
	lock, err := takeLock(path, cfg)
	if err != nil {
		return nil, err
	}
	return open(path, cfg, lock)
}

func takeLock(path string, cfg config) (*os.File, error) {
	if !cfg.exclusiveLock {
		return nil, nil
	}
	return lockFile(path)
}

// open opens path for appending. lock, if not nil, is owned by the
// returned File and released on failure.
func open(path string, cfg config, lock *os.File) (*File, error) {
	log := cfg.log.WithField("path", path)
	fail := func(f *os.File, err error) (*File, error) {
		if f != nil {
			f.Close()
		}
		if lock != nil {
			unlockFile(lock)
		}
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND, 0)
	if err != nil {
		return fail(nil, errors.Wrapf(err, "pile: open %s", path))
	}
	size, err := checkFile(f, path)
	if err != nil {
		return fail(f, err)
	}

	// A torn append leaves a partial word behind. It was never committed:
	// the mark of a commit is written only after everything before it.
	if tail := size % word.Size; tail != 0 {
		log.WithField("bytes", tail).Warn("truncating partial trailing word")
		size -= tail
		if err := f.Truncate(int64(size)); err != nil {
			return fail(f, errors.Wrapf(err, "pile: truncate %s", path))
		}
	}

	m, err := mmap.Open(f, int64(size), cfg.access)
	if err != nil {
		return fail(f, errors.Wrapf(err, "pile: map %s", path))
	}

	// It can also leave whole words of a frame that never finished.
	// Appending after them would bury later frames inside its length.
	if end := intactEnd(m.Data()); end < size {
		log.WithFields(logrus.Fields{
			"size": size,
			"end":  end,
		}).Warn("truncating interrupted append")
		if err := m.Release(); err != nil {
			return fail(f, errors.Wrapf(err, "pile: unmap %s", path))
		}
		size = end
		if err := f.Truncate(int64(size)); err != nil {
			return fail(f, errors.Wrapf(err, "pile: truncate %s", path))
		}
		if m, err = mmap.Open(f, int64(size), cfg.access); err != nil {
			return fail(f, errors.Wrapf(err, "pile: map %s", path))
		}
	}

	log.WithField("size", size).Info("opened pile")
	return &File{
		path:    path,
		cfg:     cfg,
		log:     log,
		f:       f,
		w:       bufio.NewWriterSize(f, cfg.bufferSize),
		size:    size,
		flushed: size,
		mapped:  newSnapshot(m, log),
		lock:    lock,
	}, nil
}

// intactEnd returns the length of data up to its last mark followed by
// every whole, checksum-valid frame after it. Marks are only written once
// their frame is complete, so nothing before the last mark is torn.
func intactEnd(data []byte) uint64 {
	n := uint64(len(data)) / word.Size
	i := n
	for i > HeaderWords && !word.IsMark(i-1, word.Get(data, i-1)) {
		i--
	}
	end := i
	for i < n {
		if word.Get(data, i) == 0 {
			i++
			continue
		}
		h, _, err := decodeFrame(data, i)
		if err != nil {
			break
		}
		i += FrameHeaderWords + word.Count(uint64(h.Length))
		end = i
	}
	return end * word.Size
}

// ReadSnapshot maps the pile at path without opening it for writing. A
// partial trailing word is left out of the mapping.
func ReadSnapshot(path string, opts ...Option) (*Snapshot, error) {
	cfg := applyOptions(opts)
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "pile: open %s", path)
	}
	defer f.Close()

	size, err := checkFile(f, path)
	if err != nil {
		return nil, err
	}
	m, err := mmap.Open(f, int64(size-size%word.Size), cfg.access)
	if err != nil {
		return nil, errors.Wrapf(err, "pile: map %s", path)
	}
	cfg.metrics.Snapshots.Inc()
	return newSnapshot(m, cfg.log.WithField("path", path)), nil
}

// checkFile validates the header of f and returns its size.
func checkFile(f *os.File, path string) (uint64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, errors.Wrapf(err, "pile: stat %s", path)
	}
	size := uint64(info.Size())
	if size < HeaderSize {
		return 0, errors.Wrapf(io.ErrUnexpectedEOF, "pile: %s is %d bytes, shorter than its header", path, size)
	}

	var buf [HeaderSize]byte
	if _, err := f.ReadAt(buf[:], 0); err != nil {
		return 0, errors.Wrapf(err, "pile: read header %s", path)
	}
	var h Header
	h.Deserialize(buf[:])
	if err := h.Validate(); err != nil {
		return 0, errors.Wrap(err, path)
	}
	return size, nil
}

// Path returns the file's path.
func (f *File) Path() string { return f.path }

// Size returns the number of bytes appended so far, including bytes not
// yet flushed.
func (f *File) Size() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}

// Enter runs fn with the file's writer. The writer must not be used after
// fn returns. A second Enter while fn runs fails with ErrWriterActive.
func (f *File) Enter(fn func(h *Hoard) error) error {
	f.mu.Lock()
	switch {
	case f.closed:
		f.mu.Unlock()
		return ErrClosed
	case f.active:
		f.mu.Unlock()
		return ErrWriterActive
	}
	f.active = true
	f.mu.Unlock()

	h := &Hoard{file: f}
	defer func() {
		h.file = nil
		f.mu.Lock()
		f.active = false
		f.mu.Unlock()
	}()
	return fn(h)
}

// Snapshot flushes pending writes and returns a snapshot covering
// everything appended so far. When nothing was appended since the last
// call the current mapping is shared. The caller must Release it.
func (f *File) Snapshot() (*Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}
	if err := f.flush(); err != nil {
		return nil, err
	}
	if uint64(f.mapped.Len()) != f.size {
		m, err := mmap.Open(f.f, int64(f.size), f.cfg.access)
		if err != nil {
			return nil, errors.Wrapf(err, "pile: map %s", f.path)
		}
		old := f.mapped
		f.mapped = newSnapshot(m, f.log)
		if err := old.Release(); err != nil {
			f.log.WithError(err).Warn("failed to release previous mapping")
		}
		f.cfg.metrics.SnapshotRemaps.Inc()
		f.log.WithField("size", f.size).Debug("remapped pile")
	}
	f.cfg.metrics.Snapshots.Inc()
	return f.mapped.Clone(), nil
}

// Close flushes pending writes and closes the file. Snapshots handed out
// earlier stay valid until released.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if f.active {
		return ErrWriterActive
	}
	f.closed = true

	err := f.flush()
	if rerr := f.mapped.Release(); err == nil {
		err = rerr
	}
	if cerr := f.f.Close(); err == nil && cerr != nil {
		err = errors.Wrapf(cerr, "pile: close %s", f.path)
	}
	if f.lock != nil {
		if uerr := unlockFile(f.lock); err == nil {
			err = uerr
		}
	}
	return err
}

// checkBlob reports whether a whole blob frame starts at word w. f.mu
// must be held and the buffer flushed.
func (f *File) checkBlob(w uint64) error {
	var buf [FrameHeaderSize]byte
	at := w * word.Size
	if at+FrameHeaderSize > f.size {
		return errors.Wrapf(ErrOutOfRange, "frame header at word %d", w)
	}
	if _, err := f.f.ReadAt(buf[:], int64(at)); err != nil {
		return errors.Wrapf(err, "pile: read %s", f.path)
	}
	h, err := decodeFrameHeader(buf[:])
	if err != nil {
		return errors.Wrapf(err, "word %d", w)
	}
	if h.Kind != KindBlob {
		return errors.Wrapf(ErrBadFrame, "word %d: kind %s, want %s", w, h.Kind, KindBlob)
	}
	if at+frameSize(int(h.Length)) > f.size {
		return errors.Wrapf(ErrOutOfRange, "payload of %d bytes at word %d", h.Length, w)
	}
	return nil
}

// flush writes buffered bytes to the file. f.mu must be held.
func (f *File) flush() error {
	if f.w.Buffered() == 0 {
		return nil
	}
	if err := f.w.Flush(); err != nil {
		return f.rollback(errors.Wrapf(err, "pile: flush %s", f.path))
	}
	f.flushed = f.size
	return nil
}

// append buffers b. f.mu must be held.
func (f *File) append(b []byte) error {
	if _, err := f.w.Write(b); err != nil {
		return f.rollback(errors.Wrapf(err, "pile: write %s", f.path))
	}
	f.size += uint64(len(b))
	return nil
}

// rollback discards everything appended since the last successful flush
// so the next write starts from a consistent end of file.
func (f *File) rollback(cause error) error {
	f.w.Reset(f.f)
	if err := f.f.Truncate(int64(f.flushed)); err != nil {
		f.log.WithError(err).Error("failed to truncate after write error")
	}
	f.log.WithError(cause).WithFields(logrus.Fields{
		"size":    f.size,
		"flushed": f.flushed,
	}).Warn("discarding unflushed appends")
	f.size = f.flushed
	return cause
}
