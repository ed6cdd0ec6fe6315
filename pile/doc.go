// Package pile is an append-only, memory-mapped store of typed values.
//
// A pile file is a 16-byte Header followed by word-aligned frames. Each
// frame is preceded by as many zero words as needed to keep every one of
// its words different from the mark of its position, so a word equal to
// its own mark only ever appears where Commit wrote it. Commit appends a
// root frame holding the committed value's offset and metadata, then the
// mark. Readers find roots by scanning backwards from the end of a
// Snapshot; no index is kept.
//
//	f, err := pile.Create(path)
//	...
//	err = f.Enter(func(h *pile.Hoard) error {
//		o, err := pile.Put(h, blob.Uint64, 42)
//		if err != nil {
//			return err
//		}
//		_, err = h.Commit(o, 0)
//		return err
//	})
//	...
//	s, err := f.Snapshot()
//	defer s.Release()
//	bag, err := pile.LoadRoot(s, blob.Uint64, nil)
//
// Values loaded from a snapshot are clean: they are read in place and
// validated on access. GetMut copies a clean value to the heap once; from
// then on the handle is dirty and Save writes it back as a new blob.
package pile
