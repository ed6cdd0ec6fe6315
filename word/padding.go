package word

// Conflicts reports whether any of words, placed starting at word index
// start, equals the mark for its own position.
func Conflicts(start uint64, words []Word) bool {
	for i, w := range words {
		if IsMark(start+uint64(i), w) {
			return true
		}
	}
	return false
}

// CalcPaddingWordsRequired returns the smallest number of zero words p
// such that none of the words formed by header followed by payload,
// written starting at word index offset+p, collides with the mark for its
// position.
//
// The search always terminates: each increment of p changes the target
// mark of every position, and a window of n words can block at most n
// values of p.
func CalcPaddingWordsRequired(offset uint64, header, payload []byte) uint64 {
	words := Words(header, payload)
	var p uint64
	for Conflicts(offset+p, words) {
		p++
	}
	return p
}
