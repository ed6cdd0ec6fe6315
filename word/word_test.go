package word_test

import (
	"math"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oda/hoard/word"
)

func TestMark(t *testing.T) {
	assert.Equal(t, uint64(math.MaxUint64), word.Mark(0))
	assert.Equal(t, uint64(math.MaxUint64-42), word.Mark(42))
	assert.True(t, word.IsMark(7, math.MaxUint64-7))
	assert.False(t, word.IsMark(7, 7))
}

func TestAlignCount(t *testing.T) {
	assert.Equal(t, uint64(0), word.Align(0))
	assert.Equal(t, uint64(8), word.Align(1))
	assert.Equal(t, uint64(8), word.Align(8))
	assert.Equal(t, uint64(16), word.Align(9))
	assert.Equal(t, uint64(2), word.Count(12))
}

func TestStream_Stitching(t *testing.T) {
	header := []byte{1, 2, 3}
	payload := []byte{4, 5, 6, 7, 8, 9, 10}

	words := word.Words(header, payload)
	require.Len(t, words, 2)
	assert.Equal(t, uint64(0x0807060504030201), words[0])
	assert.Equal(t, uint64(0x0a09), words[1])
}

func TestStream_EmptyParts(t *testing.T) {
	assert.Empty(t, word.Words())
	assert.Empty(t, word.Words(nil, []byte{}))

	words := word.Words(nil, []byte{0xff}, nil)
	require.Len(t, words, 1)
	assert.Equal(t, uint64(0xff), words[0])
}

func TestStream_MatchesConcatenation(t *testing.T) {
	f := fuzz.New().NilChance(0).NumElements(0, 40)
	for i := 0; i < 200; i++ {
		var a, b, c []byte
		f.Fuzz(&a)
		f.Fuzz(&b)
		f.Fuzz(&c)

		joined := append(append(append([]byte{}, a...), b...), c...)
		padded := make([]byte, word.Align(uint64(len(joined))))
		copy(padded, joined)

		words := word.Words(a, b, c)
		require.Len(t, words, len(padded)/word.Size)
		for j, w := range words {
			assert.Equal(t, word.Get(padded, uint64(j)), w)
		}
	}
}

func TestCalcPaddingWordsRequired_Collision(t *testing.T) {
	header := []byte{0xfe, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	payload := []byte{0xfe}

	p := word.CalcPaddingWordsRequired(math.MaxUint64-0xff, header, payload)
	assert.Equal(t, uint64(1), p)
}

func TestCalcPaddingWordsRequired_NoCollision(t *testing.T) {
	assert.Equal(t, uint64(0), word.CalcPaddingWordsRequired(2, []byte("hello"), []byte(" world!")))
	assert.Equal(t, uint64(0), word.CalcPaddingWordsRequired(2, nil, nil))
}

func TestCalcPaddingWordsRequired_Chain(t *testing.T) {
	// Every word is the mark of its own position at p=0.
	start := uint64(100)
	words := []byte{}
	for i := uint64(0); i < 4; i++ {
		b := word.Bytes(word.Mark(start + i))
		words = append(words, b[:]...)
	}
	assert.Equal(t, uint64(1), word.CalcPaddingWordsRequired(start, words, nil))

	b := word.Bytes(word.Mark(start + 1))
	self := append(append([]byte{}, b[:]...), b[:]...)
	// word 0 collides at p=1, word 1 collides at p=0.
	assert.Equal(t, uint64(2), word.CalcPaddingWordsRequired(start, self, nil))
}

func TestCalcPaddingWordsRequired_Idempotent(t *testing.T) {
	f := fuzz.New().NilChance(0).NumElements(0, 64)
	for i := 0; i < 500; i++ {
		var start uint64
		var payload []byte
		f.Fuzz(&start)
		f.Fuzz(&payload)
		start &= 1<<62 - 1

		// Seed a collision at position 0 half of the time.
		var header []byte
		if i%2 == 0 {
			b := word.Bytes(word.Mark(start))
			header = b[:]
		}

		p := word.CalcPaddingWordsRequired(start, header, payload)
		assert.Equal(t, uint64(0), word.CalcPaddingWordsRequired(start+p, header, payload))
		assert.False(t, word.Conflicts(start+p, word.Words(header, payload)))
		for q := uint64(0); q < p; q++ {
			assert.True(t, word.Conflicts(start+q, word.Words(header, payload)), "p=%d is not minimal", p)
		}
	}
}
