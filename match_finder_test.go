package lzma

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// drainMatches runs a finder over data and returns the match lists per
// position, verifying every reported match against the raw bytes.
func drainMatches(t *testing.T, mf matchFinder, data []byte) [][]uint32 {
	t.Helper()
	r := require.New(t)

	r.NoError(mf.Continue(bytes.NewReader(data)))

	var all [][]uint32
	buf := make([]uint32, maxMatchPairs)

	for pos := 0; pos < len(data); pos++ {
		n, err := mf.GetMatches(buf)
		r.NoError(err)

		pairs := append([]uint32(nil), buf[:n]...)
		all = append(all, pairs)

		prevLen := uint32(0)
		for i := uint32(0); i < n; i += 2 {
			length := pairs[i]
			dist := pairs[i+1]

			r.Greater(length, prevLen, "pos %d: lengths must ascend", pos)
			prevLen = length

			src := pos - int(dist) - 1
			r.GreaterOrEqual(src, 0, "pos %d: distance in range", pos)
			r.LessOrEqual(int(length), len(data)-pos)
			r.Equal(data[src:src+int(length)], data[pos:pos+int(length)],
				"pos %d: match (len=%d dist=%d) must reproduce the data", pos, length, dist+1)
		}
	}

	return all
}

func TestBinTreeFindsRepeats(t *testing.T) {
	data := append([]byte("abcdefgh0123"), []byte("abcdefgh9999abcdefgh")...)

	mf := newBinTree(1<<16, 64, 0)
	all := drainMatches(t, mf, data)

	// The second "abcdefgh" must be found at distance 12.
	found := false
	for i := uint32(0); i < uint32(len(all[12])); i += 2 {
		if all[12][i] >= 8 && all[12][i+1] == 11 {
			found = true
		}
	}
	require.True(t, found, "expected len>=8 dist=12 match at position 12, got %v", all[12])
}

func TestHashChainFindsRepeats(t *testing.T) {
	data := append([]byte("abcdefgh0123"), []byte("abcdefgh9999abcdefgh")...)

	mf := newHashChain(1<<16, 64, 0)
	all := drainMatches(t, mf, data)

	found := false
	for i := uint32(0); i < uint32(len(all[12])); i += 2 {
		if all[12][i] >= 8 && all[12][i+1] == 11 {
			found = true
		}
	}
	require.True(t, found, "expected len>=8 dist=12 match at position 12, got %v", all[12])
}

func TestMatchFindersOnRandomData(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	data := make([]byte, 1<<15)
	for i := range data {
		// Small alphabet forces plenty of matches.
		data[i] = byte('a' + rng.Intn(4))
	}

	t.Run("bt4", func(t *testing.T) {
		drainMatches(t, newBinTree(1<<14, 32, 0), data)
	})
	t.Run("hc4", func(t *testing.T) {
		drainMatches(t, newHashChain(1<<14, 32, 0), data)
	})
}

func TestMatchFinderSkip(t *testing.T) {
	r := require.New(t)

	data := bytes.Repeat([]byte("abcd"), 64)

	mf := newBinTree(1<<12, 32, 0)
	r.NoError(mf.Continue(bytes.NewReader(data)))

	buf := make([]uint32, maxMatchPairs)

	_, err := mf.GetMatches(buf)
	r.NoError(err)
	r.NoError(mf.Skip(7))

	// Position 8: the skipped positions were still indexed, so the
	// period-4 repeat is visible.
	n, err := mf.GetMatches(buf)
	r.NoError(err)
	r.NotZero(n)

	r.Equal(uint32(len(data)-9), mf.AvailableBytes())
}

func TestMatchFinderContinueKeepsHistory(t *testing.T) {
	r := require.New(t)

	mf := newBinTree(1<<12, 32, 0)

	first := []byte("the quick brown fox ")
	r.NoError(mf.Continue(bytes.NewReader(first)))
	r.NoError(mf.Skip(uint32(len(first))))
	r.Zero(mf.AvailableBytes())

	// The second segment repeats the first; matches must reach back
	// across the segment boundary.
	second := []byte("the quick brown fox!")
	r.NoError(mf.Continue(bytes.NewReader(second)))

	buf := make([]uint32, maxMatchPairs)
	n, err := mf.GetMatches(buf)
	r.NoError(err)
	r.NotZero(n)

	best := buf[n-2]
	dist := buf[n-1]
	r.GreaterOrEqual(best, uint32(19))
	r.Equal(uint32(len(first)-1), dist)
}

func TestMatchFinderReset(t *testing.T) {
	r := require.New(t)

	mf := newBinTree(1<<12, 32, 0)

	first := []byte("repeated text, repeated text")
	r.NoError(mf.Continue(bytes.NewReader(first)))
	r.NoError(mf.Skip(uint32(len(first))))

	mf.Reset()

	// After a reset nothing from the first segment may be found.
	r.NoError(mf.Continue(bytes.NewReader([]byte("repeated text"))))

	buf := make([]uint32, maxMatchPairs)
	n, err := mf.GetMatches(buf)
	r.NoError(err)
	r.Zero(n)
}
