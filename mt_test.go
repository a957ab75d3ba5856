package lzma

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMTRoundTrip(t *testing.T) {
	data := mixedCorpus(1<<20, 31)

	for _, threads := range []int{1, 2} {
		conf := &WriterConfig{Level: 5, MTThreads: threads}
		enc := compress2(t, data, conf)
		require.Equal(t, data, decompress2(t, enc, 0), "threads=%d", threads)
	}
}

func TestMTThreadCountEquivalence(t *testing.T) {
	r := require.New(t)

	// The pipeline produces the same block stream regardless of how
	// many goroutines run it, so the encoded bytes must be identical.
	data := mixedCorpus(2<<20, 32)

	enc1 := compress2(t, data, &WriterConfig{Level: 5, MTThreads: 1})
	enc2 := compress2(t, data, &WriterConfig{Level: 5, MTThreads: 2})

	r.Equal(enc1, enc2)
	r.Equal(data, decompress2(t, enc1, 0))
}

func TestMTHashChain(t *testing.T) {
	data := mixedCorpus(1<<19, 33)

	conf := &WriterConfig{
		Level: -1, DictSize: 1 << 18, LC: 3, PB: 2,
		NumFastBytes: 32, MatchFinder: MatchFinderHC4, Algo: AlgoFast,
		MTThreads: 2,
	}
	enc := compress2(t, data, conf)
	require.Equal(t, data, decompress2(t, enc, 0))
}

func TestMTLzma1(t *testing.T) {
	data := mixedCorpus(1<<19, 34)

	conf := &WriterConfig{Level: 5, MTThreads: 2}
	enc := compress1(t, data, conf)
	require.Equal(t, data, decompress1(t, enc))
}

func TestMTSegmentsShareDictionary(t *testing.T) {
	r := require.New(t)

	// Two identical staging segments: with a shared dictionary the
	// second must compress to almost nothing.
	seg := mixedCorpus(writer2SegmentSize, 35)
	data := append(append([]byte(nil), seg...), seg...)

	conf := &WriterConfig{Level: 5, MTThreads: 2, DictSize: 1 << 22}
	enc := compress2(t, data, conf)

	single := compress2(t, seg, &WriterConfig{Level: 5, MTThreads: 2, DictSize: 1 << 22})
	r.Less(len(enc), len(single)+len(single)/4+4096,
		"the repeated half must be nearly free")

	r.Equal(data, decompress2(t, enc, 0))
}

func TestMTFinderMatchesAreValid(t *testing.T) {
	r := require.New(t)

	data := mixedCorpus(1<<16, 36)

	inner := newBinTree(1<<16, 32, 0)
	mf := newMatchFinderMT(inner, 2)
	defer mf.Close()

	r.NoError(mf.Continue(bytes.NewReader(data)))

	buf := make([]uint32, maxMatchPairs)
	for pos := 0; pos < len(data); pos++ {
		n, err := mf.GetMatches(buf)
		r.NoError(err)

		for i := uint32(0); i < n; i += 2 {
			length := int(buf[i])
			dist := int(buf[i+1])
			src := pos - dist - 1

			r.GreaterOrEqual(src, 0)
			r.LessOrEqual(length, len(data)-pos)
			r.Equal(data[src:src+length], data[pos:pos+length],
				"pos %d len %d dist %d", pos, length, dist+1)
		}
	}

	r.Zero(mf.AvailableBytes())
}
