package lzma

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRangeCoderRoundTrip(t *testing.T) {
	r := require.New(t)

	rng := rand.New(rand.NewSource(1))

	bits := make([]uint32, 4096)
	for i := range bits {
		// Skewed bit stream exercises both probability directions.
		if rng.Intn(10) < 7 {
			bits[i] = 0
		} else {
			bits[i] = 1
		}
	}

	var buf bytes.Buffer
	re := newRangeEncoder(&buf)

	encProbs := make([]prob, 8)
	initProbs(encProbs)

	for i, b := range bits {
		r.NoError(re.EncodeBit(&encProbs[i%8], b))
	}
	r.NoError(re.Flush())

	rd := newRangeDecoder(bytes.NewReader(buf.Bytes()))
	r.NoError(rd.Init())

	decProbs := make([]prob, 8)
	initProbs(decProbs)

	for i, want := range bits {
		got, err := rd.DecodeBit(&decProbs[i%8])
		r.NoError(err)
		r.Equal(want, got, "bit %d", i)
		r.GreaterOrEqual(rd.Range, kTopValue, "range must stay normalized")
	}

	r.True(rd.IsFinishedOK())
	r.Equal(encProbs, decProbs)
}

func TestRangeCoderDirectBits(t *testing.T) {
	r := require.New(t)

	rng := rand.New(rand.NewSource(2))

	type item struct {
		v uint32
		n int
	}

	items := make([]item, 512)
	for i := range items {
		n := 1 + rng.Intn(30)
		items[i] = item{v: rng.Uint32() & (1<<n - 1), n: n}
	}

	var buf bytes.Buffer
	re := newRangeEncoder(&buf)
	for _, it := range items {
		r.NoError(re.EncodeDirectBits(it.v, it.n))
	}
	r.NoError(re.Flush())

	rd := newRangeDecoder(bytes.NewReader(buf.Bytes()))
	r.NoError(rd.Init())

	for i, it := range items {
		got, err := rd.DecodeDirectBits(it.n)
		r.NoError(err)
		r.Equal(it.v, got, "item %d", i)
	}

	r.True(rd.IsFinishedOK())
	r.False(rd.Corrupted)
}

func TestRangeDecoderRejectsBadFirstByte(t *testing.T) {
	rd := newRangeDecoder(bytes.NewReader([]byte{1, 0, 0, 0, 0}))
	require.ErrorIs(t, rd.Init(), ErrCorrupted)
}
