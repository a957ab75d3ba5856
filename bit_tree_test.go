package lzma

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitTreeRoundTrip(t *testing.T) {
	r := require.New(t)

	for _, numBits := range []int{2, 4, 6, 8} {
		rng := rand.New(rand.NewSource(int64(numBits)))

		symbols := make([]uint32, 500)
		for i := range symbols {
			symbols[i] = uint32(rng.Intn(1 << numBits))
		}

		var buf bytes.Buffer
		re := newRangeEncoder(&buf)
		enc := newBitTreeCoder(numBits)
		for _, s := range symbols {
			r.NoError(enc.Encode(re, s))
		}
		r.NoError(re.Flush())

		rd := newRangeDecoder(bytes.NewReader(buf.Bytes()))
		r.NoError(rd.Init())
		dec := newBitTreeCoder(numBits)
		for i, want := range symbols {
			got, err := dec.Decode(rd)
			r.NoError(err)
			r.Equal(want, got, "numBits %d symbol %d", numBits, i)
		}
	}
}

func TestBitTreeReverseRoundTrip(t *testing.T) {
	r := require.New(t)

	const numBits = kNumAlignBits

	rng := rand.New(rand.NewSource(99))

	symbols := make([]uint32, 300)
	for i := range symbols {
		symbols[i] = uint32(rng.Intn(1 << numBits))
	}

	var buf bytes.Buffer
	re := newRangeEncoder(&buf)
	enc := newBitTreeCoder(numBits)
	for _, s := range symbols {
		r.NoError(enc.ReverseEncode(re, s))
	}
	r.NoError(re.Flush())

	rd := newRangeDecoder(bytes.NewReader(buf.Bytes()))
	r.NoError(rd.Init())
	dec := newBitTreeCoder(numBits)
	for i, want := range symbols {
		got, err := dec.ReverseDecode(rd)
		r.NoError(err)
		r.Equal(want, got, "symbol %d", i)
	}
}

// The mid-range distance bits share one flat probability array indexed
// at dist-posSlot on both sides; this pins the slice convention.
func TestPosCodersSliceRoundTrip(t *testing.T) {
	r := require.New(t)

	encProbs := make([]prob, 1+kNumFullDistances-kEndPosModelIndex)
	decProbs := make([]prob, 1+kNumFullDistances-kEndPosModelIndex)
	initProbs(encProbs)
	initProbs(decProbs)

	type dv struct {
		slot    uint32
		reduced uint32
	}

	rng := rand.New(rand.NewSource(7))

	var items []dv
	for i := 0; i < 300; i++ {
		slot := uint32(kStartPosModelIndex + rng.Intn(kEndPosModelIndex-kStartPosModelIndex))
		footerBits := int(slot>>1 - 1)
		items = append(items, dv{slot: slot, reduced: uint32(rng.Intn(1 << footerBits))})
	}

	var buf bytes.Buffer
	re := newRangeEncoder(&buf)
	for _, it := range items {
		footerBits := int(it.slot>>1 - 1)
		baseVal := (2 | it.slot&1) << uint(footerBits)
		r.NoError(bitTreeReverseEncode(encProbs[baseVal-it.slot:], footerBits, re, it.reduced))
	}
	r.NoError(re.Flush())

	rd := newRangeDecoder(bytes.NewReader(buf.Bytes()))
	r.NoError(rd.Init())
	for i, it := range items {
		footerBits := int(it.slot>>1 - 1)
		baseVal := (2 | it.slot&1) << uint(footerBits)
		got, err := bitTreeReverseDecode(decProbs[baseVal-it.slot:], footerBits, rd)
		r.NoError(err)
		r.Equal(it.reduced, got, "item %d", i)
	}

	r.Equal(encProbs, decProbs)
}
