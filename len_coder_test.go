package lzma

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLenCoderRoundTrip(t *testing.T) {
	r := require.New(t)

	var symbols []uint32
	var posStates []uint32
	for s := uint32(0); s < kNumLenSymbols; s++ {
		symbols = append(symbols, s)
		posStates = append(posStates, s%4)
	}

	var buf bytes.Buffer
	re := newRangeEncoder(&buf)
	enc := newLenCoder()
	for i, s := range symbols {
		r.NoError(enc.Encode(re, s, posStates[i]))
	}
	r.NoError(re.Flush())

	rd := newRangeDecoder(bytes.NewReader(buf.Bytes()))
	r.NoError(rd.Init())
	dec := newLenCoder()
	for i, want := range symbols {
		got, err := dec.Decode(rd, posStates[i])
		r.NoError(err)
		r.Equal(want, got, "symbol %d", i)
	}

	r.True(rd.IsFinishedOK())
}

func TestLenPriceTableTracksCoder(t *testing.T) {
	r := require.New(t)

	pc := newLenPriceTableCoder(272, 4)

	// The cached price of a cheap low-tier symbol must be below a
	// high-tier one while the tables are fresh.
	r.Less(pc.price(0, 0), pc.price(200, 0))

	var buf bytes.Buffer
	re := newRangeEncoder(&buf)

	// Encoding refreshes tables after tableSize lengths per posState
	// without losing roundtrip consistency.
	for i := 0; i < 600; i++ {
		r.NoError(pc.Encode(re, uint32(i%272), uint32(i%4)))
	}
	r.NoError(re.Flush())

	rd := newRangeDecoder(bytes.NewReader(buf.Bytes()))
	r.NoError(rd.Init())
	dec := newLenCoder()
	for i := 0; i < 600; i++ {
		got, err := dec.Decode(rd, uint32(i%4))
		r.NoError(err)
		r.Equal(uint32(i%272), got, "symbol %d", i)
	}
}
