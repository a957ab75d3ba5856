package lzma

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPropertiesByteRoundTrip(t *testing.T) {
	r := require.New(t)

	for lc := uint32(0); lc <= 8; lc++ {
		for lp := uint32(0); lp <= 4; lp++ {
			for pb := uint32(0); pb <= 4; pb++ {
				p := Properties{LC: lc, LP: lp, PB: pb}
				got, err := decodeProperties(p.byte())
				r.NoError(err)
				r.Equal(p, got)
			}
		}
	}
}

func TestPropertiesRejectsBadByte(t *testing.T) {
	_, err := decodeProperties(9 * 5 * 5)
	require.ErrorIs(t, err, ErrIncorrectProperties)
}

func TestDictSizeRoundedUp(t *testing.T) {
	r := require.New(t)

	size, err := decodeDictSize([]byte{0x00, 0x00, 0x01, 0x00})
	r.NoError(err)
	r.Equal(uint32(0x10000), size, "sanity: little-endian")

	// Values below the minimum round up to 4 KiB.
	size, err = decodeDictSize([]byte{0x10, 0x00, 0x00, 0x00})
	r.NoError(err)
	r.Equal(uint32(lzmaDicMin), size)
}

func TestWriterConfigValidation(t *testing.T) {
	r := require.New(t)

	bad := []*WriterConfig{
		{Level: -1, LC: 9, NumFastBytes: 32, DictSize: 1 << 16},
		{Level: -1, LP: 5, NumFastBytes: 32, DictSize: 1 << 16},
		{Level: -1, PB: 5, NumFastBytes: 32, DictSize: 1 << 16},
		{Level: -1, LC: 3, LP: 2, NumFastBytes: 32, DictSize: 1 << 16},
		{Level: -1, NumFastBytes: 4, DictSize: 1 << 16, LC: 3, PB: 2},
		{Level: 10},
	}

	for i, conf := range bad {
		_, err := NewWriter2(&bytes.Buffer{}, conf)
		r.Error(err, "config %d must be rejected", i)
	}
}

func TestNewReaderRejectsBadHeader(t *testing.T) {
	r := require.New(t)

	// Properties byte out of range.
	hdr := make([]byte, lzmaHeaderSize+5)
	hdr[0] = 0xFF
	_, err := NewReader(bytes.NewReader(hdr))
	r.ErrorIs(err, ErrIncorrectProperties)

	// Truncated header.
	_, err = NewReader(bytes.NewReader([]byte{0x5D, 0x00}))
	r.Error(err)
}
