package lzma

import (
	"io"
)

// rangeEncoder is the encoding half of the binary range coder. The low
// value can carry past 32 bits, so it is kept in a uint64; the cache
// byte plus cacheLen counter defer output until a carry can no longer
// reach it.
type rangeEncoder struct {
	outStream io.ByteWriter

	low      uint64
	cache    byte
	cacheLen int
	Range    uint32
}

func newRangeEncoder(outStream io.ByteWriter) *rangeEncoder {
	e := &rangeEncoder{}
	e.Reset(outStream)

	return e
}

// Reset re-arms the coder onto a new byte sink, the mirror of
// rangeDecoder.Reopen.
func (e *rangeEncoder) Reset(outStream io.ByteWriter) {
	*e = rangeEncoder{
		outStream: outStream,

		Range:    0xFFFFFFFF,
		cacheLen: 1,
	}
}

func (e *rangeEncoder) EncodeBit(p *prob, symbol uint32) error {
	v := *p
	rang := e.Range
	bound := (rang >> kNumBitModelTotalBits) * uint32(v)

	if symbol == 0 {
		v += (kBitModelTotal - v) >> kNumMoveBits
		rang = bound
	} else {
		v -= v >> kNumMoveBits
		e.low += uint64(bound)
		rang -= bound
	}

	*p = v

	// Normalize
	if rang >= kTopValue {
		e.Range = rang
		return nil
	}

	e.Range = rang << 8

	return e.shiftLow()
}

func (e *rangeEncoder) EncodeDirectBits(v uint32, numBits int) error {
	for numBits--; numBits >= 0; numBits-- {
		e.Range >>= 1
		if (v>>uint(numBits))&1 == 1 {
			e.low += uint64(e.Range)
		}

		if e.Range < kTopValue {
			e.Range <<= 8

			if err := e.shiftLow(); err != nil {
				return err
			}
		}
	}

	return nil
}

// Flush pushes out the 5 pending bytes of low. After it the paired
// decoder consumes exactly the bytes written and finishes with code 0.
func (e *rangeEncoder) Flush() error {
	for i := 0; i < 5; i++ {
		if err := e.shiftLow(); err != nil {
			return err
		}
	}

	return nil
}

func (e *rangeEncoder) shiftLow() error {
	if uint32(e.low) < 0xFF000000 || e.low>>32 != 0 {
		carry := byte(e.low >> 32)
		b := e.cache

		for {
			if err := e.outStream.WriteByte(b + carry); err != nil {
				return err
			}

			b = 0xFF
			e.cacheLen--
			if e.cacheLen == 0 {
				break
			}
		}

		e.cache = byte(e.low >> 24)
	}

	e.cacheLen++
	e.low = uint64(uint32(e.low) << 8)

	return nil
}
