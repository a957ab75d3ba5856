package lzma

// litCoder holds the 0x300-probability literal subcoders. The subcoder
// is selected by the low lp bits of the position and the high lc bits
// of the previous byte. In match states the "matched" variant tracks
// the byte at the last match distance bit by bit until the first
// mismatch.
type litCoder struct {
	probs   []prob
	lc      uint32
	posMask uint32
}

func newLitCoder(lc, lp uint32) *litCoder {
	c := &litCoder{
		probs:   make([]prob, uint32(0x300)<<(lc+lp)),
		lc:      lc,
		posMask: (1 << lp) - 1,
	}
	initProbs(c.probs)

	return c
}

func (c *litCoder) Reset() {
	initProbs(c.probs)
}

func (c *litCoder) subCoder(pos uint32, prevByte byte) []prob {
	litState := ((pos & c.posMask) << c.lc) + uint32(prevByte)>>(8-c.lc)

	return c.probs[0x300*litState:]
}

func (c *litCoder) Encode(re *rangeEncoder, pos uint32, prevByte, symbol byte) error {
	probs := c.subCoder(pos, prevByte)
	context := uint32(1)

	for i := 7; i >= 0; i-- {
		bit := uint32(symbol>>uint(i)) & 1

		if err := re.EncodeBit(&probs[context], bit); err != nil {
			return err
		}

		context = context<<1 | bit
	}

	return nil
}

func (c *litCoder) EncodeMatched(re *rangeEncoder, pos uint32, prevByte, matchByte, symbol byte) error {
	probs := c.subCoder(pos, prevByte)
	context := uint32(1)
	same := true

	for i := 7; i >= 0; i-- {
		bit := uint32(symbol>>uint(i)) & 1
		state := context

		if same {
			matchBit := uint32(matchByte>>uint(i)) & 1
			state += (1 + matchBit) << 8
			same = matchBit == bit
		}

		if err := re.EncodeBit(&probs[state], bit); err != nil {
			return err
		}

		context = context<<1 | bit
	}

	return nil
}

func (c *litCoder) Price(pos uint32, prevByte byte, matchMode bool, matchByte, symbol byte) uint32 {
	probs := c.subCoder(pos, prevByte)
	res := uint32(0)
	context := uint32(1)
	i := 7

	if matchMode {
		for ; i >= 0; i-- {
			matchBit := uint32(matchByte>>uint(i)) & 1
			bit := uint32(symbol>>uint(i)) & 1
			res += price(probs[(1+matchBit)<<8+context], bit)
			context = context<<1 | bit

			if matchBit != bit {
				i--
				break
			}
		}
	}

	for ; i >= 0; i-- {
		bit := uint32(symbol>>uint(i)) & 1
		res += price(probs[context], bit)
		context = context<<1 | bit
	}

	return res
}
