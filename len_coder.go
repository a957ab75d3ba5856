package lzma

// lenCoder codes match lengths minus kMatchMinLen in three tiers: a
// 3-bit low tree and a 3-bit mid tree per posState, and one shared
// 8-bit high tree. A choice bit selects low vs the rest, a second
// choice bit mid vs high.
type lenCoder struct {
	choice  prob
	choice2 prob

	lowCoder  []*bitTreeCoder
	midCoder  []*bitTreeCoder
	highCoder *bitTreeCoder
}

func newLenCoder() *lenCoder {
	c := &lenCoder{
		lowCoder:  make([]*bitTreeCoder, kNumPosStates),
		midCoder:  make([]*bitTreeCoder, kNumPosStates),
		highCoder: newBitTreeCoder(kNumHighLenBits),
	}

	for i := 0; i < len(c.lowCoder); i++ {
		c.lowCoder[i] = newBitTreeCoder(kNumLowLenBits)
		c.midCoder[i] = newBitTreeCoder(kNumMidLenBits)
	}

	c.Reset()

	return c
}

func (c *lenCoder) Reset() {
	c.choice = probInitVal
	c.choice2 = probInitVal

	for i := 0; i < len(c.lowCoder); i++ {
		c.lowCoder[i].Reset()
		c.midCoder[i].Reset()
	}

	c.highCoder.Reset()
}

// Decode returns the length symbol (length - kMatchMinLen).
func (c *lenCoder) Decode(rc *rangeDecoder, posState uint32) (uint32, error) {
	bit, err := rc.DecodeBit(&c.choice)
	if err != nil {
		return 0, err
	}
	if bit == 0 {
		return c.lowCoder[posState].Decode(rc)
	}

	bit, err = rc.DecodeBit(&c.choice2)
	if err != nil {
		return 0, err
	}
	if bit == 0 {
		sym, err := c.midCoder[posState].Decode(rc)
		if err != nil {
			return 0, err
		}

		return kNumLowLenSymbols + sym, nil
	}

	sym, err := c.highCoder.Decode(rc)
	if err != nil {
		return 0, err
	}

	return kNumLowLenSymbols + kNumMidLenSymbols + sym, nil
}

func (c *lenCoder) Encode(re *rangeEncoder, symbol, posState uint32) error {
	if symbol < kNumLowLenSymbols {
		if err := re.EncodeBit(&c.choice, 0); err != nil {
			return err
		}

		return c.lowCoder[posState].Encode(re, symbol)
	}

	symbol -= kNumLowLenSymbols
	if err := re.EncodeBit(&c.choice, 1); err != nil {
		return err
	}

	if symbol < kNumMidLenSymbols {
		if err := re.EncodeBit(&c.choice2, 0); err != nil {
			return err
		}

		return c.midCoder[posState].Encode(re, symbol)
	}

	if err := re.EncodeBit(&c.choice2, 1); err != nil {
		return err
	}

	return c.highCoder.Encode(re, symbol-kNumMidLenSymbols)
}

func (c *lenCoder) setPrices(prices []uint32, posState, numSymbols, st uint32) {
	a0 := price0(c.choice)
	a1 := price1(c.choice)
	b0 := a1 + price0(c.choice2)
	b1 := a1 + price1(c.choice2)

	var i uint32
	for i = 0; i < kNumLowLenSymbols; i++ {
		if i >= numSymbols {
			return
		}

		prices[st+i] = a0 + c.lowCoder[posState].Price(i)
	}

	for ; i < kNumLowLenSymbols+kNumMidLenSymbols; i++ {
		if i >= numSymbols {
			return
		}

		prices[st+i] = b0 + c.midCoder[posState].Price(i-kNumLowLenSymbols)
	}

	for ; i < numSymbols; i++ {
		prices[st+i] = b1 + c.highCoder.Price(i-kNumLowLenSymbols-kNumMidLenSymbols)
	}
}

// lenPriceTableCoder caches length prices for the parser and refreshes
// them per posState after tableSize encoded lengths, tracking the
// adaptive probability drift.
type lenPriceTableCoder struct {
	lc        *lenCoder
	prices    []uint32
	counters  []uint32
	tableSize uint32
}

func newLenPriceTableCoder(tableSize, numPosStates uint32) *lenPriceTableCoder {
	pc := &lenPriceTableCoder{
		lc:        newLenCoder(),
		prices:    make([]uint32, kNumLenSymbols*kNumPosStates),
		counters:  make([]uint32, kNumPosStates),
		tableSize: tableSize,
	}

	for posState := uint32(0); posState < numPosStates; posState++ {
		pc.updateTable(posState)
	}

	return pc
}

func (pc *lenPriceTableCoder) Reset(numPosStates uint32) {
	pc.lc.Reset()

	for posState := uint32(0); posState < numPosStates; posState++ {
		pc.updateTable(posState)
	}
}

func (pc *lenPriceTableCoder) updateTable(posState uint32) {
	pc.lc.setPrices(pc.prices, posState, pc.tableSize, posState*kNumLenSymbols)
	pc.counters[posState] = pc.tableSize
}

func (pc *lenPriceTableCoder) price(symbol, posState uint32) uint32 {
	return pc.prices[posState*kNumLenSymbols+symbol]
}

func (pc *lenPriceTableCoder) Encode(re *rangeEncoder, symbol, posState uint32) error {
	if err := pc.lc.Encode(re, symbol, posState); err != nil {
		return err
	}

	pc.counters[posState]--
	if pc.counters[posState] == 0 {
		pc.updateTable(posState)
	}

	return nil
}
