package lzma

import "io"

// hashChain is the hc4 match finder: the son array degenerates to one
// link per cyclic slot pointing at the previous position with the same
// 4-byte hash. Traversal walks the chain newest-first for at most
// cutValue steps.
type hashChain struct {
	win *encWindow

	son  []int32
	hash []int32

	cyclicBufPos  int32
	cyclicBufSize int32
	matchMaxLen   int32
	cutValue      int32
	hashMask      uint32
}

func newHashChain(dictSize, matchMaxLen, cutValue uint32) *hashChain {
	h4Size, mask := hash4TableSize(dictSize)

	if cutValue == 0 {
		cutValue = 8 + matchMaxLen>>2
	}

	keepBefore := int32(dictSize) + kNumOpts
	keepAfter := int32(matchMaxLen) + kMatchMaxLen + 1
	reserv := (int32(dictSize)+keepBefore+keepAfter)/2 + 256

	c := &hashChain{
		win: newEncWindow(keepBefore, keepAfter, reserv),

		son:  make([]int32, int32(dictSize)+1),
		hash: make([]int32, kFixHashSize+int32(h4Size)),

		cyclicBufSize: int32(dictSize) + 1,
		matchMaxLen:   int32(matchMaxLen),
		cutValue:      int32(cutValue),
		hashMask:      mask,
	}

	c.win.Reset()
	c.win.reduceOffsets(-1)

	return c
}

func (c *hashChain) Continue(r io.Reader) error {
	return c.win.Continue(r)
}

func (c *hashChain) Reset() {
	c.win.Reset()
	c.win.reduceOffsets(-1)

	for i := range c.hash {
		c.hash[i] = kEmptyHashValue
	}
	for i := range c.son {
		c.son[i] = kEmptyHashValue
	}

	c.cyclicBufPos = 0
}

func (c *hashChain) Close() error { return nil }

func (c *hashChain) AvailableBytes() uint32 {
	return c.win.AvailableBytes()
}

func (c *hashChain) IndexByte(offset int32) byte {
	return c.win.IndexByte(offset)
}

func (c *hashChain) MatchLen(offset int32, dist, limit uint32) uint32 {
	return c.win.MatchLen(offset, dist, limit)
}

func (c *hashChain) normalize() {
	subValue := c.win.pos - c.cyclicBufSize
	normalizeLinks(c.son, subValue)
	normalizeLinks(c.hash, subValue)
	c.win.reduceOffsets(subValue)
}

func (c *hashChain) movePos() error {
	c.cyclicBufPos++
	if c.cyclicBufPos >= c.cyclicBufSize {
		c.cyclicBufPos = 0
	}

	if err := c.win.movePos(); err != nil {
		return err
	}

	if c.win.pos == kMaxValForNormalize {
		c.normalize()
	}

	return nil
}

func (c *hashChain) lenLimit() (int32, bool) {
	if c.win.pos+c.matchMaxLen <= c.win.streamPos {
		return c.matchMaxLen, true
	}

	lim := c.win.streamPos - c.win.pos
	if lim < kMinMatchCheck {
		return 0, false
	}

	return lim, true
}

func (c *hashChain) GetMatches(distances []uint32) (uint32, error) {
	if _, ok := c.lenLimit(); !ok {
		return 0, c.movePos()
	}

	cur := c.win.bufOffset + c.win.pos
	h2, h3, h4raw := hash4(c.win.buf[cur : cur+4])

	return c.getMatchesHashed(h2, h3, h4raw, distances)
}

func (c *hashChain) getMatchesHashed(h2, h3, h4raw uint32, distances []uint32) (uint32, error) {
	lenLimit, ok := c.lenLimit()
	if !ok {
		return 0, c.movePos()
	}

	win := c.win
	offset := uint32(0)

	matchMinPos := int32(0)
	if win.pos > c.cyclicBufSize {
		matchMinPos = win.pos - c.cyclicBufSize
	}

	cur := win.bufOffset + win.pos
	maxLen := int32(1)

	hv := h4raw & c.hashMask

	curMatch := c.hash[kFixHashSize+int32(hv)]
	curMatch2 := c.hash[h2]
	curMatch3 := c.hash[kHash3Offset+h3]
	c.hash[h2] = win.pos
	c.hash[kHash3Offset+h3] = win.pos

	if curMatch2 > matchMinPos && win.buf[win.bufOffset+curMatch2] == win.buf[cur] {
		maxLen = 2
		distances[offset] = 2
		distances[offset+1] = uint32(win.pos - curMatch2 - 1)
		offset += 2
	}

	if curMatch3 > matchMinPos && win.buf[win.bufOffset+curMatch3] == win.buf[cur] {
		if curMatch3 == curMatch2 {
			offset -= 2
		}

		maxLen = 3
		distances[offset] = 3
		distances[offset+1] = uint32(win.pos - curMatch3 - 1)
		offset += 2
		curMatch2 = curMatch3
	}

	if offset != 0 && curMatch2 == curMatch {
		offset -= 2
		maxLen = 1
	}

	c.hash[kFixHashSize+int32(hv)] = win.pos
	c.son[c.cyclicBufPos] = curMatch

	count := c.cutValue

	for curMatch > matchMinPos && count > 0 {
		count--

		delta := win.pos - curMatch
		cyclicPos := c.cyclicBufPos - delta
		if delta > c.cyclicBufPos {
			cyclicPos += c.cyclicBufSize
		}

		next := c.son[cyclicPos]
		pby := win.bufOffset + curMatch

		if win.buf[pby+maxLen] == win.buf[cur+maxLen] && win.buf[pby] == win.buf[cur] {
			var length int32
			for length = 0; length < lenLimit; length++ {
				if win.buf[pby+length] != win.buf[cur+length] {
					break
				}
			}

			if length > maxLen {
				maxLen = length
				distances[offset] = uint32(length)
				distances[offset+1] = uint32(delta - 1)
				offset += 2

				if length == lenLimit {
					break
				}
			}
		}

		curMatch = next
	}

	return offset, c.movePos()
}

func (c *hashChain) Skip(num uint32) error {
	for ; num > 0; num-- {
		if _, ok := c.lenLimit(); !ok {
			if err := c.movePos(); err != nil {
				return err
			}

			continue
		}

		win := c.win
		cur := win.bufOffset + win.pos

		h2, h3, h4raw := hash4(win.buf[cur : cur+4])
		hv := h4raw & c.hashMask

		c.hash[h2] = win.pos
		c.hash[kHash3Offset+h3] = win.pos

		curMatch := c.hash[kFixHashSize+int32(hv)]
		c.hash[kFixHashSize+int32(hv)] = win.pos
		c.son[c.cyclicBufPos] = curMatch

		if err := c.movePos(); err != nil {
			return err
		}
	}

	return nil
}
