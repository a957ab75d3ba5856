package lzma

import "io"

// binTree is the bt4 match finder. Every window position is inserted
// into a binary search tree of suffixes rooted at its 4-byte hash; the
// son array holds the two children per cyclic slot. Short candidates
// come straight from the 2- and 3-byte hash tables.
type binTree struct {
	win *encWindow

	son  []int32
	hash []int32

	cyclicBufPos  int32
	cyclicBufSize int32
	matchMaxLen   int32
	cutValue      int32
	hashMask      uint32
}

func newBinTree(dictSize, matchMaxLen, cutValue uint32) *binTree {
	h4Size, mask := hash4TableSize(dictSize)

	if cutValue == 0 {
		cutValue = 16 + matchMaxLen>>1
	}

	keepBefore := int32(dictSize) + kNumOpts
	keepAfter := int32(matchMaxLen) + kMatchMaxLen + 1
	reserv := (int32(dictSize)+keepBefore+keepAfter)/2 + 256

	t := &binTree{
		win: newEncWindow(keepBefore, keepAfter, reserv),

		son:  make([]int32, (int32(dictSize)+1)*2),
		hash: make([]int32, kFixHashSize+int32(h4Size)),

		cyclicBufSize: int32(dictSize) + 1,
		matchMaxLen:   int32(matchMaxLen),
		cutValue:      int32(cutValue),
		hashMask:      mask,
	}

	// Position 0 is the empty-hash sentinel; real positions start at 1.
	t.win.Reset()
	t.win.reduceOffsets(-1)

	return t
}

func (t *binTree) Continue(r io.Reader) error {
	return t.win.Continue(r)
}

func (t *binTree) Reset() {
	t.win.Reset()
	t.win.reduceOffsets(-1)

	for i := range t.hash {
		t.hash[i] = kEmptyHashValue
	}
	for i := range t.son {
		t.son[i] = kEmptyHashValue
	}

	t.cyclicBufPos = 0
}

func (t *binTree) Close() error { return nil }

func (t *binTree) AvailableBytes() uint32 {
	return t.win.AvailableBytes()
}

func (t *binTree) IndexByte(offset int32) byte {
	return t.win.IndexByte(offset)
}

func (t *binTree) MatchLen(offset int32, dist, limit uint32) uint32 {
	return t.win.MatchLen(offset, dist, limit)
}

func normalizeLinks(items []int32, subValue int32) {
	for i, v := range items {
		if v <= subValue {
			v = kEmptyHashValue
		} else {
			v -= subValue
		}

		items[i] = v
	}
}

func (t *binTree) normalize() {
	subValue := t.win.pos - t.cyclicBufSize
	normalizeLinks(t.son, subValue)
	normalizeLinks(t.hash, subValue)
	t.win.reduceOffsets(subValue)
}

func (t *binTree) movePos() error {
	t.cyclicBufPos++
	if t.cyclicBufPos >= t.cyclicBufSize {
		t.cyclicBufPos = 0
	}

	if err := t.win.movePos(); err != nil {
		return err
	}

	if t.win.pos == kMaxValForNormalize {
		t.normalize()
	}

	return nil
}

func (t *binTree) lenLimit() (int32, bool) {
	if t.win.pos+t.matchMaxLen <= t.win.streamPos {
		return t.matchMaxLen, true
	}

	lim := t.win.streamPos - t.win.pos
	if lim < kMinMatchCheck {
		return 0, false
	}

	return lim, true
}

func (t *binTree) GetMatches(distances []uint32) (uint32, error) {
	if _, ok := t.lenLimit(); !ok {
		return 0, t.movePos()
	}

	cur := t.win.bufOffset + t.win.pos
	h2, h3, h4raw := hash4(t.win.buf[cur : cur+4])

	return t.getMatchesHashed(h2, h3, h4raw, distances)
}

func (t *binTree) getMatchesHashed(h2, h3, h4raw uint32, distances []uint32) (uint32, error) {
	lenLimit, ok := t.lenLimit()
	if !ok {
		return 0, t.movePos()
	}

	win := t.win
	offset := uint32(0)

	matchMinPos := int32(0)
	if win.pos > t.cyclicBufSize {
		matchMinPos = win.pos - t.cyclicBufSize
	}

	cur := win.bufOffset + win.pos
	maxLen := int32(1)

	hv := h4raw & t.hashMask

	curMatch := t.hash[kFixHashSize+int32(hv)]
	curMatch2 := t.hash[h2]
	curMatch3 := t.hash[kHash3Offset+h3]
	t.hash[h2] = win.pos
	t.hash[kHash3Offset+h3] = win.pos

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

	t.hash[kFixHashSize+int32(hv)] = win.pos

	ptr0 := t.cyclicBufPos<<1 + 1
	ptr1 := t.cyclicBufPos << 1
	len0 := int32(0)
	len1 := int32(0)
	count := t.cutValue

	for {
		if curMatch <= matchMinPos || count == 0 {
			t.son[ptr1] = kEmptyHashValue
			t.son[ptr0] = kEmptyHashValue

			break
		}
		count--

		delta := win.pos - curMatch
		cyclicPos := (t.cyclicBufPos - delta) << 1
		if delta > t.cyclicBufPos {
			cyclicPos = (t.cyclicBufPos - delta + t.cyclicBufSize) << 1
		}

		pby1 := win.bufOffset + curMatch
		length := len0
		if len1 < len0 {
			length = len1
		}

		if win.buf[pby1+length] == win.buf[cur+length] {
			for length++; length != lenLimit; length++ {
				if win.buf[pby1+length] != win.buf[cur+length] {
					break
				}
			}

			if maxLen < length {
				maxLen = length
				distances[offset] = uint32(length)
				distances[offset+1] = uint32(delta - 1)
				offset += 2

				if length == lenLimit {
					t.son[ptr1] = t.son[cyclicPos]
					t.son[ptr0] = t.son[cyclicPos+1]

					break
				}
			}
		}

		if win.buf[pby1+length] < win.buf[cur+length] {
			t.son[ptr1] = curMatch
			ptr1 = cyclicPos + 1
			curMatch = t.son[ptr1]
			len1 = length
		} else {
			t.son[ptr0] = curMatch
			ptr0 = cyclicPos
			curMatch = t.son[ptr0]
			len0 = length
		}
	}

	return offset, t.movePos()
}

func (t *binTree) Skip(num uint32) error {
	for ; num > 0; num-- {
		lenLimit, ok := t.lenLimit()
		if !ok {
			if err := t.movePos(); err != nil {
				return err
			}

			continue
		}

		win := t.win

		matchMinPos := int32(0)
		if win.pos > t.cyclicBufSize {
			matchMinPos = win.pos - t.cyclicBufSize
		}

		cur := win.bufOffset + win.pos

		h2, h3, h4raw := hash4(win.buf[cur : cur+4])
		hv := h4raw & t.hashMask

		t.hash[h2] = win.pos
		t.hash[kHash3Offset+h3] = win.pos

		curMatch := t.hash[kFixHashSize+int32(hv)]
		t.hash[kFixHashSize+int32(hv)] = win.pos

		ptr0 := t.cyclicBufPos<<1 + 1
		ptr1 := t.cyclicBufPos << 1
		len0 := int32(0)
		len1 := int32(0)
		count := t.cutValue

		for {
			if curMatch <= matchMinPos || count == 0 {
				t.son[ptr1] = kEmptyHashValue
				t.son[ptr0] = kEmptyHashValue

				break
			}
			count--

			delta := win.pos - curMatch
			cyclicPos := (t.cyclicBufPos - delta) << 1
			if delta > t.cyclicBufPos {
				cyclicPos = (t.cyclicBufPos - delta + t.cyclicBufSize) << 1
			}

			pby1 := win.bufOffset + curMatch
			length := len0
			if len1 < len0 {
				length = len1
			}

			if win.buf[pby1+length] == win.buf[cur+length] {
				for length++; length != lenLimit; length++ {
					if win.buf[pby1+length] != win.buf[cur+length] {
						break
					}
				}

				if length == lenLimit {
					t.son[ptr1] = t.son[cyclicPos]
					t.son[ptr0] = t.son[cyclicPos+1]

					break
				}
			}

			if win.buf[pby1+length] < win.buf[cur+length] {
				t.son[ptr1] = curMatch
				ptr1 = cyclicPos + 1
				curMatch = t.son[ptr1]
				len1 = length
			} else {
				t.son[ptr0] = curMatch
				ptr0 = cyclicPos
				curMatch = t.son[ptr0]
				len0 = length
			}
		}

		if err := t.movePos(); err != nil {
			return err
		}
	}

	return nil
}
