package lzma

// encoder drives one LZMA stream: it pulls matches from the match
// finder, lets the parser choose symbols and emits them through the
// range coder. It survives across LZMA2 chunks; only the range coder
// is re-armed per chunk.
type encoder struct {
	re *rangeEncoder
	mf matchFinder

	props     Properties
	fastBytes uint32
	algoFast  bool

	optimum []optNode

	isMatch    []prob
	isRep      []prob
	isRepG0    []prob
	isRepG1    []prob
	isRepG2    []prob
	isRep0Long []prob

	posSlotCoders []*bitTreeCoder
	posCoders     []prob
	posAlignCoder *bitTreeCoder

	lenCoder    *lenPriceTableCoder
	repLenCoder *lenPriceTableCoder

	lit *litCoder

	matchDistances []uint32

	longestMatchLen   uint32
	distancePairs     uint32
	additionalOffset  uint32
	longestMatchFound bool

	optimumEndIndex     uint32
	optimumCurrentIndex uint32

	posSlotPrices   []uint32
	distancesPrices []uint32
	alignPrices     []uint32
	alignPriceCount uint32
	matchPriceCount uint32

	posStateMask uint32

	nowPos   int64
	finished bool

	// outCap, when set, asks codeBlock to pause once the range coder
	// output grew past the chunk budget.
	outCap func() bool

	state        uint32
	prevByte     byte
	repDistances [kNumRepDistances]uint32

	reps    [kNumRepDistances]uint32
	repLens [kNumRepDistances]uint32
	backRes uint32
}

func newEncoder(conf *WriterConfig) *encoder {
	e := &encoder{
		mf: newMatchFinder(conf.MatchFinder, conf.DictSize, uint32(conf.NumFastBytes), conf.CutValue),

		props:     conf.props(),
		fastBytes: uint32(conf.NumFastBytes),
		algoFast:  conf.Algo == AlgoFast,

		optimum: make([]optNode, kNumOpts),

		isMatch:    make([]prob, kNumStates<<kNumPosBitsMax),
		isRep:      make([]prob, kNumStates),
		isRepG0:    make([]prob, kNumStates),
		isRepG1:    make([]prob, kNumStates),
		isRepG2:    make([]prob, kNumStates),
		isRep0Long: make([]prob, kNumStates<<kNumPosBitsMax),

		posSlotCoders: make([]*bitTreeCoder, kNumLenToPosStates),
		posCoders:     make([]prob, 1+kNumFullDistances-kEndPosModelIndex),
		posAlignCoder: newBitTreeCoder(kNumAlignBits),

		lenCoder:    newLenPriceTableCoder(uint32(conf.NumFastBytes)+1-kMatchMinLen, uint32(1)<<conf.PB),
		repLenCoder: newLenPriceTableCoder(uint32(conf.NumFastBytes)+1-kMatchMinLen, uint32(1)<<conf.PB),

		lit: newLitCoder(uint32(conf.LC), uint32(conf.LP)),

		matchDistances: make([]uint32, maxMatchPairs),

		posSlotPrices:   make([]uint32, kNumPosSlots<<2),
		distancesPrices: make([]uint32, kNumFullDistances<<2),
		alignPrices:     make([]uint32, kAlignTableSize),

		posStateMask: 1<<conf.PB - 1,
	}

	if conf.MT {
		e.mf = newMatchFinderMT(e.mf, conf.MTThreads)
	}

	for i := 0; i < kNumLenToPosStates; i++ {
		e.posSlotCoders[i] = newBitTreeCoder(kNumPosSlotBits)
	}

	e.resetState()

	return e
}

// resetProbsKeepPosition re-initializes the adaptive tables, state and
// reps but keeps the position counter and previous byte: the LZMA2
// state-reset semantics, where the dictionary and position context
// carry on.
func (e *encoder) resetProbsKeepPosition() {
	nowPos, prevByte := e.nowPos, e.prevByte
	e.resetState()
	e.nowPos, e.prevByte = nowPos, prevByte
}

// resetState re-initializes every adaptive table, the reps and the
// position counter. The dictionary (match finder) is reset separately.
func (e *encoder) resetState() {
	initProbs(e.isMatch)
	initProbs(e.isRep)
	initProbs(e.isRepG0)
	initProbs(e.isRepG1)
	initProbs(e.isRepG2)
	initProbs(e.isRep0Long)
	initProbs(e.posCoders)

	for i := 0; i < kNumLenToPosStates; i++ {
		e.posSlotCoders[i].Reset()
	}
	e.posAlignCoder.Reset()

	e.lenCoder.Reset(e.posStateMask + 1)
	e.repLenCoder.Reset(e.posStateMask + 1)
	e.lit.Reset()

	e.state = 0
	e.prevByte = 0
	e.repDistances = [kNumRepDistances]uint32{}

	e.nowPos = 0
	e.finished = false

	e.additionalOffset = 0
	e.optimumEndIndex = 0
	e.optimumCurrentIndex = 0
	e.longestMatchFound = false

	e.fillDistancesPrices()
	e.fillAlignPrices()
}

// resetDictionary drops all history: the next symbol starts a fresh
// stream over an empty window.
func (e *encoder) resetDictionary() {
	e.mf.Reset()
	e.resetState()
}

func (e *encoder) readMatchDistances() (uint32, error) {
	n, err := e.mf.GetMatches(e.matchDistances)
	e.distancePairs = n
	if err != nil {
		return 0, err
	}

	lenRes := uint32(0)
	if n > 0 {
		lenRes = e.matchDistances[n-2]
		if lenRes == e.fastBytes {
			lenRes += e.mf.MatchLen(int32(lenRes)-1, e.matchDistances[n-1], kMatchMaxLen-lenRes)
		}
	}

	e.additionalOffset++

	return lenRes, nil
}

func (e *encoder) movePos(num uint32) error {
	if num == 0 {
		return nil
	}

	e.additionalOffset += num

	return e.mf.Skip(num)
}

func (e *encoder) fillDistancesPrices() {
	var tempPrices [kNumFullDistances]uint32

	for i := uint32(kStartPosModelIndex); i < kNumFullDistances; i++ {
		slot := posSlot(i)
		footerBits := int(slot>>1 - 1)
		baseVal := (2 | slot&1) << uint(footerBits)
		tempPrices[i] = bitTreeReversePrice(e.posCoders[baseVal-slot:], footerBits, i-baseVal)
	}

	for lps := uint32(0); lps < kNumLenToPosStates; lps++ {
		st := lps << kNumPosSlotBits

		var slot uint32
		for slot = 0; slot < kNumPosSlots; slot++ {
			e.posSlotPrices[st+slot] = e.posSlotCoders[lps].Price(slot)
		}
		for slot = kEndPosModelIndex; slot < kNumPosSlots; slot++ {
			e.posSlotPrices[st+slot] += (slot>>1 - 1 - kNumAlignBits) << kNumBitPriceShiftBits
		}

		st2 := lps * kNumFullDistances

		var i uint32
		for i = 0; i < kStartPosModelIndex; i++ {
			e.distancesPrices[st2+i] = e.posSlotPrices[st+i]
		}
		for ; i < kNumFullDistances; i++ {
			e.distancesPrices[st2+i] = e.posSlotPrices[st+posSlot(i)] + tempPrices[i]
		}
	}

	e.matchPriceCount = 0
}

func (e *encoder) fillAlignPrices() {
	for i := uint32(0); i < kAlignTableSize; i++ {
		e.alignPrices[i] = e.posAlignCoder.ReversePrice(i)
	}

	e.alignPriceCount = 0
}

func (e *encoder) writeEndMarker(posState uint32) error {
	if err := e.re.EncodeBit(&e.isMatch[e.state<<kNumPosBitsMax+posState], 1); err != nil {
		return err
	}
	if err := e.re.EncodeBit(&e.isRep[e.state], 0); err != nil {
		return err
	}

	e.state = stateUpdateMatch(e.state)

	if err := e.lenCoder.Encode(e.re, 0, posState); err != nil {
		return err
	}

	lps := lenToPosState(kMatchMinLen)
	if err := e.posSlotCoders[lps].Encode(e.re, kNumPosSlots-1); err != nil {
		return err
	}

	const footerBits = 30
	posReduced := uint32(1)<<footerBits - 1

	if err := e.re.EncodeDirectBits(posReduced>>kNumAlignBits, footerBits-kNumAlignBits); err != nil {
		return err
	}

	return e.posAlignCoder.ReverseEncode(e.re, posReduced&kAlignMask)
}

// nextSymbol asks the active parser for the next symbol.
func (e *encoder) nextSymbol(position uint32) (uint32, error) {
	if e.algoFast {
		return e.getOptimumFast()
	}

	return e.getOptimum(position)
}

// codeBlock encodes symbols until the attached input is exhausted or
// roughly limit output positions were consumed (limit < 0: no bound).
// It does not flush the range coder.
func (e *encoder) codeBlock(limit int64) error {
	e.finished = true

	if e.nowPos == 0 {
		if e.mf.AvailableBytes() == 0 {
			return nil
		}

		// The first symbol of a stream is always a plain literal.
		if _, err := e.readMatchDistances(); err != nil {
			return err
		}

		posState := uint32(e.nowPos) & e.posStateMask
		if err := e.re.EncodeBit(&e.isMatch[e.state<<kNumPosBitsMax+posState], 0); err != nil {
			return err
		}

		curByte := e.mf.IndexByte(0 - int32(e.additionalOffset))
		if err := e.lit.Encode(e.re, uint32(e.nowPos), e.prevByte, curByte); err != nil {
			return err
		}

		e.state = stateUpdateLiteral(e.state)
		e.prevByte = curByte
		e.additionalOffset--
		e.nowPos++
	}

	if e.mf.AvailableBytes() == 0 && e.additionalOffset == 0 {
		return nil
	}

	startPos := e.nowPos

	for {
		length, err := e.nextSymbol(uint32(e.nowPos))
		if err != nil {
			return err
		}

		if err := e.codeSymbol(length, e.backRes); err != nil {
			return err
		}

		if e.additionalOffset == 0 {
			if e.matchPriceCount >= 1<<7 {
				e.fillDistancesPrices()
			}
			if e.alignPriceCount >= kAlignTableSize {
				e.fillAlignPrices()
			}

			if e.mf.AvailableBytes() == 0 {
				return nil
			}

			if limit >= 0 && e.nowPos-startPos >= limit {
				e.finished = false
				return nil
			}

			if e.outCap != nil && e.outCap() {
				e.finished = false
				return nil
			}
		}
	}
}

// codeSymbol emits one parser decision: a literal (dist 0xFFFFFFFF), a
// rep (dist 0..3, length 1 means short rep) or a match (dist-4).
func (e *encoder) codeSymbol(length, dist uint32) error {
	posState := uint32(e.nowPos) & e.posStateMask
	complexState := e.state<<kNumPosBitsMax + posState

	if length == 1 && dist == 0xFFFFFFFF {
		if err := e.re.EncodeBit(&e.isMatch[complexState], 0); err != nil {
			return err
		}

		curByte := e.mf.IndexByte(0 - int32(e.additionalOffset))

		if !stateIsLiteral(e.state) {
			matchByte := e.mf.IndexByte(0 - int32(e.repDistances[0]) - 1 - int32(e.additionalOffset))
			if err := e.lit.EncodeMatched(e.re, uint32(e.nowPos), e.prevByte, matchByte, curByte); err != nil {
				return err
			}
		} else {
			if err := e.lit.Encode(e.re, uint32(e.nowPos), e.prevByte, curByte); err != nil {
				return err
			}
		}

		e.prevByte = curByte
		e.state = stateUpdateLiteral(e.state)
	} else {
		if err := e.re.EncodeBit(&e.isMatch[complexState], 1); err != nil {
			return err
		}

		if dist < kNumRepDistances {
			if err := e.re.EncodeBit(&e.isRep[e.state], 1); err != nil {
				return err
			}

			if dist == 0 {
				if err := e.re.EncodeBit(&e.isRepG0[e.state], 0); err != nil {
					return err
				}

				bit := uint32(1)
				if length == 1 {
					bit = 0
				}
				if err := e.re.EncodeBit(&e.isRep0Long[complexState], bit); err != nil {
					return err
				}
			} else {
				if err := e.re.EncodeBit(&e.isRepG0[e.state], 1); err != nil {
					return err
				}

				if dist == 1 {
					if err := e.re.EncodeBit(&e.isRepG1[e.state], 0); err != nil {
						return err
					}
				} else {
					if err := e.re.EncodeBit(&e.isRepG1[e.state], 1); err != nil {
						return err
					}
					if err := e.re.EncodeBit(&e.isRepG2[e.state], dist-2); err != nil {
						return err
					}
				}
			}

			if length == 1 {
				e.state = stateUpdateShortRep(e.state)
			} else {
				if err := e.repLenCoder.Encode(e.re, length-kMatchMinLen, posState); err != nil {
					return err
				}

				e.state = stateUpdateRep(e.state)
			}

			distance := e.repDistances[dist]
			if dist != 0 {
				for i := dist; i >= 1; i-- {
					e.repDistances[i] = e.repDistances[i-1]
				}
				e.repDistances[0] = distance
			}
		} else {
			if err := e.re.EncodeBit(&e.isRep[e.state], 0); err != nil {
				return err
			}

			e.state = stateUpdateMatch(e.state)

			if err := e.lenCoder.Encode(e.re, length-kMatchMinLen, posState); err != nil {
				return err
			}

			dist -= kNumRepDistances
			slot := posSlot(dist)
			lps := lenToPosState(length)

			if err := e.posSlotCoders[lps].Encode(e.re, slot); err != nil {
				return err
			}

			if slot >= kStartPosModelIndex {
				footerBits := int(slot>>1 - 1)
				baseVal := (2 | slot&1) << uint(footerBits)
				posReduced := dist - baseVal

				if slot < kEndPosModelIndex {
					err := bitTreeReverseEncode(e.posCoders[baseVal-slot:], footerBits, e.re, posReduced)
					if err != nil {
						return err
					}
				} else {
					err := e.re.EncodeDirectBits(posReduced>>kNumAlignBits, footerBits-kNumAlignBits)
					if err != nil {
						return err
					}
					if err := e.posAlignCoder.ReverseEncode(e.re, posReduced&kAlignMask); err != nil {
						return err
					}

					e.alignPriceCount++
				}
			}

			for i := kNumRepDistances - 1; i >= 1; i-- {
				e.repDistances[i] = e.repDistances[i-1]
			}
			e.repDistances[0] = dist
			e.matchPriceCount++
		}

		e.prevByte = e.mf.IndexByte(int32(length) - 1 - int32(e.additionalOffset))
	}

	e.additionalOffset -= length
	e.nowPos += int64(length)

	return nil
}
