package lzma

// The parser looks at most kNumOpts positions ahead.
const kNumOpts = 1 << 12

// optNode is one cell of the parser's dynamic program: the cheapest
// known way to arrive at its position, the symbol that got there, and
// the rep-distance tuple along that path. posPrev2/backPrev2 describe
// the rare match+literal+rep0 composite step.
type optNode struct {
	state uint32

	price    uint32
	posPrev  uint32
	backPrev uint32

	posPrev2  uint32
	backPrev2 uint32

	backs0 uint32
	backs1 uint32
	backs2 uint32
	backs3 uint32

	prev1IsChar bool
	prev2       bool
}

func (o *optNode) makeAsChar() {
	o.backPrev = 0xFFFFFFFF
	o.prev1IsChar = false
}

func (o *optNode) makeAsShortRep() {
	o.backPrev = 0
	o.prev1IsChar = false
}

func (o *optNode) isShortRep() bool {
	return o.backPrev == 0
}

func (e *encoder) getPureRepPrice(repIndex, state, posState uint32) uint32 {
	if repIndex == 0 {
		return price0(e.isRepG0[state]) +
			price1(e.isRep0Long[state<<kNumPosBitsMax+posState])
	}

	res := price1(e.isRepG0[state])
	if repIndex == 1 {
		return res + price0(e.isRepG1[state])
	}

	return res + price1(e.isRepG1[state]) + price(e.isRepG2[state], repIndex-2)
}

func (e *encoder) getRepPrice(repIndex, length, state, posState uint32) uint32 {
	return e.repLenCoder.price(length-kMatchMinLen, posState) +
		e.getPureRepPrice(repIndex, state, posState)
}

func (e *encoder) getPosLenPrice(dist, length, posState uint32) uint32 {
	var res uint32

	lps := lenToPosState(length)
	if dist < kNumFullDistances {
		res = e.distancesPrices[lps*kNumFullDistances+dist]
	} else {
		res = e.posSlotPrices[lps<<kNumPosSlotBits+posSlot2(dist)] +
			e.alignPrices[dist&kAlignMask]
	}

	return res + e.lenCoder.price(length-kMatchMinLen, posState)
}

func (e *encoder) getRepLen1Price(state, posState uint32) uint32 {
	return price0(e.isRepG0[state]) +
		price0(e.isRep0Long[state<<kNumPosBitsMax+posState])
}

// backward walks the chosen path from the terminal node back to the
// start, reversing the backpointers so the emission loop can replay the
// symbols forward.
func (e *encoder) backward(cur uint32) uint32 {
	e.optimumEndIndex = cur
	posMem := e.optimum[cur].posPrev
	backMem := e.optimum[cur].backPrev

	for {
		if e.optimum[cur].prev1IsChar {
			e.optimum[posMem].makeAsChar()
			e.optimum[posMem].posPrev = posMem - 1

			if e.optimum[cur].prev2 {
				e.optimum[posMem-1].prev1IsChar = false
				e.optimum[posMem-1].posPrev = e.optimum[cur].posPrev2
				e.optimum[posMem-1].backPrev = e.optimum[cur].backPrev2
			}
		}

		posPrev := posMem
		backCur := backMem
		backMem = e.optimum[posPrev].backPrev
		posMem = e.optimum[posPrev].posPrev
		e.optimum[posPrev].backPrev = backCur
		e.optimum[posPrev].posPrev = cur
		cur = posPrev

		if cur == 0 {
			break
		}
	}

	e.backRes = e.optimum[0].backPrev
	e.optimumCurrentIndex = e.optimum[0].posPrev

	return e.optimumCurrentIndex
}

// getOptimum returns the length of the next symbol to emit and leaves
// its distance in backRes: 0xFFFFFFFF for a literal, 0..3 for reps,
// dist+4 for fresh matches.
func (e *encoder) getOptimum(position uint32) (uint32, error) {
	if e.optimumEndIndex != e.optimumCurrentIndex {
		lenRes := e.optimum[e.optimumCurrentIndex].posPrev - e.optimumCurrentIndex
		e.backRes = e.optimum[e.optimumCurrentIndex].backPrev
		e.optimumCurrentIndex = e.optimum[e.optimumCurrentIndex].posPrev

		return lenRes, nil
	}

	e.optimumEndIndex = 0
	e.optimumCurrentIndex = 0

	var (
		lenMain uint32
		err     error
	)

	if !e.longestMatchFound {
		lenMain, err = e.readMatchDistances()
		if err != nil {
			return 0, err
		}
	} else {
		lenMain = e.longestMatchLen
		e.longestMatchFound = false
	}

	distancePairs := e.distancePairs

	availableBytes := e.mf.AvailableBytes() + 1
	if availableBytes < 2 {
		e.backRes = 0xFFFFFFFF
		return 1, nil
	}
	if availableBytes > kMatchMaxLen {
		availableBytes = kMatchMaxLen
	}

	repMaxIndex := uint32(0)
	for i := uint32(0); i < kNumRepDistances; i++ {
		e.reps[i] = e.repDistances[i]
		e.repLens[i] = e.mf.MatchLen(-1, e.reps[i], kMatchMaxLen)
		if e.repLens[i] > e.repLens[repMaxIndex] {
			repMaxIndex = i
		}
	}

	if e.repLens[repMaxIndex] >= e.fastBytes {
		e.backRes = repMaxIndex
		lenRes := e.repLens[repMaxIndex]

		return lenRes, e.movePos(lenRes - 1)
	}

	if lenMain >= e.fastBytes {
		e.backRes = e.matchDistances[distancePairs-1] + kNumRepDistances

		return lenMain, e.movePos(lenMain - 1)
	}

	curByte := e.mf.IndexByte(-1)
	matchByte := e.mf.IndexByte(0 - int32(e.repDistances[0]) - 1 - 1)

	if lenMain < 2 && curByte != matchByte && e.repLens[repMaxIndex] < 2 {
		e.backRes = 0xFFFFFFFF
		return 1, nil
	}

	e.optimum[0].state = e.state

	posState := position & e.posStateMask

	e.optimum[1].price = price0(e.isMatch[e.state<<kNumPosBitsMax+posState]) +
		e.lit.Price(position, e.prevByte, !stateIsLiteral(e.state), matchByte, curByte)
	e.optimum[1].makeAsChar()

	matchPrice := price1(e.isMatch[e.state<<kNumPosBitsMax+posState])
	repMatchPrice := matchPrice + price1(e.isRep[e.state])

	if matchByte == curByte {
		shortRepPrice := repMatchPrice + e.getRepLen1Price(e.state, posState)
		if shortRepPrice < e.optimum[1].price {
			e.optimum[1].price = shortRepPrice
			e.optimum[1].makeAsShortRep()
		}
	}

	lenEnd := e.repLens[repMaxIndex]
	if lenMain > lenEnd {
		lenEnd = lenMain
	}
	if lenEnd < 2 {
		e.backRes = e.optimum[1].backPrev
		return 1, nil
	}

	e.optimum[1].posPrev = 0
	e.optimum[0].backs0 = e.reps[0]
	e.optimum[0].backs1 = e.reps[1]
	e.optimum[0].backs2 = e.reps[2]
	e.optimum[0].backs3 = e.reps[3]

	for length := lenEnd; length >= 2; length-- {
		e.optimum[length].price = kInfinityPrice
	}

	for i := uint32(0); i < kNumRepDistances; i++ {
		repLen := e.repLens[i]
		if repLen < 2 {
			continue
		}

		repPrice := repMatchPrice + e.getPureRepPrice(i, e.state, posState)

		for ; repLen >= 2; repLen-- {
			curAndLenPrice := repPrice + e.repLenCoder.price(repLen-2, posState)
			optimum := &e.optimum[repLen]
			if curAndLenPrice < optimum.price {
				optimum.price = curAndLenPrice
				optimum.posPrev = 0
				optimum.backPrev = i
				optimum.prev1IsChar = false
			}
		}
	}

	normalMatchPrice := matchPrice + price0(e.isRep[e.state])

	length := uint32(2)
	if e.repLens[0] >= 2 {
		length = e.repLens[0] + 1
	}
	if length <= lenMain {
		offs := uint32(0)
		for length > e.matchDistances[offs] {
			offs += 2
		}

		for ; ; length++ {
			distance := e.matchDistances[offs+1]
			curAndLenPrice := normalMatchPrice + e.getPosLenPrice(distance, length, posState)
			optimum := &e.optimum[length]
			if curAndLenPrice < optimum.price {
				optimum.price = curAndLenPrice
				optimum.posPrev = 0
				optimum.backPrev = distance + kNumRepDistances
				optimum.prev1IsChar = false
			}

			if length == e.matchDistances[offs] {
				offs += 2
				if offs == distancePairs {
					break
				}
			}
		}
	}

	cur := uint32(0)

	for {
		cur++
		if cur == lenEnd {
			return e.backward(cur), nil
		}

		newLen, err := e.readMatchDistances()
		if err != nil {
			return 0, err
		}
		distancePairs = e.distancePairs

		if newLen >= e.fastBytes {
			e.longestMatchLen = newLen
			e.longestMatchFound = true

			return e.backward(cur), nil
		}

		position++

		posPrev := e.optimum[cur].posPrev

		var state uint32

		if e.optimum[cur].prev1IsChar {
			posPrev--
			if e.optimum[cur].prev2 {
				state = e.optimum[e.optimum[cur].posPrev2].state
				if e.optimum[cur].backPrev2 < kNumRepDistances {
					state = stateUpdateRep(state)
				} else {
					state = stateUpdateMatch(state)
				}
			} else {
				state = e.optimum[posPrev].state
			}

			state = stateUpdateLiteral(state)
		} else {
			state = e.optimum[posPrev].state
		}

		if posPrev == cur-1 {
			if e.optimum[cur].isShortRep() {
				state = stateUpdateShortRep(state)
			} else {
				state = stateUpdateLiteral(state)
			}
		} else {
			var pos uint32

			if e.optimum[cur].prev1IsChar && e.optimum[cur].prev2 {
				posPrev = e.optimum[cur].posPrev2
				pos = e.optimum[cur].backPrev2
				state = stateUpdateRep(state)
			} else {
				pos = e.optimum[cur].backPrev
				if pos < kNumRepDistances {
					state = stateUpdateRep(state)
				} else {
					state = stateUpdateMatch(state)
				}
			}

			opt := &e.optimum[posPrev]
			if pos < kNumRepDistances {
				switch pos {
				case 0:
					e.reps[0] = opt.backs0
					e.reps[1] = opt.backs1
					e.reps[2] = opt.backs2
					e.reps[3] = opt.backs3
				case 1:
					e.reps[0] = opt.backs1
					e.reps[1] = opt.backs0
					e.reps[2] = opt.backs2
					e.reps[3] = opt.backs3
				case 2:
					e.reps[0] = opt.backs2
					e.reps[1] = opt.backs0
					e.reps[2] = opt.backs1
					e.reps[3] = opt.backs3
				default:
					e.reps[0] = opt.backs3
					e.reps[1] = opt.backs0
					e.reps[2] = opt.backs1
					e.reps[3] = opt.backs2
				}
			} else {
				e.reps[0] = pos - kNumRepDistances
				e.reps[1] = opt.backs0
				e.reps[2] = opt.backs1
				e.reps[3] = opt.backs2
			}
		}

		e.optimum[cur].state = state
		e.optimum[cur].backs0 = e.reps[0]
		e.optimum[cur].backs1 = e.reps[1]
		e.optimum[cur].backs2 = e.reps[2]
		e.optimum[cur].backs3 = e.reps[3]

		curPrice := e.optimum[cur].price

		curByte = e.mf.IndexByte(-1)
		matchByte = e.mf.IndexByte(0 - int32(e.reps[0]) - 1 - 1)

		posState = position & e.posStateMask

		curAnd1Price := curPrice + price0(e.isMatch[state<<kNumPosBitsMax+posState]) +
			e.lit.Price(position, e.mf.IndexByte(-2), !stateIsLiteral(state), matchByte, curByte)

		nextOptimum := &e.optimum[cur+1]
		nextIsChar := false

		if curAnd1Price < nextOptimum.price {
			nextOptimum.price = curAnd1Price
			nextOptimum.posPrev = cur
			nextOptimum.makeAsChar()
			nextIsChar = true
		}

		matchPrice = curPrice + price1(e.isMatch[state<<kNumPosBitsMax+posState])
		repMatchPrice = matchPrice + price1(e.isRep[state])

		if matchByte == curByte && !(nextOptimum.posPrev < cur && nextOptimum.backPrev == 0) {
			shortRepPrice := repMatchPrice + e.getRepLen1Price(state, posState)
			if shortRepPrice <= nextOptimum.price {
				nextOptimum.price = shortRepPrice
				nextOptimum.posPrev = cur
				nextOptimum.makeAsShortRep()
				nextIsChar = true
			}
		}

		availableBytesFull := e.mf.AvailableBytes() + 1
		if kNumOpts-1-cur < availableBytesFull {
			availableBytesFull = kNumOpts - 1 - cur
		}
		availableBytes = availableBytesFull
		if availableBytes < 2 {
			continue
		}
		if availableBytes > e.fastBytes {
			availableBytes = e.fastBytes
		}

		if !nextIsChar && matchByte != curByte {
			t := availableBytesFull - 1
			if t > e.fastBytes {
				t = e.fastBytes
			}

			lenTest2 := e.mf.MatchLen(0, e.reps[0], t)
			if lenTest2 >= 2 {
				state2 := stateUpdateLiteral(state)
				posStateNext := (position + 1) & e.posStateMask
				nextRepMatchPrice := curAnd1Price +
					price1(e.isMatch[state2<<kNumPosBitsMax+posStateNext]) +
					price1(e.isRep[state2])

				offset := cur + 1 + lenTest2
				for lenEnd < offset {
					lenEnd++
					e.optimum[lenEnd].price = kInfinityPrice
				}

				curAndLenPrice := nextRepMatchPrice + e.getRepPrice(0, lenTest2, state2, posStateNext)
				optimum := &e.optimum[offset]
				if curAndLenPrice < optimum.price {
					optimum.price = curAndLenPrice
					optimum.posPrev = cur + 1
					optimum.backPrev = 0
					optimum.prev1IsChar = true
					optimum.prev2 = false
				}
			}
		}

		startLen := uint32(2)

		for repIndex := uint32(0); repIndex < kNumRepDistances; repIndex++ {
			lenTest := e.mf.MatchLen(-1, e.reps[repIndex], availableBytes)
			if lenTest < 2 {
				continue
			}

			lenTestTemp := lenTest

			for lenEnd < cur+lenTest {
				lenEnd++
				e.optimum[lenEnd].price = kInfinityPrice
			}

			for l := lenTest; l >= 2; l-- {
				curAndLenPrice := repMatchPrice + e.getRepPrice(repIndex, l, state, posState)
				optimum := &e.optimum[cur+l]
				if curAndLenPrice < optimum.price {
					optimum.price = curAndLenPrice
					optimum.posPrev = cur
					optimum.backPrev = repIndex
					optimum.prev1IsChar = false
				}
			}

			lenTest = lenTestTemp

			if repIndex == 0 {
				startLen = lenTest + 1
			}

			if lenTest < availableBytesFull {
				t := availableBytesFull - 1 - lenTest
				if t > e.fastBytes {
					t = e.fastBytes
				}

				lenTest2 := e.mf.MatchLen(int32(lenTest), e.reps[repIndex], t)
				if lenTest2 >= 2 {
					state2 := stateUpdateRep(state)
					posStateNext := (position + lenTest) & e.posStateMask

					curAndLenCharPrice := repMatchPrice +
						e.getRepPrice(repIndex, lenTest, state, posState) +
						price0(e.isMatch[state2<<kNumPosBitsMax+posStateNext]) +
						e.lit.Price(position+lenTest, e.mf.IndexByte(int32(lenTest)-1-1), true,
							e.mf.IndexByte(int32(lenTest)-1-int32(e.reps[repIndex]+1)),
							e.mf.IndexByte(int32(lenTest)-1))

					state2 = stateUpdateLiteral(state2)
					posStateNext = (position + lenTest + 1) & e.posStateMask
					nextMatchPrice := curAndLenCharPrice + price1(e.isMatch[state2<<kNumPosBitsMax+posStateNext])
					nextRepMatchPrice := nextMatchPrice + price1(e.isRep[state2])

					offset := lenTest + 1 + lenTest2
					for lenEnd < cur+offset {
						lenEnd++
						e.optimum[lenEnd].price = kInfinityPrice
					}

					curAndLenPrice := nextRepMatchPrice + e.getRepPrice(0, lenTest2, state2, posStateNext)
					optimum := &e.optimum[cur+offset]
					if curAndLenPrice < optimum.price {
						optimum.price = curAndLenPrice
						optimum.posPrev = cur + lenTest + 1
						optimum.backPrev = 0
						optimum.prev1IsChar = true
						optimum.prev2 = true
						optimum.posPrev2 = cur
						optimum.backPrev2 = repIndex
					}
				}
			}
		}

		newLen2 := newLen
		if newLen2 > availableBytes {
			newLen2 = availableBytes
			for distancePairs = 0; newLen2 > e.matchDistances[distancePairs]; distancePairs += 2 {
			}
			e.matchDistances[distancePairs] = newLen2
			distancePairs += 2
		}

		if newLen2 >= startLen {
			normalMatchPrice = matchPrice + price0(e.isRep[state])

			for lenEnd < cur+newLen2 {
				lenEnd++
				e.optimum[lenEnd].price = kInfinityPrice
			}

			offs := uint32(0)
			for startLen > e.matchDistances[offs] {
				offs += 2
			}

			for lenTest := startLen; ; lenTest++ {
				curBack := e.matchDistances[offs+1]
				curAndLenPrice := normalMatchPrice + e.getPosLenPrice(curBack, lenTest, posState)
				optimum := &e.optimum[cur+lenTest]
				if curAndLenPrice < optimum.price {
					optimum.price = curAndLenPrice
					optimum.posPrev = cur
					optimum.backPrev = curBack + kNumRepDistances
					optimum.prev1IsChar = false
				}

				if lenTest == e.matchDistances[offs] {
					if lenTest < availableBytesFull {
						t := availableBytesFull - 1 - lenTest
						if t > e.fastBytes {
							t = e.fastBytes
						}

						lenTest2 := e.mf.MatchLen(int32(lenTest), curBack, t)
						if lenTest2 >= 2 {
							state2 := stateUpdateMatch(state)
							posStateNext := (position + lenTest) & e.posStateMask

							curAndLenCharPrice := curAndLenPrice +
								price0(e.isMatch[state2<<kNumPosBitsMax+posStateNext]) +
								e.lit.Price(position+lenTest, e.mf.IndexByte(int32(lenTest)-1-1), true,
									e.mf.IndexByte(int32(lenTest)-int32(curBack+1)-1),
									e.mf.IndexByte(int32(lenTest)-1))

							state2 = stateUpdateLiteral(state2)
							posStateNext = (position + lenTest + 1) & e.posStateMask
							nextMatchPrice := curAndLenCharPrice + price1(e.isMatch[state2<<kNumPosBitsMax+posStateNext])
							nextRepMatchPrice := nextMatchPrice + price1(e.isRep[state2])

							offset := lenTest + 1 + lenTest2
							for lenEnd < cur+offset {
								lenEnd++
								e.optimum[lenEnd].price = kInfinityPrice
							}

							curAndLenPrice = nextRepMatchPrice + e.getRepPrice(0, lenTest2, state2, posStateNext)
							optimum = &e.optimum[cur+offset]
							if curAndLenPrice < optimum.price {
								optimum.price = curAndLenPrice
								optimum.posPrev = cur + lenTest + 1
								optimum.backPrev = 0
								optimum.prev1IsChar = true
								optimum.prev2 = true
								optimum.posPrev2 = cur
								optimum.backPrev2 = curBack + kNumRepDistances
							}
						}
					}

					offs += 2
					if offs == distancePairs {
						break
					}
				}
			}
		}
	}
}
