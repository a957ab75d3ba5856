package lzma

// decoderState bundles every adaptive table of one LZMA stream plus the
// rep distances and the 12-value state machine. LZMA2 state-reset
// chunks re-initialize it without touching the dictionary.
type decoderState struct {
	unpackSize uint64
	bytesLeft  uint64

	unpackSizeDefined bool
	markerIsMandatory bool

	lc, lp, pb uint32

	posMask uint32

	posSlotDecoder []*bitTreeCoder
	alignDecoder   *bitTreeCoder
	lenDecoder     *lenCoder
	repLenDecoder  *lenCoder
	litProbs       []prob
	posDecoders    []prob

	isMatch    []prob
	isRep      []prob
	isRepG0    []prob
	isRepG1    []prob
	isRepG2    []prob
	isRep0Long []prob

	rep0, rep1, rep2, rep3 uint32

	state    uint32
	posState uint32
}

func newDecoderState(p Properties) *decoderState {
	s := &decoderState{
		lc: p.LC,
		lp: p.LP,
		pb: p.PB,

		posMask: (1 << p.PB) - 1,

		lenDecoder:     newLenCoder(),
		repLenDecoder:  newLenCoder(),
		litProbs:       make([]prob, uint32(0x300)<<(p.LC+p.LP)),
		posSlotDecoder: make([]*bitTreeCoder, kNumLenToPosStates),
		posDecoders:    make([]prob, 1+kNumFullDistances-kEndPosModelIndex),
		alignDecoder:   newBitTreeCoder(kNumAlignBits),

		isMatch:    make([]prob, kNumStates<<kNumPosBitsMax),
		isRep:      make([]prob, kNumStates),
		isRepG0:    make([]prob, kNumStates),
		isRepG1:    make([]prob, kNumStates),
		isRepG2:    make([]prob, kNumStates),
		isRep0Long: make([]prob, kNumStates<<kNumPosBitsMax),
	}

	for i := 0; i < kNumLenToPosStates; i++ {
		s.posSlotDecoder[i] = newBitTreeCoder(kNumPosSlotBits)
	}

	s.Reset()

	return s
}

func (s *decoderState) Reset() {
	s.lenDecoder.Reset()
	s.repLenDecoder.Reset()

	initProbs(s.litProbs)

	for i := 0; i < kNumLenToPosStates; i++ {
		s.posSlotDecoder[i].Reset()
	}

	initProbs(s.posDecoders)
	s.alignDecoder.Reset()

	initProbs(s.isMatch)
	initProbs(s.isRep)
	initProbs(s.isRepG0)
	initProbs(s.isRepG1)
	initProbs(s.isRepG2)
	initProbs(s.isRep0Long)

	s.rep0, s.rep1, s.rep2, s.rep3 = 0, 0, 0, 0
	s.state = 0
	s.posState = 0
}

// SetUnpackSize declares how many bytes the stream should produce.
// All-0xFF means unknown: the stream then must carry an end marker.
func (s *decoderState) SetUnpackSize(unpackSize uint64) {
	s.unpackSize = unpackSize
	s.bytesLeft = unpackSize

	s.unpackSizeDefined = unpackSize != 0xFFFFFFFFFFFFFFFF
	s.markerIsMandatory = !s.unpackSizeDefined
}
