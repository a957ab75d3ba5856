package lzma

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// Reader decompresses a classic .lzma stream: 5 properties bytes, 8
// bytes of uncompressed size, then one range-coded stream.
type Reader struct {
	rangeDec  *rangeDecoder
	outWindow *window

	s             *decoderState
	isEndOfStream bool
}

func byteReader(r io.Reader) io.ByteReader {
	if br, ok := r.(io.ByteReader); ok {
		return br
	}

	return bufio.NewReader(r)
}

// NewReader parses the 13-byte header and returns a reader for the
// decompressed data.
func NewReader(r io.Reader) (*Reader, error) {
	in := byteReader(r)

	header := make([]byte, lzmaHeaderSize)
	for i := range header {
		b, err := in.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("lzma: read header: %w", noEOF(err))
		}

		header[i] = b
	}

	props, err := decodeProperties(header[0])
	if err != nil {
		return nil, err
	}

	dictSize, err := decodeDictSize(header[1:5])
	if err != nil {
		return nil, err
	}

	unpackSize := uint64(0)
	for i := 0; i < 8; i++ {
		unpackSize |= uint64(header[lzmaPropSize+i]) << (8 * i)
	}

	lr := &Reader{
		rangeDec:  newRangeDecoder(in),
		outWindow: newWindow(dictSize),
		s:         newDecoderState(props),
	}
	lr.s.SetUnpackSize(unpackSize)

	if err := lr.rangeDec.Init(); err != nil {
		return nil, fmt.Errorf("lzma: range coder init: %w", noEOF(err))
	}

	return lr, nil
}

// newChunkReader builds the LZMA core that Reader2 drives chunk by
// chunk over a shared dictionary.
func newChunkReader(in io.ByteReader, props Properties, unpackSize uint64, outWindow *window) (*Reader, error) {
	lr := &Reader{
		rangeDec:  newRangeDecoder(in),
		outWindow: outWindow,
		s:         newDecoderState(props),
	}
	lr.s.SetUnpackSize(unpackSize)

	if err := lr.rangeDec.Init(); err != nil {
		return nil, fmt.Errorf("lzma: range coder init: %w", noEOF(err))
	}

	return lr, nil
}

// Reopen starts the next LZMA2 chunk: fresh range coder, declared
// output budget, adaptive state untouched.
func (r *Reader) Reopen(in io.ByteReader, unpackSize uint64) error {
	r.isEndOfStream = false
	r.s.SetUnpackSize(unpackSize)

	if err := r.rangeDec.Reopen(in); err != nil {
		return noEOF(err)
	}

	return nil
}

func (r *Reader) resetState(props Properties) {
	if props != (Properties{LC: r.s.lc, LP: r.s.lp, PB: r.s.pb}) {
		r.s = newDecoderState(props)
		return
	}

	r.s.Reset()
}

func (r *Reader) Read(p []byte) (n int, err error) {
	for {
		if r.outWindow.HasPending() {
			n += r.outWindow.ReadPending(p[n:])
			if n >= len(p) {
				return n, nil
			}
		}

		if r.isEndOfStream {
			return n, io.EOF
		}

		err = r.decompress()
		if errors.Is(err, io.EOF) {
			r.isEndOfStream = true
			err = nil
		}
		if err != nil {
			return n, err
		}
	}
}

func (r *Reader) decompress() error {
	for r.outWindow.Available() >= kMatchMaxLen {
		err := r.decodeOperation()
		if err == io.EOF {
			if !r.rangeDec.IsFinishedOK() {
				return ErrCorrupted
			}

			return io.EOF
		}
		if err != nil {
			return err
		}
	}

	return nil
}

// noEOF converts a bare EOF from the byte source into an unexpected-EOF:
// running dry in the middle of a symbol is corruption, not a clean end.
func noEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}

	return err
}

func (r *Reader) decodeOperation() error {
	s := r.s

	if s.unpackSizeDefined && s.bytesLeft == 0 && !s.markerIsMandatory {
		if r.rangeDec.IsFinishedOK() {
			return io.EOF
		}
	}

	s.posState = uint32(r.outWindow.TotalPos) & s.posMask
	state2 := (s.state << kNumPosBitsMax) + s.posState

	bit, err := r.rangeDec.DecodeBit(&s.isMatch[state2])
	if err != nil {
		return noEOF(err)
	}
	if bit == 0 { // literal
		if s.unpackSizeDefined && s.bytesLeft == 0 {
			return ErrCorrupted
		}

		if err = r.decodeLiteral(s.state, s.rep0); err != nil {
			return fmt.Errorf("lzma: decode literal: %w", noEOF(err))
		}

		s.state = stateUpdateLiteral(s.state)
		s.bytesLeft--

		return nil
	}

	var length uint32

	bit, err = r.rangeDec.DecodeBit(&s.isRep[s.state])
	if err != nil {
		return noEOF(err)
	}
	if bit == 0 { // simple match
		s.rep3, s.rep2, s.rep1 = s.rep2, s.rep1, s.rep0

		length, err = s.lenDecoder.Decode(r.rangeDec, s.posState)
		if err != nil {
			return noEOF(err)
		}

		s.state = stateUpdateMatch(s.state)

		s.rep0, err = r.decodeDistance(length)
		if err != nil {
			return noEOF(err)
		}

		if s.rep0 == kEndMarkerDist {
			if !r.rangeDec.IsFinishedOK() {
				return ErrCorrupted
			}
			if s.unpackSizeDefined && s.bytesLeft > 0 && !s.markerIsMandatory {
				return ErrCorrupted
			}

			return io.EOF
		}

		if s.unpackSizeDefined && s.bytesLeft == 0 {
			return ErrCorrupted
		}

		if s.rep0 >= r.outWindow.size || !r.outWindow.CheckDistance(s.rep0+1) {
			return ErrCorrupted
		}
	} else { // rep match
		if s.unpackSizeDefined && s.bytesLeft == 0 {
			return ErrCorrupted
		}

		if r.outWindow.IsEmpty() {
			return ErrCorrupted
		}

		bit, err = r.rangeDec.DecodeBit(&s.isRepG0[s.state])
		if err != nil {
			return noEOF(err)
		}
		if bit == 0 {
			bit, err = r.rangeDec.DecodeBit(&s.isRep0Long[state2])
			if err != nil {
				return noEOF(err)
			}
			if bit == 0 { // short rep
				s.state = stateUpdateShortRep(s.state)
				r.outWindow.PutByte(r.outWindow.GetByte(s.rep0 + 1))
				s.bytesLeft--

				return nil
			}
		} else {
			var dist uint32

			bit, err = r.rangeDec.DecodeBit(&s.isRepG1[s.state])
			if err != nil {
				return noEOF(err)
			}
			if bit == 0 {
				dist = s.rep1
			} else {
				bit, err = r.rangeDec.DecodeBit(&s.isRepG2[s.state])
				if err != nil {
					return noEOF(err)
				}
				if bit == 0 {
					dist = s.rep2
				} else {
					dist = s.rep3
					s.rep3 = s.rep2
				}

				s.rep2 = s.rep1
			}

			s.rep1 = s.rep0
			s.rep0 = dist
		}

		length, err = s.repLenDecoder.Decode(r.rangeDec, s.posState)
		if err != nil {
			return noEOF(err)
		}

		s.state = stateUpdateRep(s.state)
	}

	length += kMatchMinLen
	if s.unpackSizeDefined && uint64(length) > s.bytesLeft {
		return ErrCorrupted
	}

	r.outWindow.CopyMatch(s.rep0+1, length)
	s.bytesLeft -= uint64(length)

	return nil
}

func (r *Reader) decodeLiteral(state, rep0 uint32) error {
	prevByte := byte(0)
	if !r.outWindow.IsEmpty() {
		prevByte = r.outWindow.GetByte(1)
	}

	litState := ((uint32(r.outWindow.TotalPos) & ((1 << r.s.lp) - 1)) << r.s.lc) +
		uint32(prevByte)>>(8-r.s.lc)
	probs := r.s.litProbs[uint32(0x300)*litState:]

	symbol := uint32(1)

	if !stateIsLiteral(state) {
		matchByte := r.outWindow.GetByte(rep0 + 1)

		for symbol < 0x100 {
			matchBit := uint32(matchByte>>7) & 1
			matchByte <<= 1

			bit, err := r.rangeDec.DecodeBit(&probs[((1+matchBit)<<8)+symbol])
			if err != nil {
				return err
			}

			symbol = (symbol << 1) | bit
			if matchBit != bit {
				break
			}
		}
	}

	for symbol < 0x100 {
		bit, err := r.rangeDec.DecodeBit(&probs[symbol])
		if err != nil {
			return err
		}

		symbol = (symbol << 1) | bit
	}

	r.outWindow.PutByte(byte(symbol - 0x100))

	return nil
}

func (r *Reader) decodeDistance(length uint32) (uint32, error) {
	lenState := length
	if lenState > kNumLenToPosStates-1 {
		lenState = kNumLenToPosStates - 1
	}

	s := r.s

	posSlot, err := s.posSlotDecoder[lenState].Decode(r.rangeDec)
	if err != nil {
		return 0, err
	}

	if posSlot < kStartPosModelIndex {
		return posSlot, nil
	}

	numDirectBits := int(posSlot>>1 - 1)
	dist := (2 | (posSlot & 1)) << uint(numDirectBits)

	if posSlot < kEndPosModelIndex {
		bits, err := bitTreeReverseDecode(s.posDecoders[dist-posSlot:], numDirectBits, r.rangeDec)
		if err != nil {
			return 0, err
		}

		return dist + bits, nil
	}

	direct, err := r.rangeDec.DecodeDirectBits(numDirectBits - kNumAlignBits)
	if err != nil {
		return 0, err
	}
	dist += direct << kNumAlignBits

	align, err := s.alignDecoder.ReverseDecode(r.rangeDec)
	if err != nil {
		return 0, err
	}

	return dist + align, nil
}

// Decode decompresses a complete .lzma stream from r into w.
func Decode(r io.Reader, w io.Writer) error {
	lr, err := NewReader(r)
	if err != nil {
		return err
	}

	_, err = io.Copy(w, lr)

	return err
}
