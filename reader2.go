package lzma

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

type byteScanner interface {
	io.Reader
	io.ByteReader
}

func newByteScanner(r io.Reader) byteScanner {
	if bs, ok := r.(byteScanner); ok {
		return bs
	}

	return bufio.NewReader(r)
}

// limitedByteReader hands out at most n bytes and records how many are
// left, so chunk decoding can be checked against the declared pack
// size byte for byte.
type limitedByteReader struct {
	r io.ByteReader
	n int64
}

func (l *limitedByteReader) ReadByte() (byte, error) {
	if l.n <= 0 {
		return 0, io.EOF
	}

	b, err := l.r.ReadByte()
	if err == nil {
		l.n--
	}

	return b, err
}

// Reader2 decompresses a raw LZMA2 chunk sequence. All chunks share one
// dictionary; compressed chunks may reset the adaptive state, the
// properties or the dictionary as flagged in their control bytes. The
// reader stops at the terminator byte and leaves trailing input
// untouched.
type Reader2 struct {
	inStream byteScanner

	dictSize uint32

	outWindow  *window
	lzmaReader *Reader

	chunk      chunkHeader
	body       *limitedByteReader
	copied     uint32
	terminated bool

	// The format requires a dictionary reset in the very first chunk
	// and a state reset in the first compressed chunk after an
	// uncompressed one.
	needDictReset  bool
	needStateReset bool
}

// NewReader2 returns a reader for a raw LZMA2 stream. dictSize bounds
// the match distances; zero selects an 8 MiB default.
func NewReader2(r io.Reader, dictSize int) (*Reader2, error) {
	d := uint32(dictSize)
	if d < lzmaDicMin {
		d = 8 << 20
	}

	r2 := &Reader2{
		inStream: newByteScanner(r),
		dictSize: d,

		outWindow:     newWindow(d),
		needDictReset: true,
	}

	if err := r2.startChunk(); err != nil {
		return nil, err
	}

	return r2, nil
}

func (r *Reader2) readHeaderByte() (byte, error) {
	b, err := r.inStream.ReadByte()
	if err != nil {
		return 0, noEOF(err)
	}

	return b, nil
}

func (r *Reader2) startChunk() error {
	control, err := r.inStream.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}

		return err
	}

	h := chunkHeader{control: control}

	if h.endOfStream() {
		r.chunk = h
		r.terminated = true

		return nil
	}

	if !h.uncompressed() && !h.compressed() {
		return fmt.Errorf("%w: %#02x", ErrUnexpectedChunk, control)
	}

	b1, err := r.readHeaderByte()
	if err != nil {
		return err
	}
	b2, err := r.readHeaderByte()
	if err != nil {
		return err
	}
	h.unpackSize = (uint32(b1)<<8 | uint32(b2)) + 1

	if h.uncompressed() {
		if r.needDictReset && !h.resetsDict() {
			return ErrCorrupted
		}
		if h.resetsDict() {
			r.outWindow.Reset()
		}

		r.needDictReset = false
		r.needStateReset = true
		r.chunk = h
		r.copied = 0

		return nil
	}

	h.unpackSize += uint32(control&maskUncompressedSizeHighBits) << 16

	b3, err := r.readHeaderByte()
	if err != nil {
		return err
	}
	b4, err := r.readHeaderByte()
	if err != nil {
		return err
	}
	h.packSize = (uint32(b3)<<8 | uint32(b4)) + 1

	if h.resetMode() >= resetStateNewProps {
		pb, err := r.readHeaderByte()
		if err != nil {
			return err
		}

		h.props, err = decodeProperties(pb)
		if err != nil {
			return err
		}

		h.hasProps = true
	}

	if r.needDictReset && h.resetMode() != resetStateNewPropsDict {
		return ErrCorrupted
	}
	if r.needStateReset && !h.resetsState() {
		return ErrCorrupted
	}
	if r.lzmaReader == nil && !h.hasProps {
		return ErrCorrupted
	}

	if h.resetsDict() {
		r.outWindow.Reset()
	}

	r.needDictReset = false
	r.needStateReset = false

	r.body = &limitedByteReader{r: r.inStream, n: int64(h.packSize)}

	if r.lzmaReader == nil {
		r.lzmaReader, err = newChunkReader(r.body, h.props, uint64(h.unpackSize), r.outWindow)
		if err != nil {
			return err
		}
	} else {
		if h.hasProps {
			r.lzmaReader.resetState(h.props)
		} else if h.resetsState() {
			r.lzmaReader.s.Reset()
		}

		if err := r.lzmaReader.Reopen(r.body, uint64(h.unpackSize)); err != nil {
			return err
		}
	}

	r.chunk = h

	return nil
}

func (r *Reader2) Read(p []byte) (n int, err error) {
	for n < len(p) {
		if r.terminated {
			if n > 0 {
				return n, nil
			}

			return 0, io.EOF
		}

		var k int

		if r.chunk.uncompressed() {
			k, err = r.uncompressedRead(p[n:])
		} else {
			k, err = r.lzmaReader.Read(p[n:])
		}
		n += k

		if errors.Is(err, io.EOF) {
			if err = r.finishChunk(); err != nil {
				return n, err
			}

			continue
		}
		if err != nil {
			return n, err
		}
	}

	return n, nil
}

// finishChunk validates the byte budgets of the chunk just decoded and
// reads the next chunk header.
func (r *Reader2) finishChunk() error {
	if r.chunk.compressed() {
		if r.body.n != 0 {
			return ErrCorrupted
		}
		if r.lzmaReader.s.bytesLeft != 0 {
			return ErrCorrupted
		}
	} else if r.copied != r.chunk.unpackSize {
		return ErrCorrupted
	}

	return r.startChunk()
}

func (r *Reader2) uncompressedRead(p []byte) (n int, err error) {
	for n < len(p) {
		if r.outWindow.HasPending() {
			n += r.outWindow.ReadPending(p[n:])
			continue
		}

		if r.copied == r.chunk.unpackSize {
			return n, io.EOF
		}

		room := r.outWindow.Available()
		if room == 0 {
			return n, nil
		}

		want := r.chunk.unpackSize - r.copied
		if want > room {
			want = room
		}
		if want > 4096 {
			want = 4096
		}

		for i := uint32(0); i < want; i++ {
			b, err := r.inStream.ReadByte()
			if err != nil {
				return n, noEOF(err)
			}

			r.outWindow.PutByte(b)
		}

		r.copied += want
	}

	if n == 0 && r.copied == r.chunk.unpackSize && !r.outWindow.HasPending() {
		return 0, io.EOF
	}

	return n, nil
}

// Decode2 decompresses a raw LZMA2 stream from r into w.
func Decode2(r io.Reader, w io.Writer, dictSize int) error {
	r2, err := NewReader2(r, dictSize)
	if err != nil {
		return err
	}

	_, err = io.Copy(w, r2)

	return err
}
