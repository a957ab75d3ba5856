package lzma

import (
	"bytes"
	"io"
)

// Chunk budgets: stop the symbol loop well before the header fields
// saturate, so the final symbol and the 5 flush bytes always fit.
const (
	chunkUnpackLimit = maxChunkUncompressedSize - 2*kMatchMaxLen
	chunkPackLimit   = maxChunkCompressedSize - 2048
)

// chunkEncoder turns input segments into LZMA2 chunks. The underlying
// LZMA encoder lives across chunks: a fresh range coder per chunk,
// everything else continuing, so the first chunk resets the dictionary
// and later ones carry control byte 0x80. When a chunk body would not
// shrink the data it is replaced by uncompressed chunks, after which
// the format demands a state reset, and new properties as well when the
// replaced chunk was the one that carried them.
type chunkEncoder struct {
	enc  *encoder
	conf *WriterConfig

	packBuf bytes.Buffer

	pendingReset int

	totalIn  int64
	totalOut int64
}

func newChunkEncoder(conf *WriterConfig) *chunkEncoder {
	c := &chunkEncoder{
		enc:  newEncoder(conf),
		conf: conf,

		pendingReset: resetStateNewPropsDict,
	}
	c.enc.re = newRangeEncoder(&c.packBuf)

	return c
}

func (c *chunkEncoder) Close() error {
	return c.enc.mf.Close()
}

// ResetDictionary forces the next chunk to start a fresh dictionary.
func (c *chunkEncoder) ResetDictionary() {
	c.pendingReset = resetStateNewPropsDict
}

func (c *chunkEncoder) write(w io.Writer, p []byte) error {
	n, err := w.Write(p)
	c.totalOut += int64(n)

	return err
}

func (c *chunkEncoder) writeChunkHeader(w io.Writer, mode, unpack, pack int) error {
	u := unpack - 1
	p := pack - 1

	hdr := make([]byte, 0, 6)
	hdr = append(hdr,
		byte(controlCompressed|mode<<5|(u>>16)&maskUncompressedSizeHighBits),
		byte(u>>8), byte(u),
		byte(p>>8), byte(p),
	)
	if mode >= resetStateNewProps {
		hdr = append(hdr, c.conf.props().byte())
	}

	return c.write(w, hdr)
}

func (c *chunkEncoder) writeUncompressed(w io.Writer, data []byte, resetDict bool) error {
	for len(data) > 0 {
		n := len(data)
		if n > maxUncompressedChunkSize {
			n = maxUncompressedChunkSize
		}

		control := byte(controlUncompressedNoReset)
		if resetDict {
			control = controlUncompressedReset
			resetDict = false
		}

		hdr := []byte{control, byte((n - 1) >> 8), byte(n - 1)}
		if err := c.write(w, hdr); err != nil {
			return err
		}
		if err := c.write(w, data[:n]); err != nil {
			return err
		}

		data = data[n:]
	}

	return nil
}

// encodeSegment compresses one input segment into a sequence of chunks
// written to w. Matches may reach back into earlier segments; they
// never extend forward past the segment end.
func (c *chunkEncoder) encodeSegment(data []byte, w io.Writer) error {
	if len(data) == 0 {
		return nil
	}

	e := c.enc

	if c.pendingReset == resetStateNewPropsDict {
		e.resetDictionary()
	}

	if err := e.mf.Continue(bytes.NewReader(data)); err != nil {
		return err
	}

	done := 0

	for {
		mode := c.pendingReset
		c.pendingReset = resetNone

		c.packBuf.Reset()
		e.re.Reset(&c.packBuf)

		startPos := e.nowPos
		e.outCap = func() bool {
			return c.packBuf.Len()+e.re.cacheLen >= chunkPackLimit
		}
		err := e.codeBlock(chunkUnpackLimit)
		e.outCap = nil
		if err != nil {
			return err
		}
		segmentDone := e.finished

		if err := e.re.Flush(); err != nil {
			return err
		}

		unpack := int(e.nowPos - startPos)
		pack := c.packBuf.Len()
		raw := data[done : done+unpack]
		done += unpack
		c.totalIn += int64(unpack)

		if pack+6 >= unpack {
			// The chunk body expanded; ship the bytes as-is. The
			// probabilities advanced during the discarded attempt, so
			// the next compressed chunk must reset the state.
			err = c.writeUncompressed(w, raw, mode == resetStateNewPropsDict)
			if err != nil {
				return err
			}

			e.resetProbsKeepPosition()
			c.pendingReset = resetState
			if mode >= resetStateNewProps {
				// No properties byte has been written since the
				// dictionary reset; the next compressed chunk carries it.
				c.pendingReset = resetStateNewProps
			}
		} else {
			if err := c.writeChunkHeader(w, mode, unpack, pack); err != nil {
				return err
			}
			if err := c.write(w, c.packBuf.Bytes()); err != nil {
				return err
			}
		}

		if err := c.conf.progress(c.totalIn, c.totalOut); err != nil {
			return err
		}

		if segmentDone {
			return nil
		}
	}
}

// Writer2 compresses data written to it into a raw LZMA2 chunk stream.
// Close writes the terminator byte.
type Writer2 struct {
	w  io.Writer
	ce *chunkEncoder

	buf    []byte
	n      int
	closed bool
	err    error
}

// Writer2 staging segment; one segment becomes one or more chunks.
const writer2SegmentSize = 1 << 20

// NewWriter2 returns a WriteCloser producing a raw LZMA2 stream on w.
// A nil config selects the default level.
func NewWriter2(w io.Writer, conf *WriterConfig) (*Writer2, error) {
	conf = conf.clone()
	conf.fill()
	if err := conf.Verify(); err != nil {
		return nil, err
	}

	return &Writer2{
		w:   w,
		ce:  newChunkEncoder(conf),
		buf: make([]byte, writer2SegmentSize),
	}, nil
}

func (z *Writer2) Write(p []byte) (int, error) {
	if z.closed {
		return 0, errAlreadyClosed
	}
	if z.err != nil {
		return 0, z.err
	}

	total := 0
	for len(p) > 0 {
		n := copy(z.buf[z.n:], p)
		z.n += n
		p = p[n:]
		total += n

		if z.n == len(z.buf) {
			if err := z.flushSegment(); err != nil {
				return total, err
			}
		}
	}

	return total, nil
}

func (z *Writer2) flushSegment() error {
	if z.n == 0 {
		return nil
	}

	err := z.ce.encodeSegment(z.buf[:z.n], z.w)
	z.n = 0
	if err != nil {
		z.err = err
	}

	return err
}

// Flush compresses all buffered data into chunks. It cuts the match
// horizon at the current write position, so frequent flushes reduce
// compression.
func (z *Writer2) Flush() error {
	if z.closed {
		return errAlreadyClosed
	}
	if z.err != nil {
		return z.err
	}

	return z.flushSegment()
}

// ResetDictionary flushes buffered data and starts a fresh dictionary
// with the next chunk.
func (z *Writer2) ResetDictionary() error {
	if err := z.Flush(); err != nil {
		return err
	}

	z.ce.ResetDictionary()

	return nil
}

func (z *Writer2) Close() error {
	if z.closed {
		return errAlreadyClosed
	}

	if z.err == nil {
		z.err = z.flushSegment()
	}

	z.closed = true

	closeErr := z.ce.Close()
	if z.err != nil {
		return z.err
	}
	if closeErr != nil {
		return closeErr
	}

	_, err := z.w.Write([]byte{controlEndOfStream})

	return err
}
