package lzma

import (
	"bufio"
	"io"
)

type countingByteWriter struct {
	w *bufio.Writer
	n int64
}

func (c *countingByteWriter) WriteByte(b byte) error {
	c.n++
	return c.w.WriteByte(b)
}

// Encode compresses everything from r into w as a classic .lzma stream.
// The uncompressed size is written as unknown, so the stream ends with
// the 6-byte end marker.
func Encode(w io.Writer, r io.Reader, conf *WriterConfig) error {
	conf = conf.clone()
	conf.fill()
	if err := conf.Verify(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)

	header := make([]byte, lzmaHeaderSize)
	header[0] = conf.props().byte()
	putDictSize(header[1:5], conf.DictSize)
	for i := lzmaPropSize; i < lzmaHeaderSize; i++ {
		header[i] = 0xFF
	}
	if _, err := bw.Write(header); err != nil {
		return err
	}

	cw := &countingByteWriter{w: bw, n: lzmaHeaderSize}

	enc := newEncoder(conf)
	defer enc.mf.Close()

	enc.re = newRangeEncoder(cw)

	if err := enc.mf.Continue(r); err != nil {
		return err
	}

	for {
		if err := enc.codeBlock(1 << 16); err != nil {
			return err
		}
		if err := conf.progress(enc.nowPos, cw.n); err != nil {
			return err
		}
		if enc.finished {
			break
		}
	}

	if err := enc.writeEndMarker(uint32(enc.nowPos) & enc.posStateMask); err != nil {
		return err
	}
	if err := enc.re.Flush(); err != nil {
		return err
	}

	return bw.Flush()
}

// Writer compresses data written to it into a .lzma stream. Close must
// be called to emit the end marker and flush the coder.
type Writer struct {
	pw     *io.PipeWriter
	result chan error
	closed bool
}

// NewWriter returns a WriteCloser producing a .lzma stream on w. A nil
// config selects the default level.
func NewWriter(w io.Writer, conf *WriterConfig) (*Writer, error) {
	conf = conf.clone()
	conf.fill()
	if err := conf.Verify(); err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	z := &Writer{
		pw:     pw,
		result: make(chan error, 1),
	}

	go func() {
		err := Encode(w, pr, conf)
		pr.CloseWithError(err)
		z.result <- err
	}()

	return z, nil
}

func (z *Writer) Write(p []byte) (int, error) {
	if z.closed {
		return 0, errAlreadyClosed
	}

	return z.pw.Write(p)
}

func (z *Writer) Close() error {
	if z.closed {
		return errAlreadyClosed
	}
	z.closed = true

	if err := z.pw.Close(); err != nil {
		return err
	}

	return <-z.result
}
