package lzma

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWindowPutGet(t *testing.T) {
	r := require.New(t)

	w := newWindow(8)
	r.True(w.IsEmpty())
	r.False(w.CheckDistance(1))

	for _, b := range []byte("abcd") {
		w.PutByte(b)
	}

	r.False(w.IsEmpty())
	r.Equal(byte('d'), w.GetByte(1))
	r.Equal(byte('a'), w.GetByte(4))
	r.True(w.CheckDistance(4))
	r.False(w.CheckDistance(5))
}

func TestWindowCopyMatchOverlapping(t *testing.T) {
	r := require.New(t)

	w := newWindow(16)
	w.PutByte('x')
	// Distance 1, length 5: classic run-length expansion where source
	// and destination overlap.
	w.CopyMatch(1, 5)

	out := make([]byte, 6)
	n := w.ReadPending(out)
	r.Equal(6, n)
	r.Equal([]byte("xxxxxx"), out)
}

func TestWindowWrapAround(t *testing.T) {
	r := require.New(t)

	w := newWindow(4)

	data := []byte("abcdefgh")
	for _, b := range data {
		w.PutByte(b)
		out := make([]byte, 1)
		r.Equal(1, w.ReadPending(out))
		r.Equal(b, out[0])
	}

	// After wrap-around the last 4 bytes are still addressable.
	r.Equal(byte('h'), w.GetByte(1))
	r.Equal(byte('e'), w.GetByte(4))
	r.True(w.CheckDistance(4))
}

func TestWindowPendingBackpressure(t *testing.T) {
	r := require.New(t)

	w := newWindow(8)
	for i := 0; i < 6; i++ {
		w.PutByte(byte('0' + i))
	}

	r.Equal(uint32(2), w.Available())
	r.True(w.HasPending())

	out := make([]byte, 3)
	r.Equal(3, w.ReadPending(out))
	r.Equal([]byte("012"), out)
	r.Equal(uint32(5), w.Available())

	rest := make([]byte, 8)
	r.Equal(3, w.ReadPending(rest))
	r.Equal([]byte("345"), rest[:3])
	r.False(w.HasPending())
}

func TestWindowReset(t *testing.T) {
	r := require.New(t)

	w := newWindow(8)
	w.PutByte('a')
	w.ReadPending(make([]byte, 1))

	w.Reset()
	r.True(w.IsEmpty())
	r.False(w.HasPending())
	r.Equal(uint64(0), w.TotalPos)
}
