package lzma

// window is the decoder's dictionary: a ring buffer of dictSize bytes.
// Decoded bytes stay pending until the consumer drains them with
// ReadPending, so the buffer doubles as the output staging area.
type window struct {
	buf    []byte
	pos    uint32
	size   uint32
	isFull bool

	// TotalPos counts every byte ever produced; the low bits provide
	// the position context and survive ring wrap-around.
	TotalPos uint64

	pending uint32
}

func newWindow(dictSize uint32) *window {
	return &window{
		buf:  make([]byte, dictSize),
		size: dictSize,
	}
}

// Reset discards the dictionary history. Pending output must have been
// drained before a reset; LZMA2 dictionary-reset chunks arrive only at
// chunk boundaries where that holds.
func (w *window) Reset() {
	w.pos = 0
	w.isFull = false
	w.TotalPos = 0
	w.pending = 0
}

func (w *window) PutByte(b byte) {
	w.TotalPos++
	w.buf[w.pos] = b
	w.pos++
	w.pending++

	if w.pos == w.size {
		w.pos = 0
		w.isFull = true
	}
}

func (w *window) GetByte(dist uint32) byte {
	i := w.size - dist + w.pos

	if dist <= w.pos {
		i = w.pos - dist
	}

	return w.buf[i]
}

func (w *window) CopyMatch(dist, length uint32) {
	for ; length > 0; length-- {
		w.PutByte(w.GetByte(dist))
	}
}

// CheckDistance reports whether dist bytes of history exist.
func (w *window) CheckDistance(dist uint32) bool {
	return dist <= w.pos || w.isFull
}

func (w *window) IsEmpty() bool {
	return w.pos == 0 && !w.isFull
}

// Available is the room left before pending output would be overwritten.
func (w *window) Available() uint32 {
	return w.size - w.pending
}

func (w *window) HasPending() bool {
	return w.pending > 0
}

func (w *window) ReadPending(p []byte) int {
	n := w.pending
	if uint32(len(p)) < n {
		n = uint32(len(p))
	}

	for i := uint32(0); i < n; i++ {
		p[i] = w.GetByte(w.pending - i)
	}

	w.pending -= n

	return int(n)
}
