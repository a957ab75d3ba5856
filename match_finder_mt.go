package lzma

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

// The pipelined match finder splits the work of the synchronous finders
// across goroutines: a hash stage reads the input and computes the
// prefix hashes per position, a tree stage owns the search structures
// and produces per-position match lists, and the encoder consumes them.
// Handoff is block-granular over bounded channels; the consumer keeps
// its own ring copy of the input so no window memory is shared between
// stages. With one worker thread both stages run in a single goroutine
// and produce the identical block stream, so the encoded output does
// not depend on the thread count.

const (
	mtBlockBytes = 1 << 14
	mtPullAhead  = 1 << 10
	mtChanDepth  = 4
)

var errFinderClosed = errors.New("lzma: match finder closed")

type mtSegment struct {
	r     io.Reader
	reset bool
}

type mtHashBlock struct {
	bytes []byte
	h2    []uint16
	h3    []uint16
	h4    []uint32

	reset  bool
	segEnd bool
	err    error
}

type mtMatchBlock struct {
	bytes  []byte
	counts []uint16
	pairs  []uint32

	segEnd bool
	err    error
}

// mtHashGen is the hash stage: it slices a segment into fixed blocks
// and attaches the prefix hashes of every position that has 4 bytes of
// lookahead. The final 3 positions of a segment carry no hash; the
// tree stage never needs one there.
type mtHashGen struct {
	segCh chan mtSegment
	quit  chan struct{}

	r      io.Reader
	active bool
	hold   []byte
}

func (g *mtHashGen) next() *mtHashBlock {
	for !g.active {
		select {
		case seg := <-g.segCh:
			g.r = seg.r
			g.active = true
			if seg.reset {
				g.hold = g.hold[:0]
				return &mtHashBlock{reset: true}
			}
		case <-g.quit:
			return nil
		}
	}

	buf := make([]byte, 0, mtBlockBytes+3)
	buf = append(buf, g.hold...)

	eof := false
	for len(buf) < cap(buf) {
		n, err := g.r.Read(buf[len(buf):cap(buf)])
		buf = buf[:len(buf)+n]

		if err != nil {
			if !errors.Is(err, io.EOF) {
				g.active = false
				return &mtHashBlock{err: err}
			}

			eof = true

			break
		}
	}

	if eof {
		g.active = false
		g.hold = g.hold[:0]

		numHashes := len(buf) - 3
		if numHashes < 0 {
			numHashes = 0
		}

		blk := &mtHashBlock{bytes: buf, segEnd: true}
		fillHashes(blk, buf, numHashes)

		return blk
	}

	ship := len(buf) - 3
	blk := &mtHashBlock{bytes: buf[:ship]}
	fillHashes(blk, buf, ship)
	g.hold = append(g.hold[:0], buf[ship:]...)

	return blk
}

func fillHashes(blk *mtHashBlock, data []byte, n int) {
	blk.h2 = make([]uint16, n)
	blk.h3 = make([]uint16, n)
	blk.h4 = make([]uint32, n)

	for j := 0; j < n; j++ {
		h2, h3, h4raw := hash4(data[j : j+4])
		blk.h2[j] = uint16(h2)
		blk.h3[j] = uint16(h3)
		blk.h4[j] = h4raw
	}
}

// mtTree is the tree stage's view of the hash-block stream. The byte
// cursor (feeding the finder's window) runs ahead of the position
// cursor; blocks are dropped once both passed them. Everything here
// runs on the tree goroutine, including the feeder reads triggered
// from inside the finder.
type mtTree struct {
	next func() *mtHashBlock

	fifo    []*mtHashBlock
	procIdx int
	feedIdx int
	feedOff int
}

func (t *mtTree) ensure(i int) *mtHashBlock {
	for len(t.fifo) <= i {
		b := t.next()
		if b == nil {
			return nil
		}

		t.fifo = append(t.fifo, b)
	}

	return t.fifo[i]
}

func (t *mtTree) popFront() {
	t.fifo = t.fifo[1:]
	t.procIdx--
	if t.feedIdx > 0 {
		t.feedIdx--
	} else {
		t.feedOff = 0
	}
}

func (t *mtTree) resetSegment() {
	t.fifo = t.fifo[:0]
	t.procIdx = 0
	t.feedIdx = 0
	t.feedOff = 0
}

// mtFeeder adapts the block stream to the io.Reader the finder's
// window fills from. It reports EOF at segment boundaries.
type mtFeeder struct {
	t *mtTree
}

func (f *mtFeeder) Read(p []byte) (int, error) {
	t := f.t

	for {
		b := t.ensure(t.feedIdx)
		if b == nil {
			return 0, errFinderClosed
		}
		if b.err != nil {
			return 0, b.err
		}

		if t.feedOff < len(b.bytes) {
			n := copy(p, b.bytes[t.feedOff:])
			t.feedOff += n

			return n, nil
		}

		if b.segEnd {
			return 0, io.EOF
		}

		t.feedIdx++
		t.feedOff = 0
	}
}

type matchFinderMT struct {
	inner   hashedMatchFinder
	threads int

	segCh   chan mtSegment
	hashCh  chan *mtHashBlock
	matchCh chan *mtMatchBlock
	quit    chan struct{}
	wg      sync.WaitGroup
	stopped atomic.Bool

	ring     []byte
	ringMask int64
	head     int64
	pos      int64

	cur     *mtMatchBlock
	curIdx  int
	curPair int
	queue   []*mtMatchBlock
	segEnd  bool

	pendingReset bool
	err          error
}

func newMatchFinderMT(inner matchFinder, threads int) *matchFinderMT {
	h, ok := inner.(hashedMatchFinder)
	if !ok {
		panic("lzma: inner match finder does not accept precomputed hashes")
	}

	if threads < 1 {
		threads = 1
	}
	if threads > 2 {
		threads = 2
	}

	var dictSize uint32
	switch f := inner.(type) {
	case *binTree:
		dictSize = uint32(f.cyclicBufSize - 1)
		f.win.fillAhead = f.win.keepSizeAfter + 2*mtBlockBytes
	case *hashChain:
		dictSize = uint32(f.cyclicBufSize - 1)
		f.win.fillAhead = f.win.keepSizeAfter + 2*mtBlockBytes
	}

	ringCap := int64(1)
	need := int64(dictSize) + mtBlockBytes + mtPullAhead + 2*kMatchMaxLen + 64
	for ringCap < need {
		ringCap <<= 1
	}

	m := &matchFinderMT{
		inner:   h,
		threads: threads,

		segCh:   make(chan mtSegment),
		matchCh: make(chan *mtMatchBlock, mtChanDepth),
		quit:    make(chan struct{}),

		ring:     make([]byte, ringCap),
		ringMask: ringCap - 1,
	}

	gen := &mtHashGen{segCh: m.segCh, quit: m.quit}

	if threads == 2 {
		m.hashCh = make(chan *mtHashBlock, mtChanDepth)

		m.wg.Add(2)
		go func() {
			defer m.wg.Done()

			for {
				b := gen.next()
				if b == nil {
					return
				}

				select {
				case m.hashCh <- b:
				case <-m.quit:
					return
				}
			}
		}()
		go func() {
			defer m.wg.Done()
			m.runTree(func() *mtHashBlock {
				select {
				case b := <-m.hashCh:
					return b
				case <-m.quit:
					return nil
				}
			})
		}()
	} else {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.runTree(gen.next)
		}()
	}

	return m
}

func (m *matchFinderMT) emit(b *mtMatchBlock) bool {
	select {
	case m.matchCh <- b:
		return true
	case <-m.quit:
		return false
	}
}

func (m *matchFinderMT) runTree(next func() *mtHashBlock) {
	t := &mtTree{next: next}
	feeder := &mtFeeder{t: t}
	pairBuf := make([]uint32, maxMatchPairs)

	for {
		b := t.ensure(0)
		if b == nil {
			return
		}
		if b.err != nil {
			m.emit(&mtMatchBlock{err: b.err})
			return
		}

		if b.reset {
			m.inner.Reset()
			t.resetSegment()

			continue
		}

		if err := m.inner.Continue(feeder); err != nil {
			m.emit(&mtMatchBlock{err: err})
			return
		}

		segDone := false
		for !segDone {
			hb := t.ensure(t.procIdx)
			if hb == nil {
				return
			}
			if hb.err != nil {
				m.emit(&mtMatchBlock{err: hb.err})
				return
			}

			mb := &mtMatchBlock{
				bytes:  hb.bytes,
				counts: make([]uint16, len(hb.bytes)),
			}

			for j := range hb.bytes {
				var (
					n   uint32
					err error
				)

				if j < len(hb.h4) {
					n, err = m.inner.getMatchesHashed(uint32(hb.h2[j]), uint32(hb.h3[j]), hb.h4[j], pairBuf)
				} else {
					n, err = m.inner.getMatchesHashed(0, 0, 0, pairBuf)
				}
				if err != nil {
					m.emit(&mtMatchBlock{err: err})
					return
				}

				mb.counts[j] = uint16(n)
				mb.pairs = append(mb.pairs, pairBuf[:n]...)
			}

			mb.segEnd = hb.segEnd
			if !m.emit(mb) {
				return
			}

			segDone = hb.segEnd
			t.procIdx++
			for t.procIdx > 0 && len(t.fifo) > 0 {
				t.popFront()
			}
		}

		t.resetSegment()
	}
}

func (m *matchFinderMT) pullOne() error {
	select {
	case b := <-m.matchCh:
		for i := 0; i < len(b.bytes); i++ {
			m.ring[(m.head+int64(i))&m.ringMask] = b.bytes[i]
		}
		m.head += int64(len(b.bytes))

		if b.segEnd {
			m.segEnd = true
		}
		if b.err != nil {
			m.err = b.err
			return m.err
		}

		m.queue = append(m.queue, b)

		return nil
	case <-m.quit:
		return errFinderClosed
	}
}

func (m *matchFinderMT) ensureEntry() error {
	if m.err != nil {
		return m.err
	}

	for m.cur == nil || m.curIdx == len(m.cur.counts) {
		if len(m.queue) == 0 {
			if err := m.pullOne(); err != nil {
				return err
			}

			continue
		}

		m.cur = m.queue[0]
		m.queue = m.queue[1:]
		m.curIdx = 0
		m.curPair = 0
	}

	for !m.segEnd && m.head-m.pos < mtPullAhead {
		if err := m.pullOne(); err != nil {
			return err
		}
	}

	return nil
}

func (m *matchFinderMT) GetMatches(distances []uint32) (uint32, error) {
	if err := m.ensureEntry(); err != nil {
		return 0, err
	}

	cnt := int(m.cur.counts[m.curIdx])
	copy(distances[:cnt], m.cur.pairs[m.curPair:m.curPair+cnt])
	m.curPair += cnt
	m.curIdx++
	m.pos++

	return uint32(cnt), nil
}

func (m *matchFinderMT) Skip(num uint32) error {
	for ; num > 0; num-- {
		if err := m.ensureEntry(); err != nil {
			return err
		}

		m.curPair += int(m.cur.counts[m.curIdx])
		m.curIdx++
		m.pos++
	}

	return nil
}

func (m *matchFinderMT) AvailableBytes() uint32 {
	return uint32(m.head - m.pos)
}

func (m *matchFinderMT) IndexByte(offset int32) byte {
	return m.ring[(m.pos+int64(offset))&m.ringMask]
}

func (m *matchFinderMT) MatchLen(offset int32, dist, limit uint32) uint32 {
	p := m.pos + int64(offset)

	lim := int64(limit)
	if p+lim > m.head {
		lim = m.head - p
	}

	delta := int64(dist) + 1

	var n int64
	for n = 0; n < lim && m.ring[(p+n)&m.ringMask] == m.ring[(p+n-delta)&m.ringMask]; n++ {
	}

	return uint32(n)
}

func (m *matchFinderMT) Continue(r io.Reader) error {
	if m.err != nil {
		return m.err
	}
	if m.stopped.Load() {
		return errFinderClosed
	}

	m.segEnd = false

	seg := mtSegment{r: r, reset: m.pendingReset}
	m.pendingReset = false

	select {
	case m.segCh <- seg:
	case <-m.quit:
		return errFinderClosed
	}

	for !m.segEnd && m.head-m.pos < mtPullAhead {
		if err := m.pullOne(); err != nil {
			return err
		}
	}

	return nil
}

func (m *matchFinderMT) Reset() {
	m.pendingReset = true
}

func (m *matchFinderMT) Close() error {
	if !m.stopped.Swap(true) {
		close(m.quit)
	}
	m.wg.Wait()

	return nil
}
