package lzma

import (
	"bytes"
	"context"
	"io"

	"golang.org/x/sync/errgroup"
)

// ParallelWriter2 splits its input into independent blocks, encodes
// them on a worker pool and reassembles the chunk streams in block
// order. Every block starts with a dictionary-reset chunk, so workers
// share nothing; the result is one valid LZMA2 stream.
type ParallelWriter2 struct {
	w    io.Writer
	conf *WriterConfig

	g      *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	jobs  chan *parallelJob
	order chan *parallelJob

	buf    []byte
	n      int
	closed bool
}

type parallelJob struct {
	data []byte
	out  bytes.Buffer
	err  error
	done chan struct{}
}

// NewParallelWriter2 returns a WriteCloser producing a raw LZMA2
// stream on w using conf.Workers encoder goroutines over blocks of
// conf.BlockSize bytes.
func NewParallelWriter2(ctx context.Context, w io.Writer, conf *WriterConfig) (*ParallelWriter2, error) {
	conf = conf.clone()
	conf.fill()
	if err := conf.Verify(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)

	z := &ParallelWriter2{
		w:    w,
		conf: conf,

		g:      g,
		ctx:    ctx,
		cancel: cancel,

		jobs:  make(chan *parallelJob),
		order: make(chan *parallelJob, conf.Workers*2),

		buf: make([]byte, conf.BlockSize),
	}

	// Workers own one encoder each; per-worker progress is disabled,
	// the emitter reports totals in block order instead.
	workerConf := conf.clone()
	workerConf.Progress = nil

	for i := 0; i < conf.Workers; i++ {
		g.Go(func() error {
			ce := newChunkEncoder(workerConf.clone())
			defer ce.Close()

			for job := range z.jobs {
				ce.ResetDictionary()
				job.err = ce.encodeSegment(job.data, &job.out)
				close(job.done)

				if job.err != nil {
					return job.err
				}
			}

			return nil
		})
	}

	// The emitter drains jobs in submission order, waiting for each to
	// finish before writing its output.
	g.Go(func() error {
		var totalIn, totalOut int64

		for job := range z.order {
			select {
			case <-job.done:
			case <-ctx.Done():
				return ctx.Err()
			}

			if job.err != nil {
				return job.err
			}

			if _, err := w.Write(job.out.Bytes()); err != nil {
				return err
			}

			totalIn += int64(len(job.data))
			totalOut += int64(job.out.Len())

			if err := conf.progress(totalIn, totalOut); err != nil {
				return err
			}
		}

		return nil
	})

	return z, nil
}

func (z *ParallelWriter2) submit() error {
	if z.n == 0 {
		return nil
	}

	job := &parallelJob{
		data: append([]byte(nil), z.buf[:z.n]...),
		done: make(chan struct{}),
	}
	z.n = 0

	select {
	case z.order <- job:
	case <-z.ctx.Done():
		return z.fail()
	}

	select {
	case z.jobs <- job:
	case <-z.ctx.Done():
		return z.fail()
	}

	return nil
}

// fail shuts the pipeline down and reports the first worker error.
func (z *ParallelWriter2) fail() error {
	z.closed = true
	z.cancel()
	close(z.jobs)
	close(z.order)

	if err := z.g.Wait(); err != nil {
		return err
	}

	return z.ctx.Err()
}

func (z *ParallelWriter2) Write(p []byte) (int, error) {
	if z.closed {
		return 0, errAlreadyClosed
	}

	total := 0
	for len(p) > 0 {
		n := copy(z.buf[z.n:], p)
		z.n += n
		p = p[n:]
		total += n

		if z.n == len(z.buf) {
			if err := z.submit(); err != nil {
				return total, err
			}
		}
	}

	return total, nil
}

func (z *ParallelWriter2) Close() error {
	if z.closed {
		return errAlreadyClosed
	}

	if err := z.submit(); err != nil {
		return err
	}

	z.closed = true
	close(z.jobs)
	close(z.order)

	err := z.g.Wait()
	z.cancel()
	if err != nil {
		return err
	}

	_, err = z.w.Write([]byte{controlEndOfStream})

	return err
}
