package lzma

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParallelWriter2RoundTrip(t *testing.T) {
	r := require.New(t)

	// Number the blocks so any reordering corrupts the output.
	var data bytes.Buffer
	for i := 0; data.Len() < 3<<20; i++ {
		fmt.Fprintf(&data, "block %08d payload %s\n", i, mixedCorpus(200, int64(i)))
	}

	conf := &WriterConfig{
		Level:     5,
		DictSize:  1 << 18,
		BlockSize: 1 << 18,
		Workers:   4,
	}

	var buf bytes.Buffer
	w, err := NewParallelWriter2(context.Background(), &buf, conf)
	r.NoError(err)

	_, err = w.Write(data.Bytes())
	r.NoError(err)
	r.NoError(w.Close())

	out := decompress2(t, buf.Bytes(), 1<<18)
	r.Equal(data.Bytes(), out)
}

func TestParallelWriter2SingleSmallBlock(t *testing.T) {
	r := require.New(t)

	data := []byte("just a little input")

	var buf bytes.Buffer
	w, err := NewParallelWriter2(context.Background(), &buf, &WriterConfig{Level: 5})
	r.NoError(err)
	_, err = w.Write(data)
	r.NoError(err)
	r.NoError(w.Close())

	r.Equal(data, decompress2(t, buf.Bytes(), 0))
}

func TestParallelWriter2BlocksAreIndependent(t *testing.T) {
	r := require.New(t)

	// Two identical blocks: since every block resets the dictionary,
	// the second cannot reference the first, so the output is roughly
	// twice the single-block size.
	block := mixedCorpus(1<<18, 41)
	data := append(append([]byte(nil), block...), block...)

	conf := &WriterConfig{
		Level:     5,
		DictSize:  1 << 18,
		BlockSize: 1 << 18,
		Workers:   2,
	}

	var buf bytes.Buffer
	w, err := NewParallelWriter2(context.Background(), &buf, conf)
	r.NoError(err)
	_, err = w.Write(data)
	r.NoError(err)
	r.NoError(w.Close())

	var single bytes.Buffer
	ws, err := NewParallelWriter2(context.Background(), &single, conf)
	r.NoError(err)
	_, err = ws.Write(block)
	r.NoError(err)
	r.NoError(ws.Close())

	r.Greater(buf.Len(), single.Len()+single.Len()/2)

	r.Equal(data, decompress2(t, buf.Bytes(), 1<<18))
}

func TestParallelWriter2Empty(t *testing.T) {
	r := require.New(t)

	var buf bytes.Buffer
	w, err := NewParallelWriter2(context.Background(), &buf, nil)
	r.NoError(err)
	r.NoError(w.Close())

	r.Equal([]byte{controlEndOfStream}, buf.Bytes())

	lr, err := NewReader2(bytes.NewReader(buf.Bytes()), 0)
	r.NoError(err)
	out, err := io.ReadAll(lr)
	r.NoError(err)
	r.Empty(out)
}
