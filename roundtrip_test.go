package lzma

import (
	"bytes"
	"io"
	"math/rand"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func compress1(t *testing.T, data []byte, conf *WriterConfig) []byte {
	t.Helper()
	r := require.New(t)

	var buf bytes.Buffer
	w, err := NewWriter(&buf, conf)
	r.NoError(err)
	_, err = w.Write(data)
	r.NoError(err)
	r.NoError(w.Close())

	return buf.Bytes()
}

func decompress1(t *testing.T, data []byte) []byte {
	t.Helper()
	r := require.New(t)

	lr, err := NewReader(bytes.NewReader(data))
	r.NoError(err)
	out, err := io.ReadAll(lr)
	r.NoError(err)

	return out
}

func compress2(t *testing.T, data []byte, conf *WriterConfig) []byte {
	t.Helper()
	r := require.New(t)

	var buf bytes.Buffer
	w, err := NewWriter2(&buf, conf)
	r.NoError(err)
	_, err = w.Write(data)
	r.NoError(err)
	r.NoError(w.Close())

	return buf.Bytes()
}

func decompress2(t *testing.T, data []byte, dictSize int) []byte {
	t.Helper()
	r := require.New(t)

	lr, err := NewReader2(bytes.NewReader(data), dictSize)
	r.NoError(err)
	out, err := io.ReadAll(lr)
	r.NoError(err)

	return out
}

// textCorpus concatenates this package's sources: realistic, highly
// compressible input.
func textCorpus(t *testing.T) []byte {
	t.Helper()
	r := require.New(t)

	var buf bytes.Buffer
	for _, name := range []string{
		"reader.go", "reader2.go", "encoder.go", "optimal.go",
		"bin_tree.go", "writer2.go", "match_finder_mt.go",
	} {
		b, err := os.ReadFile(name)
		r.NoError(err)
		buf.Write(b)
	}

	return buf.Bytes()
}

func TestRoundTripSingleByte(t *testing.T) {
	data := []byte{0x41}

	enc := compress1(t, data, &WriterConfig{Level: -1, DictSize: 1 << 12, LC: 3, LP: 0, PB: 2, NumFastBytes: 32})
	require.Equal(t, data, decompress1(t, enc))
}

func TestRoundTripRepeatingBlock(t *testing.T) {
	r := require.New(t)

	data := bytes.Repeat([]byte{0x41}, 4096)

	enc := compress2(t, data, &WriterConfig{Level: 5})
	r.Less(len(enc), 50, "a 4 KiB run must collapse to a handful of bytes")
	r.Equal(data, decompress2(t, enc, 0))
}

func TestRoundTripRandomMegabyte(t *testing.T) {
	r := require.New(t)

	rng := rand.New(rand.NewSource(42))
	data := make([]byte, 1<<20)
	rng.Read(data)

	enc := compress2(t, data, &WriterConfig{Level: 5})
	r.Less(len(enc), len(data)+len(data)/64+1024,
		"incompressible data must fall back to uncompressed chunks")
	r.Equal(data, decompress2(t, enc, 0))
}

func TestRoundTripTextCorpus(t *testing.T) {
	r := require.New(t)

	data := textCorpus(t)
	r.Greater(len(data), 1<<14)

	enc := compress2(t, data, &WriterConfig{Level: 5})
	ratio := float64(len(enc)) / float64(len(data))
	r.Less(ratio, 0.45, "text must compress below 0.45 (got %.3f)", ratio)
	r.Equal(data, decompress2(t, enc, 0))
}

func TestRoundTripConfigurations(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	words := []string{"the", "quick", "brown", "fox", "jumps", "over", "lazy", "dog", "pack", "my"}
	var sb strings.Builder
	for sb.Len() < 1<<17 {
		sb.WriteString(words[rng.Intn(len(words))])
		sb.WriteByte(' ')
	}
	data := []byte(sb.String())

	configs := []struct {
		name string
		conf *WriterConfig
	}{
		{"level0-fast-hc4", &WriterConfig{Level: 0}},
		{"level2-fast-hc4", &WriterConfig{Level: 2}},
		{"level5-normal-bt4", &WriterConfig{Level: 5}},
		{"level7", &WriterConfig{Level: 7}},
		{"lc0-lp2", &WriterConfig{Level: -1, DictSize: 1 << 18, LC: 0, LP: 2, PB: 2, NumFastBytes: 32}},
		{"pb0", &WriterConfig{Level: -1, DictSize: 1 << 18, LC: 3, LP: 0, PB: 0, NumFastBytes: 64}},
		{"hc4-normal", &WriterConfig{Level: -1, DictSize: 1 << 18, LC: 3, LP: 0, PB: 2, NumFastBytes: 32, MatchFinder: MatchFinderHC4}},
		{"fast-bt4", &WriterConfig{Level: -1, DictSize: 1 << 18, LC: 3, LP: 0, PB: 2, NumFastBytes: 16, Algo: AlgoFast}},
		{"small-dict", &WriterConfig{Level: -1, DictSize: 1 << 12, LC: 3, LP: 0, PB: 2, NumFastBytes: 32}},
	}

	for _, tc := range configs {
		t.Run(tc.name+"-lzma2", func(t *testing.T) {
			enc := compress2(t, data, tc.conf)
			require.Equal(t, data, decompress2(t, enc, 0))
		})
		t.Run(tc.name+"-lzma1", func(t *testing.T) {
			enc := compress1(t, data, tc.conf)
			require.Equal(t, data, decompress1(t, enc))
		})
	}
}

func TestRoundTripEmpty(t *testing.T) {
	r := require.New(t)

	enc := compress2(t, nil, nil)
	r.Equal([]byte{0x00}, enc)
	r.Empty(decompress2(t, enc, 0))

	enc1 := compress1(t, nil, nil)
	r.Empty(decompress1(t, enc1))
}

func TestRoundTripBinaryPatterns(t *testing.T) {
	var data []byte
	for i := 0; i < 1<<12; i++ {
		data = append(data, byte(i), byte(i>>8), 0, 0xFF)
	}

	enc := compress2(t, data, &WriterConfig{Level: 6})
	require.Equal(t, data, decompress2(t, enc, 0))
}

func BenchmarkWriter2Text(b *testing.B) {
	rng := rand.New(rand.NewSource(5))
	words := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	var sb strings.Builder
	for sb.Len() < 1<<20 {
		sb.WriteString(words[rng.Intn(len(words))])
		sb.WriteByte(' ')
	}
	data := []byte(sb.String())

	b.ResetTimer()
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))

	for i := 0; i < b.N; i++ {
		var buf bytes.Buffer
		w, err := NewWriter2(&buf, &WriterConfig{Level: 5})
		if err != nil {
			b.Fatal(err)
		}
		if _, err := w.Write(data); err != nil {
			b.Fatal(err)
		}
		if err := w.Close(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkReader2Text(b *testing.B) {
	rng := rand.New(rand.NewSource(6))
	words := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	var sb strings.Builder
	for sb.Len() < 1<<20 {
		sb.WriteString(words[rng.Intn(len(words))])
		sb.WriteByte(' ')
	}
	data := []byte(sb.String())

	var buf bytes.Buffer
	w, err := NewWriter2(&buf, &WriterConfig{Level: 5})
	if err != nil {
		b.Fatal(err)
	}
	if _, err := w.Write(data); err != nil {
		b.Fatal(err)
	}
	if err := w.Close(); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		r, err := NewReader2(bytes.NewReader(buf.Bytes()), 0)
		if err != nil {
			b.Fatal(err)
		}

		n, err := io.Copy(io.Discard, r)
		if err != nil {
			b.Fatal(err)
		}
		b.SetBytes(n)
	}
}
