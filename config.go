package lzma

import (
	"fmt"
)

// Algo selects the parser.
type Algo int

const (
	// AlgoNormal runs the dynamic-programming parser.
	AlgoNormal Algo = iota
	// AlgoFast takes the longest match greedily with a one-byte peek.
	AlgoFast
)

// WriterConfig carries the encoder parameters. The zero value selects
// level 5 defaults. A non-negative Level picks the parser and match
// finder and fills in dictionary size and fast bytes where left zero;
// Level -1 skips the preset and keeps the explicit fields, but a zero
// DictSize or NumFastBytes and an all-zero LC/LP/PB still get the
// defaults (8 MiB, 32, and 3/0/2).
type WriterConfig struct {
	Level int

	DictSize     uint32
	LC, LP, PB   int
	Algo         Algo
	NumFastBytes int
	MatchFinder  MatchFinderKind
	CutValue     uint32

	// MTThreads > 0 enables the pipelined match finder with that many
	// worker goroutines (1 or 2).
	MTThreads int

	// BlockSize is the parallel encoder's block granularity; it is
	// rounded up to DictSize.
	BlockSize int64
	// Workers bounds the parallel encoder's concurrency.
	Workers int

	// Progress, when set, is called at chunk boundaries with the total
	// input consumed and output produced; returning an error cancels
	// the encode.
	Progress func(in, out int64) error

	// MT is derived from MTThreads.
	MT bool

	filled bool
}

type preset struct {
	dictSize  uint32
	fastBytes int
	algo      Algo
	mf        MatchFinderKind
}

var presets = [10]preset{
	{1 << 16, 32, AlgoFast, MatchFinderHC4},   // 0
	{1 << 20, 32, AlgoFast, MatchFinderHC4},   // 1
	{1 << 21, 32, AlgoFast, MatchFinderHC4},   // 2
	{1 << 22, 32, AlgoFast, MatchFinderHC4},   // 3
	{1 << 22, 32, AlgoNormal, MatchFinderBT4}, // 4
	{1 << 23, 32, AlgoNormal, MatchFinderBT4}, // 5
	{1 << 23, 64, AlgoNormal, MatchFinderBT4}, // 6
	{1 << 24, 64, AlgoNormal, MatchFinderBT4}, // 7
	{1 << 25, 128, AlgoNormal, MatchFinderBT4}, // 8
	{1 << 26, 273, AlgoNormal, MatchFinderBT4}, // 9
}

// DefaultLevel is applied when a config leaves everything zero.
const DefaultLevel = 5

func (c *WriterConfig) clone() *WriterConfig {
	if c == nil {
		return &WriterConfig{}
	}

	d := *c

	return &d
}

// fill resolves presets and defaults. It is idempotent.
func (c *WriterConfig) fill() {
	if c.filled {
		return
	}

	level := c.Level
	if level == 0 && c.DictSize == 0 && c.NumFastBytes == 0 {
		level = DefaultLevel
	}

	// A non-negative level is a preset: the parser and match finder
	// come from the level, dictionary and fast bytes only where not
	// set explicitly. Level -1 skips this step; the defaults below
	// still apply to fields left zero.
	if level >= 0 && level <= 9 {
		p := presets[level]
		if c.DictSize == 0 {
			c.DictSize = p.dictSize
		}
		if c.NumFastBytes == 0 {
			c.NumFastBytes = p.fastBytes
		}

		c.Algo = p.algo
		c.MatchFinder = p.mf
	}

	if c.DictSize == 0 {
		c.DictSize = presets[DefaultLevel].dictSize
	}
	if c.DictSize < lzmaDicMin {
		c.DictSize = lzmaDicMin
	}
	if c.NumFastBytes == 0 {
		c.NumFastBytes = 32
	}
	if c.LC == 0 && c.LP == 0 && c.PB == 0 {
		c.LC, c.LP, c.PB = 3, 0, 2
	}
	if c.MTThreads > 0 {
		c.MT = true
		if c.MTThreads > 2 {
			c.MTThreads = 2
		}
	}
	if c.BlockSize == 0 {
		c.BlockSize = int64(c.DictSize)
		if c.BlockSize < 1<<22 {
			c.BlockSize = 1 << 22
		}
	}
	if c.BlockSize < int64(c.DictSize) {
		c.BlockSize = int64(c.DictSize)
	}
	if c.Workers == 0 {
		c.Workers = 4
	}

	c.filled = true
}

// Verify rejects parameter combinations the format cannot express.
func (c *WriterConfig) Verify() error {
	if c.Level < -1 || c.Level > 9 {
		return fmt.Errorf("lzma: level %d out of range", c.Level)
	}
	if c.LC < 0 || c.LC > kNumLitContextBitsMax {
		return fmt.Errorf("lzma: lc %d out of range", c.LC)
	}
	if c.LP < 0 || c.LP > kNumLitPosBitsMax {
		return fmt.Errorf("lzma: lp %d out of range", c.LP)
	}
	if c.PB < 0 || c.PB > kNumPosBitsMax {
		return fmt.Errorf("lzma: pb %d out of range", c.PB)
	}
	if c.LC+c.LP > 4 {
		return fmt.Errorf("lzma: lc+lp = %d exceeds 4", c.LC+c.LP)
	}
	if c.NumFastBytes < 5 || c.NumFastBytes > kMatchMaxLen {
		return fmt.Errorf("lzma: fast bytes %d out of range", c.NumFastBytes)
	}
	if c.MTThreads < 0 || c.MTThreads > 2 {
		return fmt.Errorf("lzma: mt threads %d out of range", c.MTThreads)
	}

	return nil
}

func (c *WriterConfig) props() Properties {
	return Properties{LC: uint32(c.LC), LP: uint32(c.LP), PB: uint32(c.PB)}
}

func (c *WriterConfig) progress(in, out int64) error {
	if c.Progress == nil {
		return nil
	}

	if err := c.Progress(in, out); err != nil {
		if err == ErrCanceled {
			return err
		}

		return fmt.Errorf("%w: %v", ErrCanceled, err)
	}

	return nil
}
