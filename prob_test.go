package lzma

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProbStaysUnsaturated(t *testing.T) {
	r := require.New(t)

	// Drive a single probability hard in both directions; it must stay
	// strictly inside (0, 2048) so neither bit value ever becomes free.
	p := prob(probInitVal)
	for i := 0; i < 10000; i++ {
		p += (kBitModelTotal - p) >> kNumMoveBits
	}
	r.LessOrEqual(p, prob(2017))
	r.Greater(p, prob(0))

	p = probInitVal
	for i := 0; i < 10000; i++ {
		p -= p >> kNumMoveBits
	}
	r.GreaterOrEqual(p, prob(31))
	r.Less(p, prob(2048))
}

func TestProbPricesMonotonic(t *testing.T) {
	r := require.New(t)

	// A more likely bit must never cost more bits.
	prev := price0(prob(32))
	for v := prob(64); v <= 2016; v += 32 {
		cur := price0(v)
		r.LessOrEqual(cur, prev, "price0 must fall as prob rises (prob=%d)", v)
		prev = cur
	}

	// Encoding the unlikely side of a skewed probability costs more
	// than the likely side.
	r.Greater(price0(prob(100)), price1(prob(100)))
	r.Greater(price1(prob(1948)), price0(prob(1948)))
}

func TestInitProbs(t *testing.T) {
	r := require.New(t)

	probs := make([]prob, 64)
	initProbs(probs)
	for _, p := range probs {
		r.Equal(prob(probInitVal), p)
	}
}
