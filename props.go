package lzma

// Properties are the three literal/position context parameters packed
// into the first header byte as (pb*5+lp)*9+lc.
type Properties struct {
	LC uint32 // literal context bits, 0..8
	LP uint32 // literal position bits, 0..4
	PB uint32 // position bits, 0..4
}

func (p Properties) byte() byte {
	return byte((p.PB*5+p.LP)*9 + p.LC)
}

func decodeProperties(d byte) (Properties, error) {
	if d >= 9*5*5 {
		return Properties{}, ErrIncorrectProperties
	}

	p := Properties{LC: uint32(d % 9)}
	d /= 9
	p.PB = uint32(d / 5)
	p.LP = uint32(d % 5)

	return p, nil
}

func decodeDictSize(b []byte) (uint32, error) {
	dictSize := uint32(0)
	for i := 0; i < 4; i++ {
		dictSize |= uint32(b[i]) << (8 * i)
	}

	if dictSize < lzmaDicMin {
		dictSize = lzmaDicMin
	}

	return dictSize, nil
}

func putDictSize(b []byte, dictSize uint32) {
	for i := 0; i < 4; i++ {
		b[i] = byte(dictSize >> (8 * i))
	}
}
