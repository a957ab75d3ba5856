package lzma

// LZMA2 chunk control bytes. A stream is a chunk sequence ended by a
// zero byte. Compressed chunks put the reset mode in bits 5..6 of the
// control byte and the high bits of unpackSize-1 in its low 5 bits.
const (
	controlEndOfStream           = 0x00
	controlUncompressedReset     = 0x01
	controlUncompressedNoReset   = 0x02
	controlCompressed            = 0x80
	maskUncompressedSizeHighBits = 0x1F
)

// Reset modes of a compressed chunk, strongest last.
const (
	resetNone = iota
	resetState
	resetStateNewProps
	resetStateNewPropsDict
)

const (
	// Uncompressed size of a chunk is stored as a 21-bit value minus 1.
	maxChunkUncompressedSize = 1 << 21
	// Compressed chunk bodies carry a 16-bit size minus 1.
	maxChunkCompressedSize = 1 << 16
	// Uncompressed chunks carry a 16-bit size minus 1.
	maxUncompressedChunkSize = 1 << 16
)

type chunkHeader struct {
	control    byte
	unpackSize uint32
	packSize   uint32
	props      Properties
	hasProps   bool
}

func (h chunkHeader) endOfStream() bool {
	return h.control == controlEndOfStream
}

func (h chunkHeader) uncompressed() bool {
	return h.control == controlUncompressedReset || h.control == controlUncompressedNoReset
}

func (h chunkHeader) compressed() bool {
	return h.control >= controlCompressed
}

func (h chunkHeader) resetMode() int {
	return int(h.control>>5) & 3
}

func (h chunkHeader) resetsDict() bool {
	if h.uncompressed() {
		return h.control == controlUncompressedReset
	}

	return h.compressed() && h.resetMode() == resetStateNewPropsDict
}

func (h chunkHeader) resetsState() bool {
	return h.compressed() && h.resetMode() >= resetState
}
