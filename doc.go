// Package lzma implements the LZMA and LZMA2 compression formats.
//
// The package provides streaming readers and writers for the classic
// .lzma container (13-byte header followed by a single range-coded
// stream) and for raw LZMA2 chunk sequences, plus a parallel block
// encoder that splits input into independent LZMA2 sub-streams.
//
// Reading:
//
//	r, err := lzma.NewReader(compressed)      // .lzma
//	r2, err := lzma.NewReader2(compressed, 0) // raw LZMA2
//
// Writing:
//
//	w, err := lzma.NewWriter(out, nil)  // .lzma, default level
//	w2, err := lzma.NewWriter2(out, &lzma.WriterConfig{Level: 7})
//
// The encoder supports two match finders (hash-chain hc4 and binary-tree
// bt4), an optional two-goroutine match-finder pipeline, a fast heuristic
// parser and a dynamic-programming optimal parser.
package lzma
