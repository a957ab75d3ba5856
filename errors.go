package lzma

import "errors"

var (
	// ErrCorrupted reports input that is not a valid LZMA/LZMA2 stream:
	// malformed range-coder state, a distance pointing outside the
	// dictionary, or chunk sizes that do not add up. Decoding cannot
	// continue after it.
	ErrCorrupted = errors.New("lzma: data is corrupted")

	// ErrIncorrectProperties reports a properties byte outside the
	// (pb*5+lp)*9+lc encoding range.
	ErrIncorrectProperties = errors.New("lzma: incorrect properties")

	// ErrDictOutOfRange reports a dictionary size outside [4 KiB, 4 GiB).
	ErrDictOutOfRange = errors.New("lzma: dictionary size out of range")

	// ErrUnexpectedChunk reports an LZMA2 control byte that is not
	// defined by the format.
	ErrUnexpectedChunk = errors.New("lzma: unexpected chunk control byte")

	// ErrCanceled is returned when a progress callback aborts an encode.
	// Output produced before the cancellation point is valid.
	ErrCanceled = errors.New("lzma: canceled")

	errAlreadyClosed = errors.New("lzma: already closed")
)
