package lzma

// The 12 coder states classify recent symbol history: states 0..6 follow
// literals, 7..11 follow matches and reps. Transitions are fixed by the
// format.

func stateUpdateLiteral(state uint32) uint32 {
	if state < 4 {
		return 0
	}

	if state < 10 {
		return state - 3
	}

	return state - 6
}

func stateUpdateMatch(state uint32) uint32 {
	if state < 7 {
		return 7
	}

	return 10
}

func stateUpdateRep(state uint32) uint32 {
	if state < 7 {
		return 8
	}

	return 11
}

func stateUpdateShortRep(state uint32) uint32 {
	if state < 7 {
		return 9
	}

	return 11
}

func stateIsLiteral(state uint32) bool {
	return state < 7
}

// lenToPosState selects the distance-slot context from the match length:
// the first four lengths get dedicated contexts, longer matches share the
// last one.
func lenToPosState(length uint32) uint32 {
	length -= kMatchMinLen
	if length < kNumLenToPosStates {
		return length
	}

	return kNumLenToPosStates - 1
}
