package sweep

// Policy is the sweep's termination heuristic. The remote ID space is
// unbounded and monotonic, so the only way to know the live frontier has
// been passed is a sustained run of not-found results, and only past
// BufferThreshold: the low-ID range is known to contain historical gaps
// (deleted and retracted questions) that must never stop a sweep.
type Policy struct {
	BufferThreshold  int // IDs at or below this never count toward the streak
	MaxMissingStreak int // consecutive misses past the buffer that end the sweep
}

// Observe folds one probe outcome into the state. A found ID resets the
// streak; a missing ID increments it only past the buffer.
func (p Policy) Observe(st *State, id int, found bool) {
	if found {
		st.MissStreak = 0
		return
	}
	if id > p.BufferThreshold {
		st.MissStreak++
	}
}

// ShouldStop reports whether the sweep has run past the live frontier.
func (p Policy) ShouldStop(st *State, id int) bool {
	return id > p.BufferThreshold && st.MissStreak >= p.MaxMissingStreak
}
