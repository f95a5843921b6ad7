// Package sweep drives the incremental harvest: cursor resolution, the
// fetch/extract loop, the termination policy, and periodic checkpoints.
package sweep

import "time"

// State is the transient, per-run sweep state. It is never persisted: every
// run restarts absence detection from zero.
type State struct {
	CurrentID  int       // next ID to probe
	MissStreak int       // consecutive not-found results past the buffer
	StartedAt  time.Time // for throughput reporting
	Probed     int
	Harvested  int
	Skipped    int
}

// NewState initializes sweep state at the cursor's start ID.
func NewState(startID int) State {
	return State{CurrentID: startID, StartedAt: time.Now()}
}

// Rate returns the probing throughput in IDs per second.
func (s *State) Rate() float64 {
	elapsed := time.Since(s.StartedAt).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.Probed) / elapsed
}
