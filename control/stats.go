package control

import (
	"time"

	"go.uber.org/atomic"
)

type stats struct {
	ticks     atomic.Int64
	dropped   atomic.Int64
	recovered atomic.Int64
	errors    atomic.Int64
	lastTick  atomic.Duration
}

// Stats counts what the loop has done since it was created.
type Stats struct {
	Ticks int64
	// DroppedFrames counts pose targets the solver could not reach.
	DroppedFrames int64
	// RecoveredPanics counts steps that panicked.
	RecoveredPanics int64
	// Errors counts steps that returned an error.
	Errors   int64
	LastTick time.Duration
}

func (s *stats) snapshot() Stats {
	return Stats{
		Ticks:           s.ticks.Load(),
		DroppedFrames:   s.dropped.Load(),
		RecoveredPanics: s.recovered.Load(),
		Errors:          s.errors.Load(),
		LastTick:        s.lastTick.Load(),
	}
}
