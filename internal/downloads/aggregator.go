package downloads

import (
	"sync"
	"sync/atomic"
	"time"

	"tilepull/internal/slippy"
)

// FailedTile records enough about a failed task to diagnose it or drive a
// future retry-only-failed run.
type FailedTile struct {
	Tile     slippy.Tile
	Reason   string
	Attempts int
}

// Snapshot is a point-in-time view of run progress, safe to read while
// workers are still producing outcomes.
type Snapshot struct {
	Total      int
	Done       int
	Downloaded int
	Skipped    int
	Failed     int
	Bytes      int64
}

// Percent returns completion as 0-100.
func (s Snapshot) Percent() float64 {
	if s.Total == 0 {
		return 100
	}
	return float64(s.Done) / float64(s.Total) * 100
}

// RunSummary is the final, immutable result of a run.
type RunSummary struct {
	Total       int
	Downloaded  int
	Skipped     int
	Failed      int
	Bytes       int64
	Elapsed     time.Duration
	FailedTiles []FailedTile
}

// Aggregator accumulates outcomes from concurrent workers. Counters are
// atomic; the failed-tile list takes a mutex since it only grows on the
// failure path.
type Aggregator struct {
	total      int64
	downloaded atomic.Int64
	skipped    atomic.Int64
	failed     atomic.Int64
	bytes      atomic.Int64

	mu          sync.Mutex
	failedTiles []FailedTile

	start time.Time
}

// NewAggregator creates an aggregator for a run of total tasks.
func NewAggregator(total int) *Aggregator {
	return &Aggregator{
		total: int64(total),
		start: time.Now(),
	}
}

// Record folds one outcome into the counters.
func (a *Aggregator) Record(o Outcome) {
	switch o.Kind {
	case OutcomeDownloaded:
		a.downloaded.Add(1)
		a.bytes.Add(o.Bytes)
	case OutcomeSkipped:
		a.skipped.Add(1)
	case OutcomeFailed:
		a.failed.Add(1)
		reason := "unknown"
		if o.Err != nil {
			reason = o.Err.Error()
		}
		a.mu.Lock()
		a.failedTiles = append(a.failedTiles, FailedTile{
			Tile:     o.Tile,
			Reason:   reason,
			Attempts: o.Attempts,
		})
		a.mu.Unlock()
	}
}

// Snapshot returns the current progress counts.
func (a *Aggregator) Snapshot() Snapshot {
	downloaded := int(a.downloaded.Load())
	skipped := int(a.skipped.Load())
	failed := int(a.failed.Load())
	return Snapshot{
		Total:      int(a.total),
		Done:       downloaded + skipped + failed,
		Downloaded: downloaded,
		Skipped:    skipped,
		Failed:     failed,
		Bytes:      a.bytes.Load(),
	}
}

// Summary finalizes the run. Call only after every task has produced its
// outcome; the returned value is a copy and never mutated afterwards.
func (a *Aggregator) Summary() RunSummary {
	snap := a.Snapshot()

	a.mu.Lock()
	failedTiles := make([]FailedTile, len(a.failedTiles))
	copy(failedTiles, a.failedTiles)
	a.mu.Unlock()

	return RunSummary{
		Total:       snap.Total,
		Downloaded:  snap.Downloaded,
		Skipped:     snap.Skipped,
		Failed:      snap.Failed,
		Bytes:       snap.Bytes,
		Elapsed:     time.Since(a.start),
		FailedTiles: failedTiles,
	}
}
