package downloads

import "tilepull/internal/slippy"

// Task is one tile download unit of work. Tasks are owned by the dispatch
// channel until a worker claims one; the claiming worker owns it through to
// outcome production.
type Task struct {
	Tile slippy.Tile
	URL  string
	Path string
}

// OutcomeKind is the terminal state of a task.
type OutcomeKind int

const (
	OutcomeDownloaded OutcomeKind = iota
	OutcomeSkipped
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeDownloaded:
		return "downloaded"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Outcome is produced exactly once per task.
type Outcome struct {
	Tile     slippy.Tile
	Kind     OutcomeKind
	Bytes    int64 // bytes written for downloaded tiles
	Attempts int   // fetch attempts made, 0 for skipped tiles
	Err      error // terminal error for failed tiles
}
