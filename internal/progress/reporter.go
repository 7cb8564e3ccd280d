// Package progress renders download progress: a plain-text reporter for
// non-interactive runs and a terminal progress bar for interactive ones.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"tilepull/internal/downloads"
)

// Options configures the text reporter.
type Options struct {
	// Output is where progress lines go. Default: os.Stderr.
	Output io.Writer

	// UpdateInterval is how often a progress line is printed.
	// Default: 2s.
	UpdateInterval time.Duration
}

// Reporter periodically prints run progress from an Aggregator snapshot
// source.
type Reporter struct {
	opts     Options
	snapshot func() downloads.Snapshot

	mu      sync.Mutex
	stopCh  chan struct{}
	stopped bool
}

// NewReporter creates a reporter reading progress through snapshot.
func NewReporter(opts Options, snapshot func() downloads.Snapshot) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.UpdateInterval <= 0 {
		opts.UpdateInterval = 2 * time.Second
	}
	return &Reporter{
		opts:     opts,
		snapshot: snapshot,
		stopCh:   make(chan struct{}),
	}
}

// Start begins printing progress lines until Stop is called.
func (r *Reporter) Start() {
	go func() {
		ticker := time.NewTicker(r.opts.UpdateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stopCh:
				return
			case <-ticker.C:
				r.printLine()
			}
		}
	}()
}

// Stop halts the reporter. Safe to call more than once.
func (r *Reporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.stopped = true
	close(r.stopCh)
}

func (r *Reporter) printLine() {
	s := r.snapshot()
	fmt.Fprintf(r.opts.Output, "[tilepull] %.1f%% | %d/%d tiles | %d downloaded, %d skipped, %d failed | %s\n",
		s.Percent(), s.Done, s.Total, s.Downloaded, s.Skipped, s.Failed, formatBytes(s.Bytes))
}

// PrintSummary writes the final run summary, including the failed-tile list
// needed to diagnose or re-run failures.
func PrintSummary(w io.Writer, s downloads.RunSummary) {
	fmt.Fprintf(w, "\nRun complete in %s\n", formatDuration(s.Elapsed))
	fmt.Fprintf(w, "  total:      %d\n", s.Total)
	fmt.Fprintf(w, "  downloaded: %d (%s)\n", s.Downloaded, formatBytes(s.Bytes))
	fmt.Fprintf(w, "  skipped:    %d\n", s.Skipped)
	fmt.Fprintf(w, "  failed:     %d\n", s.Failed)

	if len(s.FailedTiles) > 0 {
		fmt.Fprintln(w, "\nFailed tiles:")
		for _, ft := range s.FailedTiles {
			fmt.Fprintf(w, "  %s (%d attempts): %s\n", ft.Tile, ft.Attempts, ft.Reason)
		}
	}
}

func formatBytes(b int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
