// Package downloads runs the bulk tile download: it enumerates the tile
// pyramid over the requested zoom range, fans tasks out to a bounded worker
// pool and folds per-tile outcomes into a run summary.
package downloads

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/semaphore"

	"tilepull/internal/fetch"
	"tilepull/internal/provider"
	"tilepull/internal/slippy"
	"tilepull/internal/store"
)

const DefaultWorkers = 10

// Downloader coordinates one bulk download run.
type Downloader struct {
	fetcher    fetch.TileFetcher
	retryer    fetch.Retryer
	store      *store.Store
	source     *provider.Source
	maxWorkers int
	sem        *semaphore.Weighted

	// onProgress receives periodic snapshots as outcomes land. Optional.
	onProgress func(Snapshot)
}

// New creates a downloader with injected dependencies.
func New(fetcher fetch.TileFetcher, retryer fetch.Retryer, st *store.Store, source *provider.Source, maxWorkers int) *Downloader {
	if maxWorkers <= 0 {
		maxWorkers = DefaultWorkers
	}
	return &Downloader{
		fetcher:    fetcher,
		retryer:    retryer,
		store:      st,
		source:     source,
		maxWorkers: maxWorkers,
		sem:        semaphore.NewWeighted(int64(maxWorkers)),
	}
}

// SetProgressFunc registers a snapshot callback. It is invoked from worker
// goroutines, so the callback must be safe for concurrent use.
func (d *Downloader) SetProgressFunc(fn func(Snapshot)) {
	d.onProgress = fn
}

// Plan holds the per-zoom tile ranges of a run, computed up front so the
// total is known before the first request.
type Plan struct {
	Ranges []slippy.TileRange
	Total  int
}

// PlanBounds computes the ranges covering a bounding box across a zoom range.
func PlanBounds(bbox slippy.BoundingBox, zooms slippy.ZoomRange) Plan {
	var plan Plan
	for _, z := range zooms.Levels() {
		r := slippy.RangeForBounds(bbox, z)
		plan.Ranges = append(plan.Ranges, r)
		plan.Total += r.Count()
	}
	return plan
}

// PlanTileRange expands an explicit X/Y rectangle across a zoom range. The
// rectangle is validated per zoom since the pyramid shrinks at lower levels.
func PlanTileRange(minX, maxX, minY, maxY int, zooms slippy.ZoomRange) (Plan, error) {
	var plan Plan
	for _, z := range zooms.Levels() {
		r := slippy.TileRange{Zoom: z, MinX: minX, MaxX: maxX, MinY: minY, MaxY: maxY}
		if err := r.Validate(); err != nil {
			return Plan{}, fmt.Errorf("zoom %d: %w", z, err)
		}
		plan.Ranges = append(plan.Ranges, r)
		plan.Total += r.Count()
	}
	return plan, nil
}

// Run executes the plan and returns the final summary. Per-tile failures are
// folded into the summary, never returned as an error; the error return only
// reflects the run being cut short by ctx. On cancellation no new tasks are
// dispatched, in-flight tasks finish, and the partial summary is still valid.
func (d *Downloader) Run(ctx context.Context, plan Plan) (RunSummary, error) {
	agg := NewAggregator(plan.Total)
	ext := d.source.Ext()

	log.Printf("[downloads] %d tiles across %d zoom levels, %d workers", plan.Total, len(plan.Ranges), d.maxWorkers)

	taskChan := make(chan Task, d.maxWorkers)

	var wg sync.WaitGroup
	for i := 0; i < d.maxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskChan {
				if ctx.Err() != nil {
					// Drain without dispatching once cancelled.
					continue
				}
				d.runTask(ctx, task, agg)
			}
		}()
	}

	// Feed tasks in deterministic row-major order per zoom. Stop feeding
	// the moment the context is cancelled.
	go func() {
		defer close(taskChan)
		for _, r := range plan.Ranges {
			for y := r.MinY; y <= r.MaxY; y++ {
				for x := r.MinX; x <= r.MaxX; x++ {
					tile := slippy.Tile{Z: r.Zoom, X: x, Y: y}
					task := Task{
						Tile: tile,
						URL:  d.source.TileURL(tile),
						Path: d.store.TilePath(tile, ext),
					}
					select {
					case taskChan <- task:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	wg.Wait()

	summary := agg.Summary()
	log.Printf("[downloads] done: %d downloaded, %d skipped, %d failed (of %d)",
		summary.Downloaded, summary.Skipped, summary.Failed, summary.Total)

	if ctx.Err() != nil && summary.Total != summary.Downloaded+summary.Skipped+summary.Failed {
		return summary, ctx.Err()
	}
	return summary, nil
}

// runTask takes one task to its terminal outcome. The destination check
// happens before any network work so repeated runs over the same output tree
// cost nothing for tiles already on disk.
func (d *Downloader) runTask(ctx context.Context, task Task, agg *Aggregator) {
	if d.store.Exists(task.Path) {
		d.record(agg, Outcome{Tile: task.Tile, Kind: OutcomeSkipped})
		return
	}

	if err := d.sem.Acquire(ctx, 1); err != nil {
		d.record(agg, Outcome{Tile: task.Tile, Kind: OutcomeFailed, Err: err})
		return
	}
	data, attempts, err := d.retryer.Fetch(ctx, d.fetcher, task.URL)
	d.sem.Release(1)

	if err != nil {
		log.Printf("[downloads] tile %s failed after %d attempts: %v", task.Tile, attempts, err)
		d.record(agg, Outcome{Tile: task.Tile, Kind: OutcomeFailed, Attempts: attempts, Err: err})
		return
	}

	if err := d.store.Save(task.Path, data); err != nil {
		log.Printf("[downloads] tile %s save failed: %v", task.Tile, err)
		d.record(agg, Outcome{Tile: task.Tile, Kind: OutcomeFailed, Attempts: attempts, Err: err})
		return
	}

	d.record(agg, Outcome{
		Tile:     task.Tile,
		Kind:     OutcomeDownloaded,
		Bytes:    int64(len(data)),
		Attempts: attempts,
	})
}

func (d *Downloader) record(agg *Aggregator, o Outcome) {
	agg.Record(o)
	if d.onProgress != nil {
		d.onProgress(agg.Snapshot())
	}
}
