package downloads

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tilepull/internal/fetch"
	"tilepull/internal/provider"
	"tilepull/internal/slippy"
	"tilepull/internal/store"
)

var globe = slippy.BoundingBox{South: -90, West: -180, North: 90, East: 180}

// newTestDownloader wires a downloader against a tile server for the tests
// below. The retryer uses millisecond backoff so failure paths stay fast.
func newTestDownloader(t *testing.T, serverURL, outDir string, workers int) *Downloader {
	t.Helper()

	source, err := provider.Resolve(serverURL + "/{z}/{x}/{y}.png")
	require.NoError(t, err)

	client, err := fetch.NewClient(fetch.DefaultOptions())
	require.NoError(t, err)

	st, err := store.New(outDir)
	require.NoError(t, err)

	retryer := fetch.Retryer{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	return New(client, retryer, st, source, workers)
}

func TestRunDownloadsGlobe(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte("png-bytes"))
	}))
	defer server.Close()

	outDir := t.TempDir()
	dl := newTestDownloader(t, server.URL, outDir, 2)

	plan := PlanBounds(globe, slippy.ZoomRange{Min: 0, Max: 1})
	require.Equal(t, 5, plan.Total, "zoom 0 has 1 tile, zoom 1 has 4")

	summary, err := dl.Run(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 5, summary.Downloaded)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, int64(5*len("png-bytes")), summary.Bytes)
	assert.Equal(t, int64(5), requests.Load())

	// Every tile must land at its {z}/{x}/{y}.png path.
	st, err := store.New(outDir)
	require.NoError(t, err)
	for _, tile := range []slippy.Tile{
		{Z: 0, X: 0, Y: 0},
		{Z: 1, X: 0, Y: 0}, {Z: 1, X: 1, Y: 0},
		{Z: 1, X: 0, Y: 1}, {Z: 1, X: 1, Y: 1},
	} {
		assert.True(t, st.Exists(st.TilePath(tile, "png")), "missing %s", tile)
	}
}

func TestRunSecondPassSkips(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte("png-bytes"))
	}))
	defer server.Close()

	outDir := t.TempDir()
	plan := PlanBounds(globe, slippy.ZoomRange{Min: 0, Max: 1})

	first := newTestDownloader(t, server.URL, outDir, 2)
	_, err := first.Run(context.Background(), plan)
	require.NoError(t, err)
	require.Equal(t, int64(5), requests.Load())

	second := newTestDownloader(t, server.URL, outDir, 2)
	summary, err := second.Run(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Skipped)
	assert.Equal(t, 0, summary.Downloaded)
	assert.Equal(t, int64(5), requests.Load(), "skipped tiles must not touch the network")
}

func TestRunRespectsWorkerBound(t *testing.T) {
	const workers = 3

	var inFlight, peak atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		w.Write([]byte("x"))
	}))
	defer server.Close()

	dl := newTestDownloader(t, server.URL, t.TempDir(), workers)
	plan := PlanBounds(globe, slippy.ZoomRange{Min: 2, Max: 2})
	require.Equal(t, 16, plan.Total)

	summary, err := dl.Run(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, 16, summary.Downloaded)
	assert.LessOrEqual(t, peak.Load(), int64(workers), "in-flight requests exceeded the worker bound")
}

func TestRunIsolatesPermanentFailures(t *testing.T) {
	var missingRequests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/1/1/1.png" {
			missingRequests.Add(1)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("x"))
	}))
	defer server.Close()

	dl := newTestDownloader(t, server.URL, t.TempDir(), 2)
	plan := PlanBounds(globe, slippy.ZoomRange{Min: 0, Max: 1})

	summary, err := dl.Run(context.Background(), plan)
	require.NoError(t, err, "per-tile failures are summary data, not a run error")

	assert.Equal(t, 4, summary.Downloaded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.FailedTiles, 1)
	assert.Equal(t, slippy.Tile{Z: 1, X: 1, Y: 1}, summary.FailedTiles[0].Tile)
	assert.Equal(t, 1, summary.FailedTiles[0].Attempts, "404 must not be retried")
	assert.Equal(t, int64(1), missingRequests.Load())
}

func TestRunRetriesTransientFailures(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	dl := newTestDownloader(t, server.URL, t.TempDir(), 1)
	plan := PlanBounds(globe, slippy.ZoomRange{Min: 0, Max: 0})

	summary, err := dl.Run(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.FailedTiles, 1)
	assert.Equal(t, 3, summary.FailedTiles[0].Attempts, "first attempt plus two retries")
	assert.Equal(t, int64(3), requests.Load())
}

func TestRunCancelledBeforeStart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer server.Close()

	dl := newTestDownloader(t, server.URL, t.TempDir(), 2)
	plan := PlanBounds(globe, slippy.ZoomRange{Min: 0, Max: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := dl.Run(ctx, plan)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, summary.Downloaded)
}

func TestRunProgressCallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer server.Close()

	dl := newTestDownloader(t, server.URL, t.TempDir(), 2)

	var mu sync.Mutex
	var snaps []Snapshot
	dl.SetProgressFunc(func(s Snapshot) {
		mu.Lock()
		snaps = append(snaps, s)
		mu.Unlock()
	})

	plan := PlanBounds(globe, slippy.ZoomRange{Min: 0, Max: 1})
	_, err := dl.Run(context.Background(), plan)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, snaps, 5, "one snapshot per outcome")
	last := snaps[len(snaps)-1]
	assert.Equal(t, 5, last.Done)
	assert.Equal(t, 5, last.Total)
}

func TestPlanTileRangeValidatesPerZoom(t *testing.T) {
	// X=0..3 exists at zoom 2 but not zoom 1.
	_, err := PlanTileRange(0, 3, 0, 3, slippy.ZoomRange{Min: 1, Max: 2})
	assert.Error(t, err)

	plan, err := PlanTileRange(0, 1, 0, 1, slippy.ZoomRange{Min: 1, Max: 2})
	require.NoError(t, err)
	assert.Equal(t, 8, plan.Total)
	assert.Len(t, plan.Ranges, 2)
}
