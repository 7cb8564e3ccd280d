package downloads

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tilepull/internal/slippy"
)

func TestAggregatorCounts(t *testing.T) {
	agg := NewAggregator(4)

	agg.Record(Outcome{Tile: slippy.Tile{Z: 1}, Kind: OutcomeDownloaded, Bytes: 100, Attempts: 1})
	agg.Record(Outcome{Tile: slippy.Tile{Z: 1, X: 1}, Kind: OutcomeDownloaded, Bytes: 50, Attempts: 2})
	agg.Record(Outcome{Tile: slippy.Tile{Z: 1, Y: 1}, Kind: OutcomeSkipped})
	agg.Record(Outcome{Tile: slippy.Tile{Z: 1, X: 1, Y: 1}, Kind: OutcomeFailed, Attempts: 4, Err: errors.New("boom")})

	snap := agg.Snapshot()
	assert.Equal(t, 4, snap.Total)
	assert.Equal(t, 4, snap.Done)
	assert.Equal(t, 2, snap.Downloaded)
	assert.Equal(t, 1, snap.Skipped)
	assert.Equal(t, 1, snap.Failed)
	assert.Equal(t, int64(150), snap.Bytes)
	assert.InDelta(t, 100.0, snap.Percent(), 1e-9)

	summary := agg.Summary()
	require.Len(t, summary.FailedTiles, 1)
	assert.Equal(t, slippy.Tile{Z: 1, X: 1, Y: 1}, summary.FailedTiles[0].Tile)
	assert.Equal(t, "boom", summary.FailedTiles[0].Reason)
	assert.Equal(t, 4, summary.FailedTiles[0].Attempts)
}

func TestAggregatorConcurrentRecord(t *testing.T) {
	const n = 200
	agg := NewAggregator(n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 3 {
			case 0:
				agg.Record(Outcome{Kind: OutcomeDownloaded, Bytes: 1})
			case 1:
				agg.Record(Outcome{Kind: OutcomeSkipped})
			default:
				agg.Record(Outcome{Kind: OutcomeFailed, Err: errors.New("x")})
			}
		}(i)
	}
	wg.Wait()

	snap := agg.Snapshot()
	assert.Equal(t, n, snap.Done)
	assert.Equal(t, snap.Downloaded+snap.Skipped+snap.Failed, snap.Done)

	summary := agg.Summary()
	assert.Len(t, summary.FailedTiles, snap.Failed)
}

func TestSnapshotPercentEmptyRun(t *testing.T) {
	assert.Equal(t, 100.0, Snapshot{}.Percent())
}

func TestOutcomeKindString(t *testing.T) {
	assert.Equal(t, "downloaded", OutcomeDownloaded.String())
	assert.Equal(t, "skipped", OutcomeSkipped.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
}
