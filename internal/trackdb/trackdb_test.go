package trackdb

import (
	"image"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/LdDl/blobtrack-go/blobtrack"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "tracks.db"))
	require.NoError(t, err)
	defer store.Close()

	session := uuid.New()
	cfg := blobtrack.DefaultConfig()
	cfg.NumObjects = 2
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.BeginSession(session, cfg, start))

	ids := []uuid.UUID{uuid.New(), uuid.New()}
	for k := 1; k <= 3; k++ {
		result := &blobtrack.FrameResult{
			Frame:     k,
			Timestamp: start.Add(time.Duration(k) * 40 * time.Millisecond),
			Window:    image.Rect(0, 0, 100, 100),
			RawBlobs:  1,
			Blobs:     []blobtrack.Blob{{X: float64(10 * k), Y: 5}},
			Reports: []blobtrack.Report{
				{Index: 0, ID: ids[0], X: float64(10 * k), Y: 5, Area: 50, Initialized: true},
				// Second object shows up on the last frame only
				{Index: 1, ID: ids[1], X: math.NaN(), Y: math.NaN(), Initialized: k == 3},
			},
		}
		if k == 3 {
			result.Reports[1].X, result.Reports[1].Y = 70, 80
		}
		require.NoError(t, store.RecordFrame(session, result))
	}

	n, err := store.FrameCount(session)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	tracks, err := store.Tracks(session)
	require.NoError(t, err)
	assert.Equal(t, map[int][]blobtrack.Point{
		0: {{X: 10, Y: 5}, {X: 20, Y: 5}, {X: 30, Y: 5}},
		1: {{X: 70, Y: 80}},
	}, tracks)

	observations, err := store.Observations(session)
	require.NoError(t, err)
	require.Len(t, observations, 4)
	assert.Equal(t, ids[0], observations[0].ID)
	assert.Equal(t, 3, observations[3].Frame)

	// Frame numbers are unique within a session
	err = store.RecordFrame(session, &blobtrack.FrameResult{Frame: 1})
	assert.Error(t, err)
	n, err = store.FrameCount(session)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	empty, err := store.Tracks(uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}
