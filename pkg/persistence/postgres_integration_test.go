//go:build integration

package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/danztee/cctv-eventd/pkg/detection"
)

// TestPostgresStoreAgainstRealDatabase exercises the embedded migration and
// the full Insert/List/Get path against a real, throwaway Postgres
// container. Run with `go test -tags=integration ./...`.
func TestPostgresStoreAgainstRealDatabase(t *testing.T) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("cctv_eventd_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := NewPostgresStore(ctx, dsn, DefaultPoolConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ts := time.Now().UTC().Truncate(time.Microsecond)
	id, err := store.Insert(ctx, detection.Result{
		EventTimestamp:                ts,
		EventCode:                     "A",
		EventDescription:              "person detected",
		EventVideoURL:                 "/clips/1.mp4",
		EventDetectionExplanationByAI: "a person entered the frame",
	})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	fetched, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "A", fetched.EventCode)
	assert.WithinDuration(t, ts, fetched.EventTimestamp, time.Second)

	events, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, id, events[0].EventID)

	_, err = store.Get(ctx, id+1000)
	assert.ErrorIs(t, err, ErrNotFound)
}
