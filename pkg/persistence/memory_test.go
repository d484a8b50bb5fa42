package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danztee/cctv-eventd/pkg/detection"
)

func TestMemoryStoreInsertAssignsIncrementingIDs(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	id1, err := store.Insert(ctx, detection.Result{EventCode: "A", EventTimestamp: time.Now()})
	require.NoError(t, err)
	id2, err := store.Insert(ctx, detection.Result{EventCode: "B", EventTimestamp: time.Now()})
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
	assert.Greater(t, id2, id1)
}

func TestMemoryStoreListOrdersByTimestampDescending(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	older := time.Now().Add(-time.Hour)
	newer := time.Now()

	_, _ = store.Insert(ctx, detection.Result{EventCode: "OLD", EventTimestamp: older})
	_, _ = store.Insert(ctx, detection.Result{EventCode: "NEW", EventTimestamp: newer})

	events, err := store.List(ctx, 100)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "NEW", events[0].EventCode)
	assert.Equal(t, "OLD", events[1].EventCode)
}

func TestMemoryStoreGetMissingReturnsErrNotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
