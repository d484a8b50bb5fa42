package controlplane

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danztee/cctv-eventd/pkg/chunker"
	"github.com/danztee/cctv-eventd/pkg/config"
	"github.com/danztee/cctv-eventd/pkg/detection"
	"github.com/danztee/cctv-eventd/pkg/detector"
	"github.com/danztee/cctv-eventd/pkg/eventbus"
	"github.com/danztee/cctv-eventd/pkg/persistence"
	"github.com/danztee/cctv-eventd/pkg/pipeline"
)

func newTestControlPlane(t *testing.T) *ControlPlane {
	t.Helper()
	fake := chunker.NewFakeSource(30, 640, 480)
	for i := 0; i < 50; i++ {
		fake.ScriptFrame(make([]byte, 16))
	}

	orchestrator := pipeline.New(eventbus.New[detection.Persisted](), &detector.StubAdapter{}, persistence.NewMemoryStore()).
		WithChunkerOverrides(func(string, bool) chunker.FrameSource { return fake }, chunker.NewFakeClipWriterFactory())
	store := persistence.NewMemoryStore()

	return New(orchestrator, store)
}

func TestControlPlaneStartStopStatus(t *testing.T) {
	cp := newTestControlPlane(t)

	assert.False(t, cp.Status().Active)

	run := config.Run{
		StreamURL:       "rtsp://camera.local/stream",
		ChunkDuration:   50 * time.Millisecond,
		ModelIdentifier: "gemini-test",
		Context:         "back entrance",
		Events:          []config.EventDefinition{{Code: "A", Description: "person"}},
		OutputDirectory: t.TempDir(),
	}
	require.NoError(t, cp.StartRun(context.Background(), run))
	assert.True(t, cp.Status().Active)

	require.NoError(t, cp.StopRun())
	assert.False(t, cp.Status().Active)
}

func TestControlPlaneListAndGetEventsDelegateToStore(t *testing.T) {
	cp := newTestControlPlane(t)

	id, err := cp.store.Insert(context.Background(), detection.Result{EventCode: "A", EventTimestamp: time.Now()})
	require.NoError(t, err)

	events, err := cp.ListEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)

	event, err := cp.GetEvent(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "A", event.EventCode)
}
