// Package controlplane is the seam between the HTTP transport and the
// pipeline orchestrator. Every call builds its path straight onto the
// orchestrator's own synchronization and the event store's own connection
// pool — it holds no state of its own across calls, so there is nothing
// here to share (or accidentally leak) between concurrent HTTP requests.
package controlplane

import (
	"context"

	"github.com/danztee/cctv-eventd/pkg/config"
	"github.com/danztee/cctv-eventd/pkg/detection"
	"github.com/danztee/cctv-eventd/pkg/persistence"
	"github.com/danztee/cctv-eventd/pkg/pipeline"
)

// ControlPlane exposes the operations the HTTP layer needs without handing
// it direct access to the orchestrator's internals or the raw store.
type ControlPlane struct {
	orchestrator *pipeline.Orchestrator
	store        persistence.EventStore
}

// New builds a ControlPlane fronting orchestrator and store.
func New(orchestrator *pipeline.Orchestrator, store persistence.EventStore) *ControlPlane {
	return &ControlPlane{orchestrator: orchestrator, store: store}
}

// StartRun starts the pipeline with run, failing if one is already active.
func (cp *ControlPlane) StartRun(ctx context.Context, run config.Run) error {
	return cp.orchestrator.Start(ctx, run)
}

// StopRun stops the active pipeline, failing if none is active.
func (cp *ControlPlane) StopRun() error {
	return cp.orchestrator.Stop()
}

// Status reports the pipeline's current activity and queue depths.
func (cp *ControlPlane) Status() pipeline.Status {
	return cp.orchestrator.Status()
}

// ListEvents opens a fresh read against the store for up to limit of the
// most recent persisted events.
func (cp *ControlPlane) ListEvents(ctx context.Context, limit int) ([]detection.Persisted, error) {
	return cp.store.List(ctx, limit)
}

// GetEvent opens a fresh read against the store for one event by id.
func (cp *ControlPlane) GetEvent(ctx context.Context, id int64) (detection.Persisted, error) {
	return cp.store.Get(ctx, id)
}
