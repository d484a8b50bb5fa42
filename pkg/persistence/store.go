// Package persistence provides the Postgres-backed event_logs store. It is
// deliberately minimal: a single table, one embedded migration, no ORM —
// the relational schema and migration machinery beyond this are out of
// scope (see spec.md's Non-goals).
package persistence

import (
	"context"
	"errors"

	"github.com/danztee/cctv-eventd/pkg/detection"
)

// EventStore persists detection.Result values and answers the read queries
// the HTTP surface needs. Inserts come from the pipeline's collection
// worker and reads from the control plane; each call stands alone, and no
// EventStore implementation is required to be safe for concurrent
// transactions sharing state beyond the pool itself.
type EventStore interface {
	Insert(ctx context.Context, result detection.Result) (int64, error)
	List(ctx context.Context, limit int) ([]detection.Persisted, error)
	Get(ctx context.Context, id int64) (detection.Persisted, error)
}

// ErrNotFound is returned by Get when no row matches the requested id.
var ErrNotFound = errors.New("event not found")
