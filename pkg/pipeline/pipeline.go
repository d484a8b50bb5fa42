// Package pipeline wires the chunker, the detector adapter, and the event
// store into the two worker loops that move a clip from disk to a
// persisted, broadcast detection.Persisted. It owns the single running
// instance's lifecycle: at most one stream processed at a time.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/danztee/cctv-eventd/pkg/chunker"
	"github.com/danztee/cctv-eventd/pkg/config"
	"github.com/danztee/cctv-eventd/pkg/detection"
	"github.com/danztee/cctv-eventd/pkg/detector"
	"github.com/danztee/cctv-eventd/pkg/domainerr"
	"github.com/danztee/cctv-eventd/pkg/eventbus"
	"github.com/danztee/cctv-eventd/pkg/persistence"
)

const (
	videoPathQueueCapacity = 100
	detectionQueueCapacity = 100

	workerIdleTimeout  = 1 * time.Second
	chunkerJoinTimeout = 10 * time.Second
	workerJoinTimeout  = 10 * time.Second
)

// State is the orchestrator's current lifecycle position.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

// Status is a point-in-time snapshot returned by GET /status.
type Status struct {
	Active             bool
	VideoPathQueueSize int
	DetectionQueueSize int
	StreamURL          string
}

// Orchestrator owns the single running pipeline instance: the chunker plus
// the two worker goroutines that drain its output. Only one run may be
// active at a time; Start rejects a second call while one is in progress.
type Orchestrator struct {
	bus     *eventbus.Bus[detection.Persisted]
	adapter detector.Adapter
	store   persistence.EventStore

	newSource     func(streamURL string, useTCP bool) chunker.FrameSource
	newClipWriter chunker.ClipWriterFactory

	mu             sync.Mutex
	state          State
	cfg            config.Run
	videoPathQueue chan string
	detectionQueue chan detection.Result
	chunk          *chunker.Chunker
	cancelRun      context.CancelFunc
	workersDone    chan struct{}
}

// New builds an Orchestrator publishing persisted events to bus, submitting
// clips to adapter, and persisting detections through store.
func New(bus *eventbus.Bus[detection.Persisted], adapter detector.Adapter, store persistence.EventStore) *Orchestrator {
	return &Orchestrator{bus: bus, adapter: adapter, store: store, state: StateIdle}
}

// WithChunkerOverrides substitutes the chunker's frame source and clip
// writer factories, for tests that must not shell out to ffmpeg. It must be
// called before Start.
func (o *Orchestrator) WithChunkerOverrides(newSource func(streamURL string, useTCP bool) chunker.FrameSource, newClipWriter chunker.ClipWriterFactory) *Orchestrator {
	o.newSource = newSource
	o.newClipWriter = newClipWriter
	return o
}

// Start constructs a fresh chunker and launches the two worker goroutines
// for run. It fails with domainerr.CodeServiceAlreadyRunning if a run is
// already active, or domainerr.CodeInvalidConfig if the chunker rejects cfg.
// The run's context keeps ctx's values but not its cancellation, so a run
// started from an HTTP request outlives that request; only Stop ends it.
func (o *Orchestrator) Start(ctx context.Context, run config.Run) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateIdle {
		return domainerr.New(domainerr.CodeServiceAlreadyRunning, "pipeline is already running")
	}

	videoPathQueue := make(chan string, videoPathQueueCapacity)
	detectionQueue := make(chan detection.Result, detectionQueueCapacity)

	chunk, err := chunker.New(chunker.Config{
		StreamURL:     run.StreamURL,
		ChunkDuration: run.ChunkDuration,
		OutputDir:     run.OutputDirectory,
		NewSource:     o.newSource,
		NewClipWriter: o.newClipWriter,
	}, videoPathQueue)
	if err != nil {
		return domainerr.Wrap(domainerr.CodeInvalidConfig, "failed to construct chunker", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	chunk.Start(runCtx)

	workersDone := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		o.runVideoProcessingWorker(runCtx, videoPathQueue, detectionQueue, run)
	}()
	go func() {
		defer wg.Done()
		o.runEventCollectionWorker(runCtx, detectionQueue, run)
	}()
	go func() {
		wg.Wait()
		close(workersDone)
	}()

	o.cfg = run
	o.videoPathQueue = videoPathQueue
	o.detectionQueue = detectionQueue
	o.chunk = chunk
	o.cancelRun = cancel
	o.workersDone = workersDone
	o.state = StateRunning

	slog.Info("pipeline: started", "stream_url", run.StreamURL, "chunk_duration", run.ChunkDuration)
	return nil
}

// Stop requests graceful shutdown: the chunker is asked to finalize its
// in-progress clip, then both workers are cancelled. It blocks up to
// chunkerJoinTimeout + workerJoinTimeout before giving up and returning
// control to the caller regardless.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	if o.state != StateRunning {
		o.mu.Unlock()
		return domainerr.New(domainerr.CodeServiceNotRunning, "pipeline is not running")
	}
	o.state = StateStopping
	chunk := o.chunk
	cancel := o.cancelRun
	workersDone := o.workersDone
	o.mu.Unlock()

	chunk.Stop()
	if !chunk.Join(chunkerJoinTimeout) {
		slog.Warn("pipeline: chunker did not exit within join timeout")
	}

	cancel()
	select {
	case <-workersDone:
	case <-time.After(workerJoinTimeout):
		slog.Warn("pipeline: workers did not exit within join timeout")
	}

	o.mu.Lock()
	o.state = StateIdle
	o.cfg = config.Run{}
	o.videoPathQueue = nil
	o.detectionQueue = nil
	o.chunk = nil
	o.cancelRun = nil
	o.workersDone = nil
	o.mu.Unlock()

	slog.Info("pipeline: stopped")
	return nil
}

// Status reports whether a run is active and the current queue depths.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateRunning {
		return Status{Active: false}
	}
	return Status{
		Active:             true,
		VideoPathQueueSize: len(o.videoPathQueue),
		DetectionQueueSize: len(o.detectionQueue),
		StreamURL:          o.cfg.StreamURL,
	}
}

// runVideoProcessingWorker dequeues finalized clip paths and submits each to
// the detector adapter. A classification failure is logged and the clip is
// discarded; the worker never exits on a single clip's error.
func (o *Orchestrator) runVideoProcessingWorker(ctx context.Context, videoPathQueue <-chan string, detectionQueue chan<- detection.Result, run config.Run) {
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-videoPathQueue:
			if !ok {
				return
			}
			if err := o.adapter.Classify(ctx, path, run.ModelIdentifier, run.Events, run.Context, detectionQueue); err != nil {
				slog.Error("pipeline: classification failed, discarding clip", "error", err, "path", path)
			}
		case <-time.After(workerIdleTimeout):
			// no clip ready; loop back around to re-check ctx.Done.
		}
	}
}

// runEventCollectionWorker dequeues detection results, normalizes them,
// persists them, and publishes the result to the event bus regardless of
// whether persistence succeeded: a persistence failure is logged but the
// event is still published best-effort (with EventID 0), since a subscriber
// watching the live stream should not miss an event just because the
// database write failed. The worker never exits on a single detection's
// error.
func (o *Orchestrator) runEventCollectionWorker(ctx context.Context, detectionQueue <-chan detection.Result, run config.Run) {
	for {
		select {
		case <-ctx.Done():
			return
		case result, ok := <-detectionQueue:
			if !ok {
				return
			}
			normalized := normalizeResult(result, run.Events)

			var id int64
			if insertedID, err := o.store.Insert(ctx, normalized); err != nil {
				slog.Error("pipeline: failed to persist detected event", "error", err, "event_code", normalized.EventCode)
			} else {
				id = insertedID
			}

			o.bus.Publish(detection.Persisted{Result: normalized, EventID: id})
		case <-time.After(workerIdleTimeout):
		}
	}
}

// normalizeResult fills in the defaults the spec assigns to the collection
// stage: a UTC, non-zero timestamp; the default code if absent; and the
// catalog's description looked up by code, falling back to a generic one.
func normalizeResult(result detection.Result, events []config.EventDefinition) detection.Result {
	if result.EventTimestamp.IsZero() {
		result.EventTimestamp = time.Now().UTC()
	} else {
		result.EventTimestamp = result.EventTimestamp.UTC()
	}

	if result.EventCode == "" {
		result.EventCode = detection.DefaultEventCode
	}

	if result.EventDescription == "" {
		result.EventDescription = detection.DefaultEventDescription
		for _, ev := range events {
			if ev.Code == result.EventCode {
				result.EventDescription = ev.Description
				break
			}
		}
	}

	return result
}
