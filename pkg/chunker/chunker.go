// Package chunker implements the reconnecting stream reader and the
// clip-writer state machine: it reads frames from a live stream, slices
// them into fixed-duration clip files, finalizes each with an atomic
// rename, and hands the finalized path to a bounded output queue.
package chunker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultContainer = "mp4"
	defaultFourCC    = "H264"

	minFPS     = 1
	maxFPS     = 120
	defaultFPS = 30

	maxConnectFailures = 10
	maxReadTimeouts    = 30

	initialRetryDelay = 1 * time.Second
	maxRetryDelay     = 60 * time.Second

	finalizeFlushDelay = 200 * time.Millisecond

	enqueueTimeout = 1 * time.Second
)

// Config is the construction-time, immutable configuration of a Chunker.
type Config struct {
	StreamURL      string
	ChunkDuration  time.Duration
	OutputDir      string
	Container      string // defaults to "mp4"
	FourCC         string // defaults to "H264"
	UseTCPForRTSP  bool
	NewSource      func(streamURL string, useTCP bool) FrameSource
	NewClipWriter  ClipWriterFactory

	// InitialRetryDelay/MaxRetryDelay override the default 1s/60s backoff
	// bounds; zero means use the defaults. Tests use this to avoid
	// real-time waits while exercising the give-up path.
	InitialRetryDelay time.Duration
	MaxRetryDelay     time.Duration
}

// Stats is a read-only snapshot of chunker counters.
type Stats struct {
	ChunkCount     int64
	ReconnectCount int64
	TotalFrames    int64
	UptimeSeconds  float64
}

// Chunker owns the reader loop for one stream. It is started once and must
// be discarded (not reused) after Stop/Join; the pipeline orchestrator
// constructs a fresh Chunker for every start().
type Chunker struct {
	cfg Config

	videoPathQueue chan<- string

	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}

	chunkCount     atomic.Int64
	reconnectCount atomic.Int64
	totalFrames    atomic.Int64
	startedAt      time.Time
}

// New validates cfg and constructs a Chunker that will publish finalized
// clip paths onto videoPathQueue. It does not start the reader loop.
func New(cfg Config, videoPathQueue chan<- string) (*Chunker, error) {
	if cfg.ChunkDuration <= 0 {
		return nil, fmt.Errorf("chunk_duration_seconds must be positive")
	}
	if !hasSupportedScheme(cfg.StreamURL) {
		return nil, fmt.Errorf("unsupported stream url scheme: %q", cfg.StreamURL)
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create output directory: %w", err)
	}
	if cfg.Container == "" {
		cfg.Container = defaultContainer
	}
	if cfg.FourCC == "" {
		cfg.FourCC = defaultFourCC
	}
	if cfg.NewSource == nil {
		cfg.NewSource = func(streamURL string, useTCP bool) FrameSource {
			return NewFFmpegSource(streamURL, useTCP)
		}
	}
	if cfg.NewClipWriter == nil {
		cfg.NewClipWriter = NewFFmpegClipWriter
	}
	if cfg.InitialRetryDelay <= 0 {
		cfg.InitialRetryDelay = initialRetryDelay
	}
	if cfg.MaxRetryDelay <= 0 {
		cfg.MaxRetryDelay = maxRetryDelay
	}

	return &Chunker{
		cfg:            cfg,
		videoPathQueue: videoPathQueue,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}, nil
}

func hasSupportedScheme(url string) bool {
	for _, scheme := range []string{"rtsp://", "http://", "https://"} {
		if strings.HasPrefix(url, scheme) {
			return true
		}
	}
	return false
}

// Start launches the reader loop. It is idempotent: calling it more than
// once on an already-started Chunker is a no-op.
func (c *Chunker) Start(ctx context.Context) {
	select {
	case <-c.doneCh:
		return // already ran to completion; Start is not meant to be reused
	default:
	}
	if !c.startedAt.IsZero() {
		return
	}
	c.startedAt = time.Now()
	go c.run(ctx)
}

// Stop requests graceful shutdown. Safe to call from any goroutine and more
// than once.
func (c *Chunker) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Join waits up to timeout for the reader loop to exit. It returns false if
// the timeout elapsed first.
func (c *Chunker) Join(timeout time.Duration) bool {
	select {
	case <-c.doneCh:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Stats returns a point-in-time snapshot of chunker counters.
func (c *Chunker) Stats() Stats {
	uptime := 0.0
	if !c.startedAt.IsZero() {
		uptime = time.Since(c.startedAt).Seconds()
	}
	return Stats{
		ChunkCount:     c.chunkCount.Load(),
		ReconnectCount: c.reconnectCount.Load(),
		TotalFrames:    c.totalFrames.Load(),
		UptimeSeconds:  uptime,
	}
}

// readerState is the chunker's internal state machine position.
type readerState int

const (
	stateDisconnected readerState = iota
	stateOpening
	stateReadingIdle
	stateReadingWriting
	stateStopping
)

// activeClip tracks the clip currently being written, if any.
type activeClip struct {
	writer         ClipWriter
	ongoingPath    string
	startUTC       time.Time
	startMono      time.Time
	framesInChunk  int
	targetFrames   int
}

func (c *Chunker) run(ctx context.Context) {
	defer close(c.doneCh)

	state := stateDisconnected
	var source FrameSource
	var clip *activeClip
	consecutiveConnectFailures := 0
	consecutiveReadTimeouts := 0
	retryDelay := c.cfg.InitialRetryDelay
	var fps float64
	var targetFramesPerChunk int

	shuttingDown := func() bool {
		select {
		case <-c.stopCh:
			return true
		case <-ctx.Done():
			return true
		default:
			return false
		}
	}

	for {
		if shuttingDown() && state != stateStopping {
			state = stateStopping
		}

		switch state {
		case stateStopping:
			if clip != nil && clip.framesInChunk >= 1 {
				c.finalizeClip(clip)
			}
			if source != nil {
				_ = source.Close()
			}
			return

		case stateDisconnected:
			state = stateOpening

		case stateOpening:
			source = c.cfg.NewSource(c.cfg.StreamURL, c.cfg.UseTCPForRTSP)
			openCtx, cancel := context.WithCancel(ctx)
			err := source.Open(openCtx)
			cancel()

			if err != nil || source.Width() <= 0 || source.Height() <= 0 {
				if err == nil {
					err = fmt.Errorf("invalid stream dimensions %dx%d", source.Width(), source.Height())
				}
				consecutiveConnectFailures++
				slog.Warn("chunker: failed to open stream", "error", err, "attempt", consecutiveConnectFailures)

				if consecutiveConnectFailures >= maxConnectFailures {
					slog.Error("chunker: giving up after repeated connect failures", "attempts", consecutiveConnectFailures)
					state = stateStopping
					continue
				}

				select {
				case <-time.After(retryDelay):
				case <-c.stopCh:
				case <-ctx.Done():
				}
				retryDelay *= 2
				if retryDelay > c.cfg.MaxRetryDelay {
					retryDelay = c.cfg.MaxRetryDelay
				}
				state = stateDisconnected
				continue
			}

			fps = source.FPS()
			if fps < minFPS || fps > maxFPS {
				fps = defaultFPS
			}
			targetFramesPerChunk = int(fps * c.cfg.ChunkDuration.Seconds())
			if targetFramesPerChunk < 1 {
				targetFramesPerChunk = 1
			}

			consecutiveConnectFailures = 0
			consecutiveReadTimeouts = 0
			retryDelay = c.cfg.InitialRetryDelay
			c.reconnectCount.Add(1)
			state = stateReadingIdle

		case stateReadingIdle, stateReadingWriting:
			frame, ok, err := source.Read()
			if err != nil {
				slog.Warn("chunker: fatal read error, reconnecting", "error", err)
				if clip != nil {
					c.finalizeClip(clip)
					clip = nil
				}
				_ = source.Close()
				state = stateDisconnected
				continue
			}
			if !ok {
				consecutiveReadTimeouts++
				if consecutiveReadTimeouts >= maxReadTimeouts {
					slog.Warn("chunker: too many consecutive read timeouts, reconnecting")
					if clip != nil {
						c.finalizeClip(clip)
						clip = nil
					}
					_ = source.Close()
					state = stateDisconnected
					consecutiveReadTimeouts = 0
				}
				continue
			}
			consecutiveReadTimeouts = 0
			c.totalFrames.Add(1)

			if clip == nil {
				clip, err = c.openClip(fps, source.Width(), source.Height(), targetFramesPerChunk)
				if err != nil {
					slog.Error("chunker: failed to open clip writer", "error", err)
					continue
				}
				state = stateReadingWriting
			}

			if err := clip.writer.WriteFrame(frame); err != nil {
				slog.Error("chunker: frame write failed", "error", err)
			} else {
				clip.framesInChunk++
			}

			elapsed := time.Since(clip.startMono)
			if elapsed >= c.cfg.ChunkDuration || clip.framesInChunk >= clip.targetFrames {
				c.finalizeClip(clip)
				clip = nil
				state = stateReadingIdle
			}
		}
	}
}

func (c *Chunker) openClip(fps float64, width, height, targetFrames int) (*activeClip, error) {
	now := time.Now().UTC()
	ongoingPath := filepath.Join(c.cfg.OutputDir, fmt.Sprintf("%s_ongoing.%s", formatTimestamp(now), c.cfg.Container))

	writer, err := c.cfg.NewClipWriter(ongoingPath, fps, width, height)
	if err != nil {
		return nil, err
	}

	return &activeClip{
		writer:       writer,
		ongoingPath:  ongoingPath,
		startUTC:     now,
		startMono:    time.Now(),
		targetFrames: targetFrames,
	}, nil
}

// finalizeClip releases the writer, flushes, renames to the final name, and
// enqueues the finalized path. If the file ends up missing or empty it is
// removed, the drop is logged, and nothing is enqueued.
func (c *Chunker) finalizeClip(clip *activeClip) {
	if err := clip.writer.Close(); err != nil {
		slog.Warn("chunker: clip writer close error", "error", err, "path", clip.ongoingPath)
	}

	time.Sleep(finalizeFlushDelay)

	info, err := os.Stat(clip.ongoingPath)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(clip.ongoingPath)
		slog.Warn("chunker: dropping empty or missing clip", "path", clip.ongoingPath)
		return
	}

	endUTC := time.Now().UTC()
	finalPath := filepath.Join(c.cfg.OutputDir, fmt.Sprintf("%s_%s.%s", formatTimestamp(clip.startUTC), formatTimestamp(endUTC), c.cfg.Container))

	if err := os.Rename(clip.ongoingPath, finalPath); err != nil {
		slog.Error("chunker: rename failed", "error", err, "from", clip.ongoingPath, "to", finalPath)
		return
	}
	c.chunkCount.Add(1)

	select {
	case c.videoPathQueue <- finalPath:
	case <-time.After(enqueueTimeout):
		slog.Warn("chunker: output queue full, dropping clip reference", "path", finalPath)
	}
}

func formatTimestamp(t time.Time) string {
	return t.Format("20060102150405")
}
