package chunker

import "context"

// FrameSource abstracts a live video stream. The production implementation
// (FFmpegSource) shells out to ffmpeg; tests substitute FakeSource.
type FrameSource interface {
	// Open connects to the stream. It must report the stream's frame
	// dimensions and fps only after a successful Open.
	Open(ctx context.Context) error

	// Read returns the next frame. ok is false on a read timeout (the
	// caller counts consecutive timeouts); err is non-nil on a fatal
	// source error that should trigger a reconnect.
	Read() (frame []byte, ok bool, err error)

	FPS() float64
	Width() int
	Height() int

	Close() error
}

// ClipWriter receives frames for a single clip and muxes them into a
// container file. The production implementation shells out to ffmpeg.
type ClipWriter interface {
	WriteFrame(frame []byte) error

	// Close releases the writer. It does not rename or validate the
	// output file; that is the chunker's job during finalization.
	Close() error
}

// ClipWriterFactory builds a ClipWriter for a new clip at path, sized and
// timed to match the source that produced the frames.
type ClipWriterFactory func(path string, fps float64, width, height int) (ClipWriter, error)
