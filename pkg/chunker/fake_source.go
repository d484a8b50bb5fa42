package chunker

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// FakeSource is a scriptable FrameSource used by chunker tests. Each call to
// Open consumes one entry from openScript (nil means succeed); each call to
// Read consumes one entry from readScript.
type FakeSource struct {
	mu sync.Mutex

	fps    float64
	width  int
	height int

	openScript []error
	openIdx    int

	readScript []fakeRead
	readIdx    int
}

// fakeRead is one scripted outcome for FakeSource.Read.
type fakeRead struct {
	frame []byte
	ok    bool
	err   error
}

// NewFakeSource builds a fake source reporting the given fps/dimensions on
// every successful Open.
func NewFakeSource(fps float64, width, height int) *FakeSource {
	return &FakeSource{fps: fps, width: width, height: height}
}

// ScriptOpen appends one Open outcome (nil for success).
func (f *FakeSource) ScriptOpen(err error) *FakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openScript = append(f.openScript, err)
	return f
}

// ScriptFrame appends one successful Read outcome.
func (f *FakeSource) ScriptFrame(frame []byte) *FakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readScript = append(f.readScript, fakeRead{frame: frame, ok: true})
	return f
}

// ScriptTimeout appends one Read outcome representing a read timeout.
func (f *FakeSource) ScriptTimeout() *FakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readScript = append(f.readScript, fakeRead{ok: false})
	return f
}

// ScriptReadError appends one Read outcome representing a fatal read error.
func (f *FakeSource) ScriptReadError(err error) *FakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readScript = append(f.readScript, fakeRead{ok: false, err: err})
	return f
}

func (f *FakeSource) Open(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openIdx >= len(f.openScript) {
		return nil
	}
	err := f.openScript[f.openIdx]
	f.openIdx++
	return err
}

func (f *FakeSource) Read() ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readIdx >= len(f.readScript) {
		return nil, false, fmt.Errorf("fake source exhausted")
	}
	r := f.readScript[f.readIdx]
	f.readIdx++
	return r.frame, r.ok, r.err
}

func (f *FakeSource) FPS() float64 { return f.fps }
func (f *FakeSource) Width() int   { return f.width }
func (f *FakeSource) Height() int  { return f.height }
func (f *FakeSource) Close() error { return nil }

// NewFakeClipWriterFactory returns a ClipWriterFactory that writes real
// (tiny) files to disk, so the finalization rename/zero-byte logic is
// exercised deterministically in tests without invoking ffmpeg.
func NewFakeClipWriterFactory() ClipWriterFactory {
	return func(path string, fps float64, width, height int) (ClipWriter, error) {
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		return &realFileClipWriter{file: f}, nil
	}
}

type realFileClipWriter struct {
	file *os.File
}

func (w *realFileClipWriter) WriteFrame(frame []byte) error {
	_, err := w.file.Write(frame)
	return err
}

func (w *realFileClipWriter) Close() error {
	return w.file.Close()
}
