package chunker

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, source *FakeSource, chunkDuration time.Duration) (Config, chan string) {
	t.Helper()
	dir := t.TempDir()
	queue := make(chan string, 100)
	cfg := Config{
		StreamURL:     "rtsp://camera.local/stream",
		ChunkDuration: chunkDuration,
		OutputDir:     dir,
		NewSource: func(streamURL string, useTCP bool) FrameSource {
			return source
		},
		NewClipWriter: NewFakeClipWriterFactory(),
	}
	return cfg, queue
}

func TestNewRejectsNonPositiveChunkDuration(t *testing.T) {
	_, err := New(Config{StreamURL: "rtsp://x", ChunkDuration: 0, OutputDir: t.TempDir()}, make(chan string, 1))
	assert.Error(t, err)
}

func TestNewRejectsUnsupportedScheme(t *testing.T) {
	_, err := New(Config{StreamURL: "ftp://x", ChunkDuration: time.Second, OutputDir: t.TempDir()}, make(chan string, 1))
	assert.Error(t, err)
}

func TestEmitsFinalizedClipWithCanonicalName(t *testing.T) {
	frame := make([]byte, 16)
	source := NewFakeSource(1, 4, 4).ScriptOpen(nil)
	for i := 0; i < 200; i++ {
		source.ScriptFrame(frame)
	}

	cfg, queue := testConfig(t, source, 50*time.Millisecond)
	c, err := New(cfg, queue)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	defer c.Stop()

	select {
	case path := <-queue:
		name := filepath.Base(path)
		assert.Regexp(t, regexp.MustCompile(`^\d{14}_\d{14}\.mp4$`), name)
		info, statErr := os.Stat(path)
		require.NoError(t, statErr)
		assert.Greater(t, info.Size(), int64(0))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for finalized clip")
	}
}

func TestReconnectAfterReadError(t *testing.T) {
	frame := make([]byte, 16)
	source := NewFakeSource(1, 4, 4).
		ScriptOpen(nil).
		ScriptFrame(frame).
		ScriptReadError(assertErr("connection reset")).
		ScriptOpen(nil)
	for i := 0; i < 200; i++ {
		source.ScriptFrame(frame)
	}

	cfg, queue := testConfig(t, source, 50*time.Millisecond)
	c, err := New(cfg, queue)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	defer c.Stop()

	// The single frame before the read error yields the first clip; the
	// second clip can only come from frames read after the reconnect.
	select {
	case <-queue:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for clip before the read error")
	}

	select {
	case <-queue:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for clip after reconnect")
	}

	assert.GreaterOrEqual(t, c.Stats().ReconnectCount, int64(2))
}

func TestGivesUpAfterMaxConnectFailures(t *testing.T) {
	source := NewFakeSource(1, 4, 4)
	for i := 0; i < maxConnectFailures; i++ {
		source.ScriptOpen(assertErr("refused"))
	}

	cfg, queue := testConfig(t, source, time.Second)
	cfg.InitialRetryDelay = time.Millisecond
	cfg.MaxRetryDelay = 5 * time.Millisecond
	c, err := New(cfg, queue)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	// Backoff between attempts grows, but the loop must still terminate on
	// its own without Stop() once max_connect_failures is reached.
	require.True(t, c.Join(5*time.Second))
	assert.Equal(t, int64(0), c.Stats().ReconnectCount)
}

func TestStopExitsLoopPromptly(t *testing.T) {
	source := NewFakeSource(1, 4, 4).ScriptOpen(nil)
	for i := 0; i < 1000; i++ {
		source.ScriptTimeout()
	}

	cfg, queue := testConfig(t, source, time.Second)
	c, err := New(cfg, queue)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	time.Sleep(20 * time.Millisecond)
	c.Stop()

	assert.True(t, c.Join(2*time.Second))
}

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

func assertErr(msg string) error { return simpleErr(msg) }
