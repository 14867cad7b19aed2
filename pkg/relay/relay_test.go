//go:build unix

package relay

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/heyjunin/StreamGrab/pkg/errors"
	"github.com/heyjunin/StreamGrab/pkg/logger"
	"github.com/heyjunin/StreamGrab/pkg/progress"
	"github.com/heyjunin/StreamGrab/pkg/selector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Fatal(string, string, map[string]interface{}) {}

var _ logger.Logger = nopLogger{}

type mockProgressReporter struct {
	started   bool
	completed bool
	last      int64
	stage     string
}

func (m *mockProgressReporter) Start(int64) { m.started = true }
func (m *mockProgressReporter) Update(current int64, _, stage string) {
	m.last = current
	m.stage = stage
}
func (m *mockProgressReporter) Complete()                      { m.completed = true }
func (m *mockProgressReporter) Updates() <-chan progress.Event { return nil }

// fakeFFmpeg writes an executable shell script standing in for ffmpeg.
func fakeFFmpeg(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func videoSelection() selector.Selection {
	return selector.Selection{Video: videoEntry, Audio: audioEntry, NeedsMux: true, Kind: selector.VideoOutput}
}

func TestStreamRelaysStdout(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	bin := fakeFFmpeg(t, `printf '%s\n' "$@" > `+argsFile+`
printf 'frame=1 size=       2kB time=00:00:01.00 bitrate=1\r' >&2
printf 'fragmented-mp4-bytes'`)

	rep := &mockProgressReporter{}
	r := New(Options{FFmpegBinary: bin, Logger: nopLogger{}, Progress: rep})

	stream, err := r.Open(context.Background(), videoSelection())
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, ProcessSpawned, stream.State())
	assert.Equal(t, "video/mp4", stream.ContentType())
	assert.Equal(t, "mp4", stream.Extension())

	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "fragmented-mp4-bytes", string(data))
	assert.Equal(t, Completed, stream.State())
	assert.Equal(t, int64(len(data)), stream.BytesRead())

	assert.True(t, rep.started)
	assert.True(t, rep.completed)
	assert.Equal(t, int64(2048), rep.last)
	assert.Equal(t, "time=00:00:01.00", rep.stage)

	recorded, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	want, _ := BuildArgs(videoSelection(), nil)
	assert.Equal(t, strings.Join(want, "\n")+"\n", string(recorded))

	// reads after completion keep reporting EOF
	n, err := stream.Read(make([]byte, 8))
	assert.Zero(t, n)
	assert.Equal(t, io.EOF, err)
}

func TestStreamNonZeroExitIsTranscodeFailed(t *testing.T) {
	bin := fakeFFmpeg(t, `printf 'partial'
echo 'https://cdn.example/v: Server returned 403 Forbidden' >&2
exit 1`)
	r := New(Options{FFmpegBinary: bin, Logger: nopLogger{}})

	stream, err := r.Open(context.Background(), videoSelection())
	require.NoError(t, err)
	defer stream.Close()

	data, err := io.ReadAll(stream)
	assert.Equal(t, "partial", string(data))
	require.Error(t, err)

	se, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.TranscodeFailed, se.Type)
	assert.Equal(t, errors.ErrTranscoderExitStatus, se.Code)
	assert.Contains(t, se.Details, "403 Forbidden")
	assert.Equal(t, Failed, stream.State())
}

func TestOpenMissingBinary(t *testing.T) {
	r := New(Options{FFmpegBinary: filepath.Join(t.TempDir(), "missing"), Logger: nopLogger{}})

	_, err := r.Open(context.Background(), videoSelection())
	require.Error(t, err)
	se, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrTranscoderStartFailed, se.Code)
}

func TestOpenRejectsEmptySelection(t *testing.T) {
	r := New(Options{FFmpegBinary: "/bin/true", Logger: nopLogger{}})
	_, err := r.Open(context.Background(), selector.Selection{Kind: selector.VideoOutput})
	assert.True(t, errors.IsType(err, errors.TranscodeFailed))
}

// processGone reports whether pid no longer exists or is a zombie waiting
// for a reaper.
func processGone(pid int) bool {
	if err := unix.Kill(pid, 0); err == unix.ESRCH {
		return true
	}
	stat, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return os.IsNotExist(err)
	}
	fields := strings.Fields(string(stat[strings.LastIndexByte(string(stat), ')')+1:]))
	return len(fields) > 0 && fields[0] == "Z"
}

func startEndless(t *testing.T, ctx context.Context) (*Stream, int) {
	t.Helper()
	pidFile := filepath.Join(t.TempDir(), "child.pid")
	bin := fakeFFmpeg(t, `sleep 60 &
echo $! > `+pidFile+`
yes`)
	r := New(Options{FFmpegBinary: bin, Logger: nopLogger{}, WaitDelay: time.Second})

	stream, err := r.Open(ctx, videoSelection())
	require.NoError(t, err)

	buf := make([]byte, 1024)
	_, err = io.ReadFull(stream, buf)
	require.NoError(t, err)
	assert.Equal(t, Streaming, stream.State())

	var childPID int
	require.Eventually(t, func() bool {
		raw, err := os.ReadFile(pidFile)
		if err != nil {
			return false
		}
		childPID, err = strconv.Atoi(strings.TrimSpace(string(raw)))
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	return stream, childPID
}

func TestCloseKillsProcessGroup(t *testing.T) {
	stream, childPID := startEndless(t, context.Background())
	pid := stream.PID()

	start := time.Now()
	require.NoError(t, stream.Close())
	assert.Less(t, time.Since(start), 3*time.Second)

	assert.Equal(t, Cancelled, stream.State())
	assert.True(t, processGone(pid))
	assert.Eventually(t, func() bool { return processGone(childPID) }, 3*time.Second, 20*time.Millisecond)

	// idempotent
	require.NoError(t, stream.Close())
	_, err := stream.Read(make([]byte, 8))
	assert.Equal(t, io.ErrClosedPipe, err)
}

func TestCloseAfterCleanExitIsCompleted(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("zombie detection reads /proc")
	}
	bin := fakeFFmpeg(t, `printf 'done'`)
	r := New(Options{FFmpegBinary: bin, Logger: nopLogger{}})

	stream, err := r.Open(context.Background(), videoSelection())
	require.NoError(t, err)
	pid := stream.PID()

	// The child has exited but is not reaped yet.
	require.Eventually(t, func() bool { return processGone(pid) }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, stream.Close())
	assert.Equal(t, Completed, stream.State())
}

func TestContextCancelStopsStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stream, childPID := startEndless(t, ctx)
	defer stream.Close()

	cancel()

	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(io.Discard, stream)
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop after context cancellation")
	}
	assert.Equal(t, Cancelled, stream.State())
	assert.Eventually(t, func() bool { return processGone(childPID) }, 3*time.Second, 20*time.Millisecond)
}
