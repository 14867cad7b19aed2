// Package relay runs ffmpeg against the selected remote streams and exposes
// its stdout as an io.ReadCloser. Bytes are never buffered beyond the OS pipe,
// so a slow reader throttles the child.
package relay

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alessio/shellescape"
	"github.com/heyjunin/StreamGrab/pkg/errors"
	"github.com/heyjunin/StreamGrab/pkg/logger"
	"github.com/heyjunin/StreamGrab/pkg/metrics"
	"github.com/heyjunin/StreamGrab/pkg/progress"
	"github.com/heyjunin/StreamGrab/pkg/selector"
)

// DefaultWaitDelay bounds how long Wait blocks on pipes held open by
// descendants after the child itself has exited.
const DefaultWaitDelay = 5 * time.Second

// Options configures a Relay.
type Options struct {
	// FFmpegBinary is the resolved path of the ffmpeg executable.
	FFmpegBinary string
	// ExtraParams are inserted before the output format of every plan.
	ExtraParams []string
	// WaitDelay defaults to DefaultWaitDelay.
	WaitDelay time.Duration
	Logger    logger.Logger
	// Progress, when set, receives the encoder's size/time statistics.
	// Intended for single-transfer callers such as the CLI.
	Progress progress.Reporter
}

// Relay spawns one ffmpeg process per Open. It holds no per-request state and
// is safe for concurrent use.
type Relay struct {
	opts Options
}

// New returns a Relay with defaults applied.
func New(opts Options) *Relay {
	if opts.FFmpegBinary == "" {
		opts.FFmpegBinary = "ffmpeg"
	}
	if opts.WaitDelay <= 0 {
		opts.WaitDelay = DefaultWaitDelay
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewLogger()
	}
	return &Relay{opts: opts}
}

// Open starts ffmpeg for sel. The returned Stream owns the process; callers
// must Close it. Cancelling ctx kills the process group.
func (r *Relay) Open(ctx context.Context, sel selector.Selection) (*Stream, error) {
	args, err := BuildArgs(sel, r.opts.ExtraParams)
	if err != nil {
		return nil, err
	}

	s := &Stream{
		ctx:      ctx,
		kind:     sel.Kind,
		log:      r.opts.Logger,
		progress: r.opts.Progress,
	}

	cmd := exec.CommandContext(ctx, r.opts.FFmpegBinary, args...)
	configureProcess(cmd)
	cmd.WaitDelay = r.opts.WaitDelay

	s.stderr = logger.NewLineWriter(r.opts.Logger, "ffmpeg", map[string]interface{}{
		"kind": string(sel.Kind),
	})
	s.stderr.OnLine(s.observe)
	cmd.Stderr = s.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, errors.TranscodeFailed, errors.GetErrorMessage(errors.ErrTranscoderPipe), errors.ErrTranscoderPipe)
	}

	r.opts.Logger.Debug("Executing FFmpeg command", "relay", map[string]interface{}{
		"kind":     string(sel.Kind),
		"needsMux": sel.NeedsMux,
		"command":  shellescape.QuoteCommand(cmd.Args),
	})

	if err := cmd.Start(); err != nil {
		s.state.Store(int32(Failed))
		metrics.RelayOutcomesTotal.WithLabelValues(Failed.String(), string(sel.Kind)).Inc()
		return nil, errors.Wrap(err, errors.TranscodeFailed, errors.GetErrorMessage(errors.ErrTranscoderStartFailed), errors.ErrTranscoderStartFailed)
	}

	s.cmd = cmd
	s.stdout = stdout
	s.state.Store(int32(ProcessSpawned))
	metrics.RelayProcessesActive.Inc()

	r.opts.Logger.Info("Transcoder started", "relay", map[string]interface{}{
		"pid":  cmd.Process.Pid,
		"kind": string(sel.Kind),
	})

	if s.progress != nil {
		s.progress.Start(progress.UnknownTotal)
	}
	return s, nil
}

// Stream is the stdout of one running ffmpeg process.
type Stream struct {
	ctx      context.Context
	cmd      *exec.Cmd
	stdout   io.ReadCloser
	stderr   *logger.LineWriter
	kind     selector.OutputKind
	log      logger.Logger
	progress progress.Reporter

	state   atomic.Int32
	bytes   atomic.Int64
	closing atomic.Bool

	mu     sync.Mutex
	exited bool
	once   sync.Once
	err    error
}

// Read relays bytes from ffmpeg's stdout. At end of output it reaps the
// process; a non-zero exit is returned as a TranscodeFailed error in place of
// io.EOF so that callers never mistake a truncated file for a complete one.
func (s *Stream) Read(p []byte) (int, error) {
	if st := s.State(); st.Terminal() {
		return 0, s.terminalErr(st, io.EOF)
	}

	n, err := s.stdout.Read(p)
	if n > 0 {
		s.bytes.Add(int64(n))
		s.state.CompareAndSwap(int32(ProcessSpawned), int32(Streaming))
	}
	if err == nil {
		return n, nil
	}

	_ = s.finish()
	return n, s.terminalErr(s.State(), err)
}

// terminalErr maps a settled state to the error Read reports. readErr is
// what the pipe itself returned.
func (s *Stream) terminalErr(st State, readErr error) error {
	switch {
	case s.err != nil:
		return s.err
	case st == Cancelled:
		return io.ErrClosedPipe
	case st == Completed:
		return io.EOF
	}
	return readErr
}

// Close terminates the process group if it is still running and reaps it.
// It is safe to call more than once.
func (s *Stream) Close() error {
	s.mu.Lock()
	if !s.exited && !s.State().Terminal() {
		switch err := killGroup(s.cmd); {
		case err == nil:
			s.closing.Store(true)
		case !stderrors.Is(err, os.ErrProcessDone):
			s.log.Warn("Failed to kill transcoder", "relay", map[string]interface{}{
				"pid":   s.PID(),
				"error": err.Error(),
			})
		}
	}
	s.mu.Unlock()

	_ = s.finish()
	return nil
}

// State returns the current lifecycle state.
func (s *Stream) State() State {
	return State(s.state.Load())
}

// PID is the child's process id.
func (s *Stream) PID() int {
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// BytesRead is the number of bytes relayed so far.
func (s *Stream) BytesRead() int64 {
	return s.bytes.Load()
}

// Kind is the output kind the stream was opened for.
func (s *Stream) Kind() selector.OutputKind {
	return s.kind
}

// ContentType is the MIME type of the stream.
func (s *Stream) ContentType() string {
	return ContentType(s.kind)
}

// Extension is the file extension of the stream, without the dot.
func (s *Stream) Extension() string {
	return Extension(s.kind)
}

// finish waits for the process once and settles the terminal state.
func (s *Stream) finish() error {
	s.once.Do(func() {
		waitErr := s.cmd.Wait()
		s.stderr.Flush()

		s.mu.Lock()
		s.exited = true
		s.mu.Unlock()

		metrics.RelayProcessesActive.Dec()
		metrics.RelayBytesTotal.WithLabelValues(string(s.kind)).Add(float64(s.bytes.Load()))

		fields := map[string]interface{}{
			"pid":   s.PID(),
			"kind":  string(s.kind),
			"bytes": s.bytes.Load(),
		}

		// A clean exit wins over a Close or cancellation that raced with it.
		var final State
		switch {
		case waitErr == nil:
			final = Completed
			if s.progress != nil {
				s.progress.Complete()
			}
		case s.closing.Load():
			final = Cancelled
		case s.ctx.Err() != nil:
			final = Cancelled
			s.err = s.ctx.Err()
		default:
			final = Failed
			details := waitErr.Error()
			if tail := s.stderr.Tail(); tail != "" {
				details = fmt.Sprintf("%s: %s", details, tail)
			}
			s.err = errors.Newf(errors.TranscodeFailed, errors.ErrTranscoderExitStatus, details)
			fields["error"] = details
		}
		s.state.Store(int32(final))
		metrics.RelayOutcomesTotal.WithLabelValues(final.String(), string(s.kind)).Inc()

		if final == Failed {
			s.log.Error("Transcoder failed", "relay", fields)
		} else {
			s.log.Info("Transcoder "+final.String(), "relay", fields)
		}
	})
	return s.err
}

var (
	sizeRegex = regexp.MustCompile(`size=\s*(\d+)\s*(B|kB|KiB|MB|MiB)?`)
	timeRegex = regexp.MustCompile(`time=(\d+):(\d+):(\d+(?:\.\d+)?)`)
)

// observe picks the encoder statistics out of an ffmpeg stderr line.
func (s *Stream) observe(line string) {
	if s.progress == nil || !strings.Contains(line, "time=") {
		return
	}
	size, ok := parseSize(line)
	if !ok {
		size = s.bytes.Load()
	}
	stage := ""
	if m := timeRegex.FindStringSubmatch(line); m != nil {
		stage = "time=" + m[1] + ":" + m[2] + ":" + m[3]
	}
	s.progress.Update(size, "transcoding", stage)
}

// parseSize returns the size= statistic in bytes.
func parseSize(line string) (int64, bool) {
	m := sizeRegex.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	switch m[2] {
	case "kB", "KiB":
		n *= 1024
	case "MB", "MiB":
		n *= 1024 * 1024
	}
	return n, true
}
