// Package progress reports transfer progress for long running downloads and
// transcodes. The console bar is drawn with progressbar; events are also
// published on a channel and optionally mirrored to a file.
package progress

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/heyjunin/StreamGrab/pkg/logger"
	"github.com/schollz/progressbar/v3"
)

// UnknownTotal is passed to Start when the final size is not known up front.
// The console bar then renders as a spinner.
const UnknownTotal int64 = -1

// Event is a single progress update.
type Event struct {
	// Status is one of "initialized", "started", "processing", "completed".
	Status string `json:"status"`
	// Percentage is 0-100, or 0 while the total is unknown.
	Percentage float64 `json:"percentage"`
	// Bytes is the amount transferred so far.
	Bytes int64 `json:"bytes"`
	// Step names the phase, e.g. "downloading" or "transcoding".
	Step string `json:"step"`
	// Stage is a free-form detail within the step.
	Stage string `json:"stage"`
	// Timestamp is RFC3339.
	Timestamp string `json:"timestamp"`
}

// Reporter receives progress for a single operation.
type Reporter interface {
	// Start begins reporting. total is UnknownTotal when the size is unknown.
	Start(total int64)
	// Update sets the absolute progress.
	Update(current int64, step, stage string)
	// Complete marks the operation as finished and closes Updates.
	Complete()
	// Updates emits events until Complete.
	Updates() <-chan Event
}

type reporterOptions struct {
	throttle           time.Duration
	progressFilePath   string
	progressFileFormat string
	description        string
	writer             io.Writer
}

// ReporterOption configures a DefaultReporter.
type ReporterOption func(*reporterOptions)

// WithThrottle sets the minimum interval between events sent on Updates.
func WithThrottle(d time.Duration) ReporterOption {
	return func(opts *reporterOptions) {
		opts.throttle = d
	}
}

// WithProgressFile mirrors every event to path. The format is chosen with
// WithProgressFileFormat.
func WithProgressFile(path string) ReporterOption {
	return func(opts *reporterOptions) {
		opts.progressFilePath = path
	}
}

// WithProgressFileFormat selects "text" or "json" for the progress file.
// Text holds the percentage, or the byte count while the total is unknown.
func WithProgressFileFormat(format string) ReporterOption {
	return func(opts *reporterOptions) {
		switch format {
		case "json", "text":
			opts.progressFileFormat = format
		default:
			logger.Warn("Invalid progress file format, using text", "progress", map[string]interface{}{
				"format": format,
			})
			opts.progressFileFormat = "text"
		}
	}
}

// WithDescription sets the console bar label.
func WithDescription(desc string) ReporterOption {
	return func(opts *reporterOptions) {
		opts.description = desc
	}
}

// WithWriter redirects the console bar. Defaults to os.Stderr.
func WithWriter(w io.Writer) ReporterOption {
	return func(opts *reporterOptions) {
		opts.writer = w
	}
}

// DefaultReporter draws a byte-count progressbar and publishes events on a channel.
type DefaultReporter struct {
	Total   int64
	Current int64
	Started time.Time
	Bar     *progressbar.ProgressBar
	Event   Event

	opts       reporterOptions
	updatesCh  chan Event
	lastUpdate time.Time
	mu         sync.Mutex
}

// NewReporter creates a DefaultReporter.
func NewReporter(opts ...ReporterOption) *DefaultReporter {
	options := reporterOptions{
		description:        "Downloading",
		progressFileFormat: "text",
		writer:             os.Stderr,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &DefaultReporter{
		opts: options,
		Event: Event{
			Status:    "initialized",
			Timestamp: time.Now().Format(time.RFC3339),
		},
		lastUpdate: time.Now(),
		updatesCh:  make(chan Event, 10),
	}
}

// Start implements Reporter.
func (r *DefaultReporter) Start(total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if total <= 0 {
		total = UnknownTotal
	}
	r.Total = total
	r.Current = 0
	r.Started = time.Now()
	r.Event.Status = "started"
	r.Event.Percentage = 0
	r.Event.Bytes = 0
	r.Event.Timestamp = time.Now().Format(time.RFC3339)

	barOpts := []progressbar.Option{
		progressbar.OptionSetDescription(r.opts.description),
		progressbar.OptionSetWriter(r.opts.writer),
		progressbar.OptionShowCount(),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	}
	if total == UnknownTotal {
		barOpts = append(barOpts, progressbar.OptionSpinnerType(14))
	}

	r.Bar = progressbar.NewOptions64(total, barOpts...)

	r.sendUpdateInternal(true)
	r.writeProgressFileInternal()
}

// Update implements Reporter.
func (r *DefaultReporter) Update(current int64, step, stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Bar == nil {
		return
	}
	if r.Total > 0 && current > r.Total {
		current = r.Total
	}
	r.Current = current

	percentage := 0.0
	if r.Total > 0 {
		percentage = float64(current) / float64(r.Total) * 100
	}
	r.Event.Percentage = percentage
	r.Event.Bytes = current
	r.Event.Step = step
	r.Event.Stage = stage
	r.Event.Status = "processing"
	r.Event.Timestamp = time.Now().Format(time.RFC3339)

	_ = r.Bar.Set64(current)

	r.sendUpdateInternal(false)
	r.writeProgressFileInternal()
}

// Complete implements Reporter. Calls after the first are no-ops.
func (r *DefaultReporter) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Bar == nil {
		return
	}

	_ = r.Bar.Finish()
	if r.Total > 0 {
		r.Current = r.Total
	}
	r.Event.Percentage = 100
	r.Event.Bytes = r.Current
	r.Event.Status = "completed"
	r.Event.Timestamp = time.Now().Format(time.RFC3339)

	r.sendUpdateInternal(true)
	r.writeProgressFileInternal()
	r.Bar = nil
	close(r.updatesCh)
}

// Updates implements Reporter.
func (r *DefaultReporter) Updates() <-chan Event {
	return r.updatesCh
}

// JSON returns the latest event encoded as JSON.
func (r *DefaultReporter) JSON() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, err := json.Marshal(r.Event)
	if err != nil {
		return "", fmt.Errorf("failed to marshal progress event: %w", err)
	}
	return string(data), nil
}

// sendUpdateInternal requires r.mu.
func (r *DefaultReporter) sendUpdateInternal(force bool) {
	now := time.Now()
	if !force && now.Sub(r.lastUpdate) < r.opts.throttle {
		return
	}
	r.lastUpdate = now

	select {
	case r.updatesCh <- r.Event:
	default:
	}
}

// writeProgressFileInternal requires r.mu.
func (r *DefaultReporter) writeProgressFileInternal() {
	if r.opts.progressFilePath == "" {
		return
	}

	var content []byte
	switch r.opts.progressFileFormat {
	case "json":
		var err error
		content, err = json.MarshalIndent(r.Event, "", "  ")
		if err != nil {
			logger.Warn("Failed to marshal progress event", "progress", map[string]interface{}{
				"path":  r.opts.progressFilePath,
				"error": err.Error(),
			})
			return
		}
	default:
		if r.Total > 0 || r.Event.Status == "completed" {
			content = []byte(fmt.Sprintf("%.2f", r.Event.Percentage))
		} else {
			content = []byte(fmt.Sprintf("%d", r.Event.Bytes))
		}
	}

	if err := os.WriteFile(r.opts.progressFilePath, content, 0644); err != nil {
		logger.Warn("Failed to write progress file", "progress", map[string]interface{}{
			"path":   r.opts.progressFilePath,
			"format": r.opts.progressFileFormat,
			"error":  err.Error(),
		})
	}
}
