// Package extractor asks yt-dlp to describe a page URL and normalizes the
// answer into a media.Catalog. Nothing is cached; every call spawns the tool.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/alessio/shellescape"
	"github.com/heyjunin/StreamGrab/pkg/errors"
	"github.com/heyjunin/StreamGrab/pkg/logger"
	"github.com/heyjunin/StreamGrab/pkg/media"
	"github.com/heyjunin/StreamGrab/pkg/metrics"
)

const waitDelay = 2 * time.Second

// Options configures a Client.
type Options struct {
	// Binary is the resolved path of yt-dlp.
	Binary string
	// Timeout bounds a single extraction. Zero means no limit.
	Timeout time.Duration
	// ExtraArgs are passed to yt-dlp before the URL separator.
	ExtraArgs []string
	Logger    logger.Logger
}

// Client runs yt-dlp. It is safe for concurrent use.
type Client struct {
	opts Options
}

// New returns a Client with defaults applied.
func New(opts Options) *Client {
	if opts.Binary == "" {
		opts.Binary = "yt-dlp"
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewLogger()
	}
	return &Client{opts: opts}
}

// ValidateURL accepts absolute http and https URLs with a host.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errors.Newf(errors.InvalidInput, errors.ErrMissingURL, "")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Newf(errors.InvalidInput, errors.ErrMalformedURL, err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Newf(errors.InvalidInput, errors.ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return errors.Newf(errors.InvalidInput, errors.ErrMalformedURL, "missing host")
	}
	return nil
}

// args is the yt-dlp command line for rawURL.
func (c *Client) args(rawURL string) []string {
	args := []string{"--dump-single-json", "--no-playlist", "--no-warnings", "--skip-download"}
	args = append(args, c.opts.ExtraArgs...)
	return append(args, "--", rawURL)
}

// GetInfo fetches and normalizes the catalog for rawURL.
func (c *Client) GetInfo(ctx context.Context, rawURL string) (*media.Catalog, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}
	rawURL = strings.TrimSpace(rawURL)

	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	catalog, err := c.run(ctx, rawURL)
	outcome := metrics.OutcomeSuccess
	switch {
	case errors.IsType(err, errors.ExtractionError) && ctx.Err() == context.DeadlineExceeded:
		outcome = metrics.OutcomeTimeout
	case err != nil:
		outcome = metrics.OutcomeError
	}
	metrics.ExtractionsTotal.WithLabelValues(outcome).Inc()
	metrics.ExtractionDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		c.opts.Logger.Error("Extraction failed", "extractor", map[string]interface{}{
			"url":   rawURL,
			"error": err.Error(),
		})
		return nil, err
	}

	c.opts.Logger.Info("Extraction completed", "extractor", map[string]interface{}{
		"url":      rawURL,
		"formats":  len(catalog.Formats),
		"duration": time.Since(start).String(),
	})
	return catalog, nil
}

func (c *Client) run(ctx context.Context, rawURL string) (*media.Catalog, error) {
	cmd := exec.CommandContext(ctx, c.opts.Binary, c.args(rawURL)...)
	cmd.WaitDelay = waitDelay

	var stdout bytes.Buffer
	stderr := logger.NewLineWriter(c.opts.Logger, "ytdlp", map[string]interface{}{"url": rawURL})
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	c.opts.Logger.Debug("Executing yt-dlp", "extractor", map[string]interface{}{
		"command": shellescape.QuoteCommand(cmd.Args),
	})

	err := cmd.Run()
	stderr.Flush()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Newf(errors.ExtractionError, errors.ErrExtractorTimeout, c.opts.Timeout.String())
		}
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), errors.ExtractionError, errors.GetErrorMessage(errors.ErrExtractorExitStatus), errors.ErrExtractorExitStatus)
		}
		var exitErr *exec.ExitError
		if !stderrors.As(err, &exitErr) {
			return nil, errors.Wrap(err, errors.ExtractionError, errors.GetErrorMessage(errors.ErrExtractorStartFailed), errors.ErrExtractorStartFailed)
		}
		details := exitErr.Error()
		if tail := stderr.Tail(); tail != "" {
			details = fmt.Sprintf("%s: %s", details, tail)
		}
		return nil, errors.Newf(errors.ExtractionError, errors.ErrExtractorExitStatus, details)
	}

	var info ytdlpInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, errors.Wrap(err, errors.ExtractionError, errors.GetErrorMessage(errors.ErrExtractorBadOutput), errors.ErrExtractorBadOutput)
	}
	return info.toCatalog(), nil
}
