// Package downloader saves StreamGrab output to disk, either from a running
// server's /download endpoint or from any reader the caller already holds.
package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/heyjunin/StreamGrab/pkg/errors"
	"github.com/heyjunin/StreamGrab/pkg/logger"
	"github.com/heyjunin/StreamGrab/pkg/media"
	"github.com/heyjunin/StreamGrab/pkg/progress"
)

// Options configures a Downloader.
type Options struct {
	// ServerURL is the base URL of a StreamGrab server, e.g. http://localhost:8080.
	// Only Fetch needs it.
	ServerURL string
	// OutputDir receives the files. Defaults to the working directory.
	OutputDir string
	// Timeout bounds the whole HTTP exchange. Zero means no limit, since
	// transcoded transfers run as long as the media does.
	Timeout time.Duration
	// Progress is optional.
	Progress progress.Reporter
	// AllowOverride replaces an existing file instead of skipping the download.
	AllowOverride bool
	Logger        logger.Logger
}

// Downloader writes transfers to OutputDir.
type Downloader struct {
	client  *http.Client
	options Options
}

// New creates a Downloader.
func New(options Options) *Downloader {
	if options.OutputDir == "" {
		options.OutputDir = "."
	}
	if options.Logger == nil {
		options.Logger = logger.NewLogger()
	}
	return &Downloader{
		client:  &http.Client{Timeout: options.Timeout},
		options: options,
	}
}

// errorBody is the JSON error document the server answers with.
type errorBody struct {
	Error string `json:"error"`
	Type  string `json:"type"`
	Code  int    `json:"code"`
}

// Fetch asks the server to relay sourceURL in formatID and saves the result
// under the filename the server suggests. It returns the written path.
func (d *Downloader) Fetch(ctx context.Context, sourceURL, formatID string) (string, error) {
	endpoint, err := url.JoinPath(d.options.ServerURL, "download")
	if err != nil {
		return "", errors.Wrap(err, errors.InvalidInput, errors.GetErrorMessage(errors.ErrMalformedURL), errors.ErrMalformedURL)
	}
	q := url.Values{}
	q.Set("url", sourceURL)
	if formatID != "" {
		q.Set("itag", formatID)
	}
	endpoint += "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.DownloadError, "Failed to create HTTP request", errors.ErrServerUnavailable)
	}

	d.options.Logger.Info("Starting download", "downloader", map[string]interface{}{
		"server": d.options.ServerURL,
		"url":    sourceURL,
		"itag":   formatID,
	})

	resp, err := d.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, errors.DownloadError, errors.GetErrorMessage(errors.ErrServerUnavailable), errors.ErrServerUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", rejection(resp)
	}

	name := attachmentName(resp.Header.Get("Content-Disposition"), resp.Header.Get("Content-Type"))
	return d.save(resp.Body, name, resp.ContentLength)
}

// Save writes r to OutputDir/name. Use it for streams that do not come from
// a server, such as a local relay.
func (d *Downloader) Save(r io.Reader, name string) (string, error) {
	return d.save(r, name, progress.UnknownTotal)
}

func (d *Downloader) save(r io.Reader, name string, size int64) (string, error) {
	if err := os.MkdirAll(d.options.OutputDir, 0755); err != nil {
		return "", errors.Wrap(err, errors.SystemError, "Failed to create output directory", errors.ErrInvalidOutputDir)
	}
	outputPath := filepath.Join(d.options.OutputDir, name)

	if _, err := os.Stat(outputPath); err == nil && !d.options.AllowOverride {
		d.options.Logger.Info("File already exists, skipping download", "downloader", map[string]interface{}{
			"path": outputPath,
		})
		return outputPath, nil
	}

	// Partial transfers stay in a hidden .part file until renamed.
	file, err := os.CreateTemp(d.options.OutputDir, "."+name+".*.part")
	if err != nil {
		return "", errors.Wrap(err, errors.SystemError, errors.GetErrorMessage(errors.ErrFileCreateFailed), errors.ErrFileCreateFailed)
	}
	partPath := file.Name()
	cleanup := func() {
		file.Close()
		os.Remove(partPath)
	}

	if d.options.Progress != nil {
		d.options.Progress.Start(size)
	}
	reader := progress.NewReader(r, d.options.Progress, "downloading", name)

	if _, err := io.Copy(file, reader); err != nil {
		cleanup()
		return "", errors.Wrap(err, errors.DownloadError, errors.GetErrorMessage(errors.ErrWriteFailed), errors.ErrWriteFailed)
	}
	if err := file.Close(); err != nil {
		os.Remove(partPath)
		return "", errors.Wrap(err, errors.DownloadError, errors.GetErrorMessage(errors.ErrWriteFailed), errors.ErrWriteFailed)
	}
	if err := os.Rename(partPath, outputPath); err != nil {
		os.Remove(partPath)
		return "", errors.Wrap(err, errors.SystemError, errors.GetErrorMessage(errors.ErrFileCreateFailed), errors.ErrFileCreateFailed)
	}

	if d.options.Progress != nil {
		d.options.Progress.Complete()
	}

	d.options.Logger.Info("Download completed", "downloader", map[string]interface{}{
		"path":  outputPath,
		"bytes": reader.N(),
	})
	return outputPath, nil
}

// rejection turns a non-200 response into an error, keeping the server's
// error type and code when the body carries them.
func rejection(resp *http.Response) error {
	status := fmt.Sprintf("HTTP %d", resp.StatusCode)

	var body errorBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil || body.Error == "" {
		return errors.New(errors.DownloadError, errors.GetErrorMessage(errors.ErrServerRejected), status, errors.ErrServerRejected)
	}
	errType := errors.ErrorType(body.Type)
	if errType == "" {
		errType = errors.DownloadError
	}
	return errors.New(errType, body.Error, status, body.Code)
}

// attachmentName picks a safe file name from Content-Disposition, falling
// back to one derived from the content type.
func attachmentName(disposition, contentType string) string {
	if _, params, err := mime.ParseMediaType(disposition); err == nil {
		if name := filepath.Base(filepath.Clean("/" + params["filename"])); name != "/" && name != "." && !strings.HasPrefix(name, ".") {
			return name
		}
	}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "audio/mpeg":
		return media.Filename("", "mp3")
	case "video/mp4":
		return media.Filename("", "mp4")
	}
	return media.Filename("", "bin")
}
