package main

import (
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/heyjunin/StreamGrab/pkg/config"
	"github.com/heyjunin/StreamGrab/pkg/downloader"
	"github.com/heyjunin/StreamGrab/pkg/extractor"
	"github.com/heyjunin/StreamGrab/pkg/logger"
	"github.com/heyjunin/StreamGrab/pkg/media"
	"github.com/heyjunin/StreamGrab/pkg/progress"
	"github.com/heyjunin/StreamGrab/pkg/relay"
	"github.com/heyjunin/StreamGrab/pkg/selector"
	"github.com/spf13/cobra"
)

// ffmpeg prints statistics several times a second; one event per interval is
// plenty for the Updates channel.
const reporterThrottle = 250 * time.Millisecond

func newDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download <url>",
		Short: "Save one format of a media page to a file",
		Long: `Save one format of a media page to a file.

Without --server the extraction and transcoding run locally and need yt-dlp
and ffmpeg on this machine. With --server the request goes to a running
StreamGrab service instead.`,
		Args: cobra.ExactArgs(1),
		RunE: runDownload,
	}
	cmd.Flags().StringVarP(&formatID, "itag", "f", "", `Format identifier from "info", or "mp3" for audio only (default: best video)`)
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Directory to save the file in")
	cmd.Flags().StringVar(&serverURL, "server", "", "Base URL of a StreamGrab server, e.g. http://localhost:8080")
	cmd.Flags().StringVar(&progressFile, "progress-file", "", "Mirror progress to this file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Allow overwriting existing files")
	return cmd
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := extractor.ValidateURL(args[0]); err != nil {
		return err
	}
	if err := selector.ValidateFormatID(formatID); err != nil {
		return err
	}

	reporterOpts := []progress.ReporterOption{
		progress.WithWriter(cmd.ErrOrStderr()),
		progress.WithThrottle(reporterThrottle),
	}
	if progressFile != "" {
		reporterOpts = append(reporterOpts, progress.WithProgressFile(progressFile))
	}
	reporter := progress.NewReporter(reporterOpts...)

	var path string
	if serverURL != "" {
		path, err = downloadRemote(cmd, args[0], reporter)
	} else {
		path, err = downloadLocal(cmd, cfg, args[0], reporter)
	}
	if err != nil {
		return err
	}

	absPath, _ := filepath.Abs(path)
	color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Saved %s\n", absPath)
	return nil
}

func downloadRemote(cmd *cobra.Command, rawURL string, reporter progress.Reporter) (string, error) {
	d := downloader.New(downloader.Options{
		ServerURL:     serverURL,
		OutputDir:     outputDir,
		Progress:      reporter,
		AllowOverride: overwrite,
		Logger:        logger.NewLogger(),
	})
	return d.Fetch(cmd.Context(), rawURL, formatID)
}

// downloadLocal runs the same extract, select and relay pipeline as the
// server's /download handler. Progress comes from ffmpeg's statistics since
// the output size is not known in advance.
func downloadLocal(cmd *cobra.Command, cfg *config.Config, rawURL string, reporter progress.Reporter) (string, error) {
	if err := cfg.Resolve(); err != nil {
		return "", err
	}
	log := logger.NewLogger()
	ctx := cmd.Context()

	client := extractor.New(extractor.Options{
		Binary:    cfg.YtDlpBinary,
		Timeout:   cfg.ExtractTimeout,
		ExtraArgs: cfg.YtDlpExtraArgs,
		Logger:    log,
	})
	catalog, err := client.GetInfo(ctx, rawURL)
	if err != nil {
		return "", err
	}

	sel, err := selector.Select(catalog, formatID)
	if err != nil {
		return "", err
	}

	rel := relay.New(relay.Options{
		FFmpegBinary: cfg.FFmpegBinary,
		ExtraParams:  cfg.FFmpegExtraParams,
		WaitDelay:    cfg.KillWaitDelay,
		Logger:       log,
		Progress:     reporter,
	})
	stream, err := rel.Open(ctx, sel)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	d := downloader.New(downloader.Options{
		OutputDir:     outputDir,
		AllowOverride: overwrite,
		Logger:        log,
	})
	return d.Save(stream, media.Filename(catalog.Title, stream.Extension()))
}
