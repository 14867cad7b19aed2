package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/heyjunin/StreamGrab/pkg/config"
	"github.com/heyjunin/StreamGrab/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	// Shared options
	configPath        string
	logLevel          string
	ytdlpBinary       string
	ffmpegBinary      string
	ffmpegExtraParams []string

	// serve
	listenAddr string
	staticDir  string

	// info
	jsonOutput bool

	// download
	formatID     string
	outputDir    string
	serverURL    string
	progressFile string
	overwrite    bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		color.New(color.FgRed, color.Bold).Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "streamgrab",
		Short: "StreamGrab - fetch video and audio from media pages",
		Long: `StreamGrab lists the formats a media page offers and relays the chosen one
through ffmpeg, either as an HTTP service or straight to a local file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&ytdlpBinary, "ytdlp", "", "Path to the yt-dlp binary")
	rootCmd.PersistentFlags().StringVar(&ffmpegBinary, "ffmpeg", "", "Path to the ffmpeg binary")
	rootCmd.PersistentFlags().StringArrayVar(&ffmpegExtraParams, "ffmpeg-param", nil, "Extra parameter to pass to ffmpeg before the output format (repeatable)")

	rootCmd.AddCommand(newServeCmd(), newInfoCmd(), newDownloadCmd())
	return rootCmd
}

// loadConfig reads the config file and environment, applies command line
// overrides and initializes logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	applyOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Init(cfg.LogLevel)
	return cfg, nil
}

// applyOverrides copies flags the user actually set onto cfg.
func applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("ytdlp") {
		cfg.YtDlpBinary = ytdlpBinary
	}
	if flags.Changed("ffmpeg") {
		cfg.FFmpegBinary = ffmpegBinary
	}
	if flags.Changed("ffmpeg-param") {
		cfg.FFmpegExtraParams = ffmpegExtraParams
	}
	if flags.Lookup("listen") != nil && flags.Changed("listen") {
		cfg.ListenAddr = listenAddr
	}
	if flags.Lookup("static") != nil && flags.Changed("static") {
		cfg.StaticDir = staticDir
	}
}

func usageFooter() string {
	return fmt.Sprintf("\n%s\n", config.Usage())
}
