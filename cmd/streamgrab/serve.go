package main

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/heyjunin/StreamGrab/pkg/api"
	"github.com/heyjunin/StreamGrab/pkg/extractor"
	"github.com/heyjunin/StreamGrab/pkg/logger"
	"github.com/heyjunin/StreamGrab/pkg/relay"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().StringVarP(&listenAddr, "listen", "l", ":8080", "Address to listen on")
	cmd.Flags().StringVar(&staticDir, "static", "", "Directory with a web UI to serve at /")
	cmd.SetUsageTemplate(cmd.UsageTemplate() + usageFooter())
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Resolve(); err != nil {
		return err
	}

	log := logger.NewLogger()
	server := api.New(api.Options{
		Extractor: extractor.New(extractor.Options{
			Binary:    cfg.YtDlpBinary,
			Timeout:   cfg.ExtractTimeout,
			ExtraArgs: cfg.YtDlpExtraArgs,
			Logger:    log,
		}),
		Relay: api.FromRelay(relay.New(relay.Options{
			FFmpegBinary: cfg.FFmpegBinary,
			ExtraParams:  cfg.FFmpegExtraParams,
			WaitDelay:    cfg.KillWaitDelay,
			Logger:       log,
		})),
		Logger:    log,
		StaticDir: cfg.StaticDir,
	})

	// Requests derive from baseCtx so that cancelling it after the grace
	// period kills any transcoder still running.
	baseCtx, cancelRequests := context.WithCancel(context.Background())
	defer cancelRequests()

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	g, ctx := errgroup.WithContext(cmd.Context())

	g.Go(func() error {
		log.Info("Starting server", "main", map[string]interface{}{
			"addr":   cfg.ListenAddr,
			"ytdlp":  cfg.YtDlpBinary,
			"ffmpeg": cfg.FFmpegBinary,
			"static": cfg.StaticDir,
		})
		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down", "main", map[string]interface{}{
			"grace": cfg.ShutdownTimeout.String(),
		})

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		err := httpServer.Shutdown(shutdownCtx)
		if err != nil {
			log.Warn("Grace period expired, cancelling in-flight downloads", "main", map[string]interface{}{
				"error": err.Error(),
			})
			cancelRequests()
			return httpServer.Close()
		}
		log.Info("Server stopped", "main", nil)
		return nil
	})

	return g.Wait()
}
