// Package api exposes the extractor and relay over HTTP.
package api

import (
	"context"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/heyjunin/StreamGrab/pkg/logger"
	"github.com/heyjunin/StreamGrab/pkg/media"
	"github.com/heyjunin/StreamGrab/pkg/relay"
	"github.com/heyjunin/StreamGrab/pkg/selector"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Extractor produces the catalog for a page URL.
type Extractor interface {
	GetInfo(ctx context.Context, rawURL string) (*media.Catalog, error)
}

// Stream is a running transcode.
type Stream interface {
	io.ReadCloser
	ContentType() string
	Extension() string
}

// Relay starts a transcode for a selection.
type Relay interface {
	Open(ctx context.Context, sel selector.Selection) (Stream, error)
}

// FromRelay adapts a *relay.Relay to the Relay interface.
func FromRelay(r *relay.Relay) Relay {
	return relayAdapter{r}
}

type relayAdapter struct {
	r *relay.Relay
}

func (a relayAdapter) Open(ctx context.Context, sel selector.Selection) (Stream, error) {
	s, err := a.r.Open(ctx, sel)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Options configures a Server.
type Options struct {
	Extractor Extractor
	Relay     Relay
	Logger    logger.Logger
	// StaticDir, when set, is served at "/".
	StaticDir string
}

// Server holds the HTTP handlers. It keeps no per-request state.
type Server struct {
	extractor Extractor
	relay     Relay
	logger    logger.Logger
	staticDir string
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logger.NewLogger()
	}
	return &Server{
		extractor: opts.Extractor,
		relay:     opts.Relay,
		logger:    opts.Logger,
		staticDir: opts.StaticDir,
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestID, s.accessLog, metricsMiddleware(defaultMetricsSkip))

	r.HandleFunc("/healthz", s.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	for _, prefix := range []string{"", "/api"} {
		r.HandleFunc(prefix+"/info", s.Info).Methods(http.MethodGet)
		r.HandleFunc(prefix+"/download", s.Download).Methods(http.MethodGet)
	}

	if s.staticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.staticDir)))
	}
	return r
}
