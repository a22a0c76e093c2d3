// Package server exposes the dataset registry and query engine over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/insightql/internal/config"
	"github.com/leapstack-labs/insightql/internal/engine"
	"github.com/leapstack-labs/insightql/internal/server/notifier"
	"github.com/leapstack-labs/insightql/pkg/core"
)

// Server serves the HTTP API, the live dataset page and the optional
// drop-directory watcher.
type Server struct {
	engine          *engine.Engine
	addr            string
	maxBodyBytes    int64
	shutdownTimeout time.Duration
	watchDir        string
	watchKind       core.DatasetKind
	logger          *slog.Logger
	notifier        *notifier.Notifier
}

// Config holds configuration for the server.
type Config struct {
	Engine *engine.Engine
	Addr   string
	// MaxBodyBytes caps uploaded archives and query bodies.
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration
	// WatchDir, when set, is watched for archives to add automatically.
	WatchDir  string
	WatchKind core.DatasetKind
	Logger    *slog.Logger
}

// New creates a new server instance.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	addr := cfg.Addr
	if addr == "" {
		addr = config.DefaultServerAddr
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = config.DefaultMaxBodyBytes
	}
	shutdown := cfg.ShutdownTimeout
	if shutdown <= 0 {
		shutdown = config.DefaultShutdownTimeout
	}
	kind := cfg.WatchKind
	if kind == "" {
		kind = core.KindSections
	}

	return &Server{
		engine:          cfg.Engine,
		addr:            addr,
		maxBodyBytes:    maxBody,
		shutdownTimeout: shutdown,
		watchDir:        cfg.WatchDir,
		watchKind:       kind,
		logger:          logger,
		notifier:        notifier.New(),
	}
}

// Notifier returns the server's notifier for dataset change events.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Handler builds the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Get("/", s.handlePage)
	r.Get("/events", s.handleEvents)

	r.Get("/datasets", s.handleListDatasets)
	r.Post("/dataset/{id}", s.handleAddDataset)
	r.Delete("/dataset/{id}", s.handleRemoveDataset)
	r.Get("/dataset/{id}/insights", s.handleInsights)
	r.Post("/query", s.handleQuery)

	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watchDir != "" {
		w, err := s.newWatcher()
		if err != nil {
			return err
		}
		eg.Go(func() error {
			return s.watch(egctx, w)
		})
	}

	eg.Go(func() error {
		s.logger.Info("starting server", "addr", "http://"+s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
