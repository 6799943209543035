/*
Copyright (C) 2026 Filmnet Labs

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server assembles the services and the HTTP surface.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/filmnetlabs/filmnet/internal/api"
	"github.com/filmnetlabs/filmnet/internal/catalog"
	"github.com/filmnetlabs/filmnet/internal/config"
	"github.com/filmnetlabs/filmnet/internal/events"
	"github.com/filmnetlabs/filmnet/internal/logbuffer"
	"github.com/filmnetlabs/filmnet/internal/mediaengine"
	"github.com/filmnetlabs/filmnet/internal/metadata"
	"github.com/filmnetlabs/filmnet/internal/playout"
	"github.com/filmnetlabs/filmnet/internal/schedule"
	"github.com/filmnetlabs/filmnet/internal/status"
	"github.com/filmnetlabs/filmnet/internal/store"
	"github.com/filmnetlabs/filmnet/internal/telemetry"
	"github.com/filmnetlabs/filmnet/internal/version"
)

// Server bundles the HTTP server and the services behind it.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server

	store   *store.Store
	table   *schedule.Table
	bus     *events.Bus
	catalog *catalog.Service
	engine  *playout.Engine
	metrics *telemetry.Metrics
	tracer  *telemetry.TracerProvider
}

// New wires the full service graph and prepares the HTTP server. Nothing
// is on air until the engine is started.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, logBuf *logbuffer.Buffer) (*Server, error) {
	for _, dir := range []string{cfg.StreamDir, cfg.TrailerDir, cfg.BumperDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	tracer, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
		ServiceName:    "filmnet",
		ServiceVersion: version.Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TracingSampleRate,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	table, err := schedule.LoadFile(cfg.ScheduleFile)
	if err != nil {
		return nil, fmt.Errorf("load schedule table: %w", err)
	}

	st, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	bus := events.NewBus()
	metrics := telemetry.NewMetrics()
	metrics.Observe(bus)

	cat, err := catalog.New(table, st, bus, logger)
	if err != nil {
		return nil, fmt.Errorf("init catalog: %w", err)
	}

	meta, err := metadata.New(cfg.TMDBAPIKey, cfg.TMDBBaseURL, nil, st, logger)
	if err != nil {
		return nil, fmt.Errorf("init metadata: %w", err)
	}

	prober := mediaengine.NewProber(cfg.FFprobeBin, logger)
	detector := mediaengine.NewDetector(cfg.FFmpegBin, cfg.SmokeTestTimeout, logger)
	engine := playout.New(*cfg, table, cat, prober, detector, meta, bus, logger)
	projector := status.NewProjector(table, cat, meta, engine)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(telemetry.TracingMiddleware("filmnet-api"))
	router.Use(metrics.Middleware)
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(60 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Websockets and segment delivery outlive any sane request
			// timeout.
			if r.Header.Get("Upgrade") == "websocket" || strings.HasPrefix(r.URL.Path, "/stream/") {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	apiHandler := api.New(table, engine, detector, cat, meta, projector, logBuf, bus, logger)
	apiHandler.Routes(router)
	router.Handle("/metrics", metrics.Handler())
	router.Mount("/stream", http.StripPrefix("/stream", streamHandler(cfg.StreamDir)))

	srv := &Server{
		cfg:     cfg,
		logger:  logger,
		router:  router,
		store:   st,
		table:   table,
		bus:     bus,
		catalog: cat,
		engine:  engine,
		metrics: metrics,
		tracer:  tracer,
	}

	srv.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		// WriteTimeout stays 0 so segment delivery and websockets are not
		// cut off; the middleware timeout covers the rest.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	return srv, nil
}

// Engine exposes the playout engine for the CLI.
func (s *Server) Engine() *playout.Engine {
	return s.engine
}

// Start runs the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the engine, drains the HTTP server and closes the
// backing services.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down")

	if err := s.engine.Stop(); err != nil {
		s.logger.Warn().Err(err).Msg("engine stop failed")
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("http shutdown failed")
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("store close failed")
	}
	if err := s.tracer.Shutdown(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("tracer shutdown failed")
	}
	return nil
}
