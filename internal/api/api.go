/*
Copyright (C) 2026 Filmnet Labs

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the REST and websocket surface for the channel:
// viewer status, engine control, catalog management and log access.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/filmnetlabs/filmnet/internal/catalog"
	"github.com/filmnetlabs/filmnet/internal/events"
	"github.com/filmnetlabs/filmnet/internal/logbuffer"
	"github.com/filmnetlabs/filmnet/internal/mediaengine"
	"github.com/filmnetlabs/filmnet/internal/metadata"
	"github.com/filmnetlabs/filmnet/internal/playout"
	"github.com/filmnetlabs/filmnet/internal/schedule"
	"github.com/filmnetlabs/filmnet/internal/status"
	"github.com/filmnetlabs/filmnet/internal/version"
)

// API holds the handler dependencies.
type API struct {
	table     *schedule.Table
	engine    *playout.Engine
	detector  *mediaengine.Detector
	catalog   *catalog.Service
	metadata  *metadata.Service
	projector *status.Projector
	logBuffer *logbuffer.Buffer
	bus       *events.Bus
	logger    zerolog.Logger
}

// New creates the API.
func New(
	table *schedule.Table,
	engine *playout.Engine,
	detector *mediaengine.Detector,
	cat *catalog.Service,
	meta *metadata.Service,
	projector *status.Projector,
	logBuffer *logbuffer.Buffer,
	bus *events.Bus,
	logger zerolog.Logger,
) *API {
	return &API{
		table:     table,
		engine:    engine,
		detector:  detector,
		catalog:   cat,
		metadata:  meta,
		projector: projector,
		logBuffer: logBuffer,
		bus:       bus,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// Routes mounts all API endpoints on the router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", a.handleHealth)
		r.Get("/status", a.handleStatus)

		r.Route("/engine", func(r chi.Router) {
			r.Get("/", a.handleEngineGet)
			r.Post("/start", a.handleEngineStart)
			r.Post("/stop", a.handleEngineStop)
			r.Post("/encoder/detect", a.handleEncoderDetect)
		})

		r.Route("/clubs", func(r chi.Router) {
			r.Get("/", a.handleClubsList)
			r.Route("/{club}", func(r chi.Router) {
				r.Post("/movies", a.handleMoviesAdd)
				r.Delete("/movies", a.handleMovieRemove)
			})
		})

		r.Get("/logs", a.handleLogs)
		r.Get("/logs/stream", a.handleLogStream)
		r.Get("/events", a.handleEventStream)
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// handleStatus serves the viewer status document. Failures degrade to an
// empty object so frontend polling never breaks.
func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	proj, err := a.projector.Project(r.Context())
	if err != nil {
		a.logger.Warn().Err(err).Msg("status projection failed")
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, proj)
}

func (a *API) handleEngineGet(w http.ResponseWriter, r *http.Request) {
	st := a.engine.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"running":       st.Running,
		"encoder":       st.EncoderName,
		"encoder_label": st.EncoderLabel,
		"active_club":   st.ActiveClub,
		"active_hour":   st.ActiveHour,
		"is_gap":        st.IsGap,
	})
}

func (a *API) handleEngineStart(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.Start(r.Context()); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"running": true})
}

func (a *API) handleEngineStop(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.Stop(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"running": false})
}

func (a *API) handleEncoderDetect(w http.ResponseWriter, r *http.Request) {
	enc := a.detector.Detect(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{
		"encoder": enc.Name,
		"label":   enc.Label,
		"preset":  enc.Preset,
	})
}

type clubView struct {
	Name     string   `json:"name"`
	Hours    []int    `json:"hours"`
	Color    string   `json:"color"`
	Movies   []string `json:"movies"`
	Shuffled []string `json:"shuffled,omitempty"`
}

func (a *API) handleClubsList(w http.ResponseWriter, r *http.Request) {
	playlists := a.catalog.Playlists()
	clubs := a.table.Clubs()

	out := make([]clubView, 0, len(clubs))
	for _, club := range clubs {
		out = append(out, clubView{
			Name:     club.Name,
			Hours:    club.Hours,
			Color:    club.Color,
			Movies:   playlists[club.Name],
			Shuffled: a.catalog.ShuffledOrder(club.Name),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"clubs": out})
}

type moviesRequest struct {
	Paths []string `json:"paths"`
}

func (a *API) handleMoviesAdd(w http.ResponseWriter, r *http.Request) {
	club := chi.URLParam(r, "club")

	var req moviesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Paths) == 0 {
		writeError(w, http.StatusBadRequest, "paths required")
		return
	}

	if err := a.catalog.AddMovies(club, req.Paths); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	// Warm the display metadata so the status endpoint has titles ready.
	a.metadata.Prefetch(req.Paths)

	writeJSON(w, http.StatusOK, map[string]int{"added": len(req.Paths)})
}

func (a *API) handleMovieRemove(w http.ResponseWriter, r *http.Request) {
	club := chi.URLParam(r, "club")
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path query parameter required")
		return
	}

	if err := a.catalog.RemoveMovie(club, path); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"removed": path})
}

func (a *API) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	entries := a.logBuffer.Query(logbuffer.QueryParams{
		Level:      r.URL.Query().Get("level"),
		Component:  r.URL.Query().Get("component"),
		Search:     r.URL.Query().Get("search"),
		Limit:      limit,
		Descending: r.URL.Query().Get("order") != "asc",
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
