/*
Copyright (C) 2026 Filmnet Labs

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package metadata resolves movie files to presentable titles, plots and
// poster art via the TMDB search API, with a write-through cache so each
// file is looked up at most once per run.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/filmnetlabs/filmnet/internal/store"
)

const (
	defaultBaseURL = "https://api.themoviedb.org/3"
	posterBaseURL  = "https://image.tmdb.org/t/p/w500"

	// TMDB is decoration, not playout. A slow API must never stall the
	// orchestrator, so requests get a short leash.
	requestTimeout = 2 * time.Second
)

var yearPattern = regexp.MustCompile(`\d{4}`)

// Record is the resolved metadata for one movie file.
type Record struct {
	Title  string
	Plot   string
	Poster string
}

// Persister stores resolved records across restarts.
type Persister interface {
	LoadMetadata() (map[string]store.MovieMetadata, error)
	SaveMetadata(record store.MovieMetadata) error
}

// Service caches TMDB lookups keyed by file path. Failed lookups are not
// cached so a flaky network gets another chance on the next request.
type Service struct {
	apiKey    string
	baseURL   string
	client    *http.Client
	persister Persister
	logger    zerolog.Logger

	mu    sync.RWMutex
	cache map[string]Record
}

// New creates the metadata service and warms the cache from the persister.
// A nil client gets the default short-timeout client.
func New(apiKey, baseURL string, client *http.Client, persister Persister, logger zerolog.Logger) (*Service, error) {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	svc := &Service{
		apiKey:    apiKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    client,
		persister: persister,
		logger:    logger.With().Str("component", "metadata").Logger(),
		cache:     make(map[string]Record),
	}

	if persister != nil {
		stored, err := persister.LoadMetadata()
		if err != nil {
			return nil, fmt.Errorf("load persisted metadata: %w", err)
		}
		for path, rec := range stored {
			svc.cache[path] = Record{Title: rec.Title, Plot: rec.Plot, Poster: rec.PosterURL}
		}
	}

	return svc, nil
}

// ParseFilename derives a search query and release year from a movie file
// name. The first 4-digit run is taken as the year and everything after it
// is discarded; dots, dashes and underscores become spaces.
func ParseFilename(path string) (query, year string) {
	fn := filepath.Base(path)
	year = yearPattern.FindString(fn)

	name := fn
	if year != "" {
		name = strings.SplitN(fn, year, 2)[0]
	} else if idx := strings.LastIndex(fn, "."); idx > 0 {
		name = fn[:idx]
	}

	replacer := strings.NewReplacer(".", " ", "-", " ", "_", " ")
	query = strings.TrimSpace(replacer.Replace(name))
	return query, year
}

// Lookup resolves metadata for path. On any failure it returns a fallback
// record built from the file name, which is deliberately left out of the
// cache.
func (s *Service) Lookup(ctx context.Context, path string) Record {
	if path == "" {
		return Record{}
	}

	s.mu.RLock()
	rec, ok := s.cache[path]
	s.mu.RUnlock()
	if ok {
		return rec
	}

	fallback := Record{Title: filepath.Base(path), Plot: "Info saknas.", Poster: ""}
	if s.apiKey == "" {
		return fallback
	}

	query, year := ParseFilename(path)
	for _, language := range []string{"sv-SE", "en-US"} {
		rec, found, err := s.search(ctx, query, year, language)
		if err != nil {
			s.logger.Debug().Err(err).Str("path", path).Str("language", language).Msg("tmdb lookup failed")
			return fallback
		}
		if !found {
			continue
		}

		s.mu.Lock()
		s.cache[path] = rec
		s.mu.Unlock()
		s.persist(path, rec)
		return rec
	}

	return fallback
}

// Prefetch resolves paths in the background so the orchestrator finds warm
// cache entries at slot boundaries.
func (s *Service) Prefetch(paths []string) {
	go func() {
		for _, p := range paths {
			s.Lookup(context.Background(), p)
		}
	}()
}

type searchResponse struct {
	Results []struct {
		Title      string `json:"title"`
		Overview   string `json:"overview"`
		PosterPath string `json:"poster_path"`
	} `json:"results"`
}

func (s *Service) search(ctx context.Context, query, year, language string) (Record, bool, error) {
	params := url.Values{}
	params.Set("api_key", s.apiKey)
	params.Set("query", query)
	params.Set("language", language)
	if year != "" {
		params.Set("primary_release_year", year)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/search/movie?"+params.Encode(), nil)
	if err != nil {
		return Record{}, false, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return Record{}, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Record{}, false, fmt.Errorf("tmdb search: status %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Record{}, false, err
	}
	if len(body.Results) == 0 {
		return Record{}, false, nil
	}

	top := body.Results[0]
	rec := Record{Title: top.Title, Plot: top.Overview}
	if top.PosterPath != "" {
		rec.Poster = posterBaseURL + top.PosterPath
	}
	return rec, true, nil
}

func (s *Service) persist(path string, rec Record) {
	if s.persister == nil {
		return
	}
	err := s.persister.SaveMetadata(store.MovieMetadata{
		Path:      path,
		Title:     rec.Title,
		Plot:      rec.Plot,
		PosterURL: rec.Poster,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("failed to persist metadata")
	}
}
