/*
Copyright (C) 2026 Filmnet Labs

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package catalog owns the per-club movie playlists, the date-seeded daily
// shuffle, and the slot-to-movie assignment derived from it.
package catalog

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/filmnetlabs/filmnet/internal/events"
	"github.com/filmnetlabs/filmnet/internal/schedule"
)

// Persister stores catalogs across restarts.
type Persister interface {
	LoadCatalogs() (map[string][]string, error)
	ReplaceCatalog(club string, paths []string) error
}

// Service guards the playlists and shuffle state shared between the
// orchestrator loop and the query layer.
type Service struct {
	table     *schedule.Table
	persister Persister
	bus       *events.Bus
	logger    zerolog.Logger

	mu              sync.RWMutex
	playlists       map[string][]string
	shuffled        map[string][]string
	lastShuffleDate string
	dirty           bool
}

// New creates the catalog service and loads persisted playlists.
func New(table *schedule.Table, persister Persister, bus *events.Bus, logger zerolog.Logger) (*Service, error) {
	svc := &Service{
		table:     table,
		persister: persister,
		bus:       bus,
		logger:    logger.With().Str("component", "catalog").Logger(),
		playlists: make(map[string][]string),
		shuffled:  make(map[string][]string),
		dirty:     true,
	}
	for _, club := range table.Clubs() {
		svc.playlists[club.Name] = nil
	}

	if persister != nil {
		stored, err := persister.LoadCatalogs()
		if err != nil {
			return nil, fmt.Errorf("load persisted catalogs: %w", err)
		}
		for club, paths := range stored {
			if _, ok := svc.playlists[club]; !ok {
				svc.logger.Warn().Str("club", club).Msg("stored catalog for unknown club, skipping")
				continue
			}
			svc.playlists[club] = append([]string(nil), paths...)
		}
	}

	return svc, nil
}

// AddMovies appends paths to a club's catalog and invalidates the shuffle.
func (s *Service) AddMovies(club string, paths []string) error {
	if _, ok := s.table.Club(club); !ok {
		return fmt.Errorf("unknown club %q", club)
	}
	if len(paths) == 0 {
		return nil
	}

	s.mu.Lock()
	s.playlists[club] = append(s.playlists[club], paths...)
	s.shuffled[club] = nil
	s.dirty = true
	snapshot := append([]string(nil), s.playlists[club]...)
	s.mu.Unlock()

	s.persist(club, snapshot)
	if s.bus != nil {
		s.bus.Publish(events.EventCatalogChanged, events.Payload{"club": club, "size": len(snapshot)})
	}
	s.logger.Info().Str("club", club).Int("added", len(paths)).Msg("movies added to catalog")
	return nil
}

// RemoveMovie removes the first occurrence of path from a club's catalog.
func (s *Service) RemoveMovie(club, path string) error {
	if _, ok := s.table.Club(club); !ok {
		return fmt.Errorf("unknown club %q", club)
	}

	s.mu.Lock()
	playlist := s.playlists[club]
	idx := -1
	for i, p := range playlist {
		if p == path {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%q not in catalog of %q", path, club)
	}
	s.playlists[club] = append(playlist[:idx], playlist[idx+1:]...)
	s.shuffled[club] = nil
	s.dirty = true
	snapshot := append([]string(nil), s.playlists[club]...)
	s.mu.Unlock()

	s.persist(club, snapshot)
	if s.bus != nil {
		s.bus.Publish(events.EventCatalogChanged, events.Payload{"club": club, "size": len(snapshot)})
	}
	s.logger.Info().Str("club", club).Str("path", path).Msg("movie removed, schedule reset")
	return nil
}

// Playlists returns a copy of every club's catalog in user order.
func (s *Service) Playlists() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]string, len(s.playlists))
	for club, paths := range s.playlists {
		out[club] = append([]string(nil), paths...)
	}
	return out
}

// EnsureShuffle recomputes the daily permutations when the date changed, a
// mutation invalidated them, or none exist yet. Returns true when a new
// shuffle was computed.
func (s *Service) EnsureShuffle(date string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if date == s.lastShuffleDate && !s.dirty {
		return false
	}

	rng := rand.New(rand.NewSource(SeedFromDate(date)))

	clubs := make([]string, 0, len(s.playlists))
	for club := range s.playlists {
		clubs = append(clubs, club)
	}
	// Clubs are shuffled in name order so a shared generator stays
	// reproducible across runs and machines.
	sort.Strings(clubs)

	for _, club := range clubs {
		base := append([]string(nil), s.playlists[club]...)
		sort.Strings(base)
		rng.Shuffle(len(base), func(i, j int) {
			base[i], base[j] = base[j], base[i]
		})
		s.shuffled[club] = base
	}
	s.lastShuffleDate = date
	s.dirty = false

	if s.bus != nil {
		s.bus.Publish(events.EventShuffled, events.Payload{"date": date})
	}
	s.logger.Info().Str("date", date).Msg("daily playlists shuffled")
	return true
}

// SeedFromDate derives the shuffle seed from a YYYY-MM-DD date string by
// dropping the separators: 2024-05-01 becomes 20240501.
func SeedFromDate(date string) int64 {
	digits := strings.NewReplacer("-", "", "/", "", ".", "").Replace(date)
	seed, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return seed
}

// Assigned maps a (club, hour) slot to its catalog entry for the current
// shuffle. Returns false when the club's catalog is empty or the club does
// not air at that hour.
func (s *Service) Assigned(club string, hour int) (string, bool) {
	idx := s.table.HourIndex(club, hour)
	if idx < 0 {
		return "", false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	order := s.shuffled[club]
	if len(order) == 0 {
		return "", false
	}
	return order[idx%len(order)], true
}

// ShuffledOrder returns a copy of a club's current daily permutation.
func (s *Service) ShuffledOrder(club string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.shuffled[club]...)
}

func (s *Service) persist(club string, paths []string) {
	if s.persister == nil {
		return
	}
	if err := s.persister.ReplaceCatalog(club, paths); err != nil {
		s.logger.Error().Err(err).Str("club", club).Msg("failed to persist catalog")
	}
}
