/*
Copyright (C) 2026 Filmnet Labs

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package status projects the schedule, catalog and engine state into the
// JSON document the viewer frontend polls.
package status

import (
	"context"
	"fmt"
	"time"

	"github.com/filmnetlabs/filmnet/internal/catalog"
	"github.com/filmnetlabs/filmnet/internal/metadata"
	"github.com/filmnetlabs/filmnet/internal/playout"
	"github.com/filmnetlabs/filmnet/internal/schedule"
)

// MovieInfo is the display metadata for one movie. The field names are
// part of the frontend contract.
type MovieInfo struct {
	Title  string `json:"tmdb_title"`
	Plot   string `json:"plot"`
	Poster string `json:"poster"`
}

// ScheduleEntry is one row in a club's published schedule.
type ScheduleEntry struct {
	Time      string `json:"time"`
	Title     string `json:"title"`
	IsCurrent bool   `json:"is_current"`
}

// Projection is the full status document.
type Projection struct {
	ActiveClub   string                     `json:"active_club"`
	ActiveColor  string                     `json:"active_color"`
	IsGap        bool                       `json:"is_gap"`
	GapTime      string                     `json:"gap_time"`
	PlayingNow   MovieInfo                  `json:"playing_now"`
	NextMovie    MovieInfo                  `json:"next_movie"`
	AllSchedules map[string][]ScheduleEntry `json:"all_schedules"`
}

// EngineState supplies the live playout flags.
type EngineState interface {
	Snapshot() playout.Status
}

// Projector assembles projections. It only reads from its sources.
type Projector struct {
	table    *schedule.Table
	catalog  *catalog.Service
	metadata *metadata.Service
	engine   EngineState

	// now is an injection point for tests.
	now func() time.Time
}

// NewProjector creates a projector over the given sources.
func NewProjector(table *schedule.Table, cat *catalog.Service, meta *metadata.Service, engine EngineState) *Projector {
	return &Projector{
		table:    table,
		catalog:  cat,
		metadata: meta,
		engine:   engine,
		now:      time.Now,
	}
}

// Project builds the status document for the current instant.
func (p *Projector) Project(ctx context.Context) (Projection, error) {
	now := p.now()
	info, err := p.table.Resolve(now)
	if err != nil {
		return Projection{}, err
	}

	proj := Projection{
		ActiveClub:   info.Active.Club,
		IsGap:        p.engine.Snapshot().IsGap,
		GapTime:      formatGap(info.NextStart.Sub(now)),
		PlayingNow:   p.movieInfo(ctx, info.Active.Club, info.Active.Hour, "Ingen sändning"),
		NextMovie:    p.movieInfo(ctx, info.Next.Club, info.Next.Hour, "Slut för idag"),
		AllSchedules: make(map[string][]ScheduleEntry, len(p.table.Clubs())),
	}
	if club, ok := p.table.Club(info.Active.Club); ok {
		proj.ActiveColor = club.Color
	}

	for _, club := range p.table.Clubs() {
		entries := make([]ScheduleEntry, 0, len(club.Hours))
		for _, hour := range club.Hours {
			title := "TBA"
			if path, ok := p.catalog.Assigned(club.Name, hour); ok {
				title = p.metadata.Lookup(ctx, path).Title
			}
			entries = append(entries, ScheduleEntry{
				Time:      fmt.Sprintf("%02d:00", hour),
				Title:     title,
				IsCurrent: club.Name == info.Active.Club && hour == info.Active.Hour,
			})
		}
		proj.AllSchedules[club.Name] = entries
	}

	return proj, nil
}

// movieInfo resolves the movie assigned to a slot, or a placeholder when
// the slot has nothing to play.
func (p *Projector) movieInfo(ctx context.Context, club string, hour int, placeholder string) MovieInfo {
	path, ok := p.catalog.Assigned(club, hour)
	if !ok {
		return MovieInfo{Title: placeholder}
	}
	rec := p.metadata.Lookup(ctx, path)
	return MovieInfo{Title: rec.Title, Plot: rec.Plot, Poster: rec.Poster}
}

// formatGap renders a countdown as MM:SS. Gaps can exceed an hour, the
// minute field just keeps counting.
func formatGap(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
