/*
Copyright (C) 2026 Filmnet Labs

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package status

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/filmnetlabs/filmnet/internal/catalog"
	"github.com/filmnetlabs/filmnet/internal/metadata"
	"github.com/filmnetlabs/filmnet/internal/playout"
	"github.com/filmnetlabs/filmnet/internal/schedule"
)

type staticEngine struct {
	status playout.Status
}

func (s staticEngine) Snapshot() playout.Status { return s.status }

func newTestProjector(t *testing.T, movies map[string][]string, engine EngineState) (*Projector, *catalog.Service) {
	t.Helper()
	table, err := schedule.NewTable([]schedule.Club{
		{Name: "Day Club", Hours: []int{8, 12}, Color: "#ff0"},
		{Name: "Late Club", Hours: []int{20, 23}, Color: "#00f"},
	})
	if err != nil {
		t.Fatal(err)
	}

	cat, err := catalog.New(table, nil, nil, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	for club, paths := range movies {
		if err := cat.AddMovies(club, paths); err != nil {
			t.Fatal(err)
		}
	}
	cat.EnsureShuffle("2024-06-01")

	// No API key: titles come from file names, no network involved.
	meta, err := metadata.New("", "", nil, nil, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	return NewProjector(table, cat, meta, engine), cat
}

func TestProjectActiveSlotAndCountdown(t *testing.T) {
	p, cat := newTestProjector(t, map[string][]string{
		"Day Club":  {"/m/a.mp4", "/m/b.mp4"},
		"Late Club": {"/m/c.mp4"},
	}, staticEngine{status: playout.Status{IsGap: true}})

	// 08:30, half an hour into the Day Club 08:00 slot. Next slot 12:00.
	p.now = func() time.Time {
		return time.Date(2024, 6, 1, 8, 30, 0, 0, time.Local)
	}

	proj, err := p.Project(context.Background())
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}

	if proj.ActiveClub != "Day Club" || proj.ActiveColor != "#ff0" {
		t.Errorf("active = %q/%q, want Day Club/#ff0", proj.ActiveClub, proj.ActiveColor)
	}
	if !proj.IsGap {
		t.Error("gap flag from the engine not carried through")
	}
	if proj.GapTime != "210:00" {
		t.Errorf("gap countdown = %q, want 210:00 for 3.5 hours", proj.GapTime)
	}

	order := cat.ShuffledOrder("Day Club")
	if proj.PlayingNow.Title != fileBase(order[0]) {
		t.Errorf("playing_now = %q, want %q", proj.PlayingNow.Title, fileBase(order[0]))
	}

	entries := proj.AllSchedules["Day Club"]
	if len(entries) != 2 {
		t.Fatalf("Day Club schedule has %d entries, want 2", len(entries))
	}
	if entries[0].Time != "08:00" || !entries[0].IsCurrent {
		t.Errorf("entries[0] = %+v, want current 08:00", entries[0])
	}
	if entries[1].Time != "12:00" || entries[1].IsCurrent {
		t.Errorf("entries[1] = %+v, want non-current 12:00", entries[1])
	}
	for _, entry := range proj.AllSchedules["Late Club"] {
		if entry.IsCurrent {
			t.Errorf("Late Club entry %+v marked current", entry)
		}
	}
}

func TestProjectPlaceholdersForEmptyCatalogs(t *testing.T) {
	p, _ := newTestProjector(t, nil, staticEngine{})
	p.now = func() time.Time {
		return time.Date(2024, 6, 1, 8, 30, 0, 0, time.Local)
	}

	proj, err := p.Project(context.Background())
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}

	if proj.PlayingNow.Title != "Ingen sändning" {
		t.Errorf("playing_now placeholder = %q", proj.PlayingNow.Title)
	}
	if proj.NextMovie.Title != "Slut för idag" {
		t.Errorf("next_movie placeholder = %q", proj.NextMovie.Title)
	}
	for club, entries := range proj.AllSchedules {
		for _, entry := range entries {
			if entry.Title != "TBA" {
				t.Errorf("%s %s title = %q, want TBA", club, entry.Time, entry.Title)
			}
		}
	}
}

func TestFormatGap(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{90 * time.Second, "01:30"},
		{59 * time.Second, "00:59"},
		{61 * time.Minute, "61:00"},
		{-5 * time.Second, "00:00"},
	}
	for _, tt := range tests {
		if got := formatGap(tt.d); got != tt.want {
			t.Errorf("formatGap(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func fileBase(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
