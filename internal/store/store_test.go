/*
Copyright (C) 2026 Filmnet Labs

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "filmnet.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCatalogRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if err := s.ReplaceCatalog("Royal Club", []string{"/movies/b.mp4", "/movies/a.mkv"}); err != nil {
		t.Fatalf("ReplaceCatalog() error = %v", err)
	}
	if err := s.ReplaceCatalog("Night Club", []string{"/movies/c.mp4"}); err != nil {
		t.Fatalf("ReplaceCatalog() error = %v", err)
	}

	catalogs, err := s.LoadCatalogs()
	if err != nil {
		t.Fatalf("LoadCatalogs() error = %v", err)
	}
	royal := catalogs["Royal Club"]
	if len(royal) != 2 || royal[0] != "/movies/b.mp4" || royal[1] != "/movies/a.mkv" {
		t.Errorf("Royal Club catalog = %v, want stored order preserved", royal)
	}
	if len(catalogs["Night Club"]) != 1 {
		t.Errorf("Night Club catalog = %v", catalogs["Night Club"])
	}
}

func TestReplaceCatalogOverwrites(t *testing.T) {
	s := openTestStore(t)

	if err := s.ReplaceCatalog("Morning Club", []string{"/a", "/b", "/c"}); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceCatalog("Morning Club", []string{"/c"}); err != nil {
		t.Fatal(err)
	}

	catalogs, err := s.LoadCatalogs()
	if err != nil {
		t.Fatal(err)
	}
	if got := catalogs["Morning Club"]; len(got) != 1 || got[0] != "/c" {
		t.Errorf("catalog after overwrite = %v, want [/c]", got)
	}
}

func TestMetadataUpsert(t *testing.T) {
	s := openTestStore(t)

	record := MovieMetadata{Path: "/movies/heat.1995.mkv", Title: "Heat", Plot: "A heist."}
	if err := s.SaveMetadata(record); err != nil {
		t.Fatalf("SaveMetadata() error = %v", err)
	}

	record.Plot = "Obsessive cop, meticulous thief."
	record.PosterURL = "https://image.tmdb.org/t/p/w500/heat.jpg"
	if err := s.SaveMetadata(record); err != nil {
		t.Fatalf("SaveMetadata() upsert error = %v", err)
	}

	meta, err := s.LoadMetadata()
	if err != nil {
		t.Fatalf("LoadMetadata() error = %v", err)
	}
	got, ok := meta["/movies/heat.1995.mkv"]
	if !ok {
		t.Fatal("metadata record missing")
	}
	if got.Plot != record.Plot || got.PosterURL != record.PosterURL {
		t.Errorf("metadata after upsert = %+v", got)
	}
}
