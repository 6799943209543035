/*
Copyright (C) 2026 Filmnet Labs

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/filmnetlabs/filmnet/internal/schedule"
)

type memPersister struct {
	catalogs map[string][]string
	replaces int
}

func (m *memPersister) LoadCatalogs() (map[string][]string, error) {
	return m.catalogs, nil
}

func (m *memPersister) ReplaceCatalog(club string, paths []string) error {
	if m.catalogs == nil {
		m.catalogs = make(map[string][]string)
	}
	m.catalogs[club] = append([]string(nil), paths...)
	m.replaces++
	return nil
}

func newTestService(t *testing.T, clubs []schedule.Club) (*Service, *memPersister) {
	t.Helper()
	table, err := schedule.NewTable(clubs)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	persister := &memPersister{}
	svc, err := New(table, persister, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return svc, persister
}

func TestSeedFromDate(t *testing.T) {
	tests := []struct {
		date string
		want int64
	}{
		{"2024-05-01", 20240501},
		{"2024-01-01", 20240101},
		{"1999-12-31", 19991231},
		{"garbage", 0},
	}
	for _, tt := range tests {
		if got := SeedFromDate(tt.date); got != tt.want {
			t.Errorf("SeedFromDate(%q) = %d, want %d", tt.date, got, tt.want)
		}
	}
}

func TestShuffleIsDeterministic(t *testing.T) {
	clubs := []schedule.Club{{Name: "A", Hours: []int{7, 19}, Color: "#fff"}}
	paths := []string{"/m/x.mp4", "/m/y.mp4", "/m/z.mp4", "/m/w.mp4"}

	svc1, _ := newTestService(t, clubs)
	if err := svc1.AddMovies("A", paths); err != nil {
		t.Fatal(err)
	}
	svc1.EnsureShuffle("2024-01-01")
	first := svc1.ShuffledOrder("A")

	// A fresh service with the same catalog in a different insertion order
	// must produce the identical permutation for the same date.
	svc2, _ := newTestService(t, clubs)
	if err := svc2.AddMovies("A", []string{"/m/w.mp4", "/m/z.mp4", "/m/y.mp4", "/m/x.mp4"}); err != nil {
		t.Fatal(err)
	}
	svc2.EnsureShuffle("2024-01-01")
	second := svc2.ShuffledOrder("A")

	if len(first) != len(second) {
		t.Fatalf("permutation lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("permutations differ at %d: %v vs %v", i, first, second)
		}
	}
}

func TestShuffleChangesWithDate(t *testing.T) {
	clubs := []schedule.Club{{Name: "A", Hours: []int{7}, Color: "#fff"}}
	svc, _ := newTestService(t, clubs)
	if err := svc.AddMovies("A", []string{"/1", "/2", "/3", "/4", "/5", "/6", "/7", "/8"}); err != nil {
		t.Fatal(err)
	}

	svc.EnsureShuffle("2024-01-01")
	if !svc.EnsureShuffle("2024-01-02") {
		t.Fatal("EnsureShuffle did not recompute on date change")
	}

	// The new day still holds a full permutation of the catalog.
	seen := make(map[string]bool)
	for _, p := range svc.ShuffledOrder("A") {
		seen[p] = true
	}
	if len(seen) != 8 {
		t.Errorf("day 2 permutation covers %d distinct entries, want 8", len(seen))
	}
}

func TestEnsureShuffleIsIdempotentWithinDay(t *testing.T) {
	clubs := []schedule.Club{{Name: "A", Hours: []int{7}, Color: "#fff"}}
	svc, _ := newTestService(t, clubs)
	if err := svc.AddMovies("A", []string{"/1", "/2"}); err != nil {
		t.Fatal(err)
	}

	if !svc.EnsureShuffle("2024-03-01") {
		t.Fatal("first EnsureShuffle did not compute")
	}
	if svc.EnsureShuffle("2024-03-01") {
		t.Error("second EnsureShuffle recomputed within the same day")
	}
}

func TestAssignmentStableAndWrapping(t *testing.T) {
	clubs := []schedule.Club{{Name: "A", Hours: []int{7, 9, 11, 13}, Color: "#fff"}}
	svc, _ := newTestService(t, clubs)
	if err := svc.AddMovies("A", []string{"/m/x.mp4", "/m/y.mp4"}); err != nil {
		t.Fatal(err)
	}
	svc.EnsureShuffle("2024-01-01")
	order := svc.ShuffledOrder("A")

	// Hour index modulo catalog size: 4 slots over 2 entries wraps without
	// skipping anything.
	wantByHour := map[int]string{7: order[0], 9: order[1], 11: order[0], 13: order[1]}
	for hour, want := range wantByHour {
		for i := 0; i < 3; i++ {
			got, ok := svc.Assigned("A", hour)
			if !ok {
				t.Fatalf("Assigned(A, %d) returned none", hour)
			}
			if got != want {
				t.Errorf("Assigned(A, %d) = %q, want %q", hour, got, want)
			}
		}
	}

	if _, ok := svc.Assigned("A", 8); ok {
		t.Error("Assigned(A, 8) succeeded for an hour the club does not air")
	}
}

func TestEndToEndDailyAssignment(t *testing.T) {
	clubs := []schedule.Club{{Name: "A", Hours: []int{7, 19}, Color: "#fff"}}
	svc, _ := newTestService(t, clubs)
	if err := svc.AddMovies("A", []string{"/m/x.mp4", "/m/y.mp4"}); err != nil {
		t.Fatal(err)
	}
	svc.EnsureShuffle("2024-01-01")

	perm := svc.ShuffledOrder("A")
	if len(perm) != 2 {
		t.Fatalf("permutation length = %d, want 2", len(perm))
	}
	if got, _ := svc.Assigned("A", 7); got != perm[0] {
		t.Errorf("Assigned(A, 7) = %q, want P[0] = %q", got, perm[0])
	}
	if got, _ := svc.Assigned("A", 19); got != perm[1] {
		t.Errorf("Assigned(A, 19) = %q, want P[1] = %q", got, perm[1])
	}
}

func TestEmptyCatalogAssignsNothing(t *testing.T) {
	clubs := []schedule.Club{{Name: "Empty", Hours: []int{7, 9, 11}, Color: "#fff"}}
	svc, _ := newTestService(t, clubs)
	svc.EnsureShuffle("2024-01-01")

	for _, hour := range []int{7, 9, 11} {
		if _, ok := svc.Assigned("Empty", hour); ok {
			t.Errorf("Assigned(Empty, %d) returned a movie for an empty catalog", hour)
		}
	}
}

func TestAddClearsStalePermutation(t *testing.T) {
	clubs := []schedule.Club{{Name: "A", Hours: []int{7}, Color: "#fff"}}
	svc, _ := newTestService(t, clubs)
	if err := svc.AddMovies("A", []string{"/1", "/2"}); err != nil {
		t.Fatal(err)
	}
	svc.EnsureShuffle("2024-01-01")

	if err := svc.AddMovies("A", []string{"/3"}); err != nil {
		t.Fatal(err)
	}

	// Between the add and the next shuffle no reader may see the old order.
	if order := svc.ShuffledOrder("A"); len(order) != 0 {
		t.Errorf("ShuffledOrder() after add = %v, want empty", order)
	}
	if _, ok := svc.Assigned("A", 7); ok {
		t.Error("Assigned() served a movie from an invalidated permutation")
	}

	if !svc.EnsureShuffle("2024-01-01") {
		t.Error("EnsureShuffle did not recompute after the add")
	}
	if order := svc.ShuffledOrder("A"); len(order) != 3 {
		t.Errorf("recomputed permutation has %d entries, want 3", len(order))
	}
}

func TestEmptyCatalogShuffleIsStable(t *testing.T) {
	clubs := []schedule.Club{{Name: "Empty", Hours: []int{7}, Color: "#fff"}}
	svc, _ := newTestService(t, clubs)

	if !svc.EnsureShuffle("2024-01-01") {
		t.Fatal("first EnsureShuffle did not compute")
	}
	for i := 0; i < 3; i++ {
		if svc.EnsureShuffle("2024-01-01") {
			t.Fatal("EnsureShuffle recomputed for an unchanged empty catalog")
		}
	}
	if !svc.EnsureShuffle("2024-01-02") {
		t.Error("EnsureShuffle did not recompute on a date change")
	}
}

func TestMutationInvalidatesShuffleAndPersists(t *testing.T) {
	clubs := []schedule.Club{{Name: "A", Hours: []int{7}, Color: "#fff"}}
	svc, persister := newTestService(t, clubs)

	if err := svc.AddMovies("A", []string{"/1", "/2"}); err != nil {
		t.Fatal(err)
	}
	svc.EnsureShuffle("2024-01-01")

	if err := svc.RemoveMovie("A", "/1"); err != nil {
		t.Fatalf("RemoveMovie() error = %v", err)
	}
	if !svc.EnsureShuffle("2024-01-01") {
		t.Error("EnsureShuffle did not recompute after a catalog mutation")
	}
	if got := persister.catalogs["A"]; len(got) != 1 || got[0] != "/2" {
		t.Errorf("persisted catalog = %v, want [/2]", got)
	}
	if persister.replaces != 2 {
		t.Errorf("persist calls = %d, want 2 (add + remove)", persister.replaces)
	}

	if err := svc.RemoveMovie("A", "/missing"); err == nil {
		t.Error("RemoveMovie() of unknown path did not error")
	}
	if err := svc.AddMovies("Nope", []string{"/x"}); err == nil {
		t.Error("AddMovies() for unknown club did not error")
	}
}

func TestNewLoadsPersistedCatalogs(t *testing.T) {
	table, err := schedule.NewTable([]schedule.Club{{Name: "A", Hours: []int{7}, Color: "#fff"}})
	if err != nil {
		t.Fatal(err)
	}
	persister := &memPersister{catalogs: map[string][]string{
		"A":       {"/kept.mp4"},
		"Unknown": {"/dropped.mp4"},
	}}

	svc, err := New(table, persister, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	playlists := svc.Playlists()
	if got := playlists["A"]; len(got) != 1 || got[0] != "/kept.mp4" {
		t.Errorf("playlists[A] = %v, want [/kept.mp4]", got)
	}
	if _, ok := playlists["Unknown"]; ok {
		t.Error("catalog for unknown club was not dropped")
	}
}
