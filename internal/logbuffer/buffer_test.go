/*
Copyright (C) 2026 Filmnet Labs

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package logbuffer

import (
	"fmt"
	"testing"
)

func TestBufferWrapAround(t *testing.T) {
	b := New(3)
	for i := 0; i < 5; i++ {
		b.Add(Entry{Message: fmt.Sprintf("msg-%d", i)})
	}

	all := b.All()
	if len(all) != 3 {
		t.Fatalf("len(All()) = %d, want 3", len(all))
	}
	want := []string{"msg-2", "msg-3", "msg-4"}
	for i, entry := range all {
		if entry.Message != want[i] {
			t.Errorf("All()[%d].Message = %q, want %q", i, entry.Message, want[i])
		}
	}
}

func TestQueryFilters(t *testing.T) {
	b := New(10)
	b.Add(Entry{Level: "info", Component: "playout", Message: "slot started"})
	b.Add(Entry{Level: "warn", Component: "playout", Message: "feeder kill failed"})
	b.Add(Entry{Level: "info", Component: "catalog", Message: "shuffled playlists"})

	got := b.Query(QueryParams{Level: "info"})
	if len(got) != 2 {
		t.Errorf("Query(level=info) returned %d entries, want 2", len(got))
	}

	got = b.Query(QueryParams{Component: "playout", Search: "KILL"})
	if len(got) != 1 || got[0].Message != "feeder kill failed" {
		t.Errorf("Query(component+search) = %+v, want the kill entry", got)
	}

	got = b.Query(QueryParams{Descending: true, Limit: 1})
	if len(got) != 1 || got[0].Message != "shuffled playlists" {
		t.Errorf("Query(descending, limit 1) = %+v, want newest entry", got)
	}
}

func TestWriterParsesZerologJSON(t *testing.T) {
	b := New(10)
	w := NewWriter(b)

	line := `{"level":"info","component":"playout","club":"Royal Club","message":"now playing"}`
	if _, err := w.Write([]byte(line)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	all := b.All()
	if len(all) != 1 {
		t.Fatalf("len(All()) = %d, want 1", len(all))
	}
	entry := all[0]
	if entry.Level != "info" || entry.Component != "playout" || entry.Message != "now playing" {
		t.Errorf("parsed entry = %+v", entry)
	}
	if entry.Fields["club"] != "Royal Club" {
		t.Errorf("Fields[club] = %v, want Royal Club", entry.Fields["club"])
	}
}
