/*
Copyright (C) 2026 Filmnet Labs

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package schedule defines the static club schedule table and resolves which
// slot is on air at any instant of the broadcast day.
package schedule

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Club is an independently scheduled channel with fixed on-air hours and a
// display color. Immutable after configuration load.
type Club struct {
	Name  string `yaml:"name" json:"name"`
	Hours []int  `yaml:"hours" json:"hours"`
	Color string `yaml:"color" json:"color"`
}

// Table holds the full club schedule.
type Table struct {
	clubs  []Club
	byName map[string]Club
}

type tableFile struct {
	Clubs []Club `yaml:"clubs"`
}

// Default returns the built-in three-club table.
func Default() *Table {
	table, _ := NewTable([]Club{
		{Name: "Morning Club", Hours: []int{7, 9, 11, 13}, Color: "#fbc02d"},
		{Name: "Royal Club", Hours: []int{15, 17, 19, 21}, Color: "#ffffff"},
		{Name: "Night Club", Hours: []int{23, 1, 3, 5}, Color: "#b39ddb"},
	})
	return table
}

// LoadFile reads a YAML schedule table. An empty path yields the default table.
func LoadFile(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule file: %w", err)
	}

	var parsed tableFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse schedule file: %w", err)
	}

	return NewTable(parsed.Clubs)
}

// NewTable validates the club list and builds a table.
func NewTable(clubs []Club) (*Table, error) {
	if len(clubs) == 0 {
		return nil, fmt.Errorf("schedule table has no clubs")
	}

	byName := make(map[string]Club, len(clubs))
	for _, club := range clubs {
		if club.Name == "" {
			return nil, fmt.Errorf("club with empty name")
		}
		if _, dup := byName[club.Name]; dup {
			return nil, fmt.Errorf("duplicate club %q", club.Name)
		}
		if len(club.Hours) == 0 {
			return nil, fmt.Errorf("club %q has no on-air hours", club.Name)
		}
		for _, hour := range club.Hours {
			if hour < 0 || hour > 23 {
				return nil, fmt.Errorf("club %q has out-of-range hour %d", club.Name, hour)
			}
		}
		byName[club.Name] = club
	}

	ordered := make([]Club, len(clubs))
	copy(ordered, clubs)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Name < ordered[j].Name })

	return &Table{clubs: ordered, byName: byName}, nil
}

// Clubs returns the clubs sorted by name.
func (t *Table) Clubs() []Club {
	out := make([]Club, len(t.clubs))
	copy(out, t.clubs)
	return out
}

// Club looks up a club by name.
func (t *Table) Club(name string) (Club, bool) {
	club, ok := t.byName[name]
	return club, ok
}

// HourIndex returns the position of hour within the club's configured hours,
// or -1 when the club does not air at that hour.
func (t *Table) HourIndex(club string, hour int) int {
	c, ok := t.byName[club]
	if !ok {
		return -1
	}
	for i, h := range c.Hours {
		if h == hour {
			return i
		}
	}
	return -1
}
