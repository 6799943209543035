/*
Copyright (C) 2026 Filmnet Labs

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"fmt"
	"sort"
	"time"
)

// Slot is one (club, hour) on-air instance within the broadcast day.
type Slot struct {
	Club string
	Hour int
}

// ActiveSlotInfo is the derived view of the schedule at a given instant.
type ActiveSlotInfo struct {
	Active    Slot
	Elapsed   time.Duration
	Next      Slot
	NextStart time.Time
}

// The broadcast day begins at 06:00: hours 0-5 belong to the end of the
// previous calendar day's cycle, so they sort after hour 23.
func sortValue(hour int) int {
	if hour < 6 {
		return hour + 24
	}
	return hour
}

// Resolve computes the active slot at now, the elapsed time into it, and the
// next slot with its concrete start timestamp. The slot start times partition
// the 24-hour cycle, so exactly one slot is active at any instant.
func (t *Table) Resolve(now time.Time) (ActiveSlotInfo, error) {
	slots := make([]Slot, 0, len(t.clubs)*4)
	for _, club := range t.clubs {
		for _, hour := range club.Hours {
			slots = append(slots, Slot{Club: club.Name, Hour: hour})
		}
	}
	if len(slots) == 0 {
		return ActiveSlotInfo{}, fmt.Errorf("schedule table has no slots")
	}

	// Clubs sharing an hour tie-break lexicographically by club name so the
	// result is stable across runs.
	sort.Slice(slots, func(i, j int) bool {
		si, sj := sortValue(slots[i].Hour), sortValue(slots[j].Hour)
		if si != sj {
			return si < sj
		}
		return slots[i].Club < slots[j].Club
	})

	// The active slot is the latest one whose start is not after now within
	// the broadcast day. Before the first slot of the day (e.g. 06:10 when
	// the earliest hour is 7) the previous cycle's last slot is still on air.
	nowValue := sortValue(now.Hour())
	activeIdx := len(slots) - 1
	for i := range slots {
		if sortValue(slots[i].Hour) <= nowValue {
			activeIdx = i
		}
	}

	active := slots[activeIdx]
	next := slots[(activeIdx+1)%len(slots)]

	activeStart := time.Date(now.Year(), now.Month(), now.Day(), active.Hour, 0, 0, 0, now.Location())
	if activeStart.After(now) {
		activeStart = activeStart.AddDate(0, 0, -1)
	}

	nextStart := time.Date(now.Year(), now.Month(), now.Day(), next.Hour, 0, 0, 0, now.Location())
	if !nextStart.After(now) {
		nextStart = nextStart.AddDate(0, 0, 1)
	}

	return ActiveSlotInfo{
		Active:    active,
		Elapsed:   now.Sub(activeStart),
		Next:      next,
		NextStart: nextStart,
	}, nil
}
