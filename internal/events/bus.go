/*
Copyright (C) 2026 Filmnet Labs

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	EventEngineStarted   EventType = "engine.started"
	EventEngineStopped   EventType = "engine.stopped"
	EventEncoderSelected EventType = "engine.encoder_selected"
	EventNowPlaying      EventType = "playout.now_playing"
	EventGapFilling      EventType = "playout.gap_filling"
	EventStandby         EventType = "playout.standby"
	EventSlotBoundary    EventType = "playout.slot_boundary"
	EventCatalogChanged  EventType = "catalog.changed"
	EventShuffled        EventType = "catalog.shuffled"
)

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 8)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers. Slow subscribers drop events rather
// than block the publisher; the orchestrator loop must never wait here.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	// Sending under the read lock keeps Publish ordered against
	// Unsubscribe, which closes channels under the write lock.
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[eventType] {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	b.subs[eventType] = subs
	close(sub)
}
