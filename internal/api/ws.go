/*
Copyright (C) 2026 Filmnet Labs

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	ws "nhooyr.io/websocket"

	"github.com/filmnetlabs/filmnet/internal/events"
	"github.com/filmnetlabs/filmnet/internal/logbuffer"
)

const logStreamPollInterval = time.Second

// handleLogStream pushes new log entries over a websocket. The client gets
// the current tail on connect and increments from then on.
func (a *API) handleLogStream(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		a.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	ctx := r.Context()
	lastSent := time.Time{}

	send := func(entries []logbuffer.Entry) error {
		for _, entry := range entries {
			if !entry.Timestamp.After(lastSent) {
				continue
			}
			data, err := json.Marshal(entry)
			if err != nil {
				continue
			}
			if err := conn.Write(ctx, ws.MessageText, data); err != nil {
				return err
			}
			lastSent = entry.Timestamp
		}
		return nil
	}

	if err := send(a.logBuffer.All()); err != nil {
		return
	}

	ticker := time.NewTicker(logStreamPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "")
			return
		case <-ticker.C:
			if err := send(a.logBuffer.All()); err != nil {
				return
			}
		}
	}
}

type eventMessage struct {
	Event     events.EventType `json:"event"`
	Timestamp time.Time        `json:"timestamp"`
	Payload   events.Payload   `json:"payload,omitempty"`
}

// handleEventStream forwards engine and catalog events over a websocket.
func (a *API) handleEventStream(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		a.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	ctx := r.Context()

	allEvents := []events.EventType{
		events.EventEngineStarted,
		events.EventEngineStopped,
		events.EventEncoderSelected,
		events.EventNowPlaying,
		events.EventGapFilling,
		events.EventStandby,
		events.EventSlotBoundary,
		events.EventCatalogChanged,
		events.EventShuffled,
	}

	merged := make(chan eventMessage, 64)
	forward := func(eventType events.EventType, sub events.Subscriber) {
		for payload := range sub {
			select {
			case merged <- eventMessage{Event: eventType, Timestamp: time.Now(), Payload: payload}:
			default:
				// Slow client, drop rather than stall the bus drain.
			}
		}
	}

	subs := make(map[events.EventType]events.Subscriber, len(allEvents))
	for _, eventType := range allEvents {
		sub := a.bus.Subscribe(eventType)
		subs[eventType] = sub
		go forward(eventType, sub)
	}
	defer func() {
		for eventType, sub := range subs {
			a.bus.Unsubscribe(eventType, sub)
		}
	}()

	a.logger.Debug().Msg("event stream connected")

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "")
			return
		case msg := <-merged:
			if err := a.writeEvent(ctx, conn, msg); err != nil {
				return
			}
		}
	}
}

func (a *API) writeEvent(ctx context.Context, conn *ws.Conn, msg eventMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.Write(ctx, ws.MessageText, data)
}
