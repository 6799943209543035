/*
Copyright (C) 2026 Filmnet Labs

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry carries the observability plumbing: Prometheus
// metrics fed off the event bus and OpenTelemetry trace export.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/filmnetlabs/filmnet/internal/events"
)

// Metrics holds the Prometheus instruments for the playout engine and the
// HTTP surface.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	engineRunning    prometheus.Gauge
	feedersTotal     prometheus.Counter
	gapFillsTotal    prometheus.Counter
	standbyTotal     prometheus.Counter
	boundaryKills    prometheus.Counter
	shufflesTotal    prometheus.Counter
	catalogMutations prometheus.Counter
}

// NewMetrics creates and registers the instruments on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filmnet_http_requests_total",
			Help: "HTTP requests by method and status class",
		}, []string{"method", "class"}),
		engineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "filmnet_engine_running",
			Help: "1 while the playout engine is on air",
		}),
		feedersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filmnet_feeders_launched_total",
			Help: "Movie feeder processes launched",
		}),
		gapFillsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filmnet_gap_fills_total",
			Help: "Trailer or bumper fillers launched in gaps",
		}),
		standbyTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filmnet_standby_total",
			Help: "Standby clips launched",
		}),
		boundaryKills: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filmnet_boundary_kills_total",
			Help: "Fillers killed at a slot boundary",
		}),
		shufflesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filmnet_shuffles_total",
			Help: "Daily catalog shuffles computed",
		}),
		catalogMutations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filmnet_catalog_mutations_total",
			Help: "Catalog add and remove operations",
		}),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.engineRunning,
		m.feedersTotal,
		m.gapFillsTotal,
		m.standbyTotal,
		m.boundaryKills,
		m.shufflesTotal,
		m.catalogMutations,
	)
	return m
}

// Observe subscribes the instruments to the event bus. The subscription
// lives for the life of the process.
func (m *Metrics) Observe(bus *events.Bus) {
	type pair struct {
		event events.EventType
		apply func()
	}
	pairs := []pair{
		{events.EventEngineStarted, func() { m.engineRunning.Set(1) }},
		{events.EventEngineStopped, func() { m.engineRunning.Set(0) }},
		{events.EventNowPlaying, m.feedersTotal.Inc},
		{events.EventGapFilling, m.gapFillsTotal.Inc},
		{events.EventStandby, m.standbyTotal.Inc},
		{events.EventSlotBoundary, m.boundaryKills.Inc},
		{events.EventShuffled, m.shufflesTotal.Inc},
		{events.EventCatalogChanged, m.catalogMutations.Inc},
	}
	for _, p := range pairs {
		sub := bus.Subscribe(p.event)
		apply := p.apply
		go func() {
			for range sub {
				apply()
			}
		}()
	}
}

// CountRequest records one HTTP request outcome.
func (m *Metrics) CountRequest(method string, statusCode int) {
	class := "2xx"
	switch {
	case statusCode >= 500:
		class = "5xx"
	case statusCode >= 400:
		class = "4xx"
	case statusCode >= 300:
		class = "3xx"
	}
	m.requestsTotal.WithLabelValues(method, class).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
