/*
Copyright (C) 2026 Filmnet Labs

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playout runs the channel: one persistent HLS broadcaster fed by
// a succession of movie and filler processes, switched on the slot grid.
package playout

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/filmnetlabs/filmnet/internal/catalog"
	"github.com/filmnetlabs/filmnet/internal/config"
	"github.com/filmnetlabs/filmnet/internal/events"
	"github.com/filmnetlabs/filmnet/internal/mediaengine"
	"github.com/filmnetlabs/filmnet/internal/metadata"
	"github.com/filmnetlabs/filmnet/internal/schedule"
)

// feederRestartDelay gives the previous feeder's pipe a moment to drain
// before the next one starts writing into the broadcaster.
const feederRestartDelay = 500 * time.Millisecond

// bumperWindow is the gap remainder below which short bumpers are chosen
// over full trailers.
const bumperWindow = 60 * time.Second

// Status is a point-in-time snapshot of the engine for the query layer.
type Status struct {
	Running      bool
	EncoderName  string
	EncoderLabel string
	ActiveClub   string
	ActiveHour   int
	IsGap        bool
	CurrentMovie string
}

// Engine owns the broadcaster and feeder processes and the loop deciding
// what plays next.
type Engine struct {
	cfg      config.Config
	table    *schedule.Table
	catalog  *catalog.Service
	prober   *mediaengine.Prober
	detector *mediaengine.Detector
	metadata *metadata.Service
	bus      *events.Bus
	logger   zerolog.Logger

	// launch and now are injection points for tests.
	launch mediaengine.Launcher
	now    func() time.Time

	// startMu serializes Start so two callers cannot both pass the
	// running check and launch two broadcasters.
	startMu sync.Mutex

	mu          sync.RWMutex
	running     bool
	encoder     mediaengine.Encoder
	broadcaster mediaengine.Handle
	feeder      mediaengine.Handle
	status      Status
	runCtx      context.Context
	cancelRun   context.CancelFunc

	stopCh   chan struct{}
	loopDone chan struct{}
}

// New creates a stopped engine.
func New(
	cfg config.Config,
	table *schedule.Table,
	cat *catalog.Service,
	prober *mediaengine.Prober,
	detector *mediaengine.Detector,
	meta *metadata.Service,
	bus *events.Bus,
	logger zerolog.Logger,
) *Engine {
	return &Engine{
		cfg:      cfg,
		table:    table,
		catalog:  cat,
		prober:   prober,
		detector: detector,
		metadata: meta,
		bus:      bus,
		logger:   logger.With().Str("component", "playout").Logger(),
		launch:   mediaengine.Launch,
		now:      time.Now,
	}
}

// Start brings the channel on air: cleans up leftover stream artifacts,
// detects the encoder, ensures the daily shuffle provides fresh assignments and
// launches the broadcaster before entering the slot loop.
func (e *Engine) Start(ctx context.Context) error {
	e.startMu.Lock()
	defer e.startMu.Unlock()

	if e.isRunning() {
		return fmt.Errorf("engine already running")
	}

	e.cleanupArtifacts()

	enc := e.detector.Detect(ctx)
	e.catalog.EnsureShuffle(e.now().Format("2006-01-02"))

	// The broadcaster must outlive the caller. A start request's context
	// ends with the request, so processes hang off an engine-owned one.
	runCtx, cancelRun := context.WithCancel(context.Background())

	broadcaster, err := e.launch(runCtx, mediaengine.ProcessConfig{
		ID:        "broadcaster",
		Bin:       e.cfg.FFmpegBin,
		Args:      mediaengine.BroadcasterArgs(e.cfg.PlaylistPath(), e.cfg.HLSSegmentSeconds, e.cfg.HLSWindowSize),
		PipeStdin: true,
	}, e.logger)
	if err != nil {
		cancelRun()
		return fmt.Errorf("start broadcaster: %w", err)
	}

	e.mu.Lock()
	e.running = true
	e.encoder = enc
	e.broadcaster = broadcaster
	e.status = Status{Running: true, EncoderName: enc.Name, EncoderLabel: enc.Label}
	e.stopCh = make(chan struct{})
	e.loopDone = make(chan struct{})
	e.runCtx = runCtx
	e.cancelRun = cancelRun
	e.mu.Unlock()

	e.publish(events.EventEncoderSelected, events.Payload{"encoder": enc.Name, "label": enc.Label})
	e.publish(events.EventEngineStarted, nil)
	e.logger.Info().Str("encoder", enc.Name).Msg("engine started")

	go e.run()
	return nil
}

// Stop takes the channel off air. The feeder is killed, the broadcaster
// gets a graceful stop, and leftover segments are removed.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	close(e.stopCh)
	loopDone := e.loopDone
	e.mu.Unlock()

	<-loopDone

	e.mu.Lock()
	feeder := e.feeder
	broadcaster := e.broadcaster
	cancelRun := e.cancelRun
	e.feeder = nil
	e.broadcaster = nil
	e.runCtx = nil
	e.cancelRun = nil
	e.status = Status{}
	e.mu.Unlock()

	if feeder != nil {
		feeder.Kill()
	}
	if broadcaster != nil {
		if err := broadcaster.Stop(); err != nil {
			e.logger.Warn().Err(err).Msg("broadcaster did not stop cleanly")
		}
	}
	if cancelRun != nil {
		cancelRun()
	}

	e.cleanupArtifacts()
	e.publish(events.EventEngineStopped, nil)
	e.logger.Info().Msg("engine stopped")
	return nil
}

// Snapshot returns the current engine status.
func (e *Engine) Snapshot() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

func (e *Engine) run() {
	defer close(e.loopDone)

	for e.isRunning() {
		e.catalog.EnsureShuffle(e.now().Format("2006-01-02"))

		info, err := e.table.Resolve(e.now())
		if err != nil {
			e.logger.Error().Err(err).Msg("slot resolution failed, playing standby")
			e.playStandby(e.cfg.StandbySeconds)
			continue
		}
		e.setSlot(info.Active.Club, info.Active.Hour)

		movie, ok := e.catalog.Assigned(info.Active.Club, info.Active.Hour)
		if !ok {
			e.logger.Warn().Int("hour", info.Active.Hour).Msg("no movie assigned to slot, playing standby")
			e.setGap(false, "")
			e.playStandby(e.cfg.StandbySeconds)
			continue
		}

		elapsed := info.Elapsed.Seconds()
		duration := e.prober.Duration(context.Background(), movie)

		if elapsed < duration {
			e.playMovie(movie, elapsed)
		}

		e.fillGap(info.NextStart)
	}
}

// playMovie runs a feeder for the slot's movie, seeked to the wall clock
// position, and blocks until it exits or the engine stops.
func (e *Engine) playMovie(movie string, offsetSeconds float64) {
	meta := e.metadata.Lookup(context.Background(), movie)
	e.logger.Info().Str("title", meta.Title).Float64("offset", offsetSeconds).Msg("playing movie")

	e.killFeeder()
	if !e.pause(feederRestartDelay) {
		return
	}

	logo := ""
	if e.cfg.LogoPath != "" {
		if _, err := os.Stat(e.cfg.LogoPath); err == nil {
			logo = e.cfg.LogoPath
		}
	}

	e.mu.RLock()
	enc := e.encoder
	e.mu.RUnlock()

	spec := mediaengine.FeederSpec{
		Input:         movie,
		OffsetSeconds: offsetSeconds,
		Encoder:       enc,
		LogoPath:      logo,
	}
	handle, err := e.launchFeeder(mediaengine.FeederArgs(spec))
	if err != nil {
		e.logger.Error().Err(err).Str("movie", movie).Msg("failed to start feeder")
		e.pause(time.Second)
		return
	}

	e.setGap(false, movie)
	e.publish(events.EventNowPlaying, events.Payload{"movie": movie, "title": meta.Title})

	select {
	case <-handle.Done():
	case <-e.stopCh:
		handle.Kill()
	}
}

// fillGap covers the time between the end of the movie and the next slot
// start with trailers, bumpers and standby, enforcing a hard kill at the
// boundary so the next slot starts on the minute.
func (e *Engine) fillGap(nextStart time.Time) {
	trailers, _ := filepath.Glob(filepath.Join(e.cfg.TrailerDir, "*.*"))
	bumpers, _ := filepath.Glob(filepath.Join(e.cfg.BumperDir, "*.*"))

	for e.isRunning() {
		remaining := nextStart.Sub(e.now())

		if remaining <= e.cfg.BoundaryGrace {
			e.killFeeder()
			e.publish(events.EventSlotBoundary, events.Payload{"next_start": nextStart.Format(time.RFC3339)})
			return
		}

		// The last few seconds are always plain standby so the next
		// slot opens on a clean picture.
		if remaining < time.Duration(e.cfg.StandbySeconds*float64(time.Second)) {
			e.setGap(true, "")
			e.playStandby(remaining.Seconds())
			continue
		}

		filler := pickFiller(remaining, trailers, bumpers)
		if filler == "" {
			e.setGap(true, "")
			e.playStandby(e.cfg.StandbySeconds)
			continue
		}

		e.setGap(true, filler)
		e.logger.Info().Str("filler", filepath.Base(filler)).Dur("remaining", remaining).Msg("filling gap")

		e.mu.RLock()
		enc := e.encoder
		e.mu.RUnlock()

		handle, err := e.launchFeeder(mediaengine.FillerArgs(filler, enc))
		if err != nil {
			e.logger.Error().Err(err).Str("filler", filler).Msg("failed to start filler")
			e.pause(time.Second)
			continue
		}
		e.publish(events.EventGapFilling, events.Payload{"filler": filepath.Base(filler)})

		if !e.waitFillerUntil(handle, nextStart) {
			return
		}
	}
}

// waitFillerUntil blocks until the filler exits or the boundary arrives.
// Returns false when the gap is over and the slot loop should resume.
func (e *Engine) waitFillerUntil(handle mediaengine.Handle, nextStart time.Time) bool {
	ticker := time.NewTicker(e.cfg.GapPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-handle.Done():
			return true
		case <-e.stopCh:
			handle.Kill()
			return false
		case <-ticker.C:
			if nextStart.Sub(e.now()) <= e.cfg.BoundaryGrace {
				handle.Kill()
				e.publish(events.EventSlotBoundary, events.Payload{"next_start": nextStart.Format(time.RFC3339)})
				return false
			}
		}
	}
}

// pickFiller prefers a short bumper close to the boundary and a trailer
// otherwise.
func pickFiller(remaining time.Duration, trailers, bumpers []string) string {
	if remaining < bumperWindow && len(bumpers) > 0 {
		return bumpers[rand.Intn(len(bumpers))]
	}
	if len(trailers) > 0 {
		return trailers[rand.Intn(len(trailers))]
	}
	return ""
}

// playStandby runs a black-screen filler for the given number of seconds
// and blocks until it finishes.
func (e *Engine) playStandby(seconds float64) {
	if seconds <= 0 {
		return
	}
	e.killFeeder()

	handle, err := e.launchFeeder(mediaengine.StandbyArgs(seconds))
	if err != nil {
		e.logger.Error().Err(err).Msg("failed to start standby")
		e.pause(time.Second)
		return
	}
	e.publish(events.EventStandby, events.Payload{"seconds": seconds})

	select {
	case <-handle.Done():
	case <-e.stopCh:
		handle.Kill()
	}
}

func (e *Engine) launchFeeder(args []string) (mediaengine.Handle, error) {
	e.mu.RLock()
	broadcaster := e.broadcaster
	runCtx := e.runCtx
	e.mu.RUnlock()
	if broadcaster == nil {
		return nil, fmt.Errorf("broadcaster not running")
	}
	if runCtx == nil {
		runCtx = context.Background()
	}

	handle, err := e.launch(runCtx, mediaengine.ProcessConfig{
		ID:     "feeder-" + uuid.NewString()[:8],
		Bin:    e.cfg.FFmpegBin,
		Args:   args,
		Stdout: broadcaster.StdinPipe(),
	}, e.logger)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.feeder = handle
	e.mu.Unlock()
	return handle, nil
}

func (e *Engine) killFeeder() {
	e.mu.Lock()
	feeder := e.feeder
	e.feeder = nil
	e.mu.Unlock()

	if feeder != nil {
		feeder.Kill()
	}
}

// pause sleeps unless the engine stops first. Returns false on stop.
func (e *Engine) pause(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-e.stopCh:
		return false
	}
}

func (e *Engine) isRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

func (e *Engine) setSlot(club string, hour int) {
	e.mu.Lock()
	e.status.ActiveClub = club
	e.status.ActiveHour = hour
	e.mu.Unlock()
}

func (e *Engine) setGap(isGap bool, current string) {
	e.mu.Lock()
	e.status.IsGap = isGap
	e.status.CurrentMovie = current
	e.mu.Unlock()
}

func (e *Engine) publish(eventType events.EventType, payload events.Payload) {
	if e.bus != nil {
		e.bus.Publish(eventType, payload)
	}
}

// cleanupArtifacts removes leftover HLS segments and the playlist from a
// previous run so clients never see a stale manifest.
func (e *Engine) cleanupArtifacts() {
	segments, _ := filepath.Glob(filepath.Join(e.cfg.StreamDir, "stream*.ts"))
	for _, seg := range segments {
		if err := os.Remove(seg); err != nil {
			e.logger.Debug().Err(err).Str("file", seg).Msg("could not remove segment")
		}
	}
	playlist := e.cfg.PlaylistPath()
	if _, err := os.Stat(playlist); err == nil {
		if err := os.Remove(playlist); err != nil {
			e.logger.Debug().Err(err).Str("file", playlist).Msg("could not remove playlist")
		}
	}
}
