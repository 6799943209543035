/*
Copyright (C) 2026 Filmnet Labs

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package mediaengine

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// FallbackDurationSeconds stands in for files ffprobe cannot read. Two
// hours keeps the slot math sane for a typical feature film.
const FallbackDurationSeconds = 7200

// Prober reads container durations via ffprobe and caches them per path.
// Probe failures return the fallback without being cached, so a file that
// was briefly unreadable gets probed again.
type Prober struct {
	ffprobeBin string
	logger     zerolog.Logger

	// runProbe is swapped out in tests.
	runProbe func(ctx context.Context, bin, path string) ([]byte, error)

	mu    sync.RWMutex
	cache map[string]float64
}

// NewProber creates a prober using the given ffprobe binary.
func NewProber(ffprobeBin string, logger zerolog.Logger) *Prober {
	return &Prober{
		ffprobeBin: ffprobeBin,
		logger:     logger.With().Str("component", "prober").Logger(),
		runProbe:   runFFprobe,
		cache:      make(map[string]float64),
	}
}

// Duration returns the duration of path in seconds.
func (p *Prober) Duration(ctx context.Context, path string) float64 {
	p.mu.RLock()
	cached, ok := p.cache[path]
	p.mu.RUnlock()
	if ok {
		return cached
	}

	out, err := p.runProbe(ctx, p.ffprobeBin, path)
	if err != nil {
		p.logger.Warn().Err(err).Str("path", path).Msg("ffprobe failed, using fallback duration")
		return FallbackDurationSeconds
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		p.logger.Warn().Err(err).Str("path", path).Msg("unparseable ffprobe output, using fallback duration")
		return FallbackDurationSeconds
	}

	p.mu.Lock()
	p.cache[path] = seconds
	p.mu.Unlock()
	return seconds
}

func runFFprobe(ctx context.Context, bin, path string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)
	return cmd.Output()
}
