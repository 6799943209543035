/*
Copyright (C) 2026 Filmnet Labs

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTPPort != 8000 {
		t.Errorf("HTTPPort = %d, want 8000", cfg.HTTPPort)
	}
	if cfg.FFmpegBin != "ffmpeg" {
		t.Errorf("FFmpegBin = %q, want %q", cfg.FFmpegBin, "ffmpeg")
	}
	if cfg.HLSSegmentSeconds != 4 || cfg.HLSWindowSize != 5 {
		t.Errorf("HLS defaults = %d/%d, want 4/5", cfg.HLSSegmentSeconds, cfg.HLSWindowSize)
	}
	if cfg.GapPollInterval != 100*time.Millisecond {
		t.Errorf("GapPollInterval = %v, want 100ms", cfg.GapPollInterval)
	}
	if cfg.BoundaryGrace != 100*time.Millisecond {
		t.Errorf("BoundaryGrace = %v, want 100ms", cfg.BoundaryGrace)
	}
}

func TestLoadOverridesAndValidation(t *testing.T) {
	t.Setenv("FILMNET_HTTP_PORT", "9001")
	t.Setenv("FILMNET_SMOKE_TEST_TIMEOUT_SECONDS", "3")
	t.Setenv("FILMNET_STANDBY_SECONDS", "2.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTPPort != 9001 {
		t.Errorf("HTTPPort = %d, want 9001", cfg.HTTPPort)
	}
	if cfg.SmokeTestTimeout != 3*time.Second {
		t.Errorf("SmokeTestTimeout = %v, want 3s", cfg.SmokeTestTimeout)
	}
	if cfg.StandbySeconds != 2.5 {
		t.Errorf("StandbySeconds = %v, want 2.5", cfg.StandbySeconds)
	}

	t.Setenv("FILMNET_GAP_POLL_MS", "2000")
	if _, err := Load(); err == nil {
		t.Error("Load() accepted a gap poll interval of 2s, want error")
	}
}

func TestPlaylistPath(t *testing.T) {
	cfg := &Config{StreamDir: "stream"}
	if got := cfg.PlaylistPath(); got != "stream/stream.m3u8" {
		t.Errorf("PlaylistPath() = %q", got)
	}
}
