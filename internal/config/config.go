/*
Copyright (C) 2026 Filmnet Labs

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int

	// External tool paths.
	FFmpegBin  string
	FFprobeBin string

	// Persisted configuration store (catalogs + display metadata).
	DBPath string

	// Schedule table definition (clubs, hours, colors).
	ScheduleFile string

	// Filesystem layout consumed by the orchestrator.
	StreamDir  string
	TrailerDir string
	BumperDir  string
	LogoPath   string

	// HLS output shape.
	HLSSegmentSeconds int
	HLSWindowSize     int

	// Metadata lookup.
	TMDBAPIKey  string
	TMDBBaseURL string

	// Orchestrator tunables. The boundary grace and gap poll interval bound
	// how late a slot transition can happen; keep them well under a second.
	SmokeTestTimeout time.Duration
	GapPollInterval  time.Duration
	BoundaryGrace    time.Duration
	StandbySeconds   float64

	// Tracing configuration.
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("FILMNET_ENV", "development"),
		HTTPBind:    getEnv("FILMNET_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("FILMNET_HTTP_PORT", 8000),

		FFmpegBin:  getEnv("FILMNET_FFMPEG_BIN", "ffmpeg"),
		FFprobeBin: getEnv("FILMNET_FFPROBE_BIN", "ffprobe"),

		DBPath:       getEnv("FILMNET_DB_PATH", "filmnet.db"),
		ScheduleFile: getEnv("FILMNET_SCHEDULE_FILE", ""),

		StreamDir:  getEnv("FILMNET_STREAM_DIR", "stream"),
		TrailerDir: getEnv("FILMNET_TRAILER_DIR", "trailers"),
		BumperDir:  getEnv("FILMNET_BUMPER_DIR", "bumpers"),
		LogoPath:   getEnv("FILMNET_LOGO_PATH", "logo.png"),

		HLSSegmentSeconds: getEnvInt("FILMNET_HLS_SEGMENT_SECONDS", 4),
		HLSWindowSize:     getEnvInt("FILMNET_HLS_WINDOW_SIZE", 5),

		TMDBAPIKey:  getEnv("FILMNET_TMDB_API_KEY", ""),
		TMDBBaseURL: getEnv("FILMNET_TMDB_BASE_URL", "https://api.themoviedb.org/3"),

		SmokeTestTimeout: time.Duration(getEnvInt("FILMNET_SMOKE_TEST_TIMEOUT_SECONDS", 10)) * time.Second,
		GapPollInterval:  time.Duration(getEnvInt("FILMNET_GAP_POLL_MS", 100)) * time.Millisecond,
		BoundaryGrace:    time.Duration(getEnvInt("FILMNET_BOUNDARY_GRACE_MS", 100)) * time.Millisecond,
		StandbySeconds:   getEnvFloat("FILMNET_STANDBY_SECONDS", 5),

		TracingEnabled:    getEnvBool("FILMNET_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("FILMNET_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("FILMNET_TRACING_SAMPLE_RATE", 1.0),
	}

	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("FILMNET_HTTP_PORT %d out of range", cfg.HTTPPort)
	}
	if cfg.HLSSegmentSeconds <= 0 {
		return nil, fmt.Errorf("FILMNET_HLS_SEGMENT_SECONDS must be positive")
	}
	if cfg.HLSWindowSize <= 0 {
		return nil, fmt.Errorf("FILMNET_HLS_WINDOW_SIZE must be positive")
	}
	if cfg.GapPollInterval <= 0 || cfg.GapPollInterval >= time.Second {
		return nil, fmt.Errorf("FILMNET_GAP_POLL_MS must be sub-second and positive")
	}
	if cfg.StandbySeconds <= 0 {
		return nil, fmt.Errorf("FILMNET_STANDBY_SECONDS must be positive")
	}

	return cfg, nil
}

// PlaylistPath returns the live playlist location inside the stream directory.
func (c *Config) PlaylistPath() string {
	return filepath.Join(c.StreamDir, "stream.m3u8")
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		if val == "true" || val == "1" || val == "yes" {
			return true
		}
		if val == "false" || val == "0" || val == "no" {
			return false
		}
	}
	return def
}
