/*
Copyright (C) 2026 Filmnet Labs

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package mediaengine

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Encoder is a validated H.264 encoder choice with the launch arguments
// that go with it.
type Encoder struct {
	Name        string
	HWAccelArgs []string
	Preset      string
	Label       string
}

// IsNVENC reports whether the encoder needs the NVENC-specific rate
// control flags on feeder command lines.
func (e Encoder) IsNVENC() bool {
	return strings.Contains(e.Name, "nvenc")
}

// SoftwareEncoder is the fallback when no hardware encoder passes its
// smoke test. It is assumed present in any usable ffmpeg build.
func SoftwareEncoder() Encoder {
	return Encoder{Name: "libx264", Preset: "ultrafast", Label: "CPU (software)"}
}

func candidates() []Encoder {
	return []Encoder{
		{Name: "h264_nvenc", HWAccelArgs: []string{"-hwaccel", "cuda"}, Preset: "p4", Label: "NVIDIA GPU (NVENC)"},
		{Name: "h264_qsv", HWAccelArgs: []string{"-hwaccel", "qsv"}, Preset: "veryfast", Label: "Intel GPU (QuickSync)"},
		{Name: "h264_amf", Preset: "speed", Label: "AMD GPU (AMF)"},
		SoftwareEncoder(),
	}
}

// Detector probes which H.264 encoders actually work on this host by
// running a short synthetic encode through each candidate. An encoder
// that is merely compiled in can still fail at runtime when the driver
// or device is missing, so only a successful encode counts.
type Detector struct {
	ffmpegBin string
	timeout   time.Duration
	logger    zerolog.Logger

	// runSmokeTest is swapped out in tests.
	runSmokeTest func(ctx context.Context, bin string, args []string) error
}

// NewDetector creates a detector using the given ffmpeg binary.
func NewDetector(ffmpegBin string, timeout time.Duration, logger zerolog.Logger) *Detector {
	return &Detector{
		ffmpegBin:    ffmpegBin,
		timeout:      timeout,
		logger:       logger.With().Str("component", "encoder_detector").Logger(),
		runSmokeTest: runFFmpeg,
	}
}

// Detect returns the first candidate whose smoke test passes, walking the
// list from most to least capable. It never fails: when every candidate
// errors out the software encoder is returned untested.
func (d *Detector) Detect(ctx context.Context) Encoder {
	for _, cand := range candidates() {
		testCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := d.runSmokeTest(testCtx, d.ffmpegBin, smokeTestArgs(cand))
		cancel()

		if err != nil {
			d.logger.Debug().Err(err).Str("encoder", cand.Name).Msg("encoder smoke test failed")
			continue
		}
		d.logger.Info().Str("encoder", cand.Name).Str("label", cand.Label).Msg("encoder selected")
		return cand
	}

	d.logger.Warn().Msg("no encoder passed its smoke test, assuming software encoder")
	return SoftwareEncoder()
}

// smokeTestArgs builds a one second black-frame encode that exercises the
// candidate end to end without touching any input file.
func smokeTestArgs(enc Encoder) []string {
	args := []string{"-v", "error", "-f", "lavfi", "-i", "color=black:s=640x360", "-t", "1"}
	args = append(args, enc.HWAccelArgs...)
	args = append(args, "-c:v", enc.Name, "-f", "null", "-")
	return args
}

func runFFmpeg(ctx context.Context, bin string, args []string) error {
	return exec.CommandContext(ctx, bin, args...).Run()
}
