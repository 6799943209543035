/*
Copyright (C) 2026 Filmnet Labs

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package mediaengine

import (
	"fmt"
	"strconv"
)

// Every feeder normalizes its video to this canvas before handing mpegts
// to the broadcaster, so the copy-codec HLS muxer never sees a format
// change mid-stream.
const canvasFilter = "scale=1280:720:force_original_aspect_ratio=decrease," +
	"pad=1280:720:(ow-iw)/2:(oh-ih)/2,setsar=1,format=yuv420p"

const nullAudioSource = "anullsrc=channel_layout=stereo:sample_rate=48000"

// BroadcasterArgs builds the persistent HLS muxer command line. It copies
// whatever the active feeder pipes into stdin, so feeders can be swapped
// without interrupting the playlist.
func BroadcasterArgs(playlistPath string, segmentSeconds, windowSize int) []string {
	return []string{
		"-re", "-i", "-",
		"-c:v", "copy", "-c:a", "copy",
		"-f", "hls",
		"-hls_time", strconv.Itoa(segmentSeconds),
		"-hls_list_size", strconv.Itoa(windowSize),
		"-hls_flags", "delete_segments",
		playlistPath,
	}
}

// FeederSpec describes one movie or filler playback into the broadcaster.
type FeederSpec struct {
	Input string
	// OffsetSeconds seeks into the input before playback, so a feeder
	// started mid-slot joins the movie where the wall clock says it
	// should be.
	OffsetSeconds float64
	Encoder       Encoder
	// LogoPath, when set, is overlaid in the top right corner.
	LogoPath string
}

// FeederArgs builds the movie feeder command line: realtime decode from
// the offset, normalize to the canvas, optional logo overlay, and a
// silent stereo bed behind any original audio, encoded to mpegts on
// stdout.
func FeederArgs(spec FeederSpec) []string {
	args := append([]string{}, spec.Encoder.HWAccelArgs...)
	args = append(args, "-re", "-ss", formatSeconds(spec.OffsetSeconds), "-i", spec.Input)

	if spec.LogoPath != "" {
		args = append(args, "-i", spec.LogoPath)
	}
	args = append(args, "-f", "lavfi", "-i", nullAudioSource)

	args = append(args, "-c:v", spec.Encoder.Name, "-preset", spec.Encoder.Preset)
	if spec.Encoder.IsNVENC() {
		args = append(args, "-tune", "zerolatency", "-rc", "cbr")
	}

	// Input indices shift by one when the logo is present.
	if spec.LogoPath != "" {
		filter := fmt.Sprintf("[0:v]%s[bg];[bg][1:v]overlay=main_w-overlay_w-30:30[v_out]", canvasFilter)
		args = append(args, "-filter_complex", filter, "-map", "[v_out]")
		args = append(args, "-map", "0:a?", "-map", "2:a")
	} else {
		args = append(args, "-filter_complex", fmt.Sprintf("[0:v]%s[v_out]", canvasFilter), "-map", "[v_out]")
		args = append(args, "-map", "0:a?", "-map", "1:a")
	}

	return append(args, audioTail()...)
}

// FillerArgs builds the command line for a bumper or trailer. No seek and
// no logo, otherwise the same normalization as a movie feeder.
func FillerArgs(input string, enc Encoder) []string {
	args := append([]string{}, enc.HWAccelArgs...)
	args = append(args, "-re", "-i", input)
	args = append(args, "-f", "lavfi", "-i", nullAudioSource)

	args = append(args, "-c:v", enc.Name, "-preset", enc.Preset)
	if enc.IsNVENC() {
		args = append(args, "-tune", "zerolatency")
	}

	args = append(args, "-vf", canvasFilter)
	args = append(args, "-map", "0:v", "-map", "0:a?", "-map", "1:a")
	return append(args, audioTail()...)
}

// StandbyArgs builds a black-screen filler of the given length. Always
// encoded in software so standby works even while encoder detection is
// still in doubt.
func StandbyArgs(seconds float64) []string {
	args := []string{
		"-re", "-f", "lavfi", "-i", "color=c=black:s=1280x720:r=25",
		"-t", formatSeconds(seconds),
		"-c:v", "libx264", "-preset", "ultrafast",
		"-f", "lavfi", "-i", nullAudioSource,
	}
	return append(args, audioTail()...)
}

func audioTail() []string {
	return []string{"-c:a", "aac", "-b:a", "128k", "-ac", "2", "-ar", "48000", "-f", "mpegts", "-"}
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}
