/*
Copyright (C) 2026 Filmnet Labs

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package mediaengine

import (
	"strings"
	"testing"
)

func TestBroadcasterArgs(t *testing.T) {
	got := strings.Join(BroadcasterArgs("/srv/stream/stream.m3u8", 4, 5), " ")
	want := "-re -i - -c:v copy -c:a copy -f hls -hls_time 4 -hls_list_size 5 -hls_flags delete_segments /srv/stream/stream.m3u8"
	if got != want {
		t.Errorf("BroadcasterArgs() = %q, want %q", got, want)
	}
}

func TestFeederArgsWithoutLogo(t *testing.T) {
	args := FeederArgs(FeederSpec{
		Input:         "/m/film.mkv",
		OffsetSeconds: 1234.5,
		Encoder:       SoftwareEncoder(),
	})
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"-re -ss 1234.5 -i /m/film.mkv",
		"-f lavfi -i anullsrc=channel_layout=stereo:sample_rate=48000",
		"-c:v libx264 -preset ultrafast",
		"-map [v_out] -map 0:a? -map 1:a",
		"-c:a aac -b:a 128k -ac 2 -ar 48000 -f mpegts -",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("FeederArgs() missing %q in %q", want, joined)
		}
	}
	if strings.Contains(joined, "overlay") {
		t.Error("FeederArgs() without logo contains an overlay filter")
	}
	if strings.Contains(joined, "-tune zerolatency") {
		t.Error("software feeder carries NVENC tuning flags")
	}
}

func TestFeederArgsWithLogoShiftsAudioMap(t *testing.T) {
	nvenc := Encoder{Name: "h264_nvenc", HWAccelArgs: []string{"-hwaccel", "cuda"}, Preset: "p4"}
	args := FeederArgs(FeederSpec{
		Input:    "/m/film.mkv",
		Encoder:  nvenc,
		LogoPath: "/srv/logo.png",
	})
	joined := strings.Join(args, " ")

	if !strings.HasPrefix(joined, "-hwaccel cuda -re -ss 0 -i /m/film.mkv -i /srv/logo.png") {
		t.Errorf("unexpected input section: %q", joined)
	}
	if !strings.Contains(joined, "overlay=main_w-overlay_w-30:30") {
		t.Errorf("logo overlay missing: %q", joined)
	}
	// With the logo as input 1, the null audio source moves to input 2.
	if !strings.Contains(joined, "-map 0:a? -map 2:a") {
		t.Errorf("audio map not shifted for logo input: %q", joined)
	}
	if !strings.Contains(joined, "-tune zerolatency -rc cbr") {
		t.Errorf("NVENC rate control flags missing: %q", joined)
	}
}

func TestFillerArgs(t *testing.T) {
	args := FillerArgs("/srv/trailers/t1.mp4", Encoder{Name: "h264_nvenc", HWAccelArgs: []string{"-hwaccel", "cuda"}, Preset: "p4"})
	joined := strings.Join(args, " ")

	if strings.Contains(joined, "-ss") {
		t.Error("filler must not seek into its input")
	}
	if !strings.Contains(joined, "-map 0:v -map 0:a? -map 1:a") {
		t.Errorf("filler map wrong: %q", joined)
	}
	if !strings.Contains(joined, "-tune zerolatency") || strings.Contains(joined, "-rc cbr") {
		t.Errorf("filler NVENC flags wrong: %q", joined)
	}
}

func TestStandbyArgsAlwaysSoftware(t *testing.T) {
	joined := strings.Join(StandbyArgs(3.7), " ")

	if !strings.Contains(joined, "color=c=black:s=1280x720:r=25") {
		t.Errorf("standby source wrong: %q", joined)
	}
	if !strings.Contains(joined, "-t 3.7") {
		t.Errorf("standby length wrong: %q", joined)
	}
	if !strings.Contains(joined, "-c:v libx264 -preset ultrafast") {
		t.Errorf("standby must use the software encoder: %q", joined)
	}
}
