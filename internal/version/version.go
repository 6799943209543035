/*
Copyright (C) 2026 Filmnet Labs

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version provides the build version string.
package version

// Version is the current version of Filmnet.
// This is set at build time via ldflags:
//
//	-X github.com/filmnetlabs/filmnet/internal/version.Version=X.Y.Z
var Version = "0.3.0"
