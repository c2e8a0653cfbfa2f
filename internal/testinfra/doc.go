// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

//go:build integration

// Package testinfra starts real dependencies in Docker for integration tests.
//
// Everything here is behind the integration build tag:
//
//	go test -tags integration ./internal/archive/...
//
// Tests call SkipIfNoDocker first so the suite degrades to a skip on hosts
// without a Docker daemon.
package testinfra
