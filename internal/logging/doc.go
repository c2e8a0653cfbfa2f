// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

// Package logging provides the zerolog-based structured logger shared by every
// mktarchive component.
//
// A single global logger is configured once from main via Init and read through
// the package-level event helpers:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("stream", "binance").Msg("archiver started")
//
// Each envelope pulled off the transport is tagged with a short correlation id
// so that the decode, publish and compaction log lines for one message can be
// joined:
//
//	ctx = logging.ContextWithNewCorrelationID(ctx)
//	logging.Ctx(ctx).Debug().Int64("period", rec.Period).Msg("decoded")
//
// SlogHandler bridges the logger to log/slog for libraries that require it,
// in particular the sutureslog event hook of the supervisor tree.
package logging
