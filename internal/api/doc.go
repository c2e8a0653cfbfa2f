// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

// Package api serves the archiver's operational HTTP endpoints using the Chi
// router:
//
//	GET /healthz   liveness plus store reachability; 503 while shutting down
//	GET /metrics   Prometheus exposition
//	GET /stats     receiver, consumer, publisher and store counters as JSON
//
// There is no write surface; the archive is fed only by the transport.
package api
