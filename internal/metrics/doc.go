// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

// Package metrics holds the Prometheus collectors for every archiver stage.
//
// Collectors are registered on the default registry through promauto and are
// exposed by the ops server at /metrics. Components call the Record helpers
// rather than touching collectors directly so that label values stay
// consistent:
//
//	metrics.RecordPublish("async", res.Outcome, time.Since(start), err)
package metrics
