// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

// Package archive implements the period-deduplicating, size-bounded append log
// that mktarchive writes into.
//
// # Compaction
//
// Every publish runs one compaction transaction against the log:
//
//  1. The period is parsed from the entry key "{post_ts}-{period}". A key
//     without a separator fails with ErrFormat before anything is touched.
//  2. If the log already holds MaxStreamSize entries, the single oldest entry
//     is deleted (FIFO retention, independent of what happens next).
//  3. The ScanWindow most recent entries are scanned for the same period.
//  4. Duplicates left behind by earlier races are collapsed to the first
//     entry, in scan order, with the highest InfoCount.
//  5. The new entry replaces the survivor only if its InfoCount is strictly
//     greater (OutcomeUpdated). Ties report OutcomeEqual and smaller counts
//     OutcomeSkipped, both without writing.
//
// Only the ScanWindow most recent entries are considered, so a revision of a
// period older than that window is not seen and a second entry for the
// period can be appended. This is accepted.
//
// # Stores
//
// Compact implements the algorithm over the Tx primitives and is shared by
// the embedded stores. The Redis store runs the same algorithm as a
// server-side Lua script so that it is atomic without client-side locking.
//
//   - RedisStore: Redis streams via redigo, one EVALSHA per publish
//   - BadgerStore: embedded BadgerDB, one read-write transaction per publish
//     serialized by a store mutex
//   - MemoryStore: in-process, for development and tests
//
// All three satisfy LogStore and pass the same conformance suite.
package archive
