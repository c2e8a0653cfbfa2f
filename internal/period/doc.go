// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

// Package period decodes and encodes market-period capture records.
//
// A producer publishes one Record per trading period and poster: the trades
// and order book increments it captured for each symbol. Records travel as an
// opaque envelope in one of two wire formats, optionally zlib-compressed:
//
//   - FormatPrimary: CBOR with integer map keys under core deterministic
//     encoding, so the same record always produces the same bytes.
//   - FormatLegacy: the protobuf wire format of the older producers.
//
// The format and the compression flag are always supplied by configuration.
// Envelopes are never sniffed; feeding a legacy envelope to the primary codec
// fails with ErrFormat rather than silently succeeding.
//
//	rec, err := period.Decode(envelope, true, period.FormatPrimary)
//	if errors.Is(err, period.ErrDecompress) { ... }
//
// Record.InfoCount is the completeness metric used by the archive to decide
// which revision of a period to keep.
package period
