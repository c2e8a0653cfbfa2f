// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package period

import "errors"

var (
	// ErrFormat is returned when an envelope does not match the schema of
	// the selected wire format, or when the format itself is unknown.
	ErrFormat = errors.New("period: malformed record")

	// ErrDecompress is returned when a compressed envelope is not a valid
	// zlib stream or exceeds MaxEnvelopeSize once inflated.
	ErrDecompress = errors.New("period: decompression failed")
)
