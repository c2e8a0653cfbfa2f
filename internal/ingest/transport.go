// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package ingest

import "errors"

var (
	// ErrWouldBlock is returned by Transport.Recv when no envelope is ready.
	// It is not a failure.
	ErrWouldBlock = errors.New("ingest: no message ready")

	// ErrClosed is returned once a transport or broadcaster is closed.
	ErrClosed = errors.New("ingest: closed")
)

// Transport is a non-blocking source of envelopes.
type Transport interface {
	// Recv returns the next envelope or ErrWouldBlock. The returned slice
	// may be reused by the transport after the next call.
	Recv() ([]byte, error)

	// Close unsubscribes and disconnects.
	Close() error
}
