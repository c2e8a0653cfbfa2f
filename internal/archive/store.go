// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package archive

import "context"

// DefaultScanWindow is the number of most recent entries searched for an
// existing revision of a period.
const DefaultScanWindow = 100

// Options configures one archive log.
type Options struct {
	// Stream names the log inside the store.
	Stream string

	// MaxStreamSize bounds the number of entries. Zero or less disables
	// retention.
	MaxStreamSize int64

	// ScanWindow defaults to DefaultScanWindow when zero or less.
	ScanWindow int
}

func (o Options) window() int {
	if o.ScanWindow <= 0 {
		return DefaultScanWindow
	}
	return o.ScanWindow
}

// LogStore is a transactional archive log.
type LogStore interface {
	// Publish runs one compaction transaction for e. It either applies
	// completely or not at all.
	Publish(ctx context.Context, e Entry) (Result, error)

	// Len returns the number of entries in the log.
	Len(ctx context.Context) (int64, error)

	// Entries returns the whole log, oldest first.
	Entries(ctx context.Context) ([]Entry, error)

	Close() error
}
