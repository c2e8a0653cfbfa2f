// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package archive

import "errors"

var (
	// ErrFormat is returned when an entry key carries no period separator.
	// The log is left untouched.
	ErrFormat = errors.New("archive: invalid key format")

	// ErrStoreClosed is returned by operations on a closed store.
	ErrStoreClosed = errors.New("archive: store is closed")
)
