// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package publisher

import "errors"

// ErrPublisherClosed is returned by PublishAsync after Drain.
var ErrPublisherClosed = errors.New("publisher: closed")
