// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

// Package shutdown sequences process termination.
//
// On SIGINT or SIGTERM the Coordinator:
//
//  1. cancels the context of the main loop, which stops taking new messages;
//  2. once the main loop has returned, sets the ingestion Flag so the
//     receive loop exits and releases the transport;
//  3. gives every registered Drainer a share of one bounded grace period
//     and logs whatever is still running when it expires.
//
// Work still in flight after the grace period is abandoned when the process
// exits.
package shutdown
