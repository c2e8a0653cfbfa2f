// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

// Package publisher turns decoded period records into archive entries and
// runs their compaction transactions.
//
// Publish runs one transaction and returns its result. PublishAsync hands the
// transaction to a background goroutine but keeps at most one in flight: it
// first waits for the previously submitted transaction, then starts the new
// one. Transactions therefore never overlap and complete in submission
// order. A failed asynchronous transaction is logged and counted; it is not
// retried and its error does not reach later callers.
//
// Transactions run detached from the caller's context. Cancelling a caller
// only prevents transactions that have not started yet.
package publisher
