// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

// Package main is the entry point for the mktarchive service.
//
// mktarchive subscribes to a feed of market-period capture envelopes and
// archives them into a size-bounded log keyed by trading period, keeping
// only the most complete revision of each period.
//
// # Application Architecture
//
// Components are started in this order:
//
//  1. Configuration: koanf layers (defaults, YAML file, environment)
//  2. Store: Redis stream, embedded BadgerDB, or in-process memory log
//  3. Publisher: compaction transactions, optionally behind a circuit breaker
//  4. Transport: NATS subscription (direct or through watermill), optionally
//     against an embedded NATS server
//  5. Receiver: dedicated OS thread polling the transport into a
//     drop-oldest broadcast
//  6. Supervisor tree: consumer loop, store GC, ops HTTP server
//
// # Signal Handling
//
// On SIGINT or SIGTERM the consumer stops taking envelopes, the supervisor
// tree winds down, the receiver is told to stop, and the receiver and any
// in-flight asynchronous publish get one shared grace period
// (shutdown.grace_period, default 100ms). Work still running after that is
// abandoned and logged.
//
// # Example Usage
//
//	mktarchive --config /etc/mktarchive/config.yaml
//
//	REDIS_HOST=redis MAX_STREAM_SIZE=50000 ENCODING_MODE=legacy mktarchive
//
//	STORE_DRIVER=badger BADGER_PATH=/data/archive NATS_EMBEDDED=true mktarchive
package main
