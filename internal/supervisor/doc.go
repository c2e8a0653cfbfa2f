// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

// Package supervisor runs the archiver's long-lived services under a suture
// v4 supervisor tree.
//
// Tree layout:
//
//	mktarchive (root)
//	├── store-layer     store maintenance (badger value log GC)
//	├── ingest-layer    consumer loop
//	└── api-layer       ops HTTP server
//
// The receive loop is not supervised here: it runs on a locked OS thread and
// is stopped through the shutdown flag, not through a context. Supervisor
// events are logged through sutureslog, bridged to zerolog by the logging
// package.
package supervisor
