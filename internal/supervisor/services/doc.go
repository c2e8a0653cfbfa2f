// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

// Package services adapts archiver components to suture.Service.
//
// Each wrapper depends on a small interface rather than the concrete
// component, so the supervisor package never imports the store or ingest
// packages and the wrappers can be tested with fakes.
package services
