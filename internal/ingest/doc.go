// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

// Package ingest moves envelopes from the upstream producer to the publisher.
//
// A Receiver polls a Transport from its own OS thread and pushes every
// envelope into a Broadcaster. The Broadcaster keeps at most a few
// envelopes per subscriber and overwrites the oldest when a subscriber falls
// behind, so a slow archive never applies back-pressure to the producer.
// Loss under sustained overload is expected and counted.
//
// The Consumer is the main loop: it takes envelopes from its subscription,
// decodes them and hands the records to the publisher. Cancellation of its
// context takes priority over any envelope that is ready.
//
//	transport -> Receiver -> Broadcaster -> Consumer -> publisher
package ingest
