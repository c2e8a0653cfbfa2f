// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

// Package config loads the archiver configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values for every setting
//  2. Config File: optional YAML file, from --config, CONFIG_PATH, or the
//     first of DefaultConfigPaths that exists
//  3. Environment Variables: override individual settings (see envMappings)
//
// Example config.yaml:
//
//	exchange: binance
//	store:
//	  driver: redis
//	  host: 127.0.0.1
//	  port: 6379
//	  max_stream_size: 10000
//	transport:
//	  driver: nats
//	  url: nats://127.0.0.1:4222
//	  subject: mkt.archive
//	decoder:
//	  mode: primary
//	  compressed: true
//
// Validation runs after the layers are merged: struct tags through the
// validation package, then checks that span fields. The encoding mode
// "reject-ambiguous" is recognised but refused.
package config
