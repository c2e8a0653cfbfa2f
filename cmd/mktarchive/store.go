// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package main

import (
	"fmt"

	"github.com/tomtom215/mktarchive/internal/archive"
	"github.com/tomtom215/mktarchive/internal/config"
	"github.com/tomtom215/mktarchive/internal/logging"
	"github.com/tomtom215/mktarchive/internal/supervisor/services"
)

// openedStore is the configured LogStore plus its optional maintenance hook.
type openedStore struct {
	archive.LogStore
	gc services.GarbageCollector
}

func openStore(cfg *config.Config) (openedStore, error) {
	opts := archive.Options{
		Stream:        cfg.Exchange,
		MaxStreamSize: cfg.Store.MaxStreamSize,
		ScanWindow:    cfg.Store.ScanWindow,
	}

	switch cfg.Store.Driver {
	case "redis":
		s := archive.NewRedisStore(archive.RedisConfig{
			Host:         cfg.Store.Host,
			Port:         cfg.Store.Port,
			Username:     cfg.Store.Username,
			Password:     cfg.Store.Password,
			DB:           cfg.Store.DB,
			DialTimeout:  cfg.Store.DialTimeout,
			ReadTimeout:  cfg.Store.ReadTimeout,
			WriteTimeout: cfg.Store.WriteTimeout,
			MaxIdle:      cfg.Store.MaxIdle,
			IdleTimeout:  cfg.Store.IdleTimeout,
		}, opts)
		logging.Info().
			Str("addr", cfg.Store.Addr()).
			Str("stream", opts.Stream).
			Int64("max_stream_size", opts.MaxStreamSize).
			Msg("Using Redis stream store")
		return openedStore{LogStore: s}, nil

	case "badger":
		s, err := archive.OpenBadgerStore(archive.BadgerConfig{
			Path:        cfg.Store.Badger.Path,
			InMemory:    cfg.Store.Badger.InMemory,
			SyncWrites:  cfg.Store.Badger.SyncWrites,
			Compression: cfg.Store.Badger.Compression,
			GCRatio:     cfg.Store.Badger.GCRatio,
		}, opts)
		if err != nil {
			return openedStore{}, fmt.Errorf("open badger store: %w", err)
		}
		logging.Info().
			Str("path", cfg.Store.Badger.Path).
			Bool("in_memory", cfg.Store.Badger.InMemory).
			Str("stream", opts.Stream).
			Msg("Using embedded BadgerDB store")
		return openedStore{LogStore: s, gc: s}, nil

	case "memory":
		logging.Warn().Msg("Using in-process memory store; the archive does not survive a restart")
		return openedStore{LogStore: archive.NewMemoryStore(opts)}, nil

	default:
		return openedStore{}, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
