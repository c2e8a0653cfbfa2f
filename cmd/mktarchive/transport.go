// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package main

import (
	"fmt"

	"github.com/tomtom215/mktarchive/internal/config"
	"github.com/tomtom215/mktarchive/internal/ingest"
	"github.com/tomtom215/mktarchive/internal/logging"
)

// openTransport dials the configured transport, starting the embedded NATS
// server first when asked to. The returned func stops that server; the
// transport itself is closed by the receiver.
func openTransport(cfg *config.Config) (ingest.Transport, func(), error) {
	closeBroker := func() {}
	url := cfg.Transport.URL

	if cfg.Transport.Embedded {
		srv, err := ingest.StartEmbeddedServer(cfg.Transport.EmbeddedHost, cfg.Transport.EmbeddedPort)
		if err != nil {
			return nil, nil, fmt.Errorf("start embedded NATS: %w", err)
		}
		url = srv.ClientURL()
		closeBroker = srv.Shutdown
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	}

	natsCfg := ingest.NATSConfig{
		URL:           url,
		Subject:       cfg.Transport.Subject,
		Name:          cfg.Transport.Name,
		HighWaterMark: cfg.Transport.HighWaterMark,
		MaxReconnects: cfg.Transport.MaxReconnects,
		ReconnectWait: cfg.Transport.ReconnectWait,
	}

	var (
		t   ingest.Transport
		err error
	)
	switch cfg.Transport.Driver {
	case "watermill":
		t, err = openWatermill(natsCfg)
	default:
		t, err = ingest.DialNATS(natsCfg)
	}
	if err != nil {
		closeBroker()
		return nil, nil, fmt.Errorf("open %s transport: %w", cfg.Transport.Driver, err)
	}
	return t, closeBroker, nil
}

func openWatermill(cfg ingest.NATSConfig) (ingest.Transport, error) {
	sub, err := ingest.NewNATSSubscriber(cfg)
	if err != nil {
		return nil, err
	}
	t, err := ingest.NewWatermillTransport(sub, cfg.Subject)
	if err != nil {
		_ = sub.Close()
		return nil, err
	}
	return t, nil
}
