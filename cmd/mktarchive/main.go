// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/pflag"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/mktarchive/internal/api"
	"github.com/tomtom215/mktarchive/internal/config"
	"github.com/tomtom215/mktarchive/internal/ingest"
	"github.com/tomtom215/mktarchive/internal/logging"
	"github.com/tomtom215/mktarchive/internal/publisher"
	"github.com/tomtom215/mktarchive/internal/shutdown"
	"github.com/tomtom215/mktarchive/internal/supervisor"
	"github.com/tomtom215/mktarchive/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		logging.Error().Err(err).Msg("mktarchive stopped with an error")
		os.Exit(1)
	}
}

func run(args []string) error {
	flagSet := pflag.NewFlagSet("mktarchive", pflag.ContinueOnError)
	configPath := flagSet.StringP("config", "c", "", "path to a YAML config file (default: $CONFIG_PATH or ./config.yaml)")
	showVersion := flagSet.Bool("version", false, "print the version and exit")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Println("mktarchive", version)
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Str("version", version).Stringer("config", cfg).Msg("Starting mktarchive")

	format, err := cfg.Format()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	pub := publisher.New(store.LogStore, publisher.Config{
		Stream:     cfg.Exchange,
		Format:     format,
		Compressed: cfg.Decoder.Compressed,
		Breaker: publisher.BreakerConfig{
			Enabled:          cfg.Store.Breaker.Enabled,
			FailureThreshold: cfg.Store.Breaker.FailureThreshold,
			Timeout:          cfg.Store.Breaker.Timeout,
			MaxRequests:      cfg.Store.Breaker.MaxRequests,
		},
	})

	transport, closeBroker, err := openTransport(cfg)
	if err != nil {
		return err
	}
	defer closeBroker()

	broadcaster := ingest.NewBroadcaster(cfg.Transport.ChannelCapacity)
	// Subscribe before the receiver starts so no envelope is missed.
	sub := broadcaster.Subscribe()
	receiver := ingest.NewReceiver(transport, broadcaster, ingest.ReceiverConfig{
		IdleBackoff:  cfg.Transport.IdleBackoff,
		ErrorBackoff: cfg.Transport.ErrorBackoff,
	})
	consumer := ingest.NewConsumer(sub, pub, ingest.ConsumerConfig{
		Decoder: ingest.DecoderConfig{Format: format, Compressed: cfg.Decoder.Compressed},
		Async:   cfg.Publisher.Async,
	})
	defer consumer.Close()

	coord := shutdown.NewCoordinator(cfg.Shutdown.GracePeriod)
	coord.Register("receiver", receiver)
	coord.Register("publisher", pub)

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: cfg.Supervisor.FailureThreshold,
		FailureDecay:     cfg.Supervisor.FailureDecay,
		FailureBackoff:   cfg.Supervisor.FailureBackoff,
		ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	})
	tree.AddIngestService(services.NewConsumerService(consumer, ingest.ErrClosed, publisher.ErrPublisherClosed))
	if store.gc != nil {
		tree.AddStoreService(services.NewGCService(store.gc, cfg.Store.Badger.GCInterval))
	}
	if cfg.Server.Enabled {
		handler := api.NewHandler(api.Sources{
			Stream:    cfg.Exchange,
			Store:     store.LogStore,
			Publisher: pub,
			Receiver:  receiver,
			Consumer:  consumer,
			Shutdown:  coord.Flag(),
		})
		server := &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           api.NewRouter(handler),
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
		}
		tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
		logging.Info().Str("addr", server.Addr).Msg("Ops HTTP server enabled")
	}

	receiver.Start(coord.Flag())

	return coord.Run(context.Background(), func(ctx context.Context) error {
		err := tree.Serve(ctx)
		if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
			logging.Warn().Int("count", len(report)).Msg("Services did not stop within the supervisor timeout")
		}
		switch {
		case ctx.Err() != nil:
			return nil
		case err == nil, errors.Is(err, suture.ErrTerminateSupervisorTree):
			logging.Warn().Msg("Supervisor tree terminated")
			return nil
		default:
			return fmt.Errorf("supervisor tree: %w", err)
		}
	})
}
