// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package main

import (
	"context"
	"testing"

	"github.com/tomtom215/mktarchive/internal/archive"
	"github.com/tomtom215/mktarchive/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv(config.ConfigPathEnvVar, "")
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return cfg
}

func TestOpenStoreDrivers(t *testing.T) {
	cfg := testConfig(t)

	cfg.Store.Driver = "memory"
	mem, err := openStore(cfg)
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if mem.gc != nil {
		t.Error("memory store should have no GC hook")
	}
	_ = mem.Close()

	cfg.Store.Driver = "badger"
	cfg.Store.Badger.InMemory = true
	bdg, err := openStore(cfg)
	if err != nil {
		t.Fatalf("badger: %v", err)
	}
	defer bdg.Close()
	if bdg.gc == nil {
		t.Error("badger store should expose its GC hook")
	}
	res, err := bdg.Publish(context.Background(), archive.NewEntry(1, 10, 2, []byte("p")))
	if err != nil || res.Outcome != archive.OutcomeUpdated {
		t.Errorf("Publish = %+v, %v", res, err)
	}

	cfg.Store.Driver = "cassandra"
	if _, err := openStore(cfg); err == nil {
		t.Error("unknown driver accepted")
	}
}

func TestOpenTransportEmbedded(t *testing.T) {
	cfg := testConfig(t)
	cfg.Transport.Embedded = true
	cfg.Transport.EmbeddedPort = -1

	for _, driver := range []string{"nats", "watermill"} {
		t.Run(driver, func(t *testing.T) {
			cfg.Transport.Driver = driver
			tr, closeBroker, err := openTransport(cfg)
			if err != nil {
				t.Fatalf("openTransport: %v", err)
			}
			if err := tr.Close(); err != nil {
				t.Errorf("Close: %v", err)
			}
			closeBroker()
		})
	}
}

func TestRunVersionAndHelp(t *testing.T) {
	if err := run([]string{"--version"}); err != nil {
		t.Errorf("--version: %v", err)
	}
	if err := run([]string{"--help"}); err != nil {
		t.Errorf("--help: %v", err)
	}
	if err := run([]string{"--no-such-flag"}); err == nil {
		t.Error("unknown flag accepted")
	}
}
