// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched, in order, when no path is
// given. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/mktarchive/config.yaml",
	"/etc/mktarchive/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Exchange: "binance",
		Store: StoreConfig{
			Driver:        "redis",
			Host:          "127.0.0.1",
			Port:          6379,
			MaxStreamSize: 10000,
			ScanWindow:    100,
			DialTimeout:   5 * time.Second,
			ReadTimeout:   5 * time.Second,
			WriteTimeout:  5 * time.Second,
			MaxIdle:       4,
			IdleTimeout:   4 * time.Minute,
			Badger: BadgerConfig{
				Path:       "/data/mktarchive",
				GCInterval: 5 * time.Minute,
				GCRatio:    0.5,
			},
			Breaker: BreakerConfig{
				Enabled:          false,
				FailureThreshold: 5,
				Timeout:          30 * time.Second,
				MaxRequests:      1,
			},
		},
		Transport: TransportConfig{
			Driver:          "nats",
			URL:             "nats://127.0.0.1:4222",
			Subject:         "mkt.archive",
			Name:            "mktarchive",
			EmbeddedHost:    "127.0.0.1",
			EmbeddedPort:    4222,
			HighWaterMark:   100,
			ChannelCapacity: 3,
			IdleBackoff:     time.Millisecond,
			ErrorBackoff:    time.Second,
			MaxReconnects:   -1, // forever
			ReconnectWait:   2 * time.Second,
		},
		Decoder: DecoderConfig{
			Mode:       ModePrimary,
			Compressed: true,
		},
		Publisher: PublisherConfig{Async: false},
		Shutdown:  ShutdownConfig{GracePeriod: 100 * time.Millisecond},
		Server: ServerConfig{
			Enabled:         true,
			Host:            "127.0.0.1",
			Port:            9464,
			ReadTimeout:     10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// Load merges defaults, the config file and the environment, then
// validates. An explicit path must exist; an empty path falls back to
// CONFIG_PATH and DefaultConfigPaths, and no file at all is fine.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file
	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Layer 3: environment
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps lower-cased environment variable names to koanf paths.
var envMappings = map[string]string{
	"archive_exchange": "exchange",

	"store_driver":            "store.driver",
	"redis_host":              "store.host",
	"redis_port":              "store.port",
	"redis_username":          "store.username",
	"redis_password":          "store.password",
	"redis_db":                "store.db",
	"max_stream_size":         "store.max_stream_size",
	"scan_window":             "store.scan_window",
	"badger_path":             "store.badger.path",
	"badger_in_memory":        "store.badger.in_memory",
	"badger_sync_writes":      "store.badger.sync_writes",
	"badger_gc_interval":      "store.badger.gc_interval",
	"store_breaker_enabled":   "store.breaker.enabled",
	"store_breaker_threshold": "store.breaker.failure_threshold",
	"store_breaker_timeout":   "store.breaker.timeout",

	"transport_driver":       "transport.driver",
	"nats_url":               "transport.url",
	"nats_subject":           "transport.subject",
	"nats_embedded":          "transport.embedded",
	"nats_embedded_host":     "transport.embedded_host",
	"nats_embedded_port":     "transport.embedded_port",
	"transport_high_water":   "transport.high_water_mark",
	"transport_channel_size": "transport.channel_capacity",

	"encoding_mode":      "decoder.mode",
	"decoder_compressed": "decoder.compressed",

	"publish_async": "publisher.async",

	"shutdown_grace_period": "shutdown.grace_period",

	"http_enabled": "server.enabled",
	"http_host":    "server.host",
	"http_port":    "server.port",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc returns "" for variables that are not configuration,
// which makes koanf skip them.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
