// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/mktarchive/internal/period"
	"github.com/tomtom215/mktarchive/internal/validation"
)

// isolate runs the test in an empty directory with no config file
// discoverable through the environment.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(ConfigPathEnvVar, "")
	return dir
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "archiver.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Exchange != "binance" {
		t.Errorf("Exchange = %q", cfg.Exchange)
	}
	if cfg.Store.Driver != "redis" || cfg.Store.Addr() != "127.0.0.1:6379" {
		t.Errorf("Store = %s %s", cfg.Store.Driver, cfg.Store.Addr())
	}
	if cfg.Store.ScanWindow != 100 {
		t.Errorf("ScanWindow = %d, want 100", cfg.Store.ScanWindow)
	}
	if cfg.Transport.HighWaterMark != 100 || cfg.Transport.ChannelCapacity != 3 {
		t.Errorf("Transport = %+v", cfg.Transport)
	}
	if cfg.Transport.IdleBackoff != time.Millisecond || cfg.Transport.ErrorBackoff != time.Second {
		t.Errorf("backoffs = %v/%v", cfg.Transport.IdleBackoff, cfg.Transport.ErrorBackoff)
	}
	if cfg.Shutdown.GracePeriod != 100*time.Millisecond {
		t.Errorf("GracePeriod = %v", cfg.Shutdown.GracePeriod)
	}
	if f, err := cfg.Format(); err != nil || f != period.FormatPrimary {
		t.Errorf("Format = %v, %v", f, err)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, `
exchange: okx
store:
  driver: badger
  max_stream_size: 500
  badger:
    in_memory: true
transport:
  subject: mkt.okx
  error_backoff: 250ms
decoder:
  mode: legacy
  compressed: false
`)
	t.Setenv("MAX_STREAM_SIZE", "42")
	t.Setenv("PUBLISH_ASYNC", "true")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Exchange != "okx" || cfg.Store.Driver != "badger" || !cfg.Store.Badger.InMemory {
		t.Errorf("file values not applied: %s", cfg)
	}
	if cfg.Store.MaxStreamSize != 42 {
		t.Errorf("MaxStreamSize = %d, want env override 42", cfg.Store.MaxStreamSize)
	}
	if !cfg.Publisher.Async {
		t.Error("PUBLISH_ASYNC not applied")
	}
	if cfg.Transport.ErrorBackoff != 250*time.Millisecond {
		t.Errorf("ErrorBackoff = %v", cfg.Transport.ErrorBackoff)
	}
	if cfg.Transport.URL != "nats://127.0.0.1:4222" {
		t.Errorf("unset key lost its default: %q", cfg.Transport.URL)
	}
	if f, _ := cfg.Format(); f != period.FormatLegacy {
		t.Errorf("Format = %v, want legacy", f)
	}
}

func TestLoadConfigPathEnv(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, "exchange: kraken\n")
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Exchange != "kraken" {
		t.Errorf("Exchange = %q", cfg.Exchange)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	if _, err := Load("/nonexistent/mktarchive.yaml"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}

func TestLoadRejectsAmbiguousMode(t *testing.T) {
	isolate(t)
	t.Setenv("ENCODING_MODE", "reject-ambiguous")

	if _, err := Load(""); !errors.Is(err, ErrAmbiguousMode) {
		t.Errorf("err = %v, want ErrAmbiguousMode", err)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		path string
	}{
		{"unknown mode", map[string]string{"ENCODING_MODE": "sniff"}, "decoder.mode"},
		{"unknown store", map[string]string{"STORE_DRIVER": "postgres"}, "store.driver"},
		{"bad port", map[string]string{"REDIS_PORT": "0"}, "store.port"},
		{"negative max", map[string]string{"MAX_STREAM_SIZE": "-1"}, "store.max_stream_size"},
		{"empty exchange", map[string]string{"ARCHIVE_EXCHANGE": ""}, "exchange"},
		{"log level", map[string]string{"LOG_LEVEL": "loud"}, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			var verr *validation.Error
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want validation error", err)
			}
			if !verr.Has(tt.path) {
				t.Errorf("error %q does not name %s", verr, tt.path)
			}
		})
	}
}

func TestValidateCrossFieldRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"redis without host", func(c *Config) { c.Store.Host = "" }, "store.host"},
		{"badger without path", func(c *Config) {
			c.Store.Driver = "badger"
			c.Store.Badger.Path = ""
		}, "store.badger.path"},
		{"no url and not embedded", func(c *Config) { c.Transport.URL = "" }, "transport.url"},
		{"zero grace", func(c *Config) { c.Shutdown.GracePeriod = 0 }, "grace_period"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	if got := envTransformFunc("REDIS_PASSWORD"); got != "store.password" {
		t.Errorf("REDIS_PASSWORD -> %q", got)
	}
	if got := envTransformFunc("ARCHIVE_EXCHANGE"); got != "exchange" {
		t.Errorf("ARCHIVE_EXCHANGE -> %q", got)
	}
	if got := envTransformFunc("DECODER_COMPRESSED"); got != "decoder.compressed" {
		t.Errorf("DECODER_COMPRESSED -> %q", got)
	}
	for _, generic := range []string{"HOME", "EXCHANGE", "COMPRESSED"} {
		if got := envTransformFunc(generic); got != "" {
			t.Errorf("%s -> %q, want ignored", generic, got)
		}
	}
}

func TestLoadIgnoresGenericEnvNames(t *testing.T) {
	isolate(t)
	t.Setenv("EXCHANGE", "kraken")
	t.Setenv("COMPRESSED", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Exchange != "binance" || !cfg.Decoder.Compressed {
		t.Errorf("generic variables leaked into config: exchange=%q compressed=%v",
			cfg.Exchange, cfg.Decoder.Compressed)
	}
}

func TestConfigStringOmitsPassword(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Store.Password = "hunter2"
	if strings.Contains(cfg.String(), "hunter2") {
		t.Error("String leaks the store password")
	}
}
