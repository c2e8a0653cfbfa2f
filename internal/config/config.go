// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config is the complete archiver configuration.
type Config struct {
	// Exchange names the archive stream.
	Exchange string `koanf:"exchange" validate:"required"`

	Store      StoreConfig      `koanf:"store"`
	Transport  TransportConfig  `koanf:"transport"`
	Decoder    DecoderConfig    `koanf:"decoder"`
	Publisher  PublisherConfig  `koanf:"publisher"`
	Shutdown   ShutdownConfig   `koanf:"shutdown"`
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// StoreConfig selects and configures the log store.
type StoreConfig struct {
	Driver string `koanf:"driver" validate:"oneof=redis badger memory"`

	Host     string `koanf:"host"`
	Port     int    `koanf:"port" validate:"min=1,max=65535"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db" validate:"gte=0"`

	// MaxStreamSize bounds the log length; 0 disables eviction.
	MaxStreamSize int64 `koanf:"max_stream_size" validate:"gte=0"`
	ScanWindow    int   `koanf:"scan_window" validate:"gte=1"`

	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	MaxIdle      int           `koanf:"max_idle" validate:"gte=0"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`

	Badger  BadgerConfig  `koanf:"badger"`
	Breaker BreakerConfig `koanf:"breaker"`
}

// Addr is host:port of the Redis server.
func (c StoreConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// BadgerConfig configures the embedded store.
type BadgerConfig struct {
	Path        string        `koanf:"path"`
	InMemory    bool          `koanf:"in_memory"`
	SyncWrites  bool          `koanf:"sync_writes"`
	Compression bool          `koanf:"compression"`
	GCInterval  time.Duration `koanf:"gc_interval"`
	GCRatio     float64       `koanf:"gc_ratio" validate:"gt=0,lt=1"`
}

// BreakerConfig guards store calls.
type BreakerConfig struct {
	Enabled          bool          `koanf:"enabled"`
	FailureThreshold uint32        `koanf:"failure_threshold" validate:"gte=1"`
	Timeout          time.Duration `koanf:"timeout"`
	MaxRequests      uint32        `koanf:"max_requests" validate:"gte=1"`
}

// TransportConfig selects and configures the envelope source.
type TransportConfig struct {
	Driver  string `koanf:"driver" validate:"oneof=nats watermill"`
	URL     string `koanf:"url"`
	Subject string `koanf:"subject" validate:"required"`
	Name    string `koanf:"name"`

	// Embedded starts an in-process NATS server and dials it instead of URL.
	Embedded     bool   `koanf:"embedded"`
	EmbeddedHost string `koanf:"embedded_host"`
	EmbeddedPort int    `koanf:"embedded_port" validate:"gte=-1,lte=65535"`

	HighWaterMark   int `koanf:"high_water_mark" validate:"gte=1"`
	ChannelCapacity int `koanf:"channel_capacity" validate:"gte=1"`

	IdleBackoff   time.Duration `koanf:"idle_backoff"`
	ErrorBackoff  time.Duration `koanf:"error_backoff"`
	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
}

// Encoding modes accepted by DecoderConfig.Mode.
const (
	ModePrimary         = "primary"
	ModeLegacy          = "legacy"
	ModeRejectAmbiguous = "reject-ambiguous"
)

// DecoderConfig selects the envelope wire format.
type DecoderConfig struct {
	Mode       string `koanf:"mode" validate:"oneof=primary legacy reject-ambiguous"`
	Compressed bool   `koanf:"compressed"`
}

// PublisherConfig selects the publish call.
type PublisherConfig struct {
	Async bool `koanf:"async"`
}

// ShutdownConfig bounds the drain after a termination signal.
type ShutdownConfig struct {
	GracePeriod time.Duration `koanf:"grace_period"`
}

// ServerConfig configures the ops HTTP server.
type ServerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr is host:port to listen on.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// SupervisorConfig tunes the suture restart policy.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gt=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gt=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

func (c *Config) String() string {
	return fmt.Sprintf("exchange=%s store=%s(%s) transport=%s(%s %s) mode=%s compressed=%t async=%t",
		c.Exchange, c.Store.Driver, c.storeTarget(),
		c.Transport.Driver, c.Transport.URL, c.Transport.Subject,
		c.Decoder.Mode, c.Decoder.Compressed, c.Publisher.Async)
}

func (c *Config) storeTarget() string {
	switch c.Store.Driver {
	case "redis":
		return c.Store.Addr()
	case "badger":
		if c.Store.Badger.InMemory {
			return "in-memory"
		}
		return c.Store.Badger.Path
	default:
		return "process"
	}
}
