// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultRedisImage supports streams and scripting.
	DefaultRedisImage = "redis:7-alpine"

	redisPort = "6379/tcp"
)

// RedisContainer is a running Redis server.
type RedisContainer struct {
	testcontainers.Container
	Host     string
	Port     int
	Password string
}

// RedisOption customizes NewRedisContainer.
type RedisOption func(*redisConfig)

type redisConfig struct {
	image        string
	password     string
	startTimeout time.Duration
}

// WithRedisImage overrides DefaultRedisImage.
func WithRedisImage(image string) RedisOption {
	return func(c *redisConfig) { c.image = image }
}

// WithRedisPassword starts the server with requirepass.
func WithRedisPassword(password string) RedisOption {
	return func(c *redisConfig) { c.password = password }
}

// NewRedisContainer starts Redis and waits until it accepts commands.
//
//	rc, err := testinfra.NewRedisContainer(ctx, testinfra.WithRedisPassword("s3cret"))
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer testinfra.CleanupContainer(t, ctx, rc)
func NewRedisContainer(ctx context.Context, opts ...RedisOption) (*RedisContainer, error) {
	cfg := &redisConfig{image: DefaultRedisImage, startTimeout: 60 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}

	cmd := []string{"redis-server", "--save", "", "--appendonly", "no"}
	if cfg.password != "" {
		cmd = append(cmd, "--requirepass", cfg.password)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{redisPort},
		Cmd:          cmd,
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(redisPort),
			wait.ForLog("Ready to accept connections"),
		).WithStartupTimeout(cfg.startTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create redis container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get container host: %w", err)
	}
	mapped, err := container.MappedPort(ctx, redisPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped port: %w", err)
	}
	port, err := strconv.Atoi(mapped.Port())
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("parse mapped port %q: %w", mapped.Port(), err)
	}

	return &RedisContainer{Container: container, Host: host, Port: port, Password: cfg.password}, nil
}
