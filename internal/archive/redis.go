// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package archive

import (
	"context"
	_ "embed"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/tomtom215/mktarchive/internal/logging"
)

//go:embed compact.lua
var compactLua string

var compactScript = redis.NewScript(1, compactLua)

// RedisConfig addresses the Redis server holding the archive streams.
type RedisConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	DB       int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	MaxIdle     int
	IdleTimeout time.Duration
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// RedisStore is a LogStore on a Redis stream. Compaction runs server-side
// as one Lua script, which Redis executes atomically.
type RedisStore struct {
	pool *redis.Pool
	opts Options

	mu     sync.Mutex
	closed bool
}

// NewRedisStore returns a store backed by a connection pool dialing cfg.
// No connection is made until the first operation.
func NewRedisStore(cfg RedisConfig, opts Options) *RedisStore {
	dialOpts := []redis.DialOption{
		redis.DialDatabase(cfg.DB),
		redis.DialConnectTimeout(cfg.DialTimeout),
		redis.DialReadTimeout(cfg.ReadTimeout),
		redis.DialWriteTimeout(cfg.WriteTimeout),
	}
	if cfg.Username != "" {
		dialOpts = append(dialOpts, redis.DialUsername(cfg.Username))
	}
	if cfg.Password != "" {
		dialOpts = append(dialOpts, redis.DialPassword(cfg.Password))
	}

	addr := cfg.Addr()
	pool := &redis.Pool{
		MaxIdle:     cfg.MaxIdle,
		IdleTimeout: cfg.IdleTimeout,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", addr, dialOpts...)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
	return NewRedisStoreWithPool(pool, opts)
}

// NewRedisStoreWithPool wraps an existing pool. The store closes the pool.
func NewRedisStoreWithPool(pool *redis.Pool, opts Options) *RedisStore {
	return &RedisStore{pool: pool, opts: opts}
}

func (s *RedisStore) conn(ctx context.Context) (redis.Conn, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrStoreClosed
	}
	c, err := s.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("establishing connection: %w", err)
	}
	return c, nil
}

func (s *RedisStore) Publish(ctx context.Context, e Entry) (Result, error) {
	c, err := s.conn(ctx)
	if err != nil {
		return Result{}, err
	}
	defer c.Close()

	reply, err := redis.Values(compactScript.DoContext(ctx, c,
		s.opts.Stream, e.Key, e.InfoCount, e.Payload, s.opts.MaxStreamSize, s.opts.window()))
	if err != nil {
		if strings.Contains(err.Error(), "INVALID_KEY_FORMAT") {
			return Result{}, fmt.Errorf("%w: %q", ErrFormat, e.Key)
		}
		return Result{}, fmt.Errorf("compact %s: %w", s.opts.Stream, err)
	}

	var (
		res       Result
		outcome   string
		operation string
	)
	if _, err := redis.Scan(reply, &outcome, &operation, &res.ReplacedCount,
		&res.Evicted, &res.DuplicatesRemoved, &res.EntryID); err != nil {
		return Result{}, fmt.Errorf("compact %s: unexpected reply: %w", s.opts.Stream, err)
	}
	res.Outcome, res.Operation = Outcome(outcome), Operation(operation)
	return res, nil
}

func (s *RedisStore) Len(ctx context.Context) (int64, error) {
	c, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}
	defer c.Close()
	return redis.Int64(redis.DoContext(c, ctx, "XLEN", s.opts.Stream))
}

func (s *RedisStore) Entries(ctx context.Context) ([]Entry, error) {
	c, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	msgs, err := redis.Values(redis.DoContext(c, ctx, "XRANGE", s.opts.Stream, "-", "+"))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.opts.Stream, err)
	}
	out := make([]Entry, 0, len(msgs))
	for _, m := range msgs {
		e, err := parseStreamEntry(m)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", s.opts.Stream, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func parseStreamEntry(m any) (Entry, error) {
	parts, err := redis.Values(m, nil)
	if err != nil || len(parts) != 2 {
		return Entry{}, fmt.Errorf("malformed stream entry: %v", err)
	}
	id, err := redis.String(parts[0], nil)
	if err != nil {
		return Entry{}, err
	}
	fields, err := redis.Values(parts[1], nil)
	if err != nil {
		return Entry{}, err
	}

	e := Entry{ID: id}
	for i := 0; i+1 < len(fields); i += 2 {
		name, _ := redis.String(fields[i], nil)
		switch name {
		case "key":
			e.Key, err = redis.String(fields[i+1], nil)
		case "info_count":
			e.InfoCount, err = redis.Int64(fields[i+1], nil)
		case "payload":
			e.Payload, err = redis.Bytes(fields[i+1], nil)
		case "operation":
			var op string
			op, err = redis.String(fields[i+1], nil)
			e.Operation = Operation(op)
		case "replaced_count":
			e.ReplacedCount, err = redis.Int(fields[i+1], nil)
		}
		if err != nil {
			return Entry{}, fmt.Errorf("entry %s field %s: %w", id, name, err)
		}
	}
	return e, nil
}

func (s *RedisStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	logging.Info().Str("stream", s.opts.Stream).Msg("Redis archive closed")
	return s.pool.Close()
}
