// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package archive

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"

	"github.com/tomtom215/mktarchive/internal/logging"
)

// BadgerConfig configures the embedded store.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	InMemory    bool
	SyncWrites  bool
	Compression bool

	// GCRatio is the discard ratio passed to value log GC.
	GCRatio float64

	// CloseTimeout bounds Close.
	CloseTimeout time.Duration
}

// Key layout, one namespace per stream:
//
//	a/{stream}/e/{seq uint64 BE} -> JSON Entry
//	a/{stream}/seq               -> last assigned seq (uint64 BE)
//	a/{stream}/len               -> entry count (uint64 BE)
type badgerKeys struct {
	entries []byte
	seq     []byte
	length  []byte
}

func newBadgerKeys(stream string) badgerKeys {
	base := "a/" + stream + "/"
	return badgerKeys{
		entries: []byte(base + "e/"),
		seq:     []byte(base + "seq"),
		length:  []byte(base + "len"),
	}
}

func (k badgerKeys) entry(seq uint64) []byte {
	key := make([]byte, len(k.entries)+8)
	copy(key, k.entries)
	binary.BigEndian.PutUint64(key[len(k.entries):], seq)
	return key
}

// BadgerStore is a LogStore on an embedded BadgerDB. Publish runs Compact
// inside one read-write transaction; the store mutex serializes those
// transactions so they never conflict.
type BadgerStore struct {
	db   *badger.DB
	cfg  BadgerConfig
	opts Options
	keys badgerKeys

	mu     sync.Mutex
	closed bool
}

// OpenBadgerStore opens (or creates) the database described by cfg.
func OpenBadgerStore(cfg BadgerConfig, opts Options) (*BadgerStore, error) {
	bopts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.SyncWrites = cfg.SyncWrites
	if cfg.Compression {
		bopts.Compression = options.Snappy
	}
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}
	if cfg.GCRatio <= 0 {
		cfg.GCRatio = 0.5
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = 30 * time.Second
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Str("stream", opts.Stream).
		Msg("Badger archive opened")

	return &BadgerStore{db: db, cfg: cfg, opts: opts, keys: newBadgerKeys(opts.Stream)}, nil
}

func (s *BadgerStore) Publish(_ context.Context, e Entry) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Result{}, ErrStoreClosed
	}

	var res Result
	err := s.db.Update(func(txn *badger.Txn) error {
		var err error
		res, err = Compact(&badgerTx{txn: txn, keys: s.keys}, e, s.opts)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (s *BadgerStore) Len(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrStoreClosed
	}

	var n int64
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		n, err = (&badgerTx{txn: txn, keys: s.keys}).Len()
		return err
	})
	return n, err
}

func (s *BadgerStore) Entries(_ context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	var out []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, Prefix: s.keys.entries})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			e, err := decodeBadgerEntry(it.Item())
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

// RunGC reclaims value log space until badger reports nothing to rewrite.
func (s *BadgerStore) RunGC() error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrStoreClosed
	}

	for {
		err := s.db.RunValueLogGC(s.cfg.GCRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Close closes the database, giving up after CloseTimeout.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- s.db.Close() }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		logging.Info().Str("stream", s.opts.Stream).Msg("Badger archive closed")
		return nil
	case <-time.After(s.cfg.CloseTimeout):
		return fmt.Errorf("badger close timeout after %v", s.cfg.CloseTimeout)
	}
}

// badgerTx implements Tx. Badger allows a single open iterator per
// read-write transaction, so every method closes its iterator before
// returning.
type badgerTx struct {
	txn  *badger.Txn
	keys badgerKeys
}

func (tx *badgerTx) counter(key []byte) (uint64, error) {
	item, err := tx.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var v uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("counter %s: %d bytes", key, len(val))
		}
		v = binary.BigEndian.Uint64(val)
		return nil
	})
	return v, err
}

func (tx *badgerTx) setCounter(key []byte, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return tx.txn.Set(key, buf[:])
}

func (tx *badgerTx) Len() (int64, error) {
	n, err := tx.counter(tx.keys.length)
	return int64(n), err
}

func (tx *badgerTx) First() (Entry, bool, error) {
	it := tx.txn.NewIterator(badger.IteratorOptions{PrefetchValues: false, Prefix: tx.keys.entries})
	defer it.Close()

	it.Rewind()
	if !it.Valid() {
		return Entry{}, false, nil
	}
	e, err := decodeBadgerEntry(it.Item())
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (tx *badgerTx) RevRange(count int) ([]Entry, error) {
	it := tx.txn.NewIterator(badger.IteratorOptions{
		PrefetchValues: true,
		PrefetchSize:   min(count, 100),
		Reverse:        true,
		Prefix:         tx.keys.entries,
	})
	defer it.Close()

	// Seek in reverse lands on the largest key <= the seek key.
	seek := append(bytes.Clone(tx.keys.entries), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)

	out := make([]Entry, 0, count)
	for it.Seek(seek); it.Valid() && len(out) < count; it.Next() {
		e, err := decodeBadgerEntry(it.Item())
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (tx *badgerTx) Delete(id string) error {
	seq, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return fmt.Errorf("entry id %q: %w", id, err)
	}
	key := tx.keys.entry(seq)
	if _, err := tx.txn.Get(key); err != nil {
		return fmt.Errorf("entry %s: %w", id, err)
	}
	if err := tx.txn.Delete(key); err != nil {
		return err
	}
	n, err := tx.counter(tx.keys.length)
	if err != nil {
		return err
	}
	if n > 0 {
		n--
	}
	return tx.setCounter(tx.keys.length, n)
}

func (tx *badgerTx) Append(e Entry) (string, error) {
	seq, err := tx.counter(tx.keys.seq)
	if err != nil {
		return "", err
	}
	seq++
	e.ID = strconv.FormatUint(seq, 10)

	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal entry: %w", err)
	}
	if err := tx.txn.Set(tx.keys.entry(seq), data); err != nil {
		return "", err
	}
	if err := tx.setCounter(tx.keys.seq, seq); err != nil {
		return "", err
	}
	n, err := tx.counter(tx.keys.length)
	if err != nil {
		return "", err
	}
	return e.ID, tx.setCounter(tx.keys.length, n+1)
}

func decodeBadgerEntry(item *badger.Item) (Entry, error) {
	var e Entry
	err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &e)
	})
	if err != nil {
		return Entry{}, fmt.Errorf("decode entry %x: %w", item.Key(), err)
	}
	return e, nil
}
