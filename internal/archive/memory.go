// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package archive

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
)

// MemoryStore is an in-process LogStore. Each Publish works on a copy of the
// log under the store mutex and swaps it in only on success.
type MemoryStore struct {
	opts Options

	mu      sync.Mutex
	entries []Entry
	seq     uint64
	closed  bool
}

// NewMemoryStore returns an empty log.
func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{opts: opts}
}

func (s *MemoryStore) Publish(_ context.Context, e Entry) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Result{}, ErrStoreClosed
	}

	tx := &memTx{entries: slices.Clone(s.entries), seq: s.seq}
	res, err := Compact(tx, e, s.opts)
	if err != nil {
		return Result{}, err
	}
	s.entries, s.seq = tx.entries, tx.seq
	return res, nil
}

func (s *MemoryStore) Len(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrStoreClosed
	}
	return int64(len(s.entries)), nil
}

func (s *MemoryStore) Entries(_ context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	return slices.Clone(s.entries), nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// memTx holds entries oldest first.
type memTx struct {
	entries []Entry
	seq     uint64
}

func (tx *memTx) Len() (int64, error) {
	return int64(len(tx.entries)), nil
}

func (tx *memTx) First() (Entry, bool, error) {
	if len(tx.entries) == 0 {
		return Entry{}, false, nil
	}
	return tx.entries[0], true, nil
}

func (tx *memTx) RevRange(count int) ([]Entry, error) {
	n := min(count, len(tx.entries))
	out := make([]Entry, 0, n)
	for i := len(tx.entries) - 1; i >= len(tx.entries)-n; i-- {
		out = append(out, tx.entries[i])
	}
	return out, nil
}

func (tx *memTx) Delete(id string) error {
	i := slices.IndexFunc(tx.entries, func(e Entry) bool { return e.ID == id })
	if i < 0 {
		return fmt.Errorf("entry %s not found", id)
	}
	tx.entries = slices.Delete(tx.entries, i, i+1)
	return nil
}

func (tx *memTx) Append(e Entry) (string, error) {
	tx.seq++
	e.ID = strconv.FormatUint(tx.seq, 10)
	tx.entries = append(tx.entries, e)
	return e.ID, nil
}
