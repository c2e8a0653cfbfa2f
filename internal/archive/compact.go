// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package archive

import "fmt"

// Tx is the view of one log inside an exclusive transaction. Entry IDs
// returned by Tx are only meaningful to the same store.
type Tx interface {
	Len() (int64, error)

	// First returns the oldest entry; ok is false when the log is empty.
	First() (e Entry, ok bool, err error)

	// RevRange returns up to count entries, newest first.
	RevRange(count int) ([]Entry, error)

	Delete(id string) error

	// Append stores e and returns its new ID.
	Append(e Entry) (string, error)
}

// Compact applies one compaction step for e to tx. The caller provides the
// atomicity: on error, nothing done through tx may be committed.
func Compact(tx Tx, e Entry, opts Options) (Result, error) {
	period, err := PeriodOf(e.Key)
	if err != nil {
		return Result{}, err
	}

	var res Result

	if opts.MaxStreamSize > 0 {
		n, err := tx.Len()
		if err != nil {
			return Result{}, fmt.Errorf("length: %w", err)
		}
		if n >= opts.MaxStreamSize {
			oldest, ok, err := tx.First()
			if err != nil {
				return Result{}, fmt.Errorf("oldest entry: %w", err)
			}
			if ok {
				if err := tx.Delete(oldest.ID); err != nil {
					return Result{}, fmt.Errorf("evict %s: %w", oldest.ID, err)
				}
				res.Evicted = 1
			}
		}
	}

	recent, err := tx.RevRange(opts.window())
	if err != nil {
		return Result{}, fmt.Errorf("scan: %w", err)
	}

	var (
		matches  []string
		keep     string
		maxCount int64
	)
	for i := range recent {
		p, err := PeriodOf(recent[i].Key)
		if err != nil || p != period {
			continue
		}
		matches = append(matches, recent[i].ID)
		if keep == "" || recent[i].InfoCount > maxCount {
			keep, maxCount = recent[i].ID, recent[i].InfoCount
		}
	}

	if len(matches) > 1 {
		for _, id := range matches {
			if id == keep {
				continue
			}
			if err := tx.Delete(id); err != nil {
				return Result{}, fmt.Errorf("collapse duplicate %s: %w", id, err)
			}
			res.DuplicatesRemoved++
		}
	}
	res.ReplacedCount = len(matches)

	switch {
	case e.InfoCount > maxCount:
		e.Operation = OpInsert
		if keep != "" {
			if err := tx.Delete(keep); err != nil {
				return Result{}, fmt.Errorf("replace %s: %w", keep, err)
			}
			e.Operation = OpUpdate
		}
		e.ReplacedCount = len(matches)
		e.ID = ""
		id, err := tx.Append(e)
		if err != nil {
			return Result{}, fmt.Errorf("append: %w", err)
		}
		res.Outcome, res.Operation, res.EntryID = OutcomeUpdated, e.Operation, id
	case e.InfoCount == maxCount:
		res.Outcome = OutcomeEqual
	default:
		res.Outcome = OutcomeSkipped
	}
	return res, nil
}
