// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package archive

import (
	"fmt"
	"strconv"
	"strings"
)

// KeySeparator splits an entry key into post timestamp and period.
const KeySeparator = "-"

// Operation tags how an entry came to be written.
type Operation string

const (
	// OpInsert marks the first entry seen for a period.
	OpInsert Operation = "INSERT"
	// OpUpdate marks an entry that replaced an earlier revision.
	OpUpdate Operation = "UPDATE"
)

// Entry is one record in the archive log. Entries are immutable once
// appended; a period is updated by deleting its entry and appending a new one.
type Entry struct {
	// ID is assigned by the store on append and orders entries. Empty for
	// entries that have not been written yet.
	ID string `json:"id,omitempty"`

	Key       string `json:"key"`
	InfoCount int64  `json:"info_count"`
	Payload   []byte `json:"payload"`

	Operation     Operation `json:"operation,omitempty"`
	ReplacedCount int       `json:"replaced_count"`
}

// NewEntry builds the entry for one revision of a period.
func NewEntry(period, postTS, infoCount int64, payload []byte) Entry {
	return Entry{
		Key:       FormatKey(postTS, period),
		InfoCount: infoCount,
		Payload:   payload,
	}
}

// FormatKey returns "{post_ts}-{period}".
func FormatKey(postTS, period int64) string {
	return strconv.FormatInt(postTS, 10) + KeySeparator + strconv.FormatInt(period, 10)
}

// PeriodOf returns the part of key after the first separator.
func PeriodOf(key string) (string, error) {
	_, period, ok := strings.Cut(key, KeySeparator)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrFormat, key)
	}
	return period, nil
}
