// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package archive

// Outcome is the decision a compaction transaction reached.
type Outcome string

const (
	// OutcomeUpdated means the entry was appended, possibly replacing an
	// earlier revision of the same period.
	OutcomeUpdated Outcome = "UPDATED"
	// OutcomeEqual means an existing revision has the same InfoCount.
	OutcomeEqual Outcome = "EQUAL"
	// OutcomeSkipped means an existing revision is more complete.
	OutcomeSkipped Outcome = "SKIPPED"
)

// Result describes one compaction transaction.
type Result struct {
	Outcome Outcome `json:"outcome"`

	// Operation and EntryID are set only for OutcomeUpdated.
	Operation Operation `json:"operation,omitempty"`
	EntryID   string    `json:"entry_id,omitempty"`

	// ReplacedCount is the number of same-period entries found in the
	// scan window, including duplicates.
	ReplacedCount int `json:"replaced_count"`

	// Evicted is 1 when retention removed the oldest entry.
	Evicted int `json:"evicted"`

	// DuplicatesRemoved counts same-period entries collapsed before the
	// comparison.
	DuplicatesRemoved int `json:"duplicates_removed"`
}
