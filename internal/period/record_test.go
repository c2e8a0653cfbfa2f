// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package period

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// sampleRecord returns a record with two symbols: 2 trades + 1 increment
// and 0 trades + 2 increments.
func sampleRecord() *Record {
	return &Record{
		Period:   1717000000,
		TS:       1717000000123,
		PostTS:   1717000000456,
		PosterID: "poster-7",
		SymbolInfos: []SymbolInfo{
			{
				Symbol: "BTCUSDT",
				Trades: []Trade{
					{Timestamp: 1717000000001, Side: "buy", Price: 67123.5, Amount: 0.25},
					{Timestamp: 1717000000002, Side: "sell", Price: 67123.25, Amount: 1.125},
				},
				Incs: []Increment{
					{
						Timestamp:  1717000000003,
						IsSnapshot: true,
						Bids:       []PriceLevel{{Price: 67120, Amount: 3}, {Price: 67119.5, Amount: 0.1}},
						Asks:       []PriceLevel{{Price: 67125, Amount: 2.5}},
					},
				},
			},
			{
				Symbol: "ETHUSDT",
				Incs: []Increment{
					{Timestamp: 1717000000010, Bids: []PriceLevel{{Price: 3500.01, Amount: 10}}},
					{Timestamp: 1717000000011, Asks: []PriceLevel{{Price: 3500.02, Amount: 0}}},
				},
			},
		},
	}
}

func TestInfoCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rec  *Record
		want int64
	}{
		{"empty", &Record{}, 0},
		{"symbols without data", &Record{SymbolInfos: []SymbolInfo{{Symbol: "A"}, {Symbol: "B"}}}, 0},
		{"sample", sampleRecord(), 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.rec.InfoCount(); got != tt.want {
				t.Errorf("InfoCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestInfoCountIgnoresBookDepth(t *testing.T) {
	t.Parallel()

	rec := &Record{SymbolInfos: []SymbolInfo{{
		Symbol: "X",
		Incs:   []Increment{{Bids: make([]PriceLevel, 50), Asks: make([]PriceLevel, 50)}},
	}}}
	if got := rec.InfoCount(); got != 1 {
		t.Errorf("InfoCount() = %d, want 1", got)
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()

	want := []SymbolSummary{
		{Symbol: "BTCUSDT", Trades: 2, Incs: 1},
		{Symbol: "ETHUSDT", Trades: 0, Incs: 2},
	}
	if diff := cmp.Diff(want, sampleRecord().Summary()); diff != "" {
		t.Errorf("Summary() mismatch (-want +got):\n%s", diff)
	}
}
