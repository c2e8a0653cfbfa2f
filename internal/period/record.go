// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package period

// PriceLevel is one side of an order book level.
type PriceLevel struct {
	Price  float64 `cbor:"1,keyasint" json:"price"`
	Amount float64 `cbor:"2,keyasint" json:"amount"`
}

// Increment is an order book delta, or a full snapshot when IsSnapshot is set.
type Increment struct {
	Timestamp  int64        `cbor:"1,keyasint" json:"timestamp"`
	IsSnapshot bool         `cbor:"2,keyasint" json:"is_snapshot"`
	Bids       []PriceLevel `cbor:"3,keyasint" json:"bids"`
	Asks       []PriceLevel `cbor:"4,keyasint" json:"asks"`
}

// Trade is a single public trade print.
type Trade struct {
	Timestamp int64   `cbor:"1,keyasint" json:"timestamp"`
	Side      string  `cbor:"2,keyasint" json:"side"`
	Price     float64 `cbor:"3,keyasint" json:"price"`
	Amount    float64 `cbor:"4,keyasint" json:"amount"`
}

// SymbolInfo groups everything captured for one symbol during a period.
type SymbolInfo struct {
	Symbol string      `cbor:"1,keyasint" json:"symbol"`
	Trades []Trade     `cbor:"2,keyasint" json:"trades"`
	Incs   []Increment `cbor:"3,keyasint" json:"incs"`
}

// Record is the capture of one trading period by one poster.
//
// A poster may publish the same period several times as late data arrives;
// PostTS distinguishes those revisions and InfoCount ranks them.
type Record struct {
	Period      int64        `cbor:"1,keyasint" json:"period"`
	TS          int64        `cbor:"2,keyasint" json:"ts"`
	PostTS      int64        `cbor:"3,keyasint" json:"post_ts"`
	PosterID    string       `cbor:"4,keyasint" json:"poster_id"`
	SymbolInfos []SymbolInfo `cbor:"5,keyasint" json:"symbol_infos"`
}

// InfoCount is the number of trades plus the number of increments across all
// symbols. Book depth inside an increment does not contribute.
func (r *Record) InfoCount() int64 {
	var n int64
	for i := range r.SymbolInfos {
		n += int64(len(r.SymbolInfos[i].Trades) + len(r.SymbolInfos[i].Incs))
	}
	return n
}

// SymbolSummary is the per-symbol shape of a record, used for logging.
type SymbolSummary struct {
	Symbol string `json:"symbol"`
	Trades int    `json:"trades"`
	Incs   int    `json:"incs"`
}

// Summary lists trade and increment counts per symbol in record order.
func (r *Record) Summary() []SymbolSummary {
	out := make([]SymbolSummary, 0, len(r.SymbolInfos))
	for i := range r.SymbolInfos {
		si := &r.SymbolInfos[i]
		out = append(out, SymbolSummary{Symbol: si.Symbol, Trades: len(si.Trades), Incs: len(si.Incs)})
	}
	return out
}
