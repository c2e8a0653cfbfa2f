// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package period

import (
	"fmt"
	"math"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the legacy protobuf schema:
//
//	message PeriodMessage { int64 period = 1; int64 ts = 2; int64 post_ts = 3;
//	                        string poster_id = 4; repeated SymbolInfo symbol_infos = 5; }
//	message SymbolInfo    { string symbol = 1; repeated TradeInfo trades = 2;
//	                        repeated IncrementOrderBookInfo incs = 3; }
//	message TradeInfo     { int64 timestamp = 1; string side = 2; double price = 3; double amount = 4; }
//	message IncrementOrderBookInfo { int64 timestamp = 1; bool is_snapshot = 2;
//	                        repeated PriceLevel bids = 3; repeated PriceLevel asks = 4; }
//	message PriceLevel    { double price = 1; double amount = 2; }
//
// Zero values are omitted on encode, as proto3 does.
type legacyCodec struct{}

func (legacyCodec) marshal(rec *Record) ([]byte, error) {
	return appendRecord(nil, rec), nil
}

func (legacyCodec) unmarshal(data []byte) (*Record, error) {
	var rec Record
	if err := parseRecord(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, 1)
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 && !math.Signbit(v) {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendMessage(b []byte, num protowire.Number, body []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, body)
}

func appendRecord(b []byte, r *Record) []byte {
	b = appendInt64(b, 1, r.Period)
	b = appendInt64(b, 2, r.TS)
	b = appendInt64(b, 3, r.PostTS)
	b = appendString(b, 4, r.PosterID)
	for i := range r.SymbolInfos {
		b = appendMessage(b, 5, appendSymbolInfo(nil, &r.SymbolInfos[i]))
	}
	return b
}

func appendSymbolInfo(b []byte, s *SymbolInfo) []byte {
	b = appendString(b, 1, s.Symbol)
	for i := range s.Trades {
		b = appendMessage(b, 2, appendTrade(nil, &s.Trades[i]))
	}
	for i := range s.Incs {
		b = appendMessage(b, 3, appendIncrement(nil, &s.Incs[i]))
	}
	return b
}

func appendTrade(b []byte, t *Trade) []byte {
	b = appendInt64(b, 1, t.Timestamp)
	b = appendString(b, 2, t.Side)
	b = appendDouble(b, 3, t.Price)
	return appendDouble(b, 4, t.Amount)
}

func appendIncrement(b []byte, inc *Increment) []byte {
	b = appendInt64(b, 1, inc.Timestamp)
	b = appendBool(b, 2, inc.IsSnapshot)
	for i := range inc.Bids {
		b = appendMessage(b, 3, appendPriceLevel(nil, &inc.Bids[i]))
	}
	for i := range inc.Asks {
		b = appendMessage(b, 4, appendPriceLevel(nil, &inc.Asks[i]))
	}
	return b
}

func appendPriceLevel(b []byte, p *PriceLevel) []byte {
	b = appendDouble(b, 1, p.Price)
	return appendDouble(b, 2, p.Amount)
}

// field is one decoded tag with the bytes that follow it.
type field struct {
	num protowire.Number
	typ protowire.Type
	buf []byte
}

// walk calls fn for every field in b. fn returns how many bytes of f.buf it
// consumed, or 0 to have the field skipped as unknown.
func walk(b []byte, fn func(f field) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrFormat, protowire.ParseError(n))
		}
		b = b[n:]

		used, err := fn(field{num: num, typ: typ, buf: b})
		if err != nil {
			return err
		}
		if used == 0 {
			if used = protowire.ConsumeFieldValue(num, typ, b); used < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrFormat, num, protowire.ParseError(used))
			}
		}
		b = b[used:]
	}
	return nil
}

func (f field) want(typ protowire.Type) error {
	if f.typ != typ {
		return fmt.Errorf("%w: field %d has wire type %d, want %d", ErrFormat, f.num, f.typ, typ)
	}
	return nil
}

func (f field) varint() (uint64, int, error) {
	if err := f.want(protowire.VarintType); err != nil {
		return 0, 0, err
	}
	v, n := protowire.ConsumeVarint(f.buf)
	if n < 0 {
		return 0, 0, fmt.Errorf("%w: field %d: %v", ErrFormat, f.num, protowire.ParseError(n))
	}
	return v, n, nil
}

func (f field) double() (float64, int, error) {
	if err := f.want(protowire.Fixed64Type); err != nil {
		return 0, 0, err
	}
	v, n := protowire.ConsumeFixed64(f.buf)
	if n < 0 {
		return 0, 0, fmt.Errorf("%w: field %d: %v", ErrFormat, f.num, protowire.ParseError(n))
	}
	return math.Float64frombits(v), n, nil
}

func (f field) bytes() ([]byte, int, error) {
	if err := f.want(protowire.BytesType); err != nil {
		return nil, 0, err
	}
	v, n := protowire.ConsumeBytes(f.buf)
	if n < 0 {
		return nil, 0, fmt.Errorf("%w: field %d: %v", ErrFormat, f.num, protowire.ParseError(n))
	}
	return v, n, nil
}

func (f field) str() (string, int, error) {
	v, n, err := f.bytes()
	if err != nil {
		return "", 0, err
	}
	if !utf8.Valid(v) {
		return "", 0, fmt.Errorf("%w: field %d is not valid UTF-8", ErrFormat, f.num)
	}
	return string(v), n, nil
}

func (f field) int64() (int64, int, error) {
	v, n, err := f.varint()
	return int64(v), n, err
}

func parseRecord(b []byte, r *Record) error {
	return walk(b, func(f field) (int, error) {
		var (
			n   int
			err error
		)
		switch f.num {
		case 1:
			r.Period, n, err = f.int64()
		case 2:
			r.TS, n, err = f.int64()
		case 3:
			r.PostTS, n, err = f.int64()
		case 4:
			r.PosterID, n, err = f.str()
		case 5:
			var body []byte
			if body, n, err = f.bytes(); err == nil {
				var si SymbolInfo
				err = parseSymbolInfo(body, &si)
				r.SymbolInfos = append(r.SymbolInfos, si)
			}
		}
		return n, err
	})
}

func parseSymbolInfo(b []byte, s *SymbolInfo) error {
	return walk(b, func(f field) (int, error) {
		var (
			n    int
			err  error
			body []byte
		)
		switch f.num {
		case 1:
			s.Symbol, n, err = f.str()
		case 2:
			if body, n, err = f.bytes(); err == nil {
				var t Trade
				err = parseTrade(body, &t)
				s.Trades = append(s.Trades, t)
			}
		case 3:
			if body, n, err = f.bytes(); err == nil {
				var inc Increment
				err = parseIncrement(body, &inc)
				s.Incs = append(s.Incs, inc)
			}
		}
		return n, err
	})
}

func parseTrade(b []byte, t *Trade) error {
	return walk(b, func(f field) (int, error) {
		var (
			n   int
			err error
		)
		switch f.num {
		case 1:
			t.Timestamp, n, err = f.int64()
		case 2:
			t.Side, n, err = f.str()
		case 3:
			t.Price, n, err = f.double()
		case 4:
			t.Amount, n, err = f.double()
		}
		return n, err
	})
}

func parseIncrement(b []byte, inc *Increment) error {
	return walk(b, func(f field) (int, error) {
		var (
			n    int
			err  error
			body []byte
		)
		switch f.num {
		case 1:
			inc.Timestamp, n, err = f.int64()
		case 2:
			var v uint64
			v, n, err = f.varint()
			inc.IsSnapshot = v != 0
		case 3, 4:
			if body, n, err = f.bytes(); err == nil {
				var lvl PriceLevel
				err = parsePriceLevel(body, &lvl)
				if f.num == 3 {
					inc.Bids = append(inc.Bids, lvl)
				} else {
					inc.Asks = append(inc.Asks, lvl)
				}
			}
		}
		return n, err
	})
}

func parsePriceLevel(b []byte, p *PriceLevel) error {
	return walk(b, func(f field) (int, error) {
		var (
			n   int
			err error
		)
		switch f.num {
		case 1:
			p.Price, n, err = f.double()
		case 2:
			p.Amount, n, err = f.double()
		}
		return n, err
	})
}
