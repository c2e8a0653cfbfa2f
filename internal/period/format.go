// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package period

import (
	"fmt"
	"strings"
)

// Format selects the wire encoding of an envelope.
type Format uint8

const (
	// FormatPrimary is the default encoding for new producers.
	FormatPrimary Format = iota
	// FormatLegacy is the protobuf encoding of older producers.
	FormatLegacy

	numFormats
)

func (f Format) String() string {
	switch f {
	case FormatPrimary:
		return "primary"
	case FormatLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

// ParseFormat maps a configuration name to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "primary", "":
		return FormatPrimary, nil
	case "legacy":
		return FormatLegacy, nil
	default:
		return 0, fmt.Errorf("%w: unknown format %q", ErrFormat, name)
	}
}

// codec is one wire encoding. Implementations operate on uncompressed bytes.
type codec interface {
	marshal(rec *Record) ([]byte, error)
	unmarshal(data []byte) (*Record, error)
}

var codecs = [numFormats]codec{
	FormatPrimary: cborCodec{},
	FormatLegacy:  legacyCodec{},
}

func (f Format) codec() (codec, error) {
	if f >= numFormats {
		return nil, fmt.Errorf("%w: unsupported %s", ErrFormat, f)
	}
	return codecs[f], nil
}

// Decode parses envelope as format, inflating it first when compressed is set.
func Decode(envelope []byte, compressed bool, format Format) (*Record, error) {
	c, err := format.codec()
	if err != nil {
		return nil, err
	}
	data := envelope
	if compressed {
		if data, err = inflate(envelope); err != nil {
			return nil, err
		}
	}
	rec, err := c.unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}
	return rec, nil
}

// Encode serializes rec as format, deflating the result when compressed is
// set. The zero Format is FormatPrimary.
func Encode(rec *Record, compressed bool, format Format) ([]byte, error) {
	c, err := format.codec()
	if err != nil {
		return nil, err
	}
	data, err := c.marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	if !compressed {
		return data, nil
	}
	return deflate(data)
}
