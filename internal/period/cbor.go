// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package period

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("period: CBOR encoder initialization failed: " + err.Error())
	}

	// Duplicate keys would make "the" value of a field ambiguous.
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("period: CBOR decoder initialization failed: " + err.Error())
	}
}

type cborCodec struct{}

func (cborCodec) marshal(rec *Record) ([]byte, error) {
	return encMode.Marshal(rec)
}

func (cborCodec) unmarshal(data []byte) (*Record, error) {
	var rec Record
	if err := decMode.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return &rec, nil
}
