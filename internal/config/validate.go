// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package config

import (
	"errors"
	"fmt"

	"github.com/tomtom215/mktarchive/internal/period"
	"github.com/tomtom215/mktarchive/internal/validation"
)

// ErrAmbiguousMode rejects the reject-ambiguous encoding mode. Telling the
// two formats apart would need sniffing, which the decoder does not do.
var ErrAmbiguousMode = errors.New("encoding mode reject-ambiguous is not supported; choose primary or legacy")

// Validate checks struct tags, then rules spanning several fields.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	if c.Decoder.Mode == ModeRejectAmbiguous {
		return ErrAmbiguousMode
	}
	if c.Store.Driver == "redis" && c.Store.Host == "" {
		return fmt.Errorf("store.host is required for the redis driver")
	}
	if c.Store.Driver == "badger" && !c.Store.Badger.InMemory && c.Store.Badger.Path == "" {
		return fmt.Errorf("store.badger.path is required unless store.badger.in_memory is set")
	}
	if !c.Transport.Embedded && c.Transport.URL == "" {
		return fmt.Errorf("transport.url is required unless transport.embedded is set")
	}
	if c.Shutdown.GracePeriod <= 0 {
		return fmt.Errorf("shutdown.grace_period must be positive")
	}
	return nil
}

// Format returns the decoder format selected by Decoder.Mode.
func (c *Config) Format() (period.Format, error) {
	if c.Decoder.Mode == ModeRejectAmbiguous {
		return 0, ErrAmbiguousMode
	}
	return period.ParseFormat(c.Decoder.Mode)
}
