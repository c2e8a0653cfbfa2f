// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

// Package validation wraps go-playground/validator v10 with a shared
// instance and readable error messages.
//
// Field names in errors are the dotted koanf paths of the offending keys
// (for example "store.port"), so a message points straight at the line of
// the YAML file or the environment variable to fix:
//
//	type StoreConfig struct {
//	    Port int `koanf:"port" validate:"min=1,max=65535"`
//	}
//
//	if err := validation.ValidateStruct(cfg); err != nil {
//	    return fmt.Errorf("invalid configuration: %w", err)
//	}
package validation
