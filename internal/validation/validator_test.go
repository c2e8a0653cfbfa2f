// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package validation

import (
	"errors"
	"strings"
	"testing"
)

type inner struct {
	Port int    `koanf:"port" validate:"min=1,max=65535"`
	Mode string `koanf:"mode" validate:"oneof=a b"`
}

type outer struct {
	Name  string `koanf:"name" validate:"required"`
	Inner inner  `koanf:"inner"`
}

func TestValidateStructPasses(t *testing.T) {
	t.Parallel()

	if err := ValidateStruct(&outer{Name: "x", Inner: inner{Port: 80, Mode: "a"}}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateStructReportsKoanfPaths(t *testing.T) {
	t.Parallel()

	err := ValidateStruct(&outer{Inner: inner{Port: 70000, Mode: "c"}})
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("err = %T %v, want *Error", err, err)
	}

	for _, path := range []string{"name", "inner.port", "inner.mode"} {
		if !verr.Has(path) {
			t.Errorf("missing failure for %s in %v", path, verr)
		}
	}
	msg := verr.Error()
	for _, want := range []string{
		"name is required",
		"inner.port must be at most 65535",
		"inner.mode must be one of: a b",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q lacks %q", msg, want)
		}
	}
}

func TestGetValidatorIsShared(t *testing.T) {
	t.Parallel()

	if GetValidator() != GetValidator() {
		t.Error("GetValidator returned different instances")
	}
}
