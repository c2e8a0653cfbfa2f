// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestValidLevel(t *testing.T) {
	t.Parallel()

	if !ValidLevel("warn") {
		t.Error("warn should be valid")
	}
	if ValidLevel("loud") {
		t.Error("loud should be invalid")
	}
}

// Tests below swap the global logger and must not run in parallel.

func TestInitJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Debug().Str("stream", "binance").Msg("archiver started")

	out := buf.String()
	if !strings.Contains(out, `"stream":"binance"`) {
		t.Errorf("missing field in %s", out)
	}
	if !strings.Contains(out, `"level":"debug"`) {
		t.Errorf("missing level in %s", out)
	}
}

func TestCtxAddsCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { Init(DefaultConfig()) })

	ctx := ContextWithCorrelationID(context.Background(), "abcd1234")
	Ctx(ctx).Info().Msg("published")

	if !strings.Contains(buf.String(), `"correlation_id":"abcd1234"`) {
		t.Errorf("correlation id not logged: %s", buf.String())
	}
	if got := CorrelationIDFromContext(context.Background()); got != "" {
		t.Errorf("empty context returned %q", got)
	}
}

func TestGenerateCorrelationID(t *testing.T) {
	t.Parallel()

	a, b := GenerateCorrelationID(), GenerateCorrelationID()
	if len(a) != 8 {
		t.Errorf("len = %d, want 8", len(a))
	}
	if a == b {
		t.Error("two ids collided")
	}
}

func TestSlogHandlerGroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { Init(DefaultConfig()) })

	logger := slog.New(NewSlogHandlerWithLogger(NewTestLogger(&buf)))
	logger.WithGroup("supervisor").With("tree", "root").Warn("service failed", "restarts", 3)

	out := buf.String()
	for _, want := range []string{`"level":"warn"`, `"supervisor.tree":"root"`, `"supervisor.restarts":3`, `"message":"service failed"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %s missing %s", out, want)
		}
	}
}
