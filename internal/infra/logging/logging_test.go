//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"venux-billing/internal/config"
)

func TestWithContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, config.LogConfig{Level: "debug", Format: "json"}, false)

	ctx := WithUserID(WithTraceID(context.Background(), "tr-1"), "user-1")
	With(ctx, base).Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a JSON line, but got: %v (%s)", err, buf.String())
	}
	if entry["trace_id"] != "tr-1" || entry["user_id"] != "user-1" {
		t.Errorf("missing context fields: %v", entry)
	}
	if TraceID(ctx) != "tr-1" || UserID(ctx) != "user-1" {
		t.Error("context accessors returned wrong values")
	}
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, config.LogConfig{Level: "warn", Format: "json"}, false)
	l.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered, got %s", buf.String())
	}
}
