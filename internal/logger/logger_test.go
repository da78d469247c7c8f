package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetupJSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	if err := Setup(LogConfig{Level: "debug", Format: "json", Output: &buf}); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	l := WithComponent("ocr")
	l.Info().Str("strategy", "threshold").Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["component"] != "ocr" {
		t.Fatalf("component = %v, want ocr", entry["component"])
	}
	if entry["strategy"] != "threshold" {
		t.Fatalf("strategy = %v, want threshold", entry["strategy"])
	}
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	if err := Setup(LogConfig{Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
