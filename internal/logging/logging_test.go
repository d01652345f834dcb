package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			got, err := ParseLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestNew_MasksAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "info", "json")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("connecting",
		"dsn", "postgres://wizard:s3cret@db/wizard",
		"sasl_password", "kafka-pass",
		"error", errors.New("auth failed token=abc"),
		"title", "Brute force",
	)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v: %s", err, buf.String())
	}

	want := map[string]string{
		"dsn":           "postgres://wizard:xxxxx@db/wizard",
		"sasl_password": MaskedValue,
		"error":         "auth failed " + MaskedValue,
		"title":         "Brute force",
		"msg":           "connecting",
	}
	for key, value := range want {
		if entry[key] != value {
			t.Errorf("%s = %v, want %q", key, entry[key], value)
		}
	}
	if strings.Contains(buf.String(), "s3cret") || strings.Contains(buf.String(), "kafka-pass") {
		t.Errorf("secret leaked: %s", buf.String())
	}
}

func TestNew_LevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "warn", "text")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("hidden")
	logger.Warn("shown", "count", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %s", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "count=3") {
		t.Errorf("unexpected text output: %s", out)
	}

	if _, err := New(&buf, "info", "xml"); err == nil {
		t.Error("New() should reject an unknown format")
	}
	if _, err := New(&buf, "loud", "json"); err == nil {
		t.Error("New() should reject an unknown level")
	}
}
