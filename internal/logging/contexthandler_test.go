package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/rexcoach/internal/logging"
)

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, logging.Options{Level: slog.LevelDebug, JSON: true})

	parent := logging.WithAttrs(context.Background(), slog.String("trace_id", "abc"))
	child := logging.WithAttrs(parent, slog.Int("user_id", 7))
	// A sibling must not see the attributes of child.
	sibling := logging.WithAttrs(parent, slog.String("method", "GET"))

	logger.LogAttrs(child, slog.LevelInfo, "child")
	logger.LogAttrs(sibling, slog.LevelInfo, "sibling")

	dec := json.NewDecoder(&buf)
	var got []map[string]any
	for dec.More() {
		var record map[string]any
		if err := dec.Decode(&record); err != nil {
			t.Fatalf("decode log record: %v", err)
		}
		delete(record, "time")
		got = append(got, record)
	}

	want := []map[string]any{
		{"level": "INFO", "msg": "child", "trace_id": "abc", "user_id": float64(7)},
		{"level": "INFO", "msg": "sibling", "trace_id": "abc", "method": "GET"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("log records mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: " WARN ", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "verbose", want: slog.LevelInfo, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := logging.ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
