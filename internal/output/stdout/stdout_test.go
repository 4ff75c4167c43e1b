package stdout

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/crimson-sun/trendwatch/internal/model"
)

func testResult() *model.Result {
	return &model.Result{
		RunID:        "run-1",
		Prefix:       "A05",
		Grain:        model.Weekly,
		PrefixScoped: model.Baseline{Mean: 1.25, StdDev: 0.829156, Periods: 4},
		Series:       model.Series{Prefix: "A05", Grain: model.Weekly},
	}
}

// captureStdout redirects os.Stdout to capture output.
func captureStdout(fn func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String()
}

func TestOutputCompactJSON(t *testing.T) {
	result := captureStdout(func() {
		out := New(false)
		out.Write(context.Background(), testResult())
	})

	lines := strings.Split(strings.TrimSpace(result), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if m["prefix"] != "A05" {
		t.Fatalf("expected prefix=A05, got %v", m["prefix"])
	}
	if m["grain"] != "weekly" {
		t.Fatalf("expected grain=weekly, got %v", m["grain"])
	}
}

func TestOutputPrettyJSON(t *testing.T) {
	var buf bytes.Buffer
	out := NewWriter(&buf, true)
	if err := out.Write(context.Background(), testResult()); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	if !strings.Contains(buf.String(), "  ") {
		t.Fatal("expected indented output for pretty mode")
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) < 3 {
		t.Fatalf("expected multi-line pretty output, got %d lines", len(lines))
	}
}

func TestOutputRoundsBaselines(t *testing.T) {
	var buf bytes.Buffer
	out := NewWriter(&buf, false)
	out.Write(context.Background(), testResult())

	var got model.Result
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.PrefixScoped.StdDev != 0.83 {
		t.Fatalf("std_dev = %v, want 0.83", got.PrefixScoped.StdDev)
	}
}
