package commands

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cutline-project/cutline-go/pkg/log"
)

func TestExportToJSONL(t *testing.T) {
	path := createTestCaptureFile(t, sampleSession())

	var buf bytes.Buffer
	if err := RunExport(path, "jsonl", log.Filter{}, &buf); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d", len(lines))
	}

	var ev log.Event
	if err := json.Unmarshal([]byte(lines[2]), &ev); err != nil {
		t.Fatalf("invalid JSON line: %v", err)
	}
	if ev.Frame == nil || string(ev.Frame.Data) != "M00000,00000\x03" {
		t.Errorf("frame not preserved: %+v", ev.Frame)
	}
}

func TestExportToCSV(t *testing.T) {
	path := createTestCaptureFile(t, sampleSession())

	var buf bytes.Buffer
	if err := RunExport(path, "csv", log.Filter{}, &buf); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(records) != 7 {
		t.Fatalf("expected header + 6 rows, got %d", len(records))
	}
	if records[0][1] != "session_id" {
		t.Errorf("unexpected header: %v", records[0])
	}
	if records[2][7] != "frame" || records[2][8] != "1b04" {
		t.Errorf("unexpected frame row: %v", records[2])
	}
	if records[5][7] != "progress" || records[5][8] != "5/5" {
		t.Errorf("unexpected progress row: %v", records[5])
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestCaptureFile(t, sampleSession())

	var buf bytes.Buffer
	err := RunExport(path, "xml", log.Filter{}, &buf)
	if err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Errorf("expected unknown format error, got %v", err)
	}
}

func TestRunFilter(t *testing.T) {
	path := createTestCaptureFile(t, sampleSession())
	out := filepath.Join(t.TempDir(), "frames.clog")

	n, err := RunFilter(path, out, FilterOptions{Category: "frame", Direction: "out"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 2 {
		t.Errorf("filtered %d events, want 2", n)
	}

	stats, err := CollectStats(out)
	if err != nil {
		t.Fatalf("CollectStats failed: %v", err)
	}
	if stats.TotalEvents != 2 {
		t.Errorf("output has %d events, want 2", stats.TotalEvents)
	}
}

func TestFilterOptionsErrors(t *testing.T) {
	for _, opts := range []FilterOptions{
		{TimeStart: "yesterday"},
		{TimeEnd: "2026-13-01"},
		{Layer: "wire"},
		{Direction: "sideways"},
		{Category: "snapshot"},
	} {
		if _, err := opts.Build(); err == nil {
			t.Errorf("Build(%+v) expected error", opts)
		}
	}
}
