package main

import (
	"testing"
	"time"

	"github.com/daybook-sh/daybook/internal/journal"
)

func TestParseDayArg(t *testing.T) {
	today := journal.Today()

	got, err := parseDayArg("")
	if err != nil || got != today {
		t.Errorf("empty arg = %q, %v; want today", got, err)
	}

	got, err = parseDayArg("2025-06-15")
	if err != nil || got != "2025-06-15" {
		t.Errorf("exact date = %q, %v", got, err)
	}

	got, err = parseDayArg("yesterday")
	if err != nil {
		t.Fatalf("natural language failed: %v", err)
	}
	want := journal.FormatDay(time.Now().AddDate(0, 0, -1))
	if got != want {
		t.Errorf("yesterday = %q, want %q", got, want)
	}

	if _, err := parseDayArg("???"); err == nil {
		t.Error("nonsense day accepted")
	}
}

func TestFormatFromExt(t *testing.T) {
	cases := map[string]string{
		"journal.jsonl": "jsonl",
		"journal.yaml":  "yaml",
		"journal.yml":   "yaml",
		"journal.txt":   "jsonl",
	}
	for path, want := range cases {
		if got := formatFromExt(path); got != want {
			t.Errorf("formatFromExt(%q) = %q, want %q", path, got, want)
		}
	}
}
