package ui

import (
	"testing"
	"time"
)

func TestTerminalNoColorPassesTextThrough(t *testing.T) {
	term := &Terminal{color: false}
	if got := term.c(Bold, "hello"); got != "hello" {
		t.Fatalf("expected no-color passthrough, got %q", got)
	}
}

func TestTerminalColorWrapsWithCodes(t *testing.T) {
	term := &Terminal{color: true}
	got := term.c(Red, "oops")
	if got != Red+"oops"+Reset {
		t.Fatalf("unexpected wrapped string: %q", got)
	}
}

func TestFormatNumAddsThousandsSeparator(t *testing.T) {
	cases := map[int]string{
		0:     "0",
		42:    "42",
		999:   "999",
		1000:  "1,000",
		12345: "12,345",
	}
	for in, want := range cases {
		if got := formatNum(in); got != want {
			t.Fatalf("formatNum(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncateLeavesShortStringsAlone(t *testing.T) {
	if got := truncate("short", 20); got != "short" {
		t.Fatalf("expected untouched string, got %q", got)
	}
}

func TestTruncateShortensLongStrings(t *testing.T) {
	got := truncate("this is a fairly long string", 10)
	if len(got) != 10 {
		t.Fatalf("expected truncated length 10, got %d (%q)", len(got), got)
	}
	if got[len(got)-3:] != "..." {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
}

func TestFormatAgeBuckets(t *testing.T) {
	now := time.Now()
	if got := formatAge(now.Add(-10 * time.Second)); got != "just now" {
		t.Fatalf("expected 'just now', got %q", got)
	}
	if got := formatAge(now.Add(-5 * time.Minute)); got != "5m ago" {
		t.Fatalf("expected '5m ago', got %q", got)
	}
	if got := formatAge(now.Add(-3 * time.Hour)); got != "3h ago" {
		t.Fatalf("expected '3h ago', got %q", got)
	}
	if got := formatAge(now.Add(-48 * time.Hour)); got != "2d ago" {
		t.Fatalf("expected '2d ago', got %q", got)
	}
}

func TestFormatParamsIncludesAllKeys(t *testing.T) {
	params := map[string]any{"path": "a.go"}
	got := formatParams(params)
	if got != "path=a.go" {
		t.Fatalf("unexpected params string: %q", got)
	}
}
