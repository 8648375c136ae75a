package utils

import (
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		input string
		want  time.Duration
	}{
		{"10", 10 * time.Minute},
		{"90s", 90 * time.Second},
		{"5m", 5 * time.Minute},
		{"2h", 2 * time.Hour},
		{"1d", 24 * time.Hour},
		{"1h30m", 90 * time.Minute},
		{"1d2h3m4s", 24*time.Hour + 2*time.Hour + 3*time.Minute + 4*time.Second},
	}

	for _, tc := range cases {
		got, err := ParseDuration(tc.input)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("parse %q: expected %v, got %v", tc.input, tc.want, got)
		}
	}
}

func TestParseDurationRejectsBadInput(t *testing.T) {
	for _, input := range []string{"", "abc", "10x", "h", "-5m", "0"} {
		if _, err := ParseDuration(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		input time.Duration
		want  string
	}{
		{45 * time.Second, "45s"},
		{5 * time.Minute, "5m 0s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h 2m 3s"},
		{0, "0s"},
	}

	for _, tc := range cases {
		if got := FormatDuration(tc.input); got != tc.want {
			t.Fatalf("format %v: expected %q, got %q", tc.input, tc.want, got)
		}
	}
}
