package timeutil

import (
	"testing"
	"time"
)

func TestParseExpirationFallback(t *testing.T) {
	cases := []string{
		"",
		"garbage",
		"5",
		"5 fortnights",
		"five days",
		"-3 hours",
		"0 minutes",
		"1 2 3",
	}
	for _, in := range cases {
		if got := ParseExpiration(in); got != DefaultExpiration {
			t.Errorf("ParseExpiration(%q) = %v, want default %v", in, got, DefaultExpiration)
		}
	}
}

func TestParseExpirationValid(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"2 days", 48 * time.Hour},
		{"30 minutes", 30 * time.Minute},
		{"1 week", 7 * 24 * time.Hour},
		{"10 s", 10 * time.Second},
		{"4 hrs", 4 * time.Hour},
		{"1 Month", 30 * 24 * time.Hour},
		{"  2   weeks  ", 14 * 24 * time.Hour},
	}
	for _, c := range cases {
		if got := ParseExpiration(c.in); got != c.want {
			t.Errorf("ParseExpiration(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
