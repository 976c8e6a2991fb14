package policy

import (
	"testing"
	"time"
)

func TestPurgeEligible_NotHidden(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if PurgeEligible(nil, now, DefaultRetentionWindow) {
		t.Fatalf("memory without hiddenAt must never be eligible")
	}
}

func TestPurgeEligible_Windows(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	cases := []struct {
		name   string
		hidden time.Duration
		want   bool
	}{
		{"20 days ago", 20 * day, false},
		{"29 days 23h ago", 29*day + 23*time.Hour, false},
		{"exactly 30 days ago", 30 * day, true},
		{"31 days ago", 31 * day, true},
	}
	for _, tc := range cases {
		hiddenAt := now.Add(-tc.hidden)
		if got := PurgeEligible(&hiddenAt, now, DefaultRetentionWindow); got != tc.want {
			t.Fatalf("%s: eligible = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestPurgeEligible_CustomWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	hiddenAt := now.Add(-2 * time.Hour)

	if !PurgeEligible(&hiddenAt, now, time.Hour) {
		t.Fatalf("want eligible with 1h window")
	}
	if PurgeEligible(&hiddenAt, now, 3*time.Hour) {
		t.Fatalf("want not eligible with 3h window")
	}
}
