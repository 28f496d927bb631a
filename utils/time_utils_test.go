package utils

import (
	"testing"
	"time"
)

func TestIsPreorderTime(t *testing.T) {
	// Tashkent is UTC+5, so 17:00 UTC is 22:00 local.
	testCases := []struct {
		name string
		utc  time.Time
		want bool
	}{
		{"start of night window", time.Date(2025, 6, 1, 17, 0, 0, 0, time.UTC), true},
		{"midnight local", time.Date(2025, 6, 1, 19, 0, 0, 0, time.UTC), true},
		{"six in the morning local", time.Date(2025, 6, 1, 1, 0, 0, 0, time.UTC), true},
		{"seven in the morning local", time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC), false},
		{"midday local", time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC), false},
		{"nine in the evening local", time.Date(2025, 6, 1, 16, 0, 0, 0, time.UTC), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsPreorderTime(tc.utc); got != tc.want {
				local := tc.utc.In(GetTashkentLocation())
				t.Errorf("IsPreorderTime(%s local) = %v, want %v", local.Format("15:04"), got, tc.want)
			}
		})
	}
}

func TestIsNightHour(t *testing.T) {
	// The window wraps past midnight: 22..23 and 0..6 are inside.
	for hour := 0; hour < 24; hour++ {
		want := hour >= 22 || hour <= 6
		if got := IsNightHour(hour, 22, 6); got != want {
			t.Errorf("IsNightHour(%d, 22, 6) = %v, want %v", hour, got, want)
		}
	}
}

func TestFormatTashkentTime(t *testing.T) {
	utc := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	if got := FormatTashkentTime(utc); got != "14:30" {
		t.Errorf("got %q, want %q", got, "14:30")
	}
}
