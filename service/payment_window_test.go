package service

import (
	"testing"
	"time"
)

func TestPaymentWindowVerify(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	window := PaymentWindow{Start: start}
	const expected = 32000

	testCases := []struct {
		name     string
		reported int
		at       time.Time
		want     PaymentResult
	}{
		{"exact amount inside window", expected, start.Add(1 * time.Minute), PaymentVerified},
		{"one second before expiry", expected, start.Add(599 * time.Second), PaymentVerified},
		{"exactly at the boundary", expected, start.Add(600 * time.Second), PaymentVerified},
		{"one second after expiry", expected, start.Add(601 * time.Second), PaymentExpired},
		{"wrong amount inside window", expected + 1000, start.Add(1 * time.Minute), PaymentMismatch},
		{"zero amount inside window", 0, start.Add(1 * time.Minute), PaymentMismatch},
		// A wrong amount is reported as a mismatch even when the window has
		// already closed, so the customer first learns the amount is wrong.
		{"wrong amount after expiry", expected - 5000, start.Add(11 * time.Minute), PaymentMismatch},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := window.Verify(tc.reported, expected, tc.at)
			if got != tc.want {
				t.Errorf("Verify(%d, %d, +%v) = %v, want %v",
					tc.reported, expected, tc.at.Sub(start), got, tc.want)
			}
		})
	}
}

func TestStartPaymentWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	window := StartPaymentWindow(now)
	if !window.Start.Equal(now) {
		t.Errorf("window start = %v, want %v", window.Start, now)
	}
	if got := window.Verify(100, 100, now.Add(PaymentWindowSeconds*time.Second)); got != PaymentVerified {
		t.Errorf("verification at the window boundary = %v, want %v", got, PaymentVerified)
	}
}
