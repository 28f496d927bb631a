package service

import "time"

// PaymentWindowSeconds is how long the customer has to report a card
// transfer after entering the card payment path.
const PaymentWindowSeconds = 600

// PaymentResult is the outcome of verifying a reported payment amount.
type PaymentResult int

const (
	PaymentVerified PaymentResult = iota
	PaymentMismatch
	PaymentExpired
)

func (r PaymentResult) String() string {
	switch r {
	case PaymentVerified:
		return "verified"
	case PaymentMismatch:
		return "mismatch"
	case PaymentExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// PaymentWindow records when the card payment path was entered.
type PaymentWindow struct {
	Start time.Time
}

// StartPaymentWindow opens the verification window at now.
func StartPaymentWindow(now time.Time) PaymentWindow {
	return PaymentWindow{Start: now}
}

// Verify checks the reported amount against the expected total and the
// window deadline. The amount is checked before expiry, so a wrong amount
// after the deadline still reports Mismatch; a correct amount after the
// deadline reports Expired. Exactly 600 s is still inside the window.
func (w PaymentWindow) Verify(reported, expected int, now time.Time) PaymentResult {
	if reported != expected {
		return PaymentMismatch
	}
	if now.Sub(w.Start) > PaymentWindowSeconds*time.Second {
		return PaymentExpired
	}
	return PaymentVerified
}
