package interfaces

import (
	"context"
	"errors"
)

// ErrEditNotSupported is returned by EditLast when the channel cannot edit a
// previously sent message. Callers fall back to Send.
var ErrEditNotSupported = errors.New("messenger: edit not supported")

// Messenger is the outbound messaging channel.
type Messenger interface {
	Send(ctx context.Context, customerID string, text string) error
	// EditLast updates the customer's prior status message in place.
	// May return ErrEditNotSupported.
	EditLast(ctx context.Context, customerID string, text string) error
}
