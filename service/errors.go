package service

import "fmt"

// ValidationError marks malformed customer input. Recoverable: the flow
// re-prompts the same state.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StateGuardError marks an action disallowed in the current state, such as
// finalizing an empty cart. Recoverable.
type StateGuardError struct {
	State  string
	Reason string
}

func (e *StateGuardError) Error() string {
	return fmt.Sprintf("action not allowed in state %s: %s", e.State, e.Reason)
}

// UnknownCatalogKeyError is a hard failure raised at total computation when
// an item key is absent from the catalog.
type UnknownCatalogKeyError struct {
	Key string
}

func (e *UnknownCatalogKeyError) Error() string {
	return fmt.Sprintf("unknown catalog key %q", e.Key)
}

// PersistenceError wraps a store read/write failure. Surfaced to the
// customer as a generic retryable message.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// DeliveryError wraps a notification send/edit failure. The dispatcher
// retries on a later tick.
type DeliveryError struct {
	CustomerID string
	Err        error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s failed: %v", e.CustomerID, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
