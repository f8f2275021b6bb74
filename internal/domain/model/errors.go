package model

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound = errors.New("order not found")

	// ErrSagaNotFound means an event referenced a saga id the service
	// never issued; always an upstream bug or ordering problem.
	ErrSagaNotFound = errors.New("saga not found")

	// ErrConcurrencyConflict is returned by stores when a save carries a
	// stale version. Callers retry from a fresh load.
	ErrConcurrencyConflict = errors.New("order version conflict")

	ErrOrderCompleted = errors.New("cannot cancel a completed order")
)

// InvalidTransitionError reports a move the state machine forbids, either
// genuine misuse or a duplicate/out-of-order event delivery.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}
