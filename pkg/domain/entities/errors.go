package entities

import (
	"errors"
	"fmt"
)

// Error categories shared by every planning component. Callers classify with errors.Is.
var (
	ErrDataIncomplete   = errors.New("data incomplete")
	ErrCycleDetected    = errors.New("cycle detected")
	ErrCapacityShortage = errors.New("capacity shortage")
	ErrValidation       = errors.New("validation failed")
	ErrInvalidState     = errors.New("invalid state transition")
	ErrNotFound         = errors.New("not found")
)

// StateError reports a lifecycle transition that is not allowed from the current status
type StateError struct {
	Entity string
	ID     string
	From   string
	Action string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s %s %s in status %s", e.Action, e.Entity, e.ID, e.From)
}

func (e *StateError) Unwrap() error {
	return ErrInvalidState
}
