package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidToken is returned when a reservation is redeemed or canceled
	// while it is unknown to the store, not yet granted, or already consumed.
	ErrInvalidToken = errors.New("invalid reservation token")

	// ErrCapacityViolation is returned when a store observes
	// items + granted puts > capacity. It always indicates a protocol bug.
	ErrCapacityViolation = errors.New("store capacity violated")

	// ErrEventTriggered is returned when Succeed or Fail is called on an
	// event that has already been triggered.
	ErrEventTriggered = errors.New("event already triggered")

	// ErrEnvironmentClosed is returned by Run after Close.
	ErrEnvironmentClosed = errors.New("environment closed")
)

// TopologyError reports a component whose edge wiring violates its contract.
// It is raised while building the model, before any event is scheduled.
type TopologyError struct {
	Component string
	Reason    string
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("topology: %s: %s", e.Component, e.Reason)
}

// NewTopologyError builds a TopologyError with a formatted reason.
func NewTopologyError(component, format string, args ...any) *TopologyError {
	return &TopologyError{Component: component, Reason: fmt.Sprintf(format, args...)}
}

// IsTopologyError reports whether err wraps a *TopologyError.
func IsTopologyError(err error) bool {
	var te *TopologyError
	return errors.As(err, &te)
}
