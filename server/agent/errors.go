package agent

import (
	"github.com/pkg/errors"
)

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotFound         = errors.New("not found")
	ErrMaxStepsExceeded = errors.New("turn exceeded the maximum number of model steps")
	// ErrInvalidHistory is returned before any model call when the posted history breaks transcript rules.
	ErrInvalidHistory = errors.New("invalid conversation history")
)

// TransportError wraps a failure talking to the model. It is fatal to the turn.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "model transport failed: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
