package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrStaleResult marks work that finished after its subscription was
	// replaced or closed. Such results are discarded.
	ErrStaleResult = errors.New("stale result")

	// ErrSuperseded is returned by Open when Close or another Open ran
	// before the connection was established.
	ErrSuperseded = errors.New("subscription superseded")
)

// TransportError reports a connection-level failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
