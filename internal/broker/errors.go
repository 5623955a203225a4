package broker

import (
	"errors"
	"fmt"
)

// ErrUnsupported is returned when an adapter does not implement a requested
// capability (e.g. option spreads on an equities-only broker). Routers map
// it to an order rejection rather than a failure.
var ErrUnsupported = errors.New("broker capability unsupported")

// ConnectionError is a transport-level failure talking to the brokerage.
// The gateway does not retry; retry policy belongs to the caller.
type ConnectionError struct {
	Broker string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: connection error: %v", e.Broker, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// OrderError means the broker understood the request and refused it.
type OrderError struct {
	Broker string
	Reason string
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("%s: order error: %s", e.Broker, e.Reason)
}
