package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrCircuitOpen is wrapped by UpstreamError while the provider breaker rejects calls.
	ErrCircuitOpen = errors.New("upstream circuit breaker open")
	// ErrUnexpectedStatus is wrapped by UpstreamError for non-2xx provider responses.
	ErrUnexpectedStatus = errors.New("unexpected upstream status")
	// ErrReportNotObject is returned when an upstream array element is not a JSON object.
	ErrReportNotObject = errors.New("report is not a JSON object")
)

// ValidationError reports a missing or unusable request parameter.
type ValidationError struct {
	Param   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("missing parameter %q", e.Param)
}

// UpstreamError reports a failure reaching the live weather provider.
type UpstreamError struct {
	Provider   string
	Station    string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: station %s: %v", e.Provider, e.Station, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// StoreError reports a connectivity or query failure in the observation store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// TimestampError reports an observation instant that could not be converted.
// It never leaves the service; the report gets LocalTimeUnknown instead.
type TimestampError struct {
	Value string
	Err   error
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("parse obsTime %s: %v", e.Value, e.Err)
}

func (e *TimestampError) Unwrap() error { return e.Err }
