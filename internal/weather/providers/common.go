package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/metar-service/internal/weather"
)

// HTTPClientConfig bundles the HTTP client and breaker settings of a provider.
type HTTPClientConfig struct {
	// Client.Timeout bounds the whole exchange, body read included.
	Client *http.Client

	BreakerMaxRequests uint32
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration
	// BreakerFailures is the count of consecutive failures that opens the circuit.
	BreakerFailures uint32
}

// DefaultHTTPClientConfig returns the settings used when none are supplied.
func DefaultHTTPClientConfig(timeout time.Duration) HTTPClientConfig {
	return HTTPClientConfig{
		Client:             &http.Client{Timeout: timeout},
		BreakerMaxRequests: 5,
		BreakerInterval:    1 * time.Minute,
		BreakerTimeout:     30 * time.Second,
		BreakerFailures:    5,
	}
}

var errNoHTTPClient = errors.New("http client not configured")

// statusError carries the status code of a rejected response through the breaker.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%v: %d", weather.ErrUnexpectedStatus, e.code)
}

func (e *statusError) Unwrap() error { return weather.ErrUnexpectedStatus }

func newCircuitBreaker(name string, cfg HTTPClientConfig) *gobreaker.CircuitBreaker {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
	})
}

// doRequest executes one HTTP request through the circuit breaker. It does not retry.
// Non-2xx responses are closed and reported as *statusError; only 5xx trip the breaker.
func doRequest(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func(ctx context.Context) (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}

	req, err := buildRequest(ctx)
	if err != nil {
		return nil, err
	}

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := cfg.Client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		// Only server-side failures count against the breaker.
		if resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			return nil, &statusError{code: resp.StatusCode}
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", weather.ErrCircuitOpen, err)
		}
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, &statusError{code: resp.StatusCode}
	}
	return resp, nil
}
