// Package net wraps upstream HTTP transports with the middleware every
// provider call goes through: user agent, token-bucket rate limiting, and
// circuit breaking. There is no response caching here: the fusion engine
// requires a fresh fetch on every request.
package net

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const defaultUserAgent = "creditd/1.0"

// ErrUpstreamStatus marks a non-2xx upstream response surfaced by the
// transport.
var ErrUpstreamStatus = errors.New("upstream returned error status")

// StatusError carries the HTTP status of a failed upstream response.
type StatusError struct {
	Provider   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider %s returned HTTP %d", e.Provider, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrUpstreamStatus }

// Options configures a wrapped transport for one provider.
type Options struct {
	Provider         string
	RPS              float64 // token bucket refill rate; 0 disables limiting
	Burst            int
	FailureThreshold uint32        // consecutive failures to open the breaker
	OpenTimeout      time.Duration // time before a half-open probe
	UserAgent        string
}

// Transport is an http.RoundTripper with the provider middleware stack.
type Transport struct {
	opts    Options
	next    http.RoundTripper
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewTransport wraps next (http.DefaultTransport when nil) for one provider.
func NewTransport(opts Options, next http.RoundTripper) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenTimeout == 0 {
		opts.OpenTimeout = 30 * time.Second
	}

	t := &Transport{opts: opts, next: next}

	if opts.RPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}

	t.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    opts.Provider,
		Timeout: opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.FailureThreshold
		},
	})

	return t
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.opts.UserAgent)
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("provider %s rate limit wait: %w", t.opts.Provider, err)
		}
	}

	resp, err := t.breaker.Execute(func() (interface{}, error) {
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, &StatusError{Provider: t.opts.Provider, StatusCode: resp.StatusCode}
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return resp.(*http.Response), nil
}

// NewClient builds an *http.Client over a wrapped transport with the given
// per-request timeout.
func NewClient(opts Options, timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{
		Transport: NewTransport(opts, nil),
		Timeout:   timeout,
	}
}
