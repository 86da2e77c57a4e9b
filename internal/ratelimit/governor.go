// Package ratelimit implements the process-wide request governor sitting in
// front of the Remote API Client: a steady-plus-burst token bucket with a
// fixed-window throttle back-off, owned by a single goroutine so that
// callers coordinate through channels instead of a shared mutex.
package ratelimit

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/mandimonitor/core/internal/metrics"
)

const (
	// steadyRate is the sustained request rate once the burst pool is spent.
	steadyRate = 1 // requests per second
	// burstSize is the token pool available over any rolling window before
	// the steady rate takes over; rate.Limiter refills it at steadyRate.
	burstSize = 10
	// burstWindow is used only for the observable burst-window-usage stat;
	// it does not change the limiter's own accounting.
	burstWindow = 10 * time.Second
	// throttleBackoff is the fixed window an external throttle signal opens
	// for. The vendor's recovery behaviour is well matched by a flat window,
	// not exponential growth.
	throttleBackoff = 60 * time.Second
)

// ErrGovernorStopped is returned by Acquire once the governor has been
// stopped and will not grant any further tokens.
var ErrGovernorStopped = errors.New("ratelimit: governor stopped")

// Status is the observable snapshot exposed to the rest of the core.
type Status struct {
	RequestsInLastSecond int
	BurstWindowUsage     int
	ThrottleActive       bool
	ThrottleRemaining    time.Duration
}

// Governor is a singleton token-bucket rate limiter for the Remote API
// Client. All mutable state besides the limiter itself (throttle back-off,
// recent-request bookkeeping) is owned by a single goroutine; callers never
// take a lock directly.
type Governor struct {
	limiter *rate.Limiter

	notifyCh chan struct{}
	recordCh chan time.Time
	statusCh chan chan Status
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New starts a Governor and its owning goroutine. Call Stop to release it.
func New() *Governor {
	g := &Governor{
		limiter:  rate.NewLimiter(rate.Limit(steadyRate), burstSize),
		notifyCh: make(chan struct{}, 1),
		recordCh: make(chan time.Time, 64),
		statusCh: make(chan chan Status),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go g.run()
	return g
}

// Acquire blocks until a token is available, waiting out any active
// throttle window first. It returns ctx.Err() if ctx is cancelled while
// waiting, or ErrGovernorStopped if the governor was stopped.
func (g *Governor) Acquire(ctx context.Context) error {
	for {
		status, err := g.queryStatus()
		if err != nil {
			return err
		}
		if !status.ThrottleActive {
			break
		}
		select {
		case <-time.After(status.ThrottleRemaining):
		case <-ctx.Done():
			return ctx.Err()
		case <-g.doneCh:
			return ErrGovernorStopped
		}
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	select {
	case g.recordCh <- time.Now():
	default:
		// Observability sample dropped under load; does not affect the
		// actual rate the limiter enforces.
	}
	return nil
}

// Throttled signals that the Remote API Client observed a vendor-level
// throttle response (HTTP 429 or equivalent). It opens a fixed back-off
// window during which Acquire will not grant tokens.
func (g *Governor) Throttled() {
	select {
	case g.notifyCh <- struct{}{}:
	default:
		// A throttle signal is already pending for the owner goroutine.
	}
}

// Status returns the current observable state.
func (g *Governor) Status() Status {
	status, err := g.queryStatus()
	if err != nil {
		return Status{}
	}
	return status
}

// Stop terminates the owning goroutine. Acquire calls already past their
// throttle wait may still complete against the limiter; new calls return
// ErrGovernorStopped once doneCh is closed.
func (g *Governor) Stop() {
	close(g.stopCh)
	<-g.doneCh
}

func (g *Governor) queryStatus() (Status, error) {
	respCh := make(chan Status, 1)
	select {
	case g.statusCh <- respCh:
	case <-g.doneCh:
		return Status{}, ErrGovernorStopped
	}
	select {
	case s := <-respCh:
		return s, nil
	case <-g.doneCh:
		return Status{}, ErrGovernorStopped
	}
}

func (g *Governor) run() {
	var throttleUntil time.Time
	var recent []time.Time

	for {
		select {
		case <-g.notifyCh:
			throttleUntil = time.Now().Add(throttleBackoff)
			metrics.UpdateRateGovernorThrottleState(true)

		case t := <-g.recordCh:
			recent = append(recent, t)
			recent = pruneOlderThan(recent, t.Add(-burstWindow))

		case respCh := <-g.statusCh:
			now := time.Now()
			recent = pruneOlderThan(recent, now.Add(-burstWindow))
			active := now.Before(throttleUntil)
			metrics.UpdateRateGovernorThrottleState(active)
			var remaining time.Duration
			if active {
				remaining = throttleUntil.Sub(now)
			}
			respCh <- Status{
				RequestsInLastSecond: countSince(recent, now.Add(-time.Second)),
				BurstWindowUsage:     len(recent),
				ThrottleActive:       active,
				ThrottleRemaining:    remaining,
			}

		case <-g.stopCh:
			close(g.doneCh)
			return
		}
	}
}

// pruneOlderThan drops timestamps at or before cutoff, preserving order.
func pruneOlderThan(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for _, t := range ts {
		if t.After(cutoff) {
			ts[i] = t
			i++
		}
	}
	return ts[:i]
}

func countSince(ts []time.Time, cutoff time.Time) int {
	n := 0
	for _, t := range ts {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}
