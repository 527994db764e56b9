// Package scheduler runs check cycles on a fixed interval and stops the
// loop when the monitor fails too many times in a row.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"elearn-monitor/internal/config"
	"elearn-monitor/internal/monitor"
)

const (
	// maxConsecutiveFailures stops the loop when cycles keep crashing
	// instead of looping forever against a broken environment.
	maxConsecutiveFailures = 5

	// failureDelay replaces the normal interval after a crashed cycle so a
	// transient fault gets a quick retry.
	failureDelay = 60 * time.Second
)

// Runner executes one check cycle.
type Runner interface {
	RunCheck(ctx context.Context) *monitor.Stats
}

// Scheduler drives a Runner on the configured interval.
type Scheduler struct {
	runner      Runner
	maxFailures int
	retryDelay  time.Duration
	interval    func() time.Duration
}

// New creates a scheduler whose interval is re-read from the monitor config
// before every sleep, so interval edits apply without a restart.
func New(runner Runner, cfg *config.MonitorStore) *Scheduler {
	return &Scheduler{
		runner:      runner,
		maxFailures: maxConsecutiveFailures,
		retryDelay:  failureDelay,
		interval: func() time.Duration {
			c, err := cfg.Load()
			if err != nil {
				return config.DefaultMonitorConfig().CheckInterval()
			}
			return c.CheckInterval()
		},
	}
}

// Run executes an immediate first cycle, then one per interval. It returns
// when the context is cancelled or after maxFailures consecutive crashed
// cycles. A cycle that runs to completion resets the counter even when it
// reports failure. Cancellation is honored between cycles; a cycle in
// flight is allowed to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		// The cycle gets a context without the shutdown cancellation:
		// a signal must land between cycles, never interrupt in-flight
		// fetches or sends.
		stats, panicked := s.runCycle(context.WithoutCancel(ctx))
		if panicked {
			failures++
			log.Printf("check cycle crashed (%d consecutive)", failures)
		} else {
			failures = 0
			if stats != nil && !stats.Success {
				// Business failures (bad credentials, empty portal) are the
				// monitor's to report; they do not burn the failure budget.
				log.Printf("check cycle reported failure: %v", stats.Errors)
			}
		}

		if failures >= s.maxFailures {
			return fmt.Errorf("stopping after %d consecutive failed cycles", failures)
		}

		wait := s.interval()
		if failures > 0 {
			wait = s.retryDelay
		} else {
			log.Printf("next check in %s", wait)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// runCycle shields the loop from a panicking cycle; a panic counts toward
// the failure budget rather than killing the process.
func (s *Scheduler) runCycle(ctx context.Context) (stats *monitor.Stats, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("check cycle panicked: %v", r)
			stats, panicked = nil, true
		}
	}()
	return s.runner.RunCheck(ctx), false
}
