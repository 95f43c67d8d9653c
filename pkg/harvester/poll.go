package harvester

import (
	"context"
	"time"
)

const (
	defaultPollInitial  = 1500 * time.Millisecond
	defaultPollCap      = 10 * time.Second
	defaultPollFactor   = 2.0
	defaultPollDeadline = 45 * time.Second
)

// PollOption configures Await.
type PollOption func(*pollConfig)

type pollConfig struct {
	initial  time.Duration
	cap      time.Duration
	factor   float64
	deadline time.Duration
}

func defaultPollConfig() pollConfig {
	return pollConfig{
		initial:  defaultPollInitial,
		cap:      defaultPollCap,
		factor:   defaultPollFactor,
		deadline: defaultPollDeadline,
	}
}

// WithPollInterval overrides the initial poll interval.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.initial = d
	}
}

// WithPollCap overrides the maximum poll interval.
func WithPollCap(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.cap = d
	}
}

// WithPollFactor overrides the backoff multiplier applied after every attempt.
func WithPollFactor(f float64) PollOption {
	return func(c *pollConfig) {
		if f > 1 {
			c.factor = f
		}
	}
}

// WithPollDeadline overrides the wall-clock budget for the whole poll loop.
func WithPollDeadline(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.deadline = d
	}
}

// Await polls GetJob until the job reaches a terminal status or the deadline
// elapses. Poll transport errors are transient: the loop keeps going and
// carries the last successfully observed snapshot forward. When the deadline
// elapses without a terminal status, Await returns that last snapshot (nil if
// no poll ever succeeded) with a nil error; callers must treat it as an
// unknown outcome, not a failure. Context cancellation aborts the loop with
// ctx.Err().
func Await(ctx context.Context, client Client, id string, opts ...PollOption) (*Job, error) {
	cfg := defaultPollConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	deadline := time.Now().Add(cfg.deadline)
	interval := cfg.initial
	var last *Job

	for {
		job, err := client.GetJob(ctx, id)
		if err == nil {
			last = job
			if job.Status.Terminal() {
				return job, nil
			}
		} else if ctx.Err() != nil {
			return last, ctx.Err()
		}

		wait := interval
		if remaining := time.Until(deadline); remaining <= 0 {
			return last, nil
		} else if wait > remaining {
			wait = remaining
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(wait):
		}

		interval = time.Duration(float64(interval) * cfg.factor)
		if interval > cfg.cap {
			interval = cfg.cap
		}
	}
}
