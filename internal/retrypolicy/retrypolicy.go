// Package retrypolicy implements the exponential-backoff-with-jitter retry
// loop used by the RCON connect manager (and available to any other
// collaborator that needs bounded, observable retries around a fallible
// operation).
package retrypolicy

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Config bounds a retry loop. BaseBackoff and MaxBackoff are required;
// Jitter and MaxTries are optional (zero means "no jitter" / "unbounded
// tries" respectively).
type Config struct {
	BaseBackoff time.Duration
	Jitter      time.Duration
	MaxBackoff  time.Duration
	MaxTries    int // 0 means unlimited
}

func (c Config) withDefaults() Config {
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 100 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 60 * time.Second
	}
	return c
}

// Delay computes the backoff delay before retry attempt k (k=1,2,...) per
// spec §4.E:
//
//	delay = clamp(max(base, min(max, base*2^k + uniform(-jitter,+jitter))))
func Delay(cfg Config, k int) time.Duration {
	cfg = cfg.withDefaults()
	exp := cfg.BaseBackoff * time.Duration(1<<uint(k))
	jitter := time.Duration(0)
	if cfg.Jitter > 0 {
		jitter = time.Duration(rand.Int63n(int64(2*cfg.Jitter)+1)) - cfg.Jitter
	}
	delay := exp + jitter
	if delay > cfg.MaxBackoff {
		delay = cfg.MaxBackoff
	}
	if delay < cfg.BaseBackoff {
		delay = cfg.BaseBackoff
	}
	return delay
}

// Retryable classifies whether an error belongs to the set a retry loop is
// allowed to retry on.
type Retryable func(error) bool

// OnFailure is invoked after each retryable failure, before the backoff
// sleep, so callers can surface a user-visible notification (spec §4.E).
type OnFailure func(error)

// Run executes op repeatedly until it succeeds, returns a non-retryable
// error, ctx is cancelled, or cfg.MaxTries is exhausted. It returns nil on
// success, the last error on exhaustion or non-retryable failure, and
// ctx.Err() on cancellation.
//
// The loop itself is driven by cenkalti/backoff's RetryNotify: NewBackOff
// adapts this package's clamp-and-jitter Delay formula to backoff.BackOff
// so the schedule matches spec exactly while the retry/cancel/notify
// mechanics are the library's, not hand-rolled.
func Run(ctx context.Context, cfg Config, retryable Retryable, onFailure OnFailure, op func(context.Context) error) error {
	cfg = cfg.withDefaults()

	operation := func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, _ time.Duration) {
		if onFailure != nil {
			onFailure(err)
		}
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(NewBackOff(cfg), ctx), notify)
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}

// backoffAdapter drives cenkalti/backoff's RetryNotify loop with this
// package's clamp-and-jitter Delay formula instead of backoff's own
// multiplicative jitter model.
type backoffAdapter struct {
	cfg     Config
	attempt int
}

// NewBackOff returns a backoff.BackOff whose NextBackOff follows this
// package's clamp formula instead of cenkalti/backoff's own jitter model.
func NewBackOff(cfg Config) backoff.BackOff {
	return &backoffAdapter{cfg: cfg.withDefaults()}
}

func (a *backoffAdapter) NextBackOff() time.Duration {
	a.attempt++
	if a.cfg.MaxTries > 0 && a.attempt >= a.cfg.MaxTries {
		return backoff.Stop
	}
	return Delay(a.cfg, a.attempt)
}

func (a *backoffAdapter) Reset() { a.attempt = 0 }
