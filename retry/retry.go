// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

// Package retry provides a function for retrying an operation.
package retry

import (
	"context"
	"errors"
	"time"

	"zombiezen.com/go/log"
)

// A BackoffStrategy can be called repeatedly to obtain (presumably) increasing
// durations to wait between retries.
type BackoffStrategy interface {
	Duration() time.Duration
}

// ExponentialBackoff is a BackoffStrategy that starts at Initial and
// multiplies the wait by Factor after every call, up to Max.
// A zero Factor is treated as 2 and a zero Max means no limit.
type ExponentialBackoff struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64

	next time.Duration
}

// Duration returns the next wait.
func (b *ExponentialBackoff) Duration() time.Duration {
	if b.next == 0 {
		b.next = b.Initial
	}
	d := b.next
	factor := b.Factor
	if factor == 0 {
		factor = 2
	}
	b.next = time.Duration(float64(b.next) * factor)
	if b.Max > 0 && (b.next > b.Max || b.next <= 0) {
		b.next = b.Max
	}
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}
	return d
}

type permanentError struct {
	err error
}

// Permanent wraps err so that Do stops retrying and returns err.
// Permanent(nil) returns nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err}
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Do calls a function repeatedly with the strategy's backoff until it returns
// a nil error. Do returns an error only if the passed-in function returns an
// error wrapped with Permanent or does not return nil before the Context is
// Done. The function is guaranteed to be called at least once.
//
// The operation should be a verb phrase like "locking app.ini" for logging.
func Do(ctx context.Context, operation string, strategy BackoffStrategy, f func() error) error {
	var t *time.Timer
	for attempt := 1; ; attempt++ {
		err := f()
		if err == nil {
			if attempt > 1 {
				log.Debugf(ctx, "Succeeded %s after %d attempts", operation, attempt)
			}
			return nil
		}
		var perm permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		d := strategy.Duration()
		if d <= 0 {
			log.Warnf(ctx, "Error %s (will retry): %v", operation, err)
			select {
			case <-ctx.Done():
				return err
			default:
			}
			continue
		}
		log.Warnf(ctx, "Error %s (will retry in %v): %v", operation, d, err)
		if t == nil {
			t = time.NewTimer(d)
			defer t.Stop()
		} else {
			t.Reset(d)
		}
		select {
		case <-t.C:
		case <-ctx.Done():
			return err
		}
	}
}
