// Package retry builds the connection retry policies used by the MongoDB
// and MQTT adapters.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
)

// DefaultMaxElapsed bounds a retry sequence when no limit is configured.
const DefaultMaxElapsed = time.Minute

// Settings bounds a retry sequence. MaxRetries counts attempts after the
// first one, so zero means a single attempt.
type Settings struct {
	MaxRetries uint64
	MaxElapsed time.Duration
}

// Policy returns the backoff for s. backoff.WithMaxRetries treats zero as
// unlimited, so a zero MaxRetries maps to backoff.StopBackOff instead.
func Policy(ctx context.Context, s Settings) backoff.BackOff {
	if s.MaxRetries == 0 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	exp := backoff.NewExponentialBackOff()
	exp.MaxElapsedTime = s.MaxElapsed
	if exp.MaxElapsedTime <= 0 {
		exp.MaxElapsedTime = DefaultMaxElapsed
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, s.MaxRetries), ctx)
}

// Do runs op under the policy for s, calling notify before each retry.
func Do(ctx context.Context, s Settings, op func() error, notify func(err error, next time.Duration)) error {
	return backoff.RetryNotify(op, Policy(ctx, s), notify)
}
