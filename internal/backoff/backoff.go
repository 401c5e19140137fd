// Package backoff wraps fallible operations with bounded exponential-backoff retries.
package backoff

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
)

// Policy bounds a retried operation. The wait before attempt n (n >= 2) is
// BaseDelay * 2^(n-2), i.e. base, 2*base, 4*base, ...
type Policy struct {
	Attempts  uint
	BaseDelay time.Duration
}

// DefaultPolicy is three attempts starting at one second.
var DefaultPolicy = Policy{Attempts: 3, BaseDelay: time.Second}

// Retry runs op until it succeeds, the attempt budget is spent or ctx is done.
// The last attempt's error is returned unmodified.
func Retry[T any](ctx context.Context, p Policy, name string, op func() (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts == 0 {
		attempts = 1
	}
	return retry.DoWithData(op,
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(p.BaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Warn().Err(err).
				Str("operation", name).
				Uint("attempt", n+1).
				Uint("of", attempts).
				Msg("attempt failed")
		}),
	)
}
