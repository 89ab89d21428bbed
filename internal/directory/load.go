package directory

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// StartupBackoff gives up after maxElapsed. BackOff values are stateful, so
// every caller gets a fresh one.
func StartupBackoff(maxElapsed time.Duration) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxElapsed
	return bo
}

// LoadWithRetry calls Load until it succeeds, bo stops, or ctx ends. Only
// start-up uses it; a mutation's persist is never retried.
func (c *Cache) LoadWithRetry(ctx context.Context, bo backoff.BackOff) error {
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := c.Load(ctx)
		if err != nil {
			c.logger.Printf("Loading contacts failed (attempt %d): %v", attempt, err)
		}
		return err
	}, backoff.WithContext(bo, ctx))
}
