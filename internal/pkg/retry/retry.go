package retry

import (
	"context"
	"time"

	"github.com/ecodeclub/ekit/retry"
)

// Do runs fn until it succeeds, shouldRetry rejects the error, the strategy
// gives up or ctx is done. It returns the last error fn produced.
func Do(ctx context.Context, cfg Config, shouldRetry func(err error) bool, fn func(ctx context.Context) error) error {
	strategy, err := NewRetry(cfg)
	if err != nil {
		return err
	}
	for {
		err = fn(ctx)
		if err == nil || (shouldRetry != nil && !shouldRetry(err)) {
			return err
		}
		next, ok := strategy.Next()
		if !ok {
			return err
		}
		timer := time.NewTimer(next)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

type noRetry struct{}

func (noRetry) Next() (time.Duration, bool) {
	return 0, false
}

func (n noRetry) Report(error) retry.Strategy {
	return n
}
