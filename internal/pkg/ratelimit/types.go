package ratelimit

import "context"

type Limiter interface {
	// Limit reports whether the caller identified by key is over its rate.
	// A call that is not limited is counted.
	Limit(ctx context.Context, key string) (bool, error)
}
