package idempotent

import "context"

// Service remembers which keys have been processed.
type Service interface {
	Processed(ctx context.Context, key string) (bool, error)
	MarkProcessed(ctx context.Context, key string) error
}
