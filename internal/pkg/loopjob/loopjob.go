package loopjob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gotomicro/ego/core/elog"
	"github.com/meoying/dlock-go"
)

// Without a job scheduler, background jobs run in a loop owned by whichever
// instance holds the distributed lock.

const (
	defaultTimeout  = 3 * time.Second
	defaultInterval = time.Minute
)

type InfiniteLoop struct {
	dclient dlock.Client
	key     string
	logger  *elog.Component
	biz     func(ctx context.Context) error
	// interval is both the lock lease and the back-off after a failure.
	interval time.Duration
}

// NewInfiniteLoop runs biz over and over while holding the lock named key.
// Cancelling the ctx passed to Run ends every loop.
func NewInfiniteLoop(dclient dlock.Client, biz func(ctx context.Context) error, key string) *InfiniteLoop {
	return &InfiniteLoop{
		dclient:  dclient,
		key:      key,
		logger:   elog.DefaultLogger.With(elog.String("key", key)),
		biz:      biz,
		interval: defaultInterval,
	}
}

func (l *InfiniteLoop) WithInterval(interval time.Duration) *InfiniteLoop {
	if interval > 0 {
		l.interval = interval
	}
	return l
}

// Run returns once ctx is done.
func (l *InfiniteLoop) Run(ctx context.Context) {
	for {
		lock, err := l.dclient.NewLock(ctx, l.key, l.interval)
		if err != nil {
			l.logger.Error("init distributed lock failed, retrying", elog.FieldErr(err))
			if !l.sleep(ctx) {
				return
			}
			continue
		}

		lockCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
		// Held by someone else or a lock service failure; either way wait and try again.
		err = lock.Lock(lockCtx)
		cancel()
		if err != nil {
			l.logger.Debug("distributed lock not acquired", elog.FieldErr(err))
			if !l.sleep(ctx) {
				return
			}
			continue
		}

		err = l.bizLoop(ctx, lock)
		if err != nil {
			l.logger.Error("job loop interrupted", elog.FieldErr(err))
		}
		// ctx may already be cancelled here and the lock still has to go.
		unCtx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
		//nolint:contextcheck // unlock must outlive the cancelled ctx
		unErr := lock.Unlock(unCtx)
		cancel()
		if unErr != nil {
			l.logger.Error("release distributed lock failed", elog.FieldErr(unErr))
		}
		if err = ctx.Err(); errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			l.logger.Info("job cancelled, leaving loop")
			return
		}
		if !l.sleep(ctx) {
			return
		}
	}
}

func (l *InfiniteLoop) bizLoop(ctx context.Context, lock dlock.Lock) error {
	for {
		if err := l.biz(ctx); err != nil {
			l.logger.Error("job run failed", elog.FieldErr(err))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		refCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
		err := lock.Refresh(refCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("refresh distributed lock: %w", err)
		}
	}
}

// sleep waits one interval and reports whether ctx is still live.
func (l *InfiniteLoop) sleep(ctx context.Context) bool {
	timer := time.NewTimer(l.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
