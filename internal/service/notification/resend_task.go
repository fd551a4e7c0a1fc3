package notification

import (
	"context"
	"time"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"gitee.com/flycash/labour-tracker/internal/pkg/loopjob"
	"github.com/gotomicro/ego/core/elog"
	"github.com/meoying/dlock-go"
)

type ResendConfig struct {
	MaxAttempts int           `yaml:"maxAttempts"`
	BatchSize   int           `yaml:"batchSize"`
	Interval    time.Duration `yaml:"interval"`
}

func DefaultResendConfig() ResendConfig {
	return ResendConfig{MaxAttempts: 5, BatchSize: 50, Interval: time.Minute}
}

// ResendFailedTask retries failed notifications until they run out of attempts.
type ResendFailedTask struct {
	dclient dlock.Client
	svc     Service
	cfg     ResendConfig
	logger  *elog.Component
}

func NewResendFailedTask(dclient dlock.Client, svc Service, cfg ResendConfig) *ResendFailedTask {
	def := DefaultResendConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	return &ResendFailedTask{
		dclient: dclient,
		svc:     svc,
		cfg:     cfg,
		logger:  elog.DefaultLogger.With(elog.String("task", "resend_failed_notifications")),
	}
}

func (t *ResendFailedTask) Start(ctx context.Context) {
	const key = "labour_tracker_resend_failed_notifications"
	loopjob.NewInfiniteLoop(t.dclient, t.run, key).WithInterval(t.cfg.Interval).Run(ctx)
}

// run makes one pass and then waits Interval, also after a failed pass.
func (t *ResendFailedTask) run(ctx context.Context) error {
	resent, err := t.ResendFailed(ctx)
	if resent > 0 {
		t.logger.Info("resent failed notifications", elog.Int("count", resent))
	}
	timer := time.NewTimer(t.cfg.Interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	return err
}

// ResendFailed makes one pass over the failed notifications and returns how
// many it handed back to a gateway.
func (t *ResendFailedTask) ResendFailed(ctx context.Context) (int, error) {
	offset, resent := 0, 0
	for {
		batch, err := t.svc.ListByStatus(ctx, domain.NotificationStatusFailure.String(), offset, t.cfg.BatchSize)
		if err != nil {
			return resent, err
		}
		// Anything still failed after this batch keeps its place in the listing.
		stillFailed := 0
		for _, n := range batch {
			if Attempts(n) >= t.cfg.MaxAttempts {
				stillFailed++
				continue
			}
			res, er := t.svc.Resend(ctx, n.IDString())
			resent++
			if er != nil {
				t.logger.Error("resend notification failed", elog.String("notificationID", n.IDString()), elog.FieldErr(er))
				stillFailed++
				continue
			}
			if res.Status == domain.NotificationStatusFailure {
				stillFailed++
			}
		}
		if len(batch) < t.cfg.BatchSize || ctx.Err() != nil {
			return resent, ctx.Err()
		}
		offset += stillFailed
	}
}
