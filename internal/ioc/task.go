package ioc

import (
	"context"

	"gitee.com/flycash/labour-tracker/internal/service/notification"
)

// Task runs in the background until ctx is done.
type Task interface {
	Start(ctx context.Context)
}

func InitTasks(resend *notification.ResendFailedTask) []Task {
	return []Task{
		resend,
	}
}
