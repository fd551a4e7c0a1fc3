package ioc

import (
	"context"

	"gitee.com/flycash/labour-tracker/internal/event"
	laboursvc "gitee.com/flycash/labour-tracker/internal/service/labour"
	notificationsvc "gitee.com/flycash/labour-tracker/internal/service/notification"
	subscriptionsvc "gitee.com/flycash/labour-tracker/internal/service/subscription"
	"github.com/gotomicro/ego/server/egin"
)

type App struct {
	Web      *egin.Component
	Consumer *event.Consumer
	Producer event.Producer
	Tasks    []Task

	LabourSvc       laboursvc.Service
	SubscriptionSvc subscriptionsvc.Service
	NotificationSvc notificationsvc.Service
}

func (a *App) StartTasks(ctx context.Context) {
	for _, t := range a.Tasks {
		go func(t Task) {
			t.Start(ctx)
		}(t)
	}
}

// Close flushes events still waiting for delivery.
func (a *App) Close() {
	if c, ok := a.Producer.(interface{ Close() }); ok {
		c.Close()
	}
}
