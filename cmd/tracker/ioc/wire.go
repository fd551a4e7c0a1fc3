//go:build wireinject

package ioc

import (
	"gitee.com/flycash/labour-tracker/internal/event/handler"
	"gitee.com/flycash/labour-tracker/internal/ioc"
	"gitee.com/flycash/labour-tracker/internal/repository"
	"gitee.com/flycash/labour-tracker/internal/repository/dao"
	"gitee.com/flycash/labour-tracker/internal/service/gateway"
	laboursvc "gitee.com/flycash/labour-tracker/internal/service/labour"
	notificationsvc "gitee.com/flycash/labour-tracker/internal/service/notification"
	subscriptionsvc "gitee.com/flycash/labour-tracker/internal/service/subscription"
	"github.com/google/wire"
	"github.com/sony/sonyflake"
)

var (
	BaseSet = wire.NewSet(
		ioc.InitDB,
		ioc.InitRegisterer,
		ioc.InitRedisClient,
		ioc.InitDistributedLock,
		ioc.InitIDGenerator,
		ioc.InitIdempotentService,
		ioc.InitContactCache,
		ioc.InitLabourPolicy,
	)
	labourSvcSet = wire.NewSet(
		laboursvc.NewService,
		repository.NewLabourRepository,
		dao.NewLabourDAO,
	)
	subscriptionSvcSet = wire.NewSet(
		subscriptionsvc.NewService,
		repository.NewSubscriptionRepository,
		dao.NewSubscriptionDAO,
		repository.NewContactRepository,
		dao.NewContactDAO,
	)
	notificationSvcSet = wire.NewSet(
		notificationsvc.NewService,
		repository.NewNotificationRepository,
		dao.NewNotificationDAO,
		ioc.InitTemplateCatalog,
		ioc.InitGatewayRouter,
		ioc.InitResendFailedTask,
		wire.Bind(new(notificationsvc.GatewayResolver), new(*gateway.Router)),
		wire.Bind(new(notificationsvc.IDGenerator), new(*sonyflake.Sonyflake)),
	)
	eventSet = wire.NewSet(
		ioc.InitEventProducer,
		handler.NewNotifier,
		ioc.InitEventRegistry,
		ioc.InitEventConsumer,
	)
)

func InitApp() *ioc.App {
	wire.Build(
		BaseSet,

		labourSvcSet,
		subscriptionSvcSet,
		notificationSvcSet,
		eventSet,

		ioc.InitTasks,
		ioc.InitHealthHandler,
		ioc.InitWebServer,
		wire.Struct(new(ioc.App), "*"),
	)
	return new(ioc.App)
}
