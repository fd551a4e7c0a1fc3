package ioc

import (
	"gitee.com/flycash/labour-tracker/internal/repository/cache/local"
	"gitee.com/flycash/labour-tracker/internal/service/notification"
	"github.com/gotomicro/ego/core/econf"
	"github.com/meoying/dlock-go"
)

func InitResendFailedTask(dclient dlock.Client, svc notification.Service) *notification.ResendFailedTask {
	cfg := notification.DefaultResendConfig()
	if err := econf.UnmarshalKey("notification.resend", &cfg); err != nil {
		panic(err)
	}
	return notification.NewResendFailedTask(dclient, svc, cfg)
}

func InitContactCache() *local.ContactCache {
	return local.NewContactCache(econf.GetDuration("contact.cacheExpiration"))
}
