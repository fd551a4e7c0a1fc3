package ioc

import (
	"gitee.com/flycash/labour-tracker/internal/event"
	"gitee.com/flycash/labour-tracker/internal/web/health"
	"github.com/gotomicro/ego/server/egin"
)

func InitWebServer(h *health.Handler) *egin.Component {
	server := egin.Load("server.http").Build()
	h.PublicRoutes(server.Engine)
	return server
}

// InitHealthHandler reports the event consumer's health.
func InitHealthHandler(consumer *event.Consumer) *health.Handler {
	return health.NewHandler(consumer)
}
