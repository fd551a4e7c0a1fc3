package ratelimit

import (
	"context"
	"fmt"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"gitee.com/flycash/labour-tracker/internal/errs"
	"gitee.com/flycash/labour-tracker/internal/pkg/ratelimit"
	"gitee.com/flycash/labour-tracker/internal/service/gateway"
	"github.com/gotomicro/ego/core/elog"
)

// Gateway keeps the send rate of one channel under the provider's quota.
// When the limiter itself fails the notification is sent anyway.
type Gateway struct {
	gateway.Gateway
	limiter ratelimit.Limiter
	key     string
	logger  *elog.Component
}

func NewGateway(g gateway.Gateway, limiter ratelimit.Limiter, channel domain.Channel) *Gateway {
	return &Gateway{
		Gateway: g,
		limiter: limiter,
		key:     "gateway:" + channel.String(),
		logger:  elog.DefaultLogger,
	}
}

func (g *Gateway) Send(ctx context.Context, n domain.Notification) (domain.SendResult, error) {
	limited, err := g.limiter.Limit(ctx, g.key)
	if err != nil {
		g.logger.Warn("rate limiter unavailable", elog.String("key", g.key), elog.FieldErr(err))
		return g.Gateway.Send(ctx, n)
	}
	if limited {
		return domain.SendResult{Status: domain.NotificationStatusFailure},
			fmt.Errorf("%w: %s", errs.ErrGatewayRateLimited, g.key)
	}
	return g.Gateway.Send(ctx, n)
}
