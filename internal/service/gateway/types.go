package gateway

import (
	"context"

	"gitee.com/flycash/labour-tracker/internal/domain"
)

// Gateway delivers a notification over one channel.
// A returned error means the provider could not be reached or refused the
// message; the caller records that as a failure.
//
//go:generate mockgen -source=./types.go -destination=./mocks/gateway.mock.go -package=gatewaymocks Gateway
type Gateway interface {
	Send(ctx context.Context, n domain.Notification) (domain.SendResult, error)
}

// GatewayFunc adapts a function to a Gateway.
type GatewayFunc func(ctx context.Context, n domain.Notification) (domain.SendResult, error)

func (f GatewayFunc) Send(ctx context.Context, n domain.Notification) (domain.SendResult, error) {
	return f(ctx, n)
}
