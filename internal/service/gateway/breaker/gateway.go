package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"gitee.com/flycash/labour-tracker/internal/errs"
	"gitee.com/flycash/labour-tracker/internal/service/gateway"
	"github.com/go-kratos/aegis/circuitbreaker"
	"github.com/go-kratos/aegis/circuitbreaker/sre"
)

type Config struct {
	// Success is the success ratio below which requests start being dropped.
	Success float64       `yaml:"success"`
	Request int64         `yaml:"request"`
	Window  time.Duration `yaml:"window"`
	Bucket  int           `yaml:"bucket"`
}

func (c Config) options() []sre.Option {
	opts := make([]sre.Option, 0, 4)
	if c.Success > 0 {
		opts = append(opts, sre.WithSuccess(c.Success))
	}
	if c.Request > 0 {
		opts = append(opts, sre.WithRequest(c.Request))
	}
	if c.Window > 0 {
		opts = append(opts, sre.WithWindow(c.Window))
	}
	if c.Bucket > 0 {
		opts = append(opts, sre.WithBucket(c.Bucket))
	}
	return opts
}

// Gateway stops calling a failing provider until it recovers. A rejected send
// fails fast with errs.ErrGatewayUnavailable.
type Gateway struct {
	gateway.Gateway
	breaker circuitbreaker.CircuitBreaker
}

func NewGateway(g gateway.Gateway, cfg Config) *Gateway {
	return newGateway(g, sre.NewBreaker(cfg.options()...))
}

func newGateway(g gateway.Gateway, b circuitbreaker.CircuitBreaker) *Gateway {
	return &Gateway{Gateway: g, breaker: b}
}

func (g *Gateway) Send(ctx context.Context, n domain.Notification) (domain.SendResult, error) {
	if err := g.breaker.Allow(); err != nil {
		return domain.SendResult{Status: domain.NotificationStatusFailure},
			fmt.Errorf("%w: %w", errs.ErrGatewayUnavailable, err)
	}
	res, err := g.Gateway.Send(ctx, n)
	// A cancelled caller says nothing about the provider.
	if errors.Is(err, context.Canceled) {
		return res, err
	}
	if err != nil {
		g.breaker.MarkFailed()
	} else {
		g.breaker.MarkSuccess()
	}
	return res, err
}
