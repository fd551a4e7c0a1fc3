// Package metrics decorates a gateway with Prometheus send metrics.
package metrics

import (
	"context"
	"errors"
	"time"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"gitee.com/flycash/labour-tracker/internal/service/gateway"
	"github.com/prometheus/client_golang/prometheus"
)

// Collectors is shared by every decorated gateway so each metric registers once.
type Collectors struct {
	sendDuration *prometheus.SummaryVec
	sendStatus   *prometheus.CounterVec
}

func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		sendDuration: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Name:       "gateway_send_duration_seconds",
				Help:       "Time spent sending a notification through a gateway.",
				Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
				MaxAge:     5 * time.Minute,
			},
			[]string{"channel", "status"},
		),
		sendStatus: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_send_total",
				Help: "Notifications sent through a gateway, by resulting status.",
			},
			[]string{"channel", "status"},
		),
	}
	reg.MustRegister(c.sendDuration, c.sendStatus)
	return c
}

type Gateway struct {
	gateway.Gateway
	channel    string
	collectors *Collectors
}

func NewGateway(channel domain.Channel, g gateway.Gateway, c *Collectors) *Gateway {
	return &Gateway{Gateway: g, channel: channel.String(), collectors: c}
}

func (g *Gateway) Send(ctx context.Context, n domain.Notification) (domain.SendResult, error) {
	start := time.Now()
	res, err := g.Gateway.Send(ctx, n)
	status := res.Status.String()
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = "canceled"
	case err != nil:
		status = "error"
	}
	g.collectors.sendStatus.WithLabelValues(g.channel, status).Inc()
	g.collectors.sendDuration.WithLabelValues(g.channel, status).Observe(time.Since(start).Seconds())
	return res, err
}
