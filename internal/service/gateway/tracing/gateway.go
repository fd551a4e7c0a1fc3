package tracing

import (
	"context"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"gitee.com/flycash/labour-tracker/internal/service/gateway"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Gateway wraps every send in a span.
type Gateway struct {
	gateway.Gateway
	tracer trace.Tracer
}

func NewGateway(g gateway.Gateway) *Gateway {
	return &Gateway{
		Gateway: g,
		tracer:  otel.Tracer("labour-tracker/gateway"),
	}
}

func (g *Gateway) Send(ctx context.Context, n domain.Notification) (domain.SendResult, error) {
	ctx, span := g.tracer.Start(ctx, "Gateway.Send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("notification.id", n.IDString()),
			attribute.String("notification.key", n.Key),
			attribute.String("notification.channel", n.Channel.String()),
			attribute.String("notification.template", n.Template.String()),
		))
	defer span.End()

	res, err := g.Gateway.Send(ctx, n)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	span.SetAttributes(
		attribute.String("notification.status", res.Status.String()),
		attribute.String("notification.externalID", res.ExternalID),
	)
	return res, nil
}
