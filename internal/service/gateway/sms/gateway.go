package sms

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"gitee.com/flycash/labour-tracker/internal/errs"
	"gitee.com/flycash/labour-tracker/internal/service/gateway/sms/client"
	"gitee.com/flycash/labour-tracker/internal/service/template"
	"github.com/gotomicro/ego/core/elog"
	"github.com/hashicorp/go-multierror"
)

// Vendor is one SMS supplier and the signature registered with it.
type Vendor struct {
	Name     string
	SignName string
	Client   client.Client
}

// Gateway tries vendors in order and stops at the first one that accepts the message.
type Gateway struct {
	vendors []Vendor
	catalog *template.Catalog
	logger  *elog.Component
}

func NewGateway(catalog *template.Catalog, vendors ...Vendor) *Gateway {
	return &Gateway{
		vendors: vendors,
		catalog: catalog,
		logger:  elog.DefaultLogger,
	}
}

func (g *Gateway) Send(ctx context.Context, n domain.Notification) (domain.SendResult, error) {
	if len(g.vendors) == 0 {
		return domain.SendResult{}, fmt.Errorf("%w: no sms vendor configured", errs.ErrGatewayUnavailable)
	}
	var err error
	for _, v := range g.vendors {
		if ctx.Err() != nil {
			err = multierror.Append(err, ctx.Err())
			break
		}
		res, er := g.sendWith(v, n)
		if er == nil {
			return res, nil
		}
		g.logger.Warn("sms vendor failed, trying next",
			elog.String("vendor", v.Name),
			elog.String("notificationID", n.IDString()),
			elog.FieldErr(er))
		err = multierror.Append(err, fmt.Errorf("%s: %w", v.Name, er))
	}
	return domain.SendResult{}, fmt.Errorf("%w: %w", errs.ErrGatewaySendFailed, err)
}

func (g *Gateway) sendWith(v Vendor, n domain.Notification) (domain.SendResult, error) {
	templateID, err := g.catalog.SMSTemplateID(n.Template, v.Name)
	if err != nil {
		return domain.SendResult{}, err
	}
	resp, err := v.Client.Send(client.SendReq{
		PhoneNumbers:       []string{n.Destination},
		SignName:           v.SignName,
		TemplateID:         templateID,
		TemplateParam:      n.Data,
		TemplateParamOrder: sortedKeys(n.Data),
	})
	if err != nil {
		return domain.SendResult{}, err
	}
	if len(resp.PhoneNumbers) == 0 {
		return domain.SendResult{}, fmt.Errorf("%w: no status for %s", client.ErrSendFailed, n.Destination)
	}
	var serial string
	for phone, status := range resp.PhoneNumbers {
		// Aliyun answers "OK", Tencent "Ok".
		if !strings.EqualFold(status.Code, client.OK) {
			return domain.SendResult{}, fmt.Errorf("%w: %s code %s: %s", client.ErrSendFailed, phone, status.Code, status.Message)
		}
		serial = status.SerialNo
	}
	if serial == "" {
		serial = resp.RequestID
	}
	return domain.SendResult{
		Success:    true,
		Status:     domain.NotificationStatusSent,
		ExternalID: v.Name + ":" + serial,
	}, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
