package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"gitee.com/flycash/labour-tracker/internal/errs"
	"gitee.com/flycash/labour-tracker/internal/pkg/retry"
	"gitee.com/flycash/labour-tracker/internal/service/template"
	"github.com/go-resty/resty/v2"
)

const (
	defaultBaseURL = "https://api.twilio.com"
	addressPrefix  = "whatsapp:"
)

type Config struct {
	BaseURL    string        `yaml:"baseURL"`
	AccountSID string        `yaml:"accountSID"`
	AuthToken  string        `yaml:"authToken"`
	FromNumber string        `yaml:"fromNumber"`
	Timeout    time.Duration `yaml:"timeout"`
	Retry      retry.Config  `yaml:"retry"`
}

// TwilioGateway sends WhatsApp messages through the Twilio Messages API.
type TwilioGateway struct {
	client  *resty.Client
	catalog *template.Catalog
	cfg     Config
}

func NewTwilioGateway(cfg Config, catalog *template.Catalog) *TwilioGateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetBasicAuth(cfg.AccountSID, cfg.AuthToken).
		SetTimeout(cfg.Timeout)
	return &TwilioGateway{client: client, catalog: catalog, cfg: cfg}
}

type messageResponse struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	ErrorCode    *int   `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

type errorResponse struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
}

var errRetryable = errors.New("retryable twilio response")

func (g *TwilioGateway) Send(ctx context.Context, n domain.Notification) (domain.SendResult, error) {
	msg, err := g.catalog.Render(n.Template, n.Data)
	if err != nil {
		return domain.SendResult{}, err
	}
	form := map[string]string{
		"From": withPrefix(g.cfg.FromNumber),
		"To":   withPrefix(n.Destination),
		"Body": msg.Body,
	}
	path := fmt.Sprintf("/2010-04-01/Accounts/%s/Messages.json", g.cfg.AccountSID)

	var (
		resp   *resty.Response
		result messageResponse
		failed errorResponse
	)
	err = retry.Do(ctx, g.cfg.Retry, func(err error) bool {
		return errors.Is(err, errRetryable)
	}, func(ctx context.Context) error {
		var er error
		resp, er = g.client.R().
			SetContext(ctx).
			SetFormData(form).
			SetResult(&result).
			SetError(&failed).
			Post(path)
		if er != nil {
			return fmt.Errorf("%w: %w", errRetryable, er)
		}
		if resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError {
			return fmt.Errorf("%w: status %d", errRetryable, resp.StatusCode())
		}
		return nil
	})
	if err != nil {
		return domain.SendResult{}, fmt.Errorf("%w: %w", errs.ErrGatewaySendFailed, err)
	}
	if resp.IsError() {
		return domain.SendResult{}, fmt.Errorf("%w: twilio status %d code %d: %s", errs.ErrGatewaySendFailed,
			resp.StatusCode(), failed.Code, failed.Message)
	}
	status := mapStatus(result.Status)
	return domain.SendResult{
		Success:    status != domain.NotificationStatusFailure,
		Status:     status,
		ExternalID: result.SID,
	}, nil
}

func mapStatus(s string) domain.NotificationStatus {
	switch s {
	case "delivered", "read":
		return domain.NotificationStatusSuccess
	case "failed", "undelivered", "canceled":
		return domain.NotificationStatusFailure
	default:
		// queued, accepted, sending, sent and anything newer
		return domain.NotificationStatusSent
	}
}

func withPrefix(number string) string {
	if strings.HasPrefix(number, addressPrefix) {
		return number
	}
	return addressPrefix + number
}
