package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"gitee.com/flycash/labour-tracker/internal/errs"
	"gitee.com/flycash/labour-tracker/internal/pkg/retry"
	"gitee.com/flycash/labour-tracker/internal/service/template"
	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://api.sendgrid.com"

type Config struct {
	BaseURL   string        `yaml:"baseURL"`
	APIKey    string        `yaml:"apiKey"`
	FromEmail string        `yaml:"fromEmail"`
	FromName  string        `yaml:"fromName"`
	Timeout   time.Duration `yaml:"timeout"`
	Retry     retry.Config  `yaml:"retry"`
}

// SendGridGateway sends email through the SendGrid v3 mail API.
type SendGridGateway struct {
	client  *resty.Client
	catalog *template.Catalog
	cfg     Config
}

func NewSendGridGateway(cfg Config, catalog *template.Catalog) *SendGridGateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.APIKey).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	return &SendGridGateway{client: client, catalog: catalog, cfg: cfg}
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type personalization struct {
	To []address `json:"to"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mailSendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
	CustomArgs       map[string]string `json:"custom_args,omitempty"`
}

// errRetryable marks responses worth sending again.
var errRetryable = errors.New("retryable sendgrid response")

func (g *SendGridGateway) Send(ctx context.Context, n domain.Notification) (domain.SendResult, error) {
	msg, err := g.catalog.Render(n.Template, n.Data)
	if err != nil {
		return domain.SendResult{}, err
	}
	req := mailSendRequest{
		Personalizations: []personalization{{To: []address{{Email: n.Destination}}}},
		From:             address{Email: g.cfg.FromEmail, Name: g.cfg.FromName},
		Subject:          msg.Subject,
		Content:          []content{{Type: "text/plain", Value: msg.Body}},
		CustomArgs:       map[string]string{"notification_id": n.IDString()},
	}

	var resp *resty.Response
	err = retry.Do(ctx, g.cfg.Retry, isRetryable, func(ctx context.Context) error {
		var er error
		resp, er = g.client.R().SetContext(ctx).SetBody(req).Post("/v3/mail/send")
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
		return domain.SendResult{}, fmt.Errorf("%w: sendgrid status %d: %s", errs.ErrGatewaySendFailed,
			resp.StatusCode(), resp.String())
	}
	// 202 means queued for delivery.
	return domain.SendResult{
		Success:    true,
		Status:     domain.NotificationStatusSent,
		ExternalID: resp.Header().Get("X-Message-Id"),
	}, nil
}

func isRetryable(err error) bool {
	return errors.Is(err, errRetryable)
}
