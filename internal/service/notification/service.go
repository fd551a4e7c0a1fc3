package notification

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"gitee.com/flycash/labour-tracker/internal/errs"
	"gitee.com/flycash/labour-tracker/internal/repository"
	"gitee.com/flycash/labour-tracker/internal/service/gateway"
	"github.com/gotomicro/ego/core/elog"
)

const (
	MetadataError    = "error"
	MetadataAttempts = "attempts"
)

// Service owns the notification lifecycle: created, then sent, then success or failure.
//
//go:generate mockgen -source=./service.go -destination=./mocks/service.mock.go -package=notificationmocks Service
type Service interface {
	// CreateNotification stores a new notification. A notification whose key
	// already exists is returned as is.
	CreateNotification(ctx context.Context, params CreateNotificationParams) (domain.Notification, error)
	// Send delivers the notification through its channel's gateway. Gateway
	// failures are recorded on the notification, not returned.
	Send(ctx context.Context, id string) (domain.Notification, error)
	Resend(ctx context.Context, id string) (domain.Notification, error)
	GetNotification(ctx context.Context, id string) (domain.Notification, error)
	ListByStatus(ctx context.Context, status string, offset, limit int) ([]domain.Notification, error)
}

type CreateNotificationParams struct {
	Channel     string
	Destination string
	Template    string
	Data        map[string]string
	// Status defaults to created.
	Status   string
	Metadata map[string]string
	// Key deduplicates notifications. Empty means no deduplication and the id is used.
	Key string
}

// GatewayResolver is satisfied by gateway.Router.
type GatewayResolver interface {
	GetGateway(channel string) (gateway.Gateway, error)
}

// IDGenerator is satisfied by *sonyflake.Sonyflake.
type IDGenerator interface {
	NextID() (uint64, error)
}

type service struct {
	repo     repository.NotificationRepository
	gateways GatewayResolver
	idGen    IDGenerator
	logger   *elog.Component
}

func NewService(repo repository.NotificationRepository, gateways GatewayResolver, idGen IDGenerator) Service {
	return &service{
		repo:     repo,
		gateways: gateways,
		idGen:    idGen,
		logger:   elog.DefaultLogger,
	}
}

func (s *service) CreateNotification(ctx context.Context, params CreateNotificationParams) (domain.Notification, error) {
	n, err := s.validate(params)
	if err != nil {
		return domain.Notification{}, err
	}
	if n.Key != "" {
		existing, er := s.repo.GetByKey(ctx, n.Key)
		if er == nil {
			return existing, nil
		}
		if !errors.Is(er, errs.ErrNotificationNotFoundByID) {
			return domain.Notification{}, er
		}
	}
	n.ID, err = s.idGen.NextID()
	if err != nil {
		return domain.Notification{}, fmt.Errorf("%w: %w", errs.ErrNotificationIDGenerateFailed, err)
	}
	if n.Key == "" {
		n.Key = n.IDString()
	}
	created, err := s.repo.Create(ctx, n)
	if errors.Is(err, errs.ErrNotificationDuplicate) && params.Key != "" {
		// lost a race with a concurrent creator
		return s.repo.GetByKey(ctx, n.Key)
	}
	return created, err
}

func (s *service) validate(params CreateNotificationParams) (domain.Notification, error) {
	channel, err := domain.ParseChannel(params.Channel)
	if err != nil {
		return domain.Notification{}, err
	}
	tmpl, err := domain.ParseTemplate(params.Template)
	if err != nil {
		return domain.Notification{}, err
	}
	status := domain.NotificationStatusCreated
	if params.Status != "" {
		status, err = domain.ParseNotificationStatus(params.Status)
		if err != nil {
			return domain.Notification{}, err
		}
	}
	if params.Destination == "" {
		return domain.Notification{}, fmt.Errorf("%w: empty destination for %s", errs.ErrInvalidNotificationDestination, channel)
	}
	return domain.Notification{
		Key:         params.Key,
		Channel:     channel,
		Destination: params.Destination,
		Template:    tmpl,
		Data:        params.Data,
		Status:      status,
		Metadata:    params.Metadata,
	}, nil
}

func (s *service) Send(ctx context.Context, id string) (domain.Notification, error) {
	n, err := s.GetNotification(ctx, id)
	if err != nil {
		return domain.Notification{}, err
	}
	return s.deliver(ctx, n)
}

func (s *service) Resend(ctx context.Context, id string) (domain.Notification, error) {
	n, err := s.GetNotification(ctx, id)
	if err != nil {
		return domain.Notification{}, err
	}
	if !n.CanResend() {
		return domain.Notification{}, fmt.Errorf("%w: %s is %s", errs.ErrCannotResendNotification, id, n.Status)
	}
	return s.deliver(ctx, n)
}

func (s *service) deliver(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	n.Metadata = copyMetadata(n.Metadata)
	n.Metadata[MetadataAttempts] = strconv.Itoa(Attempts(n) + 1)

	res, err := s.send(ctx, n)
	if err != nil {
		s.logger.Warn("notification send failed",
			elog.String("notificationID", n.IDString()),
			elog.String("channel", n.Channel.String()),
			elog.FieldErr(err))
		n.Status = domain.NotificationStatusFailure
		n.Metadata[MetadataError] = err.Error()
	} else {
		n.Status = res.Status
		n.ExternalID = res.ExternalID
		delete(n.Metadata, MetadataError)
	}
	if err = s.repo.UpdateStatus(ctx, n); err != nil {
		return domain.Notification{}, err
	}
	return n, nil
}

func (s *service) send(ctx context.Context, n domain.Notification) (domain.SendResult, error) {
	gw, err := s.gateways.GetGateway(n.Channel.String())
	if err != nil {
		return domain.SendResult{}, err
	}
	res, err := gw.Send(ctx, n)
	if err != nil {
		return domain.SendResult{}, err
	}
	if !res.Status.IsValid() {
		return domain.SendResult{}, fmt.Errorf("%w: gateway reported status %q", errs.ErrGatewaySendFailed, res.Status)
	}
	return res, nil
}

func (s *service) GetNotification(ctx context.Context, id string) (domain.Notification, error) {
	nid, err := domain.ParseNotificationID(id)
	if err != nil {
		return domain.Notification{}, err
	}
	return s.repo.GetByID(ctx, nid)
}

func (s *service) ListByStatus(ctx context.Context, status string, offset, limit int) ([]domain.Notification, error) {
	st, err := domain.ParseNotificationStatus(status)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByStatus(ctx, st, offset, limit)
}

// Attempts is how many times the notification has been handed to a gateway.
func Attempts(n domain.Notification) int {
	v, err := strconv.Atoi(n.Metadata[MetadataAttempts])
	if err != nil {
		return 0
	}
	return v
}

func copyMetadata(m map[string]string) map[string]string {
	res := make(map[string]string, len(m)+2)
	for k, v := range m {
		res[k] = v
	}
	return res
}
