package repository

import (
	"context"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"gitee.com/flycash/labour-tracker/internal/repository/dao"
	"github.com/ecodeclub/ekit/slice"
	"github.com/ecodeclub/ekit/sqlx"
)

//go:generate mockgen -source=./notification.go -destination=./mocks/notification.mock.go -package=repomocks
type NotificationRepository interface {
	// Create returns errs.ErrNotificationDuplicate when the key is taken.
	Create(ctx context.Context, n domain.Notification) (domain.Notification, error)
	GetByID(ctx context.Context, id uint64) (domain.Notification, error)
	GetByKey(ctx context.Context, key string) (domain.Notification, error)
	UpdateStatus(ctx context.Context, n domain.Notification) error
	FindByStatus(ctx context.Context, status domain.NotificationStatus, offset, limit int) ([]domain.Notification, error)
}

type notificationRepository struct {
	dao dao.NotificationDAO
}

func NewNotificationRepository(d dao.NotificationDAO) NotificationRepository {
	return &notificationRepository{dao: d}
}

func (r *notificationRepository) Create(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	entity, err := r.dao.Create(ctx, r.toEntity(n))
	if err != nil {
		return domain.Notification{}, err
	}
	return r.toDomain(entity), nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id uint64) (domain.Notification, error) {
	entity, err := r.dao.GetByID(ctx, id)
	if err != nil {
		return domain.Notification{}, err
	}
	return r.toDomain(entity), nil
}

func (r *notificationRepository) GetByKey(ctx context.Context, key string) (domain.Notification, error) {
	entity, err := r.dao.GetByKey(ctx, key)
	if err != nil {
		return domain.Notification{}, err
	}
	return r.toDomain(entity), nil
}

func (r *notificationRepository) UpdateStatus(ctx context.Context, n domain.Notification) error {
	return r.dao.UpdateStatus(ctx, r.toEntity(n))
}

func (r *notificationRepository) FindByStatus(ctx context.Context, status domain.NotificationStatus, offset, limit int) ([]domain.Notification, error) {
	entities, err := r.dao.FindByStatus(ctx, status.String(), offset, limit)
	if err != nil {
		return nil, err
	}
	return slice.Map(entities, func(_ int, src dao.Notification) domain.Notification {
		return r.toDomain(src)
	}), nil
}

func (r *notificationRepository) toEntity(n domain.Notification) dao.Notification {
	return dao.Notification{
		ID:          n.ID,
		Key:         n.Key,
		Channel:     n.Channel.String(),
		Destination: n.Destination,
		Template:    n.Template.String(),
		Data:        sqlx.JsonColumn[map[string]string]{Val: n.Data, Valid: n.Data != nil},
		Status:      n.Status.String(),
		ExternalID:  n.ExternalID,
		Metadata:    sqlx.JsonColumn[map[string]string]{Val: n.Metadata, Valid: n.Metadata != nil},
	}
}

func (r *notificationRepository) toDomain(n dao.Notification) domain.Notification {
	return domain.Notification{
		ID:          n.ID,
		Key:         n.Key,
		Channel:     domain.Channel(n.Channel),
		Destination: n.Destination,
		Template:    domain.Template(n.Template),
		Data:        n.Data.Val,
		Status:      domain.NotificationStatus(n.Status),
		ExternalID:  n.ExternalID,
		Metadata:    n.Metadata.Val,
		Ctime:       fromMillis(n.Ctime),
		Utime:       fromMillis(n.Utime),
	}
}
