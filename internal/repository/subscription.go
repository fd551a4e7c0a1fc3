package repository

import (
	"context"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"gitee.com/flycash/labour-tracker/internal/repository/dao"
	"github.com/ecodeclub/ekit/slice"
	"github.com/ecodeclub/ekit/sqlx"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, s *domain.Subscription) error
	Save(ctx context.Context, s *domain.Subscription) error
	Get(ctx context.Context, id string) (*domain.Subscription, error)
	FindByLabourAndSubscriber(ctx context.Context, labourID, subscriberID string) (*domain.Subscription, error)
	ListActive(ctx context.Context, labourID string) ([]*domain.Subscription, error)
}

type subscriptionRepository struct {
	dao dao.SubscriptionDAO
}

func NewSubscriptionRepository(d dao.SubscriptionDAO) SubscriptionRepository {
	return &subscriptionRepository{dao: d}
}

func (r *subscriptionRepository) Create(ctx context.Context, s *domain.Subscription) error {
	return r.dao.Insert(ctx, r.toEntity(s))
}

func (r *subscriptionRepository) Save(ctx context.Context, s *domain.Subscription) error {
	return r.dao.Save(ctx, r.toEntity(s))
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*domain.Subscription, error) {
	entity, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.toDomain(entity), nil
}

func (r *subscriptionRepository) FindByLabourAndSubscriber(ctx context.Context, labourID, subscriberID string) (*domain.Subscription, error) {
	entity, err := r.dao.FindByLabourAndSubscriber(ctx, labourID, subscriberID)
	if err != nil {
		return nil, err
	}
	return r.toDomain(entity), nil
}

func (r *subscriptionRepository) ListActive(ctx context.Context, labourID string) ([]*domain.Subscription, error) {
	entities, err := r.dao.FindByLabourAndStatus(ctx, labourID, string(domain.SubscriptionStatusSubscribed))
	if err != nil {
		return nil, err
	}
	return slice.Map(entities, func(_ int, src dao.Subscription) *domain.Subscription {
		return r.toDomain(src)
	}), nil
}

func (r *subscriptionRepository) toEntity(s *domain.Subscription) dao.Subscription {
	return dao.Subscription{
		ID:               s.ID,
		LabourID:         s.LabourID,
		BirthingPersonID: s.BirthingPersonID,
		SubscriberID:     s.SubscriberID,
		ContactMethods: sqlx.JsonColumn[[]string]{
			Val:   slice.Map(s.ContactMethods, func(_ int, c domain.Channel) string { return c.String() }),
			Valid: true,
		},
		Status: string(s.Status),
		Ctime:  s.Ctime.UnixMilli(),
		Utime:  s.Utime.UnixMilli(),
	}
}

func (r *subscriptionRepository) toDomain(s dao.Subscription) *domain.Subscription {
	return &domain.Subscription{
		ID:               s.ID,
		LabourID:         s.LabourID,
		BirthingPersonID: s.BirthingPersonID,
		SubscriberID:     s.SubscriberID,
		ContactMethods:   slice.Map(s.ContactMethods.Val, func(_ int, c string) domain.Channel { return domain.Channel(c) }),
		Status:           domain.SubscriptionStatus(s.Status),
		Ctime:            fromMillis(s.Ctime),
		Utime:            fromMillis(s.Utime),
	}
}
