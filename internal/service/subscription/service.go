package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"gitee.com/flycash/labour-tracker/internal/errs"
	"gitee.com/flycash/labour-tracker/internal/event"
	"gitee.com/flycash/labour-tracker/internal/repository"
)

type Service interface {
	// Subscribe reactivates a removed subscription instead of creating a second one.
	Subscribe(ctx context.Context, labourID, subscriberID string, contactMethods []string) (*domain.Subscription, error)
	Unsubscribe(ctx context.Context, subscriptionID string) error
	UpdateContactMethods(ctx context.Context, subscriptionID string, contactMethods []string) (*domain.Subscription, error)
	ListActive(ctx context.Context, labourID string) ([]*domain.Subscription, error)
	// SaveContact stores how a user is reached.
	SaveContact(ctx context.Context, c domain.Contact) error
}

type service struct {
	labours  repository.LabourRepository
	subs     repository.SubscriptionRepository
	contacts repository.ContactRepository
	producer event.Producer
	now      func() time.Time
}

func NewService(
	labours repository.LabourRepository,
	subs repository.SubscriptionRepository,
	contacts repository.ContactRepository,
	producer event.Producer,
) Service {
	return &service{
		labours:  labours,
		subs:     subs,
		contacts: contacts,
		producer: producer,
		now:      time.Now,
	}
}

func (s *service) Subscribe(ctx context.Context, labourID, subscriberID string, contactMethods []string) (*domain.Subscription, error) {
	l, err := s.labours.Get(ctx, labourID)
	if err != nil {
		return nil, err
	}
	if l.IsCompleted() {
		return nil, fmt.Errorf("%w: %s", errs.ErrLabourAlreadyCompleted, labourID)
	}
	now := s.now()
	existing, err := s.subs.FindByLabourAndSubscriber(ctx, labourID, subscriberID)
	switch {
	case err == nil:
		if err = existing.Resubscribe(contactMethods, now); err != nil {
			return nil, err
		}
		if err = s.subs.Save(ctx, existing); err != nil {
			return nil, err
		}
		s.publish(ctx, existing)
		return existing, nil
	case !errors.Is(err, errs.ErrSubscriptionNotFoundByID):
		return nil, err
	}

	sub, err := domain.NewSubscription(domain.SubscribeParams{
		LabourID:         labourID,
		BirthingPersonID: l.BirthingPersonID,
		SubscriberID:     subscriberID,
		ContactMethods:   contactMethods,
		Now:              now,
	})
	if err != nil {
		return nil, err
	}
	if err = s.subs.Create(ctx, sub); err != nil {
		return nil, err
	}
	s.publish(ctx, sub)
	return sub, nil
}

func (s *service) Unsubscribe(ctx context.Context, subscriptionID string) error {
	sub, err := s.subs.Get(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if err = sub.Remove(s.now()); err != nil {
		return err
	}
	if err = s.subs.Save(ctx, sub); err != nil {
		return err
	}
	s.publish(ctx, sub)
	return nil
}

func (s *service) UpdateContactMethods(ctx context.Context, subscriptionID string, contactMethods []string) (*domain.Subscription, error) {
	sub, err := s.subs.Get(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if err = sub.UpdateContactMethods(contactMethods, s.now()); err != nil {
		return nil, err
	}
	return sub, s.subs.Save(ctx, sub)
}

func (s *service) ListActive(ctx context.Context, labourID string) ([]*domain.Subscription, error) {
	return s.subs.ListActive(ctx, labourID)
}

func (s *service) SaveContact(ctx context.Context, c domain.Contact) error {
	if c.ID == "" {
		return fmt.Errorf("%w: empty contact id", errs.ErrInvalidContact)
	}
	return s.contacts.Save(ctx, c)
}

func (s *service) publish(ctx context.Context, sub *domain.Subscription) {
	if evts := sub.DrainEvents(); len(evts) > 0 {
		s.producer.PublishBatch(ctx, evts)
	}
}
