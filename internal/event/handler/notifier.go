package handler

import (
	"context"
	"errors"
	"fmt"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"gitee.com/flycash/labour-tracker/internal/errs"
	"gitee.com/flycash/labour-tracker/internal/event"
	"gitee.com/flycash/labour-tracker/internal/repository"
	"gitee.com/flycash/labour-tracker/internal/service/notification"
	"github.com/gotomicro/ego/core/elog"
	"github.com/hashicorp/go-multierror"
)

// Notifier turns domain events into notifications for the people following a labour.
type Notifier struct {
	labours       repository.LabourRepository
	subscriptions repository.SubscriptionRepository
	contacts      repository.ContactRepository
	notifications notification.Service
}

func NewNotifier(
	labours repository.LabourRepository,
	subscriptions repository.SubscriptionRepository,
	contacts repository.ContactRepository,
	notifications notification.Service,
) *Notifier {
	return &Notifier{
		labours:       labours,
		subscriptions: subscriptions,
		contacts:      contacts,
		notifications: notifications,
	}
}

// Factories is the handler table the consumer registry is built from.
func (n *Notifier) Factories() map[string]event.HandlerFactory {
	return map[string]event.HandlerFactory{
		domain.EventTypeLabourBegun:               n.factory(domain.TemplateLabourBegun, n.activeSubscribers),
		domain.EventTypeLabourCompleted:           n.factory(domain.TemplateLabourCompleted, n.activeSubscribers),
		domain.EventTypeAnnouncementPosted:        n.factory(domain.TemplateLabourAnnouncement, n.activeSubscribers),
		domain.EventTypeLabourHospitalRecommended: n.factory(domain.TemplateHospitalRecommended, n.birthingPerson),
		domain.EventTypeSubscriberAdded:           n.factory(domain.TemplateSubscriberAdded, n.subscriber),
		domain.EventTypeSubscriberRemoved:         n.factory(domain.TemplateSubscriberRemoved, n.subscriber),
	}
}

type recipient struct {
	contactID string
	channels  []domain.Channel
}

type recipientsFunc func(ctx context.Context, evt domain.DomainEvent, l *domain.Labour) ([]recipient, error)

func (n *Notifier) factory(tmpl domain.Template, recipients recipientsFunc) event.HandlerFactory {
	return func(scope *event.Scope) event.Handler {
		return &handler{Notifier: n, scope: scope, tmpl: tmpl, recipients: recipients}
	}
}

func (n *Notifier) activeSubscribers(ctx context.Context, _ domain.DomainEvent, l *domain.Labour) ([]recipient, error) {
	subs, err := n.subscriptions.ListActive(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	res := make([]recipient, 0, len(subs))
	for _, s := range subs {
		res = append(res, recipient{contactID: s.SubscriberID, channels: s.ReachableOn(l.PaymentPlan)})
	}
	return res, nil
}

func (n *Notifier) birthingPerson(_ context.Context, _ domain.DomainEvent, l *domain.Labour) ([]recipient, error) {
	return []recipient{{contactID: l.BirthingPersonID, channels: l.PaymentPlan.AllowedChannels()}}, nil
}

// subscriber reaches the subscriber whether or not the subscription is still active.
func (n *Notifier) subscriber(ctx context.Context, evt domain.DomainEvent, l *domain.Labour) ([]recipient, error) {
	s, err := n.subscriptions.Get(ctx, evt.DataString("subscription_id"))
	if err != nil {
		return nil, err
	}
	return []recipient{{contactID: s.SubscriberID, channels: s.ReachableOn(l.PaymentPlan)}}, nil
}

type handler struct {
	*Notifier
	scope      *event.Scope
	tmpl       domain.Template
	recipients recipientsFunc
}

func (h *handler) Handle(ctx context.Context, evt domain.DomainEvent) error {
	logger := h.scope.Logger.With(elog.String("eventID", evt.ID), elog.String("template", h.tmpl.String()))
	l, err := h.labours.Get(ctx, evt.DataString("labour_id"))
	if err != nil {
		return h.skipIfGone(logger, err)
	}
	recipients, err := h.recipients(ctx, evt, l)
	if err != nil {
		return h.skipIfGone(logger, err)
	}
	data := h.templateData(ctx, evt, l)

	for _, r := range recipients {
		er := h.notifyRecipient(ctx, logger, evt, r, data)
		if er != nil {
			err = multierror.Append(err, fmt.Errorf("recipient %s: %w", r.contactID, er))
		}
	}
	return err
}

// undeliverable errors fail the same way on every redelivery of the event.
func undeliverable(err error) bool {
	return errors.Is(err, errs.ErrContactNotFound) ||
		errors.Is(err, errs.ErrInvalidContact) ||
		errors.Is(err, errs.ErrInvalidNotificationChannel) ||
		errors.Is(err, errs.ErrInvalidNotificationTemplate) ||
		errors.Is(err, errs.ErrInvalidNotificationDestination)
}

// skipIfGone drops events whose labour or subscription no longer exists.
func (h *handler) skipIfGone(logger *elog.Component, err error) error {
	if errors.Is(err, errs.ErrLabourNotFound) || errors.Is(err, errs.ErrSubscriptionNotFoundByID) {
		logger.Warn("event refers to a missing record, skipped", elog.FieldErr(err))
		return nil
	}
	return err
}

func (h *handler) templateData(ctx context.Context, evt domain.DomainEvent, l *domain.Labour) map[string]string {
	data := map[string]string{"labour_name": l.LabourName}
	if bp, err := h.contact(ctx, l.BirthingPersonID); err == nil {
		data["birthing_person_name"] = bp.FirstName
	} else {
		h.scope.Logger.Warn("birthing person contact unavailable", elog.String("contactID", l.BirthingPersonID), elog.FieldErr(err))
	}
	switch evt.Type {
	case domain.EventTypeAnnouncementPosted:
		data["message"] = evt.DataString("message")
	case domain.EventTypeLabourCompleted:
		data["notes"] = l.Notes
	}
	return data
}

func (h *handler) notifyRecipient(ctx context.Context, logger *elog.Component, evt domain.DomainEvent,
	r recipient, shared map[string]string,
) error {
	c, err := h.contact(ctx, r.contactID)
	if err != nil {
		if undeliverable(err) {
			logger.Warn("recipient cannot be notified, skipped", elog.String("contactID", r.contactID), elog.FieldErr(err))
			return nil
		}
		return err
	}
	data := make(map[string]string, len(shared)+1)
	for k, v := range shared {
		data[k] = v
	}
	data["recipient_name"] = c.FirstName

	for _, ch := range r.channels {
		dest, ok := c.Destination(ch)
		if !ok {
			logger.Warn("recipient has no address for channel",
				elog.String("contactID", c.ID), elog.String("channel", ch.String()))
			continue
		}
		n, er := h.notifications.CreateNotification(ctx, notification.CreateNotificationParams{
			Channel:     ch.String(),
			Destination: dest,
			Template:    h.tmpl.String(),
			Data:        data,
			Key:         fmt.Sprintf("%s:%s:%s", evt.ID, c.ID, ch),
		})
		if er != nil {
			if undeliverable(er) {
				logger.Warn("notification rejected, skipped",
					elog.String("contactID", c.ID), elog.String("channel", ch.String()), elog.FieldErr(er))
				continue
			}
			err = multierror.Append(err, er)
			continue
		}
		// created earlier by a delivery of the same event
		if n.Status != domain.NotificationStatusCreated {
			continue
		}
		if _, er = h.notifications.Send(ctx, n.IDString()); er != nil {
			err = multierror.Append(err, er)
		}
	}
	return err
}

func (h *handler) contact(ctx context.Context, id string) (domain.Contact, error) {
	if c, ok := h.scope.Contact(id); ok {
		return c, nil
	}
	c, err := h.contacts.Get(ctx, id)
	if err != nil {
		return domain.Contact{}, err
	}
	h.scope.RememberContact(c)
	return c, nil
}
