package domain

import (
	"fmt"
	"time"

	"gitee.com/flycash/labour-tracker/internal/errs"
)

type SubscriptionStatus string

const (
	SubscriptionStatusSubscribed SubscriptionStatus = "subscribed"
	SubscriptionStatusRemoved    SubscriptionStatus = "removed"
)

// Subscription links a subscriber to a labour they want to follow.
type Subscription struct {
	EventEmitter

	ID               string
	LabourID         string
	BirthingPersonID string
	SubscriberID     string
	ContactMethods   []Channel
	Status           SubscriptionStatus
	Ctime            time.Time
	Utime            time.Time
}

type SubscribeParams struct {
	LabourID         string
	BirthingPersonID string
	SubscriberID     string
	ContactMethods   []string
	Now              time.Time
}

func NewSubscription(params SubscribeParams) (*Subscription, error) {
	methods, err := parseContactMethods(params.ContactMethods)
	if err != nil {
		return nil, err
	}
	s := &Subscription{
		ID:               newID(),
		LabourID:         params.LabourID,
		BirthingPersonID: params.BirthingPersonID,
		SubscriberID:     params.SubscriberID,
		ContactMethods:   methods,
		Status:           SubscriptionStatusSubscribed,
		Ctime:            params.Now,
		Utime:            params.Now,
	}
	s.emit(EventTypeSubscriberAdded, s.eventData(), params.Now)
	return s, nil
}

func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusSubscribed
}

func (s *Subscription) Remove(now time.Time) error {
	if !s.IsActive() {
		return errs.ErrSubscriptionAlreadyRemoved
	}
	s.Status = SubscriptionStatusRemoved
	s.Utime = now
	s.emit(EventTypeSubscriberRemoved, s.eventData(), now)
	return nil
}

func (s *Subscription) UpdateContactMethods(methods []string, now time.Time) error {
	if !s.IsActive() {
		return errs.ErrSubscriptionAlreadyRemoved
	}
	parsed, err := parseContactMethods(methods)
	if err != nil {
		return err
	}
	s.ContactMethods = parsed
	s.Utime = now
	return nil
}

// Resubscribe reactivates a removed subscription with new contact methods.
func (s *Subscription) Resubscribe(methods []string, now time.Time) error {
	if s.IsActive() {
		return errs.ErrAlreadySubscribed
	}
	parsed, err := parseContactMethods(methods)
	if err != nil {
		return err
	}
	s.ContactMethods = parsed
	s.Status = SubscriptionStatusSubscribed
	s.Utime = now
	s.emit(EventTypeSubscriberAdded, s.eventData(), now)
	return nil
}

// ReachableOn returns the subscriber's contact methods that the plan allows.
func (s *Subscription) ReachableOn(plan PaymentPlan) []Channel {
	allowed := plan.AllowedChannels()
	res := make([]Channel, 0, len(s.ContactMethods))
	for _, m := range s.ContactMethods {
		for _, a := range allowed {
			if m == a {
				res = append(res, m)
				break
			}
		}
	}
	return res
}

func (s *Subscription) eventData() map[string]any {
	return map[string]any{
		"subscription_id":    s.ID,
		"labour_id":          s.LabourID,
		"birthing_person_id": s.BirthingPersonID,
		"subscriber_id":      s.SubscriberID,
	}
}

func parseContactMethods(methods []string) ([]Channel, error) {
	res := make([]Channel, 0, len(methods))
	seen := make(map[Channel]struct{}, len(methods))
	for _, m := range methods {
		c := Channel(m)
		if !c.IsValid() {
			return nil, fmt.Errorf("%w: %q", errs.ErrInvalidContactMethod, m)
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		res = append(res, c)
	}
	return res, nil
}

// Contact is how a user can be reached.
type Contact struct {
	ID          string
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
}

// Destination returns the address to use for the channel, false if unknown.
func (c Contact) Destination(channel Channel) (string, bool) {
	switch channel {
	case ChannelEmail:
		return c.Email, c.Email != ""
	case ChannelSMS, ChannelWhatsApp:
		return c.PhoneNumber, c.PhoneNumber != ""
	default:
		return "", false
	}
}
