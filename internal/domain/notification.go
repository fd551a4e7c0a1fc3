package domain

import (
	"fmt"
	"strconv"
	"time"

	"gitee.com/flycash/labour-tracker/internal/errs"
)

// Channel is a delivery channel for notifications.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

func (c Channel) IsValid() bool {
	return c == ChannelEmail || c == ChannelSMS || c == ChannelWhatsApp
}

func (c Channel) String() string {
	return string(c)
}

func ParseChannel(s string) (Channel, error) {
	c := Channel(s)
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", errs.ErrInvalidNotificationChannel, s)
	}
	return c, nil
}

type NotificationStatus string

const (
	NotificationStatusCreated NotificationStatus = "created"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusSuccess NotificationStatus = "success"
	NotificationStatusFailure NotificationStatus = "failure"
)

func (s NotificationStatus) IsValid() bool {
	switch s {
	case NotificationStatusCreated, NotificationStatusSent, NotificationStatusSuccess, NotificationStatusFailure:
		return true
	default:
		return false
	}
}

func (s NotificationStatus) String() string {
	return string(s)
}

func ParseNotificationStatus(s string) (NotificationStatus, error) {
	st := NotificationStatus(s)
	if !st.IsValid() {
		return "", fmt.Errorf("%w: %q", errs.ErrInvalidNotificationStatus, s)
	}
	return st, nil
}

type Template string

const (
	TemplateLabourBegun         Template = "labour-begun"
	TemplateLabourCompleted     Template = "labour-completed"
	TemplateLabourAnnouncement  Template = "labour-announcement"
	TemplateHospitalRecommended Template = "hospital-recommended"
	TemplateSubscriberAdded     Template = "subscriber-added"
	TemplateSubscriberRemoved   Template = "subscriber-removed"
)

var knownTemplates = map[Template]struct{}{
	TemplateLabourBegun:         {},
	TemplateLabourCompleted:     {},
	TemplateLabourAnnouncement:  {},
	TemplateHospitalRecommended: {},
	TemplateSubscriberAdded:     {},
	TemplateSubscriberRemoved:   {},
}

func (t Template) IsValid() bool {
	_, ok := knownTemplates[t]
	return ok
}

func (t Template) String() string {
	return string(t)
}

func ParseTemplate(s string) (Template, error) {
	t := Template(s)
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", errs.ErrInvalidNotificationTemplate, s)
	}
	return t, nil
}

// Notification is a single message to a single destination.
type Notification struct {
	ID          uint64
	Key         string
	Channel     Channel
	Destination string
	Template    Template
	Data        map[string]string
	Status      NotificationStatus
	ExternalID  string
	Metadata    map[string]string
	Ctime       time.Time
	Utime       time.Time
}

func (n Notification) IDString() string {
	return strconv.FormatUint(n.ID, 10)
}

// CanResend reports whether the notification was never sent or failed.
func (n Notification) CanResend() bool {
	return n.Status == NotificationStatusCreated || n.Status == NotificationStatusFailure
}

// ParseNotificationID parses the decimal string form of a notification id.
func ParseNotificationID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %q", errs.ErrInvalidNotificationID, s)
	}
	return id, nil
}

// SendResult is what a gateway reports back after a send.
type SendResult struct {
	Success    bool
	Status     NotificationStatus
	ExternalID string
}
