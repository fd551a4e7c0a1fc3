package errs

import (
	"errors"
)

// Labour and contraction errors.
var (
	ErrLabourNotFound                = errors.New("labour not found")
	ErrLabourNotBegun                = errors.New("labour has not begun")
	ErrLabourAlreadyBegun            = errors.New("labour has already begun")
	ErrLabourAlreadyCompleted        = errors.New("labour has already been completed")
	ErrLabourHasActiveContraction    = errors.New("labour already has an active contraction")
	ErrLabourHasNoActiveContraction  = errors.New("labour has no active contraction")
	ErrBirthingPersonHasActiveLabour = errors.New("birthing person already has an active labour")
	ErrCannotRegressLabourPhase      = errors.New("labour phase cannot move backwards")
	ErrInvalidLabourPhase            = errors.New("invalid labour phase")

	ErrContractionStartTimeAfterEndTime          = errors.New("contraction start time is after end time")
	ErrContractionDurationExceedsMaxDuration     = errors.New("contraction duration exceeds the maximum duration")
	ErrContractionDurationLessThanMinDuration    = errors.New("contraction duration is less than the minimum duration")
	ErrContractionIntensityInvalid               = errors.New("contraction intensity is invalid")
	ErrContractionNotFoundByID                   = errors.New("contraction not found")
	ErrCannotUpdateActiveContraction             = errors.New("cannot update an active contraction")
	ErrCannotDeleteActiveContraction             = errors.New("cannot delete an active contraction")
	ErrContractionsOverlapping                   = errors.New("contraction overlaps the previous contraction")
	ErrContractionsOverlappingAfterUpdate        = errors.New("contractions overlap after update")
	ErrCannotCompleteLabourWithActiveContraction = errors.New("cannot complete labour with an active contraction")
)

// Payment plan and labour update errors.
var (
	ErrInvalidPaymentPlan           = errors.New("invalid payment plan")
	ErrCannotDowngradeLabourPlan    = errors.New("cannot downgrade labour plan")
	ErrTooSoonSinceLastAnnouncement = errors.New("too soon since last announcement")
	ErrInvalidLabourUpdateType      = errors.New("invalid labour update type")
	ErrInvalidLabourUpdateMessage   = errors.New("labour update message must not be empty")
	ErrLabourUpdateNotFoundByID     = errors.New("labour update not found")
)

// Subscription errors.
var (
	ErrSubscriptionNotFoundByID   = errors.New("subscription not found")
	ErrSubscriptionAlreadyRemoved = errors.New("subscription has already been removed")
	ErrAlreadySubscribed          = errors.New("subscriber is already subscribed to this labour")
	ErrInvalidContactMethod       = errors.New("invalid contact method")
	ErrContactNotFound            = errors.New("contact not found")
	ErrInvalidContact             = errors.New("invalid contact")
)

// Notification errors.
var (
	ErrInvalidNotificationChannel     = errors.New("invalid notification channel")
	ErrInvalidNotificationTemplate    = errors.New("invalid notification template")
	ErrInvalidNotificationStatus      = errors.New("invalid notification status")
	ErrInvalidNotificationID          = errors.New("invalid notification id")
	ErrInvalidNotificationDestination = errors.New("invalid notification destination")
	ErrNotificationNotFoundByID       = errors.New("notification not found")
	ErrCannotResendNotification       = errors.New("notification cannot be resent in its current status")
	ErrNotificationDuplicate          = errors.New("notification key conflict")
	ErrNotificationIDGenerateFailed   = errors.New("failed to generate notification id")
	ErrGatewayNotImplemented          = errors.New("notification gateway not implemented")
	ErrGatewaySendFailed              = errors.New("notification gateway failed to send")
	ErrGatewayUnavailable             = errors.New("notification gateway unavailable")
	ErrGatewayRateLimited             = errors.New("notification gateway rate limited")
)

// Event errors.
var (
	ErrInvalidDomainEvent = errors.New("invalid domain event")
	ErrNoHandlerForTopic  = errors.New("no handler registered for topic")
)
