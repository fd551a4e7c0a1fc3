package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitee.com/flycash/labour-tracker/internal/errs"
	"github.com/ecodeclub/ekit/sqlx"
	"github.com/ego-component/egorm"
	"gorm.io/gorm"
)

type Subscription struct {
	ID               string                    `gorm:"type:CHAR(36);primaryKey"`
	LabourID         string                    `gorm:"type:CHAR(36);NOT NULL;uniqueIndex:idx_labour_subscriber,priority:1;index:idx_labour_status,priority:1"`
	BirthingPersonID string                    `gorm:"type:VARCHAR(64);NOT NULL"`
	SubscriberID     string                    `gorm:"type:VARCHAR(64);NOT NULL;uniqueIndex:idx_labour_subscriber,priority:2"`
	ContactMethods   sqlx.JsonColumn[[]string] `gorm:"type:TEXT;NOT NULL"`
	Status           string                    `gorm:"type:VARCHAR(32);NOT NULL;index:idx_labour_status,priority:2"`
	Ctime            int64
	Utime            int64
}

type SubscriptionDAO interface {
	Insert(ctx context.Context, s Subscription) error
	Save(ctx context.Context, s Subscription) error
	FindByID(ctx context.Context, id string) (Subscription, error)
	FindByLabourAndSubscriber(ctx context.Context, labourID, subscriberID string) (Subscription, error)
	FindByLabourAndStatus(ctx context.Context, labourID, status string) ([]Subscription, error)
}

type subscriptionDAO struct {
	db *egorm.Component
}

func NewSubscriptionDAO(db *egorm.Component) SubscriptionDAO {
	return &subscriptionDAO{db: db}
}

func (d *subscriptionDAO) Insert(ctx context.Context, s Subscription) error {
	now := time.Now().UnixMilli()
	if s.Ctime == 0 {
		s.Ctime = now
	}
	s.Utime = now
	err := d.db.WithContext(ctx).Create(&s).Error
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%w: labour %s subscriber %s", errs.ErrAlreadySubscribed, s.LabourID, s.SubscriberID)
	}
	return err
}

func (d *subscriptionDAO) Save(ctx context.Context, s Subscription) error {
	s.Utime = time.Now().UnixMilli()
	return d.db.WithContext(ctx).Save(&s).Error
}

func (d *subscriptionDAO) FindByID(ctx context.Context, id string) (Subscription, error) {
	var res Subscription
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Subscription{}, fmt.Errorf("%w: %s", errs.ErrSubscriptionNotFoundByID, id)
	}
	return res, err
}

func (d *subscriptionDAO) FindByLabourAndSubscriber(ctx context.Context, labourID, subscriberID string) (Subscription, error) {
	var res Subscription
	err := d.db.WithContext(ctx).
		Where("labour_id = ? AND subscriber_id = ?", labourID, subscriberID).
		First(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Subscription{}, fmt.Errorf("%w: labour %s subscriber %s", errs.ErrSubscriptionNotFoundByID, labourID, subscriberID)
	}
	return res, err
}

func (d *subscriptionDAO) FindByLabourAndStatus(ctx context.Context, labourID, status string) ([]Subscription, error) {
	var res []Subscription
	err := d.db.WithContext(ctx).
		Where("labour_id = ? AND status = ?", labourID, status).
		Order("ctime ASC").
		Find(&res).Error
	return res, err
}
