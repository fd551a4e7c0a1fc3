package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitee.com/flycash/labour-tracker/internal/errs"
	"github.com/ego-component/egorm"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Contact holds the addresses a user can be notified on.
type Contact struct {
	ID          string `gorm:"type:VARCHAR(64);primaryKey"`
	FirstName   string `gorm:"type:VARCHAR(128)"`
	LastName    string `gorm:"type:VARCHAR(128)"`
	Email       string `gorm:"type:VARCHAR(255)"`
	PhoneNumber string `gorm:"type:VARCHAR(32)"`
	Ctime       int64
	Utime       int64
}

type ContactDAO interface {
	Upsert(ctx context.Context, c Contact) error
	FindByID(ctx context.Context, id string) (Contact, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]Contact, error)
}

type contactDAO struct {
	db *egorm.Component
}

func NewContactDAO(db *egorm.Component) ContactDAO {
	return &contactDAO{db: db}
}

func (d *contactDAO) Upsert(ctx context.Context, c Contact) error {
	now := time.Now().UnixMilli()
	c.Ctime, c.Utime = now, now
	return d.db.WithContext(ctx).Clauses(clause.OnConflict{
		DoUpdates: clause.AssignmentColumns([]string{"first_name", "last_name", "email", "phone_number", "utime"}),
	}).Create(&c).Error
}

func (d *contactDAO) FindByID(ctx context.Context, id string) (Contact, error) {
	var res Contact
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Contact{}, fmt.Errorf("%w: %s", errs.ErrContactNotFound, id)
	}
	return res, err
}

func (d *contactDAO) FindByIDs(ctx context.Context, ids []string) (map[string]Contact, error) {
	res := make(map[string]Contact, len(ids))
	if len(ids) == 0 {
		return res, nil
	}
	var contacts []Contact
	err := d.db.WithContext(ctx).Where("id IN ?", ids).Find(&contacts).Error
	if err != nil {
		return nil, err
	}
	for _, c := range contacts {
		res[c.ID] = c
	}
	return res, nil
}
