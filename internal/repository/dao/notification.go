package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitee.com/flycash/labour-tracker/internal/errs"
	"github.com/ecodeclub/ekit/sqlx"
	"github.com/ego-component/egorm"
	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// Notification is the notifications table.
type Notification struct {
	ID          uint64                             `gorm:"primaryKey;comment:'sonyflake id'"`
	Key         string                             `gorm:"type:VARCHAR(256);NOT NULL;uniqueIndex:idx_key"`
	Channel     string                             `gorm:"type:VARCHAR(16);NOT NULL"`
	Destination string                             `gorm:"type:VARCHAR(255);NOT NULL"`
	Template    string                             `gorm:"type:VARCHAR(64);NOT NULL"`
	Data        sqlx.JsonColumn[map[string]string] `gorm:"type:TEXT"`
	Status      string                             `gorm:"type:VARCHAR(16);NOT NULL;index:idx_status"`
	ExternalID  string                             `gorm:"type:VARCHAR(128)"`
	Metadata    sqlx.JsonColumn[map[string]string] `gorm:"type:TEXT"`
	Ctime       int64
	Utime       int64
}

type NotificationDAO interface {
	// Create returns errs.ErrNotificationDuplicate when the key already exists.
	Create(ctx context.Context, data Notification) (Notification, error)
	GetByID(ctx context.Context, id uint64) (Notification, error)
	GetByKey(ctx context.Context, key string) (Notification, error)
	UpdateStatus(ctx context.Context, data Notification) error
	// FindByStatus pages through notifications in a status, oldest update first.
	FindByStatus(ctx context.Context, status string, offset, limit int) ([]Notification, error)
}

type notificationDAO struct {
	db *egorm.Component
}

func NewNotificationDAO(db *egorm.Component) NotificationDAO {
	return &notificationDAO{
		db: db,
	}
}

func (d *notificationDAO) Create(ctx context.Context, data Notification) (Notification, error) {
	now := time.Now().UnixMilli()
	data.Ctime, data.Utime = now, now
	err := d.db.WithContext(ctx).Create(&data).Error
	if isUniqueConstraintError(err) {
		return Notification{}, fmt.Errorf("%w: key=%s", errs.ErrNotificationDuplicate, data.Key)
	}
	return data, err
}

func (d *notificationDAO) GetByID(ctx context.Context, id uint64) (Notification, error) {
	var res Notification
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Notification{}, fmt.Errorf("%w: %d", errs.ErrNotificationNotFoundByID, id)
	}
	return res, err
}

func (d *notificationDAO) GetByKey(ctx context.Context, key string) (Notification, error) {
	var res Notification
	err := d.db.WithContext(ctx).Where("`key` = ?", key).First(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Notification{}, fmt.Errorf("%w: key=%s", errs.ErrNotificationNotFoundByID, key)
	}
	return res, err
}

func (d *notificationDAO) UpdateStatus(ctx context.Context, data Notification) error {
	res := d.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ?", data.ID).
		Updates(map[string]any{
			"status":      data.Status,
			"external_id": data.ExternalID,
			"metadata":    data.Metadata,
			"utime":       time.Now().UnixMilli(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", errs.ErrNotificationNotFoundByID, data.ID)
	}
	return nil
}

func (d *notificationDAO) FindByStatus(ctx context.Context, status string, offset, limit int) ([]Notification, error) {
	var res []Notification
	err := d.db.WithContext(ctx).
		Where("status = ?", status).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&res).Error
	return res, err
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	me := new(mysql.MySQLError)
	if ok := errors.As(err, &me); ok {
		const uniqueIndexErrNo uint16 = 1062
		return me.Number == uniqueIndexErrNo
	}
	return false
}
