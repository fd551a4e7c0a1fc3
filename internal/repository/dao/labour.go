package dao

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gitee.com/flycash/labour-tracker/internal/errs"
	"github.com/ego-component/egorm"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Labour is the labours table.
type Labour struct {
	ID               string `gorm:"type:CHAR(36);primaryKey"`
	BirthingPersonID string `gorm:"type:VARCHAR(64);NOT NULL;index:idx_birthing_person_phase,priority:1"`
	FirstLabour      bool   `gorm:"NOT NULL"`
	DueDate          int64
	LabourName       string `gorm:"type:VARCHAR(255)"`
	CurrentPhase     string `gorm:"type:VARCHAR(32);NOT NULL;index:idx_birthing_person_phase,priority:2"`
	PaymentPlan      string `gorm:"type:VARCHAR(32)"`
	StartTime        sql.NullInt64
	EndTime          sql.NullInt64
	Notes            string `gorm:"type:TEXT"`
	Ctime            int64
	Utime            int64
}

type Contraction struct {
	ID        string `gorm:"type:CHAR(36);primaryKey"`
	LabourID  string `gorm:"type:CHAR(36);NOT NULL;index:idx_labour_start,priority:1"`
	StartTime int64  `gorm:"NOT NULL;index:idx_labour_start,priority:2"`
	EndTime   sql.NullInt64
	Intensity sql.NullInt64
	Notes     string `gorm:"type:TEXT"`
}

type LabourUpdate struct {
	ID                   string `gorm:"type:CHAR(36);primaryKey"`
	LabourID             string `gorm:"type:CHAR(36);NOT NULL;index:idx_labour_sent,priority:1"`
	Type                 string `gorm:"type:VARCHAR(32);NOT NULL"`
	Message              string `gorm:"type:TEXT;NOT NULL"`
	SentTime             int64  `gorm:"NOT NULL;index:idx_labour_sent,priority:2"`
	Edited               bool
	ApplicationGenerated bool
}

// LabourAggregate is a labour row with all of its child rows.
type LabourAggregate struct {
	Labour        Labour
	Contractions  []Contraction
	LabourUpdates []LabourUpdate
}

type LabourDAO interface {
	Insert(ctx context.Context, agg LabourAggregate) error
	FindByID(ctx context.Context, id string) (LabourAggregate, error)
	// FindActiveByBirthingPerson returns the labour that has not completed yet.
	FindActiveByBirthingPerson(ctx context.Context, birthingPersonID string) (Labour, error)
	// Update locks the labour row, hands the current state to fn and stores
	// what fn returns, all in one transaction.
	Update(ctx context.Context, id string, fn func(agg LabourAggregate) (LabourAggregate, error)) error
}

type labourDAO struct {
	db *egorm.Component
}

func NewLabourDAO(db *egorm.Component) LabourDAO {
	return &labourDAO{db: db}
}

func (d *labourDAO) Insert(ctx context.Context, agg LabourAggregate) error {
	now := time.Now().UnixMilli()
	agg.Labour.Ctime, agg.Labour.Utime = now, now
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&agg.Labour).Error; err != nil {
			return err
		}
		return d.replaceChildren(tx, agg)
	})
}

func (d *labourDAO) FindByID(ctx context.Context, id string) (LabourAggregate, error) {
	return d.find(d.db.WithContext(ctx), id, false)
}

func (d *labourDAO) FindActiveByBirthingPerson(ctx context.Context, birthingPersonID string) (Labour, error) {
	var res Labour
	err := d.db.WithContext(ctx).
		Where("birthing_person_id = ? AND current_phase <> ?", birthingPersonID, "complete").
		First(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Labour{}, fmt.Errorf("%w: birthing person %s", errs.ErrLabourNotFound, birthingPersonID)
	}
	return res, err
}

func (d *labourDAO) Update(ctx context.Context, id string,
	fn func(agg LabourAggregate) (LabourAggregate, error),
) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		agg, err := d.find(tx, id, true)
		if err != nil {
			return err
		}
		updated, err := fn(agg)
		if err != nil {
			return err
		}
		updated.Labour.ID = id
		updated.Labour.Ctime = agg.Labour.Ctime
		updated.Labour.Utime = time.Now().UnixMilli()
		if err = tx.Save(&updated.Labour).Error; err != nil {
			return err
		}
		if err = tx.Where("labour_id = ?", id).Delete(&Contraction{}).Error; err != nil {
			return err
		}
		if err = tx.Where("labour_id = ?", id).Delete(&LabourUpdate{}).Error; err != nil {
			return err
		}
		return d.replaceChildren(tx, updated)
	})
}

func (d *labourDAO) find(db *gorm.DB, id string, forUpdate bool) (LabourAggregate, error) {
	var agg LabourAggregate
	q := db.Where("id = ?", id)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := q.First(&agg.Labour).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return LabourAggregate{}, fmt.Errorf("%w: %s", errs.ErrLabourNotFound, id)
	}
	if err != nil {
		return LabourAggregate{}, err
	}
	err = db.Where("labour_id = ?", id).Order("start_time ASC").Find(&agg.Contractions).Error
	if err != nil {
		return LabourAggregate{}, err
	}
	err = db.Where("labour_id = ?", id).Order("sent_time ASC").Find(&agg.LabourUpdates).Error
	return agg, err
}

func (d *labourDAO) replaceChildren(tx *gorm.DB, agg LabourAggregate) error {
	if len(agg.Contractions) > 0 {
		if err := tx.Create(&agg.Contractions).Error; err != nil {
			return err
		}
	}
	if len(agg.LabourUpdates) > 0 {
		return tx.Create(&agg.LabourUpdates).Error
	}
	return nil
}
