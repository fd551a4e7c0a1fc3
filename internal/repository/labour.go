package repository

import (
	"context"
	"database/sql"
	"time"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"gitee.com/flycash/labour-tracker/internal/repository/dao"
	"github.com/ecodeclub/ekit/slice"
)

type LabourRepository interface {
	Create(ctx context.Context, l *domain.Labour) error
	Get(ctx context.Context, id string) (*domain.Labour, error)
	FindActiveByBirthingPerson(ctx context.Context, birthingPersonID string) (*domain.Labour, error)
	// Update runs fn against the locked, freshly loaded labour and persists the
	// result in the same transaction. The returned labour still carries the
	// events raised by fn.
	Update(ctx context.Context, id string, fn func(l *domain.Labour) error) (*domain.Labour, error)
}

type labourRepository struct {
	dao    dao.LabourDAO
	policy domain.LabourPolicy
}

func NewLabourRepository(d dao.LabourDAO, policy domain.LabourPolicy) LabourRepository {
	return &labourRepository{dao: d, policy: policy}
}

func (r *labourRepository) Create(ctx context.Context, l *domain.Labour) error {
	return r.dao.Insert(ctx, r.toEntity(l))
}

func (r *labourRepository) Get(ctx context.Context, id string) (*domain.Labour, error) {
	agg, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.toDomain(agg), nil
}

func (r *labourRepository) FindActiveByBirthingPerson(ctx context.Context, birthingPersonID string) (*domain.Labour, error) {
	entity, err := r.dao.FindActiveByBirthingPerson(ctx, birthingPersonID)
	if err != nil {
		return nil, err
	}
	return r.toDomain(dao.LabourAggregate{Labour: entity}), nil
}

func (r *labourRepository) Update(ctx context.Context, id string, fn func(l *domain.Labour) error) (*domain.Labour, error) {
	var res *domain.Labour
	err := r.dao.Update(ctx, id, func(agg dao.LabourAggregate) (dao.LabourAggregate, error) {
		l := r.toDomain(agg)
		if err := fn(l); err != nil {
			return dao.LabourAggregate{}, err
		}
		res = l
		return r.toEntity(l), nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *labourRepository) toEntity(l *domain.Labour) dao.LabourAggregate {
	return dao.LabourAggregate{
		Labour: dao.Labour{
			ID:               l.ID,
			BirthingPersonID: l.BirthingPersonID,
			FirstLabour:      l.FirstLabour,
			DueDate:          l.DueDate.UnixMilli(),
			LabourName:       l.LabourName,
			CurrentPhase:     l.CurrentPhase.String(),
			PaymentPlan:      l.PaymentPlan.String(),
			StartTime:        nullMillis(l.StartTime),
			EndTime:          nullMillis(l.EndTime),
			Notes:            l.Notes,
		},
		Contractions: slice.Map(l.Contractions, func(_ int, c domain.Contraction) dao.Contraction {
			res := dao.Contraction{
				ID:        c.ID,
				LabourID:  l.ID,
				StartTime: c.StartTime.UnixMilli(),
				EndTime:   nullMillis(c.EndTime),
				Notes:     c.Notes,
			}
			if c.Intensity != nil {
				res.Intensity = sql.NullInt64{Int64: int64(*c.Intensity), Valid: true}
			}
			return res
		}),
		LabourUpdates: slice.Map(l.LabourUpdates, func(_ int, u domain.LabourUpdate) dao.LabourUpdate {
			return dao.LabourUpdate{
				ID:                   u.ID,
				LabourID:             l.ID,
				Type:                 u.Type.String(),
				Message:              u.Message,
				SentTime:             u.SentTime.UnixMilli(),
				Edited:               u.Edited,
				ApplicationGenerated: u.ApplicationGenerated,
			}
		}),
	}
}

func (r *labourRepository) toDomain(agg dao.LabourAggregate) *domain.Labour {
	l := &domain.Labour{
		ID:               agg.Labour.ID,
		BirthingPersonID: agg.Labour.BirthingPersonID,
		FirstLabour:      agg.Labour.FirstLabour,
		DueDate:          fromMillis(agg.Labour.DueDate),
		LabourName:       agg.Labour.LabourName,
		CurrentPhase:     domain.LabourPhase(agg.Labour.CurrentPhase),
		PaymentPlan:      domain.PaymentPlan(agg.Labour.PaymentPlan),
		StartTime:        fromNullMillis(agg.Labour.StartTime),
		EndTime:          fromNullMillis(agg.Labour.EndTime),
		Notes:            agg.Labour.Notes,
		Contractions: slice.Map(agg.Contractions, func(_ int, c dao.Contraction) domain.Contraction {
			res := domain.Contraction{
				ID:        c.ID,
				LabourID:  c.LabourID,
				StartTime: fromMillis(c.StartTime),
				EndTime:   fromNullMillis(c.EndTime),
				Notes:     c.Notes,
			}
			if c.Intensity.Valid {
				intensity := int(c.Intensity.Int64)
				res.Intensity = &intensity
			}
			return res
		}),
		LabourUpdates: slice.Map(agg.LabourUpdates, func(_ int, u dao.LabourUpdate) domain.LabourUpdate {
			return domain.LabourUpdate{
				ID:                   u.ID,
				LabourID:             u.LabourID,
				Type:                 domain.LabourUpdateType(u.Type),
				Message:              u.Message,
				SentTime:             fromMillis(u.SentTime),
				Edited:               u.Edited,
				ApplicationGenerated: u.ApplicationGenerated,
			}
		}),
	}
	l.SetPolicy(r.policy)
	return l
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromNullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
