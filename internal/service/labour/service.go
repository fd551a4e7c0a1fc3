package labour

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"gitee.com/flycash/labour-tracker/internal/errs"
	"gitee.com/flycash/labour-tracker/internal/event"
	"gitee.com/flycash/labour-tracker/internal/repository"
	"github.com/gotomicro/ego/core/elog"
)

// Service runs labour commands. Each command loads and locks the labour,
// applies the change, stores it and only then publishes the raised events.
type Service interface {
	PlanLabour(ctx context.Context, params PlanLabourParams) (*domain.Labour, error)
	BeginLabour(ctx context.Context, labourID string) (*domain.Labour, error)
	StartContraction(ctx context.Context, labourID string, params domain.StartContractionParams) (domain.Contraction, error)
	EndContraction(ctx context.Context, labourID string, params domain.EndContractionParams) (domain.Contraction, error)
	UpdateContraction(ctx context.Context, labourID string, params domain.UpdateContractionParams) (domain.Contraction, error)
	DeleteContraction(ctx context.Context, labourID, contractionID string) error
	CompleteLabour(ctx context.Context, labourID string, params CompleteLabourParams) (*domain.Labour, error)
	AdvancePhase(ctx context.Context, labourID string, phase domain.LabourPhase) (*domain.Labour, error)
	UpdatePaymentPlan(ctx context.Context, labourID string, plan domain.PaymentPlan) (*domain.Labour, error)
	PostLabourUpdate(ctx context.Context, labourID string, params PostLabourUpdateParams) (domain.LabourUpdate, error)
	DeleteLabourUpdate(ctx context.Context, labourID, labourUpdateID string) error

	GetLabour(ctx context.Context, labourID string) (*domain.Labour, error)
	// GetContractionPattern returns false when there are too few ended contractions.
	GetContractionPattern(ctx context.Context, labourID string) (domain.ContractionPattern, bool, error)
	ShouldGoToHospital(ctx context.Context, labourID string) (bool, error)
}

type PlanLabourParams struct {
	BirthingPersonID string
	FirstLabour      bool
	DueDate          time.Time
	LabourName       string
}

// CompleteLabourParams ends the labour at EndTime, now when zero.
type CompleteLabourParams struct {
	EndTime time.Time
	Notes   string
}

// PostLabourUpdateParams stamps the update with SentTime, now when zero.
type PostLabourUpdateParams struct {
	Type                 domain.LabourUpdateType
	Message              string
	SentTime             time.Time
	ApplicationGenerated bool
}

type service struct {
	repo     repository.LabourRepository
	producer event.Producer
	policy   domain.LabourPolicy
	now      func() time.Time
	logger   *elog.Component
}

func NewService(repo repository.LabourRepository, producer event.Producer, policy domain.LabourPolicy) Service {
	return &service{
		repo:     repo,
		producer: producer,
		policy:   policy,
		now:      time.Now,
		logger:   elog.DefaultLogger,
	}
}

func (s *service) PlanLabour(ctx context.Context, params PlanLabourParams) (*domain.Labour, error) {
	active, err := s.repo.FindActiveByBirthingPerson(ctx, params.BirthingPersonID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", errs.ErrBirthingPersonHasActiveLabour, active.ID)
	case !errors.Is(err, errs.ErrLabourNotFound):
		return nil, err
	}
	l := domain.PlanLabour(domain.PlanLabourParams{
		BirthingPersonID: params.BirthingPersonID,
		FirstLabour:      params.FirstLabour,
		DueDate:          params.DueDate,
		LabourName:       params.LabourName,
		Now:              s.now(),
	})
	l.SetPolicy(s.policy)
	if err = s.repo.Create(ctx, l); err != nil {
		return nil, err
	}
	s.publish(ctx, l)
	return l, nil
}

func (s *service) BeginLabour(ctx context.Context, labourID string) (*domain.Labour, error) {
	return s.update(ctx, labourID, func(l *domain.Labour) error {
		return l.Begin(s.now())
	})
}

// StartContraction starts at params.StartTime, now when zero. EndContraction
// treats a zero EndTime the same way.
func (s *service) StartContraction(ctx context.Context, labourID string, params domain.StartContractionParams) (domain.Contraction, error) {
	params.StartTime = s.orNow(params.StartTime)
	var c domain.Contraction
	_, err := s.update(ctx, labourID, func(l *domain.Labour) error {
		var er error
		c, er = l.StartContraction(params)
		return er
	})
	return c, err
}

func (s *service) EndContraction(ctx context.Context, labourID string, params domain.EndContractionParams) (domain.Contraction, error) {
	params.EndTime = s.orNow(params.EndTime)
	var c domain.Contraction
	_, err := s.update(ctx, labourID, func(l *domain.Labour) error {
		var er error
		c, er = l.EndContraction(params)
		return er
	})
	return c, err
}

func (s *service) UpdateContraction(ctx context.Context, labourID string, params domain.UpdateContractionParams) (domain.Contraction, error) {
	var c domain.Contraction
	_, err := s.update(ctx, labourID, func(l *domain.Labour) error {
		var er error
		c, er = l.UpdateContraction(params)
		return er
	})
	return c, err
}

func (s *service) DeleteContraction(ctx context.Context, labourID, contractionID string) error {
	_, err := s.update(ctx, labourID, func(l *domain.Labour) error {
		return l.DeleteContraction(contractionID)
	})
	return err
}

func (s *service) CompleteLabour(ctx context.Context, labourID string, params CompleteLabourParams) (*domain.Labour, error) {
	end := s.orNow(params.EndTime)
	return s.update(ctx, labourID, func(l *domain.Labour) error {
		return l.Complete(end, params.Notes)
	})
}

func (s *service) AdvancePhase(ctx context.Context, labourID string, phase domain.LabourPhase) (*domain.Labour, error) {
	return s.update(ctx, labourID, func(l *domain.Labour) error {
		return l.AdvancePhase(phase)
	})
}

func (s *service) UpdatePaymentPlan(ctx context.Context, labourID string, plan domain.PaymentPlan) (*domain.Labour, error) {
	return s.update(ctx, labourID, func(l *domain.Labour) error {
		return l.UpdatePaymentPlan(plan)
	})
}

func (s *service) PostLabourUpdate(ctx context.Context, labourID string, params PostLabourUpdateParams) (domain.LabourUpdate, error) {
	sent := s.orNow(params.SentTime)
	var u domain.LabourUpdate
	_, err := s.update(ctx, labourID, func(l *domain.Labour) error {
		var er error
		u, er = l.PostLabourUpdate(domain.PostLabourUpdateParams{
			Type:                 params.Type,
			Message:              params.Message,
			SentTime:             sent,
			ApplicationGenerated: params.ApplicationGenerated,
		})
		return er
	})
	return u, err
}

func (s *service) DeleteLabourUpdate(ctx context.Context, labourID, labourUpdateID string) error {
	_, err := s.update(ctx, labourID, func(l *domain.Labour) error {
		return l.DeleteLabourUpdate(labourUpdateID)
	})
	return err
}

func (s *service) GetLabour(ctx context.Context, labourID string) (*domain.Labour, error) {
	return s.repo.Get(ctx, labourID)
}

func (s *service) GetContractionPattern(ctx context.Context, labourID string) (domain.ContractionPattern, bool, error) {
	l, err := s.repo.Get(ctx, labourID)
	if err != nil {
		return domain.ContractionPattern{}, false, err
	}
	p, ok := l.ContractionPattern()
	return p, ok, nil
}

func (s *service) ShouldGoToHospital(ctx context.Context, labourID string) (bool, error) {
	l, err := s.repo.Get(ctx, labourID)
	if err != nil {
		return false, err
	}
	return l.ShouldGoToHospital(), nil
}

// update publishes nothing when fn or the store fails.
func (s *service) update(ctx context.Context, labourID string, fn func(l *domain.Labour) error) (*domain.Labour, error) {
	l, err := s.repo.Update(ctx, labourID, fn)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, l)
	return l, nil
}

func (s *service) publish(ctx context.Context, l *domain.Labour) {
	evts := l.DrainEvents()
	if len(evts) == 0 {
		return
	}
	s.logger.Debug("publishing labour events", elog.String("labourID", l.ID), elog.Int("count", len(evts)))
	s.producer.PublishBatch(ctx, evts)
}

func (s *service) orNow(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}
	return t
}
