package domain

import (
	"fmt"
	"time"

	"gitee.com/flycash/labour-tracker/internal/errs"
	"github.com/gofrs/uuid"
)

type LabourPhase string

const (
	LabourPhasePlanned    LabourPhase = "planned"
	LabourPhaseEarly      LabourPhase = "early"
	LabourPhaseActive     LabourPhase = "active"
	LabourPhaseTransition LabourPhase = "transition"
	LabourPhasePushing    LabourPhase = "pushing"
	LabourPhaseComplete   LabourPhase = "complete"
)

var phaseOrder = map[LabourPhase]int{
	LabourPhasePlanned:    0,
	LabourPhaseEarly:      1,
	LabourPhaseActive:     2,
	LabourPhaseTransition: 3,
	LabourPhasePushing:    4,
	LabourPhaseComplete:   5,
}

func (p LabourPhase) IsValid() bool {
	_, ok := phaseOrder[p]
	return ok
}

func (p LabourPhase) Before(other LabourPhase) bool {
	return phaseOrder[p] < phaseOrder[other]
}

func (p LabourPhase) String() string {
	return string(p)
}

// LaterPhase returns whichever of the two phases comes later.
func LaterPhase(a, b LabourPhase) LabourPhase {
	if a.Before(b) {
		return b
	}
	return a
}

type PaymentPlan string

const (
	PaymentPlanSolo        PaymentPlan = "solo"
	PaymentPlanInnerCircle PaymentPlan = "inner-circle"
	PaymentPlanCommunity   PaymentPlan = "community"
)

var planRank = map[PaymentPlan]int{
	PaymentPlanSolo:        0,
	PaymentPlanInnerCircle: 1,
	PaymentPlanCommunity:   2,
}

func (p PaymentPlan) IsValid() bool {
	_, ok := planRank[p]
	return ok
}

func (p PaymentPlan) String() string {
	return string(p)
}

// AllowedChannels lists the channels subscribers may be reached on.
// A labour without a plan is treated as solo.
func (p PaymentPlan) AllowedChannels() []Channel {
	switch p {
	case PaymentPlanCommunity:
		return []Channel{ChannelEmail, ChannelSMS, ChannelWhatsApp}
	case PaymentPlanInnerCircle:
		return []Channel{ChannelEmail, ChannelSMS}
	default:
		return []Channel{ChannelEmail}
	}
}

// Labour is the aggregate root for a single labour.
// Every mutating method validates first and only then changes state, so a
// returned error leaves the aggregate untouched.
type Labour struct {
	EventEmitter

	ID               string
	BirthingPersonID string
	FirstLabour      bool
	DueDate          time.Time
	LabourName       string
	CurrentPhase     LabourPhase
	// PaymentPlan is empty until one is chosen.
	PaymentPlan   PaymentPlan
	StartTime     *time.Time
	EndTime       *time.Time
	Notes         string
	Contractions  []Contraction
	LabourUpdates []LabourUpdate

	policy *LabourPolicy
}

type PlanLabourParams struct {
	BirthingPersonID string
	FirstLabour      bool
	DueDate          time.Time
	LabourName       string
	Now              time.Time
}

// PlanLabour creates a labour in the planned phase.
// Checking that the birthing person has no other active labour is left to the caller.
func PlanLabour(params PlanLabourParams) *Labour {
	l := &Labour{
		ID:               newID(),
		BirthingPersonID: params.BirthingPersonID,
		FirstLabour:      params.FirstLabour,
		DueDate:          params.DueDate,
		LabourName:       params.LabourName,
		CurrentPhase:     LabourPhasePlanned,
	}
	l.emit(EventTypeLabourPlanned, l.eventData(map[string]any{
		"due_date":     params.DueDate.UTC().Format(time.RFC3339),
		"first_labour": params.FirstLabour,
	}), params.Now)
	return l
}

func (l *Labour) SetPolicy(policy LabourPolicy) {
	l.policy = &policy
}

func (l *Labour) Policy() LabourPolicy {
	if l.policy == nil {
		return DefaultLabourPolicy()
	}
	return *l.policy
}

func (l *Labour) IsCompleted() bool {
	return l.CurrentPhase == LabourPhaseComplete
}

func (l *Labour) ActiveContraction() (Contraction, bool) {
	for _, c := range l.Contractions {
		if c.IsActive() {
			return c, true
		}
	}
	return Contraction{}, false
}

func (l *Labour) Begin(now time.Time) error {
	if l.CurrentPhase != LabourPhasePlanned {
		return fmt.Errorf("%w: phase=%s", errs.ErrLabourAlreadyBegun, l.CurrentPhase)
	}
	start := now
	l.CurrentPhase = LabourPhaseEarly
	l.StartTime = &start
	l.emit(EventTypeLabourBegun, l.eventData(map[string]any{
		"start_time": start.UTC().Format(time.RFC3339),
	}), now)
	return nil
}

type StartContractionParams struct {
	StartTime time.Time
	Intensity *int
	Notes     string
}

func (l *Labour) StartContraction(params StartContractionParams) (Contraction, error) {
	switch {
	case l.IsCompleted():
		return Contraction{}, errs.ErrLabourAlreadyCompleted
	case l.CurrentPhase == LabourPhasePlanned:
		return Contraction{}, errs.ErrLabourNotBegun
	}
	if _, ok := l.ActiveContraction(); ok {
		return Contraction{}, errs.ErrLabourHasActiveContraction
	}
	policy := l.Policy()
	if params.Intensity != nil && !policy.validIntensity(*params.Intensity) {
		return Contraction{}, fmt.Errorf("%w: %d", errs.ErrContractionIntensityInvalid, *params.Intensity)
	}
	ended := EndedContractions(l.Contractions)
	if len(ended) > 0 && params.StartTime.Before(*ended[len(ended)-1].EndTime) {
		return Contraction{}, fmt.Errorf("%w: previous contraction ended at %s", errs.ErrContractionsOverlapping,
			ended[len(ended)-1].EndTime.Format(time.RFC3339))
	}

	c := Contraction{
		ID:        newID(),
		LabourID:  l.ID,
		StartTime: params.StartTime,
		Intensity: params.Intensity,
		Notes:     params.Notes,
	}
	l.Contractions = append(l.Contractions, c)
	return c, nil
}

type EndContractionParams struct {
	EndTime   time.Time
	Intensity int
	Notes     string
}

// EndContraction closes the running contraction and re-evaluates the phase.
func (l *Labour) EndContraction(params EndContractionParams) (Contraction, error) {
	if l.IsCompleted() {
		return Contraction{}, errs.ErrLabourAlreadyCompleted
	}
	idx := l.activeContractionIndex()
	if idx < 0 {
		return Contraction{}, errs.ErrLabourHasNoActiveContraction
	}
	policy := l.Policy()
	active := l.Contractions[idx]
	if _, err := NewDuration(active.StartTime, params.EndTime, policy); err != nil {
		return Contraction{}, err
	}
	if !policy.validIntensity(params.Intensity) {
		return Contraction{}, fmt.Errorf("%w: %d", errs.ErrContractionIntensityInvalid, params.Intensity)
	}

	recommendedBefore := ShouldGoToHospital(l.Contractions, l.FirstLabour, policy)

	end := params.EndTime
	intensity := params.Intensity
	active.EndTime = &end
	active.Intensity = &intensity
	if params.Notes != "" {
		active.Notes = params.Notes
	}
	contractions := make([]Contraction, len(l.Contractions))
	copy(contractions, l.Contractions)
	contractions[idx] = active
	l.Contractions = contractions

	// cannot fail: completion was checked above
	_ = l.updatePhase()

	if !recommendedBefore && ShouldGoToHospital(l.Contractions, l.FirstLabour, policy) {
		l.emit(EventTypeLabourHospitalRecommended, l.eventData(map[string]any{
			"contraction_id": active.ID,
			"phase":          string(l.CurrentPhase),
		}), end)
	}
	return active, nil
}

type UpdateContractionParams struct {
	ContractionID string
	StartTime     *time.Time
	EndTime       *time.Time
	Intensity     *int
	Notes         *string
}

func (l *Labour) UpdateContraction(params UpdateContractionParams) (Contraction, error) {
	if l.IsCompleted() {
		return Contraction{}, errs.ErrLabourAlreadyCompleted
	}
	idx := l.contractionIndex(params.ContractionID)
	if idx < 0 {
		return Contraction{}, fmt.Errorf("%w: %s", errs.ErrContractionNotFoundByID, params.ContractionID)
	}
	updated := l.Contractions[idx]
	if updated.IsActive() {
		return Contraction{}, errs.ErrCannotUpdateActiveContraction
	}
	policy := l.Policy()

	start, end := updated.StartTime, *updated.EndTime
	if params.StartTime != nil {
		start = *params.StartTime
	}
	if params.EndTime != nil {
		end = *params.EndTime
	}
	duration, err := NewDuration(start, end, policy)
	if err != nil {
		return Contraction{}, err
	}
	if params.Intensity != nil && !policy.validIntensity(*params.Intensity) {
		return Contraction{}, fmt.Errorf("%w: %d", errs.ErrContractionIntensityInvalid, *params.Intensity)
	}
	for i, other := range l.Contractions {
		if i == idx {
			continue
		}
		if other.IsActive() {
			if duration.End.After(other.StartTime) {
				return Contraction{}, errs.ErrContractionsOverlappingAfterUpdate
			}
			continue
		}
		if duration.Overlaps(other.Duration()) {
			return Contraction{}, fmt.Errorf("%w: overlaps %s", errs.ErrContractionsOverlappingAfterUpdate, other.ID)
		}
	}

	updated.StartTime = start
	updated.EndTime = &end
	if params.Intensity != nil {
		intensity := *params.Intensity
		updated.Intensity = &intensity
	}
	if params.Notes != nil {
		updated.Notes = *params.Notes
	}
	contractions := make([]Contraction, len(l.Contractions))
	copy(contractions, l.Contractions)
	contractions[idx] = updated
	l.Contractions = contractions
	return updated, nil
}

func (l *Labour) DeleteContraction(contractionID string) error {
	if l.IsCompleted() {
		return errs.ErrLabourAlreadyCompleted
	}
	idx := l.contractionIndex(contractionID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", errs.ErrContractionNotFoundByID, contractionID)
	}
	if l.Contractions[idx].IsActive() {
		return errs.ErrCannotDeleteActiveContraction
	}
	contractions := make([]Contraction, 0, len(l.Contractions)-1)
	contractions = append(contractions, l.Contractions[:idx]...)
	l.Contractions = append(contractions, l.Contractions[idx+1:]...)
	return nil
}

func (l *Labour) Complete(endTime time.Time, notes string) error {
	if l.IsCompleted() {
		return errs.ErrLabourAlreadyCompleted
	}
	if _, ok := l.ActiveContraction(); ok {
		return errs.ErrCannotCompleteLabourWithActiveContraction
	}
	end := endTime
	l.CurrentPhase = LabourPhaseComplete
	l.EndTime = &end
	if notes != "" {
		l.Notes = notes
	}
	l.emit(EventTypeLabourCompleted, l.eventData(map[string]any{
		"end_time": end.UTC().Format(time.RFC3339),
	}), endTime)
	return nil
}

// AdvancePhase moves the labour forward manually, for example into pushing.
func (l *Labour) AdvancePhase(phase LabourPhase) error {
	if l.IsCompleted() {
		return errs.ErrLabourAlreadyCompleted
	}
	if !phase.IsValid() || phase == LabourPhasePlanned || phase == LabourPhaseComplete {
		return fmt.Errorf("%w: %q", errs.ErrInvalidLabourPhase, phase)
	}
	if l.CurrentPhase == LabourPhasePlanned {
		return errs.ErrLabourNotBegun
	}
	if !l.CurrentPhase.Before(phase) {
		return fmt.Errorf("%w: %s -> %s", errs.ErrCannotRegressLabourPhase, l.CurrentPhase, phase)
	}
	l.CurrentPhase = phase
	return nil
}

func (l *Labour) UpdatePaymentPlan(plan PaymentPlan) error {
	if l.IsCompleted() {
		return errs.ErrLabourAlreadyCompleted
	}
	if !plan.IsValid() {
		return fmt.Errorf("%w: %q", errs.ErrInvalidPaymentPlan, plan)
	}
	if l.PaymentPlan != "" && planRank[plan] < planRank[l.PaymentPlan] {
		return fmt.Errorf("%w: %s -> %s", errs.ErrCannotDowngradeLabourPlan, l.PaymentPlan, plan)
	}
	l.PaymentPlan = plan
	return nil
}

type PostLabourUpdateParams struct {
	Type                 LabourUpdateType
	Message              string
	SentTime             time.Time
	ApplicationGenerated bool
}

func (l *Labour) PostLabourUpdate(params PostLabourUpdateParams) (LabourUpdate, error) {
	if l.IsCompleted() {
		return LabourUpdate{}, errs.ErrLabourAlreadyCompleted
	}
	if !params.Type.IsValid() {
		return LabourUpdate{}, fmt.Errorf("%w: %q", errs.ErrInvalidLabourUpdateType, params.Type)
	}
	if params.Message == "" {
		return LabourUpdate{}, errs.ErrInvalidLabourUpdateMessage
	}
	if params.Type == LabourUpdateTypeAnnouncement {
		if last, ok := l.lastAnnouncement(); ok {
			cooldown := l.Policy().AnnouncementCooldown
			if params.SentTime.Sub(last.SentTime) < cooldown {
				return LabourUpdate{}, fmt.Errorf("%w: last announcement at %s", errs.ErrTooSoonSinceLastAnnouncement,
					last.SentTime.Format(time.RFC3339))
			}
		}
	}

	update := LabourUpdate{
		ID:                   newID(),
		LabourID:             l.ID,
		Type:                 params.Type,
		Message:              params.Message,
		SentTime:             params.SentTime,
		ApplicationGenerated: params.ApplicationGenerated,
	}
	l.LabourUpdates = append(l.LabourUpdates, update)
	if update.Type == LabourUpdateTypeAnnouncement {
		l.emit(EventTypeAnnouncementPosted, l.eventData(map[string]any{
			"labour_update_id": update.ID,
			"message":          update.Message,
			"sent_time":        update.SentTime.UTC().Format(time.RFC3339),
		}), params.SentTime)
	}
	return update, nil
}

func (l *Labour) DeleteLabourUpdate(labourUpdateID string) error {
	for i, u := range l.LabourUpdates {
		if u.ID == labourUpdateID {
			updates := make([]LabourUpdate, 0, len(l.LabourUpdates)-1)
			updates = append(updates, l.LabourUpdates[:i]...)
			l.LabourUpdates = append(updates, l.LabourUpdates[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", errs.ErrLabourUpdateNotFoundByID, labourUpdateID)
}

func (l *Labour) ContractionPattern() (ContractionPattern, bool) {
	return PatternOf(l.Contractions, l.CurrentPhase, l.Policy())
}

func (l *Labour) ShouldGoToHospital() bool {
	return ShouldGoToHospital(l.Contractions, l.FirstLabour, l.Policy())
}

// updatePhase only ever moves the phase forward.
func (l *Labour) updatePhase() error {
	if l.IsCompleted() {
		return errs.ErrLabourAlreadyCompleted
	}
	l.CurrentPhase = EvaluatePhase(l.Contractions, l.CurrentPhase, l.Policy())
	return nil
}

func (l *Labour) lastAnnouncement() (LabourUpdate, bool) {
	var (
		last  LabourUpdate
		found bool
	)
	for _, u := range l.LabourUpdates {
		if u.Type != LabourUpdateTypeAnnouncement {
			continue
		}
		if !found || u.SentTime.After(last.SentTime) {
			last, found = u, true
		}
	}
	return last, found
}

func (l *Labour) activeContractionIndex() int {
	for i, c := range l.Contractions {
		if c.IsActive() {
			return i
		}
	}
	return -1
}

func (l *Labour) contractionIndex(id string) int {
	for i, c := range l.Contractions {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (l *Labour) eventData(extra map[string]any) map[string]any {
	data := map[string]any{
		"labour_id":          l.ID,
		"birthing_person_id": l.BirthingPersonID,
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

func newID() string {
	return uuid.Must(uuid.NewV4()).String()
}
