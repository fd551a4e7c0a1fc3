package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"gitee.com/flycash/labour-tracker/internal/errs"
	"github.com/gofrs/uuid"
)

const (
	EventTypeLabourPlanned             = "labour.planned"
	EventTypeLabourBegun               = "labour.begun"
	EventTypeLabourCompleted           = "labour.completed"
	EventTypeLabourHospitalRecommended = "labour.hospital-recommended"
	EventTypeAnnouncementPosted        = "announcement.posted"
	EventTypeSubscriberAdded           = "subscriber.added"
	EventTypeSubscriberRemoved         = "subscriber.removed"
)

// EventTypes lists every event type the domain raises.
func EventTypes() []string {
	return []string{
		EventTypeLabourPlanned,
		EventTypeLabourBegun,
		EventTypeLabourCompleted,
		EventTypeLabourHospitalRecommended,
		EventTypeAnnouncementPosted,
		EventTypeSubscriberAdded,
		EventTypeSubscriberRemoved,
	}
}

// DomainEvent is an immutable record of a state change.
// Data only carries JSON primitives; times are RFC3339 strings.
type DomainEvent struct {
	ID   string
	Type string
	Data map[string]any
	Time time.Time
}

func NewDomainEvent(eventType string, data map[string]any, now time.Time) DomainEvent {
	if data == nil {
		data = map[string]any{}
	}
	return DomainEvent{
		ID:   uuid.Must(uuid.NewV4()).String(),
		Type: eventType,
		Data: data,
		Time: now.UTC(),
	}
}

func (e DomainEvent) ToMap() map[string]any {
	return map[string]any{
		"id":   e.ID,
		"type": e.Type,
		"data": e.Data,
		"time": e.Time.UTC().Format(time.RFC3339Nano),
	}
}

func DomainEventFromMap(m map[string]any) (DomainEvent, error) {
	id, ok := m["id"].(string)
	if !ok || id == "" {
		return DomainEvent{}, fmt.Errorf("%w: missing id", errs.ErrInvalidDomainEvent)
	}
	typ, ok := m["type"].(string)
	if !ok || typ == "" {
		return DomainEvent{}, fmt.Errorf("%w: missing type", errs.ErrInvalidDomainEvent)
	}
	raw, ok := m["time"].(string)
	if !ok {
		return DomainEvent{}, fmt.Errorf("%w: missing time", errs.ErrInvalidDomainEvent)
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return DomainEvent{}, fmt.Errorf("%w: time %q: %w", errs.ErrInvalidDomainEvent, raw, err)
	}
	data := map[string]any{}
	if v, exist := m["data"]; exist && v != nil {
		data, ok = v.(map[string]any)
		if !ok {
			return DomainEvent{}, fmt.Errorf("%w: data is not an object", errs.ErrInvalidDomainEvent)
		}
	}
	return DomainEvent{ID: id, Type: typ, Data: data, Time: t.UTC()}, nil
}

func (e DomainEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToMap())
}

func (e *DomainEvent) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrInvalidDomainEvent, err)
	}
	evt, err := DomainEventFromMap(m)
	if err != nil {
		return err
	}
	*e = evt
	return nil
}

// DataString reads a string field from Data, empty if absent.
func (e DomainEvent) DataString(key string) string {
	v, _ := e.Data[key].(string)
	return v
}

// EventEmitter buffers events raised by an aggregate until they are drained.
// The buffer is never persisted.
type EventEmitter struct {
	pending []DomainEvent
}

func (e *EventEmitter) emit(eventType string, data map[string]any, now time.Time) {
	e.pending = append(e.pending, NewDomainEvent(eventType, data, now))
}

func (e *EventEmitter) PendingEvents() []DomainEvent {
	res := make([]DomainEvent, len(e.pending))
	copy(res, e.pending)
	return res
}

// DrainEvents returns the buffered events in emission order and clears the buffer.
func (e *EventEmitter) DrainEvents() []DomainEvent {
	res := e.pending
	e.pending = nil
	return res
}
