package event

import (
	"sync"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"github.com/gofrs/uuid"
	"github.com/gotomicro/ego/core/elog"
)

// Scope lives for one polled batch. Handlers share its logger and contact cache.
type Scope struct {
	BatchID string
	Logger  *elog.Component

	mu       sync.Mutex
	contacts map[string]domain.Contact
}

func NewScope(logger *elog.Component) *Scope {
	id := uuid.Must(uuid.NewV4()).String()
	return &Scope{
		BatchID:  id,
		Logger:   logger.With(elog.String("batchID", id)),
		contacts: make(map[string]domain.Contact),
	}
}

func (s *Scope) Contact(id string) (domain.Contact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	return c, ok
}

func (s *Scope) RememberContact(c domain.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[c.ID] = c
}
