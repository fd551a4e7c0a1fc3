package event

import (
	"context"
	"sort"

	"gitee.com/flycash/labour-tracker/internal/domain"
)

// Handler reacts to one domain event. A returned error leaves the message uncommitted.
type Handler interface {
	Handle(ctx context.Context, evt domain.DomainEvent) error
}

type HandlerFunc func(ctx context.Context, evt domain.DomainEvent) error

func (f HandlerFunc) Handle(ctx context.Context, evt domain.DomainEvent) error {
	return f(ctx, evt)
}

// HandlerFactory builds a handler bound to the batch being processed.
type HandlerFactory func(scope *Scope) Handler

// Registry maps topics to handler factories. It is fixed once built.
type Registry struct {
	handlers map[string]HandlerFactory
}

// NewRegistry keys factories by event type and resolves them to topics under prefix.
func NewRegistry(prefix string, byType map[string]HandlerFactory) *Registry {
	handlers := make(map[string]HandlerFactory, len(byType))
	for typ, f := range byType {
		handlers[Topic(prefix, typ)] = f
	}
	return &Registry{handlers: handlers}
}

// Topics lists the registered topics in lexical order.
func (r *Registry) Topics() []string {
	res := make([]string, 0, len(r.handlers))
	for topic := range r.handlers {
		res = append(res, topic)
	}
	sort.Strings(res)
	return res
}

func (r *Registry) Lookup(topic string) (HandlerFactory, bool) {
	f, ok := r.handlers[topic]
	return f, ok
}
