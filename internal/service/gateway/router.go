package gateway

import (
	"fmt"
	"sync"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"gitee.com/flycash/labour-tracker/internal/errs"
)

// Router resolves the gateway for a channel.
type Router struct {
	mu       sync.RWMutex
	gateways map[domain.Channel]Gateway
}

func NewRouter() *Router {
	return &Router{gateways: make(map[domain.Channel]Gateway)}
}

// RegisterGateway replaces any gateway already registered for the channel.
func (r *Router) RegisterGateway(channel domain.Channel, gw Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[channel] = gw
}

func (r *Router) GetGateway(channel string) (Gateway, error) {
	c, err := domain.ParseChannel(channel)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	gw, ok := r.gateways[c]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrGatewayNotImplemented, c)
	}
	return gw, nil
}

// Channels lists the channels with a registered gateway.
func (r *Router) Channels() []domain.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]domain.Channel, 0, len(r.gateways))
	for c := range r.gateways {
		res = append(res, c)
	}
	return res
}
