package testutil

import (
	"context"
	"sync"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
)

// Transactor runs fn directly. The in-memory stores are individually atomic.
type Transactor struct{}

func (Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// PublishedEvent is one recorded publish call.
type PublishedEvent struct {
	Type     string
	CouponID string
	Status   coupon.Status
}

// Publisher records coupon lifecycle events.
type Publisher struct {
	mu     sync.Mutex
	events []PublishedEvent

	// Err, when set, is returned from every publish after recording it.
	Err error
}

func (p *Publisher) PublishCouponEvent(_ context.Context, eventType string, c *coupon.Coupon) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, PublishedEvent{Type: eventType, CouponID: c.ID().String(), Status: c.Status()})
	return p.Err
}

// Events returns the recorded events in publish order.
func (p *Publisher) Events() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PublishedEvent(nil), p.events...)
}

// Types returns the recorded event types in publish order.
func (p *Publisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}
