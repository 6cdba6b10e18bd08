package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/kafka"
)

// Source identifies this service in outgoing CloudEvents.
const Source = "service-coupon"

// EventWriter writes a CloudEvent to a topic. *kafka.Producer implements it.
type EventWriter interface {
	PublishEvent(ctx context.Context, topic string, ce kafka.CloudEvent) error
}

// CouponEventPublisher publishes coupon lifecycle events to TopicCouponEvents,
// keyed by coupon id.
type CouponEventPublisher struct {
	writer EventWriter
	logger *zap.Logger
}

// NewCouponEventPublisher creates a new CouponEventPublisher.
func NewCouponEventPublisher(writer EventWriter, logger *zap.Logger) *CouponEventPublisher {
	return &CouponEventPublisher{writer: writer, logger: logger}
}

// PublishCouponEvent wraps the coupon state in a CloudEvent and writes it.
func (p *CouponEventPublisher) PublishCouponEvent(ctx context.Context, eventType string, c *coupon.Coupon) error {
	ce, err := kafka.NewCloudEvent(Source, eventType, CouponEventData{
		CouponID:  c.ID(),
		UserID:    c.UserID(),
		StoreID:   c.StoreID(),
		EventID:   c.EventID(),
		Status:    string(c.Status()),
		ItemCount: len(c.Items()),
		Version:   c.Version(),
	})
	if err != nil {
		return err
	}
	ce.Subject = c.ID().String()
	return p.writer.PublishEvent(ctx, TopicCouponEvents, ce)
}

// NoopPublisher discards events. It is used when Kafka is not configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishCouponEvent(context.Context, string, *coupon.Coupon) error { return nil }
