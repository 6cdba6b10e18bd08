package events

import (
	"context"
	"strings"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/kafka"
)

// CatalogDeactivator applies upstream catalog deactivations.
type CatalogDeactivator interface {
	HandleEventDeactivated(ctx context.Context, eventID uuid.UUID) error
	HandleDiscountDeactivated(ctx context.Context, discountID uuid.UUID) error
}

// CatalogEventConsumer listens to catalog events and deactivates the
// matching events and options.
type CatalogEventConsumer struct {
	consumer *kafka.Consumer
	catalog  CatalogDeactivator
	logger   *zap.Logger
}

// NewCatalogEventConsumer creates a new consumer for catalog events.
func NewCatalogEventConsumer(
	brokers []string,
	groupID string,
	catalog CatalogDeactivator,
	logger *zap.Logger,
) *CatalogEventConsumer {
	return &CatalogEventConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, TopicCatalogEvents, logger),
		catalog:  catalog,
		logger:   logger,
	}
}

// Start begins consuming catalog events. It blocks until the context is cancelled.
func (c *CatalogEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// handleMessage routes incoming Kafka messages to the appropriate handler.
func (c *CatalogEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from catalog topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return err
	}

	c.logger.Info("received catalog event",
		zap.String("type", cloudEvent.Type),
		zap.String("id", cloudEvent.ID),
	)

	switch {
	case strings.EqualFold(cloudEvent.Type, CatalogEventDeactivated):
		var data EventDeactivatedData
		if err := cloudEvent.ParseData(&data); err != nil {
			c.logger.Error("failed to parse EventDeactivated data", zap.Error(err))
			return err
		}
		return c.catalog.HandleEventDeactivated(ctx, data.EventID)

	case strings.EqualFold(cloudEvent.Type, CatalogDiscountDeactivated):
		var data DiscountDeactivatedData
		if err := cloudEvent.ParseData(&data); err != nil {
			c.logger.Error("failed to parse DiscountDeactivated data", zap.Error(err))
			return err
		}
		return c.catalog.HandleDiscountDeactivated(ctx, data.DiscountID)

	default:
		c.logger.Debug("ignoring unhandled catalog event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

// Close closes the underlying Kafka consumer.
func (c *CatalogEventConsumer) Close() error {
	return c.consumer.Close()
}
