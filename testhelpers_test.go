//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/application"
	couponEvents "github.com/Kilat-Pet-Delivery/service-coupon/internal/events"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/auth"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/clock"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/database"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/kafka"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/repository"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/saga"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// couponStack holds wired-up coupon service components backed by Postgres
// and Kafka.
type couponStack struct {
	Catalog         *application.CatalogService
	Issuance        *application.IssuanceService
	Coupons         *application.CouponService
	CatalogRepo     *repository.GormCatalogRepository
	Ledger          *repository.GormLedger
	Consumer        *couponEvents.CatalogEventConsumer
	CleanupProducer func()
}

// setupContainers starts PostgreSQL and Kafka testcontainers and returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	// Start PostgreSQL container with log-based wait strategy.
	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_coupon",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_coupon sslmode=disable", pgHost, pgPort.Port())

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, repository.AutoMigrate(db))

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	// Pre-create required topics.
	createTopics(t, kafkaBrokers, couponEvents.TopicCatalogEvents, couponEvents.TopicCouponEvents)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupCouponStack wires up the full coupon service stack.
func setupCouponStack(t *testing.T, db *gorm.DB, brokers []string) *couponStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	clk := clock.Real{}

	tx := database.NewTransactor(db)
	catalogRepo := repository.NewGormCatalogRepository(db)
	couponRepo := repository.NewGormCouponRepository(db)
	ledger := repository.NewGormLedger(db, tx, clk)

	producer := kafka.NewProducer(brokers, logger)
	publisher := couponEvents.NewCouponEventPublisher(producer, logger)

	catalogSvc := application.NewCatalogService(catalogRepo, clk, time.UTC, logger)
	issuanceSvc := application.NewIssuanceService(catalogRepo, saga.NewIssuanceSaga(ledger, couponRepo, logger), publisher, clk, time.UTC, nil, logger)
	couponSvc := application.NewCouponService(couponRepo, catalogRepo, ledger, tx, publisher, clk, 10*time.Minute, nil, logger)

	groupID := fmt.Sprintf("test-coupon-%s", uuid.New().String()[:8])
	consumer := couponEvents.NewCatalogEventConsumer(brokers, groupID, catalogSvc, logger)

	return &couponStack{
		Catalog:         catalogSvc,
		Issuance:        issuanceSvc,
		Coupons:         couponSvc,
		CatalogRepo:     catalogRepo,
		Ledger:          ledger,
		Consumer:        consumer,
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// seededCatalog is a store with one menu item and an all-day event.
type seededCatalog struct {
	Owner      application.Actor
	StoreID    uuid.UUID
	Event      *application.EventDTO
	DiscountID uuid.UUID
	GiftIDs    []uuid.UUID
}

// seedCatalog creates a store, a menu item and an event running today with
// one discount and one gift group through the catalog service.
func seedCatalog(t *testing.T, stack *couponStack, stock int) seededCatalog {
	t.Helper()
	ctx := context.Background()
	owner := application.Actor{UserID: uuid.New(), Role: auth.RoleOwner}

	store, err := stack.Catalog.CreateStore(ctx, owner, application.CreateStoreRequest{Name: "Integration Cafe"})
	require.NoError(t, err)
	menu, err := stack.Catalog.AddMenuItem(ctx, owner, store.ID, application.CreateMenuItemRequest{Name: "Latte", PriceCents: 5000})
	require.NoError(t, err)

	today := time.Now().UTC()
	event, err := stack.Catalog.CreateEvent(ctx, owner, store.ID, application.CreateEventRequest{
		Title:     "Integration week",
		StartDate: today.AddDate(0, 0, -1).Format("2006-01-02"),
		EndDate:   today.AddDate(0, 0, 1).Format("2006-01-02"),
		Discounts: []application.EventDiscountRequest{{MenuID: menu.ID, DiscountRate: 25, TotalQuantity: &stock}},
		GiftGroups: []application.GiftGroupRequest{{
			Name: "Treat",
			Options: []application.GiftOptionRequest{
				{MenuID: menu.ID, TotalQuantity: &stock},
				{MenuID: menu.ID, TotalQuantity: &stock},
			},
		}},
	})
	require.NoError(t, err)

	return seededCatalog{
		Owner:      owner,
		StoreID:    store.ID,
		Event:      event,
		DiscountID: event.Discounts[0].ID,
		GiftIDs:    []uuid.UUID{event.GiftGroups[0].Options[0].ID, event.GiftGroups[0].Options[1].ID},
	}
}

// remainingDiscount reads the live remaining quantity of a discount option.
func remainingDiscount(t *testing.T, stack *couponStack, id uuid.UUID) int {
	t.Helper()
	o, err := stack.CatalogRepo.FindDiscountOptionByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, o.Quantity.Remaining)
	return *o.Quantity.Remaining
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// consumeEvent reads from a Kafka topic until it finds an event of the
// expected type about the given subject.
func consumeEvent(t *testing.T, brokers []string, topic, expectedType, subject string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType && ce.Subject == subject {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
