package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/application"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/config"
	couponEvents "github.com/Kilat-Pet-Delivery/service-coupon/internal/events"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/handler"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/auth"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/clock"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/database"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/health"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/kafka"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/logger"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/metrics"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/middleware"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/tracing"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/repository"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/saga"
)

const serviceName = "service-coupon"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting service-coupon",
		zap.String("port", cfg.Port),
		zap.Duration("redemption_window", cfg.CouponConfig.RedemptionWindow),
		zap.String("store_timezone", cfg.CouponConfig.StoreTimezone.String()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize tracing
	shutdownTracing, err := tracing.InitTracerProvider(serviceName, cfg.JaegerEndpoint, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			zapLogger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	// Connect to database and migrate
	db, err := database.Connect(cfg.DBConfig.DSN(), zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := repository.AutoMigrate(db); err != nil {
		zapLogger.Fatal("failed to auto-migrate", zap.Error(err))
	}
	zapLogger.Info("database migration completed")

	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, 15*time.Minute)
	m := metrics.New()
	clk := clock.Real{}
	loc := cfg.CouponConfig.StoreTimezone

	// Initialize repositories and the ledger
	tx := database.NewTransactor(db)
	catalogRepo := repository.NewGormCatalogRepository(db)
	couponRepo := repository.NewGormCouponRepository(db)
	ledger := repository.NewGormLedger(db, tx, clk)

	// Initialize the event publisher
	var publisher application.EventPublisher = couponEvents.NoopPublisher{}
	if cfg.KafkaConfig.Enabled() {
		producer := kafka.NewProducer(cfg.KafkaConfig.Brokers, zapLogger)
		defer producer.Close()
		publisher = couponEvents.NewCouponEventPublisher(producer, zapLogger)
	} else {
		zapLogger.Info("kafka disabled, coupon events are not published")
	}

	// Initialize application services
	issuanceSaga := saga.NewIssuanceSaga(ledger, couponRepo, zapLogger)
	issuanceService := application.NewIssuanceService(catalogRepo, issuanceSaga, publisher, clk, loc, m, zapLogger)
	couponService := application.NewCouponService(couponRepo, catalogRepo, ledger, tx, publisher, clk, cfg.CouponConfig.RedemptionWindow, m, zapLogger)
	catalogService := application.NewCatalogService(catalogRepo, clk, loc, zapLogger)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.LoggerMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.MetricsMiddleware(m))

	// Register health and metrics routes
	health.NewHandler(db, serviceName).RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	// Register API routes
	apiV1 := router.Group("/api/v1")
	handler.NewCouponHandler(issuanceService, couponService).RegisterRoutes(apiV1, jwtManager)
	handler.NewCatalogHandler(catalogService).RegisterRoutes(apiV1, jwtManager)
	handler.NewAdminCouponHandler(couponService).RegisterRoutes(apiV1, jwtManager)

	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zapLogger.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Start the catalog event consumer
	if cfg.KafkaConfig.Enabled() {
		catalogConsumer := couponEvents.NewCatalogEventConsumer(
			cfg.KafkaConfig.Brokers,
			cfg.KafkaConfig.GroupPrefix+serviceName,
			catalogService,
			zapLogger,
		)
		defer catalogConsumer.Close()

		g.Go(func() error {
			zapLogger.Info("starting catalog event consumer")
			if err := catalogConsumer.Start(gctx); err != nil && gctx.Err() == nil {
				return err
			}
			return nil
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		zapLogger.Info("shutting down service-coupon...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zapLogger.Error("service-coupon stopped with error", zap.Error(err))
		return
	}
	zapLogger.Info("service-coupon stopped")
}
