package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/catalog"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/inventory"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/clock"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/domain"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/metrics"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/tracing"
)

// maxTransitionAttempts bounds the optimistic retries of one transition.
const maxTransitionAttempts = 3

// CouponService applies activate, redeem and cancel to existing coupons and
// serves coupon reads.
type CouponService struct {
	coupons   coupon.Repository
	catalog   catalog.Repository
	ledger    inventory.Ledger
	tx        Transactor
	publisher EventPublisher
	clock     clock.Clock
	window    time.Duration
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewCouponService creates a new CouponService. window is the time allowed
// between activation and redemption.
func NewCouponService(
	coupons coupon.Repository,
	catalogRepo catalog.Repository,
	ledger inventory.Ledger,
	tx Transactor,
	publisher EventPublisher,
	clk clock.Clock,
	window time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) *CouponService {
	return &CouponService{
		coupons:   coupons,
		catalog:   catalogRepo,
		ledger:    ledger,
		tx:        tx,
		publisher: publisher,
		clock:     clk,
		window:    window,
		metrics:   m,
		logger:    logger,
	}
}

// transition describes one state change of the gateway.
type transition struct {
	name      string
	eventType string
	authorize func(ctx context.Context, c *coupon.Coupon, actor Actor) error
	apply     func(c *coupon.Coupon, now time.Time) error
	// after runs in the same transaction once the new state is written.
	after func(ctx context.Context, c *coupon.Coupon) error
}

// Activate starts the redemption window of an issued coupon. Only the holder
// may activate.
func (s *CouponService) Activate(ctx context.Context, couponID uuid.UUID, actor Actor) error {
	return s.run(ctx, couponID, actor, transition{
		name:      "activate",
		eventType: coupon.EventActivated,
		authorize: s.requireHolder,
		apply:     func(c *coupon.Coupon, now time.Time) error { return c.Activate(now) },
	})
}

// Redeem consumes an activated coupon. The holder or the owner of the
// issuing store may redeem.
func (s *CouponService) Redeem(ctx context.Context, couponID uuid.UUID, actor Actor) error {
	return s.run(ctx, couponID, actor, transition{
		name:      "redeem",
		eventType: coupon.EventRedeemed,
		authorize: s.requireHolderOrStoreOwner,
		apply:     func(c *coupon.Coupon, now time.Time) error { return c.Redeem(now, s.window) },
	})
}

// Cancel voids a coupon and returns its reservations to the ledger in the
// same transaction as the status change.
func (s *CouponService) Cancel(ctx context.Context, couponID uuid.UUID, actor Actor) error {
	return s.run(ctx, couponID, actor, transition{
		name:      "cancel",
		eventType: coupon.EventCancelled,
		authorize: s.requireHolderOrStoreOwner,
		apply:     func(c *coupon.Coupon, now time.Time) error { return c.Cancel(now) },
		after: func(ctx context.Context, c *coupon.Coupon) error {
			for _, id := range c.ReservationIDs() {
				if err := s.ledger.Release(ctx, id); err != nil {
					return err
				}
			}
			return nil
		},
	})
}

// run loads the coupon, checks authority, applies the transition and writes
// it with optimistic locking. A lost race reloads and retries, so the loser
// of two concurrent transitions sees the winner's state.
func (s *CouponService) run(ctx context.Context, couponID uuid.UUID, actor Actor, t transition) error {
	ctx, span := tracing.Start(ctx, "CouponService."+t.name)
	defer span.End()
	span.SetAttributes(attribute.String("coupon.id", couponID.String()))

	var (
		updated *coupon.Coupon
		err     error
	)
	for attempt := 1; attempt <= maxTransitionAttempts; attempt++ {
		err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			c, err := s.coupons.FindByID(ctx, couponID)
			if err != nil {
				return err
			}
			if err := t.authorize(ctx, c, actor); err != nil {
				return err
			}
			if err := t.apply(c, s.clock.Now()); err != nil {
				return err
			}
			c.IncrementVersion()
			if err := s.coupons.Update(ctx, c); err != nil {
				return err
			}
			if t.after != nil {
				if err := t.after(ctx, c); err != nil {
					return err
				}
			}
			updated = c
			return nil
		})
		if !domain.HasCode(err, domain.CodeConflict) {
			break
		}
		s.logger.Debug("coupon transition lost a race, retrying",
			zap.String("coupon_id", couponID.String()),
			zap.String("operation", t.name),
			zap.Int("attempt", attempt),
		)
	}
	if domain.HasCode(err, domain.CodeConflict) {
		err = domain.Wrap(err, domain.CodeInternal, "coupon kept changing concurrently")
	}

	s.metrics.ObserveTransition(t.name, resultLabel(err))
	if err != nil {
		span.RecordError(err)
		s.logger.Info("coupon transition rejected",
			zap.String("coupon_id", couponID.String()),
			zap.String("operation", t.name),
			zap.String("code", string(domain.CodeOf(err))),
		)
		return err
	}

	s.logger.Info("coupon transitioned",
		zap.String("coupon_id", couponID.String()),
		zap.String("operation", t.name),
		zap.String("status", string(updated.Status())),
	)
	publish(ctx, s.publisher, s.logger, t.eventType, updated)
	return nil
}

func (s *CouponService) requireHolder(_ context.Context, c *coupon.Coupon, actor Actor) error {
	if !c.IsOwnedBy(actor.UserID) {
		return domain.NewForbiddenError("only the coupon holder may do this")
	}
	return nil
}

func (s *CouponService) requireHolderOrStoreOwner(ctx context.Context, c *coupon.Coupon, actor Actor) error {
	if c.IsOwnedBy(actor.UserID) {
		return nil
	}
	ok, err := s.ownsStore(ctx, c.StoreID(), actor.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewForbiddenError("only the coupon holder or the store owner may do this")
	}
	return nil
}

func (s *CouponService) ownsStore(ctx context.Context, storeID, userID uuid.UUID) (bool, error) {
	store, err := s.catalog.FindStoreByID(ctx, storeID)
	if err != nil {
		if domain.HasCode(err, domain.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return store.IsOwnedBy(userID), nil
}

// GetCoupon returns a coupon to its holder, the store owner or an admin.
func (s *CouponService) GetCoupon(ctx context.Context, couponID uuid.UUID, actor Actor) (*CouponDTO, error) {
	c, err := s.coupons.FindByID(ctx, couponID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		if err := s.requireHolderOrStoreOwner(ctx, c, actor); err != nil {
			return nil, err
		}
	}
	dto := toCouponDTO(c)
	return &dto, nil
}

// ListUserCoupons returns a user's coupons. Users may only list their own
// unless they are admins.
func (s *CouponService) ListUserCoupons(ctx context.Context, userID uuid.UUID, actor Actor) (*CouponListDTO, error) {
	if userID != actor.UserID && !actor.IsAdmin() {
		return nil, domain.NewForbiddenError("cannot list another user's coupons")
	}
	coupons, err := s.coupons.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &CouponListDTO{Coupons: toCouponDTOs(coupons)}, nil
}

// --- Admin methods ---

// ListCoupons returns a paginated list of all coupons (admin).
func (s *CouponService) ListCoupons(ctx context.Context, page, limit int) ([]CouponDTO, int64, error) {
	coupons, total, err := s.coupons.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	return toCouponDTOs(coupons), total, nil
}

// CouponStats returns coupon counts by status (admin).
func (s *CouponService) CouponStats(ctx context.Context) (*CouponStatsDTO, error) {
	counts, err := s.coupons.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	return &CouponStatsDTO{
		TotalCoupons: lo.Sum(lo.Values(counts)),
		ByStatus:     counts,
	}, nil
}
