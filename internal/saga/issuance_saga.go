package saga

import (
	"context"

	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/inventory"
)

// CouponBuilder turns successful reservations into an issued coupon.
type CouponBuilder func(reservations []*inventory.Reservation) (*coupon.Coupon, error)

// IssuanceSaga reserves inventory and persists the coupon that holds it.
// Reservation and persistence run in separate transactions; a persistence
// failure releases every reservation of the request.
type IssuanceSaga struct {
	ledger  inventory.Ledger
	coupons coupon.Repository
	logger  *zap.Logger
}

// NewIssuanceSaga creates a new IssuanceSaga.
func NewIssuanceSaga(ledger inventory.Ledger, coupons coupon.Repository, logger *zap.Logger) *IssuanceSaga {
	return &IssuanceSaga{ledger: ledger, coupons: coupons, logger: logger}
}

// Issue runs reserve_inventory, build_coupon and save_coupon.
func (s *IssuanceSaga) Issue(ctx context.Context, refs []inventory.OptionRef, build CouponBuilder) (*coupon.Coupon, error) {
	var (
		reservations []*inventory.Reservation
		c            *coupon.Coupon
	)

	sg := NewSaga("issue_coupon", s.logger)

	sg.AddStep(SagaStep{
		Name: "reserve_inventory",
		Execute: func(ctx context.Context) error {
			var err error
			reservations, err = s.ledger.ReserveBatch(ctx, refs)
			return err
		},
		Compensate: func(ctx context.Context) error {
			var firstErr error
			for _, r := range reservations {
				if err := s.ledger.Release(ctx, r.ID); err != nil && firstErr == nil {
					firstErr = err
				}
			}
			return firstErr
		},
	})

	sg.AddStep(SagaStep{
		Name: "build_coupon",
		Execute: func(ctx context.Context) error {
			var err error
			c, err = build(reservations)
			return err
		},
	})

	sg.AddStep(SagaStep{
		Name: "save_coupon",
		Execute: func(ctx context.Context) error {
			return s.coupons.Save(ctx, c)
		},
	})

	if err := sg.Execute(ctx); err != nil {
		return nil, err
	}
	return c, nil
}
