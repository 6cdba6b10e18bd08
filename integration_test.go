//go:build integration

package main_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/application"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
	couponEvents "github.com/Kilat-Pet-Delivery/service-coupon/internal/events"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/auth"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/domain"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/repository"
)

// TestConcurrentIssuance_NoOversell races many issuance requests for the same
// option against Postgres and checks the stock never goes below zero.
func TestConcurrentIssuance_NoOversell(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupCouponStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	const stock, callers = 5, 25
	seed := seedCatalog(t, stack, stock)

	var wins atomic.Int32
	var g errgroup.Group
	for range callers {
		g.Go(func() error {
			_, err := stack.Issuance.Issue(context.Background(), uuid.New(), application.IssueCouponRequest{
				EventID: &seed.Event.ID,
				Items:   []application.IssueItemRequest{{OptionType: "discount", OptionID: seed.DiscountID}},
			})
			if err == nil {
				wins.Add(1)
				return nil
			}
			if !domain.HasCode(err, domain.CodeDiscountStockShortage) {
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(stock), wins.Load())
	assert.Equal(t, 0, remainingDiscount(t, stack, seed.DiscountID))

	var reservations int64
	infra.DB.Model(&repository.ReservationModel{}).Where("released_at IS NULL").Count(&reservations)
	assert.Equal(t, int64(stock), reservations)
}

// TestIssuance_AllOrNothing verifies that a failing gift reservation rolls
// back the discount reserved in the same request.
func TestIssuance_AllOrNothing(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupCouponStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	seed := seedCatalog(t, stack, 1)
	ctx := context.Background()
	_, err := stack.Issuance.Issue(ctx, uuid.New(), application.IssueCouponRequest{
		EventID: &seed.Event.ID,
		Items:   []application.IssueItemRequest{{OptionType: "gift", OptionID: seed.GiftIDs[0]}},
	})
	require.NoError(t, err)

	_, err = stack.Issuance.Issue(ctx, uuid.New(), application.IssueCouponRequest{
		EventID: &seed.Event.ID,
		Items: []application.IssueItemRequest{
			{OptionType: "discount", OptionID: seed.DiscountID},
			{OptionType: "gift", OptionID: seed.GiftIDs[0]},
		},
	})

	assert.Equal(t, domain.CodeGiftStockShortage, domain.CodeOf(err))
	assert.Equal(t, 1, remainingDiscount(t, stack, seed.DiscountID))
}

// TestCancel_ReleasesStockAndPublishes verifies cancel returns the stock once
// and announces the transition on coupon.events.
func TestCancel_ReleasesStockAndPublishes(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupCouponStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	seed := seedCatalog(t, stack, 3)
	ctx := context.Background()
	holder := application.Actor{UserID: uuid.New(), Role: auth.RoleCustomer}

	issued, err := stack.Issuance.Issue(ctx, holder.UserID, application.IssueCouponRequest{
		EventID: &seed.Event.ID,
		Items:   []application.IssueItemRequest{{OptionType: "discount", OptionID: seed.DiscountID}},
	})
	require.NoError(t, err)
	require.Equal(t, 2, remainingDiscount(t, stack, seed.DiscountID))

	require.NoError(t, stack.Coupons.Cancel(ctx, issued.CouponID, holder))
	err = stack.Coupons.Cancel(ctx, issued.CouponID, holder)
	assert.Equal(t, domain.CodeAlreadyCancelled, domain.CodeOf(err))
	assert.Equal(t, 3, remainingDiscount(t, stack, seed.DiscountID))

	res, err := stack.Ledger.FindReservation(ctx, issued.Coupon.Items[0].ReservationID)
	require.NoError(t, err)
	assert.NotNil(t, res.ReleasedAt)

	err = stack.Coupons.Activate(ctx, issued.CouponID, holder)
	assert.Equal(t, domain.CodeAlreadyCancelled, domain.CodeOf(err))

	ce := consumeEvent(t, infra.KafkaBrokers, couponEvents.TopicCouponEvents,
		coupon.EventCancelled, issued.CouponID.String(), 15*time.Second)
	var data couponEvents.CouponEventData
	require.NoError(t, ce.ParseData(&data))
	assert.Equal(t, issued.CouponID, data.CouponID)
	assert.Equal(t, "cancelled", data.Status)
}

// TestConcurrentTransitions_OneWinner races redeem against cancel on one
// coupon; exactly one may succeed.
func TestConcurrentTransitions_OneWinner(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupCouponStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	seed := seedCatalog(t, stack, 3)
	ctx := context.Background()
	holder := application.Actor{UserID: uuid.New(), Role: auth.RoleCustomer}
	issued, err := stack.Issuance.Issue(ctx, holder.UserID, application.IssueCouponRequest{
		EventID: &seed.Event.ID,
		Items:   []application.IssueItemRequest{{OptionType: "discount", OptionID: seed.DiscountID}},
	})
	require.NoError(t, err)
	require.NoError(t, stack.Coupons.Activate(ctx, issued.CouponID, holder))

	var redeemErr, cancelErr error
	var g errgroup.Group
	g.Go(func() error { redeemErr = stack.Coupons.Redeem(ctx, issued.CouponID, holder); return nil })
	g.Go(func() error { cancelErr = stack.Coupons.Cancel(ctx, issued.CouponID, holder); return nil })
	require.NoError(t, g.Wait())

	require.True(t, (redeemErr == nil) != (cancelErr == nil), "redeem=%v cancel=%v", redeemErr, cancelErr)
	got, err := stack.Coupons.GetCoupon(ctx, issued.CouponID, holder)
	require.NoError(t, err)
	if redeemErr == nil {
		assert.Equal(t, "redeemed", got.Status)
		assert.Equal(t, 2, remainingDiscount(t, stack, seed.DiscountID))
	} else {
		assert.Equal(t, "cancelled", got.Status)
		assert.Equal(t, 3, remainingDiscount(t, stack, seed.DiscountID))
	}
}

// TestCatalogEventDeactivated_CascadesToOptions verifies that an upstream
// deactivation on catalog.events disables the event and its options.
func TestCatalogEventDeactivated_CascadesToOptions(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupCouponStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	seed := seedCatalog(t, stack, 3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.Consumer.Start(ctx) }()
	time.Sleep(3 * time.Second) // Wait for consumer group join.

	publishTestEvent(t, infra.KafkaBrokers, couponEvents.TopicCatalogEvents,
		"service-catalog", couponEvents.CatalogEventDeactivated,
		couponEvents.EventDeactivatedData{EventID: seed.Event.ID})

	require.Eventually(t, func() bool {
		o, err := stack.CatalogRepo.FindDiscountOptionByID(context.Background(), seed.DiscountID)
		return err == nil && !o.IsActive
	}, 15*time.Second, 200*time.Millisecond, "discount was not deactivated")

	_, err := stack.Issuance.Issue(context.Background(), uuid.New(), application.IssueCouponRequest{
		EventID: &seed.Event.ID,
		Items:   []application.IssueItemRequest{{OptionType: "gift", OptionID: seed.GiftIDs[1]}},
	})
	assert.Equal(t, domain.CodeEventUnavailable, domain.CodeOf(err))
}
