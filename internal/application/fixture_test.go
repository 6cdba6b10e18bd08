package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/auth"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/clock"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/saga"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/testutil"
)

// monday is 2026-10-19 12:00 UTC.
var monday = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

const testWindow = 10 * time.Minute

type fixture struct {
	clock     *clock.Fixed
	store     *testutil.CatalogStore
	ledger    *testutil.Ledger
	coupons   *testutil.CouponStore
	publisher *testutil.Publisher

	catalog  *CatalogService
	issuance *IssuanceService
	gateway  *CouponService

	owner    Actor
	customer Actor
	storeID  uuid.UUID
	menuID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	f := &fixture{
		clock:     clock.NewFixed(monday),
		store:     testutil.NewCatalogStore(),
		coupons:   testutil.NewCouponStore(),
		publisher: &testutil.Publisher{},
		owner:     Actor{UserID: uuid.New(), Role: auth.RoleOwner},
		customer:  Actor{UserID: uuid.New(), Role: auth.RoleCustomer},
	}
	f.ledger = testutil.NewLedger(f.store, f.clock)

	f.catalog = NewCatalogService(f.store, f.clock, time.UTC, logger)
	f.issuance = NewIssuanceService(
		f.store,
		saga.NewIssuanceSaga(f.ledger, f.coupons, logger),
		f.publisher, f.clock, time.UTC, nil, logger,
	)
	f.gateway = NewCouponService(f.coupons, f.store, f.ledger, testutil.Transactor{}, f.publisher, f.clock, testWindow, nil, logger)

	ctx := context.Background()
	st, err := f.catalog.CreateStore(ctx, f.owner, CreateStoreRequest{Name: "Paws Cafe"})
	require.NoError(t, err)
	f.storeID = st.ID
	menu, err := f.catalog.AddMenuItem(ctx, f.owner, st.ID, CreateMenuItemRequest{Name: "Latte", PriceCents: 5000})
	require.NoError(t, err)
	f.menuID = menu.ID
	return f
}

// discount creates a standalone discount valid for the next hour.
func (f *fixture) discount(t *testing.T, total *int) *DiscountOptionDTO {
	t.Helper()
	d, err := f.catalog.CreateDiscount(context.Background(), f.owner, f.storeID, CreateDiscountRequest{
		MenuID:        f.menuID,
		DiscountRate:  20,
		TotalQuantity: total,
		StartTime:     monday.Add(-time.Hour),
		EndTime:       monday.Add(time.Hour),
	})
	require.NoError(t, err)
	return d
}

// event creates an event running all week with one discount and one gift
// group of two options, each with the given stock.
func (f *fixture) event(t *testing.T, startDate, endDate string, stock int) *EventDTO {
	t.Helper()
	e, err := f.catalog.CreateEvent(context.Background(), f.owner, f.storeID, CreateEventRequest{
		Title:     "Autumn week",
		StartDate: startDate,
		EndDate:   endDate,
		Discounts: []EventDiscountRequest{{MenuID: f.menuID, DiscountRate: 30, TotalQuantity: lo.ToPtr(stock)}},
		GiftGroups: []GiftGroupRequest{{
			Name: "Pick a treat",
			Options: []GiftOptionRequest{
				{MenuID: f.menuID, TotalQuantity: lo.ToPtr(stock)},
				{MenuID: f.menuID, TotalQuantity: lo.ToPtr(stock)},
			},
		}},
	})
	require.NoError(t, err)
	return e
}

func discountItem(id uuid.UUID) IssueItemRequest {
	return IssueItemRequest{OptionType: "discount", OptionID: id}
}

func giftItem(id uuid.UUID) IssueItemRequest {
	return IssueItemRequest{OptionType: "gift", OptionID: id}
}

func (f *fixture) issueDiscount(t *testing.T, optionID uuid.UUID) uuid.UUID {
	t.Helper()
	out, err := f.issuance.Issue(context.Background(), f.customer.UserID, IssueCouponRequest{
		Items: []IssueItemRequest{discountItem(optionID)},
	})
	require.NoError(t, err)
	return out.CouponID
}
