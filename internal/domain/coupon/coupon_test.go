package coupon

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/catalog"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/domain"
)

var (
	issuedAt = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	window   = 10 * time.Minute
)

func newTestCoupon(t *testing.T) *Coupon {
	t.Helper()
	items := []Item{
		NewItem(uuid.New(), 1, DiscountTerms{OptionID: uuid.New(), MenuID: uuid.New(), DiscountRate: 20, FinalPrice: 8000}),
		NewItem(uuid.New(), 1, GiftTerms{OptionID: uuid.New(), GiftGroupID: uuid.New(), MenuID: uuid.New()}),
	}
	c, err := NewCoupon(uuid.New(), uuid.New(), nil, items, issuedAt.Add(24*time.Hour), issuedAt)
	require.NoError(t, err)
	return c
}

// couponIn drives a fresh coupon into status.
func couponIn(t *testing.T, status Status) *Coupon {
	t.Helper()
	c := newTestCoupon(t)
	switch status {
	case StatusActivated:
		require.NoError(t, c.Activate(issuedAt))
	case StatusRedeemed:
		require.NoError(t, c.Activate(issuedAt))
		require.NoError(t, c.Redeem(issuedAt.Add(time.Minute), window))
	case StatusCancelled:
		require.NoError(t, c.Cancel(issuedAt))
	}
	return c
}

func TestNewCoupon(t *testing.T) {
	c := newTestCoupon(t)
	assert.Equal(t, StatusIssued, c.Status())
	assert.Equal(t, int64(1), c.Version())
	assert.Len(t, c.Items(), 2)
	assert.Len(t, c.ReservationIDs(), 2)
	assert.Equal(t, catalog.OptionDiscount, c.Items()[0].Terms.Kind())
	assert.Equal(t, catalog.OptionGift, c.Items()[1].Terms.Kind())

	_, err := NewCoupon(uuid.New(), uuid.New(), nil, nil, issuedAt.Add(time.Hour), issuedAt)
	assert.True(t, domain.HasCode(err, domain.CodeItemsRequired))
}

func TestCoupon_Transitions(t *testing.T) {
	type op func(c *Coupon) error
	activate := func(c *Coupon) error { return c.Activate(issuedAt.Add(time.Minute)) }
	redeem := func(c *Coupon) error { return c.Redeem(issuedAt.Add(2*time.Minute), window) }
	cancel := func(c *Coupon) error { return c.Cancel(issuedAt.Add(time.Minute)) }

	tests := []struct {
		from     Status
		name     string
		op       op
		wantErr  domain.Code
		wantNext Status
	}{
		{StatusIssued, "activate", activate, "", StatusActivated},
		{StatusIssued, "redeem", redeem, domain.CodeNotActivated, StatusIssued},
		{StatusIssued, "cancel", cancel, "", StatusCancelled},

		{StatusActivated, "activate", activate, domain.CodeAlreadyActivated, StatusActivated},
		{StatusActivated, "redeem", redeem, "", StatusRedeemed},
		{StatusActivated, "cancel", cancel, "", StatusCancelled},

		{StatusRedeemed, "activate", activate, domain.CodeAlreadyRedeemed, StatusRedeemed},
		{StatusRedeemed, "redeem", redeem, domain.CodeAlreadyRedeemed, StatusRedeemed},
		{StatusRedeemed, "cancel", cancel, domain.CodeAlreadyRedeemed, StatusRedeemed},

		{StatusCancelled, "activate", activate, domain.CodeAlreadyCancelled, StatusCancelled},
		{StatusCancelled, "redeem", redeem, domain.CodeAlreadyCancelled, StatusCancelled},
		{StatusCancelled, "cancel", cancel, domain.CodeAlreadyCancelled, StatusCancelled},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+tt.name, func(t *testing.T) {
			c := couponIn(t, tt.from)
			before := c.UpdatedAt()

			err := tt.op(c)

			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				assert.Equal(t, tt.wantErr, domain.CodeOf(err))
				assert.Equal(t, before, c.UpdatedAt(), "failed transition must not touch the coupon")
			}
			assert.Equal(t, tt.wantNext, c.Status())
		})
	}
}

func TestCoupon_ActivateAfterExpiry(t *testing.T) {
	c := newTestCoupon(t)

	err := c.Activate(c.ExpiresAt())

	assert.True(t, domain.HasCode(err, domain.CodeCouponExpired))
	assert.Equal(t, StatusIssued, c.Status())
	assert.Nil(t, c.ActivatedAt())
}

func TestCoupon_RedeemAfterExpiry(t *testing.T) {
	c := newTestCoupon(t)
	require.NoError(t, c.Activate(c.ExpiresAt().Add(-time.Minute)))

	err := c.Redeem(c.ExpiresAt(), window)

	assert.True(t, domain.HasCode(err, domain.CodeCouponExpired))
	assert.Equal(t, StatusActivated, c.Status())
}

func TestCoupon_RedemptionWindow(t *testing.T) {
	c := couponIn(t, StatusActivated)

	err := c.Redeem(issuedAt.Add(window+time.Second), window)
	assert.True(t, domain.HasCode(err, domain.CodeRedemptionWindow))
	assert.Equal(t, StatusActivated, c.Status())

	require.NoError(t, c.Redeem(issuedAt.Add(window), window))
	assert.Equal(t, StatusRedeemed, c.Status())
	require.NotNil(t, c.RedeemedAt())
}

func TestCoupon_CancelKeepsReservationsForRelease(t *testing.T) {
	c := couponIn(t, StatusActivated)
	ids := c.ReservationIDs()

	require.NoError(t, c.Cancel(issuedAt.Add(time.Minute)))

	assert.Equal(t, ids, c.ReservationIDs())
	require.NotNil(t, c.CancelledAt())
}

func TestLatestBoundary(t *testing.T) {
	a := issuedAt.Add(time.Hour)
	b := issuedAt.Add(3 * time.Hour)
	assert.Equal(t, b, LatestBoundary(a, b, issuedAt))
	assert.True(t, LatestBoundary().IsZero())
}
