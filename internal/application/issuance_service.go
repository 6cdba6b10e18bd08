package application

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
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
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/saga"
)

// IssuanceService turns a user's selection into a single issued coupon.
type IssuanceService struct {
	catalog   catalog.Repository
	issuance  *saga.IssuanceSaga
	publisher EventPublisher
	clock     clock.Clock
	location  *time.Location
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewIssuanceService creates a new IssuanceService. loc is the timezone used
// for event calendar checks.
func NewIssuanceService(
	catalogRepo catalog.Repository,
	issuance *saga.IssuanceSaga,
	publisher EventPublisher,
	clk clock.Clock,
	loc *time.Location,
	m *metrics.Metrics,
	logger *zap.Logger,
) *IssuanceService {
	return &IssuanceService{
		catalog:   catalogRepo,
		issuance:  issuance,
		publisher: publisher,
		clock:     clk,
		location:  loc,
		metrics:   m,
		logger:    logger,
	}
}

// selection is a validated issuance request.
type selection struct {
	storeID    uuid.UUID
	refs       []inventory.OptionRef
	terms      []coupon.Terms
	boundaries []time.Time
}

// Issue validates the request, reserves every selected option and persists
// the coupon. No reservation outlives a failed request.
func (s *IssuanceService) Issue(ctx context.Context, userID uuid.UUID, req IssueCouponRequest) (*IssuedCouponDTO, error) {
	ctx, span := tracing.Start(ctx, "IssuanceService.Issue")
	defer span.End()
	span.SetAttributes(attribute.Int("coupon.items", len(req.Items)))

	c, err := s.issue(ctx, userID, req)
	s.metrics.ObserveTransition("issue", resultLabel(err))
	if err != nil {
		span.RecordError(err)
		s.logger.Info("coupon issuance rejected",
			zap.String("user_id", userID.String()),
			zap.String("code", string(domain.CodeOf(err))),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("coupon issued",
		zap.String("coupon_id", c.ID().String()),
		zap.String("user_id", userID.String()),
		zap.Int("items", len(c.Items())),
	)
	publish(ctx, s.publisher, s.logger, coupon.EventIssued, c)

	return &IssuedCouponDTO{CouponID: c.ID(), Coupon: toCouponDTO(c)}, nil
}

func (s *IssuanceService) issue(ctx context.Context, userID uuid.UUID, req IssueCouponRequest) (*coupon.Coupon, error) {
	now := s.clock.Now()

	var event *catalog.Event
	if req.EventID != nil {
		e, err := s.redeemableEvent(ctx, *req.EventID, now)
		if err != nil {
			return nil, err
		}
		event = e
	}

	sel, err := s.resolve(ctx, event, req.Items)
	if err != nil {
		return nil, err
	}

	boundaries := sel.boundaries
	var eventID *uuid.UUID
	if event != nil {
		boundaries = append(boundaries, event.EndBoundary(s.location))
		eventID = lo.ToPtr(event.ID)
	}
	expiresAt := coupon.LatestBoundary(boundaries...)

	c, err := s.issuance.Issue(ctx, sel.refs, func(reservations []*inventory.Reservation) (*coupon.Coupon, error) {
		items := make([]coupon.Item, len(reservations))
		for i, r := range reservations {
			items[i] = coupon.NewItem(r.ID, r.Quantity, sel.terms[i])
		}
		return coupon.NewCoupon(userID, sel.storeID, eventID, items, expiresAt, now)
	})
	s.observeReservations(sel.refs, err)
	if err != nil {
		return nil, shortageByType(err)
	}
	return c, nil
}

// redeemableEvent loads an event and checks that it accepts coupons now.
func (s *IssuanceService) redeemableEvent(ctx context.Context, id uuid.UUID, now time.Time) (*catalog.Event, error) {
	e, err := s.catalog.FindEventByID(ctx, id)
	if err != nil {
		if domain.HasCode(err, domain.CodeNotFound) {
			return nil, domain.Newf(domain.CodeEventUnavailable, "event %s not found", id)
		}
		return nil, err
	}
	if !e.IsRedeemableAt(now, s.location) {
		return nil, domain.Newf(domain.CodeEventUnavailable, "event %s is not redeemable now", id)
	}
	return e, nil
}

// resolve checks the item list against the event context and loads a
// snapshot of every option. Nothing is reserved yet.
func (s *IssuanceService) resolve(ctx context.Context, event *catalog.Event, items []IssueItemRequest) (*selection, error) {
	if len(items) == 0 {
		return nil, domain.New(domain.CodeItemsRequired, "items must contain at least one option")
	}

	type key struct {
		t  catalog.OptionType
		id uuid.UUID
	}
	seen := make(map[key]bool, len(items))
	types := make([]catalog.OptionType, len(items))
	for i, it := range items {
		t := catalog.OptionType(strings.ToLower(strings.TrimSpace(it.OptionType)))
		if !t.Valid() {
			return nil, domain.Newf(domain.CodeInvalidItemType, "item %d: unknown option type %q", i, it.OptionType)
		}
		if it.OptionID == uuid.Nil {
			return nil, domain.Newf(domain.CodeValidation, "item %d: optionId is required", i)
		}
		k := key{t, it.OptionID}
		if seen[k] {
			return nil, domain.Newf(domain.CodeInvalidItemType, "item %d: option %s selected twice", i, it.OptionID)
		}
		seen[k] = true
		types[i] = t
	}

	idsOf := func(want catalog.OptionType) []uuid.UUID {
		return lo.FilterMap(items, func(it IssueItemRequest, i int) (uuid.UUID, bool) {
			return it.OptionID, types[i] == want
		})
	}
	discounts, err := s.catalog.FindDiscountOptions(ctx, idsOf(catalog.OptionDiscount))
	if err != nil {
		return nil, err
	}
	gifts, err := s.catalog.FindGiftOptions(ctx, idsOf(catalog.OptionGift))
	if err != nil {
		return nil, err
	}
	discountByID := lo.KeyBy(discounts, func(o *catalog.DiscountOption) uuid.UUID { return o.ID })
	giftByID := lo.KeyBy(gifts, func(o *catalog.GiftOption) uuid.UUID { return o.ID })

	sel := &selection{}
	if event != nil {
		sel.storeID = event.StoreID
	}
	sameStore := func(i int, storeID uuid.UUID) error {
		if sel.storeID == uuid.Nil {
			sel.storeID = storeID
		}
		if storeID != sel.storeID {
			return domain.Newf(domain.CodeInvalidItemType, "item %d: options must belong to one store", i)
		}
		return nil
	}
	usedGroups := make(map[uuid.UUID]bool)

	for i, it := range items {
		switch types[i] {
		case catalog.OptionDiscount:
			o, ok := discountByID[it.OptionID]
			if !ok {
				return nil, domain.Newf(domain.CodeOptionNotFound, "discount option %s not found", it.OptionID)
			}
			switch {
			case event == nil && o.EventID != nil:
				return nil, domain.Newf(domain.CodeInvalidItemType, "item %d: discount %s belongs to an event, eventId is required", i, o.ID)
			case event != nil && (o.EventID == nil || *o.EventID != event.ID):
				return nil, domain.Newf(domain.CodeInvalidItemType, "item %d: discount %s does not belong to event %s", i, o.ID, event.ID)
			}
			if err := sameStore(i, o.StoreID); err != nil {
				return nil, err
			}
			sel.terms = append(sel.terms, coupon.DiscountTerms{
				OptionID:     o.ID,
				MenuID:       o.MenuID,
				DiscountRate: o.DiscountRate,
				FinalPrice:   o.FinalPrice,
			})
			sel.boundaries = append(sel.boundaries, o.Validity.End)

		case catalog.OptionGift:
			o, ok := giftByID[it.OptionID]
			if !ok {
				return nil, domain.Newf(domain.CodeOptionNotFound, "gift option %s not found", it.OptionID)
			}
			if event == nil || o.EventID != event.ID {
				return nil, domain.Newf(domain.CodeInvalidItemType, "item %d: gift %s must be selected within its event", i, o.ID)
			}
			if usedGroups[o.GiftGroupID] {
				return nil, domain.Newf(domain.CodeInvalidItemType, "item %d: at most one gift may be selected from group %s", i, o.GiftGroupID)
			}
			usedGroups[o.GiftGroupID] = true
			if err := sameStore(i, o.StoreID); err != nil {
				return nil, err
			}
			sel.terms = append(sel.terms, coupon.GiftTerms{
				OptionID:    o.ID,
				GiftGroupID: o.GiftGroupID,
				MenuID:      o.MenuID,
			})
			sel.boundaries = append(sel.boundaries, o.Validity.End)
		}
		sel.refs = append(sel.refs, inventory.OptionRef{Type: types[i], ID: it.OptionID, Quantity: 1})
	}
	return sel, nil
}

// shortageByType reports a ledger shortage as the discount or gift variant
// depending on which option ran out.
func shortageByType(err error) error {
	var re *inventory.ReservationError
	if !errors.As(err, &re) || !domain.HasCode(re.Err, domain.CodeStockShortage) {
		return err
	}
	code := domain.CodeDiscountStockShortage
	if re.Ref.Type == catalog.OptionGift {
		code = domain.CodeGiftStockShortage
	}
	return domain.Wrap(err, code, "option "+re.Ref.ID.String()+" is out of stock")
}

func (s *IssuanceService) observeReservations(refs []inventory.OptionRef, err error) {
	var re *inventory.ReservationError
	failed := errors.As(err, &re)
	for _, r := range refs {
		switch {
		case err == nil:
			s.metrics.ObserveReservation(string(r.Type), "ok")
		case failed && re.Ref.ID == r.ID && re.Ref.Type == r.Type:
			s.metrics.ObserveReservation(string(r.Type), string(domain.CodeOf(re.Err)))
		}
	}
}

// publish sends a lifecycle event and logs a failure without returning it.
func publish(ctx context.Context, p EventPublisher, logger *zap.Logger, eventType string, c *coupon.Coupon) {
	if p == nil {
		return
	}
	if err := p.PublishCouponEvent(ctx, eventType, c); err != nil {
		logger.Warn("failed to publish coupon event",
			zap.String("type", eventType),
			zap.String("coupon_id", c.ID().String()),
			zap.Error(err),
		)
	}
}
