package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/catalog"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/clock"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/domain"
)

// CatalogService manages stores, menus, discounts and events on behalf of
// store owners.
type CatalogService struct {
	repo     catalog.Repository
	clock    clock.Clock
	location *time.Location
	logger   *zap.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(repo catalog.Repository, clk clock.Clock, loc *time.Location, logger *zap.Logger) *CatalogService {
	return &CatalogService{repo: repo, clock: clk, location: loc, logger: logger}
}

// authorizeStore loads a store and checks that actor owns it or is an admin.
func (s *CatalogService) authorizeStore(ctx context.Context, storeID uuid.UUID, actor Actor) (*catalog.Store, error) {
	store, err := s.repo.FindStoreByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if !store.IsOwnedBy(actor.UserID) && !actor.IsAdmin() {
		return nil, domain.NewForbiddenError("only the store owner may manage this store")
	}
	return store, nil
}

// storeMenu loads an active menu item of the given store.
func (s *CatalogService) storeMenu(ctx context.Context, storeID, menuID uuid.UUID) (*catalog.MenuItem, error) {
	menu, err := s.repo.FindMenuItemByID(ctx, menuID)
	if err != nil {
		return nil, err
	}
	if menu.StoreID != storeID {
		return nil, domain.NewValidationError("menu item belongs to another store")
	}
	if !menu.IsActive {
		return nil, domain.NewValidationError("menu item is not active")
	}
	return menu, nil
}

// CreateStore registers a store owned by the actor.
func (s *CatalogService) CreateStore(ctx context.Context, actor Actor, req CreateStoreRequest) (*StoreDTO, error) {
	store, err := catalog.NewStore(actor.UserID, req.Name, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveStore(ctx, store); err != nil {
		return nil, err
	}
	s.logger.Info("store created", zap.String("store_id", store.ID.String()), zap.String("owner_id", actor.UserID.String()))
	dto := toStoreDTO(store)
	return &dto, nil
}

// GetStore returns a store by id.
func (s *CatalogService) GetStore(ctx context.Context, storeID uuid.UUID) (*StoreDTO, error) {
	store, err := s.repo.FindStoreByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	dto := toStoreDTO(store)
	return &dto, nil
}

// AddMenuItem adds a menu item to a store.
func (s *CatalogService) AddMenuItem(ctx context.Context, actor Actor, storeID uuid.UUID, req CreateMenuItemRequest) (*MenuItemDTO, error) {
	if _, err := s.authorizeStore(ctx, storeID, actor); err != nil {
		return nil, err
	}
	menu, err := catalog.NewMenuItem(storeID, req.Name, req.PriceCents, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveMenuItem(ctx, menu); err != nil {
		return nil, err
	}
	dto := toMenuItemDTO(menu)
	return &dto, nil
}

// CreateDiscount registers a standalone discount on a menu item. The final
// price is derived from the menu price.
func (s *CatalogService) CreateDiscount(ctx context.Context, actor Actor, storeID uuid.UUID, req CreateDiscountRequest) (*DiscountOptionDTO, error) {
	if _, err := s.authorizeStore(ctx, storeID, actor); err != nil {
		return nil, err
	}
	menu, err := s.storeMenu(ctx, storeID, req.MenuID)
	if err != nil {
		return nil, err
	}
	opt, err := catalog.NewDiscountOption(
		storeID, menu.ID, nil,
		req.DiscountRate, menu.DiscountedPrice(req.DiscountRate), req.TotalQuantity,
		catalog.Window{Start: req.StartTime.UTC(), End: req.EndTime.UTC()},
		s.clock.Now(),
	)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveDiscountOption(ctx, opt); err != nil {
		return nil, err
	}
	s.logger.Info("discount created", zap.String("discount_id", opt.ID.String()), zap.String("store_id", storeID.String()))
	dto := toDiscountOptionDTO(opt)
	return &dto, nil
}

// CreateEvent registers an event with its discounts and gift groups. Options
// created with the event are valid for the event's whole date range.
func (s *CatalogService) CreateEvent(ctx context.Context, actor Actor, storeID uuid.UUID, req CreateEventRequest) (*EventDTO, error) {
	if _, err := s.authorizeStore(ctx, storeID, actor); err != nil {
		return nil, err
	}
	now := s.clock.Now()

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return nil, domain.NewValidationError("startDate must be YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return nil, domain.NewValidationError("endDate must be YYYY-MM-DD")
	}
	happyHour, err := parseHappyHour(req.HappyHourStart, req.HappyHourEnd)
	if err != nil {
		return nil, err
	}
	weekdays := catalog.NewWeekdays(lo.Map(req.Weekdays, func(d int, _ int) time.Weekday { return time.Weekday(d) })...)

	event, err := catalog.NewEvent(storeID, req.Title, start, end, weekdays, happyHour, now)
	if err != nil {
		return nil, err
	}
	validity := catalog.Window{
		Start: time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, s.location),
		End:   event.EndBoundary(s.location),
	}

	for _, d := range req.Discounts {
		menu, err := s.storeMenu(ctx, storeID, d.MenuID)
		if err != nil {
			return nil, err
		}
		opt, err := catalog.NewDiscountOption(storeID, menu.ID, nil, d.DiscountRate, menu.DiscountedPrice(d.DiscountRate), d.TotalQuantity, validity, now)
		if err != nil {
			return nil, err
		}
		if err := event.AddDiscount(opt); err != nil {
			return nil, err
		}
	}
	for _, g := range req.GiftGroups {
		group, err := catalog.NewGiftGroup(event.ID, g.Name)
		if err != nil {
			return nil, err
		}
		for _, o := range g.Options {
			if _, err := s.storeMenu(ctx, storeID, o.MenuID); err != nil {
				return nil, err
			}
			if _, err := group.AddOption(storeID, o.MenuID, o.TotalQuantity, validity, now); err != nil {
				return nil, err
			}
		}
		if err := event.AddGiftGroup(group); err != nil {
			return nil, err
		}
	}

	if err := s.repo.SaveEvent(ctx, event); err != nil {
		return nil, err
	}
	s.logger.Info("event created",
		zap.String("event_id", event.ID.String()),
		zap.String("store_id", storeID.String()),
		zap.Int("discounts", len(event.Discounts)),
		zap.Int("gift_groups", len(event.GiftGroups)),
	)
	dto := toEventDTO(event, now, s.location)
	return &dto, nil
}

func parseHappyHour(start, end string) (*catalog.HappyHour, error) {
	if start == "" && end == "" {
		return nil, nil
	}
	if start == "" || end == "" {
		return nil, domain.NewValidationError("happyHourStart and happyHourEnd must be given together")
	}
	from, err := catalog.ParseTimeOfDay(start)
	if err != nil {
		return nil, err
	}
	to, err := catalog.ParseTimeOfDay(end)
	if err != nil {
		return nil, err
	}
	return &catalog.HappyHour{Start: from, End: to}, nil
}

// GetEvent returns an event with its options and current redeemability.
func (s *CatalogService) GetEvent(ctx context.Context, eventID uuid.UUID) (*EventDTO, error) {
	event, err := s.repo.FindEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	dto := toEventDTO(event, s.clock.Now(), s.location)
	return &dto, nil
}

// ListStoreEvents returns a store's events without their options.
func (s *CatalogService) ListStoreEvents(ctx context.Context, storeID uuid.UUID) ([]EventDTO, error) {
	events, err := s.repo.ListEventsByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	return lo.Map(events, func(e *catalog.Event, _ int) EventDTO { return toEventDTO(e, now, s.location) }), nil
}

// DeactivateEvent soft-deletes an event and all its options. Issued coupons
// are kept.
func (s *CatalogService) DeactivateEvent(ctx context.Context, actor Actor, eventID uuid.UUID) error {
	event, err := s.repo.FindEventByID(ctx, eventID)
	if err != nil {
		return err
	}
	if _, err := s.authorizeStore(ctx, event.StoreID, actor); err != nil {
		return err
	}
	if err := s.repo.DeactivateEvent(ctx, eventID); err != nil {
		return err
	}
	s.logger.Info("event deactivated", zap.String("event_id", eventID.String()))
	return nil
}

// DeactivateDiscount stops a discount option from being reserved.
func (s *CatalogService) DeactivateDiscount(ctx context.Context, actor Actor, discountID uuid.UUID) error {
	opt, err := s.repo.FindDiscountOptionByID(ctx, discountID)
	if err != nil {
		return err
	}
	if _, err := s.authorizeStore(ctx, opt.StoreID, actor); err != nil {
		return err
	}
	if err := s.repo.DeactivateDiscountOption(ctx, discountID); err != nil {
		return err
	}
	s.logger.Info("discount deactivated", zap.String("discount_id", discountID.String()))
	return nil
}

// HandleEventDeactivated applies an upstream deactivation. Unknown events are
// skipped.
func (s *CatalogService) HandleEventDeactivated(ctx context.Context, eventID uuid.UUID) error {
	err := s.repo.DeactivateEvent(ctx, eventID)
	if domain.HasCode(err, domain.CodeNotFound) {
		s.logger.Warn("deactivated event not found, skipping", zap.String("event_id", eventID.String()))
		return nil
	}
	return err
}

// HandleDiscountDeactivated applies an upstream deactivation. Unknown
// discounts are skipped.
func (s *CatalogService) HandleDiscountDeactivated(ctx context.Context, discountID uuid.UUID) error {
	err := s.repo.DeactivateDiscountOption(ctx, discountID)
	if domain.HasCode(err, domain.CodeOptionNotFound) {
		s.logger.Warn("deactivated discount not found, skipping", zap.String("discount_id", discountID.String()))
		return nil
	}
	return err
}
