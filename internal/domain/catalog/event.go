package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/domain"
)

// Weekdays is a bit set of time.Weekday values. The zero value means every
// day.
type Weekdays uint8

// NewWeekdays builds a set from days.
func NewWeekdays(days ...time.Weekday) Weekdays {
	var w Weekdays
	for _, d := range days {
		w |= 1 << uint(d)
	}
	return w
}

// Allows reports whether d is in the set, treating an empty set as all days.
func (w Weekdays) Allows(d time.Weekday) bool {
	return w == 0 || w&(1<<uint(d)) != 0
}

// Days lists the members in Sunday-first order.
func (w Weekdays) Days() []time.Weekday {
	var days []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if w&(1<<uint(d)) != 0 {
			days = append(days, d)
		}
	}
	return days
}

// TimeOfDay is minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, domain.NewValidationError(fmt.Sprintf("invalid time of day %q, use HH:MM", s))
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// HappyHour is a daily window [Start, End). A Start after End wraps past
// midnight.
type HappyHour struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Contains reports whether minute falls inside the window.
func (h HappyHour) Contains(minute TimeOfDay) bool {
	if h.Start <= h.End {
		return minute >= h.Start && minute < h.End
	}
	return minute >= h.Start || minute < h.End
}

// Event is a time- and weekday-bounded promotion owned by a store. It groups
// discount options and gift groups.
type Event struct {
	ID         uuid.UUID
	StoreID    uuid.UUID
	Title      string
	StartDate  time.Time
	EndDate    time.Time
	Weekdays   Weekdays
	HappyHour  *HappyHour
	IsActive   bool
	Discounts  []*DiscountOption
	GiftGroups []*GiftGroup
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewEvent validates and creates an active event. Dates are truncated to the
// calendar day.
func NewEvent(storeID uuid.UUID, title string, startDate, endDate time.Time, weekdays Weekdays, happyHour *HappyHour, now time.Time) (*Event, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.NewValidationError("event title is required")
	}
	start, end := CalendarDate(startDate), CalendarDate(endDate)
	if end.Before(start) {
		return nil, domain.NewValidationError("end date must not be before start date")
	}
	if happyHour != nil && happyHour.Start == happyHour.End {
		return nil, domain.NewValidationError("happy hour window must not be empty")
	}
	return &Event{
		ID:        uuid.New(),
		StoreID:   storeID,
		Title:     title,
		StartDate: start,
		EndDate:   end,
		Weekdays:  weekdays,
		HappyHour: happyHour,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CalendarDate drops the clock part of t, keeping its year, month and day.
func CalendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsRedeemableAt reports whether the event accepts coupons at now, evaluating
// the calendar in loc.
func (e *Event) IsRedeemableAt(now time.Time, loc *time.Location) bool {
	if !e.IsActive {
		return false
	}
	local := now.In(loc)
	today := CalendarDate(local)
	if today.Before(e.StartDate) || today.After(e.EndDate) {
		return false
	}
	if !e.Weekdays.Allows(local.Weekday()) {
		return false
	}
	if e.HappyHour != nil && !e.HappyHour.Contains(TimeOfDay(local.Hour()*60+local.Minute())) {
		return false
	}
	return true
}

// EndBoundary is the first instant after the event's last day in loc.
func (e *Event) EndBoundary(loc *time.Location) time.Time {
	return time.Date(e.EndDate.Year(), e.EndDate.Month(), e.EndDate.Day()+1, 0, 0, 0, 0, loc)
}

// AddDiscount attaches a discount option to the event.
func (e *Event) AddDiscount(opt *DiscountOption) error {
	if opt.StoreID != e.StoreID {
		return domain.NewValidationError("discount belongs to another store")
	}
	id := e.ID
	opt.EventID = &id
	e.Discounts = append(e.Discounts, opt)
	return nil
}

// AddGiftGroup attaches a gift group to the event.
func (e *Event) AddGiftGroup(g *GiftGroup) error {
	if g.EventID != e.ID {
		return domain.NewValidationError("gift group belongs to another event")
	}
	e.GiftGroups = append(e.GiftGroups, g)
	return nil
}

// Deactivate soft-deletes the event and every option it owns. Issued coupons
// keep their snapshots.
func (e *Event) Deactivate(now time.Time) {
	e.IsActive = false
	e.UpdatedAt = now
	for _, d := range e.Discounts {
		d.IsActive = false
		d.UpdatedAt = now
	}
	for _, g := range e.GiftGroups {
		for _, o := range g.Options {
			o.IsActive = false
			o.UpdatedAt = now
		}
	}
}
