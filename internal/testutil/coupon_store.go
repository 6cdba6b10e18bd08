package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/domain"
)

// CouponStore is an in-memory coupon.Repository with the same optimistic
// locking contract as the GORM repository.
type CouponStore struct {
	mu      sync.Mutex
	coupons map[uuid.UUID]*coupon.Coupon

	// SaveErr, when set, is returned by Save without storing anything.
	SaveErr error
}

// NewCouponStore creates an empty store.
func NewCouponStore() *CouponStore {
	return &CouponStore{coupons: make(map[uuid.UUID]*coupon.Coupon)}
}

func cloneCoupon(c *coupon.Coupon) *coupon.Coupon {
	return coupon.Reconstitute(
		c.ID(), c.UserID(), c.StoreID(), c.EventID(), c.Status(), c.Items(),
		c.IssuedAt(), c.ExpiresAt(), c.ActivatedAt(), c.RedeemedAt(), c.CancelledAt(),
		c.Version(), c.UpdatedAt(),
	)
}

func (s *CouponStore) Save(_ context.Context, c *coupon.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.coupons[c.ID()] = cloneCoupon(c)
	return nil
}

func (s *CouponStore) Update(_ context.Context, c *coupon.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.coupons[c.ID()]
	if !ok || stored.Version() != c.Version()-1 {
		return domain.NewConflictError("coupon was modified by another transaction")
	}
	s.coupons[c.ID()] = cloneCoupon(c)
	return nil
}

func (s *CouponStore) FindByID(_ context.Context, id uuid.UUID) (*coupon.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.coupons[id]
	if !ok {
		return nil, domain.Newf(domain.CodeCouponNotFound, "coupon %s not found", id)
	}
	return cloneCoupon(c), nil
}

func (s *CouponStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*coupon.Coupon, error) {
	var out []*coupon.Coupon
	for _, c := range s.sorted() {
		if c.UserID() == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *CouponStore) ListAll(_ context.Context, page, limit int) ([]*coupon.Coupon, int64, error) {
	all := s.sorted()
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := min(start+limit, len(all))
	return all[start:end], total, nil
}

func (s *CouponStore) CountByStatus(_ context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int64)
	for _, c := range s.coupons {
		counts[string(c.Status())]++
	}
	return counts, nil
}

// Len returns the number of stored coupons.
func (s *CouponStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.coupons)
}

// sorted returns copies of all coupons, newest first.
func (s *CouponStore) sorted() []*coupon.Coupon {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*coupon.Coupon, 0, len(s.coupons))
	for _, c := range s.coupons {
		out = append(out, cloneCoupon(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IssuedAt().Equal(out[j].IssuedAt()) {
			return out[i].ID().String() < out[j].ID().String()
		}
		return out[i].IssuedAt().After(out[j].IssuedAt())
	})
	return out
}
