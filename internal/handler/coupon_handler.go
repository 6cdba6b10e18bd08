package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/application"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/auth"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/middleware"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/response"
)

// CouponHandler handles HTTP requests for coupon issuance and lifecycle.
type CouponHandler struct {
	issuance *application.IssuanceService
	coupons  *application.CouponService
}

// NewCouponHandler creates a new CouponHandler.
func NewCouponHandler(issuance *application.IssuanceService, coupons *application.CouponService) *CouponHandler {
	return &CouponHandler{issuance: issuance, coupons: coupons}
}

// RegisterRoutes registers all coupon routes.
func (h *CouponHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	coupons := r.Group("/coupons")
	coupons.Use(authMW)
	{
		coupons.POST("", h.IssueCoupon)
		coupons.GET("", h.ListCoupons)
		coupons.GET("/:id", h.GetCoupon)
		coupons.PATCH("/:id/activate", h.ActivateCoupon)
		coupons.POST("/:id/redeem", h.RedeemCoupon)
		coupons.POST("/:id/cancel", h.CancelCoupon)
	}
}

// IssueCoupon handles POST /api/v1/coupons.
func (h *CouponHandler) IssueCoupon(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}

	var req application.IssueCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.issuance.Issue(c.Request.Context(), who.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListCoupons handles GET /api/v1/coupons?userId=.
func (h *CouponHandler) ListCoupons(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}

	userID := who.UserID
	if raw := c.Query("userId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.InvalidID(c, "invalid userId")
			return
		}
		userID = id
	}

	result, err := h.coupons.ListUserCoupons(c.Request.Context(), userID, who)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetCoupon handles GET /api/v1/coupons/:id.
func (h *CouponHandler) GetCoupon(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.coupons.GetCoupon(c.Request.Context(), id, who)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ActivateCoupon handles PATCH /api/v1/coupons/:id/activate.
func (h *CouponHandler) ActivateCoupon(c *gin.Context) {
	h.transition(c, h.coupons.Activate)
}

// RedeemCoupon handles POST /api/v1/coupons/:id/redeem.
func (h *CouponHandler) RedeemCoupon(c *gin.Context) {
	h.transition(c, h.coupons.Redeem)
}

// CancelCoupon handles POST /api/v1/coupons/:id/cancel.
func (h *CouponHandler) CancelCoupon(c *gin.Context) {
	h.transition(c, h.coupons.Cancel)
}

func (h *CouponHandler) transition(c *gin.Context, apply func(ctx context.Context, id uuid.UUID, who application.Actor) error) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := apply(c.Request.Context(), id, who); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
