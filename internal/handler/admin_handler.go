package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/application"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/auth"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/middleware"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/response"
)

// AdminCouponHandler handles admin HTTP requests for coupon oversight.
type AdminCouponHandler struct {
	couponService *application.CouponService
}

// NewAdminCouponHandler creates a new AdminCouponHandler.
func NewAdminCouponHandler(couponService *application.CouponService) *AdminCouponHandler {
	return &AdminCouponHandler{couponService: couponService}
}

// RegisterRoutes registers admin coupon routes.
func (h *AdminCouponHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/admin")
	admin.Use(authMW, adminRole)
	{
		admin.GET("/coupons", h.ListCoupons)
		admin.GET("/stats/coupons", h.CouponStats)
	}
}

// ListCoupons handles GET /api/v1/admin/coupons.
func (h *AdminCouponHandler) ListCoupons(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	coupons, total, err := h.couponService.ListCoupons(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, coupons, total, page, limit)
}

// CouponStats handles GET /api/v1/admin/stats/coupons.
func (h *AdminCouponHandler) CouponStats(c *gin.Context) {
	stats, err := h.couponService.CouponStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}
