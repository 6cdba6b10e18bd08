package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/application"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/auth"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/middleware"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/response"
)

// CatalogHandler handles HTTP requests for stores, menus, discounts and events.
type CatalogHandler struct {
	service *application.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(service *application.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// RegisterRoutes registers all catalog routes. Writes require the owner or
// admin role; reads are open to any authenticated caller.
func (h *CatalogHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	manage := middleware.RequireRole(auth.RoleOwner, auth.RoleAdmin)

	stores := r.Group("/stores")
	stores.Use(authMW)
	{
		stores.POST("", manage, h.CreateStore)
		stores.GET("/:id", h.GetStore)
		stores.POST("/:id/menus", manage, h.AddMenuItem)
		stores.POST("/:id/discounts", manage, h.CreateDiscount)
		stores.POST("/:id/events", manage, h.CreateEvent)
		stores.GET("/:id/events", h.ListStoreEvents)
	}

	events := r.Group("/events")
	events.Use(authMW)
	{
		events.GET("/:id", h.GetEvent)
		events.DELETE("/:id", manage, h.DeactivateEvent)
	}

	discounts := r.Group("/discounts")
	discounts.Use(authMW)
	{
		discounts.PATCH("/:id/deactivate", manage, h.DeactivateDiscount)
	}
}

// CreateStore handles POST /api/v1/stores.
func (h *CatalogHandler) CreateStore(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}

	var req application.CreateStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateStore(c.Request.Context(), who, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// GetStore handles GET /api/v1/stores/:id.
func (h *CatalogHandler) GetStore(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.service.GetStore(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// AddMenuItem handles POST /api/v1/stores/:id/menus.
func (h *CatalogHandler) AddMenuItem(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	storeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req application.CreateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.AddMenuItem(c.Request.Context(), who, storeID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// CreateDiscount handles POST /api/v1/stores/:id/discounts.
func (h *CatalogHandler) CreateDiscount(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	storeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req application.CreateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateDiscount(c.Request.Context(), who, storeID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// CreateEvent handles POST /api/v1/stores/:id/events.
func (h *CatalogHandler) CreateEvent(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	storeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req application.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateEvent(c.Request.Context(), who, storeID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListStoreEvents handles GET /api/v1/stores/:id/events.
func (h *CatalogHandler) ListStoreEvents(c *gin.Context) {
	storeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.service.ListStoreEvents(c.Request.Context(), storeID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetEvent handles GET /api/v1/events/:id.
func (h *CatalogHandler) GetEvent(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.service.GetEvent(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// DeactivateEvent handles DELETE /api/v1/events/:id.
func (h *CatalogHandler) DeactivateEvent(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeactivateEvent(c.Request.Context(), who, id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// DeactivateDiscount handles PATCH /api/v1/discounts/:id/deactivate.
func (h *CatalogHandler) DeactivateDiscount(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeactivateDiscount(c.Request.Context(), who, id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
