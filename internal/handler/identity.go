package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/application"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/middleware"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/response"
)

// actor returns the verified caller, writing 401 when the context has none.
func actor(c *gin.Context) (application.Actor, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return application.Actor{}, false
	}
	role, _ := middleware.GetRole(c)
	return application.Actor{UserID: userID, Role: role}, true
}

// pathID parses a uuid path parameter, writing 400 INVALID_ID when malformed.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.InvalidID(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
