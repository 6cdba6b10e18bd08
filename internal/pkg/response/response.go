package response

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/domain"
)

// ErrorBody is the error envelope returned to clients.
type ErrorBody struct {
	Code    domain.Code `json:"code"`
	Message string      `json:"message"`
}

// Envelope is the standard response body.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// Meta carries pagination details.
type Meta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// Success writes 200 with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes 201 with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// NoContent writes 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Paginated writes 200 with data and pagination meta.
func Paginated(c *gin.Context, data interface{}, total int64, page, limit int) {
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Data:    data,
		Meta:    &Meta{Page: page, Limit: limit, Total: total},
	})
}

// BadRequest writes 400 VALIDATION_ERROR.
func BadRequest(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, domain.CodeValidation, message)
}

// InvalidID writes 400 INVALID_ID.
func InvalidID(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, domain.CodeInvalidID, message)
}

// Unauthorized writes 401.
func Unauthorized(c *gin.Context, message string) {
	abort(c, http.StatusUnauthorized, domain.CodeUnauthorized, message)
}

// Forbidden writes 403.
func Forbidden(c *gin.Context, message string) {
	abort(c, http.StatusForbidden, domain.CodeForbidden, message)
}

// Error maps err to its HTTP status by domain code. Errors without a code are
// reported as INTERNAL_ERROR and their details are not leaked.
func Error(c *gin.Context, err error) {
	code := domain.CodeOf(err)
	status := domain.HTTPStatus(code)

	message := "internal error"
	if code != domain.CodeInternal {
		var de *domain.DomainError
		if errors.As(err, &de) {
			message = de.Message
		}
	}

	_ = c.Error(err)
	abort(c, status, code, message)
}

func abort(c *gin.Context, status int, code domain.Code, message string) {
	c.AbortWithStatusJSON(status, Envelope{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message},
	})
}
