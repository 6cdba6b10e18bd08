package domain

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Code is a machine-readable error kind returned to API clients.
type Code string

const (
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeInvalidID        Code = "INVALID_ID"
	CodeItemsRequired    Code = "ITEMS_ARRAY_REQUIRED"
	CodeInvalidItemType  Code = "INVALID_ITEM_TYPE"
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeForbidden        Code = "FORBIDDEN"
	CodeNotFound         Code = "NOT_FOUND"
	CodeEventUnavailable Code = "EVENT_NOT_FOUND_OR_INACTIVE"
	CodeCouponNotFound   Code = "COUPON_NOT_FOUND"
	CodeOptionNotFound   Code = "OPTION_NOT_FOUND"

	CodeStockShortage         Code = "STOCK_SHORTAGE"
	CodeDiscountStockShortage Code = "DISCOUNT_STOCK_SHORTAGE"
	CodeGiftStockShortage     Code = "GIFT_STOCK_SHORTAGE"
	CodeOptionInactive        Code = "OPTION_INACTIVE"
	CodeOptionExpired         Code = "OPTION_EXPIRED"
	CodeCouponExpired         Code = "COUPON_EXPIRED"
	CodeAlreadyActivated      Code = "ALREADY_ACTIVATED"
	CodeAlreadyRedeemed       Code = "ALREADY_REDEEMED"
	CodeAlreadyCancelled      Code = "ALREADY_CANCELLED"
	CodeNotActivated          Code = "COUPON_NOT_ACTIVATED"
	CodeRedemptionWindow      Code = "REDEMPTION_WINDOW_ELAPSED"
	CodeConflict              Code = "CONFLICT"

	CodeInternal Code = "INTERNAL_ERROR"
)

var statusByCode = map[Code]int{
	CodeValidation:      http.StatusBadRequest,
	CodeInvalidID:       http.StatusBadRequest,
	CodeItemsRequired:   http.StatusBadRequest,
	CodeInvalidItemType: http.StatusBadRequest,

	CodeUnauthorized: http.StatusUnauthorized,
	CodeForbidden:    http.StatusForbidden,

	CodeNotFound:         http.StatusNotFound,
	CodeEventUnavailable: http.StatusNotFound,
	CodeCouponNotFound:   http.StatusNotFound,
	CodeOptionNotFound:   http.StatusNotFound,

	CodeStockShortage:         http.StatusConflict,
	CodeDiscountStockShortage: http.StatusConflict,
	CodeGiftStockShortage:     http.StatusConflict,
	CodeOptionInactive:        http.StatusConflict,
	CodeOptionExpired:         http.StatusConflict,
	CodeCouponExpired:         http.StatusConflict,
	CodeAlreadyActivated:      http.StatusConflict,
	CodeAlreadyRedeemed:       http.StatusConflict,
	CodeAlreadyCancelled:      http.StatusConflict,
	CodeNotActivated:          http.StatusConflict,
	CodeRedemptionWindow:      http.StatusConflict,
	CodeConflict:              http.StatusConflict,

	CodeInternal: http.StatusInternalServerError,
}

// HTTPStatus maps a code to its HTTP status. Unknown codes are 500.
func HTTPStatus(code Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainError is the typed error raised by the ledger, the aggregates and the
// application services. It travels unchanged to the HTTP boundary.
type DomainError struct {
	Code    Code
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// Is matches any DomainError carrying the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a DomainError with the given code and message.
func New(code Code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// Newf creates a DomainError with a formatted message.
func Newf(code Code, format string, args ...any) *DomainError {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// Internal wraps an unclassified backing-store failure.
func Internal(err error, op string) *DomainError {
	return &DomainError{Code: CodeInternal, Message: op, Err: errors.WithStack(err)}
}

// NewNotFoundError reports a missing resource of the given kind.
func NewNotFoundError(resource, id string) *DomainError {
	return Newf(CodeNotFound, "%s %s not found", resource, id)
}

// NewForbiddenError reports an identity acting outside its authority.
func NewForbiddenError(message string) *DomainError {
	return New(CodeForbidden, message)
}

// NewValidationError reports malformed input.
func NewValidationError(message string) *DomainError {
	return New(CodeValidation, message)
}

// NewConflictError reports a lost optimistic-locking race.
func NewConflictError(message string) *DomainError {
	return New(CodeConflict, message)
}

// Sentinel returns a code-only error usable as an errors.Is target.
func Sentinel(code Code) error {
	return &DomainError{Code: code}
}

// CodeOf extracts the code of the first DomainError in err's chain.
// Errors without one are internal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return errors.Is(err, Sentinel(code))
}
