package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/application"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/auth"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/clock"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/saga"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/testutil"
)

type api struct {
	router   *gin.Engine
	jwt      *auth.JWTManager
	owner    uuid.UUID
	customer uuid.UUID
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	clk := clock.NewFixed(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))
	store := testutil.NewCatalogStore()
	coupons := testutil.NewCouponStore()
	ledger := testutil.NewLedger(store, clk)
	publisher := &testutil.Publisher{}

	catalogSvc := application.NewCatalogService(store, clk, time.UTC, logger)
	issuanceSvc := application.NewIssuanceService(store, saga.NewIssuanceSaga(ledger, coupons, logger), publisher, clk, time.UTC, nil, logger)
	couponSvc := application.NewCouponService(coupons, store, ledger, testutil.Transactor{}, publisher, clk, 10*time.Minute, nil, logger)

	a := &api{
		router:   gin.New(),
		jwt:      auth.NewJWTManager("test-secret", time.Hour),
		owner:    uuid.New(),
		customer: uuid.New(),
	}
	v1 := a.router.Group("/api/v1")
	NewCouponHandler(issuanceSvc, couponSvc).RegisterRoutes(v1, a.jwt)
	NewCatalogHandler(catalogSvc).RegisterRoutes(v1, a.jwt)
	NewAdminCouponHandler(couponSvc).RegisterRoutes(v1, a.jwt)
	return a
}

func (a *api) token(t *testing.T, userID uuid.UUID, role auth.Role) string {
	t.Helper()
	tok, err := a.jwt.Generate(userID, role)
	require.NoError(t, err)
	return tok
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *api) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequestWithContext(context.Background(), method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

// seedDiscount creates a store, a menu item and a discount through the API.
func (a *api) seedDiscount(t *testing.T, total int) uuid.UUID {
	t.Helper()
	owner := a.token(t, a.owner, auth.RoleOwner)

	w, env := a.do(t, http.MethodPost, "/api/v1/stores", owner, application.CreateStoreRequest{Name: "Paws Cafe"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	storeID := decode[application.StoreDTO](t, env).ID

	w, env = a.do(t, http.MethodPost, "/api/v1/stores/"+storeID.String()+"/menus", owner,
		application.CreateMenuItemRequest{Name: "Latte", PriceCents: 4500})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	menuID := decode[application.MenuItemDTO](t, env).ID

	w, env = a.do(t, http.MethodPost, "/api/v1/stores/"+storeID.String()+"/discounts", owner, application.CreateDiscountRequest{
		MenuID:        menuID,
		DiscountRate:  10,
		TotalQuantity: lo.ToPtr(total),
		StartTime:     time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
		EndTime:       time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[application.DiscountOptionDTO](t, env).ID
}

func TestCouponLifecycleOverHTTP(t *testing.T) {
	a := newAPI(t)
	discountID := a.seedDiscount(t, 1)
	customer := a.token(t, a.customer, auth.RoleCustomer)

	w, env := a.do(t, http.MethodPost, "/api/v1/coupons", customer, application.IssueCouponRequest{
		Items: []application.IssueItemRequest{{OptionType: "discount", OptionID: discountID}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	couponID := decode[application.IssuedCouponDTO](t, env).CouponID.String()

	w, env = a.do(t, http.MethodPost, "/api/v1/coupons", a.token(t, uuid.New(), auth.RoleCustomer), application.IssueCouponRequest{
		Items: []application.IssueItemRequest{{OptionType: "discount", OptionID: discountID}},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DISCOUNT_STOCK_SHORTAGE", env.Error.Code)

	w, _ = a.do(t, http.MethodPatch, "/api/v1/coupons/"+couponID+"/activate", customer, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w, _ = a.do(t, http.MethodPost, "/api/v1/coupons/"+couponID+"/redeem", customer, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, env = a.do(t, http.MethodPost, "/api/v1/coupons/"+couponID+"/cancel", customer, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_REDEEMED", env.Error.Code)

	w, env = a.do(t, http.MethodGet, "/api/v1/coupons/"+couponID, customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "redeemed", decode[application.CouponDTO](t, env).Status)

	w, env = a.do(t, http.MethodGet, "/api/v1/coupons", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[application.CouponListDTO](t, env).Coupons, 1)
}

func TestCouponRoutes_Errors(t *testing.T) {
	a := newAPI(t)
	customer := a.token(t, a.customer, auth.RoleCustomer)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		code   string
	}{
		{"no token", http.MethodGet, "/api/v1/coupons", "", nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"bad token", http.MethodGet, "/api/v1/coupons", "garbage", nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"malformed id", http.MethodPost, "/api/v1/coupons/not-a-uuid/cancel", customer, nil, http.StatusBadRequest, "INVALID_ID"},
		{"malformed user id", http.MethodGet, "/api/v1/coupons?userId=42", customer, nil, http.StatusBadRequest, "INVALID_ID"},
		{"other user's coupons", http.MethodGet, "/api/v1/coupons?userId=" + uuid.NewString(), customer, nil, http.StatusForbidden, "FORBIDDEN"},
		{"unknown coupon", http.MethodPatch, "/api/v1/coupons/" + uuid.NewString() + "/activate", customer, nil, http.StatusNotFound, "COUPON_NOT_FOUND"},
		{"empty items", http.MethodPost, "/api/v1/coupons", customer, application.IssueCouponRequest{}, http.StatusBadRequest, "ITEMS_ARRAY_REQUIRED"},
		{"unknown event", http.MethodPost, "/api/v1/coupons", customer, application.IssueCouponRequest{
			EventID: lo.ToPtr(uuid.New()),
			Items:   []application.IssueItemRequest{{OptionType: "gift", OptionID: uuid.New()}},
		}, http.StatusNotFound, "EVENT_NOT_FOUND_OR_INACTIVE"},
		{"customer creates store", http.MethodPost, "/api/v1/stores", customer, application.CreateStoreRequest{Name: "x"}, http.StatusForbidden, "FORBIDDEN"},
		{"customer reads admin stats", http.MethodGet, "/api/v1/admin/stats/coupons", customer, nil, http.StatusForbidden, "FORBIDDEN"},
		{"invalid json", http.MethodPost, "/api/v1/coupons", customer, "{", http.StatusBadRequest, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := a.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.False(t, env.Success)
		})
	}
}

func TestAdminRoutes(t *testing.T) {
	a := newAPI(t)
	discountID := a.seedDiscount(t, 5)
	customer := a.token(t, a.customer, auth.RoleCustomer)
	admin := a.token(t, uuid.New(), auth.RoleAdmin)
	for range 2 {
		w, _ := a.do(t, http.MethodPost, "/api/v1/coupons", customer, application.IssueCouponRequest{
			Items: []application.IssueItemRequest{{OptionType: "discount", OptionID: discountID}},
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, env := a.do(t, http.MethodGet, "/api/v1/admin/stats/coupons", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[application.CouponStatsDTO](t, env)
	assert.Equal(t, int64(2), stats.TotalCoupons)
	assert.Equal(t, int64(2), stats.ByStatus["issued"])

	w, env = a.do(t, http.MethodGet, "/api/v1/admin/coupons?page=1&limit=1", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]application.CouponDTO](t, env), 1)
}

func TestCatalogRoutes_Event(t *testing.T) {
	a := newAPI(t)
	owner := a.token(t, a.owner, auth.RoleOwner)
	w, env := a.do(t, http.MethodPost, "/api/v1/stores", owner, application.CreateStoreRequest{Name: "Paws Cafe"})
	require.Equal(t, http.StatusCreated, w.Code)
	storeID := decode[application.StoreDTO](t, env).ID.String()
	w, env = a.do(t, http.MethodPost, "/api/v1/stores/"+storeID+"/menus", owner, application.CreateMenuItemRequest{Name: "Cookie", PriceCents: 200})
	require.Equal(t, http.StatusCreated, w.Code)
	menuID := decode[application.MenuItemDTO](t, env).ID

	w, env = a.do(t, http.MethodPost, "/api/v1/stores/"+storeID+"/events", owner, application.CreateEventRequest{
		Title:      "Cookie day",
		StartDate:  "2026-10-19",
		EndDate:    "2026-10-19",
		GiftGroups: []application.GiftGroupRequest{{Name: "Free cookie", Options: []application.GiftOptionRequest{{MenuID: menuID, TotalQuantity: lo.ToPtr(10)}}}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	event := decode[application.EventDTO](t, env)
	assert.True(t, event.RedeemableNow)

	w, _ = a.do(t, http.MethodDelete, "/api/v1/events/"+event.ID.String(), a.token(t, uuid.New(), auth.RoleOwner), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = a.do(t, http.MethodDelete, "/api/v1/events/"+event.ID.String(), owner, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, env = a.do(t, http.MethodGet, "/api/v1/events/"+event.ID.String(), owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[application.EventDTO](t, env).IsActive)

	w, env = a.do(t, http.MethodGet, "/api/v1/stores/"+storeID+"/events", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]application.EventDTO](t, env), 1)
}
