package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricecheck-service/internal/apperror"
	"pricecheck-service/internal/models"
	"pricecheck-service/internal/util"
)

type fakeMarket struct {
	summary     *models.Summary
	queryErr    error
	items       []models.Item
	orders      []models.Order
	top         *models.TopOrders
	versions    *models.Versions
	versionsErr error

	lastQuery    string
	lastPlatform string
	lastFilters  models.OrderFilters
	lastCtx      context.Context
	cleared      bool
}

func (f *fakeMarket) QueryMarket(ctx context.Context, query, platform string) (*models.Summary, error) {
	f.lastQuery, f.lastPlatform, f.lastCtx = query, platform, ctx
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.summary, nil
}

func (f *fakeMarket) GetItems(ctx context.Context) ([]models.Item, error) {
	return f.items, nil
}

func (f *fakeMarket) GetItemBySlug(ctx context.Context, slug string) (*models.Item, error) {
	for _, it := range f.items {
		if it.Slug == slug {
			item := it
			return &item, nil
		}
	}
	return nil, apperror.NotFound("no item " + slug)
}

func (f *fakeMarket) GetItemSet(ctx context.Context, slug string) (*models.ItemSet, error) {
	return &models.ItemSet{ID: "set", Items: f.items}, nil
}

func (f *fakeMarket) GetTopOrders(ctx context.Context, slug, platform string, filters models.OrderFilters) (*models.TopOrders, error) {
	f.lastPlatform, f.lastFilters = platform, filters
	return f.top, nil
}

func (f *fakeMarket) GetAllOrders(ctx context.Context, slug, platform string) ([]models.Order, error) {
	if platform == "" {
		return nil, apperror.InvalidArgument("platform is required")
	}
	return f.orders, nil
}

func (f *fakeMarket) GetRecentOrders(ctx context.Context, platform string) ([]models.Order, error) {
	return f.orders, nil
}

func (f *fakeMarket) CheckVersions(ctx context.Context) (*models.Versions, error) {
	return f.versions, f.versionsErr
}

func (f *fakeMarket) ClearCache(ctx context.Context) {
	f.cleared = true
}

type fakeRequester struct {
	query, platform string
	err             error
}

func (f *fakeRequester) RequestPriceCheck(ctx context.Context, query, platform string) (string, error) {
	f.query, f.platform = query, platform
	return "req-1", f.err
}

type pingerFunc func(ctx context.Context) error

func (p pingerFunc) Ping(ctx context.Context) error { return p(ctx) }

func setupRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h.SetupRoutes(router)
	return router
}

func perform(t *testing.T, router *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func order(id string, typ models.OrderType, plat int, status models.UserStatus) models.Order {
	return models.Order{
		ID:       id,
		Type:     typ,
		Platinum: plat,
		Quantity: 1,
		User:     &models.User{IngameName: "user-" + id, Status: status},
	}
}

func TestHealthCheck(t *testing.T) {
	router := setupRouter(NewHandler(&fakeMarket{}))

	w := perform(t, router, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

func TestReadinessCheck(t *testing.T) {
	h := NewHandler(&fakeMarket{}).
		WithDependency("redis", pingerFunc(func(ctx context.Context) error { return nil })).
		WithDependency("postgres", pingerFunc(func(ctx context.Context) error { return errors.New("connection refused") }))
	router := setupRouter(h)

	w := perform(t, router, http.MethodGet, "/ready", "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	failed := body["failed"].(map[string]interface{})
	assert.Equal(t, "connection refused", failed["postgres"])
	assert.NotContains(t, failed, "redis")
}

func TestPriceCheck(t *testing.T) {
	item := models.Item{Slug: "mirage_prime_set", Name: "Mirage Prime Set"}
	top := models.TopOrders{
		Sell: []models.Order{
			order("s1", models.OrderTypeSell, 50, models.UserStatusInGame),
			order("s2", models.OrderTypeSell, 60, models.UserStatusOffline),
			order("s3", models.OrderTypeSell, 70, models.UserStatusOnline),
		},
		Buy: []models.Order{order("b1", models.OrderTypeBuy, 40, models.UserStatusOnline)},
	}
	stats := models.SideStatistics{Sell: models.Statistics{OrderCount: 3, Volume: 3, Median: 60, Min: 50, Max: 70, Avg: 60}}
	market := &fakeMarket{summary: models.NewSummary(item, top, stats, models.AssetsBaseURL)}
	router := setupRouter(NewHandler(market))

	w := perform(t, router, http.MethodGet, "/api/v1/price?q=mirage&platform=pc&limit=1", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mirage", market.lastQuery)
	assert.Equal(t, "pc", market.lastPlatform)

	var resp priceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "mirage_prime_set", resp.Summary.Slug)
	assert.Equal(t, "50p - 70p (median: 60p)", resp.PriceRange)
	require.Len(t, resp.Sellers, 1)
	assert.Equal(t, "user-s1", resp.Sellers[0].IngameName)
	require.Len(t, resp.Buyers, 1)
}

func TestPriceCheck_RequestIDReachesService(t *testing.T) {
	market := &fakeMarket{summary: models.NewSummary(models.Item{Slug: "x"}, models.TopOrders{}, models.SideStatistics{}, "")}
	router := setupRouter(NewHandler(market))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/price?q=x&platform=pc", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
	assert.Equal(t, "abc-123", util.RequestIDFromContext(market.lastCtx))
}

func TestPriceCheck_AssignsRequestID(t *testing.T) {
	router := setupRouter(NewHandler(&fakeMarket{}))

	w := perform(t, router, http.MethodGet, "/health", "")

	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestPriceCheck_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
	}{
		{"invalid argument", apperror.InvalidArgument("query must not be empty"), http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"not found", apperror.NotFound("no item matches"), http.StatusNotFound, "NOT_FOUND"},
		{"remote", apperror.Remote(http.StatusServiceUnavailable, "HTTP 503: Service Unavailable", nil), http.StatusBadGateway, "REMOTE_ERROR"},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, "Internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupRouter(NewHandler(&fakeMarket{queryErr: tt.err}))

			w := perform(t, router, http.MethodGet, "/api/v1/price?q=x&platform=pc", "")

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantKind, decode(t, w)["error"])
		})
	}
}

func TestRequestPriceCheck(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		router := setupRouter(NewHandler(&fakeMarket{}))

		w := perform(t, router, http.MethodPost, "/api/v1/price/requests", `{"query":"ash","platform":"pc"}`)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("accepted", func(t *testing.T) {
		requester := &fakeRequester{}
		router := setupRouter(NewHandler(&fakeMarket{}).WithRequester(requester))

		w := perform(t, router, http.MethodPost, "/api/v1/price/requests", `{"query":"ash","platform":"pc"}`)

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, "req-1", decode(t, w)["request_id"])
		assert.Equal(t, "ash", requester.query)
		assert.Equal(t, "pc", requester.platform)
	})

	t.Run("missing fields", func(t *testing.T) {
		router := setupRouter(NewHandler(&fakeMarket{}).WithRequester(&fakeRequester{}))

		w := perform(t, router, http.MethodPost, "/api/v1/price/requests", `{"query":"ash"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("broker failure", func(t *testing.T) {
		router := setupRouter(NewHandler(&fakeMarket{}).WithRequester(&fakeRequester{err: errors.New("kafka down")}))

		w := perform(t, router, http.MethodPost, "/api/v1/price/requests", `{"query":"ash","platform":"pc"}`)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestItems(t *testing.T) {
	market := &fakeMarket{items: []models.Item{{Slug: "ash_prime_set", Name: "Ash Prime Set"}}}
	router := setupRouter(NewHandler(market))

	w := perform(t, router, http.MethodGet, "/api/v1/items", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = perform(t, router, http.MethodGet, "/api/v1/items/ash_prime_set", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ash_prime_set", decode(t, w)["slug"])

	w = perform(t, router, http.MethodGet, "/api/v1/items/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = perform(t, router, http.MethodGet, "/api/v1/items/ash_prime_set/set", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "set", decode(t, w)["id"])
}

func TestGetOrders_IncludesStatistics(t *testing.T) {
	market := &fakeMarket{orders: []models.Order{
		order("s1", models.OrderTypeSell, 50, models.UserStatusInGame),
		order("s2", models.OrderTypeSell, 70, models.UserStatusInGame),
		order("s3", models.OrderTypeSell, 10, models.UserStatusOffline),
		order("b1", models.OrderTypeBuy, 30, models.UserStatusOnline),
	}}
	router := setupRouter(NewHandler(market))

	w := perform(t, router, http.MethodGet, "/api/v1/items/ash_prime_set/orders?platform=pc", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Orders     []models.Order        `json:"orders"`
		Statistics models.SideStatistics `json:"statistics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Orders, 4)
	assert.Equal(t, 2, resp.Statistics.Sell.OrderCount)
	assert.Equal(t, 50, resp.Statistics.Sell.Min)
	assert.Equal(t, 30, resp.Statistics.Buy.Max)

	w = perform(t, router, http.MethodGet, "/api/v1/items/ash_prime_set/orders?platform=pc&include_offline=true", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Statistics.Sell.OrderCount)
	assert.Equal(t, 10, resp.Statistics.Sell.Min)
}

func TestGetOrders_PlatformRequired(t *testing.T) {
	router := setupRouter(NewHandler(&fakeMarket{}))

	w := perform(t, router, http.MethodGet, "/api/v1/items/ash_prime_set/orders", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTopOrders_BindsFilters(t *testing.T) {
	market := &fakeMarket{top: &models.TopOrders{Buy: []models.Order{}, Sell: []models.Order{}}}
	router := setupRouter(NewHandler(market))

	w := perform(t, router, http.MethodGet, "/api/v1/items/primed_flow/orders/top?platform=ps4&rank=10&subtype=radiant", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ps4", market.lastPlatform)
	require.NotNil(t, market.lastFilters.Rank)
	assert.Equal(t, 10, *market.lastFilters.Rank)
	assert.Equal(t, "radiant", market.lastFilters.Subtype)
	assert.Nil(t, market.lastFilters.Charges)

	w = perform(t, router, http.MethodGet, "/api/v1/items/primed_flow/orders/top?platform=pc&rank=max", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVersions(t *testing.T) {
	market := &fakeMarket{versions: &models.Versions{Collections: map[string]string{"items": "v1"}}}
	router := setupRouter(NewHandler(market))

	w := perform(t, router, http.MethodGet, "/api/v1/versions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"items": "v1"}, decode(t, w)["collections"])

	market.versionsErr = errors.New("no version source")
	w = perform(t, router, http.MethodGet, "/api/v1/versions", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestClearCache(t *testing.T) {
	market := &fakeMarket{}
	router := setupRouter(NewHandler(market))

	w := perform(t, router, http.MethodDelete, "/api/v1/cache", "")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, market.cleared)
}
