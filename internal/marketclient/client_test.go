package marketclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pricecheck-service/internal/apperror"
	"pricecheck-service/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL:   srv.URL,
		Locale:    "fr",
		Timeout:   time.Second,
		RateLimit: 1000,
		RateBurst: 1000,
		Logger:    zap.NewNop(),
	})
}

func TestFetchItems_UnwrapsAndLocalizes(t *testing.T) {
	var gotPath, gotLanguage, gotAccept string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotLanguage = r.Header.Get("Language")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`{"apiVersion":"0.17.0","data":[
			{"id":"1","slug":"ember_prime_set","i18n":{"en":{"name":"Ember Prime Set"},"fr":{"name":"Ember Prime (Ensemble)"}}},
			{"id":"2","slug":"loki_prime_set","i18n":{"en":{"name":"Loki Prime Set"}}}
		],"error":null}`))
	})

	items, err := c.FetchItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "/items", gotPath)
	assert.Equal(t, "fr", gotLanguage)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "Ember Prime (Ensemble)", items[0].Name)
	assert.Equal(t, "Loki Prime Set", items[1].Name)
}

func TestFetchTopOrders_SendsPlatformAndFilters(t *testing.T) {
	var gotPath, gotPlatform string
	var gotQuery map[string][]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotPlatform = r.Header.Get("Platform")
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"apiVersion":"0.17.0","data":{"sell":[
			{"id":"o1","type":"sell","platinum":15,"quantity":2,"user":{"ingameName":"Tenno","status":"ingame"}}
		]},"error":null}`))
	})

	rank := 0
	top, err := c.FetchTopOrders(context.Background(), "arcane_energize", "PlayStation", models.OrderFilters{Rank: &rank, Subtype: "radiant"})
	require.NoError(t, err)

	assert.Equal(t, "/orders/item/arcane_energize/top", gotPath)
	assert.Equal(t, "ps4", gotPlatform)
	assert.Equal(t, []string{"0"}, gotQuery["rank"])
	assert.Equal(t, []string{"radiant"}, gotQuery["subtype"])
	assert.NotContains(t, gotQuery, "rankLt")

	require.Len(t, top.Sell, 1)
	assert.Equal(t, 15, top.Sell[0].Platinum)
	assert.True(t, top.Sell[0].IsUserOnline())
	assert.NotNil(t, top.Buy)
	assert.Empty(t, top.Buy)
}

func TestFetchVersions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/versions", r.URL.Path)
		w.Write([]byte(`{"apiVersion":"0.17.0","data":{"collections":{"items":"abc","rivens":"def"},"updatedAt":"2024-05-01T00:00:00Z"},"error":null}`))
	})

	v, err := c.FetchVersions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", v.Collection("items"))
	assert.Equal(t, "0.17.0", v.APIVersion)
}

func TestRequestErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "status without body",
			status:     http.StatusServiceUnavailable,
			body:       `oops`,
			wantStatus: http.StatusServiceUnavailable,
			wantMsg:    "HTTP 503: Service Unavailable",
		},
		{
			name:       "status with error message",
			status:     http.StatusNotFound,
			body:       `{"apiVersion":"0.17.0","data":null,"error":{"message":"item not found"}}`,
			wantStatus: http.StatusNotFound,
			wantMsg:    "item not found",
		},
		{
			name:       "envelope error string",
			status:     http.StatusOK,
			body:       `{"apiVersion":"0.17.0","data":null,"error":"rate limited"}`,
			wantStatus: http.StatusOK,
			wantMsg:    "rate limited",
		},
		{
			name:       "malformed body",
			status:     http.StatusOK,
			body:       `<html>`,
			wantStatus: http.StatusOK,
			wantMsg:    "malformed response from GET /item/x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := c.FetchItem(context.Background(), "x")
			require.Error(t, err)
			assert.ErrorIs(t, err, apperror.ErrRemote)

			var appErr *apperror.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.wantStatus, appErr.StatusCode)
			assert.Contains(t, appErr.Error(), tt.wantMsg)
		})
	}
}

func TestRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond, Logger: zap.NewNop()})
	_, err := c.FetchRecentOrders(context.Background(), "pc")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrRemote)
	assert.True(t, IsTimeout(err))
}

func TestPost_SendsJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"apiVersion":"0.17.0","data":{"ok":true},"error":null}`))
	})

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.Post(context.Background(), "echo", map[string]string{"a": "b"}, RequestOptions{}, &out))
	assert.True(t, out.OK)
}

func TestNew_Defaults(t *testing.T) {
	c := New(Config{Locale: "xx", Logger: zap.NewNop()})
	assert.Equal(t, models.DefaultBaseURL+"/", c.baseURL)
	assert.Equal(t, DefaultTimeout, c.timeout)
	assert.Equal(t, "en", c.Locale())
}
