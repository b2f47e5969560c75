package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pricecheck-service/internal/apperror"
	"pricecheck-service/internal/models"
	"pricecheck-service/internal/stats"
	"pricecheck-service/internal/util"
)

const (
	requestIDHeader  = "X-Request-ID"
	defaultTopTrades = 5
)

// MarketService is what the HTTP API needs from the price service.
type MarketService interface {
	QueryMarket(ctx context.Context, query, platform string) (*models.Summary, error)
	GetItems(ctx context.Context) ([]models.Item, error)
	GetItemBySlug(ctx context.Context, slug string) (*models.Item, error)
	GetItemSet(ctx context.Context, slug string) (*models.ItemSet, error)
	GetTopOrders(ctx context.Context, slug, platform string, filters models.OrderFilters) (*models.TopOrders, error)
	GetAllOrders(ctx context.Context, slug, platform string) ([]models.Order, error)
	GetRecentOrders(ctx context.Context, platform string) ([]models.Order, error)
	CheckVersions(ctx context.Context) (*models.Versions, error)
	ClearCache(ctx context.Context)
}

// PriceCheckRequester enqueues asynchronous price checks.
type PriceCheckRequester interface {
	RequestPriceCheck(ctx context.Context, query, platform string) (string, error)
}

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	market    MarketService
	requester PriceCheckRequester
	deps      map[string]Pinger
	logger    *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(market MarketService) *Handler {
	return &Handler{
		market: market,
		deps:   make(map[string]Pinger),
		logger: util.GetLogger(),
	}
}

// WithRequester enables POST /api/v1/price/requests
func (h *Handler) WithRequester(r PriceCheckRequester) *Handler {
	h.requester = r
	return h
}

// WithDependency adds a dependency to the readiness probe
func (h *Handler) WithDependency(name string, p Pinger) *Handler {
	h.deps[name] = p
	return h
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(prometheusMiddleware())
	router.Use(loggingMiddleware(h.logger))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/price", h.priceCheck)
		v1.POST("/price/requests", h.requestPriceCheck)
		v1.GET("/items", h.listItems)
		v1.GET("/items/:slug", h.getItem)
		v1.GET("/items/:slug/set", h.getItemSet)
		v1.GET("/items/:slug/orders", h.getOrders)
		v1.GET("/items/:slug/orders/top", h.getTopOrders)
		v1.GET("/orders/recent", h.getRecentOrders)
		v1.GET("/versions", h.getVersions)
		v1.DELETE("/cache", h.clearCache)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every registered dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

type priceResponse struct {
	Summary    *models.Summary `json:"summary"`
	PriceRange string          `json:"price_range"`
	Sellers    []models.Trader `json:"sellers"`
	Buyers     []models.Trader `json:"buyers"`
}

// priceCheck handles GET /api/v1/price?q=...&platform=...
func (h *Handler) priceCheck(c *gin.Context) {
	summary, err := h.market.QueryMarket(c.Request.Context(), c.Query("q"), c.Query("platform"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	limit := queryInt(c, "limit", defaultTopTrades)
	c.JSON(http.StatusOK, priceResponse{
		Summary:    summary,
		PriceRange: stats.FormatPriceRange(summary.Statistics.Sell),
		Sellers:    summary.OnlineSellers(limit),
		Buyers:     summary.OnlineBuyers(limit),
	})
}

type priceCheckRequest struct {
	Query    string `json:"query" binding:"required"`
	Platform string `json:"platform" binding:"required"`
}

// requestPriceCheck enqueues a price check for the worker
func (h *Handler) requestPriceCheck(c *gin.Context) {
	if h.requester == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Asynchronous price checks are disabled",
		})
		return
	}

	var req priceCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	requestID, err := h.requester.RequestPriceCheck(c.Request.Context(), req.Query, req.Platform)
	if err != nil {
		h.logger.Error("Failed to enqueue price check", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue price check",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"request_id": requestID})
}

func (h *Handler) listItems(c *gin.Context) {
	items, err := h.market.GetItems(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

func (h *Handler) getItem(c *gin.Context) {
	item, err := h.market.GetItemBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) getItemSet(c *gin.Context) {
	set, err := h.market.GetItemSet(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

// getOrders returns the full order book with statistics for both sides.
func (h *Handler) getOrders(c *gin.Context) {
	orders, err := h.market.GetAllOrders(c.Request.Context(), c.Param("slug"), c.Query("platform"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	includeOffline := queryBool(c, "include_offline")
	excludeOutliers := queryBool(c, "exclude_outliers")

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"statistics": models.SideStatistics{
			Sell: stats.CalculateStatistics(orders, stats.Options{Type: models.OrderTypeSell, IncludeOffline: includeOffline, ExcludeOutliers: excludeOutliers}),
			Buy:  stats.CalculateStatistics(orders, stats.Options{Type: models.OrderTypeBuy, IncludeOffline: includeOffline, ExcludeOutliers: excludeOutliers}),
		},
		"best": stats.GetBestOrders(orders, stats.BestOrdersOptions{
			Limit:          queryInt(c, "limit", stats.DefaultBestOrdersLimit),
			IncludeOffline: includeOffline,
		}),
	})
}

func (h *Handler) getTopOrders(c *gin.Context) {
	var filters models.OrderFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid filters",
			"details": err.Error(),
		})
		return
	}

	top, err := h.market.GetTopOrders(c.Request.Context(), c.Param("slug"), c.Query("platform"), filters)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, top)
}

func (h *Handler) getRecentOrders(c *gin.Context) {
	orders, err := h.market.GetRecentOrders(c.Request.Context(), c.Query("platform"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

func (h *Handler) getVersions(c *gin.Context) {
	versions, err := h.market.CheckVersions(c.Request.Context())
	if err != nil {
		h.writeError(c, apperror.Remote(0, "version check failed", err))
		return
	}
	c.JSON(http.StatusOK, versions)
}

func (h *Handler) clearCache(c *gin.Context) {
	h.market.ClearCache(c.Request.Context())
	c.Status(http.StatusNoContent)
}

// writeError maps service errors to status codes.
func (h *Handler) writeError(c *gin.Context, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		h.logger.Error("Unexpected error", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal error",
			"details": err.Error(),
		})
		return
	}

	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		h.logger.Warn("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{
		"error":   appErr.Kind.String(),
		"details": appErr.Error(),
	})
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func queryBool(c *gin.Context, key string) bool {
	v, _ := strconv.ParseBool(c.Query(key))
	return v
}

// requestIDMiddleware propagates or assigns X-Request-ID
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Request = c.Request.WithContext(util.WithRequestID(c.Request.Context(), id))
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// loggingMiddleware logs each request through zap
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		util.LoggerFromContext(c.Request.Context(), logger).Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
