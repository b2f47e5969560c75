package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"pricecheck-service/internal/apperror"
	"pricecheck-service/internal/cache"
	"pricecheck-service/internal/models"
	"pricecheck-service/internal/stats"
	"pricecheck-service/internal/util"
)

// MarketClient is the subset of the market API the service reads from.
type MarketClient interface {
	FetchItems(ctx context.Context) ([]models.Item, error)
	FetchItem(ctx context.Context, slug string) (*models.Item, error)
	FetchItemSet(ctx context.Context, slug string) (*models.ItemSet, error)
	FetchTopOrders(ctx context.Context, slug, platform string, filters models.OrderFilters) (*models.TopOrders, error)
	FetchOrders(ctx context.Context, slug, platform string) ([]models.Order, error)
	FetchRecentOrders(ctx context.Context, platform string) ([]models.Order, error)
}

// SummaryObserver is notified after every successful price query.
type SummaryObserver interface {
	PriceChecked(ctx context.Context, query, platform string, summary *models.Summary) error
}

// Options holds the optional collaborators of a MarketService.
type Options struct {
	AssetsBaseURL string
	Observer      SummaryObserver
	Logger        *zap.Logger
}

// MarketService resolves free-text queries to price summaries. It keeps no
// state of its own; catalog reads go through the versioned catalog cache and
// order reads through the short-lived orders cache.
type MarketService struct {
	client        MarketClient
	catalog       *cache.VersionedCache
	orders        *cache.VersionedCache
	assetsBaseURL string
	observer      SummaryObserver
	logger        *zap.Logger
}

// NewMarketService creates a new market service
func NewMarketService(client MarketClient, catalog, orders *cache.VersionedCache, opts Options) *MarketService {
	logger := opts.Logger
	if logger == nil {
		logger = util.GetLogger()
	}
	assets := opts.AssetsBaseURL
	if assets == "" {
		assets = models.AssetsBaseURL
	}
	return &MarketService{
		client:        client,
		catalog:       catalog,
		orders:        orders,
		assetsBaseURL: assets,
		observer:      opts.Observer,
		logger:        logger,
	}
}

// QueryMarket matches query against the catalog, fetches the top orders of the
// first matching item and summarizes them. Matching is a case-insensitive
// substring test on name or slug in catalog order.
func (s *MarketService) QueryMarket(ctx context.Context, query, platform string) (summary *models.Summary, err error) {
	ctx, span := util.StartSpan(ctx, "MarketService.QueryMarket",
		attribute.String("query", query),
		attribute.String("platform", platform),
	)
	start := time.Now()
	defer func() {
		util.PriceQueryLatency.Observe(time.Since(start).Seconds())
		util.PriceQueriesTotal.WithLabelValues(queryResult(err)).Inc()
		util.EndSpan(span, err)
	}()

	if strings.TrimSpace(platform) == "" {
		return nil, apperror.InvalidArgument("platform is required")
	}
	normalized := strings.ToLower(strings.TrimSpace(query))
	if normalized == "" {
		return nil, apperror.InvalidArgument("query is required")
	}

	items, err := s.GetItems(ctx)
	if err != nil {
		return nil, err
	}

	item, ok := firstMatch(items, normalized)
	if !ok {
		return nil, apperror.NotFound("No items found for query: " + query)
	}

	top, err := s.GetTopOrders(ctx, item.Slug, platform, models.OrderFilters{})
	if err != nil {
		return nil, err
	}

	sideStats := models.SideStatistics{
		Sell: stats.CalculateStatistics(top.Sell, stats.Options{Type: models.OrderTypeSell}),
		Buy:  stats.CalculateStatistics(top.Buy, stats.Options{Type: models.OrderTypeBuy}),
	}
	summary = models.NewSummary(item, *top, sideStats, s.assetsBaseURL)

	logger := util.LoggerFromContext(ctx, s.logger)
	logger.Info("Price query resolved",
		zap.String("query", query),
		zap.String("slug", item.Slug),
		zap.String("platform", platform),
		zap.Int("sell_orders", sideStats.Sell.OrderCount),
		zap.Int("buy_orders", sideStats.Buy.OrderCount))

	if s.observer != nil {
		if oerr := s.observer.PriceChecked(ctx, query, platform, summary); oerr != nil {
			logger.Warn("Price query observer failed", zap.String("slug", item.Slug), zap.Error(oerr))
		}
	}

	return summary, nil
}

// PriceCheckQuery is QueryMarket with positional arguments
func (s *MarketService) PriceCheckQuery(ctx context.Context, query, platform string) (*models.Summary, error) {
	return s.QueryMarket(ctx, query, platform)
}

// GetItems returns the tradable item catalog.
func (s *MarketService) GetItems(ctx context.Context) ([]models.Item, error) {
	return cache.Get(ctx, s.catalog, "items", models.CollectionItems, s.client.FetchItems)
}

func (s *MarketService) GetItemBySlug(ctx context.Context, slug string) (*models.Item, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, apperror.InvalidArgument("slug is required")
	}
	item, err := cache.Get(ctx, s.catalog, "item_"+slug, models.CollectionItems,
		func(ctx context.Context) (*models.Item, error) {
			return s.client.FetchItem(ctx, slug)
		})
	if err != nil {
		return nil, notFoundOn404(err, "item not found: "+slug)
	}
	return item, nil
}

func (s *MarketService) GetItemSet(ctx context.Context, slug string) (*models.ItemSet, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, apperror.InvalidArgument("slug is required")
	}
	set, err := cache.Get(ctx, s.catalog, "item_set_"+slug, models.CollectionItems,
		func(ctx context.Context) (*models.ItemSet, error) {
			return s.client.FetchItemSet(ctx, slug)
		})
	if err != nil {
		return nil, notFoundOn404(err, "item set not found: "+slug)
	}
	return set, nil
}

// GetTopOrders returns the best orders for slug. Filter sets that are equal
// share a cache entry regardless of how they were built.
func (s *MarketService) GetTopOrders(ctx context.Context, slug, platform string, filters models.OrderFilters) (*models.TopOrders, error) {
	platform, err := requirePlatform(platform)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("top_orders_%s_%s_%s", slug, platform, filters.Key())
	top, err := cache.Get(ctx, s.orders, key, "", func(ctx context.Context) (*models.TopOrders, error) {
		return s.client.FetchTopOrders(ctx, slug, platform, filters)
	})
	if err != nil {
		return nil, notFoundOn404(err, "item not found: "+slug)
	}
	return top, nil
}

// GetAllOrders returns the full order book for slug.
func (s *MarketService) GetAllOrders(ctx context.Context, slug, platform string) ([]models.Order, error) {
	platform, err := requirePlatform(platform)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("all_orders_%s_%s", slug, platform)
	orders, err := cache.Get(ctx, s.orders, key, "", func(ctx context.Context) ([]models.Order, error) {
		return s.client.FetchOrders(ctx, slug, platform)
	})
	if err != nil {
		return nil, notFoundOn404(err, "item not found: "+slug)
	}
	return orders, nil
}

// GetRecentOrders returns recently created orders on platform.
func (s *MarketService) GetRecentOrders(ctx context.Context, platform string) ([]models.Order, error) {
	platform, err := requirePlatform(platform)
	if err != nil {
		return nil, err
	}
	return cache.Get(ctx, s.orders, "recent_orders_"+platform, "", func(ctx context.Context) ([]models.Order, error) {
		return s.client.FetchRecentOrders(ctx, platform)
	})
}

// CheckVersions returns the remote collection version manifest.
func (s *MarketService) CheckVersions(ctx context.Context) (*models.Versions, error) {
	return s.catalog.CheckVersions(ctx)
}

// ClearCache empties the catalog and orders caches.
func (s *MarketService) ClearCache(ctx context.Context) {
	s.catalog.Clear(ctx)
	s.orders.Clear(ctx)
	s.logger.Info("Market caches cleared")
}

func firstMatch(items []models.Item, normalized string) (models.Item, bool) {
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Name), normalized) ||
			strings.Contains(strings.ToLower(item.Slug), normalized) {
			return item, true
		}
	}
	return models.Item{}, false
}

func requirePlatform(platform string) (string, error) {
	if strings.TrimSpace(platform) == "" {
		return "", apperror.InvalidArgument("platform is required")
	}
	return models.NormalizePlatform(platform), nil
}

// notFoundOn404 turns an upstream 404 into a NotFound error.
func notFoundOn404(err error, message string) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) && appErr.Kind == apperror.KindRemote && appErr.StatusCode == http.StatusNotFound {
		return apperror.NotFound(message)
	}
	return err
}

func queryResult(err error) string {
	switch apperror.KindOf(err) {
	case 0:
		if err != nil {
			return "error"
		}
		return "ok"
	case apperror.KindInvalidArgument:
		return "invalid"
	case apperror.KindNotFound:
		return "not_found"
	default:
		return "remote_error"
	}
}
