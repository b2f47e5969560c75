// Package stats turns raw order lists into price statistics. It holds no state
// and performs no I/O.
package stats

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"pricecheck-service/internal/models"
)

// minOutlierSample is the smallest price list the IQR filter is applied to.
const minOutlierSample = 5

// Options controls CalculateStatistics. The zero value (plus a Type) counts
// online users only and keeps outliers.
type Options struct {
	Type            models.OrderType
	IncludeOffline  bool
	ExcludeOutliers bool
}

// CalculateStatistics computes the statistics of the orders matching opts.Type.
func CalculateStatistics(orders []models.Order, opts Options) models.Statistics {
	filtered := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if o.Type != opts.Type {
			continue
		}
		if !opts.IncludeOffline && !o.IsUserOnline() {
			continue
		}
		filtered = append(filtered, o)
	}

	prices := make([]float64, len(filtered))
	for i, o := range filtered {
		prices[i] = float64(o.Platinum)
	}
	slices.Sort(prices)

	if opts.ExcludeOutliers && len(prices) >= minOutlierSample {
		prices = removeOutliers(prices)
	}

	if len(prices) == 0 {
		return models.Statistics{}
	}

	volume := 0
	for _, o := range filtered {
		volume += o.Quantity
	}

	var sum float64
	for _, p := range prices {
		sum += p
	}

	return models.Statistics{
		Volume:     volume,
		OrderCount: len(filtered),
		Median:     round(median(prices)),
		Min:        int(prices[0]),
		Max:        int(prices[len(prices)-1]),
		Avg:        round(sum / float64(len(prices))),
		Q1:         round(percentile(prices, 25)),
		Q3:         round(percentile(prices, 75)),
	}
}

// BestOrders is the result of GetBestOrders.
type BestOrders struct {
	Buy  []models.Order `json:"buy"`
	Sell []models.Order `json:"sell"`
}

// BestOrdersOptions controls GetBestOrders. A zero Limit means DefaultBestOrdersLimit.
type BestOrdersOptions struct {
	Limit          int
	IncludeOffline bool
}

const DefaultBestOrdersLimit = 5

// GetBestOrders returns the highest buy and lowest sell orders. Equal prices
// keep their input order.
func GetBestOrders(orders []models.Order, opts BestOrdersOptions) BestOrders {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultBestOrdersLimit
	}

	var buy, sell []models.Order
	for _, o := range orders {
		if !opts.IncludeOffline && !o.IsUserOnline() {
			continue
		}
		switch o.Type {
		case models.OrderTypeBuy:
			buy = append(buy, o)
		case models.OrderTypeSell:
			sell = append(sell, o)
		}
	}

	sort.SliceStable(buy, func(i, j int) bool { return buy[i].Platinum > buy[j].Platinum })
	sort.SliceStable(sell, func(i, j int) bool { return sell[i].Platinum < sell[j].Platinum })

	return BestOrders{
		Buy:  truncate(buy, limit),
		Sell: truncate(sell, limit),
	}
}

// FormatPriceRange renders the price range of s as plain text.
func FormatPriceRange(s models.Statistics) string {
	if s.OrderCount == 0 {
		return "No orders found"
	}
	if s.Min == s.Max {
		return fmt.Sprintf("%dp", s.Min)
	}
	return fmt.Sprintf("%dp - %dp (median: %dp)", s.Min, s.Max, s.Median)
}

func truncate(orders []models.Order, limit int) []models.Order {
	if orders == nil {
		return []models.Order{}
	}
	if len(orders) > limit {
		return orders[:limit]
	}
	return orders
}

// median expects sorted, non-empty input.
func median(sorted []float64) float64 {
	n := len(sorted)
	mid := n / 2
	if n%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// percentile uses linear interpolation between closest ranks: index = p/100*(n-1).
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	index := p / 100 * float64(n-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

func removeOutliers(sorted []float64) []float64 {
	q1 := percentile(sorted, 25)
	q3 := percentile(sorted, 75)
	iqr := q3 - q1
	lo, hi := q1-1.5*iqr, q3+1.5*iqr

	kept := sorted[:0:0]
	for _, p := range sorted {
		if p >= lo && p <= hi {
			kept = append(kept, p)
		}
	}
	return kept
}

// round rounds halves up.
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}
