package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pricecheck-service/internal/models"
)

func order(id string, typ models.OrderType, platinum, quantity int, status models.UserStatus) models.Order {
	return models.Order{
		ID:       id,
		Type:     typ,
		Platinum: platinum,
		Quantity: quantity,
		User:     &models.User{IngameName: "user-" + id, Status: status},
	}
}

func sellOrders(prices ...int) []models.Order {
	orders := make([]models.Order, len(prices))
	for i, p := range prices {
		orders[i] = order(string(rune('a'+i)), models.OrderTypeSell, p, i+1, models.UserStatusOnline)
	}
	return orders
}

func TestCalculateStatistics_Empty(t *testing.T) {
	s := CalculateStatistics(nil, Options{Type: models.OrderTypeSell})
	assert.Equal(t, models.Statistics{}, s)
	assert.Equal(t, "No orders found", FormatPriceRange(s))
}

func TestCalculateStatistics_OddCount(t *testing.T) {
	s := CalculateStatistics(sellOrders(70, 50, 60), Options{Type: models.OrderTypeSell})

	assert.Equal(t, 60, s.Median)
	assert.Equal(t, 50, s.Min)
	assert.Equal(t, 70, s.Max)
	assert.Equal(t, 60, s.Avg)
	assert.Equal(t, 3, s.OrderCount)
	assert.Equal(t, 6, s.Volume)
	assert.Equal(t, 55, s.Q1)
	assert.Equal(t, 65, s.Q3)
}

func TestCalculateStatistics_EvenCount(t *testing.T) {
	s := CalculateStatistics(sellOrders(50, 60, 70, 80), Options{Type: models.OrderTypeSell})

	assert.Equal(t, 65, s.Median)
	assert.Equal(t, 65, s.Avg)
	// index 0.75 -> 57.5, index 2.25 -> 72.5
	assert.Equal(t, 58, s.Q1)
	assert.Equal(t, 73, s.Q3)
	assert.Equal(t, "50p - 80p (median: 65p)", FormatPriceRange(s))
}

func TestCalculateStatistics_SingleOrder(t *testing.T) {
	s := CalculateStatistics(sellOrders(42), Options{Type: models.OrderTypeSell, ExcludeOutliers: true})

	assert.Equal(t, 42, s.Median)
	assert.Equal(t, 42, s.Min)
	assert.Equal(t, 42, s.Max)
	assert.Equal(t, 42, s.Q1)
	assert.Equal(t, 42, s.Q3)
	assert.Equal(t, "42p", FormatPriceRange(s))
}

func TestCalculateStatistics_FiltersTypeAndOffline(t *testing.T) {
	orders := []models.Order{
		order("1", models.OrderTypeSell, 10, 1, models.UserStatusOnline),
		order("2", models.OrderTypeSell, 20, 1, models.UserStatusInGame),
		order("3", models.OrderTypeSell, 5, 1, models.UserStatusOffline),
		order("4", models.OrderTypeBuy, 100, 1, models.UserStatusOnline),
		{ID: "5", Type: models.OrderTypeSell, Platinum: 1, Quantity: 1},
	}

	online := CalculateStatistics(orders, Options{Type: models.OrderTypeSell})
	assert.Equal(t, 2, online.OrderCount)
	assert.Equal(t, 10, online.Min)
	assert.Equal(t, 20, online.Max)

	all := CalculateStatistics(orders, Options{Type: models.OrderTypeSell, IncludeOffline: true})
	assert.Equal(t, 4, all.OrderCount)
	assert.Equal(t, 1, all.Min)

	buy := CalculateStatistics(orders, Options{Type: models.OrderTypeBuy})
	assert.Equal(t, 1, buy.OrderCount)
	assert.Equal(t, 100, buy.Median)
}

func TestCalculateStatistics_Outliers(t *testing.T) {
	orders := sellOrders(10, 11, 12, 13, 14, 500)

	kept := CalculateStatistics(orders, Options{Type: models.OrderTypeSell})
	assert.Equal(t, 500, kept.Max)

	filtered := CalculateStatistics(orders, Options{Type: models.OrderTypeSell, ExcludeOutliers: true})
	assert.Equal(t, 14, filtered.Max)
	assert.Equal(t, 10, filtered.Min)
	assert.Equal(t, 12, filtered.Median)
	// count and volume come from the order set before outlier removal
	assert.Equal(t, 6, filtered.OrderCount)
	assert.Equal(t, 21, filtered.Volume)
}

func TestCalculateStatistics_OutliersNeedFivePrices(t *testing.T) {
	s := CalculateStatistics(sellOrders(10, 11, 12, 500), Options{Type: models.OrderTypeSell, ExcludeOutliers: true})
	assert.Equal(t, 500, s.Max)
}

func TestCalculateStatistics_IdenticalPrices(t *testing.T) {
	s := CalculateStatistics(sellOrders(30, 30, 30, 30, 30, 30), Options{Type: models.OrderTypeSell, ExcludeOutliers: true})

	assert.Equal(t, 30, s.Min)
	assert.Equal(t, 30, s.Max)
	assert.Equal(t, 30, s.Median)
	assert.Equal(t, 30, s.Q1)
	assert.Equal(t, 30, s.Q3)
}

func TestCalculateStatistics_QuartileOrdering(t *testing.T) {
	cases := [][]int{
		{1},
		{5, 1},
		{3, 9, 27, 81},
		{100, 7, 7, 8, 250, 9, 10, 12, 3},
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
	}
	for _, prices := range cases {
		for _, exclude := range []bool{false, true} {
			s := CalculateStatistics(sellOrders(prices...), Options{Type: models.OrderTypeSell, ExcludeOutliers: exclude})
			assert.LessOrEqual(t, s.Min, s.Q1, "prices %v", prices)
			assert.LessOrEqual(t, s.Q1, s.Median, "prices %v", prices)
			assert.LessOrEqual(t, s.Median, s.Q3, "prices %v", prices)
			assert.LessOrEqual(t, s.Q3, s.Max, "prices %v", prices)
		}
	}
}

func TestGetBestOrders(t *testing.T) {
	orders := []models.Order{
		order("s1", models.OrderTypeSell, 20, 1, models.UserStatusOnline),
		order("s2", models.OrderTypeSell, 10, 1, models.UserStatusOnline),
		order("s3", models.OrderTypeSell, 10, 1, models.UserStatusInGame),
		order("s4", models.OrderTypeSell, 5, 1, models.UserStatusOffline),
		order("b1", models.OrderTypeBuy, 8, 1, models.UserStatusOnline),
		order("b2", models.OrderTypeBuy, 9, 1, models.UserStatusOnline),
		order("b3", models.OrderTypeBuy, 9, 1, models.UserStatusOnline),
	}

	best := GetBestOrders(orders, BestOrdersOptions{})
	assert.Equal(t, []string{"s2", "s3", "s1"}, ids(best.Sell))
	assert.Equal(t, []string{"b2", "b3", "b1"}, ids(best.Buy))

	limited := GetBestOrders(orders, BestOrdersOptions{Limit: 1, IncludeOffline: true})
	assert.Equal(t, []string{"s4"}, ids(limited.Sell))
	assert.Equal(t, []string{"b2"}, ids(limited.Buy))
}

func TestGetBestOrders_Empty(t *testing.T) {
	best := GetBestOrders(nil, BestOrdersOptions{})
	assert.NotNil(t, best.Buy)
	assert.NotNil(t, best.Sell)
	assert.Empty(t, best.Buy)
	assert.Empty(t, best.Sell)
}

func ids(orders []models.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}
