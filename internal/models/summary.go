package models

// Prices is the sell-side price block kept for older consumers.
type Prices struct {
	SoldCount int `json:"soldCount"`
	SoldPrice int `json:"soldPrice"`
	Minimum   int `json:"minimum"`
	Maximum   int `json:"maximum"`
	Average   int `json:"average"`
	Volume    int `json:"volume"`
}

// Trader is a display view of an online order owner.
type Trader struct {
	IngameName string     `json:"ingameName"`
	Platinum   int        `json:"platinum"`
	Quantity   int        `json:"quantity"`
	Status     UserStatus `json:"status"`
	Activity   string     `json:"activity,omitempty"`
	Reputation int        `json:"reputation"`
	Platform   string     `json:"platform,omitempty"`
	Crossplay  bool       `json:"crossplay"`
}

// Summary is the result of a price check.
type Summary struct {
	Type EntityKind `json:"type"`

	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Thumbnail string `json:"thumbnail,omitempty"`
	PartThumb string `json:"partThumb,omitempty"`
	Icon      string `json:"icon,omitempty"`

	TradingTax   int  `json:"tradingTax"`
	Ducats       int  `json:"ducats"`
	Vosfor       int  `json:"vosfor"`
	MasteryLevel *int `json:"masteryLevel,omitempty"`
	Tradable     bool `json:"tradable"`
	Vaulted      bool `json:"vaulted"`

	WikiURL     string   `json:"wikiUrl,omitempty"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Tags        []string `json:"tags"`

	Prices     Prices         `json:"prices"`
	Item       Item           `json:"item"`
	Orders     TopOrders      `json:"orders"`
	Statistics SideStatistics `json:"statistics"`
}

// NewSummary assembles a summary. assetsBaseURL prefixes icon paths.
func NewSummary(item Item, orders TopOrders, stats SideStatistics, assetsBaseURL string) *Summary {
	s := &Summary{
		Type:         KindSummary,
		Name:         item.Name,
		Slug:         item.Slug,
		Thumbnail:    item.ThumbURL(assetsBaseURL),
		Icon:         item.IconURL(assetsBaseURL),
		TradingTax:   item.TradingTax,
		Ducats:       intOrZero(item.Ducats),
		Vosfor:       intOrZero(item.Vosfor),
		MasteryLevel: item.ReqMasteryRank,
		Tradable:     item.Tradable,
		Vaulted:      item.Vaulted,
		WikiURL:      item.WikiLink,
		Description:  item.Description,
		URL:          MarketItemsURL + item.Slug,
		Tags:         item.Tags,
		Prices: Prices{
			SoldCount: stats.Sell.OrderCount,
			SoldPrice: stats.Sell.Median,
			Minimum:   stats.Sell.Min,
			Maximum:   stats.Sell.Max,
			Average:   stats.Sell.Avg,
			Volume:    stats.Sell.Volume,
		},
		Item:       item,
		Orders:     orders,
		Statistics: stats,
	}
	s.PartThumb = s.Thumbnail
	if item.SubIcon != "" {
		s.PartThumb = assetsBaseURL + item.SubIcon
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	return s
}

func (s *Summary) Kind() EntityKind { return KindSummary }

// OnlineSellers returns up to limit online sellers in order book order.
func (s *Summary) OnlineSellers(limit int) []Trader {
	return onlineTraders(s.Orders.Sell, limit)
}

// OnlineBuyers returns up to limit online buyers in order book order.
func (s *Summary) OnlineBuyers(limit int) []Trader {
	return onlineTraders(s.Orders.Buy, limit)
}

func onlineTraders(orders []Order, limit int) []Trader {
	traders := make([]Trader, 0, limit)
	for i := range orders {
		if len(traders) >= limit {
			break
		}
		o := &orders[i]
		if !o.IsUserOnline() {
			continue
		}
		traders = append(traders, Trader{
			IngameName: o.User.IngameName,
			Platinum:   o.Platinum,
			Quantity:   o.Quantity,
			Status:     o.User.Status,
			Activity:   o.User.ActivityDescription(),
			Reputation: o.User.Reputation,
			Platform:   o.User.Platform,
			Crossplay:  o.User.Crossplay,
		})
	}
	return traders
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
