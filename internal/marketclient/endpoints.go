package marketclient

import (
	"context"
	"net/http"
	"net/url"

	"pricecheck-service/internal/models"
)

// FetchItems returns the tradable item catalog, localized to the client locale.
func (c *Client) FetchItems(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	if err := c.Get(ctx, "/items", RequestOptions{}, &items); err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Localize(c.locale)
	}
	return items, nil
}

func (c *Client) FetchItem(ctx context.Context, slug string) (*models.Item, error) {
	var item models.Item
	if err := c.Get(ctx, "/item/"+url.PathEscape(slug), RequestOptions{}, &item); err != nil {
		return nil, err
	}
	item.Localize(c.locale)
	return &item, nil
}

// FetchItemSet returns every item of the set slug belongs to.
func (c *Client) FetchItemSet(ctx context.Context, slug string) (*models.ItemSet, error) {
	var set models.ItemSet
	if err := c.Get(ctx, "/item/"+url.PathEscape(slug)+"/set", RequestOptions{}, &set); err != nil {
		return nil, err
	}
	for i := range set.Items {
		set.Items[i].Localize(c.locale)
	}
	return &set, nil
}

// FetchTopOrders returns the best buy and sell orders for an item on platform.
func (c *Client) FetchTopOrders(ctx context.Context, slug, platform string, filters models.OrderFilters) (*models.TopOrders, error) {
	var top models.TopOrders
	opts := RequestOptions{Platform: platform, Query: filters.Values()}
	if err := c.Get(ctx, "/orders/item/"+url.PathEscape(slug)+"/top", opts, &top); err != nil {
		return nil, err
	}
	if top.Buy == nil {
		top.Buy = []models.Order{}
	}
	if top.Sell == nil {
		top.Sell = []models.Order{}
	}
	return &top, nil
}

// FetchOrders returns the full order book for an item.
func (c *Client) FetchOrders(ctx context.Context, slug, platform string) ([]models.Order, error) {
	var orders []models.Order
	if err := c.Get(ctx, "/orders/item/"+url.PathEscape(slug), RequestOptions{Platform: platform}, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// FetchRecentOrders returns orders created in the last few hours.
func (c *Client) FetchRecentOrders(ctx context.Context, platform string) ([]models.Order, error) {
	var orders []models.Order
	if err := c.Get(ctx, "/orders/recent", RequestOptions{Platform: platform}, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// FetchVersions returns the collection version manifest.
func (c *Client) FetchVersions(ctx context.Context) (*models.Versions, error) {
	var versions models.Versions
	apiVersion, err := c.do(ctx, http.MethodGet, "/versions", nil, RequestOptions{}, &versions)
	if err != nil {
		return nil, err
	}
	if versions.APIVersion == "" {
		versions.APIVersion = apiVersion
	}
	return &versions, nil
}
