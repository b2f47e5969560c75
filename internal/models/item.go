package models

import "fmt"

// ItemI18N holds the locale dependent fields of an item.
type ItemI18N struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	WikiLink    string `json:"wikiLink,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Thumb       string `json:"thumb,omitempty"`
	SubIcon     string `json:"subIcon,omitempty"`
}

// Item is a tradable catalog entry. Items are built once per catalog fetch
// and shared read-only afterwards.
type Item struct {
	ID            string   `json:"id"`
	Slug          string   `json:"slug"`
	GameRef       string   `json:"gameRef,omitempty"`
	Tags          []string `json:"tags"`
	SetRoot       bool     `json:"setRoot,omitempty"`
	SetParts      []string `json:"setParts"`
	QuantityInSet int      `json:"quantityInSet,omitempty"`

	Rarity       string   `json:"rarity,omitempty"`
	BulkTradable bool     `json:"bulkTradable,omitempty"`
	Subtypes     []string `json:"subtypes,omitempty"`
	Tradable     bool     `json:"tradable"`
	Vaulted      bool     `json:"vaulted"`

	MaxRank       *int `json:"maxRank,omitempty"`
	MaxCharges    *int `json:"maxCharges,omitempty"`
	MaxAmberStars *int `json:"maxAmberStars,omitempty"`
	MaxCyanStars  *int `json:"maxCyanStars,omitempty"`

	Ducats         *int     `json:"ducats,omitempty"`
	Vosfor         *int     `json:"vosfor,omitempty"`
	TradingTax     int      `json:"tradingTax"`
	BaseEndo       *int     `json:"baseEndo,omitempty"`
	EndoMultiplier *float64 `json:"endoMultiplier,omitempty"`
	ReqMasteryRank *int     `json:"reqMasteryRank,omitempty"`

	I18N   map[string]ItemI18N `json:"i18n,omitempty"`
	Locale string              `json:"locale,omitempty"`

	// Resolved by Localize.
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	WikiLink    string `json:"wikiLink,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Thumb       string `json:"thumb,omitempty"`
	SubIcon     string `json:"subIcon,omitempty"`
}

// ItemSet is the response of the set endpoint.
type ItemSet struct {
	ID    string `json:"id"`
	Items []Item `json:"items"`
}

func (i *Item) Kind() EntityKind { return KindItem }

// Localize resolves the display fields for locale, falling back to the
// default locale and finally to the slug for the name.
func (i *Item) Localize(locale string) {
	i.Locale = locale
	data, ok := i.I18N[locale]
	if !ok {
		data = i.I18N[DefaultLocale]
	}
	i.Name = data.Name
	if i.Name == "" {
		i.Name = i.Slug
	}
	i.Description = data.Description
	i.WikiLink = data.WikiLink
	i.Icon = data.Icon
	i.Thumb = data.Thumb
	i.SubIcon = data.SubIcon
}

// Localized returns a single localized field, using the item's locale when lang is empty.
func (i *Item) Localized(field, lang string) string {
	if lang == "" {
		lang = i.Locale
	}
	if v := i18nField(i.I18N[lang], field); v != "" {
		return v
	}
	return i18nField(i.I18N[DefaultLocale], field)
}

func i18nField(d ItemI18N, field string) string {
	switch field {
	case "name":
		return d.Name
	case "description":
		return d.Description
	case "wikiLink":
		return d.WikiLink
	case "icon":
		return d.Icon
	case "thumb":
		return d.Thumb
	case "subIcon":
		return d.SubIcon
	}
	return ""
}

// IconURL returns the absolute icon URL, or "" when the item has no icon.
func (i *Item) IconURL(baseURL string) string {
	if i.Icon == "" {
		return ""
	}
	return baseURL + i.Icon
}

// ThumbURL returns the absolute thumbnail URL, or "" when the item has none.
func (i *Item) ThumbURL(baseURL string) string {
	if i.Thumb == "" {
		return ""
	}
	return baseURL + i.Thumb
}

func (i *Item) IsPartOfSet() bool {
	return len(i.SetParts) > 0
}

func (i *Item) IsVaulted() bool {
	return i.Vaulted
}

func (i *Item) String() string {
	return fmt.Sprintf("%s [%s]", i.Name, i.Slug)
}
