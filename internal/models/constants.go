package models

import "strings"

// DefaultLocale is used when an item has no translation for the requested locale.
const DefaultLocale = "en"

const (
	MarketItemsURL  = "https://warframe.market/items/"
	AssetsBaseURL   = "https://warframe.market/static/assets/"
	DefaultBaseURL  = "https://api.warframe.market/v2"
	CollectionItems = "items"
)

// OrderType is the side of an order.
type OrderType string

const (
	OrderTypeBuy  OrderType = "buy"
	OrderTypeSell OrderType = "sell"
)

// UserStatus is the presence of the player owning an order.
type UserStatus string

const (
	UserStatusOnline    UserStatus = "online"
	UserStatusInGame    UserStatus = "ingame"
	UserStatusOffline   UserStatus = "offline"
	UserStatusInvisible UserStatus = "invisible"
)

// Activity types reported for online users
const (
	ActivityUnknown   = "UNKNOWN"
	ActivityIdle      = "IDLE"
	ActivityOnMission = "ON_MISSION"
	ActivityInDojo    = "IN_DOJO"
	ActivityInOrbiter = "IN_ORBITER"
	ActivityInRelay   = "IN_RELAY"
)

var platforms = map[string]string{
	"pc":          "pc",
	"ps4":         "ps4",
	"playstation": "ps4",
	"xb1":         "xbox",
	"xbone":       "xbox",
	"xbox":        "xbox",
	"switch":      "switch",
	"swi":         "switch",
	"ns":          "switch",
	"mobile":      "mobile",
}

var languages = map[string]struct{}{
	"en": {}, "es": {}, "fr": {}, "de": {}, "it": {}, "pl": {}, "pt": {},
	"ru": {}, "ko": {}, "zh-hans": {}, "zh-hant": {}, "uk": {},
}

// NormalizePlatform maps a platform alias to the name the market expects.
// Unknown values are returned unchanged.
func NormalizePlatform(platform string) string {
	if p, ok := platforms[strings.ToLower(strings.TrimSpace(platform))]; ok {
		return p
	}
	return platform
}

// NormalizeLanguage returns a supported language code, falling back to DefaultLocale.
func NormalizeLanguage(lang string) string {
	l := strings.ToLower(strings.TrimSpace(lang))
	if _, ok := languages[l]; ok {
		return l
	}
	return DefaultLocale
}
