package models

import (
	"fmt"
	"strings"
	"time"
)

// Activity describes what an online user is doing.
type Activity struct {
	Type      string     `json:"type"`
	Details   string     `json:"details,omitempty"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
}

// User is the order owner as embedded in order responses.
type User struct {
	ID         string     `json:"id"`
	IngameName string     `json:"ingameName"`
	Avatar     string     `json:"avatar,omitempty"`
	Reputation int        `json:"reputation"`
	Locale     string     `json:"locale,omitempty"`
	Platform   string     `json:"platform,omitempty"`
	Crossplay  bool       `json:"crossplay"`
	Status     UserStatus `json:"status"`
	Activity   *Activity  `json:"activity,omitempty"`
	LastSeen   *time.Time `json:"lastSeen,omitempty"`
}

// IsOnline reports whether the user can currently trade.
func (u *User) IsOnline() bool {
	return u.Status == UserStatusOnline || u.Status == UserStatusInGame
}

// ActivityDescription renders the activity for display, "" when unknown.
func (u *User) ActivityDescription() string {
	if u.Activity == nil || u.Activity.Type == "" {
		return ""
	}
	details := u.Activity.Details
	switch u.Activity.Type {
	case ActivityOnMission:
		if details != "" {
			return "On Mission: " + details
		}
		return "On Mission"
	case ActivityInDojo:
		return "In Dojo"
	case ActivityInOrbiter:
		return "In Orbiter"
	case ActivityInRelay:
		if details != "" {
			return "In Relay: " + details
		}
		return "In Relay"
	case ActivityIdle:
		return "Idle"
	default:
		return ""
	}
}

// Order is a single buy or sell listing. Orders are never mutated after decoding.
type Order struct {
	ID       string    `json:"id"`
	Type     OrderType `json:"type"`
	Platinum int       `json:"platinum"`
	Quantity int       `json:"quantity"`
	PerTrade int       `json:"perTrade,omitempty"`

	Rank       *int   `json:"rank,omitempty"`
	Charges    *int   `json:"charges,omitempty"`
	Subtype    string `json:"subtype,omitempty"`
	AmberStars *int   `json:"amberStars,omitempty"`
	CyanStars  *int   `json:"cyanStars,omitempty"`

	Visible   bool       `json:"visible"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	ItemID    string     `json:"itemId,omitempty"`
	Group     string     `json:"group,omitempty"`

	User *User `json:"user,omitempty"`
}

// TopOrders is the best buy and sell listings for one item.
type TopOrders struct {
	Buy  []Order `json:"buy"`
	Sell []Order `json:"sell"`
}

func (o *Order) Kind() EntityKind { return KindOrder }

// IsUserOnline is false for orders without an embedded user.
func (o *Order) IsUserOnline() bool {
	return o.User != nil && o.User.IsOnline()
}

func (o *Order) IsBuy() bool  { return o.Type == OrderTypeBuy }
func (o *Order) IsSell() bool { return o.Type == OrderTypeSell }

// AgeHours returns hours since the last update, 0 when unknown.
func (o *Order) AgeHours(now time.Time) float64 {
	if o.UpdatedAt == nil {
		return 0
	}
	return now.Sub(*o.UpdatedAt).Hours()
}

func (o *Order) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %dp x%d", strings.ToUpper(string(o.Type)), o.Platinum, o.Quantity)

	var mods []string
	if o.Rank != nil {
		mods = append(mods, fmt.Sprintf("R%d", *o.Rank))
	}
	if o.Subtype != "" {
		mods = append(mods, o.Subtype)
	}
	if len(mods) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(mods, ", "))
	}
	if o.User != nil {
		fmt.Fprintf(&b, " by %s", o.User.IngameName)
	}
	return b.String()
}
