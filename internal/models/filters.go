package models

import (
	"net/url"
	"strconv"
)

// OrderFilters narrows a top-orders request. Nil fields are not sent.
type OrderFilters struct {
	Rank         *int   `json:"rank,omitempty" form:"rank"`
	RankLt       *int   `json:"rankLt,omitempty" form:"rankLt"`
	Charges      *int   `json:"charges,omitempty" form:"charges"`
	ChargesLt    *int   `json:"chargesLt,omitempty" form:"chargesLt"`
	AmberStars   *int   `json:"amberStars,omitempty" form:"amberStars"`
	AmberStarsLt *int   `json:"amberStarsLt,omitempty" form:"amberStarsLt"`
	CyanStars    *int   `json:"cyanStars,omitempty" form:"cyanStars"`
	CyanStarsLt  *int   `json:"cyanStarsLt,omitempty" form:"cyanStarsLt"`
	Subtype      string `json:"subtype,omitempty" form:"subtype"`
}

// Values returns the filters as query parameters.
func (f OrderFilters) Values() url.Values {
	v := url.Values{}
	setInt := func(key string, p *int) {
		if p != nil {
			v.Set(key, strconv.Itoa(*p))
		}
	}
	setInt("rank", f.Rank)
	setInt("rankLt", f.RankLt)
	setInt("charges", f.Charges)
	setInt("chargesLt", f.ChargesLt)
	setInt("amberStars", f.AmberStars)
	setInt("amberStarsLt", f.AmberStarsLt)
	setInt("cyanStars", f.CyanStars)
	setInt("cyanStarsLt", f.CyanStarsLt)
	if f.Subtype != "" {
		v.Set("subtype", f.Subtype)
	}
	return v
}

// Key is a canonical encoding of the filters; equal filter sets give equal keys.
func (f OrderFilters) Key() string {
	return f.Values().Encode()
}
