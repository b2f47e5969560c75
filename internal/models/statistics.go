package models

// Statistics summarises one side of an order book. OrderCount == 0 implies
// every other field is 0.
type Statistics struct {
	Volume     int `json:"volume"`
	OrderCount int `json:"orderCount"`
	Median     int `json:"median"`
	Min        int `json:"min"`
	Max        int `json:"max"`
	Avg        int `json:"avg"`
	Q1         int `json:"q1"`
	Q3         int `json:"q3"`
}

// SideStatistics pairs buy and sell statistics.
type SideStatistics struct {
	Buy  Statistics `json:"buy"`
	Sell Statistics `json:"sell"`
}

// Versions is the remote collection version manifest.
type Versions struct {
	APIVersion  string            `json:"apiVersion,omitempty"`
	Collections map[string]string `json:"collections"`
	UpdatedAt   string            `json:"updatedAt,omitempty"`
}

// Collection returns the version tag for name, "" when the manifest does not list it.
func (v *Versions) Collection(name string) string {
	if v == nil {
		return ""
	}
	return v.Collections[name]
}
