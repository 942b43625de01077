package entity

import "time"

// PriceSnapshot is the latest polled price map.
type PriceSnapshot struct {
	Currency  string             `json:"currency"`
	Prices    map[string]float64 `json:"prices"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
