// models/token_price.go
package models

import (
	"time"
)

// TokenPrice mirrors the oracle's latest quote for one token.
// Table name: token_prices
// Kept fresh by the price sync worker; read paths treat rows older than the
// freshness TTL as stale and fall back to a direct oracle fetch.
type TokenPrice struct {
	TokenID       string    `gorm:"primaryKey" json:"token_id"` // provider id
	Symbol        string    `gorm:"index;not null" json:"symbol"`
	Name          string    `json:"name"`
	ImageURL      string    `json:"image_url"`
	CurrentPrice  float64   `json:"current_price"` // USD
	Change24hPct  float64   `gorm:"column:change_24h_pct" json:"change_24h_pct"`
	Change7dPct   float64   `gorm:"column:change_7d_pct" json:"change_7d_pct"`
	MarketCap     float64   `json:"market_cap"`
	Volume24h     float64   `gorm:"column:volume_24h" json:"volume_24h"`
	MarketCapRank int       `json:"market_cap_rank"`
	FetchedAt     time.Time `gorm:"not null;index" json:"fetched_at"`
}
