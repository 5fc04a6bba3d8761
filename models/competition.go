package models

import (
	"time"
)

const (
	CompetitionStatusPending   = "pending"
	CompetitionStatusActive    = "active"
	CompetitionStatusCompleted = "completed"
)

// Competition is one scored round of a league. Status moves one way only
// (pending → active → completed) and Distributed flips false → true exactly
// once, after completion. Both fields are only ever changed through
// conditional updates, never read-modify-write.
type Competition struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	LeagueID    string    `json:"league_id" gorm:"index;not null"`
	StartTime   time.Time `json:"start_time" gorm:"not null"`
	EndTime     time.Time `json:"end_time" gorm:"not null"`
	Status      string    `json:"status" gorm:"type:varchar(16);default:'pending';index"`
	PrizePool   float64   `json:"prize_pool" gorm:"default:0"` // SOL
	Distributed bool      `json:"distributed" gorm:"default:false"`

	// Relationships
	Tokens []CompetitionToken `json:"tokens,omitempty" gorm:"foreignKey:CompetitionID"`

	Timestamps
}

// Activated reports whether the roster is locked (anything past pending).
func (c *Competition) Activated() bool {
	return c.Status != CompetitionStatusPending
}

// CompetitionToken is one slot of the draft roster, fixed at competition
// creation. StartPrice is zero until the pending→active snapshot writes it;
// after that the row never changes ("the menu is locked").
type CompetitionToken struct {
	ID            string  `json:"id" gorm:"primaryKey"`
	CompetitionID string  `json:"competition_id" gorm:"not null;index;uniqueIndex:idx_competition_token"`
	TokenID       string  `json:"token_id" gorm:"not null;uniqueIndex:idx_competition_token"` // provider id, e.g. "bitcoin"
	Symbol        string  `json:"symbol" gorm:"not null;index"`
	Name          string  `json:"name"`
	ImageURL      string  `json:"image_url"`
	MarketCapRank int     `json:"market_cap_rank"`
	StartPrice    float64 `json:"start_price" gorm:"default:0"` // USD, snapshotted at activation

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
