package models

import (
	"time"
)

// PrizeDistribution is the immutable payout event for one competition,
// written exactly once when Competition.Distributed flips to true.
type PrizeDistribution struct {
	ID            string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	CompetitionID string    `json:"competition_id" gorm:"uniqueIndex;not null"`
	LeagueID      string    `json:"league_id" gorm:"index;not null"`
	TotalPool     float64   `json:"total_pool"` // SOL
	DistributedAt time.Time `json:"distributed_at" gorm:"autoCreateTime"`

	Awards []PrizeAward `json:"awards,omitempty" gorm:"foreignKey:DistributionID"`
}

// PrizeAward is one line of a distribution: rank, team, score and payout.
type PrizeAward struct {
	ID             string  `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	DistributionID string  `json:"distribution_id" gorm:"index;not null"`
	Rank           int     `json:"rank"`
	TeamID         string  `json:"team_id" gorm:"index;not null"`
	UserID         string  `json:"user_id" gorm:"index"`
	Score          float64 `json:"score"`
	PrizeAmount    float64 `json:"prize_amount"` // SOL
	PrizePct       float64 `json:"prize_pct"`
}
