package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	LeagueTypeMain    = "main"
	LeagueTypePrivate = "private"
)

// League is a competitive pool users buy into. The prize split columns must
// sum to 100; the pool and participant count grow as entries are confirmed.
type League struct {
	ID       string  `json:"id" gorm:"primaryKey"`
	Slug     string  `json:"slug" gorm:"uniqueIndex;not null"`
	Name     string  `json:"name" gorm:"not null"`
	EntryFee float64 `json:"entry_fee" gorm:"default:0"` // SOL

	// Prize distribution percentages for ranks 1..3
	FirstPlacePct  float64 `json:"first_place_pct" gorm:"default:50"`
	SecondPlacePct float64 `json:"second_place_pct" gorm:"default:30"`
	ThirdPlacePct  float64 `json:"third_place_pct" gorm:"default:20"`

	TotalPrizePool   float64 `json:"total_prize_pool" gorm:"default:0"` // SOL
	ParticipantCount int     `json:"participant_count" gorm:"default:0"`
	IsActive         bool    `json:"is_active" gorm:"default:true"`
	LeagueType       string  `json:"league_type" gorm:"type:varchar(16);default:'main'"`

	Timestamps
}

const (
	EntryStatusPending   = "PENDING"
	EntryStatusConfirmed = "CONFIRMED"
)

// LeagueEntry is the pay-to-play record: proof that a user paid the entry fee.
// A team may only be saved while a CONFIRMED entry exists for (user, league).
type LeagueEntry struct {
	ID              string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	LeagueID        string     `json:"league_id" gorm:"index;not null"`
	UserID          string     `json:"user_id" gorm:"index;not null"`
	TransactionHash string     `json:"transaction_hash" gorm:"uniqueIndex"`
	AmountPaid      float64    `json:"amount_paid"`
	Status          string     `json:"status" gorm:"type:varchar(16);default:'PENDING';index"`
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
