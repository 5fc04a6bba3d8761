package models

import (
	"encoding/json"
)

// TeamSize is the mandatory number of distinct tokens on a roster entry.
const TeamSize = 10

// Team is a user's entry in a league: exactly 10 distinct symbols drawn from
// the competition roster. One team per (user, league). TotalScore and Rank
// are recomputed wholesale at completion (and on leaderboard reads).
type Team struct {
	ID            string  `json:"id" gorm:"primaryKey"`
	LeagueID      string  `json:"league_id" gorm:"not null;index;uniqueIndex:idx_user_league"`
	UserID        string  `json:"user_id" gorm:"not null;index;uniqueIndex:idx_user_league"`
	TeamName      string  `json:"team_name" gorm:"not null"`
	TokensJSON    string  `json:"-" gorm:"column:tokens;type:text;not null"`
	TotalScore    float64 `json:"total_score" gorm:"default:0"`
	Rank          int     `json:"rank" gorm:"default:0"` // 0 = not ranked yet
	HasValidEntry bool    `json:"has_valid_entry" gorm:"default:false"`

	Timestamps
}

// TokenSymbols decodes the stored roster. A corrupt column yields nil, which
// downstream scoring treats as an empty (zero-score) team.
func (t *Team) TokenSymbols() []string {
	var symbols []string
	if err := json.Unmarshal([]byte(t.TokensJSON), &symbols); err != nil {
		return nil
	}
	return symbols
}

// SetTokenSymbols encodes the roster for storage.
func (t *Team) SetTokenSymbols(symbols []string) error {
	raw, err := json.Marshal(symbols)
	if err != nil {
		return err
	}
	t.TokensJSON = string(raw)
	return nil
}

// MarshalJSON exposes the decoded token list instead of the raw column.
func (t Team) MarshalJSON() ([]byte, error) {
	type alias Team
	return json.Marshal(struct {
		alias
		Tokens []string `json:"tokens"`
	}{alias(t), t.TokenSymbols()})
}
