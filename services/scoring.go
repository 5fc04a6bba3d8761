// market-fantasy-league/services/scoring.go
package services

import (
	"sort"

	"market-fantasy-league/models"
)

// TokenPerformance pairs a roster token's snapshotted start price with the
// live price at read time.
type TokenPerformance struct {
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	ImageURL       string  `json:"image_url"`
	StartPrice     float64 `json:"start_price"`
	CurrentPrice   float64 `json:"current_price"`
	PerformancePct float64 `json:"performance_pct"`
	Ghost          bool    `json:"ghost,omitempty"`
}

// PerformancePct computes percentage price movement. A zero start price
// (ghost token or malformed snapshot) contributes exactly 0, never NaN/Inf.
func PerformancePct(startPrice, currentPrice float64) float64 {
	if startPrice == 0 {
		return 0
	}
	return (currentPrice - startPrice) / startPrice * 100
}

// TeamScore is the arithmetic mean of the per-token percentage changes,
// unweighted by price or market cap. A team with fewer resolvable tokens
// than the draft size averages over however many are present; an empty set
// scores 0.
func TeamScore(performances []TokenPerformance) float64 {
	if len(performances) == 0 {
		return 0
	}
	var sum float64
	for _, p := range performances {
		sum += p.PerformancePct
	}
	return sum / float64(len(performances))
}

// RankTeams orders teams by TotalScore descending and assigns 1-based ranks.
// Ties break on earlier CreatedAt (earlier entrants rank higher), then on ID,
// so repeated invocations on the same input always produce the same order.
// The input slice is sorted in place.
func RankTeams(teams []models.Team) []models.Team {
	sort.SliceStable(teams, func(i, j int) bool {
		if teams[i].TotalScore != teams[j].TotalScore {
			return teams[i].TotalScore > teams[j].TotalScore
		}
		if !teams[i].CreatedAt.Equal(teams[j].CreatedAt) {
			return teams[i].CreatedAt.Before(teams[j].CreatedAt)
		}
		return teams[i].ID < teams[j].ID
	})
	for i := range teams {
		teams[i].Rank = i + 1
	}
	return teams
}
