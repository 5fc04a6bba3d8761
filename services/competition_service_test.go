package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"market-fantasy-league/models"
)

func TestNextCompetitionWindow_MidWeek(t *testing.T) {
	// Wednesday 12:00 UTC
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	start, end := NextCompetitionWindow(now)

	assert.Equal(t, time.Date(2026, 3, 8, 21, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Sunday, start.Weekday())
	assert.Equal(t, time.Date(2026, 3, 13, 21, 0, 0, 0, time.UTC), end)
	assert.Equal(t, time.Friday, end.Weekday())
}

func TestNextCompetitionWindow_SundayBefore21(t *testing.T) {
	now := time.Date(2026, 3, 8, 20, 59, 0, 0, time.UTC)

	start, _ := NextCompetitionWindow(now)

	// Same Sunday still qualifies while the boundary is ahead.
	assert.Equal(t, time.Date(2026, 3, 8, 21, 0, 0, 0, time.UTC), start)
}

func TestNextCompetitionWindow_ExactlyAtBoundaryRollsForward(t *testing.T) {
	now := time.Date(2026, 3, 8, 21, 0, 0, 0, time.UTC)

	start, _ := NextCompetitionWindow(now)

	assert.Equal(t, time.Date(2026, 3, 15, 21, 0, 0, 0, time.UTC), start)
}

func TestNextCompetitionWindow_NonUTCInput(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	// Sunday 23:30 local is Sunday 20:30 UTC, still before the boundary.
	now := time.Date(2026, 3, 8, 23, 30, 0, 0, loc)

	start, _ := NextCompetitionWindow(now)

	assert.Equal(t, time.Date(2026, 3, 8, 21, 0, 0, 0, time.UTC), start)
}

func TestInBlackoutWindow(t *testing.T) {
	day := func(h, m int) time.Time {
		return time.Date(2026, 3, 4, h, m, 0, 0, time.UTC)
	}

	assert.True(t, InBlackoutWindow(day(21, 0)))
	assert.True(t, InBlackoutWindow(day(23, 59)))
	assert.True(t, InBlackoutWindow(day(0, 0)))
	assert.True(t, InBlackoutWindow(day(8, 59)))

	assert.False(t, InBlackoutWindow(day(9, 0)))
	assert.False(t, InBlackoutWindow(day(12, 0)))
	assert.False(t, InBlackoutWindow(day(20, 59)))
}

func TestTeamPerformances_SharedBaselineAndGhosts(t *testing.T) {
	roster := map[string]models.CompetitionToken{
		"BTC": {TokenID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", StartPrice: 100},
		"ETH": {TokenID: "ethereum", Symbol: "ETH", Name: "Ethereum", StartPrice: 50},
	}
	quotes := map[string]MarketData{
		"bitcoin":  {Symbol: "BTC", CurrentPrice: 110},
		"ethereum": {Symbol: "ETH", CurrentPrice: 45},
	}

	team := &models.Team{}
	assert.NoError(t, team.SetTokenSymbols([]string{"BTC", "ETH", "GONE"}))

	perfs := teamPerformances(team, roster, quotes)
	assert.Len(t, perfs, 3)

	assert.InDelta(t, 10.0, perfs[0].PerformancePct, 1e-9)
	assert.InDelta(t, -10.0, perfs[1].PerformancePct, 1e-9)

	// Off-roster symbol ghosts instead of erroring out the whole team.
	assert.True(t, perfs[2].Ghost)
	assert.Equal(t, 0.0, perfs[2].PerformancePct)

	assert.InDelta(t, 0.0, TeamScore(perfs), 1e-9)
}

func TestTeamPerformances_MissingQuoteScoresZero(t *testing.T) {
	roster := map[string]models.CompetitionToken{
		"BTC": {TokenID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", StartPrice: 100},
		"ETH": {TokenID: "ethereum", Symbol: "ETH", Name: "Ethereum", StartPrice: 50},
	}
	// ETH has no live quote: delisted mid-competition, or the oracle is
	// down and the cache is cold.
	quotes := map[string]MarketData{
		"bitcoin": {Symbol: "BTC", CurrentPrice: 110},
	}

	team := &models.Team{}
	assert.NoError(t, team.SetTokenSymbols([]string{"BTC", "ETH"}))

	perfs := teamPerformances(team, roster, quotes)
	assert.Len(t, perfs, 2)

	assert.InDelta(t, 10.0, perfs[0].PerformancePct, 1e-9)

	// Must contribute exactly 0%, not a -100% crash to a zero price.
	assert.True(t, perfs[1].Ghost)
	assert.Equal(t, 0.0, perfs[1].PerformancePct)
	assert.Equal(t, "ETH", perfs[1].Symbol)

	assert.InDelta(t, 5.0, TeamScore(perfs), 1e-9)
}

func TestTeamPerformances_FullOutageAllGhosts(t *testing.T) {
	roster := map[string]models.CompetitionToken{
		"BTC": {TokenID: "bitcoin", Symbol: "BTC", StartPrice: 100},
		"SOL": {TokenID: "solana", Symbol: "SOL", StartPrice: 20},
	}

	team := &models.Team{}
	assert.NoError(t, team.SetTokenSymbols([]string{"BTC", "SOL"}))

	perfs := teamPerformances(team, roster, map[string]MarketData{})
	assert.Len(t, perfs, 2)
	for _, p := range perfs {
		assert.True(t, p.Ghost)
		assert.Equal(t, 0.0, p.PerformancePct)
	}
	assert.Equal(t, 0.0, TeamScore(perfs))
}

func TestCompetitionActivated(t *testing.T) {
	assert.False(t, (&models.Competition{Status: models.CompetitionStatusPending}).Activated())
	assert.True(t, (&models.Competition{Status: models.CompetitionStatusActive}).Activated())
	assert.True(t, (&models.Competition{Status: models.CompetitionStatusCompleted}).Activated())
}
