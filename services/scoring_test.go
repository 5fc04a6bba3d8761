package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"market-fantasy-league/models"
)

func TestPerformancePct(t *testing.T) {
	assert.InDelta(t, 10.0, PerformancePct(100, 110), 1e-9)
	assert.InDelta(t, -10.0, PerformancePct(100, 90), 1e-9)
	assert.InDelta(t, 0.0, PerformancePct(100, 100), 1e-9)

	// Zero start price must contribute exactly 0, never NaN or Inf
	assert.Equal(t, 0.0, PerformancePct(0, 123.45))
	assert.Equal(t, 0.0, PerformancePct(0, 0))
}

func TestTeamScore_OffsettingMoves(t *testing.T) {
	perfs := []TokenPerformance{
		{Symbol: "BTC", PerformancePct: 10},
		{Symbol: "ETH", PerformancePct: -10},
	}
	assert.InDelta(t, 0.0, TeamScore(perfs), 1e-9)
}

func TestTeamScore_Mean(t *testing.T) {
	perfs := []TokenPerformance{
		{PerformancePct: 5},
		{PerformancePct: 10},
		{PerformancePct: 15},
	}
	assert.InDelta(t, 10.0, TeamScore(perfs), 1e-9)
}

func TestTeamScore_Empty(t *testing.T) {
	assert.Equal(t, 0.0, TeamScore(nil))
	assert.Equal(t, 0.0, TeamScore([]TokenPerformance{}))
}

func TestTeamScore_GhostDragsAverage(t *testing.T) {
	// A ghost token scores 0 but still counts in the denominator.
	perfs := []TokenPerformance{
		{PerformancePct: 20},
		{PerformancePct: 0, Ghost: true},
	}
	assert.InDelta(t, 10.0, TeamScore(perfs), 1e-9)
}

func TestRankTeams_OrdersByScoreDesc(t *testing.T) {
	teams := []models.Team{
		{ID: "a", TotalScore: 1.5},
		{ID: "b", TotalScore: 9.9},
		{ID: "c", TotalScore: -2.0},
		{ID: "d", TotalScore: 4.2},
	}

	ranked := RankTeams(teams)

	assert.Equal(t, []string{"b", "d", "a", "c"}, []string{ranked[0].ID, ranked[1].ID, ranked[2].ID, ranked[3].ID})
	for i, team := range ranked {
		assert.Equal(t, i+1, team.Rank)
	}
}

func TestRankTeams_TieBreaksOnCreatedAtThenID(t *testing.T) {
	earlier := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Hour)

	teams := []models.Team{
		{ID: "z", TotalScore: 5, Timestamps: models.Timestamps{CreatedAt: later}},
		{ID: "m", TotalScore: 5, Timestamps: models.Timestamps{CreatedAt: earlier}},
		{ID: "a", TotalScore: 5, Timestamps: models.Timestamps{CreatedAt: later}},
	}

	ranked := RankTeams(teams)

	// Earlier draft wins the tie, then lexicographic ID.
	assert.Equal(t, "m", ranked[0].ID)
	assert.Equal(t, "a", ranked[1].ID)
	assert.Equal(t, "z", ranked[2].ID)
}

func TestRankTeams_Deterministic(t *testing.T) {
	build := func() []models.Team {
		ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		return []models.Team{
			{ID: "t3", TotalScore: 2, Timestamps: models.Timestamps{CreatedAt: ts}},
			{ID: "t1", TotalScore: 2, Timestamps: models.Timestamps{CreatedAt: ts}},
			{ID: "t2", TotalScore: 7, Timestamps: models.Timestamps{CreatedAt: ts}},
		}
	}

	first := RankTeams(build())
	second := RankTeams(build())

	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Rank, second[i].Rank)
	}
}
