package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-fantasy-league/models"
)

func TestPrizeSplit_Validate(t *testing.T) {
	assert.NoError(t, PrizeSplit{First: 50, Second: 30, Third: 20}.Validate())
	assert.NoError(t, PrizeSplit{First: 100}.Validate())
	assert.NoError(t, PrizeSplit{First: 33.3, Second: 33.4, Third: 33.3}.Validate())

	assert.Error(t, PrizeSplit{First: 50, Second: 30, Third: 19}.Validate())
	assert.Error(t, PrizeSplit{First: 120, Second: -20}.Validate())
	assert.Error(t, PrizeSplit{}.Validate())
}

func TestPrizeSplit_PercentagesDropsZeroTail(t *testing.T) {
	assert.Equal(t, []float64{50, 30, 20}, PrizeSplit{First: 50, Second: 30, Third: 20}.Percentages())
	assert.Equal(t, []float64{100}, PrizeSplit{First: 100}.Percentages())
	assert.Equal(t, []float64{70, 30}, PrizeSplit{First: 70, Second: 30}.Percentages())
}

func TestComputePayouts_ThreeTiers(t *testing.T) {
	ranked := []models.Team{
		{ID: "t1", UserID: "u1", TotalScore: 12.5},
		{ID: "t2", UserID: "u2", TotalScore: 8.0},
		{ID: "t3", UserID: "u3", TotalScore: 3.2},
		{ID: "t4", UserID: "u4", TotalScore: 1.0},
		{ID: "t5", UserID: "u5", TotalScore: -4.0},
	}

	awards, err := ComputePayouts(10.0, PrizeSplit{First: 50, Second: 30, Third: 20}, ranked)
	require.NoError(t, err)
	require.Len(t, awards, 3)

	assert.InDelta(t, 5.0, awards[0].PrizeAmount, 1e-9)
	assert.InDelta(t, 3.0, awards[1].PrizeAmount, 1e-9)
	assert.InDelta(t, 2.0, awards[2].PrizeAmount, 1e-9)

	assert.Equal(t, 1, awards[0].Rank)
	assert.Equal(t, "t1", awards[0].TeamID)
	assert.Equal(t, "u3", awards[2].UserID)

	var sum float64
	for _, a := range awards {
		sum += a.PrizeAmount
	}
	assert.InDelta(t, 10.0, sum, 1e-9)
}

func TestComputePayouts_FewerTeamsThanTiers(t *testing.T) {
	ranked := []models.Team{
		{ID: "t1", UserID: "u1", TotalScore: 2.0},
		{ID: "t2", UserID: "u2", TotalScore: 1.0},
	}

	awards, err := ComputePayouts(100.0, PrizeSplit{First: 50, Second: 30, Third: 20}, ranked)
	require.NoError(t, err)
	require.Len(t, awards, 2)

	// Third-place share stays in the pool when only two teams competed.
	assert.InDelta(t, 50.0, awards[0].PrizeAmount, 1e-9)
	assert.InDelta(t, 30.0, awards[1].PrizeAmount, 1e-9)
}

func TestComputePayouts_NoTeams(t *testing.T) {
	_, err := ComputePayouts(10.0, PrizeSplit{First: 50, Second: 30, Third: 20}, nil)
	assert.Error(t, err)
}

func TestComputePayouts_InvalidSplit(t *testing.T) {
	ranked := []models.Team{{ID: "t1", UserID: "u1"}}
	_, err := ComputePayouts(10.0, PrizeSplit{First: 90}, ranked)
	assert.Error(t, err)
}

func TestRankedForPayout_ExcludesUnrankedTeams(t *testing.T) {
	teams := []models.Team{
		{ID: "t-late", UserID: "u-late", Rank: 0},
		{ID: "t2", UserID: "u2", Rank: 2, TotalScore: 4.0},
		{ID: "t1", UserID: "u1", Rank: 1, TotalScore: 9.0},
		{ID: "t-late2", UserID: "u-late2", Rank: 0},
	}

	ranked := rankedForPayout(teams)
	require.Len(t, ranked, 2)
	assert.Equal(t, "t1", ranked[0].ID)
	assert.Equal(t, "t2", ranked[1].ID)

	// First place must go to the rank-1 team, not whichever row the
	// database returned first.
	awards, err := ComputePayouts(10.0, PrizeSplit{First: 50, Second: 30, Third: 20}, ranked)
	require.NoError(t, err)
	assert.Equal(t, "t1", awards[0].TeamID)
	assert.InDelta(t, 5.0, awards[0].PrizeAmount, 1e-9)
}

func TestRankedForPayout_AllUnranked(t *testing.T) {
	teams := []models.Team{
		{ID: "a", Rank: 0},
		{ID: "b", Rank: 0},
	}
	assert.Empty(t, rankedForPayout(teams))
}

func TestComputePayouts_SingleTierTable(t *testing.T) {
	ranked := []models.Team{
		{ID: "t1", UserID: "u1", TotalScore: 9.0},
		{ID: "t2", UserID: "u2", TotalScore: 5.0},
	}

	awards, err := ComputePayouts(7.5, PrizeSplit{First: 100}, ranked)
	require.NoError(t, err)
	require.Len(t, awards, 1)
	assert.InDelta(t, 7.5, awards[0].PrizeAmount, 1e-9)
	assert.Equal(t, "t1", awards[0].TeamID)
}
