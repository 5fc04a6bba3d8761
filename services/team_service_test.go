package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-fantasy-league/models"
)

func testRoster(symbols ...string) map[string]models.CompetitionToken {
	roster := make(map[string]models.CompetitionToken, len(symbols))
	for i, s := range symbols {
		roster[s] = models.CompetitionToken{Symbol: s, TokenID: fmt.Sprintf("token-%d", i)}
	}
	return roster
}

func TestValidateTeamTokens_Valid(t *testing.T) {
	symbols := []string{"BTC", "ETH", "SOL", "ADA", "DOT", "LINK", "UNI", "ATOM", "NEAR", "FIL"}
	roster := testRoster(symbols...)

	assert.NoError(t, ValidateTeamTokens(symbols, roster))
}

func TestValidateTeamTokens_WrongSize(t *testing.T) {
	roster := testRoster("BTC", "ETH")

	err := ValidateTeamTokens([]string{"BTC", "ETH"}, roster)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly 10")

	var none []string
	assert.Error(t, ValidateTeamTokens(none, roster))

	eleven := []string{"BTC", "ETH", "SOL", "ADA", "DOT", "LINK", "UNI", "ATOM", "NEAR", "FIL", "LTC"}
	assert.Error(t, ValidateTeamTokens(eleven, testRoster(eleven...)))
}

func TestValidateTeamTokens_Duplicate(t *testing.T) {
	symbols := []string{"BTC", "ETH", "SOL", "ADA", "DOT", "LINK", "UNI", "ATOM", "NEAR", "BTC"}
	roster := testRoster(symbols...)

	err := ValidateTeamTokens(symbols, roster)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestValidateTeamTokens_CaseInsensitiveDuplicate(t *testing.T) {
	symbols := []string{"btc", "BTC", "SOL", "ADA", "DOT", "LINK", "UNI", "ATOM", "NEAR", "FIL"}
	roster := testRoster("BTC", "SOL", "ADA", "DOT", "LINK", "UNI", "ATOM", "NEAR", "FIL")

	err := ValidateTeamTokens(symbols, roster)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestValidateTeamTokens_OffRoster(t *testing.T) {
	symbols := []string{"BTC", "ETH", "SOL", "ADA", "DOT", "LINK", "UNI", "ATOM", "NEAR", "XXX"}
	roster := testRoster(symbols[:9]...)

	err := ValidateTeamTokens(symbols, roster)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not on the competition roster")
}

func TestValidateTeamTokens_EmptySymbol(t *testing.T) {
	symbols := []string{"BTC", "ETH", "SOL", "ADA", "DOT", "LINK", "UNI", "ATOM", "NEAR", "  "}
	roster := testRoster(symbols...)

	err := ValidateTeamTokens(symbols, roster)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty token symbol")
}

func TestTeamTokenSymbolsRoundTrip(t *testing.T) {
	team := &models.Team{}
	symbols := []string{"BTC", "ETH", "SOL"}

	require.NoError(t, team.SetTokenSymbols(symbols))
	assert.Equal(t, symbols, team.TokenSymbols())
}

func TestTeamTokenSymbolsCorruptColumn(t *testing.T) {
	team := &models.Team{TokensJSON: "{not json"}
	assert.Nil(t, team.TokenSymbols())
}
