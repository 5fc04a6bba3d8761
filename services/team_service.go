// market-fantasy-league/services/team_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"market-fantasy-league/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// priceFreshness is how old a cached quote may be before the read path goes
// back to the oracle directly.
const priceFreshness = 5 * time.Minute

// ValidateTeamTokens enforces the draft invariant: exactly TeamSize distinct
// symbols, all present on the competition roster.
func ValidateTeamTokens(symbols []string, roster map[string]models.CompetitionToken) error {
	if len(symbols) != models.TeamSize {
		return fmt.Errorf("team must have exactly %d tokens, got %d", models.TeamSize, len(symbols))
	}
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		sym := strings.ToUpper(strings.TrimSpace(s))
		if sym == "" {
			return fmt.Errorf("empty token symbol")
		}
		if seen[sym] {
			return fmt.Errorf("duplicate token %s", sym)
		}
		seen[sym] = true
		if _, ok := roster[sym]; !ok {
			return fmt.Errorf("token %s is not on the competition roster", sym)
		}
	}
	return nil
}

type TeamService struct {
	DB     *gorm.DB
	Oracle *PriceOracleClient
}

func NewTeamService(db *gorm.DB, oracle *PriceOracleClient) *TeamService {
	return &TeamService{DB: db, Oracle: oracle}
}

// SaveTeam creates or replaces the authenticated user's team for a league.
// Allowed only while the current competition is still pending (the menu is
// locked after activation) and outside the daily blackout window, and only
// with a confirmed entry on file. POST /s/teams
func (s *TeamService) SaveTeam(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing user context"})
	}

	type Req struct {
		LeagueID string   `json:"league_id" validate:"required"`
		TeamName string   `json:"team_name" validate:"required"`
		Tokens   []string `json:"tokens" validate:"required"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.LeagueID == "" || req.TeamName == "" {
		return c.Status(400).JSON(fiber.Map{"error": "league_id and team_name are required"})
	}

	var league models.League
	if err := s.DB.First(&league, "id = ? AND is_active = ?", req.LeagueID, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "league not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	// Pay-to-play gate
	var entry models.LeagueEntry
	if err := s.DB.Where("league_id = ? AND user_id = ? AND status = ?",
		league.ID, userID, models.EntryStatusConfirmed).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(403).JSON(fiber.Map{"error": "no confirmed entry for this league"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	competition, err := currentCompetition(s.DB, league.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "no competition open for drafting"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if competition.Activated() {
		return c.Status(409).JSON(fiber.Map{"error": "draft is closed, competition roster is locked"})
	}
	if InBlackoutWindow(time.Now()) {
		return c.Status(409).JSON(fiber.Map{"error": "team edits are blocked during the 21:00-09:00 window"})
	}

	var rosterTokens []models.CompetitionToken
	if err := s.DB.Where("competition_id = ?", competition.ID).Find(&rosterTokens).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB error loading roster"})
	}
	roster := make(map[string]models.CompetitionToken, len(rosterTokens))
	for _, t := range rosterTokens {
		roster[t.Symbol] = t
	}

	normalized := make([]string, 0, len(req.Tokens))
	for _, t := range req.Tokens {
		normalized = append(normalized, strings.ToUpper(strings.TrimSpace(t)))
	}
	if err := ValidateTeamTokens(normalized, roster); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	// Upsert on the (user, league) unique constraint: a user has one team
	// per league, re-saving during the draft window replaces it.
	var team models.Team
	err = s.DB.Where("league_id = ? AND user_id = ?", league.ID, userID).First(&team).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		team = models.Team{
			ID:            uuid.NewString(),
			LeagueID:      league.ID,
			UserID:        userID,
			TeamName:      req.TeamName,
			HasValidEntry: true,
		}
		if err := team.SetTokenSymbols(normalized); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "failed to encode tokens"})
		}
		if err := s.DB.Create(&team).Error; err != nil {
			log.Printf("DB Error creating team: %v", err)
			return c.Status(500).JSON(fiber.Map{"error": "failed to save team"})
		}
		return c.Status(201).JSON(team)
	case err != nil:
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	default:
		team.TeamName = req.TeamName
		if err := team.SetTokenSymbols(normalized); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "failed to encode tokens"})
		}
		if err := s.DB.Model(&models.Team{}).Where("id = ?", team.ID).
			Updates(map[string]interface{}{
				"team_name": team.TeamName,
				"tokens":    team.TokensJSON,
			}).Error; err != nil {
			log.Printf("DB Error updating team: %v", err)
			return c.Status(500).JSON(fiber.Map{"error": "failed to save team"})
		}
		return c.JSON(team)
	}
}

// GetMyTeam returns the authenticated user's team for a league.
// GET /s/teams/me?league=<league_id>
func (s *TeamService) GetMyTeam(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	leagueID := c.Query("league")
	if leagueID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "league query parameter is required"})
	}
	var team models.Team
	if err := s.DB.Where("league_id = ? AND user_id = ?", leagueID, userID).First(&team).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "team not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(team)
}

// GetTeamPerformance returns a team's live per-token performance against the
// competition's start-price snapshot. Never hard-fails on oracle trouble:
// missing quotes degrade to ghost records. GET /s/teams/:id/performance
func (s *TeamService) GetTeamPerformance(c *fiber.Ctx) error {
	var team models.Team
	if err := s.DB.First(&team, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "team not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	competition, err := currentCompetition(s.DB, team.LeagueID)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "no competition for this league"})
	}

	perfs, err := s.livePerformances(c.Context(), &team, competition.ID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB error loading roster"})
	}
	return c.JSON(fiber.Map{
		"team_id":     team.ID,
		"team_name":   team.TeamName,
		"total_score": TeamScore(perfs),
		"tokens":      perfs,
	})
}

// GetLeaderboard ranks every valid team in a league. Completed competitions
// serve the stored final ranking; live ones recompute wholesale from current
// prices. GET /leagues/:slug/leaderboard
func (s *TeamService) GetLeaderboard(c *fiber.Ctx) error {
	var league models.League
	if err := s.DB.First(&league, "slug = ?", c.Params("slug")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "league not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	competition, err := currentCompetition(s.DB, league.ID)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "no competition for this league"})
	}

	var teams []models.Team
	if err := s.DB.Where("league_id = ? AND has_valid_entry = ?", league.ID, true).
		Find(&teams).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	if competition.Status != models.CompetitionStatusCompleted {
		for i := range teams {
			perfs, err := s.livePerformances(c.Context(), &teams[i], competition.ID)
			if err != nil {
				return c.Status(500).JSON(fiber.Map{"error": "DB error loading roster"})
			}
			teams[i].TotalScore = TeamScore(perfs)
		}
	}
	RankTeams(teams)

	return c.JSON(fiber.Map{
		"competition_id":     competition.ID,
		"competition_status": competition.Status,
		"teams":              teams,
	})
}

// livePerformances builds a team's performance set from the roster snapshot
// plus the freshest price available: worker cache first, direct oracle fetch
// for stale or missing entries, ghost records as the floor.
func (s *TeamService) livePerformances(ctx context.Context, team *models.Team, competitionID string) ([]TokenPerformance, error) {
	var rosterTokens []models.CompetitionToken
	if err := s.DB.Where("competition_id = ?", competitionID).Find(&rosterTokens).Error; err != nil {
		return nil, err
	}
	roster := make(map[string]models.CompetitionToken, len(rosterTokens))
	ids := make([]string, 0, len(rosterTokens))
	for _, t := range rosterTokens {
		roster[t.Symbol] = t
		ids = append(ids, t.TokenID)
	}

	quotes := make(map[string]MarketData, len(ids))
	var cached []models.TokenPrice
	if err := s.DB.Where("token_id IN ?", ids).Find(&cached).Error; err != nil {
		log.Printf("[Teams] price cache read failed, falling back to oracle: %v", err)
	}
	cutoff := time.Now().Add(-priceFreshness)
	var staleSymbols []string
	fresh := make(map[string]bool, len(cached))
	for _, p := range cached {
		if p.FetchedAt.After(cutoff) {
			quotes[p.TokenID] = MarketData{
				TokenID:      p.TokenID,
				Symbol:       p.Symbol,
				CurrentPrice: p.CurrentPrice,
			}
			fresh[p.TokenID] = true
		}
	}
	for _, t := range rosterTokens {
		if !fresh[t.TokenID] {
			staleSymbols = append(staleSymbols, t.Symbol)
		}
	}
	if len(staleSymbols) > 0 {
		// MarketDataBySymbols degrades to ghosts on outage, so this
		// never fails the whole read.
		for _, md := range s.Oracle.MarketDataBySymbols(ctx, staleSymbols) {
			if !md.Ghost {
				quotes[md.TokenID] = md
			}
		}
	}

	return teamPerformances(team, roster, quotes), nil
}
