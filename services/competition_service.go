// market-fantasy-league/services/competition_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"market-fantasy-league/middleware"
	"market-fantasy-league/models"
	"market-fantasy-league/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const rosterSize = 100

// competitionClock is the wall clock the lifecycle runs on. Draft windows
// open Sunday 21:00 and close scoring Friday 21:00, always UTC.
var competitionClock = time.UTC

// NextCompetitionWindow computes the bounds for a fresh competition: start at
// the next Sunday 21:00 (strictly after now), end five days later (Friday
// 21:00).
func NextCompetitionWindow(now time.Time) (start, end time.Time) {
	now = now.In(competitionClock)
	daysUntilSunday := (int(time.Sunday) - int(now.Weekday()) + 7) % 7
	candidate := time.Date(now.Year(), now.Month(), now.Day(), 21, 0, 0, 0, competitionClock).
		AddDate(0, 0, daysUntilSunday)
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate, candidate.AddDate(0, 0, 5)
}

// InBlackoutWindow reports whether team edits are blocked by the daily
// 21:00–09:00 maintenance window.
func InBlackoutWindow(now time.Time) bool {
	h := now.In(competitionClock).Hour()
	return h >= 21 || h < 9
}

// SweepSummary is the JSON body returned by the cron sweep endpoints.
type SweepSummary struct {
	Checked    int      `json:"checked"`
	Activated  int      `json:"activated"`
	Completed  int      `json:"completed"`
	Errors     []string `json:"errors"`
	DurationMS int64    `json:"duration_ms"`
}

type CompetitionService struct {
	DB     *gorm.DB
	Oracle *PriceOracleClient
	Prizes *PrizeService
}

func NewCompetitionService(db *gorm.DB, oracle *PriceOracleClient, prizes *PrizeService) *CompetitionService {
	return &CompetitionService{DB: db, Oracle: oracle, Prizes: prizes}
}

// currentCompetition returns the league's most recent competition. Shared by
// the drafting, performance and leaderboard read paths.
func currentCompetition(db *gorm.DB, leagueID string) (*models.Competition, error) {
	var competition models.Competition
	err := db.Where("league_id = ?", leagueID).
		Order("start_time DESC").
		First(&competition).Error
	if err != nil {
		return nil, err
	}
	return &competition, nil
}

// RunSweep drives both time-gated transitions across every competition.
// Each transition is claimed with a conditional update, so concurrent sweeps
// (cron endpoint + in-process scheduler) cannot double-fire side effects.
// The loser of the race sees zero rows affected and moves on.
func (s *CompetitionService) RunSweep(ctx context.Context, now time.Time) SweepSummary {
	started := time.Now()
	summary := SweepSummary{Errors: []string{}}

	var pending []models.Competition
	if err := s.DB.Where("status = ? AND start_time <= ?", models.CompetitionStatusPending, now).
		Find(&pending).Error; err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("fetch pending: %v", err))
	}
	for i := range pending {
		summary.Checked++
		if err := s.activateCompetition(ctx, &pending[i]); err != nil {
			if !errors.Is(err, errTransitionLost) {
				summary.Errors = append(summary.Errors, fmt.Sprintf("activate %s: %v", pending[i].ID, err))
			}
			continue
		}
		summary.Activated++
	}

	var active []models.Competition
	if err := s.DB.Where("status = ? AND end_time <= ?", models.CompetitionStatusActive, now).
		Find(&active).Error; err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("fetch active: %v", err))
	}
	for i := range active {
		summary.Checked++
		if err := s.completeCompetition(ctx, &active[i]); err != nil {
			if !errors.Is(err, errTransitionLost) {
				summary.Errors = append(summary.Errors, fmt.Sprintf("complete %s: %v", active[i].ID, err))
			}
			continue
		}
		summary.Completed++
	}

	middleware.CountTransition("activated", summary.Activated)
	middleware.CountTransition("completed", summary.Completed)

	summary.DurationMS = time.Since(started).Milliseconds()
	return summary
}

// errTransitionLost means another sweep claimed the transition first.
// Callers treat it as a silent no-op.
var errTransitionLost = errors.New("transition already claimed")

// activateCompetition snapshots start prices and flips pending→active.
// The oracle fetch happens before the transaction: if it fails, the
// competition stays pending with no partial snapshot and is retried next
// sweep.
func (s *CompetitionService) activateCompetition(ctx context.Context, competition *models.Competition) error {
	var roster []models.CompetitionToken
	if err := s.DB.Where("competition_id = ?", competition.ID).Find(&roster).Error; err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}
	if len(roster) == 0 {
		return fmt.Errorf("competition has no roster")
	}

	ids := make([]string, 0, len(roster))
	for _, t := range roster {
		ids = append(ids, t.TokenID)
	}
	quotes, err := s.Oracle.MarketDataByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("start price snapshot aborted: %w", err)
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Competition{}).
			Where("id = ? AND status = ?", competition.ID, models.CompetitionStatusPending).
			Update("status", models.CompetitionStatusActive)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errTransitionLost
		}

		for _, t := range roster {
			// A token the oracle no longer serves snapshots at 0 and
			// scores as a ghost for the whole competition.
			startPrice := quotes[t.TokenID].CurrentPrice
			if err := tx.Model(&models.CompetitionToken{}).
				Where("competition_id = ? AND token_id = ?", competition.ID, t.TokenID).
				Update("start_price", startPrice).Error; err != nil {
				return fmt.Errorf("failed to write start price for %s: %w", t.Symbol, err)
			}
		}
		competition.Status = models.CompetitionStatusActive
		log.Printf("[Sweep] activated competition %s (%d roster tokens)", competition.ID, len(roster))
		return nil
	})
}

// completeCompetition scores every team, ranks them, distributes prizes and
// flips active→completed. The status claim runs first inside the transaction
// so a rollback reverts it; observably the flip still lands last.
func (s *CompetitionService) completeCompetition(ctx context.Context, competition *models.Competition) error {
	var roster []models.CompetitionToken
	if err := s.DB.Where("competition_id = ?", competition.ID).Find(&roster).Error; err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}
	ids := make([]string, 0, len(roster))
	for _, t := range roster {
		ids = append(ids, t.TokenID)
	}
	// Final scoring needs real closing prices; if the oracle is down the
	// competition stays active and the next sweep retries.
	quotes, err := s.Oracle.MarketDataByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("final scoring aborted: %w", err)
	}

	var league models.League
	if err := s.DB.First(&league, "id = ?", competition.LeagueID).Error; err != nil {
		return fmt.Errorf("failed to load league: %w", err)
	}
	split := PrizeSplit{First: league.FirstPlacePct, Second: league.SecondPlacePct, Third: league.ThirdPlacePct}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Competition{}).
			Where("id = ? AND status = ?", competition.ID, models.CompetitionStatusActive).
			Update("status", models.CompetitionStatusCompleted)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errTransitionLost
		}
		competition.Status = models.CompetitionStatusCompleted

		var teams []models.Team
		if err := tx.Where("league_id = ? AND has_valid_entry = ?", competition.LeagueID, true).
			Find(&teams).Error; err != nil {
			return fmt.Errorf("failed to load teams: %w", err)
		}

		startBySymbol := make(map[string]models.CompetitionToken, len(roster))
		for _, t := range roster {
			startBySymbol[t.Symbol] = t
		}
		for i := range teams {
			perfs := teamPerformances(&teams[i], startBySymbol, quotes)
			teams[i].TotalScore = TeamScore(perfs)
		}
		RankTeams(teams)
		for i := range teams {
			if err := tx.Model(&models.Team{}).Where("id = ?", teams[i].ID).
				Updates(map[string]interface{}{
					"total_score": teams[i].TotalScore,
					"rank":        teams[i].Rank,
				}).Error; err != nil {
				return fmt.Errorf("failed to persist rank for team %s: %w", teams[i].ID, err)
			}
		}

		if len(teams) > 0 {
			if _, err := s.Prizes.distributeTx(tx, competition, split, teams); err != nil &&
				!errors.Is(err, ErrAlreadyDistributed) {
				return fmt.Errorf("prize distribution failed: %w", err)
			}
		} else {
			log.Printf("[Sweep] competition %s completed with no eligible teams, nothing to distribute", competition.ID)
		}

		log.Printf("[Sweep] completed competition %s (%d teams ranked)", competition.ID, len(teams))
		return nil
	})
}

// teamPerformances resolves a team's symbols against the roster snapshot and
// the live quote map. Off-roster symbols and roster tokens with no live
// quote (delisted mid-competition, oracle outage with a cold cache) score as
// ghosts contributing exactly 0%, never as a -100% move to a zero price.
func teamPerformances(team *models.Team, roster map[string]models.CompetitionToken, quotes map[string]MarketData) []TokenPerformance {
	symbols := team.TokenSymbols()
	perfs := make([]TokenPerformance, 0, len(symbols))
	for _, sym := range symbols {
		t, ok := roster[sym]
		if !ok {
			g := GhostRecord(sym)
			perfs = append(perfs, TokenPerformance{Symbol: g.Symbol, Name: g.Name, Ghost: true})
			continue
		}
		md, ok := quotes[t.TokenID]
		if !ok {
			perfs = append(perfs, TokenPerformance{
				Symbol:     t.Symbol,
				Name:       t.Name,
				ImageURL:   t.ImageURL,
				StartPrice: t.StartPrice,
				Ghost:      true,
			})
			continue
		}
		current := md.CurrentPrice
		perfs = append(perfs, TokenPerformance{
			Symbol:         t.Symbol,
			Name:           t.Name,
			ImageURL:       t.ImageURL,
			StartPrice:     t.StartPrice,
			CurrentPrice:   current,
			PerformancePct: PerformancePct(t.StartPrice, current),
		})
	}
	return perfs
}

// --- HTTP handlers ---

// CheckCompetitions is the cron-triggered sweep endpoint.
// POST /check-competitions (bearer-gated).
func (s *CompetitionService) CheckCompetitions(c *fiber.Ctx) error {
	summary := s.RunSweep(c.Context(), time.Now())
	return c.JSON(summary)
}

// GetCurrentCompetition returns a league's current competition with its
// locked roster. GET /leagues/:slug/competition
func (s *CompetitionService) GetCurrentCompetition(c *fiber.Ctx) error {
	var league models.League
	if err := s.DB.First(&league, "slug = ?", c.Params("slug")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "league not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	var competition models.Competition
	err := s.DB.Preload("Tokens", func(db *gorm.DB) *gorm.DB {
		return db.Order("market_cap_rank ASC")
	}).Where("league_id = ?", league.ID).
		Order("start_time DESC").
		First(&competition).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "no competition for this league"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(competition)
}

// ResetCompetition is the administrative escape hatch: delete every
// competition (cascading rosters and distribution events), fetch a fresh
// top-100 roster and create a new pending competition on the computed
// window. POST /reset-competition (bearer-gated).
func (s *CompetitionService) ResetCompetition(c *fiber.Ctx) error {
	type Req struct {
		LeagueID string `json:"league_id,omitempty"`
	}
	var req Req
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
		}
	}

	var league models.League
	query := s.DB.Where("is_active = ?", true)
	if req.LeagueID != "" {
		query = query.Where("id = ?", req.LeagueID)
	} else {
		query = query.Where("league_type = ?", models.LeagueTypeMain)
	}
	if err := query.First(&league).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "league not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error fetching league"})
	}

	// Fetch the roster before touching the DB. An oracle outage must not
	// leave the league without a competition.
	top, err := s.Oracle.TopTokens(c.Context(), rosterSize)
	if err != nil {
		log.Printf("[Reset] top tokens fetch failed: %v", err)
		return c.Status(502).JSON(fiber.Map{"error": "price oracle unavailable, reset aborted"})
	}

	startTime, endTime := NextCompetitionWindow(time.Now())
	competition := &models.Competition{
		ID:        uuid.NewString(),
		LeagueID:  league.ID,
		StartTime: startTime,
		EndTime:   endTime,
		Status:    models.CompetitionStatusPending,
		PrizePool: league.TotalPrizePool,
	}

	titleCaser := cases.Title(language.English)
	tokens := make([]models.CompetitionToken, 0, len(top))
	for i, md := range top {
		rank := i + 1
		if md.MarketCapRank != nil {
			rank = *md.MarketCapRank
		}
		imageURL := md.ImageURL
		// Best effort: mirror provider images to our own CDN so roster
		// pages survive provider hotlink limits.
		if mirrored, mErr := utils.MirrorImageToR2(c.Context(), md.ImageURL, "tokens/"+md.TokenID); mErr == nil {
			imageURL = mirrored
		}
		tokens = append(tokens, models.CompetitionToken{
			ID:            uuid.NewString(),
			CompetitionID: competition.ID,
			TokenID:       md.TokenID,
			Symbol:        md.Symbol,
			Name:          titleCaser.String(md.Name),
			ImageURL:      imageURL,
			MarketCapRank: rank,
		})
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		// Delete in dependency order, distribution events first.
		if err := tx.Where("distribution_id IN (?)",
			tx.Model(&models.PrizeDistribution{}).Select("id").Where("league_id = ?", league.ID),
		).Delete(&models.PrizeAward{}).Error; err != nil {
			return err
		}
		if err := tx.Where("league_id = ?", league.ID).Delete(&models.PrizeDistribution{}).Error; err != nil {
			return err
		}
		if err := tx.Where("competition_id IN (?)",
			tx.Model(&models.Competition{}).Select("id").Where("league_id = ?", league.ID),
		).Delete(&models.CompetitionToken{}).Error; err != nil {
			return err
		}
		if err := tx.Where("league_id = ?", league.ID).Delete(&models.Competition{}).Error; err != nil {
			return err
		}

		if err := tx.Create(competition).Error; err != nil {
			return err
		}
		// Idempotent bulk insert: duplicate tokens for the same
		// competition are skipped, not errored.
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "competition_id"}, {Name: "token_id"}},
			DoNothing: true,
		}).Create(&tokens).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		log.Printf("[Reset] transaction failed: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "reset failed"})
	}

	log.Printf("[Reset] new competition %s for league %s (%d tokens, starts %s)",
		competition.ID, league.Slug, len(tokens), startTime.Format(time.RFC3339))
	return c.Status(201).JSON(fiber.Map{
		"message":     "competition reset",
		"competition": competition,
		"roster_size": len(tokens),
	})
}
