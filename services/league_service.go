// market-fantasy-league/services/league_service.go
package services

import (
	"errors"
	"log"
	"time"

	"market-fantasy-league/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type LeagueService struct {
	DB *gorm.DB
}

func NewLeagueService(db *gorm.DB) *LeagueService {
	return &LeagueService{DB: db}
}

// isDuplicateKeyErr relies on gorm.Config{TranslateError: true} mapping the
// driver's unique-violation onto gorm.ErrDuplicatedKey.
func isDuplicateKeyErr(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// CreateLeague creates a competitive pool (admin/seed only).
// POST /admin/leagues
func (s *LeagueService) CreateLeague(c *fiber.Ctx) error {
	type Req struct {
		Name           string  `json:"name" validate:"required"`
		EntryFee       float64 `json:"entry_fee"`
		FirstPlacePct  float64 `json:"first_place_pct"`
		SecondPlacePct float64 `json:"second_place_pct"`
		ThirdPlacePct  float64 `json:"third_place_pct"`
		LeagueType     string  `json:"league_type"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name is required"})
	}
	if req.EntryFee < 0 {
		return c.Status(400).JSON(fiber.Map{"error": "entry_fee must be non-negative"})
	}

	split := PrizeSplit{First: req.FirstPlacePct, Second: req.SecondPlacePct, Third: req.ThirdPlacePct}
	if req.FirstPlacePct == 0 && req.SecondPlacePct == 0 && req.ThirdPlacePct == 0 {
		// Default split
		split = PrizeSplit{First: 50, Second: 30, Third: 20}
	}
	if err := split.Validate(); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	leagueType := req.LeagueType
	if leagueType == "" {
		leagueType = models.LeagueTypeMain
	}

	league := &models.League{
		ID:             uuid.NewString(),
		Slug:           slug.Make(req.Name),
		Name:           req.Name,
		EntryFee:       req.EntryFee,
		FirstPlacePct:  split.First,
		SecondPlacePct: split.Second,
		ThirdPlacePct:  split.Third,
		IsActive:       true,
		LeagueType:     leagueType,
	}
	if err := s.DB.Create(league).Error; err != nil {
		log.Printf("DB Error creating league: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to create league"})
	}
	return c.Status(201).JSON(league)
}

// GetLeagues lists active leagues. GET /leagues
func (s *LeagueService) GetLeagues(c *fiber.Ctx) error {
	var leagues []models.League
	if err := s.DB.Where("is_active = ?", true).Order("created_at ASC").Find(&leagues).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch leagues"})
	}
	return c.JSON(leagues)
}

// GetLeagueBySlug returns one league. GET /leagues/:slug
func (s *LeagueService) GetLeagueBySlug(c *fiber.Ctx) error {
	var league models.League
	if err := s.DB.First(&league, "slug = ?", c.Params("slug")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "league not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(league)
}

// CreateEntry records a pending entry-fee payment for the authenticated
// user. The payment processor (or an admin) confirms it later; only a
// CONFIRMED entry unlocks team saving. POST /leagues/:slug/entries
func (s *LeagueService) CreateEntry(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing user context"})
	}

	type Req struct {
		TransactionHash string  `json:"transaction_hash" validate:"required"`
		AmountPaid      float64 `json:"amount_paid"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.TransactionHash == "" {
		return c.Status(400).JSON(fiber.Map{"error": "transaction_hash is required"})
	}

	var league models.League
	if err := s.DB.First(&league, "slug = ? AND is_active = ?", c.Params("slug"), true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "league not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if req.AmountPaid < league.EntryFee {
		return c.Status(400).JSON(fiber.Map{"error": "amount_paid is below the league entry fee"})
	}

	var existing models.LeagueEntry
	if err := s.DB.Where("league_id = ? AND user_id = ? AND status = ?",
		league.ID, userID, models.EntryStatusConfirmed).First(&existing).Error; err == nil {
		return c.Status(409).JSON(fiber.Map{"error": "user already has a confirmed entry", "entry": existing})
	}
	if err := s.DB.Where("transaction_hash = ?", req.TransactionHash).
		First(&existing).Error; err == nil {
		return c.Status(409).JSON(fiber.Map{"error": "transaction_hash already recorded"})
	}

	entry := &models.LeagueEntry{
		LeagueID:        league.ID,
		UserID:          userID,
		TransactionHash: req.TransactionHash,
		AmountPaid:      req.AmountPaid,
		Status:          models.EntryStatusPending,
	}
	if err := s.DB.Create(entry).Error; err != nil {
		// Race on the transaction_hash unique index past the pre-check.
		if isDuplicateKeyErr(err) {
			return c.Status(409).JSON(fiber.Map{"error": "transaction_hash already recorded"})
		}
		log.Printf("DB Error creating entry: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to record entry"})
	}
	return c.Status(201).JSON(entry)
}

// ConfirmEntry flips an entry PENDING→CONFIRMED, grows the league pool and
// participant count, tops up the current competition's prize pool and marks
// the user's team (if already drafted) as valid. Conditional update keeps
// confirmation once-only under concurrent callbacks.
// POST /admin/entries/:id/confirm
func (s *LeagueService) ConfirmEntry(c *fiber.Ctx) error {
	id := c.Params("id")

	var entry models.LeagueEntry
	if err := s.DB.First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "entry not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		result := tx.Model(&models.LeagueEntry{}).
			Where("id = ? AND status = ?", id, models.EntryStatusPending).
			Updates(map[string]interface{}{
				"status":       models.EntryStatusConfirmed,
				"confirmed_at": &now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errors.New("entry is not pending")
		}

		if err := tx.Model(&models.League{}).Where("id = ?", entry.LeagueID).
			Updates(map[string]interface{}{
				"total_prize_pool":  gorm.Expr("total_prize_pool + ?", entry.AmountPaid),
				"participant_count": gorm.Expr("participant_count + 1"),
			}).Error; err != nil {
			return err
		}

		// The pool of the round being drafted grows too; only an
		// undistributed one may absorb new entries.
		if err := tx.Model(&models.Competition{}).
			Where("league_id = ? AND status <> ? AND distributed = ?",
				entry.LeagueID, models.CompetitionStatusCompleted, false).
			Update("prize_pool", gorm.Expr("prize_pool + ?", entry.AmountPaid)).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Team{}).
			Where("league_id = ? AND user_id = ?", entry.LeagueID, entry.UserID).
			Update("has_valid_entry", true).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		log.Printf("Entry confirmation failed for %s: %v", id, err)
		return c.Status(409).JSON(fiber.Map{"error": err.Error()})
	}

	s.DB.First(&entry, "id = ?", id)
	return c.JSON(fiber.Map{"message": "entry confirmed", "entry": entry})
}
