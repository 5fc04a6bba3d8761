// market-fantasy-league/services/prize_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sort"

	"market-fantasy-league/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ErrAlreadyDistributed signals the once-only guard fired: another caller
// already paid this competition out. Treated as a no-op by the sweep.
var ErrAlreadyDistributed = errors.New("competition already distributed")

// PrizeSplit is the percentage table for ranks 1..3. Must sum to 100.
type PrizeSplit struct {
	First  float64 `json:"first"`
	Second float64 `json:"second"`
	Third  float64 `json:"third"`
}

const splitEpsilon = 1e-9

// Validate rejects negative tiers and tables that do not sum to 100.
func (p PrizeSplit) Validate() error {
	if p.First < 0 || p.Second < 0 || p.Third < 0 {
		return fmt.Errorf("prize percentages must be non-negative")
	}
	total := p.First + p.Second + p.Third
	if math.Abs(total-100) > splitEpsilon {
		return fmt.Errorf("prize percentages must sum to 100, got %.4f", total)
	}
	return nil
}

// Percentages returns the configured tiers in rank order, dropping zero
// tiers from the tail (a {100,0,0} table awards a single prize).
func (p PrizeSplit) Percentages() []float64 {
	pcts := []float64{p.First, p.Second, p.Third}
	for len(pcts) > 0 && pcts[len(pcts)-1] == 0 {
		pcts = pcts[:len(pcts)-1]
	}
	return pcts
}

// ComputePayouts maps a ranked team list to prize awards. Only as many
// prizes as configured tiers are awarded; fourth place and below get
// nothing. Returns a validation error when no eligible teams exist.
func ComputePayouts(pool float64, split PrizeSplit, ranked []models.Team) ([]models.PrizeAward, error) {
	if err := split.Validate(); err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, fmt.Errorf("no eligible teams to distribute prizes to")
	}
	pcts := split.Percentages()
	n := len(pcts)
	if len(ranked) < n {
		n = len(ranked)
	}
	awards := make([]models.PrizeAward, 0, n)
	for i := 0; i < n; i++ {
		awards = append(awards, models.PrizeAward{
			Rank:        i + 1,
			TeamID:      ranked[i].ID,
			UserID:      ranked[i].UserID,
			Score:       ranked[i].TotalScore,
			PrizeAmount: pool * pcts[i] / 100,
			PrizePct:    pcts[i],
		})
	}
	return awards, nil
}

// rankedForPayout keeps only teams carrying a final rank, ordered by it.
// Teams at the default rank 0 were never scored (their entry was confirmed
// after the competition completed) and must not be paid positionally.
func rankedForPayout(teams []models.Team) []models.Team {
	ranked := make([]models.Team, 0, len(teams))
	for _, t := range teams {
		if t.Rank > 0 {
			ranked = append(ranked, t)
		}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Rank < ranked[j].Rank })
	return ranked
}

type PrizeService struct {
	DB *gorm.DB
}

func NewPrizeService(db *gorm.DB) *PrizeService {
	return &PrizeService{DB: db}
}

// distributeTx writes the distribution event inside the caller's transaction.
// The conditional flip of Distributed is the once-only guard: zero rows
// affected means another worker already won, and nothing is written.
func (s *PrizeService) distributeTx(tx *gorm.DB, competition *models.Competition, split PrizeSplit, ranked []models.Team) (*models.PrizeDistribution, error) {
	awards, err := ComputePayouts(competition.PrizePool, split, ranked)
	if err != nil {
		return nil, err
	}

	result := tx.Model(&models.Competition{}).
		Where("id = ? AND distributed = ?", competition.ID, false).
		Update("distributed", true)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to claim distribution: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrAlreadyDistributed
	}

	dist := &models.PrizeDistribution{
		CompetitionID: competition.ID,
		LeagueID:      competition.LeagueID,
		TotalPool:     competition.PrizePool,
	}
	if err := tx.Create(dist).Error; err != nil {
		return nil, fmt.Errorf("failed to record distribution: %w", err)
	}
	for i := range awards {
		awards[i].DistributionID = dist.ID
		if err := tx.Create(&awards[i]).Error; err != nil {
			return nil, fmt.Errorf("failed to record award for rank %d: %w", awards[i].Rank, err)
		}
	}
	dist.Awards = awards
	competition.Distributed = true
	return dist, nil
}

// DistributeCompetition re-invokes distribution for a completed competition.
// POST /admin/competitions/:id/distribute, the idempotent escape hatch for a
// completion sweep that crashed between claiming the status and paying out.
func (s *PrizeService) DistributeCompetition(c *fiber.Ctx) error {
	id := c.Params("id")

	var competition models.Competition
	if err := s.DB.First(&competition, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "competition not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if competition.Status != models.CompetitionStatusCompleted {
		return c.Status(422).JSON(fiber.Map{"error": "competition is not completed yet"})
	}
	if competition.Distributed {
		return c.Status(409).JSON(fiber.Map{"error": "prizes already distributed"})
	}

	var league models.League
	if err := s.DB.First(&league, "id = ?", competition.LeagueID).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB error fetching league"})
	}
	split := PrizeSplit{First: league.FirstPlacePct, Second: league.SecondPlacePct, Third: league.ThirdPlacePct}

	var teams []models.Team
	if err := s.DB.Where("league_id = ? AND has_valid_entry = ?", competition.LeagueID, true).
		Find(&teams).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB error fetching teams"})
	}
	ranked := rankedForPayout(teams)
	if len(ranked) == 0 {
		return c.Status(422).JSON(fiber.Map{"error": "no ranked teams to distribute prizes to"})
	}

	var dist *models.PrizeDistribution
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var txErr error
		dist, txErr = s.distributeTx(tx, &competition, split, ranked)
		return txErr
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyDistributed) {
			return c.Status(409).JSON(fiber.Map{"error": "prizes already distributed"})
		}
		log.Printf("[Prize] distribution failed for competition %s: %v", id, err)
		return c.Status(422).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "prizes distributed", "distribution": dist})
}

// GetDistribution returns the immutable payout event for a competition.
func (s *PrizeService) GetDistribution(c *fiber.Ctx) error {
	id := c.Params("id")
	var dist models.PrizeDistribution
	err := s.DB.Preload("Awards", func(db *gorm.DB) *gorm.DB {
		return db.Order("rank ASC")
	}).First(&dist, "competition_id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "no distribution for this competition"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(dist)
}
