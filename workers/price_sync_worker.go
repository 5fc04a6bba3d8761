package workers

import (
	"context"
	"log"
	"time"

	"market-fantasy-league/models"
	"market-fantasy-league/services"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PriceSyncClient keeps the token_prices mirror fresh for every token on an
// active competition's roster, so scoring reads rarely hit the oracle
// directly.
type PriceSyncClient struct {
	Oracle *services.PriceOracleClient
	DB     *gorm.DB
}

func NewPriceSyncClient(db *gorm.DB, oracle *services.PriceOracleClient) *PriceSyncClient {
	return &PriceSyncClient{Oracle: oracle, DB: db}
}

// activeRosterIDs returns the distinct provider ids drafted into pending or
// active competitions. Completed rosters are dead weight and skipped.
func (c *PriceSyncClient) activeRosterIDs() ([]string, error) {
	var ids []string
	err := c.DB.Model(&models.CompetitionToken{}).
		Distinct("token_id").
		Joins("JOIN competitions ON competitions.id = competition_tokens.competition_id").
		Where("competitions.status <> ?", models.CompetitionStatusCompleted).
		Pluck("token_id", &ids).Error
	return ids, err
}

// SyncOnce fetches fresh quotes and bulk-upserts them. Returns the number of
// rows written.
func (c *PriceSyncClient) SyncOnce(ctx context.Context) (int, error) {
	ids, err := c.activeRosterIDs()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	quotes, err := c.Oracle.MarketDataByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	rows := make([]models.TokenPrice, 0, len(quotes))
	for _, md := range quotes {
		rank := 0
		if md.MarketCapRank != nil {
			rank = *md.MarketCapRank
		}
		rows = append(rows, models.TokenPrice{
			TokenID:       md.TokenID,
			Symbol:        md.Symbol,
			Name:          md.Name,
			ImageURL:      md.ImageURL,
			CurrentPrice:  md.CurrentPrice,
			Change24hPct:  md.Change24hPct,
			Change7dPct:   md.Change7dPct,
			MarketCap:     md.MarketCap,
			Volume24h:     md.Volume24h,
			MarketCapRank: rank,
			FetchedAt:     now,
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	// Bulk upsert in one statement; token_id is the primary key.
	if err := c.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "token_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"symbol",
			"name",
			"image_url",
			"current_price",
			"change_24h_pct",
			"change_7d_pct",
			"market_cap",
			"volume_24h",
			"market_cap_rank",
			"fetched_at",
		}),
	}).Create(&rows).Error; err != nil {
		return 0, err
	}
	return len(rows), nil
}

// PollPrices runs the sync loop until the context is cancelled. Errors are
// logged and retried next tick, never fatal. The read paths degrade to
// ghost records while the cache is cold.
func PollPrices(ctx context.Context, client *PriceSyncClient, pollInterval time.Duration) {
	log.Println("Starting price sync worker...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Price sync worker stopped.")
			return
		case <-ticker.C:
			n, err := client.SyncOnce(ctx)
			if err != nil {
				log.Printf("[PriceSync] sync failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("[PriceSync] upserted %d quote(s)", n)
			}
		}
	}
}
