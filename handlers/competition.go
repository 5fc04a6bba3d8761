package handlers

import (
	"market-fantasy-league/middleware"
	"market-fantasy-league/services"

	"github.com/gofiber/fiber/v2"
)

func SetupCompetitionRoutes(app *fiber.App, competitionService *services.CompetitionService, prizeService *services.PrizeService) {
	// Public reads
	app.Get("/leagues/:slug/competition", competitionService.GetCurrentCompetition)
	app.Get("/competitions/:id/distribution", prizeService.GetDistribution)

	// Cron-triggered sweep and admin escape hatches, bearer-gated per route
	// because these live at the root path.
	app.Post("/check-competitions", middleware.CronAuthMiddleware(), competitionService.CheckCompetitions)
	app.Post("/reset-competition", middleware.CronAuthMiddleware(), competitionService.ResetCompetition)

	admin := app.Group("/admin", middleware.CronAuthMiddleware())
	admin.Post("/competitions/:id/distribute", prizeService.DistributeCompetition)
}
