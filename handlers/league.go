package handlers

import (
	"market-fantasy-league/middleware"
	"market-fantasy-league/services"

	"github.com/gofiber/fiber/v2"
)

func SetupLeagueRoutes(app *fiber.App, leagueService *services.LeagueService, teamService *services.TeamService) {
	// Public reads
	app.Get("/leagues", leagueService.GetLeagues)
	app.Get("/leagues/:slug", leagueService.GetLeagueBySlug)
	app.Get("/leagues/:slug/leaderboard", teamService.GetLeaderboard)

	// Secured routes require user context forwarded by the gateway.
	// The middleware enforces on /s/ paths and passes identity through
	// for the rest, so handlers like CreateEntry check it themselves.
	secured := app.Group("/", middleware.UserContextMiddleware())
	secured.Post("/leagues/:slug/entries", leagueService.CreateEntry)
	secured.Post("/s/teams", teamService.SaveTeam)
	secured.Get("/s/teams/me", teamService.GetMyTeam)
	secured.Get("/s/teams/:id/performance", teamService.GetTeamPerformance)

	// Admin surface, shared-secret bearer
	admin := app.Group("/admin", middleware.CronAuthMiddleware())
	admin.Post("/leagues", leagueService.CreateLeague)
	admin.Post("/entries/:id/confirm", leagueService.ConfirmEntry)
}
