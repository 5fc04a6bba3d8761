package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"market-fantasy-league/handlers"
	"market-fantasy-league/middleware"
	"market-fantasy-league/models"
	"market-fantasy-league/services"
	"market-fantasy-league/utils"
	"market-fantasy-league/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // 1MB, JSON payloads only
	})

	middleware.InitPrometheus()
	app.Use(middleware.MonitorMiddleware())
	app.Use(middleware.RateLimitMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOriginsList, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-Wallet-Address",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.League{},
		&models.LeagueEntry{},
		&models.Competition{},
		&models.CompetitionToken{},
		&models.Team{},
		&models.PrizeDistribution{},
		&models.PrizeAward{},
		&models.TokenPrice{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	oracleBase := os.Getenv("ORACLE_BASE_URL")
	if oracleBase == "" {
		oracleBase = "https://api.coingecko.com/api/v3"
	}
	oracle := services.NewPriceOracleClient(oracleBase, os.Getenv("COINGECKO_API_KEY"))

	leagueService := services.NewLeagueService(db)
	prizeService := services.NewPrizeService(db)
	teamService := services.NewTeamService(db, oracle)
	competitionService := services.NewCompetitionService(db, oracle, prizeService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	priceSync := workers.NewPriceSyncClient(db, oracle)
	go workers.PollPrices(ctx, priceSync, 5*time.Minute)

	competitionService.StartCompetitionScheduler()

	handlers.SetupLeagueRoutes(app, leagueService, teamService)
	handlers.SetupCompetitionRoutes(app, competitionService, prizeService)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Competition sweep scheduler running (every 1m)")
	log.Println("✅ Price sync worker running (every 5m)")

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
