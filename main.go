package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ranked-ledger/config"
	"ranked-ledger/handlers"
	"ranked-ledger/middleware"
	"ranked-ledger/repository"
	"ranked-ledger/services"
	"ranked-ledger/utils"
	"ranked-ledger/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := repository.Open(cfg.RepositoryDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}

	broker := services.NewEventBroker(32)
	registry := services.NewStoreRegistry(repo, services.StoreOptions{Events: broker})

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
		// Player and game ids are kept as store keys after the request ends
		Immutable: true,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Accept-Language, Authorization, X-Requested-With, X-Request-ID, Cache-Control",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Health probe stays reachable without the gateway token
	handlers.SetupHealthRoutes(app)

	// 🔐❗ Everything else must come through the Gateway
	app.Use(middleware.GatewayAuthMiddleware(cfg.GatewayToken))

	handlers.SetupRankedRoutes(app, registry, broker, handlers.NewLocalizer(cfg.DefaultLocale))

	workers.NewCacheSyncWorker(registry, cfg.CacheSyncEvery).Start(ctx)

	if r2 := cfg.R2(); r2.Configured() {
		sink, err := utils.NewR2Archive(ctx, r2)
		if err != nil {
			log.Fatal("failed to initialize R2 client: ", err)
		}
		archive := services.NewArchiveService(repo, sink, time.Time{})
		if _, err := archive.StartScheduler(ctx, cfg.ArchiveEvery); err != nil {
			log.Fatal("failed to start archive scheduler: ", err)
		}
	} else {
		log.Println("⚠️  R2 not configured, completed sessions will not be archived")
	}

	go func() {
		if err := app.Listen(cfg.Addr()); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost%s", cfg.Addr())
	log.Printf("✅ Repository driver: %s", cfg.RepositoryDriver)
	log.Printf("✅ CORS configured for origins: %s", cfg.CORSOrigins())

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
