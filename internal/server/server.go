package server

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"crashpit/internal/cache"
	"crashpit/internal/database"
	"crashpit/internal/game"
	"crashpit/internal/wallet"
)

type FiberServer struct {
	*fiber.App

	db           database.Service
	cache        cache.Service
	wallet       wallet.Service
	orchestrator *game.Orchestrator
	gameHub      *game.Hub
	gameFactory  *game.GameFactory
	wheelEngine  *game.WheelEngine
	cfg          game.Config
}

func New() *FiberServer {
	cfg := game.ConfigFromEnv()

	// Initialize round archive
	db := database.New()

	// Redis backs wallet balances and instant-game state; no point starting
	// without it.
	redisService, err := cache.New()
	if err != nil {
		log.Fatalf("[SERVER] %v", err)
	}
	client := redisService.GetClient()

	walletSvc := wallet.New(client)

	// Crash game components
	hub := game.NewHub()
	orchestrator := game.NewOrchestrator(cfg, hub, walletSvc, db)

	// Instant-play engines
	factory := game.NewGameFactory(client, walletSvc, hub)
	wheelEngine := game.NewWheelEngine(client, walletSvc, hub, cfg)

	factory.RegisterEngine(game.NewLimboEngine(client, walletSvc, cfg))
	factory.RegisterEngine(wheelEngine)
	factory.RegisterEngine(game.NewCoinFlipEngine(client, walletSvc, cfg))
	factory.RegisterEngine(game.NewSlotEngine(client, walletSvc, hub, cfg))

	server := &FiberServer{
		App: fiber.New(fiber.Config{
			ServerHeader:  "crashpit",
			AppName:       "crashpit",
			ReadTimeout:   10 * time.Second,
			WriteTimeout:  10 * time.Second,
			IdleTimeout:   120 * time.Second,
			StrictRouting: false,
		}),

		db:           db,
		cache:        redisService,
		wallet:       walletSvc,
		orchestrator: orchestrator,
		gameHub:      hub,
		gameFactory:  factory,
		wheelEngine:  wheelEngine,
		cfg:          cfg,
	}

	// Apply global middleware
	server.App.Use(recover.New())
	server.App.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
	}))

	// Start game components
	go hub.Run()
	orchestrator.Start()

	if err := factory.StartAll(context.Background()); err != nil {
		log.Printf("[SERVER] Failed to start game engines: %v", err)
	}

	log.Println("[SERVER] Orchestrator and all game engines started")

	return server
}

// Shutdown gracefully shuts down the game components and connections.
func (s *FiberServer) Shutdown() error {
	log.Println("[SERVER] Shutting down...")

	if s.orchestrator != nil {
		s.orchestrator.Stop()
	}

	if s.gameFactory != nil {
		if err := s.gameFactory.StopAll(); err != nil {
			log.Printf("[SERVER] Error stopping game engines: %v", err)
		}
	}

	if s.cache != nil {
		s.cache.Close()
	}
	if s.db != nil {
		s.db.Close()
	}

	return nil
}
