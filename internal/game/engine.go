package game

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"

	"crashpit/internal/wallet"
)

type GameType string

const (
	GameTypeCrash    GameType = "crash"
	GameTypeLimbo    GameType = "limbo"
	GameTypeWheel    GameType = "wheel"
	GameTypeCoinFlip GameType = "coinflip"
	GameTypeSlots    GameType = "slots"
)

// GameEngine is an instant-play mini-game: one request, one provably fair
// draw, one settlement. The crash game does not fit this shape and runs
// through the Orchestrator instead.
type GameEngine interface {
	GetType() GameType
	Start(ctx context.Context) error
	Stop() error
	PlaceBet(ctx context.Context, req interface{}) (interface{}, error)
}

// GameFactory is the registry of instant-play engines.
type GameFactory struct {
	engines map[GameType]GameEngine
	redis   *redis.Client
	wallet  wallet.Service
	hub     *Hub
}

func NewGameFactory(redisClient *redis.Client, walletSvc wallet.Service, hub *Hub) *GameFactory {
	return &GameFactory{
		engines: make(map[GameType]GameEngine),
		redis:   redisClient,
		wallet:  walletSvc,
		hub:     hub,
	}
}

func (gf *GameFactory) RegisterEngine(engine GameEngine) {
	gf.engines[engine.GetType()] = engine
}

func (gf *GameFactory) GetEngine(gameType GameType) (GameEngine, bool) {
	engine, exists := gf.engines[gameType]
	return engine, exists
}

func (gf *GameFactory) StartAll(ctx context.Context) error {
	for gameType, engine := range gf.engines {
		if err := engine.Start(ctx); err != nil {
			return err
		}
		log.Printf("[FACTORY] Started %s engine", gameType)
	}
	return nil
}

func (gf *GameFactory) StopAll() error {
	for gameType, engine := range gf.engines {
		if err := engine.Stop(); err != nil {
			return err
		}
		log.Printf("[FACTORY] Stopped %s engine", gameType)
	}
	return nil
}
