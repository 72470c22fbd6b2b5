package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"crashpit/internal/fair"
	"crashpit/internal/wallet"
)

const (
	redisKeyLimboGame = "limbo:game:"

	limboMinTarget = 1.01
	limboMaxTarget = 1000000.0
)

// LimboGameState records a completed limbo play alongside its seeds so the
// player can verify the roll.
type LimboGameState struct {
	GameID     string    `json:"game_id"`
	UserID     string    `json:"user_id"`
	BetAmount  float64   `json:"bet_amount"`
	Target     float64   `json:"target"`
	ServerSeed string    `json:"server_seed"`
	ClientSeed string    `json:"client_seed"`
	Nonce      int       `json:"nonce"`
	Roll       float64   `json:"roll"`
	Win        bool      `json:"win"`
	Payout     float64   `json:"payout"`
	CreatedAt  time.Time `json:"created_at"`
}

type LimboRollRequest struct {
	UserID string  `json:"user_id"`
	Amount float64 `json:"amount"`
	Target float64 `json:"target"`
}

type LimboRollResponse struct {
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	GameID     string  `json:"game_id,omitempty"`
	Roll       float64 `json:"roll,omitempty"`
	Win        bool    `json:"win,omitempty"`
	Payout     float64 `json:"payout,omitempty"`
	ServerSeed string  `json:"server_seed,omitempty"`
	ClientSeed string  `json:"client_seed,omitempty"`
	Nonce      int     `json:"nonce,omitempty"`
}

// LimboEngine is the instant crash variant: the player picks a target
// multiplier and wins stake times target when the roll reaches it.
type LimboEngine struct {
	redisClient *redis.Client
	wallet      wallet.Service
	cfg         Config
	nonce       int64
}

func NewLimboEngine(redisClient *redis.Client, walletSvc wallet.Service, cfg Config) *LimboEngine {
	return &LimboEngine{redisClient: redisClient, wallet: walletSvc, cfg: cfg}
}

func (e *LimboEngine) GetType() GameType {
	return GameTypeLimbo
}

func (e *LimboEngine) Start(ctx context.Context) error {
	log.Println("[LIMBO] Engine started")
	return nil
}

func (e *LimboEngine) Stop() error {
	log.Println("[LIMBO] Engine stopped")
	return nil
}

func (e *LimboEngine) PlaceBet(ctx context.Context, req interface{}) (interface{}, error) {
	rollReq, ok := req.(LimboRollRequest)
	if !ok {
		return nil, errors.New("invalid request type")
	}

	if rollReq.Amount < e.cfg.MinStake || rollReq.Amount > e.cfg.MaxStake {
		return LimboRollResponse{
			Success: false,
			Message: fmt.Sprintf("Bet must be between %.2f and %.2f", e.cfg.MinStake, e.cfg.MaxStake),
		}, nil
	}
	if rollReq.Target < limboMinTarget || rollReq.Target > limboMaxTarget {
		return LimboRollResponse{
			Success: false,
			Message: fmt.Sprintf("Target must be between %.2f and %.2f", limboMinTarget, limboMaxTarget),
		}, nil
	}

	nonce := int(atomic.AddInt64(&e.nonce, 1))
	gameID := fmt.Sprintf("LIMBO-%s-%d", rollReq.UserID, time.Now().UnixNano())

	if err := e.wallet.ReserveStake(ctx, rollReq.UserID, gameID, rollReq.Amount); err != nil {
		if err == wallet.ErrInsufficientFunds {
			return LimboRollResponse{Success: false, Message: "Insufficient balance"}, nil
		}
		return LimboRollResponse{Success: false, Message: "Transaction failed"}, nil
	}

	seed := fair.NewRoundSeed(fair.GenerateSeed(), nonce)
	roll := fair.LimboRoll(fair.Draw(seed, 0), e.cfg.HouseEdge)

	win := roll >= rollReq.Target
	payout := 0.0
	if win {
		payout = rollReq.Amount * rollReq.Target
		if err := e.wallet.Credit(ctx, rollReq.UserID, gameID, payout); err != nil {
			return LimboRollResponse{Success: false, Message: "Failed to credit payout"}, nil
		}
	}

	state := LimboGameState{
		GameID:     gameID,
		UserID:     rollReq.UserID,
		BetAmount:  rollReq.Amount,
		Target:     rollReq.Target,
		ServerSeed: seed.ServerSeed,
		ClientSeed: seed.ClientSeed,
		Nonce:      nonce,
		Roll:       roll,
		Win:        win,
		Payout:     payout,
		CreatedAt:  time.Now(),
	}

	stateJSON, _ := json.Marshal(state)
	e.redisClient.Set(ctx, redisKeyLimboGame+gameID, string(stateJSON), 1*time.Hour)

	log.Printf("[LIMBO] %s rolled %.2f against target %.2f, payout %.2f",
		rollReq.UserID, roll, rollReq.Target, payout)

	return LimboRollResponse{
		Success:    true,
		Message:    "Roll complete",
		GameID:     gameID,
		Roll:       roll,
		Win:        win,
		Payout:     payout,
		ServerSeed: seed.ServerSeed,
		ClientSeed: seed.ClientSeed,
		Nonce:      nonce,
	}, nil
}
