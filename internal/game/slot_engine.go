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
	redisKeySlotGame = "slots:game:"

	slotReelCount = 3
)

// slotSymbol pairs a reel symbol with its stop weight and the multiplier paid
// for three of a kind. Rarer symbols pay more.
type slotSymbol struct {
	Name       string
	Weight     float64
	Multiplier float64
}

var slotSymbols = []slotSymbol{
	{Name: "cherry", Weight: 10, Multiplier: 2.0},
	{Name: "lemon", Weight: 8, Multiplier: 3.0},
	{Name: "bell", Weight: 6, Multiplier: 5.0},
	{Name: "clover", Weight: 4, Multiplier: 10.0},
	{Name: "diamond", Weight: 2, Multiplier: 25.0},
	{Name: "seven", Weight: 1, Multiplier: 100.0},
}

// pairMultiplier is the consolation payout for two matching symbols.
const pairMultiplier = 0.5

type SlotGameState struct {
	GameID     string    `json:"game_id"`
	UserID     string    `json:"user_id"`
	BetAmount  float64   `json:"bet_amount"`
	ServerSeed string    `json:"server_seed"`
	ClientSeed string    `json:"client_seed"`
	Nonce      int       `json:"nonce"`
	Reels      []string  `json:"reels"`
	Multiplier float64   `json:"multiplier"`
	Payout     float64   `json:"payout"`
	CreatedAt  time.Time `json:"created_at"`
}

type SlotSpinRequest struct {
	UserID string  `json:"user_id"`
	Amount float64 `json:"amount"`
}

type SlotSpinResponse struct {
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	GameID     string   `json:"game_id,omitempty"`
	Reels      []string `json:"reels,omitempty"`
	Multiplier float64  `json:"multiplier"`
	Payout     float64  `json:"payout"`
	ServerSeed string   `json:"server_seed,omitempty"`
	ClientSeed string   `json:"client_seed,omitempty"`
	Nonce      int      `json:"nonce,omitempty"`
}

// SlotEngine spins three weighted reels: three of a kind pays the symbol
// multiplier, a pair pays a fraction of the stake back.
type SlotEngine struct {
	redisClient *redis.Client
	wallet      wallet.Service
	hub         *Hub
	cfg         Config
	nonce       int64
}

func NewSlotEngine(redisClient *redis.Client, walletSvc wallet.Service, hub *Hub, cfg Config) *SlotEngine {
	return &SlotEngine{redisClient: redisClient, wallet: walletSvc, hub: hub, cfg: cfg}
}

func (e *SlotEngine) GetType() GameType {
	return GameTypeSlots
}

func (e *SlotEngine) Start(ctx context.Context) error {
	log.Println("[SLOTS] Engine started")
	return nil
}

func (e *SlotEngine) Stop() error {
	log.Println("[SLOTS] Engine stopped")
	return nil
}

func (e *SlotEngine) PlaceBet(ctx context.Context, req interface{}) (interface{}, error) {
	spinReq, ok := req.(SlotSpinRequest)
	if !ok {
		return nil, errors.New("invalid request type")
	}

	if spinReq.Amount < e.cfg.MinStake || spinReq.Amount > e.cfg.MaxStake {
		return SlotSpinResponse{
			Success: false,
			Message: fmt.Sprintf("Bet must be between %.2f and %.2f", e.cfg.MinStake, e.cfg.MaxStake),
		}, nil
	}

	nonce := int(atomic.AddInt64(&e.nonce, 1))
	gameID := fmt.Sprintf("SLOTS-%s-%d", spinReq.UserID, time.Now().UnixNano())

	if err := e.wallet.ReserveStake(ctx, spinReq.UserID, gameID, spinReq.Amount); err != nil {
		if err == wallet.ErrInsufficientFunds {
			return SlotSpinResponse{Success: false, Message: "Insufficient balance"}, nil
		}
		return SlotSpinResponse{Success: false, Message: "Transaction failed"}, nil
	}

	seed := fair.NewRoundSeed(fair.GenerateSeed(), nonce)

	weights := make([]float64, len(slotSymbols))
	for i, s := range slotSymbols {
		weights[i] = s.Weight
	}
	stops := fair.ReelStops(seed, 0, slotReelCount, weights)

	reels := make([]string, slotReelCount)
	for i, stop := range stops {
		reels[i] = slotSymbols[stop].Name
	}

	multiplier := slotLineMultiplier(stops)
	payout := spinReq.Amount * multiplier
	if payout > 0 {
		if err := e.wallet.Credit(ctx, spinReq.UserID, gameID, payout); err != nil {
			return SlotSpinResponse{Success: false, Message: "Failed to credit payout"}, nil
		}
	}

	state := SlotGameState{
		GameID:     gameID,
		UserID:     spinReq.UserID,
		BetAmount:  spinReq.Amount,
		ServerSeed: seed.ServerSeed,
		ClientSeed: seed.ClientSeed,
		Nonce:      nonce,
		Reels:      reels,
		Multiplier: multiplier,
		Payout:     payout,
		CreatedAt:  time.Now(),
	}

	stateJSON, _ := json.Marshal(state)
	e.redisClient.Set(ctx, redisKeySlotGame+gameID, string(stateJSON), 1*time.Hour)

	if multiplier >= 25.0 && e.hub != nil {
		e.hub.Broadcast(map[string]interface{}{
			"type":       "slots_big_win",
			"user_id":    spinReq.UserID,
			"reels":      reels,
			"multiplier": multiplier,
			"payout":     payout,
		})
	}

	log.Printf("[SLOTS] %s spun %v (%.2fx), payout %.2f", spinReq.UserID, reels, multiplier, payout)

	return SlotSpinResponse{
		Success:    true,
		Message:    "Spin complete",
		GameID:     gameID,
		Reels:      reels,
		Multiplier: multiplier,
		Payout:     payout,
		ServerSeed: seed.ServerSeed,
		ClientSeed: seed.ClientSeed,
		Nonce:      nonce,
	}, nil
}

// slotLineMultiplier scores one spin: three of a kind pays the symbol's
// multiplier, exactly two matching pays the consolation fraction.
func slotLineMultiplier(stops []int) float64 {
	if stops[0] == stops[1] && stops[1] == stops[2] {
		return slotSymbols[stops[0]].Multiplier
	}
	if stops[0] == stops[1] || stops[1] == stops[2] || stops[0] == stops[2] {
		return pairMultiplier
	}
	return 0.0
}
