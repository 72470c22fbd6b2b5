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

const redisKeyWheelGame = "wheel:game:"

// DefaultWheelLayout expresses the house edge through the zero-multiplier
// slices; the mapping itself is uniform over the weights.
var DefaultWheelLayout = []fair.WheelSegment{
	{Color: "gray", Multiplier: 0.0, Weight: 10},
	{Color: "red", Multiplier: 1.5, Weight: 8},
	{Color: "green", Multiplier: 2.0, Weight: 8},
	{Color: "blue", Multiplier: 3.0, Weight: 4},
	{Color: "gold", Multiplier: 10.0, Weight: 1},
}

type WheelGameState struct {
	GameID       string    `json:"game_id"`
	UserID       string    `json:"user_id"`
	BetAmount    float64   `json:"bet_amount"`
	ServerSeed   string    `json:"server_seed"`
	ClientSeed   string    `json:"client_seed"`
	Nonce        int       `json:"nonce"`
	SegmentIndex int       `json:"segment_index"`
	Color        string    `json:"color"`
	Multiplier   float64   `json:"multiplier"`
	Payout       float64   `json:"payout"`
	CreatedAt    time.Time `json:"created_at"`
}

type WheelSpinRequest struct {
	UserID string  `json:"user_id"`
	Amount float64 `json:"amount"`
}

type WheelSpinResponse struct {
	Success      bool    `json:"success"`
	Message      string  `json:"message"`
	GameID       string  `json:"game_id,omitempty"`
	SegmentIndex int     `json:"segment_index"`
	Color        string  `json:"color,omitempty"`
	Multiplier   float64 `json:"multiplier"`
	Payout       float64 `json:"payout"`
	ServerSeed   string  `json:"server_seed,omitempty"`
	ClientSeed   string  `json:"client_seed,omitempty"`
	Nonce        int     `json:"nonce,omitempty"`
}

// WheelEngine spins a weighted wheel; the landed segment's multiplier is the
// payout.
type WheelEngine struct {
	redisClient *redis.Client
	wallet      wallet.Service
	hub         *Hub
	cfg         Config
	layout      []fair.WheelSegment
	nonce       int64
}

func NewWheelEngine(redisClient *redis.Client, walletSvc wallet.Service, hub *Hub, cfg Config) *WheelEngine {
	return &WheelEngine{
		redisClient: redisClient,
		wallet:      walletSvc,
		hub:         hub,
		cfg:         cfg,
		layout:      DefaultWheelLayout,
	}
}

func (e *WheelEngine) GetType() GameType {
	return GameTypeWheel
}

func (e *WheelEngine) Start(ctx context.Context) error {
	log.Println("[WHEEL] Engine started")
	return nil
}

func (e *WheelEngine) Stop() error {
	log.Println("[WHEEL] Engine stopped")
	return nil
}

// Layout exposes the segment table so clients can render the wheel.
func (e *WheelEngine) Layout() []fair.WheelSegment {
	return e.layout
}

func (e *WheelEngine) PlaceBet(ctx context.Context, req interface{}) (interface{}, error) {
	spinReq, ok := req.(WheelSpinRequest)
	if !ok {
		return nil, errors.New("invalid request type")
	}

	if spinReq.Amount < e.cfg.MinStake || spinReq.Amount > e.cfg.MaxStake {
		return WheelSpinResponse{
			Success: false,
			Message: fmt.Sprintf("Bet must be between %.2f and %.2f", e.cfg.MinStake, e.cfg.MaxStake),
		}, nil
	}

	nonce := int(atomic.AddInt64(&e.nonce, 1))
	gameID := fmt.Sprintf("WHEEL-%s-%d", spinReq.UserID, time.Now().UnixNano())

	if err := e.wallet.ReserveStake(ctx, spinReq.UserID, gameID, spinReq.Amount); err != nil {
		if err == wallet.ErrInsufficientFunds {
			return WheelSpinResponse{Success: false, Message: "Insufficient balance"}, nil
		}
		return WheelSpinResponse{Success: false, Message: "Transaction failed"}, nil
	}

	seed := fair.NewRoundSeed(fair.GenerateSeed(), nonce)
	index := fair.WheelSegmentIndex(fair.Draw(seed, 0), e.layout)
	segment := e.layout[index]

	payout := spinReq.Amount * segment.Multiplier
	if payout > 0 {
		if err := e.wallet.Credit(ctx, spinReq.UserID, gameID, payout); err != nil {
			return WheelSpinResponse{Success: false, Message: "Failed to credit payout"}, nil
		}
	}

	state := WheelGameState{
		GameID:       gameID,
		UserID:       spinReq.UserID,
		BetAmount:    spinReq.Amount,
		ServerSeed:   seed.ServerSeed,
		ClientSeed:   seed.ClientSeed,
		Nonce:        nonce,
		SegmentIndex: index,
		Color:        segment.Color,
		Multiplier:   segment.Multiplier,
		Payout:       payout,
		CreatedAt:    time.Now(),
	}

	stateJSON, _ := json.Marshal(state)
	e.redisClient.Set(ctx, redisKeyWheelGame+gameID, string(stateJSON), 1*time.Hour)

	if segment.Multiplier >= 10.0 && e.hub != nil {
		e.hub.Broadcast(map[string]interface{}{
			"type":       "wheel_big_win",
			"user_id":    spinReq.UserID,
			"color":      segment.Color,
			"multiplier": segment.Multiplier,
			"payout":     payout,
		})
	}

	log.Printf("[WHEEL] %s landed %s (%.2fx), payout %.2f",
		spinReq.UserID, segment.Color, segment.Multiplier, payout)

	return WheelSpinResponse{
		Success:      true,
		Message:      "Spin complete",
		GameID:       gameID,
		SegmentIndex: index,
		Color:        segment.Color,
		Multiplier:   segment.Multiplier,
		Payout:       payout,
		ServerSeed:   seed.ServerSeed,
		ClientSeed:   seed.ClientSeed,
		Nonce:        nonce,
	}, nil
}
