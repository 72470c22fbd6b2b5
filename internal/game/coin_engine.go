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
	redisKeyCoinGame = "coinflip:game:"

	// CoinPayoutMultiplier is where this game's house edge lives: the flip
	// itself is uniform, the payout on a correct call is just under 2x.
	CoinPayoutMultiplier = 1.96
)

type CoinFlipGameState struct {
	GameID     string        `json:"game_id"`
	UserID     string        `json:"user_id"`
	BetAmount  float64       `json:"bet_amount"`
	Call       fair.CoinSide `json:"call"`
	ServerSeed string        `json:"server_seed"`
	ClientSeed string        `json:"client_seed"`
	Nonce      int           `json:"nonce"`
	Result     fair.CoinSide `json:"result"`
	Win        bool          `json:"win"`
	Payout     float64       `json:"payout"`
	CreatedAt  time.Time     `json:"created_at"`
}

type CoinFlipRequest struct {
	UserID string  `json:"user_id"`
	Amount float64 `json:"amount"`
	Call   string  `json:"call"` // "heads" or "tails"
}

type CoinFlipResponse struct {
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	GameID     string  `json:"game_id,omitempty"`
	Result     string  `json:"result,omitempty"`
	Win        bool    `json:"win,omitempty"`
	Payout     float64 `json:"payout"`
	ServerSeed string  `json:"server_seed,omitempty"`
	ClientSeed string  `json:"client_seed,omitempty"`
	Nonce      int     `json:"nonce,omitempty"`
}

type CoinFlipEngine struct {
	redisClient *redis.Client
	wallet      wallet.Service
	cfg         Config
	nonce       int64
}

func NewCoinFlipEngine(redisClient *redis.Client, walletSvc wallet.Service, cfg Config) *CoinFlipEngine {
	return &CoinFlipEngine{redisClient: redisClient, wallet: walletSvc, cfg: cfg}
}

func (e *CoinFlipEngine) GetType() GameType {
	return GameTypeCoinFlip
}

func (e *CoinFlipEngine) Start(ctx context.Context) error {
	log.Println("[COINFLIP] Engine started")
	return nil
}

func (e *CoinFlipEngine) Stop() error {
	log.Println("[COINFLIP] Engine stopped")
	return nil
}

func (e *CoinFlipEngine) PlaceBet(ctx context.Context, req interface{}) (interface{}, error) {
	flipReq, ok := req.(CoinFlipRequest)
	if !ok {
		return nil, errors.New("invalid request type")
	}

	call := fair.CoinSide(flipReq.Call)
	if call != fair.CoinHeads && call != fair.CoinTails {
		return CoinFlipResponse{Success: false, Message: "Call must be heads or tails"}, nil
	}
	if flipReq.Amount < e.cfg.MinStake || flipReq.Amount > e.cfg.MaxStake {
		return CoinFlipResponse{
			Success: false,
			Message: fmt.Sprintf("Bet must be between %.2f and %.2f", e.cfg.MinStake, e.cfg.MaxStake),
		}, nil
	}

	nonce := int(atomic.AddInt64(&e.nonce, 1))
	gameID := fmt.Sprintf("COIN-%s-%d", flipReq.UserID, time.Now().UnixNano())

	if err := e.wallet.ReserveStake(ctx, flipReq.UserID, gameID, flipReq.Amount); err != nil {
		if err == wallet.ErrInsufficientFunds {
			return CoinFlipResponse{Success: false, Message: "Insufficient balance"}, nil
		}
		return CoinFlipResponse{Success: false, Message: "Transaction failed"}, nil
	}

	seed := fair.NewRoundSeed(fair.GenerateSeed(), nonce)
	result := fair.FlipCoin(fair.Draw(seed, 0))

	win := result == call
	payout := 0.0
	if win {
		payout = flipReq.Amount * CoinPayoutMultiplier
		if err := e.wallet.Credit(ctx, flipReq.UserID, gameID, payout); err != nil {
			return CoinFlipResponse{Success: false, Message: "Failed to credit payout"}, nil
		}
	}

	state := CoinFlipGameState{
		GameID:     gameID,
		UserID:     flipReq.UserID,
		BetAmount:  flipReq.Amount,
		Call:       call,
		ServerSeed: seed.ServerSeed,
		ClientSeed: seed.ClientSeed,
		Nonce:      nonce,
		Result:     result,
		Win:        win,
		Payout:     payout,
		CreatedAt:  time.Now(),
	}

	stateJSON, _ := json.Marshal(state)
	e.redisClient.Set(ctx, redisKeyCoinGame+gameID, string(stateJSON), 1*time.Hour)

	log.Printf("[COINFLIP] %s called %s, landed %s, payout %.2f",
		flipReq.UserID, call, result, payout)

	return CoinFlipResponse{
		Success:    true,
		Message:    "Flip complete",
		GameID:     gameID,
		Result:     string(result),
		Win:        win,
		Payout:     payout,
		ServerSeed: seed.ServerSeed,
		ClientSeed: seed.ClientSeed,
		Nonce:      nonce,
	}, nil
}
