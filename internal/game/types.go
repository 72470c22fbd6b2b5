package game

import (
	"time"
)

// Phase is the orchestrator's state over a round, layered on the clock's
// states: AcceptingBets overlaps Countdown, Running overlaps Growing,
// Settling is entered on Crashed.
type Phase string

const (
	PhaseAcceptingBets Phase = "ACCEPTING_BETS"
	PhaseRunning       Phase = "RUNNING"
	PhaseSettling      Phase = "SETTLING"
)

// ParticipantKind tags whether a bet belongs to a real player or a simulated
// one. Simulated bets flow through the same ledger and settlement path as
// player bets; only their exit policy differs.
type ParticipantKind string

const (
	ParticipantPlayer    ParticipantKind = "player"
	ParticipantSimulated ParticipantKind = "simulated"
)

// BetStatus transitions exactly once away from Open.
type BetStatus string

const (
	BetOpen   BetStatus = "open"
	BetWon    BetStatus = "won"
	BetLost   BetStatus = "lost"
	BetVoided BetStatus = "voided"
)

// Bet is one admitted wager for the active round.
type Bet struct {
	ID               string          `json:"bet_id"`
	ParticipantID    string          `json:"participant_id"`
	Kind             ParticipantKind `json:"participant_kind"`
	Stake            float64         `json:"stake"`
	AutoCashout      float64         `json:"auto_cashout,omitempty"` // 0 = none
	Status           BetStatus       `json:"status"`
	ResultMultiplier float64         `json:"result_multiplier,omitempty"`
	PlacedAt         time.Time       `json:"placed_at"`
}

// Payout is stake times the multiplier the bet settled at; zero unless won.
func (b Bet) Payout() float64 {
	if b.Status != BetWon {
		return 0
	}
	return b.Stake * b.ResultMultiplier
}

// RoundSnapshot is the read-only view of the in-progress round handed to
// HTTP callers and newly connected websocket clients. The crash multiplier
// and server seed stay hidden until the crash broadcast.
type RoundSnapshot struct {
	RoundID            string    `json:"round_id"`
	Phase              Phase     `json:"phase"`
	ServerSeedHash     string    `json:"server_seed_hash"`
	ClientSeed         string    `json:"client_seed"`
	Nonce              int       `json:"nonce"`
	CurrentMultiplier  float64   `json:"current_multiplier"`
	CountdownRemaining float64   `json:"countdown_remaining,omitempty"`
	StartedAt          time.Time `json:"started_at"`
}

// RoundRecord is the archived result of a settled round. The server seed is
// revealed here so past rounds can be audited; records live in a bounded
// ring buffer for display and go to postgres for the permanent trail.
type RoundRecord struct {
	RoundID         string    `json:"round_id"`
	CrashMultiplier float64   `json:"crash_multiplier"`
	ServerSeed      string    `json:"server_seed"`
	ServerSeedHash  string    `json:"server_seed_hash"`
	ClientSeed      string    `json:"client_seed"`
	Nonce           int       `json:"nonce"`
	HouseEdge       float64   `json:"house_edge"`
	Aborted         bool      `json:"aborted,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
}

// BetRequest is delivered to the round goroutine over the bet channel; the
// reply comes back on ResponseChan.
type BetRequest struct {
	ParticipantID string           `json:"participant_id"`
	Stake         float64          `json:"stake"`
	AutoCashout   float64          `json:"auto_cashout,omitempty"`
	ResponseChan  chan BetResponse `json:"-"`
}

type BetResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	BetID   string `json:"bet_id,omitempty"`
}

type CashoutRequest struct {
	ParticipantID string               `json:"participant_id"`
	BetID         string               `json:"bet_id"`
	ResponseChan  chan CashoutResponse `json:"-"`
}

type CashoutResponse struct {
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	Multiplier float64 `json:"multiplier,omitempty"`
	Payout     float64 `json:"payout,omitempty"`
}

// Websocket event payloads.

type BetPlacedEvent struct {
	ParticipantID string  `json:"participant_id"`
	BetID         string  `json:"bet_id"`
	Stake         float64 `json:"stake"`
}

type CashoutEvent struct {
	ParticipantID string  `json:"participant_id"`
	BetID         string  `json:"bet_id"`
	Multiplier    float64 `json:"multiplier"`
	Payout        float64 `json:"payout"`
}
