package wallet

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyBalancePrefix = "wallet:balance:"
	keyCreditPrefix  = "wallet:credit:"

	creditMarkerTTL = 24 * time.Hour
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Service is the external wallet collaborator: stake reservation at bet
// admission and crediting at settlement. Credits are idempotent per bet id
// so settlement retries never double-pay.
type Service interface {
	ReserveStake(ctx context.Context, participantID, betID string, amount float64) error
	Credit(ctx context.Context, participantID, betID string, amount float64) error
	Refund(ctx context.Context, participantID, betID string, amount float64) error
	Balance(ctx context.Context, participantID string) (float64, error)
	SetBalance(ctx context.Context, participantID string, amount float64) error
}

type service struct {
	client *redis.Client
}

func New(client *redis.Client) Service {
	return &service{client: client}
}

// ReserveStake atomically deducts the stake from the participant's balance,
// rolling the deduction back if it would go negative.
func (s *service) ReserveStake(ctx context.Context, participantID, betID string, amount float64) error {
	key := keyBalancePrefix + participantID

	balance, err := s.client.Get(ctx, key).Float64()
	if err != nil || balance < amount {
		return ErrInsufficientFunds
	}

	newBalance, err := s.client.IncrByFloat(ctx, key, -amount).Result()
	if err != nil {
		return fmt.Errorf("reserve stake for bet %s: %w", betID, err)
	}
	if newBalance < 0 {
		s.client.IncrByFloat(ctx, key, amount) // rollback
		return ErrInsufficientFunds
	}

	return nil
}

// Credit pays out a settled bet. A per-bet marker guards against double
// crediting when settlement is retried.
func (s *service) Credit(ctx context.Context, participantID, betID string, amount float64) error {
	marker := keyCreditPrefix + betID

	set, err := s.client.SetNX(ctx, marker, amount, creditMarkerTTL).Result()
	if err != nil {
		return fmt.Errorf("credit marker for bet %s: %w", betID, err)
	}
	if !set {
		log.Printf("[WALLET] Credit for bet %s already applied, skipping", betID)
		return nil
	}

	if err := s.client.IncrByFloat(ctx, keyBalancePrefix+participantID, amount).Err(); err != nil {
		// Drop the marker so a retry can attempt the credit again.
		s.client.Del(ctx, marker)
		return fmt.Errorf("credit bet %s: %w", betID, err)
	}

	return nil
}

// Refund returns a voided bet's stake. Uses the same idempotency marker
// space as Credit since a bet is settled at most once.
func (s *service) Refund(ctx context.Context, participantID, betID string, amount float64) error {
	return s.Credit(ctx, participantID, betID, amount)
}

func (s *service) Balance(ctx context.Context, participantID string) (float64, error) {
	balance, err := s.client.Get(ctx, keyBalancePrefix+participantID).Float64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("balance for %s: %w", participantID, err)
	}
	return balance, nil
}

func (s *service) SetBalance(ctx context.Context, participantID string, amount float64) error {
	return s.client.Set(ctx, keyBalancePrefix+participantID, amount, 0).Err()
}
