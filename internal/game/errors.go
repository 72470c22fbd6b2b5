package game

import (
	"errors"
	"fmt"
)

// Validation and state errors are surfaced synchronously to the caller with
// no state change. Resource errors (wallet, persistence) are retried
// asynchronously and never block round progression.
var (
	ErrInvalidStake          = errors.New("stake must be positive")
	ErrStakeOutOfRange       = errors.New("stake outside allowed range")
	ErrInvalidAutoCashout    = errors.New("auto cashout must be greater than 1.0")
	ErrRoundNotAcceptingBets = errors.New("round is not accepting bets")
	ErrDuplicateBet          = errors.New("duplicate bet id")
	ErrUnknownBet            = errors.New("unknown bet id")
	ErrAlreadySettled        = errors.New("bet already settled")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrNoActiveRound         = errors.New("no active round")
)

// FairnessViolation is the programming-bug class: a bet observed settled both
// ways, or a crash transition firing twice. It is never ignored; the round is
// aborted with open bets voided rather than settled incorrectly.
type FairnessViolation struct {
	RoundID string
	Reason  string
}

func (e *FairnessViolation) Error() string {
	return fmt.Sprintf("fairness invariant violated in round %s: %s", e.RoundID, e.Reason)
}
