package game

import (
	"sync"
)

// BetLedger is the in-memory registry of bets for one round. Admission and
// the per-tick win checks arrive from different scheduling contexts, so
// every mutation is serialized behind one mutex: two simultaneous attempts
// to settle the same bet yield exactly one success and one ErrAlreadySettled.
type BetLedger struct {
	mu        sync.Mutex
	bets      map[string]*Bet
	order     []string
	accepting bool
}

func NewBetLedger() *BetLedger {
	return &BetLedger{
		bets:      make(map[string]*Bet),
		accepting: true,
	}
}

// Admit registers an open bet. Fails once the betting window has closed or
// if the id is already present.
func (l *BetLedger) Admit(bet Bet) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.accepting {
		return ErrRoundNotAcceptingBets
	}
	if _, exists := l.bets[bet.ID]; exists {
		return ErrDuplicateBet
	}

	bet.Status = BetOpen
	l.bets[bet.ID] = &bet
	l.order = append(l.order, bet.ID)
	return nil
}

// Close ends the admission window. Settlement operations remain available.
func (l *BetLedger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accepting = false
}

// SettleWin transitions a bet Open -> Won at the given multiplier.
func (l *BetLedger) SettleWin(id string, atMultiplier float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	bet, exists := l.bets[id]
	if !exists {
		return ErrUnknownBet
	}
	if bet.Status != BetOpen {
		return ErrAlreadySettled
	}

	bet.Status = BetWon
	bet.ResultMultiplier = atMultiplier
	return nil
}

// SettleAllOpenAsLost force-transitions every remaining open bet to Lost and
// returns the ids transitioned, in admission order.
func (l *BetLedger) SettleAllOpenAsLost() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var settled []string
	for _, id := range l.order {
		bet := l.bets[id]
		if bet.Status == BetOpen {
			bet.Status = BetLost
			settled = append(settled, id)
		}
	}
	return settled
}

// VoidAllOpen transitions every remaining open bet to Voided. This is the
// operator-abort path: voided stakes are refunded, not lost.
func (l *BetLedger) VoidAllOpen() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var voided []string
	for _, id := range l.order {
		bet := l.bets[id]
		if bet.Status == BetOpen {
			bet.Status = BetVoided
			voided = append(voided, id)
		}
	}
	return voided
}

// Open returns copies of the bets still open, in admission order.
func (l *BetLedger) Open() []Bet {
	l.mu.Lock()
	defer l.mu.Unlock()

	var open []Bet
	for _, id := range l.order {
		if bet := l.bets[id]; bet.Status == BetOpen {
			open = append(open, *bet)
		}
	}
	return open
}

// Snapshot returns copies of all bets in admission order.
func (l *BetLedger) Snapshot() []Bet {
	l.mu.Lock()
	defer l.mu.Unlock()

	snapshot := make([]Bet, 0, len(l.order))
	for _, id := range l.order {
		snapshot = append(snapshot, *l.bets[id])
	}
	return snapshot
}

// Get returns a copy of one bet.
func (l *BetLedger) Get(id string) (Bet, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bet, exists := l.bets[id]
	if !exists {
		return Bet{}, false
	}
	return *bet, true
}

func (l *BetLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}
