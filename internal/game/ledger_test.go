package game

import (
	"sync"
	"testing"
)

func openBet(id string) Bet {
	return Bet{ID: id, ParticipantID: "user-" + id, Kind: ParticipantPlayer, Stake: 100}
}

func TestBetLedger_Admit(t *testing.T) {
	ledger := NewBetLedger()

	if err := ledger.Admit(openBet("b1")); err != nil {
		t.Fatalf("Admit() error = %v", err)
	}

	t.Run("duplicate id rejected", func(t *testing.T) {
		if err := ledger.Admit(openBet("b1")); err != ErrDuplicateBet {
			t.Errorf("Admit() error = %v, want ErrDuplicateBet", err)
		}
	})

	t.Run("closed ledger rejects", func(t *testing.T) {
		ledger.Close()
		if err := ledger.Admit(openBet("b2")); err != ErrRoundNotAcceptingBets {
			t.Errorf("Admit() error = %v, want ErrRoundNotAcceptingBets", err)
		}
	})
}

func TestBetLedger_SettleWin(t *testing.T) {
	ledger := NewBetLedger()
	ledger.Admit(openBet("b1"))

	if err := ledger.SettleWin("b1", 2.5); err != nil {
		t.Fatalf("SettleWin() error = %v", err)
	}

	bet, _ := ledger.Get("b1")
	if bet.Status != BetWon {
		t.Errorf("status = %v, want won", bet.Status)
	}
	if bet.ResultMultiplier != 2.5 {
		t.Errorf("resultMultiplier = %v, want 2.5", bet.ResultMultiplier)
	}

	t.Run("unknown bet", func(t *testing.T) {
		if err := ledger.SettleWin("missing", 2.0); err != ErrUnknownBet {
			t.Errorf("SettleWin() error = %v, want ErrUnknownBet", err)
		}
	})

	t.Run("already settled", func(t *testing.T) {
		if err := ledger.SettleWin("b1", 3.0); err != ErrAlreadySettled {
			t.Errorf("SettleWin() error = %v, want ErrAlreadySettled", err)
		}
		// The original settlement must be untouched.
		bet, _ := ledger.Get("b1")
		if bet.ResultMultiplier != 2.5 {
			t.Errorf("resultMultiplier mutated to %v", bet.ResultMultiplier)
		}
	})
}

func TestBetLedger_ConcurrentDoubleSettle(t *testing.T) {
	// Two simultaneous settles of the same id must produce exactly one
	// success; anything else is a double payout.
	for i := 0; i < 100; i++ {
		ledger := NewBetLedger()
		ledger.Admit(openBet("b1"))

		var wg sync.WaitGroup
		results := make(chan error, 2)
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- ledger.SettleWin("b1", 2.0)
			}()
		}
		wg.Wait()
		close(results)

		successes := 0
		alreadySettled := 0
		for err := range results {
			switch err {
			case nil:
				successes++
			case ErrAlreadySettled:
				alreadySettled++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}

		if successes != 1 || alreadySettled != 1 {
			t.Fatalf("got %d successes and %d already-settled, want 1 and 1", successes, alreadySettled)
		}
	}
}

func TestBetLedger_SettleAllOpenAsLost(t *testing.T) {
	ledger := NewBetLedger()
	ledger.Admit(openBet("b1"))
	ledger.Admit(openBet("b2"))
	ledger.Admit(openBet("b3"))
	ledger.SettleWin("b2", 1.8)

	lost := ledger.SettleAllOpenAsLost()
	if len(lost) != 2 {
		t.Fatalf("settled %d bets as lost, want 2", len(lost))
	}
	if lost[0] != "b1" || lost[1] != "b3" {
		t.Errorf("lost order = %v, want [b1 b3]", lost)
	}

	// Exhaustive settlement: nothing may remain open.
	for _, bet := range ledger.Snapshot() {
		if bet.Status == BetOpen {
			t.Errorf("bet %s still open after SettleAllOpenAsLost", bet.ID)
		}
	}

	t.Run("idempotent", func(t *testing.T) {
		if again := ledger.SettleAllOpenAsLost(); len(again) != 0 {
			t.Errorf("second call settled %d bets, want 0", len(again))
		}
	})
}

func TestBetLedger_VoidAllOpen(t *testing.T) {
	ledger := NewBetLedger()
	ledger.Admit(openBet("b1"))
	ledger.Admit(openBet("b2"))
	ledger.SettleWin("b1", 1.5)

	voided := ledger.VoidAllOpen()
	if len(voided) != 1 || voided[0] != "b2" {
		t.Fatalf("voided = %v, want [b2]", voided)
	}

	bet, _ := ledger.Get("b1")
	if bet.Status != BetWon {
		t.Error("settled bet must keep its outcome through a void")
	}
	bet, _ = ledger.Get("b2")
	if bet.Status != BetVoided {
		t.Errorf("bet b2 status = %v, want voided", bet.Status)
	}
}

func TestBetLedger_Snapshot(t *testing.T) {
	ledger := NewBetLedger()
	ids := []string{"b3", "b1", "b2"}
	for _, id := range ids {
		ledger.Admit(openBet(id))
	}

	snapshot := ledger.Snapshot()
	if len(snapshot) != 3 {
		t.Fatalf("snapshot length = %d, want 3", len(snapshot))
	}
	for i, id := range ids {
		if snapshot[i].ID != id {
			t.Errorf("snapshot[%d] = %s, want %s (admission order)", i, snapshot[i].ID, id)
		}
	}

	// Mutating the snapshot must not leak into the ledger.
	snapshot[0].Status = BetWon
	bet, _ := ledger.Get("b3")
	if bet.Status != BetOpen {
		t.Error("snapshot mutation leaked into ledger")
	}
}

func TestBetLedger_Open(t *testing.T) {
	ledger := NewBetLedger()
	ledger.Admit(openBet("b1"))
	ledger.Admit(openBet("b2"))
	ledger.SettleWin("b1", 2.0)

	open := ledger.Open()
	if len(open) != 1 || open[0].ID != "b2" {
		t.Errorf("Open() = %v, want just b2", open)
	}
}
