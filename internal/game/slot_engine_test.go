package game

import (
	"context"
	"testing"
)

func TestSlotLineMultiplier(t *testing.T) {
	tests := []struct {
		name  string
		stops []int
		want  float64
	}{
		{"three cherries", []int{0, 0, 0}, 2.0},
		{"three sevens", []int{5, 5, 5}, 100.0},
		{"three diamonds", []int{4, 4, 4}, 25.0},
		{"pair on the left", []int{1, 1, 3}, pairMultiplier},
		{"pair on the right", []int{3, 1, 1}, pairMultiplier},
		{"pair on the outside", []int{2, 0, 2}, pairMultiplier},
		{"no match", []int{0, 1, 2}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := slotLineMultiplier(tt.stops); got != tt.want {
				t.Errorf("slotLineMultiplier(%v) = %v, want %v", tt.stops, got, tt.want)
			}
		})
	}
}

func TestSlotEngine_GetType(t *testing.T) {
	engine := &SlotEngine{}

	if engine.GetType() != GameTypeSlots {
		t.Errorf("expected GameTypeSlots, got %v", engine.GetType())
	}
}

func TestSlotEngine_PlaceBet_Validation(t *testing.T) {
	_, client, hub := testFactory()
	w := newFakeWallet()
	engine := NewSlotEngine(client, w, hub, DefaultConfig())
	ctx := context.Background()

	t.Run("rejects wrong request type", func(t *testing.T) {
		if _, err := engine.PlaceBet(ctx, "not a request"); err == nil {
			t.Error("expected error for wrong request type")
		}
	})

	t.Run("rejects stake below minimum", func(t *testing.T) {
		resp, err := engine.PlaceBet(ctx, SlotSpinRequest{UserID: "u1", Amount: 0.5})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.(SlotSpinResponse).Success {
			t.Error("spin accepted below the minimum stake")
		}
	})

	t.Run("rejects insufficient balance", func(t *testing.T) {
		resp, err := engine.PlaceBet(ctx, SlotSpinRequest{UserID: "broke", Amount: 100})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.(SlotSpinResponse).Success {
			t.Error("spin accepted without funds")
		}
	})
}

func TestSlotEngine_PlaceBet_Spin(t *testing.T) {
	_, client, hub := testFactory()
	w := newFakeWallet()
	w.SetBalance(context.Background(), "u1", 1000)
	engine := NewSlotEngine(client, w, hub, DefaultConfig())

	resp, err := engine.PlaceBet(context.Background(), SlotSpinRequest{UserID: "u1", Amount: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spin := resp.(SlotSpinResponse)
	if !spin.Success {
		t.Fatalf("spin rejected: %s", spin.Message)
	}
	if len(spin.Reels) != slotReelCount {
		t.Errorf("got %d reels, want %d", len(spin.Reels), slotReelCount)
	}
	if spin.ServerSeed == "" || spin.ClientSeed == "" {
		t.Error("seeds not revealed for an instant game")
	}
	if spin.Payout != 10*spin.Multiplier {
		t.Errorf("payout = %v, want stake x multiplier", spin.Payout)
	}

	balance, _ := w.Balance(context.Background(), "u1")
	if balance != 1000-10+spin.Payout {
		t.Errorf("balance = %v after stake 10 and payout %v", balance, spin.Payout)
	}
}
