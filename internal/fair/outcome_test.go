package fair

import (
	"testing"
)

func TestCrashPoint(t *testing.T) {
	tests := []struct {
		name      string
		draw      float64
		houseEdge float64
		want      float64
	}{
		{"median draw with 2% edge", 0.5, 0.98, 1.96},
		{"low draw clamps to floor", 0.01, 0.98, 1.0},
		{"zero draw clamps to floor", 0.0, 0.97, 1.0},
		{"high draw clamps to ceiling", 0.9999, 0.98, MaxCrashMultiplier},
		{"median draw with 3% edge", 0.5, 0.97, 1.94},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CrashPoint(tt.draw, tt.houseEdge); got != tt.want {
				t.Errorf("CrashPoint(%v, %v) = %v, want %v", tt.draw, tt.houseEdge, got, tt.want)
			}
		})
	}
}

func TestCrashPoint_Monotonic(t *testing.T) {
	// d1 < d2 must imply crashPoint(d1) <= crashPoint(d2) under a fixed
	// house edge, otherwise audit tooling cannot invert the transform.
	const houseEdge = 0.98

	prev := 0.0
	for i := 0; i < 10000; i++ {
		draw := float64(i) / 10000.0
		point := CrashPoint(draw, houseEdge)
		if point < prev {
			t.Fatalf("CrashPoint not monotonic: draw %v gave %v after %v", draw, point, prev)
		}
		prev = point
	}
}

func TestCrashPoint_Bounds(t *testing.T) {
	seed := RoundSeed{ServerSeed: "bounds_server", ClientSeed: "bounds_client", Nonce: 1}

	for index := uint32(0); index < 2000; index++ {
		point := CrashPoint(Draw(seed, index), 0.97)
		if point < MinMultiplier || point > MaxCrashMultiplier {
			t.Errorf("CrashPoint out of bounds: %v", point)
		}
	}
}

func TestLimboRoll(t *testing.T) {
	tests := []struct {
		name      string
		draw      float64
		houseEdge float64
		want      float64
	}{
		{"median draw", 0.5, 0.98, 1.96},
		{"low draw clamps to floor", 0.001, 0.98, 1.0},
		{"ceiling clamp", 0.9999999999, 0.99, MaxLimboMultiplier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LimboRoll(tt.draw, tt.houseEdge); got != tt.want {
				t.Errorf("LimboRoll(%v, %v) = %v, want %v", tt.draw, tt.houseEdge, got, tt.want)
			}
		})
	}
}

func TestWheelSegmentIndex(t *testing.T) {
	segments := []WheelSegment{
		{Color: "red", Multiplier: 1.5, Weight: 8},
		{Color: "green", Multiplier: 2.0, Weight: 8},
		{Color: "gold", Multiplier: 10.0, Weight: 1},
	}

	tests := []struct {
		name string
		draw float64
		want int
	}{
		{"start of range", 0.0, 0},
		{"middle of first segment", 0.2, 0},
		{"middle of second segment", 0.6, 1},
		{"last seventeenth selects gold", 16.5 / 17.0, 2},
		{"just before the end", 0.999, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WheelSegmentIndex(tt.draw, segments); got != tt.want {
				t.Errorf("WheelSegmentIndex(%v) = %v, want %v", tt.draw, got, tt.want)
			}
		})
	}
}

func TestWheelSegmentIndex_BoundaryBelongsToLower(t *testing.T) {
	// Weights 1 and 1 split [0,1) at exactly 0.5, which is representable,
	// so the boundary comparison is exact.
	segments := []WheelSegment{
		{Color: "red", Multiplier: 1.5, Weight: 1},
		{Color: "green", Multiplier: 2.0, Weight: 1},
	}

	if got := WheelSegmentIndex(0.5, segments); got != 0 {
		t.Errorf("WheelSegmentIndex(0.5) = %v, want 0 (boundary belongs to lower interval)", got)
	}
	if got := WheelSegmentIndex(0.50001, segments); got != 1 {
		t.Errorf("WheelSegmentIndex(0.50001) = %v, want 1", got)
	}
}

func TestWheelSegmentIndex_ZeroWeight(t *testing.T) {
	segments := []WheelSegment{
		{Color: "red", Multiplier: 1.5, Weight: 1},
		{Color: "dead", Multiplier: 50.0, Weight: 0},
		{Color: "green", Multiplier: 2.0, Weight: 1},
	}

	for i := 0; i < 1000; i++ {
		draw := float64(i) / 1000.0
		if got := WheelSegmentIndex(draw, segments); got == 1 {
			t.Fatalf("zero-weight segment selected for draw %v", draw)
		}
	}
}

func TestWheelSegmentIndex_NoPositiveWeight(t *testing.T) {
	segments := []WheelSegment{
		{Color: "red", Multiplier: 1.5, Weight: 0},
		{Color: "green", Multiplier: 2.0, Weight: 0},
	}

	if got := WheelSegmentIndex(0.5, segments); got != -1 {
		t.Errorf("WheelSegmentIndex() = %v, want -1 for all-zero weights", got)
	}
}

func TestFlipCoin(t *testing.T) {
	tests := []struct {
		name string
		draw float64
		want CoinSide
	}{
		{"low draw is heads", 0.0, CoinHeads},
		{"just under half is heads", 0.4999, CoinHeads},
		{"half is tails", 0.5, CoinTails},
		{"high draw is tails", 0.99, CoinTails},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FlipCoin(tt.draw); got != tt.want {
				t.Errorf("FlipCoin(%v) = %v, want %v", tt.draw, got, tt.want)
			}
		})
	}
}

func TestReelStops(t *testing.T) {
	seed := RoundSeed{ServerSeed: "reel_server", ClientSeed: "reel_client", Nonce: 3}
	weights := []float64{10, 8, 6, 4, 2, 1}

	stops := ReelStops(seed, 1, 3, weights)
	if len(stops) != 3 {
		t.Fatalf("expected 3 stops, got %d", len(stops))
	}
	for i, stop := range stops {
		if stop < 0 || stop >= len(weights) {
			t.Errorf("reel %d stop %d out of range", i, stop)
		}
	}

	again := ReelStops(seed, 1, 3, weights)
	for i := range stops {
		if stops[i] != again[i] {
			t.Error("ReelStops() is not deterministic")
			break
		}
	}
}

func TestVerifyCrashPoint(t *testing.T) {
	serverSeed := "verification_server_seed"
	clientSeed := "verification_client_seed"
	nonce := 100
	houseEdge := 0.98

	seed := RoundSeed{ServerSeed: serverSeed, ClientSeed: clientSeed, Nonce: nonce}
	actual := CrashPoint(Draw(seed, 0), houseEdge)

	tests := []struct {
		name       string
		serverSeed string
		claimed    float64
		want       bool
	}{
		{"valid verification", serverSeed, actual, true},
		{"wrong multiplier", serverSeed, actual + 10.0, false},
		{"wrong server seed", "forged_seed", actual + 1.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VerifyCrashPoint(tt.serverSeed, clientSeed, nonce, houseEdge, tt.claimed)
			if got != tt.want {
				t.Errorf("VerifyCrashPoint() = %v, want %v", got, tt.want)
			}
		})
	}
}

func BenchmarkCrashPoint(b *testing.B) {
	seed := RoundSeed{ServerSeed: "benchmark_server", ClientSeed: "benchmark_client", Nonce: 1}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		CrashPoint(Draw(seed, uint32(i)), 0.97)
	}
}
