package fair

import "math"

const (
	MinMultiplier = 1.00
	// MaxCrashMultiplier bounds house liability on pathological draws.
	MaxCrashMultiplier = 100.00
	// MaxLimboMultiplier is the display ceiling for limbo rolls.
	MaxLimboMultiplier = 1000000.00

	DefaultHouseEdge = 0.97
)

// CrashPoint maps a draw in [0,1) to a round's crash multiplier under the
// given house edge (a value in (0,1]; smaller means stronger house
// advantage). The transform is monotonic non-decreasing in draw so
// verification tooling can invert it for auditing.
func CrashPoint(draw, houseEdge float64) float64 {
	point := (1.0 / (1.0 - draw)) * houseEdge
	point = roundDown2(point)

	if point < MinMultiplier {
		return MinMultiplier
	}
	if point > MaxCrashMultiplier {
		return MaxCrashMultiplier
	}
	return point
}

// LimboRoll maps a draw to a limbo result multiplier. Same transform family
// as CrashPoint; the player wins when the roll meets their chosen target.
func LimboRoll(draw, houseEdge float64) float64 {
	roll := (1.0 / (1.0 - draw)) * houseEdge
	roll = roundDown2(roll)

	if roll < MinMultiplier {
		return MinMultiplier
	}
	if roll > MaxLimboMultiplier {
		return MaxLimboMultiplier
	}
	return roll
}

// WheelSegment is one slice of a wheel layout. Weight controls how much of
// [0,1) the slice covers; zero-weight slices are never selectable.
type WheelSegment struct {
	Color      string  `json:"color"`
	Multiplier float64 `json:"multiplier"`
	Weight     float64 `json:"weight"`
}

// WheelSegmentIndex partitions [0,1) into contiguous intervals proportional
// to segment weight and returns the index containing the draw. A draw exactly
// on an interval boundary belongs to the lower interval. Returns -1 when no
// segment carries positive weight.
func WheelSegmentIndex(draw float64, segments []WheelSegment) int {
	weights := make([]float64, len(segments))
	for i, s := range segments {
		weights[i] = s.Weight
	}
	return WeightedIndex(draw, weights)
}

// WeightedIndex is the shared weighted-selection primitive behind the wheel
// and the slot reels.
func WeightedIndex(draw float64, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}

	scaled := draw * total
	cum := 0.0
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cum += w
		last = i
		if scaled <= cum {
			return i
		}
	}
	// Float accumulation can leave scaled a hair above the final cum.
	return last
}

// CoinSide is the result of a coin flip.
type CoinSide string

const (
	CoinHeads CoinSide = "heads"
	CoinTails CoinSide = "tails"
)

// FlipCoin is uniform; the coin game's house edge lives in its payout
// multiplier, not in this mapping.
func FlipCoin(draw float64) CoinSide {
	if draw < 0.5 {
		return CoinHeads
	}
	return CoinTails
}

// ReelStops selects one weighted symbol stop per reel, consuming successive
// draw indices starting at baseIndex. Deterministic and replayable like
// every other mapping here.
func ReelStops(seed RoundSeed, baseIndex uint32, reels int, symbolWeights []float64) []int {
	stops := make([]int, reels)
	for i := 0; i < reels; i++ {
		stops[i] = WeightedIndex(Draw(seed, baseIndex+uint32(i)), symbolWeights)
	}
	return stops
}

// VerifyCrashPoint recomputes a round's crash point from the revealed server
// seed and compares it to the published multiplier.
func VerifyCrashPoint(serverSeed, clientSeed string, nonce int, houseEdge, claimed float64) bool {
	seed := RoundSeed{ServerSeed: serverSeed, ClientSeed: clientSeed, Nonce: nonce}
	calculated := CrashPoint(Draw(seed, 0), houseEdge)

	diff := calculated - claimed
	if diff < 0 {
		diff = -diff
	}
	return diff < 0.01
}

func roundDown2(v float64) float64 {
	return math.Floor(v*100.0) / 100.0
}
