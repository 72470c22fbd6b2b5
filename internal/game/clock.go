package game

import (
	"math"
	"time"
)

// ClockState is the round clock's state machine: Countdown ticks down the
// betting window, Growing advances the multiplier, Crashed is terminal.
type ClockState int

const (
	ClockCountdown ClockState = iota
	ClockGrowing
	ClockCrashed
)

// RoundClock is the authoritative per-round timer. It is the single source
// of truth for "what multiplier is it right now"; every settlement
// comparison in a tick uses the one value it computed for that tick.
//
// The growth curve is a presentation choice. The only fairness-relevant
// value is the pre-drawn crash multiplier, reached when the curve first
// computes >= it; on that tick the clock clamps to the crash multiplier and
// reports the crash exactly once.
type RoundClock struct {
	state           ClockState
	remaining       int // countdown ticks left
	elapsed         int // growth ticks taken
	tickInterval    time.Duration
	crashMultiplier float64
	multiplier      float64
}

func NewRoundClock(countdownTicks int, tickInterval time.Duration, crashMultiplier float64) *RoundClock {
	c := &RoundClock{
		remaining:       countdownTicks,
		tickInterval:    tickInterval,
		crashMultiplier: crashMultiplier,
		multiplier:      1.0,
	}
	if countdownTicks <= 0 {
		c.state = ClockGrowing
	}
	return c
}

// Tick advances the clock one interval. crashed is true only on the single
// tick where the growth curve first reaches the crash multiplier; duplicate
// tick delivery after that is a no-op.
func (c *RoundClock) Tick() (multiplier float64, crashed bool) {
	switch c.state {
	case ClockCountdown:
		c.remaining--
		if c.remaining <= 0 {
			c.state = ClockGrowing
			c.elapsed = 0
		}
		return c.multiplier, false

	case ClockGrowing:
		c.elapsed++
		m := GrowthMultiplier(float64(c.elapsed) * c.tickInterval.Seconds())
		if m >= c.crashMultiplier {
			c.state = ClockCrashed
			c.multiplier = c.crashMultiplier
			return c.multiplier, true
		}
		c.multiplier = m
		return c.multiplier, false

	default: // ClockCrashed, terminal
		return c.multiplier, false
	}
}

func (c *RoundClock) State() ClockState {
	return c.state
}

// Multiplier reports the value computed on the most recent tick.
func (c *RoundClock) Multiplier() float64 {
	return c.multiplier
}

// CountdownRemaining is the time left in the betting window.
func (c *RoundClock) CountdownRemaining() time.Duration {
	if c.state != ClockCountdown {
		return 0
	}
	return time.Duration(c.remaining) * c.tickInterval
}

// GrowthMultiplier computes the display multiplier for a given number of
// elapsed seconds. The quadratic term makes rounds visibly accelerate. The
// result is truncated to two decimals so threshold comparisons never hinge
// on sub-cent float noise.
func GrowthMultiplier(elapsedSeconds float64) float64 {
	m := 1.0 + elapsedSeconds/1.5 + elapsedSeconds*elapsedSeconds*0.005
	return math.Floor(m*100.0) / 100.0
}
