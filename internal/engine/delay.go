package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// MinStepDelay is the floor applied to every effective delay so large speed
// multipliers keep a perceptible interval between steps.
const MinStepDelay = 200 * time.Millisecond

// DefaultSpeed is the speed multiplier of a new engine.
const DefaultSpeed = 1.0

// Speeds are the discrete multipliers offered to end users.
var Speeds = []float64{0.5, 1, 2, 4}

// MaxStepDelay is the longest representable delay. Effective delays that
// would exceed it saturate instead of wrapping.
const MaxStepDelay = time.Duration(math.MaxInt64)

// EffectiveDelay returns max(delay/speed, MinStepDelay), capped at MaxStepDelay.
//
// A speed that is not a positive finite number is treated as DefaultSpeed.
func EffectiveDelay(delay time.Duration, speed float64) time.Duration {
	if !validSpeed(speed) {
		speed = DefaultSpeed
	}
	f := float64(delay) / speed
	if f >= math.MaxInt64 {
		return MaxStepDelay
	}
	if d := time.Duration(f); d > MinStepDelay {
		return d
	}
	return MinStepDelay
}

// TotalDuration returns the time auto-play takes to reveal every step from
// the start at the given speed. The sum saturates at MaxStepDelay.
func TotalDuration(steps []Step, speed float64) time.Duration {
	var total time.Duration
	for _, s := range steps {
		d := EffectiveDelay(s.Delay, speed)
		if d > MaxStepDelay-total {
			return MaxStepDelay
		}
		total += d
	}
	return total
}

// ParseSpeed parses a multiplier such as "2", "2x", "0.5x" or "4×".
func ParseSpeed(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimSuffix(trimmed, "x")
	trimmed = strings.TrimSuffix(trimmed, "X")
	trimmed = strings.TrimSuffix(trimmed, "×")

	v, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
	if err != nil {
		return 0, NewSpeedError(s, fmt.Sprintf("not a number: %q", s))
	}
	if !validSpeed(v) {
		return 0, NewSpeedError(s, fmt.Sprintf("speed must be a positive finite number, got %v", v))
	}
	return v, nil
}

// FormatSpeed renders a multiplier the way ParseSpeed accepts it ("0.5x").
func FormatSpeed(speed float64) string {
	return strconv.FormatFloat(speed, 'f', -1, 64) + "x"
}

func validSpeed(speed float64) bool {
	return speed > 0 && !math.IsInf(speed, 0) && !math.IsNaN(speed)
}
