package walkthrough

import (
	"time"

	"github.com/google/uuid"

	"github.com/roach88/walkthrough/internal/engine"
)

// IDGenerator supplies IDs for steps authored without one.
// Implemented by UUIDv7Generator (production) and testutil.SequentialGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 step IDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Steps converts a definition into engine steps.
//
// Missing IDs are taken from gen; a nil gen means UUIDv7Generator. The
// payload map is passed through as the step payload (nil stays nil).
func Steps(def *Definition, gen IDGenerator) []engine.Step {
	if gen == nil {
		gen = UUIDv7Generator{}
	}

	steps := make([]engine.Step, len(def.Steps))
	for i, sd := range def.Steps {
		id := NormalizeID(sd.ID)
		if id == "" {
			id = gen.Generate()
		}
		var payload any
		if sd.Payload != nil {
			payload = sd.Payload
		}
		steps[i] = engine.Step{
			ID:      id,
			Delay:   time.Duration(sd.DelayMS) * time.Millisecond,
			Payload: payload,
		}
	}
	return steps
}

// DefaultSpeed returns the definition's speed, or engine.DefaultSpeed when unset.
func (d *Definition) DefaultSpeed() float64 {
	if d.Speed > 0 {
		return d.Speed
	}
	return engine.DefaultSpeed
}
