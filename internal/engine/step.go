package engine

import "time"

// Step is one opaque unit of a walkthrough.
//
// The engine reads only Delay (time before the step is revealed) and ID
// (for validation and logging). Payload is carried through untouched.
type Step struct {
	ID      string
	Delay   time.Duration
	Payload any
}

// State is a consistent snapshot of an engine's read-only values.
type State struct {
	// Index is the current step index, -1 when nothing is revealed yet.
	Index int

	// Visible is the revealed prefix steps[0..Index].
	Visible []Step

	Playing  bool
	Complete bool
	Speed    float64
	Total    int
}

// Current returns the current step, or false if nothing is revealed yet.
func (s State) Current() (Step, bool) {
	if s.Index < 0 || s.Index >= len(s.Visible) {
		return Step{}, false
	}
	return s.Visible[s.Index], true
}

// Observer receives engine lifecycle notifications. Nil fields are skipped.
//
// Callbacks run outside the engine's lock and may call engine methods.
type Observer struct {
	// OnStepChange fires on every index increment, timer-driven or manual.
	OnStepChange func(step Step, index int)

	// OnComplete fires once per transition into the complete state.
	OnComplete func()

	// OnReset fires once per Reset call.
	OnReset func()
}
