package harness

import (
	"time"

	"github.com/roach88/walkthrough/internal/engine"
)

// Trace event types.
const (
	EventStepChanged = "step_changed"
	EventCompleted   = "completed"
	EventReset       = "reset"
)

// TraceEvent is one observer notification captured during a run.
type TraceEvent struct {
	Type   string `json:"type"`
	StepID string `json:"step_id,omitempty"`
	Index  int    `json:"index"`
	AtMS   int64  `json:"at_ms"` // Virtual time of the notification
}

// FinalState is the engine state when the script ends.
type FinalState struct {
	Index     int     `json:"index"`
	Visible   int     `json:"visible"`
	Playing   bool    `json:"playing"`
	Complete  bool    `json:"complete"`
	Speed     float64 `json:"speed"`
	Total     int     `json:"total"`
	Current   string  `json:"current,omitempty"` // ID of the current step
	ElapsedMS int64   `json:"elapsed_ms"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expect command and assertion matched.
	Pass bool `json:"pass"`

	// Trace contains every observer notification in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the engine state after the last script command.
	Final FinalState `json:"final"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddEvent appends a notification to the trace.
func (r *Result) AddEvent(eventType, stepID string, index int, at time.Duration) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   eventType,
		StepID: stepID,
		Index:  index,
		AtMS:   at.Milliseconds(),
	})
}

// finalStateOf converts an engine snapshot.
func finalStateOf(s engine.State, elapsed time.Duration) FinalState {
	var current string
	if step, ok := s.Current(); ok {
		current = step.ID
	}
	return FinalState{
		Index:     s.Index,
		Visible:   len(s.Visible),
		Playing:   s.Playing,
		Complete:  s.Complete,
		Speed:     s.Speed,
		Total:     s.Total,
		Current:   current,
		ElapsedMS: elapsed.Milliseconds(),
	}
}
