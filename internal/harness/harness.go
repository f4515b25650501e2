package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/walkthrough/internal/engine"
	"github.com/roach88/walkthrough/internal/testutil"
	"github.com/roach88/walkthrough/internal/walkthrough"
)

// Harness is the test execution engine.
// It runs one scenario against a fresh engine on a virtual clock.
type Harness struct {
	engine *engine.Engine
	clock  *testutil.FakeClock
	steps  []engine.Step
	result *Result
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Resolve steps from the walkthrough file or the inline list
// 2. Build an engine on a fresh FakeClock with a recording observer
// 3. Execute script commands, checking expect commands as they come
// 4. Capture the final state, destroy the engine, evaluate assertions
//
// An error is returned only when the scenario cannot be set up. Script and
// assertion failures are reported through Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	steps, speed, err := resolveSteps(scenario)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		clock:  testutil.NewFakeClock(),
		steps:  steps,
		result: NewResult(),
	}

	eng, err := engine.New(steps,
		engine.WithClock(h.clock),
		engine.WithSpeed(speed),
		engine.WithObserver(h.observer()),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	h.engine = eng

	for i, cmd := range scenario.Script {
		h.execute(i, cmd)
	}

	h.result.Final = finalStateOf(eng.Snapshot(), h.clock.Now())
	eng.Destroy()

	for _, errMsg := range EvaluateAssertions(h.result, scenario.Assertions) {
		h.result.AddError(errMsg)
	}

	return h.result, nil
}

// resolveSteps returns the engine steps and initial speed for a scenario.
// Missing step IDs are filled deterministically ("step-1", "step-2", ...).
func resolveSteps(s *Scenario) ([]engine.Step, float64, error) {
	def := &walkthrough.Definition{Name: s.Name, Steps: s.Steps}
	if s.Walkthrough != "" {
		loaded, err := walkthrough.Load(s.Walkthrough)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to load walkthrough: %w", err)
		}
		def = loaded
	}

	speed := def.DefaultSpeed()
	if s.Speed > 0 {
		speed = s.Speed
	}

	return walkthrough.Steps(def, testutil.NewSequentialGenerator("step")), speed, nil
}

// observer records every notification with its virtual time.
func (h *Harness) observer() engine.Observer {
	return engine.Observer{
		OnStepChange: func(step engine.Step, index int) {
			h.result.AddEvent(EventStepChanged, step.ID, index, h.clock.Now())
		},
		OnComplete: func() {
			h.result.AddEvent(EventCompleted, "", len(h.steps)-1, h.clock.Now())
		},
		OnReset: func() {
			h.result.AddEvent(EventReset, "", -1, h.clock.Now())
		},
	}
}

// execute runs a single script command.
func (h *Harness) execute(i int, cmd Command) {
	switch cmd.Kind() {
	case CmdPlay:
		h.engine.Play()
	case CmdPause:
		h.engine.Pause()
	case CmdReset:
		h.engine.Reset()
	case CmdNext:
		h.engine.NextStep()
	case CmdPrev:
		h.engine.PrevStep()
	case CmdDestroy:
		h.engine.Destroy()
	case CmdAdvance:
		h.clock.Advance(cmd.Advance)
	case CmdSpeed:
		if err := h.engine.SetSpeed(cmd.Speed); err != nil {
			h.result.AddError(fmt.Sprintf("script[%d]: %v", i, err))
		}
	case CmdExpect:
		state := finalStateOf(h.engine.Snapshot(), h.clock.Now())
		for _, mismatch := range compareExpect(cmd.Expect, state) {
			h.result.AddError(fmt.Sprintf("script[%d]: %s", i, mismatch))
		}
	}
}

// compareExpect lists every field of exp that differs from state.
func compareExpect(exp *Expect, state FinalState) []string {
	var mismatches []string
	check := func(field string, want, got any) {
		if want != got {
			mismatches = append(mismatches, fmt.Sprintf("expected %s %v, got %v", field, want, got))
		}
	}

	if exp.Index != nil {
		check("index", *exp.Index, state.Index)
	}
	if exp.Visible != nil {
		check("visible", *exp.Visible, state.Visible)
	}
	if exp.Playing != nil {
		check("playing", *exp.Playing, state.Playing)
	}
	if exp.Complete != nil {
		check("complete", *exp.Complete, state.Complete)
	}
	if exp.Speed != nil {
		check("speed", *exp.Speed, state.Speed)
	}
	if exp.Total != nil {
		check("total", *exp.Total, state.Total)
	}
	if exp.Current != nil && *exp.Current != state.Current {
		mismatches = append(mismatches, fmt.Sprintf("expected current %q, got %q", *exp.Current, state.Current))
	}

	return mismatches
}
