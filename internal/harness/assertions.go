package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %6dms %s", i+1, event.AtMS, event.Type)
			if event.StepID != "" {
				fmt.Fprintf(&buf, " %s", event.StepID)
			}
			fmt.Fprintf(&buf, " (index %d)\n", event.Index)
		}
	}

	return buf.String()
}

// assertEventCount checks the event type appears exactly Count times.
func assertEventCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == assertion.Event {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Event),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertEventOrder checks the event types appear in order.
// Events don't need to be consecutive (intervening events are allowed), and
// a type may repeat in the expected list.
func assertEventOrder(trace []TraceEvent, assertion Assertion) error {
	pos := 0
	for _, want := range assertion.Events {
		found := false
		for pos < len(trace) {
			event := trace[pos]
			pos++
			if event.Type == want {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("events in order: %v", assertion.Events),
				Actual:   fmt.Sprintf("no %s after position %d", want, pos),
				Trace:    trace,
			}
		}
	}

	return nil
}

// assertStepSequence checks the IDs of step_changed events match exactly.
func assertStepSequence(trace []TraceEvent, assertion Assertion) error {
	ids := []string{}
	for _, event := range trace {
		if event.Type == EventStepChanged {
			ids = append(ids, event.StepID)
		}
	}

	if !slices.Equal(ids, assertion.IDs) {
		return &AssertionError{
			Type:     AssertStepSequence,
			Expected: fmt.Sprintf("%v", assertion.IDs),
			Actual:   fmt.Sprintf("%v", ids),
			Trace:    trace,
		}
	}

	return nil
}

// assertFinalState compares the state captured after the script.
func assertFinalState(final FinalState, assertion Assertion) error {
	mismatches := compareExpect(assertion.Expect, final)
	if len(mismatches) == 0 {
		return nil
	}

	return &AssertionError{
		Type:     AssertFinalState,
		Expected: "final state to match",
		Actual:   strings.Join(mismatches, "; "),
	}
}

// EvaluateAssertions runs all assertions against the result.
// Returns one message per failing assertion; nil if all pass.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertEventCount:
			err = assertEventCount(result.Trace, assertion)
		case AssertEventOrder:
			err = assertEventOrder(result.Trace, assertion)
		case AssertStepSequence:
			err = assertStepSequence(result.Trace, assertion)
		case AssertFinalState:
			if assertion.Expect == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires expect", i)
			} else {
				err = assertFinalState(result.Final, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
