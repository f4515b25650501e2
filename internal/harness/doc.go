// Package harness provides conformance testing for the step sequencer.
//
// The harness loads a scenario, builds an engine on a virtual clock, runs a
// script of engine commands and clock advances, and validates the resulting
// trace and state as executable contract tests.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	walkthrough: ../walkthroughs/three.yaml   # or inline steps:
//	steps:
//	  - { id: a, delay_ms: 500 }
//	speed: 1
//	script:
//	  - play
//	  - advance: 500ms
//	  - expect: { index: 0, playing: true }
//	  - speed: 2x
//	  - next
//	assertions:
//	  - type: event_count
//	    event: completed
//	    count: 1
//	  - type: final_state
//	    expect: { index: 2, complete: true }
//
// A scenario with neither walkthrough nor steps runs on an empty sequence.
//
// # Script Commands
//
//   - play, pause, reset, next, prev, destroy: call the engine method
//   - advance: <duration>: move the virtual clock forward
//   - speed: <multiplier>: call SetSpeed ("2", "2x", "0.5x")
//   - expect: {...}: compare the current engine state
//
// # Assertion Types
//
//   - event_count: an event type appears exactly N times
//   - event_order: event types appear in the given order (gaps allowed)
//   - step_sequence: the IDs of step_changed events, exactly
//   - final_state: the engine state after the script
//
// # Deterministic Testing
//
// Every scenario runs on a fresh testutil.FakeClock, and steps without an
// id are named by testutil.SequentialGenerator ("step-1", "step-2", ...).
// The trace is therefore byte-identical across runs, which makes golden
// comparison (RunWithGolden) meaningful.
package harness
