// Package engine implements the step sequencer that drives scripted
// walkthroughs.
//
// An Engine is a cursor over an immutable, ordered list of timed steps. The
// cursor moves forward automatically while playing (one timer per step, paced
// by each step's delay divided by the speed multiplier) or manually through
// NextStep and PrevStep. Observers are told about every step reveal, every
// completion and every reset.
//
// ARCHITECTURE:
//
// Single Owned Timer:
// The engine owns at most one pending timer. Every armed timer carries a
// generation number; Pause, Reset, Destroy and re-arming revoke the current
// generation, so a timer callback that was already in flight exits without
// touching state.
//
// Serialized Mutations:
// All state lives behind one mutex. Observer callbacks run after the mutex is
// released, in the order the transitions happened, so a callback may call
// back into the engine (for example Pause from OnStepChange).
//
// Injected Clock:
// Scheduling goes through clock.Clock. Production uses clock.System; tests
// use testutil.FakeClock and advance virtual time explicitly.
//
// BOUNDARIES:
//
// Boundary conditions are no-ops, not errors: navigating past either end,
// playing while playing or complete, anything on an empty sequence, anything
// after Destroy. An empty sequence is never complete.
//
// Effective delay of a step is max(delay/speed, MinStepDelay). Changing the
// speed affects timers armed after the change; a pending timer keeps its
// original deadline.
package engine
