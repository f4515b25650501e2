package engine

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/walkthrough/internal/clock"
)

// Engine is the step sequencer.
//
// Thread-safety model:
//   - every method is safe from any goroutine
//   - timer callbacks run on whatever goroutine the Clock uses
//   - observer callbacks run after the state lock is released, in transition order
//   - a notification made stale by a later transition is dropped, so a
//     callback that re-enters the engine never sees an outdated OnComplete
//
// INVARIANTS:
//   - -1 <= index <= len(steps)-1
//   - playing implies !complete
//   - at most one timer is armed at any instant
//   - speed > 0
type Engine struct {
	mu       sync.Mutex
	steps    []Step // Copied at construction, never mutated
	index    int
	playing  bool
	speed    float64
	slot     timerSlot
	observer Observer

	clock  clock.Clock
	logger *slog.Logger

	destroyed atomic.Bool
	epoch     atomic.Uint64 // Bumped under mu on every cursor transition
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithClock sets the scheduler. Default: clock.System.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithObserver sets the lifecycle callbacks.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithSpeed sets the initial speed multiplier. New rejects invalid values.
func WithSpeed(speed float64) Option {
	return func(e *Engine) {
		e.speed = speed
	}
}

// WithLogger sets the logger for transition diagnostics. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Engine over steps.
//
// The steps slice is copied so later mutation by the caller cannot change
// the sequence. Every step needs a non-empty unique ID and a positive delay.
func New(steps []Step, opts ...Option) (*Engine, error) {
	if err := validateSteps(steps); err != nil {
		return nil, err
	}

	stepsCopy := make([]Step, len(steps))
	copy(stepsCopy, steps)

	e := &Engine{
		steps:  stepsCopy,
		index:  -1,
		speed:  DefaultSpeed,
		clock:  clock.System,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if !validSpeed(e.speed) {
		return nil, NewSpeedError(e.speed, "")
	}

	return e, nil
}

// Play starts auto-play from the current position.
//
// No-op if already playing, complete, empty or destroyed.
func (e *Engine) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed.Load() || e.playing || e.completeLocked() || len(e.steps) == 0 {
		return
	}

	e.playing = true
	e.armLocked()
	e.logger.Debug("playback started", "index", e.index, "speed", e.speed)
}

// Pause stops auto-play, keeping the current position. No-op if not playing.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.playing {
		return
	}

	e.slot.cancel()
	e.playing = false
	e.logger.Debug("playback paused", "index", e.index)
}

// Reset cancels auto-play and rewinds to before the first step.
// OnReset fires once per call.
func (e *Engine) Reset() {
	e.mu.Lock()
	if e.destroyed.Load() {
		e.mu.Unlock()
		return
	}

	e.slot.cancel()
	e.playing = false
	e.index = -1
	notes := []notification{{kind: notifyReset, index: -1, epoch: e.epoch.Add(1)}}
	obs := e.observer
	e.logger.Debug("sequence reset")
	e.mu.Unlock()

	e.emit(obs, notes)
}

// NextStep reveals the next step immediately.
//
// No-op at the last step or on an empty sequence. While playing, the pending
// timer is re-armed for the step after the new one.
func (e *Engine) NextStep() {
	e.mu.Lock()
	if e.destroyed.Load() || e.index >= len(e.steps)-1 {
		e.mu.Unlock()
		return
	}

	notes := e.stepLocked()
	obs := e.observer
	e.mu.Unlock()

	e.emit(obs, notes)
}

// PrevStep hides the current step. No callbacks fire.
//
// No-op before the first step. While playing, the pending timer is re-armed
// for the step after the new position.
func (e *Engine) PrevStep() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed.Load() || e.index <= -1 {
		return
	}

	e.index--
	e.epoch.Add(1)
	if e.playing {
		e.armLocked()
	}
	e.logger.Debug("stepped back", "index", e.index)
}

// SetSpeed changes the multiplier used by timers armed from now on.
//
// Returns a ValidationError with ErrCodeInvalidSpeed if speed is not a
// positive finite number; the current speed is kept.
func (e *Engine) SetSpeed(speed float64) error {
	if !validSpeed(speed) {
		return NewSpeedError(speed, "")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed.Load() {
		return nil
	}
	e.speed = speed
	e.logger.Debug("speed changed", "speed", speed)
	return nil
}

// Destroy cancels any pending timer and detaches the observer.
//
// After Destroy returns, no state changes and no new callbacks happen.
// Every method stays safe to call. Destroy is idempotent.
func (e *Engine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed.Swap(true) {
		return
	}
	e.slot.cancel()
	e.playing = false
	e.observer = Observer{}
	e.logger.Debug("engine destroyed", "index", e.index)
}

// CurrentIndex returns the current step index, -1 before the first step.
func (e *Engine) CurrentIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index
}

// CurrentStep returns the current step, or false if nothing is revealed yet.
func (e *Engine) CurrentStep() (Step, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.index < 0 {
		return Step{}, false
	}
	return e.steps[e.index], true
}

// VisibleSteps returns a copy of the revealed prefix.
func (e *Engine) VisibleSteps() []Step {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.visibleLocked()
}

// IsPlaying reports whether auto-play is active.
func (e *Engine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

// IsComplete reports whether the last step of a non-empty sequence is current.
func (e *Engine) IsComplete() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.completeLocked()
}

// TotalSteps returns the length of the sequence.
func (e *Engine) TotalSteps() int {
	return len(e.steps)
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// Snapshot returns all read-only values from a single consistent point.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		Index:    e.index,
		Visible:  e.visibleLocked(),
		Playing:  e.playing,
		Complete: e.completeLocked(),
		Speed:    e.speed,
		Total:    len(e.steps),
	}
}

func (e *Engine) completeLocked() bool {
	return len(e.steps) > 0 && e.index == len(e.steps)-1
}

func (e *Engine) visibleLocked() []Step {
	visible := make([]Step, e.index+1)
	copy(visible, e.steps[:e.index+1])
	return visible
}

// stepLocked reveals the next step and, while still playing, re-arms the
// timer for the one after it. Caller guarantees index < len(steps)-1.
func (e *Engine) stepLocked() []notification {
	notes := e.advanceLocked()
	if e.playing {
		e.armLocked()
	}
	return notes
}

// advanceLocked moves the cursor forward one step and stops playback on
// arrival at the last step.
func (e *Engine) advanceLocked() []notification {
	e.index++
	epoch := e.epoch.Add(1)
	step := e.steps[e.index]
	notes := []notification{{kind: notifyStepChange, step: step, index: e.index, epoch: epoch}}
	e.logger.Debug("step revealed", "index", e.index, "step", step.ID)

	if e.completeLocked() {
		e.slot.cancel()
		e.playing = false
		notes = append(notes, notification{kind: notifyComplete, index: e.index, epoch: epoch})
		e.logger.Debug("sequence complete", "steps", len(e.steps))
	}
	return notes
}

// armLocked replaces the pending timer with one for the step after index.
func (e *Engine) armLocked() {
	next := e.index + 1
	delay := EffectiveDelay(e.steps[next].Delay, e.speed)
	e.slot.arm(e.clock, delay, e.onTimer)
}

// onTimer runs when the timer armed for generation gen fires.
func (e *Engine) onTimer(gen uint64) {
	e.mu.Lock()
	if e.destroyed.Load() || !e.slot.claim(gen) || !e.playing {
		e.mu.Unlock()
		return
	}

	notes := e.stepLocked()
	obs := e.observer
	e.mu.Unlock()

	e.emit(obs, notes)
}

type notifyKind int

const (
	notifyStepChange notifyKind = iota + 1
	notifyComplete
	notifyReset
)

// notification is a callback owed to the observer, captured under the lock
// together with the epoch of the transition that produced it.
type notification struct {
	kind  notifyKind
	step  Step
	index int
	epoch uint64
}

// emit delivers notifications outside the lock. Stops as soon as the engine
// is destroyed or a newer transition has happened, including one made by a
// callback.
func (e *Engine) emit(obs Observer, notes []notification) {
	for _, n := range notes {
		if e.destroyed.Load() || e.epoch.Load() != n.epoch {
			return
		}
		switch n.kind {
		case notifyStepChange:
			if obs.OnStepChange != nil {
				obs.OnStepChange(n.step, n.index)
			}
		case notifyComplete:
			if obs.OnComplete != nil {
				obs.OnComplete()
			}
		case notifyReset:
			if obs.OnReset != nil {
				obs.OnReset()
			}
		}
	}
}
