package engine

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/walkthrough/internal/clock"
	"github.com/roach88/walkthrough/internal/testutil"
)

// recorder captures observer callbacks in the order they fire.
type recorder struct {
	mu      sync.Mutex
	events  []string
	changes []int
	done    int
	resets  int
}

func (r *recorder) observer() Observer {
	return Observer{
		OnStepChange: func(step Step, index int) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, fmt.Sprintf("change:%s@%d", step.ID, index))
			r.changes = append(r.changes, index)
		},
		OnComplete: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, "complete")
			r.done++
		},
		OnReset: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, "reset")
			r.resets++
		},
	}
}

func (r *recorder) completions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

func makeSteps(delays ...time.Duration) []Step {
	steps := make([]Step, len(delays))
	for i, d := range delays {
		steps[i] = Step{ID: fmt.Sprintf("s%d", i), Delay: d, Payload: i}
	}
	return steps
}

func uniformSteps(n int, d time.Duration) []Step {
	delays := make([]time.Duration, n)
	for i := range delays {
		delays[i] = d
	}
	return makeSteps(delays...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, steps []Step, opts ...Option) (*Engine, *testutil.FakeClock, *recorder) {
	t.Helper()
	fc := testutil.NewFakeClock()
	rec := &recorder{}
	all := append([]Option{WithClock(fc), WithObserver(rec.observer()), WithLogger(quietLogger())}, opts...)
	e, err := New(steps, all...)
	require.NoError(t, err)
	t.Cleanup(e.Destroy)
	return e, fc, rec
}

func assertVisibleInvariant(t *testing.T, e *Engine) {
	t.Helper()
	s := e.Snapshot()
	want := s.Index + 1
	if want < 0 {
		want = 0
	}
	assert.Len(t, s.Visible, want, "visible steps must track index")
	if s.Playing {
		assert.False(t, s.Complete, "playing implies not complete")
	}
}

func TestEngine_InitialState(t *testing.T) {
	for _, n := range []int{0, 1, 3, 10} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			e, fc, _ := newTestEngine(t, uniformSteps(n, 500*time.Millisecond))

			assert.Equal(t, -1, e.CurrentIndex())
			assert.Empty(t, e.VisibleSteps())
			assert.False(t, e.IsPlaying())
			assert.False(t, e.IsComplete())
			assert.Equal(t, n, e.TotalSteps())
			assert.Equal(t, DefaultSpeed, e.Speed())
			_, ok := e.CurrentStep()
			assert.False(t, ok)
			assert.Equal(t, 0, fc.Pending())
		})
	}
}

func TestEngine_New_CopiesSteps(t *testing.T) {
	steps := uniformSteps(2, time.Second)
	e, _, _ := newTestEngine(t, steps)

	steps[0].ID = "mutated"
	e.NextStep()

	cur, ok := e.CurrentStep()
	require.True(t, ok)
	assert.Equal(t, "s0", cur.ID, "caller mutation must not leak into the engine")
}

func TestEngine_New_RejectsInvalidSteps(t *testing.T) {
	tests := []struct {
		name  string
		steps []Step
		code  ValidationErrorCode
		index int
	}{
		{"zero delay", []Step{{ID: "a", Delay: 0}}, ErrCodeInvalidDelay, 0},
		{"negative delay", []Step{{ID: "a", Delay: time.Second}, {ID: "b", Delay: -time.Second}}, ErrCodeInvalidDelay, 1},
		{"missing id", []Step{{Delay: time.Second}}, ErrCodeMissingID, 0},
		{"duplicate id", []Step{{ID: "a", Delay: time.Second}, {ID: "a", Delay: time.Second}}, ErrCodeDuplicateID, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(tt.steps)
			require.Error(t, err)
			assert.Nil(t, e)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.code, ve.Code)
			assert.Equal(t, tt.index, ve.Index)
			assert.True(t, IsStepError(err))
		})
	}
}

func TestEngine_New_RejectsInvalidSpeed(t *testing.T) {
	_, err := New(uniformSteps(1, time.Second), WithSpeed(0))
	require.Error(t, err)
	assert.True(t, IsSpeedError(err))
}

func TestEngine_New_WithSpeed(t *testing.T) {
	e, _, _ := newTestEngine(t, uniformSteps(1, time.Second), WithSpeed(4))
	assert.Equal(t, 4.0, e.Speed())
}

// 3 steps of 500ms auto-play to completion.
func TestEngine_AutoPlayToCompletion(t *testing.T) {
	e, fc, rec := newTestEngine(t, uniformSteps(3, 500*time.Millisecond))

	e.Play()
	assert.True(t, e.IsPlaying())
	assert.Equal(t, 1, fc.Pending())

	fc.Advance(500 * time.Millisecond)
	assert.Equal(t, 0, e.CurrentIndex())
	assert.True(t, e.IsPlaying())

	fc.Advance(500 * time.Millisecond)
	assert.Equal(t, 1, e.CurrentIndex())

	fc.Advance(500 * time.Millisecond)
	assert.Equal(t, 2, e.CurrentIndex())
	assert.True(t, e.IsComplete())
	assert.False(t, e.IsPlaying())
	assert.Equal(t, 0, fc.Pending(), "no timer after completion")

	assert.Equal(t, []string{"change:s0@0", "change:s1@1", "change:s2@2", "complete"}, rec.events)

	fc.Advance(10 * time.Second)
	assert.Equal(t, 2, e.CurrentIndex())
	assert.Equal(t, 1, rec.completions())
}

func TestEngine_PauseFreezesIndex(t *testing.T) {
	e, fc, _ := newTestEngine(t, uniformSteps(3, 500*time.Millisecond))

	e.Play()
	fc.Advance(500 * time.Millisecond)
	require.Equal(t, 0, e.CurrentIndex())

	e.Pause()
	assert.False(t, e.IsPlaying())
	assert.Equal(t, 0, fc.Pending())

	fc.Advance(2000 * time.Millisecond)
	assert.Equal(t, 0, e.CurrentIndex())

	// Resume schedules the next step from scratch.
	e.Play()
	fc.Advance(499 * time.Millisecond)
	assert.Equal(t, 0, e.CurrentIndex())
	fc.Advance(time.Millisecond)
	assert.Equal(t, 1, e.CurrentIndex())
}

func TestEngine_PauseWhenNotPlaying(t *testing.T) {
	e, _, _ := newTestEngine(t, uniformSteps(2, time.Second))

	e.Pause()

	assert.False(t, e.IsPlaying())
	assert.Equal(t, -1, e.CurrentIndex())
}

func TestEngine_SpeedDoubles(t *testing.T) {
	e, fc, _ := newTestEngine(t, uniformSteps(3, 1000*time.Millisecond))
	require.NoError(t, e.SetSpeed(2))

	e.Play()
	fc.Advance(499 * time.Millisecond)
	assert.Equal(t, -1, e.CurrentIndex())

	fc.Advance(time.Millisecond)
	assert.Equal(t, 0, e.CurrentIndex())
}

func TestEngine_SpeedHalves(t *testing.T) {
	e, fc, _ := newTestEngine(t, uniformSteps(1, 1000*time.Millisecond))
	require.NoError(t, e.SetSpeed(0.5))

	e.Play()
	fc.Advance(1999 * time.Millisecond)
	assert.Equal(t, -1, e.CurrentIndex())

	fc.Advance(time.Millisecond)
	assert.Equal(t, 0, e.CurrentIndex())
	assert.True(t, e.IsComplete())
}

func TestEngine_MinimumDelayFloor(t *testing.T) {
	e, fc, _ := newTestEngine(t, uniformSteps(2, 100*time.Millisecond))
	require.NoError(t, e.SetSpeed(2))

	e.Play()
	fc.Advance(199 * time.Millisecond)
	assert.Equal(t, -1, e.CurrentIndex())

	fc.Advance(time.Millisecond)
	assert.Equal(t, 0, e.CurrentIndex())
}

func TestEngine_EmptySequence(t *testing.T) {
	e, fc, rec := newTestEngine(t, nil)

	assert.Equal(t, 0, e.TotalSteps())
	assert.False(t, e.IsComplete())
	_, ok := e.CurrentStep()
	assert.False(t, ok)

	e.NextStep()
	e.PrevStep()
	e.Play()
	fc.Advance(time.Hour)

	assert.Equal(t, -1, e.CurrentIndex())
	assert.False(t, e.IsPlaying(), "play on an empty sequence is a no-op")
	assert.False(t, e.IsComplete())
	assert.Empty(t, rec.events)
	assert.Equal(t, 0, fc.Pending())
}

func TestEngine_ElapsedPrefixProperty(t *testing.T) {
	delays := []time.Duration{
		300 * time.Millisecond,
		1200 * time.Millisecond,
		50 * time.Millisecond,
		800 * time.Millisecond,
		450 * time.Millisecond,
	}
	steps := makeSteps(delays...)

	for _, speed := range Speeds {
		for k := 0; k <= len(steps); k++ {
			t.Run(fmt.Sprintf("speed=%v/k=%d", speed, k), func(t *testing.T) {
				e, fc, _ := newTestEngine(t, steps, WithSpeed(speed))
				e.Play()
				fc.Advance(TotalDuration(steps[:k], speed))
				assert.Equal(t, k-1, e.CurrentIndex())
				assertVisibleInvariant(t, e)
			})
		}
	}
}

func TestEngine_PlayIsIdempotent(t *testing.T) {
	e, fc, rec := newTestEngine(t, uniformSteps(3, 500*time.Millisecond))

	e.Play()
	fc.Advance(250 * time.Millisecond)
	e.Play()
	e.Play()
	assert.Equal(t, 1, fc.Pending(), "repeated play must not arm a second timer")

	fc.Advance(250 * time.Millisecond)
	assert.Equal(t, 0, e.CurrentIndex(), "original deadline is kept")
	assert.Equal(t, []int{0}, rec.changes)
}

func TestEngine_PlayWhenCompleteIsNoop(t *testing.T) {
	e, fc, rec := newTestEngine(t, uniformSteps(2, 500*time.Millisecond))

	e.NextStep()
	e.NextStep()
	require.True(t, e.IsComplete())

	e.Play()
	assert.False(t, e.IsPlaying())
	assert.Equal(t, 0, fc.Pending())
	assert.Equal(t, 1, rec.completions())
}

func TestEngine_Reset(t *testing.T) {
	e, fc, rec := newTestEngine(t, uniformSteps(3, 500*time.Millisecond))

	e.Play()
	fc.Advance(1000 * time.Millisecond)
	require.Equal(t, 1, e.CurrentIndex())

	e.Reset()
	assert.Equal(t, -1, e.CurrentIndex())
	assert.Empty(t, e.VisibleSteps())
	assert.False(t, e.IsPlaying())
	assert.Equal(t, 0, fc.Pending())
	assert.Equal(t, 1, rec.resets)

	fc.Advance(5 * time.Second)
	assert.Equal(t, -1, e.CurrentIndex(), "reset must cancel the pending timer")

	// Reset fires every call, even from the initial state.
	e.Reset()
	e.Reset()
	assert.Equal(t, 3, rec.resets)
}

func TestEngine_ResetAllowsReplay(t *testing.T) {
	e, fc, rec := newTestEngine(t, uniformSteps(2, 500*time.Millisecond))

	e.Play()
	fc.Advance(time.Second)
	require.True(t, e.IsComplete())

	e.Reset()
	e.Play()
	fc.Advance(time.Second)

	assert.True(t, e.IsComplete())
	assert.Equal(t, 2, rec.completions(), "each traversal completes once")
}

func TestEngine_NextStep(t *testing.T) {
	e, _, rec := newTestEngine(t, uniformSteps(3, time.Second))

	e.NextStep()
	assert.Equal(t, 0, e.CurrentIndex())
	cur, ok := e.CurrentStep()
	require.True(t, ok)
	assert.Equal(t, "s0", cur.ID)
	assert.Equal(t, 0, cur.Payload)

	e.NextStep()
	e.NextStep()
	assert.Equal(t, 2, e.CurrentIndex())
	assert.True(t, e.IsComplete())

	// Past the end is ignored and does not complete again.
	e.NextStep()
	e.NextStep()
	assert.Equal(t, 2, e.CurrentIndex())
	assert.Equal(t, []string{"change:s0@0", "change:s1@1", "change:s2@2", "complete"}, rec.events)
}

func TestEngine_PrevStep(t *testing.T) {
	e, _, rec := newTestEngine(t, uniformSteps(3, time.Second))

	e.PrevStep()
	assert.Equal(t, -1, e.CurrentIndex(), "prev before start is ignored")

	e.NextStep()
	e.NextStep()
	e.NextStep()
	require.True(t, e.IsComplete())

	e.PrevStep()
	assert.Equal(t, 1, e.CurrentIndex())
	assert.False(t, e.IsComplete())
	assert.Len(t, e.VisibleSteps(), 2)

	e.PrevStep()
	e.PrevStep()
	assert.Equal(t, -1, e.CurrentIndex())
	assert.Empty(t, e.VisibleSteps())

	assert.Len(t, rec.changes, 3, "prev fires no step change")
	assert.Equal(t, 1, rec.completions())
}

func TestEngine_NextPrevInverse(t *testing.T) {
	e, _, _ := newTestEngine(t, uniformSteps(4, time.Second))

	for start := -1; start < 3; start++ {
		for e.CurrentIndex() < start {
			e.NextStep()
		}
		require.Equal(t, start, e.CurrentIndex())

		e.NextStep()
		e.PrevStep()
		assert.Equal(t, start, e.CurrentIndex(), "next then prev from %d", start)
	}

	for e.CurrentIndex() > 0 {
		e.PrevStep()
	}
	for start := 0; start <= 3; start++ {
		for e.CurrentIndex() < start {
			e.NextStep()
		}
		e.PrevStep()
		e.NextStep()
		assert.Equal(t, start, e.CurrentIndex(), "prev then next from %d", start)
	}
}

func TestEngine_CompleteAgainAfterLeaving(t *testing.T) {
	e, _, rec := newTestEngine(t, uniformSteps(2, time.Second))

	e.NextStep()
	e.NextStep()
	e.PrevStep()
	e.NextStep()

	assert.Equal(t, 2, rec.completions(), "re-entering the last step is a new transition")
}

func TestEngine_CompleteViaTimerAfterManual(t *testing.T) {
	e, fc, rec := newTestEngine(t, uniformSteps(3, 500*time.Millisecond))

	e.NextStep()
	e.Play()
	fc.Advance(500 * time.Millisecond)
	assert.Equal(t, 1, e.CurrentIndex())

	e.NextStep()
	assert.True(t, e.IsComplete())
	assert.False(t, e.IsPlaying(), "manual arrival at the end stops playback")
	assert.Equal(t, 0, fc.Pending())

	fc.Advance(time.Hour)
	assert.Equal(t, 1, rec.completions())
}

func TestEngine_NextStepWhilePlayingRearms(t *testing.T) {
	e, fc, _ := newTestEngine(t, makeSteps(500*time.Millisecond, 1000*time.Millisecond, 300*time.Millisecond))

	e.Play()
	fc.Advance(400 * time.Millisecond)
	e.NextStep()
	require.Equal(t, 0, e.CurrentIndex())
	assert.Equal(t, 1, fc.Pending())

	// The old timer for step 0 is gone; step 1's full delay starts now.
	fc.Advance(999 * time.Millisecond)
	assert.Equal(t, 0, e.CurrentIndex())
	fc.Advance(time.Millisecond)
	assert.Equal(t, 1, e.CurrentIndex())
}

func TestEngine_PrevStepWhilePlayingRearms(t *testing.T) {
	e, fc, rec := newTestEngine(t, makeSteps(500*time.Millisecond, 1000*time.Millisecond, 300*time.Millisecond))

	e.Play()
	fc.Advance(1500 * time.Millisecond)
	require.Equal(t, 1, e.CurrentIndex())

	e.PrevStep()
	assert.Equal(t, 0, e.CurrentIndex())
	assert.True(t, e.IsPlaying())
	assert.Equal(t, 1, fc.Pending())

	fc.Advance(1000 * time.Millisecond)
	assert.Equal(t, 1, e.CurrentIndex(), "step 1 is revealed again after its delay")
	assert.Equal(t, []int{0, 1, 1}, rec.changes)
}

func TestEngine_SetSpeedAffectsFutureTimersOnly(t *testing.T) {
	e, fc, _ := newTestEngine(t, uniformSteps(3, 1000*time.Millisecond))

	e.Play()
	fc.Advance(100 * time.Millisecond)
	require.NoError(t, e.SetSpeed(4))

	fc.Advance(899 * time.Millisecond)
	assert.Equal(t, -1, e.CurrentIndex(), "pending timer keeps its deadline")
	fc.Advance(time.Millisecond)
	assert.Equal(t, 0, e.CurrentIndex())

	fc.Advance(250 * time.Millisecond)
	assert.Equal(t, 1, e.CurrentIndex(), "next timer uses the new speed")
}

func TestEngine_SetSpeedRejectsInvalid(t *testing.T) {
	e, _, _ := newTestEngine(t, uniformSteps(1, time.Second))
	require.NoError(t, e.SetSpeed(2))

	for _, bad := range []float64{0, -1} {
		err := e.SetSpeed(bad)
		require.Error(t, err)
		assert.True(t, IsSpeedError(err))
	}
	assert.Equal(t, 2.0, e.Speed(), "invalid speed leaves the current one")
}

func TestEngine_Destroy(t *testing.T) {
	e, fc, rec := newTestEngine(t, uniformSteps(3, 500*time.Millisecond))

	e.Play()
	fc.Advance(500 * time.Millisecond)
	require.Equal(t, 0, e.CurrentIndex())

	e.Destroy()
	assert.False(t, e.IsPlaying())
	assert.Equal(t, 0, fc.Pending())

	fc.Advance(time.Hour)
	e.Play()
	e.NextStep()
	e.PrevStep()
	e.Reset()
	e.Pause()
	assert.NoError(t, e.SetSpeed(2))
	e.Destroy()
	fc.Advance(time.Hour)

	assert.Equal(t, 0, e.CurrentIndex())
	assert.Equal(t, 0, fc.Pending())
	assert.Equal(t, []string{"change:s0@0"}, rec.events, "no callbacks after destroy")
}

func TestEngine_StaleTimerCallbackIgnored(t *testing.T) {
	e, fc, rec := newTestEngine(t, uniformSteps(3, 500*time.Millisecond))

	e.Play()
	e.mu.Lock()
	staleGen := e.slot.gen
	e.mu.Unlock()

	// A callback that lost the race with Pause must not advance.
	e.Pause()
	e.onTimer(staleGen)
	assert.Equal(t, -1, e.CurrentIndex())

	// Same after re-arming: the old generation stays dead.
	e.Play()
	e.onTimer(staleGen)
	assert.Equal(t, -1, e.CurrentIndex())

	// After destroy even the live generation is ignored.
	e.mu.Lock()
	liveGen := e.slot.gen
	e.mu.Unlock()
	e.Destroy()
	e.onTimer(liveGen)
	assert.Equal(t, -1, e.CurrentIndex())

	fc.Advance(time.Hour)
	assert.Empty(t, rec.events)
}

func TestEngine_ReentrantPauseFromCallback(t *testing.T) {
	fc := testutil.NewFakeClock()
	var e *Engine
	var err error
	e, err = New(uniformSteps(3, 500*time.Millisecond),
		WithClock(fc),
		WithLogger(quietLogger()),
		WithObserver(Observer{
			OnStepChange: func(step Step, index int) {
				if index == 1 {
					e.Pause()
				}
			},
		}),
	)
	require.NoError(t, err)
	defer e.Destroy()

	e.Play()
	fc.Advance(5 * time.Second)

	assert.Equal(t, 1, e.CurrentIndex())
	assert.False(t, e.IsPlaying())
	assert.Equal(t, 0, fc.Pending())
}

// reentrantEngine builds an engine whose OnStepChange runs hook after recording.
func reentrantEngine(t *testing.T, steps []Step, hook func(e *Engine, index int)) (*Engine, *testutil.FakeClock, *recorder) {
	t.Helper()
	fc := testutil.NewFakeClock()
	rec := &recorder{}
	obs := rec.observer()
	record := obs.OnStepChange

	var e *Engine
	obs.OnStepChange = func(step Step, index int) {
		record(step, index)
		hook(e, index)
	}
	e, err := New(steps, WithClock(fc), WithLogger(quietLogger()), WithObserver(obs))
	require.NoError(t, err)
	t.Cleanup(e.Destroy)
	return e, fc, rec
}

func TestEngine_ReentrantResetDropsStaleCompletion(t *testing.T) {
	e, _, rec := reentrantEngine(t, makeSteps(500*time.Millisecond, 500*time.Millisecond), func(e *Engine, index int) {
		if index == 1 {
			e.Reset()
		}
	})

	e.NextStep()
	e.NextStep()

	assert.Equal(t, []string{"change:s0@0", "change:s1@1", "reset"}, rec.events)
	assert.Equal(t, -1, e.CurrentIndex())
	assert.False(t, e.IsComplete())
}

func TestEngine_ReentrantResetDuringAutoPlay(t *testing.T) {
	e, fc, rec := reentrantEngine(t, uniformSteps(2, 500*time.Millisecond), func(e *Engine, index int) {
		if index == 1 {
			e.Reset()
		}
	})

	e.Play()
	fc.Advance(time.Second)

	assert.Equal(t, []string{"change:s0@0", "change:s1@1", "reset"}, rec.events)
	assert.Equal(t, 0, rec.completions())
	assert.False(t, e.IsPlaying())
	assert.Equal(t, 0, fc.Pending())
}

func TestEngine_ReentrantPrevStepDropsStaleCompletion(t *testing.T) {
	e, _, rec := reentrantEngine(t, uniformSteps(2, 500*time.Millisecond), func(e *Engine, index int) {
		if index == 1 {
			e.PrevStep()
		}
	})

	e.NextStep()
	e.NextStep()

	assert.Equal(t, []string{"change:s0@0", "change:s1@1"}, rec.events)
	assert.Equal(t, 0, e.CurrentIndex())
	assert.False(t, e.IsComplete())
}

func TestEngine_ReentrantNextStepKeepsOrder(t *testing.T) {
	e, _, rec := reentrantEngine(t, uniformSteps(3, 500*time.Millisecond), func(e *Engine, index int) {
		if index == 0 {
			e.NextStep()
		}
	})

	e.NextStep()
	e.NextStep()

	assert.Equal(t, []string{"change:s0@0", "change:s1@1", "change:s2@2", "complete"}, rec.events)
	assert.True(t, e.IsComplete())
}

func TestEngine_TinySpeedPlaysSlowly(t *testing.T) {
	e, fc, rec := newTestEngine(t, uniformSteps(2, 10*time.Second))
	require.NoError(t, e.SetSpeed(1e-12))

	e.Play()
	fc.Advance(24 * time.Hour)

	assert.Equal(t, -1, e.CurrentIndex(), "a slower speed never reveals faster")
	assert.Empty(t, rec.events)
	assert.Equal(t, 1, fc.Pending())
}

func TestEngine_DestroyFromCallbackStopsRemainingNotifications(t *testing.T) {
	fc := testutil.NewFakeClock()
	completed := false
	var e *Engine
	var err error
	e, err = New(uniformSteps(1, 500*time.Millisecond),
		WithClock(fc),
		WithLogger(quietLogger()),
		WithObserver(Observer{
			OnStepChange: func(Step, int) { e.Destroy() },
			OnComplete:   func() { completed = true },
		}),
	)
	require.NoError(t, err)

	e.NextStep()

	assert.False(t, completed, "destroy inside a callback suppresses the rest")
}

func TestEngine_SnapshotConsistent(t *testing.T) {
	e, fc, _ := newTestEngine(t, uniformSteps(3, 500*time.Millisecond), WithSpeed(2))

	e.Play()
	fc.Advance(500 * time.Millisecond)

	s := e.Snapshot()
	assert.Equal(t, 1, s.Index)
	assert.Len(t, s.Visible, 2)
	assert.True(t, s.Playing)
	assert.False(t, s.Complete)
	assert.Equal(t, 2.0, s.Speed)
	assert.Equal(t, 3, s.Total)

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "s1", cur.ID)

	// Snapshot slices are copies.
	s.Visible[0].ID = "changed"
	assert.Equal(t, "s0", e.VisibleSteps()[0].ID)
}

func TestEngine_ConcurrentUse(t *testing.T) {
	e, fc, _ := newTestEngine(t, uniformSteps(8, 300*time.Millisecond))

	var wg sync.WaitGroup
	ops := []func(){e.Play, e.Pause, e.NextStep, e.PrevStep, func() { fc.Advance(100 * time.Millisecond) }}
	for i, op := range ops {
		wg.Add(1)
		go func(i int, op func()) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				op()
				if j%50 == 0 && i == 0 {
					_ = e.SetSpeed(Speeds[j%len(Speeds)])
				}
			}
		}(i, op)
	}
	wg.Wait()

	assertVisibleInvariant(t, e)
	idx := e.CurrentIndex()
	assert.GreaterOrEqual(t, idx, -1)
	assert.LessOrEqual(t, idx, 7)
	assert.LessOrEqual(t, fc.Pending(), 1, "at most one pending timer")
}

func TestEngine_SystemClock(t *testing.T) {
	done := make(chan struct{})
	var changes []int
	var mu sync.Mutex

	e, err := New(uniformSteps(2, 10*time.Millisecond),
		WithClock(clock.System),
		WithLogger(quietLogger()),
		WithSpeed(4),
		WithObserver(Observer{
			OnStepChange: func(_ Step, index int) {
				mu.Lock()
				changes = append(changes, index)
				mu.Unlock()
			},
			OnComplete: func() { close(done) },
		}),
	)
	require.NoError(t, err)
	defer e.Destroy()

	start := time.Now()
	e.Play()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("playback did not complete")
	}

	assert.GreaterOrEqual(t, time.Since(start), 2*MinStepDelay, "floor applies on the real clock")
	mu.Lock()
	assert.Equal(t, []int{0, 1}, changes)
	mu.Unlock()
	assert.True(t, e.IsComplete())
	assert.False(t, e.IsPlaying())
}
