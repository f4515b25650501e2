package engine

import (
	"time"

	"github.com/roach88/walkthrough/internal/clock"
)

// timerSlot owns the engine's single pending timer.
//
// Each arm bumps the generation. A firing callback must claim its generation
// before mutating anything; cancel and re-arm make older generations
// unclaimable, which neutralizes callbacks already racing toward the lock.
//
// Not safe for concurrent use: guarded by Engine.mu.
type timerSlot struct {
	timer clock.Timer
	gen   uint64
	armed bool
}

// arm cancels any pending timer and schedules fire(gen) after d.
func (s *timerSlot) arm(c clock.Clock, d time.Duration, fire func(gen uint64)) {
	s.cancel()
	s.gen++
	gen := s.gen
	s.timer = c.AfterFunc(d, func() { fire(gen) })
	s.armed = true
}

// cancel stops the pending timer, if any.
func (s *timerSlot) cancel() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.armed = false
}

// claim consumes the pending timer if gen is still current.
func (s *timerSlot) claim(gen uint64) bool {
	if !s.armed || gen != s.gen {
		return false
	}
	s.timer = nil
	s.armed = false
	return true
}
