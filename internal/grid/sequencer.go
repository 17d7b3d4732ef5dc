package grid

import (
	"sync"
	"time"
)

// Sequencer plays an ordered list of narrated steps, one per delay. The first
// step is emitted immediately; the completion callback runs one delay after
// the last step. Only one sequence is in flight at a time.
//
// All methods must be called with guard held, and every callback runs with
// guard held.
type Sequencer struct {
	delay time.Duration
	slot  slot

	name  string
	steps []string
	next  int
	emit  func(step string)
	done  func()
}

func NewSequencer(clock Clock, guard sync.Locker, delay time.Duration) *Sequencer {
	return &Sequencer{
		delay: delay,
		slot:  slot{clock: clock, guard: guard},
	}
}

// Run cancels the sequence in flight, if any, and starts a new one.
func (s *Sequencer) Run(name string, steps []string, emit func(step string), done func()) {
	s.Cancel()
	s.name = name
	s.steps = steps
	s.next = 0
	s.emit = emit
	s.done = done
	s.advance()
}

// Cancel drops all pending steps and the completion callback. It is a no-op
// when nothing is in flight.
func (s *Sequencer) Cancel() {
	s.slot.cancel()
	s.clear()
}

// Active returns the name of the sequence in flight, or "".
func (s *Sequencer) Active() string {
	return s.name
}

func (s *Sequencer) advance() {
	if s.next < len(s.steps) {
		step := s.steps[s.next]
		s.next++
		if s.emit != nil {
			s.emit(step)
		}
		s.slot.arm(s.delay, s.advance)
		return
	}
	done := s.done
	s.clear()
	if done != nil {
		done()
	}
}

func (s *Sequencer) clear() {
	s.name = ""
	s.steps = nil
	s.next = 0
	s.emit = nil
	s.done = nil
}
