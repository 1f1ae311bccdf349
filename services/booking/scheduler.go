package booking

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ExpireFunc is called once when a request's acceptance window closes.
type ExpireFunc func(bookingID string, deadline time.Time)

type armedTimer struct {
	timer    clockwork.Timer
	deadline time.Time
	gen      uint64
}

// Scheduler keeps one countdown per pending request. Each countdown is a single
// clock callback; Disarm guarantees the callback will not reach ExpireFunc.
type Scheduler struct {
	clock    clockwork.Clock
	onExpire ExpireFunc

	mu      sync.Mutex
	timers  map[string]*armedTimer
	gen     uint64
	stopped bool
	firing  sync.WaitGroup
}

func NewScheduler(clock clockwork.Clock, onExpire ExpireFunc) *Scheduler {
	return &Scheduler{
		clock:    clock,
		onExpire: onExpire,
		timers:   make(map[string]*armedTimer),
	}
}

// Arm starts (or restarts) the countdown for bookingID. A deadline already in
// the past fires immediately.
func (s *Scheduler) Arm(bookingID string, deadline time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if old, ok := s.timers[bookingID]; ok {
		old.timer.Stop()
	}
	s.gen++
	gen := s.gen
	t := &armedTimer{deadline: deadline, gen: gen}
	t.timer = s.clock.AfterFunc(deadline.Sub(s.clock.Now()), func() { s.fire(bookingID, gen) })
	s.timers[bookingID] = t
}

func (s *Scheduler) fire(bookingID string, gen uint64) {
	s.mu.Lock()
	t, ok := s.timers[bookingID]
	if !ok || t.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.timers, bookingID)
	s.firing.Add(1)
	s.mu.Unlock()

	defer s.firing.Done()
	s.onExpire(bookingID, t.deadline)
}

// Disarm releases the countdown for bookingID and reports whether one was armed.
func (s *Scheduler) Disarm(bookingID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timers[bookingID]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(s.timers, bookingID)
	return true
}

// Armed reports whether bookingID has a live countdown.
func (s *Scheduler) Armed(bookingID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[bookingID]
	return ok
}

// Len is the number of live countdowns.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop releases every countdown and waits for callbacks already running.
// Later Arm calls are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for id, t := range s.timers {
		t.timer.Stop()
		delete(s.timers, id)
	}
	s.stopped = true
	s.mu.Unlock()

	s.firing.Wait()
}
