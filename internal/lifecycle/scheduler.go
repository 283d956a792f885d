// Package lifecycle drives a vessel through arrival, departure and
// destruction using named one-shot countdown timers.
package lifecycle

import (
	"sort"
	"time"
)

type timer struct {
	remaining time.Duration
	fire      func()
}

// Scheduler holds named one-shot timers advanced by Tick. Starting a timer
// under a name that is already armed replaces it.
type Scheduler struct {
	timers map[string]*timer
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{timers: make(map[string]*timer)}
}

// Start arms name to call fire after d.
func (s *Scheduler) Start(name string, d time.Duration, fire func()) {
	s.timers[name] = &timer{remaining: d, fire: fire}
}

// Cancel disarms name without calling its callback.
func (s *Scheduler) Cancel(name string) bool {
	if _, ok := s.timers[name]; !ok {
		return false
	}
	delete(s.timers, name)
	return true
}

// Armed reports whether name is pending.
func (s *Scheduler) Armed(name string) bool {
	_, ok := s.timers[name]
	return ok
}

// Len returns the number of pending timers.
func (s *Scheduler) Len() int {
	return len(s.timers)
}

// Tick advances every pending timer by dt and fires the ones that expired,
// in name order. Timers started by a callback are not advanced until the
// next Tick.
func (s *Scheduler) Tick(dt time.Duration) {
	if len(s.timers) == 0 {
		return
	}
	names := make([]string, 0, len(s.timers))
	for name := range s.timers {
		names = append(names, name)
	}
	sort.Strings(names)

	var expired []*timer
	for _, name := range names {
		t := s.timers[name]
		t.remaining -= dt
		if t.remaining <= 0 {
			delete(s.timers, name)
			expired = append(expired, t)
		}
	}
	for _, t := range expired {
		if t.fire != nil {
			t.fire()
		}
	}
}

// Pending returns the remaining time of every armed timer.
func (s *Scheduler) Pending() map[string]time.Duration {
	out := make(map[string]time.Duration, len(s.timers))
	for name, t := range s.timers {
		out[name] = t.remaining
	}
	return out
}
