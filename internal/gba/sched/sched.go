// Package sched implements a flat countdown-event scheduler. No other
// package uses it: System.RunFor advances the PPU and timers directly
// after every CPU step or DMA burst.
package sched

// Callback fires when an event's countdown reaches zero or below.
type Callback func(lateBy int)

// Event is a single timed callback. Countdown is in CPU cycles.
type Event struct {
	Countdown int
	Fn        Callback

	active bool
}

// Scheduler holds an unordered set of events. Only one event (the PPU
// phase event) is mandatory; more may be registered for refined DMA or
// prefetch timing.
type Scheduler struct {
	events []*Event
}

// New returns an empty scheduler.
func New() *Scheduler { return &Scheduler{} }

// Register adds an event to the active set, replacing it if already
// present.
func (s *Scheduler) Register(e *Event) {
	e.active = true
	for _, ex := range s.events {
		if ex == e {
			return
		}
	}
	s.events = append(s.events, e)
}

// Unregister removes an event from the active set.
func (s *Scheduler) Unregister(e *Event) {
	e.active = false
	for i, ex := range s.events {
		if ex == e {
			s.events = append(s.events[:i], s.events[i+1:]...)
			return
		}
	}
}

// Advance subtracts elapsed cycles from every event's countdown, fires
// any event whose countdown has reached zero or below (in registration
// order), and returns the smallest remaining countdown across all still
// active events. Callers use that value to bound the next slice.
func (s *Scheduler) Advance(elapsed int) int {
	for _, e := range s.events {
		if !e.active {
			continue
		}
		e.Countdown -= elapsed
	}
	// Fire due events. A callback may reschedule itself (by setting a
	// new Countdown) or unregister other events, so re-scan until
	// nothing is due anymore.
	for {
		fired := false
		for _, e := range s.events {
			if e.active && e.Countdown <= 0 {
				late := -e.Countdown
				fired = true
				e.Fn(late)
				if e.active && e.Countdown <= 0 {
					// Callback didn't reschedule; avoid a busy loop by
					// nudging it forward one tick.
					e.Countdown = 1
				}
			}
		}
		if !fired {
			break
		}
	}
	return s.Next()
}

// Next returns the smallest countdown among active events, or a large
// sentinel if none are registered.
func (s *Scheduler) Next() int {
	next := 1 << 30
	for _, e := range s.events {
		if e.active && e.Countdown < next {
			next = e.Countdown
		}
	}
	return next
}
