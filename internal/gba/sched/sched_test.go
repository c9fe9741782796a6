package sched

import "testing"

func TestAdvanceFiresDueEvent(t *testing.T) {
	s := New()
	fired := 0
	e := &Event{Countdown: 10, Fn: func(lateBy int) {
		fired++
		if lateBy != 2 {
			t.Fatalf("lateBy = %d, want 2", lateBy)
		}
	}}
	s.Register(e)

	next := s.Advance(5)
	if next != 5 {
		t.Fatalf("Next = %d, want 5", next)
	}
	if fired != 0 {
		t.Fatalf("fired early")
	}

	s.Advance(7) // total elapsed 12, 2 cycles late
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
}

func TestNextIsMinimumAcrossEvents(t *testing.T) {
	s := New()
	a := &Event{Countdown: 100, Fn: func(int) {}}
	b := &Event{Countdown: 40, Fn: func(int) {}}
	s.Register(a)
	s.Register(b)
	if got := s.Next(); got != 40 {
		t.Fatalf("Next = %d, want 40", got)
	}
}

func TestUnregisterStopsFiring(t *testing.T) {
	s := New()
	fired := false
	e := &Event{Countdown: 1, Fn: func(int) { fired = true }}
	s.Register(e)
	s.Unregister(e)
	s.Advance(5)
	if fired {
		t.Fatalf("unregistered event fired")
	}
}

func TestRescheduleFromCallback(t *testing.T) {
	s := New()
	var e *Event
	count := 0
	e = &Event{Countdown: 5, Fn: func(lateBy int) {
		count++
		e.Countdown = 5 - lateBy
	}}
	s.Register(e)
	s.Advance(5)
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	if e.Countdown != 5 {
		t.Fatalf("Countdown = %d, want 5", e.Countdown)
	}
}
