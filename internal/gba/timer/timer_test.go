package timer

import "testing"

// S5 (Timer cascade): timer0 freq-index=0 (÷1), reload=0xFFFE; timer1
// cascade=true; after timer0 counts 3 cycles, timer1 counter = 1.
func TestCascadeScenarioS5(t *testing.T) {
	b := New(nil, nil)
	b.WriteReload(0, 0xFFFE)
	b.WriteControl(0, 0x0080) // freq index 0, enabled
	b.WriteControl(1, 0x0084) // cascade + enabled

	b.Tick(3)

	if b.T[1].Counter != 1 {
		t.Fatalf("timer1 counter = %d, want 1", b.T[1].Counter)
	}
}

func TestOverflowRaisesIRQ(t *testing.T) {
	var raised uint16
	b := New(func(bits uint16) { raised |= bits }, nil)
	b.WriteReload(0, 0xFFFF)
	b.WriteControl(0, 0x00C0) // enabled + IRQ enable
	b.Tick(1)
	if raised == 0 {
		t.Fatalf("expected IRQ raised on overflow")
	}
}

func TestAPULatchFiresForChannel0And1Only(t *testing.T) {
	var latched []int
	b := New(nil, func(ch int) { latched = append(latched, ch) })
	b.WriteReload(0, 0xFFFF)
	b.WriteControl(0, 0x0080)
	b.WriteReload(2, 0xFFFF)
	b.WriteControl(2, 0x0080)
	b.Tick(1)
	if len(latched) != 1 || latched[0] != 0 {
		t.Fatalf("latched = %v, want [0]", latched)
	}
}

// Invariant 7: Timer k with shift s and reload r: from reload to next
// overflow requires (0x10000 - r) << s CPU cycles.
func TestInvariant7OverflowTiming(t *testing.T) {
	b := New(nil, nil)
	reload := uint16(0xFFF0)
	b.WriteReload(0, reload)
	b.WriteControl(0, 0x0081) // freq index 1 -> shift 6, enabled
	want := (0x10000 - int(reload)) << 6

	overflowed := false
	oldRaise := b.RaiseIRQ
	_ = oldRaise
	b.RaiseIRQ = func(uint16) { overflowed = true }
	b.T[0].IRQEnable = true

	b.Tick(want - 1)
	if overflowed {
		t.Fatalf("overflowed early")
	}
	b.Tick(1)
	if !overflowed {
		t.Fatalf("did not overflow at expected cycle count")
	}
}

func TestChannel0CannotCascade(t *testing.T) {
	b := New(nil, nil)
	b.WriteControl(0, 0x0084) // attempt cascade bit on channel 0
	if b.T[0].Cascade {
		t.Fatalf("channel 0 must never honour the cascade bit")
	}
}
