package cpu

// Mode is the CPSR low-5-bits processor mode.
type Mode uint32

const (
	ModeUSR Mode = 0x10
	ModeFIQ Mode = 0x11
	ModeIRQ Mode = 0x12
	ModeSVC Mode = 0x13
	ModeABT Mode = 0x17
	ModeUND Mode = 0x1B
	ModeSYS Mode = 0x1F
)

// CPSR bit positions.
const (
	flagT uint32 = 1 << 5  // THUMB state
	flagF uint32 = 1 << 6  // FIQ disable
	flagI uint32 = 1 << 7  // IRQ disable
	flagV uint32 = 1 << 28 // overflow
	flagC uint32 = 1 << 29 // carry
	flagZ uint32 = 1 << 30 // zero
	flagN uint32 = 1 << 31 // negative
)

// bank indices into Regs.bank. Each bank row holds R8..R14 (7 slots);
// non-FIQ banks only ever populate the R13/R14 slots (indices 5 and 6)
// per spec.md Design Note §9.
const (
	bankUSR = iota
	bankFIQ
	bankIRQ
	bankSVC
	bankABT
	bankUND
	bankCount
)

func bankForMode(m Mode) int {
	switch m {
	case ModeFIQ:
		return bankFIQ
	case ModeIRQ:
		return bankIRQ
	case ModeSVC:
		return bankSVC
	case ModeABT:
		return bankABT
	case ModeUND:
		return bankUND
	default: // USR, SYS
		return bankUSR
	}
}

// Regs holds the visible register file, the banked shadow copies, and
// CPSR/SPSR, per spec.md §3.
type Regs struct {
	R [16]uint32

	// bank[b][0..6] = R8..R14 for bank b. bankUSR is shared by USR and
	// SYS modes. Only bankFIQ populates slots 0..4 (R8_fiq..R12_fiq);
	// others only ever use slots 5/6 (R13/R14).
	bank [bankCount][7]uint32

	CPSR uint32
	spsr [bankCount]uint32 // no SPSR for bankUSR (USR/SYS have none)

	curBank int
}

// Mode returns the active processor mode.
func (r *Regs) Mode() Mode { return Mode(r.CPSR & 0x1F) }

func (r *Regs) Thumb() bool { return r.CPSR&flagT != 0 }
func (r *Regs) SetThumb(v bool) {
	if v {
		r.CPSR |= flagT
	} else {
		r.CPSR &^= flagT
	}
}

func (r *Regs) IRQDisabled() bool { return r.CPSR&flagI != 0 }
func (r *Regs) FIQDisabled() bool { return r.CPSR&flagF != 0 }

func (r *Regs) N() bool { return r.CPSR&flagN != 0 }
func (r *Regs) Z() bool { return r.CPSR&flagZ != 0 }
func (r *Regs) C() bool { return r.CPSR&flagC != 0 }
func (r *Regs) V() bool { return r.CPSR&flagV != 0 }

func (r *Regs) SetNZCV(n, z, c, v bool) {
	r.CPSR &^= flagN | flagZ | flagC | flagV
	if n {
		r.CPSR |= flagN
	}
	if z {
		r.CPSR |= flagZ
	}
	if c {
		r.CPSR |= flagC
	}
	if v {
		r.CPSR |= flagV
	}
}

// SPSR returns the SPSR slot for the current mode. USR/SYS have none;
// callers must not invoke this in those modes (invariant 1).
func (r *Regs) SPSR() uint32       { return r.spsr[r.curBank] }
func (r *Regs) SetSPSR(v uint32)   { r.spsr[r.curBank] = v }
func (r *Regs) HasSPSR() bool      { return r.curBank != bankUSR }

// saveBank copies the live R8..R14 into the current bank's shadow
// slots before switching away from it.
func (r *Regs) saveBank() {
	b := &r.bank[r.curBank]
	if r.curBank == bankFIQ {
		copy(b[0:5], r.R[8:13])
	}
	b[5] = r.R[13]
	b[6] = r.R[14]
}

// loadBank restores R8..R14 from the destination bank's shadow slots.
func (r *Regs) loadBank(dst int) {
	b := &r.bank[dst]
	if dst == bankFIQ {
		copy(r.R[8:13], b[0:5])
	} else {
		// Returning to a non-FIQ bank from FIQ restores the shared
		// USR/SYS R8..R12 (FIQ is the only bank with its own copies).
		copy(r.R[8:13], r.bank[bankUSR][0:5])
	}
	r.R[13] = b[5]
	r.R[14] = b[6]
}

// SetMode performs an atomic CPSR-mode-bits update plus bank switch,
// per spec.md §3 invariant (d): "on mode change, bank switch is
// performed atomically with CPSR update".
func (r *Regs) SetMode(m Mode) {
	dst := bankForMode(m)
	if dst != r.curBank {
		r.saveBank()
		r.loadBank(dst)
		r.curBank = dst
	}
	r.CPSR = (r.CPSR &^ 0x1F) | uint32(m)
}
