package cpu

import "github.com/maemo-arm7/gbacore/internal/gba/bus"

// executeThumb dispatches a 16-bit THUMB opcode across its 19 formats,
// matched top-down the way the ARM7TDMI Technical Reference Manual
// lays them out.
func (c *Core) executeThumb(op uint16) {
	switch {
	case op&0xF800 == 0x1800:
		c.thumbAddSub(op)
	case op&0xE000 == 0x0000:
		c.thumbMoveShifted(op)
	case op&0xE000 == 0x2000:
		c.thumbImmediate(op)
	case op&0xFC00 == 0x4000:
		c.thumbALU(op)
	case op&0xFC00 == 0x4400:
		c.thumbHiRegBX(op)
	case op&0xF800 == 0x4800:
		c.thumbPCRelativeLoad(op)
	case op&0xF200 == 0x5000:
		c.thumbLoadStoreRegOffset(op)
	case op&0xF200 == 0x5200:
		c.thumbLoadStoreSignExt(op)
	case op&0xE000 == 0x6000:
		c.thumbLoadStoreImmOffset(op)
	case op&0xF000 == 0x8000:
		c.thumbLoadStoreHalfword(op)
	case op&0xF000 == 0x9000:
		c.thumbSPRelative(op)
	case op&0xF000 == 0xA000:
		c.thumbLoadAddress(op)
	case op&0xFF00 == 0xB000:
		c.thumbAddOffsetToSP(op)
	case op&0xF600 == 0xB400:
		c.thumbPushPop(op)
	case op&0xF000 == 0xC000:
		c.thumbMultipleTransfer(op)
	case op&0xFF00 == 0xDF00:
		c.dispatchSWI(uint32(op & 0xFF))
	case op&0xF000 == 0xD000:
		c.thumbConditionalBranch(op)
	case op&0xF800 == 0xE000:
		c.thumbUnconditionalBranch(op)
	case op&0xF000 == 0xF000:
		c.thumbLongBranchLink(op)
	default:
		c.enterUndefined()
	}
}

func (c *Core) thumbMoveShifted(op uint16) {
	shiftType := uint32(op>>11) & 0x3
	amount := uint32(op>>6) & 0x1F
	rs := int(op>>3) & 0x7
	rd := int(op) & 0x7

	result, carry := barrelShift(shiftType, c.reg(rs), amount, c.C(), true)
	c.R[rd] = result
	c.SetNZCV(result&0x80000000 != 0, result == 0, carry, c.V())
}

func (c *Core) thumbAddSub(op uint16) {
	immediate := op&(1<<10) != 0
	subtract := op&(1<<9) != 0
	rnOrImm := uint32(op>>6) & 0x7
	rs := int(op>>3) & 0x7
	rd := int(op) & 0x7

	operand := rnOrImm
	if !immediate {
		operand = c.reg(int(rnOrImm))
	}

	var result uint32
	var carry, overflow bool
	if subtract {
		result, carry, overflow = sub32(c.reg(rs), operand)
	} else {
		result, carry, overflow = add32(c.reg(rs), operand)
	}
	c.R[rd] = result
	c.SetNZCV(result&0x80000000 != 0, result == 0, carry, overflow)
}

func (c *Core) thumbImmediate(op uint16) {
	opcode := (op >> 11) & 0x3
	rd := int(op>>8) & 0x7
	imm := uint32(op & 0xFF)

	switch opcode {
	case 0: // MOV
		c.R[rd] = imm
		c.SetNZCV(false, imm == 0, c.C(), c.V())
	case 1: // CMP
		result, carry, overflow := sub32(c.reg(rd), imm)
		c.SetNZCV(result&0x80000000 != 0, result == 0, carry, overflow)
	case 2: // ADD
		result, carry, overflow := add32(c.reg(rd), imm)
		c.R[rd] = result
		c.SetNZCV(result&0x80000000 != 0, result == 0, carry, overflow)
	default: // SUB
		result, carry, overflow := sub32(c.reg(rd), imm)
		c.R[rd] = result
		c.SetNZCV(result&0x80000000 != 0, result == 0, carry, overflow)
	}
}

func (c *Core) thumbALU(op uint16) {
	opcode := (op >> 6) & 0xF
	rs := int(op>>3) & 0x7
	rd := int(op) & 0x7

	a := c.reg(rd)
	b := c.reg(rs)
	var result uint32
	var carry, overflow bool
	carry = c.C()
	overflow = c.V()
	write := true

	switch opcode {
	case 0x0: // AND
		result = a & b
	case 0x1: // EOR
		result = a ^ b
	case 0x2: // LSL
		result, carry = barrelShift(0, a, b&0xFF, c.C(), false)
		c.internalCycles(1)
	case 0x3: // LSR
		result, carry = barrelShift(1, a, b&0xFF, c.C(), false)
		c.internalCycles(1)
	case 0x4: // ASR
		result, carry = barrelShift(2, a, b&0xFF, c.C(), false)
		c.internalCycles(1)
	case 0x5: // ADC
		result, carry, overflow = adc32(a, b, c.C())
	case 0x6: // SBC
		result, carry, overflow = sbc32(a, b, c.C())
	case 0x7: // ROR
		result, carry = barrelShift(3, a, b&0xFF, c.C(), false)
		c.internalCycles(1)
	case 0x8: // TST
		result = a & b
		write = false
	case 0x9: // NEG
		result, carry, overflow = sub32(0, b)
	case 0xA: // CMP
		result, carry, overflow = sub32(a, b)
		write = false
	case 0xB: // CMN
		result, carry, overflow = add32(a, b)
		write = false
	case 0xC: // ORR
		result = a | b
	case 0xD: // MUL
		result = a * b
		c.internalCycles(mulCycles(b))
	case 0xE: // BIC
		result = a &^ b
	default: // MVN
		result = ^b
	}

	c.SetNZCV(result&0x80000000 != 0, result == 0, carry, overflow)
	if write {
		c.R[rd] = result
	}
}

func (c *Core) thumbHiRegBX(op uint16) {
	opcode := (op >> 8) & 0x3
	h1 := op&(1<<7) != 0
	h2 := op&(1<<6) != 0
	rs := int(op>>3) & 0x7
	if h2 {
		rs += 8
	}
	rd := int(op) & 0x7
	if h1 {
		rd += 8
	}

	switch opcode {
	case 0: // ADD
		c.setReg(rd, c.reg(rd)+c.reg(rs))
	case 1: // CMP
		result, carry, overflow := sub32(c.reg(rd), c.reg(rs))
		c.SetNZCV(result&0x80000000 != 0, result == 0, carry, overflow)
	case 2: // MOV
		c.setReg(rd, c.reg(rs))
	default: // BX (and undocumented BLX-by-hardware, not needed on GBA)
		target := c.reg(rs)
		c.SetThumb(target&1 != 0)
		if c.Thumb() {
			c.flushThumb(target &^ 1)
		} else {
			c.flushARM(target &^ 3)
		}
	}
}

func (c *Core) thumbPCRelativeLoad(op uint16) {
	rd := int(op>>8) & 0x7
	word := uint32(op&0xFF) * 4
	addr := (c.reg(15) &^ 3) + word
	c.R[rd] = c.busRead32(addr, bus.NonSequential)
	c.internalCycles(1)
}

func (c *Core) thumbLoadStoreRegOffset(op uint16) {
	load := op&(1<<11) != 0
	byteAccess := op&(1<<10) != 0
	ro := int(op>>6) & 0x7
	rb := int(op>>3) & 0x7
	rd := int(op) & 0x7
	addr := c.reg(rb) + c.reg(ro)

	if load {
		if byteAccess {
			c.R[rd] = uint32(c.busRead8(addr, bus.NonSequential))
		} else {
			c.R[rd] = readWordRotated(c, addr)
		}
		c.internalCycles(1)
	} else {
		if byteAccess {
			c.busWrite8(addr, byte(c.reg(rd)), bus.NonSequential)
		} else {
			c.busWrite32(addr, c.reg(rd), bus.NonSequential)
		}
	}
}

func (c *Core) thumbLoadStoreSignExt(op uint16) {
	hFlag := op&(1<<11) != 0
	signExt := op&(1<<10) != 0
	ro := int(op>>6) & 0x7
	rb := int(op>>3) & 0x7
	rd := int(op) & 0x7
	addr := c.reg(rb) + c.reg(ro)

	switch {
	case !signExt && !hFlag: // STRH
		c.busWrite16(addr, uint16(c.reg(rd)), bus.NonSequential)
	case !signExt && hFlag: // LDRH
		c.R[rd] = uint32(c.busRead16(addr, bus.NonSequential))
		c.internalCycles(1)
	case signExt && !hFlag: // LDSB
		c.R[rd] = uint32(int32(int8(c.busRead8(addr, bus.NonSequential))))
		c.internalCycles(1)
	default: // LDSH
		c.R[rd] = uint32(int32(int16(c.busRead16(addr, bus.NonSequential))))
		c.internalCycles(1)
	}
}

func (c *Core) thumbLoadStoreImmOffset(op uint16) {
	byteAccess := op&(1<<12) != 0
	load := op&(1<<11) != 0
	offset := uint32(op>>6) & 0x1F
	rb := int(op>>3) & 0x7
	rd := int(op) & 0x7

	if !byteAccess {
		offset *= 4
	}
	addr := c.reg(rb) + offset

	if load {
		if byteAccess {
			c.R[rd] = uint32(c.busRead8(addr, bus.NonSequential))
		} else {
			c.R[rd] = readWordRotated(c, addr)
		}
		c.internalCycles(1)
	} else {
		if byteAccess {
			c.busWrite8(addr, byte(c.reg(rd)), bus.NonSequential)
		} else {
			c.busWrite32(addr, c.reg(rd), bus.NonSequential)
		}
	}
}

func (c *Core) thumbLoadStoreHalfword(op uint16) {
	load := op&(1<<11) != 0
	offset := (uint32(op>>6) & 0x1F) * 2
	rb := int(op>>3) & 0x7
	rd := int(op) & 0x7
	addr := c.reg(rb) + offset

	if load {
		c.R[rd] = uint32(c.busRead16(addr, bus.NonSequential))
		c.internalCycles(1)
	} else {
		c.busWrite16(addr, uint16(c.reg(rd)), bus.NonSequential)
	}
}

func (c *Core) thumbSPRelative(op uint16) {
	load := op&(1<<11) != 0
	rd := int(op>>8) & 0x7
	word := uint32(op&0xFF) * 4
	addr := c.reg(13) + word

	if load {
		c.R[rd] = readWordRotated(c, addr)
		c.internalCycles(1)
	} else {
		c.busWrite32(addr, c.reg(rd), bus.NonSequential)
	}
}

func (c *Core) thumbLoadAddress(op uint16) {
	fromSP := op&(1<<11) != 0
	rd := int(op>>8) & 0x7
	word := uint32(op&0xFF) * 4
	if fromSP {
		c.R[rd] = c.reg(13) + word
	} else {
		c.R[rd] = (c.reg(15) &^ 3) + word
	}
}

func (c *Core) thumbAddOffsetToSP(op uint16) {
	negative := op&(1<<7) != 0
	word := uint32(op&0x7F) * 4
	if negative {
		c.R[13] -= word
	} else {
		c.R[13] += word
	}
}

func (c *Core) thumbPushPop(op uint16) {
	load := op&(1<<11) != 0
	includePCLR := op&(1<<8) != 0
	rlist := op & 0xFF

	count := 0
	for i := 0; i < 8; i++ {
		if rlist&(1<<uint(i)) != 0 {
			count++
		}
	}
	if includePCLR {
		count++
	}

	if load { // POP
		addr := c.R[13]
		for i := 0; i < 8; i++ {
			if rlist&(1<<uint(i)) != 0 {
				c.R[i] = c.busRead32(addr, bus.Sequential)
				addr += 4
			}
		}
		if includePCLR {
			target := c.busRead32(addr, bus.Sequential)
			addr += 4
			c.flushThumb(target &^ 1)
		}
		// rlist only ever addresses R0-R7, so R13 can never be among
		// the loaded registers here; writeback never clobbers a just-
		// loaded value the way LDM's general register list can.
		c.R[13] = addr
		c.internalCycles(1)
	} else { // PUSH
		addr := c.R[13] - uint32(count)*4
		c.R[13] = addr
		for i := 0; i < 8; i++ {
			if rlist&(1<<uint(i)) != 0 {
				c.busWrite32(addr, c.R[i], bus.Sequential)
				addr += 4
			}
		}
		if includePCLR {
			c.busWrite32(addr, c.R[14], bus.Sequential)
		}
	}
}

func (c *Core) thumbMultipleTransfer(op uint16) {
	load := op&(1<<11) != 0
	rb := int(op>>8) & 0x7
	rlist := op & 0xFF

	count := 0
	for i := 0; i < 8; i++ {
		if rlist&(1<<uint(i)) != 0 {
			count++
		}
	}

	base := c.R[rb]
	finalBase := base + uint32(count)*4

	lowestInList := 0
	for lowestInList < 8 && rlist&(1<<uint(lowestInList)) == 0 {
		lowestInList++
	}
	rbInList := rlist&(1<<uint(rb)) != 0

	addr := base
	for i := 0; i < 8; i++ {
		if rlist&(1<<uint(i)) == 0 {
			continue
		}
		if load {
			c.R[i] = c.busRead32(addr, bus.Sequential)
		} else {
			v := c.R[i]
			// Same STM quirk as the ARM encoding: Rb stores its
			// original value only when it's the lowest register in
			// the list, otherwise the already-updated base.
			if i == rb && i != lowestInList {
				v = finalBase
			}
			c.busWrite32(addr, v, bus.Sequential)
		}
		addr += 4
	}
	// Writeback is suppressed when Rb was itself loaded: the loaded
	// value must stand.
	if !(load && rbInList) {
		c.R[rb] = finalBase
	}
	if load {
		c.internalCycles(1)
	}
}

func (c *Core) thumbConditionalBranch(op uint16) {
	condition := cond((op >> 8) & 0xF)
	if !c.passCond(condition) {
		return
	}
	offset := int32(int8(byte(op))) * 2
	c.flushThumb(uint32(int32(c.reg(15)) + offset))
}

func (c *Core) thumbUnconditionalBranch(op uint16) {
	offset := int32(op&0x7FF) << 21 >> 21 // sign-extend 11-bit
	c.flushThumb(uint32(int32(c.reg(15)) + offset*2))
}

// thumbLongBranchLink implements BL's two-instruction encoding: the
// first half fills LR with a high-bits intermediate, the second
// combines it with the low 11 bits and performs the call.
func (c *Core) thumbLongBranchLink(op uint16) {
	low := op&(1<<11) != 0
	offset := uint32(op & 0x7FF)

	if !low {
		signExt := int32(offset<<21) >> 9 // sign-extend to bit 22, pre-shifted by 12
		c.R[14] = uint32(int32(c.reg(15)) + signExt)
		return
	}

	target := c.R[14] + offset<<1
	returnAddr := c.R[15] | 1 // R15 already advanced past this halfword
	c.flushThumb(target)
	c.R[14] = returnAddr
}
