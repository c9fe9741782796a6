package cpu

import "github.com/maemo-arm7/gbacore/internal/gba/bus"

// executeARM dispatches a condition-passed 32-bit ARM opcode. The
// switch walks the same bits 27-25 decode tree as the ARM7TDMI's
// instruction-set diagrams; each case below names the format it
// matches.
func (c *Core) executeARM(op uint32) {
	switch {
	case op&0x0FFFFFF0 == 0x012FFF10:
		c.armBranchExchange(op)
	case op&0x0E000000 == 0x0A000000:
		c.armBranch(op)
	case op&0x0FC000F0 == 0x00000090:
		c.armMultiply(op)
	case op&0x0F8000F0 == 0x00800090:
		c.armMultiplyLong(op)
	case op&0x0FB00FF0 == 0x01000090:
		c.armSwap(op)
	case op&0x0FBF0FFF == 0x010F0000 || op&0x0FBF0FFF == 0x014F0000:
		c.armMRS(op)
	case op&0x0DB0F000 == 0x0120F000:
		c.armMSR(op)
	case op&0x0E000090 == 0x00000090:
		c.armHalfwordTransfer(op)
	case op&0x0C000000 == 0x00000000:
		c.armDataProcessing(op)
	case op&0x0C000000 == 0x04000000:
		c.armSingleTransfer(op)
	case op&0x0E000000 == 0x08000000:
		c.armBlockTransfer(op)
	case op&0x0F000000 == 0x0F000000:
		c.dispatchSWI((op >> 16) & 0xFF)
	default:
		c.enterUndefined()
	}
}

func (c *Core) armBranchExchange(op uint32) {
	target := c.reg(int(op & 0xF))
	c.SetThumb(target&1 != 0)
	if c.Thumb() {
		c.flushThumb(target &^ 1)
	} else {
		c.flushARM(target &^ 3)
	}
}

func (c *Core) armBranch(op uint32) {
	offset := int32(op&0xFFFFFF) << 8 >> 8 // sign-extend 24-bit; scaled by 4 below
	link := op&(1<<24) != 0
	target := uint32(int32(c.reg(15)) + offset*4)
	if link {
		c.R[14] = c.R[15]
	}
	c.flushARM(target)
}

// armDataProcessing covers formats 1-4: AND..MVN over an immediate or
// (possibly register-shifted) register operand.
func (c *Core) armDataProcessing(op uint32) {
	opcode := (op >> 21) & 0xF
	s := op&(1<<20) != 0
	rn := int(op >> 16 & 0xF)
	rd := int(op >> 12 & 0xF)

	var operand2 uint32
	var shiftCarry bool
	shiftCarry = c.C()

	if op&(1<<25) != 0 { // immediate operand
		imm := op & 0xFF
		rot := (op >> 8 & 0xF) * 2
		operand2, shiftCarry = barrelShift(3, imm, rot, c.C(), false) // rotate 0 is no rotation, not RRX
	} else {
		rm := int(op & 0xF)
		shiftType := (op >> 5) & 0x3
		var amount uint32
		if op&(1<<4) != 0 { // register-specified shift amount
			rs := int(op >> 8 & 0xF)
			amount = c.reg(rs) & 0xFF
			c.internalCycles(1)
			operand2, shiftCarry = barrelShift(shiftType, c.regShiftOperand(rm, rn, rd), amount, c.C(), false)
		} else {
			amount = (op >> 7) & 0x1F
			operand2, shiftCarry = barrelShift(shiftType, c.reg(rm), amount, c.C(), true)
		}
	}

	rnVal := c.reg(rn)

	var result uint32
	var carry, overflow bool
	writesResult := true

	switch opcode {
	case 0x0: // AND
		result = rnVal & operand2
		carry = shiftCarry
	case 0x1: // EOR
		result = rnVal ^ operand2
		carry = shiftCarry
	case 0x2: // SUB
		result, carry, overflow = sub32(rnVal, operand2)
	case 0x3: // RSB
		result, carry, overflow = sub32(operand2, rnVal)
	case 0x4: // ADD
		result, carry, overflow = add32(rnVal, operand2)
	case 0x5: // ADC
		result, carry, overflow = adc32(rnVal, operand2, c.C())
	case 0x6: // SBC
		result, carry, overflow = sbc32(rnVal, operand2, c.C())
	case 0x7: // RSC
		result, carry, overflow = sbc32(operand2, rnVal, c.C())
	case 0x8: // TST
		result = rnVal & operand2
		carry = shiftCarry
		writesResult = false
	case 0x9: // TEQ
		result = rnVal ^ operand2
		carry = shiftCarry
		writesResult = false
	case 0xA: // CMP
		result, carry, overflow = sub32(rnVal, operand2)
		writesResult = false
	case 0xB: // CMN
		result, carry, overflow = add32(rnVal, operand2)
		writesResult = false
	case 0xC: // ORR
		result = rnVal | operand2
		carry = shiftCarry
	case 0xD: // MOV
		result = operand2
		carry = shiftCarry
	case 0xE: // BIC
		result = rnVal &^ operand2
		carry = shiftCarry
	default: // MVN
		result = ^operand2
		carry = shiftCarry
	}

	if s {
		if rd == 15 && writesResult {
			// MOVS/...S PC,... in user-accessible exception handlers
			// restores CPSR from SPSR as part of the mode return.
			if c.HasSPSR() {
				c.CPSR = c.SPSR()
				newMode := Mode(c.CPSR & 0x1F)
				c.setModeFromRestoredCPSR(newMode)
			}
		} else {
			c.SetNZCV(result&0x80000000 != 0, result == 0, carry, overflow)
		}
	}

	if writesResult {
		c.setReg(rd, result)
	}
}

// regShiftOperand re-reads Rm for a register-shifted operand, handling
// the documented quirk that using R15 as Rm, Rn, or Rd with a
// register-specified shift amount sees PC as current+12 (one extra
// instruction ahead) because of the extra internal cycle; GBA software
// never relies on this, so it is approximated as the ordinary +8 read.
func (c *Core) regShiftOperand(rm, _, _ int) uint32 { return c.reg(rm) }

func (c *Core) armMRS(op uint32) {
	rd := int(op >> 12 & 0xF)
	fromSPSR := op&(1<<22) != 0
	if fromSPSR && c.HasSPSR() {
		c.R[rd] = c.SPSR()
	} else {
		c.R[rd] = c.CPSR
	}
}

func (c *Core) armMSR(op uint32) {
	toSPSR := op&(1<<22) != 0
	fieldMask := uint32(0)
	if op&(1<<19) != 0 {
		fieldMask |= 0xFF000000 // flags
	}
	if op&(1<<16) != 0 {
		fieldMask |= 0x000000FF // control (privileged only; GBA core trusts software)
	}

	var value uint32
	if op&(1<<25) != 0 {
		imm := op & 0xFF
		rot := (op >> 8 & 0xF) * 2
		value, _ = barrelShift(3, imm, rot, c.C(), false)
	} else {
		value = c.reg(int(op & 0xF))
	}

	if toSPSR {
		if c.HasSPSR() {
			c.SetSPSR((c.SPSR() &^ fieldMask) | (value & fieldMask))
		}
		return
	}
	newCPSR := (c.CPSR &^ fieldMask) | (value & fieldMask)
	if fieldMask&0xFF != 0 {
		c.setModeFromRestoredCPSR(Mode(newCPSR & 0x1F))
	}
	c.CPSR = newCPSR
}

// setModeFromRestoredCPSR performs the bank switch for a CPSR value
// written directly (MSR, or an exception-return MOVS/LDM^ into PC)
// rather than through SetMode, since the mode bits already live in the
// value about to become CPSR.
func (c *Core) setModeFromRestoredCPSR(m Mode) {
	dst := bankForMode(m)
	if dst != c.curBank {
		c.saveBank()
		c.loadBank(dst)
		c.curBank = dst
	}
}

func (c *Core) armMultiply(op uint32) {
	rd := int(op >> 16 & 0xF)
	rn := int(op >> 12 & 0xF)
	rs := int(op >> 8 & 0xF)
	rm := int(op & 0xF)
	accumulate := op&(1<<21) != 0
	s := op&(1<<20) != 0

	result := c.reg(rm) * c.reg(rs)
	if accumulate {
		result += c.reg(rn)
	}
	c.R[rd] = result
	if s {
		c.SetNZCV(result&0x80000000 != 0, result == 0, c.C(), c.V())
	}
	c.internalCycles(mulCycles(c.reg(rs)) + boolToInt(accumulate))
}

func (c *Core) armMultiplyLong(op uint32) {
	rdhi := int(op >> 16 & 0xF)
	rdlo := int(op >> 12 & 0xF)
	rs := int(op >> 8 & 0xF)
	rm := int(op & 0xF)
	signed := op&(1<<22) != 0
	accumulate := op&(1<<21) != 0
	s := op&(1<<20) != 0

	var result uint64
	if signed {
		result = uint64(int64(int32(c.reg(rm))) * int64(int32(c.reg(rs))))
	} else {
		result = uint64(c.reg(rm)) * uint64(c.reg(rs))
	}
	if accumulate {
		result += uint64(c.reg(rdhi))<<32 | uint64(c.reg(rdlo))
	}
	c.R[rdlo] = uint32(result)
	c.R[rdhi] = uint32(result >> 32)
	if s {
		c.SetNZCV(result&0x8000000000000000 != 0, result == 0, c.C(), c.V())
	}
	c.internalCycles(mulCycles(c.reg(rs)) + 1 + boolToInt(accumulate))
}

func mulCycles(rs uint32) int {
	switch {
	case rs&0xFFFFFF00 == 0 || rs&0xFFFFFF00 == 0xFFFFFF00:
		return 1
	case rs&0xFFFF0000 == 0 || rs&0xFFFF0000 == 0xFFFF0000:
		return 2
	case rs&0xFF000000 == 0 || rs&0xFF000000 == 0xFF000000:
		return 3
	default:
		return 4
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (c *Core) armSwap(op uint32) {
	rn := int(op >> 16 & 0xF)
	rd := int(op >> 12 & 0xF)
	rm := int(op & 0xF)
	addr := c.reg(rn)
	byteSwap := op&(1<<22) != 0
	if byteSwap {
		old := c.busRead8(addr, bus.NonSequential)
		c.busWrite8(addr, byte(c.reg(rm)), bus.NonSequential)
		c.R[rd] = uint32(old)
	} else {
		old := c.busRead32(addr, bus.NonSequential)
		c.busWrite32(addr, c.reg(rm), bus.NonSequential)
		c.R[rd] = old
	}
	c.internalCycles(1)
}

// armHalfwordTransfer covers LDRH/STRH/LDRSB/LDRSH (register or
// immediate offset).
func (c *Core) armHalfwordTransfer(op uint32) {
	rn := int(op >> 16 & 0xF)
	rd := int(op >> 12 & 0xF)
	pre := op&(1<<24) != 0
	up := op&(1<<23) != 0
	immOffset := op&(1<<22) != 0
	writeback := op&(1<<21) != 0
	load := op&(1<<20) != 0
	sh := (op >> 5) & 0x3

	var offset uint32
	if immOffset {
		offset = (op>>4)&0xF0 | op&0xF
	} else {
		offset = c.reg(int(op & 0xF))
	}

	base := c.reg(rn)
	addr := base
	if pre {
		if up {
			addr = base + offset
		} else {
			addr = base - offset
		}
	}

	if load {
		switch sh {
		case 1: // unsigned halfword
			c.R[rd] = uint32(c.busRead16(addr, bus.NonSequential))
		case 2: // signed byte
			v := int8(c.busRead8(addr, bus.NonSequential))
			c.R[rd] = uint32(int32(v))
		default: // 3: signed halfword
			v := int16(c.busRead16(addr, bus.NonSequential))
			c.R[rd] = uint32(int32(v))
		}
	} else {
		v := c.reg(rd)
		if rd == 15 {
			v += 4 // a stored R15 reads as PC+12
		}
		c.busWrite16(addr, uint16(v), bus.NonSequential)
	}

	if !pre {
		if up {
			addr = base + offset
		} else {
			addr = base - offset
		}
		c.R[rn] = addr
	} else if writeback {
		c.R[rn] = addr
	}
	c.internalCycles(1)
}

// armSingleTransfer covers LDR/STR, byte or word, immediate or
// (possibly shifted) register offset.
func (c *Core) armSingleTransfer(op uint32) {
	rn := int(op >> 16 & 0xF)
	rd := int(op >> 12 & 0xF)
	pre := op&(1<<24) != 0
	up := op&(1<<23) != 0
	byteAccess := op&(1<<22) != 0
	writeback := op&(1<<21) != 0
	load := op&(1<<20) != 0

	var offset uint32
	if op&(1<<25) == 0 {
		offset = op & 0xFFF
	} else {
		rm := int(op & 0xF)
		shiftType := (op >> 5) & 0x3
		amount := (op >> 7) & 0x1F
		offset, _ = barrelShift(shiftType, c.reg(rm), amount, c.C(), true)
	}

	base := c.reg(rn)
	addr := base
	if pre {
		if up {
			addr = base + offset
		} else {
			addr = base - offset
		}
	}

	if load {
		if byteAccess {
			c.R[rd] = uint32(c.busRead8(addr, bus.NonSequential))
		} else {
			c.R[rd] = readWordRotated(c, addr)
		}
		if rd == 15 {
			c.flushARM(c.R[15] &^ 3)
		}
		c.internalCycles(1)
	} else {
		if byteAccess {
			c.busWrite8(addr, byte(c.reg(rd)), bus.NonSequential)
		} else {
			c.busWrite32(addr, c.reg(rd), bus.NonSequential)
		}
	}

	if !pre {
		if up {
			addr = base + offset
		} else {
			addr = base - offset
		}
		if rn != 15 || !load {
			c.R[rn] = addr
		}
	} else if writeback && (rn != 15 || !load) {
		c.R[rn] = addr
	}
}

// readWordRotated models the ARM7TDMI's unaligned-LDR quirk: a
// misaligned address reads the containing aligned word, then rotates
// it right by the misalignment in bits, per spec.md §3 edge cases.
func readWordRotated(c *Core, addr uint32) uint32 {
	aligned := addr &^ 3
	v := c.busRead32(aligned, bus.NonSequential)
	rot := (addr & 3) * 8
	if rot == 0 {
		return v
	}
	return v>>rot | v<<(32-rot)
}

// armBlockTransfer covers LDM/STM with all four addressing modes and
// the user-bank / exception-return (^) variants.
func (c *Core) armBlockTransfer(op uint32) {
	rn := int(op >> 16 & 0xF)
	pre := op&(1<<24) != 0
	up := op&(1<<23) != 0
	userBank := op&(1<<22) != 0
	writeback := op&(1<<21) != 0
	load := op&(1<<20) != 0
	list := op & 0xFFFF

	count := 0
	for i := 0; i < 16; i++ {
		if list&(1<<uint(i)) != 0 {
			count++
		}
	}
	if count == 0 {
		// Documented edge case: empty register list transfers R15 only
		// and still advances the base by 0x40.
		list = 1 << 15
		count = 16 // address span of a full list: 0x40 bytes
	}

	base := c.R[rn]
	addr := base
	if !up {
		addr = base - uint32(count)*4
		if pre {
			addr += 4
		}
	} else if pre {
		addr += 4
	}

	restoreCPSR := userBank && load && list&(1<<15) != 0
	forceUserBank := userBank && !restoreCPSR

	lowestInList := 0
	for lowestInList < 16 && list&(1<<uint(lowestInList)) == 0 {
		lowestInList++
	}

	var finalBase uint32
	if up {
		finalBase = base + uint32(count)*4
	} else {
		finalBase = base - uint32(count)*4
	}

	savedBank := c.curBank
	if forceUserBank {
		c.saveBank()
		c.loadBank(bankUSR)
		c.curBank = bankUSR
	}

	rnInList := list&(1<<uint(rn)) != 0

	for i := 0; i < 16; i++ {
		if list&(1<<uint(i)) == 0 {
			continue
		}
		if load {
			v := c.busRead32(addr, bus.Sequential)
			if i == 15 {
				if restoreCPSR && c.HasSPSR() {
					c.CPSR = c.SPSR()
					c.setModeFromRestoredCPSR(Mode(c.CPSR & 0x1F))
				}
				c.R[15] = v &^ 3
			} else {
				c.R[i] = v
			}
		} else {
			v := c.reg(i)
			// A stored Rn is its original value only when Rn is the
			// lowest register in the list; otherwise the store sees
			// the already-written-back address.
			if i == rn && i != lowestInList {
				v = finalBase
			}
			c.busWrite32(addr, v, bus.Sequential)
		}
		addr += 4
	}

	if forceUserBank {
		c.saveBank()
		c.loadBank(savedBank)
		c.curBank = savedBank
	}

	// Writeback is suppressed when Rn was itself in the load list: the
	// loaded value must stand, not be overwritten by the back-calculated
	// base.
	if writeback && !userBank && !(load && rnInList) {
		c.R[rn] = finalBase
	}

	if load && list&(1<<15) != 0 {
		c.flushARM(c.R[15])
	}
	c.internalCycles(1)
}
