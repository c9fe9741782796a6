package cpu

// barrelShift implements the four ARM shift types (LSL/LSR/ASR/ROR)
// used both by the data-processing shifter operand and by addressing
// modes. carryIn feeds RRX (an immediate-encoded ROR #0); amount==0
// with LSL is a no-op shift
// per the ARM ARM's "shift by 0" special cases.
func barrelShift(shiftType uint32, value, amount uint32, carryIn bool, immediate bool) (result uint32, carryOut bool) {
	switch shiftType {
	case 0: // LSL
		if amount == 0 {
			return value, carryIn
		}
		if amount >= 32 {
			if amount == 32 {
				return 0, value&1 != 0
			}
			return 0, false
		}
		return value << amount, (value>>(32-amount))&1 != 0
	case 1: // LSR
		if amount == 0 {
			if immediate {
				// LSR #0 encodes LSR #32
				return 0, value&0x80000000 != 0
			}
			return value, carryIn
		}
		if amount >= 32 {
			if amount == 32 {
				return 0, value&0x80000000 != 0
			}
			return 0, false
		}
		return value >> amount, (value>>(amount-1))&1 != 0
	case 2: // ASR
		sv := int32(value)
		if amount == 0 {
			if immediate {
				amount = 32 // ASR #0 encodes ASR #32
			} else {
				return value, carryIn
			}
		}
		if amount >= 32 {
			if sv < 0 {
				return 0xFFFFFFFF, true
			}
			return 0, false
		}
		return uint32(sv >> amount), (value>>(amount-1))&1 != 0
	default: // 3: ROR
		if amount == 0 {
			if immediate {
				// ROR #0 encodes RRX: rotate right through carry by 1
				out := value&1 != 0
				res := value >> 1
				if carryIn {
					res |= 0x80000000
				}
				return res, out
			}
			return value, carryIn
		}
		amount &= 31
		if amount == 0 {
			return value, value&0x80000000 != 0
		}
		return (value >> amount) | (value << (32 - amount)), (value>>(amount-1))&1 != 0
	}
}
