package cpu

import "github.com/valerio/dotcore/dotcore/bit"

// reg returns the 8 bit register encoded by index in the usual operand
// order B, C, D, E, H, L, (HL), A. Index 6 is the memory operand and has no
// register; callers handle it separately.
func (c *CPU) reg(index uint8) *uint8 {
	switch index {
	case 0:
		return &c.b
	case 1:
		return &c.c
	case 2:
		return &c.d
	case 3:
		return &c.e
	case 4:
		return &c.h
	case 5:
		return &c.l
	case 7:
		return &c.a
	}
	panic("cpu: (HL) has no register")
}

// pair returns the 16 bit register for index in the order BC, DE, HL, SP.
func (c *CPU) pair(index uint8) uint16 {
	switch index {
	case 0:
		return c.getBC()
	case 1:
		return c.getDE()
	case 2:
		return c.getHL()
	}
	return c.sp
}

func (c *CPU) setPair(index uint8, value uint16) {
	switch index {
	case 0:
		c.setBC(value)
	case 1:
		c.setDE(value)
	case 2:
		c.setHL(value)
	default:
		c.sp = value
	}
}

// stackPair is pair with AF in place of SP, as used by PUSH and POP.
func (c *CPU) stackPair(index uint8) uint16 {
	if index == 3 {
		return c.getAF()
	}
	return c.pair(index)
}

func (c *CPU) setStackPair(index uint8, value uint16) {
	if index == 3 {
		c.setAF(value)
		return
	}
	c.setPair(index, value)
}

// condition evaluates NZ, Z, NC, C.
func (c *CPU) condition(index uint8) bool {
	switch index {
	case 0:
		return !c.isSetFlag(zeroFlag)
	case 1:
		return c.isSetFlag(zeroFlag)
	case 2:
		return !c.isSetFlag(carryFlag)
	}
	return c.isSetFlag(carryFlag)
}

// alu applies one of ADD, ADC, SUB, SBC, AND, XOR, OR, CP to A.
func (c *CPU) alu(op uint8, value uint8) {
	a := c.a
	switch op {
	case 0, 1:
		var carry uint8
		if op == 1 {
			carry = c.flagToBit(carryFlag)
		}
		c.a = a + value + carry
		c.setFlags(c.a == 0, false, bit.HalfCarryAdd(a, value, carry), bit.CarryAdd(a, value, carry))
	case 2, 3, 7:
		var borrow uint8
		if op == 3 {
			borrow = c.flagToBit(carryFlag)
		}
		result := a - value - borrow
		c.setFlags(result == 0, true, bit.HalfBorrowSub(a, value, borrow), bit.BorrowSub(a, value, borrow))
		if op != 7 {
			c.a = result
		}
	case 4:
		c.a &= value
		c.setFlags(c.a == 0, false, true, false)
	case 5:
		c.a ^= value
		c.setFlags(c.a == 0, false, false, false)
	case 6:
		c.a |= value
		c.setFlags(c.a == 0, false, false, false)
	}
}

func (c *CPU) inc(value uint8) uint8 {
	result := value + 1
	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, result&0x0F == 0)
	return result
}

func (c *CPU) dec(value uint8) uint8 {
	result := value - 1
	c.setFlagToCondition(zeroFlag, result == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, result&0x0F == 0x0F)
	return result
}

// addToHL adds a 16 bit value to HL. Z is left untouched, H comes from bit 11.
func (c *CPU) addToHL(value uint16) {
	hl := c.getHL()
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (hl&0x0FFF)+(value&0x0FFF) > 0x0FFF)
	c.setFlagToCondition(carryFlag, uint32(hl)+uint32(value) > 0xFFFF)
	c.setHL(hl + value)
}

// addSPOffset computes SP + e for ADD SP,e and LD HL,SP+e. The flags come
// from the unsigned addition of the low byte.
func (c *CPU) addSPOffset(offset uint8) uint16 {
	sp := c.sp
	low := bit.Low(sp)
	c.setFlags(false, false, bit.HalfCarryAdd(low, offset, 0), bit.CarryAdd(low, offset, 0))
	return uint16(int32(sp) + int32(int8(offset)))
}

func (c *CPU) daa() {
	a := c.a
	carry := c.isSetFlag(carryFlag)
	var adjust uint8

	if !c.isSetFlag(subFlag) {
		if c.isSetFlag(halfCarryFlag) || a&0x0F > 0x09 {
			adjust |= 0x06
		}
		if carry || a > 0x99 {
			adjust |= 0x60
			carry = true
		}
		a += adjust
	} else {
		if c.isSetFlag(halfCarryFlag) {
			adjust |= 0x06
		}
		if carry {
			adjust |= 0x60
		}
		a -= adjust
	}

	c.a = a
	c.setFlagToCondition(zeroFlag, a == 0)
	c.resetFlag(halfCarryFlag)
	c.setFlagToCondition(carryFlag, carry)
}

func (c *CPU) cpl() {
	c.a = ^c.a
	c.setFlag(subFlag)
	c.setFlag(halfCarryFlag)
}

func (c *CPU) scf() {
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.setFlag(carryFlag)
}

func (c *CPU) ccf() {
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.setFlagToCondition(carryFlag, !c.isSetFlag(carryFlag))
}

// shift applies one of RLC, RRC, RL, RR, SLA, SRA, SWAP, SRL and sets Z from
// the result. The accumulator rotations use it too and clear Z afterwards.
func (c *CPU) shift(op uint8, value uint8) uint8 {
	var result uint8
	var carry bool

	switch op {
	case 0: // RLC
		result = value<<1 | value>>7
		carry = value&0x80 != 0
	case 1: // RRC
		result = value>>1 | value<<7
		carry = value&0x01 != 0
	case 2: // RL
		result = value<<1 | c.flagToBit(carryFlag)
		carry = value&0x80 != 0
	case 3: // RR
		result = value>>1 | c.flagToBit(carryFlag)<<7
		carry = value&0x01 != 0
	case 4: // SLA
		result = value << 1
		carry = value&0x80 != 0
	case 5: // SRA
		result = value>>1 | value&0x80
		carry = value&0x01 != 0
	case 6: // SWAP
		result = value<<4 | value>>4
	case 7: // SRL
		result = value >> 1
		carry = value&0x01 != 0
	}

	c.setFlags(result == 0, false, false, carry)
	return result
}

// cb executes a CB-prefixed operation on value and returns the value to
// store back. BIT leaves the value unchanged.
func (c *CPU) cb(op uint8, value uint8) uint8 {
	y := (op >> 3) & 0x07
	switch op >> 6 {
	case 0:
		return c.shift(y, value)
	case 1:
		c.setFlagToCondition(zeroFlag, !bit.IsSet(y, value))
		c.resetFlag(subFlag)
		c.setFlag(halfCarryFlag)
		return value
	case 2:
		return bit.Clear(y, value)
	}
	return bit.Set(y, value)
}
