package cpu

import (
	"fmt"

	"github.com/valerio/dotcore/dotcore/bit"
)

// instruction is one opcode's behaviour. exec is called once per machine
// cycle with step counting from 1 (the fetch cycle) and returns true on the
// cycle the instruction completes. Every cycle after the first performs at
// most one bus access.
type instruction struct {
	name   string
	length uint8
	exec   func(c *CPU, step int) bool
}

var instructions [256]instruction

var (
	regNames       = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
	pairNames      = [4]string{"BC", "DE", "HL", "SP"}
	stackPairNames = [4]string{"BC", "DE", "HL", "AF"}
	condNames      = [4]string{"NZ", "Z", "NC", "C"}
	aluNames       = [8]string{"ADD A,", "ADC A,", "SUB ", "SBC A,", "AND ", "XOR ", "OR ", "CP "}
	shiftNames     = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SWAP", "SRL"}
)

// Mnemonic returns the assembly template of an opcode. Operands are spelled
// n (byte), nn (word) and e (signed offset). Unused opcodes return "".
func Mnemonic(opcode uint8) string {
	return instructions[opcode].name
}

// CBMnemonic returns the assembly text of a CB-prefixed opcode.
func CBMnemonic(opcode uint8) string {
	y, z := (opcode>>3)&0x07, opcode&0x07
	switch opcode >> 6 {
	case 0:
		return shiftNames[y] + " " + regNames[z]
	case 1:
		return fmt.Sprintf("BIT %d,%s", y, regNames[z])
	case 2:
		return fmt.Sprintf("RES %d,%s", y, regNames[z])
	}
	return fmt.Sprintf("SET %d,%s", y, regNames[z])
}

// Length returns the size in bytes of an opcode including its operands, or 0
// for unused opcodes.
func Length(opcode uint8) int {
	return int(instructions[opcode].length)
}

// Illegal reports whether opcode is one of the unused slots that lock the CPU.
func Illegal(opcode uint8) bool {
	return instructions[opcode].exec == nil
}

func define(opcode int, name string, length uint8, exec func(c *CPU, step int) bool) {
	if instructions[opcode].exec != nil {
		panic(fmt.Sprintf("cpu: opcode 0x%02X defined twice", opcode))
	}
	instructions[opcode] = instruction{name: name, length: length, exec: exec}
}

// single wraps a one cycle instruction.
func single(fn func(c *CPU)) func(c *CPU, step int) bool {
	return func(c *CPU, step int) bool {
		fn(c)
		return true
	}
}

func init() {
	defineLoads()
	defineArithmetic()
	defineJumps()
	defineStack()
	defineMisc()
}

func defineLoads() {
	// LD r,r' and the (HL) forms; 0x76 is HALT
	for op := 0x40; op < 0x80; op++ {
		if op == 0x76 {
			continue
		}
		dst, src := uint8(op>>3)&0x07, uint8(op)&0x07
		name := "LD " + regNames[dst] + "," + regNames[src]
		switch {
		case src == 6:
			define(op, name, 1, func(c *CPU, step int) bool {
				if step == 1 {
					return false
				}
				*c.reg(dst) = c.bus.Read(c.getHL())
				return true
			})
		case dst == 6:
			define(op, name, 1, func(c *CPU, step int) bool {
				if step == 1 {
					return false
				}
				c.bus.Write(c.getHL(), *c.reg(src))
				return true
			})
		default:
			define(op, name, 1, single(func(c *CPU) { *c.reg(dst) = *c.reg(src) }))
		}
	}

	// LD r,n and LD (HL),n
	for r := uint8(0); r < 8; r++ {
		op := int(0x06 + r<<3)
		name := "LD " + regNames[r] + ",n"
		if r == 6 {
			define(op, name, 2, func(c *CPU, step int) bool {
				switch step {
				case 1:
					return false
				case 2:
					c.z = c.imm()
					return false
				}
				c.bus.Write(c.getHL(), c.z)
				return true
			})
			continue
		}
		define(op, name, 2, func(c *CPU, step int) bool {
			if step == 1 {
				return false
			}
			*c.reg(r) = c.imm()
			return true
		})
	}

	// LD rr,nn
	for p := uint8(0); p < 4; p++ {
		define(int(0x01+p<<4), "LD "+pairNames[p]+",nn", 3, func(c *CPU, step int) bool {
			switch step {
			case 1:
				return false
			case 2:
				c.z = c.imm()
				return false
			}
			c.w = c.imm()
			c.setPair(p, c.wz())
			return true
		})
	}

	// indirect accumulator loads through BC, DE, HL+ and HL-
	indirect := []struct {
		name    string
		address func(c *CPU) uint16
	}{
		{"(BC)", (*CPU).getBC},
		{"(DE)", (*CPU).getDE},
		{"(HL+)", func(c *CPU) uint16 { hl := c.getHL(); c.setHL(hl + 1); return hl }},
		{"(HL-)", func(c *CPU) uint16 { hl := c.getHL(); c.setHL(hl - 1); return hl }},
	}
	for i, ind := range indirect {
		define(0x02+i<<4, "LD "+ind.name+",A", 1, func(c *CPU, step int) bool {
			if step == 1 {
				return false
			}
			c.bus.Write(ind.address(c), c.a)
			return true
		})
		define(0x0A+i<<4, "LD A,"+ind.name, 1, func(c *CPU, step int) bool {
			if step == 1 {
				return false
			}
			c.a = c.bus.Read(ind.address(c))
			return true
		})
	}

	define(0x08, "LD (nn),SP", 3, func(c *CPU, step int) bool {
		switch step {
		case 1:
			return false
		case 2:
			c.z = c.imm()
			return false
		case 3:
			c.w = c.imm()
			return false
		case 4:
			c.bus.Write(c.wz(), bit.Low(c.sp))
			return false
		}
		c.bus.Write(c.wz()+1, bit.High(c.sp))
		return true
	})

	define(0xEA, "LD (nn),A", 3, func(c *CPU, step int) bool {
		switch step {
		case 1:
			return false
		case 2:
			c.z = c.imm()
			return false
		case 3:
			c.w = c.imm()
			return false
		}
		c.bus.Write(c.wz(), c.a)
		return true
	})
	define(0xFA, "LD A,(nn)", 3, func(c *CPU, step int) bool {
		switch step {
		case 1:
			return false
		case 2:
			c.z = c.imm()
			return false
		case 3:
			c.w = c.imm()
			return false
		}
		c.a = c.bus.Read(c.wz())
		return true
	})

	define(0xE0, "LDH (n),A", 2, func(c *CPU, step int) bool {
		switch step {
		case 1:
			return false
		case 2:
			c.z = c.imm()
			return false
		}
		c.bus.Write(0xFF00|uint16(c.z), c.a)
		return true
	})
	define(0xF0, "LDH A,(n)", 2, func(c *CPU, step int) bool {
		switch step {
		case 1:
			return false
		case 2:
			c.z = c.imm()
			return false
		}
		c.a = c.bus.Read(0xFF00 | uint16(c.z))
		return true
	})
	define(0xE2, "LD (C),A", 1, func(c *CPU, step int) bool {
		if step == 1 {
			return false
		}
		c.bus.Write(0xFF00|uint16(c.c), c.a)
		return true
	})
	define(0xF2, "LD A,(C)", 1, func(c *CPU, step int) bool {
		if step == 1 {
			return false
		}
		c.a = c.bus.Read(0xFF00 | uint16(c.c))
		return true
	})

	define(0xF8, "LD HL,SP+e", 2, func(c *CPU, step int) bool {
		switch step {
		case 1:
			return false
		case 2:
			c.z = c.imm()
			return false
		}
		c.setHL(c.addSPOffset(c.z))
		return true
	})
	define(0xF9, "LD SP,HL", 1, func(c *CPU, step int) bool {
		if step == 1 {
			return false
		}
		c.sp = c.getHL()
		return true
	})
}

func defineArithmetic() {
	// ALU A,r and ALU A,(HL)
	for op := 0x80; op < 0xC0; op++ {
		kind, src := uint8(op>>3)&0x07, uint8(op)&0x07
		name := aluNames[kind] + regNames[src]
		if src == 6 {
			define(op, name, 1, func(c *CPU, step int) bool {
				if step == 1 {
					return false
				}
				c.alu(kind, c.bus.Read(c.getHL()))
				return true
			})
			continue
		}
		define(op, name, 1, single(func(c *CPU) { c.alu(kind, *c.reg(src)) }))
	}

	// ALU A,n
	for kind := uint8(0); kind < 8; kind++ {
		define(int(0xC6+kind<<3), aluNames[kind]+"n", 2, func(c *CPU, step int) bool {
			if step == 1 {
				return false
			}
			c.alu(kind, c.imm())
			return true
		})
	}

	// INC r / DEC r and their (HL) forms
	for r := uint8(0); r < 8; r++ {
		for _, dec := range []bool{false, true} {
			op, name, fn := int(0x04+r<<3), "INC ", (*CPU).inc
			if dec {
				op, name, fn = op+1, "DEC ", (*CPU).dec
			}
			if r == 6 {
				define(op, name+"(HL)", 1, func(c *CPU, step int) bool {
					switch step {
					case 1:
						return false
					case 2:
						c.z = c.bus.Read(c.getHL())
						return false
					}
					c.bus.Write(c.getHL(), fn(c, c.z))
					return true
				})
				continue
			}
			define(op, name+regNames[r], 1, single(func(c *CPU) {
				p := c.reg(r)
				*p = fn(c, *p)
			}))
		}
	}

	// 16 bit INC, DEC and ADD HL,rr
	for p := uint8(0); p < 4; p++ {
		define(int(0x03+p<<4), "INC "+pairNames[p], 1, func(c *CPU, step int) bool {
			if step == 1 {
				return false
			}
			c.setPair(p, c.pair(p)+1)
			return true
		})
		define(int(0x0B+p<<4), "DEC "+pairNames[p], 1, func(c *CPU, step int) bool {
			if step == 1 {
				return false
			}
			c.setPair(p, c.pair(p)-1)
			return true
		})
		define(int(0x09+p<<4), "ADD HL,"+pairNames[p], 1, func(c *CPU, step int) bool {
			if step == 1 {
				return false
			}
			c.addToHL(c.pair(p))
			return true
		})
	}

	define(0xE8, "ADD SP,e", 2, func(c *CPU, step int) bool {
		switch step {
		case 1:
			return false
		case 2:
			c.z = c.imm()
			return false
		case 3:
			return false
		}
		c.sp = c.addSPOffset(c.z)
		return true
	})

	// accumulator rotations always clear Z
	rotations := []struct {
		op   int
		name string
		kind uint8
	}{
		{0x07, "RLCA", 0},
		{0x0F, "RRCA", 1},
		{0x17, "RLA", 2},
		{0x1F, "RRA", 3},
	}
	for _, rot := range rotations {
		define(rot.op, rot.name, 1, single(func(c *CPU) {
			c.a = c.shift(rot.kind, c.a)
			c.resetFlag(zeroFlag)
		}))
	}

	define(0x27, "DAA", 1, single((*CPU).daa))
	define(0x2F, "CPL", 1, single((*CPU).cpl))
	define(0x37, "SCF", 1, single((*CPU).scf))
	define(0x3F, "CCF", 1, single((*CPU).ccf))

	define(0xCB, "PREFIX CB", 2, execCB)
}

// execCB runs a CB-prefixed instruction. Register operands complete on the
// cycle the second opcode byte is read; (HL) operands add a read and, except
// for BIT, a write back.
func execCB(c *CPU, step int) bool {
	switch step {
	case 1:
		return false
	case 2:
		c.cbOpcode = c.imm()
		r := c.cbOpcode & 0x07
		if r == 6 {
			return false
		}
		p := c.reg(r)
		*p = c.cb(c.cbOpcode, *p)
		return true
	case 3:
		c.z = c.bus.Read(c.getHL())
		if c.cbOpcode>>6 == 1 {
			c.cb(c.cbOpcode, c.z)
			return true
		}
		return false
	}
	c.bus.Write(c.getHL(), c.cb(c.cbOpcode, c.z))
	return true
}

func defineJumps() {
	jp := func(cond func(c *CPU) bool) func(c *CPU, step int) bool {
		return func(c *CPU, step int) bool {
			switch step {
			case 1:
				return false
			case 2:
				c.z = c.imm()
				return false
			case 3:
				c.w = c.imm()
				return !cond(c)
			}
			c.pc = c.wz()
			return true
		}
	}
	jr := func(cond func(c *CPU) bool) func(c *CPU, step int) bool {
		return func(c *CPU, step int) bool {
			switch step {
			case 1:
				return false
			case 2:
				c.z = c.imm()
				return !cond(c)
			}
			c.pc = uint16(int32(c.pc) + int32(int8(c.z)))
			return true
		}
	}
	call := func(cond func(c *CPU) bool) func(c *CPU, step int) bool {
		return func(c *CPU, step int) bool {
			switch step {
			case 1:
				return false
			case 2:
				c.z = c.imm()
				return false
			case 3:
				c.w = c.imm()
				return !cond(c)
			case 4:
				c.sp--
				return false
			case 5:
				c.bus.Write(c.sp, bit.High(c.pc))
				c.sp--
				return false
			}
			c.bus.Write(c.sp, bit.Low(c.pc))
			c.pc = c.wz()
			return true
		}
	}
	always := func(*CPU) bool { return true }

	define(0xC3, "JP nn", 3, jp(always))
	define(0x18, "JR e", 2, jr(always))
	define(0xCD, "CALL nn", 3, call(always))
	define(0xE9, "JP HL", 1, single(func(c *CPU) { c.pc = c.getHL() }))

	for cc := uint8(0); cc < 4; cc++ {
		cond := func(c *CPU) bool { return c.condition(cc) }
		define(int(0xC2+cc<<3), "JP "+condNames[cc]+",nn", 3, jp(cond))
		define(int(0x20+cc<<3), "JR "+condNames[cc]+",e", 2, jr(cond))
		define(int(0xC4+cc<<3), "CALL "+condNames[cc]+",nn", 3, call(cond))
		define(int(0xC0+cc<<3), "RET "+condNames[cc], 1, func(c *CPU, step int) bool {
			switch step {
			case 1:
				return false
			case 2:
				return !c.condition(cc)
			case 3:
				c.z = c.bus.Read(c.sp)
				c.sp++
				return false
			case 4:
				c.w = c.bus.Read(c.sp)
				c.sp++
				return false
			}
			c.pc = c.wz()
			return true
		})
	}

	ret := func(reti bool) func(c *CPU, step int) bool {
		return func(c *CPU, step int) bool {
			switch step {
			case 1:
				return false
			case 2:
				c.z = c.bus.Read(c.sp)
				c.sp++
				return false
			case 3:
				c.w = c.bus.Read(c.sp)
				c.sp++
				return false
			}
			c.pc = c.wz()
			if reti {
				c.ime, c.nextIME = true, true
			}
			return true
		}
	}
	define(0xC9, "RET", 1, ret(false))
	define(0xD9, "RETI", 1, ret(true))

	for i := uint16(0); i < 8; i++ {
		vector := i * 8
		define(int(0xC7+vector), fmt.Sprintf("RST %02XH", vector), 1, func(c *CPU, step int) bool {
			switch step {
			case 1:
				return false
			case 2:
				c.sp--
				return false
			case 3:
				c.bus.Write(c.sp, bit.High(c.pc))
				c.sp--
				return false
			}
			c.bus.Write(c.sp, bit.Low(c.pc))
			c.pc = vector
			return true
		})
	}
}

func defineStack() {
	for p := uint8(0); p < 4; p++ {
		define(int(0xC5+p<<4), "PUSH "+stackPairNames[p], 1, func(c *CPU, step int) bool {
			switch step {
			case 1:
				return false
			case 2:
				c.sp--
				return false
			case 3:
				c.bus.Write(c.sp, bit.High(c.stackPair(p)))
				c.sp--
				return false
			}
			c.bus.Write(c.sp, bit.Low(c.stackPair(p)))
			return true
		})
		define(int(0xC1+p<<4), "POP "+stackPairNames[p], 1, func(c *CPU, step int) bool {
			switch step {
			case 1:
				return false
			case 2:
				c.z = c.bus.Read(c.sp)
				c.sp++
				return false
			}
			c.w = c.bus.Read(c.sp)
			c.sp++
			c.setStackPair(p, c.wz())
			return true
		})
	}
}

func defineMisc() {
	define(0x00, "NOP", 1, single(func(*CPU) {}))
	define(0x76, "HALT", 1, single((*CPU).halt))
	define(0x10, "STOP", 2, single((*CPU).stop))
	define(0xF3, "DI", 1, single(func(c *CPU) { c.ime, c.nextIME = false, false }))
	// EI takes effect through complete(), after the following instruction
	define(0xFB, "EI", 1, single(func(*CPU) {}))
}
