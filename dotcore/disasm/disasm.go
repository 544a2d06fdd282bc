// Package disasm turns bytes on the bus into assembly text for traces and
// debugging output.
package disasm

import (
	"fmt"
	"strings"

	"github.com/valerio/dotcore/dotcore/bit"
	"github.com/valerio/dotcore/dotcore/cpu"
)

// Reader is the read side of the address space.
type Reader interface {
	Read(address uint16) byte
}

// Line is a single disassembled instruction.
type Line struct {
	Address     uint16
	Instruction string
	Length      int
}

func (l Line) String() string {
	return fmt.Sprintf("0x%04X: %s", l.Address, l.Instruction)
}

// At disassembles the instruction at pc. Unused opcodes decode as a one
// byte "DB" directive.
func At(mem Reader, pc uint16) Line {
	opcode := mem.Read(pc)
	if opcode == 0xCB {
		return Line{Address: pc, Instruction: cpu.CBMnemonic(mem.Read(pc + 1)), Length: 2}
	}
	if cpu.Illegal(opcode) {
		return Line{Address: pc, Instruction: fmt.Sprintf("DB $%02X", opcode), Length: 1}
	}

	length := cpu.Length(opcode)
	mnemonic := cpu.Mnemonic(opcode)
	name, operands, found := strings.Cut(mnemonic, " ")
	if !found || length == 1 {
		return Line{Address: pc, Instruction: mnemonic, Length: length}
	}

	n := mem.Read(pc + 1)
	nn := bit.Combine(mem.Read(pc+2), n)
	args := strings.Split(operands, ",")
	for i, arg := range args {
		args[i] = operand(arg, pc, n, nn)
	}
	return Line{Address: pc, Instruction: name + " " + strings.Join(args, ","), Length: length}
}

func operand(arg string, pc uint16, n uint8, nn uint16) string {
	switch arg {
	case "nn":
		return fmt.Sprintf("$%04X", nn)
	case "(nn)":
		return fmt.Sprintf("($%04X)", nn)
	case "n":
		return fmt.Sprintf("$%02X", n)
	case "(n)":
		return fmt.Sprintf("($FF%02X)", n)
	case "e":
		// jump target of JR, relative to the next instruction
		return fmt.Sprintf("$%04X", pc+2+uint16(int8(n)))
	case "SP+e":
		return fmt.Sprintf("SP%+d", int8(n))
	}
	return arg
}

// Range disassembles count instructions starting at start.
func Range(mem Reader, start uint16, count int) []Line {
	lines := make([]Line, 0, count)
	pc := start
	for range count {
		line := At(mem, pc)
		lines = append(lines, line)
		pc += uint16(line.Length)
	}
	return lines
}
