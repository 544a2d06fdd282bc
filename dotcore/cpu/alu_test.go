package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	fZ = uint8(zeroFlag)
	fN = uint8(subFlag)
	fH = uint8(halfCarryFlag)
	fC = uint8(carryFlag)
)

func TestALU(t *testing.T) {
	tests := []struct {
		desc    string
		op      uint8
		a       uint8
		value   uint8
		carryIn bool
		want    uint8
		flags   uint8
	}{
		{"ADD to zero", 0, 0x3A, 0xC6, false, 0x00, fZ | fH | fC},
		{"ADD no flags", 0, 0x3C, 0x12, false, 0x4E, 0},
		{"ADD half carry", 0, 0x0F, 0x01, false, 0x10, fH},
		{"ADC half carry from carry in", 1, 0xE1, 0x0F, true, 0xF1, fH},
		{"ADC to zero", 1, 0xE1, 0x1E, true, 0x00, fZ | fH | fC},
		{"ADC ignores clear carry", 1, 0x01, 0x01, false, 0x02, 0},
		{"SUB to zero", 2, 0x3E, 0x3E, false, 0x00, fZ | fN},
		{"SUB half borrow", 2, 0x3E, 0x0F, false, 0x2F, fN | fH},
		{"SUB borrow", 2, 0x3E, 0x40, false, 0xFE, fN | fC},
		{"SBC with carry in", 3, 0x3B, 0x2A, true, 0x10, fN},
		{"SBC borrow", 3, 0x3B, 0x4F, true, 0xEB, fN | fH | fC},
		{"AND", 4, 0x5A, 0x3F, false, 0x1A, fH},
		{"AND to zero", 4, 0x5A, 0x00, false, 0x00, fZ | fH},
		{"XOR to zero", 5, 0xFF, 0xFF, false, 0x00, fZ},
		{"XOR clears carry", 5, 0x0F, 0xF0, true, 0xFF, 0},
		{"OR", 6, 0x5A, 0x03, false, 0x5B, 0},
		{"CP keeps A", 7, 0x3C, 0x2F, false, 0x3C, fN | fH},
		{"CP equal", 7, 0x3C, 0x3C, false, 0x3C, fZ | fN},
		{"CP borrow", 7, 0x3C, 0x40, false, 0x3C, fN | fC},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			c, _ := newTestCPU()
			c.a = tt.a
			c.f = 0
			c.setFlagToCondition(carryFlag, tt.carryIn)

			c.alu(tt.op, tt.value)
			assert.Equal(t, tt.want, c.a)
			assert.Equal(t, tt.flags, c.f)
		})
	}
}

func TestIncDec(t *testing.T) {
	testCases := []struct {
		desc    string
		dec     bool
		arg     uint8
		want    uint8
		flagsIn uint8
		flags   uint8
	}{
		{desc: "inc", arg: 0x0A, want: 0x0B},
		{desc: "inc to zero", arg: 0xFF, want: 0, flags: fZ | fH},
		{desc: "inc half carry", arg: 0x0F, want: 0x10, flags: fH},
		{desc: "inc keeps carry", arg: 0x01, want: 0x02, flagsIn: fC, flags: fC},
		{desc: "dec", dec: true, arg: 0x0B, want: 0x0A, flags: fN},
		{desc: "dec to zero", dec: true, arg: 0x01, want: 0, flags: fZ | fN},
		{desc: "dec half borrow", dec: true, arg: 0x10, want: 0x0F, flags: fN | fH},
		{desc: "dec wraps", dec: true, arg: 0x00, want: 0xFF, flagsIn: fC, flags: fN | fH | fC},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c, _ := newTestCPU()
			c.f = tC.flagsIn
			var got uint8
			if tC.dec {
				got = c.dec(tC.arg)
			} else {
				got = c.inc(tC.arg)
			}
			assert.Equal(t, tC.want, got)
			assert.Equal(t, tC.flags, c.f)
		})
	}
}

func TestAddToHL(t *testing.T) {
	testCases := []struct {
		desc    string
		hl, arg uint16
		flagsIn uint8
		want    uint16
		flags   uint8
	}{
		{desc: "no carry", hl: 0x1000, arg: 0x0234, want: 0x1234},
		{desc: "half carry from bit 11", hl: 0x0FFF, arg: 0x0001, want: 0x1000, flags: fH},
		{desc: "carry", hl: 0xF000, arg: 0x1000, want: 0x0000, flags: fC},
		{desc: "zero flag untouched", hl: 0x0001, arg: 0x0001, flagsIn: fZ | fN, want: 0x0002, flags: fZ},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c, _ := newTestCPU()
			c.f = tC.flagsIn
			c.setHL(tC.hl)
			c.addToHL(tC.arg)
			assert.Equal(t, tC.want, c.getHL())
			assert.Equal(t, tC.flags, c.f)
		})
	}
}

func TestAddSPOffset(t *testing.T) {
	testCases := []struct {
		desc   string
		sp     uint16
		offset uint8
		want   uint16
		flags  uint8
	}{
		{desc: "positive", sp: 0xFFF8, offset: 0x02, want: 0xFFFA},
		{desc: "carry out of low byte", sp: 0xFFF8, offset: 0x08, want: 0x0000, flags: fH | fC},
		{desc: "negative offset", sp: 0x0005, offset: 0xFF, want: 0x0004, flags: fH | fC},
		{desc: "negative without carries", sp: 0x0000, offset: 0xFF, want: 0xFFFF},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c, _ := newTestCPU()
			c.f = fZ | fN
			c.sp = tC.sp
			assert.Equal(t, tC.want, c.addSPOffset(tC.offset))
			assert.Equal(t, tC.flags, c.f)
		})
	}
}

func TestDAA(t *testing.T) {
	testCases := []struct {
		desc    string
		a       uint8
		flagsIn uint8
		want    uint8
		flags   uint8
	}{
		{desc: "low nibble adjust", a: 0x7D, want: 0x83},
		{desc: "both nibbles to zero", a: 0x9A, want: 0x00, flags: fZ | fC},
		{desc: "half carry after add", a: 0x10, flagsIn: fH, want: 0x16},
		{desc: "after subtract with half borrow", a: 0x4B, flagsIn: fN | fH, want: 0x45, flags: fN},
		{desc: "after subtract with borrow", a: 0xF0, flagsIn: fN | fC, want: 0x90, flags: fN | fC},
		{desc: "valid BCD unchanged", a: 0x42, want: 0x42},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c, _ := newTestCPU()
			c.a = tC.a
			c.f = tC.flagsIn
			c.daa()
			assert.Equal(t, tC.want, c.a)
			assert.Equal(t, tC.flags, c.f)
		})
	}
}

func TestFlagOps(t *testing.T) {
	c, _ := newTestCPU()

	c.a, c.f = 0x35, fZ|fC
	c.cpl()
	assert.Equal(t, uint8(0xCA), c.a)
	assert.Equal(t, fZ|fN|fH|fC, c.f)

	c.f = fZ | fN | fH
	c.scf()
	assert.Equal(t, fZ|fC, c.f)

	c.ccf()
	assert.Equal(t, fZ, c.f)
	c.ccf()
	assert.Equal(t, fZ|fC, c.f)
}

func TestShifts(t *testing.T) {
	testCases := []struct {
		desc    string
		op      uint8
		arg     uint8
		carryIn bool
		want    uint8
		flags   uint8
	}{
		{"RLC", 0, 0x85, false, 0x0B, fC},
		{"RRC", 1, 0x01, false, 0x80, fC},
		{"RL to zero", 2, 0x80, false, 0x00, fZ | fC},
		{"RL carries in", 2, 0x01, true, 0x03, 0},
		{"RR carries in", 3, 0x01, true, 0x80, fC},
		{"SLA", 4, 0xFF, false, 0xFE, fC},
		{"SRA keeps sign", 5, 0x8A, false, 0xC5, 0},
		{"SWAP", 6, 0xF0, true, 0x0F, 0},
		{"SWAP zero", 6, 0x00, false, 0x00, fZ},
		{"SRL", 7, 0x01, false, 0x00, fZ | fC},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c, _ := newTestCPU()
			c.f = 0
			c.setFlagToCondition(carryFlag, tC.carryIn)
			assert.Equal(t, tC.want, c.shift(tC.op, tC.arg))
			assert.Equal(t, tC.flags, c.f)
		})
	}
}

func TestAccumulatorRotationsClearZero(t *testing.T) {
	c, _ := newTestCPU(0x07, 0x17) // RLCA; RLA
	c.a, c.f = 0x00, fZ
	runInstruction(t, c)
	assert.Equal(t, uint8(0), c.a)
	assert.Equal(t, uint8(0), c.f)

	c.a = 0x80
	runInstruction(t, c)
	assert.Equal(t, uint8(0), c.a)
	assert.Equal(t, fC, c.f)
}

func TestCBOperations(t *testing.T) {
	t.Run("BIT keeps carry and sets half carry", func(t *testing.T) {
		c, _ := newTestCPU(0xCB, 0x7F, 0xCB, 0x47) // BIT 7,A; BIT 0,A
		c.a, c.f = 0x01, fC|fN
		runInstruction(t, c)
		assert.Equal(t, fZ|fH|fC, c.f)
		runInstruction(t, c)
		assert.Equal(t, fH|fC, c.f)
		assert.Equal(t, uint8(0x01), c.a)
	})

	t.Run("SET and RES through (HL)", func(t *testing.T) {
		c, bus := newTestCPU(0xCB, 0xFE, 0xCB, 0x86) // SET 7,(HL); RES 0,(HL)
		c.setHL(0xC000)
		bus.mem[0xC000] = 0x01
		runInstruction(t, c)
		assert.Equal(t, byte(0x81), bus.mem[0xC000])
		runInstruction(t, c)
		assert.Equal(t, byte(0x80), bus.mem[0xC000])
	})

	t.Run("SWAP register", func(t *testing.T) {
		c, _ := newTestCPU(0xCB, 0x30) // SWAP B
		c.b = 0x12
		runInstruction(t, c)
		assert.Equal(t, uint8(0x21), c.b)
	})
}

func TestMnemonics(t *testing.T) {
	tests := []struct {
		opcode uint8
		want   string
	}{
		{0x00, "NOP"},
		{0x06, "LD B,n"},
		{0x36, "LD (HL),n"},
		{0x7E, "LD A,(HL)"},
		{0x2A, "LD A,(HL+)"},
		{0x9E, "SBC A,(HL)"},
		{0xFE, "CP n"},
		{0xC2, "JP NZ,nn"},
		{0xF5, "PUSH AF"},
		{0xEF, "RST 28H"},
		{0xD3, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Mnemonic(tt.opcode))
	}
	assert.Equal(t, "BIT 3,(HL)", CBMnemonic(0x5E))
	assert.Equal(t, "SRL A", CBMnemonic(0x3F))
	assert.Equal(t, "SET 7,A", CBMnemonic(0xFF))
}
