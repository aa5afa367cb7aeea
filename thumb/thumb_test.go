package thumb

import (
	"testing"

	"github.com/dtolnay-emu/gba7tdmi/cpu"
	"github.com/dtolnay-emu/gba7tdmi/gbamem"
	"github.com/stretchr/testify/assert"
)

func newTestCPU() *cpu.CPU {
	c := cpu.New()
	c.SwitchMode(cpu.ModeUSR)
	return c
}

func TestShiftImmLSL(t *testing.T) {
	c := newTestCPU()
	c.SetRegister(1, 1)
	// LSL R0, R1, #3 -> 000 00 00011 001 000
	instr := uint16(0x00C8)
	modified := Execute(c, gbamem.NewFlat(), instr)
	assert.False(t, modified)
	assert.Equal(t, uint32(8), c.GetRegister(0))
}

func TestAddRegisterSetsFlags(t *testing.T) {
	c := newTestCPU()
	c.SetRegister(1, 0xFFFFFFFF)
	c.SetRegister(2, 1)
	// ADD R0, R1, R2 -> format 00011 00 Rn=R2 Rs=R1 Rd=R0
	instr := uint16(0x1888)
	Execute(c, gbamem.NewFlat(), instr)
	assert.Equal(t, uint32(0), c.GetRegister(0))
	assert.True(t, c.CPSR.Z)
	assert.True(t, c.CPSR.C)
}

func TestMovImm8(t *testing.T) {
	c := newTestCPU()
	// MOV R0, #0x42
	instr := uint16(0x2042)
	Execute(c, gbamem.NewFlat(), instr)
	assert.Equal(t, uint32(0x42), c.GetRegister(0))
}

func TestALUAnd(t *testing.T) {
	c := newTestCPU()
	c.SetRegister(0, 0xFF)
	c.SetRegister(1, 0x0F)
	// AND R0, R1 -> 010000 0000 Rs=R1 Rd=R0
	instr := uint16(0x4008)
	Execute(c, gbamem.NewFlat(), instr)
	assert.Equal(t, uint32(0x0F), c.GetRegister(0))
}

func TestHiRegBX(t *testing.T) {
	c := newTestCPU()
	c.SetRegister(cpu.LR, 0x1000)
	// BX LR -> 010001 11 0 0 110 000 (Rs=LR=14 -> h2=1,rs_field=6)
	instr := uint16(0x4770)
	modified := Execute(c, gbamem.NewFlat(), instr)
	assert.True(t, modified)
	assert.Equal(t, uint32(0x1000), c.PC)
	assert.False(t, c.CPSR.T)
}

func TestPushPopRoundTrip(t *testing.T) {
	c := newTestCPU()
	mem := gbamem.NewFlat()
	c.SetSP(gbamem.IWRAMStart + 0x100)
	c.SetRegister(0, 0xAAAA)
	c.SetRegister(1, 0xBBBB)

	push := uint16(0xB403) // PUSH {R0,R1}
	Execute(c, mem, push)
	assert.Equal(t, uint32(gbamem.IWRAMStart+0xF8), c.GetSP())

	c.SetRegister(0, 0)
	c.SetRegister(1, 0)
	pop := uint16(0xBC03) // POP {R0,R1}
	Execute(c, mem, pop)
	assert.Equal(t, uint32(0xAAAA), c.GetRegister(0))
	assert.Equal(t, uint32(0xBBBB), c.GetRegister(1))
	assert.Equal(t, uint32(gbamem.IWRAMStart+0x100), c.GetSP())
}

func TestLDMIABaseInListSuppressesWriteback(t *testing.T) {
	c := newTestCPU()
	mem := gbamem.NewFlat()
	c.SetRegister(0, gbamem.IWRAMStart+0x40)
	mem.Write32(gbamem.IWRAMStart+0x40, 0x11)
	mem.Write32(gbamem.IWRAMStart+0x44, 0x22)
	// LDMIA R0!, {R0,R1} -> 1100 1 000 00000011
	instr := uint16(0xC803)
	Execute(c, mem, instr)
	assert.Equal(t, uint32(0x11), c.GetRegister(0))
	assert.Equal(t, uint32(0x22), c.GetRegister(1))
}

func TestConditionalBranchTaken(t *testing.T) {
	c := newTestCPU()
	c.PC = 0x1000
	c.CPSR.Z = true
	// BEQ #4 (cond=0000, offset=2 halfwords => +4 bytes)
	instr := uint16(0xD002)
	modified := Execute(c, gbamem.NewFlat(), instr)
	assert.True(t, modified)
	assert.Equal(t, uint32(0x1000+4+4), c.PC) // pcRead(0x1000)=0x1004, +offset(2<<1=4)
}

func TestBLTwoHalfwordSequence(t *testing.T) {
	c := newTestCPU()
	c.PC = 0x2000
	first := uint16(0xF000) // BL prefix, offset11=0
	Execute(c, gbamem.NewFlat(), first)
	assert.Equal(t, uint32(0x2004), c.GetLR()) // PC+4+0

	c.PC = 0x2002
	second := uint16(0xF801) // BL suffix, offset11=1 -> low=2
	modified := Execute(c, gbamem.NewFlat(), second)
	assert.True(t, modified)
	assert.Equal(t, uint32(0x2006), c.PC)
	assert.Equal(t, uint32(0x2005), c.GetLR()) // return addr (PC+2) with bit0 set
}
