package arm

import (
	"testing"

	"github.com/dtolnay-emu/gba7tdmi/cpu"
	"github.com/dtolnay-emu/gba7tdmi/gbamem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCPU() *cpu.CPU {
	c := cpu.New()
	c.SwitchMode(cpu.ModeUSR)
	return c
}

func TestDecodeDataProcessingImmediate(t *testing.T) {
	// MOV R0, #1 : cond=AL(1110) 00 1 1101 0 0000 0000 00000001
	word := uint32(0xE3A00001)
	d := Decode(word)
	require.Equal(t, FormDataProcessing, d.Form)
	assert.Equal(t, OpMOV, d.Opcode)
	assert.True(t, d.Immediate)
	assert.Equal(t, uint32(1), d.Imm)
	assert.Equal(t, 0, d.Rd)
}

func TestDecodeBranchOffsetFoldsInPipeline(t *testing.T) {
	// B #0 (offset field zero): target should be PC+8.
	word := uint32(0xEA000000)
	d := Decode(word)
	require.Equal(t, FormBranch, d.Form)
	assert.Equal(t, int32(8), d.BranchOffset)
}

func TestDecodeBX(t *testing.T) {
	word := uint32(0xE12FFF1E) // BX LR
	d := Decode(word)
	require.Equal(t, FormBranchExchange, d.Form)
	assert.Equal(t, cpu.LR, d.Rm)
}

func TestExecuteMOVImmediateWritesRegisterAndSkipsPC(t *testing.T) {
	c := newTestCPU()
	d := Decode(0xE3A00001) // MOV R0, #1
	modified := Execute(c, gbamem.NewFlat(), d)
	assert.False(t, modified)
	assert.Equal(t, uint32(1), c.GetRegister(0))
}

func TestExecuteADDSSetsZeroAndCarry(t *testing.T) {
	c := newTestCPU()
	c.SetRegister(0, 0xFFFFFFFF)
	c.SetRegister(1, 1)
	// ADDS R2, R0, R1
	d := Decoded{Form: FormDataProcessing, Opcode: OpADD, Rd: 2, Rn: 0, Rm: 1, SetFlags: true}
	Execute(c, gbamem.NewFlat(), d)
	assert.Equal(t, uint32(0), c.GetRegister(2))
	assert.True(t, c.CPSR.Z)
	assert.True(t, c.CPSR.C)
}

func TestExecuteSingleTransferStoreAndLoadRoundTrip(t *testing.T) {
	c := newTestCPU()
	mem := gbamem.NewFlat()
	c.SetRegister(0, 0xCAFEBABE)
	c.SetRegister(1, gbamem.IWRAMStart)

	store := Decoded{Form: FormSingleTransfer, Rd: 0, Rn: 1, Pre: true, Up: true, Immediate: true, Imm: 0}
	Execute(c, mem, store)

	load := Decoded{Form: FormSingleTransfer, Load: true, Rd: 2, Rn: 1, Pre: true, Up: true, Immediate: true, Imm: 0}
	Execute(c, mem, load)
	assert.Equal(t, uint32(0xCAFEBABE), c.GetRegister(2))
}

func TestExecuteBlockTransferWritebackSuppressedWhenBaseInList(t *testing.T) {
	c := newTestCPU()
	mem := gbamem.NewFlat()
	c.SetRegister(4, gbamem.IWRAMStart+0x40)
	mem.Write32(gbamem.IWRAMStart+0x40, 0x11111111)
	mem.Write32(gbamem.IWRAMStart+0x44, 0x22222222)

	d := Decoded{
		Form: FormBlockTransfer, Load: true, Up: true, Pre: false,
		WriteBack: true, Rn: 4, RegList: (1 << 4) | (1 << 5),
	}
	Execute(c, mem, d)
	assert.Equal(t, uint32(0x11111111), c.GetRegister(4))
	assert.Equal(t, uint32(0x22222222), c.GetRegister(5))
}

func TestExecuteBlockTransferStoresOriginalBaseWhenInList(t *testing.T) {
	c := newTestCPU()
	mem := gbamem.NewFlat()
	c.SetRegister(4, gbamem.IWRAMStart+0x80)
	c.SetRegister(5, 0x55)

	d := Decoded{Form: FormBlockTransfer, Up: true, Pre: false, WriteBack: true, Rn: 4, RegList: (1 << 4) | (1 << 5)}
	Execute(c, mem, d)
	assert.Equal(t, uint32(gbamem.IWRAMStart+0x80), mem.Read32(gbamem.IWRAMStart+0x80))
	assert.Equal(t, uint32(gbamem.IWRAMStart+0x88), c.GetRegister(4))
}

func TestMultiplyLongUnsigned(t *testing.T) {
	c := newTestCPU()
	c.SetRegister(1, 0xFFFFFFFF)
	c.SetRegister(2, 2)
	d := Decoded{Form: FormMultiplyLong, RdLo: 3, RdHi: 4, Rm: 1, Rs: 2, Signed: false}
	Execute(c, gbamem.NewFlat(), d)
	assert.Equal(t, uint32(0xFFFFFFFE), c.GetRegister(3))
	assert.Equal(t, uint32(1), c.GetRegister(4))
}

func TestMSRImmediateChangesModeThroughSwitchMode(t *testing.T) {
	c := newTestCPU()
	require.Equal(t, cpu.ModeUSR, c.CPSR.Mode)
	c.SetSP(0x1000)

	d := Decoded{Form: FormPSRTransfer, WritePSR: true, Immediate: true, Imm: uint32(cpu.ModeIRQ), Rotate: 0, FieldMask: 0x1}
	Execute(c, gbamem.NewFlat(), d)

	assert.Equal(t, cpu.ModeIRQ, c.CPSR.Mode)
	assert.NotEqual(t, uint32(0x1000), c.GetSP()) // banked SP swapped in
}

func TestCacheHitAfterInsertAndMissOnSelfModify(t *testing.T) {
	cache := NewCache()
	_, hit := cache.Lookup(0x1000, 0xDEADBEEF)
	assert.False(t, hit)

	cache.Insert(0x1000, Decoded{Raw: 0xDEADBEEF, Form: FormDataProcessing})
	got, hit := cache.Lookup(0x1000, 0xDEADBEEF)
	assert.True(t, hit)
	assert.Equal(t, FormDataProcessing, got.Form)

	_, hit = cache.Lookup(0x1000, 0xFEEDFACE) // raw word changed underneath
	assert.False(t, hit)
}

func TestCacheInvalidateRange(t *testing.T) {
	cache := NewCache()
	cache.Insert(0x100, Decoded{Raw: 1})
	cache.Insert(0x200, Decoded{Raw: 2})
	cache.InvalidateRange(0x100, 0x200)
	_, hit := cache.Lookup(0x100, 1)
	assert.False(t, hit)
	_, hit = cache.Lookup(0x200, 2)
	assert.False(t, hit)
}

func TestCyclesForDataProcessingShiftByRegisterAndPC(t *testing.T) {
	d := Decoded{Form: FormDataProcessing, ShiftByReg: true, Rd: 15}
	got := CyclesFor(d, newTestCPU(), gbamem.NewFlat(), true)
	assert.Equal(t, uint32(1+1+2), got)
}

func TestCyclesForConditionNotMet(t *testing.T) {
	got := CyclesFor(Decoded{Form: FormBranch}, newTestCPU(), gbamem.NewFlat(), false)
	assert.Equal(t, uint32(1), got)
}
