package armasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtolnay-emu/gba7tdmi/arm"
	"github.com/dtolnay-emu/gba7tdmi/cpu"
)

func TestRotatedImmediate(t *testing.T) {
	encoded, ok := RotatedImmediate(0xFF)
	require.True(t, ok)
	assert.Equal(t, uint32(0xFF), encoded)

	_, ok = RotatedImmediate(0x101)
	assert.False(t, ok, "0x101 has two set bit groups too far apart to rotate into 8 bits")

	encoded, ok = RotatedImmediate(0xFF000000)
	require.True(t, ok)
	assert.Equal(t, uint32(0xFF), encoded&0xFF)
}

func TestDataProcessingImmDecodesAsMov(t *testing.T) {
	word := DataProcessingImm(cpu.CondAL, OpMOV, false, 0, 0, 0x42)
	decoded := arm.Decode(word)
	assert.Equal(t, arm.FormDataProcessing, decoded.Form)
	assert.Equal(t, cpu.CondAL, decoded.Cond)
}

func TestDataProcessingRegDecodesAsDataProcessing(t *testing.T) {
	word := DataProcessingReg(cpu.CondAL, OpADD, true, 1, 0, 2, LSL, 0)
	decoded := arm.Decode(word)
	assert.Equal(t, arm.FormDataProcessing, decoded.Form)
}

func TestBranchDecodesAsBranch(t *testing.T) {
	word := Branch(cpu.CondAL, true, 10)
	decoded := arm.Decode(word)
	assert.Equal(t, arm.FormBranch, decoded.Form)
}

func TestBranchExchangeDecodesAsBranchExchange(t *testing.T) {
	word := BranchExchange(cpu.CondAL, 0)
	decoded := arm.Decode(word)
	assert.Equal(t, arm.FormBranchExchange, decoded.Form)
}

func TestMultiplyDecodesAsMultiply(t *testing.T) {
	word := Multiply(cpu.CondAL, false, false, 0, 1, 2, 3)
	decoded := arm.Decode(word)
	assert.Equal(t, arm.FormMultiply, decoded.Form)
}

func TestSingleTransferImmDecodesAsSingleTransfer(t *testing.T) {
	word := SingleTransferImm(cpu.CondAL, true, TransferWord, 0, 1, 4)
	decoded := arm.Decode(word)
	assert.Equal(t, arm.FormSingleTransfer, decoded.Form)
}

func TestBlockTransferDecodesAsBlockTransfer(t *testing.T) {
	word := BlockTransfer(cpu.CondAL, true, true, true, true, 13, 0x00FF)
	decoded := arm.Decode(word)
	assert.Equal(t, arm.FormBlockTransfer, decoded.Form)
}

func TestSWIDecodesAsSWI(t *testing.T) {
	word := SWI(cpu.CondAL, 0)
	decoded := arm.Decode(word)
	assert.Equal(t, arm.FormSWI, decoded.Form)
}

func TestThumbMovImmMatchesImmOpEncoding(t *testing.T) {
	instr := ThumbMovImm(3, 0x7F)
	assert.Equal(t, uint16(0x237F), instr)
}

func TestThumbAddSubRegImmediateForm(t *testing.T) {
	instr := ThumbAddSubReg(false, 3, true, 1, 0)
	assert.Equal(t, uint16(0x1CC8), instr)
}

func TestThumbBranchPair(t *testing.T) {
	hi := ThumbBLHigh(5)
	lo := ThumbBLLow(100)
	assert.Equal(t, uint16(0xF005), hi)
	assert.Equal(t, uint16(0xF864), lo)
}
