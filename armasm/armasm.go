// Package armasm builds raw ARM and Thumb instruction words directly
// from struct literals, for use as test fixtures elsewhere in this
// module. It is a direct struct-to-word reduction of the teacher's
// text-assembly encoder: no lexer, no parser, no label/symbol table —
// a loaded GBA ROM is a binary image, not hand-written `.s` source, so
// tests that need a specific bit pattern build it with these helpers
// instead of assembling text.
package armasm

import "github.com/dtolnay-emu/gba7tdmi/cpu"

// ShiftType selects the barrel shifter operation encoded in operand2.
type ShiftType uint32

const (
	LSL ShiftType = 0
	LSR ShiftType = 1
	ASR ShiftType = 2
	ROR ShiftType = 3
)

// Opcode is the 4-bit data-processing opcode field.
type Opcode uint32

const (
	OpAND Opcode = 0x0
	OpEOR Opcode = 0x1
	OpSUB Opcode = 0x2
	OpRSB Opcode = 0x3
	OpADD Opcode = 0x4
	OpADC Opcode = 0x5
	OpSBC Opcode = 0x6
	OpRSC Opcode = 0x7
	OpTST Opcode = 0x8
	OpTEQ Opcode = 0x9
	OpCMP Opcode = 0xA
	OpCMN Opcode = 0xB
	OpORR Opcode = 0xC
	OpMOV Opcode = 0xD
	OpBIC Opcode = 0xE
	OpMVN Opcode = 0xF
)

// RotatedImmediate encodes value as an 8-bit-immediate/4-bit-rotate
// pair, trying every even rotation as the teacher's encodeImmediate
// does. ok is false when value cannot be represented this way.
func RotatedImmediate(value uint32) (encoded uint32, ok bool) {
	for rotate := uint32(0); rotate < 32; rotate += 2 {
		rotated := (value >> rotate) | (value << (32 - rotate))
		if rotated <= 0xFF {
			decodeRotate := (32 - rotate) % 32
			return ((decodeRotate / 2) << 8) | rotated, true
		}
	}
	return 0, false
}

// DataProcessingImm builds a data-processing instruction with an
// immediate operand2 (cccc 001o oooo Srrr rddd iiii iiii iiii).
// It panics if value cannot be encoded as a rotated immediate — tests
// should pick values the ARM immediate field can represent.
func DataProcessingImm(cond cpu.ConditionCode, op Opcode, setFlags bool, rn, rd int, value uint32) uint32 {
	encoded, ok := RotatedImmediate(value)
	if !ok {
		panic("armasm: value cannot be encoded as ARM rotated immediate")
	}
	return word(cond) | (1 << 25) | (uint32(op) << 21) | sBit(setFlags) |
		(uint32(rn) << 16) | (uint32(rd) << 12) | encoded
}

// DataProcessingReg builds a data-processing instruction with a
// register operand2, optionally shifted by an immediate amount
// (cccc 000o oooo Srrr rddd ssss sTT0 mmmm).
func DataProcessingReg(cond cpu.ConditionCode, op Opcode, setFlags bool, rn, rd, rm int, shift ShiftType, shiftAmount uint32) uint32 {
	shiftField := (shiftAmount << 7) | (uint32(shift) << 5) | uint32(rm)
	return word(cond) | (uint32(op) << 21) | sBit(setFlags) |
		(uint32(rn) << 16) | (uint32(rd) << 12) | shiftField
}

// DataProcessingRegShiftedByReg builds a data-processing instruction
// whose operand2 is shifted by a register, not an immediate amount
// (cccc 000o oooo Srrr rddd ssss 0TT1 mmmm).
func DataProcessingRegShiftedByReg(cond cpu.ConditionCode, op Opcode, setFlags bool, rn, rd, rs, rm int, shift ShiftType) uint32 {
	shiftField := (uint32(rs) << 8) | (uint32(shift) << 5) | (1 << 4) | uint32(rm)
	return word(cond) | (uint32(op) << 21) | sBit(setFlags) |
		(uint32(rn) << 16) | (uint32(rd) << 12) | shiftField
}

// Branch builds an unconditional-within-condition B/BL instruction
// from a signed word offset — the caller computes offset as
// (target - (pc+8)) / 4, matching the ARM pipeline's PC-relative
// addressing.
func Branch(cond cpu.ConditionCode, link bool, wordOffset int32) uint32 {
	l := uint32(0)
	if link {
		l = 1
	}
	return word(cond) | (5 << 25) | (l << 24) | (uint32(wordOffset) & 0xFFFFFF)
}

// BranchExchange builds a BX instruction that switches to the mode
// selected by rm's bit 0 (cccc 0001 0010 1111 1111 1111 0001 mmmm).
func BranchExchange(cond cpu.ConditionCode, rm int) uint32 {
	return word(cond) | 0x012FFF10 | uint32(rm)
}

// Multiply builds a MUL/MLA instruction
// (cccc 0000 00As ddddd nnnn ssss 1001 mmmm).
func Multiply(cond cpu.ConditionCode, accumulate, setFlags bool, rd, rn, rs, rm int) uint32 {
	a := uint32(0)
	if accumulate {
		a = 1
	}
	return word(cond) | (a << 21) | sBit(setFlags) |
		(uint32(rd) << 16) | (uint32(rn) << 12) | (uint32(rs) << 8) | (0x9 << 4) | uint32(rm)
}

// TransferSize selects the width of a single data transfer.
type TransferSize int

const (
	TransferWord TransferSize = iota
	TransferByte
)

// SingleTransferImm builds an LDR/STR with an immediate offset, always
// pre-indexed and adding the offset
// (cccc 01IP UBWL nnnn ddddd oooo oooo oooo).
func SingleTransferImm(cond cpu.ConditionCode, load bool, size TransferSize, rn, rd int, offset uint32) uint32 {
	l := uint32(0)
	if load {
		l = 1
	}
	b := uint32(0)
	if size == TransferByte {
		b = 1
	}
	return word(cond) | (1 << 26) | (1 << 24) | (1 << 23) | (b << 22) | (l << 20) |
		(uint32(rn) << 16) | (uint32(rd) << 12) | (offset & 0xFFF)
}

// BlockTransferRegList is a bitmask of registers r0-r15, LSB = r0.
type BlockTransferRegList uint16

// BlockTransfer builds an LDM/STM instruction
// (cccc 100P USWL nnnn rrrr rrrr rrrr rrrr).
func BlockTransfer(cond cpu.ConditionCode, load, preIndex, up, writeback bool, rn int, regs BlockTransferRegList) uint32 {
	bit := func(set bool, shift uint32) uint32 {
		if set {
			return 1 << shift
		}
		return 0
	}
	return word(cond) | (1 << 27) | bit(preIndex, 24) | bit(up, 23) | bit(writeback, 21) |
		bit(load, 20) | (uint32(rn) << 16) | uint32(regs)
}

// SWI builds a software interrupt instruction
// (cccc 1111 cccc cccc cccc cccc cccc cccc).
func SWI(cond cpu.ConditionCode, comment uint32) uint32 {
	return word(cond) | (0xF << 24) | (comment & 0xFFFFFF)
}

func word(cond cpu.ConditionCode) uint32 { return uint32(cond) << 28 }

func sBit(set bool) uint32 {
	if set {
		return 1 << 20
	}
	return 0
}
