// Package arm implements the ARM7TDMI 32-bit instruction decoder, its
// decoded-instruction cache, and the executor — spec.md components C5,
// C6, C7, and C10.
package arm

import "github.com/dtolnay-emu/gba7tdmi/cpu"

// Form tags which executor handler a Decoded instruction dispatches to.
// This replaces the C++ original's function-pointer-per-cache-entry
// design (spec.md §9 REDESIGN FLAGS): the cache stores a small enum, the
// executor switches on it, and invalidation-by-form becomes possible
// without touching function pointers.
type Form uint8

const (
	FormDataProcessing Form = iota
	FormMultiply
	FormMultiplyLong
	FormSingleTransfer
	FormHalfwordTransfer
	FormBlockTransfer
	FormBranch
	FormBranchExchange
	FormSWP
	FormPSRTransfer
	FormSWI
	FormUndefined
)

// Data-processing opcodes (bits 24-21).
const (
	OpAND = 0x0
	OpEOR = 0x1
	OpSUB = 0x2
	OpRSB = 0x3
	OpADD = 0x4
	OpADC = 0x5
	OpSBC = 0x6
	OpRSC = 0x7
	OpTST = 0x8
	OpTEQ = 0x9
	OpCMP = 0xA
	OpCMN = 0xB
	OpORR = 0xC
	OpMOV = 0xD
	OpBIC = 0xE
	OpMVN = 0xF
)

// ExtendKind distinguishes the halfword/signed-byte transfer's load
// width and sign behaviour.
type ExtendKind uint8

const (
	ExtendHalfwordUnsigned ExtendKind = iota
	ExtendSignedByte
	ExtendSignedHalfword
)

// Decoded is the canonical decoded-instruction record (spec.md §3). Field
// names resolve the Open Question around duplicate naming in the
// source: Imm/Rotate are the only names used (no imm8/rotate_imm alias).
type Decoded struct {
	Raw  uint32
	Cond cpu.ConditionCode
	Form Form

	// Registers. Unused fields for a given Form are simply zero.
	Rd, Rn, Rm, Rs     int
	RdLo, RdHi         int

	// Data processing / shifter operand.
	Opcode      int
	Immediate   bool // operand2 is an immediate, not a shifted register
	Imm         uint32
	Rotate      uint32 // rotate amount (4-bit rotate field * 2) for immediate operands, or 0
	ShiftType   cpu.ShiftType
	ShiftAmount uint
	ShiftByReg  bool

	// Load/store.
	ByteTransfer bool
	Pre          bool
	Up           bool
	WriteBack    bool
	Load         bool
	Extend       ExtendKind
	IsHalfword   bool // single-transfer form is LDRH/STRH/LDRSB/LDRSH

	// Block transfer.
	RegList uint16

	// Branch.
	BranchOffset int32
	Link         bool

	// Multiply.
	Accumulate bool
	Signed     bool

	// Common flags.
	SetFlags   bool
	PCModified bool

	// PSR transfer: Rd on read (MRS), Rm/Imm as source (MSR), FieldMask
	// is the 4-bit mask from bits [19:16] selecting which CPSR byte
	// fields the write affects.
	WritePSR  bool
	FieldMask uint8
}
