package armasm

// Thumb word builders. Each mirrors one of thumb.Execute's decode
// cases directly rather than going through assembly text; only the
// forms this module's own tests exercise are implemented.

// ThumbMovImm builds a MOV Rd, #imm8 instruction (001 00 ddd iiiiiiii).
func ThumbMovImm(rd int, imm8 uint8) uint16 {
	return 0x2000 | uint16(rd)<<8 | uint16(imm8)
}

// ThumbCmpImm builds a CMP Rd, #imm8 instruction (001 01 ddd iiiiiiii).
func ThumbCmpImm(rd int, imm8 uint8) uint16 {
	return 0x2800 | uint16(rd)<<8 | uint16(imm8)
}

// ThumbAddImm builds an ADD Rd, #imm8 instruction (001 10 ddd iiiiiiii).
func ThumbAddImm(rd int, imm8 uint8) uint16 {
	return 0x3000 | uint16(rd)<<8 | uint16(imm8)
}

// ThumbSubImm builds a SUB Rd, #imm8 instruction (001 11 ddd iiiiiiii).
func ThumbSubImm(rd int, imm8 uint8) uint16 {
	return 0x3800 | uint16(rd)<<8 | uint16(imm8)
}

// ThumbAddSubReg builds the 3-register ADD/SUB form
// (000 11 I op rrr nnn ddd): immediate selects Rn-vs-#imm3, op selects
// ADD(0)/SUB(1).
func ThumbAddSubReg(sub bool, rnOrImm3 int, immediate bool, rs, rd int) uint16 {
	instr := uint16(0x1800) | uint16(rs)<<3 | uint16(rd)
	if sub {
		instr |= 1 << 9
	}
	if immediate {
		instr |= 1 << 10
	}
	instr |= uint16(rnOrImm3) << 6
	return instr
}

// ThumbALUOp selects one of the sixteen register-register ALU ops.
type ThumbALUOp uint16

const (
	ThumbAND ThumbALUOp = 0x0
	ThumbEOR ThumbALUOp = 0x1
	ThumbLSL ThumbALUOp = 0x2
	ThumbLSR ThumbALUOp = 0x3
	ThumbASR ThumbALUOp = 0x4
	ThumbADC ThumbALUOp = 0x5
	ThumbSBC ThumbALUOp = 0x6
	ThumbROR ThumbALUOp = 0x7
	ThumbTST ThumbALUOp = 0x8
	ThumbNEG ThumbALUOp = 0x9
	ThumbCMP ThumbALUOp = 0xA
	ThumbCMN ThumbALUOp = 0xB
	ThumbORR ThumbALUOp = 0xC
	ThumbMUL ThumbALUOp = 0xD
	ThumbBIC ThumbALUOp = 0xE
	ThumbMVN ThumbALUOp = 0xF
)

// ThumbALU builds a register-register ALU instruction
// (010000 oooo sss ddd).
func ThumbALU(op ThumbALUOp, rs, rd int) uint16 {
	return 0x4000 | uint16(op)<<6 | uint16(rs)<<3 | uint16(rd)
}

// ThumbBX builds a branch-exchange instruction
// (010001 11 0 sss 000), switching mode on rs's bit 0.
func ThumbBX(rs int) uint16 {
	return 0x4700 | uint16(rs)<<3
}

// ThumbLdrStrImm builds an immediate-offset word/byte load/store
// (011 B L ooooo nnn ddd).
func ThumbLdrStrImm(load bool, byteSize bool, rn, rd int, offset5 uint8) uint16 {
	instr := uint16(0x6000) | uint16(rn)<<3 | uint16(rd)
	if byteSize {
		instr |= 1 << 12
	}
	if load {
		instr |= 1 << 11
	}
	instr |= uint16(offset5) << 6
	return instr
}

// ThumbBranch builds an unconditional branch B (11100 ooooooooooo) from
// a signed, already-halved 11-bit offset.
func ThumbBranch(offset11 int16) uint16 {
	return 0xE000 | uint16(offset11)&0x7FF
}

// ThumbBLHigh and ThumbBLLow build the two halves of a BL instruction
// pair: the high half carries bits [22:12] of the signed offset in its
// low 11 bits, the low half carries bits [11:1].
func ThumbBLHigh(offsetHigh11 int16) uint16 {
	return 0xF000 | uint16(offsetHigh11)&0x7FF
}

func ThumbBLLow(offsetLow11 int16) uint16 {
	return 0xF800 | uint16(offsetLow11)&0x7FF
}

// ThumbSWI builds a software interrupt instruction (11011111 cccccccc).
func ThumbSWI(comment8 uint8) uint16 {
	return 0xDF00 | uint16(comment8)
}
