// Package thumb implements the ARM7TDMI's compressed 16-bit instruction
// set (spec.md C8), sharing cpu.CPU and gbamem.Memory with the arm
// package rather than keeping its own register file. Grounded on
// original_source/src/thumb_cpu.cpp's nineteen format handlers, with its
// per-handler function-pointer table collapsed into a single decode
// switch in the same style the arm package's Form dispatch uses.
package thumb

import (
	"math/bits"

	"github.com/dtolnay-emu/gba7tdmi/cpu"
	"github.com/dtolnay-emu/gba7tdmi/gbamem"
)

// pcRead returns the pipeline-visible PC value for Thumb operand reads:
// current instruction address + 4 (two halfwords ahead).
func pcRead(c *cpu.CPU) uint32 { return c.PC + 4 }

// Execute decodes and runs one Thumb halfword, returning whether PC was
// written directly by the handler (branch/BL/BX/POP{PC}) — the caller
// advances PC by 2 itself otherwise.
func Execute(c *cpu.CPU, mem gbamem.Memory, instr uint16) (pcModified bool) {
	switch {
	case instr&0xF800 == 0x1800: // 00011xx: add/sub register or imm3
		return execAddSub(c, instr)
	case instr&0xE000 == 0x0000: // 000xxx: shift by immediate
		return execShiftImm(c, instr)
	case instr&0xE000 == 0x2000: // 001xxx: MOV/CMP/ADD/SUB imm8
		return execImmOp(c, instr)
	case instr&0xFC00 == 0x4000: // 010000: ALU reg-reg
		return execALU(c, instr)
	case instr&0xFC00 == 0x4400: // 010001: hi-register ops / BX
		return execHiReg(c, instr)
	case instr&0xF800 == 0x4800: // 01001x: LDR PC-relative
		return execLDRPCRelative(c, mem, instr)
	case instr&0xF000 == 0x5000 && instr&0x0200 == 0: // 0101xx0: load/store reg offset
		return execLoadStoreRegOffset(c, mem, instr)
	case instr&0xF000 == 0x5000 && instr&0x0200 != 0: // 0101xx1: sign-extended byte/half
		return execLoadStoreSignExtended(c, mem, instr)
	case instr&0xE000 == 0x6000: // 011xxx: load/store imm5, word or byte
		return execLoadStoreImm(c, mem, instr)
	case instr&0xF000 == 0x8000: // 1000xx: load/store halfword imm5
		return execLoadStoreHalfwordImm(c, mem, instr)
	case instr&0xF000 == 0x9000: // 1001xx: SP-relative load/store
		return execSPRelative(c, mem, instr)
	case instr&0xF000 == 0xA000: // 1010xx: load address
		return execLoadAddress(c, instr)
	case instr&0xFF00 == 0xB000: // 10110000: ADD/SUB SP,#imm7<<2
		return execAdjustSP(c, instr)
	case instr&0xF600 == 0xB400: // 1011x10x: PUSH/POP
		return execPushPop(c, mem, instr)
	case instr&0xF000 == 0xC000: // 1100xx: LDMIA/STMIA!Rb
		return execBlockTransfer(c, mem, instr)
	case instr&0xFF00 == 0xDF00: // 11011111: SWI
		c.Enter(cpu.VectorSWI, cpu.ModeSVC, c.PC+2)
		return true
	case instr&0xF000 == 0xD000: // 1101xx: conditional branch
		return execCondBranch(c, instr)
	case instr&0xF800 == 0xE000: // 11100x: unconditional branch
		return execBranch(c, instr)
	case instr&0xF000 == 0xF000: // 1111xx: BL halves
		return execBL(c, instr)
	default:
		c.Enter(cpu.VectorUndefined, cpu.ModeUND, c.PC+2)
		return true
	}
}

func execShiftImm(c *cpu.CPU, instr uint16) bool {
	op := (instr >> 11) & 0x3
	imm5 := uint((instr >> 6) & 0x1F)
	rs := int((instr >> 3) & 0x7)
	rd := int(instr & 0x7)

	var st cpu.ShiftType
	switch op {
	case 0:
		st = cpu.ShiftLSL
	case 1:
		st = cpu.ShiftLSR
	case 2:
		st = cpu.ShiftASR
	default: // op==3 belongs to the add/sub format, not reached here
		st = cpu.ShiftLSL
	}
	result, carry := cpu.Shift(c.GetRegister(rs), imm5, st, c.CPSR.C)
	c.SetRegister(rd, result)
	c.CPSR.UpdateFlagsNZC(result, carry)
	return false
}

func execAddSub(c *cpu.CPU, instr uint16) bool {
	sub := instr&0x0200 != 0
	useImm := instr&0x0400 != 0
	rnOrImm := uint32((instr >> 6) & 0x7)
	rs := int((instr >> 3) & 0x7)
	rd := int(instr & 0x7)

	op1 := c.GetRegister(rs)
	op2 := rnOrImm
	if !useImm {
		op2 = c.GetRegister(int(rnOrImm))
	}

	var result uint32
	var carry, overflow bool
	if sub {
		result = op1 - op2
		carry, overflow = cpu.SubCarry(op1, op2), cpu.SubOverflow(op1, op2, result)
	} else {
		result = op1 + op2
		carry, overflow = cpu.AddCarry(op1, op2, result), cpu.AddOverflow(op1, op2, result)
	}
	c.SetRegister(rd, result)
	c.CPSR.UpdateFlagsNZCV(result, carry, overflow)
	return false
}

func execImmOp(c *cpu.CPU, instr uint16) bool {
	op := (instr >> 11) & 0x3
	rd := int((instr >> 8) & 0x7)
	imm := uint32(instr & 0xFF)
	op1 := c.GetRegister(rd)

	switch op {
	case 0b00: // MOV
		c.SetRegister(rd, imm)
		c.CPSR.UpdateFlagsNZC(imm, c.CPSR.C)
	case 0b01: // CMP
		result := op1 - imm
		c.CPSR.UpdateFlagsNZCV(result, cpu.SubCarry(op1, imm), cpu.SubOverflow(op1, imm, result))
	case 0b10: // ADD
		result := op1 + imm
		c.SetRegister(rd, result)
		c.CPSR.UpdateFlagsNZCV(result, cpu.AddCarry(op1, imm, result), cpu.AddOverflow(op1, imm, result))
	case 0b11: // SUB
		result := op1 - imm
		c.SetRegister(rd, result)
		c.CPSR.UpdateFlagsNZCV(result, cpu.SubCarry(op1, imm), cpu.SubOverflow(op1, imm, result))
	}
	return false
}

func execALU(c *cpu.CPU, instr uint16) bool {
	op := (instr >> 6) & 0xF
	rs := int((instr >> 3) & 0x7)
	rd := int(instr & 0x7)
	op1 := c.GetRegister(rd)
	op2 := c.GetRegister(rs)

	var result uint32
	writeResult := true
	switch op {
	case 0x0: // AND
		result = op1 & op2
		c.CPSR.UpdateFlagsNZC(result, c.CPSR.C)
	case 0x1: // EOR
		result = op1 ^ op2
		c.CPSR.UpdateFlagsNZC(result, c.CPSR.C)
	case 0x2: // LSL
		var carry bool
		result, carry = cpu.Shift(op1, uint(op2&0xFF), cpu.ShiftLSL, c.CPSR.C)
		c.CPSR.UpdateFlagsNZC(result, carry)
	case 0x3: // LSR
		var carry bool
		amount := uint(op2 & 0xFF)
		result, carry = shiftRegisterForm(op1, amount, cpu.ShiftLSR, c.CPSR.C)
		c.CPSR.UpdateFlagsNZC(result, carry)
	case 0x4: // ASR
		var carry bool
		amount := uint(op2 & 0xFF)
		result, carry = shiftRegisterForm(op1, amount, cpu.ShiftASR, c.CPSR.C)
		c.CPSR.UpdateFlagsNZC(result, carry)
	case 0x5: // ADC
		var cin uint32
		if c.CPSR.C {
			cin = 1
		}
		temp := op1 + op2
		result = temp + cin
		carry := cpu.AddCarry(op1, op2, temp) || cpu.AddCarry(temp, cin, result)
		c.CPSR.UpdateFlagsNZCV(result, carry, cpu.AddOverflow(op1, op2, result))
	case 0x6: // SBC
		borrow := uint32(1)
		if c.CPSR.C {
			borrow = 0
		}
		result = op1 - op2 - borrow
		carry := uint64(op1) >= uint64(op2)+uint64(borrow)
		c.CPSR.UpdateFlagsNZCV(result, carry, cpu.SubOverflow(op1, op2+borrow, result))
	case 0x7: // ROR
		var carry bool
		result, carry = cpu.Shift(op1, uint(op2&0xFF)%32, cpu.ShiftROR, c.CPSR.C)
		c.CPSR.UpdateFlagsNZC(result, carry)
	case 0x8: // TST
		result = op1 & op2
		writeResult = false
		c.CPSR.UpdateFlagsNZC(result, c.CPSR.C)
	case 0x9: // NEG
		result = 0 - op2
		c.CPSR.UpdateFlagsNZCV(result, cpu.SubCarry(0, op2), cpu.SubOverflow(0, op2, result))
	case 0xA: // CMP
		result = op1 - op2
		writeResult = false
		c.CPSR.UpdateFlagsNZCV(result, cpu.SubCarry(op1, op2), cpu.SubOverflow(op1, op2, result))
	case 0xB: // CMN
		result = op1 + op2
		writeResult = false
		c.CPSR.UpdateFlagsNZCV(result, cpu.AddCarry(op1, op2, result), cpu.AddOverflow(op1, op2, result))
	case 0xC: // ORR
		result = op1 | op2
		c.CPSR.UpdateFlagsNZC(result, c.CPSR.C)
	case 0xD: // MUL
		result = op1 * op2
		c.CPSR.UpdateFlagsNZ(result)
	case 0xE: // BIC
		result = op1 &^ op2
		c.CPSR.UpdateFlagsNZC(result, c.CPSR.C)
	case 0xF: // MVN
		result = ^op2
		c.CPSR.UpdateFlagsNZC(result, c.CPSR.C)
	}
	if writeResult {
		c.SetRegister(rd, result)
	}
	return false
}

// shiftRegisterForm applies the register-specified-shift-amount#0 rule
// (LSR/ASR #0 means #32) that the immediate-shift format doesn't use.
func shiftRegisterForm(value uint32, amount uint, st cpu.ShiftType, carryIn bool) (uint32, bool) {
	if amount == 0 {
		return value, carryIn
	}
	return cpu.Shift(value, amount, st, carryIn)
}

func execHiReg(c *cpu.CPU, instr uint16) bool {
	op := (instr >> 8) & 0x3
	h1 := (instr >> 7) & 0x1
	h2 := (instr >> 6) & 0x1
	rs := int((instr>>3)&0x7) + int(h2)*8
	rd := int(instr&0x7) + int(h1)*8

	readReg := func(r int) uint32 {
		if r == cpu.PC {
			return pcRead(c)
		}
		return c.GetRegister(r)
	}

	switch op {
	case 0b00: // ADD
		result := readReg(rd) + readReg(rs)
		c.SetRegister(rd, result)
		if rd == cpu.PC {
			c.PC = result &^ 1
			return true
		}
		return false
	case 0b01: // CMP
		op1, op2 := readReg(rd), readReg(rs)
		result := op1 - op2
		c.CPSR.UpdateFlagsNZCV(result, cpu.SubCarry(op1, op2), cpu.SubOverflow(op1, op2, result))
		return false
	case 0b10: // MOV
		result := readReg(rs)
		c.SetRegister(rd, result)
		if rd == cpu.PC {
			c.PC = result &^ 1
			return true
		}
		return false
	default: // BX (and BLX-register, treated identically)
		target := readReg(rs)
		c.CPSR.T = target&1 != 0
		c.Branch(target &^ 1)
		return true
	}
}

func execLDRPCRelative(c *cpu.CPU, mem gbamem.Memory, instr uint16) bool {
	rd := int((instr >> 8) & 0x7)
	imm := uint32(instr&0xFF) << 2
	base := (pcRead(c)) &^ 0x3 // word-aligned per format 6
	c.SetRegister(rd, mem.Read32(base+imm))
	return false
}

func execLoadStoreRegOffset(c *cpu.CPU, mem gbamem.Memory, instr uint16) bool {
	load := instr&0x0800 != 0
	byteTransfer := instr&0x0400 != 0
	rm := int((instr >> 6) & 0x7)
	rn := int((instr >> 3) & 0x7)
	rd := int(instr & 0x7)
	addr := c.GetRegister(rn) + c.GetRegister(rm)

	if load {
		if byteTransfer {
			c.SetRegister(rd, uint32(mem.Read8(addr)))
		} else {
			c.SetRegister(rd, mem.Read32(addr))
		}
	} else {
		if byteTransfer {
			mem.Write8(addr, uint8(c.GetRegister(rd)))
		} else {
			mem.Write32(addr, c.GetRegister(rd))
		}
	}
	return false
}

func execLoadStoreSignExtended(c *cpu.CPU, mem gbamem.Memory, instr uint16) bool {
	h := instr&0x0800 != 0
	s := instr&0x0400 != 0
	rm := int((instr >> 6) & 0x7)
	rn := int((instr >> 3) & 0x7)
	rd := int(instr & 0x7)
	addr := c.GetRegister(rn) + c.GetRegister(rm)

	switch {
	case !h && !s: // STRH
		mem.Write16(addr, uint16(c.GetRegister(rd)))
	case !h && s: // LDSB
		c.SetRegister(rd, uint32(int32(int8(mem.Read8(addr)))))
	case h && !s: // LDRH
		c.SetRegister(rd, uint32(mem.Read16(addr)))
	default: // LDSH
		c.SetRegister(rd, uint32(int32(int16(mem.Read16(addr)))))
	}
	return false
}

func execLoadStoreImm(c *cpu.CPU, mem gbamem.Memory, instr uint16) bool {
	byteTransfer := instr&0x1000 != 0
	load := instr&0x0800 != 0
	imm5 := uint32((instr >> 6) & 0x1F)
	rn := int((instr >> 3) & 0x7)
	rd := int(instr & 0x7)

	offset := imm5
	if !byteTransfer {
		offset <<= 2
	}
	addr := c.GetRegister(rn) + offset

	if load {
		if byteTransfer {
			c.SetRegister(rd, uint32(mem.Read8(addr)))
		} else {
			c.SetRegister(rd, mem.Read32(addr))
		}
	} else {
		if byteTransfer {
			mem.Write8(addr, uint8(c.GetRegister(rd)))
		} else {
			mem.Write32(addr, c.GetRegister(rd))
		}
	}
	return false
}

func execLoadStoreHalfwordImm(c *cpu.CPU, mem gbamem.Memory, instr uint16) bool {
	load := instr&0x0800 != 0
	imm5 := uint32((instr >> 6) & 0x1F)
	rn := int((instr >> 3) & 0x7)
	rd := int(instr & 0x7)
	addr := c.GetRegister(rn) + imm5<<1

	if load {
		c.SetRegister(rd, uint32(mem.Read16(addr)))
	} else {
		mem.Write16(addr, uint16(c.GetRegister(rd)))
	}
	return false
}

func execSPRelative(c *cpu.CPU, mem gbamem.Memory, instr uint16) bool {
	load := instr&0x0800 != 0
	rd := int((instr >> 8) & 0x7)
	imm := uint32(instr&0xFF) << 2
	addr := c.GetSP() + imm

	if load {
		c.SetRegister(rd, mem.Read32(addr))
	} else {
		mem.Write32(addr, c.GetRegister(rd))
	}
	return false
}

func execLoadAddress(c *cpu.CPU, instr uint16) bool {
	fromSP := instr&0x0800 != 0
	rd := int((instr >> 8) & 0x7)
	imm := uint32(instr&0xFF) << 2

	var base uint32
	if fromSP {
		base = c.GetSP()
	} else {
		base = pcRead(c) &^ 0x3
	}
	c.SetRegister(rd, base+imm)
	return false
}

func execAdjustSP(c *cpu.CPU, instr uint16) bool {
	negative := instr&0x80 != 0
	imm := uint32(instr&0x7F) << 2
	if negative {
		c.SetSP(c.GetSP() - imm)
	} else {
		c.SetSP(c.GetSP() + imm)
	}
	return false
}

func execPushPop(c *cpu.CPU, mem gbamem.Memory, instr uint16) bool {
	pop := instr&0x0800 != 0
	includeExtra := instr&0x0100 != 0 // PUSH: LR, POP: PC
	regList := uint8(instr & 0xFF)
	n := bits.OnesCount8(regList)
	if includeExtra {
		n++
	}

	if pop {
		addr := c.GetSP()
		for i := 0; i < 8; i++ {
			if regList&(1<<uint(i)) != 0 {
				c.SetRegister(i, mem.Read32(addr))
				addr += 4
			}
		}
		if includeExtra {
			c.PC = mem.Read32(addr) &^ 1
			addr += 4
		}
		c.SetSP(addr)
		return includeExtra
	}

	addr := c.GetSP() - uint32(n)*4
	c.SetSP(addr)
	for i := 0; i < 8; i++ {
		if regList&(1<<uint(i)) != 0 {
			mem.Write32(addr, c.GetRegister(i))
			addr += 4
		}
	}
	if includeExtra {
		mem.Write32(addr, c.GetLR())
	}
	return false
}

func execBlockTransfer(c *cpu.CPU, mem gbamem.Memory, instr uint16) bool {
	load := instr&0x0800 != 0
	rn := int((instr >> 8) & 0x7)
	regList := uint8(instr & 0xFF)
	addr := c.GetRegister(rn)
	rnInList := regList&(1<<uint(rn)) != 0

	for i := 0; i < 8; i++ {
		if regList&(1<<uint(i)) == 0 {
			continue
		}
		if load {
			c.SetRegister(i, mem.Read32(addr))
		} else {
			mem.Write32(addr, c.GetRegister(i))
		}
		addr += 4
	}

	if !load || !rnInList {
		c.SetRegister(rn, addr)
	}
	return false
}

func execCondBranch(c *cpu.CPU, instr uint16) bool {
	cond := cpu.ConditionCode((instr >> 8) & 0xF)
	if !c.CPSR.EvaluateCondition(cond) {
		return false
	}
	offset := int32(int8(instr & 0xFF))
	c.Branch(pcRead(c) + uint32(offset<<1))
	return true
}

func execBranch(c *cpu.CPU, instr uint16) bool {
	offset := signExtend11(instr)
	c.Branch(pcRead(c) + uint32(offset<<1))
	return true
}

func execBL(c *cpu.CPU, instr uint16) bool {
	if instr&0x0800 == 0 {
		// First half: stash PC+4+(offset<<12) in LR.
		high := signExtend11(instr)
		c.SetLR(uint32(int64(pcRead(c)) + int64(high)<<12))
		return false
	}
	// Second half: target = LR + low offset; LR = return address | 1.
	low := uint32(instr&0x7FF) << 1
	target := c.GetLR() + low
	c.SetLR((c.PC + 2) | 1)
	c.Branch(target &^ 1)
	return true
}

func signExtend11(instr uint16) int32 {
	v := int32(instr & 0x7FF)
	if v&0x400 != 0 {
		v |= ^int32(0x7FF)
	}
	return v
}
