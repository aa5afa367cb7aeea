package arm

import (
	"github.com/dtolnay-emu/gba7tdmi/cpu"
	"github.com/dtolnay-emu/gba7tdmi/gbamem"
)

// Execute dispatches a Decoded instruction to its handler (spec.md C7).
// The caller has already evaluated the condition. Execute returns
// whether the handler itself advanced PC (branch, BX, loads into PC,
// data-processing writing Rd=15) — when false, the caller must advance
// PC by 4 itself, matching the "PC not modified" signal the spec
// describes.
func Execute(c *cpu.CPU, mem gbamem.Memory, d Decoded) (pcModified bool) {
	switch d.Form {
	case FormDataProcessing:
		return execDataProcessing(c, d)
	case FormMultiply:
		return execMultiply(c, d)
	case FormMultiplyLong:
		return execMultiplyLong(c, d)
	case FormSingleTransfer:
		return execSingleTransfer(c, mem, d)
	case FormHalfwordTransfer:
		return execHalfwordTransfer(c, mem, d)
	case FormBlockTransfer:
		return execBlockTransfer(c, mem, d)
	case FormBranch:
		return execBranch(c, d)
	case FormBranchExchange:
		return execBranchExchange(c, d)
	case FormSWP:
		return execSWP(c, mem, d)
	case FormPSRTransfer:
		return execPSRTransfer(c, d)
	case FormSWI:
		c.Enter(cpu.VectorSWI, cpu.ModeSVC, c.PC+4)
		return true
	default: // FormUndefined
		c.Enter(cpu.VectorUndefined, cpu.ModeUND, c.PC+4)
		return true
	}
}

// operand2 computes the data-processing/PSR shifter operand and its
// carry-out, following C4's barrel shifter.
func operand2(c *cpu.CPU, d Decoded) (value uint32, carryOut bool) {
	if d.Immediate {
		if d.Rotate == 0 {
			return d.Imm, c.CPSR.C
		}
		return cpu.Shift(d.Imm, uint(d.Rotate), cpu.ShiftROR, c.CPSR.C)
	}
	rm := c.GetRegister(d.Rm)
	amount := d.ShiftAmount
	if d.ShiftByReg {
		amount = uint(c.GetRegister(d.Rs) & 0xFF)
		if amount == 0 {
			return rm, c.CPSR.C
		}
	}
	return cpu.Shift(rm, amount, d.ShiftType, c.CPSR.C)
}

func isLogical(opcode int) bool {
	switch opcode {
	case OpAND, OpEOR, OpTST, OpTEQ, OpORR, OpMOV, OpBIC, OpMVN:
		return true
	default:
		return false
	}
}

func execDataProcessing(c *cpu.CPU, d Decoded) bool {
	op1 := c.GetRegister(d.Rn)
	op2, shiftCarry := operand2(c, d)

	var result uint32
	var carry, overflow bool
	writeResult := true
	updateFlags := d.SetFlags

	switch d.Opcode {
	case OpAND:
		result, carry = op1&op2, shiftCarry
	case OpEOR:
		result, carry = op1^op2, shiftCarry
	case OpSUB:
		result = op1 - op2
		carry, overflow = cpu.SubCarry(op1, op2), cpu.SubOverflow(op1, op2, result)
	case OpRSB:
		result = op2 - op1
		carry, overflow = cpu.SubCarry(op2, op1), cpu.SubOverflow(op2, op1, result)
	case OpADD:
		result = op1 + op2
		carry, overflow = cpu.AddCarry(op1, op2, result), cpu.AddOverflow(op1, op2, result)
	case OpADC:
		var cin uint32
		if c.CPSR.C {
			cin = 1
		}
		temp := op1 + op2
		result = temp + cin
		carry = cpu.AddCarry(op1, op2, temp) || cpu.AddCarry(temp, cin, result)
		overflow = cpu.AddOverflow(op1, op2, result)
	case OpSBC:
		borrow := uint32(1)
		if c.CPSR.C {
			borrow = 0
		}
		result = op1 - op2 - borrow
		carry = uint64(op1) >= uint64(op2)+uint64(borrow)
		overflow = cpu.SubOverflow(op1, op2+borrow, result)
	case OpRSC:
		borrow := uint32(1)
		if c.CPSR.C {
			borrow = 0
		}
		result = op2 - op1 - borrow
		carry = uint64(op2) >= uint64(op1)+uint64(borrow)
		overflow = cpu.SubOverflow(op2, op1+borrow, result)
	case OpTST:
		result, carry, writeResult, updateFlags = op1&op2, shiftCarry, false, true
	case OpTEQ:
		result, carry, writeResult, updateFlags = op1^op2, shiftCarry, false, true
	case OpCMP:
		result = op1 - op2
		carry, overflow = cpu.SubCarry(op1, op2), cpu.SubOverflow(op1, op2, result)
		writeResult, updateFlags = false, true
	case OpCMN:
		result = op1 + op2
		carry, overflow = cpu.AddCarry(op1, op2, result), cpu.AddOverflow(op1, op2, result)
		writeResult, updateFlags = false, true
	case OpORR:
		result, carry = op1|op2, shiftCarry
	case OpMOV:
		result, carry = op2, shiftCarry
	case OpBIC:
		result, carry = op1&^op2, shiftCarry
	case OpMVN:
		result, carry = ^op2, shiftCarry
	}

	if writeResult {
		c.SetRegister(d.Rd, result)
	}
	if updateFlags {
		if d.Rd == 15 {
			// Rd=15 with S=1 is the "restore CPSR from SPSR" exception
			// return idiom; SPSR is unmodelled (§ Non-goals) so flags are
			// left untouched here rather than silently corrupted.
		} else if isLogical(d.Opcode) {
			c.CPSR.UpdateFlagsNZC(result, carry)
		} else {
			c.CPSR.UpdateFlagsNZCV(result, carry, overflow)
		}
	}

	return writeResult && d.Rd == 15
}

func execMultiply(c *cpu.CPU, d Decoded) bool {
	result := c.GetRegister(d.Rm) * c.GetRegister(d.Rs)
	if d.Accumulate {
		result += c.GetRegister(d.Rn)
	}
	c.SetRegister(d.Rd, result)
	if d.SetFlags {
		c.CPSR.UpdateFlagsNZ(result)
	}
	return false
}

func execMultiplyLong(c *cpu.CPU, d Decoded) bool {
	var result uint64
	if d.Signed {
		result = uint64(int64(int32(c.GetRegister(d.Rm))) * int64(int32(c.GetRegister(d.Rs))))
	} else {
		result = uint64(c.GetRegister(d.Rm)) * uint64(c.GetRegister(d.Rs))
	}
	if d.Accumulate {
		result += uint64(c.GetRegister(d.RdHi))<<32 | uint64(c.GetRegister(d.RdLo))
	}
	lo, hi := uint32(result), uint32(result>>32)
	c.SetRegister(d.RdLo, lo)
	c.SetRegister(d.RdHi, hi)
	if d.SetFlags {
		c.CPSR.N = hi&0x80000000 != 0
		c.CPSR.Z = lo == 0 && hi == 0
	}
	return false
}

func transferOffset(c *cpu.CPU, d Decoded) uint32 {
	if d.Immediate {
		return d.Imm
	}
	return mustShift(c, d)
}

func mustShift(c *cpu.CPU, d Decoded) uint32 {
	v, _ := cpu.Shift(c.GetRegister(d.Rm), d.ShiftAmount, d.ShiftType, c.CPSR.C)
	return v
}

func effectiveAddr(base, offset uint32, up bool) uint32 {
	if up {
		return base + offset
	}
	return base - offset
}

func execSingleTransfer(c *cpu.CPU, mem gbamem.Memory, d Decoded) bool {
	base := c.GetRegister(d.Rn)
	offset := transferOffset(c, d)
	effective := effectiveAddr(base, offset, d.Up)

	addr := base
	if d.Pre {
		addr = effective
	}

	if d.Load {
		var value uint32
		if d.ByteTransfer {
			value = uint32(mem.Read8(addr))
		} else {
			value = mem.Read32(addr)
		}
		c.SetRegister(d.Rd, value)
	} else {
		value := c.GetRegister(d.Rd)
		if d.Rd == 15 {
			value = c.PC + 12
		}
		if d.ByteTransfer {
			mem.Write8(addr, uint8(value))
		} else {
			mem.Write32(addr, value)
		}
	}

	if (d.Pre && d.WriteBack) || !d.Pre {
		if d.Rn != 15 {
			c.SetRegister(d.Rn, effective)
		}
	}

	return d.Load && d.Rd == 15
}

func execHalfwordTransfer(c *cpu.CPU, mem gbamem.Memory, d Decoded) bool {
	base := c.GetRegister(d.Rn)
	offset := d.Imm
	if !d.Immediate {
		offset = c.GetRegister(d.Rm)
	}
	effective := effectiveAddr(base, offset, d.Up)

	addr := base
	if d.Pre {
		addr = effective
	}

	if d.Load {
		var value uint32
		switch d.Extend {
		case ExtendHalfwordUnsigned:
			value = uint32(mem.Read16(addr))
		case ExtendSignedByte:
			value = uint32(int32(int8(mem.Read8(addr))))
		case ExtendSignedHalfword:
			value = uint32(int32(int16(mem.Read16(addr))))
		}
		c.SetRegister(d.Rd, value)
	} else {
		mem.Write16(addr, uint16(c.GetRegister(d.Rd)))
	}

	if (d.Pre && d.WriteBack) || !d.Pre {
		if d.Rn != 15 {
			c.SetRegister(d.Rn, effective)
		}
	}

	return d.Load && d.Rd == 15
}

func execSWP(c *cpu.CPU, mem gbamem.Memory, d Decoded) bool {
	addr := c.GetRegister(d.Rn)
	if d.ByteTransfer {
		old := mem.Read8(addr)
		mem.Write8(addr, uint8(c.GetRegister(d.Rm)))
		c.SetRegister(d.Rd, uint32(old))
	} else {
		addr &^= 0x3
		old := mem.Read32(addr)
		mem.Write32(addr, c.GetRegister(d.Rm))
		c.SetRegister(d.Rd, old)
	}
	return false
}

func execBranch(c *cpu.CPU, d Decoded) bool {
	target := uint32(int64(c.PC) + int64(d.BranchOffset))
	if d.Link {
		c.BranchWithLink(target)
	} else {
		c.Branch(target)
	}
	return true
}

func execBranchExchange(c *cpu.CPU, d Decoded) bool {
	target := c.GetRegister(d.Rm)
	c.CPSR.T = target&1 != 0
	c.Branch(target &^ 1)
	return true
}

func execPSRTransfer(c *cpu.CPU, d Decoded) bool {
	if !d.WritePSR {
		c.SetRegister(d.Rd, c.CPSR.ToUint32())
		return false
	}

	var src uint32
	switch {
	case d.Immediate && d.Rotate == 0:
		src = d.Imm
	case d.Immediate:
		src, _ = cpu.Shift(d.Imm, uint(d.Rotate), cpu.ShiftROR, c.CPSR.C)
	default:
		src = c.GetRegister(d.Rm)
	}

	// FieldMask bit 3 selects the flags byte [31:24]; bit 0 selects the
	// control byte [7:0] (mode + I/F/T). Bits 1-2 (status/extension
	// bytes) are unmodelled on ARMv4T and ignored.
	cur := c.CPSR.ToUint32()
	var next uint32
	if d.FieldMask&0x8 != 0 {
		next |= src & 0xFF000000
	} else {
		next |= cur & 0xFF000000
	}
	if d.FieldMask&0x1 != 0 {
		next |= src & 0xFF
	} else {
		next |= cur & 0xFF
	}

	mode := cpu.ModeFromUint32(next)
	c.CPSR.FromUint32(next)
	if d.FieldMask&0x1 != 0 && mode.Valid() {
		c.SwitchMode(mode)
	}
	return false
}
