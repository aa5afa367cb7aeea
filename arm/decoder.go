package arm

import "github.com/dtolnay-emu/gba7tdmi/cpu"

// Decode turns a raw 32-bit ARM instruction word into its canonical
// Decoded form. The bits[27:26] dispatch mirrors the teacher's Decode
// (vm/executor.go), extended with the ARM7TDMI forms ARM2 never had:
// BX/BLX, multiply-long, halfword/signed transfers, SWP, and MSR's
// immediate form. Coprocessor encodings (bits[27:26]=11 without the SWI
// pattern) fall through to FormUndefined per the GBA profile (no
// coprocessors on the real hardware).
func Decode(word uint32) Decoded {
	d := Decoded{
		Raw:      word,
		Cond:     cpu.ConditionCode((word >> 28) & 0xF),
		SetFlags: (word>>20)&1 != 0,
	}

	switch (word >> 26) & 0x3 {
	case 0b00:
		decodeGroup00(word, &d)
	case 0b01:
		decodeSingleTransfer(word, &d)
	case 0b10:
		if word&0x0200_0000 != 0 {
			decodeBranch(word, &d)
		} else {
			decodeBlockTransfer(word, &d)
		}
	case 0b11:
		if word&0x0F00_0000 == 0x0F00_0000 {
			d.Form = FormSWI
		} else {
			d.Form = FormUndefined // coprocessor forms: unmodelled on GBA
		}
	}
	return d
}

func decodeGroup00(word uint32, d *Decoded) {
	switch {
	case word&0x0FFF_FFF0 == 0x012F_FF10, word&0x0FFF_FFF0 == 0x012F_FF30:
		// BX (and the BLX register form, treated identically on ARMv4T
		// since the core has no separate BLX-register semantics to add).
		d.Form = FormBranchExchange
		d.Rm = int(word & 0xF)

	case word&0x0FC0_00F0 == 0x0000_0090:
		decodeMultiply(word, d)

	case word&0x0F80_00F0 == 0x0080_0090:
		decodeMultiplyLong(word, d)

	case word&0x0FB0_0FF0 == 0x0100_0090:
		decodeSWP(word, d)

	case word&0x0FBF_0FFF == 0x010F_0000:
		decodePSRTransfer(word, d, false /* MRS */)

	case word&0x0FB0_00F0 == 0x0120_0000:
		decodePSRTransfer(word, d, true /* MSR register */)

	case word&0x0FB0_0000 == 0x0320_0000:
		decodePSRTransfer(word, d, true /* MSR immediate */)

	default:
		bit25, bit7, bit4 := (word>>25)&1, (word>>7)&1, (word>>4)&1
		if bit25 == 0 && bit7 == 1 && bit4 == 1 {
			decodeHalfwordTransfer(word, d)
		} else {
			decodeDataProcessing(word, d)
		}
	}
}

func decodeDataProcessing(word uint32, d *Decoded) {
	d.Form = FormDataProcessing
	d.Opcode = int((word >> 21) & 0xF)
	d.Rd = int((word >> 12) & 0xF)
	d.Rn = int((word >> 16) & 0xF)
	d.Immediate = (word>>25)&1 != 0
	d.PCModified = d.Rd == 15

	if d.Immediate {
		d.Imm = word & 0xFF
		d.Rotate = ((word >> 8) & 0xF) * 2
		return
	}

	d.Rm = int(word & 0xF)
	d.ShiftType = cpu.ShiftType((word >> 5) & 0x3)
	d.ShiftByReg = (word>>4)&1 != 0
	if d.ShiftByReg {
		d.Rs = int((word >> 8) & 0xF)
	} else {
		d.ShiftAmount = uint((word >> 7) & 0x1F)
		if d.ShiftType == cpu.ShiftROR && d.ShiftAmount == 0 {
			d.ShiftType = cpu.ShiftRRX
		}
	}
}

func decodeMultiply(word uint32, d *Decoded) {
	d.Form = FormMultiply
	d.Rd = int((word >> 16) & 0xF)
	d.Rn = int((word >> 12) & 0xF)
	d.Rs = int((word >> 8) & 0xF)
	d.Rm = int(word & 0xF)
	d.Accumulate = (word>>21)&1 != 0
}

func decodeMultiplyLong(word uint32, d *Decoded) {
	d.Form = FormMultiplyLong
	d.RdHi = int((word >> 16) & 0xF)
	d.RdLo = int((word >> 12) & 0xF)
	d.Rs = int((word >> 8) & 0xF)
	d.Rm = int(word & 0xF)
	d.Accumulate = (word>>21)&1 != 0
	d.Signed = (word>>22)&1 != 0
}

func decodeSWP(word uint32, d *Decoded) {
	d.Form = FormSWP
	d.Rn = int((word >> 16) & 0xF)
	d.Rd = int((word >> 12) & 0xF)
	d.Rm = int(word & 0xF)
	d.ByteTransfer = (word>>22)&1 != 0
}

func decodePSRTransfer(word uint32, d *Decoded, isMSR bool) {
	d.Form = FormPSRTransfer
	d.WritePSR = isMSR
	if !isMSR {
		d.Rd = int((word >> 12) & 0xF)
		return
	}
	d.FieldMask = uint8((word >> 16) & 0xF)
	d.Immediate = (word>>25)&1 != 0
	if d.Immediate {
		d.Imm = word & 0xFF
		d.Rotate = ((word >> 8) & 0xF) * 2
	} else {
		d.Rm = int(word & 0xF)
	}
}

func decodeHalfwordTransfer(word uint32, d *Decoded) {
	d.Form = FormHalfwordTransfer
	d.Load = (word>>20)&1 != 0
	d.Pre = (word>>24)&1 != 0
	d.Up = (word>>23)&1 != 0
	d.WriteBack = (word>>21)&1 != 0
	d.Rn = int((word >> 16) & 0xF)
	d.Rd = int((word >> 12) & 0xF)
	d.PCModified = d.Load && d.Rd == 15

	sh := (word >> 5) & 0x3
	switch sh {
	case 0b01:
		d.Extend = ExtendHalfwordUnsigned
	case 0b10:
		d.Extend = ExtendSignedByte
	case 0b11:
		d.Extend = ExtendSignedHalfword
	}

	if (word>>22)&1 != 0 {
		hi := (word >> 8) & 0xF
		lo := word & 0xF
		d.Immediate = true
		d.Imm = (hi << 4) | lo
	} else {
		d.Rm = int(word & 0xF)
	}
}

func decodeSingleTransfer(word uint32, d *Decoded) {
	d.Form = FormSingleTransfer
	d.Load = (word>>20)&1 != 0
	d.ByteTransfer = (word>>22)&1 != 0
	d.Pre = (word>>24)&1 != 0
	d.Up = (word>>23)&1 != 0
	d.WriteBack = (word>>21)&1 != 0
	d.Rn = int((word >> 16) & 0xF)
	d.Rd = int((word >> 12) & 0xF)
	d.PCModified = d.Load && d.Rd == 15

	// I bit here is inverted relative to data processing: 0 = immediate.
	if (word>>25)&1 == 0 {
		d.Immediate = true
		d.Imm = word & 0xFFF
		return
	}
	d.Rm = int(word & 0xF)
	d.ShiftType = cpu.ShiftType((word >> 5) & 0x3)
	d.ShiftAmount = uint((word >> 7) & 0x1F)
	if d.ShiftType == cpu.ShiftROR && d.ShiftAmount == 0 {
		d.ShiftType = cpu.ShiftRRX
	}
}

func decodeBlockTransfer(word uint32, d *Decoded) {
	d.Form = FormBlockTransfer
	d.Load = (word>>20)&1 != 0
	d.WriteBack = (word>>21)&1 != 0
	d.WritePSR = (word>>22)&1 != 0 // S bit: force-user / restore-CPSR
	d.Up = (word>>23)&1 != 0
	d.Pre = (word>>24)&1 != 0
	d.Rn = int((word >> 16) & 0xF)
	d.RegList = uint16(word & 0xFFFF)
	d.PCModified = d.Load && d.RegList&(1<<15) != 0
}

func decodeBranch(word uint32, d *Decoded) {
	d.Form = FormBranch
	d.Link = (word>>24)&1 != 0
	offset := int32(word&0x00FF_FFFF) << 8 >> 8 // sign-extend 24 bits
	d.BranchOffset = (offset << 2) + 8           // fold in pipeline +8 per spec
	d.PCModified = true
}
