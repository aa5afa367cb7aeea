package thumb

import (
	"math/bits"

	"github.com/dtolnay-emu/gba7tdmi/cpu"
	"github.com/dtolnay-emu/gba7tdmi/gbamem"
)

// CyclesFor mirrors arm.CyclesFor's contract (spec.md §4.8) for the
// Thumb formats: a cheap pre-execution estimate, not a cycle-exact
// model. Thumb has no condition-skip cost since only format 16
// (conditional branch) carries a condition, and that format folds its
// own "not taken" cost into the 1-vs-3 split below.
func CyclesFor(c *cpu.CPU, mem gbamem.Memory, instr uint16) uint32 {
	switch {
	case instr&0xF000 == 0x5000, instr&0xE000 == 0x6000, instr&0xF000 == 0x8000,
		instr&0xF000 == 0x9000, instr&0xF800 == 0x4800:
		return 1 + mem.AccessCycles(c.GetSP(), 4)

	case instr&0xF600 == 0xB400: // PUSH/POP
		regList := uint8(instr & 0xFF)
		n := bits.OnesCount8(regList)
		if instr&0x0100 != 0 {
			n++
		}
		cost := uint32(1 + n)
		addr := c.GetSP()
		for i := 0; i < n; i++ {
			cost += mem.AccessCycles(addr+uint32(i)*4, 4)
		}
		return cost

	case instr&0xF000 == 0xC000: // LDMIA/STMIA
		n := bits.OnesCount8(uint8(instr & 0xFF))
		return uint32(1 + n)

	case instr&0xF000 == 0xD000, instr&0xF800 == 0xE000, instr&0xF000 == 0xF000:
		if instr&0xF000 == 0xD000 && instr&0x0F00 != 0x0F00 &&
			!c.CPSR.EvaluateCondition(cpu.ConditionCode((instr>>8)&0xF)) {
			return 1 // Bcc not taken
		}
		return 3 // branch family: Bcc, B, BL

	case instr&0xFC00 == 0x4000 && (instr>>6)&0xF == 0xD: // MUL
		return 1 + multiplyExtraCycles(c.GetRegister(int(instr&0x7)))

	default:
		return 1
	}
}

func multiplyExtraCycles(operand uint32) uint32 {
	top24 := operand >> 8
	if top24 == 0 || top24 == 0x00FF_FFFF {
		return 1
	}
	top16 := operand >> 16
	if top16 == 0 || top16 == 0xFFFF {
		return 2
	}
	return 3
}
