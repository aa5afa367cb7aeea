package arm

import (
	"math/bits"

	"github.com/dtolnay-emu/gba7tdmi/cpu"
	"github.com/dtolnay-emu/gba7tdmi/gbamem"
)

// execBlockTransfer implements LDM/STM across the four P/U addressing
// modes (spec.md §4.5). Registers transfer in ascending number order
// regardless of mode; only the starting address and the direction of
// travel change. WritePSR here is the S bit: force-user-bank transfer
// for STM/LDM-without-PC, or restore-CPSR-from-SPSR for LDM-with-PC —
// since SPSR is unmodelled, the latter is a no-op beyond the register
// loads themselves.
func execBlockTransfer(c *cpu.CPU, mem gbamem.Memory, d Decoded) bool {
	base := c.GetRegister(d.Rn)
	count := bits.OnesCount16(d.RegList)
	if count == 0 {
		return false
	}
	span := uint32(count) * 4

	var start uint32
	switch {
	case d.Up && d.Pre: // IB
		start = base + 4
	case d.Up && !d.Pre: // IA
		start = base
	case !d.Up && d.Pre: // DB
		start = base - span
	default: // DA
		start = base - span + 4
	}

	var newBase uint32
	if d.Up {
		newBase = base + span
	} else {
		newBase = base - span
	}

	addr := start
	rnInList := d.RegList&(1<<uint(d.Rn)) != 0
	pcLoaded := false
	for i := 0; i < 16; i++ {
		if d.RegList&(1<<uint(i)) == 0 {
			continue
		}
		if d.Load {
			value := mem.Read32(addr)
			c.SetRegister(i, value)
			if i == 15 {
				pcLoaded = true
			}
		} else {
			value := c.GetRegister(i)
			if i == 15 {
				value = c.PC + 12
			} else if i == d.Rn {
				value = base // STM stores the original Rn, not a partially-updated one
			}
			mem.Write32(addr, value)
		}
		addr += 4
	}

	if d.WriteBack && d.Rn != 15 {
		if d.Load && rnInList {
			// LDM with the base register in the list: the load above
			// already set Rn to the value from memory. Writeback must not
			// overwrite that with the computed address.
		} else {
			c.SetRegister(d.Rn, newBase)
		}
	}

	if d.WritePSR && d.Load && pcLoaded {
		// Exception-return idiom; SPSR is unmodelled so CPSR is left as-is
		// beyond the register loads already performed.
	}

	return d.Load && pcLoaded
}
