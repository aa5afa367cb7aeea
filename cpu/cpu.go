// Package cpu models the ARM7TDMI register file: the sixteen general
// registers, CPSR, and the banked SP/LR storage for each privileged mode.
package cpu

// Register aliases for convenience.
const (
	R0  = 0
	R1  = 1
	R2  = 2
	R3  = 3
	R4  = 4
	R5  = 5
	R6  = 6
	R7  = 7
	R8  = 8
	R9  = 9
	R10 = 10
	R11 = 11
	R12 = 12
	SP  = 13 // Stack Pointer
	LR  = 14 // Link Register
	PC  = 15 // Program Counter
)

// Mode is the processor mode held in CPSR[4:0].
type Mode uint32

const (
	ModeUSR Mode = 0x10
	ModeFIQ Mode = 0x11
	ModeIRQ Mode = 0x12
	ModeSVC Mode = 0x13
	ModeABT Mode = 0x17
	ModeUND Mode = 0x1B
	ModeSYS Mode = 0x1F
)

// String names a mode the way disassembly listings do.
func (m Mode) String() string {
	switch m {
	case ModeUSR:
		return "USR"
	case ModeFIQ:
		return "FIQ"
	case ModeIRQ:
		return "IRQ"
	case ModeSVC:
		return "SVC"
	case ModeABT:
		return "ABT"
	case ModeUND:
		return "UND"
	case ModeSYS:
		return "SYS"
	default:
		return "???"
	}
}

// Valid reports whether m is one of the seven ARM7TDMI modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeUSR, ModeFIQ, ModeIRQ, ModeSVC, ModeABT, ModeUND, ModeSYS:
		return true
	default:
		return false
	}
}

// bankedRegs holds the SP/LR pair banked per privileged mode.
type bankedRegs struct {
	sp, lr uint32
}

// bankSlot maps a mode to its banked-register slot. USR and SYS share
// slot 0, matching the "User/System bank" rule in the data model.
func bankSlot(m Mode) int {
	switch m {
	case ModeFIQ:
		return 1
	case ModeIRQ:
		return 2
	case ModeSVC:
		return 3
	case ModeABT:
		return 4
	case ModeUND:
		return 5
	default: // ModeUSR, ModeSYS
		return 0
	}
}

// CPU holds the live register file. R[0..14] are the currently banked
// general registers (R13/R14 reflect whichever mode is live); PC is kept
// separate so that reads via GetRegister can apply the ARM pipeline
// offset without mutating storage.
type CPU struct {
	R    [15]uint32
	PC   uint32
	CPSR CPSR

	banks [6]bankedRegs

	// Cycles is the running total cycle count, owned by the outer driver
	// but convenient to keep alongside the register file for tracing.
	Cycles uint64
}

// New creates a CPU reset to SVC mode with all registers zero.
func New() *CPU {
	c := &CPU{}
	c.CPSR.Mode = ModeSVC // matches real hardware reset state
	return c
}

// Reset zeroes all registers and flags and returns to SVC mode (the
// architectural reset mode).
func (c *CPU) Reset() {
	for i := range c.R {
		c.R[i] = 0
	}
	c.PC = 0
	c.CPSR = CPSR{Mode: ModeSVC}
	c.banks = [6]bankedRegs{}
	c.Cycles = 0
}

// GetSP returns the live stack pointer.
func (c *CPU) GetSP() uint32 { return c.R[SP] }

// SetSP sets the live stack pointer.
func (c *CPU) SetSP(v uint32) { c.R[SP] = v }

// GetLR returns the live link register.
func (c *CPU) GetLR() uint32 { return c.R[LR] }

// SetLR sets the live link register.
func (c *CPU) SetLR(v uint32) { c.R[LR] = v }

// GetRegister returns the value of R0-R15. Reading R15 yields PC+8,
// simulating the ARM pipeline fetch/decode stages being two instructions
// ahead of the one executing. Thumb handlers that need PC+4 instead
// compute it themselves from PC directly rather than through this call.
func (c *CPU) GetRegister(reg int) uint32 {
	if reg == PC {
		return c.PC + 8
	}
	if reg < 0 || reg > LR {
		return 0
	}
	return c.R[reg]
}

// SetRegister writes R0-R15 (R15 writes PC directly, with no pipeline
// offset applied and no change to CPSR.T — interworking callers such
// as the BX handlers set CPSR.T themselves before calling Branch).
func (c *CPU) SetRegister(reg int, v uint32) {
	if reg == PC {
		c.PC = v
		return
	}
	if reg >= 0 && reg <= LR {
		c.R[reg] = v
	}
}

// IncrementPC advances PC by one ARM instruction width.
func (c *CPU) IncrementPC() { c.PC += 4 }

// Branch sets PC directly (B, unconditional forms of data processing).
func (c *CPU) Branch(addr uint32) { c.PC = addr }

// BranchWithLink saves the ARM return address in LR and branches.
func (c *CPU) BranchWithLink(addr uint32) {
	c.SetLR(c.PC + 4)
	c.PC = addr
}

// IncrementCycles adds to the running cycle total.
func (c *CPU) IncrementCycles(n uint64) { c.Cycles += n }

// SwitchMode is the single place SP/LR banking and the CPSR mode field
// change together, preserving data-model invariant (ii): the outgoing
// mode's SP/LR are saved to its bank and the incoming mode's are loaded
// before CPSR.Mode updates. Every mode transition — exception entry,
// LDM-restores-CPSR, and MSR writes to the mode field — must go through
// this function rather than assigning CPSR.Mode directly.
func (c *CPU) SwitchMode(next Mode) {
	if !next.Valid() {
		return
	}
	cur := c.CPSR.Mode
	if cur == next {
		return
	}
	c.banks[bankSlot(cur)] = bankedRegs{sp: c.R[SP], lr: c.R[LR]}
	b := c.banks[bankSlot(next)]
	c.R[SP] = b.sp
	c.R[LR] = b.lr
	c.CPSR.Mode = next
}

// BankedSP returns the SP that mode m holds, without disturbing the
// live register file. Used by diagnostics and tests; current mode reads
// straight through to R[SP].
func (c *CPU) BankedSP(m Mode) uint32 {
	if m == c.CPSR.Mode {
		return c.R[SP]
	}
	return c.banks[bankSlot(m)].sp
}

// BankedLR mirrors BankedSP for the link register.
func (c *CPU) BankedLR(m Mode) uint32 {
	if m == c.CPSR.Mode {
		return c.R[LR]
	}
	return c.banks[bankSlot(m)].lr
}
