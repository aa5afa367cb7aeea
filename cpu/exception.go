package cpu

// Exception vectors (spec.md §4.7).
const (
	VectorReset          = 0x00
	VectorUndefined      = 0x04
	VectorSWI            = 0x08
	VectorPrefetchAbort  = 0x0C
	VectorDataAbort      = 0x10
	VectorIRQ            = 0x18
	VectorFIQ            = 0x1C
)

// Enter performs ARM exception entry: capture the return address,
// switch banks via SwitchMode, write LR, raise the I (and, for FIQ and
// Reset, F) disable bit, and set PC to the vector. returnPC is the
// address the caller computes as "current PC + 4" per spec.md's
// interpreter convention (the CPU's PC field already points at the
// instruction that trapped, unlike the GetRegister(15) pipeline view).
func (c *CPU) Enter(vector uint32, target Mode, returnPC uint32) {
	c.SwitchMode(target)
	c.SetLR(returnPC)
	c.CPSR.I = true
	if target == ModeFIQ || vector == VectorReset {
		c.CPSR.F = true
	}
	c.CPSR.T = false // exceptions always enter in ARM state
	c.PC = vector
}

// EnterReset drives the Reset vector, disabling both IRQ and FIQ.
func (c *CPU) EnterReset() {
	c.SwitchMode(ModeSVC)
	c.CPSR.I = true
	c.CPSR.F = true
	c.CPSR.T = false
	c.PC = VectorReset
}
