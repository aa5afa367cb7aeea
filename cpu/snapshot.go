package cpu

// Snapshot captures register file state for change detection, used by
// the diag package's tracing facilities.
type Snapshot struct {
	R    [16]uint32
	CPSR CPSR
}

// Capture records the current register file.
func (s *Snapshot) Capture(c *CPU) {
	copy(s.R[:15], c.R[:])
	s.R[15] = c.PC
	s.CPSR = c.CPSR
}

// Changed returns the indices (0-15) of registers that differ between
// this snapshot and other.
func (s *Snapshot) Changed(other *Snapshot) []int {
	var changed []int
	for i := 0; i < 16; i++ {
		if s.R[i] != other.R[i] {
			changed = append(changed, i)
		}
	}
	return changed
}

// CPSRChanged reports whether flags, control bits, or mode differ.
func (s *Snapshot) CPSRChanged(other *Snapshot) bool {
	return s.CPSR != other.CPSR
}
