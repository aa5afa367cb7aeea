package diag

import (
	"fmt"
	"io"
	"strings"
)

// StackOperation classifies an SP move by direction.
type StackOperation string

const (
	StackGrow   StackOperation = "GROW"   // SP decreased (PUSH, STMDB, SUB SP)
	StackShrink StackOperation = "SHRINK" // SP increased (POP, LDMIA, ADD SP)
)

// StackTraceEntry is one recorded SP move.
type StackTraceEntry struct {
	Sequence  uint64
	PC        uint32
	Operation StackOperation
	OldSP     uint32
	NewSP     uint32
}

// StackTrace tracks SP movement and flags overflow/underflow against a
// configured region, adapted from the teacher's stack_trace.go with
// the push/pop-value bookkeeping dropped (this CPU exposes no
// single-register push/pop primitive outside Thumb's format 14 — block
// transfers already carry their own register list in the trace, so
// recording individual values here would just duplicate it).
type StackTrace struct {
	Enabled bool
	Writer  io.Writer

	StackBase uint32 // highest valid SP (bottom of the stack region)
	StackTop  uint32 // lowest valid SP (top of the stack region)

	entries    []StackTraceEntry
	maxEntries int
	currentSP  uint32
	minSP      uint32
	maxSP      uint32

	growCount      uint64
	shrinkCount    uint64
	overflowCount  uint64
	underflowCount uint64
}

// NewStackTrace creates a stack trace tracker bounded by [stackTop,
// stackBase].
func NewStackTrace(w io.Writer, stackBase, stackTop uint32) *StackTrace {
	return &StackTrace{
		Enabled:    true,
		Writer:     w,
		StackBase:  stackBase,
		StackTop:   stackTop,
		entries:    make([]StackTraceEntry, 0, 1000),
		maxEntries: 100000,
		currentSP:  stackBase,
		minSP:      stackBase,
		maxSP:      stackBase,
	}
}

// Start resets the tracker to begin observing from initialSP.
func (s *StackTrace) Start(initialSP uint32) {
	s.entries = s.entries[:0]
	s.currentSP, s.minSP, s.maxSP = initialSP, initialSP, initialSP
	s.growCount, s.shrinkCount, s.overflowCount, s.underflowCount = 0, 0, 0, 0
}

// RecordSP compares newSP against the last known SP and records a
// GROW/SHRINK entry if it moved, flagging overflow (below StackTop) or
// underflow (above StackBase).
func (s *StackTrace) RecordSP(sequence uint64, pc, newSP uint32) {
	if !s.Enabled || newSP == s.currentSP {
		return
	}

	op := StackShrink
	if newSP < s.currentSP {
		op = StackGrow
		s.growCount++
	} else {
		s.shrinkCount++
	}

	if s.maxEntries > 0 && len(s.entries) < s.maxEntries {
		s.entries = append(s.entries, StackTraceEntry{
			Sequence: sequence, PC: pc, Operation: op, OldSP: s.currentSP, NewSP: newSP,
		})
	}

	if newSP < s.minSP {
		s.minSP = newSP
	}
	if newSP > s.maxSP {
		s.maxSP = newSP
	}
	if newSP < s.StackTop {
		s.overflowCount++
	}
	if newSP > s.StackBase {
		s.underflowCount++
	}
	s.currentSP = newSP
}

// Overflowed reports whether any recorded SP value fell below StackTop.
func (s *StackTrace) Overflowed() bool { return s.overflowCount > 0 }

// Underflowed reports whether any recorded SP value rose above StackBase.
func (s *StackTrace) Underflowed() bool { return s.underflowCount > 0 }

// Entries returns all recorded SP moves.
func (s *StackTrace) Entries() []StackTraceEntry { return s.entries }

// Flush writes a human-readable report.
func (s *StackTrace) Flush() error {
	if s.Writer == nil {
		return nil
	}
	var b strings.Builder
	b.WriteString("Stack Trace Report\n==================\n\n")
	b.WriteString(fmt.Sprintf("Grows: %d  Shrinks: %d  Min SP: 0x%08X  Max SP: 0x%08X\n",
		s.growCount, s.shrinkCount, s.minSP, s.maxSP))
	b.WriteString(fmt.Sprintf("Overflow events: %d  Underflow events: %d\n", s.overflowCount, s.underflowCount))
	_, err := io.WriteString(s.Writer, b.String())
	return err
}
