package diag

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dtolnay-emu/gba7tdmi/cpu"
)

// RegisterAccessEntry is one recorded register write.
type RegisterAccessEntry struct {
	Sequence uint64
	PC       uint32
	Register string
	Value    uint32
	OldValue uint32
}

// RegisterStats aggregates write activity for a single register.
type RegisterStats struct {
	RegisterName string
	WriteCount   uint64
	FirstWrite   uint64
	LastWrite    uint64
	LastValue    uint32
	UniqueValues uint64

	valuesSeen map[uint32]bool
}

func newRegisterStats(name string) *RegisterStats {
	return &RegisterStats{RegisterName: name, valuesSeen: make(map[uint32]bool)}
}

func (r *RegisterStats) recordWrite(sequence uint64, value uint32) {
	r.WriteCount++
	if r.FirstWrite == 0 {
		r.FirstWrite = sequence
	}
	r.LastWrite = sequence
	r.LastValue = value
	if !r.valuesSeen[value] {
		r.valuesSeen[value] = true
		r.UniqueValues++
	}
}

var registerNames = [16]string{
	"R0", "R1", "R2", "R3", "R4", "R5", "R6", "R7",
	"R8", "R9", "R10", "R11", "R12", "SP", "LR", "PC",
}

// RegisterTrace tracks write activity across R0-R15, adapted from the
// teacher's register_trace.go but collapsed to writes only (GBA ROMs
// read registers far more than this trace would ever usefully report;
// the teacher's own read-tracking was mainly useful for flagging
// uninitialized-register reads in hand-assembled test programs, a
// concern this domain's loaded ROM images don't share).
type RegisterTrace struct {
	Enabled bool
	Writer  io.Writer

	entries       []RegisterAccessEntry
	maxEntries    int
	registerStats map[string]*RegisterStats
	totalWrites   uint64

	symbols *SymbolResolver
}

// NewRegisterTrace creates a register trace tracker.
func NewRegisterTrace(w io.Writer) *RegisterTrace {
	return &RegisterTrace{
		Enabled:       true,
		Writer:        w,
		entries:       make([]RegisterAccessEntry, 0, 1000),
		maxEntries:    100000,
		registerStats: make(map[string]*RegisterStats),
	}
}

// LoadSymbols attaches a symbol table for PC annotation.
func (r *RegisterTrace) LoadSymbols(symbols map[string]uint32) {
	r.symbols = NewSymbolResolver(symbols)
}

// Start resets the tracker.
func (r *RegisterTrace) Start() {
	r.entries = r.entries[:0]
	r.registerStats = make(map[string]*RegisterStats)
	r.totalWrites = 0
}

// Snapshot captures the 16 registers before an instruction executes,
// for diffing against the post-execution state in RecordChanges.
func Snapshot(c *cpu.CPU) [16]uint32 {
	var regs [16]uint32
	copy(regs[:15], c.R[:15])
	regs[15] = c.PC
	return regs
}

// RecordChanges compares before against the CPU's current register
// file and records every register that differs.
func (r *RegisterTrace) RecordChanges(sequence uint64, pc uint32, before [16]uint32, c *cpu.CPU) {
	if !r.Enabled {
		return
	}
	after := Snapshot(c)
	for i := 0; i < 16; i++ {
		if before[i] == after[i] {
			continue
		}
		name := registerNames[i]
		if r.maxEntries > 0 && len(r.entries) < r.maxEntries {
			r.entries = append(r.entries, RegisterAccessEntry{
				Sequence: sequence, PC: pc, Register: name,
				Value: after[i], OldValue: before[i],
			})
		}
		stats, ok := r.registerStats[name]
		if !ok {
			stats = newRegisterStats(name)
			r.registerStats[name] = stats
		}
		stats.recordWrite(sequence, after[i])
		r.totalWrites++
	}
}

// Entries returns all recorded register writes.
func (r *RegisterTrace) Entries() []RegisterAccessEntry { return r.entries }

// Stats returns per-register write statistics sorted by register index.
func (r *RegisterTrace) Stats() []*RegisterStats {
	out := make([]*RegisterStats, 0, len(r.registerStats))
	for _, s := range r.registerStats {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return indexOfRegister(out[i].RegisterName) < indexOfRegister(out[j].RegisterName)
	})
	return out
}

func indexOfRegister(name string) int {
	for i, n := range registerNames {
		if n == name {
			return i
		}
	}
	return len(registerNames)
}

// Flush writes a human-readable report.
func (r *RegisterTrace) Flush() error {
	if r.Writer == nil {
		return nil
	}
	var b strings.Builder
	b.WriteString("Register Write Trace Report\n============================\n\n")
	b.WriteString(fmt.Sprintf("Total Writes: %d\n\n", r.totalWrites))
	for _, s := range r.Stats() {
		b.WriteString(fmt.Sprintf("%-4s writes=%-6d unique=%-6d last=0x%08X\n",
			s.RegisterName, s.WriteCount, s.UniqueValues, s.LastValue))
	}
	_, err := io.WriteString(r.Writer, b.String())
	return err
}

// ExportJSON writes the trace as JSON.
func (r *RegisterTrace) ExportJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"total_writes": r.totalWrites,
		"entries":      r.entries,
	})
}
