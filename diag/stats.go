package diag

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// FormStats tracks how often each decoded instruction Form executed
// and how many cycles it consumed, keyed by a string label the caller
// supplies (typically an arm.Form name such as "DataProcessing" or a
// Thumb format name) since
// this package doesn't import arm/thumb to stay a leaf dependency.
type FormStats struct {
	Label  string
	Count  uint64
	Cycles uint64
}

// HotPathEntry is one frequently executed address.
type HotPathEntry struct {
	Address uint32
	Count   uint64
}

// Statistics tracks aggregate execution metrics across a run, adapted
// from the teacher's PerformanceStatistics with function-call tracking
// dropped (no call-graph concept without a symbol-annotated disassembly
// feed) and instruction-mnemonic keys replaced by decoded Form labels.
type Statistics struct {
	Enabled bool

	TotalInstructions  uint64
	TotalCycles        uint64
	ExecutionTime      time.Duration
	InstructionsPerSec float64

	FormCounts map[string]uint64
	FormCycles map[string]uint64

	BranchCount      uint64
	BranchTakenCount uint64

	HotPath map[uint32]uint64

	MemoryReads  uint64
	MemoryWrites uint64

	collectHotPath bool
	startTime      time.Time
}

// NewStatistics creates a statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{
		Enabled:        true,
		FormCounts:     make(map[string]uint64),
		FormCycles:     make(map[string]uint64),
		HotPath:        make(map[uint32]uint64),
		collectHotPath: true,
	}
}

// Start resets the tracker and marks the wall-clock start time.
func (s *Statistics) Start(now time.Time) {
	s.startTime = now
	s.TotalInstructions, s.TotalCycles = 0, 0
	s.FormCounts = make(map[string]uint64)
	s.FormCycles = make(map[string]uint64)
	s.BranchCount, s.BranchTakenCount = 0, 0
	s.HotPath = make(map[uint32]uint64)
	s.MemoryReads, s.MemoryWrites = 0, 0
}

// RecordInstruction records one executed instruction.
func (s *Statistics) RecordInstruction(formLabel string, address uint32, cycles uint64) {
	if !s.Enabled {
		return
	}
	s.TotalInstructions++
	s.TotalCycles += cycles
	s.FormCounts[formLabel]++
	s.FormCycles[formLabel] += cycles
	if s.collectHotPath {
		s.HotPath[address]++
	}
}

// RecordBranch records a branch-family instruction's taken/not-taken outcome.
func (s *Statistics) RecordBranch(taken bool) {
	if !s.Enabled {
		return
	}
	s.BranchCount++
	if taken {
		s.BranchTakenCount++
	}
}

// RecordMemoryAccess records a memory read or write.
func (s *Statistics) RecordMemoryAccess(isWrite bool) {
	if !s.Enabled {
		return
	}
	if isWrite {
		s.MemoryWrites++
	} else {
		s.MemoryReads++
	}
}

// Finish finalizes ExecutionTime/InstructionsPerSec given the current
// wall-clock time (passed in, not read, so this package never calls
// time.Now() itself and stays trivially testable with fixed inputs).
func (s *Statistics) Finish(now time.Time) {
	s.ExecutionTime = now.Sub(s.startTime)
	if s.ExecutionTime > 0 {
		s.InstructionsPerSec = float64(s.TotalInstructions) / s.ExecutionTime.Seconds()
	}
}

// TopHotPath returns the n most frequently executed addresses, most
// frequent first.
func (s *Statistics) TopHotPath(n int) []HotPathEntry {
	entries := make([]HotPathEntry, 0, len(s.HotPath))
	for addr, count := range s.HotPath {
		entries = append(entries, HotPathEntry{Address: addr, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Address < entries[j].Address
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// FormBreakdown returns per-form counts and cycle totals, sorted by
// descending execution count.
func (s *Statistics) FormBreakdown() []FormStats {
	out := make([]FormStats, 0, len(s.FormCounts))
	for label, count := range s.FormCounts {
		out = append(out, FormStats{Label: label, Count: count, Cycles: s.FormCycles[label]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// Summary renders a short human-readable report.
func (s *Statistics) Summary() string {
	var b strings.Builder
	b.WriteString("Execution Statistics\n=====================\n\n")
	b.WriteString(fmt.Sprintf("Instructions: %d\nCycles: %d\n", s.TotalInstructions, s.TotalCycles))
	b.WriteString(fmt.Sprintf("Branches: %d (taken %d)\n", s.BranchCount, s.BranchTakenCount))
	b.WriteString(fmt.Sprintf("Memory: %d reads, %d writes\n\n", s.MemoryReads, s.MemoryWrites))
	for _, fs := range s.FormBreakdown() {
		b.WriteString(fmt.Sprintf("  %-20s count=%-8d cycles=%d\n", fs.Label, fs.Count, fs.Cycles))
	}
	return b.String()
}

// ExportJSON writes the full statistics snapshot as JSON.
func (s *Statistics) ExportJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"total_instructions":   s.TotalInstructions,
		"total_cycles":         s.TotalCycles,
		"instructions_per_sec": s.InstructionsPerSec,
		"form_counts":          s.FormCounts,
		"form_cycles":          s.FormCycles,
		"branch_count":         s.BranchCount,
		"branch_taken_count":   s.BranchTakenCount,
		"memory_reads":         s.MemoryReads,
		"memory_writes":        s.MemoryWrites,
		"hot_path":             s.HotPath,
	})
}
