package diag

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dtolnay-emu/gba7tdmi/cpu"
)

// FlagChangeEntry is one recorded CPSR transition.
type FlagChangeEntry struct {
	Sequence    uint64
	PC          uint32
	Instruction string
	OldFlags    cpu.CPSR
	NewFlags    cpu.CPSR
	Changed     string // e.g. "NZ" or "ZMODE" (names joined without a separator)
}

// FlagTrace tracks CPSR flag and mode changes across a run. Extends
// the teacher's flag_trace.go with mode-switch detection, since this
// CPU (unlike the teacher's ARM2) banks registers across seven modes
// and a silent mode change is exactly the kind of thing worth tracing.
type FlagTrace struct {
	Enabled bool
	Writer  io.Writer

	entries    []FlagChangeEntry
	maxEntries int
	lastFlags  cpu.CPSR

	totalChanges uint64
	nChanges     uint64
	zChanges     uint64
	cChanges     uint64
	vChanges     uint64
	modeChanges  uint64

	symbols *SymbolResolver
}

// NewFlagTrace creates a flag trace tracker writing to w (nil to
// disable report output while still collecting entries/statistics).
func NewFlagTrace(w io.Writer) *FlagTrace {
	return &FlagTrace{
		Enabled:    true,
		Writer:     w,
		entries:    make([]FlagChangeEntry, 0, 1000),
		maxEntries: 100000,
	}
}

// LoadSymbols attaches a symbol table for PC annotation in reports.
func (f *FlagTrace) LoadSymbols(symbols map[string]uint32) {
	f.symbols = NewSymbolResolver(symbols)
}

// Start resets the tracker to begin observing from initialFlags.
func (f *FlagTrace) Start(initialFlags cpu.CPSR) {
	f.entries = f.entries[:0]
	f.lastFlags = initialFlags
	f.totalChanges, f.nChanges, f.zChanges, f.cChanges, f.vChanges, f.modeChanges = 0, 0, 0, 0, 0, 0
}

// RecordFlags records newFlags if it differs from the last recorded
// state, associating it with the instruction that produced it.
func (f *FlagTrace) RecordFlags(sequence uint64, pc uint32, instruction string, newFlags cpu.CPSR) {
	if !f.Enabled {
		return
	}

	changed := f.detectChanges(f.lastFlags, newFlags)
	if changed == "" {
		return
	}
	if f.maxEntries > 0 && len(f.entries) >= f.maxEntries {
		return
	}

	f.entries = append(f.entries, FlagChangeEntry{
		Sequence: sequence, PC: pc, Instruction: instruction,
		OldFlags: f.lastFlags, NewFlags: newFlags, Changed: changed,
	})
	f.updateStatistics(f.lastFlags, newFlags)
	f.lastFlags = newFlags
	f.totalChanges++
}

func (f *FlagTrace) detectChanges(old, new cpu.CPSR) string {
	var changes []string
	if old.N != new.N {
		changes = append(changes, "N")
	}
	if old.Z != new.Z {
		changes = append(changes, "Z")
	}
	if old.C != new.C {
		changes = append(changes, "C")
	}
	if old.V != new.V {
		changes = append(changes, "V")
	}
	if old.Mode != new.Mode {
		changes = append(changes, "MODE")
	}
	return strings.Join(changes, "")
}

func (f *FlagTrace) updateStatistics(old, new cpu.CPSR) {
	if old.N != new.N {
		f.nChanges++
	}
	if old.Z != new.Z {
		f.zChanges++
	}
	if old.C != new.C {
		f.cChanges++
	}
	if old.V != new.V {
		f.vChanges++
	}
	if old.Mode != new.Mode {
		f.modeChanges++
	}
}

// Entries returns all recorded flag-change events.
func (f *FlagTrace) Entries() []FlagChangeEntry { return f.entries }

// Flush writes a human-readable report to Writer.
func (f *FlagTrace) Flush() error {
	if f.Writer == nil {
		return nil
	}

	var header strings.Builder
	header.WriteString("Flag Change Trace Report\n========================\n\n")
	header.WriteString(fmt.Sprintf("Total Changes:    %d\n", f.totalChanges))
	header.WriteString(fmt.Sprintf("N flag changes:   %d\n", f.nChanges))
	header.WriteString(fmt.Sprintf("Z flag changes:   %d\n", f.zChanges))
	header.WriteString(fmt.Sprintf("C flag changes:   %d\n", f.cChanges))
	header.WriteString(fmt.Sprintf("V flag changes:   %d\n", f.vChanges))
	header.WriteString(fmt.Sprintf("Mode changes:     %d\n\n", f.modeChanges))
	if _, err := io.WriteString(f.Writer, header.String()); err != nil {
		return err
	}

	for _, entry := range f.entries {
		if _, err := io.WriteString(f.Writer, f.formatEntry(entry)); err != nil {
			return err
		}
	}
	return nil
}

func (f *FlagTrace) formatEntry(entry FlagChangeEntry) string {
	pcStr := fmt.Sprintf("0x%08X", entry.PC)
	if f.symbols != nil && f.symbols.HasSymbols() {
		pcStr = f.symbols.FormatAddressCompact(entry.PC)
	}
	return fmt.Sprintf("[%06d] %-20s: %-30s  %s -> %s  (changed: %s)\n",
		entry.Sequence, pcStr, entry.Instruction,
		formatFlags(entry.OldFlags), formatFlags(entry.NewFlags), entry.Changed)
}

func formatFlags(flags cpu.CPSR) string {
	result := make([]byte, 5)
	set := func(i int, b bool, ch byte) {
		if b {
			result[i] = ch
		} else {
			result[i] = '-'
		}
	}
	set(0, flags.N, 'N')
	set(1, flags.Z, 'Z')
	set(2, flags.C, 'C')
	set(3, flags.V, 'V')
	result[4] = ' '
	return string(result) + flags.Mode.String()
}

// ExportJSON writes the trace as JSON.
func (f *FlagTrace) ExportJSON(w io.Writer) error {
	data := map[string]interface{}{
		"total_changes": f.totalChanges,
		"n_changes":     f.nChanges,
		"z_changes":     f.zChanges,
		"c_changes":     f.cChanges,
		"v_changes":     f.vChanges,
		"mode_changes":  f.modeChanges,
		"entries":       f.entries,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
