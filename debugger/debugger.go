// Package debugger implements an interactive gdb-style front end over
// a core.VM: breakpoints, watchpoints, single-step/continue, and
// register/memory/stack inspection, driven either from a line-oriented
// CLI or the tcell/tview TUI. Adapted from the teacher's debugger
// package with the assembly-source REPL (watch-expression language,
// source-line breakpoints, step-into/step-over call-depth tracking)
// dropped — a loaded GBA ROM carries no source map, so stepping and
// breakpoints operate purely on address and register/memory state.
package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dtolnay-emu/gba7tdmi/core"
	"github.com/dtolnay-emu/gba7tdmi/diag"
)

// StepMode selects what ShouldBreak is watching for between fetches.
type StepMode int

const (
	StepNone   StepMode = iota
	StepSingle          // stop after exactly one instruction
	StepOver            // stop once PC returns to the instruction after a BL
)

// Debugger holds interactive debugging state layered on top of a
// core.VM: breakpoint/watchpoint sets, command history, and a symbol
// table for address-to-name resolution.
type Debugger struct {
	VM *core.VM

	Breakpoints *BreakpointManager
	Watchpoints *WatchpointManager
	History     *CommandHistory
	Symbols     *diag.SymbolResolver

	Running    bool
	StepMode   StepMode
	StepOverPC uint32

	LastCommand string
	Output      strings.Builder
}

// NewDebugger creates a debugger driving the given VM.
func NewDebugger(vm *core.VM) *Debugger {
	return &Debugger{
		VM:          vm,
		Breakpoints: NewBreakpointManager(),
		Watchpoints: NewWatchpointManager(),
		History:     NewCommandHistory(),
		Symbols:     diag.NewSymbolResolver(nil),
		StepMode:    StepNone,
	}
}

// LoadSymbols attaches a symbol table (label -> address) for
// break/watch-by-name and address annotation in displays.
func (d *Debugger) LoadSymbols(symbols map[string]uint32) {
	d.Symbols = diag.NewSymbolResolver(symbols)
}

// ResolveAddress resolves a symbol name or parses a numeric (decimal
// or 0x-prefixed hex) address.
func (d *Debugger) ResolveAddress(addrStr string) (uint32, error) {
	if d.Symbols != nil {
		if addr, ok := d.Symbols.LookupSymbol(addrStr); ok {
			return addr, nil
		}
	}

	var addr uint32
	if strings.HasPrefix(addrStr, "0x") || strings.HasPrefix(addrStr, "0X") {
		if _, err := fmt.Sscanf(addrStr, "0x%x", &addr); err != nil {
			return 0, fmt.Errorf("invalid address: %s", addrStr)
		}
		return addr, nil
	}
	if _, err := fmt.Sscanf(addrStr, "%d", &addr); err != nil {
		return 0, fmt.Errorf("invalid address: %s", addrStr)
	}
	return addr, nil
}

// ExecuteCommand parses and dispatches one command line.
func (d *Debugger) ExecuteCommand(cmdLine string) error {
	cmdLine = strings.TrimSpace(cmdLine)
	if cmdLine == "" {
		cmdLine = d.LastCommand
	}
	if cmdLine != "" {
		d.History.Add(cmdLine)
		d.LastCommand = cmdLine
	}

	parts := strings.Fields(cmdLine)
	if len(parts) == 0 {
		return nil
	}
	return d.handleCommand(strings.ToLower(parts[0]), parts[1:])
}

func (d *Debugger) handleCommand(cmd string, args []string) error {
	switch cmd {
	case "run", "r":
		return d.cmdRun(args)
	case "continue", "c":
		return d.cmdContinue(args)
	case "step", "s", "si":
		return d.cmdStep(args)
	case "next", "n":
		return d.cmdNext(args)

	case "break", "b":
		return d.cmdBreak(args)
	case "tbreak", "tb":
		return d.cmdTBreak(args)
	case "delete", "d":
		return d.cmdDelete(args)
	case "enable":
		return d.cmdEnable(args)
	case "disable":
		return d.cmdDisable(args)

	case "watch", "w":
		return d.cmdWatch(args)

	case "print", "p":
		return d.cmdPrint(args)
	case "x":
		return d.cmdExamine(args)
	case "info", "i":
		return d.cmdInfo(args)

	case "set":
		return d.cmdSet(args)

	case "reset":
		return d.cmdReset(args)

	case "help", "h", "?":
		return d.cmdHelp(args)

	default:
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmd)
	}
}

// ShouldBreak reports whether execution should pause at the current
// PC, checking step mode, breakpoints, then watchpoints in that order.
func (d *Debugger) ShouldBreak() (bool, string) {
	pc := d.VM.CPU.PC

	switch d.StepMode {
	case StepSingle:
		d.StepMode = StepNone
		return true, "single step"
	case StepOver:
		if pc == d.StepOverPC {
			d.StepMode = StepNone
			return true, "step over complete"
		}
	}

	if bp := d.Breakpoints.GetBreakpoint(pc); bp != nil && bp.Enabled {
		hit := d.Breakpoints.ProcessHit(pc)
		return true, fmt.Sprintf("breakpoint %d", hit.ID)
	}

	if wp, changed := d.Watchpoints.CheckWatchpoints(d.VM); wp != nil && changed {
		return true, fmt.Sprintf("watchpoint %d: %s", wp.ID, wp.Expression)
	}

	return false, ""
}

// GetOutput returns and clears the accumulated output buffer.
func (d *Debugger) GetOutput() string {
	out := d.Output.String()
	d.Output.Reset()
	return out
}

func (d *Debugger) Printf(format string, args ...interface{}) { fmt.Fprintf(&d.Output, format, args...) }
func (d *Debugger) Println(args ...interface{})               { fmt.Fprintln(&d.Output, args...) }

// SetStepOver arms step-over: if the instruction at PC is a BL (ARM)
// or BL-first-half (Thumb), stop when PC returns to the instruction
// after it; otherwise this degrades to a single step.
func (d *Debugger) SetStepOver() {
	pc := d.VM.CPU.PC
	if d.VM.CPU.CPSR.T {
		instr := d.VM.Memory.Read16(pc)
		isBLHalf := instr&0xF800 == 0xF000
		if isBLHalf {
			d.StepOverPC = pc + 4
			d.StepMode = StepOver
			d.Running = true
			return
		}
	} else {
		word := d.VM.Memory.Read32(pc)
		isBL := word&0x0F000000 == 0x0B000000
		if isBL {
			d.StepOverPC = pc + 4
			d.StepMode = StepOver
			d.Running = true
			return
		}
	}
	d.StepMode = StepSingle
	d.Running = true
}

// resolveOperand parses a register name, bracketed memory reference
// ([addr] or [label]), or a bare address/symbol — the reduced
// expression grammar left after dropping the teacher's full
// arithmetic expression evaluator.
func (d *Debugger) resolveOperand(expr string) (value uint32, err error) {
	expr = strings.ToLower(strings.TrimSpace(expr))

	if reg, ok := registerNumber(expr); ok {
		return d.VM.CPU.GetRegister(reg), nil
	}

	if strings.HasPrefix(expr, "[") && strings.HasSuffix(expr, "]") {
		addrStr := strings.TrimSuffix(strings.TrimPrefix(expr, "["), "]")
		addr, err := d.ResolveAddress(addrStr)
		if err != nil {
			return 0, err
		}
		return d.VM.Memory.Read32(addr), nil
	}

	addr, err := d.ResolveAddress(expr)
	if err != nil {
		return 0, fmt.Errorf("invalid expression: %s", expr)
	}
	return addr, nil
}

// registerNumber maps a register name (r0-r15, sp, lr, pc) to its
// index.
func registerNumber(expr string) (int, bool) {
	switch expr {
	case "sp", "r13":
		return 13, true
	case "lr", "r14":
		return 14, true
	case "pc", "r15":
		return 15, true
	}
	if strings.HasPrefix(expr, "r") && len(expr) >= 2 {
		if n, err := strconv.Atoi(expr[1:]); err == nil && n >= 0 && n <= 15 {
			return n, true
		}
	}
	return 0, false
}
