// Package core implements the cooperative run loop (C1-C10 wired
// together): fetch-dispatch on CPSR.T, cache-then-decode-then-execute
// for ARM, decode-then-execute for Thumb, cycle accounting, and
// between-instruction interrupt servicing. Grounded on the teacher's
// vm.VM.Step/Run (vm/executor.go), generalized from its single ARM2
// instruction set to ARM/Thumb dispatch and a real interrupt controller.
package core

import (
	"fmt"

	"github.com/dtolnay-emu/gba7tdmi/arm"
	"github.com/dtolnay-emu/gba7tdmi/cpu"
	"github.com/dtolnay-emu/gba7tdmi/events"
	"github.com/dtolnay-emu/gba7tdmi/gbamem"
	"github.com/dtolnay-emu/gba7tdmi/irq"
	"github.com/dtolnay-emu/gba7tdmi/thumb"
	"github.com/dtolnay-emu/gba7tdmi/timing"
)

// State mirrors the teacher's ExecutionState enum (vm/executor.go).
// Interrupt service and undefined-instruction traps are exception
// entries inside a running VM and have no State of their own.
type State int

const (
	StateRunning State = iota
	StateHalted
	StateBreakpoint
	StateError
)

// StopReason explains why Run returned control to the caller.
type StopReason int

const (
	StopBudgetExhausted StopReason = iota
	StopBreakpoint
	StopHalted
	StopError
)

// VM wires the CPU, memory, timing, interrupt controller, and ARM
// decode cache into one cooperative stepper. Unlike the teacher's VM,
// it owns no assembly-source concept (no symbol table, no
// instruction log) — that ambient layer lives in diag instead.
type VM struct {
	CPU     *cpu.CPU
	Memory  gbamem.Memory
	Timing  *timing.State
	IRQ     *irq.Controller
	Cache   *arm.Cache
	State   State
	LastErr error

	// Breakpoints is consulted before each fetch; Step halts with
	// StateBreakpoint when the current PC is a member, mirroring the
	// teacher's debugger/breakpoints.go hook point.
	Breakpoints map[uint32]bool

	// OnException, if set, is called whenever Enter fires (exception
	// entry or interrupt service) — core.VM's analogue of the
	// teacher's trace hooks, consumed by diag.
	OnException func(vector uint32, mode cpu.Mode)

	// Events, if set, receives a published Event on every exception
	// entry and every breakpoint hit, for observers that aren't woven
	// into the run loop itself (a debugger UI, a websocket client).
	Events *events.Hub
}

// New builds a VM ready to run from whatever PC/CPSR the caller sets on
// the CPU beforehand (mirroring the teacher's NewVM + SetEntryPoint
// split rather than bundling reset logic into this constructor).
func New(c *cpu.CPU, mem gbamem.Memory) *VM {
	return &VM{
		CPU:         c,
		Memory:      mem,
		Timing:      timing.New(),
		IRQ:         irq.New(),
		Cache:       arm.NewCache(),
		State:       StateHalted,
		Breakpoints: make(map[uint32]bool),
	}
}

// SetBreakpoint and ClearBreakpoint manage the breakpoint set the step
// loop consults before each fetch.
func (vm *VM) SetBreakpoint(addr uint32)   { vm.Breakpoints[addr] = true }
func (vm *VM) ClearBreakpoint(addr uint32) { delete(vm.Breakpoints, addr) }

// serviceInterrupts implements spec.md §6's interrupt description: a
// pending IRQ/FIQ, unmasked by CPSR.F or CPSR.I, drives exception entry
// for the corresponding vector before the next instruction fetches.
// FIQ takes priority over IRQ when both are pending and unmasked,
// matching ARM7TDMI's fixed priority scheme.
func (vm *VM) serviceInterrupts() bool {
	if !vm.CPU.CPSR.F && vm.IRQ.PendingFIQ() {
		vm.IRQ.AcknowledgeFIQ()
		pc := vm.CPU.PC
		vm.CPU.Enter(cpu.VectorFIQ, cpu.ModeFIQ, pc+4)
		vm.fireException(cpu.VectorFIQ, cpu.ModeFIQ, pc)
		return true
	}
	if !vm.CPU.CPSR.I && vm.IRQ.PendingIRQ() {
		vm.IRQ.AcknowledgeIRQ()
		pc := vm.CPU.PC
		vm.CPU.Enter(cpu.VectorIRQ, cpu.ModeIRQ, pc+4)
		vm.fireException(cpu.VectorIRQ, cpu.ModeIRQ, pc)
		return true
	}
	return false
}

// fireException notifies both the OnException hook and the Events hub,
// the two independent observation channels a caller may wire up.
func (vm *VM) fireException(vector uint32, mode cpu.Mode, pc uint32) {
	if vm.OnException != nil {
		vm.OnException(vector, mode)
	}
	if vm.Events != nil {
		vm.Events.Publish(events.Event{
			Type: events.TypeException,
			PC:   pc,
			Data: map[string]interface{}{"vector": vector, "mode": mode.String()},
		})
	}
}

// Step executes exactly one instruction (ARM or Thumb, selected by
// CPSR.T), services one pending interrupt first if unmasked, and
// returns the number of cycles it consumed. Mirrors the teacher's
// vm.VM.Step in shape: check error state, service an interrupt, check
// breakpoint, fetch, decode, evaluate condition, execute, account
// cycles. A halted VM is not refused; Step runs the next instruction.
func (vm *VM) Step() (uint32, error) {
	if vm.State == StateError {
		return 0, fmt.Errorf("core: VM is in error state: %w", vm.LastErr)
	}

	if vm.serviceInterrupts() {
		return 2, nil // exception entry costs a fixed small overhead; not separately specified
	}

	if vm.Breakpoints[vm.CPU.PC] {
		vm.State = StateBreakpoint
		if vm.Events != nil {
			vm.Events.Publish(events.Event{Type: events.TypeBreakpoint, PC: vm.CPU.PC})
		}
		return 0, nil
	}

	var cycles uint32
	if vm.CPU.CPSR.T {
		cycles = vm.stepThumb()
	} else {
		cycles = vm.stepARM()
	}

	vm.CPU.IncrementCycles(uint64(cycles))
	vm.Timing.Advance(cycles)
	return cycles, nil
}

func (vm *VM) stepARM() uint32 {
	pc := vm.CPU.PC
	word := vm.Memory.Read32(pc)

	d, hit := vm.Cache.Lookup(pc, word)
	if !hit {
		d = arm.Decode(word)
		d.Raw = word
		vm.Cache.Insert(pc, d)
	}

	condMet := vm.CPU.CPSR.EvaluateCondition(d.Cond)
	cycles := arm.CyclesFor(d, vm.CPU, vm.Memory, condMet)

	if !condMet {
		vm.CPU.IncrementPC()
		return cycles
	}

	if d.Form == arm.FormUndefined {
		vm.CPU.Enter(cpu.VectorUndefined, cpu.ModeUND, pc+4)
		vm.fireException(cpu.VectorUndefined, cpu.ModeUND, pc)
		return cycles
	}
	if d.Form == arm.FormSWI {
		vm.CPU.Enter(cpu.VectorSWI, cpu.ModeSVC, pc+4)
		vm.fireException(cpu.VectorSWI, cpu.ModeSVC, pc)
		return cycles
	}

	pcModified := arm.Execute(vm.CPU, vm.Memory, d)
	if !pcModified {
		vm.CPU.IncrementPC()
	}
	return cycles
}

func (vm *VM) stepThumb() uint32 {
	pc := vm.CPU.PC
	instr := vm.Memory.Read16(pc)
	cycles := thumb.CyclesFor(vm.CPU, vm.Memory, instr)

	pcModified := thumb.Execute(vm.CPU, vm.Memory, instr)
	if !pcModified {
		vm.CPU.PC += 2
	}
	// thumb.Execute performs SWI and undefined-instruction entry itself;
	// report those entries the same way the ARM path does.
	if pcModified && !vm.CPU.CPSR.T {
		switch {
		case instr&0xFF00 == 0xDF00:
			vm.fireException(cpu.VectorSWI, cpu.ModeSVC, pc)
		case vm.CPU.PC == cpu.VectorUndefined && vm.CPU.CPSR.Mode == cpu.ModeUND:
			vm.fireException(cpu.VectorUndefined, cpu.ModeUND, pc)
		}
	}
	return cycles
}

// Run drives Step in a loop until budget cycles have elapsed, a
// breakpoint is hit, or an error occurs, mirroring the teacher's
// vm.VM.Run but returning a StopReason instead of treating "ran out of
// budget" as an error — exhausting a cooperative slice is the normal
// way control returns to an outer scheduler (e.g. one video frame's
// worth of cycles), not a fault.
func (vm *VM) Run(budget uint32) (StopReason, error) {
	vm.State = StateRunning
	var spent uint32

	for spent < budget {
		cycles, err := vm.Step()
		if err != nil {
			vm.State = StateError
			vm.LastErr = err
			return StopError, err
		}
		spent += cycles

		if vm.State == StateBreakpoint {
			return StopBreakpoint, nil
		}
		if vm.State == StateHalted {
			return StopHalted, nil
		}
	}
	return StopBudgetExhausted, nil
}

// Reset returns the CPU, timing state, and decode cache to their
// power-on condition without disturbing Memory or the breakpoint set,
// mirroring the teacher's vm.VM.Reset used by the debugger's "run"/
// "reset" commands.
func (vm *VM) Reset() {
	vm.CPU.Reset()
	vm.Timing = timing.New()
	vm.Cache = arm.NewCache()
	vm.State = StateHalted
	vm.LastErr = nil
}

// Halt stops the run loop from the outside (e.g. a SWI handler that
// implements a guest "exit" syscall would call this).
func (vm *VM) Halt() {
	vm.State = StateHalted
	if vm.Events != nil {
		vm.Events.Publish(events.Event{Type: events.TypeHalt, PC: vm.CPU.PC})
	}
}
