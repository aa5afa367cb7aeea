package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dtolnay-emu/gba7tdmi/core"
)

// cmdRun resets the VM and starts execution from its reset vector.
func (d *Debugger) cmdRun(args []string) error {
	d.VM.Reset()
	d.VM.State = core.StateRunning
	d.Running = true
	d.StepMode = StepNone
	d.Println("Starting program execution...")
	return nil
}

// cmdContinue resumes execution from the current PC.
func (d *Debugger) cmdContinue(args []string) error {
	if d.VM.State == core.StateHalted {
		return fmt.Errorf("program is not running")
	}
	d.VM.State = core.StateRunning
	d.Running = true
	d.StepMode = StepNone
	d.Println("Continuing...")
	return nil
}

// cmdStep executes a single instruction.
func (d *Debugger) cmdStep(args []string) error {
	d.StepMode = StepSingle
	d.Running = true
	return nil
}

// cmdNext steps over a BL at the current PC, or single-steps if the
// current instruction isn't a call.
func (d *Debugger) cmdNext(args []string) error {
	d.SetStepOver()
	return nil
}

// cmdBreak sets a breakpoint at an address or symbol.
func (d *Debugger) cmdBreak(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: break <address|label>")
	}
	address, err := d.ResolveAddress(args[0])
	if err != nil {
		return err
	}
	symbol := d.Symbols.LookupAddress(address)
	bp := d.Breakpoints.AddBreakpoint(address, symbol, false)
	d.Printf("Breakpoint %d at 0x%08X\n", bp.ID, address)
	return nil
}

// cmdTBreak sets a one-shot breakpoint.
func (d *Debugger) cmdTBreak(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: tbreak <address|label>")
	}
	address, err := d.ResolveAddress(args[0])
	if err != nil {
		return err
	}
	symbol := d.Symbols.LookupAddress(address)
	bp := d.Breakpoints.AddBreakpoint(address, symbol, true)
	d.Printf("Temporary breakpoint %d at 0x%08X\n", bp.ID, address)
	return nil
}

// cmdDelete deletes one breakpoint, or all of them with no argument.
func (d *Debugger) cmdDelete(args []string) error {
	if len(args) == 0 {
		d.Breakpoints.Clear()
		d.Println("All breakpoints deleted")
		return nil
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint ID: %s", args[0])
	}
	if err := d.Breakpoints.DeleteBreakpoint(id); err != nil {
		return err
	}
	d.Printf("Breakpoint %d deleted\n", id)
	return nil
}

func (d *Debugger) cmdEnable(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: enable <breakpoint-id>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint ID: %s", args[0])
	}
	if err := d.Breakpoints.EnableBreakpoint(id); err != nil {
		return err
	}
	d.Printf("Breakpoint %d enabled\n", id)
	return nil
}

func (d *Debugger) cmdDisable(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: disable <breakpoint-id>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint ID: %s", args[0])
	}
	if err := d.Breakpoints.DisableBreakpoint(id); err != nil {
		return err
	}
	d.Printf("Breakpoint %d disabled\n", id)
	return nil
}

// cmdWatch sets a value-change watchpoint on a register or memory word.
func (d *Debugger) cmdWatch(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: watch <register|[address]|label>")
	}
	expression := strings.Join(args, " ")
	isRegister, register, address, err := d.parseWatchTarget(expression)
	if err != nil {
		return err
	}

	wp := d.Watchpoints.AddWatchpoint(WatchWrite, expression, address, isRegister, register)
	if err := d.Watchpoints.InitializeWatchpoint(wp.ID, d.VM); err != nil {
		d.Watchpoints.DeleteWatchpoint(wp.ID)
		return err
	}
	d.Printf("Watchpoint %d: %s\n", wp.ID, expression)
	return nil
}

// parseWatchTarget classifies a watch expression as a register or a
// memory address, reusing the same reduced grammar as resolveOperand.
func (d *Debugger) parseWatchTarget(expr string) (isRegister bool, register int, address uint32, err error) {
	expr = strings.ToLower(strings.TrimSpace(expr))

	if reg, ok := registerNumber(expr); ok {
		return true, reg, 0, nil
	}
	if strings.HasPrefix(expr, "[") && strings.HasSuffix(expr, "]") {
		addrStr := strings.TrimSuffix(strings.TrimPrefix(expr, "["), "]")
		addr, err := d.ResolveAddress(addrStr)
		if err != nil {
			return false, 0, 0, err
		}
		return false, 0, addr, nil
	}
	addr, err := d.ResolveAddress(expr)
	if err != nil {
		return false, 0, 0, fmt.Errorf("invalid watch expression: %s", expr)
	}
	return false, 0, addr, nil
}

// cmdPrint evaluates and prints a register, memory, or symbol operand.
func (d *Debugger) cmdPrint(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: print <register|[address]|label>")
	}
	value, err := d.resolveOperand(strings.Join(args, " "))
	if err != nil {
		return err
	}
	d.Printf("0x%08X (%d)\n", value, int32(value))
	return nil
}

// cmdExamine dumps memory starting at an address: x[/nu] <address>,
// n = word count, u = unit size (b/h/w).
func (d *Debugger) cmdExamine(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: x[/nu] <address>  (n: count, u: unit b/h/w)")
	}

	count := 1
	unit := byte('w')
	addrArg := args[0]

	if strings.HasPrefix(args[0], "/") {
		spec := args[0][1:]
		if len(args) < 2 {
			return fmt.Errorf("missing address")
		}
		addrArg = args[1]

		i := 0
		for i < len(spec) && spec[i] >= '0' && spec[i] <= '9' {
			i++
		}
		if i > 0 {
			if n, err := strconv.Atoi(spec[:i]); err == nil {
				count = n
			}
			spec = spec[i:]
		}
		if len(spec) > 0 {
			unit = spec[0]
		}
	}

	address, err := d.ResolveAddress(addrArg)
	if err != nil {
		return err
	}

	d.Printf("0x%08X:", address)
	for i := 0; i < count; i++ {
		switch unit {
		case 'b':
			d.Printf(" 0x%02X", d.VM.Memory.Read8(address))
			address++
		case 'h':
			d.Printf(" 0x%04X", d.VM.Memory.Read16(address))
			address += 2
		default:
			d.Printf(" 0x%08X", d.VM.Memory.Read32(address))
			address += 4
		}
	}
	d.Println()
	return nil
}

// cmdInfo displays register, breakpoint, watchpoint, or stack state.
func (d *Debugger) cmdInfo(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: info <registers|breakpoints|watchpoints|stack>")
	}
	switch strings.ToLower(args[0]) {
	case "registers", "reg", "r":
		return d.showRegisters()
	case "breakpoints", "break", "b":
		return d.showBreakpoints()
	case "watchpoints", "watch", "w":
		return d.showWatchpoints()
	case "stack", "s":
		return d.showStack()
	default:
		return fmt.Errorf("unknown info command: %s", args[0])
	}
}

func (d *Debugger) showRegisters() error {
	d.Println("Registers:")
	names := []string{"R0", "R1", "R2", "R3", "R4", "R5", "R6", "R7", "R8", "R9", "R10", "R11", "R12", "SP", "LR"}
	for i, name := range names {
		d.Printf("  %-3s = 0x%08X (%d)\n", name, d.VM.CPU.R[i], int32(d.VM.CPU.R[i]))
	}
	d.Printf("  PC  = 0x%08X (%s)\n", d.VM.CPU.PC, d.Symbols.FormatAddressCompact(d.VM.CPU.PC))

	cpsr := d.VM.CPU.CPSR
	flags := flagChar(cpsr.N, "N") + flagChar(cpsr.Z, "Z") + flagChar(cpsr.C, "C") + flagChar(cpsr.V, "V") +
		flagChar(cpsr.I, "I") + flagChar(cpsr.F, "F") + flagChar(cpsr.T, "T")
	d.Printf("  CPSR = [%s] mode=%s\n", flags, cpsr.Mode.String())
	return nil
}

func flagChar(set bool, letter string) string {
	if set {
		return letter
	}
	return "-"
}

func (d *Debugger) showBreakpoints() error {
	breakpoints := d.Breakpoints.GetAllBreakpoints()
	if len(breakpoints) == 0 {
		d.Println("No breakpoints")
		return nil
	}
	d.Println("Breakpoints:")
	for _, bp := range breakpoints {
		status := "enabled"
		if !bp.Enabled {
			status = "disabled"
		}
		temp := ""
		if bp.Temporary {
			temp = " (temporary)"
		}
		d.Printf("  %d: 0x%08X %s%s (hit %d times)\n", bp.ID, bp.Address, status, temp, bp.HitCount)
	}
	return nil
}

func (d *Debugger) showWatchpoints() error {
	watchpoints := d.Watchpoints.GetAllWatchpoints()
	if len(watchpoints) == 0 {
		d.Println("No watchpoints")
		return nil
	}
	d.Println("Watchpoints:")
	for _, wp := range watchpoints {
		status := "enabled"
		if !wp.Enabled {
			status = "disabled"
		}
		d.Printf("  %d: %s %s (hit %d times, last value: 0x%08X)\n",
			wp.ID, wp.Expression, status, wp.HitCount, wp.LastValue)
	}
	return nil
}

func (d *Debugger) showStack() error {
	sp := d.VM.CPU.GetSP()
	d.Printf("Stack (SP = 0x%08X):\n", sp)
	for i := 0; i < 8; i++ {
		addr := sp + uint32(i*4)
		value := d.VM.Memory.Read32(addr)
		d.Printf("  0x%08X: 0x%08X (%d)\n", addr, value, int32(value))
	}
	return nil
}

// cmdSet modifies a register or memory word: set <register|*address> = <value>.
func (d *Debugger) cmdSet(args []string) error {
	if len(args) < 3 || args[1] != "=" {
		return fmt.Errorf("usage: set <register|*address> = <value>")
	}

	target := strings.ToLower(args[0])
	value, err := d.resolveOperand(args[2])
	if err != nil {
		// Not a resolvable operand; try it as a literal immediate.
		value, err = parseImmediate(args[2])
		if err != nil {
			return err
		}
	}

	if strings.HasPrefix(target, "*") {
		address, err := d.ResolveAddress(target[1:])
		if err != nil {
			return err
		}
		d.VM.Memory.Write32(address, value)
		d.Printf("Memory 0x%08X set to 0x%08X\n", address, value)
		return nil
	}

	reg, ok := registerNumber(target)
	if !ok {
		return fmt.Errorf("invalid target: %s", target)
	}
	d.VM.CPU.SetRegister(reg, value)
	d.Printf("Register %s set to 0x%08X\n", target, value)
	return nil
}

func parseImmediate(s string) (uint32, error) {
	var v uint32
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if _, err := fmt.Sscanf(s, "0x%x", &v); err != nil {
			return 0, fmt.Errorf("invalid value: %s", s)
		}
		return v, nil
	}
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return 0, fmt.Errorf("invalid value: %s", s)
	}
	return v, nil
}

// cmdReset restores the VM to its power-on state.
func (d *Debugger) cmdReset(args []string) error {
	d.VM.Reset()
	d.Running = false
	d.Println("VM reset")
	return nil
}

func (d *Debugger) cmdHelp(args []string) error {
	if len(args) > 0 {
		return d.showCommandHelp(args[0])
	}

	d.Println("gbacore debugger commands:")
	d.Println()
	d.Println("Execution:")
	d.Println("  run (r)            - Reset and start execution")
	d.Println("  continue (c)       - Continue execution")
	d.Println("  step (s, si)       - Execute a single instruction")
	d.Println("  next (n)           - Step over a call instruction")
	d.Println()
	d.Println("Breakpoints:")
	d.Println("  break (b) <addr>   - Set a breakpoint")
	d.Println("  tbreak (tb) <addr> - Set a one-shot breakpoint")
	d.Println("  delete (d) [id]    - Delete breakpoint(s)")
	d.Println("  enable/disable <id>- Enable or disable a breakpoint")
	d.Println()
	d.Println("Watchpoints:")
	d.Println("  watch (w) <expr>   - Watch a register or memory word for changes")
	d.Println()
	d.Println("Inspection:")
	d.Println("  print (p) <expr>   - Show a register/memory/symbol value")
	d.Println("  x[/nu] <addr>      - Examine memory (n: count, u: b/h/w)")
	d.Println("  info (i) <what>    - Show registers/breakpoints/watchpoints/stack")
	d.Println()
	d.Println("Modification:")
	d.Println("  set <target> = <v> - Set a register or memory word")
	d.Println()
	d.Println("  reset              - Reset the VM")
	d.Println("  help (h, ?)        - Show this help")
	return nil
}

func (d *Debugger) showCommandHelp(cmd string) error {
	helpText := map[string]string{
		"break": "break <address|label>\n  Set a breakpoint at the specified address or label.",
		"step":  "step\n  Execute a single instruction.",
		"next":  "next\n  Step over a BL at the current PC (single-steps otherwise).",
		"print": "print <register|[address]|label>\n  Show a register, memory word, or symbol's value.",
		"x":     "x[/nu] <address>\n  Examine memory. n: count, u: unit (b/h/w).",
		"info":  "info <registers|breakpoints|watchpoints|stack>\n  Display program state.",
	}
	if help, exists := helpText[cmd]; exists {
		d.Println(help)
		return nil
	}
	return fmt.Errorf("no help available for command: %s", cmd)
}
