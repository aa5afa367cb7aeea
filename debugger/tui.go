package debugger

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/dtolnay-emu/gba7tdmi/arm"
)

// TUI is the tcell/tview front end over a Debugger, adapted from the
// teacher's layout with the SourceView dropped (no assembly source map
// for a loaded ROM) in favor of a taller DisassemblyView.
type TUI struct {
	Debugger *Debugger
	App      *tview.Application
	Pages    *tview.Pages

	MainLayout *tview.Flex
	LeftPanel  *tview.Flex
	RightPanel *tview.Flex

	DisassemblyView *tview.TextView
	RegisterView    *tview.TextView
	MemoryView      *tview.TextView
	StackView       *tview.TextView
	BreakpointsView *tview.TextView
	OutputView      *tview.TextView
	CommandInput    *tview.InputField

	MemoryAddress uint32
}

// NewTUI builds a TUI driving dbg.
func NewTUI(dbg *Debugger) *TUI {
	t := &TUI{Debugger: dbg, App: tview.NewApplication()}
	t.initializeViews()
	t.buildLayout()
	t.setupKeyBindings()
	return t
}

// NewTUIWithScreen builds a TUI against a caller-supplied tcell.Screen
// (a tcell.SimulationScreen in tests), so Run can be exercised without
// a real terminal.
func NewTUIWithScreen(dbg *Debugger, screen tcell.Screen) *TUI {
	t := &TUI{Debugger: dbg, App: tview.NewApplication().SetScreen(screen)}
	t.initializeViews()
	t.buildLayout()
	t.setupKeyBindings()
	return t
}

func (t *TUI) initializeViews() {
	t.DisassemblyView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true).SetWrap(false)
	t.DisassemblyView.SetBorder(true).SetTitle(" Disassembly ")

	t.RegisterView = tview.NewTextView().SetDynamicColors(true).SetScrollable(false)
	t.RegisterView.SetBorder(true).SetTitle(" Registers ")

	t.MemoryView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true).SetWrap(false)
	t.MemoryView.SetBorder(true).SetTitle(" Memory ")

	t.StackView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true).SetWrap(false)
	t.StackView.SetBorder(true).SetTitle(" Stack ")

	t.BreakpointsView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true).SetWrap(false)
	t.BreakpointsView.SetBorder(true).SetTitle(" Breakpoints/Watchpoints ")

	t.OutputView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true).SetWrap(true)
	t.OutputView.SetBorder(true).SetTitle(" Output ")

	t.CommandInput = tview.NewInputField().SetLabel("> ").SetFieldWidth(0)
	t.CommandInput.SetBorder(true).SetTitle(" Command ")
	t.CommandInput.SetDoneFunc(t.handleCommand)
}

func (t *TUI) buildLayout() {
	t.LeftPanel = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(t.DisassemblyView, 0, 1, false)

	rightTop := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(t.RegisterView, 10, 0, false).
		AddItem(t.MemoryView, 0, 1, false).
		AddItem(t.StackView, 0, 1, false)

	t.RightPanel = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(rightTop, 0, 3, false).
		AddItem(t.BreakpointsView, 8, 0, false)

	mainContent := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(t.LeftPanel, 0, 2, false).
		AddItem(t.RightPanel, 0, 1, false)

	t.MainLayout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(mainContent, 0, 4, false).
		AddItem(t.OutputView, 8, 0, false).
		AddItem(t.CommandInput, 3, 0, true)

	t.Pages = tview.NewPages().AddPage("main", t.MainLayout, true, true)
}

func (t *TUI) setupKeyBindings() {
	t.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF1:
			t.executeCommand("help")
			return nil
		case tcell.KeyF5:
			t.executeCommand("continue")
			return nil
		case tcell.KeyF10:
			t.executeCommand("next")
			return nil
		case tcell.KeyF11:
			t.executeCommand("step")
			return nil
		case tcell.KeyCtrlC:
			t.App.Stop()
			return nil
		case tcell.KeyCtrlL:
			t.RefreshAll()
			return nil
		}
		return event
	})
}

func (t *TUI) handleCommand(key tcell.Key) {
	if key != tcell.KeyEnter {
		return
	}
	cmd := t.CommandInput.GetText()
	if cmd == "" {
		return
	}
	t.executeCommand(cmd)
	t.CommandInput.SetText("")
}

func (t *TUI) executeCommand(cmd string) {
	t.Debugger.Output.Reset()
	err := t.Debugger.ExecuteCommand(cmd)
	output := t.Debugger.GetOutput()

	if err != nil {
		t.WriteOutput(fmt.Sprintf("[red]Error:[white] %v\n", err))
	}
	if output != "" {
		t.WriteOutput(output)
	}
	t.RefreshAll()
}

func (t *TUI) WriteOutput(text string) {
	fmt.Fprint(t.OutputView, text)
	t.OutputView.ScrollToEnd()
}

func (t *TUI) RefreshAll() {
	t.UpdateDisassemblyView()
	t.UpdateRegisterView()
	t.UpdateMemoryView()
	t.UpdateStackView()
	t.UpdateBreakpointsView()
	t.App.Draw()
}

// UpdateDisassemblyView lists the instructions around PC — CPSR.T
// selects ARM words, each labelled with its decoded Form, or Thumb
// halfwords, which are shown as raw hex without decoding.
func (t *TUI) UpdateDisassemblyView() {
	cpu := t.Debugger.VM.CPU
	pc := cpu.PC
	var lines []string

	if cpu.CPSR.T {
		start := pc
		if pc >= 16 {
			start = pc - 16
		} else {
			start = 0
		}
		for addr := start; addr < pc+48; addr += 2 {
			lines = append(lines, t.formatThumbLine(addr, pc))
		}
	} else {
		start := pc
		if pc >= 32 {
			start = pc - 32
		} else {
			start = 0
		}
		for addr := start; addr < pc+96; addr += 4 {
			lines = append(lines, t.formatARMLine(addr, pc))
		}
	}

	t.DisassemblyView.SetText(strings.Join(lines, "\n"))
}

func (t *TUI) formatARMLine(addr, pc uint32) string {
	word := t.Debugger.VM.Memory.Read32(addr)
	d := arm.Decode(word)
	marker, color := lineMarker(addr, pc, t.Debugger.Breakpoints.GetBreakpoint(addr) != nil)
	label := t.Debugger.Symbols.LookupAddress(addr)
	line := fmt.Sprintf("[%s]%s 0x%08X: 0x%08X  %s[white]", color, marker, addr, word, formName(d.Form))
	if label != "" {
		line += fmt.Sprintf(" <%s>", label)
	}
	return line
}

func (t *TUI) formatThumbLine(addr, pc uint32) string {
	instr := t.Debugger.VM.Memory.Read16(addr)
	marker, color := lineMarker(addr, pc, t.Debugger.Breakpoints.GetBreakpoint(addr) != nil)
	label := t.Debugger.Symbols.LookupAddress(addr)
	line := fmt.Sprintf("[%s]%s 0x%08X: 0x%04X[white]", color, marker, addr, instr)
	if label != "" {
		line += fmt.Sprintf(" <%s>", label)
	}
	return line
}

func lineMarker(addr, pc uint32, hasBreakpoint bool) (marker, color string) {
	marker, color = "  ", "white"
	if addr == pc {
		marker, color = "->", "yellow"
	}
	if hasBreakpoint {
		marker = "* "
	}
	return marker, color
}

func formName(f arm.Form) string {
	switch f {
	case arm.FormDataProcessing:
		return "DataProcessing"
	case arm.FormMultiply:
		return "Multiply"
	case arm.FormMultiplyLong:
		return "MultiplyLong"
	case arm.FormSingleTransfer:
		return "SingleTransfer"
	case arm.FormHalfwordTransfer:
		return "HalfwordTransfer"
	case arm.FormBlockTransfer:
		return "BlockTransfer"
	case arm.FormBranch:
		return "Branch"
	case arm.FormBranchExchange:
		return "BranchExchange"
	case arm.FormSWP:
		return "SWP"
	case arm.FormPSRTransfer:
		return "PSRTransfer"
	case arm.FormSWI:
		return "SWI"
	default:
		return "Undefined"
	}
}

func (t *TUI) UpdateRegisterView() {
	cpu := t.Debugger.VM.CPU
	var lines []string

	for row := 0; row < 4; row++ {
		var cols []string
		for col := 0; col < 4; col++ {
			reg := row*4 + col
			if reg == 15 {
				break // PC has its own line below
			}
			name := fmt.Sprintf("R%-2d", reg)
			value := cpu.R[reg]
			switch reg {
			case 13:
				name = "SP "
			case 14:
				name = "LR "
			}
			cols = append(cols, fmt.Sprintf("%s: 0x%08X", name, value))
		}
		lines = append(lines, strings.Join(cols, "  "))
	}
	lines = append(lines, fmt.Sprintf("PC : 0x%08X", cpu.PC))
	lines = append(lines, "")

	flags := flagTag(cpu.CPSR.N, "N", "red") + flagTag(cpu.CPSR.Z, "Z", "blue") +
		flagTag(cpu.CPSR.C, "C", "green") + flagTag(cpu.CPSR.V, "V", "yellow") +
		flagTag(cpu.CPSR.I, "I", "white") + flagTag(cpu.CPSR.F, "F", "white") +
		flagTag(cpu.CPSR.T, "T", "white")
	lines = append(lines, fmt.Sprintf("Flags: %s  Mode: %s", flags, cpu.CPSR.Mode.String()))
	lines = append(lines, fmt.Sprintf("Cycles: %d", cpu.Cycles))

	t.RegisterView.SetText(strings.Join(lines, "\n"))
}

func flagTag(set bool, letter, color string) string {
	if set {
		return fmt.Sprintf("[%s]%s[white]", color, letter)
	}
	return strings.ToLower(letter)
}

func (t *TUI) UpdateMemoryView() {
	addr := t.MemoryAddress
	if addr == 0 {
		addr = t.Debugger.VM.CPU.PC
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("[yellow]Address: 0x%08X[white]", addr))

	for row := 0; row < MemoryDisplayRows; row++ {
		rowAddr := addr + uint32(row*MemoryDisplayColumns)
		line := fmt.Sprintf("0x%08X: ", rowAddr)

		var hexBytes []string
		var asciiBytes []byte
		for col := 0; col < MemoryDisplayColumns; col++ {
			b := t.Debugger.VM.Memory.Read8(rowAddr + uint32(col))
			hexBytes = append(hexBytes, fmt.Sprintf("%02X", b))
			if b >= 32 && b < 127 {
				asciiBytes = append(asciiBytes, b)
			} else {
				asciiBytes = append(asciiBytes, '.')
			}
		}
		line += strings.Join(hexBytes, " ") + "  " + string(asciiBytes)
		lines = append(lines, line)
	}

	t.MemoryView.SetText(strings.Join(lines, "\n"))
}

func (t *TUI) UpdateStackView() {
	sp := t.Debugger.VM.CPU.GetSP()
	var lines []string
	lines = append(lines, fmt.Sprintf("[yellow]Stack Pointer: 0x%08X[white]", sp))

	for i := 0; i < StackDisplayWords; i++ {
		addr := sp + uint32(i*4)
		word := t.Debugger.VM.Memory.Read32(addr)

		marker := "  "
		if addr == sp {
			marker = "->"
		}
		line := fmt.Sprintf("%s 0x%08X: 0x%08X", marker, addr, word)
		if sym := t.Debugger.Symbols.LookupAddress(word); sym != "" {
			line += fmt.Sprintf(" <%s>", sym)
		}
		lines = append(lines, line)
	}

	t.StackView.SetText(strings.Join(lines, "\n"))
}

func (t *TUI) UpdateBreakpointsView() {
	var lines []string

	bps := t.Debugger.Breakpoints.GetAllBreakpoints()
	if len(bps) > 0 {
		lines = append(lines, "[yellow]Breakpoints:[white]")
		for _, bp := range bps {
			status, color := "enabled", "green"
			if !bp.Enabled {
				status, color = "disabled", "red"
			}
			line := fmt.Sprintf("  %d: [%s]%s[white] 0x%08X", bp.ID, color, status, bp.Address)
			if bp.Symbol != "" {
				line += fmt.Sprintf(" <%s>", bp.Symbol)
			}
			line += fmt.Sprintf(" (hits: %d)", bp.HitCount)
			lines = append(lines, line)
		}
	} else {
		lines = append(lines, "[yellow]No breakpoints set[white]")
	}

	lines = append(lines, "")

	wps := t.Debugger.Watchpoints.GetAllWatchpoints()
	if len(wps) > 0 {
		lines = append(lines, "[yellow]Watchpoints:[white]")
		for _, wp := range wps {
			lines = append(lines, fmt.Sprintf("  %d: watch %s = 0x%08X", wp.ID, wp.Expression, wp.LastValue))
		}
	}

	t.BreakpointsView.SetText(strings.Join(lines, "\n"))
}

// Run starts the TUI event loop.
func (t *TUI) Run() error {
	t.RefreshAll()
	t.WriteOutput("[green]gbacore debugger[white]\n")
	t.WriteOutput("F1 help  F5 continue  F10 next  F11 step\n\n")
	return t.App.SetRoot(t.Pages, true).SetFocus(t.CommandInput).Run()
}

// Stop halts the TUI event loop.
func (t *TUI) Stop() { t.App.Stop() }
