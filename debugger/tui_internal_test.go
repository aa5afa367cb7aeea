package debugger

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/require"

	"github.com/dtolnay-emu/gba7tdmi/arm"
	"github.com/dtolnay-emu/gba7tdmi/core"
	"github.com/dtolnay-emu/gba7tdmi/cpu"
	"github.com/dtolnay-emu/gba7tdmi/gbamem"
)

func newTUIForTest(t *testing.T) *TUI {
	t.Helper()
	c := cpu.New()
	vm := core.New(c, gbamem.NewFlat())
	dbg := NewDebugger(vm)

	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	t.Cleanup(screen.Fini)

	return NewTUIWithScreen(dbg, screen)
}

func TestExecuteCommandUpdatesOutput(t *testing.T) {
	tui := newTUIForTest(t)
	tui.executeCommand("help")
	require.Contains(t, tui.OutputView.GetText(true), "gbacore debugger commands")
}

func TestHandleCommandClearsInputOnEnter(t *testing.T) {
	tui := newTUIForTest(t)
	tui.CommandInput.SetText("help")
	tui.handleCommand(tcell.KeyEnter)
	require.Equal(t, "", tui.CommandInput.GetText())
}

func TestFormNameLabelsKnownForms(t *testing.T) {
	require.Equal(t, "Branch", formName(arm.FormBranch))
	require.Equal(t, "Undefined", formName(arm.FormUndefined))
}
