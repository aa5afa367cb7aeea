package debugger

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/dtolnay-emu/gba7tdmi/core"
)

// RunCLI runs the line-oriented debugger REPL against stdin/stdout.
func RunCLI(dbg *Debugger) error {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("(gbacore) ")

		if !scanner.Scan() {
			break
		}
		cmdLine := strings.TrimSpace(scanner.Text())

		if cmdLine == "quit" || cmdLine == "q" || cmdLine == "exit" {
			fmt.Println("Exiting debugger...")
			break
		}

		if err := dbg.ExecuteCommand(cmdLine); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
		if output := dbg.GetOutput(); output != "" {
			fmt.Print(output)
		}

		for dbg.Running {
			if shouldBreak, reason := dbg.ShouldBreak(); shouldBreak {
				dbg.Running = false
				fmt.Printf("Stopped: %s at PC=0x%08X\n", reason, dbg.VM.CPU.PC)
				break
			}

			if _, err := dbg.VM.Step(); err != nil {
				fmt.Printf("Runtime error: %v\n", err)
				dbg.Running = false
				break
			}
			if dbg.VM.State == core.StateHalted {
				dbg.Running = false
				fmt.Printf("Program halted at PC=0x%08X\n", dbg.VM.CPU.PC)
				break
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("input error: %w", err)
	}
	return nil
}

// RunTUI runs the tcell/tview debugger interface.
func RunTUI(dbg *Debugger) error {
	tui := NewTUI(dbg)
	return tui.Run()
}
