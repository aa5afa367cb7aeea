package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/dtolnay-emu/gba7tdmi/config"
	"github.com/dtolnay-emu/gba7tdmi/core"
	"github.com/dtolnay-emu/gba7tdmi/cpu"
	"github.com/dtolnay-emu/gba7tdmi/debugger"
	"github.com/dtolnay-emu/gba7tdmi/diag"
	"github.com/dtolnay-emu/gba7tdmi/events"
	"github.com/dtolnay-emu/gba7tdmi/gbamem"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"     // Version number (set by git tag at build time)
	Commit  = "unknown" // Git commit hash
	Date    = "unknown" // Build date
)

// stackLayout mirrors the BIOS's mode-setup routine: SVC/IRQ each get a
// small banked stack in IWRAM, System mode (what a ROM actually runs in
// after BIOS hand-off) gets the rest, matching original_source's
// documented default stack pointers.
const (
	stackSVC = 0x0300_7FE0
	stackIRQ = 0x0300_7FA0
	stackSYS = 0x0300_7F00
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help information")
		debugMode   = flag.Bool("debug", false, "Start in debugger mode")
		tuiMode     = flag.Bool("tui", false, "Use TUI (Text User Interface) debugger")
		serveEvents = flag.Bool("serve", false, "Stream execution events over a websocket instead of running to completion")
		servePort   = flag.Int("port", 8080, "Event server port (used with -serve)")
		biosFile    = flag.String("bios", "", "BIOS image to load at 0x00000000 (optional)")
		configFile  = flag.String("config", "", "Config TOML path (default: platform config dir)")
		maxCycles   = flag.Uint64("max-cycles", 0, "Maximum CPU cycles before halt (default: config's execution.max_cycles)")
		entryPoint  = flag.String("entry", "", "Entry point address, hex or decimal (default: ROM start, 0x08000000)")
		verboseMode = flag.Bool("verbose", false, "Verbose output")

		enableFlagTrace     = flag.Bool("flag-trace", false, "Enable CPSR flag change tracing")
		flagTraceFile       = flag.String("flag-trace-file", "flag_trace.txt", "Flag trace output file")
		enableRegisterTrace = flag.Bool("register-trace", false, "Enable register access pattern tracing")
		registerTraceFile   = flag.String("register-trace-file", "register_trace.txt", "Register trace output file")
		enableStackTrace    = flag.Bool("stack-trace", false, "Enable stack operation tracing")
		stackTraceFile      = flag.String("stack-trace-file", "stack_trace.txt", "Stack trace output file")
		enableStats         = flag.Bool("stats", false, "Enable performance statistics")
		statsFile           = flag.String("stats-file", "stats.json", "Statistics output file")

		symbolsFile = flag.String("symbols", "", "TOML file mapping symbol names to addresses, for debugger/trace display")
		dumpSymbols = flag.Bool("dump-symbols", false, "Print the loaded symbol table and exit")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("gbacore %s\n", Version)
		if Commit != "unknown" {
			fmt.Printf("Commit: %s\n", Commit)
		}
		if Date != "unknown" {
			fmt.Printf("Built: %s\n", Date)
		}
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	symbols, err := loadSymbols(*symbolsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading symbols: %v\n", err)
		os.Exit(1)
	}

	if *dumpSymbols {
		dumpSymbolTable(symbols)
		os.Exit(0)
	}

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: a ROM file is required")
		printHelp()
		os.Exit(1)
	}
	romPath := flag.Arg(0)

	romData, err := os.ReadFile(romPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading ROM %s: %v\n", romPath, err)
		os.Exit(1)
	}

	mem := gbamem.NewFlat()
	mem.LoadROM(romData)
	mem.SetROMWaitStates(cfg.Memory.ROMWaitNonSeq, cfg.Memory.ROMWaitSeq)

	if *biosFile != "" {
		biosData, err := os.ReadFile(*biosFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading BIOS %s: %v\n", *biosFile, err)
			os.Exit(1)
		}
		mem.LoadBIOS(biosData)
	}

	machine := core.New(cpu.New(), mem)
	entry, err := resolveEntryPoint(*entryPoint, cfg, symbols)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	initializeStacks(machine.CPU, entry)

	budget := *maxCycles
	if budget == 0 {
		budget = cfg.Execution.MaxCycles
	}

	if *verboseMode {
		fmt.Printf("Loaded %s: %d bytes at 0x08000000, entry 0x%08X\n", romPath, len(romData), entry)
	}

	traces, closeTraces, err := setupDiagnostics(machine, symbols, diagFlags{
		flagTrace:     *enableFlagTrace,
		flagFile:      *flagTraceFile,
		registerTrace: *enableRegisterTrace,
		registerFile:  *registerTraceFile,
		stackTrace:    *enableStackTrace,
		stackFile:     *stackTraceFile,
		stats:         *enableStats,
		statsFile:     *statsFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up diagnostics: %v\n", err)
		os.Exit(1)
	}
	defer closeTraces()

	switch {
	case *serveEvents:
		runEventServer(machine, *servePort, budget)
	case *debugMode || *tuiMode:
		dbg := debugger.NewDebugger(machine)
		dbg.LoadSymbols(symbols)
		machine.State = core.StateRunning
		if *tuiMode {
			err = debugger.RunTUI(dbg)
		} else {
			err = debugger.RunCLI(dbg)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Debugger error: %v\n", err)
			os.Exit(1)
		}
	default:
		runToCompletion(machine, budget, traces)
	}

	traces.flush(machine)
}

// loadConfig reads path, or the platform default config path if path is
// empty, falling back to DefaultConfig when no file exists yet.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadSymbols decodes a TOML file shaped like:
//
//	[symbols]
//	main = "0x08000000"
//	loop = "0x08000040"
//
// into a name -> address map. An empty path returns an empty map.
func loadSymbols(path string) (map[string]uint32, error) {
	symbols := make(map[string]uint32)
	if path == "" {
		return symbols, nil
	}

	var doc struct {
		Symbols map[string]string `toml:"symbols"`
	}
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for name, addrStr := range doc.Symbols {
		addr, err := parseAddress(addrStr)
		if err != nil {
			return nil, fmt.Errorf("symbol %q: %w", name, err)
		}
		symbols[name] = addr
	}
	return symbols, nil
}

// parseAddress accepts a 0x-prefixed hex string or a plain decimal one.
func parseAddress(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 32)
		return uint32(v), err
	}
	v, err := strconv.ParseUint(s, 10, 32)
	return uint32(v), err
}

// resolveEntryPoint picks, in priority order: the -entry flag, a symbol
// named by config's default_entry, a numeric config default_entry, then
// the GamePak ROM base.
func resolveEntryPoint(flagValue string, cfg *config.Config, symbols map[string]uint32) (uint32, error) {
	if flagValue != "" {
		return parseAddress(flagValue)
	}
	if addr, ok := symbols[cfg.Execution.DefaultEntry]; ok {
		return addr, nil
	}
	if cfg.Execution.DefaultEntry != "" {
		if addr, err := parseAddress(cfg.Execution.DefaultEntry); err == nil {
			return addr, nil
		}
	}
	return gbamem.ROMStart, nil
}

// initializeStacks sets up the three banked stack pointers a real GBA
// BIOS configures before handing control to the cartridge, then leaves
// the CPU in System mode at entry, matching original_source's reset
// sequence (ARM state, IRQ/FIQ masked until the guest unmasks them).
func initializeStacks(c *cpu.CPU, entry uint32) {
	c.SetSP(stackSVC)
	c.SwitchMode(cpu.ModeIRQ)
	c.SetSP(stackIRQ)
	c.SwitchMode(cpu.ModeSYS)
	c.SetSP(stackSYS)
	c.CPSR.I = true
	c.CPSR.F = true
	c.PC = entry
}

func runToCompletion(machine *core.VM, budget uint64, traces *diagnostics) {
	machine.State = core.StateRunning
	var spent uint64
	var sequence uint64

	for machine.State == core.StateRunning && spent < budget {
		before := diag.Snapshot(machine.CPU)
		beforeSP := machine.CPU.GetSP()
		pc := machine.CPU.PC

		cycles, err := machine.Step()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Runtime error at PC=0x%08X: %v\n", pc, err)
			os.Exit(1)
		}
		sequence++
		spent += uint64(cycles)

		traces.record(sequence, pc, before, beforeSP, machine, cycles)
	}

	if machine.State == core.StateBreakpoint {
		fmt.Printf("Stopped at breakpoint, PC=0x%08X\n", machine.CPU.PC)
	} else if spent >= budget && machine.State == core.StateRunning {
		fmt.Printf("Cycle budget (%d) exhausted, PC=0x%08X\n", budget, machine.CPU.PC)
	}
}

// runEventServer drives the same per-instruction loop as runToCompletion
// but in a background goroutine, while an HTTP server streams
// machine.Events over a websocket to anyone who connects — a headless
// equivalent of the TUI for a remote observer.
func runEventServer(machine *core.VM, port int, budget uint64) {
	hub := events.NewHub()
	machine.Events = hub
	defer hub.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/events", hub.ServeWebSocket)
	server := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}

	var shutdownOnce sync.Once
	shutdown := func() {
		shutdownOnce.Do(func() {
			fmt.Println("\nShutting down event server...")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
			}
		})
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		shutdown()
	}()

	go func() {
		machine.State = core.StateRunning
		var spent uint64
		for machine.State == core.StateRunning && spent < budget {
			cycles, err := machine.Step()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Runtime error: %v\n", err)
				break
			}
			spent += uint64(cycles)
		}
		shutdown()
	}()

	fmt.Printf("Streaming execution events on ws://localhost:%d/events\n", port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "Event server error: %v\n", err)
		os.Exit(1)
	}
}

// diagFlags collects the CLI toggles setupDiagnostics needs, so it isn't
// called with eight positional bool/string arguments.
type diagFlags struct {
	flagTrace     bool
	flagFile      string
	registerTrace bool
	registerFile  string
	stackTrace    bool
	stackFile     string
	stats         bool
	statsFile     string
}

// diagnostics bundles whichever diag.* collectors the CLI flags enabled,
// so runToCompletion's hot loop can stay a single unconditional call per
// collector (a nil receiver method call on an unused *FlagTrace etc.
// would panic, so disabled collectors are left nil and record() checks
// each before using it).
type diagnostics struct {
	flags *diag.FlagTrace
	regs  *diag.RegisterTrace
	stack *diag.StackTrace
	stats *diag.Statistics
	files []*os.File
}

func setupDiagnostics(machine *core.VM, symbols map[string]uint32, f diagFlags) (*diagnostics, func(), error) {
	d := &diagnostics{}
	open := func(path string) (*os.File, error) {
		file, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		d.files = append(d.files, file)
		return file, nil
	}

	if f.flagTrace {
		file, err := open(f.flagFile)
		if err != nil {
			return nil, nil, err
		}
		d.flags = diag.NewFlagTrace(file)
		d.flags.LoadSymbols(symbols)
		d.flags.Start(machine.CPU.CPSR)
	}
	if f.registerTrace {
		file, err := open(f.registerFile)
		if err != nil {
			return nil, nil, err
		}
		d.regs = diag.NewRegisterTrace(file)
		d.regs.LoadSymbols(symbols)
		d.regs.Start()
	}
	if f.stackTrace {
		file, err := open(f.stackFile)
		if err != nil {
			return nil, nil, err
		}
		d.stack = diag.NewStackTrace(file, stackSYS, gbamem.IWRAMStart)
		d.stack.Start(machine.CPU.GetSP())
	}
	if f.stats {
		d.stats = diag.NewStatistics()
		d.stats.Start(time.Now())
	}

	closeFn := func() {
		for _, file := range d.files {
			file.Close()
		}
	}
	return d, closeFn, nil
}

func (d *diagnostics) record(sequence uint64, pc uint32, before [16]uint32, beforeSP uint32, machine *core.VM, cycles uint32) {
	if d.flags != nil {
		d.flags.RecordFlags(sequence, pc, "", machine.CPU.CPSR)
	}
	if d.regs != nil {
		d.regs.RecordChanges(sequence, pc, before, machine.CPU)
	}
	if d.stack != nil && machine.CPU.GetSP() != beforeSP {
		d.stack.RecordSP(sequence, pc, machine.CPU.GetSP())
	}
	if d.stats != nil {
		d.stats.RecordInstruction("", pc, uint64(cycles))
	}
}

func (d *diagnostics) flush(machine *core.VM) {
	if d.stats != nil {
		d.stats.Finish(time.Now())
		fmt.Println(d.stats.Summary())
	}
	if d.flags != nil {
		d.flags.Flush()
	}
	if d.regs != nil {
		d.regs.Flush()
	}
	if d.stack != nil {
		d.stack.Flush()
		if d.stack.Overflowed() {
			fmt.Fprintln(os.Stderr, "Warning: stack overflow detected")
		}
	}
}

func dumpSymbolTable(symbols map[string]uint32) {
	if len(symbols) == 0 {
		fmt.Println("No symbols loaded")
		return
	}
	names := make([]string, 0, len(symbols))
	for name := range symbols {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%-32s 0x%08X\n", name, symbols[name])
	}
}

func printHelp() {
	fmt.Println("gbacore - ARM7TDMI/GBA-profile CPU core")
	fmt.Println()
	fmt.Println("Usage: gbacore [flags] <rom-file>")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  gbacore game.gba")
	fmt.Println("  gbacore -debug game.gba")
	fmt.Println("  gbacore -tui -bios bios.bin game.gba")
	fmt.Println("  gbacore -serve -port 9000 game.gba")
	fmt.Println("  gbacore -stats -flag-trace game.gba")
}
