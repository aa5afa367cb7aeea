package debugger

// TUI display update pacing.
const (
	// DisplayUpdateFrequency controls how often the TUI repaints during
	// continuous execution (every N cycles), keeping the terminal
	// responsive without redrawing on every single instruction.
	DisplayUpdateFrequency = 100
)

// Disassembly view context, replacing the teacher's source-line
// context constants — this domain has no assembly source map, so the
// code pane disassembles raw words around PC instead.
const (
	DisasmLinesBefore = 8
	DisasmLinesAfter  = 24
)

// Memory hex dump view.
const (
	MemoryDisplayRows    = 16
	MemoryDisplayColumns = 16
)

// Stack view.
const (
	StackDisplayWords = 16
)

// Register view panel layout.
const (
	RegisterViewRows  = 9
	RegisterGroupSize = 5
)
