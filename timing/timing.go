// Package timing models the GBA's scanline/timer bookkeeping (spec.md
// §4.8, C2), grounded on original_source/include/timing.h's TimingState
// struct — the teacher's ARM2 emulator has no video/timer concept to
// draw from, since ARM2 predates the GBA entirely.
package timing

const (
	CyclesPerScanline = 1232
	ScanlinesPerFrame = 228
	VisibleScanlines  = 160

	cyclesPerSecond = 16_780_000
)

// State is the timing side of the cooperative run loop: a monotonic
// cycle counter, scanline position, and per-timer accumulators.
type State struct {
	Cycles        uint64
	Scanline      int
	ScanlineCycle int
	TimerCycles   [4]uint32

	// TimerEnabled/TimerPeriod let a caller wire up the four hardware
	// timers without modelling their full register interface here;
	// period 0 means disabled.
	TimerEnabled [4]bool
	TimerPeriod  [4]uint32

	// pendingTimerOverflow/pendingVBlank/pendingHBlank are set by Advance
	// and read and cleared by Process{Timer,Video}Events.
	pendingTimerOverflow [4]bool
	pendingVBlank        bool
	pendingHBlank        bool
}

// New returns a zeroed timing state at the start of scanline 0.
func New() *State { return &State{} }

// Advance moves the clock forward by cycles, rolling the scanline
// position and timer accumulators, and marking any events (timer
// overflow, HBlank/VBlank entry) that occurred along the way for the
// next ProcessTimerEvents/ProcessVideoEvents call to pick up.
func (s *State) Advance(cycles uint32) {
	for i := range s.TimerEnabled {
		if !s.TimerEnabled[i] || s.TimerPeriod[i] == 0 {
			continue
		}
		s.TimerCycles[i] += cycles
		if s.TimerCycles[i] >= s.TimerPeriod[i] {
			s.TimerCycles[i] -= s.TimerPeriod[i]
			s.pendingTimerOverflow[i] = true
		}
	}

	s.Cycles += uint64(cycles)
	s.ScanlineCycle += int(cycles)
	for s.ScanlineCycle >= CyclesPerScanline {
		s.ScanlineCycle -= CyclesPerScanline
		s.Scanline = (s.Scanline + 1) % ScanlinesPerFrame
		if s.Scanline == VisibleScanlines {
			s.pendingVBlank = true
		}
	}
	if s.ScanlineCycle >= CyclesPerScanline-272 {
		s.pendingHBlank = true
	}
}

// InVBlank reports whether the current scanline is in the vertical
// blanking region.
func (s *State) InVBlank() bool { return s.Scanline >= VisibleScanlines }

// InHBlank reports whether the current scanline position is in the
// horizontal blanking region (the last 272 cycles of each scanline).
func (s *State) InHBlank() bool { return s.ScanlineCycle >= CyclesPerScanline-272 }

// CyclesUntilNextEvent returns how many cycles remain before the next
// scanline boundary or timer overflow, whichever comes first — the
// value the cooperative run loop uses to decide how large a budget it
// can safely hand the CPU before it must stop and re-check peripherals.
func (s *State) CyclesUntilNextEvent() uint32 {
	untilScanline := uint32(CyclesPerScanline - s.ScanlineCycle)
	best := untilScanline
	for i := range s.TimerEnabled {
		if !s.TimerEnabled[i] || s.TimerPeriod[i] == 0 {
			continue
		}
		remaining := s.TimerPeriod[i] - s.TimerCycles[i]
		if remaining < best {
			best = remaining
		}
	}
	if best == 0 {
		best = 1
	}
	return best
}

// ProcessTimerEvents drains pending timer-overflow flags, returning the
// indices of timers that overflowed since the last call.
func (s *State) ProcessTimerEvents() []int {
	var fired []int
	for i := range s.pendingTimerOverflow {
		if s.pendingTimerOverflow[i] {
			fired = append(fired, i)
			s.pendingTimerOverflow[i] = false
		}
	}
	return fired
}

// VideoEvent names a scanline-boundary event.
type VideoEvent int

const (
	NoVideoEvent VideoEvent = iota
	VideoEventHBlank
	VideoEventVBlank
)

// ProcessVideoEvents drains the pending HBlank/VBlank flags, returning
// VBlank in preference to HBlank if both are pending (a VBlank entry
// also crosses an HBlank boundary).
func (s *State) ProcessVideoEvents() VideoEvent {
	switch {
	case s.pendingVBlank:
		s.pendingVBlank = false
		s.pendingHBlank = false
		return VideoEventVBlank
	case s.pendingHBlank:
		s.pendingHBlank = false
		return VideoEventHBlank
	default:
		return NoVideoEvent
	}
}
