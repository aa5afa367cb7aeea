package timing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdvanceRollsScanline(t *testing.T) {
	s := New()
	s.Advance(CyclesPerScanline)
	assert.Equal(t, 1, s.Scanline)
	assert.Equal(t, 0, s.ScanlineCycle)
}

func TestVBlankEntersAtScanline160(t *testing.T) {
	s := New()
	s.Advance(CyclesPerScanline * VisibleScanlines)
	assert.Equal(t, VisibleScanlines, s.Scanline)
	assert.True(t, s.InVBlank())
	assert.Equal(t, VideoEventVBlank, s.ProcessVideoEvents())
	assert.Equal(t, NoVideoEvent, s.ProcessVideoEvents())
}

func TestTimerOverflow(t *testing.T) {
	s := New()
	s.TimerEnabled[0] = true
	s.TimerPeriod[0] = 100
	s.Advance(150)
	fired := s.ProcessTimerEvents()
	assert.Equal(t, []int{0}, fired)
	assert.Equal(t, uint32(50), s.TimerCycles[0])
}

func TestCyclesUntilNextEventRespectsTimers(t *testing.T) {
	s := New()
	s.TimerEnabled[1] = true
	s.TimerPeriod[1] = 10
	assert.Equal(t, uint32(10), s.CyclesUntilNextEvent())
}
