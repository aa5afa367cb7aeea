package gbamem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadWriteWord(t *testing.T) {
	m := NewFlat()
	m.Write32(IWRAMStart+0x10, 0xDEADBEEF)
	assert.Equal(t, uint32(0xDEADBEEF), m.Read32(IWRAMStart+0x10))
	assert.Equal(t, uint8(0xEF), m.Read8(IWRAMStart+0x10))
	assert.Equal(t, uint16(0xBEEF), m.Read16(IWRAMStart+0x12))
}

func TestUnmappedReadsZero(t *testing.T) {
	m := NewFlat()
	assert.Equal(t, uint32(0), m.Read32(0x0A00_0000))
}

func TestUnmappedWriteIsDropped(t *testing.T) {
	m := NewFlat()
	assert.NotPanics(t, func() { m.Write32(0x0A00_0000, 0xFFFFFFFF) })
}

func TestAccessCyclesPerRegion(t *testing.T) {
	m := NewFlat()
	assert.Equal(t, uint32(1), m.AccessCycles(BIOSStart, 4))
	assert.Equal(t, uint32(1), m.AccessCycles(IWRAMStart, 4))
	assert.Equal(t, uint32(6), m.AccessCycles(EWRAMStart, 4))
	assert.Equal(t, uint32(8), m.AccessCycles(ROMStart, 4))
}

func TestSelfModifyingWriteIsObservedOnNextRead(t *testing.T) {
	m := NewFlat()
	m.Write32(ROMStart, 0xE3A00001) // MOV R0,#1
	first := m.Read32(ROMStart)
	m.Write32(ROMStart, 0xE3A00002) // MOV R0,#2
	second := m.Read32(ROMStart)
	assert.NotEqual(t, first, second)
}
