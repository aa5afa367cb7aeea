package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShiftLSL(t *testing.T) {
	r, c := Shift(0x1, 0, ShiftLSL, true)
	assert.Equal(t, uint32(0x1), r)
	assert.True(t, c) // carry unchanged

	r, c = Shift(0x1, 31, ShiftLSL, false)
	assert.Equal(t, uint32(0x80000000), r)
	assert.False(t, c)

	r, c = Shift(0x1, 32, ShiftLSL, false)
	assert.Equal(t, uint32(0), r)
	assert.True(t, c) // bit 0

	r, c = Shift(0x1, 33, ShiftLSL, true)
	assert.Equal(t, uint32(0), r)
	assert.False(t, c)
}

func TestShiftLSR(t *testing.T) {
	r, c := Shift(0x80000000, 0, ShiftLSR, false)
	assert.Equal(t, uint32(0), r) // LSR #0 means LSR #32
	assert.True(t, c)

	r, c = Shift(0xF0, 4, ShiftLSR, false)
	assert.Equal(t, uint32(0xF), r)
	assert.False(t, c)
}

func TestShiftASR(t *testing.T) {
	r, c := Shift(0x80000000, 0, ShiftASR, false)
	assert.Equal(t, uint32(0xFFFFFFFF), r)
	assert.True(t, c)

	r, _ = Shift(0xFFFFFFF0, 4, ShiftASR, false)
	assert.Equal(t, uint32(0xFFFFFFFF), r)
}

func TestShiftRORAndRRX(t *testing.T) {
	r, c := Shift(0x1, 0, ShiftRRX, true)
	assert.Equal(t, uint32(0x80000000), r)
	assert.True(t, c)

	r, c = Shift(0x1, 4, ShiftROR, false)
	assert.Equal(t, uint32(0x10000000), r)
	assert.False(t, c)
}

func TestConditionTruthTable(t *testing.T) {
	cases := []struct {
		cond ConditionCode
		flag CPSR
		want bool
	}{
		{CondEQ, CPSR{Z: true}, true},
		{CondNE, CPSR{Z: true}, false},
		{CondCS, CPSR{C: true}, true},
		{CondCC, CPSR{C: false}, true},
		{CondMI, CPSR{N: true}, true},
		{CondPL, CPSR{N: false}, true},
		{CondVS, CPSR{V: true}, true},
		{CondVC, CPSR{V: false}, true},
		{CondHI, CPSR{C: true, Z: false}, true},
		{CondLS, CPSR{C: false, Z: true}, true},
		{CondGE, CPSR{N: true, V: true}, true},
		{CondLT, CPSR{N: true, V: false}, true},
		{CondGT, CPSR{Z: false, N: true, V: true}, true},
		{CondLE, CPSR{Z: true}, true},
		{CondAL, CPSR{}, true},
		{CondNV, CPSR{}, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.flag.EvaluateCondition(tc.cond), tc.cond.String())
	}
}

func TestAddSubFlags(t *testing.T) {
	a, b := uint32(0x7FFFFFFF), uint32(1)
	result := a + b
	assert.True(t, AddOverflow(a, b, result))
	assert.False(t, AddCarry(a, b, result))

	a, b = 0, 1
	result = a - b
	assert.False(t, SubCarry(a, b)) // borrow occurred
	assert.False(t, SubOverflow(a, b, result))
	assert.Equal(t, uint32(0xFFFFFFFF), result)
	var c CPSR
	c.UpdateFlagsNZCV(result, SubCarry(a, b), SubOverflow(a, b, result))
	assert.True(t, c.N)
	assert.False(t, c.Z)
	assert.False(t, c.C)
	assert.False(t, c.V)
}

func TestCPSRRoundTrip(t *testing.T) {
	c := CPSR{N: true, C: true, I: true, T: true, Mode: ModeIRQ}
	var c2 CPSR
	c2.FromUint32(c.ToUint32())
	c2.Mode = ModeIRQ // FromUint32 intentionally doesn't decode mode into a validated bank switch
	require.Equal(t, c.N, c2.N)
	require.Equal(t, c.C, c2.C)
	require.Equal(t, c.I, c2.I)
	require.Equal(t, c.T, c2.T)
}
