package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, uint64(16_780_000), cfg.Execution.MaxCycles)
	assert.Equal(t, "0x08000000", cfg.Execution.DefaultEntry)
	assert.False(t, cfg.Execution.EnableTrace)

	assert.Equal(t, uint32(4), cfg.Memory.ROMWaitNonSeq)
	assert.Equal(t, uint32(2), cfg.Memory.ROMWaitSeq)
	assert.True(t, cfg.Memory.EnableSRAM)

	assert.Equal(t, 1000, cfg.Debugger.HistorySize)
	assert.True(t, cfg.Debugger.ShowRegisters)

	assert.Equal(t, 16, cfg.Display.BytesPerLine)
	assert.Equal(t, "hex", cfg.Display.NumberFormat)

	assert.Equal(t, 100000, cfg.Trace.MaxEntries)
	assert.Equal(t, "json", cfg.Statistics.Format)
}

func TestGetConfigPath(t *testing.T) {
	path := GetConfigPath()
	assert.NotEmpty(t, path)
	assert.Equal(t, "config.toml", filepath.Base(path))
}

func TestGetLogPath(t *testing.T) {
	path := GetLogPath()
	assert.NotEmpty(t, path)
}

func TestSaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test_config.toml")

	cfg := DefaultConfig()
	cfg.Execution.MaxCycles = 5_000_000
	cfg.Execution.EnableTrace = true
	cfg.Memory.ROMWaitNonSeq = 2
	cfg.Memory.EnableSRAM = false
	cfg.Trace.FilterRegs = "R0,R1,PC"

	require.NoError(t, cfg.SaveTo(configPath))
	_, err := os.Stat(configPath)
	require.NoError(t, err)

	loaded, err := LoadFrom(configPath)
	require.NoError(t, err)

	assert.Equal(t, uint64(5_000_000), loaded.Execution.MaxCycles)
	assert.True(t, loaded.Execution.EnableTrace)
	assert.Equal(t, uint32(2), loaded.Memory.ROMWaitNonSeq)
	assert.False(t, loaded.Memory.EnableSRAM)
	assert.Equal(t, "R0,R1,PC", loaded.Trace.FilterRegs)
}

func TestLoadNonExistent(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "nonexistent.toml")

	cfg, err := LoadFrom(configPath)
	require.NoError(t, err)
	assert.Equal(t, uint64(16_780_000), cfg.Execution.MaxCycles)
}

func TestLoadInvalidTOML(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "invalid.toml")

	invalidTOML := `
[execution]
max_cycles = "not a number"
`
	require.NoError(t, os.WriteFile(configPath, []byte(invalidTOML), 0644))

	_, err := LoadFrom(configPath)
	assert.Error(t, err)
}

func TestSaveCreatesDirectory(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "subdir1", "subdir2", "config.toml")

	cfg := DefaultConfig()
	require.NoError(t, cfg.SaveTo(configPath))

	_, err := os.Stat(configPath)
	require.NoError(t, err)
}
