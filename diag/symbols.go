// Package diag implements the tracing and statistics layer that
// observes a core.VM without altering its semantics: flag-change
// trace, register-write trace, stack-pointer-move trace, symbol
// resolution, and per-opcode performance statistics. Adapted from the
// teacher's vm/flag_trace.go, vm/register_trace.go, vm/stack_trace.go,
// vm/symbol_resolver.go, and vm/statistics.go — the register/flag
// shape those packages observe is unchanged from the teacher's ARM2
// CPU (R[15]uint32 + CPSR), so only the CPSR's extra I/F/T/Mode fields
// and the GBA symbol-table source are new plumbing here.
package diag

import (
	"fmt"
	"sort"
)

// SymbolResolver maps ROM addresses to label names (e.g. from a linked
// ELF's symbol table or a hand-maintained map) for trace annotation.
type SymbolResolver struct {
	symbols         map[string]uint32
	addressToSymbol map[uint32]string
	sortedAddresses []uint32
}

// NewSymbolResolver builds a resolver from a name->address table.
func NewSymbolResolver(symbols map[string]uint32) *SymbolResolver {
	if symbols == nil {
		symbols = make(map[string]uint32)
	}

	addressToSymbol := make(map[uint32]string, len(symbols))
	for name, addr := range symbols {
		addressToSymbol[addr] = name
	}

	sortedAddresses := make([]uint32, 0, len(addressToSymbol))
	for addr := range addressToSymbol {
		sortedAddresses = append(sortedAddresses, addr)
	}
	sort.Slice(sortedAddresses, func(i, j int) bool { return sortedAddresses[i] < sortedAddresses[j] })

	return &SymbolResolver{
		symbols:         symbols,
		addressToSymbol: addressToSymbol,
		sortedAddresses: sortedAddresses,
	}
}

// LookupAddress returns the exact symbol name for an address, if any.
func (sr *SymbolResolver) LookupAddress(address uint32) string {
	return sr.addressToSymbol[address]
}

// LookupSymbol returns the address bound to a symbol name.
func (sr *SymbolResolver) LookupSymbol(name string) (uint32, bool) {
	addr, ok := sr.symbols[name]
	return addr, ok
}

// ResolveAddress finds the nearest symbol at or before address, with
// its offset — the binary-search-over-sorted-addresses approach a ROM
// linker's symbol table (rather than a live assembler) demands.
func (sr *SymbolResolver) ResolveAddress(address uint32) (symbolName string, offset uint32, found bool) {
	if name, ok := sr.addressToSymbol[address]; ok {
		return name, 0, true
	}
	if len(sr.sortedAddresses) == 0 {
		return "", 0, false
	}

	idx := sort.Search(len(sr.sortedAddresses), func(i int) bool {
		return sr.sortedAddresses[i] > address
	})
	if idx == 0 {
		return "", 0, false
	}

	nearestAddr := sr.sortedAddresses[idx-1]
	symbolName = sr.addressToSymbol[nearestAddr]
	offset = address - nearestAddr
	return symbolName, offset, true
}

// FormatAddress renders "symbol+offset (0xADDRESS)" or, with no symbol
// match, just the hex address.
func (sr *SymbolResolver) FormatAddress(address uint32) string {
	name, offset, found := sr.ResolveAddress(address)
	if !found {
		return fmt.Sprintf("0x%08x", address)
	}
	if offset == 0 {
		return fmt.Sprintf("%s (0x%08x)", name, address)
	}
	return fmt.Sprintf("%s+%d (0x%08x)", name, offset, address)
}

// FormatAddressCompact is FormatAddress without the parenthesized hex.
func (sr *SymbolResolver) FormatAddressCompact(address uint32) string {
	name, offset, found := sr.ResolveAddress(address)
	if !found {
		return fmt.Sprintf("0x%08x", address)
	}
	if offset == 0 {
		return name
	}
	return fmt.Sprintf("%s+%d", name, offset)
}

// HasSymbols reports whether any symbols are loaded.
func (sr *SymbolResolver) HasSymbols() bool { return len(sr.symbols) > 0 }

// SymbolCount returns how many symbols are loaded.
func (sr *SymbolResolver) SymbolCount() int { return len(sr.symbols) }
