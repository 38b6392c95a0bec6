package pevw

import (
	"encoding/binary"

	"gofeat/view"
)

// IMAGE_DIRECTORY_ENTRY_IMPORT
const importDirIndex = 1

// importDescriptor is the IMAGE_IMPORT_DESCRIPTOR layout.
const importDescSize = 20

// parseImports walks the import descriptor table and its thunks so every
// import gets its IAT slot address and, for ordinal imports, the ordinal.
// debug/pe's ImportedSymbols reports names only, which is not enough here.
func (v *PEView) parseImports() {
	dirRVA, _, ok := v.dataDirectory(importDirIndex)
	if !ok {
		return
	}

	ptrSize := uint32(4)
	ordinalBit := uint64(1) << 31
	if v.is64 {
		ptrSize = 8
		ordinalBit = uint64(1) << 63
	}

	for desc := dirRVA; ; desc += importDescSize {
		off, avail, ok := v.rvaToOffset(desc)
		if !ok || avail < importDescSize {
			return
		}
		d := v.raw[off : off+importDescSize]
		originalFirstThunk := binary.LittleEndian.Uint32(d[0:])
		nameRVA := binary.LittleEndian.Uint32(d[12:])
		firstThunk := binary.LittleEndian.Uint32(d[16:])
		if nameRVA == 0 && firstThunk == 0 {
			return
		}

		library := v.cstringAt(nameRVA)
		lookup := originalFirstThunk
		if lookup == 0 {
			lookup = firstThunk
		}

		for i := uint32(0); ; i++ {
			tOff, tAvail, ok := v.rvaToOffset(lookup + i*ptrSize)
			if !ok || tAvail < uint64(ptrSize) {
				break
			}
			var entry uint64
			if v.is64 {
				entry = binary.LittleEndian.Uint64(v.raw[tOff:])
			} else {
				entry = uint64(binary.LittleEndian.Uint32(v.raw[tOff:]))
			}
			if entry == 0 {
				break
			}

			sym := view.Symbol{
				Kind:    view.SymbolImportAddress,
				Library: library,
				Address: v.imageBase + uint64(firstThunk) + uint64(i*ptrSize),
			}
			if entry&ordinalBit != 0 {
				sym.Ordinal = uint32(entry & 0xffff)
			} else {
				// hint/name entry: two hint bytes then the name
				sym.ShortName = v.cstringAt(uint32(entry&0x7fffffff) + 2)
			}
			v.symbols[view.SymbolImportAddress] = append(v.symbols[view.SymbolImportAddress], sym)
		}
	}
}
