package pevw

import (
	"bytes"
	"encoding/binary"

	"github.com/lunixbochs/struc"

	"gofeat/common"
	"gofeat/view"
)

// IMAGE_DIRECTORY_ENTRY_EXPORT
const exportDirIndex = 0

// exportDirectory is the IMAGE_EXPORT_DIRECTORY layout.
type exportDirectory struct {
	Characteristics       uint32
	TimeDateStamp         uint32
	MajorVersion          uint16
	MinorVersion          uint16
	Name                  uint32
	Base                  uint32
	NumberOfFunctions     uint32
	NumberOfNames         uint32
	AddressOfFunctions    uint32
	AddressOfNames        uint32
	AddressOfNameOrdinals uint32
}

const exportDirSize = 40

// parseExports walks the export directory, which debug/pe does not parse.
// Named exports become global function symbols; an export whose address
// lands back inside the export directory is a forwarder, reported with the
// forwarder marker name so extraction treats it uniformly; exports without
// a name are reported under their ordinal spelling.
func (v *PEView) parseExports() {
	dirRVA, dirSize, ok := v.dataDirectory(exportDirIndex)
	if !ok {
		return
	}
	off, avail, ok := v.rvaToOffset(dirRVA)
	if !ok || avail < exportDirSize {
		return
	}
	var dir exportDirectory
	r := bytes.NewReader(v.raw[off:])
	if err := struc.UnpackWithOrder(r, &dir, binary.LittleEndian); err != nil {
		return
	}
	if dir.NumberOfFunctions == 0 || dir.NumberOfFunctions > 0x10000 {
		return
	}

	funcRVA := func(i uint32) (uint32, bool) {
		o, a, ok := v.rvaToOffset(dir.AddressOfFunctions + i*4)
		if !ok || a < 4 {
			return 0, false
		}
		return binary.LittleEndian.Uint32(v.raw[o:]), true
	}

	named := make(map[uint32]bool)
	for i := uint32(0); i < dir.NumberOfNames; i++ {
		nameOff, a1, ok1 := v.rvaToOffset(dir.AddressOfNames + i*4)
		ordOff, a2, ok2 := v.rvaToOffset(dir.AddressOfNameOrdinals + i*2)
		if !ok1 || !ok2 || a1 < 4 || a2 < 2 {
			continue
		}
		name := v.cstringAt(binary.LittleEndian.Uint32(v.raw[nameOff:]))
		index := uint32(binary.LittleEndian.Uint16(v.raw[ordOff:]))
		rva, ok := funcRVA(index)
		if !ok || rva == 0 || name == "" {
			continue
		}
		named[index] = true
		v.addExport(name, rva, dir.Base+index, dirRVA, dirSize)
	}

	// Ordinal-only exports keep their slot in the address table but have
	// no name-table entry.
	for i := uint32(0); i < dir.NumberOfFunctions; i++ {
		if named[i] {
			continue
		}
		rva, ok := funcRVA(i)
		if !ok || rva == 0 {
			continue
		}
		v.addExport(common.FormatOrdinal(dir.Base+i), rva, dir.Base+i, dirRVA, dirSize)
	}
}

func (v *PEView) addExport(name string, rva, ordinal, dirRVA, dirSize uint32) {
	addr := v.imageBase + uint64(rva)
	if rva >= dirRVA && rva < dirRVA+dirSize {
		// forwarder: the slot points at a "<module>.<function>" string
		// inside the export directory instead of code
		target := common.ReformatForwardedExport(v.cstringAt(rva))
		v.symbols[view.SymbolData] = append(v.symbols[view.SymbolData], view.Symbol{
			ShortName: view.ForwardedExportName(target),
			Kind:      view.SymbolData,
			Binding:   view.BindingGlobal,
			Ordinal:   ordinal,
			Address:   addr,
		})
		return
	}
	v.symbols[view.SymbolFunction] = append(v.symbols[view.SymbolFunction], view.Symbol{
		ShortName: name,
		Kind:      view.SymbolFunction,
		Binding:   view.BindingGlobal,
		Ordinal:   ordinal,
		Address:   addr,
	})
}
