// Package elfvw opens ELF objects as read-only backend views. Layout
// (sections, program headers) comes from elf_reader over the raw bytes;
// symbol and import enumeration comes from debug/elf.
package elfvw

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/yalue/elf_reader"

	"gofeat/common"
	"gofeat/view"
)

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

// elfSegment is one loadable program header's mapping.
type elfSegment struct {
	vaddr    uint64
	fileOff  uint64
	fileSize uint64
}

// ELFView is a read-only view of an ELF executable or shared object.
type ELFView struct {
	raw      []byte
	elf      elf_reader.ELFFile
	file     *elf.File
	arch     string
	segments []elfSegment
	sections []view.Section
	symbols  map[view.SymbolKind][]view.Symbol
}

// Detect reports whether raw starts with the ELF magic.
func Detect(raw []byte) bool {
	return len(raw) >= 4 && bytes.Equal(raw[:4], elfMagic)
}

// Open reads and parses the ELF object at path.
func Open(path string) (*ELFView, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return New(raw)
}

// New parses an ELF object already loaded into memory.
func New(raw []byte) (*ELFView, error) {
	ef, err := elf_reader.ParseELFFile(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ELF file: %w", err)
	}
	df, err := elf.NewFile(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ELF file: %w", err)
	}

	v := &ELFView{
		raw:     raw,
		elf:     ef,
		file:    df,
		arch:    mapArch(df.Machine),
		symbols: make(map[view.SymbolKind][]view.Symbol),
	}
	v.parseSegments()
	v.parseSections()
	v.parseSymbols()
	v.parseImports()
	return v, nil
}

var machineMap = map[elf.Machine]string{
	elf.EM_386:     view.ArchX86,
	elf.EM_X86_64:  view.ArchX8664,
	elf.EM_ARM:     "arm",
	elf.EM_AARCH64: "aarch64",
	elf.EM_MIPS:    "mips",
	elf.EM_PPC:     "ppc",
	elf.EM_PPC64:   "ppc64",
}

func mapArch(m elf.Machine) string {
	if name, ok := machineMap[m]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(m))
}

func (v *ELFView) parseSegments() {
	count := v.elf.GetSegmentCount()
	for i := uint16(0); i < count; i++ {
		phdr, err := v.elf.GetProgramHeader(i)
		if err != nil {
			continue
		}
		// PT_LOAD only: everything else aliases the same bytes
		if phdr.GetType() != elf_reader.ProgramHeaderType(1) {
			continue
		}
		v.segments = append(v.segments, elfSegment{
			vaddr:    phdr.GetVirtualAddress(),
			fileOff:  phdr.GetFileOffset(),
			fileSize: phdr.GetFileSize(),
		})
	}
}

func (v *ELFView) parseSections() {
	count := v.elf.GetSectionCount()
	for i := uint16(1); i < count; i++ {
		header, err := v.elf.GetSectionHeader(i)
		if err != nil {
			continue
		}
		name, err := v.elf.GetSectionName(i)
		if err != nil || name == "" {
			continue
		}
		v.sections = append(v.sections, view.Section{
			Name:  name,
			Start: header.GetVirtualAddress(),
		})
	}
}

func (v *ELFView) parseSymbols() {
	syms, err := v.file.Symbols()
	if err != nil {
		syms = nil
	}
	dyns, err := v.file.DynamicSymbols()
	if err != nil {
		dyns = nil
	}
	for _, s := range append(syms, dyns...) {
		if s.Name == "" {
			continue
		}
		var kind view.SymbolKind
		switch elf.ST_TYPE(s.Info) {
		case elf.STT_FUNC:
			kind = view.SymbolFunction
		case elf.STT_OBJECT:
			kind = view.SymbolData
		default:
			continue
		}
		binding := view.BindingLocal
		switch elf.ST_BIND(s.Info) {
		case elf.STB_GLOBAL:
			binding = view.BindingGlobal
		case elf.STB_WEAK:
			binding = view.BindingWeak
		}
		v.symbols[kind] = append(v.symbols[kind], view.Symbol{
			ShortName: s.Name,
			Kind:      kind,
			Binding:   binding,
			Address:   s.Value,
		})
	}
}

func (v *ELFView) parseImports() {
	imports, err := v.file.ImportedSymbols()
	if err != nil {
		return
	}
	slots := v.relocatedSlots()
	dyns, err := v.file.DynamicSymbols()
	if err != nil {
		dyns = nil
	}

	// ImportedSymbols is the in-order subset of the dynamic symbol table
	// with an undefined section and a name; walking both in lockstep
	// recovers each import's dynsym index for the relocation lookup.
	idx := 0
	for i, ds := range dyns {
		if ds.Section != elf.SHN_UNDEF || ds.Name == "" {
			continue
		}
		if idx >= len(imports) {
			break
		}
		is := imports[idx]
		idx++
		v.symbols[view.SymbolImportAddress] = append(v.symbols[view.SymbolImportAddress], view.Symbol{
			ShortName: is.Name,
			Kind:      view.SymbolImportAddress,
			Library:   is.Library,
			Address:   slots[uint32(i+1)],
		})
	}
	// no dynamic symbol table to walk: keep the imports, without slots
	for ; idx < len(imports); idx++ {
		is := imports[idx]
		v.symbols[view.SymbolImportAddress] = append(v.symbols[view.SymbolImportAddress], view.Symbol{
			ShortName: is.Name,
			Kind:      view.SymbolImportAddress,
			Library:   is.Library,
		})
	}
}

// relocatedSlots maps dynamic-symbol indexes to the GOT/PLT slot address
// their relocation writes, so imports get the address rules match on.
func (v *ELFView) relocatedSlots() map[uint32]uint64 {
	slots := make(map[uint32]uint64)
	names := []string{".rela.plt", ".rela.dyn"}
	if v.file.Class == elf.ELFCLASS32 {
		names = []string{".rel.plt", ".rel.dyn"}
	}
	for _, name := range names {
		s := v.file.Section(name)
		if s == nil {
			continue
		}
		data, err := s.Data()
		if err != nil {
			continue
		}
		relocSlots(v.file.Class, v.file.ByteOrder, data, slots)
	}
	return slots
}

// relocSlots folds one relocation section's entries into slots, keyed by
// dynsym index. Earlier sections win: the .plt slot is the one the program
// calls through, so it takes precedence over a .dyn entry for the same
// symbol. Handles RELA entries for 64-bit classes and REL for 32-bit,
// which covers the layouts the supported architectures emit.
func relocSlots(class elf.Class, bo binary.ByteOrder, data []byte, slots map[uint32]uint64) {
	if class == elf.ELFCLASS64 {
		for off := 0; off+24 <= len(data); off += 24 {
			addr := bo.Uint64(data[off:])
			sym := uint32(bo.Uint64(data[off+8:]) >> 32)
			if sym == 0 {
				continue
			}
			if _, ok := slots[sym]; !ok {
				slots[sym] = addr
			}
		}
		return
	}
	for off := 0; off+8 <= len(data); off += 8 {
		addr := uint64(bo.Uint32(data[off:]))
		sym := bo.Uint32(data[off+4:]) >> 8
		if sym == 0 {
			continue
		}
		if _, ok := slots[sym]; !ok {
			slots[sym] = addr
		}
	}
}

func (v *ELFView) Type() string                     { return view.TypeELF }
func (v *ELFView) Arch() string                     { return v.arch }
func (v *ELFView) HasDatabase() bool                { return false }
func (v *ELFView) HasTruncatedForwarderNames() bool { return false }

func (v *ELFView) Start() uint64 {
	var start uint64
	for i, seg := range v.segments {
		if i == 0 || seg.vaddr < start {
			start = seg.vaddr
		}
	}
	return start
}

func (v *ELFView) Segments() []view.Segment {
	out := make([]view.Segment, 0, len(v.segments))
	for _, seg := range v.segments {
		out = append(out, view.Segment{Start: seg.vaddr, Length: seg.fileSize})
	}
	return out
}

func (v *ELFView) Sections() []view.Section {
	return v.sections
}

func (v *ELFView) SymbolsByKind(k view.SymbolKind) []view.Symbol {
	return v.symbols[k]
}

func (v *ELFView) Strings() []view.String {
	hits := common.ScanStrings(v.raw)
	out := make([]view.String, len(hits))
	for i, h := range hits {
		out[i] = view.String{Value: h.Value, Offset: h.Offset}
	}
	return out
}

// Read serves up to n bytes mapped at addr, resolved through the loadable
// program headers into the file image.
func (v *ELFView) Read(addr, n uint64) []byte {
	for _, seg := range v.segments {
		if addr < seg.vaddr || addr >= seg.vaddr+seg.fileSize {
			continue
		}
		delta := addr - seg.vaddr
		off := seg.fileOff + delta
		if off >= uint64(len(v.raw)) {
			return nil
		}
		avail := seg.fileSize - delta
		if left := uint64(len(v.raw)) - off; avail > left {
			avail = left
		}
		if n > avail {
			n = avail
		}
		return v.raw[off : off+n]
	}
	return nil
}
