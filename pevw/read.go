// Package pevw opens PE and COFF images as read-only backend views. It
// parses with debug/pe where that suffices and walks the raw bytes for
// the structures debug/pe does not expose (export directory, import
// thunks).
package pevw

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/lunixbochs/struc"

	"gofeat/common"
	"gofeat/view"
)

// dosHeader is the legacy header at the start of every PE image. Only the
// magic and the PE-header pointer matter here.
type dosHeader struct {
	Magic   uint16
	Skipped [58]byte
	Lfanew  uint32
}

const dosMagic = 0x5a4d // "MZ"

// peSection keeps the raw layout data needed to resolve virtual addresses
// into the file image.
type peSection struct {
	name      string
	virtAddr  uint32
	virtSize  uint32
	rawOffset uint32
	rawSize   uint32
}

// PEView is a read-only view of a PE or COFF image.
type PEView struct {
	raw           []byte
	file          *pe.File
	viewType      string
	is64          bool
	imageBase     uint64
	sizeOfHeaders uint32
	arch          string
	sections      []peSection
	symbols       map[view.SymbolKind][]view.Symbol
}

// Detect reports whether raw starts with a consistent MZ/PE header pair.
func Detect(raw []byte) bool {
	if len(raw) < 0x40 || raw[0] != 'M' || raw[1] != 'Z' {
		return false
	}
	off := binary.LittleEndian.Uint32(raw[0x3c:])
	if uint64(off)+4 > uint64(len(raw)) {
		return false
	}
	return bytes.Equal(raw[off:off+4], []byte("PE\x00\x00"))
}

// coffMachines are the machine values accepted when sniffing a bare COFF
// object, which carries no magic beyond its machine field.
var coffMachines = map[uint16]bool{
	pe.IMAGE_FILE_MACHINE_I386:  true,
	pe.IMAGE_FILE_MACHINE_AMD64: true,
	pe.IMAGE_FILE_MACHINE_ARM:   true,
	pe.IMAGE_FILE_MACHINE_ARM64: true,
}

// maxCOFFSections is the PE loader's section-count limit.
const maxCOFFSections = 96

// DetectCOFF reports whether raw plausibly starts with a bare COFF file
// header: a known machine value and a sane section count.
func DetectCOFF(raw []byte) bool {
	if len(raw) < 20 {
		return false
	}
	machine := binary.LittleEndian.Uint16(raw)
	sections := binary.LittleEndian.Uint16(raw[2:])
	return coffMachines[machine] && sections > 0 && sections <= maxCOFFSections
}

// Open reads and parses the PE image at path.
func Open(path string) (*PEView, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return New(raw)
}

// New parses a PE or COFF image already loaded into memory.
func New(raw []byte) (*PEView, error) {
	pf, err := pe.NewFile(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse PE: %w", err)
	}

	v := &PEView{
		raw:      raw,
		file:     pf,
		viewType: view.TypeCOFF,
		arch:     mapArch(pf.FileHeader.Machine),
		symbols:  make(map[view.SymbolKind][]view.Symbol),
	}

	// An executable image has a DOS stub and an optional header; a bare
	// COFF object has neither.
	if len(raw) >= 0x40 {
		var dos dosHeader
		if err := struc.UnpackWithOrder(bytes.NewReader(raw), &dos, binary.LittleEndian); err == nil && dos.Magic == dosMagic {
			v.viewType = view.TypePE
		}
	}

	switch oh := pf.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		v.imageBase = uint64(oh.ImageBase)
		v.sizeOfHeaders = oh.SizeOfHeaders
	case *pe.OptionalHeader64:
		v.is64 = true
		v.imageBase = oh.ImageBase
		v.sizeOfHeaders = oh.SizeOfHeaders
	default:
		v.viewType = view.TypeCOFF
	}

	for _, s := range pf.Sections {
		v.sections = append(v.sections, peSection{
			name:      strings.TrimRight(s.Name, "\x00"),
			virtAddr:  s.VirtualAddress,
			virtSize:  s.VirtualSize,
			rawOffset: s.Offset,
			rawSize:   s.Size,
		})
	}

	v.parseExports()
	v.parseImports()
	v.parseCOFFSymbols()
	return v, nil
}

func mapArch(machine uint16) string {
	switch machine {
	case pe.IMAGE_FILE_MACHINE_I386:
		return view.ArchX86
	case pe.IMAGE_FILE_MACHINE_AMD64:
		return view.ArchX8664
	case pe.IMAGE_FILE_MACHINE_ARM:
		return "arm"
	case pe.IMAGE_FILE_MACHINE_ARM64:
		return "aarch64"
	default:
		return fmt.Sprintf("unknown(0x%x)", machine)
	}
}

func (v *PEView) Type() string                     { return v.viewType }
func (v *PEView) Arch() string                     { return v.arch }
func (v *PEView) Start() uint64                    { return v.imageBase }
func (v *PEView) HasDatabase() bool                { return false }
func (v *PEView) HasTruncatedForwarderNames() bool { return false }

func (v *PEView) Segments() []view.Segment {
	var segs []view.Segment
	if v.sizeOfHeaders > 0 {
		length := uint64(v.sizeOfHeaders)
		if fileLen := uint64(len(v.raw)); length > fileLen {
			length = fileLen
		}
		segs = append(segs, view.Segment{Start: v.imageBase, Length: length})
	}
	for _, s := range v.sections {
		if s.rawSize == 0 {
			continue
		}
		segs = append(segs, view.Segment{
			Start:  v.imageBase + uint64(s.virtAddr),
			Length: uint64(s.rawSize),
		})
	}
	return segs
}

func (v *PEView) Sections() []view.Section {
	out := make([]view.Section, 0, len(v.sections))
	for _, s := range v.sections {
		out = append(out, view.Section{Name: s.name, Start: v.imageBase + uint64(s.virtAddr)})
	}
	return out
}

func (v *PEView) SymbolsByKind(k view.SymbolKind) []view.Symbol {
	return v.symbols[k]
}

func (v *PEView) Strings() []view.String {
	hits := common.ScanStrings(v.raw)
	out := make([]view.String, len(hits))
	for i, h := range hits {
		out[i] = view.String{Value: h.Value, Offset: h.Offset}
	}
	return out
}

// Read serves up to n bytes mapped at the virtual address addr from the
// file image. Reads stop at the end of the containing section's raw data.
func (v *PEView) Read(addr, n uint64) []byte {
	if addr < v.imageBase {
		return nil
	}
	rva := addr - v.imageBase
	if rva > 0xffffffff {
		return nil
	}
	off, avail, ok := v.rvaToOffset(uint32(rva))
	if !ok {
		return nil
	}
	if n > avail {
		n = avail
	}
	return v.raw[off : uint64(off)+n]
}

// rvaToOffset resolves a relative virtual address to a file offset and the
// number of contiguous bytes available there.
func (v *PEView) rvaToOffset(rva uint32) (uint32, uint64, bool) {
	if rva < v.sizeOfHeaders && uint64(rva) < uint64(len(v.raw)) {
		avail := uint64(v.sizeOfHeaders) - uint64(rva)
		// SizeOfHeaders is attacker-controlled and may exceed the file
		if left := uint64(len(v.raw)) - uint64(rva); avail > left {
			avail = left
		}
		return rva, avail, true
	}
	for _, s := range v.sections {
		size := s.virtSize
		if s.rawSize > size {
			size = s.rawSize
		}
		if rva < s.virtAddr || rva >= s.virtAddr+size {
			continue
		}
		delta := rva - s.virtAddr
		if delta >= s.rawSize {
			return 0, 0, false
		}
		off := uint64(s.rawOffset) + uint64(delta)
		if off >= uint64(len(v.raw)) {
			return 0, 0, false
		}
		avail := uint64(s.rawSize) - uint64(delta)
		if left := uint64(len(v.raw)) - off; avail > left {
			avail = left
		}
		return uint32(off), avail, true
	}
	return 0, 0, false
}

// cstringAt reads a NUL-terminated ASCII string at an RVA, bounded by the
// containing section.
func (v *PEView) cstringAt(rva uint32) string {
	off, avail, ok := v.rvaToOffset(rva)
	if !ok {
		return ""
	}
	if avail > 4096 {
		avail = 4096
	}
	buf := v.raw[off : uint64(off)+avail]
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf)
}

// dataDirectory returns the RVA and size of one optional-header data
// directory entry, or ok=false when the image has none.
func (v *PEView) dataDirectory(index int) (uint32, uint32, bool) {
	var dirs []pe.DataDirectory
	switch oh := v.file.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		dirs = oh.DataDirectory[:]
	case *pe.OptionalHeader64:
		dirs = oh.DataDirectory[:]
	default:
		return 0, 0, false
	}
	if index >= len(dirs) {
		return 0, 0, false
	}
	d := dirs[index]
	if d.VirtualAddress == 0 || d.Size == 0 {
		return 0, 0, false
	}
	return d.VirtualAddress, d.Size, true
}
