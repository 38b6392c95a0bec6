package view

import "gofeat/common"

// MappedView presents raw bytes as a flat image loaded at address zero
// with a declared architecture: the shellcode case. It has no symbols and
// no sections, only one segment covering the whole buffer.
type MappedView struct {
	data []byte
	arch string
}

func NewMappedView(data []byte, arch string) *MappedView {
	return &MappedView{data: data, arch: arch}
}

func (v *MappedView) Type() string                      { return TypeMapped }
func (v *MappedView) Arch() string                      { return v.arch }
func (v *MappedView) Start() uint64                     { return 0 }
func (v *MappedView) HasDatabase() bool                 { return false }
func (v *MappedView) HasTruncatedForwarderNames() bool  { return false }
func (v *MappedView) Sections() []Section               { return nil }
func (v *MappedView) SymbolsByKind(SymbolKind) []Symbol { return nil }

func (v *MappedView) Segments() []Segment {
	return []Segment{{Start: 0, Length: uint64(len(v.data))}}
}

func (v *MappedView) Strings() []String {
	return scanViewStrings(v.data)
}

func (v *MappedView) Read(addr, n uint64) []byte {
	return readFlat(v.data, addr, n)
}

// RawView presents bytes the backend could not differentiate at all: no
// declared architecture and no determinable format.
type RawView struct {
	data []byte
}

func NewRawView(data []byte) *RawView {
	return &RawView{data: data}
}

func (v *RawView) Type() string                      { return TypeRaw }
func (v *RawView) Arch() string                      { return "" }
func (v *RawView) Start() uint64                     { return 0 }
func (v *RawView) HasDatabase() bool                 { return false }
func (v *RawView) HasTruncatedForwarderNames() bool  { return false }
func (v *RawView) Sections() []Section               { return nil }
func (v *RawView) SymbolsByKind(SymbolKind) []Symbol { return nil }

func (v *RawView) Segments() []Segment {
	return []Segment{{Start: 0, Length: uint64(len(v.data))}}
}

func (v *RawView) Strings() []String {
	return scanViewStrings(v.data)
}

func (v *RawView) Read(addr, n uint64) []byte {
	return readFlat(v.data, addr, n)
}

func scanViewStrings(data []byte) []String {
	hits := common.ScanStrings(data)
	out := make([]String, len(hits))
	for i, h := range hits {
		out[i] = String{Value: h.Value, Offset: h.Offset}
	}
	return out
}

func readFlat(data []byte, addr, n uint64) []byte {
	if addr >= uint64(len(data)) {
		return nil
	}
	end := addr + n
	if end > uint64(len(data)) {
		end = uint64(len(data))
	}
	return data[addr:end]
}
