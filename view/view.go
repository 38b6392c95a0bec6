// Package view defines the read-only window extraction sees onto an
// analyzed binary artifact. Concrete views (PE, ELF, flat shellcode) live
// in their own packages; extraction code depends only on the View
// interface, so tests can drive it with synthetic in-memory views.
package view

// View types reported by Type.
const (
	TypePE     = "PE"
	TypeCOFF   = "COFF"
	TypeELF    = "ELF"
	TypeMapped = "Mapped"
	TypeRaw    = "Raw"
)

// Architecture names reported by Arch.
const (
	ArchX86   = "x86"
	ArchX8664 = "x86_64"
)

// ForwarderPrefix starts the short name of an export symbol that forwards
// to a function in another module instead of defining code itself.
const ForwarderPrefix = "__forwarder_name"

// ForwardedExportName spells the symbol short name for a forwarded export.
func ForwardedExportName(target string) string {
	return ForwarderPrefix + "(" + target + ")"
}

// SymbolKind classifies a symbol the way the backing analyzer reports it.
type SymbolKind int

const (
	SymbolFunction SymbolKind = iota
	SymbolLibraryFunction
	SymbolData
	SymbolImportAddress
)

// SymbolBinding is the linkage visibility of a symbol.
type SymbolBinding int

const (
	BindingLocal SymbolBinding = iota
	BindingGlobal
	BindingWeak
)

// Symbol is one entry of the artifact's symbol table.
type Symbol struct {
	ShortName string
	Kind      SymbolKind
	Binding   SymbolBinding
	// Library is the namespace the symbol resolves through (import
	// library, shared object), empty when there is none.
	Library string
	// Ordinal is the export-table ordinal, zero when absent.
	Ordinal uint32
	Address uint64
}

// Segment is a mapped byte range of the loaded image.
type Segment struct {
	Start  uint64
	Length uint64
}

// Section is a named region of the image.
type Section struct {
	Name  string
	Start uint64
}

// String is a printable string recovered from the artifact, located by its
// raw file offset.
type String struct {
	Value  string
	Offset uint64
}

// View is a read-only window onto an analyzed binary artifact. All methods
// are side-effect free; implementations serve everything from memory.
type View interface {
	// Type is the container/view type: TypePE, TypeCOFF, TypeELF,
	// TypeMapped or TypeRaw.
	Type() string
	// Arch is the declared architecture name, empty when undeclared.
	Arch() string
	// Start is the lowest mapped address of the image.
	Start() uint64
	// HasDatabase reports whether a persisted analysis database backs
	// this view rather than the bare artifact.
	HasDatabase() bool
	// HasTruncatedForwarderNames reports whether the backend truncates
	// forwarder symbol short names, requiring the bounded-read fallback.
	HasTruncatedForwarderNames() bool
	Segments() []Segment
	Sections() []Section
	SymbolsByKind(k SymbolKind) []Symbol
	Strings() []String
	// Read returns up to n bytes mapped at addr. Short reads are allowed;
	// unmapped addresses read as empty.
	Read(addr, n uint64) []byte
}
