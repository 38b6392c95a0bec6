package common

import "fmt"

// FeatureKind discriminates the kinds of file-level facts extraction can
// report about a binary.
type FeatureKind int

const (
	FeatureExport FeatureKind = iota
	FeatureImport
	FeatureSection
	FeatureFunctionName
	FeatureString
	FeatureCharacteristic
	FeatureFormat
)

func (k FeatureKind) String() string {
	switch k {
	case FeatureExport:
		return "export"
	case FeatureImport:
		return "import"
	case FeatureSection:
		return "section"
	case FeatureFunctionName:
		return "function name"
	case FeatureString:
		return "string"
	case FeatureCharacteristic:
		return "characteristic"
	case FeatureFormat:
		return "format"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Feature is a single typed fact about a binary. Features are plain values:
// two features are the same fact exactly when they compare equal.
type Feature struct {
	Kind  FeatureKind
	Value string
}

func (f Feature) String() string {
	return fmt.Sprintf("%s(%s)", f.Kind, f.Value)
}

func Export(name string) Feature          { return Feature{FeatureExport, name} }
func Import(name string) Feature          { return Feature{FeatureImport, name} }
func Section(name string) Feature         { return Feature{FeatureSection, name} }
func FunctionName(name string) Feature    { return Feature{FeatureFunctionName, name} }
func String(value string) Feature         { return Feature{FeatureString, value} }
func Characteristic(label string) Feature { return Feature{FeatureCharacteristic, label} }
func Format(label string) Feature         { return Feature{FeatureFormat, label} }

// Format labels reported by the format feature.
const (
	FormatPE   = "pe"
	FormatELF  = "elf"
	FormatSC32 = "sc32"
	FormatSC64 = "sc64"
	// FormatDB marks views restored from a persisted analysis database.
	// The label is kept verbatim so existing capability rules keep matching.
	FormatDB = "binja-db"
)

// AddressKind discriminates how an Address locates an observation.
type AddressKind int

const (
	AddrNone AddressKind = iota
	AddrAbsoluteVirtual
	AddrFileOffset
)

// Address says where in the artifact a feature was observed: at a
// loaded-image virtual address, at a raw file offset, or nowhere in
// particular (file-global facts). Exactly one kind applies per observation.
type Address struct {
	Kind  AddressKind
	Value uint64
}

// NoAddress marks file-global observations not tied to a location.
var NoAddress = Address{Kind: AddrNone}

func AbsoluteVirtualAddress(v uint64) Address {
	return Address{Kind: AddrAbsoluteVirtual, Value: v}
}

func FileOffsetAddress(v uint64) Address {
	return Address{Kind: AddrFileOffset, Value: v}
}

func (a Address) String() string {
	switch a.Kind {
	case AddrAbsoluteVirtual:
		return fmt.Sprintf("va:0x%x", a.Value)
	case AddrFileOffset:
		return fmt.Sprintf("file:0x%x", a.Value)
	default:
		return "-"
	}
}

// Observation is the unit of extraction output: one feature and the address
// it was observed at. No deduplication happens at this layer.
type Observation struct {
	Feature Feature
	Address Address
}

func (o Observation) String() string {
	return fmt.Sprintf("%s @ %s", o.Feature, o.Address)
}
