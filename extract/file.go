// Package extract turns a backend view into a stream of file-level
// feature observations for capability matching. Handlers are pure: they
// never mutate the view and share no state, so the whole extraction is a
// pull-based lazy sequence a caller can abandon at any point.
package extract

import (
	"fmt"
	"iter"
	"strings"

	"gofeat/common"
	"gofeat/view"
)

// handler produces the file-scope observations of one concern.
type handler func(v view.View) iter.Seq2[common.Observation, error]

// fileHandlers fixes the relative emission order; the handlers themselves
// are independent of each other.
var fileHandlers = []handler{
	embeddedExecutables,
	exportNames,
	importNames,
	sectionNames,
	fileStrings,
	functionNames,
	fileFormat,
}

// FileFeatures runs every file-scope handler in fixed order and
// concatenates their output into one lazy sequence. A handler error ends
// the sequence at that point; observations already yielded stand, and a
// caller that stops ranging early never pays for later handlers.
func FileFeatures(v view.View) iter.Seq2[common.Observation, error] {
	return func(yield func(common.Observation, error) bool) {
		for _, h := range fileHandlers {
			for obs, err := range h(v) {
				if !yield(obs, err) {
					return
				}
				if err != nil {
					return
				}
			}
		}
	}
}

func pair(f common.Feature, a common.Address) common.Observation {
	return common.Observation{Feature: f, Address: a}
}

// embeddedExecutables carves every segment for embedded PE headers. The
// first segment of a PE image is scanned from offset one so the image's
// own header does not count as embedded.
func embeddedExecutables(v view.View) iter.Seq2[common.Observation, error] {
	return func(yield func(common.Observation, error) bool) {
		for _, seg := range v.Segments() {
			var start uint64
			if v.Type() == view.TypePE && seg.Start == v.Start() {
				start = 1
			}
			buf := v.Read(seg.Start, seg.Length)
			for off := range common.CarvePE(buf, start) {
				obs := pair(common.Characteristic("embedded pe"),
					common.FileOffsetAddress(seg.Start+off))
				if !yield(obs, nil) {
					return
				}
			}
		}
	}
}

// exportNames emits exported symbol names. Forwarded exports yield the
// forwarder target plus a characteristic; regular exports also yield the
// unmangled spelling when it differs.
func exportNames(v view.View) iter.Seq2[common.Observation, error] {
	return func(yield func(common.Observation, error) bool) {
		var syms []view.Symbol
		syms = append(syms, v.SymbolsByKind(view.SymbolFunction)...)
		syms = append(syms, v.SymbolsByKind(view.SymbolData)...)
		for _, sym := range syms {
			if sym.Binding != view.BindingGlobal && sym.Binding != view.BindingWeak {
				continue
			}
			name := sym.ShortName
			addr := common.AbsoluteVirtualAddress(sym.Address)
			if strings.HasPrefix(name, view.ForwarderPrefix+"(") && strings.HasSuffix(name, ")") {
				inner := name[len(view.ForwarderPrefix)+1 : len(name)-1]
				if !yield(pair(common.Export(inner), addr), nil) {
					return
				}
				if !yield(pair(common.Characteristic("forwarded export"), addr), nil) {
					return
				}
				continue
			}
			if !yield(pair(common.Export(name), addr), nil) {
				return
			}
			if unmangled := common.Unmangle(name); unmangled != name {
				if !yield(pair(common.Export(unmangled), addr), nil) {
					return
				}
			}
		}

		if !v.HasTruncatedForwarderNames() {
			return
		}
		// The backend truncated the forwarder payload out of the symbol
		// name; the full "<module>.<function>" string lives at the
		// symbol's address instead.
		for _, sym := range v.SymbolsByKind(view.SymbolData) {
			if sym.Binding != view.BindingGlobal {
				continue
			}
			name := sym.ShortName
			if !strings.HasPrefix(name, view.ForwarderPrefix) || strings.HasSuffix(name, ")") {
				continue
			}
			raw := readBoundedString(v, sym.Address, 1024)
			forwarded := common.ReformatForwardedExport(raw)
			addr := common.AbsoluteVirtualAddress(sym.Address)
			if !yield(pair(common.Export(forwarded), addr), nil) {
				return
			}
			if !yield(pair(common.Characteristic("forwarded export"), addr), nil) {
				return
			}
		}
	}
}

// importNames emits both the library-qualified and bare name of every
// import-address symbol, plus the ordinal spellings ("LIB.#5", "#5") when
// the symbol carries an ordinal.
func importNames(v view.View) iter.Seq2[common.Observation, error] {
	return func(yield func(common.Observation, error) bool) {
		for _, sym := range v.SymbolsByKind(view.SymbolImportAddress) {
			addr := common.AbsoluteVirtualAddress(sym.Address)
			for _, name := range common.GenerateSymbolNames(sym.Library, sym.ShortName, true) {
				if !yield(pair(common.Import(name), addr), nil) {
					return
				}
			}
			if sym.Ordinal != 0 && sym.Library != "" {
				ordinal := common.FormatOrdinal(sym.Ordinal)
				for _, name := range common.GenerateSymbolNames(sym.Library, ordinal, true) {
					if !yield(pair(common.Import(name), addr), nil) {
						return
					}
				}
			}
		}
	}
}

func sectionNames(v view.View) iter.Seq2[common.Observation, error] {
	return func(yield func(common.Observation, error) bool) {
		for _, sec := range v.Sections() {
			if sec.Name == "" {
				continue
			}
			obs := pair(common.Section(sec.Name), common.AbsoluteVirtualAddress(sec.Start))
			if !yield(obs, nil) {
				return
			}
		}
	}
}

func fileStrings(v view.View) iter.Seq2[common.Observation, error] {
	return func(yield func(common.Observation, error) bool) {
		for _, s := range v.Strings() {
			obs := pair(common.String(s.Value), common.FileOffsetAddress(s.Offset))
			if !yield(obs, nil) {
				return
			}
		}
	}
}

// functionNames emits the names of functions and statically linked library
// routines. A name carrying a linker underscore prefix is also emitted
// without it, so rules match either spelling.
func functionNames(v view.View) iter.Seq2[common.Observation, error] {
	return func(yield func(common.Observation, error) bool) {
		var syms []view.Symbol
		syms = append(syms, v.SymbolsByKind(view.SymbolLibraryFunction)...)
		syms = append(syms, v.SymbolsByKind(view.SymbolFunction)...)
		for _, sym := range syms {
			name := sym.ShortName
			addr := common.AbsoluteVirtualAddress(sym.Address)
			if !yield(pair(common.FunctionName(name), addr), nil) {
				return
			}
			if strings.HasPrefix(name, "_") {
				if !yield(pair(common.FunctionName(name[1:]), addr), nil) {
					return
				}
			}
		}
	}
}

// fileFormat classifies the artifact's container format. Raw views have no
// determinable format and emit nothing; an unrecognized view type or an
// unmapped-shellcode architecture outside x86/x86_64 is a caller-visible
// error, since misclassifying a format would corrupt all downstream
// matching.
func fileFormat(v view.View) iter.Seq2[common.Observation, error] {
	return func(yield func(common.Observation, error) bool) {
		if v.HasDatabase() {
			if !yield(pair(common.Format(common.FormatDB), common.NoAddress), nil) {
				return
			}
		}
		switch t := v.Type(); t {
		case view.TypePE, view.TypeCOFF:
			yield(pair(common.Format(common.FormatPE), common.NoAddress), nil)
		case view.TypeELF:
			yield(pair(common.Format(common.FormatELF), common.NoAddress), nil)
		case view.TypeMapped:
			switch arch := v.Arch(); arch {
			case view.ArchX86:
				yield(pair(common.Format(common.FormatSC32), common.NoAddress), nil)
			case view.ArchX8664:
				yield(pair(common.Format(common.FormatSC64), common.NoAddress), nil)
			default:
				yield(common.Observation{}, fmt.Errorf("%w: raw file with arch %q", common.ErrUnsupportedArch, arch))
			}
		case view.TypeRaw:
			// nothing to report, and that is fine
		default:
			yield(common.Observation{}, fmt.Errorf("%w: %q", common.ErrUnsupportedFormat, t))
		}
	}
}
