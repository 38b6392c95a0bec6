package pevw

import (
	"strings"

	"gofeat/view"
)

// COFF symbol table constants debug/pe leaves to callers.
const (
	symClassExternal = 2    // IMAGE_SYM_CLASS_EXTERNAL
	symClassStatic   = 3    // IMAGE_SYM_CLASS_STATIC
	symDtypeFunction = 0x20 // complex type: function
)

// parseCOFFSymbols folds the COFF symbol table (present in object files
// and unstripped images) into the view's symbol map.
func (v *PEView) parseCOFFSymbols() {
	for _, s := range v.file.Symbols {
		if s == nil || s.SectionNumber <= 0 || int(s.SectionNumber) > len(v.sections) {
			continue
		}
		sec := v.sections[s.SectionNumber-1]

		kind := view.SymbolData
		if s.Type&0xf0 == symDtypeFunction {
			kind = view.SymbolFunction
		}
		binding := view.BindingLocal
		if s.StorageClass == symClassExternal {
			binding = view.BindingGlobal
		}

		name := strings.TrimRight(s.Name, "\x00")
		if name == "" {
			continue
		}
		v.symbols[kind] = append(v.symbols[kind], view.Symbol{
			ShortName: name,
			Kind:      kind,
			Binding:   binding,
			Address:   v.imageBase + uint64(sec.virtAddr) + uint64(s.Value),
		})
	}
}
