package common

import (
	"fmt"
	"regexp"
	"strings"
)

// TrimLibraryName strips any directory prefix and a trailing file extension
// from a library name, preserving case: "C:\sys\KERNEL32.dll" -> "KERNEL32".
func TrimLibraryName(library string) string {
	if i := strings.LastIndexAny(library, `/\`); i >= 0 {
		library = library[i+1:]
	}
	if i := strings.LastIndex(library, "."); i > 0 {
		library = library[:i]
	}
	return library
}

// GenerateSymbolNames yields the name variants rule authors match on for a
// symbol imported from (or exported by) a library: the library-qualified
// form when requested and the library is known, then always the bare name.
func GenerateSymbolNames(library, symbol string, includeDLL bool) []string {
	if symbol == "" {
		return nil
	}
	names := make([]string, 0, 2)
	if lib := TrimLibraryName(library); includeDLL && lib != "" {
		names = append(names, lib+"."+symbol)
	}
	return append(names, symbol)
}

// FormatOrdinal renders an export-table ordinal as a symbol name.
// Callers only pass non-zero ordinals; zero means "no ordinal".
func FormatOrdinal(ordinal uint32) string {
	return fmt.Sprintf("#%d", ordinal)
}

// ReformatForwardedExport normalizes a forwarder target string reported as
// "<module>.<function>", where the module may carry a file extension:
// "USER32.dll.MessageBoxA" -> "USER32.MessageBoxA". A string with no
// separator is returned unchanged.
func ReformatForwardedExport(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return name
	}
	return parts[0] + "." + parts[len(parts)-1]
}

// cDecoration matches C-level symbol decoration: an optional cdecl/fastcall
// prefix and an optional stdcall "@N" byte-count suffix.
var cDecoration = regexp.MustCompile(`^[_@]?([A-Za-z][A-Za-z0-9_]*?)(?:@\d+)?$`)

// Unmangle strips recognized C-level decoration from a symbol name:
// "_CreateFileA@24" -> "CreateFileA". Full C++ manglings (Itanium "_ZN...",
// MSVC "?...") and anything else unrecognized pass through unchanged.
// Applying Unmangle twice is the same as applying it once.
func Unmangle(name string) string {
	if strings.HasPrefix(name, "_ZN") || strings.HasPrefix(name, "?") {
		return name
	}
	m := cDecoration.FindStringSubmatch(name)
	if m == nil {
		return name
	}
	return m[1]
}
