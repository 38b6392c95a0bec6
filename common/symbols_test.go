package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSymbolNames(t *testing.T) {
	assert.Equal(t,
		[]string{"KERNEL32.CreateFileA", "CreateFileA"},
		GenerateSymbolNames("KERNEL32.dll", "CreateFileA", true))

	assert.Equal(t,
		[]string{"CreateFileA"},
		GenerateSymbolNames("KERNEL32.dll", "CreateFileA", false))

	// no library: only the bare name, qualified form never emitted
	assert.Equal(t,
		[]string{"memcpy"},
		GenerateSymbolNames("", "memcpy", true))

	// path prefixes are stripped along with the extension
	assert.Equal(t,
		[]string{"USER32.MessageBoxA", "MessageBoxA"},
		GenerateSymbolNames(`C:\Windows\System32\USER32.dll`, "MessageBoxA", true))

	// empty symbol names never surface
	assert.Empty(t, GenerateSymbolNames("KERNEL32.dll", "", true))
}

func TestTrimLibraryName(t *testing.T) {
	assert.Equal(t, "KERNEL32", TrimLibraryName("KERNEL32.dll"))
	assert.Equal(t, "libc.so", TrimLibraryName("libc.so.6"))
	assert.Equal(t, "libm", TrimLibraryName("/usr/lib/libm.so"))
	assert.Equal(t, "plain", TrimLibraryName("plain"))
}

func TestFormatOrdinal(t *testing.T) {
	assert.Equal(t, "#17", FormatOrdinal(17))
}

func TestReformatForwardedExport(t *testing.T) {
	assert.Equal(t, "USER32.MessageBoxA", ReformatForwardedExport("USER32.dll.MessageBoxA"))
	assert.Equal(t, "NTDLL.RtlAllocateHeap", ReformatForwardedExport("NTDLL.RtlAllocateHeap"))
	// no separator: tolerated, passed through unchanged
	assert.Equal(t, "bogus", ReformatForwardedExport("bogus"))
}

func TestUnmangle(t *testing.T) {
	cases := map[string]string{
		"CreateFileA":            "CreateFileA",
		"_fwrite":                "fwrite",
		"_CreateFileA@24":        "CreateFileA",
		"@fastcall_entry@8":      "fastcall_entry",
		"DllMain@12":             "DllMain",
		"__security_init_cookie": "__security_init_cookie",
		"_ZN3foo3barEv":          "_ZN3foo3barEv",
		"?func@@YAXXZ":           "?func@@YAXXZ",
		"":                       "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Unmangle(in), "input %q", in)
	}
}

func TestUnmangleIdempotent(t *testing.T) {
	inputs := []string{
		"CreateFileA", "_fwrite", "_CreateFileA@24", "@fastcall_entry@8",
		"__security_init_cookie", "_ZN3foo3barEv", "?func@@YAXXZ", "x", "",
	}
	for _, in := range inputs {
		once := Unmangle(in)
		assert.Equal(t, once, Unmangle(once), "input %q", in)
	}
}
