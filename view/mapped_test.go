package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMappedView(t *testing.T) {
	data := []byte("payload here")
	v := NewMappedView(data, ArchX8664)

	assert.Equal(t, TypeMapped, v.Type())
	assert.Equal(t, ArchX8664, v.Arch())
	assert.Equal(t, uint64(0), v.Start())
	assert.False(t, v.HasDatabase())
	assert.False(t, v.HasTruncatedForwarderNames())
	assert.Empty(t, v.Sections())
	assert.Empty(t, v.SymbolsByKind(SymbolFunction))

	assert.Equal(t, []Segment{{Start: 0, Length: uint64(len(data))}}, v.Segments())
	assert.Equal(t, []byte("load"), v.Read(3, 4))
	assert.Equal(t, []byte("here"), v.Read(8, 100))
	assert.Nil(t, v.Read(uint64(len(data)), 1))
}

func TestMappedViewStrings(t *testing.T) {
	v := NewMappedView([]byte("\x00\x01some text\xff"), ArchX86)
	strs := v.Strings()
	assert.Len(t, strs, 1)
	assert.Equal(t, "some text", strs[0].Value)
	assert.Equal(t, uint64(2), strs[0].Offset)
}

func TestRawView(t *testing.T) {
	data := []byte{0x90, 0x90, 0xc3}
	v := NewRawView(data)

	assert.Equal(t, TypeRaw, v.Type())
	assert.Equal(t, "", v.Arch())
	assert.Equal(t, []Segment{{Start: 0, Length: 3}}, v.Segments())
	assert.Equal(t, data, v.Read(0, 3))
}

func TestForwardedExportName(t *testing.T) {
	name := ForwardedExportName("USER32.MessageBoxA")
	assert.Equal(t, "__forwarder_name(USER32.MessageBoxA)", name)
}
