package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanStringsASCII(t *testing.T) {
	data := append([]byte{0x00, 0x01}, []byte("hello world")...)
	data = append(data, 0xff, 0xfe)
	data = append(data, []byte("second")...)

	hits := ScanStrings(data)
	assert.Equal(t, []StringHit{
		{Value: "hello world", Offset: 2},
		{Value: "second", Offset: 15},
	}, hits)
}

func TestScanStringsWide(t *testing.T) {
	data := []byte{0xff}
	for _, c := range "hiya!" {
		data = append(data, byte(c), 0x00)
	}
	data = append(data, 0xff)

	hits := ScanStrings(data)
	assert.Equal(t, []StringHit{
		{Value: "hiya!", Offset: 1},
	}, hits)
}

func TestScanStringsMinLength(t *testing.T) {
	// three printable characters is one short of reportable
	assert.Empty(t, ScanStrings([]byte{0x00, 'a', 'b', 'c', 0x00}))
	assert.Empty(t, ScanStrings(nil))
}

func TestScanStringsMixed(t *testing.T) {
	data := []byte("narrow\xff")
	for _, c := range "wide" {
		data = append(data, byte(c), 0x00)
	}

	hits := ScanStrings(data)
	// narrow hits first, then wide hits
	assert.Equal(t, "narrow", hits[0].Value)
	assert.Equal(t, uint64(0), hits[0].Offset)
	assert.Equal(t, "wide", hits[1].Value)
	assert.Equal(t, uint64(7), hits[1].Offset)
}
