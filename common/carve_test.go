package common

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

// minimalPE writes a DOS header whose e_lfanew points at a PE signature.
func minimalPE(buf []byte, at int) {
	buf[at] = 'M'
	buf[at+1] = 'Z'
	binary.LittleEndian.PutUint32(buf[at+0x3c:], 0x40)
	copy(buf[at+0x40:], "PE\x00\x00")
}

func collectCarve(buf []byte, start uint64) []uint64 {
	var out []uint64
	for off := range CarvePE(buf, start) {
		out = append(out, off)
	}
	return out
}

func TestCarvePEEmpty(t *testing.T) {
	assert.Empty(t, collectCarve(nil, 0))
	assert.Empty(t, collectCarve(make([]byte, 256), 0))
	assert.Empty(t, collectCarve([]byte("no executables in here"), 0))
}

func TestCarvePEAtZero(t *testing.T) {
	buf := make([]byte, 0x44)
	minimalPE(buf, 0)

	assert.Equal(t, []uint64{0}, collectCarve(buf, 0))
	// scanning past the header finds nothing: the artifact is not
	// embedded inside itself
	assert.Empty(t, collectCarve(buf, 1))
}

func TestCarvePEMultiple(t *testing.T) {
	buf := make([]byte, 0x88)
	minimalPE(buf, 0)
	minimalPE(buf, 0x44)

	assert.Equal(t, []uint64{0, 0x44}, collectCarve(buf, 0))
	assert.Equal(t, []uint64{0x44}, collectCarve(buf, 1))
}

func TestCarvePERejectsBadCandidates(t *testing.T) {
	// e_lfanew runs past the buffer
	buf := make([]byte, 0x44)
	buf[0], buf[1] = 'M', 'Z'
	binary.LittleEndian.PutUint32(buf[0x3c:], 0x10000)
	assert.Empty(t, collectCarve(buf, 0))

	// pointer lands on bytes that are not a PE signature
	buf = make([]byte, 0x44)
	buf[0], buf[1] = 'M', 'Z'
	binary.LittleEndian.PutUint32(buf[0x3c:], 0x40)
	copy(buf[0x40:], "NOPE")
	assert.Empty(t, collectCarve(buf, 0))

	// magic too close to the end for a DOS header
	assert.Empty(t, collectCarve([]byte("MZ"), 0))
}

func TestCarvePELazyStop(t *testing.T) {
	buf := make([]byte, 0x88)
	minimalPE(buf, 0)
	minimalPE(buf, 0x44)

	var got []uint64
	for off := range CarvePE(buf, 0) {
		got = append(got, off)
		break
	}
	assert.Equal(t, []uint64{0}, got)
}
