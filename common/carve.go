package common

import (
	"bytes"
	"encoding/binary"
	"iter"
)

var (
	dosMagic    = []byte("MZ")
	peSignature = []byte("PE\x00\x00")
)

// e_lfanew lives at this offset inside the DOS header.
const lfanewOffset = 0x3c

// CarvePE scans buf from start for embedded executables, yielding the
// offset of every DOS header whose e_lfanew pointer lands on a valid PE
// signature inside the buffer. Scanning resumes just past each hit, so
// nested and adjacent candidates are all reported; deduplication is the
// caller's business. The sequence is produced lazily.
//
// Callers scanning the first segment of a PE image pass start=1 so the
// image's own header does not match at offset zero.
func CarvePE(buf []byte, start uint64) iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		off := start
		for off < uint64(len(buf)) {
			i := bytes.Index(buf[off:], dosMagic)
			if i < 0 {
				return
			}
			m := off + uint64(i)
			off = m + 1
			if m+lfanewOffset+4 > uint64(len(buf)) {
				continue
			}
			h := uint64(binary.LittleEndian.Uint32(buf[m+lfanewOffset:]))
			if m+h+4 > uint64(len(buf)) {
				continue
			}
			if !bytes.Equal(buf[m+h:m+h+4], peSignature) {
				continue
			}
			if !yield(m) {
				return
			}
		}
	}
}
