package extract

import (
	"bytes"

	"gofeat/view"
)

// readBoundedString reads up to max bytes mapped at addr and cuts at the
// first NUL. Fallback path only: used when the backend's own symbol
// metadata is known to be truncated.
func readBoundedString(v view.View, addr, max uint64) string {
	buf := v.Read(addr, max)
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf)
}
