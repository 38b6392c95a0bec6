package common

import "regexp"

// MinStringLength is the shortest printable run worth reporting.
const MinStringLength = 4

// StringHit is one printable string recovered from raw bytes, with the
// offset it starts at.
type StringHit struct {
	Value  string
	Offset uint64
}

var (
	asciiRun = regexp.MustCompile(`[ -~]{4,}`)
	wideRun  = regexp.MustCompile(`(?:[ -~]\x00){4,}`)
)

// ScanStrings recovers printable ASCII and UTF-16LE runs of at least
// MinStringLength characters from data. ASCII hits come first, then wide
// hits, each group in ascending offset order.
func ScanStrings(data []byte) []StringHit {
	var hits []StringHit
	for _, loc := range asciiRun.FindAllIndex(data, -1) {
		hits = append(hits, StringHit{
			Value:  string(data[loc[0]:loc[1]]),
			Offset: uint64(loc[0]),
		})
	}
	for _, loc := range wideRun.FindAllIndex(data, -1) {
		hits = append(hits, StringHit{
			Value:  decodeWide(data[loc[0]:loc[1]]),
			Offset: uint64(loc[0]),
		})
	}
	return hits
}

// decodeWide narrows a UTF-16LE run whose code units are all printable
// ASCII, which is the only shape wideRun matches.
func decodeWide(b []byte) string {
	out := make([]byte, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		out = append(out, b[i])
	}
	return string(out)
}
