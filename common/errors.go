package common

import "errors"

var (
	// ErrUnsupportedArch reports a flat/mapped view whose declared
	// architecture has no shellcode format label.
	ErrUnsupportedArch = errors.New("unsupported architecture")
	// ErrUnsupportedFormat reports a view type outside the recognized set.
	ErrUnsupportedFormat = errors.New("unsupported container format")
)
