package terrain

import "errors"

// Sentinel kinds for terrain errors.
var (
	ErrInvalidSize = errors.New("invalid terrain size")
)
