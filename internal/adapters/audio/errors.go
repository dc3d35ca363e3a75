package audio

import "errors"

// Sentinel kinds for audio errors.
var (
	ErrUnknownDenomination = errors.New("unknown denomination")
	ErrSpeaker             = errors.New("speaker unavailable")
)
