package takeover

import "errors"

// Sentinel errors for takeover classification and compensation.
var (
	ErrInvalidEvent       = errors.New("invalid intervention event")
	ErrNoCompensationTier = errors.New("no compensation tier found")
	ErrUnknownCategory    = errors.New("unknown takeover category")
)
