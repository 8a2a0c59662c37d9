package rules

import "errors"

// ErrInvalidRules reports an inconsistent rule table.
var ErrInvalidRules = errors.New("invalid rules")
