package template

import "errors"

// ErrUnknownTemplate indicates a template name outside the known kinds.
var ErrUnknownTemplate = errors.New("unknown template")
