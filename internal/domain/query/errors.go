package query

import "errors"

// ErrInvalidCriterion indicates a criterion key that is neither a field id nor an
// owner name key.
var ErrInvalidCriterion = errors.New("invalid search criterion")
