package instance

import "errors"

var (
	// ErrInstanceNotFound indicates the instance doesn't exist.
	ErrInstanceNotFound = errors.New("instance not found")
	// ErrFieldNotFound indicates the field doesn't exist in the instance.
	ErrFieldNotFound = errors.New("field not found")
	// ErrDuplicateFieldName indicates a field name already used in the instance.
	ErrDuplicateFieldName = errors.New("field name already exists")
	// ErrInvalidInput indicates invalid instance or field input.
	ErrInvalidInput = errors.New("invalid instance input")
)
