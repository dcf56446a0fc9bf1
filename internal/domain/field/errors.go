package field

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownType indicates a type name that is not registered.
	ErrUnknownType = errors.New("unknown field type")
	// ErrRequired indicates a required field was left empty.
	ErrRequired = errors.New("value required")
	// ErrInvalidNumber indicates a value that does not parse as a number.
	ErrInvalidNumber = errors.New("invalid number")
	// ErrOutOfRange indicates a value outside the configured bounds.
	ErrOutOfRange = errors.New("value out of range")
	// ErrTooLong indicates text longer than the configured maximum.
	ErrTooLong = errors.New("value too long")
	// ErrInvalidURL indicates a malformed URL.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidDate indicates an unparseable date.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidOption indicates a choice not among the field options.
	ErrInvalidOption = errors.New("invalid option")
	// ErrInvalidFileName indicates a file name carrying path separators.
	ErrInvalidFileName = errors.New("invalid file name")
	// ErrInvalidLatitude indicates a latitude outside [-90, 90].
	ErrInvalidLatitude = errors.New("invalid latitude")
	// ErrInvalidLongitude indicates a longitude outside [-180, 180].
	ErrInvalidLongitude = errors.New("invalid longitude")
	// ErrInvalidCriterion indicates a search value the type cannot compile.
	ErrInvalidCriterion = errors.New("invalid search criterion")
	// ErrNotSearchable indicates a search against a type without search support.
	ErrNotSearchable = errors.New("field type not searchable")
)

// ValidationError is one failed rule for one field.
type ValidationError struct {
	Field string `json:"field"`
	Err   error  `json:"-"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e ValidationError) Unwrap() error {
	return e.Err
}

// ValidationErrors aggregates every failure of a submission.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Is lets errors.Is match any wrapped rule error.
func (errs ValidationErrors) Is(target error) bool {
	for _, e := range errs {
		if errors.Is(e.Err, target) {
			return true
		}
	}
	return false
}

// ForField returns the errors reported against the named field.
func (errs ValidationErrors) ForField(name string) []ValidationError {
	var out []ValidationError
	for _, e := range errs {
		if e.Field == name {
			out = append(out, e)
		}
	}
	return out
}
