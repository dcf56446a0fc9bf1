package instance

import (
	"fmt"
	"strings"

	"github.com/rpggio/recordbase/internal/domain/access"
)

func validateInstance(inst *Instance) error {
	if strings.TrimSpace(inst.Name) == "" {
		return fmt.Errorf("%w: name required", ErrInvalidInput)
	}
	if inst.MaxEntries < 0 {
		return fmt.Errorf("%w: max entries must not be negative", ErrInvalidInput)
	}
	if !inst.DefaultSortDir.Valid() {
		return fmt.Errorf("%w: sort direction %q", ErrInvalidInput, inst.DefaultSortDir)
	}
	return validateWindows(inst.Settings)
}

func validateWindows(s access.Settings) error {
	if !s.AvailableFrom.IsZero() && !s.AvailableTo.IsZero() && s.AvailableTo.Before(s.AvailableFrom) {
		return fmt.Errorf("%w: availability window ends before it starts", ErrInvalidInput)
	}
	if !s.ViewFrom.IsZero() && !s.ViewTo.IsZero() && s.ViewTo.Before(s.ViewFrom) {
		return fmt.Errorf("%w: read-only window ends before it starts", ErrInvalidInput)
	}
	return nil
}

// Field names end up inside [[...]] tags, so tag delimiters are rejected.
func validateFieldName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: field name required", ErrInvalidInput)
	}
	if name != strings.TrimSpace(name) {
		return fmt.Errorf("%w: field name has surrounding spaces", ErrInvalidInput)
	}
	if strings.ContainsAny(name, "[]#") {
		return fmt.Errorf("%w: field name %q contains tag characters", ErrInvalidInput, name)
	}
	return nil
}
